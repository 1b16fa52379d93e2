package auth

import (
	"context"

	"github.com/rburns/chorepoint/internal/model"
)

type contextKey struct{}

type familyKey struct{}

// AuthContext carries the authenticated caller through the request context.
// FamilyID is zero until the user has joined a family.
type AuthContext struct {
	UserID   int64
	Role     model.Role
	FamilyID int64
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func UserID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.UserID
}

func FamilyID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.FamilyID
}

func IsParent(ctx context.Context) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return ac.Role == model.RoleParent
}

// WithFamily stashes the caller's resolved family record so downstream gates
// and handlers do not reload it.
func WithFamily(ctx context.Context, f *model.Family) context.Context {
	return context.WithValue(ctx, familyKey{}, f)
}

func FamilyFromContext(ctx context.Context) (*model.Family, bool) {
	f, ok := ctx.Value(familyKey{}).(*model.Family)
	return f, ok
}
