package websocket

import (
	"log/slog"
	"net/http"

	"github.com/rburns/chorepoint/internal/auth"

	ws "github.com/coder/websocket"
)

// Handle upgrades the connection and runs it as a hub client pinned to the
// caller's family. Runs behind RequireAuth and RequireFamily, so the family
// in context is always set.
func Handle(hub *Hub, allowedOrigin string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		familyID := auth.FamilyID(r.Context())
		if familyID == 0 {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		opts := &ws.AcceptOptions{}
		if allowedOrigin != "" {
			opts.OriginPatterns = []string{allowedOrigin}
		}
		conn, err := ws.Accept(w, r, opts)
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}

		client := NewClient(hub, conn, familyID)
		client.Run(r.Context())
	}
}
