// Package server wires stores, services, and handlers into the HTTP API.
package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/rburns/chorepoint/internal/auth"
	"github.com/rburns/chorepoint/internal/backup"
	"github.com/rburns/chorepoint/internal/billing"
	"github.com/rburns/chorepoint/internal/chore"
	"github.com/rburns/chorepoint/internal/email"
	"github.com/rburns/chorepoint/internal/handler"
	"github.com/rburns/chorepoint/internal/middleware"
	"github.com/rburns/chorepoint/internal/push"
	"github.com/rburns/chorepoint/internal/smart"
	"github.com/rburns/chorepoint/internal/store"
	"github.com/rburns/chorepoint/internal/weather"
	ws "github.com/rburns/chorepoint/internal/websocket"
)

type Config struct {
	Port           string
	FrontendOrigin string
	TokenSecret    string
	TokenTTL       time.Duration

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	PushSubscriber  string
}

type Server struct {
	db          *sql.DB
	cfg         Config
	hub         *ws.Hub
	gate        *middleware.Gate
	rateLimiter *middleware.RateLimiter

	authH    *handler.AuthHandler
	familyH  *handler.FamilyHandler
	choreH   *handler.ChoreHandler
	forumH   *handler.ForumHandler
	moneyH   *handler.MoneyHandler
	smartH   *handler.SmartHandler
	billingH *handler.BillingHandler
	pushH    *handler.PushHandler
	webhookH *billing.WebhookHandler

	pushScheduler *push.Scheduler
	backupManager *backup.Manager
	logger        *slog.Logger
}

func New(
	db *sql.DB,
	cfg Config,
	weatherSvc *weather.Service,
	emailClient *email.Client,
	suggestClient smart.SuggestionClient,
	billingCfg billing.Config,
	backupCfg backup.Config,
	logger *slog.Logger,
) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	familyStore := store.NewFamilyStore(db)
	choreStore := store.NewChoreStore(db)
	forumStore := store.NewForumStore(db)
	moneyStore := store.NewMoneyStore(db)
	pushStore := store.NewPushStore(db)

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	tokens := auth.NewTokens(cfg.TokenSecret, ttl)
	gate := middleware.NewGate(tokens, userStore, familyStore, choreStore, logger)

	lifecycle := chore.NewService(choreStore, userStore, familyStore, logger.With("component", "chore"))
	smartSvc := smart.NewService(choreStore, userStore, lifecycle, weatherSvc, suggestClient, logger)

	billingClient := billing.NewClient(billingCfg)
	webhookH := billing.NewWebhookHandler(billingClient, familyStore, logger)

	pushSvc := push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.PushSubscriber)
	var pushSched *push.Scheduler
	if pushSvc.Configured() {
		pushSched = push.NewScheduler(pushSvc, pushStore, choreStore, logger)
	}

	return &Server{
		db:          db,
		cfg:         cfg,
		hub:         hub,
		gate:        gate,
		rateLimiter: middleware.NewRateLimiter(),

		authH:    handler.NewAuthHandler(userStore, familyStore, tokens, emailClient, logger),
		familyH:  handler.NewFamilyHandler(familyStore, userStore, emailClient, logger),
		choreH:   handler.NewChoreHandler(lifecycle, choreStore, hub, logger),
		forumH:   handler.NewForumHandler(forumStore, hub, logger),
		moneyH:   handler.NewMoneyHandler(moneyStore, logger),
		smartH:   handler.NewSmartHandler(smartSvc, hub, logger),
		billingH: handler.NewBillingHandler(billingClient, userStore, logger),
		pushH:    handler.NewPushHandler(pushStore, pushSvc, logger),
		webhookH: webhookH,

		pushScheduler: pushSched,
		backupManager: backup.NewManager(backupCfg, db, logger),
		logger:        logger,
	}
}

// RateLimiter returns the limiter for periodic cleanup.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// PushScheduler returns the reminder scheduler; nil when VAPID keys are not
// configured.
func (s *Server) PushScheduler() *push.Scheduler {
	return s.pushScheduler
}

// BackupManager returns the nightly backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

type middlewareFunc = func(http.Handler) http.Handler

func chain(h http.Handler, mws ...middlewareFunc) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	limited := middleware.RateLimit(s.rateLimiter, middleware.RealIP, 10, time.Minute)

	// Public routes
	mux.Handle("POST /api/auth/register", limited(http.HandlerFunc(s.authH.Register)))
	mux.Handle("POST /api/auth/login", limited(http.HandlerFunc(s.authH.Login)))
	mux.HandleFunc("POST /webhooks/stripe", s.webhookH.HandleStripeWebhook)
	mux.HandleFunc("GET /health", s.healthHandler)

	// Authenticated, no family required
	authed := func(h http.HandlerFunc) http.Handler {
		return chain(h, s.gate.RequireAuth)
	}
	mux.Handle("GET /api/auth/me", authed(s.authH.Me))
	mux.Handle("PUT /api/auth/me", authed(s.authH.UpdateMe))
	mux.Handle("POST /api/family/join", authed(s.familyH.Join))
	mux.Handle("GET /api/push/vapid-key", authed(s.pushH.VAPIDKey))
	mux.Handle("POST /api/push/subscribe", authed(s.pushH.Subscribe))
	mux.Handle("POST /api/push/unsubscribe", authed(s.pushH.Unsubscribe))

	// Family members regardless of subscription state: billing has to stay
	// reachable so a lapsed family can reactivate, and the family view so
	// they can see why.
	withFamily := func(h http.HandlerFunc) http.Handler {
		return chain(h, s.gate.RequireAuth, s.gate.RequireFamily)
	}
	mux.Handle("POST /api/billing/checkout", chain(http.HandlerFunc(s.billingH.CreateCheckout),
		s.gate.RequireAuth, s.gate.RequireParent, s.gate.RequireFamily))
	mux.Handle("GET /api/family", withFamily(s.familyH.Get))
	mux.Handle("GET /api/ws", withFamily(ws.Handle(s.hub, s.cfg.FrontendOrigin, s.logger.With("component", "websocket"))))

	// Active subscription required
	gated := func(h http.HandlerFunc, extra ...middlewareFunc) http.Handler {
		mws := []middlewareFunc{s.gate.RequireAuth, s.gate.RequireFamily, s.gate.RequireActiveSubscription}
		mws = append(mws, extra...)
		mws = append(mws, s.gate.TrackUsage)
		return chain(h, mws...)
	}

	mux.Handle("POST /api/family/invite-code", gated(s.familyH.RegenerateInviteCode, s.gate.RequireParent))
	mux.Handle("POST /api/family/invite", gated(s.familyH.Invite, s.gate.RequireParent))
	mux.Handle("GET /api/family/usage", gated(s.familyH.Usage))

	mux.Handle("POST /api/chores", gated(s.choreH.Create, s.gate.LimitMonthlyChores))
	mux.Handle("GET /api/chores/family", gated(s.choreH.List))
	mux.Handle("GET /api/chores/my-chores", gated(s.choreH.Mine))
	mux.Handle("GET /api/chores/stats", gated(s.choreH.Stats))
	mux.Handle("GET /api/chores/{id}", gated(s.choreH.Get))
	mux.Handle("PATCH /api/chores/{id}/status", gated(s.choreH.UpdateStatus))
	mux.Handle("POST /api/chores/{id}/notes", gated(s.choreH.AddNote))
	mux.Handle("DELETE /api/chores/{id}", gated(s.choreH.Delete))

	forum := s.gate.RequireFeature("forum")
	mux.Handle("GET /api/forum/topics", gated(s.forumH.ListTopics, forum))
	mux.Handle("POST /api/forum/topics", gated(s.forumH.CreateTopic, forum))
	mux.Handle("GET /api/forum/topics/{id}/posts", gated(s.forumH.ListPosts, forum))
	mux.Handle("POST /api/forum/topics/{id}/posts", gated(s.forumH.CreatePost, forum))
	mux.Handle("POST /api/forum/posts/{id}/like", gated(s.forumH.ToggleLike, forum))

	money := s.gate.RequireFeature("money")
	mux.Handle("GET /api/money/goals", gated(s.moneyH.ListSavingsGoals, money))
	mux.Handle("POST /api/money/goals", gated(s.moneyH.CreateSavingsGoal, money))
	mux.Handle("POST /api/money/goals/{id}/add", gated(s.moneyH.AddToSavingsGoal, money))
	mux.Handle("GET /api/money/transactions", gated(s.moneyH.ListTransactions, money))
	mux.Handle("POST /api/money/transactions", gated(s.moneyH.CreateTransaction, money))
	mux.Handle("GET /api/money/lessons", gated(s.moneyH.ListLessonProgress, money))
	mux.Handle("PUT /api/money/lessons", gated(s.moneyH.UpsertLessonProgress, money))
	mux.Handle("GET /api/money/allocation", gated(s.moneyH.GetMoneyGoal, money))
	mux.Handle("PUT /api/money/allocation", gated(s.moneyH.SetMoneyGoal, money))

	smartFeature := s.gate.RequireFeature("smart")
	mux.Handle("GET /api/smart/suggestions", gated(s.smartH.Suggest, smartFeature))
	mux.Handle("POST /api/smart/rotate", gated(s.smartH.Rotate, smartFeature))
	mux.Handle("POST /api/smart/weather-adjust", gated(s.smartH.AdjustForWeather, smartFeature))
	mux.Handle("GET /api/smart/forecast", gated(s.smartH.Forecast, smartFeature))

	var root http.Handler = mux
	root = middleware.CORS(s.cfg.FrontendOrigin)(root)
	return middleware.RequestLogger(s.logger.With("component", "http"))(root)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
