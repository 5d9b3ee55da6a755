package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/securestore-go/internal/server/httpserver/handler"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Engine serves entry and admin requests.
	Engine handler.Engine

	// Ready backs /ready. Nil means always ready.
	Ready handler.ReadyFunc

	// Metrics serves /metrics. Nil leaves the route unregistered.
	Metrics http.Handler

	// Observer receives per-request metrics. May be nil.
	Observer RequestObserver

	// Logger for request logging.
	Logger *slog.Logger

	// APIToken protects the entry and admin routes. Empty disables auth.
	APIToken string

	// RateLimit is the per-client rate in requests per second (0 = off).
	RateLimit float64

	// RateBurst is the per-client burst size.
	RateBurst int

	// TrustProxyHeaders makes the rate limiter key on X-Forwarded-For.
	TrustProxyHeaders bool

	// MaxBodyBytes caps request bodies (0 = unlimited).
	MaxBodyBytes int64
}

// NewRouter creates the HTTP router with all routes and middleware.
//
// Health and metrics routes skip authentication and rate limiting.
// Entry and admin routes run Recover, RequestID, AccessLog, RateLimit,
// Auth and MaxBody, in that order.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	h := handler.New(cfg.Engine, cfg.Ready, log)
	mux := http.NewServeMux()

	public := func(next http.Handler) http.Handler {
		return Chain(next,
			Recover(log),
			RequestID(),
			AccessLog(log, cfg.Observer),
		)
	}
	for _, pattern := range handler.HealthRoutes {
		mux.Handle(pattern, public(h))
	}
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", public(cfg.Metrics))
	}

	// One limiter shared by every protected route.
	limiter := RateLimit(cfg.RateLimit, cfg.RateBurst, cfg.TrustProxyHeaders)
	protected := Chain(h,
		Recover(log),
		RequestID(),
		AccessLog(log, cfg.Observer),
		limiter,
		Auth(cfg.APIToken, log),
		MaxBody(cfg.MaxBodyBytes),
	)
	for _, pattern := range handler.EntryRoutes {
		mux.Handle(pattern, protected)
	}
	for _, pattern := range handler.AdminRoutes {
		mux.Handle(pattern, protected)
	}

	return mux
}
