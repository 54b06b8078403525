package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/domain"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/service"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/store"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/httpx"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     httpx.BearerVerifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store             store.Store
	CredentialService *service.CredentialService
	SessionService    *service.SessionService
	VerifyService     *service.VerifyService
	Relay             *service.Relay
}

func NewRouter(
	verifier httpx.BearerVerifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerRooms()
	r.registerSessions()
	r.registerVerification()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	loginHandler := &LoginHandler{CredentialService: r.CredentialService}

	// POST /login - strict rate limit by IP (authentication attempts)
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(loginHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /accounts - host-only registration of new principals
	accountsHandler := &AccountsHandler{CredentialService: r.CredentialService}
	r.Mux.Handle("POST /v1/accounts",
		httpx.Chain(accountsHandler,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireRole(domain.RoleHost),
			httpx.RateLimitByPrincipal(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerRooms() {
	h := &RoomsHandler{Store: r.store}

	r.Mux.Handle("POST /v1/rooms",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireRole(domain.RoleHost),
			httpx.RateLimitByPrincipal(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /v1/rooms",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByPrincipal(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /v1/rooms/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByPrincipal(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSessions() {
	h := &SessionsHandler{SessionService: r.SessionService}

	// POST /sessions - only hosts open sessions
	r.Mux.Handle("POST /v1/sessions",
		httpx.Chain(http.HandlerFunc(h.HandleStart),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireRole(domain.RoleHost),
			httpx.RateLimitByPrincipal(httpx.ModerateLimit),
		),
	)

	// DELETE /sessions/{id} - the owning host ends its session
	r.Mux.Handle("DELETE /v1/sessions/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleEnd),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireRole(domain.RoleHost),
			httpx.RateLimitByPrincipal(httpx.ModerateLimit),
		),
	)

	// GET /sessions/{id} - live status and tally
	r.Mux.Handle("GET /v1/sessions/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleStatus),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByPrincipal(httpx.LenientLimit),
		),
	)

	// GET /sessions/{id}/ws - relay stream; AuthnMiddleware accepts the
	// access_token query parameter since browsers cannot set headers on
	// websocket dials.
	wsHandler := &SessionStreamHandler{
		Relay:  r.Relay,
		Store:  r.store,
		Logger: r.logger,
	}
	r.Mux.Handle("GET /v1/sessions/{id}/ws",
		httpx.Chain(wsHandler,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByPrincipal(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerVerification() {
	h := &VerifyHandler{VerifyService: r.VerifyService}

	// POST /attendance/verify - holders submit scans; strict limit keeps
	// token guessing impractical.
	r.Mux.Handle("POST /v1/attendance/verify",
		httpx.Chain(h,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireRole(domain.RoleHolder),
			httpx.RateLimitByPrincipal(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}
