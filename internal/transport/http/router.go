package http

import (
	"net/http"
	"strings"
	"time"

	"expense-auth/internal/authz"
	obsmw "expense-auth/internal/observability/middleware"
	"expense-auth/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	Auth        service.AuthService
	Admin       service.AdminService
	Tokens      service.TokenService
	CORSOrigins []string
}

func NewRouter(cfg RouterConfig) *chi.Mux {
	h := &handler{auth: cfg.Auth, admin: cfg.Admin}
	bearer := authz.NewBearer(cfg.Tokens)

	r := chi.NewRouter()

	// --- Middlewares ---
	r.Use(obsmw.WithRequestAndTrace)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   originsIfSet(cfg.CORSOrigins),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id", "X-Trace-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "X-Trace-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(obsmw.WithMetrics)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Post("/login", h.login)
		r.Post("/setup-password", h.setupPassword)
		r.Post("/select-mfa-method", h.selectMFAMethod)
		r.Post("/verify-mfa-setup", h.verifyMFASetup)
		r.Post("/verify-login-mfa", h.verifyLoginMFA)
		r.Post("/passkey-auth-options", h.passkeyAuthOptions)
		r.Post("/passkey-auth-verify", h.passkeyAuthVerify)

		r.Group(func(pr chi.Router) {
			pr.Use(bearer.Middleware)
			pr.Post("/invite", h.invite)
			pr.Get("/me", h.me)
			pr.Get("/me/activity", h.activity)
		})
	})

	r.Route("/api/v1/super-admin", func(r chi.Router) {
		r.Get("/bootstrap/check", h.bootstrapCheck)
		r.Post("/bootstrap/create", h.bootstrapCreate)

		r.Group(func(pr chi.Router) {
			pr.Use(bearer.Middleware)
			pr.Post("/create-admin", h.createAdmin)
			pr.Get("/pending-invitations", h.listPendingAdmins)
			pr.Get("/pending-invitations/{userId}", h.getPendingAdmin)
			pr.Post("/pending-invitations/{userId}/accept", h.acceptPendingAdmin)
			pr.Post("/pending-invitations/{userId}/reject", h.rejectPendingAdmin)
		})
	})

	return r
}

// originsIfSet falls back to allowing any origin when none are configured.
func originsIfSet(origins []string) []string {
	var out []string
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
