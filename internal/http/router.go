package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/redis/go-redis/v9"

	"github.com/gestaozabele/clinica/internal/config"
	httpmiddleware "github.com/gestaozabele/clinica/internal/http/middleware"
	"github.com/gestaozabele/clinica/internal/metrics"
	"github.com/gestaozabele/clinica/internal/service"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type redisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// Deps reúne o que o roteador precisa. DB, Redis e Metrics podem ser nil
// (testes); sem Metrics a rota /metrics não é montada.
type Deps struct {
	Config  *config.Config
	DB      pinger
	Redis   redisPinger
	Auth    *service.AuthService
	Clinic  *service.ClinicService
	Metrics *metrics.Collector
}

type Handler struct {
	cfg           *config.Config
	db            pinger
	redis         redisPinger
	authService   *service.AuthService
	clinic        *service.ClinicService
	metrics       *metrics.Collector
	webauthn      *webauthn.WebAuthn
	publicLimiter *httpmiddleware.RateLimiter
	authLimiter   *httpmiddleware.RateLimiter
	loginLimiter  *httpmiddleware.RateLimiter
	devCookies    bool
}

// NewRouter devolve roteador configurado.
func NewRouter(d Deps) (http.Handler, error) {
	cfg := d.Config
	devCookies := false
	for _, origin := range cfg.AllowOrigins {
		if strings.Contains(origin, "localhost") {
			devCookies = true
			break
		}
	}

	wa, err := webauthn.New(&webauthn.Config{
		RPDisplayName: cfg.WebAuthnRPName,
		RPID:          cfg.WebAuthnRPID,
		RPOrigins:     []string{cfg.WebAuthnRPOrigin},
	})
	if err != nil {
		return nil, fmt.Errorf("webauthn: %w", err)
	}

	h := &Handler{
		cfg:           cfg,
		db:            d.DB,
		redis:         d.Redis,
		authService:   d.Auth,
		clinic:        d.Clinic,
		metrics:       d.Metrics,
		webauthn:      wa,
		publicLimiter: httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst),
		authLimiter:   httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst),
		loginLimiter:  httpmiddleware.NewRateLimiter(cfg.RateLimitLogin.RequestsPerSecond, cfg.RateLimitLogin.Burst),
		devCookies:    devCookies,
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	if h.metrics != nil {
		r.Use(httpmiddleware.Metrics(h.metrics))
	}
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(h.publicLimiter))

		public.Get("/health", h.Health)
		public.Get("/ready", h.Ready)
		if h.metrics != nil && cfg.MetricsEnabled {
			public.Method(http.MethodGet, "/metrics", h.metrics.Handler())
		}
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(httpmiddleware.Authenticate(h.authService))

		api.Group(func(public chi.Router) {
			public.Use(httpmiddleware.IPRateLimit(h.loginLimiter))
			public.Post("/auth/login", h.Login)
			public.Post("/auth/passkey/login/start", h.PasskeyLoginStart)
			public.Post("/auth/passkey/login/finish", h.PasskeyLoginFinish)
		})
		api.With(httpmiddleware.IPRateLimit(h.publicLimiter)).Post("/auth/logout", h.Logout)

		api.Group(func(private chi.Router) {
			private.Use(httpmiddleware.RequireAuth)
			private.Use(httpmiddleware.UserRateLimit(h.authLimiter))

			private.Get("/auth/me", h.Me)
			private.Post("/auth/passkey/register/start", h.PasskeyRegisterStart)
			private.Post("/auth/passkey/register/finish", h.PasskeyRegisterFinish)

			private.Put("/users/{id}/password", h.ChangePassword)

			private.Get("/cities", h.ListCities)
			private.Get("/cities/{id}", h.GetCity)

			private.Get("/collaborators/{id}", h.GetCollaborator)
			private.Get("/collaborators/{id}/dashboard", h.CollaboratorDashboard)
			private.Get("/collaborators/{id}/metrics", h.CollaboratorMetrics)
			private.Get("/collaborators/{id}/performance", h.CollaboratorPerformance)

			private.Route("/patients", h.patientRoutes)

			private.Get("/procedures", h.ListProcedures)
			private.Post("/procedures", h.CreateProcedure)
			private.Get("/procedure-templates", h.ListTemplates)
			private.Get("/procedure-templates/{id}", h.GetTemplate)

			private.Route("/events", func(ev chi.Router) {
				ev.Get("/", h.ListEvents)
				ev.Post("/", h.CreateEvent)
				ev.Get("/upcoming", h.UpcomingEvents)
				ev.Get("/pending", h.PendingEvents)
				ev.Get("/{id}", h.GetEvent)
				ev.Put("/{id}", h.UpdateEvent)
				ev.Patch("/{id}/complete", h.CompleteEvent)
				ev.Patch("/{id}/feedback", h.RecordFeedback)
			})

			private.Get("/tasks", h.ListTasks)
			private.Patch("/tasks/{id}/status", h.UpdateTaskStatus)

			private.Post("/performance-metrics", h.UpsertPerformance)
			private.Get("/dashboard/metrics", h.DashboardMetrics)
			private.Get("/dashboard/activity", h.DashboardActivity)

			private.Group(func(admin chi.Router) {
				admin.Use(httpmiddleware.RequireAdmin)

				admin.Get("/users", h.ListUsers)
				admin.Post("/users", h.CreateUser)
				admin.Patch("/users/{id}/promote", h.PromoteUser)

				admin.Post("/cities", h.CreateCity)
				admin.Put("/cities/{id}", h.UpdateCity)
				admin.Delete("/cities/{id}", h.DeleteCity)

				admin.Get("/collaborators", h.ListCollaborators)
				admin.Post("/collaborators", h.CreateCollaborator)
				admin.Put("/collaborators/{id}", h.UpdateCollaborator)
				admin.Delete("/collaborators/{id}", h.DeleteCollaborator)

				admin.Post("/procedure-templates", h.CreateTemplate)
				admin.Put("/procedure-templates/{id}", h.UpdateTemplate)
				admin.Delete("/procedure-templates/{id}", h.DeleteTemplate)

				admin.Get("/admin/tasks", h.AdminListTasks)
				admin.Post("/admin/tasks", h.CreateTask)
				admin.Patch("/admin/tasks/{id}", h.AdminUpdateTask)
				admin.Get("/admin/global-stats", h.GlobalStats)
				admin.Get("/admin/stalled-patients", h.StalledPatients)
				admin.Get("/admin/performance", h.PerformanceRankings)
			})
		})
	})

	return r, nil
}

// Health responde status simples.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready valida conexões com Postgres e Redis.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	var dbErr, redisErr error
	if h.db != nil {
		dbErr = h.db.Ping(ctx)
	}
	if h.redis != nil {
		redisErr = h.redis.Ping(ctx).Err()
	}

	if dbErr != nil || redisErr != nil {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "dependências indisponíveis", map[string]any{
			"db":    errorString(dbErr),
			"redis": errorString(redisErr),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
