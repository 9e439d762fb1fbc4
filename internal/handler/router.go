package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/zhouzirui/z-chatkit/backend/internal/config"
	"github.com/zhouzirui/z-chatkit/backend/internal/handler/page"
	sessionHandler "github.com/zhouzirui/z-chatkit/backend/internal/handler/session"
	"github.com/zhouzirui/z-chatkit/backend/internal/metrics"
	middlewarePkg "github.com/zhouzirui/z-chatkit/backend/internal/middleware"
	sessionService "github.com/zhouzirui/z-chatkit/backend/internal/service/session"
	"github.com/zhouzirui/z-chatkit/backend/pkg/utils"
)

// Deps 汇总路由依赖的服务
type Deps struct {
	Config   *config.Config
	Page     *page.Handler
	Sessions *sessionService.Service
	Metrics  *metrics.Broker
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.SecurityHeaders(deps.Config.Security))

	// Create handlers
	sessions := sessionHandler.New(deps.Sessions, deps.Config.Cookie, deps.Metrics)

	deps.Page.RegisterRoutes(r)

	r.Route("/api", func(api chi.Router) {
		// 未配置白名单时仅允许同源访问；cors 在空列表下会放行所有来源
		if origins := deps.Config.Security.AllowedOrigins; len(origins) > 0 {
			api.Use(cors.Handler(cors.Options{
				AllowedOrigins:   origins,
				AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
				AllowedHeaders:   []string{"Content-Type"},
				AllowCredentials: true,
				MaxAge:           600,
			}))
		}

		sessions.RegisterRoutes(api)
		deps.Page.RegisterAPIRoutes(api)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":     "ok",
			"configured": deps.Sessions.Configured(),
		})
	})

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	return r
}
