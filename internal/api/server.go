// Package api exposes the portal over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"

	"affiliate-portal/internal/common/config"
	"affiliate-portal/internal/common/logger"
	"affiliate-portal/internal/common/observability"
	"affiliate-portal/internal/identity"
	"affiliate-portal/internal/models"
	"affiliate-portal/internal/registration"
	"affiliate-portal/internal/search"
	"affiliate-portal/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// Authenticator is implemented by *identity.Authenticator.
type Authenticator interface {
	Login(ctx context.Context, req identity.LoginRequest) (*identity.LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
	Authenticate(ctx context.Context, sessionID string) (*models.Affiliate, error)
	AuthenticateBearer(ctx context.Context, token string) (*models.Affiliate, error)
}

type DashboardStore interface {
	CountClicks(ctx context.Context, affiliateID string) (int64, error)
	ListOrders(ctx context.Context, affiliateID string, limit int) ([]models.AffiliateOrder, error)
	ListAllOrders(ctx context.Context, affiliateID string, max int) ([]models.AffiliateOrder, error)
}

type MaterialStore interface {
	ListActiveMaterials(ctx context.Context, filter store.MaterialFilter) ([]models.AffiliateMaterial, error)
	IncrementMaterialDownload(ctx context.Context, id string) error
}

type MaterialSearcher interface {
	Search(ctx context.Context, query string, typ models.MaterialType, size int) (*search.Result, error)
}

type Registrar interface {
	Submit(ctx context.Context, req registration.SubmitRequest) (*models.AffiliateApplication, error)
}

// Pinger is a dependency checked by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a plain function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

type Options struct {
	Config        *config.Config
	Auth          Authenticator
	Dashboard     DashboardStore
	Materials     MaterialStore
	Search        MaterialSearcher // optional
	Registration  Registrar
	LimiterStore  limiter.Store // defaults to an in-memory store
	Checks        map[string]Pinger
	Observability *observability.Observability
	Logger        logger.Logger
}

type Server struct {
	cfg           *config.Config
	auth          Authenticator
	dashboard     DashboardStore
	materials     MaterialStore
	search        MaterialSearcher
	registration  Registrar
	checks        map[string]Pinger
	observability *observability.Observability
	logger        logger.Logger
	engine        *gin.Engine
}

// NewServer builds the router. It fails only on an invalid rate limit format.
func NewServer(opts Options) (*Server, error) {
	s := &Server{
		cfg:           opts.Config,
		auth:          opts.Auth,
		dashboard:     opts.Dashboard,
		materials:     opts.Materials,
		search:        opts.Search,
		registration:  opts.Registration,
		checks:        opts.Checks,
		observability: opts.Observability,
		logger:        opts.Logger.WithFields(map[string]interface{}{"component": "api"}),
	}

	limiterStore := opts.LimiterStore
	if limiterStore == nil {
		limiterStore = memory.NewStore()
	}

	engine := gin.New()
	if len(s.cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(s.cfg.HTTP.TrustedProxies); err != nil {
			return nil, fmt.Errorf("trusted proxies: %w", err)
		}
	}

	engine.Use(
		requestID(),
		recovery(s.logger),
		requestLogger(s.logger),
		instrument(s.observability),
	)

	engine.GET("/healthz", s.healthz)
	engine.GET("/readyz", s.readyz)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	registerLimit, err := s.rateLimit("register", s.cfg.RateLimit.Register, limiterStore)
	if err != nil {
		return nil, err
	}
	loginLimit, err := s.rateLimit("login", s.cfg.RateLimit.Login, limiterStore)
	if err != nil {
		return nil, err
	}

	public := engine.Group("/api")
	{
		public.POST("/register", registerLimit, s.register)
		public.POST("/auth/login", loginLimit, s.login)
		public.POST("/auth/logout", s.logout)

		public.GET("/materials", s.listMaterials)
		public.POST("/materials/:id/download", s.downloadMaterial)
		if s.search != nil {
			public.GET("/materials/search", s.searchMaterials)
		}
	}

	dashboard := engine.Group("/api/dashboard")
	dashboard.Use(requireAffiliate(s.auth, s.cfg.Auth.Session.CookieName, s.logger))
	{
		dashboard.GET("/orders", s.listOrders)
		dashboard.GET("/stats", s.getStats)
		dashboard.GET("/report", s.getReport)
		dashboard.GET("/profile", s.getProfile)
	}

	s.engine = engine
	return s, nil
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}
