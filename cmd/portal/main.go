// cmd/portal/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/ulule/limiter/v3"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"

	"affiliate-portal/internal/api"
	"affiliate-portal/internal/common/auth"
	"affiliate-portal/internal/common/camunda"
	"affiliate-portal/internal/common/config"
	"affiliate-portal/internal/common/database"
	"affiliate-portal/internal/common/logger"
	"affiliate-portal/internal/common/observability"
	"affiliate-portal/internal/identity"
	"affiliate-portal/internal/registration"
	"affiliate-portal/internal/search"
	"affiliate-portal/internal/session"
	"affiliate-portal/internal/store"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{"service": "portal"})
	zapLog.Info("Starting affiliate portal...", zap.String("environment", cfg.App.Environment))

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	obs := observability.New("affiliate-portal", prometheus.DefaultRegisterer, log)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		if err := pg.Ping(ctx); err != nil {
			pg.Close()
			return err
		}
		return nil
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected")

	// --- Redis ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected")

	checks := map[string]api.Pinger{
		"postgres": pg,
		"redis":    rdb,
	}

	// --- Elasticsearch (optional) ---
	var searcher api.MaterialSearcher
	if len(cfg.Database.Elasticsearch.GetAddresses()) > 0 {
		esClient, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			zapLog.Fatal("elasticsearch client failed", zap.Error(err))
		}
		if err := esClient.Ping(ctx); err != nil {
			zapLog.Warn("elasticsearch not reachable yet", zap.Error(err))
		}
		searcher = search.NewIndex(esClient.Client, cfg.Search.MaterialsIndex, cfg.Search.DefaultSize)
		checks["elasticsearch"] = esClient
		zapLog.Info("Material search enabled", zap.String("index", cfg.Search.MaterialsIndex))
	}

	// --- Camunda (optional) ---
	var starter registration.ProcessStarter
	if cfg.Camunda.Enabled {
		var camundaClient *camunda.Client
		err = retryWithBackoff(func() error {
			var err error
			camundaClient, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: true,
				ConnectionTimeout:      10 * time.Second,
				RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
			})
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		defer camundaClient.Close()
		starter = camundaClient
		checks["camunda"] = api.PingFunc(camundaClient.HealthCheck)
		zapLog.Info("Zeebe client connected", zap.String("gateway", cfg.Camunda.BrokerAddress))
	}

	// --- Domain services ---
	data := store.New(pg)

	keycloak := auth.NewKeycloakClient(
		cfg.Auth.Keycloak.URL,
		cfg.Auth.Keycloak.Realm,
		cfg.Auth.Keycloak.ClientID,
		cfg.Auth.Keycloak.ClientSecret,
		config.GetDuration(cfg.Auth.Keycloak.Timeout),
	)
	sessions := session.NewStore(rdb.GetClient(), cfg.Auth.Session.KeyPrefix, time.Duration(cfg.Auth.Session.TTL)*time.Second)
	resolver := identity.NewResolver(data, log)
	authenticator := identity.NewAuthenticator(keycloak, sessions, resolver, data, log)

	registrar := registration.NewService(data, starter, registration.ServiceConfig{
		ReviewProcess: cfg.Camunda.ReviewProcess,
	}, log)

	limiterStore, err := newLimiterStore(cfg, rdb)
	if err != nil {
		zapLog.Fatal("rate limit store failed", zap.Error(err))
	}

	server, err := api.NewServer(api.Options{
		Config:        cfg,
		Auth:          authenticator,
		Dashboard:     data,
		Materials:     data,
		Search:        searcher,
		Registration:  registrar,
		LimiterStore:  limiterStore,
		Checks:        checks,
		Observability: obs,
		Logger:        log,
	})
	if err != nil {
		zapLog.Fatal("api server setup failed", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      server.Handler(),
		ReadTimeout:  config.GetDuration(cfg.HTTP.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.HTTP.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.HTTP.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}

	zapLog.Info("Affiliate portal stopped gracefully")
}

// newLimiterStore returns nil for the in-memory store, which api.NewServer creates itself.
func newLimiterStore(cfg *config.Config, rdb *database.RedisClient) (limiter.Store, error) {
	if cfg.RateLimit.Store != "redis" {
		return nil, nil
	}
	return sredis.NewStoreWithOptions(rdb.GetClient(), limiter.StoreOptions{
		Prefix: cfg.App.Name + ":ratelimit",
	})
}
