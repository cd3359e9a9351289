package api

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"affiliate-portal/internal/common/errors"
	"affiliate-portal/internal/common/logger"
	"affiliate-portal/internal/common/metrics"
	"affiliate-portal/internal/common/observability"
	"affiliate-portal/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "requestId"
	affiliateKey    = "affiliate"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"latencyMs": time.Since(start).Milliseconds(),
			"requestId": c.GetString(requestIDKey),
			"clientIp":  c.ClientIP(),
		}
		if c.Writer.Status() >= 500 {
			log.Error("request failed", fields)
			return
		}
		log.Info("request handled", fields)
	}
}

func instrument(obs *observability.Observability) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)

		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(elapsed.Seconds())
		obs.RecordRequest(c.Request.Context(), route, status, elapsed)
	}
}

func recovery(log logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("panic recovered", map[string]interface{}{
			"panic":     recovered,
			"path":      c.Request.URL.Path,
			"requestId": c.GetString(requestIDKey),
		})
		respondError(c, log, errors.NewInternalError(nil))
	})
}

// requireAffiliate resolves the caller from the session cookie, falling back
// to an Authorization bearer token.
func requireAffiliate(auth Authenticator, cookieName string, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var (
			affiliate *models.Affiliate
			err       error
		)
		if sessionID, cookieErr := c.Cookie(cookieName); cookieErr == nil && sessionID != "" {
			affiliate, err = auth.Authenticate(ctx, sessionID)
		} else if token, ok := bearerToken(c.GetHeader("Authorization")); ok {
			affiliate, err = auth.AuthenticateBearer(ctx, token)
		} else {
			err = errors.NewUnauthenticatedError("no session")
		}

		if err != nil {
			respondError(c, log, err)
			return
		}

		c.Set(affiliateKey, affiliate)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

func currentAffiliate(c *gin.Context) *models.Affiliate {
	v, _ := c.Get(affiliateKey)
	a, _ := v.(*models.Affiliate)
	return a
}

// rateLimit limits by client IP. name keeps the counters of different
// endpoints apart when they share a store.
func (s *Server) rateLimit(name, formatted string, store limiter.Store) (gin.HandlerFunc, error) {
	if !s.cfg.RateLimit.Enabled {
		return func(c *gin.Context) { c.Next() }, nil
	}

	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("ratelimit.%s: %w", name, err)
	}

	return mgin.NewMiddleware(
		limiter.New(store, rate),
		mgin.WithKeyGetter(func(c *gin.Context) string {
			return name + ":" + c.ClientIP()
		}),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			respondError(c, s.logger, errors.NewRateLimitedError(name))
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			// fail open
			s.logger.Warn("rate limiter unavailable", map[string]interface{}{"limiter": name, "error": err})
			c.Next()
		}),
	), nil
}
