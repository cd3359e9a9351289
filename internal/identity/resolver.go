// Package identity maps an authenticated email to an active affiliate.
package identity

import (
	"context"
	stderrors "errors"
	"strings"

	"affiliate-portal/internal/common/errors"
	"affiliate-portal/internal/common/logger"
	"affiliate-portal/internal/common/metrics"
	"affiliate-portal/internal/models"
	"affiliate-portal/internal/store"
)

// AffiliateStore is the slice of the data layer identity needs.
type AffiliateStore interface {
	GetActiveAffiliateByEmail(ctx context.Context, email string) (*models.Affiliate, error)
	TouchLastLogin(ctx context.Context, affiliateID string) error
}

// Resolver looks up the active affiliate for an authenticated principal.
type Resolver struct {
	store  AffiliateStore
	logger logger.Logger
}

func NewResolver(s AffiliateStore, log logger.Logger) *Resolver {
	return &Resolver{
		store:  s,
		logger: log.WithFields(map[string]interface{}{"component": "identity"}),
	}
}

// Resolve returns the active affiliate for email. Paused and suspended
// affiliates are reported as not found. It has no side effects.
func (r *Resolver) Resolve(ctx context.Context, email string) (*models.Affiliate, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		metrics.IdentityResolutions.WithLabelValues("unauthenticated").Inc()
		return nil, errors.NewUnauthenticatedError("no principal")
	}

	affiliate, err := r.store.GetActiveAffiliateByEmail(ctx, email)
	switch {
	case err == nil:
		metrics.IdentityResolutions.WithLabelValues("resolved").Inc()
		return affiliate, nil
	case stderrors.Is(err, store.ErrNotFound):
		metrics.IdentityResolutions.WithLabelValues("not_found").Inc()
		return nil, errors.NewAffiliateNotFoundError(email)
	case stderrors.Is(err, store.ErrTimeout):
		metrics.IdentityResolutions.WithLabelValues("error").Inc()
		r.logger.Error("affiliate lookup timed out", map[string]interface{}{"error": err})
		return nil, errors.NewQueryTimeoutError("affiliate_by_email", err)
	default:
		metrics.IdentityResolutions.WithLabelValues("error").Inc()
		r.logger.Error("affiliate lookup failed", map[string]interface{}{"error": err})
		return nil, errors.NewQueryExecutionFailedError("affiliate_by_email", err)
	}
}
