package identity

import (
	"context"
	stderrors "errors"
	"strings"

	"affiliate-portal/internal/common/auth"
	"affiliate-portal/internal/common/errors"
	"affiliate-portal/internal/common/logger"
	"affiliate-portal/internal/common/metrics"
	"affiliate-portal/internal/models"
	"affiliate-portal/internal/session"
)

// IdentityProvider is the hosted identity service (Keycloak).
type IdentityProvider interface {
	Login(ctx context.Context, username, password string) (*auth.TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	ValidateToken(ctx context.Context, token string) (*auth.TokenInfo, error)
}

// SessionStore holds server-side sessions.
type SessionStore interface {
	Create(ctx context.Context, affiliate *models.Affiliate, refreshToken, userAgent, ip string) (*models.Session, error)
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}

type LoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	UserAgent string `json:"-"`
	IPAddress string `json:"-"`
}

type LoginResult struct {
	Session   *models.Session
	Affiliate *models.Affiliate
}

// Authenticator signs affiliates in and out and authenticates requests.
type Authenticator struct {
	idp      IdentityProvider
	sessions SessionStore
	resolver *Resolver
	store    AffiliateStore
	logger   logger.Logger
}

func NewAuthenticator(idp IdentityProvider, sessions SessionStore, resolver *Resolver, s AffiliateStore, log logger.Logger) *Authenticator {
	return &Authenticator{
		idp:      idp,
		sessions: sessions,
		resolver: resolver,
		store:    s,
		logger:   log.WithFields(map[string]interface{}{"component": "authenticator"}),
	}
}

// Login checks credentials with the identity provider and opens a session.
// A valid identity without an active affiliate is signed out again immediately.
func (a *Authenticator) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		metrics.Logins.WithLabelValues("invalid").Inc()
		return nil, errors.NewValidationError("Моля попълни всички задължителни полета", "email and password are required")
	}

	tokens, err := a.idp.Login(ctx, email, req.Password)
	if err != nil {
		metrics.Logins.WithLabelValues("rejected").Inc()
		a.logger.Warn("identity provider rejected login", map[string]interface{}{"email": email, "error": err})
		return nil, err
	}

	affiliate, err := a.resolver.Resolve(ctx, email)
	if err != nil {
		a.revoke(ctx, tokens.RefreshToken)
		if errors.HasCode(err, errors.ErrCodeAffiliateNotFound) {
			metrics.Logins.WithLabelValues("not_approved").Inc()
			return nil, errors.NewAccountNotApprovedError(email)
		}
		metrics.Logins.WithLabelValues("error").Inc()
		return nil, err
	}

	if err := a.store.TouchLastLogin(ctx, affiliate.ID); err != nil {
		a.logger.Warn("failed to record last login", map[string]interface{}{"affiliateId": affiliate.ID, "error": err})
	}

	sess, err := a.sessions.Create(ctx, affiliate, tokens.RefreshToken, req.UserAgent, req.IPAddress)
	if err != nil {
		a.revoke(ctx, tokens.RefreshToken)
		metrics.Logins.WithLabelValues("error").Inc()
		a.logger.Error("failed to create session", map[string]interface{}{"affiliateId": affiliate.ID, "error": err})
		return nil, errors.NewInternalError(err)
	}

	metrics.Logins.WithLabelValues("success").Inc()
	a.logger.Info("affiliate signed in", map[string]interface{}{"affiliateId": affiliate.ID})
	return &LoginResult{Session: sess, Affiliate: affiliate}, nil
}

// Logout ends the session and revokes its refresh token. Unknown sessions are ignored.
func (a *Authenticator) Logout(ctx context.Context, sessionID string) error {
	sess, err := a.sessions.Get(ctx, sessionID)
	if stderrors.Is(err, session.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return errors.NewInternalError(err)
	}

	if err := a.sessions.Delete(ctx, sessionID); err != nil {
		return errors.NewInternalError(err)
	}
	a.revoke(ctx, sess.RefreshToken)
	return nil
}

// Authenticate resolves the affiliate behind a session cookie. The affiliate's
// status is re-checked on every call.
func (a *Authenticator) Authenticate(ctx context.Context, sessionID string) (*models.Affiliate, error) {
	sess, err := a.sessions.Get(ctx, sessionID)
	if stderrors.Is(err, session.ErrSessionNotFound) {
		return nil, errors.NewUnauthenticatedError("session not found or expired")
	}
	if err != nil {
		a.logger.Error("session lookup failed", map[string]interface{}{"error": err})
		return nil, errors.NewInternalError(err)
	}

	affiliate, err := a.resolver.Resolve(ctx, sess.Email)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeAffiliateNotFound) {
			if delErr := a.sessions.Delete(ctx, sessionID); delErr != nil {
				a.logger.Warn("failed to drop session of inactive affiliate", map[string]interface{}{"error": delErr})
			}
		}
		return nil, err
	}
	return affiliate, nil
}

// AuthenticateBearer introspects an access token and resolves its principal.
func (a *Authenticator) AuthenticateBearer(ctx context.Context, token string) (*models.Affiliate, error) {
	if token == "" {
		return nil, errors.NewUnauthenticatedError("empty bearer token")
	}

	info, err := a.idp.ValidateToken(ctx, token)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeUpstream) {
			return nil, err
		}
		return nil, errors.NewUnauthenticatedError("invalid bearer token")
	}
	return a.resolver.Resolve(ctx, info.Principal())
}

func (a *Authenticator) revoke(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}
	if err := a.idp.Logout(ctx, refreshToken); err != nil {
		a.logger.Warn("failed to revoke refresh token", map[string]interface{}{"error": err})
	}
}
