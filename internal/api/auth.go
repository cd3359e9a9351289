package api

import (
	"net/http"

	"affiliate-portal/internal/common/errors"
	"affiliate-portal/internal/identity"

	"github.com/gin-gonic/gin"
)

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) login(c *gin.Context) {
	var body loginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, s.logger, errors.NewValidationError("Моля попълни всички задължителни полета", err.Error()))
		return
	}

	result, err := s.auth.Login(c.Request.Context(), identity.LoginRequest{
		Email:     body.Email,
		Password:  body.Password,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		respondError(c, s.logger, err)
		return
	}

	s.setSessionCookie(c, result.Session.ID, s.cfg.Auth.Session.TTL)
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"affiliate": toAffiliateDTO(result.Affiliate),
	})
}

// logout always clears the cookie; a failure to end the server-side session
// is logged only.
func (s *Server) logout(c *gin.Context) {
	name := s.cfg.Auth.Session.CookieName
	if sessionID, err := c.Cookie(name); err == nil && sessionID != "" {
		if err := s.auth.Logout(c.Request.Context(), sessionID); err != nil {
			s.logger.Warn("logout failed", map[string]interface{}{"error": err, "requestId": c.GetString(requestIDKey)})
		}
	}

	s.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) setSessionCookie(c *gin.Context, value string, maxAge int) {
	cfg := s.cfg.Auth.Session
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.CookieName, value, maxAge, "/", cfg.Domain, cfg.Secure, true)
}
