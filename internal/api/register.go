package api

import (
	"net/http"

	"affiliate-portal/internal/common/errors"
	"affiliate-portal/internal/registration"

	"github.com/gin-gonic/gin"
)

func (s *Server) register(c *gin.Context) {
	var req registration.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, s.logger, errors.NewValidationError(registration.MsgRequiredFields, err.Error()))
		return
	}

	app, err := s.registration.Submit(c.Request.Context(), req)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":     true,
		"application": app,
		"message":     registration.MsgSubmitted,
	})
}
