package api

import (
	stderrors "errors"
	"net/http"

	"affiliate-portal/internal/common/errors"
	"affiliate-portal/internal/common/logger"
	"affiliate-portal/internal/search"
	"affiliate-portal/internal/store"

	"github.com/gin-gonic/gin"
)

// respondError renders err as {success:false, error}. Only the public message
// leaves the process; details are logged.
func respondError(c *gin.Context, log logger.Logger, err error) {
	stdErr := errors.From(err)
	status := errors.HTTPStatus(stdErr.Code)

	fields := map[string]interface{}{
		"code":      stdErr.Code,
		"details":   stdErr.Details,
		"path":      c.Request.URL.Path,
		"requestId": c.GetString(requestIDKey),
	}
	if status >= http.StatusInternalServerError {
		log.Error("request error", fields)
	} else {
		log.Debug("request rejected", fields)
	}

	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   stdErr.Message,
	})
}

// storeError converts a data-access failure into a StandardError.
func storeError(op string, err error) error {
	switch {
	case stderrors.Is(err, store.ErrTimeout):
		return errors.NewQueryTimeoutError(op, err)
	case stderrors.Is(err, store.ErrNotFound):
		return errors.NewResourceNotFoundError(op, err.Error())
	default:
		return errors.NewQueryExecutionFailedError(op, err)
	}
}

func searchError(index string, err error) error {
	switch {
	case stderrors.Is(err, search.ErrEmptyQuery):
		return errors.NewValidationError("Моля въведи текст за търсене", "empty query")
	case stderrors.Is(err, search.ErrIndexNotFound):
		return errors.NewIndexNotFoundError(index)
	default:
		return errors.NewSearchQueryFailedError(index, err)
	}
}
