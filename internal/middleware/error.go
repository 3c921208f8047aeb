package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "splitledger/internal/errors"
	"splitledger/internal/logger"
)

// StatusForKind maps a failure family to its HTTP status. AppErrors that
// carry their own StatusCode (401 for missing credentials) keep it.
func StatusForKind(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindConflict:
		return http.StatusConflict
	case apperrors.KindAuthorization:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as {"error":{"code","message"}}. Persistence failures
// are always logged; other kinds only when they wrap an internal cause.
// Anything that is not an AppError becomes a generic internal error so
// storage details never reach the client.
func WriteError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		logger.Get().Errorw("unexpected error",
			"error", err.Error(),
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
			"request_id", c.GetString(requestIDKey),
		)
		appErr = apperrors.ErrInternalServer
	} else if appErr.Kind == apperrors.KindPersistence || appErr.Internal != nil {
		fields := []any{
			"code", appErr.Code,
			"kind", appErr.Kind,
			"path", c.Request.URL.Path,
			"request_id", c.GetString(requestIDKey),
		}
		if appErr.Internal != nil {
			fields = append(fields, "internal", appErr.Internal.Error())
		}
		if appErr.Kind == apperrors.KindPersistence {
			logger.Get().Errorw("app error", fields...)
		} else {
			logger.Get().Warnw("app error", fields...)
		}
	}

	status := appErr.StatusCode
	if status == 0 {
		status = StatusForKind(appErr.Kind)
	}
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
		},
	})
}

// ErrorHandler returns a Gin middleware that converts errors set on the Gin
// context into consistent JSON error responses through WriteError.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		// Process the last error (most relevant in a middleware chain)
		WriteError(c, c.Errors.Last().Err)
	}
}
