package controllers

import (
	"errors"
	"net/http"

	"oposiciones/logger"
	"oposiciones/queries"
	"oposiciones/schemas"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

func RespondError(c *gin.Context, msg string, code int) {
	c.JSON(code, gin.H{"error": msg})
}

func RespondSuccess(c *gin.Context, payload any) {
	c.JSON(200, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

func RespondValidation(c *gin.Context, verr *schemas.ValidationError) {
	c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "details": verr.Fields})
}

// postgres unique_violation, for races the queries layer did not pre-check
const uniqueViolation = pq.ErrorCode("23505")

// RespondQueryError maps the errors returned by the queries package to a status code.
// Unknown errors are logged and answered with a generic 500.
func RespondQueryError(c *gin.Context, err error) {
	var verr *schemas.ValidationError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &verr):
		RespondValidation(c, verr)
	case errors.Is(err, queries.ErrValidation):
		RespondError(c, err.Error(), http.StatusBadRequest)
	case errors.Is(err, queries.ErrUnauthorized):
		RespondError(c, "invalid credentials", http.StatusUnauthorized)
	case errors.Is(err, queries.ErrLimitReached):
		RespondError(c, "plan limit reached", http.StatusPaymentRequired)
	case errors.Is(err, queries.ErrForbidden):
		RespondError(c, "forbidden", http.StatusForbidden)
	case errors.Is(err, queries.ErrNotFound):
		RespondError(c, err.Error(), http.StatusNotFound)
	case errors.Is(err, queries.ErrConflict), errors.Is(err, queries.ErrInvalidTransition):
		RespondError(c, err.Error(), http.StatusConflict)
	case errors.As(err, &pqErr) && pqErr.Code == uniqueViolation:
		RespondError(c, "already exists", http.StatusConflict)
	case errors.Is(err, queries.ErrUpstream):
		logger.L().Warn("upstream failure", zap.String("route", c.FullPath()), zap.Error(err))
		RespondError(c, "upstream provider unavailable", http.StatusBadGateway)
	default:
		logger.L().Error("request failed", zap.String("route", c.FullPath()), zap.Error(err))
		RespondError(c, "internal error", http.StatusInternalServerError)
	}
}
