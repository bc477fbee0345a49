package controllers

import (
	"errors"
	"net/http"

	"oposiciones/queries"

	"github.com/gin-gonic/gin"
)

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

// Refresh exchanges a valid refresh token for a new access/refresh pair.
// Only token hashes are stored, and every active session of the user is revoked on use.
//
// POST /api/refresh
func Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	db, ok := database(c)
	if !ok {
		return
	}

	session, err := queries.RotateRefreshToken(db, queries.SecurityFromConfig(env.Conf), req.RefreshToken, c.Request.UserAgent(), now())
	if err != nil {
		if errors.Is(err, queries.ErrUnauthorized) {
			RespondError(c, "invalid or expired refresh token", http.StatusUnauthorized)
			return
		}
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, session)
}
