package controllers

import (
	"errors"
	"net/http"
	"strings"

	"oposiciones/queries"

	"github.com/gin-gonic/gin"
)

type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// POST /api/login
func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		RespondError(c, "email and password are required", http.StatusBadRequest)
		return
	}

	db, ok := database(c)
	if !ok {
		return
	}

	user, err := queries.Authenticate(db, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, queries.ErrForbidden) {
			RespondError(c, "user blocked", http.StatusForbidden)
			return
		}
		RespondQueryError(c, err)
		return
	}

	session, err := queries.NewSession(db, queries.SecurityFromConfig(env.Conf), user, c.Request.UserAgent(), now())
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, session)
}
