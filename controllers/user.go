package controllers

import (
	"net/http"

	"oposiciones/models"
	"oposiciones/queries"

	"github.com/gin-gonic/gin"
)

type CreateUserRequest struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// POST /api/users
func CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	db, ok := database(c)
	if !ok {
		return
	}

	// admin and status are never taken from the request
	user, err := queries.CreateUser(db, models.User{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondCreated(c, user)
}
