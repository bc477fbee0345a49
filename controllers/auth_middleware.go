package controllers

import (
	"net/http"
	"strings"
	"time"

	"oposiciones/logger"
	"oposiciones/models"
	"oposiciones/queries"
	"oposiciones/tools"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const ctxUserKey = "auth_user"

func now() time.Time {
	if env.Now != nil {
		return env.Now().UTC()
	}
	return time.Now().UTC()
}

func bearerToken(c *gin.Context) (string, bool) {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(h[len("Bearer "):])
	return token, token != ""
}

// loadUser resolves the Bearer token into a user and touches its activity.
func loadUser(c *gin.Context, token string) (models.User, bool) {
	claims, err := tools.ParseAccessToken(env.Conf.Security.JwtSecret, token, now())
	if err != nil {
		return models.User{}, false
	}
	db, ok := database(c)
	if !ok {
		return models.User{}, false
	}
	user, err := queries.GetUser(db, claims.UserID())
	if err != nil {
		return models.User{}, false
	}
	if err := queries.TouchLastActive(db, user, now()); err != nil {
		logger.L().Warn("touch last active", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	return user, true
}

// AuthRequired validates the Bearer token and loads the user from DB into context.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			RespondError(c, "missing bearer token", http.StatusUnauthorized)
			c.Abort()
			return
		}
		user, ok := loadUser(c, token)
		if c.IsAborted() || c.Writer.Written() {
			c.Abort()
			return
		}
		if !ok {
			RespondError(c, "invalid or expired token", http.StatusUnauthorized)
			c.Abort()
			return
		}
		c.Set(ctxUserKey, user)
		c.Next()
	}
}

// OptionalAuth loads the user when a valid token is present. Invalid tokens are
// treated as anonymous requests.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if user, ok := loadUser(c, token); ok {
				c.Set(ctxUserKey, user)
			}
		}
		if c.Writer.Written() {
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserLogged returns the user loaded by AuthRequired.
func GetUserLogged(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}
