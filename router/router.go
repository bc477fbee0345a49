package router

import (
	"context"
	"net/http"
	"time"

	"oposiciones/config"
	"oposiciones/controllers"
	dbpkg "oposiciones/db"
	"oposiciones/logger"
	"oposiciones/metrics"
	"oposiciones/middleware"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
	"go.uber.org/zap"
)

// Initialize wires all routes and middlewares: public routes, authenticated
// routes (token + not blocked) and admin routes.
func Initialize(r *gin.Engine, cfg config.Configuration, database *gorm.DB) {
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(Logger())
	r.Use(Metrics())
	r.Use(middleware.CORSMiddleware())
	r.Use(dbpkg.SetDBtoContext(database))

	r.GET("/health", Health(database))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")

	// Public (no auth)
	api.POST("/users", controllers.CreateUser)
	api.POST("/login", controllers.Login)
	api.POST("/refresh", controllers.Refresh)
	api.GET("/plans", controllers.GetPlans)
	api.GET("/plans/:id", controllers.GetPlanByID)

	api.GET("/oposiciones", controllers.GetOposiciones)
	api.GET("/oposiciones/:slug", controllers.GetOposicion)
	api.GET("/oposiciones/:slug/temas", controllers.GetOposicionTemas)
	api.GET("/temas/resolve", controllers.ResolveTemas)
	api.GET("/laws", controllers.GetLaws)
	api.GET("/laws/:slug", controllers.GetLaw)
	api.GET("/laws/:slug/articles/:number", controllers.GetArticle)

	api.GET("/questions/:id", controllers.GetQuestion)
	api.POST("/questions/:id/check", controllers.CheckAnswer)
	api.GET("/tests/shared/:code", controllers.GetSharedTest)

	api.POST("/webhooks/resend", controllers.ResendWebhook)
	api.GET("/email/unsubscribe", controllers.Unsubscribe)

	// Optional auth: the user is loaded when a token is sent
	optional := api.Group("")
	optional.Use(controllers.OptionalAuth())
	optional.GET("/questions/filtered", controllers.FilteredQuestions)
	optional.POST("/feedback", controllers.CreateFeedback)

	// Validated routes (token + user not blocked)
	validated := api.Group("")
	validated.Use(controllers.AuthRequired())
	validated.Use(Authorizer())

	validated.GET("/me", controllers.Me)
	validated.PUT("/user", controllers.UpdateCurrentUser)

	validated.POST("/tests/random", controllers.GenerateTest)
	validated.GET("/tests/recover", controllers.RecoverTest)
	validated.GET("/tests", controllers.ListTests)
	validated.GET("/tests/:id", controllers.GetTest)
	validated.POST("/tests/:id/answers", controllers.AnswerTestQuestion)
	validated.POST("/tests/:id/complete", controllers.CompleteTest)

	validated.GET("/stats/me", controllers.MyStats)

	validated.POST("/disputes", controllers.CreateDispute)
	validated.GET("/disputes", controllers.MyDisputes)

	validated.POST("/ai/chat", controllers.AIChat)
	validated.POST("/ai/chat-logs/:id/feedback", controllers.AIChatFeedback)

	validated.GET("/email/preferences", controllers.GetEmailPreferences)
	validated.PUT("/email/preferences", controllers.UpdateEmailPreferences)

	// Admin routes
	admin := validated.Group("/admin")
	admin.Use(Adminizer())

	admin.GET("/dashboard", controllers.AdminDashboard)

	admin.GET("/plans", controllers.AdminGetPlans)
	admin.POST("/plans", controllers.CreatePlan)
	admin.PUT("/plans/:id", controllers.UpdatePlan)
	admin.DELETE("/plans/:id", controllers.DeletePlan)
	admin.POST("/users/:id/plan", controllers.AssignUserPlan)

	admin.GET("/oposiciones", controllers.AdminGetOposiciones)
	admin.POST("/oposiciones", controllers.CreateOposicion)
	admin.PUT("/oposiciones/:id", controllers.UpdateOposicion)
	admin.POST("/laws", controllers.CreateLaw)
	admin.PUT("/laws/:id", controllers.UpdateLaw)
	admin.POST("/laws/:id/sync", controllers.SyncLaw)
	admin.POST("/laws/:id/verify", controllers.VerifyLaw)
	admin.POST("/topics", controllers.CreateTopic)
	admin.PUT("/topics/:id", controllers.UpdateTopic)
	admin.PUT("/topics/:id/scopes", controllers.ReplaceTopicScopes)

	admin.GET("/questions", controllers.AdminListQuestions)
	admin.POST("/questions", controllers.CreateQuestion)
	admin.PUT("/questions/:id", controllers.UpdateQuestion)
	admin.DELETE("/questions/:id", controllers.DeleteQuestion)

	admin.GET("/disputes", controllers.AdminListDisputes)
	admin.PUT("/disputes/:id", controllers.UpdateDispute)
	admin.GET("/feedback", controllers.AdminListFeedback)
	admin.PUT("/feedback/:id", controllers.AdminUpdateFeedback)
	admin.GET("/ai-chat-logs", controllers.AdminAIChatLogs)
	admin.GET("/email-events", controllers.AdminEmailEvents)
	admin.GET("/email-events/summary", controllers.AdminEmailSummary)
	admin.GET("/verifications", controllers.AdminListVerifications)
	admin.GET("/article-changes", controllers.AdminArticleChanges)

	logger.L().Info("routes initialized", zap.Int("routes", len(r.Routes())), zap.String("port", cfg.ApiPort))
}

// Health pings the database.
func Health(database *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if database == nil || database.DB() == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "no database"})
			return
		}
		if err := database.DB().PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	}
}
