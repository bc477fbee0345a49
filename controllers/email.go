package controllers

import (
	"io"
	"net/http"

	"oposiciones/logger"
	"oposiciones/queries"
	"oposiciones/schemas"
	"oposiciones/tools"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

// ResendWebhook records delivery events. The body is verified with the
// svix-* headers before it is parsed; in dev mode an empty secret skips the check.
//
// POST /api/webhooks/resend
func ResendWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		RespondError(c, "could not read body", http.StatusBadRequest)
		return
	}

	secret := env.Conf.Email.WebhookSecret
	switch {
	case secret != "":
		if err := tools.VerifyWebhookSignature(secret, c.Request.Header, body); err != nil {
			logger.L().Warn("rejected resend webhook", zap.Error(err))
			RespondError(c, "invalid signature", http.StatusUnauthorized)
			return
		}
	case !env.Conf.DevMode:
		RespondError(c, "webhook secret not configured", http.StatusServiceUnavailable)
		return
	}

	recorded, err := queries.HandleResendWebhook(Env(c), body)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"recorded": recorded})
}

// GET /api/email/unsubscribe?token=
func Unsubscribe(c *gin.Context) {
	pref, err := queries.Unsubscribe(Env(c), c.Query("token"))
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"message": "Tus preferencias de correo se han actualizado.", "preferences": pref})
}

// GET /api/email/preferences
func GetEmailPreferences(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}
	db, ok := database(c)
	if !ok {
		return
	}
	pref, err := queries.GetEmailPreference(db, user.ID)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"preferences": pref})
}

// PUT /api/email/preferences
func UpdateEmailPreferences(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}
	var in schemas.EmailPreferencesUpdate
	if !BindJSON(c, &in) {
		return
	}
	db, ok := database(c)
	if !ok {
		return
	}
	pref, err := queries.UpdateEmailPreference(db, user.ID, in)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"preferences": pref})
}

// GET /api/admin/email-events
func AdminEmailEvents(c *gin.Context) {
	var q schemas.EmailEventsQuery
	if !BindQuery(c, &q) {
		return
	}
	db, ok := database(c)
	if !ok {
		return
	}
	page, err := queries.AdminEmailEvents(db, q)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, page)
}

// GET /api/admin/email-events/summary
func AdminEmailSummary(c *gin.Context) {
	var q schemas.DateRangeQuery
	if !BindQuery(c, &q) {
		return
	}
	db, ok := database(c)
	if !ok {
		return
	}
	summary, err := queries.EmailEventsSummary(db, q, now())
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, summary)
}
