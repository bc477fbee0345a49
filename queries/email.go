package queries

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"oposiciones/metrics"
	"oposiciones/models"
	"oposiciones/schemas"
	"oposiciones/tools"

	"github.com/jinzhu/gorm"
	"go.uber.org/zap"
)

const unsubscribeTTL = 90 * 24 * time.Hour

// ReminderAfter is how long a user must be inactive before getting a reminder,
// and the minimum gap between two reminders.
const ReminderAfter = 7 * 24 * time.Hour

const scopeAll = "all"

func GetEmailPreference(db *gorm.DB, userID int64) (models.EmailPreference, error) {
	var pref models.EmailPreference
	err := db.Where("user_id = ?", userID).First(&pref).Error
	if gorm.IsRecordNotFoundError(err) {
		return models.DefaultEmailPreference(userID), nil
	}
	if err != nil {
		return models.EmailPreference{}, err
	}
	return pref, nil
}

// savePreference upserts. Booleans go through a map because gorm
// replaces false with the column default on insert.
func savePreference(db *gorm.DB, pref models.EmailPreference) (models.EmailPreference, error) {
	if pref.ID == 0 {
		row := models.DefaultEmailPreference(pref.UserID)
		if err := db.Create(&row).Error; err != nil {
			return models.EmailPreference{}, err
		}
		pref.ID = row.ID
		pref.CreatedAt = row.CreatedAt
	}
	err := db.Model(&models.EmailPreference{}).Where("id = ?", pref.ID).Updates(map[string]any{
		"unsubscribed_all": pref.UnsubscribedAll,
		"reminders":        pref.Reminders,
		"dispute_updates":  pref.DisputeUpdates,
	}).Error
	if err != nil {
		return models.EmailPreference{}, err
	}
	return GetEmailPreference(db, pref.UserID)
}

func UpdateEmailPreference(db *gorm.DB, userID int64, in schemas.EmailPreferencesUpdate) (models.EmailPreference, error) {
	pref, err := GetEmailPreference(db, userID)
	if err != nil {
		return models.EmailPreference{}, err
	}
	if in.UnsubscribedAll != nil {
		pref.UnsubscribedAll = *in.UnsubscribedAll
	}
	if in.Reminders != nil {
		pref.Reminders = *in.Reminders
	}
	if in.DisputeUpdates != nil {
		pref.DisputeUpdates = *in.DisputeUpdates
	}
	return savePreference(db, pref)
}

// Unsubscribe applies the opt-out carried by a signed unsubscribe token.
func Unsubscribe(env Env, token string) (models.EmailPreference, error) {
	claims, err := tools.ParseUnsubscribeToken(env.Conf.Security.JwtSecret, token, env.now())
	if err != nil {
		return models.EmailPreference{}, validationf("invalid or expired unsubscribe link")
	}
	pref, err := GetEmailPreference(env.DB, claims.UserID())
	if err != nil {
		return models.EmailPreference{}, err
	}
	switch claims.Scope {
	case models.EMAIL_TYPE_REMINDER:
		pref.Reminders = false
	case models.EMAIL_TYPE_DISPUTE_UPDATE:
		pref.DisputeUpdates = false
	default:
		pref.UnsubscribedAll = true
	}
	return savePreference(env.DB, pref)
}

// unsubscribeScope is the narrowest opt-out a link in an email of this type offers.
func unsubscribeScope(emailType string) string {
	switch emailType {
	case models.EMAIL_TYPE_REMINDER, models.EMAIL_TYPE_DISPUTE_UPDATE:
		return emailType
	}
	return scopeAll
}

func recordEmailEvent(db *gorm.DB, ev models.EmailEvent) error {
	return db.Create(&ev).Error
}

// SendUserEmail sends a plain-text email if the user's preferences allow it.
// It reports whether the email was handed to the provider.
func SendUserEmail(ctx context.Context, env Env, user models.User, emailType, subject, body string) (bool, error) {
	pref, err := GetEmailPreference(env.DB, user.ID)
	if err != nil {
		return false, err
	}
	if !pref.Allows(emailType) {
		metrics.EmailsSent.WithLabelValues(emailType, "skipped").Inc()
		return false, nil
	}

	now := env.now()
	token, err := tools.SignUnsubscribeToken(env.Conf.Security.JwtSecret, user.ID, unsubscribeScope(emailType), unsubscribeTTL, now)
	if err != nil {
		return false, err
	}
	link := strings.TrimRight(env.Conf.PublicURL, "/") + "/api/email/unsubscribe?token=" + url.QueryEscape(token)

	msg := tools.EmailMessage{
		To:          user.Email,
		Subject:     subject,
		Text:        body + "\n\n--\nPara dejar de recibir estos correos: " + link + "\n",
		Unsubscribe: link,
		Tags:        map[string]string{"type": emailType},
	}
	providerID, sendErr := env.mailer().Send(ctx, msg)

	ev := models.EmailEvent{
		UserID:       user.ID,
		EmailType:    emailType,
		EventType:    models.EMAIL_EVENT_SENT,
		ProviderID:   providerID,
		EmailAddress: user.Email,
		CreatedAt:    &now,
	}
	if sendErr != nil {
		ev.EventType = models.EMAIL_EVENT_FAILED
		ev.Detail = sendErr.Error()
	}
	if err := recordEmailEvent(env.DB, ev); err != nil {
		env.log().Error("record email event", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	metrics.EmailsSent.WithLabelValues(emailType, ev.EventType).Inc()

	if sendErr != nil {
		return false, fmt.Errorf("%w: %v", ErrUpstream, sendErr)
	}
	return true, nil
}

// resendEventTypes maps Resend webhook types to our event types.
var resendEventTypes = map[string]string{
	"email.delivered":  models.EMAIL_EVENT_DELIVERED,
	"email.opened":     models.EMAIL_EVENT_OPENED,
	"email.clicked":    models.EMAIL_EVENT_CLICKED,
	"email.bounced":    models.EMAIL_EVENT_BOUNCED,
	"email.complained": models.EMAIL_EVENT_COMPLAINED,
}

type resendWebhook struct {
	Type string `json:"type"`
	Data struct {
		EmailID string   `json:"email_id"`
		To      []string `json:"to"`
	} `json:"data"`
}

// HandleResendWebhook records a delivery event. Unknown event types and
// repeated deliveries are accepted and ignored.
func HandleResendWebhook(env Env, body []byte) (recorded bool, err error) {
	var hook resendWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return false, validationf("invalid webhook payload")
	}
	eventType, ok := resendEventTypes[hook.Type]
	if !ok || hook.Data.EmailID == "" {
		return false, nil
	}

	var dup int64
	if err := env.DB.Model(&models.EmailEvent{}).
		Where("provider_id = ? AND event_type = ?", hook.Data.EmailID, eventType).
		Count(&dup).Error; err != nil {
		return false, err
	}
	if dup > 0 {
		return false, nil
	}

	now := env.now()
	ev := models.EmailEvent{EventType: eventType, ProviderID: hook.Data.EmailID, CreatedAt: &now}
	if len(hook.Data.To) > 0 {
		ev.EmailAddress = strings.ToLower(hook.Data.To[0])
	}

	var sent models.EmailEvent
	err = env.DB.Where("provider_id = ? AND event_type = ?", hook.Data.EmailID, models.EMAIL_EVENT_SENT).First(&sent).Error
	switch {
	case err == nil:
		ev.UserID = sent.UserID
		ev.EmailType = sent.EmailType
		if ev.EmailAddress == "" {
			ev.EmailAddress = sent.EmailAddress
		}
	case gorm.IsRecordNotFoundError(err):
		ev.EmailType = "unknown"
		if ev.EmailAddress != "" {
			var user models.User
			if err := env.DB.Select("id").Where("email = ?", ev.EmailAddress).First(&user).Error; err == nil {
				ev.UserID = user.ID
			}
		}
	default:
		return false, err
	}

	err = env.DB.Transaction(func(tx *gorm.DB) error {
		if err := recordEmailEvent(tx, ev); err != nil {
			return err
		}
		if ev.UserID == 0 || (eventType != models.EMAIL_EVENT_BOUNCED && eventType != models.EMAIL_EVENT_COMPLAINED) {
			return nil
		}
		pref, err := GetEmailPreference(tx, ev.UserID)
		if err != nil {
			return err
		}
		pref.UnsubscribedAll = true
		_, err = savePreference(tx, pref)
		return err
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func AdminEmailEvents(db *gorm.DB, in schemas.EmailEventsQuery) (Page[models.EmailEvent], error) {
	q := db.Model(&models.EmailEvent{})
	if in.Type != "" {
		q = q.Where("email_type = ?", in.Type)
	}
	if in.Event != "" {
		q = q.Where("event_type = ?", in.Event)
	}
	return paginate[models.EmailEvent](q, in.Pagination, "created_at desc, id desc")
}

type EmailSummary struct {
	From   string           `json:"from"`
	To     string           `json:"to"`
	Counts map[string]int64 `json:"counts"`
}

// EmailEventsSummary counts events by type between two days (both inclusive).
// Defaults to the last 30 days.
func EmailEventsSummary(db *gorm.DB, in schemas.DateRangeQuery, now time.Time) (EmailSummary, error) {
	to := startOfDay(now)
	from := to.AddDate(0, 0, -29)
	if in.To != "" {
		t, err := time.Parse("2006-01-02", in.To)
		if err != nil {
			return EmailSummary{}, validationf("invalid to")
		}
		to = t
	}
	if in.From != "" {
		f, err := time.Parse("2006-01-02", in.From)
		if err != nil {
			return EmailSummary{}, validationf("invalid from")
		}
		from = f
	}
	if to.Before(from) {
		return EmailSummary{}, validationf("to must not be before from")
	}

	type row struct {
		EventType string
		Total     int64
	}
	var rows []row
	if err := db.Model(&models.EmailEvent{}).
		Select("event_type, count(*) as total").
		Where("created_at >= ? AND created_at < ?", from, to.AddDate(0, 0, 1)).
		Group("event_type").
		Scan(&rows).Error; err != nil {
		return EmailSummary{}, err
	}

	out := EmailSummary{From: from.Format("2006-01-02"), To: to.Format("2006-01-02"), Counts: map[string]int64{}}
	for _, e := range []string{
		models.EMAIL_EVENT_SENT, models.EMAIL_EVENT_FAILED, models.EMAIL_EVENT_DELIVERED,
		models.EMAIL_EVENT_OPENED, models.EMAIL_EVENT_CLICKED, models.EMAIL_EVENT_BOUNCED,
		models.EMAIL_EVENT_COMPLAINED,
	} {
		out.Counts[e] = 0
	}
	for _, r := range rows {
		out.Counts[r.EventType] = r.Total
	}
	return out, nil
}

// ReminderCandidates are available users inactive for ReminderAfter and without a recent reminder.
func ReminderCandidates(db *gorm.DB, now time.Time) ([]models.User, error) {
	cutoff := now.Add(-ReminderAfter)
	recent := db.Table("email_events").
		Select("user_id").
		Where("email_type = ? AND event_type = ? AND created_at >= ?", models.EMAIL_TYPE_REMINDER, models.EMAIL_EVENT_SENT, cutoff).
		SubQuery()
	optedOut := db.Table("email_preferences").
		Select("user_id").
		Where("unsubscribed_all = ? OR reminders = ?", true, false).
		SubQuery()

	var users []models.User
	err := db.Where("status = ?", models.USER_STATUS_AVAILABLE).
		Where("(last_active_at IS NULL AND created_at <= ?) OR last_active_at <= ?", cutoff, cutoff).
		Where("id NOT IN ?", recent).
		Where("id NOT IN ?", optedOut).
		Order("id asc").
		Find(&users).Error
	return users, err
}

// SendReminders emails every reminder candidate. Individual failures are logged and counted.
func SendReminders(ctx context.Context, env Env) (sent int, failed int, err error) {
	users, err := ReminderCandidates(env.DB, env.now())
	if err != nil {
		return 0, 0, err
	}
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return sent, failed, err
		}
		ok, err := SendUserEmail(ctx, env, u, models.EMAIL_TYPE_REMINDER,
			"Te echamos de menos",
			fmt.Sprintf("Hola %s,\n\nHace unos días que no practicas. Un test de 20 preguntas lleva menos de 15 minutos.\n\n%s",
				firstName(u.Name), strings.TrimRight(env.Conf.PublicURL, "/")))
		if err != nil {
			failed++
			env.log().Warn("send reminder", zap.Int64("user_id", u.ID), zap.Error(err))
			continue
		}
		if ok {
			sent++
		}
	}
	env.log().Info("reminders done", zap.Int("candidates", len(users)), zap.Int("sent", sent), zap.Int("failed", failed))
	return sent, failed, nil
}
