package controllers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"oposiciones/cache"
	"oposiciones/config"
	dbpkg "oposiciones/db"
	"oposiciones/events"
	"oposiciones/models"
	"oposiciones/queries"
	"oposiciones/queries/querytest"
	"oposiciones/schemas"
	"oposiciones/tools"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() config.Configuration {
	var c config.Configuration
	c.Security.JwtSecret = "test-secret"
	c.Security.AccessTTLMinutes = 60
	c.Security.RefreshTTLDays = 30
	c.Security.RefreshTokenLen = 32
	c.PublicURL = "https://oposiciones.test"
	c.Plans.FreeMonthlyTests = 5
	c.AI.FreeDailyChats = 3
	return c
}

// newServer mounts the handlers under test on an engine bound to database.
func newServer(t *testing.T, database *gorm.DB, conf config.Configuration) *gin.Engine {
	t.Helper()
	SetEnv(queries.Env{DB: database, Conf: conf, Cache: cache.NewMemory(), Events: &events.Recorder{}})
	t.Cleanup(func() { SetEnv(queries.Env{}) })

	r := gin.New()
	r.Use(dbpkg.SetDBtoContext(database))
	r.POST("/api/users", CreateUser)
	r.POST("/api/login", Login)
	r.POST("/api/refresh", Refresh)
	r.GET("/api/plans", GetPlans)
	r.POST("/api/questions/:id/check", CheckAnswer)
	r.POST("/api/webhooks/resend", ResendWebhook)

	authed := r.Group("/api", AuthRequired())
	authed.GET("/me", Me)
	return r
}

func do(r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case []byte:
			buf.Write(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestRespondQueryError(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("%w: missing field", queries.ErrValidation), http.StatusBadRequest},
		{&schemas.ValidationError{Fields: []schemas.FieldError{{Field: "answer", Rule: "option"}}}, http.StatusBadRequest},
		{queries.ErrUnauthorized, http.StatusUnauthorized},
		{queries.ErrLimitReached, http.StatusPaymentRequired},
		{queries.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("question: %w", queries.ErrNotFound), http.StatusNotFound},
		{queries.ErrConflict, http.StatusConflict},
		{queries.ErrInvalidTransition, http.StatusConflict},
		{&pq.Error{Code: "23505"}, http.StatusConflict},
		{fmt.Errorf("openai: %w", queries.ErrUpstream), http.StatusBadGateway},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		RespondQueryError(c, tc.err)
		assert.Equal(t, tc.code, w.Code, tc.err.Error())
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	RespondQueryError(c, errors.New("secret detail"))
	assert.NotContains(t, w.Body.String(), "secret detail")
}

func TestSignupLoginMeRefresh(t *testing.T) {
	database := querytest.SetupTestDB(t)
	r := newServer(t, database, testConfig())

	w := do(r, http.MethodPost, "/api/users", map[string]string{
		"name": "Lucía Pérez", "email": "Lucia@Example.com", "password": "opositora2026",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "opositora2026")

	w = do(r, http.MethodPost, "/api/users", map[string]string{
		"name": "Otra", "email": "lucia@example.com", "password": "opositora2026",
	}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodPost, "/api/login", map[string]string{"email": "lucia@example.com", "password": "wrong-password"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/api/login", map[string]string{"email": "lucia@example.com", "password": "opositora2026"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var session queries.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	require.NotEmpty(t, session.AccessToken)
	require.NotEmpty(t, session.RefreshToken)

	w = do(r, http.MethodGet, "/api/me", nil, map[string]string{"Authorization": "Bearer " + session.AccessToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "lucia@example.com", body["user"].(map[string]any)["email"])
	assert.Contains(t, body, "limits")

	w = do(r, http.MethodPost, "/api/refresh", map[string]string{"refresh_token": session.RefreshToken}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// the old refresh token was rotated away
	w = do(r, http.MethodPost, "/api/refresh", map[string]string{"refresh_token": session.RefreshToken}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequired(t *testing.T) {
	database := querytest.SetupTestDB(t)
	conf := testConfig()
	r := newServer(t, database, conf)

	w := do(r, http.MethodGet, "/api/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "missing bearer token", decode(t, w)["error"])

	w = do(r, http.MethodGet, "/api/me", nil, map[string]string{"Authorization": "Bearer not-a-jwt"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid or expired token", decode(t, w)["error"])

	// signed token for a user that does not exist
	token, _, err := tools.SignAccessToken(conf.Security.JwtSecret, 999, "ghost@example.com", time.Hour, time.Now())
	require.NoError(t, err)
	w = do(r, http.MethodGet, "/api/me", nil, map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// expired token
	u := models.User{Name: "Ana", Email: "ana@example.com", Password: "x"}
	querytest.MustCreate(t, database, &u)
	token, _, err = tools.SignAccessToken(conf.Security.JwtSecret, u.ID, u.Email, time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	w = do(r, http.MethodGet, "/api/me", nil, map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_BlockedUser(t *testing.T) {
	database := querytest.SetupTestDB(t)
	r := newServer(t, database, testConfig())

	u, err := queries.CreateUser(database, models.User{Name: "Ana", Email: "ana@example.com", Password: "opositora2026"})
	require.NoError(t, err)
	require.NoError(t, database.Model(&models.User{}).Where("id = ?", u.ID).
		UpdateColumn("status", models.USER_STATUS_BLOCKED).Error)

	w := do(r, http.MethodPost, "/api/login", map[string]string{"email": "ana@example.com", "password": "opositora2026"}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "user blocked", decode(t, w)["error"])

	w = do(r, http.MethodPost, "/api/login", map[string]string{"email": "", "password": ""}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckAnswer(t *testing.T) {
	database := querytest.SetupTestDB(t)
	r := newServer(t, database, testConfig())

	law := models.Law{Slug: "ce", ShortName: "CE", Name: "Constitución Española"}
	querytest.MustCreate(t, database, &law)
	art := models.Article{LawID: law.ID, ArticleNumber: "1", Content: "España se constituye...", IsActive: true}
	querytest.MustCreate(t, database, &art)
	q := models.Question{
		ArticleID: art.ID, QuestionText: "¿Qué es España?", OptionA: "a", OptionB: "b", OptionC: "c", OptionD: "d",
		CorrectOption: "c", Explanation: "Artículo 1.1 CE", IsActive: true,
	}
	querytest.MustCreate(t, database, &q)
	path := "/api/questions/" + strconv.FormatInt(q.ID, 10) + "/check"

	w := do(r, http.MethodPost, path, map[string]string{"answer": " C "}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["correct"])
	assert.Equal(t, "c", body["correct_option"])

	w = do(r, http.MethodPost, path, map[string]string{"answer": "z"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w), "details")

	w = do(r, http.MethodPost, path, []byte(`{"answer":`), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/questions/424242/check", map[string]string{"answer": "a"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodPost, "/api/questions/abc/check", map[string]string{"answer": "a"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResendWebhook(t *testing.T) {
	database := querytest.SetupTestDB(t)
	conf := testConfig()
	conf.Email.WebhookSecret = "whsec_" + base64.StdEncoding.EncodeToString([]byte("super-secret-signing-key"))
	r := newServer(t, database, conf)

	body := []byte(`{"type":"email.delivered","data":{"email_id":"re_123","to":["lucia@example.com"]}}`)
	sentAt := time.Now()
	sig, err := tools.SignWebhook(conf.Email.WebhookSecret, "msg_1", sentAt, body)
	require.NoError(t, err)
	signed := map[string]string{
		"svix-id":        "msg_1",
		"svix-timestamp": strconv.FormatInt(sentAt.Unix(), 10),
		"svix-signature": sig,
	}

	w := do(r, http.MethodPost, "/api/webhooks/resend", body, signed)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["recorded"])

	// redelivery is accepted but not recorded twice
	w = do(r, http.MethodPost, "/api/webhooks/resend", body, signed)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["recorded"])

	w = do(r, http.MethodPost, "/api/webhooks/resend", body, map[string]string{
		"svix-id": "msg_1", "svix-timestamp": signed["svix-timestamp"], "svix-signature": "v1,Zm9yZ2Vk",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var count int
	require.NoError(t, database.Model(&models.EmailEvent{}).Count(&count).Error)
	assert.Equal(t, 1, count)
}

func TestResendWebhook_NoSecret(t *testing.T) {
	database := querytest.SetupTestDB(t)
	body := []byte(`{"type":"email.opened","data":{"email_id":"re_9"}}`)

	r := newServer(t, database, testConfig())
	w := do(r, http.MethodPost, "/api/webhooks/resend", body, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	conf := testConfig()
	conf.DevMode = true
	r = newServer(t, database, conf)
	w = do(r, http.MethodPost, "/api/webhooks/resend", body, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestGetPlans_DatabaseFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	database, err := gorm.Open("postgres", sqlDB)
	require.NoError(t, err)
	database.LogMode(false)

	mock.ExpectQuery(`SELECT \* FROM "plans"`).WillReturnError(errors.New("connection reset by peer"))

	r := newServer(t, database, testConfig())
	w := do(r, http.MethodGet, "/api/plans", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", decode(t, w)["error"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseMissingFromContext(t *testing.T) {
	SetEnv(queries.Env{Conf: testConfig()})
	t.Cleanup(func() { SetEnv(queries.Env{}) })

	r := gin.New()
	r.GET("/api/plans", GetPlans)
	w := do(r, http.MethodGet, "/api/plans", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "database not configured in context", decode(t, w)["error"])
}
