package queries

import (
	"strings"
	"time"

	"oposiciones/config"
	"oposiciones/models"
	"oposiciones/tools"

	"github.com/jinzhu/gorm"
)

// Session is what login and refresh return to the client.
type Session struct {
	AccessToken        string      `json:"access_token"`
	AccessExpiresAt    int64       `json:"access_expires_at"`     // unix seconds
	AccessExpiresAtISO string      `json:"access_expires_at_iso"` // RFC3339
	RefreshToken       string      `json:"refresh_token"`
	User               models.User `json:"user"`
}

func CreateUser(db *gorm.DB, user models.User) (models.User, error) {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.Name = strings.TrimSpace(user.Name)

	if missing := user.MissingFields(); missing != "" {
		return models.User{}, validationf("missing field %s", missing)
	}
	if !tools.ValidateEmail(user.Email) {
		return models.User{}, validationf("invalid email")
	}

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return models.User{}, err
	}
	if count > 0 {
		return models.User{}, conflictf("user already exists")
	}

	hash, err := tools.HashPassword(user.Password)
	if err != nil {
		return models.User{}, err
	}
	user.ID = 0
	user.Password = hash
	user.Admin = false
	user.Status = models.USER_STATUS_AVAILABLE

	if user.TargetOposicionID != nil {
		if err := db.First(&models.Oposicion{}, *user.TargetOposicionID).Error; err != nil {
			return models.User{}, wrapNotFound(err, "oposicion")
		}
	}

	if err := db.Create(&user).Error; err != nil {
		return models.User{}, err
	}
	return user.Public(), nil
}

func GetUser(db *gorm.DB, id int64) (models.User, error) {
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		return models.User{}, wrapNotFound(err, "user")
	}
	return user, nil
}

// Authenticate checks credentials. Unknown emails and wrong passwords are indistinguishable.
func Authenticate(db *gorm.DB, email, password string) (models.User, error) {
	var user models.User
	if err := db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return models.User{}, ErrUnauthorized
		}
		return models.User{}, err
	}
	if !tools.PasswordMatches(user.Password, password) {
		return models.User{}, ErrUnauthorized
	}
	if user.Status == models.USER_STATUS_BLOCKED {
		return models.User{}, ErrForbidden
	}
	return user, nil
}

// NewSession signs an access token and issues a fresh refresh token.
func NewSession(db *gorm.DB, security SecurityConfig, user models.User, userAgent string, now time.Time) (Session, error) {
	access, exp, err := tools.SignAccessToken(security.JwtSecret, user.ID, user.Email, security.AccessTTL, now)
	if err != nil {
		return Session{}, err
	}
	refresh, err := IssueRefreshToken(db, user.ID, userAgent, security.RefreshTTL, security.RefreshTokenLen, now)
	if err != nil {
		return Session{}, err
	}
	return Session{
		AccessToken:        access,
		AccessExpiresAt:    exp.Unix(),
		AccessExpiresAtISO: exp.UTC().Format(time.RFC3339),
		RefreshToken:       refresh,
		User:               user.Public(),
	}, nil
}

type SecurityConfig struct {
	JwtSecret       string
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	RefreshTokenLen int
}

func SecurityFromConfig(c config.Configuration) SecurityConfig {
	return SecurityConfig{
		JwtSecret:       c.Security.JwtSecret,
		AccessTTL:       time.Duration(c.Security.AccessTTLMinutes) * time.Minute,
		RefreshTTL:      time.Duration(c.Security.RefreshTTLDays) * 24 * time.Hour,
		RefreshTokenLen: c.Security.RefreshTokenLen,
	}
}

// IssueRefreshToken stores the hash of a new opaque token and returns the token.
func IssueRefreshToken(db *gorm.DB, userID int64, userAgent string, ttl time.Duration, length int, now time.Time) (string, error) {
	if length <= 0 {
		length = 48
	}
	raw := tools.RandomString(length)
	exp := now.Add(ttl)
	rt := models.RefreshToken{
		UserID:    userID,
		TokenHash: tools.EncryptTextSHA512(raw),
		UserAgent: userAgent,
		ExpiresAt: &exp,
	}
	if err := db.Create(&rt).Error; err != nil {
		return "", err
	}
	return raw, nil
}

// RevokeAllRefreshTokens ends every active session of the user.
func RevokeAllRefreshTokens(db *gorm.DB, userID int64, now time.Time) error {
	return db.Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", now).Error
}

// RotateRefreshToken exchanges a usable refresh token for a new session. Single
// session: every active refresh token of the user is revoked, the presented one included.
func RotateRefreshToken(db *gorm.DB, security SecurityConfig, raw, userAgent string, now time.Time) (Session, error) {
	if strings.TrimSpace(raw) == "" {
		return Session{}, validationf("refresh_token is required")
	}

	var stored models.RefreshToken
	if err := db.Where("token_hash = ?", tools.EncryptTextSHA512(raw)).First(&stored).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return Session{}, ErrUnauthorized
		}
		return Session{}, err
	}
	if !stored.Usable(now) {
		return Session{}, ErrUnauthorized
	}

	user, err := GetUser(db, stored.UserID)
	if err != nil {
		return Session{}, ErrUnauthorized
	}
	if user.Status == models.USER_STATUS_BLOCKED {
		return Session{}, ErrForbidden
	}

	var session Session
	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND revoked_at IS NULL", stored.ID).
			Update("revoked_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// lost a race with another refresh using the same token
			return ErrUnauthorized
		}
		if err := RevokeAllRefreshTokens(tx, user.ID, now); err != nil {
			return err
		}
		var err error
		session, err = NewSession(tx, security, user, userAgent, now)
		return err
	})
	return session, err
}

var forbiddenUserFields = map[string]struct{}{
	"id":             {},
	"email":          {},
	"password":       {},
	"admin":          {},
	"status":         {},
	"last_active_at": {},
	"created_at":     {},
	"updated_at":     {},
}

var allowedUserFields = map[string]struct{}{
	"name":                {},
	"phone":               {},
	"city":                {},
	"target_oposicion_id": {},
}

// UpdateUserProfile applies a partial update. Forbidden and unknown keys are dropped.
func UpdateUserProfile(db *gorm.DB, userID int64, payload map[string]any) (models.User, error) {
	updates := map[string]any{}
	for k, v := range payload {
		key := strings.ToLower(k)
		if _, no := forbiddenUserFields[key]; no {
			continue
		}
		if _, ok := allowedUserFields[key]; ok {
			updates[key] = v
		}
	}

	if name, ok := updates["name"]; ok {
		s, _ := name.(string)
		if strings.TrimSpace(s) == "" {
			return models.User{}, validationf("name cannot be empty")
		}
		updates["name"] = strings.TrimSpace(s)
	}
	if v, ok := updates["target_oposicion_id"]; ok && v != nil {
		id, ok := toInt64(v)
		if !ok || id <= 0 {
			return models.User{}, validationf("invalid target_oposicion_id")
		}
		if err := db.First(&models.Oposicion{}, id).Error; err != nil {
			return models.User{}, wrapNotFound(err, "oposicion")
		}
		updates["target_oposicion_id"] = id
	}

	if len(updates) > 0 {
		if err := db.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
			return models.User{}, err
		}
	}
	user, err := GetUser(db, userID)
	if err != nil {
		return models.User{}, err
	}
	return user.Public(), nil
}

// TouchLastActive records activity at most once per hour per user.
func TouchLastActive(db *gorm.DB, user models.User, now time.Time) error {
	if user.LastActiveAt != nil && now.Sub(*user.LastActiveAt) < time.Hour {
		return nil
	}
	return db.Model(&models.User{}).Where("id = ?", user.ID).UpdateColumn("last_active_at", now).Error
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), n == float64(int64(n))
	case int:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}
