package tools

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	purposeAccess      = "access"
	purposeUnsubscribe = "unsubscribe"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenClaims is the payload of every token we sign. Subject holds the user id.
type TokenClaims struct {
	Email   string `json:"email,omitempty"`
	Purpose string `json:"purpose"`
	// Scope narrows an unsubscribe token to one email type ("all" for every type).
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

func (c TokenClaims) UserID() int64 {
	id, _ := strconv.ParseInt(c.Subject, 10, 64)
	return id
}

func sign(secret string, claims TokenClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// parse validates the token against now, the same clock tokens are signed with.
func parse(secret, token, purpose string, now time.Time) (TokenClaims, error) {
	var claims TokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		return TokenClaims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Purpose != purpose || claims.UserID() <= 0 {
		return TokenClaims{}, ErrInvalidToken
	}
	return claims, nil
}

// SignAccessToken returns an HS256 access token for the user and its expiry.
func SignAccessToken(secret string, userID int64, email string, ttl time.Duration, now time.Time) (string, time.Time, error) {
	exp := now.Add(ttl)
	token, err := sign(secret, TokenClaims{
		Email:   email,
		Purpose: purposeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	return token, exp, err
}

func ParseAccessToken(secret, token string, now time.Time) (TokenClaims, error) {
	return parse(secret, token, purposeAccess, now)
}

// SignUnsubscribeToken returns the token embedded in email unsubscribe links.
func SignUnsubscribeToken(secret string, userID int64, scope string, ttl time.Duration, now time.Time) (string, error) {
	return sign(secret, TokenClaims{
		Purpose: purposeUnsubscribe,
		Scope:   scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
}

func ParseUnsubscribeToken(secret, token string, now time.Time) (TokenClaims, error) {
	return parse(secret, token, purposeUnsubscribe, now)
}
