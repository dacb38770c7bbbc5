package auth

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the identity carried by patient/doctor/admin tokens issued by the medical API.
// The API has issued both "userId" and "sub" over time, so both are accepted.
type Claims struct {
	UserID FlexString `json:"userId,omitempty"`
	Email  string     `json:"email,omitempty"`
	Role   string     `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Identity returns the caller's user id, or "" when the token names nobody.
func (c *Claims) Identity() string {
	if c == nil {
		return ""
	}
	if id := strings.TrimSpace(string(c.UserID)); id != "" {
		return id
	}
	return strings.TrimSpace(c.Subject)
}

// FlexString decodes from either a JSON string or a JSON number.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	if _, err := strconv.ParseFloat(raw, 64); err != nil {
		return err
	}
	*f = FlexString(raw)
	return nil
}

func SignHS256(claims Claims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseAndVerifyHS256(token, secret string) (*Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// ParseUnverified decodes a token whose signature is checked downstream by the medical API.
// Expired tokens are still rejected so callers fail fast.
func ParseUnverified(token string) (*Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt != nil && time.Now().After(claims.ExpiresAt.Time) {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
