package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SigningKey      string
	ExpirationHours int
}

// Claims is the session identity carried in a token.
// TenantID is nil for super admins.
type Claims struct {
	UserID   string  `json:"userId"`
	TenantID *string `json:"tenantId"`
	Role     string  `json:"role"`
}

// UserClaims represents the JWT claims for user authentication
type UserClaims struct {
	Claims
	jwt.RegisteredClaims
}

// TokenService issues and verifies session tokens
type TokenService interface {
	Issue(c Claims) (string, error)
	Verify(token string) (*Claims, error)
	ExpiresIn() time.Duration
}

var ErrInvalidToken = errors.New("invalid token")

// JWTUtil is an HMAC-SHA256 TokenService
type JWTUtil struct {
	config *JWTConfig
	now    func() time.Time
}

// NewJWTUtil creates a new JWT utility with the given configuration
func NewJWTUtil(config *JWTConfig) *JWTUtil {
	return &JWTUtil{
		config: config,
		now:    time.Now,
	}
}

// ExpiresIn is the lifetime of issued tokens
func (j *JWTUtil) ExpiresIn() time.Duration {
	return time.Duration(j.config.ExpirationHours) * time.Hour
}

// Issue signs a token for c
func (j *JWTUtil) Issue(c Claims) (string, error) {
	if j.config == nil || j.config.SigningKey == "" {
		return "", errors.New("JWT configuration not provided")
	}

	now := j.now()
	claims := UserClaims{
		Claims: c,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ExpiresIn())),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.config.SigningKey))
}

// Verify validates the token signature and expiry and returns its claims
func (j *JWTUtil) Verify(tokenString string) (*Claims, error) {
	if j.config == nil || j.config.SigningKey == "" {
		return nil, errors.New("JWT configuration not provided")
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&UserClaims{},
		func(token *jwt.Token) (interface{}, error) {
			// Validate the signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(j.config.SigningKey), nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return &claims.Claims, nil
}
