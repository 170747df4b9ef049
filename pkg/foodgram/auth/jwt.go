package auth

import (
	"errors"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/foodgram/foodgram/pkg/foodgram/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims carries the Foodgram identity of a token holder.
// Subject is the decimal user id.
type Claims struct {
	UserID     uint   `json:"user_id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	SystemRole string `json:"system_role"`
	jwt.RegisteredClaims
}

var (
	settingsMu    sync.RWMutex
	jwtSecret     []byte
	tokenDuration = 24 * time.Hour
)

// Configure sets the signing secret and token lifetime.
// Until it is called the secret falls back to JWT_SECRET or a development default.
func Configure(secret string, duration time.Duration) {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	jwtSecret = []byte(secret)
	if duration > 0 {
		tokenDuration = duration
	}
}

// getJWTSecret returns the configured secret, the environment secret, or a default for development
func getJWTSecret() []byte {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	if len(jwtSecret) > 0 {
		return jwtSecret
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		// Default for development only - should be set in production
		secret = "foodgram-dev-secret-change-in-production"
	}
	return []byte(secret)
}

// getTokenDuration returns the token validity duration
func getTokenDuration() time.Duration {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return tokenDuration
}

// GenerateToken issues a signed token for the user.
// Users without a stored role are issued the regular role.
func GenerateToken(user *models.User) (string, error) {
	role := user.SystemRole
	if role == "" {
		role = models.SystemRoleUser
	}
	now := time.Now()
	claims := &Claims{
		UserID:     user.ID,
		Username:   user.Username,
		Email:      user.Email,
		SystemRole: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(getTokenDuration())),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "foodgram",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(getJWTSecret())
}

// ValidateToken validates a JWT token and returns the claims
func ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return getJWTSecret(), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject != strconv.FormatUint(uint64(claims.UserID), 10) {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
