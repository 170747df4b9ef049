package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// ContextKeyUserID is the key for user ID in gin context
	ContextKeyUserID = "user_id"
	// ContextKeyUsername is the key for username in gin context
	ContextKeyUsername = "username"
	// ContextKeyEmail is the key for email in gin context
	ContextKeyEmail = "email"
	// ContextKeySystemRole is the key for system role in gin context
	ContextKeySystemRole = "system_role"
)

// parseAuthHeader extracts the token from "Token <jwt>" or "Bearer <jwt>"
func parseAuthHeader(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", false
	}
	switch strings.ToLower(parts[0]) {
	case "bearer", "token":
		return strings.TrimSpace(parts[1]), true
	}
	return "", false
}

// authenticate validates the Authorization header and stores the identity in the context.
// It reports false after writing a 401 response.
func authenticate(c *gin.Context, authHeader string) bool {
	tokenString, ok := parseAuthHeader(authHeader)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Недопустимый заголовок авторизации."})
		c.Abort()
		return false
	}

	claims, err := ValidateToken(tokenString)
	if err != nil {
		if err == ErrExpiredToken {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Срок действия токена истёк."})
		} else {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Недопустимый токен."})
		}
		c.Abort()
		return false
	}

	// Set user info in context
	c.Set(ContextKeyUserID, claims.UserID)
	c.Set(ContextKeyUsername, claims.Username)
	c.Set(ContextKeyEmail, claims.Email)
	c.Set(ContextKeySystemRole, claims.SystemRole)
	return true
}

// AuthMiddleware validates JWT tokens and sets user info in context
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Учетные данные не были предоставлены."})
			c.Abort()
			return
		}
		if !authenticate(c, authHeader) {
			return
		}
		c.Next()
	}
}

// OptionalAuth sets user info when a token is present and lets anonymous requests through.
// A present but invalid token is still rejected.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" && !authenticate(c, authHeader) {
			return
		}
		c.Next()
	}
}

// RequireAdmin middleware checks if the user has admin system role
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ContextKeySystemRole)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Учетные данные не были предоставлены."})
			c.Abort()
			return
		}

		if role != "admin" {
			c.JSON(http.StatusForbidden, gin.H{"detail": "У вас недостаточно прав для выполнения данного действия."})
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetUserID returns the user ID from the gin context
func GetUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(ContextKeyUserID)
	if !exists {
		return 0, false
	}
	return userID.(uint), true
}

// GetUsername returns the username carried by the caller's token
func GetUsername(c *gin.Context) (string, bool) {
	username, exists := c.Get(ContextKeyUsername)
	if !exists {
		return "", false
	}
	return username.(string), true
}

// Viewer returns a pointer to the caller's id, or nil for anonymous requests
func Viewer(c *gin.Context) *uint {
	if userID, ok := GetUserID(c); ok {
		return &userID
	}
	return nil
}
