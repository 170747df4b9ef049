package auth

import (
	"net/http"

	"github.com/foodgram/foodgram/pkg/foodgram/apperr"
	"github.com/foodgram/foodgram/pkg/foodgram/models"
	"github.com/foodgram/foodgram/pkg/foodgram/validation"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler handles token issuance
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new auth handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse represents the token login response
type TokenResponse struct {
	AuthToken string `json:"auth_token"`
}

// Login exchanges credentials for a token
// @Summary Obtain a token
// @Description Authenticate with email and password to receive a JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} map[string]string "Invalid credentials"
// @Router /auth/token/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := validation.BindJSON(c, &req); err != nil {
		apperr.Respond(c, nil, err)
		return
	}

	var user models.User
	if err := h.db.WithContext(c.Request.Context()).Where("email = ?", req.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"non_field_errors": []string{"Невозможно войти с предоставленными учетными данными."}})
		return
	}

	if !CheckPassword(req.Password, user.PasswordHash) {
		c.JSON(http.StatusBadRequest, gin.H{"non_field_errors": []string{"Невозможно войти с предоставленными учетными данными."}})
		return
	}

	token, err := GenerateToken(&user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": apperr.DetailInternal})
		return
	}

	c.JSON(http.StatusOK, TokenResponse{AuthToken: token})
}

// Logout handles logout (client-side token invalidation)
// @Summary Logout
// @Description Tokens are stateless; the client discards its token
// @Tags auth
// @Success 204
// @Security TokenAuth
// @Router /auth/token/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers auth routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/token/login", h.Login)
	rg.POST("/token/logout", AuthMiddleware(), h.Logout)
}
