package users

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/foodgram/foodgram/pkg/foodgram/apperr"
	"github.com/foodgram/foodgram/pkg/foodgram/auth"
	"github.com/foodgram/foodgram/pkg/foodgram/config"
	"github.com/foodgram/foodgram/pkg/foodgram/models"
	"github.com/foodgram/foodgram/pkg/foodgram/pagination"
	"github.com/foodgram/foodgram/pkg/foodgram/validation"
	"github.com/foodgram/foodgram/pkg/foodgram/view"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler handles user registration and profile lookups
type Handler struct {
	db     *gorm.DB
	logger *zap.Logger
	cfg    config.ServerConfig
}

// NewHandler creates a new users handler
func NewHandler(db *gorm.DB, logger *zap.Logger, cfg config.ServerConfig) *Handler {
	return &Handler{db: db, logger: logger, cfg: cfg}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=254"`
	Username  string `json:"username" binding:"required,max=150,username"`
	FirstName string `json:"first_name" binding:"required,max=150"`
	LastName  string `json:"last_name" binding:"required,max=150"`
	Password  string `json:"password" binding:"required,min=8"`
}

func (h *Handler) viewContext(c *gin.Context) view.Context {
	return view.Context{ViewerID: auth.Viewer(c), BaseURL: h.cfg.BaseURL}
}

// Register creates a new account
// @Summary Register a new user
// @Description Create a new user account
// @Tags users
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration details"
// @Success 201 {object} CreatedUserResponse
// @Failure 400 {object} map[string][]string "Validation error"
// @Router /users [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := validation.BindJSON(c, &req); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	ctx := c.Request.Context()
	verr := &apperr.ValidationError{}
	if strings.EqualFold(req.Username, "me") {
		verr.Add("username", "Имя пользователя \"me\" зарезервировано.")
	}
	var count int64
	if err := h.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	if count > 0 {
		verr.Add("email", "Пользователь с таким email уже существует.")
	}
	if err := h.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	if count > 0 {
		verr.Add("username", "Пользователь с таким именем уже существует.")
	}
	if verr.HasErrors() {
		apperr.Respond(c, h.logger, verr)
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": apperr.DetailInternal})
		return
	}

	user := models.User{
		Email:        req.Email,
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hashedPassword,
		SystemRole:   models.SystemRoleUser,
	}
	if err := h.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			apperr.Respond(c, h.logger, apperr.NewValidationError("non_field_errors", "Пользователь с таким email или именем уже существует."))
			return
		}
		apperr.Respond(c, h.logger, err)
		return
	}

	h.logger.Info("User registered", zap.Uint("user_id", user.ID), zap.String("username", user.Username))

	c.JSON(http.StatusCreated, CreatedUserResponse{
		Email:     user.Email,
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
}

// List returns registered users, paginated
// @Summary List users
// @Tags users
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} pagination.Page[UserResponse]
// @Router /users [get]
func (h *Handler) List(c *gin.Context) {
	ctx := c.Request.Context()
	p := pagination.FromRequest(c, h.cfg.PageSize)

	var total int64
	if err := h.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	var list []models.User
	if err := h.db.WithContext(ctx).Scopes(p.Scope).Order("id ASC").Find(&list).Error; err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	responses, err := RenderMany(ctx, h.db, h.viewContext(c), list)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pagination.NewPage(c, p, total, responses))
}

// Get returns a single user profile
// @Summary Get a user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} UserResponse
// @Failure 404 {object} map[string]string "User not found"
// @Router /users/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": apperr.DetailNotFound})
		return
	}
	h.respondWithUser(c, uint(id))
}

// Me returns the current authenticated user
// @Summary Get current user
// @Tags users
// @Produce json
// @Success 200 {object} UserResponse
// @Failure 401 {object} map[string]string "Authentication required"
// @Security TokenAuth
// @Router /users/me [get]
func (h *Handler) Me(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	h.respondWithUser(c, userID)
}

func (h *Handler) respondWithUser(c *gin.Context, id uint) {
	ctx := c.Request.Context()

	var user models.User
	if err := h.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = apperr.NotFound("user", id)
		}
		apperr.Respond(c, h.logger, err)
		return
	}

	response, err := Render(ctx, h.db, h.viewContext(c), user)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// AvatarRequest sets the caller's avatar to a stored media reference
type AvatarRequest struct {
	Avatar string `json:"avatar" binding:"required,max=255"`
}

// AvatarResponse carries the absolute avatar URL, or null when none is set
type AvatarResponse struct {
	Avatar *string `json:"avatar"`
}

// SetAvatar points the current user's avatar at an already stored image
// @Summary Set avatar
// @Tags users
// @Accept json
// @Produce json
// @Param request body AvatarRequest true "Avatar reference"
// @Success 200 {object} AvatarResponse
// @Failure 400 {object} map[string][]string "Validation errors"
// @Failure 401 {object} map[string]string "Authentication required"
// @Security TokenAuth
// @Router /users/me/avatar [put]
func (h *Handler) SetAvatar(c *gin.Context) {
	var req AvatarRequest
	if err := validation.BindJSON(c, &req); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	ref := strings.TrimSpace(req.Avatar)
	if ref == "" {
		apperr.Respond(c, h.logger, apperr.NewValidationError("avatar", "Обязательное поле."))
		return
	}
	if strings.HasPrefix(ref, "data:") {
		apperr.Respond(c, h.logger, apperr.NewValidationError("avatar", "Загрузка файлов не поддерживается, укажите ссылку на изображение."))
		return
	}

	userID, _ := auth.GetUserID(c)
	if err := h.setAvatar(c, userID, ref); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	url := h.viewContext(c).AbsoluteURL(ref)
	c.JSON(http.StatusOK, AvatarResponse{Avatar: &url})
}

// DeleteAvatar clears the current user's avatar
// @Summary Remove avatar
// @Tags users
// @Success 204
// @Failure 401 {object} map[string]string "Authentication required"
// @Security TokenAuth
// @Router /users/me/avatar [delete]
func (h *Handler) DeleteAvatar(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	if err := h.setAvatar(c, userID, ""); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) setAvatar(c *gin.Context, userID uint, ref string) error {
	err := h.db.WithContext(c.Request.Context()).Model(&models.User{}).Where("id = ?", userID).Update("avatar", ref).Error
	if err != nil {
		return err
	}
	h.logger.Info("Avatar updated", zap.Uint("user_id", userID), zap.Bool("cleared", ref == ""))
	return nil
}

// RegisterRoutes registers user routes on the given router group.
// The group is expected to run auth.OptionalAuth.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Register)
	rg.GET("", h.List)
	rg.GET("/me", auth.AuthMiddleware(), h.Me)
	rg.PUT("/me/avatar", auth.AuthMiddleware(), h.SetAvatar)
	rg.DELETE("/me/avatar", auth.AuthMiddleware(), h.DeleteAvatar)
	rg.GET("/:id", h.Get)
}
