// Package admin exposes moderation and reference-data management for admins.
package admin

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/foodgram/foodgram/pkg/foodgram/apperr"
	"github.com/foodgram/foodgram/pkg/foodgram/auth"
	"github.com/foodgram/foodgram/pkg/foodgram/ingredients"
	"github.com/foodgram/foodgram/pkg/foodgram/models"
	"github.com/foodgram/foodgram/pkg/foodgram/validation"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler handles admin requests
type Handler struct {
	db       *gorm.DB
	importer *ingredients.Importer
	logger   *zap.Logger
}

// NewHandler creates a new admin handler
func NewHandler(db *gorm.DB, importer *ingredients.Importer, logger *zap.Logger) *Handler {
	return &Handler{db: db, importer: importer, logger: logger}
}

// UserResponse represents user data in admin responses
type UserResponse struct {
	ID            uint   `json:"id"`
	Email         string `json:"email"`
	Username      string `json:"username"`
	SystemRole    string `json:"system_role"`
	CreatedAt     string `json:"created_at"`
	RecipeCount   int64  `json:"recipe_count"`
	FavoriteCount int64  `json:"favorite_count"`
}

// UpdateUserRequest represents the request to change a user's role
type UpdateUserRequest struct {
	SystemRole string `json:"system_role" binding:"required,oneof=admin user"`
}

// StatsResponse represents system statistics
type StatsResponse struct {
	TotalUsers         int64 `json:"total_users"`
	AdminUsers         int64 `json:"admin_users"`
	TotalRecipes       int64 `json:"total_recipes"`
	TotalIngredients   int64 `json:"total_ingredients"`
	TotalTags          int64 `json:"total_tags"`
	TotalFavorites     int64 `json:"total_favorites"`
	TotalCartItems     int64 `json:"total_cart_items"`
	TotalSubscriptions int64 `json:"total_subscriptions"`
	TotalShortLinks    int64 `json:"total_short_links"`
}

// CreateTagRequest represents the request to create a tag
type CreateTagRequest struct {
	Name  string `json:"name" binding:"required,max=200"`
	Color string `json:"color" binding:"required,hexcolor,len=7"`
	Slug  string `json:"slug" binding:"required,max=200,slug"`
}

// CreateIngredientRequest represents the request to create an ingredient
type CreateIngredientRequest struct {
	Name            string `json:"name" binding:"required,max=200"`
	MeasurementUnit string `json:"measurement_unit" binding:"required,max=200"`
}

func (h *Handler) toUserResponse(user models.User) UserResponse {
	resp := UserResponse{
		ID:         user.ID,
		Email:      user.Email,
		Username:   user.Username,
		SystemRole: string(user.SystemRole),
		CreatedAt:  user.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	h.db.Model(&models.Recipe{}).Where("author_id = ?", user.ID).Count(&resp.RecipeCount)
	h.db.Model(&models.Favorite{}).Where("user_id = ?", user.ID).Count(&resp.FavoriteCount)
	return resp
}

// GetStats returns system-wide statistics (admin only)
// @Summary System statistics
// @Tags admin
// @Produce json
// @Success 200 {object} StatsResponse
// @Security TokenAuth
// @Router /admin/stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())
	var stats StatsResponse

	counts := []struct {
		model any
		into  *int64
	}{
		{&models.User{}, &stats.TotalUsers},
		{&models.Recipe{}, &stats.TotalRecipes},
		{&models.Ingredient{}, &stats.TotalIngredients},
		{&models.Tag{}, &stats.TotalTags},
		{&models.Favorite{}, &stats.TotalFavorites},
		{&models.ShoppingCart{}, &stats.TotalCartItems},
		{&models.Subscription{}, &stats.TotalSubscriptions},
		{&models.ShortLink{}, &stats.TotalShortLinks},
	}
	for _, count := range counts {
		if err := db.Model(count.model).Count(count.into).Error; err != nil {
			apperr.Respond(c, h.logger, err)
			return
		}
	}
	db.Model(&models.User{}).Where("system_role = ?", models.SystemRoleAdmin).Count(&stats.AdminUsers)

	c.JSON(http.StatusOK, stats)
}

// ListUsers returns all users (admin only)
// @Summary List users with activity counts
// @Tags admin
// @Produce json
// @Param q query string false "Search email or username"
// @Param role query string false "Filter by system role"
// @Success 200 {array} UserResponse
// @Security TokenAuth
// @Router /admin/users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	var list []models.User

	query := h.db.WithContext(c.Request.Context()).Order("created_at DESC")

	// Optional search by email or username
	if search := c.Query("q"); search != "" {
		query = query.Where("email LIKE ? OR username LIKE ?", "%"+search+"%", "%"+search+"%")
	}

	// Optional filter by role
	if role := c.Query("role"); role != "" {
		query = query.Where("system_role = ?", role)
	}

	if err := query.Find(&list).Error; err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	responses := make([]UserResponse, len(list))
	for i, user := range list {
		responses[i] = h.toUserResponse(user)
	}
	c.JSON(http.StatusOK, responses)
}

// UpdateUser changes a user's system role (admin only)
// @Summary Change a user's role
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body UpdateUserRequest true "New role"
// @Success 200 {object} UserResponse
// @Security TokenAuth
// @Router /admin/users/{id} [patch]
func (h *Handler) UpdateUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": apperr.DetailNotFound})
		return
	}

	var req UpdateUserRequest
	if err := validation.BindJSON(c, &req); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	// Prevent admin from demoting themselves
	currentUserID, _ := auth.GetUserID(c)
	if uint(id) == currentUserID && req.SystemRole != string(models.SystemRoleAdmin) {
		c.JSON(http.StatusBadRequest, gin.H{"errors": "Нельзя снять с себя права администратора."})
		return
	}

	var user models.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = apperr.NotFound("user", id)
		}
		apperr.Respond(c, h.logger, err)
		return
	}

	if err := h.db.Model(&user).Update("system_role", req.SystemRole).Error; err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	user.SystemRole = models.SystemRole(req.SystemRole)

	h.logger.Info("User role changed",
		zap.Uint("user_id", user.ID),
		zap.String("role", req.SystemRole),
		zap.Uint("by", currentUserID))
	c.JSON(http.StatusOK, h.toUserResponse(user))
}

// CreateTag adds a tag (admin only)
// @Summary Create a tag
// @Tags admin
// @Accept json
// @Produce json
// @Param request body CreateTagRequest true "Tag"
// @Success 201 {object} models.Tag
// @Failure 400 {object} map[string][]string "Validation error or duplicate"
// @Security TokenAuth
// @Router /admin/tags [post]
func (h *Handler) CreateTag(c *gin.Context) {
	var req CreateTagRequest
	if err := validation.BindJSON(c, &req); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	tag := models.Tag{Name: req.Name, Color: strings.ToUpper(req.Color), Slug: req.Slug}
	if err := h.db.WithContext(c.Request.Context()).Create(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			err = apperr.NewValidationError("non_field_errors", "Тег с таким названием или слагом уже существует.")
		}
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}

// DeleteTag removes a tag and detaches it from every recipe (admin only)
// @Summary Delete a tag
// @Tags admin
// @Param id path int true "Tag ID"
// @Success 204
// @Failure 404 {object} map[string]string "Tag not found"
// @Security TokenAuth
// @Router /admin/tags/{id} [delete]
func (h *Handler) DeleteTag(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": apperr.DetailNotFound})
		return
	}

	err = h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var tag models.Tag
		if err := tx.First(&tag, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("tag", id)
			}
			return err
		}
		if err := tx.Where("tag_id = ?", tag.ID).Delete(&models.RecipeTag{}).Error; err != nil {
			return err
		}
		return tx.Delete(&tag).Error
	})
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateIngredient adds one ingredient (admin only)
// @Summary Create an ingredient
// @Tags admin
// @Accept json
// @Produce json
// @Param request body CreateIngredientRequest true "Ingredient"
// @Success 201 {object} models.Ingredient
// @Failure 400 {object} map[string][]string "Validation error or duplicate"
// @Security TokenAuth
// @Router /admin/ingredients [post]
func (h *Handler) CreateIngredient(c *gin.Context) {
	var req CreateIngredientRequest
	if err := validation.BindJSON(c, &req); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	ingredient := models.Ingredient{Name: req.Name, MeasurementUnit: req.MeasurementUnit}
	if err := h.db.WithContext(c.Request.Context()).Create(&ingredient).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			err = apperr.NewValidationError("non_field_errors", "Ингредиент с такой единицей измерения уже существует.")
		}
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, ingredient)
}

// ImportIngredients bulk loads ingredients from an uploaded JSON or CSV file (admin only)
// @Summary Import ingredients
// @Description Multipart upload in field "file". The format comes from ?format= or the file extension.
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Ingredients file"
// @Param format query string false "json or csv"
// @Success 200 {object} ingredients.ImportResult
// @Failure 400 {object} map[string]string "Bad file or format"
// @Security TokenAuth
// @Router /admin/ingredients/import [post]
func (h *Handler) ImportIngredients(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"file": []string{"Ни одного файла не было отправлено."}})
		return
	}

	format := c.Query("format")
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(fileHeader.Filename)), ".")
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"file": []string{"Не удалось прочитать загруженный файл."}})
		return
	}
	defer file.Close()

	result, err := h.importer.Import(c.Request.Context(), file, format)
	if err != nil {
		if errors.Is(err, ingredients.ErrUnknownFormat) {
			c.JSON(http.StatusBadRequest, gin.H{"file": []string{"Неизвестный формат файла, ожидается json или csv."}})
			return
		}
		h.logger.Warn("Ingredient import failed", zap.String("file", fileHeader.Filename), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"file": []string{"Не удалось разобрать файл с ингредиентами."}})
		return
	}
	c.JSON(http.StatusOK, result)
}

// RegisterRoutes registers admin routes on the given router group.
// The group is expected to run auth.AuthMiddleware and auth.RequireAdmin.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats", h.GetStats)
	rg.GET("/users", h.ListUsers)
	rg.PATCH("/users/:id", h.UpdateUser)
	rg.POST("/tags", h.CreateTag)
	rg.DELETE("/tags/:id", h.DeleteTag)
	rg.POST("/ingredients", h.CreateIngredient)
	rg.POST("/ingredients/import", h.ImportIngredients)
}
