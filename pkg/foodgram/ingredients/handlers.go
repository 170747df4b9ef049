// Package ingredients serves ingredient reference data and bulk imports.
package ingredients

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/foodgram/foodgram/pkg/foodgram/apperr"
	"github.com/foodgram/foodgram/pkg/foodgram/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler handles ingredient lookups
type Handler struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewHandler creates a new ingredients handler
func NewHandler(db *gorm.DB, logger *zap.Logger) *Handler {
	return &Handler{db: db, logger: logger}
}

// escapeLike escapes LIKE wildcards in user input
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// List returns all ingredients, optionally filtered by a case-insensitive name prefix
// @Summary List ingredients
// @Tags ingredients
// @Produce json
// @Param name query string false "Name prefix"
// @Success 200 {array} models.Ingredient
// @Router /ingredients [get]
func (h *Handler) List(c *gin.Context) {
	query := h.db.WithContext(c.Request.Context()).Order("name ASC").Order("id ASC")
	if name := strings.TrimSpace(c.Query("name")); name != "" {
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\'`, strings.ToLower(escapeLike(name))+"%")
	}

	var list []models.Ingredient
	if err := query.Find(&list).Error; err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Get returns a single ingredient
// @Summary Get an ingredient
// @Tags ingredients
// @Produce json
// @Param id path int true "Ingredient ID"
// @Success 200 {object} models.Ingredient
// @Failure 404 {object} map[string]string "Ingredient not found"
// @Router /ingredients/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperr.Respond(c, h.logger, apperr.NotFound("ingredient", c.Param("id")))
		return
	}

	var ingredient models.Ingredient
	if err := h.db.WithContext(c.Request.Context()).First(&ingredient, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = apperr.NotFound("ingredient", id)
		}
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ingredient)
}

// RegisterRoutes registers ingredient routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
}
