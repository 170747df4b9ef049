// Package tags serves the recipe tag reference data.
package tags

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/foodgram/foodgram/pkg/foodgram/apperr"
	"github.com/foodgram/foodgram/pkg/foodgram/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler handles tag-related requests
type Handler struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewHandler creates a new tags handler
func NewHandler(db *gorm.DB, logger *zap.Logger) *Handler {
	return &Handler{db: db, logger: logger}
}

// List returns all tags
// @Summary List tags
// @Tags tags
// @Produce json
// @Success 200 {array} models.Tag
// @Router /tags [get]
func (h *Handler) List(c *gin.Context) {
	var list []models.Tag
	if err := h.db.WithContext(c.Request.Context()).Order("id ASC").Find(&list).Error; err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Get returns a single tag
// @Summary Get a tag
// @Tags tags
// @Produce json
// @Param id path int true "Tag ID"
// @Success 200 {object} models.Tag
// @Failure 404 {object} map[string]string "Tag not found"
// @Router /tags/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperr.Respond(c, h.logger, apperr.NotFound("tag", c.Param("id")))
		return
	}

	var tag models.Tag
	if err := h.db.WithContext(c.Request.Context()).First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = apperr.NotFound("tag", id)
		}
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, tag)
}

// RegisterRoutes registers tag routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
}
