package favorites

import (
	"net/http"

	"github.com/foodgram/foodgram/pkg/foodgram/apperr"
	"github.com/foodgram/foodgram/pkg/foodgram/auth"
	"github.com/foodgram/foodgram/pkg/foodgram/config"
	"github.com/foodgram/foodgram/pkg/foodgram/recipes"
	"github.com/foodgram/foodgram/pkg/foodgram/view"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler handles favorite requests
type Handler struct {
	svc    *Service
	logger *zap.Logger
	cfg    config.ServerConfig
}

// NewHandler creates a new favorites handler
func NewHandler(svc *Service, logger *zap.Logger, cfg config.ServerConfig) *Handler {
	return &Handler{svc: svc, logger: logger, cfg: cfg}
}

// Add favorites a recipe
// @Summary Add to favorites
// @Tags favorites
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 201 {object} recipes.ShortResponse
// @Failure 400 {object} map[string]string "Already favorited"
// @Failure 404 {object} map[string]string "Recipe not found"
// @Security TokenAuth
// @Router /recipes/{id}/favorite [post]
func (h *Handler) Add(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	recipeID, err := recipes.ParseID(c)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	recipe, err := h.svc.Add(c.Request.Context(), userID, recipeID)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	vc := view.Context{ViewerID: &userID, BaseURL: h.cfg.BaseURL}
	c.JSON(http.StatusCreated, recipes.ToShort(vc, *recipe))
}

// Remove unfavorites a recipe
// @Summary Remove from favorites
// @Tags favorites
// @Param id path int true "Recipe ID"
// @Success 204
// @Failure 400 {object} map[string]string "Not favorited"
// @Failure 404 {object} map[string]string "Recipe not found"
// @Security TokenAuth
// @Router /recipes/{id}/favorite [delete]
func (h *Handler) Remove(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	recipeID, err := recipes.ParseID(c)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	if err := h.svc.Remove(c.Request.Context(), userID, recipeID); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers favorite routes on the recipes router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/favorite", auth.AuthMiddleware(), h.Add)
	rg.DELETE("/:id/favorite", auth.AuthMiddleware(), h.Remove)
}
