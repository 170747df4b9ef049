package shortlinks

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/foodgram/foodgram/pkg/foodgram/apperr"
	"github.com/foodgram/foodgram/pkg/foodgram/config"
	"github.com/foodgram/foodgram/pkg/foodgram/recipes"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler serves short link creation and redirects
type Handler struct {
	svc    *Service
	logger *zap.Logger
	cfg    config.ServerConfig
}

// NewHandler creates a new short link handler
func NewHandler(svc *Service, logger *zap.Logger, cfg config.ServerConfig) *Handler {
	return &Handler{svc: svc, logger: logger, cfg: cfg}
}

// LinkResponse carries the absolute short URL
type LinkResponse struct {
	ShortLink string `json:"short-link"`
}

// GetLink returns the recipe's short URL, creating it on first use
// @Summary Get a short link
// @Tags recipes
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 200 {object} LinkResponse
// @Failure 404 {object} map[string]string "Recipe not found"
// @Failure 503 {object} map[string]string "No free short id, retry"
// @Router /recipes/{id}/get-link [get]
func (h *Handler) GetLink(c *gin.Context) {
	recipeID, err := recipes.ParseID(c)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	shortID, err := h.svc.GetOrCreate(c.Request.Context(), recipeID)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, LinkResponse{
		ShortLink: strings.TrimRight(h.cfg.BaseURL, "/") + "/s/" + shortID,
	})
}

// Redirect sends the client to the recipe page behind a short id
// @Summary Follow a short link
// @Tags recipes
// @Param short_id path string true "Short ID"
// @Success 302
// @Failure 404 {object} map[string]string "Unknown short id"
// @Router /s/{short_id} [get]
func (h *Handler) Redirect(c *gin.Context) {
	recipeID, err := h.svc.Resolve(c.Request.Context(), c.Param("short_id"))
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/recipes/%d/", recipeID))
}

// RegisterRoutes registers get-link on the recipes router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/get-link", h.GetLink)
}

// RegisterRedirect registers the public /s/:short_id route with optional extra middleware
func (h *Handler) RegisterRedirect(r gin.IRoutes, middleware ...gin.HandlerFunc) {
	handlers := append(middleware, h.Redirect)
	r.GET("/s/:short_id", handlers...)
}
