package shopping

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

// Filename is the name offered to the client for the downloaded list
const Filename = "shopping_cart.txt"

// Handler handles cart and shopping list requests
type Handler struct {
	svc    *Service
	logger *zap.Logger
	cfg    config.ServerConfig
}

// NewHandler creates a new shopping handler
func NewHandler(svc *Service, logger *zap.Logger, cfg config.ServerConfig) *Handler {
	return &Handler{svc: svc, logger: logger, cfg: cfg}
}

// Add places a recipe in the cart
// @Summary Add to shopping cart
// @Tags shopping
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 201 {object} recipes.ShortResponse
// @Failure 400 {object} map[string]string "Already in cart"
// @Failure 404 {object} map[string]string "Recipe not found"
// @Security TokenAuth
// @Router /recipes/{id}/shopping_cart [post]
func (h *Handler) Add(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	recipeID, err := recipes.ParseID(c)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	recipe, err := h.svc.AddToCart(c.Request.Context(), userID, recipeID)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	vc := view.Context{ViewerID: &userID, BaseURL: h.cfg.BaseURL}
	c.JSON(http.StatusCreated, recipes.ToShort(vc, *recipe))
}

// Remove takes a recipe out of the cart
// @Summary Remove from shopping cart
// @Tags shopping
// @Param id path int true "Recipe ID"
// @Success 204
// @Failure 400 {object} map[string]string "Not in cart"
// @Failure 404 {object} map[string]string "Recipe not found"
// @Security TokenAuth
// @Router /recipes/{id}/shopping_cart [delete]
func (h *Handler) Remove(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	recipeID, err := recipes.ParseID(c)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	if err := h.svc.RemoveFromCart(c.Request.Context(), userID, recipeID); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Download returns the aggregated shopping list as a text attachment
// @Summary Download shopping list
// @Description Sums the ingredients of every recipe in the cart
// @Tags shopping
// @Produce plain
// @Success 200 {string} string "Shopping list"
// @Failure 400 {object} map[string]string "Cart is empty"
// @Security TokenAuth
// @Router /recipes/download_shopping_cart [get]
func (h *Handler) Download(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	list, err := h.svc.BuildShoppingList(c.Request.Context(), userID)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+Filename+`"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(list))
}

// RegisterRoutes registers cart routes on the recipes router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/download_shopping_cart", auth.AuthMiddleware(), h.Download)
	rg.POST("/:id/shopping_cart", auth.AuthMiddleware(), h.Add)
	rg.DELETE("/:id/shopping_cart", auth.AuthMiddleware(), h.Remove)
}
