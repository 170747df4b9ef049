package subscriptions

import (
	"context"
	"net/http"
	"strconv"

	"github.com/foodgram/foodgram/pkg/foodgram/apperr"
	"github.com/foodgram/foodgram/pkg/foodgram/auth"
	"github.com/foodgram/foodgram/pkg/foodgram/config"
	"github.com/foodgram/foodgram/pkg/foodgram/models"
	"github.com/foodgram/foodgram/pkg/foodgram/pagination"
	"github.com/foodgram/foodgram/pkg/foodgram/recipes"
	"github.com/foodgram/foodgram/pkg/foodgram/users"
	"github.com/foodgram/foodgram/pkg/foodgram/view"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler handles subscription requests
type Handler struct {
	db     *gorm.DB
	svc    *Service
	logger *zap.Logger
	cfg    config.ServerConfig
}

// NewHandler creates a new subscriptions handler
func NewHandler(db *gorm.DB, svc *Service, logger *zap.Logger, cfg config.ServerConfig) *Handler {
	return &Handler{db: db, svc: svc, logger: logger, cfg: cfg}
}

// SubscriptionResponse is an author rendered with a preview of their recipes
type SubscriptionResponse struct {
	users.UserResponse
	Recipes      []recipes.ShortResponse `json:"recipes"`
	RecipesCount int64                   `json:"recipes_count"`
}

func recipesLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("recipes_limit"))
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

func (h *Handler) render(ctx context.Context, vc view.Context, authors []models.User, limit int) ([]SubscriptionResponse, error) {
	rendered, err := users.RenderMany(ctx, h.db, vc, authors)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, len(authors))
	for i, a := range authors {
		ids[i] = a.ID
	}
	byAuthor, counts, err := h.svc.AuthorRecipes(ctx, ids, limit)
	if err != nil {
		return nil, err
	}

	responses := make([]SubscriptionResponse, len(authors))
	for i, a := range authors {
		short := make([]recipes.ShortResponse, 0, len(byAuthor[a.ID]))
		for _, r := range byAuthor[a.ID] {
			short = append(short, recipes.ToShort(vc, r))
		}
		responses[i] = SubscriptionResponse{
			UserResponse: rendered[i],
			Recipes:      short,
			RecipesCount: counts[a.ID],
		}
	}
	return responses, nil
}

func parseUserID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, apperr.NotFound("user", c.Param("id"))
	}
	return uint(id), nil
}

// Subscribe follows an author
// @Summary Subscribe to an author
// @Tags subscriptions
// @Produce json
// @Param id path int true "Author ID"
// @Param recipes_limit query int false "Recipes shown per author"
// @Success 201 {object} SubscriptionResponse
// @Failure 400 {object} map[string]string "Already subscribed or self-subscription"
// @Failure 404 {object} map[string]string "Author not found"
// @Security TokenAuth
// @Router /users/{id}/subscribe [post]
func (h *Handler) Subscribe(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	authorID, err := parseUserID(c)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	ctx := c.Request.Context()
	author, err := h.svc.Subscribe(ctx, userID, authorID)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	vc := view.Context{ViewerID: &userID, BaseURL: h.cfg.BaseURL}
	responses, err := h.render(ctx, vc, []models.User{*author}, recipesLimit(c))
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, responses[0])
}

// Unsubscribe stops following an author
// @Summary Unsubscribe from an author
// @Tags subscriptions
// @Param id path int true "Author ID"
// @Success 204
// @Failure 400 {object} map[string]string "Not subscribed"
// @Failure 404 {object} map[string]string "Author not found"
// @Security TokenAuth
// @Router /users/{id}/subscribe [delete]
func (h *Handler) Unsubscribe(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	authorID, err := parseUserID(c)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	if err := h.svc.Unsubscribe(c.Request.Context(), userID, authorID); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// List returns the authors the caller follows
// @Summary List subscriptions
// @Tags subscriptions
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param recipes_limit query int false "Recipes shown per author"
// @Success 200 {object} pagination.Page[SubscriptionResponse]
// @Security TokenAuth
// @Router /users/subscriptions [get]
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	ctx := c.Request.Context()
	p := pagination.FromRequest(c, h.cfg.PageSize)

	authors, total, err := h.svc.Authors(ctx, userID, p)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	vc := view.Context{ViewerID: &userID, BaseURL: h.cfg.BaseURL}
	responses, err := h.render(ctx, vc, authors, recipesLimit(c))
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pagination.NewPage(c, p, total, responses))
}

// RegisterRoutes registers subscription routes on the users router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/subscriptions", auth.AuthMiddleware(), h.List)
	rg.POST("/:id/subscribe", auth.AuthMiddleware(), h.Subscribe)
	rg.DELETE("/:id/subscribe", auth.AuthMiddleware(), h.Unsubscribe)
}
