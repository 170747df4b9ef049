package recipes

import (
	"net/http"
	"strconv"

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

// Handler handles recipe CRUD requests
type Handler struct {
	db     *gorm.DB
	svc    *Service
	logger *zap.Logger
	cfg    config.ServerConfig
}

// NewHandler creates a new recipes handler
func NewHandler(db *gorm.DB, svc *Service, logger *zap.Logger, cfg config.ServerConfig) *Handler {
	return &Handler{db: db, svc: svc, logger: logger, cfg: cfg}
}

func (h *Handler) viewContext(c *gin.Context) view.Context {
	return view.Context{ViewerID: auth.Viewer(c), BaseURL: h.cfg.BaseURL}
}

// ParseID reads the :id path parameter. A malformed id is reported as not found.
func ParseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, apperr.NotFound("recipe", c.Param("id"))
	}
	return uint(id), nil
}

func truthy(v string) bool {
	return v == "1" || v == "true"
}

// List returns recipes, newest first
// @Summary List recipes
// @Description Paginated recipe list with optional filters
// @Tags recipes
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param author query int false "Author ID"
// @Param tags query []string false "Tag slugs" collectionFormat(multi)
// @Param is_favorited query int false "Only favorites of the caller (1)"
// @Param is_in_shopping_cart query int false "Only recipes in the caller's cart (1)"
// @Success 200 {object} pagination.Page[RecipeResponse]
// @Router /recipes [get]
func (h *Handler) List(c *gin.Context) {
	ctx := c.Request.Context()
	vc := h.viewContext(c)
	p := pagination.FromRequest(c, h.cfg.PageSize)

	var f Filter
	if author, err := strconv.ParseUint(c.Query("author"), 10, 32); err == nil {
		f.AuthorID = uint(author)
	}
	f.TagSlugs = c.QueryArray("tags")
	// Viewer-relative filters are ignored for anonymous callers
	if vc.Authenticated() {
		if truthy(c.Query("is_favorited")) {
			f.FavoritedBy = vc.Viewer()
		}
		if truthy(c.Query("is_in_shopping_cart")) {
			f.InCartOf = vc.Viewer()
		}
	}

	list, total, err := h.svc.List(ctx, f, p)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	responses, err := RenderMany(ctx, h.db, vc, list)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pagination.NewPage(c, p, total, responses))
}

// Get returns a single recipe
// @Summary Get a recipe
// @Tags recipes
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 200 {object} RecipeResponse
// @Failure 404 {object} map[string]string "Recipe not found"
// @Router /recipes/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, err := ParseID(c)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	recipe, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	h.respond(c, http.StatusOK, *recipe)
}

// Create publishes a new recipe
// @Summary Create a recipe
// @Tags recipes
// @Accept json
// @Produce json
// @Param request body RecipeInput true "Recipe"
// @Success 201 {object} RecipeResponse
// @Failure 400 {object} map[string][]string "Validation error"
// @Failure 404 {object} map[string]string "Unknown ingredient or tag"
// @Security TokenAuth
// @Router /recipes [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req RecipeInput
	if err := validation.BindJSON(c, &req); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	recipe, err := h.svc.Create(c.Request.Context(), userID, req)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	h.respond(c, http.StatusCreated, *recipe)
}

// Update partially updates a recipe; the caller must be its author
// @Summary Update a recipe
// @Description Present ingredients and tags replace the stored sets. ingredients is required.
// @Tags recipes
// @Accept json
// @Produce json
// @Param id path int true "Recipe ID"
// @Param request body RecipePatch true "Fields to change"
// @Success 200 {object} RecipeResponse
// @Failure 400 {object} map[string][]string "Validation error"
// @Failure 403 {object} map[string]string "Not the author"
// @Failure 404 {object} map[string]string "Recipe not found"
// @Security TokenAuth
// @Router /recipes/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, err := ParseID(c)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	if err := h.svc.CheckAuthor(c.Request.Context(), id, userID); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	var req RecipePatch
	if err := validation.BindJSON(c, &req); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	if req.Ingredients == nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": "Поле ingredients является обязательным"})
		return
	}

	recipe, err := h.svc.Update(c.Request.Context(), id, userID, req)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	h.respond(c, http.StatusOK, *recipe)
}

// Delete removes a recipe; the caller must be its author
// @Summary Delete a recipe
// @Tags recipes
// @Param id path int true "Recipe ID"
// @Success 204
// @Failure 403 {object} map[string]string "Not the author"
// @Failure 404 {object} map[string]string "Recipe not found"
// @Security TokenAuth
// @Router /recipes/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, err := ParseID(c)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id, userID); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) respond(c *gin.Context, status int, recipe models.Recipe) {
	response, err := Render(c.Request.Context(), h.db, h.viewContext(c), recipe)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(status, response)
}

// RegisterRoutes registers recipe routes on the given router group.
// The group is expected to run auth.OptionalAuth.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("", auth.AuthMiddleware(), h.Create)
	rg.PATCH("/:id", auth.AuthMiddleware(), h.Update)
	rg.DELETE("/:id", auth.AuthMiddleware(), h.Delete)
}
