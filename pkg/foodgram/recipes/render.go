package recipes

import (
	"context"

	"github.com/foodgram/foodgram/pkg/foodgram/models"
	"github.com/foodgram/foodgram/pkg/foodgram/users"
	"github.com/foodgram/foodgram/pkg/foodgram/view"
	"gorm.io/gorm"
)

// TagResponse represents a tag in API responses
type TagResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Slug  string `json:"slug"`
}

// IngredientLine is a line item rendered with its ingredient
type IngredientLine struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

// RecipeResponse is the full recipe representation
type RecipeResponse struct {
	ID               uint               `json:"id"`
	Tags             []TagResponse      `json:"tags"`
	Author           users.UserResponse `json:"author"`
	Ingredients      []IngredientLine   `json:"ingredients"`
	IsFavorited      bool               `json:"is_favorited"`
	IsInShoppingCart bool               `json:"is_in_shopping_cart"`
	Name             string             `json:"name"`
	Image            string             `json:"image"`
	Text             string             `json:"text"`
	CookingTime      int                `json:"cooking_time"`
}

// ShortResponse is the compact representation used by favorites, cart and subscriptions
type ShortResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

// ToShort renders the compact representation of a recipe
func ToShort(vc view.Context, r models.Recipe) ShortResponse {
	return ShortResponse{
		ID:          r.ID,
		Name:        r.Name,
		Image:       vc.AbsoluteURL(r.Image),
		CookingTime: r.CookingTime,
	}
}

// viewerFlags holds the per-viewer lookups for a batch of recipes
type viewerFlags struct {
	favorited  map[uint]bool
	inCart     map[uint]bool
	subscribed map[uint]bool
}

func loadViewerFlags(ctx context.Context, db *gorm.DB, vc view.Context, list []models.Recipe) (viewerFlags, error) {
	flags := viewerFlags{favorited: map[uint]bool{}, inCart: map[uint]bool{}}

	recipeIDs := make([]uint, len(list))
	authorIDs := make([]uint, len(list))
	for i, r := range list {
		recipeIDs[i] = r.ID
		authorIDs[i] = r.AuthorID
	}

	subscribed, err := users.SubscribedTo(ctx, db, vc, authorIDs)
	if err != nil {
		return flags, err
	}
	flags.subscribed = subscribed

	if !vc.Authenticated() || len(list) == 0 {
		return flags, nil
	}

	lookups := []struct {
		model any
		into  map[uint]bool
	}{
		{&models.Favorite{}, flags.favorited},
		{&models.ShoppingCart{}, flags.inCart},
	}
	for _, l := range lookups {
		var ids []uint
		if err := db.WithContext(ctx).Model(l.model).
			Where("user_id = ? AND recipe_id IN ?", vc.Viewer(), recipeIDs).
			Pluck("recipe_id", &ids).Error; err != nil {
			return flags, err
		}
		for _, id := range ids {
			l.into[id] = true
		}
	}
	return flags, nil
}

func toResponse(vc view.Context, r models.Recipe, flags viewerFlags) RecipeResponse {
	tags := make([]TagResponse, 0, len(r.RecipeTags))
	for _, t := range r.TagList() {
		tags = append(tags, TagResponse{ID: t.ID, Name: t.Name, Color: t.Color, Slug: t.Slug})
	}

	lines := make([]IngredientLine, 0, len(r.Ingredients))
	for _, item := range r.Ingredients {
		lines = append(lines, IngredientLine{
			ID:              item.IngredientID,
			Name:            item.Ingredient.Name,
			MeasurementUnit: item.Ingredient.MeasurementUnit,
			Amount:          item.Amount,
		})
	}

	return RecipeResponse{
		ID:               r.ID,
		Tags:             tags,
		Author:           users.ToResponse(vc, r.Author, flags.subscribed[r.AuthorID]),
		Ingredients:      lines,
		IsFavorited:      flags.favorited[r.ID],
		IsInShoppingCart: flags.inCart[r.ID],
		Name:             r.Name,
		Image:            vc.AbsoluteURL(r.Image),
		Text:             r.Text,
		CookingTime:      r.CookingTime,
	}
}

// Render renders a fully preloaded recipe for the viewer
func Render(ctx context.Context, db *gorm.DB, vc view.Context, r models.Recipe) (RecipeResponse, error) {
	list, err := RenderMany(ctx, db, vc, []models.Recipe{r})
	if err != nil {
		return RecipeResponse{}, err
	}
	return list[0], nil
}

// RenderMany renders preloaded recipes with one lookup per viewer flag
func RenderMany(ctx context.Context, db *gorm.DB, vc view.Context, list []models.Recipe) ([]RecipeResponse, error) {
	flags, err := loadViewerFlags(ctx, db, vc, list)
	if err != nil {
		return nil, err
	}
	responses := make([]RecipeResponse, len(list))
	for i, r := range list {
		responses[i] = toResponse(vc, r, flags)
	}
	return responses, nil
}
