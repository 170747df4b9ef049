// Package shopping manages the shopping cart and aggregates it into a shopping list.
package shopping

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/foodgram/foodgram/pkg/foodgram/apperr"
	"github.com/foodgram/foodgram/pkg/foodgram/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	listHeader = "Список покупок:\n\n"

	msgAlreadyInCart = "Рецепт уже добавлен в список покупок!"
	msgNotInCart     = "Рецепт не в списке покупок!"
)

// Item is one aggregated shopping list line
type Item struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int64  `json:"amount"`
}

// Service manages cart rows and builds shopping lists
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a new shopping service
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

func (s *Service) loadRecipe(ctx context.Context, recipeID uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("recipe", recipeID)
		}
		return nil, err
	}
	return &recipe, nil
}

// AddToCart places a recipe in the user's cart and returns it
func (s *Service) AddToCart(ctx context.Context, userID, recipeID uint) (*models.Recipe, error) {
	recipe, err := s.loadRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(&models.ShoppingCart{UserID: userID, RecipeID: recipeID}).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict(msgAlreadyInCart)
		}
		return nil, fmt.Errorf("add to cart: %w", err)
	}
	return recipe, nil
}

// RemoveFromCart takes a recipe out of the user's cart
func (s *Service) RemoveFromCart(ctx context.Context, userID, recipeID uint) error {
	if _, err := s.loadRecipe(ctx, recipeID); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Where("user_id = ? AND recipe_id = ?", userID, recipeID).Delete(&models.ShoppingCart{})
	if result.Error != nil {
		return fmt.Errorf("remove from cart: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.Conflict(msgNotInCart)
	}
	return nil
}

// Aggregate sums the line items of every recipe in the user's cart,
// grouped by (ingredient name, measurement unit) and ordered by name.
func (s *Service) Aggregate(ctx context.Context, userID uint) ([]Item, error) {
	var items []Item
	err := s.db.WithContext(ctx).
		Table("shopping_carts").
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(recipe_ingredients.amount) AS amount").
		Joins("JOIN recipe_ingredients ON recipe_ingredients.recipe_id = shopping_carts.recipe_id").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Where("shopping_carts.user_id = ?", userID).
		Group("ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name ASC, ingredients.measurement_unit ASC").
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate shopping list: %w", err)
	}
	if len(items) == 0 {
		return nil, apperr.ErrEmptyCart
	}
	return items, nil
}

// Render formats aggregated items as the downloadable text document
func Render(items []Item) string {
	var b strings.Builder
	b.WriteString(listHeader)
	for _, item := range items {
		fmt.Fprintf(&b, "%s (%s) — %d\n", item.Name, item.MeasurementUnit, item.Amount)
	}
	return b.String()
}

// BuildShoppingList returns the rendered shopping list for the user's cart
func (s *Service) BuildShoppingList(ctx context.Context, userID uint) (string, error) {
	items, err := s.Aggregate(ctx, userID)
	if err != nil {
		return "", err
	}

	s.logger.Debug("Shopping list built", zap.Uint("user_id", userID), zap.Int("lines", len(items)))
	return Render(items), nil
}
