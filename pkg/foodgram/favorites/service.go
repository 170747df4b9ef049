// Package favorites lets users mark recipes as favorites.
package favorites

import (
	"context"
	"errors"
	"fmt"

	"github.com/foodgram/foodgram/pkg/foodgram/apperr"
	"github.com/foodgram/foodgram/pkg/foodgram/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	msgAlreadyFavorited = "Рецепт уже добавлен в избранное!"
	msgNotFavorited     = "Рецепт не в избранном!"
)

// Service manages favorite rows. The unique index on (user, recipe) is the
// only duplicate check.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a new favorites service
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

func loadRecipe(ctx context.Context, db *gorm.DB, recipeID uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := db.WithContext(ctx).First(&recipe, recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("recipe", recipeID)
		}
		return nil, err
	}
	return &recipe, nil
}

// Add favorites a recipe and returns it
func (s *Service) Add(ctx context.Context, userID, recipeID uint) (*models.Recipe, error) {
	recipe, err := loadRecipe(ctx, s.db, recipeID)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(&models.Favorite{UserID: userID, RecipeID: recipeID}).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict(msgAlreadyFavorited)
		}
		return nil, fmt.Errorf("add favorite: %w", err)
	}

	s.logger.Debug("Recipe favorited", zap.Uint("user_id", userID), zap.Uint("recipe_id", recipeID))
	return recipe, nil
}

// Remove unfavorites a recipe
func (s *Service) Remove(ctx context.Context, userID, recipeID uint) error {
	if _, err := loadRecipe(ctx, s.db, recipeID); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Where("user_id = ? AND recipe_id = ?", userID, recipeID).Delete(&models.Favorite{})
	if result.Error != nil {
		return fmt.Errorf("remove favorite: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.Conflict(msgNotFavorited)
	}
	return nil
}
