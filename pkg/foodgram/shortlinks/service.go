// Package shortlinks maps recipes to compact, stable short identifiers.
package shortlinks

import (
	"context"
	"errors"
	"fmt"

	"github.com/foodgram/foodgram/pkg/foodgram/apperr"
	"github.com/foodgram/foodgram/pkg/foodgram/config"
	"github.com/foodgram/foodgram/pkg/foodgram/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service generates and resolves short links
type Service struct {
	db          *gorm.DB
	logger      *zap.Logger
	maxAttempts int
	next        func(attempt int, recipeID uint) (string, error)
}

// NewService creates a new short link service
func NewService(db *gorm.DB, logger *zap.Logger, cfg config.ShortLinkConfig) *Service {
	return &Service{
		db:          db,
		logger:      logger,
		maxAttempts: cfg.MaxAttempts,
		next:        defaultCandidate(cfg.Length),
	}
}

func (s *Service) lookupByRecipe(ctx context.Context, recipeID uint) (string, bool, error) {
	var link models.ShortLink
	err := s.db.WithContext(ctx).Where("recipe_id = ?", recipeID).Limit(1).Find(&link).Error
	if err != nil {
		return "", false, err
	}
	return link.ShortID, link.ID != 0, nil
}

// GetOrCreate returns the recipe's short id, creating one on first use.
// At most maxAttempts candidates are tried; a concurrent writer that created the
// row first wins and its short id is returned.
func (s *Service) GetOrCreate(ctx context.Context, recipeID uint) (string, error) {
	if shortID, ok, err := s.lookupByRecipe(ctx, recipeID); err != nil {
		return "", fmt.Errorf("lookup short link: %w", err)
	} else if ok {
		return shortID, nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Recipe{}).Where("id = ?", recipeID).Count(&count).Error; err != nil {
		return "", err
	}
	if count == 0 {
		return "", apperr.NotFound("recipe", recipeID)
	}

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		shortID, err := s.next(attempt, recipeID)
		if err != nil {
			return "", fmt.Errorf("generate short id: %w", err)
		}

		var taken int64
		if err := s.db.WithContext(ctx).Model(&models.ShortLink{}).Where("short_id = ?", shortID).Count(&taken).Error; err != nil {
			return "", fmt.Errorf("check short id: %w", err)
		}
		if taken > 0 {
			continue
		}

		err = s.db.WithContext(ctx).Create(&models.ShortLink{ShortID: shortID, RecipeID: recipeID}).Error
		if err == nil {
			s.logger.Info("Short link created",
				zap.Uint("recipe_id", recipeID),
				zap.String("short_id", shortID),
				zap.Int("attempts", attempt+1))
			return shortID, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", fmt.Errorf("create short link: %w", err)
		}

		// Either another request created this recipe's link or the short id was taken meanwhile
		if existing, ok, lookupErr := s.lookupByRecipe(ctx, recipeID); lookupErr != nil {
			return "", fmt.Errorf("lookup short link: %w", lookupErr)
		} else if ok {
			return existing, nil
		}
	}

	s.logger.Warn("Short link generation exhausted",
		zap.Uint("recipe_id", recipeID),
		zap.Int("attempts", s.maxAttempts))
	return "", apperr.ErrGenerationExhausted
}

// Resolve returns the recipe id a short id points to
func (s *Service) Resolve(ctx context.Context, shortID string) (uint, error) {
	var link models.ShortLink
	if err := s.db.WithContext(ctx).Where("short_id = ?", shortID).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperr.NotFound("short link", shortID)
		}
		return 0, err
	}
	return link.RecipeID, nil
}
