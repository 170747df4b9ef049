// Package subscriptions lets users follow recipe authors.
package subscriptions

import (
	"context"
	"errors"
	"fmt"

	"github.com/foodgram/foodgram/pkg/foodgram/apperr"
	"github.com/foodgram/foodgram/pkg/foodgram/models"
	"github.com/foodgram/foodgram/pkg/foodgram/pagination"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	msgSelfSubscribe     = "Нельзя подписаться на самого себя"
	msgAlreadySubscribed = "Вы уже подписаны на этого пользователя"
	msgNotSubscribed     = "Вы не подписаны на этого пользователя"
)

// Service manages subscriptions
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a new subscriptions service
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

func (s *Service) loadAuthor(ctx context.Context, authorID uint) (*models.User, error) {
	var author models.User
	if err := s.db.WithContext(ctx).First(&author, authorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user", authorID)
		}
		return nil, err
	}
	return &author, nil
}

// Subscribe makes userID follow authorID and returns the author.
// Following yourself is rejected before anything is written.
func (s *Service) Subscribe(ctx context.Context, userID, authorID uint) (*models.User, error) {
	if userID == authorID {
		return nil, apperr.Conflict(msgSelfSubscribe)
	}

	author, err := s.loadAuthor(ctx, authorID)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(&models.Subscription{UserID: userID, AuthorID: authorID}).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict(msgAlreadySubscribed)
		}
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	s.logger.Debug("Subscribed", zap.Uint("user_id", userID), zap.Uint("author_id", authorID))
	return author, nil
}

// Unsubscribe removes the subscription of userID to authorID
func (s *Service) Unsubscribe(ctx context.Context, userID, authorID uint) error {
	if _, err := s.loadAuthor(ctx, authorID); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Where("user_id = ? AND author_id = ?", userID, authorID).Delete(&models.Subscription{})
	if result.Error != nil {
		return fmt.Errorf("unsubscribe: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.Conflict(msgNotSubscribed)
	}
	return nil
}

// Authors returns one page of the authors userID follows, most recent subscription first
func (s *Service) Authors(ctx context.Context, userID uint, p pagination.Params) ([]models.User, int64, error) {
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.Subscription{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count subscriptions: %w", err)
	}

	var authors []models.User
	err := db.Select("users.*").
		Joins("JOIN subscriptions ON subscriptions.author_id = users.id").
		Where("subscriptions.user_id = ?", userID).
		Order("subscriptions.id DESC").
		Scopes(p.Scope).
		Find(&authors).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list subscriptions: %w", err)
	}
	return authors, total, nil
}

// AuthorRecipes returns up to limit newest recipes per author (all when limit <= 0)
// and the total recipe count per author.
func (s *Service) AuthorRecipes(ctx context.Context, authorIDs []uint, limit int) (map[uint][]models.Recipe, map[uint]int64, error) {
	recipes := make(map[uint][]models.Recipe, len(authorIDs))
	counts := make(map[uint]int64, len(authorIDs))
	if len(authorIDs) == 0 {
		return recipes, counts, nil
	}
	db := s.db.WithContext(ctx)

	var rows []struct {
		AuthorID uint
		Total    int64
	}
	if err := db.Model(&models.Recipe{}).
		Select("author_id, COUNT(*) AS total").
		Where("author_id IN ?", authorIDs).
		Group("author_id").
		Scan(&rows).Error; err != nil {
		return nil, nil, fmt.Errorf("count author recipes: %w", err)
	}
	for _, row := range rows {
		counts[row.AuthorID] = row.Total
	}

	for _, authorID := range authorIDs {
		q := db.Where("author_id = ?", authorID).Order("created_at DESC").Order("id DESC")
		if limit > 0 {
			q = q.Limit(limit)
		}
		var list []models.Recipe
		if err := q.Find(&list).Error; err != nil {
			return nil, nil, fmt.Errorf("load author recipes: %w", err)
		}
		recipes[authorID] = list
	}
	return recipes, counts, nil
}
