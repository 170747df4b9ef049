// Package recipes implements the recipe writer and the recipe API.
package recipes

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
	msgNoIngredients        = "Добавьте хотя бы один ингредиент!"
	msgDuplicateIngredients = "Ингредиенты не должны повторяться!"
	msgDuplicateTags        = "Теги должны быть уникальными!"
	msgMinValue             = "Убедитесь, что это значение больше либо равно 1."
)

// IngredientAmount is one line item of a submission
type IngredientAmount struct {
	ID     uint `json:"id" binding:"required"`
	Amount int  `json:"amount"`
}

// RecipeInput is a full recipe submission
type RecipeInput struct {
	Name        string             `json:"name" binding:"required,max=200"`
	Text        string             `json:"text" binding:"required"`
	CookingTime int                `json:"cooking_time"`
	Image       string             `json:"image"`
	Ingredients []IngredientAmount `json:"ingredients" binding:"dive"`
	Tags        []uint             `json:"tags"`
}

// RecipePatch is a partial update. Nil pointers and nil slices are absent fields;
// a present slice replaces the stored set wholesale.
type RecipePatch struct {
	Name        *string            `json:"name" binding:"omitempty,min=1,max=200"`
	Text        *string            `json:"text" binding:"omitempty,min=1"`
	CookingTime *int               `json:"cooking_time"`
	Image       *string            `json:"image"`
	Ingredients []IngredientAmount `json:"ingredients" binding:"omitempty,dive"`
	Tags        []uint             `json:"tags"`
}

// Filter narrows a recipe listing. Zero values disable a filter.
type Filter struct {
	AuthorID    uint
	TagSlugs    []string
	FavoritedBy uint
	InCartOf    uint
}

// Service is the recipe writer
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a new recipe service
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// validateSubmission applies the payload rules in order and returns the first failing rule's errors.
// cookingTime is nil when a patch leaves it untouched.
func validateSubmission(cookingTime *int, items []IngredientAmount, itemsPresent bool, tags []uint) error {
	verr := &apperr.ValidationError{}
	if cookingTime != nil && *cookingTime < 1 {
		verr.Add("cooking_time", msgMinValue)
	}
	for i, item := range items {
		if item.Amount < 1 {
			verr.Add(fmt.Sprintf("ingredients[%d].amount", i), msgMinValue)
		}
	}
	if verr.HasErrors() {
		return verr
	}

	if itemsPresent {
		if len(items) == 0 {
			return apperr.NewValidationError("ingredients", msgNoIngredients)
		}
		seen := make(map[uint]bool, len(items))
		for _, item := range items {
			if seen[item.ID] {
				return apperr.NewValidationError("ingredients",
					fmt.Sprintf("%s Повторяется ингредиент с id %d.", msgDuplicateIngredients, item.ID))
			}
			seen[item.ID] = true
		}
	}

	seenTags := make(map[uint]bool, len(tags))
	for _, id := range tags {
		if seenTags[id] {
			return apperr.NewValidationError("tags",
				fmt.Sprintf("%s Повторяется тег с id %d.", msgDuplicateTags, id))
		}
		seenTags[id] = true
	}
	return nil
}

// checkReferences verifies that every ingredient and tag exists
func checkReferences(tx *gorm.DB, items []IngredientAmount, tags []uint) error {
	if len(items) > 0 {
		ids := make([]uint, len(items))
		for i, item := range items {
			ids[i] = item.ID
		}
		if missing, err := missingIDs(tx, &models.Ingredient{}, ids); err != nil {
			return err
		} else if missing != 0 {
			return apperr.NotFound("ingredient", missing)
		}
	}
	if len(tags) > 0 {
		if missing, err := missingIDs(tx, &models.Tag{}, tags); err != nil {
			return err
		} else if missing != 0 {
			return apperr.NotFound("tag", missing)
		}
	}
	return nil
}

// missingIDs returns the first id with no row in model's table, or 0 when all exist
func missingIDs(tx *gorm.DB, model any, ids []uint) (uint, error) {
	var found []uint
	if err := tx.Model(model).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return 0, err
	}
	present := make(map[uint]bool, len(found))
	for _, id := range found {
		present[id] = true
	}
	for _, id := range ids {
		if !present[id] {
			return id, nil
		}
	}
	return 0, nil
}

func replaceIngredients(tx *gorm.DB, recipeID uint, items []IngredientAmount) error {
	if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeIngredient{}).Error; err != nil {
		return err
	}
	rows := make([]models.RecipeIngredient, len(items))
	for i, item := range items {
		rows[i] = models.RecipeIngredient{RecipeID: recipeID, IngredientID: item.ID, Amount: item.Amount}
	}
	return tx.CreateInBatches(&rows, 100).Error
}

func replaceTags(tx *gorm.DB, recipeID uint, tags []uint) error {
	if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeTag{}).Error; err != nil {
		return err
	}
	if len(tags) == 0 {
		return nil
	}
	rows := make([]models.RecipeTag, len(tags))
	for i, id := range tags {
		rows[i] = models.RecipeTag{RecipeID: recipeID, TagID: id}
	}
	return tx.Create(&rows).Error
}

// Create validates and persists a recipe with its line items and tags in one transaction.
// Nothing is written when validation fails.
func (s *Service) Create(ctx context.Context, authorID uint, in RecipeInput) (*models.Recipe, error) {
	if err := validateSubmission(&in.CookingTime, in.Ingredients, true, in.Tags); err != nil {
		return nil, err
	}

	recipe := models.Recipe{
		AuthorID:    authorID,
		Name:        in.Name,
		Text:        in.Text,
		CookingTime: in.CookingTime,
		Image:       in.Image,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var author models.User
		if err := tx.Select("id").First(&author, authorID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("user", authorID)
			}
			return err
		}
		if err := checkReferences(tx, in.Ingredients, in.Tags); err != nil {
			return err
		}

		if err := tx.Create(&recipe).Error; err != nil {
			return err
		}
		if err := replaceIngredients(tx, recipe.ID, in.Ingredients); err != nil {
			return err
		}
		return replaceTags(tx, recipe.ID, in.Tags)
	})
	if err != nil {
		return nil, fmt.Errorf("create recipe: %w", err)
	}

	s.logger.Info("Recipe created",
		zap.Uint("recipe_id", recipe.ID),
		zap.Uint("author_id", authorID),
		zap.Int("ingredients", len(in.Ingredients)))

	return s.Get(ctx, recipe.ID)
}

// CheckAuthor reports whether the recipe exists and belongs to authorID.
func (s *Service) CheckAuthor(ctx context.Context, recipeID, authorID uint) error {
	_, err := loadOwned(s.db.WithContext(ctx), recipeID, authorID)
	return err
}

func loadOwned(tx *gorm.DB, recipeID, authorID uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := tx.First(&recipe, recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("recipe", recipeID)
		}
		return nil, err
	}
	if recipe.AuthorID != authorID {
		return nil, apperr.ErrForbidden
	}
	return &recipe, nil
}

// Update applies a partial update. Present line items and tags replace the stored sets.
// Existence and authorship are checked before the payload.
func (s *Service) Update(ctx context.Context, recipeID, authorID uint, in RecipePatch) (*models.Recipe, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recipe, err := loadOwned(tx, recipeID, authorID)
		if err != nil {
			return err
		}
		if err := validateSubmission(in.CookingTime, in.Ingredients, in.Ingredients != nil, in.Tags); err != nil {
			return err
		}
		if err := checkReferences(tx, in.Ingredients, in.Tags); err != nil {
			return err
		}

		updates := map[string]any{}
		if in.Name != nil {
			updates["name"] = *in.Name
		}
		if in.Text != nil {
			updates["text"] = *in.Text
		}
		if in.CookingTime != nil {
			updates["cooking_time"] = *in.CookingTime
		}
		if in.Image != nil {
			updates["image"] = *in.Image
		}
		if len(updates) > 0 {
			if err := tx.Model(recipe).Updates(updates).Error; err != nil {
				return err
			}
		}

		if in.Ingredients != nil {
			if err := replaceIngredients(tx, recipe.ID, in.Ingredients); err != nil {
				return err
			}
		}
		if in.Tags != nil {
			if err := replaceTags(tx, recipe.ID, in.Tags); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update recipe %d: %w", recipeID, err)
	}

	return s.Get(ctx, recipeID)
}

// Delete removes a recipe and every row that references it. Only the author may delete.
func (s *Service) Delete(ctx context.Context, recipeID, authorID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recipe, err := loadOwned(tx, recipeID, authorID)
		if err != nil {
			return err
		}

		dependents := []any{
			&models.RecipeIngredient{},
			&models.RecipeTag{},
			&models.Favorite{},
			&models.ShoppingCart{},
			&models.ShortLink{},
		}
		for _, model := range dependents {
			if err := tx.Where("recipe_id = ?", recipeID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(recipe).Error
	})
	if err != nil {
		return fmt.Errorf("delete recipe %d: %w", recipeID, err)
	}

	s.logger.Info("Recipe deleted", zap.Uint("recipe_id", recipeID), zap.Uint("author_id", authorID))
	return nil
}

func preloadAll(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("recipe_ingredients.id ASC") }).
		Preload("Ingredients.Ingredient").
		Preload("RecipeTags.Tag")
}

// Get loads a recipe with its author, line items and tags
func (s *Service) Get(ctx context.Context, recipeID uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := preloadAll(s.db.WithContext(ctx)).First(&recipe, recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("recipe", recipeID)
		}
		return nil, err
	}
	return &recipe, nil
}

// Exists reports whether a recipe with the given id exists
func (s *Service) Exists(ctx context.Context, recipeID uint) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Recipe{}).Where("id = ?", recipeID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (f Filter) scope(db *gorm.DB) *gorm.DB {
	if f.AuthorID != 0 {
		db = db.Where("recipes.author_id = ?", f.AuthorID)
	}
	if len(f.TagSlugs) > 0 {
		db = db.Where("recipes.id IN (?)", db.Session(&gorm.Session{NewDB: true}).
			Model(&models.RecipeTag{}).
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", f.TagSlugs))
	}
	if f.FavoritedBy != 0 {
		db = db.Where("recipes.id IN (?)", db.Session(&gorm.Session{NewDB: true}).
			Model(&models.Favorite{}).Select("recipe_id").Where("user_id = ?", f.FavoritedBy))
	}
	if f.InCartOf != 0 {
		db = db.Where("recipes.id IN (?)", db.Session(&gorm.Session{NewDB: true}).
			Model(&models.ShoppingCart{}).Select("recipe_id").Where("user_id = ?", f.InCartOf))
	}
	return db
}

// List returns one page of recipes matching the filter, newest first, with the total match count
func (s *Service) List(ctx context.Context, f Filter, p pagination.Params) ([]models.Recipe, int64, error) {
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.Recipe{}).Scopes(f.scope).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count recipes: %w", err)
	}

	var list []models.Recipe
	if err := preloadAll(db).Scopes(f.scope, p.Scope).
		Order("recipes.created_at DESC").Order("recipes.id DESC").
		Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("list recipes: %w", err)
	}
	return list, total, nil
}
