package models

import "time"

// Recipe is a published recipe. Line items and tag links belong to it and are
// replaced wholesale when the recipe is updated.
type Recipe struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	AuthorID    uint      `gorm:"not null;index" json:"author_id"`
	Name        string    `gorm:"size:200;not null" json:"name"`
	Text        string    `gorm:"not null" json:"text"`
	CookingTime int       `gorm:"not null;check:cooking_time >= 1" json:"cooking_time"`
	Image       string    `json:"image"`

	// Relationships
	Author      User               `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Ingredients []RecipeIngredient `gorm:"foreignKey:RecipeID" json:"ingredients,omitempty"`
	RecipeTags  []RecipeTag        `gorm:"foreignKey:RecipeID" json:"-"`
}

// TagList flattens the preloaded RecipeTags into their tags
func (r Recipe) TagList() []Tag {
	tags := make([]Tag, 0, len(r.RecipeTags))
	for _, rt := range r.RecipeTags {
		tags = append(tags, rt.Tag)
	}
	return tags
}

// RecipeIngredient is a line item: an amount of one ingredient in one recipe
type RecipeIngredient struct {
	ID           uint `gorm:"primarykey" json:"id"`
	RecipeID     uint `gorm:"not null;index" json:"recipe_id"`
	IngredientID uint `gorm:"not null;index" json:"ingredient_id"`
	Amount       int  `gorm:"not null;check:amount >= 1" json:"amount"`

	// Relationships
	Ingredient Ingredient `gorm:"foreignKey:IngredientID" json:"ingredient,omitempty"`
}

// RecipeTag is the explicit join row between a recipe and a tag
type RecipeTag struct {
	RecipeID uint `gorm:"primaryKey" json:"recipe_id"`
	TagID    uint `gorm:"primaryKey;index" json:"tag_id"`

	// Relationships
	Tag Tag `gorm:"foreignKey:TagID" json:"tag,omitempty"`
}
