package models

import "time"

// ShortLink maps a compact identifier to a recipe. At most one row exists per recipe.
type ShortLink struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ShortID   string    `gorm:"uniqueIndex;size:10;not null" json:"short_id"`
	RecipeID  uint      `gorm:"uniqueIndex;not null" json:"recipe_id"`

	// Relationships
	Recipe Recipe `gorm:"foreignKey:RecipeID" json:"-"`
}
