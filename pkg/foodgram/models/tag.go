package models

// Tag represents a tag that can be applied to recipes
type Tag struct {
	ID    uint   `gorm:"primarykey" json:"id"`
	Name  string `gorm:"uniqueIndex;size:200;not null" json:"name"`
	Color string `gorm:"size:7;not null" json:"color"` // Hex, e.g. "#E26C2D"
	Slug  string `gorm:"uniqueIndex;size:200;not null" json:"slug"`
}
