package models

import "time"

// SystemRole represents a user's system-wide role
type SystemRole string

const (
	SystemRoleAdmin SystemRole = "admin"
	SystemRoleUser  SystemRole = "user"
)

// User represents a registered account. Users author recipes and own their
// favorites, cart rows and subscriptions.
type User struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Email        string     `gorm:"uniqueIndex;size:254;not null" json:"email"`
	Username     string     `gorm:"uniqueIndex;size:150;not null" json:"username"`
	FirstName    string     `gorm:"size:150;not null" json:"first_name"`
	LastName     string     `gorm:"size:150;not null" json:"last_name"`
	PasswordHash string     `json:"-"`
	Avatar       string     `json:"avatar,omitempty"` // Stored reference (path or URL), never decoded
	SystemRole   SystemRole `gorm:"type:varchar(20);default:'user'" json:"system_role"`

	// Relationships
	Recipes []Recipe `gorm:"foreignKey:AuthorID" json:"recipes,omitempty"`
}

// IsAdmin reports whether the user holds the admin system role
func (u User) IsAdmin() bool {
	return u.SystemRole == SystemRoleAdmin
}
