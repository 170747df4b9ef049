package users

import (
	"context"

	"github.com/foodgram/foodgram/pkg/foodgram/models"
	"github.com/foodgram/foodgram/pkg/foodgram/view"
	"gorm.io/gorm"
)

// UserResponse is the public representation of a user
type UserResponse struct {
	Email        string `json:"email"`
	ID           uint   `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	IsSubscribed bool   `json:"is_subscribed"`
	Avatar       string `json:"avatar,omitempty"`
}

// CreatedUserResponse is returned by registration; it has no viewer-dependent fields
type CreatedUserResponse struct {
	Email     string `json:"email"`
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// SubscribedTo returns the subset of authorIDs the viewer follows.
// Anonymous viewers follow nobody.
func SubscribedTo(ctx context.Context, db *gorm.DB, vc view.Context, authorIDs []uint) (map[uint]bool, error) {
	result := make(map[uint]bool, len(authorIDs))
	if !vc.Authenticated() || len(authorIDs) == 0 {
		return result, nil
	}

	var ids []uint
	if err := db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND author_id IN ?", vc.Viewer(), authorIDs).
		Pluck("author_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}

// ToResponse renders a user given a precomputed subscription flag
func ToResponse(vc view.Context, user models.User, subscribed bool) UserResponse {
	return UserResponse{
		Email:        user.Email,
		ID:           user.ID,
		Username:     user.Username,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		IsSubscribed: subscribed,
		Avatar:       vc.AbsoluteURL(user.Avatar),
	}
}

// Render renders a single user for the viewer
func Render(ctx context.Context, db *gorm.DB, vc view.Context, user models.User) (UserResponse, error) {
	subscribed, err := SubscribedTo(ctx, db, vc, []uint{user.ID})
	if err != nil {
		return UserResponse{}, err
	}
	return ToResponse(vc, user, subscribed[user.ID]), nil
}

// RenderMany renders users with a single subscription lookup
func RenderMany(ctx context.Context, db *gorm.DB, vc view.Context, list []models.User) ([]UserResponse, error) {
	ids := make([]uint, len(list))
	for i, u := range list {
		ids[i] = u.ID
	}
	subscribed, err := SubscribedTo(ctx, db, vc, ids)
	if err != nil {
		return nil, err
	}

	responses := make([]UserResponse, len(list))
	for i, u := range list {
		responses[i] = ToResponse(vc, u, subscribed[u.ID])
	}
	return responses, nil
}
