package favorites

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/foodgram/foodgram/pkg/foodgram/apperr"
	"github.com/foodgram/foodgram/pkg/foodgram/auth"
	"github.com/foodgram/foodgram/pkg/foodgram/config"
	"github.com/foodgram/foodgram/pkg/foodgram/models"
	"github.com/foodgram/foodgram/pkg/foodgram/recipes"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.AutoMigrate(db))
	return db
}

func seed(t *testing.T, db *gorm.DB) (models.User, models.Recipe) {
	user := models.User{Email: "cook@example.com", Username: "cook", FirstName: "A", LastName: "B"}
	require.NoError(t, db.Create(&user).Error)
	recipe := models.Recipe{AuthorID: user.ID, Name: "Борщ", Text: "Варить", CookingTime: 90}
	require.NoError(t, db.Create(&recipe).Error)
	return user, recipe
}

func TestAddDuplicateIsConflict(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, zap.NewNop())
	user, recipe := seed(t, db)

	_, err := svc.Add(context.Background(), user.ID, recipe.ID)
	require.NoError(t, err)

	_, err = svc.Add(context.Background(), user.ID, recipe.ID)
	var conflict *apperr.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "Рецепт уже добавлен в избранное!", conflict.Message)

	var count int64
	db.Model(&models.Favorite{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestAddUnknownRecipe(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, zap.NewNop())
	user, _ := seed(t, db)

	_, err := svc.Add(context.Background(), user.ID, 999)
	var nf *apperr.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestRemove(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, zap.NewNop())
	user, recipe := seed(t, db)

	err := svc.Remove(context.Background(), user.ID, recipe.ID)
	var conflict *apperr.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "Рецепт не в избранном!", conflict.Message)

	_, err = svc.Add(context.Background(), user.ID, recipe.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Remove(context.Background(), user.ID, recipe.ID))
}

func TestFavoriteRoutes(t *testing.T) {
	db := setupTestDB(t)
	user, recipe := seed(t, db)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := config.Default().Server
	NewHandler(NewService(db, zap.NewNop()), zap.NewNop(), cfg).RegisterRoutes(r.Group("/api/recipes"))

	token, _ := auth.GenerateToken(&user)
	path := fmt.Sprintf("/api/recipes/%d/favorite", recipe.ID)
	do := func(method string) *httptest.ResponseRecorder {
		req, _ := http.NewRequest(method, path, nil)
		req.Header.Set("Authorization", "Token "+token)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		return resp
	}

	resp := do("POST")
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var short recipes.ShortResponse
	json.Unmarshal(resp.Body.Bytes(), &short)
	if short.ID != recipe.ID || short.CookingTime != 90 {
		t.Errorf("Unexpected short recipe: %+v", short)
	}

	if resp := do("POST"); resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 on duplicate, got %d", resp.Code)
	}
	if resp := do("DELETE"); resp.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", resp.Code)
	}
	if resp := do("DELETE"); resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 when not favorited, got %d", resp.Code)
	}
}
