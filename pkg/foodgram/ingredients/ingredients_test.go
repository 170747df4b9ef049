package ingredients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/foodgram/foodgram/pkg/foodgram/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	models.AutoMigrate(db)
	return db
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(db, zap.NewNop()).RegisterRoutes(r.Group("/api/ingredients"))
	return r
}

func TestListPrefixFilter(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	for _, ing := range []models.Ingredient{
		{Name: "Salt", MeasurementUnit: "g"},
		{Name: "sausage", MeasurementUnit: "pcs"},
		{Name: "basil", MeasurementUnit: "g"},
		{Name: "100% juice", MeasurementUnit: "ml"},
	} {
		db.Create(&ing)
	}

	names := func(query string) []string {
		req, _ := http.NewRequest("GET", "/api/ingredients"+query, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", resp.Code)
		}
		var list []models.Ingredient
		json.Unmarshal(resp.Body.Bytes(), &list)
		out := []string{}
		for _, ing := range list {
			out = append(out, ing.Name)
		}
		return out
	}

	assert.Equal(t, []string{"Salt", "sausage"}, names("?name=SA"))
	assert.Equal(t, []string{"100% juice"}, names("?name=100%25"))
	assert.Empty(t, names("?name=%25"), "wildcards are literal")
	assert.Len(t, names(""), 4)
}

func TestGet(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	salt := models.Ingredient{Name: "salt", MeasurementUnit: "g"}
	db.Create(&salt)

	req, _ := http.NewRequest("GET", "/api/ingredients/1", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.Code)
	}

	req, _ = http.NewRequest("GET", "/api/ingredients/999", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}
}

func TestImportJSON(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&models.Ingredient{Name: "соль", MeasurementUnit: "г"}).Error)
	imp := NewImporter(db, zap.NewNop())

	data := `[
		{"name": "соль", "measurement_unit": "г"},
		{"name": "сахар", "measurement_unit": "г"},
		{"name": "сахар", "measurement_unit": "ст. л."},
		{"name": "сахар", "measurement_unit": "г"},
		{"name": "", "measurement_unit": "г"}
	]`
	result, err := imp.Import(context.Background(), strings.NewReader(data), FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 3, result.Skipped)
	assert.Len(t, result.Errors, 1)

	var count int64
	db.Model(&models.Ingredient{}).Count(&count)
	assert.EqualValues(t, 3, count)
}

func TestImportCSV(t *testing.T) {
	db := setupTestDB(t)
	imp := NewImporter(db, zap.NewNop())

	data := "абрикосовое варенье,г\nабрикосы,шт\n\"мука, пшеничная\",г\n"
	result, err := imp.Import(context.Background(), strings.NewReader(data), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Imported)

	var flour models.Ingredient
	require.NoError(t, db.Where("name = ?", "мука, пшеничная").First(&flour).Error)
	assert.Equal(t, "г", flour.MeasurementUnit)

	// Re-import is a no-op
	result, err = imp.Import(context.Background(), strings.NewReader(data), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Imported)
	assert.Equal(t, 3, result.Skipped)
}

func TestImportUnknownFormat(t *testing.T) {
	db := setupTestDB(t)
	_, err := NewImporter(db, zap.NewNop()).Import(context.Background(), strings.NewReader(""), "xml")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
