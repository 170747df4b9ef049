package recipes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/foodgram/foodgram/pkg/foodgram/auth"
	"github.com/foodgram/foodgram/pkg/foodgram/config"
	"github.com/foodgram/foodgram/pkg/foodgram/models"
	"github.com/foodgram/foodgram/pkg/foodgram/pagination"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func setupTestRouter(f *fixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := config.Default().Server
	cfg.BaseURL = "https://foodgram.test"
	handler := NewHandler(f.db, f.svc, zap.NewNop(), cfg)
	handler.RegisterRoutes(r.Group("/api/recipes", auth.OptionalAuth()))
	return r
}

func getAuthHeader(user models.User) string {
	token, _ := auth.GenerateToken(&user)
	return "Token " + token
}

func doRequest(router *gin.Engine, method, path, authHeader string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestCreateHandler(t *testing.T) {
	f := newFixture(t)
	router := setupTestRouter(f)

	resp := doRequest(router, "POST", "/api/recipes", "", f.validInput())
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for anonymous create, got %d", resp.Code)
	}

	resp = doRequest(router, "POST", "/api/recipes", getAuthHeader(f.author), f.validInput())
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var recipe RecipeResponse
	json.Unmarshal(resp.Body.Bytes(), &recipe)
	if recipe.Author.ID != f.author.ID {
		t.Errorf("Expected author %d, got %d", f.author.ID, recipe.Author.ID)
	}
	if len(recipe.Ingredients) != 2 || recipe.Ingredients[0].Name != "мука" || recipe.Ingredients[0].Amount != 200 {
		t.Errorf("Unexpected ingredients: %+v", recipe.Ingredients)
	}
	if recipe.Image != "https://foodgram.test/media/recipes/images/pancakes.png" {
		t.Errorf("Expected absolute image URL, got %s", recipe.Image)
	}
	if recipe.IsFavorited || recipe.IsInShoppingCart {
		t.Error("Expected fresh recipe to be neither favorited nor in cart")
	}
}

func TestCreateHandlerValidation(t *testing.T) {
	f := newFixture(t)
	router := setupTestRouter(f)

	in := f.validInput()
	in.Ingredients = []IngredientAmount{}
	resp := doRequest(router, "POST", "/api/recipes", getAuthHeader(f.author), in)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", resp.Code)
	}

	var body map[string][]string
	json.Unmarshal(resp.Body.Bytes(), &body)
	if len(body["ingredients"]) != 1 || body["ingredients"][0] != "Добавьте хотя бы один ингредиент!" {
		t.Errorf("Unexpected error body: %s", resp.Body.String())
	}

	in = f.validInput()
	in.Ingredients[0].ID = 999
	resp = doRequest(router, "POST", "/api/recipes", getAuthHeader(f.author), in)
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown ingredient, got %d", resp.Code)
	}
}

func TestUpdateHandler(t *testing.T) {
	f := newFixture(t)
	router := setupTestRouter(f)
	created := doRequest(router, "POST", "/api/recipes", getAuthHeader(f.author), f.validInput())
	var recipe RecipeResponse
	json.Unmarshal(created.Body.Bytes(), &recipe)
	path := fmt.Sprintf("/api/recipes/%d", recipe.ID)

	resp := doRequest(router, "PATCH", path, getAuthHeader(f.author), map[string]any{"name": "Оладьи"})
	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for PATCH without ingredients, got %d", resp.Code)
	}

	patch := map[string]any{"ingredients": []map[string]any{{"id": f.milk.ID, "amount": 3}}}
	resp = doRequest(router, "PATCH", path, getAuthHeader(f.other), patch)
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for non-author, got %d", resp.Code)
	}

	resp = doRequest(router, "PATCH", path, getAuthHeader(f.author), patch)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	json.Unmarshal(resp.Body.Bytes(), &recipe)
	if len(recipe.Ingredients) != 1 || recipe.Ingredients[0].ID != f.milk.ID {
		t.Errorf("Expected line items replaced by milk, got %+v", recipe.Ingredients)
	}
}

func TestUpdateHandlerChecksOwnershipFirst(t *testing.T) {
	f := newFixture(t)
	router := setupTestRouter(f)
	created := doRequest(router, "POST", "/api/recipes", getAuthHeader(f.author), f.validInput())
	var recipe RecipeResponse
	json.Unmarshal(created.Body.Bytes(), &recipe)

	invalid := map[string]any{"cooking_time": 0, "ingredients": []map[string]any{}}

	resp := doRequest(router, "PATCH", fmt.Sprintf("/api/recipes/%d", recipe.ID), getAuthHeader(f.other), invalid)
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for non-author with invalid patch, got %d", resp.Code)
	}

	resp = doRequest(router, "PATCH", "/api/recipes/999", getAuthHeader(f.author), invalid)
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for missing recipe with invalid patch, got %d", resp.Code)
	}

	resp = doRequest(router, "PATCH", fmt.Sprintf("/api/recipes/%d", recipe.ID), getAuthHeader(f.other), map[string]any{"name": "x"})
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for non-author without ingredients, got %d", resp.Code)
	}
}

func TestUpdateHandlerRejectsBlankFields(t *testing.T) {
	f := newFixture(t)
	router := setupTestRouter(f)
	created := doRequest(router, "POST", "/api/recipes", getAuthHeader(f.author), f.validInput())
	var recipe RecipeResponse
	json.Unmarshal(created.Body.Bytes(), &recipe)
	path := fmt.Sprintf("/api/recipes/%d", recipe.ID)
	items := []map[string]any{{"id": f.milk.ID, "amount": 5}}

	for _, patch := range []map[string]any{
		{"name": "", "ingredients": items},
		{"text": "", "ingredients": items},
	} {
		resp := doRequest(router, "PATCH", path, getAuthHeader(f.author), patch)
		if resp.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400 for %v, got %d", patch, resp.Code)
		}
	}

	var stored models.Recipe
	f.db.First(&stored, recipe.ID)
	if stored.Name != "Блины" || stored.Text != "Смешать и жарить" {
		t.Errorf("Expected recipe unchanged, got %q / %q", stored.Name, stored.Text)
	}
	if n := countRows(t, f.db, &models.RecipeIngredient{}); n != 2 {
		t.Errorf("Expected 2 line items to survive, got %d", n)
	}
}

func TestDeleteHandler(t *testing.T) {
	f := newFixture(t)
	router := setupTestRouter(f)
	created := doRequest(router, "POST", "/api/recipes", getAuthHeader(f.author), f.validInput())
	var recipe RecipeResponse
	json.Unmarshal(created.Body.Bytes(), &recipe)
	path := fmt.Sprintf("/api/recipes/%d", recipe.ID)

	if resp := doRequest(router, "DELETE", path, getAuthHeader(f.other), nil); resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", resp.Code)
	}
	if resp := doRequest(router, "DELETE", path, getAuthHeader(f.author), nil); resp.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", resp.Code)
	}
	if resp := doRequest(router, "GET", path, "", nil); resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", resp.Code)
	}
}

func TestListHandlerViewerFlags(t *testing.T) {
	f := newFixture(t)
	router := setupTestRouter(f)
	created := doRequest(router, "POST", "/api/recipes", getAuthHeader(f.author), f.validInput())
	var recipe RecipeResponse
	json.Unmarshal(created.Body.Bytes(), &recipe)

	f.db.Create(&models.Favorite{UserID: f.other.ID, RecipeID: recipe.ID})
	f.db.Create(&models.Subscription{UserID: f.other.ID, AuthorID: f.author.ID})

	var page pagination.Page[RecipeResponse]
	resp := doRequest(router, "GET", "/api/recipes?is_favorited=1", getAuthHeader(f.other), nil)
	json.Unmarshal(resp.Body.Bytes(), &page)
	if page.Count != 1 || !page.Results[0].IsFavorited || !page.Results[0].Author.IsSubscribed {
		t.Errorf("Expected favorited recipe with subscribed author, got %s", resp.Body.String())
	}

	resp = doRequest(router, "GET", "/api/recipes?is_favorited=1", getAuthHeader(f.author), nil)
	json.Unmarshal(resp.Body.Bytes(), &page)
	if page.Count != 0 {
		t.Errorf("Expected no favorites for the author, got %d", page.Count)
	}

	// Anonymous callers get the filter ignored and no viewer flags
	resp = doRequest(router, "GET", "/api/recipes?is_favorited=1", "", nil)
	json.Unmarshal(resp.Body.Bytes(), &page)
	if page.Count != 1 || page.Results[0].IsFavorited {
		t.Errorf("Expected unfiltered list without flags, got %s", resp.Body.String())
	}
}
