package users

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
	cfg := config.Default().Server
	cfg.PageSize = 2
	handler := NewHandler(db, zap.NewNop(), cfg)
	handler.RegisterRoutes(r.Group("/api/users", auth.OptionalAuth()))
	return r
}

func createUser(t *testing.T, db *gorm.DB, username string) models.User {
	user := models.User{
		Email:        username + "@example.com",
		Username:     username,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: "hash",
		SystemRole:   models.SystemRoleUser,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}

func getAuthHeader(user models.User) string {
	token, _ := auth.GenerateToken(&user)
	return "Token " + token
}

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	jsonBody, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", path, bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestRegister(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	resp := postJSON(router, "/api/users", RegisterRequest{
		Email:     "cook@example.com",
		Username:  "cook",
		FirstName: "Vasya",
		LastName:  "Pupkin",
		Password:  "password123",
	})

	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var response CreatedUserResponse
	json.Unmarshal(resp.Body.Bytes(), &response)
	if response.Username != "cook" || response.ID == 0 {
		t.Errorf("Unexpected response: %+v", response)
	}

	var stored models.User
	db.First(&stored, response.ID)
	if !auth.CheckPassword("password123", stored.PasswordHash) {
		t.Error("Expected stored password to be hashed")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	createUser(t, db, "cook")

	resp := postJSON(router, "/api/users", RegisterRequest{
		Email:     "cook@example.com",
		Username:  "another",
		FirstName: "A",
		LastName:  "B",
		Password:  "password123",
	})

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", resp.Code)
	}
	var body map[string][]string
	json.Unmarshal(resp.Body.Bytes(), &body)
	if len(body["email"]) != 1 {
		t.Errorf("Expected an email error, got %v", body)
	}
}

func TestRegisterRejectsBadUsernames(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	for _, username := range []string{"me", "has space", "semi;colon"} {
		resp := postJSON(router, "/api/users", RegisterRequest{
			Email:     "x@example.com",
			Username:  username,
			FirstName: "A",
			LastName:  "B",
			Password:  "password123",
		})
		if resp.Code != http.StatusBadRequest {
			t.Errorf("username %q: expected 400, got %d", username, resp.Code)
		}
	}

	var count int64
	db.Model(&models.User{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected no users, got %d", count)
	}
}

func TestListPaginated(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	for i := 0; i < 3; i++ {
		createUser(t, db, fmt.Sprintf("cook%d", i))
	}

	req, _ := http.NewRequest("GET", "/api/users", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var page pagination.Page[UserResponse]
	json.Unmarshal(resp.Body.Bytes(), &page)
	if page.Count != 3 || len(page.Results) != 2 {
		t.Errorf("Expected count 3 with 2 results, got %d/%d", page.Count, len(page.Results))
	}
	if page.Next == nil {
		t.Error("Expected a next link")
	}
}

func TestGetShowsSubscriptionForViewer(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	reader := createUser(t, db, "reader")
	author := createUser(t, db, "author")
	db.Create(&models.Subscription{UserID: reader.ID, AuthorID: author.ID})

	get := func(header string) UserResponse {
		req, _ := http.NewRequest("GET", fmt.Sprintf("/api/users/%d", author.ID), nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", resp.Code)
		}
		var user UserResponse
		json.Unmarshal(resp.Body.Bytes(), &user)
		return user
	}

	if !get(getAuthHeader(reader)).IsSubscribed {
		t.Error("Expected is_subscribed for the reader")
	}
	if get("").IsSubscribed {
		t.Error("Expected is_subscribed false for anonymous viewers")
	}
}

func TestGetNotFound(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	req, _ := http.NewRequest("GET", "/api/users/999", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}
}

func TestMe(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createUser(t, db, "cook")

	req, _ := http.NewRequest("GET", "/api/users/me", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.Code)
	}

	req, _ = http.NewRequest("GET", "/api/users/me", nil)
	req.Header.Set("Authorization", getAuthHeader(user))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	var me UserResponse
	json.Unmarshal(resp.Body.Bytes(), &me)
	if me.ID != user.ID {
		t.Errorf("Expected user %d, got %d", user.ID, me.ID)
	}
}

func TestAvatarSetAndClear(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createUser(t, db, "cook")

	put := func(body string, authHeader string) *httptest.ResponseRecorder {
		req, _ := http.NewRequest("PUT", "/api/users/me/avatar", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		if authHeader != "" {
			req.Header.Set("Authorization", authHeader)
		}
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		return resp
	}

	if resp := put(`{"avatar":"media/users/cook.png"}`, ""); resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for anonymous avatar update, got %d", resp.Code)
	}

	resp := put(`{"avatar":"media/users/cook.png"}`, getAuthHeader(user))
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var body AvatarResponse
	json.Unmarshal(resp.Body.Bytes(), &body)
	if body.Avatar == nil || *body.Avatar != config.Default().Server.BaseURL+"/media/users/cook.png" {
		t.Errorf("Unexpected avatar URL: %s", resp.Body.String())
	}

	for _, invalid := range []string{`{}`, `{"avatar":"  "}`, `{"avatar":"data:image/png;base64,iVBORw0KGgo="}`} {
		if resp := put(invalid, getAuthHeader(user)); resp.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400 for %s, got %d", invalid, resp.Code)
		}
	}

	var stored models.User
	db.First(&stored, user.ID)
	if stored.Avatar != "media/users/cook.png" {
		t.Errorf("Expected rejected updates to keep the avatar, got %q", stored.Avatar)
	}

	req, _ := http.NewRequest("DELETE", "/api/users/me/avatar", nil)
	req.Header.Set("Authorization", getAuthHeader(user))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", resp.Code)
	}
	db.First(&stored, user.ID)
	if stored.Avatar != "" {
		t.Errorf("Expected avatar cleared, got %q", stored.Avatar)
	}
}
