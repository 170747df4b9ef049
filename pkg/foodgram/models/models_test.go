package models

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	return db
}

func createUser(t *testing.T, db *gorm.DB, email, username string) User {
	user := User{
		Email:        email,
		Username:     username,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: "hash",
		SystemRole:   SystemRoleUser,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}

func createRecipe(t *testing.T, db *gorm.DB, authorID uint) Recipe {
	recipe := Recipe{AuthorID: authorID, Name: "Pancakes", Text: "Mix and fry", CookingTime: 15}
	if err := db.Create(&recipe).Error; err != nil {
		t.Fatalf("Failed to create recipe: %v", err)
	}
	return recipe
}

func TestAutoMigrate(t *testing.T) {
	db := setupTestDB(t)

	err := AutoMigrate(db)
	if err != nil {
		t.Fatalf("AutoMigrate failed: %v", err)
	}

	tables := []string{
		"users", "ingredients", "tags", "recipes", "recipe_ingredients",
		"recipe_tags", "favorites", "shopping_carts", "subscriptions", "short_links",
	}
	for _, table := range tables {
		if !db.Migrator().HasTable(table) {
			t.Errorf("Expected table %s to exist", table)
		}
	}
}

func TestUserUniqueness(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)

	createUser(t, db, "cook@example.com", "cook")

	dupEmail := User{Email: "cook@example.com", Username: "other", FirstName: "A", LastName: "B"}
	if err := db.Create(&dupEmail).Error; err == nil {
		t.Error("Expected error when creating user with duplicate email")
	}

	dupUsername := User{Email: "other@example.com", Username: "cook", FirstName: "A", LastName: "B"}
	if err := db.Create(&dupUsername).Error; err == nil {
		t.Error("Expected error when creating user with duplicate username")
	}
}

func TestRecipeCookingTimeCheck(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)
	user := createUser(t, db, "cook@example.com", "cook")

	recipe := Recipe{AuthorID: user.ID, Name: "Bad", Text: "x", CookingTime: 0}
	if err := db.Create(&recipe).Error; err == nil {
		t.Error("Expected check constraint to reject cooking_time 0")
	}
}

func TestRecipeWithIngredientsAndTags(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)
	user := createUser(t, db, "cook@example.com", "cook")

	flour := Ingredient{Name: "flour", MeasurementUnit: "g"}
	db.Create(&flour)
	tag := Tag{Name: "Breakfast", Color: "#E26C2D", Slug: "breakfast"}
	db.Create(&tag)

	recipe := createRecipe(t, db, user.ID)
	db.Create(&RecipeIngredient{RecipeID: recipe.ID, IngredientID: flour.ID, Amount: 200})
	db.Create(&RecipeTag{RecipeID: recipe.ID, TagID: tag.ID})

	var loaded Recipe
	if err := db.Preload("Ingredients.Ingredient").Preload("RecipeTags.Tag").First(&loaded, recipe.ID).Error; err != nil {
		t.Fatalf("Failed to load recipe: %v", err)
	}
	if len(loaded.Ingredients) != 1 || loaded.Ingredients[0].Ingredient.Name != "flour" {
		t.Errorf("Expected flour line item, got %+v", loaded.Ingredients)
	}
	tags := loaded.TagList()
	if len(tags) != 1 || tags[0].Slug != "breakfast" {
		t.Errorf("Expected breakfast tag, got %+v", tags)
	}
}

func TestFavoriteUniqueness(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)
	user := createUser(t, db, "cook@example.com", "cook")
	recipe := createRecipe(t, db, user.ID)

	if err := db.Create(&Favorite{UserID: user.ID, RecipeID: recipe.ID}).Error; err != nil {
		t.Fatalf("Failed to create favorite: %v", err)
	}
	if err := db.Create(&Favorite{UserID: user.ID, RecipeID: recipe.ID}).Error; err == nil {
		t.Error("Expected error when creating duplicate favorite")
	}
	if err := db.Create(&ShoppingCart{UserID: user.ID, RecipeID: recipe.ID}).Error; err != nil {
		t.Errorf("Cart row should be independent of favorites: %v", err)
	}
}

func TestSubscriptionConstraints(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)
	user := createUser(t, db, "reader@example.com", "reader")
	author := createUser(t, db, "author@example.com", "author")

	if err := db.Create(&Subscription{UserID: user.ID, AuthorID: user.ID}).Error; err == nil {
		t.Error("Expected check constraint to reject self-subscription")
	}
	if err := db.Create(&Subscription{UserID: user.ID, AuthorID: author.ID}).Error; err != nil {
		t.Fatalf("Failed to create subscription: %v", err)
	}
	if err := db.Create(&Subscription{UserID: user.ID, AuthorID: author.ID}).Error; err == nil {
		t.Error("Expected error when creating duplicate subscription")
	}
}

func TestShortIDUniqueness(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)
	user := createUser(t, db, "cook@example.com", "cook")
	r1 := createRecipe(t, db, user.ID)
	r2 := createRecipe(t, db, user.ID)

	if err := db.Create(&ShortLink{ShortID: "abc123", RecipeID: r1.ID}).Error; err != nil {
		t.Fatalf("Failed to create short link: %v", err)
	}
	if err := db.Create(&ShortLink{ShortID: "abc123", RecipeID: r2.ID}).Error; err == nil {
		t.Error("Expected error when creating duplicate short id")
	}
	if err := db.Create(&ShortLink{ShortID: "zzz999", RecipeID: r1.ID}).Error; err == nil {
		t.Error("Expected error when creating second short link for a recipe")
	}
}
