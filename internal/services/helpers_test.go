package services_test

import (
	"testing"
	"time"

	"github.com/mek0124/momentum/internal/database"
	"github.com/mek0124/momentum/internal/models"
	"github.com/mek0124/momentum/internal/services"

	"github.com/gofrs/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get underlying sql.DB: %v", err)
	}
	// Every pooled connection would get its own :memory: database.
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("Migration failed: %v", err)
	}
	return db
}

func mustUser(t *testing.T, db *gorm.DB, username string, subscribed bool) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	user := models.User{
		ID:           uuid.Must(uuid.NewV4()),
		Username:     username,
		PasswordHash: string(hash),
		IsSubscribed: subscribed,
		CreatedAt:    time.Now(),
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user %s: %v", username, err)
	}
	return &user
}

func mustTask(t *testing.T, db *gorm.DB, svc services.TaskService, owner *models.User, title string) models.Task {
	t.Helper()

	task, err := svc.Create(db, owner, services.TaskCreateInput{Title: title})
	if err != nil {
		t.Fatalf("Failed to create task %q: %v", title, err)
	}
	return task
}
