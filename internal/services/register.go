package services

import (
	"errors"
	"strings"
	"time"

	"github.com/mek0124/momentum/internal/apperror"
	"github.com/mek0124/momentum/internal/models"

	"github.com/gofrs/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterService interface {
	Register(db *gorm.DB, username, password string) (*models.User, error)
}

type RegisterServiceImpl struct {
	bcryptCost int
}

func NewRegisterService(bcryptCost int) *RegisterServiceImpl {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &RegisterServiceImpl{bcryptCost: bcryptCost}
}

// Register creates a user with a hashed password. A duplicate username is a
// Conflict and leaves the store untouched; the unique index backs up the
// pre-check against races.
func (s *RegisterServiceImpl) Register(db *gorm.DB, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperror.New(apperror.Validation, "username is required")
	}
	if password == "" {
		return nil, apperror.New(apperror.Validation, "password is required")
	}

	var existing models.User
	err := db.Where("username = ?", username).First(&existing).Error
	if err == nil {
		return nil, apperror.New(apperror.Conflict, "username already registered")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Wrap(apperror.Internal, "failed to check username", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to hash password", err)
	}

	user := models.User{
		ID:           uuid.Must(uuid.NewV4()),
		Username:     username,
		PasswordHash: string(hash),
		IsSubscribed: false,
		CreatedAt:    time.Now(),
	}

	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.New(apperror.Conflict, "username already registered")
		}
		return nil, apperror.Wrap(apperror.Internal, "failed to create user", err)
	}

	return &user, nil
}
