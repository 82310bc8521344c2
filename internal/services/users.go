package services

import (
	"errors"
	"time"

	"github.com/mek0124/momentum/internal/apperror"
	"github.com/mek0124/momentum/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type UserService interface {
	GetByID(db *gorm.DB, id uuid.UUID) (*models.User, error)
	GetByUsername(db *gorm.DB, username string) (*models.User, error)
	SetSubscribed(db *gorm.DB, id uuid.UUID, subscribed bool) error
	DeleteUser(db *gorm.DB, id uuid.UUID) error
}

type UserServiceImpl struct{}

func NewUserService() *UserServiceImpl {
	return &UserServiceImpl{}
}

func (s *UserServiceImpl) GetByID(db *gorm.DB, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(apperror.NotFound, "user not found")
		}
		return nil, apperror.Wrap(apperror.Internal, "failed to load user", err)
	}
	return &user, nil
}

func (s *UserServiceImpl) GetByUsername(db *gorm.DB, username string) (*models.User, error) {
	var user models.User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(apperror.NotFound, "user not found")
		}
		return nil, apperror.Wrap(apperror.Internal, "failed to load user", err)
	}
	return &user, nil
}

// SetSubscribed is an idempotent assignment: writing the value a user
// already has is a harmless no-op, which is what makes at-least-once
// webhook delivery safe without a dedup store.
func (s *UserServiceImpl) SetSubscribed(db *gorm.DB, id uuid.UUID, subscribed bool) error {
	now := time.Now()
	result := db.Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_subscribed": subscribed,
			"updated_at":    &now,
		})
	if result.Error != nil {
		return apperror.Wrap(apperror.Internal, "failed to update subscription", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.New(apperror.NotFound, "user not found")
	}
	return nil
}

// DeleteUser removes the user and every task they own in one transaction.
// Ownership is exclusive, so the cascade can never touch another user's
// tasks.
func (s *UserServiceImpl) DeleteUser(db *gorm.DB, id uuid.UUID) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("id = ?", id).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.New(apperror.NotFound, "user not found")
			}
			return apperror.Wrap(apperror.Internal, "failed to load user", err)
		}

		if err := tx.Where("user_id = ?", id).Delete(&models.Task{}).Error; err != nil {
			return apperror.Wrap(apperror.Internal, "failed to delete tasks", err)
		}
		if err := tx.Delete(&user).Error; err != nil {
			return apperror.Wrap(apperror.Internal, "failed to delete user", err)
		}
		return nil
	})
}
