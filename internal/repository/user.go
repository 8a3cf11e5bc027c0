// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"

	"mercadito/internal/cache"
	"mercadito/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Stats(ctx context.Context, userID uint) (*models.ProfileStats, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewUserNotFoundError()
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// GetByEmail returns (nil, nil) when no user carries the email, so callers
// can keep login failures uniform.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.NewEmailExistsError()
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.NewEmailExistsError()
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateProfile(ctx, user.ID)
	return nil
}

// Stats aggregates the profile counters. Missing rows count as zero.
func (r *userRepository) Stats(ctx context.Context, userID uint) (*models.ProfileStats, error) {
	var stats models.ProfileStats

	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("user_id = ? AND activo = ?", userID, true).
		Count(&stats.PublicacionesActivas).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	err = r.db.WithContext(ctx).Model(&models.Post{}).
		Where("user_id = ?", userID).
		Count(&stats.TotalPublicaciones).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	err = r.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("user_id = ?", userID).
		Count(&stats.Favoritos).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	return &stats, nil
}
