package directory

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/campusdesk-dev/campusdesk/internal/models"
)

// GormDirectory serves lookups from the application database
type GormDirectory struct {
	db *gorm.DB
}

// NewGormDirectory creates a directory backed by the application database
func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

func (d *GormDirectory) GetByID(ctx context.Context, id string) (*UserRecord, error) {
	var user models.User
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up user by id: %w", err)
	}
	return toRecord(&user), nil
}

func (d *GormDirectory) GetByEmail(ctx context.Context, email string) (*UserRecord, error) {
	var user models.User
	if err := d.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up user by email: %w", err)
	}
	return toRecord(&user), nil
}

func toRecord(user *models.User) *UserRecord {
	return &UserRecord{
		ID:       user.ID,
		Email:    user.Email,
		Name:     user.Name,
		Role:     user.Role,
		IsActive: user.IsActive,
	}
}
