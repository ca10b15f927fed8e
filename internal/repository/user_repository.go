package repository

import (
	"time"

	"github.com/okamura/project-management-api/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	CRUD[models.User]
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{CRUD: NewCRUD[models.User](db)}
}

// FindByEmail finds a user by email
func (r *GormUserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.DB().Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindActiveByIDs returns the active users among the given IDs
func (r *GormUserRepository) FindActiveByIDs(ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}

	var users []models.User
	if err := r.DB().
		Where("id IN ? AND is_active = ?", ids, true).
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// List returns users with pagination
func (r *GormUserRepository) List(page, pageSize int) ([]models.User, int64, error) {
	var users []models.User

	query := r.DB().Model(&models.User{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page > 0 && pageSize > 0 {
		query = query.Offset((page - 1) * pageSize).Limit(pageSize)
	}

	if err := query.Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// Update saves changes to a user
func (r *GormUserRepository) Update(user *models.User) error {
	return r.Save(user)
}

// UpdateLastLogin stamps the last successful login time
func (r *GormUserRepository) UpdateLastLogin(id string, at time.Time) error {
	return r.UpdateByID(id, map[string]interface{}{"last_login": at})
}

// CountAll returns the total number of users
func (r *GormUserRepository) CountAll() (int64, error) {
	return r.CountWhere(nil)
}

// CountActive returns the number of active users
func (r *GormUserRepository) CountActive() (int64, error) {
	return r.CountWhere("is_active = ?", true)
}
