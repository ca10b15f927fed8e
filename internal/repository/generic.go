package repository

import (
	"gorm.io/gorm"
)

// CRUD is a generic repository over a single entity type. Entity
// repositories compose it and add their query methods on top, rather than
// overriding a base class.
type CRUD[T any] struct {
	db *gorm.DB
}

// NewCRUD creates a generic repository for T
func NewCRUD[T any](db *gorm.DB) CRUD[T] {
	return CRUD[T]{db: db}
}

// Create inserts a new entity
func (r CRUD[T]) Create(entity *T) error {
	return r.db.Create(entity).Error
}

// FindByID finds an entity by primary key with optional preloading
func (r CRUD[T]) FindByID(id string, preload ...string) (*T, error) {
	var entity T
	query := r.db
	for _, p := range preload {
		query = query.Preload(p)
	}
	if err := query.First(&entity, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// Save persists all fields of the entity
func (r CRUD[T]) Save(entity *T) error {
	return r.db.Save(entity).Error
}

// UpdateByID applies a field-level update to a single row
func (r CRUD[T]) UpdateByID(id string, fields map[string]interface{}) error {
	var entity T
	return r.db.Model(&entity).Where("id = ?", id).Updates(fields).Error
}

// DeleteByID soft deletes an entity by primary key
func (r CRUD[T]) DeleteByID(id string) error {
	var entity T
	return r.db.Delete(&entity, "id = ?", id).Error
}

// CountWhere counts rows matching the condition
func (r CRUD[T]) CountWhere(query interface{}, args ...interface{}) (int64, error) {
	var entity T
	var count int64
	q := r.db.Model(&entity)
	if query != nil {
		q = q.Where(query, args...)
	}
	err := q.Count(&count).Error
	return count, err
}

// DB exposes the underlying handle for entity-specific queries
func (r CRUD[T]) DB() *gorm.DB {
	return r.db
}
