// Package reputation provides database operations for per-user reputation
// records.
//
// # Usage
//
//	repo := reputation.NewRepository(db)
//	record, err := repo.Find(userID)
package reputation

import (
	"errors"

	sqlite3 "github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"github.com/bibliotek/backend/internal/entities"
)

// Repository handles all reputation record database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new reputation record repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Find returns the record for a user, or gorm.ErrRecordNotFound. It never
// creates anything.
func (r *Repository) Find(userID uint) (*entities.ReputationRecord, error) {
	var record entities.ReputationRecord
	err := r.db.Where("user_id = ?", userID).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// CreateIfAbsent inserts a fresh zero-state record inside its own
// transaction, committed before this returns so concurrent readers see the
// row. When another caller wins the insert race the unique index on user_id
// rejects this insert; classify that with IsUniqueViolation.
func (r *Repository) CreateIfAbsent(userID uint) (*entities.ReputationRecord, error) {
	record := &entities.ReputationRecord{
		UserID: userID,
		Points: 0,
		Level:  1,
	}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(record).Error
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Save persists mutations (points, level, last award timestamp) of an
// existing record.
func (r *Repository) Save(record *entities.ReputationRecord) error {
	return r.db.Save(record).Error
}

// Delete removes the record for a user. Deleting a missing record is a
// no-op, not an error.
func (r *Repository) Delete(userID uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&entities.ReputationRecord{}).Error
}

// IsUniqueViolation reports whether err came from a violated uniqueness
// constraint, as opposed to any other storage failure.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint &&
			(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
				sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
	}
	return false
}
