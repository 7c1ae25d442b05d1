// Package readinglog provides database operations for the append-only
// reading activity log.
//
// Entries are never updated. They are deleted only when the owning user
// account is deleted.
package readinglog

import (
	"time"

	"gorm.io/gorm"

	"github.com/bibliotek/backend/internal/entities"
)

// Repository handles all reading log database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new reading log repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Record appends one entry with the current timestamp. There is no dedup:
// every reported session is logged, whether or not it earned points.
func (r *Repository) Record(userID, bookID uint, pagesRead int) (*entities.ReadingLogEntry, error) {
	entry := &entities.ReadingLogEntry{
		UserID:    userID,
		BookID:    bookID,
		PagesRead: pagesRead,
		ReadAt:    time.Now(),
	}
	if err := r.db.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// ListForUser returns paginated entries for a user, newest first, along
// with the total count.
func (r *Repository) ListForUser(userID uint, limit, offset int) ([]entities.ReadingLogEntry, int64, error) {
	var entries []entities.ReadingLogEntry
	var total int64

	query := r.db.Model(&entities.ReadingLogEntry{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	err := query.Order("read_at DESC, id DESC").Limit(limit).Offset(offset).Find(&entries).Error
	return entries, total, err
}

// DeleteForUser bulk-removes all entries for a user. Used only during
// account deletion. Returns the number of deleted entries.
func (r *Repository) DeleteForUser(userID uint) (int64, error) {
	result := r.db.Where("user_id = ?", userID).Delete(&entities.ReadingLogEntry{})
	return result.RowsAffected, result.Error
}
