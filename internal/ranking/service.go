// Package ranking builds the user leaderboard from reputation records.
//
// The leaderboard is a read-only derived view: a full scan sorted by points
// descending with dense 1-based positions. Tie order is unspecified and
// callers must not rely on it.
package ranking

import (
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/bibliotek/backend/internal/entities"
)

// Entry is one leaderboard row.
type Entry struct {
	Position int    `json:"position"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Points   int64  `json:"points"`
	Level    int    `json:"level"`
}

// Service computes and caches the leaderboard.
type Service struct {
	db *gorm.DB

	mu          sync.RWMutex
	cached      []Entry
	refreshedAt time.Time
}

// NewService creates a new ranking service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Top returns the first limit leaderboard entries. It serves the cached
// snapshot when one exists and falls back to a direct scan when the cache
// is cold. limit <= 0 means no limit.
func (s *Service) Top(limit int) ([]Entry, error) {
	s.mu.RLock()
	cached := s.cached
	s.mu.RUnlock()

	if cached != nil {
		if limit > 0 && limit < len(cached) {
			return cached[:limit], nil
		}
		return cached, nil
	}
	return s.compute(limit)
}

// Refresh recomputes the full leaderboard snapshot. Called periodically by
// the scheduler.
func (s *Service) Refresh() error {
	entries, err := s.compute(0)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cached = entries
	s.refreshedAt = time.Now()
	s.mu.Unlock()
	return nil
}

// RefreshedAt returns when the cached snapshot was last rebuilt, zero when
// the cache is cold.
func (s *Service) RefreshedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshedAt
}

func (s *Service) compute(limit int) ([]Entry, error) {
	type row struct {
		Points   int64
		Level    int
		PublicID string
		Username string
	}

	var rows []row
	query := s.db.Model(&entities.ReputationRecord{}).
		Select("reputation_records.points, reputation_records.level, users.public_id, users.username").
		Joins("JOIN users ON users.id = reputation_records.user_id AND users.deleted_at IS NULL").
		Order("reputation_records.points DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]Entry, len(rows))
	for i, r := range rows {
		entries[i] = Entry{
			Position: i + 1,
			UserID:   r.PublicID,
			Username: r.Username,
			Points:   r.Points,
			Level:    r.Level,
		}
	}
	return entries, nil
}
