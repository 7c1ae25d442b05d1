// Package reputation implements the per-user reputation ledger: lazy
// record creation that survives concurrent first access, rate-limited
// reading awards, and the append-only reading activity log.
package reputation

import (
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	repstore "github.com/bibliotek/backend/internal/database/reputation"
	"github.com/bibliotek/backend/internal/entities"
	"github.com/bibliotek/backend/internal/levels"
)

var (
	// ErrUserNotFound is returned when an operation targets a user that
	// does not exist in the directory.
	ErrUserNotFound = errors.New("reputation: user not found")

	// ErrRecordMissingAfterConflict means the re-read after a lost create
	// race found nothing. The duplicate-key failure proves a row existed,
	// so this is a data corruption signal, never a recoverable condition.
	ErrRecordMissingAfterConflict = errors.New("reputation: record missing after duplicate-key conflict")
)

// RecordStore is the persistence boundary for reputation records.
type RecordStore interface {
	Find(userID uint) (*entities.ReputationRecord, error)
	CreateIfAbsent(userID uint) (*entities.ReputationRecord, error)
	Save(record *entities.ReputationRecord) error
	Delete(userID uint) error
}

// ActivityLog is the persistence boundary for the reading activity log.
type ActivityLog interface {
	Record(userID, bookID uint, pagesRead int) (*entities.ReadingLogEntry, error)
	ListForUser(userID uint, limit, offset int) ([]entities.ReadingLogEntry, int64, error)
	DeleteForUser(userID uint) (int64, error)
}

// UserDirectory answers existence checks against the user subsystem and
// removes accounts during the deletion cascade.
type UserDirectory interface {
	Exists(id uint) (bool, error)
	Delete(id uint) error
}

// Config holds the award tuning knobs.
type Config struct {
	// SessionPoints is the fixed amount granted per eligible reading
	// session.
	SessionPoints int64

	// MinInterval is the minimum gap between two reading awards for the
	// same user. Calls inside the window are throttled silently.
	MinInterval time.Duration
}

// DefaultConfig matches the production tuning: 20 points per session, at
// most one award every 10 seconds.
func DefaultConfig() Config {
	return Config{
		SessionPoints: 20,
		MinInterval:   10 * time.Second,
	}
}

// Service orchestrates reputation record lifecycle and point awards.
type Service struct {
	records RecordStore
	ledger  ActivityLog
	users   UserDirectory
	curve   levels.Curve
	cfg     Config

	// Serializes the read-modify-write of awards (and deletion) per user
	// id, so two concurrent awards for the same user cannot overwrite each
	// other's delta.
	locks keyedMutex
}

// NewService creates a reputation service. Zero-valued config fields fall
// back to the defaults.
func NewService(records RecordStore, ledger ActivityLog, users UserDirectory, curve levels.Curve, cfg Config) *Service {
	defaults := DefaultConfig()
	if cfg.SessionPoints <= 0 {
		cfg.SessionPoints = defaults.SessionPoints
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = defaults.MinInterval
	}
	return &Service{
		records: records,
		ledger:  ledger,
		users:   users,
		curve:   curve,
		cfg:     cfg,
	}
}

// GetOrCreate returns the user's reputation record, creating the zero-state
// record on first access. Concurrent first accesses for the same user all
// resolve to the single persisted record.
func (s *Service) GetOrCreate(userID uint) (*entities.ReputationRecord, error) {
	unlock := s.locks.acquire(userID)
	defer unlock()

	if err := s.checkUser(userID); err != nil {
		return nil, err
	}
	return s.getOrCreateLocked(userID)
}

// getOrCreateLocked resolves the record while the per-user lock is held.
// The in-process lock removes intra-process races; the create-then-re-read
// sequence below handles racers in other processes sharing the store.
func (s *Service) getOrCreateLocked(userID uint) (*entities.ReputationRecord, error) {
	record, err := s.records.Find(userID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// The insert runs in its own transaction so a duplicate-key failure
	// cannot poison a caller's surrounding transaction.
	record, err = s.records.CreateIfAbsent(userID)
	if err == nil {
		return record, nil
	}
	if !repstore.IsUniqueViolation(err) {
		return nil, err
	}

	// A concurrent caller won the insert race. The violation proves the
	// row exists, so a clean re-read must find it.
	log.Printf("reputation: lost create race for user %d, re-reading existing record", userID)
	record, err = s.records.Find(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordMissingAfterConflict
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// AwardPoints adds a point amount with no rate limiting. Non-positive
// amounts are a silent no-op returning the unchanged record; callers that
// need throttling use AwardForReading.
func (s *Service) AwardPoints(userID uint, amount int64) (*entities.ReputationRecord, error) {
	unlock := s.locks.acquire(userID)
	defer unlock()

	// Checked under the lock so an award waiting behind DeleteAccount sees
	// the user gone instead of re-creating the record it just removed.
	if err := s.checkUser(userID); err != nil {
		return nil, err
	}

	record, err := s.getOrCreateLocked(userID)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return record, nil
	}

	record.Points += amount
	s.applyLevel(record)
	if err := s.records.Save(record); err != nil {
		return nil, err
	}
	return record, nil
}

// AwardForReading grants the fixed per-session amount for a reported
// reading session, at most once per MinInterval per user. The reading log
// entry is appended whether or not the award was granted.
func (s *Service) AwardForReading(userID, bookID uint, pagesRead int) (*entities.ReputationRecord, error) {
	unlock := s.locks.acquire(userID)
	defer unlock()

	if err := s.checkUser(userID); err != nil {
		return nil, err
	}

	record, err := s.getOrCreateLocked(userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	eligible := record.LastReadingAwardAt.IsZero() ||
		!now.Before(record.LastReadingAwardAt.Add(s.cfg.MinInterval))

	if eligible {
		record.Points += s.cfg.SessionPoints
		record.LastReadingAwardAt = now
		s.applyLevel(record)
		if err := s.records.Save(record); err != nil {
			return nil, err
		}
		log.Printf("reputation: granted %d reading points to user %d (total: %d)",
			s.cfg.SessionPoints, userID, record.Points)
	} else {
		log.Printf("reputation: reading award for user %d throttled (minimum gap %s not reached)",
			userID, s.cfg.MinInterval)
	}

	// The log records every reported session, throttled or not.
	if _, err := s.ledger.Record(userID, bookID, pagesRead); err != nil {
		return nil, err
	}

	return record, nil
}

// Delete removes the user's reputation record. Safe to call when no record
// exists.
func (s *Service) Delete(userID uint) error {
	unlock := s.locks.acquire(userID)
	defer unlock()

	if err := s.checkUser(userID); err != nil {
		return err
	}

	log.Printf("reputation: deleting record for user %d", userID)
	return s.records.Delete(userID)
}

// DeleteAccount removes the user together with their reading log and
// reputation record. The whole cascade runs under the per-user lock, so an
// award that was waiting on the same user finds the account gone instead of
// resurrecting the record, and an award that got the lock first is cleaned
// up here.
func (s *Service) DeleteAccount(userID uint) error {
	unlock := s.locks.acquire(userID)
	defer unlock()

	if err := s.checkUser(userID); err != nil {
		return err
	}

	log.Printf("reputation: deleting account %d with reading log and record", userID)
	if _, err := s.ledger.DeleteForUser(userID); err != nil {
		return err
	}
	if err := s.records.Delete(userID); err != nil {
		return err
	}
	return s.users.Delete(userID)
}

// ListActivity returns the user's reading log, newest first.
func (s *Service) ListActivity(userID uint, limit, offset int) ([]entities.ReadingLogEntry, int64, error) {
	if err := s.checkUser(userID); err != nil {
		return nil, 0, err
	}
	return s.ledger.ListForUser(userID, limit, offset)
}

// applyLevel raises the record's level when the curve crosses a threshold.
// The level never decreases.
func (s *Service) applyLevel(record *entities.ReputationRecord) {
	next := s.curve.Level(record.Points)
	if next > record.Level {
		log.Printf("reputation: user %d leveled up from %d to %d (total points: %d)",
			record.UserID, record.Level, next, record.Points)
		record.Level = next
	}
}

func (s *Service) checkUser(userID uint) error {
	ok, err := s.users.Exists(userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}
