package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/bibliotek/backend/internal/entities"
	"github.com/bibliotek/backend/internal/reputation"
)

// PointsAwarder provides the ability to credit reputation points to a user.
type PointsAwarder interface {
	AwardPoints(userID uint, amount int64) (*entities.ReputationRecord, error)
}

// AwardPointsTask credits reputation points to a user in the background.
type AwardPointsTask struct {
	UserID uint   `json:"user_id"`
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

// Config returns the queue configuration for point award tasks.
func (t AwardPointsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "award_points",
		MaxAttempts: 5,
		Backoff:     30 * time.Second,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// AwardPointsProcessor creates a processor function for AwardPointsTask.
// Awards for users that no longer exist are dropped rather than retried.
func AwardPointsProcessor(awarder PointsAwarder) backlite.QueueProcessor[AwardPointsTask] {
	return func(ctx context.Context, task AwardPointsTask) error {
		if awarder == nil {
			return fmt.Errorf("points awarder not configured")
		}

		record, err := awarder.AwardPoints(task.UserID, task.Amount)
		if err != nil {
			if errors.Is(err, reputation.ErrUserNotFound) {
				log.Printf("[TASK] Dropping %s award for missing user %d", task.Reason, task.UserID)
				return nil
			}
			return fmt.Errorf("award points: %w", err)
		}

		log.Printf("[TASK] Awarded %d points to user %d (%s), total now %d",
			task.Amount, task.UserID, task.Reason, record.Points)
		return nil
	}
}

// NewAwardPointsQueue creates a backlite queue for point award tasks.
func NewAwardPointsQueue(awarder PointsAwarder) backlite.Queue {
	return backlite.NewQueue(AwardPointsProcessor(awarder))
}
