package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibliotek/backend/internal/entities"
	"github.com/bibliotek/backend/internal/reputation"
)

type fakeAwarder struct {
	calls []awardCall
	err   error
}

type awardCall struct {
	userID uint
	amount int64
}

func (f *fakeAwarder) AwardPoints(userID uint, amount int64) (*entities.ReputationRecord, error) {
	f.calls = append(f.calls, awardCall{userID: userID, amount: amount})
	if f.err != nil {
		return nil, f.err
	}
	return &entities.ReputationRecord{UserID: userID, Points: amount, Level: 1}, nil
}

func TestAwardPointsProcessor(t *testing.T) {
	awarder := &fakeAwarder{}
	processor := AwardPointsProcessor(awarder)

	err := processor(context.Background(), AwardPointsTask{
		UserID: 7,
		Amount: 15,
		Reason: "forum_topic_created",
	})
	require.NoError(t, err)

	require.Len(t, awarder.calls, 1)
	assert.Equal(t, uint(7), awarder.calls[0].userID)
	assert.Equal(t, int64(15), awarder.calls[0].amount)
}

func TestAwardPointsProcessorDropsMissingUser(t *testing.T) {
	awarder := &fakeAwarder{err: reputation.ErrUserNotFound}
	processor := AwardPointsProcessor(awarder)

	// Missing users should not cause retries
	err := processor(context.Background(), AwardPointsTask{UserID: 99, Amount: 5})
	assert.NoError(t, err)
}

func TestAwardPointsProcessorPropagatesErrors(t *testing.T) {
	awarder := &fakeAwarder{err: errors.New("database is locked")}
	processor := AwardPointsProcessor(awarder)

	err := processor(context.Background(), AwardPointsTask{UserID: 1, Amount: 5})
	assert.Error(t, err)
}

func TestAwardPointsProcessorNilAwarder(t *testing.T) {
	processor := AwardPointsProcessor(nil)

	err := processor(context.Background(), AwardPointsTask{UserID: 1, Amount: 5})
	assert.Error(t, err)
}

func TestAwardPointsTaskConfig(t *testing.T) {
	task := AwardPointsTask{UserID: 1, Amount: 20}
	cfg := task.Config()

	assert.Equal(t, "award_points", cfg.Name)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Backoff)
	assert.Equal(t, time.Minute, cfg.Timeout)
	assert.NotNil(t, cfg.Retention)
}
