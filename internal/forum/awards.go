// Package forum bridges forum activity into reputation awards. The forum
// workflows themselves live elsewhere; this package only reacts to their
// events with fixed point values.
package forum

import (
	"github.com/bibliotek/backend/internal/entities"
)

// Fixed award amounts per forum action.
const (
	TopicPoints = 15
	ReplyPoints = 5
)

// Award reasons recorded with queued tasks.
const (
	ReasonTopicCreated = "forum_topic_created"
	ReasonReplyCreated = "forum_reply_created"
)

// Awarder grants reputation points synchronously.
type Awarder interface {
	AwardPoints(userID uint, amount int64) (*entities.ReputationRecord, error)
}

// TaskEnqueuer hands an award to the background task queue.
type TaskEnqueuer interface {
	EnqueueAwardPoints(userID uint, amount int64, reason string) error
}

// Hooks receives forum activity notifications and turns them into awards.
// When a task queue is configured awards run asynchronously; otherwise they
// are applied inline.
type Hooks struct {
	awarder Awarder
	queue   TaskEnqueuer
}

// NewHooks creates forum award hooks. queue may be nil.
func NewHooks(awarder Awarder, queue TaskEnqueuer) *Hooks {
	return &Hooks{
		awarder: awarder,
		queue:   queue,
	}
}

// TopicCreated awards the fixed topic-creation amount.
func (h *Hooks) TopicCreated(userID uint) error {
	return h.award(userID, TopicPoints, ReasonTopicCreated)
}

// ReplyCreated awards the fixed reply amount.
func (h *Hooks) ReplyCreated(userID uint) error {
	return h.award(userID, ReplyPoints, ReasonReplyCreated)
}

func (h *Hooks) award(userID uint, amount int64, reason string) error {
	if h.queue != nil {
		return h.queue.EnqueueAwardPoints(userID, amount, reason)
	}
	_, err := h.awarder.AwardPoints(userID, amount)
	return err
}
