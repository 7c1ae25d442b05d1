package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RankingRefresher recomputes the cached leaderboard snapshot.
type RankingRefresher interface {
	Refresh() error
}

// LeaderboardScheduler periodically refreshes the cached ranking snapshot.
type LeaderboardScheduler struct {
	ranking  RankingRefresher
	schedule string

	entryID       cron.EntryID
	mu            sync.RWMutex
	isRunning     bool
	isRefreshing  bool
	cancelFunc    context.CancelFunc
	cronScheduler *cron.Cron
}

// NewLeaderboardScheduler creates a scheduler that refreshes the leaderboard
// on the given cron schedule (standard 5-field format).
func NewLeaderboardScheduler(ranking RankingRefresher, schedule string) *LeaderboardScheduler {
	return &LeaderboardScheduler{
		ranking:       ranking,
		schedule:      schedule,
		cronScheduler: cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler.
func (s *LeaderboardScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	entryID, err := s.cronScheduler.AddFunc(s.schedule, func() {
		s.runRefresh()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule leaderboard refresh '%s': %w", s.schedule, err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cronScheduler.Start()
	s.isRunning = true

	log.Printf("Leaderboard scheduler: started with schedule '%s'", s.schedule)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running refresh to complete.
func (s *LeaderboardScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cronScheduler.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Leaderboard scheduler: stopped")
}

// RunNow triggers an immediate refresh.
func (s *LeaderboardScheduler) RunNow() {
	go s.runRefresh()
}

// IsRunning returns whether the scheduler is active.
func (s *LeaderboardScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the next refresh will occur.
func (s *LeaderboardScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cronScheduler.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *LeaderboardScheduler) runRefresh() {
	s.mu.Lock()
	if s.isRefreshing {
		s.mu.Unlock()
		log.Printf("Leaderboard refresh: skipped (already refreshing)")
		return
	}
	s.isRefreshing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isRefreshing = false
		s.mu.Unlock()
	}()

	start := time.Now()
	if err := s.ranking.Refresh(); err != nil {
		log.Printf("Leaderboard refresh: failed: %v", err)
		return
	}
	log.Printf("Leaderboard refresh: completed in %v", time.Since(start).Round(time.Millisecond))
}
