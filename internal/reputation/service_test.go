package reputation

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bibliotek/backend/internal/database/readinglog"
	repstore "github.com/bibliotek/backend/internal/database/reputation"
	"github.com/bibliotek/backend/internal/database/users"
	"github.com/bibliotek/backend/internal/entities"
	"github.com/bibliotek/backend/internal/levels"
)

func setupService(t *testing.T, cfg Config) (*gorm.DB, *Service, func()) {
	dbPath := "./test_reputation_service_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&entities.User{},
		&entities.ReputationRecord{},
		&entities.ReadingLogEntry{},
	)
	require.NoError(t, err)

	svc := NewService(
		repstore.NewRepository(db),
		readinglog.NewRepository(db),
		users.NewRepository(db),
		levels.NewCurve(100),
		cfg,
	)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return db, svc, cleanup
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *entities.User {
	user := &entities.User{
		Username: username,
		Email:    username + "@example.com",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestService_GetOrCreate(t *testing.T) {
	db, svc, cleanup := setupService(t, Config{})
	defer cleanup()

	user := createTestUser(t, db, "reader")

	record, err := svc.GetOrCreate(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), record.Points)
	assert.Equal(t, 1, record.Level)

	// Second call takes the fast path and resolves the same row.
	again, err := svc.GetOrCreate(user.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, again.ID)
}

func TestService_GetOrCreate_UnknownUser(t *testing.T) {
	_, svc, cleanup := setupService(t, Config{})
	defer cleanup()

	_, err := svc.GetOrCreate(12345)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_GetOrCreate_Concurrent(t *testing.T) {
	db, svc, cleanup := setupService(t, Config{})
	defer cleanup()

	user := createTestUser(t, db, "reader")

	const n = 16
	results := make([]*entities.ReputationRecord, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.GetOrCreate(user.ID)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].ID, results[i].ID)
		assert.Equal(t, int64(0), results[i].Points)
	}

	var count int64
	db.Model(&entities.ReputationRecord{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestService_AwardPoints(t *testing.T) {
	db, svc, cleanup := setupService(t, Config{})
	defer cleanup()

	user := createTestUser(t, db, "reader")

	record, err := svc.AwardPoints(user.ID, 150)
	require.NoError(t, err)
	assert.Equal(t, int64(150), record.Points)
	assert.Equal(t, 1, record.Level)

	// Crossing 200 points reaches level 2.
	record, err = svc.AwardPoints(user.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(250), record.Points)
	assert.Equal(t, 2, record.Level)

	// The mutation is persisted.
	var stored entities.ReputationRecord
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&stored).Error)
	assert.Equal(t, int64(250), stored.Points)
	assert.Equal(t, 2, stored.Level)
}

func TestService_AwardPoints_InvalidAmountIsNoOp(t *testing.T) {
	db, svc, cleanup := setupService(t, Config{})
	defer cleanup()

	user := createTestUser(t, db, "reader")

	_, err := svc.AwardPoints(user.ID, 30)
	require.NoError(t, err)

	record, err := svc.AwardPoints(user.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(30), record.Points)

	record, err = svc.AwardPoints(user.ID, -10)
	require.NoError(t, err)
	assert.Equal(t, int64(30), record.Points)
}

func TestService_AwardPoints_UnknownUser(t *testing.T) {
	_, svc, cleanup := setupService(t, Config{})
	defer cleanup()

	_, err := svc.AwardPoints(777, 10)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_AwardPoints_ConcurrentNoLostUpdate(t *testing.T) {
	db, svc, cleanup := setupService(t, Config{})
	defer cleanup()

	user := createTestUser(t, db, "reader")

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AwardPoints(user.ID, 5)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	record, err := svc.GetOrCreate(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n*5), record.Points)
}

func TestService_AwardForReading_RateLimit(t *testing.T) {
	db, svc, cleanup := setupService(t, Config{SessionPoints: 20, MinInterval: 250 * time.Millisecond})
	defer cleanup()

	user := createTestUser(t, db, "reader")

	// First session: fresh record, award granted.
	record, err := svc.AwardForReading(user.ID, 5, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(20), record.Points)
	assert.Equal(t, 1, record.Level)

	// Immediate second session: throttled, points unchanged.
	record, err = svc.AwardForReading(user.ID, 5, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(20), record.Points)

	// Past the minimum gap: second award granted.
	time.Sleep(300 * time.Millisecond)
	record, err = svc.AwardForReading(user.ID, 5, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(40), record.Points)
	assert.Equal(t, 1, record.Level)

	// The log recorded every session, throttled or not.
	entries, total, err := svc.ListActivity(user.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, entries, 3)
	assert.Equal(t, 7, entries[0].PagesRead)
	assert.Equal(t, 6, entries[1].PagesRead)
	assert.Equal(t, 5, entries[2].PagesRead)
}

func TestService_AwardForReading_LevelUp(t *testing.T) {
	db, svc, cleanup := setupService(t, Config{SessionPoints: 20, MinInterval: 10 * time.Millisecond})
	defer cleanup()

	user := createTestUser(t, db, "reader")

	// Seed an existing record just below the level 2 threshold.
	record, err := svc.AwardPoints(user.ID, 190)
	require.NoError(t, err)
	assert.Equal(t, 1, record.Level)

	record, err = svc.AwardForReading(user.ID, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(210), record.Points)
	assert.Equal(t, 2, record.Level)
}

func TestService_AwardForReading_UnknownUser(t *testing.T) {
	_, svc, cleanup := setupService(t, Config{})
	defer cleanup()

	_, err := svc.AwardForReading(555, 1, 1)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_Delete(t *testing.T) {
	db, svc, cleanup := setupService(t, Config{})
	defer cleanup()

	user := createTestUser(t, db, "reader")

	_, err := svc.GetOrCreate(user.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(user.ID))

	var count int64
	db.Model(&entities.ReputationRecord{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(0), count)

	// Deleting again, or deleting when no record ever existed, is fine.
	require.NoError(t, svc.Delete(user.ID))

	other := createTestUser(t, db, "other")
	require.NoError(t, svc.Delete(other.ID))
}

func TestService_DeleteAccount(t *testing.T) {
	db, svc, cleanup := setupService(t, Config{})
	defer cleanup()

	user := createTestUser(t, db, "reader")

	_, err := svc.AwardForReading(user.ID, 3, 12)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAccount(user.ID))

	var repCount, logCount, userCount int64
	db.Model(&entities.ReputationRecord{}).Where("user_id = ?", user.ID).Count(&repCount)
	db.Model(&entities.ReadingLogEntry{}).Where("user_id = ?", user.ID).Count(&logCount)
	db.Model(&entities.User{}).Where("id = ?", user.ID).Count(&userCount)
	assert.Zero(t, repCount)
	assert.Zero(t, logCount)
	assert.Zero(t, userCount)

	// The account is gone, so a second delete reports an unknown user.
	assert.ErrorIs(t, svc.DeleteAccount(user.ID), ErrUserNotFound)
}

func TestService_DeleteAccount_ConcurrentAwardLeavesNoOrphan(t *testing.T) {
	db, svc, cleanup := setupService(t, Config{})
	defer cleanup()

	user := createTestUser(t, db, "reader")

	_, err := svc.AwardPoints(user.ID, 50)
	require.NoError(t, err)

	// Awards race the deletion for the same user. Whichever side gets the
	// lock last decides: awards after the cascade see the user gone, awards
	// before it are swept up by the cascade.
	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AwardPoints(user.ID, 5)
			if err != nil {
				assert.ErrorIs(t, err, ErrUserNotFound)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, svc.DeleteAccount(user.ID))
	}()
	wg.Wait()

	var repCount int64
	db.Model(&entities.ReputationRecord{}).Where("user_id = ?", user.ID).Count(&repCount)
	assert.Zero(t, repCount, "no reputation row may survive the account")

	_, err = svc.AwardPoints(user.ID, 5)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_Delete_UnknownUser(t *testing.T) {
	_, svc, cleanup := setupService(t, Config{})
	defer cleanup()

	assert.ErrorIs(t, svc.Delete(4242), ErrUserNotFound)
}

func TestService_ListActivity_UnknownUser(t *testing.T) {
	_, svc, cleanup := setupService(t, Config{})
	defer cleanup()

	_, _, err := svc.ListActivity(4242, 10, 0)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
