package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medstock/internal/config"
	"medstock/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testMedicine(id, userID string, expiry time.Time) *models.Medicine {
	now := time.Now().Truncate(time.Second)
	return &models.Medicine{
		ID:          id,
		UserID:      userID,
		Name:        "Medicine " + id,
		ExpiryDate:  expiry,
		Quantity:    10,
		Unit:        models.UnitTablets,
		Status:      models.StatusActive,
		DailyDosage: 2,
		DosageTimes: []string{"20:00", "08:00"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMedicineCRUD(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	m := testMedicine("m1", "alice", date(2026, 1, 10))
	m.Notes = "with food"
	require.NoError(t, db.CreateMedicine(ctx, m))

	got, err := db.GetMedicine(ctx, "alice", "m1")
	require.NoError(t, err)
	assert.Equal(t, "Medicine m1", got.Name)
	assert.Equal(t, "2026-01-10", got.Expiry())
	assert.Equal(t, []string{"20:00", "08:00"}, got.DosageTimes, "stored order is preserved")
	assert.Equal(t, models.UnitTablets, got.Unit)
	assert.Equal(t, "with food", got.Notes)

	t.Run("scoped by owner", func(t *testing.T) {
		_, err := db.GetMedicine(ctx, "bob", "m1")
		assert.ErrorIs(t, err, ErrNotFound)

		other := *got
		other.UserID = "bob"
		assert.ErrorIs(t, db.UpdateMedicine(ctx, &other), ErrNotFound)
		assert.ErrorIs(t, db.DeleteMedicine(ctx, "bob", "m1"), ErrNotFound)
	})

	t.Run("update", func(t *testing.T) {
		got.Quantity = 5
		got.DailyDosage = 0
		got.DosageTimes = nil
		got.UpdatedAt = time.Now()
		require.NoError(t, db.UpdateMedicine(ctx, got))

		again, err := db.GetMedicine(ctx, "alice", "m1")
		require.NoError(t, err)
		assert.Equal(t, 5, again.Quantity)
		assert.Empty(t, again.DosageTimes)
	})

	t.Run("status", func(t *testing.T) {
		require.NoError(t, db.SetMedicineStatus(ctx, "alice", "m1", models.StatusDonated, time.Now()))
		again, err := db.GetMedicine(ctx, "alice", "m1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusDonated, again.Status)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, db.DeleteMedicine(ctx, "alice", "m1"))
		_, err := db.GetMedicine(ctx, "alice", "m1")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestListMedicines_OrderedByExpiry(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateMedicine(ctx, testMedicine("late", "alice", date(2027, 1, 1))))
	require.NoError(t, db.CreateMedicine(ctx, testMedicine("early", "alice", date(2025, 1, 1))))
	require.NoError(t, db.CreateMedicine(ctx, testMedicine("mid", "alice", date(2026, 1, 1))))
	require.NoError(t, db.CreateMedicine(ctx, testMedicine("foreign", "bob", date(2024, 1, 1))))

	meds, err := db.ListMedicines(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, meds, 3)
	assert.Equal(t, "early", meds[0].ID)
	assert.Equal(t, "mid", meds[1].ID)
	assert.Equal(t, "late", meds[2].ID)

	empty, err := db.ListMedicines(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	users, err := db.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, users)

	require.NoError(t, db.SetMedicineStatus(ctx, "bob", "foreign", models.StatusDonated, time.Now()))
	users, err = db.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, users)

	owners, err := db.ListOwners(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, owners)
}

func TestMigrate_Idempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrate())

	var version int
	require.NoError(t, db.QueryRow(`SELECT version FROM schema_migrations`).Scan(&version))
	assert.Equal(t, 2, version)
}

func TestUserSettings_LazyDefaults(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	s, err := db.GetUserSettings(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 7, s.ReminderThreshold)
	assert.Equal(t, models.ReminderInApp, s.ReminderType)
	assert.NotZero(t, s.ID)

	again, err := db.GetUserSettings(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, s.ID, again.ID, "defaults are created once")

	s.ReminderThreshold = 14
	s.ReminderType = models.ReminderBoth
	s.Email = "alice@example.com"
	require.NoError(t, db.UpsertUserSettings(ctx, s))

	updated, err := db.GetUserSettings(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 14, updated.ReminderThreshold)
	assert.Equal(t, models.ReminderBoth, updated.ReminderType)
	assert.Equal(t, "alice@example.com", updated.Email)
}

func TestNotifications(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateMedicine(ctx, testMedicine("m1", "alice", date(2026, 1, 1))))

	start := time.Now().Add(-time.Minute)
	has, err := db.HasNotificationSince(ctx, "alice", "m1", start)
	require.NoError(t, err)
	assert.False(t, has)

	n := &models.Notification{UserID: "alice", MedicineID: "m1", Message: "Medicine m1 expires in 3 days"}
	require.NoError(t, db.CreateNotification(ctx, n))
	assert.NotZero(t, n.ID)

	has, err = db.HasNotificationSince(ctx, "alice", "m1", start)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = db.HasNotificationSince(ctx, "alice", "m1", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, has)

	unread, err := db.ListNotifications(ctx, "alice", true)
	require.NoError(t, err)
	require.Len(t, unread, 1)

	assert.ErrorIs(t, db.MarkNotificationRead(ctx, "bob", n.ID), ErrNotFound)
	require.NoError(t, db.MarkNotificationRead(ctx, "alice", n.ID))

	unread, err = db.ListNotifications(ctx, "alice", true)
	require.NoError(t, err)
	assert.Empty(t, unread)

	all, err := db.ListNotifications(ctx, "alice", false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Read)

	require.NoError(t, db.DeleteMedicine(ctx, "alice", "m1"))
	all, err = db.ListNotifications(ctx, "alice", false)
	require.NoError(t, err)
	assert.Empty(t, all, "notifications follow their medicine")
}

func TestBackupService(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.CreateMedicine(ctx, testMedicine("m1", "alice", date(2026, 1, 1))))

	dir := filepath.Join(t.TempDir(), "backups")
	svc := NewBackupService(db, config.BackupConfig{Enabled: true, Path: dir, RetentionDays: 7}, zerolog.Nop())

	path, err := svc.PerformBackup(ctx)
	require.NoError(t, err)

	restored, err := NewDB(path, zerolog.Nop())
	require.NoError(t, err)
	defer restored.Close()

	meds, err := restored.ListMedicines(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, meds, 1)

	old := filepath.Join(dir, "backup_old.db")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o600))
	past := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(old, past, past))

	assert.Equal(t, 1, svc.CleanupOldBackups())
	_, err = os.Stat(old)
	assert.True(t, os.IsNotExist(err))
}
