package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"medstock/internal/database"
	"medstock/internal/events"
	"medstock/internal/expiry"
	"medstock/internal/models"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateMedicine(ctx context.Context, med *models.Medicine) error {
	return m.Called(ctx, med).Error(0)
}
func (m *mockStore) GetMedicine(ctx context.Context, userID, id string) (*models.Medicine, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Medicine), args.Error(1)
}
func (m *mockStore) ListMedicines(ctx context.Context, userID string) ([]models.Medicine, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Medicine), args.Error(1)
}
func (m *mockStore) UpdateMedicine(ctx context.Context, med *models.Medicine) error {
	return m.Called(ctx, med).Error(0)
}
func (m *mockStore) SetMedicineStatus(ctx context.Context, userID, id string, s models.Status, at time.Time) error {
	return m.Called(ctx, userID, id, s, at).Error(0)
}
func (m *mockStore) DeleteMedicine(ctx context.Context, userID, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}
func (m *mockStore) GetUserSettings(ctx context.Context, userID string) (*models.UserSettings, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserSettings), args.Error(1)
}
func (m *mockStore) UpsertUserSettings(ctx context.Context, s *models.UserSettings) error {
	return m.Called(ctx, s).Error(0)
}
func (m *mockStore) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	args := m.Called(ctx, userID, unreadOnly)
	return args.Get(0).([]models.Notification), args.Error(1)
}
func (m *mockStore) MarkNotificationRead(ctx context.Context, userID string, id int64) error {
	return m.Called(ctx, userID, id).Error(0)
}

type mockEventBus struct {
	mock.Mock
}

func (m *mockEventBus) PublishJSON(et, userID string, p any) error { return m.Called(et, userID, p).Error(0) }

var fixedNow = time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

func day(offset int) time.Time {
	return time.Date(2025, 6, 15+offset, 0, 0, 0, 0, time.UTC)
}

func newTestService() (*Service, *mockStore, *mockEventBus) {
	store := new(mockStore)
	bus := new(mockEventBus)
	svc := NewService(store, nil, bus, func() time.Time { return fixedNow }, zerolog.Nop())
	return svc, store, bus
}

func input(expiryDate string) MedicineInput {
	return MedicineInput{
		Name:        "  Ibuprofen ",
		ExpiryDate:  expiryDate,
		Quantity:    20,
		Unit:        models.UnitTablets,
		DailyDosage: 1,
		DosageTimes: []string{"18:00"},
	}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("derives status from expiry date", func(t *testing.T) {
		cases := []struct {
			date string
			want models.Status
		}{
			{"2025-06-14", models.StatusExpired},
			{"2025-06-15", models.StatusActive},
			{"2026-01-01", models.StatusActive},
		}
		for _, tc := range cases {
			svc, store, bus := newTestService()
			store.On("CreateMedicine", ctx, mock.AnythingOfType("*models.Medicine")).Return(nil).Once()
			bus.On("PublishJSON", events.EventMedicineCreated, "alice", mock.Anything).Return(nil).Once()

			m, err := svc.Create(ctx, "alice", input(tc.date))
			require.NoError(t, err, tc.date)
			assert.Equal(t, tc.want, m.Status, tc.date)
			assert.Equal(t, "Ibuprofen", m.Name)
			assert.NotEmpty(t, m.ID)
			assert.Equal(t, fixedNow, m.CreatedAt)
			store.AssertExpectations(t)
			bus.AssertExpectations(t)
		}
	})

	t.Run("explicit status wins", func(t *testing.T) {
		svc, store, bus := newTestService()
		store.On("CreateMedicine", ctx, mock.Anything).Return(nil).Once()
		bus.On("PublishJSON", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

		in := input("2024-01-01")
		in.Status = models.StatusDonated
		m, err := svc.Create(ctx, "alice", in)
		require.NoError(t, err)
		assert.Equal(t, models.StatusDonated, m.Status)
	})

	t.Run("validation", func(t *testing.T) {
		svc, store, _ := newTestService()

		in := input("15/06/2025")
		in.Quantity = 0
		_, err := svc.Create(ctx, "alice", in)

		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "expiry_date")
		assert.Contains(t, verr.Fields, "quantity")
		store.AssertNotCalled(t, "CreateMedicine", mock.Anything, mock.Anything)
	})

	t.Run("event failure does not fail the write", func(t *testing.T) {
		svc, store, bus := newTestService()
		store.On("CreateMedicine", ctx, mock.Anything).Return(nil).Once()
		bus.On("PublishJSON", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("boom")).Once()

		_, err := svc.Create(ctx, "alice", input("2026-01-01"))
		assert.NoError(t, err)
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("recomputes status", func(t *testing.T) {
		svc, store, bus := newTestService()
		existing := &models.Medicine{ID: "m1", UserID: "alice", Status: models.StatusActive, ExpiryDate: day(10)}
		store.On("GetMedicine", ctx, "alice", "m1").Return(existing, nil).Once()
		store.On("UpdateMedicine", ctx, mock.Anything).Return(nil).Once()
		bus.On("PublishJSON", events.EventMedicineUpdated, "alice", mock.Anything).Return(nil).Once()

		m, err := svc.Update(ctx, "alice", "m1", input("2025-06-01"))
		require.NoError(t, err)
		assert.Equal(t, models.StatusExpired, m.Status)
		assert.Equal(t, fixedNow, m.UpdatedAt)
	})

	t.Run("donated stays donated", func(t *testing.T) {
		svc, store, bus := newTestService()
		existing := &models.Medicine{ID: "m1", UserID: "alice", Status: models.StatusDonated, ExpiryDate: day(10)}
		store.On("GetMedicine", ctx, "alice", "m1").Return(existing, nil).Once()
		store.On("UpdateMedicine", ctx, mock.Anything).Return(nil).Once()
		bus.On("PublishJSON", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

		m, err := svc.Update(ctx, "alice", "m1", input("2026-01-01"))
		require.NoError(t, err)
		assert.Equal(t, models.StatusDonated, m.Status)
	})

	t.Run("not found", func(t *testing.T) {
		svc, store, _ := newTestService()
		store.On("GetMedicine", ctx, "bob", "m1").Return(nil, database.ErrNotFound).Once()

		_, err := svc.Update(ctx, "bob", "m1", input("2026-01-01"))
		assert.ErrorIs(t, err, database.ErrNotFound)
	})
}

func TestService_Donate(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name    string
		med     models.Medicine
		wantErr error
	}{
		{"eligible", models.Medicine{Status: models.StatusActive, ExpiryDate: day(10)}, nil},
		{"already donated", models.Medicine{Status: models.StatusDonated, ExpiryDate: day(10)}, ErrAlreadyDonated},
		{"expires today", models.Medicine{Status: models.StatusActive, ExpiryDate: day(0)}, ErrNotEligible},
		{"too far out", models.Medicine{Status: models.StatusActive, ExpiryDate: day(31)}, ErrNotEligible},
		{"stored expired", models.Medicine{Status: models.StatusExpired, ExpiryDate: day(10)}, ErrNotEligible},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, store, bus := newTestService()
			med := tc.med
			med.ID, med.UserID = "m1", "alice"
			store.On("GetMedicine", ctx, "alice", "m1").Return(&med, nil).Once()
			if tc.wantErr == nil {
				store.On("SetMedicineStatus", ctx, "alice", "m1", models.StatusDonated, fixedNow).Return(nil).Once()
				bus.On("PublishJSON", events.EventMedicineDonated, "alice", mock.Anything).Return(nil).Once()
			}

			m, err := svc.Donate(ctx, "alice", "m1")
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				store.AssertNotCalled(t, "SetMedicineStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.StatusDonated, m.Status)
			store.AssertExpectations(t)
			bus.AssertExpectations(t)
		})
	}
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, store, bus := newTestService()

	store.On("DeleteMedicine", ctx, "alice", "m1").Return(nil).Once()
	bus.On("PublishJSON", events.EventMedicineDeleted, "alice", map[string]string{"id": "m1"}).Return(nil).Once()
	require.NoError(t, svc.Delete(ctx, "alice", "m1"))

	store.On("DeleteMedicine", ctx, "alice", "gone").Return(database.ErrNotFound).Once()
	assert.ErrorIs(t, svc.Delete(ctx, "alice", "gone"), database.ErrNotFound)
	bus.AssertExpectations(t)
}

func sampleMedicines() []models.Medicine {
	return []models.Medicine{
		{ID: "expired", Name: "Old syrup", Status: models.StatusActive, ExpiryDate: day(-3), DosageTimes: []string{"15:00"}},
		{ID: "soon", Name: "Aspirin", Status: models.StatusActive, ExpiryDate: day(5), DosageTimes: []string{"20:00", "08:00"}},
		{ID: "donated", Name: "Vitamin D", Status: models.StatusDonated, ExpiryDate: day(6), DosageTimes: []string{"15:00"}},
		{ID: "later", Name: "Insulin", Notes: "keep cold", Status: models.StatusActive, ExpiryDate: day(60), DosageTimes: []string{"15:00"}},
		{ID: "nodose", Name: "Bandages", Status: models.StatusActive, ExpiryDate: day(200), DosageTimes: []string{}},
	}
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService()
	store.On("ListMedicines", ctx, "alice").Return(sampleMedicines(), nil)

	views, err := svc.List(ctx, "alice", Query{Status: "expired"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "expired", views[0].Medicine.ID)
	assert.Equal(t, expiry.ColorRed, views[0].Classification.Color)
	assert.Equal(t, "Expired 3 days ago", views[0].Classification.DisplayText)
	assert.Nil(t, views[0].NextDosage)

	views, err = svc.List(ctx, "alice", Query{Search: "COLD"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "later", views[0].Medicine.ID)
	require.NotNil(t, views[0].NextDosage)
	assert.Equal(t, "15:00", views[0].NextDosage.Time)

	views, err = svc.List(ctx, "alice", Query{Order: OrderExpiryDesc})
	require.NoError(t, err)
	require.Len(t, views, 5)
	assert.Equal(t, "nodose", views[0].Medicine.ID)
	assert.True(t, views[3].CanDonate, "aspirin is within the donation window")
}

func TestService_ExpiringAndUpcoming(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService()
	store.On("ListMedicines", ctx, "alice").Return(sampleMedicines(), nil)
	store.On("GetUserSettings", ctx, "alice").Return(models.DefaultUserSettings("alice"), nil)

	views, err := svc.Expiring(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "soon", views[0].Medicine.ID)

	entries, err := svc.Upcoming(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "later", entries[0].MedicineID)
	assert.Equal(t, 30, entries[0].TotalMinutes())
	assert.Equal(t, "soon", entries[1].MedicineID)
	assert.Equal(t, "20:00", entries[1].Time)
}

func TestService_UpdateSettings(t *testing.T) {
	ctx := context.Background()
	svc, store, bus := newTestService()

	store.On("GetUserSettings", ctx, "alice").Return(models.DefaultUserSettings("alice"), nil)
	store.On("UpsertUserSettings", ctx, mock.Anything).Return(nil).Once()
	bus.On("PublishJSON", events.EventSettingsUpdated, "alice", mock.Anything).Return(nil).Once()

	s, err := svc.UpdateSettings(ctx, "alice", SettingsInput{ReminderThreshold: 14, ReminderType: models.ReminderBoth, Email: " a@b.io "})
	require.NoError(t, err)
	assert.Equal(t, 14, s.ReminderThreshold)
	assert.Equal(t, "a@b.io", s.Email)

	_, err = svc.UpdateSettings(ctx, "alice", SettingsInput{ReminderThreshold: 91, ReminderType: models.ReminderInApp})
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
	store.AssertNumberOfCalls(t, "UpsertUserSettings", 1)
}
