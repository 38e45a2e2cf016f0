package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"medstock/internal/cache"
	"medstock/internal/dosage"
	"medstock/internal/events"
	"medstock/internal/expiry"
	"medstock/internal/models"
)

var (
	ErrAlreadyDonated = errors.New("medicine is already donated")
	ErrNotEligible    = errors.New("medicine is not eligible for donation")
)

// Store is the persistence the service needs.
type Store interface {
	CreateMedicine(ctx context.Context, m *models.Medicine) error
	GetMedicine(ctx context.Context, userID, id string) (*models.Medicine, error)
	ListMedicines(ctx context.Context, userID string) ([]models.Medicine, error)
	UpdateMedicine(ctx context.Context, m *models.Medicine) error
	SetMedicineStatus(ctx context.Context, userID, id string, status models.Status, at time.Time) error
	DeleteMedicine(ctx context.Context, userID, id string) error
	GetUserSettings(ctx context.Context, userID string) (*models.UserSettings, error)
	UpsertUserSettings(ctx context.Context, s *models.UserSettings) error
	ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, userID string, id int64) error
}

// EventPublisher receives domain events after successful writes.
type EventPublisher interface {
	PublishJSON(eventType, userID string, payload any) error
}

// Clock returns the current instant.
type Clock func() time.Time

// MedicineInput is the editable part of a medicine as submitted by a user.
type MedicineInput struct {
	Name        string        `json:"name"`
	ExpiryDate  string        `json:"expiry_date"`
	Quantity    int           `json:"quantity"`
	Unit        models.Unit   `json:"unit"`
	Status      models.Status `json:"status,omitempty"`
	Notes       string        `json:"notes"`
	DailyDosage int           `json:"daily_dosage"`
	DosageTimes []string      `json:"dosage_times"`
}

// SettingsInput is the editable part of user settings.
type SettingsInput struct {
	ReminderThreshold int                 `json:"reminder_threshold"`
	ReminderType      models.ReminderType `json:"reminder_type"`
	Email             string              `json:"email"`
}

// View is a medicine together with everything derived from "now".
type View struct {
	Medicine       models.Medicine       `json:"medicine"`
	Classification expiry.Classification `json:"classification"`
	CanDonate      bool                  `json:"can_donate"`
	NextDosage     *dosage.Dosage        `json:"next_dosage,omitempty"`
}

type Service struct {
	store  Store
	cache  *cache.Cache
	bus    EventPublisher
	now    Clock
	logger zerolog.Logger
}

func NewService(store Store, c *cache.Cache, bus EventPublisher, now Clock, logger zerolog.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:  store,
		cache:  c,
		bus:    bus,
		now:    now,
		logger: logger.With().Str("component", "inventory").Logger(),
	}
}

// Now returns the service clock's current instant.
func (s *Service) Now() time.Time { return s.now() }

// ViewOf derives the display state of m at the service clock.
func (s *Service) ViewOf(m models.Medicine) View {
	now := s.now()
	v := View{
		Medicine:       m,
		Classification: expiry.Classify(m.ExpiryDate, m.Status, now),
		CanDonate:      expiry.ShouldOfferDonation(m.ExpiryDate, m.Status, now),
	}
	if v.Classification.EffectiveStatus == models.StatusActive {
		if d, ok := dosage.Next(m.DosageTimes, now); ok {
			v.NextDosage = &d
		}
	}
	return v
}

func (s *Service) views(meds []models.Medicine) []View {
	out := make([]View, 0, len(meds))
	for i := range meds {
		out = append(out, s.ViewOf(meds[i]))
	}
	return out
}

func (in MedicineInput) apply(m *models.Medicine) error {
	m.Name = strings.TrimSpace(in.Name)
	m.Quantity = in.Quantity
	m.Unit = in.Unit
	m.Notes = strings.TrimSpace(in.Notes)
	m.DailyDosage = in.DailyDosage
	m.DosageTimes = append([]string{}, in.DosageTimes...)
	m.ExpiryDate = time.Time{}

	var dateErr string
	if in.ExpiryDate != "" {
		t, err := models.ParseDate(in.ExpiryDate, time.UTC)
		if err != nil {
			dateErr = "Invalid expiry date, expected YYYY-MM-DD"
		} else {
			m.ExpiryDate = t
		}
	}

	err := m.Validate()
	if dateErr == "" {
		return err
	}
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		verr = &models.ValidationError{Fields: map[string]string{}}
	}
	verr.Fields["expiry_date"] = dateErr
	return verr
}

// Create validates and stores a new medicine. Without an explicit status the
// medicine starts as expired or active depending on its expiry date.
func (s *Service) Create(ctx context.Context, userID string, in MedicineInput) (*models.Medicine, error) {
	m := &models.Medicine{UserID: userID, Status: in.Status}
	if err := in.apply(m); err != nil {
		return nil, err
	}

	now := s.now()
	m.ID = uuid.NewString()
	if m.Status == "" {
		m.Status = expiry.InitialStatus(m.ExpiryDate, now)
	}
	m.CreatedAt = now
	m.UpdatedAt = now

	if err := s.store.CreateMedicine(ctx, m); err != nil {
		return nil, err
	}
	s.afterWrite(ctx, events.EventMedicineCreated, userID, m)

	s.logger.Info().Str("user_id", userID).Str("medicine_id", m.ID).Msg("Medicine created")
	return m, nil
}

// Get returns one medicine of the user.
func (s *Service) Get(ctx context.Context, userID, id string) (*models.Medicine, error) {
	return s.store.GetMedicine(ctx, userID, id)
}

// Update replaces the editable fields of a medicine. An explicit status is
// kept as given; otherwise a donated medicine stays donated and any other is
// re-derived from the new expiry date.
func (s *Service) Update(ctx context.Context, userID, id string, in MedicineInput) (*models.Medicine, error) {
	m, err := s.store.GetMedicine(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	previous := m.Status
	m.Status = in.Status
	if err := in.apply(m); err != nil {
		return nil, err
	}

	now := s.now()
	if m.Status == "" {
		if previous == models.StatusDonated {
			m.Status = models.StatusDonated
		} else {
			m.Status = expiry.InitialStatus(m.ExpiryDate, now)
		}
	}
	m.UpdatedAt = now

	if err := s.store.UpdateMedicine(ctx, m); err != nil {
		return nil, err
	}
	s.afterWrite(ctx, events.EventMedicineUpdated, userID, m)
	return m, nil
}

// Donate marks a medicine as donated. Only medicines for which the donate
// action is offered can be donated.
func (s *Service) Donate(ctx context.Context, userID, id string) (*models.Medicine, error) {
	m, err := s.store.GetMedicine(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if m.Status == models.StatusDonated {
		return nil, ErrAlreadyDonated
	}

	now := s.now()
	if !expiry.ShouldOfferDonation(m.ExpiryDate, m.Status, now) {
		return nil, fmt.Errorf("%w: %s", ErrNotEligible, expiry.Text(expiry.DaysUntil(m.ExpiryDate, now)))
	}

	if err := s.store.SetMedicineStatus(ctx, userID, id, models.StatusDonated, now); err != nil {
		return nil, err
	}
	m.Status = models.StatusDonated
	m.UpdatedAt = now
	s.afterWrite(ctx, events.EventMedicineDonated, userID, m)

	s.logger.Info().Str("user_id", userID).Str("medicine_id", id).Msg("Medicine donated")
	return m, nil
}

// Delete removes a medicine.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteMedicine(ctx, userID, id); err != nil {
		return err
	}
	s.afterWrite(ctx, events.EventMedicineDeleted, userID, map[string]string{"id": id})
	return nil
}

// Medicines returns the raw medicine list, served from cache when possible.
func (s *Service) Medicines(ctx context.Context, userID string) ([]models.Medicine, error) {
	if meds, ok := s.cache.Medicines(ctx, userID); ok {
		return meds, nil
	}
	meds, err := s.store.ListMedicines(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.cache.SetMedicines(ctx, userID, meds)
	return meds, nil
}

// List returns the user's medicines filtered and ordered by q.
func (s *Service) List(ctx context.Context, userID string, q Query) ([]View, error) {
	meds, err := s.Medicines(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.views(Apply(meds, q, s.now())), nil
}

// Expiring returns active medicines within the user's reminder threshold.
func (s *Service) Expiring(ctx context.Context, userID string) ([]View, error) {
	settings, err := s.Settings(ctx, userID)
	if err != nil {
		return nil, err
	}
	meds, err := s.Medicines(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.views(expiry.ExpiringSoon(meds, settings.ReminderThreshold, s.now())), nil
}

// Upcoming returns the next dosages across the user's active medicines.
func (s *Service) Upcoming(ctx context.Context, userID string, limit int) ([]dosage.Entry, error) {
	meds, err := s.Medicines(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dosage.Upcoming(meds, s.now(), limit), nil
}

// Settings returns the user's reminder settings, creating defaults on first use.
func (s *Service) Settings(ctx context.Context, userID string) (*models.UserSettings, error) {
	if settings, ok := s.cache.Settings(ctx, userID); ok {
		return settings, nil
	}
	settings, err := s.store.GetUserSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.cache.SetSettings(ctx, settings)
	return settings, nil
}

// UpdateSettings validates and stores the user's reminder settings.
func (s *Service) UpdateSettings(ctx context.Context, userID string, in SettingsInput) (*models.UserSettings, error) {
	settings, err := s.store.GetUserSettings(ctx, userID)
	if err != nil {
		return nil, err
	}

	settings.ReminderThreshold = in.ReminderThreshold
	settings.ReminderType = in.ReminderType
	settings.Email = strings.TrimSpace(in.Email)
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	settings.UpdatedAt = s.now()

	if err := s.store.UpsertUserSettings(ctx, settings); err != nil {
		return nil, err
	}
	s.afterWrite(ctx, events.EventSettingsUpdated, userID, settings)
	return settings, nil
}

// Notifications returns the user's in-app reminders, newest first.
func (s *Service) Notifications(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	return s.store.ListNotifications(ctx, userID, unreadOnly)
}

func (s *Service) MarkNotificationRead(ctx context.Context, userID string, id int64) error {
	return s.store.MarkNotificationRead(ctx, userID, id)
}

func (s *Service) afterWrite(ctx context.Context, eventType, userID string, payload any) {
	s.cache.Invalidate(ctx, userID)
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishJSON(eventType, userID, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("Event handler failed")
	}
}
