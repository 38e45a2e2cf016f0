package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateLayout is the storage and wire format of calendar dates.
const DateLayout = "2006-01-02"

// ClockLayout is the format of a daily dosage time.
const ClockLayout = "15:04"

// Status is the persisted lifecycle state of a medicine.
type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
	StatusDonated Status = "donated"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusExpired, StatusDonated:
		return true
	default:
		return false
	}
}

// Unit is the unit a medicine quantity is counted in.
type Unit string

const (
	UnitTablets  Unit = "tablets"
	UnitCapsules Unit = "capsules"
	UnitML       Unit = "ml"
	UnitMG       Unit = "mg"
	UnitG        Unit = "g"
	UnitPieces   Unit = "pieces"
	UnitBottles  Unit = "bottles"
	UnitBoxes    Unit = "boxes"
)

var units = map[Unit]bool{
	UnitTablets: true, UnitCapsules: true, UnitML: true, UnitMG: true,
	UnitG: true, UnitPieces: true, UnitBottles: true, UnitBoxes: true,
}

// Valid reports whether u is one of the known units.
func (u Unit) Valid() bool { return units[u] }

const (
	MaxQuantity    = 1000
	MaxDailyDosage = 10
)

// Medicine is a single inventory record owned by one user.
type Medicine struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	ExpiryDate  time.Time `json:"-"`
	Quantity    int       `json:"quantity"`
	Unit        Unit      `json:"unit"`
	Status      Status    `json:"status"`
	Notes       string    `json:"notes,omitempty"`
	DailyDosage int       `json:"daily_dosage"`
	DosageTimes []string  `json:"dosage_times"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Expiry returns the expiry date formatted as YYYY-MM-DD.
func (m *Medicine) Expiry() string {
	if m.ExpiryDate.IsZero() {
		return ""
	}
	return m.ExpiryDate.Format(DateLayout)
}

type medicineJSON struct {
	*medicineAlias
	ExpiryDate string `json:"expiry_date"`
}

type medicineAlias Medicine

// MarshalJSON encodes the expiry date as YYYY-MM-DD.
func (m Medicine) MarshalJSON() ([]byte, error) {
	a := medicineAlias(m)
	return json.Marshal(medicineJSON{medicineAlias: &a, ExpiryDate: m.Expiry()})
}

// UnmarshalJSON decodes a medicine whose expiry date is YYYY-MM-DD.
func (m *Medicine) UnmarshalJSON(data []byte) error {
	aux := medicineJSON{medicineAlias: (*medicineAlias)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	m.ExpiryDate = time.Time{}
	if aux.ExpiryDate == "" {
		return nil
	}
	t, err := time.Parse(DateLayout, aux.ExpiryDate)
	if err != nil {
		return fmt.Errorf("expiry_date: %w", err)
	}
	m.ExpiryDate = t
	return nil
}

// HasSchedule reports whether the medicine has at least one dosage time.
func (m *Medicine) HasSchedule() bool {
	return len(m.DosageTimes) > 0
}

// SortedDosageTimes returns a sorted copy of the dosage times.
func (m *Medicine) SortedDosageTimes() []string {
	out := append([]string(nil), m.DosageTimes...)
	sort.Strings(out)
	return out
}

// ValidationError carries per-field validation messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validate checks the fields a user can edit.
func (m *Medicine) Validate() error {
	fields := make(map[string]string)

	if strings.TrimSpace(m.Name) == "" {
		fields["name"] = "Medicine name is required"
	}
	if m.ExpiryDate.IsZero() {
		fields["expiry_date"] = "Expiry date is required"
	}
	if m.Quantity <= 0 {
		fields["quantity"] = "Quantity must be greater than 0"
	} else if m.Quantity > MaxQuantity {
		fields["quantity"] = fmt.Sprintf("Quantity must not exceed %d", MaxQuantity)
	}
	if !m.Unit.Valid() {
		fields["unit"] = fmt.Sprintf("Unknown unit %q", m.Unit)
	}
	if m.Status != "" && !m.Status.Valid() {
		fields["status"] = fmt.Sprintf("Unknown status %q", m.Status)
	}
	if m.DailyDosage < 0 || m.DailyDosage > MaxDailyDosage {
		fields["daily_dosage"] = "Daily dosage must be between 0 and 10"
	} else if len(m.DosageTimes) != m.DailyDosage {
		fields["dosage_times"] = fmt.Sprintf("Expected %d dosage times, got %d", m.DailyDosage, len(m.DosageTimes))
	}
	for _, t := range m.DosageTimes {
		if !ValidClock(t) {
			fields["dosage_times"] = fmt.Sprintf("Invalid time %q, expected HH:MM", t)
			break
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// ValidClock reports whether s is a 24-hour HH:MM clock time.
func ValidClock(s string) bool {
	if len(s) != 5 {
		return false
	}
	_, err := time.Parse(ClockLayout, s)
	return err == nil
}

// ParseDate parses a YYYY-MM-DD calendar date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DateLayout, s, loc)
}
