// Package expiry derives display state of a medicine from its expiry date.
package expiry

import (
	"fmt"
	"time"

	"medstock/internal/models"
)

// Color is the status color bucket shown next to a medicine.
type Color string

const (
	ColorRed     Color = "red"
	ColorAmber   Color = "amber"
	ColorYellow  Color = "yellow"
	ColorGreen   Color = "green"
	ColorDonated Color = "donated"
)

const (
	// SoonDays is the last day count rendered amber.
	SoonDays = 7
	// DonationWindowDays bounds how close to expiry a donation is still offered.
	DonationWindowDays = 30
)

// Classification is the derived view of a medicine's expiry state.
type Classification struct {
	DaysUntilExpiry int           `json:"days_until_expiry"`
	EffectiveStatus models.Status `json:"effective_status"`
	DisplayText     string        `json:"display_text"`
	Color           Color         `json:"color"`
}

// DaysUntil returns the number of calendar days from now's date to expiry's
// date. Past dates yield negative counts.
func DaysUntil(expiry, now time.Time) int {
	ey, em, ed := expiry.Date()
	ny, nm, nd := now.Date()
	e := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	n := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return int(e.Sub(n).Hours() / 24)
}

// EffectiveStatus applies the status precedence rule: a stored donated status
// always wins, otherwise the status follows the expiry date.
func EffectiveStatus(expiry time.Time, stored models.Status, now time.Time) models.Status {
	if stored == models.StatusDonated {
		return models.StatusDonated
	}
	if DaysUntil(expiry, now) < 0 {
		return models.StatusExpired
	}
	return models.StatusActive
}

// Classify computes days left, effective status, display text and color.
func Classify(expiry time.Time, stored models.Status, now time.Time) Classification {
	status := EffectiveStatus(expiry, stored, now)
	if status == models.StatusDonated {
		return Classification{
			DaysUntilExpiry: DaysUntil(expiry, now),
			EffectiveStatus: status,
			DisplayText:     "Donated",
			Color:           ColorDonated,
		}
	}

	days := DaysUntil(expiry, now)
	return Classification{
		DaysUntilExpiry: days,
		EffectiveStatus: status,
		DisplayText:     Text(days),
		Color:           ColorFor(days),
	}
}

// Text renders a day count as a human readable expiry description.
func Text(days int) string {
	switch {
	case days < 0:
		return fmt.Sprintf("Expired %d days ago", -days)
	case days == 0:
		return "Expires today"
	case days == 1:
		return "Expires tomorrow"
	default:
		return fmt.Sprintf("Expires in %d days", days)
	}
}

// ColorFor maps a day count to a color bucket. Zero days left is amber.
func ColorFor(days int) Color {
	switch {
	case days < 0:
		return ColorRed
	case days <= SoonDays:
		return ColorAmber
	case days <= DonationWindowDays:
		return ColorYellow
	default:
		return ColorGreen
	}
}

// ShouldOfferDonation reports whether the donate action should be enabled.
// Only stored-active medicines with 1..30 days left qualify.
func ShouldOfferDonation(expiry time.Time, stored models.Status, now time.Time) bool {
	if stored != models.StatusActive {
		return false
	}
	if EffectiveStatus(expiry, stored, now) != models.StatusActive {
		return false
	}
	days := DaysUntil(expiry, now)
	return days > 0 && days <= DonationWindowDays
}

// ExpiringSoon returns stored-active medicines expiring within threshold days,
// today included.
func ExpiringSoon(meds []models.Medicine, threshold int, now time.Time) []models.Medicine {
	if threshold <= 0 {
		threshold = models.DefaultReminderThreshold
	}
	var out []models.Medicine
	for i := range meds {
		if meds[i].Status != models.StatusActive {
			continue
		}
		days := DaysUntil(meds[i].ExpiryDate, now)
		if days >= 0 && days <= threshold {
			out = append(out, meds[i])
		}
	}
	return out
}

// InitialStatus is the status a new medicine gets when none is given.
func InitialStatus(expiry time.Time, now time.Time) models.Status {
	if DaysUntil(expiry, now) < 0 {
		return models.StatusExpired
	}
	return models.StatusActive
}
