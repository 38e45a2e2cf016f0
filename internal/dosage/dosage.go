// Package dosage finds upcoming dosage times from daily HH:MM schedules.
//
// Dosage times are assumed well formed (HH 00-23, MM 00-59); they are checked
// when a medicine is saved, not here.
package dosage

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"medstock/internal/expiry"
	"medstock/internal/models"
)

// DefaultUpcomingLimit is how many upcoming dosages a summary shows.
const DefaultUpcomingLimit = 3

// Dosage is the next occurrence of a daily dosage time.
type Dosage struct {
	Time         string    `json:"time"`
	At           time.Time `json:"at"`
	HoursUntil   int       `json:"hours_until"`
	MinutesUntil int       `json:"minutes_until"`
}

// TotalMinutes returns the countdown in minutes.
func (d Dosage) TotalMinutes() int {
	return d.HoursUntil*60 + d.MinutesUntil
}

// Countdown renders the time left as "4h 5m" or "5m".
func (d Dosage) Countdown() string {
	if d.HoursUntil > 0 {
		return fmt.Sprintf("%dh %dm", d.HoursUntil, d.MinutesUntil)
	}
	return fmt.Sprintf("%dm", d.MinutesUntil)
}

// ParseClock converts an HH:MM string to minutes since midnight.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes since midnight as HH:MM.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// FormatClock12h renders an HH:MM time as "8:00 AM". Unparseable input is
// returned unchanged.
func FormatClock12h(s string) string {
	t, err := time.Parse(models.ClockLayout, s)
	if err != nil {
		return s
	}
	return t.Format("3:04 PM")
}

func minutesOf(s string) int {
	m, _ := ParseClock(s)
	return m
}

// NextTime returns the next dosage clock time after now, wrapping to the
// earliest time of the day when every slot has already passed. The second
// result is false for an empty schedule.
func NextTime(times []string, now time.Time) (string, bool) {
	if len(times) == 0 {
		return "", false
	}

	current := now.Hour()*60 + now.Minute()
	next, earliest := -1, -1
	for _, t := range times {
		m := minutesOf(t)
		if earliest < 0 || m < earliest {
			earliest = m
		}
		if m > current && (next < 0 || m < next) {
			next = m
		}
	}
	if next < 0 {
		next = earliest
	}
	return FormatClock(next), true
}

// Next returns the next dosage and the time remaining until it.
func Next(times []string, now time.Time) (Dosage, bool) {
	clock, ok := NextTime(times, now)
	if !ok {
		return Dosage{}, false
	}

	m := minutesOf(clock)
	at := time.Date(now.Year(), now.Month(), now.Day(), m/60, m%60, 0, 0, now.Location())
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}

	total := int(at.Sub(now) / time.Minute)
	return Dosage{
		Time:         clock,
		At:           at,
		HoursUntil:   total / 60,
		MinutesUntil: total % 60,
	}, true
}

// Entry is one medicine's next dosage in an upcoming list.
type Entry struct {
	MedicineID string `json:"medicine_id"`
	Name       string `json:"name"`
	Dosage
}

// Rank sorts entries by soonest dosage and keeps the first limit.
func Rank(entries []Entry, limit int) []Entry {
	sorted := append([]Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TotalMinutes() < sorted[j].TotalMinutes()
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// Upcoming builds the ranked list of next dosages for medicines that are
// effectively active and have a schedule.
func Upcoming(meds []models.Medicine, now time.Time, limit int) []Entry {
	if limit <= 0 {
		limit = DefaultUpcomingLimit
	}

	entries := make([]Entry, 0, len(meds))
	for i := range meds {
		m := &meds[i]
		if expiry.EffectiveStatus(m.ExpiryDate, m.Status, now) != models.StatusActive {
			continue
		}
		d, ok := Next(m.DosageTimes, now)
		if !ok {
			continue
		}
		entries = append(entries, Entry{MedicineID: m.ID, Name: m.Name, Dosage: d})
	}
	return Rank(entries, limit)
}
