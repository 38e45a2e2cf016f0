package inventory

import (
	"sort"
	"strings"
	"time"

	"medstock/internal/expiry"
	"medstock/internal/models"
)

// StatusAll disables status filtering.
const StatusAll = "all"

// Order is the sort direction of a listing by expiry date.
type Order string

const (
	OrderExpiryAsc  Order = "asc"
	OrderExpiryDesc Order = "desc"
)

// Query is the dashboard view state: status filter, search term and order.
type Query struct {
	Status string
	Search string
	Order  Order
}

// Apply filters and orders meds according to q. Status filtering uses the
// effective status, so an unexpired-looking stored row past its date shows
// up under "expired".
func Apply(meds []models.Medicine, q Query, now time.Time) []models.Medicine {
	term := strings.ToLower(strings.TrimSpace(q.Search))

	out := make([]models.Medicine, 0, len(meds))
	for i := range meds {
		m := meds[i]
		if q.Status != "" && q.Status != StatusAll {
			if string(expiry.EffectiveStatus(m.ExpiryDate, m.Status, now)) != q.Status {
				continue
			}
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(m.Name), term) &&
			!strings.Contains(strings.ToLower(m.Notes), term) {
			continue
		}
		out = append(out, m)
	}

	desc := q.Order == OrderExpiryDesc
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return out[i].ExpiryDate.After(out[j].ExpiryDate)
		}
		return out[i].ExpiryDate.Before(out[j].ExpiryDate)
	})
	return out
}

// ValidStatusFilter reports whether s can be used as Query.Status.
func ValidStatusFilter(s string) bool {
	return s == "" || s == StatusAll || models.Status(s).Valid()
}
