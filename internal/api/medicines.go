package api

import (
	"net/http"
	"strconv"

	"medstock/internal/dosage"
	"medstock/internal/inventory"
)

// handleListMedicines returns the user's medicines with derived state.
// GET /api/medicines?status=all|active|expired|donated&q=term&order=asc|desc
func (s *HTTPServer) handleListMedicines(w http.ResponseWriter, r *http.Request) {
	q := inventory.Query{
		Status: r.URL.Query().Get("status"),
		Search: r.URL.Query().Get("q"),
		Order:  inventory.Order(r.URL.Query().Get("order")),
	}
	if !inventory.ValidStatusFilter(q.Status) {
		writeError(w, http.StatusBadRequest, "invalid status filter")
		return
	}
	switch q.Order {
	case "", inventory.OrderExpiryAsc, inventory.OrderExpiryDesc:
	default:
		writeError(w, http.StatusBadRequest, "invalid order; expected asc or desc")
		return
	}

	views, err := s.inv.List(r.Context(), userIDFromContext(r.Context()), q)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"medicines": views})
}

// POST /api/medicines
func (s *HTTPServer) handleCreateMedicine(w http.ResponseWriter, r *http.Request) {
	var in inventory.MedicineInput
	if !decodeJSON(w, r, &in) {
		return
	}
	m, err := s.inv.Create(r.Context(), userIDFromContext(r.Context()), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.inv.ViewOf(*m))
}

// GET /api/medicines/{id}
func (s *HTTPServer) handleGetMedicine(w http.ResponseWriter, r *http.Request) {
	m, err := s.inv.Get(r.Context(), userIDFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.inv.ViewOf(*m))
}

// PUT /api/medicines/{id}
func (s *HTTPServer) handleUpdateMedicine(w http.ResponseWriter, r *http.Request) {
	var in inventory.MedicineInput
	if !decodeJSON(w, r, &in) {
		return
	}
	m, err := s.inv.Update(r.Context(), userIDFromContext(r.Context()), r.PathValue("id"), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.inv.ViewOf(*m))
}

// DELETE /api/medicines/{id}
func (s *HTTPServer) handleDeleteMedicine(w http.ResponseWriter, r *http.Request) {
	if err := s.inv.Delete(r.Context(), userIDFromContext(r.Context()), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDonate marks a medicine as donated; 409 when it cannot be donated.
// POST /api/medicines/{id}/donate
func (s *HTTPServer) handleDonate(w http.ResponseWriter, r *http.Request) {
	m, err := s.inv.Donate(r.Context(), userIDFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.inv.ViewOf(*m))
}

// GET /api/medicines/expiring
func (s *HTTPServer) handleExpiring(w http.ResponseWriter, r *http.Request) {
	views, err := s.inv.Expiring(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"medicines": views})
}

// GET /api/dosages/upcoming?limit=3
func (s *HTTPServer) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	limit := dosage.DefaultUpcomingLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 50 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 50")
			return
		}
		limit = n
	}

	entries, err := s.inv.Upcoming(r.Context(), userIDFromContext(r.Context()), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dosages": entries})
}
