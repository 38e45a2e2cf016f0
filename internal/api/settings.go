package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"medstock/internal/export"
	"medstock/internal/inventory"
)

// GET /api/settings
func (s *HTTPServer) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.inv.Settings(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// PUT /api/settings
func (s *HTTPServer) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var in inventory.SettingsInput
	if !decodeJSON(w, r, &in) {
		return
	}
	settings, err := s.inv.UpdateSettings(r.Context(), userIDFromContext(r.Context()), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// GET /api/notifications?unread=true
func (s *HTTPServer) handleNotifications(w http.ResponseWriter, r *http.Request) {
	unreadOnly := r.URL.Query().Get("unread") == "true"
	list, err := s.inv.Notifications(r.Context(), userIDFromContext(r.Context()), unreadOnly)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": list})
}

// POST /api/notifications/{id}/read
func (s *HTTPServer) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}
	if err := s.inv.MarkNotificationRead(r.Context(), userIDFromContext(r.Context()), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) report(r *http.Request) (export.Report, error) {
	uid := userIDFromContext(r.Context())
	views, err := s.inv.List(r.Context(), uid, inventory.Query{})
	if err != nil {
		return export.Report{}, err
	}
	return export.Report{UserID: uid, GeneratedAt: s.inv.Now(), Items: views}, nil
}

// GET /api/export.xlsx
func (s *HTTPServer) handleExportExcel(w http.ResponseWriter, r *http.Request) {
	rep, err := s.report(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteExcel(&buf, rep); err != nil {
		s.writeServiceError(w, r, fmt.Errorf("export workbook: %w", err))
		return
	}
	sendFile(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rep.FileName("xlsx"), buf.Bytes())
}

// GET /api/export.pdf
func (s *HTTPServer) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	rep, err := s.report(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WritePDF(&buf, rep); err != nil {
		s.writeServiceError(w, r, fmt.Errorf("export pdf: %w", err))
		return
	}
	sendFile(w, "application/pdf", rep.FileName("pdf"), buf.Bytes())
}

func sendFile(w http.ResponseWriter, contentType, name string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
