// Package handler exposes the compliance reporting API over the audit engine.
// Routes are owner-only; role enforcement is applied by the caller's router.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	auditsvc "pedcare/internal/audit"
	audit "pedcare/pkg/platform/audit"
	"pedcare/pkg/platform/httputil"
	request "pedcare/pkg/platform/middleware/request"
	"pedcare/pkg/requestcontext"
)

// Service is the slice of the audit engine the API reads.
type Service interface {
	AllEvents(limit int) []audit.Event
	Violations(limit int) []audit.Event
	ViolationsBySeverity(sev audit.Severity) []audit.Event
	UserActivity(userID string, limit int) []audit.Event
	PatientAccessLog(patientID string, limit int) []audit.Event
	DailyAccess(userID string) map[string]int
	SummaryStats() auditsvc.Summary
	GenerateSampleEvents(ctx context.Context) []audit.Event
}

type Handler struct {
	svc    Service
	logger *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the compliance routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/compliance", func(r chi.Router) {
		r.Get("/audit-log", h.HandleAuditLog)
		r.Get("/violations", h.HandleViolations)
		r.Get("/summary", h.HandleSummary)
		r.Get("/patient/{patient_id}/access-log", h.HandlePatientAccessLog)
		r.Get("/user/{user_id}/activity", h.HandleUserActivity)
		r.Get("/user/{user_id}/daily-access", h.HandleDailyAccess)
		r.Post("/demo/generate-sample-events", h.HandleGenerateSampleEvents)
	})
}

func (h *Handler) HandleAuditLog(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.limit(w, r, 100)
	if !ok {
		return
	}
	events := h.svc.AllEvents(limit)
	httputil.WriteJSON(w, http.StatusOK, AuditLogResponse{
		Events: mapEvents(events, audit.NewRecord),
		Total:  len(events),
	})
}

// HandleViolations lists violations, most recent first. With ?severity= it
// lists that severity in log order instead, truncated to limit.
func (h *Handler) HandleViolations(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.limit(w, r, 50)
	if !ok {
		return
	}

	var events []audit.Event
	if raw := r.URL.Query().Get("severity"); raw != "" {
		sev, err := audit.ParseSeverity(raw)
		if err != nil {
			h.logger.InfoContext(r.Context(), "rejected severity filter",
				"severity", raw,
				"request_id", request.GetRequestID(r.Context()),
			)
			httputil.WriteError(w, err)
			return
		}
		events = h.svc.ViolationsBySeverity(sev)
		events = events[:min(limit, len(events))]
	} else {
		events = h.svc.Violations(limit)
	}

	httputil.WriteJSON(w, http.StatusOK, ViolationsResponse{
		Violations: mapEvents(events, toViolationRecord),
		Total:      len(events),
	})
}

func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	stats := h.svc.SummaryStats()
	status := StatusCompliant
	if stats.TotalViolations > 0 {
		status = StatusViolationsDetected
	}
	httputil.WriteJSON(w, http.StatusOK, SummaryResponse{
		Summary:          stats,
		ComplianceStatus: status,
		LastUpdated:      requestcontext.Now(r.Context()),
	})
}

func (h *Handler) HandlePatientAccessLog(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.limit(w, r, 50)
	if !ok {
		return
	}
	patientID := chi.URLParam(r, "patient_id")
	events := h.svc.PatientAccessLog(patientID, limit)
	httputil.WriteJSON(w, http.StatusOK, PatientAccessResponse{
		PatientID:    patientID,
		AccessEvents: mapEvents(events, toPatientAccessRecord),
		Total:        len(events),
	})
}

func (h *Handler) HandleUserActivity(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.limit(w, r, 50)
	if !ok {
		return
	}
	userID := chi.URLParam(r, "user_id")
	events := h.svc.UserActivity(userID, limit)
	httputil.WriteJSON(w, http.StatusOK, UserActivityResponse{
		UserID:   userID,
		Activity: mapEvents(events, toActivityRecord),
		Total:    len(events),
	})
}

func (h *Handler) HandleDailyAccess(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	counts := h.svc.DailyAccess(userID)
	total := 0
	for _, n := range counts {
		total += n
	}
	httputil.WriteJSON(w, http.StatusOK, DailyAccessResponse{
		UserID:      userID,
		DailyAccess: counts,
		Total:       total,
	})
}

func (h *Handler) HandleGenerateSampleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	events := h.svc.GenerateSampleEvents(ctx)
	h.logger.InfoContext(ctx, "sample audit events generated",
		"count", len(events),
		"request_id", request.GetRequestID(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, SampleEventsResponse{
		Message: "Sample events generated",
		Stats:   h.svc.SummaryStats(),
	})
}

func (h *Handler) limit(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	limit, err := httputil.ParseLimit(r, def)
	if err != nil {
		httputil.WriteError(w, err)
		return 0, false
	}
	return limit, true
}
