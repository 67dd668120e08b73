package crmhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"agencyerp/internal/domain/audit"
	"agencyerp/internal/domain/auth"
	"agencyerp/internal/domain/crm"
	"agencyerp/internal/domain/notifications"
	"agencyerp/internal/transport/http/api"
	"agencyerp/internal/transport/http/middleware"
	"agencyerp/internal/transport/http/shared"
)

type Handler struct {
	Service *crm.Service
	Perms   middleware.PermissionStore
	Notify  *notifications.Service
	Audit   *audit.Service
}

func NewHandler(service *crm.Service, perms middleware.PermissionStore, notify *notifications.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Notify: notify, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/crm", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermCRMRead, h.Perms)).Get("/leads", h.handleListLeads)
		r.With(middleware.RequirePermission(auth.PermCRMRead, h.Perms)).Get("/leads/{leadID}", h.handleGetLead)
		r.With(middleware.RequirePermission(auth.PermCRMWrite, h.Perms)).Post("/leads", h.handleCreateLead)
		r.With(middleware.RequirePermission(auth.PermCRMWrite, h.Perms)).Put("/leads/{leadID}", h.handleUpdateLead)
		r.With(middleware.RequirePermission(auth.PermCRMWrite, h.Perms)).Patch("/leads/{leadID}/status", h.handleUpdateLeadStatus)
		r.With(middleware.RequirePermission(auth.PermCRMWrite, h.Perms)).Delete("/leads/{leadID}", h.handleDeleteLead)

		r.With(middleware.RequirePermission(auth.PermCRMRead, h.Perms)).Get("/leads/{leadID}/calls", h.handleListCalls)
		r.With(middleware.RequirePermission(auth.PermCRMWrite, h.Perms)).Post("/leads/{leadID}/calls", h.handleCreateCall)
		r.With(middleware.RequirePermission(auth.PermCRMRead, h.Perms)).Get("/leads/{leadID}/meetings", h.handleListMeetings)
		r.With(middleware.RequirePermission(auth.PermCRMWrite, h.Perms)).Post("/leads/{leadID}/meetings", h.handleCreateMeeting)
		r.With(middleware.RequirePermission(auth.PermCRMRead, h.Perms)).Get("/leads/{leadID}/notes", h.handleListNotes)
		r.With(middleware.RequirePermission(auth.PermCRMWrite, h.Perms)).Post("/leads/{leadID}/notes", h.handleCreateNote)

		r.With(middleware.RequirePermission(auth.PermCRMRead, h.Perms)).Get("/meetings/upcoming", h.handleUpcomingMeetings)
	})
}

type leadPayload struct {
	Name     string   `json:"name"`
	Company  string   `json:"company"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone"`
	Source   string   `json:"source"`
	Status   string   `json:"status"`
	OwnerID  string   `json:"ownerId"`
	EstValue *float64 `json:"estimatedValue"`
}

func (p leadPayload) toLead() crm.Lead {
	return crm.Lead{
		Name:     p.Name,
		Company:  p.Company,
		Email:    p.Email,
		Phone:    p.Phone,
		Source:   p.Source,
		Status:   p.Status,
		OwnerID:  p.OwnerID,
		EstValue: p.EstValue,
	}
}

func (h *Handler) handleListLeads(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	page := shared.ParsePagination(r, 20, 100)
	status := r.URL.Query().Get("status")
	if status != "" && !crm.ValidLeadStatus(status) {
		api.Fail(w, http.StatusBadRequest, "invalid_status", "unknown lead status", middleware.GetRequestID(r.Context()))
		return
	}

	result, err := h.Service.ListLeads(r.Context(), user.TenantID, status, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "leads_failed", "failed to list leads", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"leads": result.Leads, "total": result.Total}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetLead(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	lead, err := h.Service.GetLead(r.Context(), user.TenantID, chi.URLParam(r, "leadID"))
	if errors.Is(err, crm.ErrLeadNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "lead not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "lead_failed", "failed to load lead", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, lead, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateLead(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload leadPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Service.CreateLead(r.Context(), user.TenantID, payload.toLead())
	if errors.Is(err, crm.ErrInvalidStatus) {
		api.Fail(w, http.StatusBadRequest, "invalid_status", "unknown lead status", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "lead_create_failed", "failed to create lead", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.Entry{
		Action:     "crm.lead.create",
		EntityType: "lead",
		EntityID:   id,
		RequestID:  middleware.GetRequestID(r.Context()),
		IP:         shared.ClientIP(r),
		After:      payload,
	}); err != nil {
		slog.Warn("audit crm.lead.create failed", "err", err)
	}
	if payload.OwnerID != "" && payload.OwnerID != user.UserID {
		if err := h.Notify.Create(r.Context(), user.TenantID, payload.OwnerID, notifications.TypeLeadAssigned, "Lead assigned", "Lead \""+payload.Name+"\" was assigned to you."); err != nil {
			slog.Warn("lead assignment notification failed", "err", err)
		}
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateLead(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	leadID := chi.URLParam(r, "leadID")
	var payload leadPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "is required")
	v.Required("status", payload.Status, "is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	before, _ := h.Service.GetLead(r.Context(), user.TenantID, leadID)
	err := h.Service.UpdateLead(r.Context(), user.TenantID, leadID, payload.toLead())
	switch {
	case errors.Is(err, crm.ErrLeadNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "lead not found", middleware.GetRequestID(r.Context()))
		return
	case errors.Is(err, crm.ErrInvalidStatus):
		api.Fail(w, http.StatusBadRequest, "invalid_status", "unknown lead status", middleware.GetRequestID(r.Context()))
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "lead_update_failed", "failed to update lead", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.Entry{
		Action:     "crm.lead.update",
		EntityType: "lead",
		EntityID:   leadID,
		RequestID:  middleware.GetRequestID(r.Context()),
		IP:         shared.ClientIP(r),
		Before:     before,
		After:      payload,
	}); err != nil {
		slog.Warn("audit crm.lead.update failed", "err", err)
	}
	if payload.OwnerID != "" && payload.OwnerID != before.OwnerID && payload.OwnerID != user.UserID {
		if err := h.Notify.Create(r.Context(), user.TenantID, payload.OwnerID, notifications.TypeLeadAssigned, "Lead assigned", "Lead \""+payload.Name+"\" was assigned to you."); err != nil {
			slog.Warn("lead assignment notification failed", "err", err)
		}
	}
	api.Success(w, map[string]string{"id": leadID}, middleware.GetRequestID(r.Context()))
}

type leadStatusPayload struct {
	Status string `json:"status"`
}

func (h *Handler) handleUpdateLeadStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	leadID := chi.URLParam(r, "leadID")
	var payload leadStatusPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	err := h.Service.UpdateLeadStatus(r.Context(), user.TenantID, leadID, payload.Status)
	switch {
	case errors.Is(err, crm.ErrLeadNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "lead not found", middleware.GetRequestID(r.Context()))
		return
	case errors.Is(err, crm.ErrInvalidStatus):
		api.Fail(w, http.StatusBadRequest, "invalid_status", "unknown lead status", middleware.GetRequestID(r.Context()))
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "lead_update_failed", "failed to update lead status", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.Entry{
		Action:     "crm.lead.status",
		EntityType: "lead",
		EntityID:   leadID,
		RequestID:  middleware.GetRequestID(r.Context()),
		IP:         shared.ClientIP(r),
		After:      payload,
	}); err != nil {
		slog.Warn("audit crm.lead.status failed", "err", err)
	}
	api.Success(w, map[string]string{"id": leadID, "status": payload.Status}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteLead(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	leadID := chi.URLParam(r, "leadID")
	if err := h.Service.DeleteLead(r.Context(), user.TenantID, leadID); err != nil {
		api.Fail(w, http.StatusInternalServerError, "lead_delete_failed", "failed to delete lead", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.Entry{
		Action:     "crm.lead.delete",
		EntityType: "lead",
		EntityID:   leadID,
		RequestID:  middleware.GetRequestID(r.Context()),
		IP:         shared.ClientIP(r),
	}); err != nil {
		slog.Warn("audit crm.lead.delete failed", "err", err)
	}
	api.Success(w, map[string]string{"id": leadID}, middleware.GetRequestID(r.Context()))
}

type callPayload struct {
	Subject  string `json:"subject"`
	CalledAt string `json:"calledAt"`
	Duration int    `json:"durationMinutes"`
	Outcome  string `json:"outcome"`
	Notes    string `json:"notes"`
}

func (h *Handler) handleListCalls(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	calls, err := h.Service.ListCalls(r.Context(), user.TenantID, chi.URLParam(r, "leadID"))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "calls_failed", "failed to list calls", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, calls, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateCall(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	leadID := chi.URLParam(r, "leadID")
	var payload callPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("subject", payload.Subject, "is required")
	calledAt, _ := v.Date("calledAt", payload.CalledAt)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	if _, err := h.Service.GetLead(r.Context(), user.TenantID, leadID); err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "lead not found", middleware.GetRequestID(r.Context()))
		return
	}

	id, err := h.Service.CreateCall(r.Context(), user.TenantID, user.UserID, crm.Call{
		LeadID:   leadID,
		Subject:  payload.Subject,
		CalledAt: calledAt,
		Duration: payload.Duration,
		Outcome:  payload.Outcome,
		Notes:    payload.Notes,
	})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "call_create_failed", "failed to record call", middleware.GetRequestID(r.Context()))
		return
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

type meetingPayload struct {
	Subject     string `json:"subject"`
	ScheduledAt string `json:"scheduledAt"`
	Location    string `json:"location"`
	Notes       string `json:"notes"`
}

func (h *Handler) handleListMeetings(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	meetings, err := h.Service.ListMeetings(r.Context(), user.TenantID, chi.URLParam(r, "leadID"))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "meetings_failed", "failed to list meetings", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, meetings, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateMeeting(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	leadID := chi.URLParam(r, "leadID")
	var payload meetingPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("subject", payload.Subject, "is required")
	scheduledAt, _ := v.Date("scheduledAt", payload.ScheduledAt)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	if _, err := h.Service.GetLead(r.Context(), user.TenantID, leadID); err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "lead not found", middleware.GetRequestID(r.Context()))
		return
	}

	id, err := h.Service.CreateMeeting(r.Context(), user.TenantID, user.UserID, crm.Meeting{
		LeadID:      leadID,
		Subject:     payload.Subject,
		ScheduledAt: scheduledAt,
		Location:    payload.Location,
		Notes:       payload.Notes,
	})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "meeting_create_failed", "failed to schedule meeting", middleware.GetRequestID(r.Context()))
		return
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

type notePayload struct {
	Body string `json:"body"`
}

func (h *Handler) handleListNotes(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	notes, err := h.Service.ListNotes(r.Context(), user.TenantID, chi.URLParam(r, "leadID"))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "notes_failed", "failed to list notes", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, notes, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	leadID := chi.URLParam(r, "leadID")
	var payload notePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("body", payload.Body, "is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	if _, err := h.Service.GetLead(r.Context(), user.TenantID, leadID); err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "lead not found", middleware.GetRequestID(r.Context()))
		return
	}

	id, err := h.Service.CreateNote(r.Context(), user.TenantID, user.UserID, leadID, payload.Body)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "note_create_failed", "failed to create note", middleware.GetRequestID(r.Context()))
		return
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpcomingMeetings(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 90 {
			days = parsed
		}
	}
	meetings, err := h.Service.UpcomingMeetings(r.Context(), user.TenantID, days)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "meetings_failed", "failed to list upcoming meetings", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, meetings, middleware.GetRequestID(r.Context()))
}
