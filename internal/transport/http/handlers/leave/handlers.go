package leavehandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"agencyerp/internal/domain/audit"
	"agencyerp/internal/domain/auth"
	"agencyerp/internal/domain/holiday"
	"agencyerp/internal/domain/leave"
	"agencyerp/internal/domain/notifications"
	"agencyerp/internal/transport/http/api"
	"agencyerp/internal/transport/http/middleware"
	"agencyerp/internal/transport/http/shared"
)

type Handler struct {
	Service  *leave.Service
	Holidays *holiday.Store
	Perms    middleware.PermissionStore
	Notify   *notifications.Service
	Audit    *audit.Service
}

func NewHandler(service *leave.Service, holidays *holiday.Store, perms middleware.PermissionStore, notify *notifications.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Holidays: holidays, Perms: perms, Notify: notify, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Post("/calculate", h.handleCalculate)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests", h.handleListRequests)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests/{requestID}", h.handleGetRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)).Post("/requests", h.handleCreateRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/approve", h.handleApproveRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/reject", h.handleRejectRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/holidays", h.handleListHolidays)
		r.With(middleware.RequirePermission(auth.PermHolidaysWrite, h.Perms)).Post("/holidays", h.handleCreateHoliday)
		r.With(middleware.RequirePermission(auth.PermHolidaysWrite, h.Perms)).Delete("/holidays/{holidayID}", h.handleDeleteHoliday)
	})
}

type calculatePayload struct {
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
	IsSandwichLeave bool   `json:"is_sandwich_leave"`
}

func (h *Handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload calculatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	start, _ := v.Date("start_date", payload.StartDate)
	end, _ := v.Date("end_date", payload.EndDate)
	v.DateOrder("start_date", start, "end_date", end)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	days, err := h.Service.Preview(r.Context(), user.TenantID, start, end, payload.IsSandwichLeave)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "leave_calculate_failed", "failed to calculate leave days", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{
		"total_days":        days.Total,
		"working_days":      days.Working,
		"sandwich_days":     days.Sandwich,
		"holiday_count":     days.Holidays,
		"has_sandwich_days": leave.HasSandwichDays(start, end),
	}, middleware.GetRequestID(r.Context()))
}

type createRequestPayload struct {
	Category        string `json:"category"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
	IsSandwichLeave bool   `json:"is_sandwich_leave"`
	Reason          string `json:"reason"`
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload createRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("category", payload.Category, "is required")
	start, _ := v.Date("start_date", payload.StartDate)
	end, _ := v.Date("end_date", payload.EndDate)
	v.DateOrder("start_date", start, "end_date", end)
	if !leave.ValidCategory(payload.Category) {
		v.Add("category", "must be a known leave category")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	employeeID, err := h.Service.EmployeeIDByUserID(r.Context(), user.TenantID, user.UserID)
	if err != nil || employeeID == "" {
		api.Fail(w, http.StatusBadRequest, "no_employee_profile", "no employee profile linked to this account", middleware.GetRequestID(r.Context()))
		return
	}

	result, err := h.Service.CreateRequest(r.Context(), user.TenantID, employeeID, payload.Category, payload.Reason, start, end, payload.IsSandwichLeave)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "leave_request_failed", "failed to submit leave request", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.Entry{
		Action:     "leave.request.create",
		EntityType: "leave_request",
		EntityID:   result.ID,
		RequestID:  middleware.GetRequestID(r.Context()),
		IP:         shared.ClientIP(r),
		After:      payload,
	}); err != nil {
		slog.Warn("audit leave.request.create failed", "err", err)
	}
	if result.ManagerUserID != "" {
		if err := h.Notify.Create(r.Context(), user.TenantID, result.ManagerUserID, notifications.TypeLeaveSubmitted, "Leave request submitted", "A leave request is awaiting your review."); err != nil {
			slog.Warn("leave submit notification failed", "err", err)
		}
	}

	api.Created(w, map[string]any{
		"id":            result.ID,
		"status":        result.Status,
		"total_days":    result.Days.Total,
		"sandwich_days": result.Days.Sandwich,
		"holiday_count": result.Days.Holidays,
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	page := shared.ParsePagination(r, 20, 100)

	employeeID, err := h.Service.EmployeeIDByUserID(r.Context(), user.TenantID, user.UserID)
	if err != nil {
		employeeID = ""
	}

	result, err := h.Service.ListRequests(r.Context(), user.TenantID, user.RoleName, employeeID, employeeID, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "leave_requests_failed", "failed to list leave requests", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"requests": result.Requests, "total": result.Total}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	requestID := chi.URLParam(r, "requestID")

	req, err := h.Service.RequestByID(r.Context(), user.TenantID, requestID)
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "leave request not found", middleware.GetRequestID(r.Context()))
		return
	}

	if user.RoleName == auth.RoleEmployee {
		employeeID, err := h.Service.EmployeeIDByUserID(r.Context(), user.TenantID, user.UserID)
		if err != nil || employeeID != req.EmployeeID {
			api.Fail(w, http.StatusForbidden, "forbidden", "cannot view another employee's request", middleware.GetRequestID(r.Context()))
			return
		}
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

type decisionPayload struct {
	Remarks string `json:"remarks"`
}

func (h *Handler) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, true)
}

func (h *Handler) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, false)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, approve bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	requestID := chi.URLParam(r, "requestID")

	var payload decisionPayload
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}

	var result leave.DecisionResult
	var err error
	action := "leave.request.approve"
	ntype := notifications.TypeLeaveApproved
	title := "Leave request approved"
	if approve {
		result, err = h.Service.ApproveRequest(r.Context(), user.TenantID, requestID, user.UserID, user.RoleName, payload.Remarks)
	} else {
		action = "leave.request.reject"
		ntype = notifications.TypeLeaveRejected
		title = "Leave request rejected"
		result, err = h.Service.RejectRequest(r.Context(), user.TenantID, requestID, user.UserID, user.RoleName, payload.Remarks)
	}
	switch {
	case errors.Is(err, leave.ErrInvalidState):
		api.Fail(w, http.StatusConflict, "invalid_state", "leave request has already been decided", middleware.GetRequestID(r.Context()))
		return
	case errors.Is(err, leave.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", "only the employee's manager can decide this request", middleware.GetRequestID(r.Context()))
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "leave_decision_failed", "failed to update leave request", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.Entry{
		Action:     action,
		EntityType: "leave_request",
		EntityID:   requestID,
		RequestID:  middleware.GetRequestID(r.Context()),
		IP:         shared.ClientIP(r),
		After:      map[string]string{"status": result.Status, "remarks": payload.Remarks},
	}); err != nil {
		slog.Warn("audit leave decision failed", "err", err)
	}
	if result.EmployeeUser != "" {
		if err := h.Notify.Create(r.Context(), user.TenantID, result.EmployeeUser, ntype, title, "Your leave request was "+result.Status+"."); err != nil {
			slog.Warn("leave decision notification failed", "err", err)
		}
	}
	api.Success(w, map[string]string{"id": requestID, "status": result.Status}, middleware.GetRequestID(r.Context()))
}

type holidayPayload struct {
	Date      string `json:"date"`
	Name      string `json:"name"`
	Recurring bool   `json:"recurring"`
}

func (h *Handler) handleListHolidays(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	holidays, err := h.Holidays.List(r.Context(), user.TenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "holidays_failed", "failed to list holidays", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, holidays, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateHoliday(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload holidayPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name, "is required")
	date, _ := v.Date("date", payload.Date)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Holidays.Create(r.Context(), user.TenantID, date, payload.Name, payload.Recurring)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "holiday_create_failed", "failed to create holiday", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.Entry{
		Action:     "leave.holiday.create",
		EntityType: "holiday",
		EntityID:   id,
		RequestID:  middleware.GetRequestID(r.Context()),
		IP:         shared.ClientIP(r),
		After:      payload,
	}); err != nil {
		slog.Warn("audit leave.holiday.create failed", "err", err)
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteHoliday(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	holidayID := chi.URLParam(r, "holidayID")
	if err := h.Holidays.Delete(r.Context(), user.TenantID, holidayID); err != nil {
		api.Fail(w, http.StatusInternalServerError, "holiday_delete_failed", "failed to delete holiday", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.Entry{
		Action:     "leave.holiday.delete",
		EntityType: "holiday",
		EntityID:   holidayID,
		RequestID:  middleware.GetRequestID(r.Context()),
		IP:         shared.ClientIP(r),
	}); err != nil {
		slog.Warn("audit leave.holiday.delete failed", "err", err)
	}
	api.Success(w, map[string]string{"id": holidayID}, middleware.GetRequestID(r.Context()))
}
