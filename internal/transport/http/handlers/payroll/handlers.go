package payrollhandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"

	"agencyerp/internal/domain/audit"
	"agencyerp/internal/domain/auth"
	"agencyerp/internal/domain/core"
	"agencyerp/internal/domain/notifications"
	"agencyerp/internal/domain/payroll"
	"agencyerp/internal/platform/jobs"
	"agencyerp/internal/transport/http/api"
	"agencyerp/internal/transport/http/middleware"
	"agencyerp/internal/transport/http/shared"
)

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

type Handler struct {
	Service *payroll.Service
	Core    *core.Store
	Perms   middleware.PermissionStore
	Notify  *notifications.Service
	Audit   *audit.Service
	Jobs    *jobs.Service
}

func NewHandler(service *payroll.Service, coreStore *core.Store, perms middleware.PermissionStore, notify *notifications.Service, auditSvc *audit.Service, jobsSvc *jobs.Service) *Handler {
	return &Handler{Service: service, Core: coreStore, Perms: perms, Notify: notify, Audit: auditSvc, Jobs: jobsSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/payroll", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermPayrollGenerate, h.Perms)).Post("/slips/generate", h.handleGenerateSlips)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/slips", h.handleListSlips)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/slips/{slipID}", h.handleGetSlip)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/slips/{slipID}/pdf", h.handleDownloadPDF)
	})
}

type generatePayload struct {
	Month        string  `json:"month"`
	PaymentDate  string  `json:"payment_date"`
	DeductionPct float64 `json:"deduction_pct"`
	Notes        string  `json:"notes"`
}

func (h *Handler) handleGenerateSlips(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload generatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("month", payload.Month, "is required")
	if payload.Month != "" && !monthPattern.MatchString(payload.Month) {
		v.Add("month", "must be in YYYY-MM format")
	}
	paymentDate := time.Now()
	if payload.PaymentDate != "" {
		paymentDate, _ = v.Date("payment_date", payload.PaymentDate)
	}
	if payload.DeductionPct < 0 || payload.DeductionPct > 100 {
		v.Add("deduction_pct", "must be between 0 and 100")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	result, err := h.Jobs.RunNow(r.Context(), jobs.JobSalarySlipRun, user.TenantID, func(ctx context.Context) (any, error) {
		return h.Service.GenerateSlips(ctx, user.TenantID, payload.Month, paymentDate, payload.DeductionPct, payload.Notes)
	})
	if err != nil {
		if errors.Is(err, payroll.ErrInvalidDeduction) {
			api.Fail(w, http.StatusBadRequest, "invalid_deduction", "deduction percentage out of range", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "slip_generation_failed", "failed to generate salary slips", middleware.GetRequestID(r.Context()))
		return
	}
	summary, _ := result.(payroll.GenerationSummary)

	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.Entry{
		Action:     "payroll.slips.generate",
		EntityType: "salary_slip_batch",
		EntityID:   payload.Month,
		RequestID:  middleware.GetRequestID(r.Context()),
		IP:         shared.ClientIP(r),
		After:      summary,
	}); err != nil {
		slog.Warn("audit payroll.slips.generate failed", "err", err)
	}
	h.Notify.CreateForUsers(r.Context(), user.TenantID, summary.EmployeeUsers, notifications.TypeSalarySlipGenerated,
		"Salary slip generated", "Your salary slip for "+payload.Month+" is available.")

	api.Success(w, map[string]any{
		"generated": summary.Generated,
		"errors":    summary.Errors,
		"message":   summary.Message(),
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListSlips(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	page := shared.ParsePagination(r, 20, 100)
	month := r.URL.Query().Get("month")

	employeeID := ""
	if user.RoleName == auth.RoleEmployee {
		id, err := h.Core.EmployeeIDByUserID(r.Context(), user.TenantID, user.UserID)
		if err != nil || id == "" {
			api.Success(w, map[string]any{"slips": []payroll.SalarySlip{}, "total": 0}, middleware.GetRequestID(r.Context()))
			return
		}
		employeeID = id
	}

	result, err := h.Service.ListSlips(r.Context(), user.TenantID, user.RoleName, employeeID, month, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "slips_failed", "failed to list salary slips", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"slips": result.Slips, "total": result.Total}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetSlip(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	slipID := chi.URLParam(r, "slipID")

	if !h.canAccessSlip(w, r, user, slipID) {
		return
	}

	slip, err := h.Service.SlipByID(r.Context(), user.TenantID, slipID)
	if errors.Is(err, payroll.ErrSlipNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "salary slip not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "slip_failed", "failed to load salary slip", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, slip, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDownloadPDF(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	slipID := chi.URLParam(r, "slipID")

	if !h.canAccessSlip(w, r, user, slipID) {
		return
	}

	var filePath string
	result, err := h.Jobs.RunNow(r.Context(), jobs.JobPayslipPDF, user.TenantID, func(ctx context.Context) (any, error) {
		path, err := h.Service.GeneratePayslipPDF(ctx, user.TenantID, slipID)
		return map[string]string{"path": path}, err
	})
	if errors.Is(err, payroll.ErrSlipNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "salary slip not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "pdf_failed", "failed to render payslip", middleware.GetRequestID(r.Context()))
		return
	}
	if details, ok := result.(map[string]string); ok {
		filePath = details["path"]
	}

	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.Entry{
		Action:     "payroll.slip.download",
		EntityType: "salary_slip",
		EntityID:   slipID,
		RequestID:  middleware.GetRequestID(r.Context()),
		IP:         shared.ClientIP(r),
	}); err != nil {
		slog.Warn("audit payroll.slip.download failed", "err", err)
	}

	file, err := os.Open(filePath)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "pdf_failed", "failed to read payslip file", middleware.GetRequestID(r.Context()))
		return
	}
	defer file.Close()

	contentType := "application/pdf"
	if filepath.Ext(filePath) == ".enc" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+filepath.Base(filePath))
	http.ServeContent(w, r, filepath.Base(filePath), time.Now(), file)
}

// canAccessSlip enforces self-only access for the employee role. It writes
// the failure response itself and reports whether the handler may proceed.
func (h *Handler) canAccessSlip(w http.ResponseWriter, r *http.Request, user auth.UserContext, slipID string) bool {
	if user.RoleName != auth.RoleEmployee {
		return true
	}
	ownerID, err := h.Service.EmployeeIDForSlip(r.Context(), user.TenantID, slipID)
	if errors.Is(err, payroll.ErrSlipNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "salary slip not found", middleware.GetRequestID(r.Context()))
		return false
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "slip_failed", "failed to load salary slip", middleware.GetRequestID(r.Context()))
		return false
	}
	selfID, err := h.Core.EmployeeIDByUserID(r.Context(), user.TenantID, user.UserID)
	if err != nil || selfID != ownerID {
		api.Fail(w, http.StatusForbidden, "forbidden", "cannot access another employee's salary slip", middleware.GetRequestID(r.Context()))
		return false
	}
	return true
}
