package corehandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"agencyerp/internal/domain/audit"
	"agencyerp/internal/domain/auth"
	"agencyerp/internal/domain/core"
	"agencyerp/internal/transport/http/api"
	"agencyerp/internal/transport/http/middleware"
	"agencyerp/internal/transport/http/shared"
)

type Handler struct {
	Store *core.Store
	Perms middleware.PermissionStore
	Audit *audit.Service
}

func NewHandler(store *core.Store, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Store: store, Perms: perms, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/", h.handleListEmployees)
		r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/{employeeID}", h.handleGetEmployee)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Post("/", h.handleCreateEmployee)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Put("/{employeeID}", h.handleUpdateEmployee)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Delete("/{employeeID}", h.handleTerminateEmployee)
	})
	r.Route("/departments", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermOrgRead, h.Perms)).Get("/", h.handleListDepartments)
		r.With(middleware.RequirePermission(auth.PermOrgWrite, h.Perms)).Post("/", h.handleCreateDepartment)
		r.With(middleware.RequirePermission(auth.PermOrgWrite, h.Perms)).Put("/{departmentID}", h.handleUpdateDepartment)
		r.With(middleware.RequirePermission(auth.PermOrgWrite, h.Perms)).Delete("/{departmentID}", h.handleDeleteDepartment)
	})
	r.Route("/admin", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAdminSystem, h.Perms)).Get("/permissions", h.handleListPermissions)
		r.With(middleware.RequirePermission(auth.PermAdminSystem, h.Perms)).Get("/roles", h.handleListRoles)
		r.With(middleware.RequirePermission(auth.PermAdminSystem, h.Perms)).Put("/roles/{roleID}/permissions", h.handleUpdateRolePermissions)
	})
}

type employeePayload struct {
	UserID         string   `json:"userId"`
	EmployeeNumber string   `json:"employeeNumber"`
	FirstName      string   `json:"firstName"`
	LastName       string   `json:"lastName"`
	Email          string   `json:"email"`
	Phone          string   `json:"phone"`
	Designation    string   `json:"designation"`
	DateOfBirth    string   `json:"dateOfBirth"`
	Address        string   `json:"address"`
	NationalID     string   `json:"nationalId"`
	BankAccount    string   `json:"bankAccount"`
	Salary         *float64 `json:"salary"`
	DepartmentID   string   `json:"departmentId"`
	ManagerID      string   `json:"managerId"`
	JoinDate       string   `json:"joinDate"`
	Status         string   `json:"status"`
}

func (p employeePayload) toEmployee(v *shared.Validator) core.Employee {
	emp := core.Employee{
		UserID:         p.UserID,
		EmployeeNumber: p.EmployeeNumber,
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		Email:          p.Email,
		Phone:          p.Phone,
		Designation:    p.Designation,
		Address:        p.Address,
		NationalID:     p.NationalID,
		BankAccount:    p.BankAccount,
		Salary:         p.Salary,
		DepartmentID:   p.DepartmentID,
		ManagerID:      p.ManagerID,
		Status:         p.Status,
	}
	if emp.Status == "" {
		emp.Status = core.EmployeeStatusActive
	} else if !core.ValidEmployeeStatus(emp.Status) {
		v.Add("status", "must be one of "+strings.Join(core.EmployeeStatuses, ", "))
	}
	if p.DateOfBirth != "" {
		if dob, ok := v.Date("dateOfBirth", p.DateOfBirth); ok {
			emp.DateOfBirth = &dob
		}
	}
	if p.JoinDate != "" {
		if join, ok := v.Date("joinDate", p.JoinDate); ok {
			emp.JoinDate = &join
		}
	}
	return emp
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	employees, err := h.Store.ListEmployees(r.Context(), user.TenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employees_failed", "failed to list employees", middleware.GetRequestID(r.Context()))
		return
	}
	selfID, _ := h.Store.EmployeeIDByUserID(r.Context(), user.TenantID, user.UserID)
	for i := range employees {
		core.FilterEmployeeFields(&employees[i], user, employees[i].ID == selfID)
	}
	api.Success(w, employees, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	employeeID := chi.URLParam(r, "employeeID")
	emp, err := h.Store.GetEmployee(r.Context(), user.TenantID, employeeID)
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		return
	}
	selfID, _ := h.Store.EmployeeIDByUserID(r.Context(), user.TenantID, user.UserID)
	core.FilterEmployeeFields(emp, user, emp.ID == selfID)
	api.Success(w, emp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload employeePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("firstName", payload.FirstName, "is required")
	v.Required("lastName", payload.LastName, "is required")
	v.Required("email", payload.Email, "is required")
	emp := payload.toEmployee(v)
	if payload.UserID != "" {
		if exists, err := h.Store.UserExists(r.Context(), user.TenantID, payload.UserID); err != nil || !exists {
			v.Add("userId", "must reference an existing user in this tenant")
		}
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Store.CreateEmployee(r.Context(), user.TenantID, emp)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_create_failed", "failed to create employee", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.Entry{
		Action:     "core.employee.create",
		EntityType: "employee",
		EntityID:   id,
		RequestID:  middleware.GetRequestID(r.Context()),
		IP:         shared.ClientIP(r),
		After:      map[string]string{"name": emp.FullName(), "email": emp.Email},
	}); err != nil {
		slog.Warn("audit core.employee.create failed", "err", err)
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	employeeID := chi.URLParam(r, "employeeID")

	var payload employeePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("firstName", payload.FirstName, "is required")
	v.Required("lastName", payload.LastName, "is required")
	v.Required("email", payload.Email, "is required")
	emp := payload.toEmployee(v)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	before, _ := h.Store.GetEmployee(r.Context(), user.TenantID, employeeID)
	err := h.Store.UpdateEmployee(r.Context(), user.TenantID, employeeID, emp)
	if errors.Is(err, core.ErrEmployeeNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_update_failed", "failed to update employee", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.Entry{
		Action:     "core.employee.update",
		EntityType: "employee",
		EntityID:   employeeID,
		RequestID:  middleware.GetRequestID(r.Context()),
		IP:         shared.ClientIP(r),
		Before:     before,
		After:      map[string]string{"name": emp.FullName(), "email": emp.Email},
	}); err != nil {
		slog.Warn("audit core.employee.update failed", "err", err)
	}
	api.Success(w, map[string]string{"id": employeeID}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleTerminateEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	employeeID := chi.URLParam(r, "employeeID")

	err := h.Store.TerminateEmployee(r.Context(), user.TenantID, employeeID)
	if errors.Is(err, core.ErrEmployeeNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_terminate_failed", "failed to terminate employee", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.Entry{
		Action:     "core.employee.terminate",
		EntityType: "employee",
		EntityID:   employeeID,
		RequestID:  middleware.GetRequestID(r.Context()),
		IP:         shared.ClientIP(r),
		After:      map[string]string{"status": core.EmployeeStatusTerminated, "at": time.Now().Format(time.RFC3339)},
	}); err != nil {
		slog.Warn("audit core.employee.terminate failed", "err", err)
	}
	api.Success(w, map[string]string{"id": employeeID, "status": core.EmployeeStatusTerminated}, middleware.GetRequestID(r.Context()))
}

type departmentPayload struct {
	Name      string `json:"name"`
	ManagerID string `json:"managerId"`
}

func (h *Handler) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	page := shared.ParsePagination(r, 50, 200)
	departments, err := h.Store.ListDepartments(r.Context(), user.TenantID, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "departments_failed", "failed to list departments", middleware.GetRequestID(r.Context()))
		return
	}
	total, err := h.Store.DepartmentCount(r.Context(), user.TenantID)
	if err != nil {
		total = len(departments)
	}
	api.Success(w, map[string]any{"departments": departments, "total": total}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload departmentPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Store.CreateDepartment(r.Context(), user.TenantID, core.Department{Name: payload.Name, ManagerID: payload.ManagerID})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "department_create_failed", "failed to create department", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.Entry{
		Action:     "core.department.create",
		EntityType: "department",
		EntityID:   id,
		RequestID:  middleware.GetRequestID(r.Context()),
		IP:         shared.ClientIP(r),
		After:      payload,
	}); err != nil {
		slog.Warn("audit core.department.create failed", "err", err)
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateDepartment(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	departmentID := chi.URLParam(r, "departmentID")
	var payload departmentPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	updated, err := h.Store.UpdateDepartment(r.Context(), user.TenantID, departmentID, core.Department{Name: payload.Name, ManagerID: payload.ManagerID})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "department_update_failed", "failed to update department", middleware.GetRequestID(r.Context()))
		return
	}
	if !updated {
		api.Fail(w, http.StatusNotFound, "not_found", "department not found", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"id": departmentID}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteDepartment(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	departmentID := chi.URLParam(r, "departmentID")

	hasEmployees, err := h.Store.DepartmentHasEmployees(r.Context(), user.TenantID, departmentID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "department_delete_failed", "failed to delete department", middleware.GetRequestID(r.Context()))
		return
	}
	if hasEmployees {
		api.Fail(w, http.StatusConflict, "department_in_use", "department still has employees assigned", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Store.DeleteDepartment(r.Context(), user.TenantID, departmentID); err != nil {
		api.Fail(w, http.StatusInternalServerError, "department_delete_failed", "failed to delete department", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.Entry{
		Action:     "core.department.delete",
		EntityType: "department",
		EntityID:   departmentID,
		RequestID:  middleware.GetRequestID(r.Context()),
		IP:         shared.ClientIP(r),
	}); err != nil {
		slog.Warn("audit core.department.delete failed", "err", err)
	}
	api.Success(w, map[string]string{"id": departmentID}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListPermissions(w http.ResponseWriter, r *http.Request) {
	permissions, err := h.Store.ListPermissions(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "permissions_failed", "failed to list permissions", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, permissions, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRoles(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	roles, err := h.Store.ListRoles(r.Context(), user.TenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "roles_failed", "failed to list roles", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, roles, middleware.GetRequestID(r.Context()))
}

type rolePermissionsPayload struct {
	Permissions []string `json:"permissions"`
}

func (h *Handler) handleUpdateRolePermissions(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	roleID := chi.URLParam(r, "roleID")

	var payload rolePermissionsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	tenantID, err := h.Store.RoleTenant(r.Context(), roleID)
	if err != nil || tenantID != user.TenantID {
		api.Fail(w, http.StatusNotFound, "not_found", "role not found", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Store.UpdateRolePermissions(r.Context(), roleID, payload.Permissions); err != nil {
		api.Fail(w, http.StatusInternalServerError, "role_update_failed", "failed to update role permissions", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.Entry{
		Action:     "core.role.permissions.update",
		EntityType: "role",
		EntityID:   roleID,
		RequestID:  middleware.GetRequestID(r.Context()),
		IP:         shared.ClientIP(r),
		After:      payload,
	}); err != nil {
		slog.Warn("audit core.role.permissions.update failed", "err", err)
	}
	api.Success(w, map[string]string{"id": roleID}, middleware.GetRequestID(r.Context()))
}
