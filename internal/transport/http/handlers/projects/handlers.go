package projectshandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"agencyerp/internal/domain/audit"
	"agencyerp/internal/domain/auth"
	"agencyerp/internal/domain/notifications"
	"agencyerp/internal/domain/projects"
	"agencyerp/internal/transport/http/api"
	"agencyerp/internal/transport/http/middleware"
	"agencyerp/internal/transport/http/shared"
)

type Handler struct {
	Service *projects.Service
	Perms   middleware.PermissionStore
	Notify  *notifications.Service
	Audit   *audit.Service
}

func NewHandler(service *projects.Service, perms middleware.PermissionStore, notify *notifications.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Notify: notify, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/projects", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermProjectsRead, h.Perms)).Get("/", h.handleListProjects)
		r.With(middleware.RequirePermission(auth.PermProjectsRead, h.Perms)).Get("/{projectID}", h.handleGetProject)
		r.With(middleware.RequirePermission(auth.PermProjectsWrite, h.Perms)).Post("/", h.handleCreateProject)
		r.With(middleware.RequirePermission(auth.PermProjectsWrite, h.Perms)).Put("/{projectID}", h.handleUpdateProject)

		r.With(middleware.RequirePermission(auth.PermProjectsRead, h.Perms)).Get("/{projectID}/tasks", h.handleListTasks)
		r.With(middleware.RequirePermission(auth.PermProjectsWrite, h.Perms)).Post("/{projectID}/tasks", h.handleCreateTask)
		r.With(middleware.RequirePermission(auth.PermProjectsWrite, h.Perms)).Put("/{projectID}/tasks/{taskID}", h.handleUpdateTask)
		r.With(middleware.RequirePermission(auth.PermProjectsWrite, h.Perms)).Patch("/{projectID}/tasks/{taskID}/status", h.handleUpdateTaskStatus)

		r.With(middleware.RequirePermission(auth.PermProjectsRead, h.Perms)).Get("/{projectID}/minutes", h.handleListMinutes)
		r.With(middleware.RequirePermission(auth.PermProjectsWrite, h.Perms)).Post("/{projectID}/minutes", h.handleCreateMinute)
	})
}

type projectPayload struct {
	Name        string `json:"name"`
	ClientName  string `json:"clientName"`
	Description string `json:"description"`
	Status      string `json:"status"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
}

func (p projectPayload) toProject(v *shared.Validator) projects.Project {
	project := projects.Project{
		Name:        p.Name,
		ClientName:  p.ClientName,
		Description: p.Description,
		Status:      p.Status,
	}
	if p.StartDate != "" {
		if start, ok := v.Date("startDate", p.StartDate); ok {
			project.StartDate = &start
		}
	}
	if p.EndDate != "" {
		if end, ok := v.Date("endDate", p.EndDate); ok {
			project.EndDate = &end
		}
	}
	return project
}

func (h *Handler) handleListProjects(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	page := shared.ParsePagination(r, 20, 100)
	status := r.URL.Query().Get("status")
	if status != "" && !projects.ValidProjectStatus(status) {
		api.Fail(w, http.StatusBadRequest, "invalid_status", "unknown project status", middleware.GetRequestID(r.Context()))
		return
	}

	result, err := h.Service.ListProjects(r.Context(), user.TenantID, status, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "projects_failed", "failed to list projects", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"projects": result.Projects, "total": result.Total}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetProject(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	project, err := h.Service.GetProject(r.Context(), user.TenantID, chi.URLParam(r, "projectID"))
	if errors.Is(err, projects.ErrProjectNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "project not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "project_failed", "failed to load project", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, project, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload projectPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "is required")
	project := payload.toProject(v)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Service.CreateProject(r.Context(), user.TenantID, project)
	if errors.Is(err, projects.ErrInvalidStatus) {
		api.Fail(w, http.StatusBadRequest, "invalid_status", "unknown project status", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "project_create_failed", "failed to create project", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.Entry{
		Action:     "projects.project.create",
		EntityType: "project",
		EntityID:   id,
		RequestID:  middleware.GetRequestID(r.Context()),
		IP:         shared.ClientIP(r),
		After:      payload,
	}); err != nil {
		slog.Warn("audit projects.project.create failed", "err", err)
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	projectID := chi.URLParam(r, "projectID")
	var payload projectPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "is required")
	v.Required("status", payload.Status, "is required")
	project := payload.toProject(v)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	err := h.Service.UpdateProject(r.Context(), user.TenantID, projectID, project)
	switch {
	case errors.Is(err, projects.ErrProjectNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "project not found", middleware.GetRequestID(r.Context()))
		return
	case errors.Is(err, projects.ErrInvalidStatus):
		api.Fail(w, http.StatusBadRequest, "invalid_status", "unknown project status", middleware.GetRequestID(r.Context()))
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "project_update_failed", "failed to update project", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.Entry{
		Action:     "projects.project.update",
		EntityType: "project",
		EntityID:   projectID,
		RequestID:  middleware.GetRequestID(r.Context()),
		IP:         shared.ClientIP(r),
		After:      payload,
	}); err != nil {
		slog.Warn("audit projects.project.update failed", "err", err)
	}
	api.Success(w, map[string]string{"id": projectID}, middleware.GetRequestID(r.Context()))
}

type taskPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	AssigneeID  string `json:"assigneeId"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	DueDate     string `json:"dueDate"`
}

func (p taskPayload) toTask(projectID string, v *shared.Validator) projects.Task {
	task := projects.Task{
		ProjectID:   projectID,
		Title:       p.Title,
		Description: p.Description,
		AssigneeID:  p.AssigneeID,
		Status:      p.Status,
		Priority:    p.Priority,
	}
	if p.DueDate != "" {
		if due, ok := v.Date("dueDate", p.DueDate); ok {
			task.DueDate = &due
		}
	}
	return task
}

func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	projectID := chi.URLParam(r, "projectID")
	status := r.URL.Query().Get("status")
	assigneeID := r.URL.Query().Get("assigneeId")
	if status != "" && !projects.ValidTaskStatus(status) {
		api.Fail(w, http.StatusBadRequest, "invalid_status", "unknown task status", middleware.GetRequestID(r.Context()))
		return
	}

	tasks, err := h.Service.ListTasks(r.Context(), user.TenantID, projectID, status, assigneeID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "tasks_failed", "failed to list tasks", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, tasks, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	projectID := chi.URLParam(r, "projectID")
	var payload taskPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("title", payload.Title, "is required")
	task := payload.toTask(projectID, v)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	if _, err := h.Service.GetProject(r.Context(), user.TenantID, projectID); err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "project not found", middleware.GetRequestID(r.Context()))
		return
	}

	id, err := h.Service.CreateTask(r.Context(), user.TenantID, task)
	switch {
	case errors.Is(err, projects.ErrInvalidStatus):
		api.Fail(w, http.StatusBadRequest, "invalid_status", "unknown task status", middleware.GetRequestID(r.Context()))
		return
	case errors.Is(err, projects.ErrInvalidPriority):
		api.Fail(w, http.StatusBadRequest, "invalid_priority", "unknown task priority", middleware.GetRequestID(r.Context()))
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "task_create_failed", "failed to create task", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.Entry{
		Action:     "projects.task.create",
		EntityType: "project_task",
		EntityID:   id,
		RequestID:  middleware.GetRequestID(r.Context()),
		IP:         shared.ClientIP(r),
		After:      payload,
	}); err != nil {
		slog.Warn("audit projects.task.create failed", "err", err)
	}
	if payload.AssigneeID != "" && payload.AssigneeID != user.UserID {
		if err := h.Notify.Create(r.Context(), user.TenantID, payload.AssigneeID, notifications.TypeTaskAssigned, "Task assigned", "Task \""+payload.Title+"\" was assigned to you."); err != nil {
			slog.Warn("task assignment notification failed", "err", err)
		}
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	projectID := chi.URLParam(r, "projectID")
	taskID := chi.URLParam(r, "taskID")
	var payload taskPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("title", payload.Title, "is required")
	v.Required("status", payload.Status, "is required")
	v.Required("priority", payload.Priority, "is required")
	task := payload.toTask(projectID, v)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	err := h.Service.UpdateTask(r.Context(), user.TenantID, taskID, task)
	switch {
	case errors.Is(err, projects.ErrTaskNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "task not found", middleware.GetRequestID(r.Context()))
		return
	case errors.Is(err, projects.ErrInvalidStatus):
		api.Fail(w, http.StatusBadRequest, "invalid_status", "unknown task status", middleware.GetRequestID(r.Context()))
		return
	case errors.Is(err, projects.ErrInvalidPriority):
		api.Fail(w, http.StatusBadRequest, "invalid_priority", "unknown task priority", middleware.GetRequestID(r.Context()))
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "task_update_failed", "failed to update task", middleware.GetRequestID(r.Context()))
		return
	}

	if payload.AssigneeID != "" && payload.AssigneeID != user.UserID {
		if err := h.Notify.Create(r.Context(), user.TenantID, payload.AssigneeID, notifications.TypeTaskAssigned, "Task assigned", "Task \""+payload.Title+"\" was assigned to you."); err != nil {
			slog.Warn("task assignment notification failed", "err", err)
		}
	}
	api.Success(w, map[string]string{"id": taskID}, middleware.GetRequestID(r.Context()))
}

type taskStatusPayload struct {
	Status string `json:"status"`
}

func (h *Handler) handleUpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	taskID := chi.URLParam(r, "taskID")
	var payload taskStatusPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	err := h.Service.UpdateTaskStatus(r.Context(), user.TenantID, taskID, payload.Status)
	switch {
	case errors.Is(err, projects.ErrTaskNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "task not found", middleware.GetRequestID(r.Context()))
		return
	case errors.Is(err, projects.ErrInvalidStatus):
		api.Fail(w, http.StatusBadRequest, "invalid_status", "unknown task status", middleware.GetRequestID(r.Context()))
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "task_update_failed", "failed to update task status", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"id": taskID, "status": payload.Status}, middleware.GetRequestID(r.Context()))
}

type minutePayload struct {
	Title     string `json:"title"`
	HeldAt    string `json:"heldAt"`
	Attendees string `json:"attendees"`
	Body      string `json:"body"`
}

func (h *Handler) handleListMinutes(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	minutes, err := h.Service.ListMinutes(r.Context(), user.TenantID, chi.URLParam(r, "projectID"))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "minutes_failed", "failed to list meeting minutes", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, minutes, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateMinute(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	projectID := chi.URLParam(r, "projectID")
	var payload minutePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("title", payload.Title, "is required")
	v.Required("body", payload.Body, "is required")
	heldAt, _ := v.Date("heldAt", payload.HeldAt)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	if _, err := h.Service.GetProject(r.Context(), user.TenantID, projectID); err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "project not found", middleware.GetRequestID(r.Context()))
		return
	}

	id, err := h.Service.CreateMinute(r.Context(), user.TenantID, user.UserID, projects.MeetingMinute{
		ProjectID: projectID,
		Title:     payload.Title,
		HeldAt:    heldAt,
		Attendees: payload.Attendees,
		Body:      payload.Body,
	})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "minute_create_failed", "failed to record meeting minutes", middleware.GetRequestID(r.Context()))
		return
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}
