package projects

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type Service struct {
	Store *Store
}

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrTaskNotFound    = errors.New("task not found")
	ErrInvalidStatus   = errors.New("unknown status")
	ErrInvalidPriority = errors.New("unknown priority")
)

func NewService(store *Store) *Service {
	return &Service{Store: store}
}

type ProjectListResult struct {
	Projects []Project
	Total    int
}

func (s *Service) ListProjects(ctx context.Context, tenantID, status string, limit, offset int) (ProjectListResult, error) {
	query := `
    SELECT id, name, COALESCE(client_name, ''), COALESCE(description, ''), status, start_date, end_date, created_at, updated_at
    FROM projects
    WHERE tenant_id = $1
  `
	args := []any{tenantID}
	countQuery := "SELECT COUNT(1) FROM projects WHERE tenant_id = $1"
	countArgs := []any{tenantID}

	if status != "" {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, status)
		countQuery += fmt.Sprintf(" AND status = $%d", len(countArgs)+1)
		countArgs = append(countArgs, status)
	}

	var total int
	if err := s.Store.DB.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		total = 0
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.Store.DB.Query(ctx, query, args...)
	if err != nil {
		return ProjectListResult{}, err
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.ClientName, &p.Description, &p.Status, &p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return ProjectListResult{}, err
		}
		projects = append(projects, p)
	}
	return ProjectListResult{Projects: projects, Total: total}, nil
}

func (s *Service) GetProject(ctx context.Context, tenantID, projectID string) (Project, error) {
	var p Project
	err := s.Store.DB.QueryRow(ctx, `
    SELECT id, name, COALESCE(client_name, ''), COALESCE(description, ''), status, start_date, end_date, created_at, updated_at
    FROM projects
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, projectID).Scan(&p.ID, &p.Name, &p.ClientName, &p.Description, &p.Status, &p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Project{}, ErrProjectNotFound
	}
	if err != nil {
		return Project{}, err
	}
	return p, nil
}

func (s *Service) CreateProject(ctx context.Context, tenantID string, p Project) (string, error) {
	if p.Status == "" {
		p.Status = ProjectStatusActive
	}
	if !ValidProjectStatus(p.Status) {
		return "", ErrInvalidStatus
	}
	var id string
	err := s.Store.DB.QueryRow(ctx, `
    INSERT INTO projects (tenant_id, name, client_name, description, status, start_date, end_date)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id
  `, tenantID, p.Name, p.ClientName, p.Description, p.Status, p.StartDate, p.EndDate).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Service) UpdateProject(ctx context.Context, tenantID, projectID string, p Project) error {
	if !ValidProjectStatus(p.Status) {
		return ErrInvalidStatus
	}
	cmd, err := s.Store.DB.Exec(ctx, `
    UPDATE projects
    SET name = $1, client_name = $2, description = $3, status = $4, start_date = $5, end_date = $6, updated_at = now()
    WHERE tenant_id = $7 AND id = $8
  `, p.Name, p.ClientName, p.Description, p.Status, p.StartDate, p.EndDate, tenantID, projectID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrProjectNotFound
	}
	return nil
}

func (s *Service) ListTasks(ctx context.Context, tenantID, projectID, status, assigneeID string) ([]Task, error) {
	query := `
    SELECT id, project_id, title, COALESCE(description, ''), COALESCE(assignee_id::text, ''), status, priority, due_date, created_at, updated_at
    FROM project_tasks
    WHERE tenant_id = $1 AND project_id = $2
  `
	args := []any{tenantID, projectID}
	if status != "" {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, status)
	}
	if assigneeID != "" {
		query += fmt.Sprintf(" AND assignee_id = $%d", len(args)+1)
		args = append(args, assigneeID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.Store.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.AssigneeID, &t.Status, &t.Priority, &t.DueDate, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (s *Service) CreateTask(ctx context.Context, tenantID string, t Task) (string, error) {
	if t.Status == "" {
		t.Status = TaskStatusTodo
	}
	if t.Priority == "" {
		t.Priority = TaskPriorityMedium
	}
	if !ValidTaskStatus(t.Status) {
		return "", ErrInvalidStatus
	}
	if !ValidTaskPriority(t.Priority) {
		return "", ErrInvalidPriority
	}
	var id string
	err := s.Store.DB.QueryRow(ctx, `
    INSERT INTO project_tasks (tenant_id, project_id, title, description, assignee_id, status, priority, due_date)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING id
  `, tenantID, t.ProjectID, t.Title, t.Description, nullIfEmpty(t.AssigneeID), t.Status, t.Priority, t.DueDate).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Service) UpdateTaskStatus(ctx context.Context, tenantID, taskID, status string) error {
	if !ValidTaskStatus(status) {
		return ErrInvalidStatus
	}
	cmd, err := s.Store.DB.Exec(ctx, `
    UPDATE project_tasks SET status = $1, updated_at = now() WHERE tenant_id = $2 AND id = $3
  `, status, tenantID, taskID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (s *Service) UpdateTask(ctx context.Context, tenantID, taskID string, t Task) error {
	if !ValidTaskStatus(t.Status) {
		return ErrInvalidStatus
	}
	if !ValidTaskPriority(t.Priority) {
		return ErrInvalidPriority
	}
	cmd, err := s.Store.DB.Exec(ctx, `
    UPDATE project_tasks
    SET title = $1, description = $2, assignee_id = $3, status = $4, priority = $5, due_date = $6, updated_at = now()
    WHERE tenant_id = $7 AND id = $8
  `, t.Title, t.Description, nullIfEmpty(t.AssigneeID), t.Status, t.Priority, t.DueDate, tenantID, taskID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (s *Service) ListMinutes(ctx context.Context, tenantID, projectID string) ([]MeetingMinute, error) {
	rows, err := s.Store.DB.Query(ctx, `
    SELECT id, project_id, title, held_at, COALESCE(attendees, ''), body, created_by, created_at
    FROM meeting_minutes
    WHERE tenant_id = $1 AND project_id = $2
    ORDER BY held_at DESC
  `, tenantID, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var minutes []MeetingMinute
	for rows.Next() {
		var m MeetingMinute
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Title, &m.HeldAt, &m.Attendees, &m.Body, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		minutes = append(minutes, m)
	}
	return minutes, nil
}

func (s *Service) CreateMinute(ctx context.Context, tenantID, userID string, m MeetingMinute) (string, error) {
	var id string
	err := s.Store.DB.QueryRow(ctx, `
    INSERT INTO meeting_minutes (tenant_id, project_id, title, held_at, attendees, body, created_by)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id
  `, tenantID, m.ProjectID, m.Title, m.HeldAt, m.Attendees, m.Body, userID).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
