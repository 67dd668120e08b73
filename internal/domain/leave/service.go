package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"agencyerp/internal/domain/auth"
	"agencyerp/internal/domain/core"
	"agencyerp/internal/domain/holiday"
)

type Service struct {
	Store    *Store
	Core     *core.Store
	Holidays *holiday.Store
}

var (
	ErrInvalidRange    = errors.New("end date before start date")
	ErrInvalidCategory = errors.New("unknown leave category")
	ErrInvalidState    = errors.New("invalid state")
	ErrForbidden       = errors.New("forbidden")
)

func NewService(store *Store, coreStore *core.Store, holidays *holiday.Store) *Service {
	return &Service{Store: store, Core: coreStore, Holidays: holidays}
}

func (s *Service) EmployeeIDByUserID(ctx context.Context, tenantID, userID string) (string, error) {
	if s.Core == nil {
		return "", nil
	}
	return s.Core.EmployeeIDByUserID(ctx, tenantID, userID)
}

// Preview runs the day calculation for a candidate interval without
// persisting anything.
func (s *Service) Preview(ctx context.Context, tenantID string, start, end time.Time, sandwich bool) (DayCount, error) {
	if end.Before(start) {
		return DayCount{}, ErrInvalidRange
	}
	cal, err := s.Holidays.DateSetForRange(ctx, tenantID, start, end)
	if err != nil {
		return DayCount{}, err
	}
	return CountDays(cal, start, end, sandwich), nil
}

type CreateRequestResult struct {
	ID            string
	Days          DayCount
	Status        string
	ManagerUserID string
}

// CreateRequest runs the day calculation and snapshots its totals onto the
// stored request, so later approval never recomputes against a calendar that
// may have changed.
func (s *Service) CreateRequest(ctx context.Context, tenantID, employeeID, category, reason string, start, end time.Time, sandwich bool) (CreateRequestResult, error) {
	result := CreateRequestResult{Status: StatusPending}
	if end.Before(start) {
		return result, ErrInvalidRange
	}
	if !ValidCategory(category) {
		return result, ErrInvalidCategory
	}

	cal, err := s.Holidays.DateSetForRange(ctx, tenantID, start, end)
	if err != nil {
		return result, err
	}
	result.Days = CountDays(cal, start, end, sandwich)

	if err := s.Store.DB.QueryRow(ctx, `
    INSERT INTO leave_requests (tenant_id, employee_id, category, start_date, end_date, is_sandwich, total_days, sandwich_days, reason, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    RETURNING id
  `, tenantID, employeeID, category, start, end, sandwich, result.Days.Total, result.Days.Sandwich, reason, StatusPending).Scan(&result.ID); err != nil {
		return result, err
	}

	if err := s.Store.DB.QueryRow(ctx, `
    SELECT m.user_id
    FROM employees e
    JOIN employees m ON e.manager_id = m.id
    WHERE e.tenant_id = $1 AND e.id = $2
  `, tenantID, employeeID).Scan(&result.ManagerUserID); err != nil {
		result.ManagerUserID = ""
	}

	return result, nil
}

type RequestListResult struct {
	Requests []LeaveRequest
	Total    int
}

func (s *Service) ListRequests(ctx context.Context, tenantID, roleName, employeeID, managerEmployeeID string, limit, offset int) (RequestListResult, error) {
	query := `
    SELECT id, employee_id, category, start_date, end_date, is_sandwich, total_days, sandwich_days, reason, status, remarks, approved_by, approved_at, created_at
    FROM leave_requests
    WHERE tenant_id = $1
  `
	args := []any{tenantID}

	if roleName == auth.RoleEmployee {
		query += " AND employee_id = $2"
		args = append(args, employeeID)
	}
	if roleName == auth.RoleManager {
		query += " AND employee_id IN (SELECT id FROM employees WHERE tenant_id = $1 AND manager_id = $2)"
		args = append(args, managerEmployeeID)
	}
	query += " ORDER BY created_at DESC"

	countQuery := `
    SELECT COUNT(1)
    FROM leave_requests
    WHERE tenant_id = $1
  `
	countArgs := []any{tenantID}
	if roleName == auth.RoleEmployee {
		countQuery += " AND employee_id = $2"
		countArgs = append(countArgs, employeeID)
	}
	if roleName == auth.RoleManager {
		countQuery += " AND employee_id IN (SELECT id FROM employees WHERE tenant_id = $1 AND manager_id = $2)"
		countArgs = append(countArgs, managerEmployeeID)
	}
	var total int
	if err := s.Store.DB.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return RequestListResult{}, err
	}

	limitPos := len(args) + 1
	offsetPos := len(args) + 2
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", limitPos, offsetPos)
	args = append(args, limit, offset)

	rows, err := s.Store.DB.Query(ctx, query, args...)
	if err != nil {
		return RequestListResult{}, err
	}
	defer rows.Close()

	var requests []LeaveRequest
	for rows.Next() {
		var req LeaveRequest
		var remarks *string
		if err := rows.Scan(&req.ID, &req.EmployeeID, &req.Category, &req.StartDate, &req.EndDate, &req.Sandwich, &req.TotalDays, &req.SandwichDays, &req.Reason, &req.Status, &remarks, &req.ApprovedBy, &req.ApprovedAt, &req.CreatedAt); err != nil {
			return RequestListResult{}, err
		}
		if remarks != nil {
			req.Remarks = *remarks
		}
		requests = append(requests, req)
	}
	return RequestListResult{Requests: requests, Total: total}, nil
}

func (s *Service) RequestByID(ctx context.Context, tenantID, requestID string) (LeaveRequest, error) {
	var req LeaveRequest
	var remarks *string
	err := s.Store.DB.QueryRow(ctx, `
    SELECT id, employee_id, category, start_date, end_date, is_sandwich, total_days, sandwich_days, reason, status, remarks, approved_by, approved_at, created_at
    FROM leave_requests
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, requestID).Scan(&req.ID, &req.EmployeeID, &req.Category, &req.StartDate, &req.EndDate, &req.Sandwich, &req.TotalDays, &req.SandwichDays, &req.Reason, &req.Status, &remarks, &req.ApprovedBy, &req.ApprovedAt, &req.CreatedAt)
	if err != nil {
		return LeaveRequest{}, err
	}
	if remarks != nil {
		req.Remarks = *remarks
	}
	return req, nil
}

type DecisionResult struct {
	EmployeeID   string
	EmployeeUser string
	Status       string
}

func (s *Service) ApproveRequest(ctx context.Context, tenantID, requestID, approverUserID, roleName, remarks string) (DecisionResult, error) {
	return s.decide(ctx, tenantID, requestID, approverUserID, roleName, remarks, StatusApproved)
}

func (s *Service) RejectRequest(ctx context.Context, tenantID, requestID, approverUserID, roleName, remarks string) (DecisionResult, error) {
	return s.decide(ctx, tenantID, requestID, approverUserID, roleName, remarks, StatusRejected)
}

// decide transitions a pending request to its final status. Requests that
// have already been decided are rejected with ErrInvalidState; the snapshot
// on the request is never recomputed here.
func (s *Service) decide(ctx context.Context, tenantID, requestID, approverUserID, roleName, remarks, nextStatus string) (DecisionResult, error) {
	result := DecisionResult{Status: nextStatus}
	var employeeID, currentStatus string
	if err := s.Store.DB.QueryRow(ctx, `
    SELECT employee_id, status
    FROM leave_requests
    WHERE id = $1 AND tenant_id = $2
  `, requestID, tenantID).Scan(&employeeID, &currentStatus); err != nil {
		return result, err
	}
	result.EmployeeID = employeeID

	if currentStatus != StatusPending {
		return result, ErrInvalidState
	}

	if roleName == auth.RoleManager {
		var managerEmployeeID *string
		if err := s.Store.DB.QueryRow(ctx, `
      SELECT manager_id FROM employees WHERE tenant_id = $1 AND id = $2
    `, tenantID, employeeID).Scan(&managerEmployeeID); err != nil {
			return result, err
		}
		// A report without an assigned manager can only be decided by HR or
		// an admin.
		if managerEmployeeID == nil || *managerEmployeeID == "" {
			return result, ErrForbidden
		}
		var selfEmployeeID string
		err := s.Store.DB.QueryRow(ctx, `
      SELECT id FROM employees WHERE tenant_id = $1 AND user_id = $2
    `, tenantID, approverUserID).Scan(&selfEmployeeID)
		if errors.Is(err, pgx.ErrNoRows) {
			return result, ErrForbidden
		}
		if err != nil {
			return result, err
		}
		if selfEmployeeID != *managerEmployeeID {
			return result, ErrForbidden
		}
	}

	if _, err := s.Store.DB.Exec(ctx, `
    UPDATE leave_requests
    SET status = $1, remarks = $2, approved_by = $3, approved_at = now()
    WHERE id = $4 AND tenant_id = $5
  `, nextStatus, remarks, approverUserID, requestID, tenantID); err != nil {
		return result, err
	}

	if err := s.Store.DB.QueryRow(ctx, `
    SELECT user_id FROM employees WHERE tenant_id = $1 AND id = $2
  `, tenantID, employeeID).Scan(&result.EmployeeUser); err != nil {
		result.EmployeeUser = ""
	}
	return result, nil
}
