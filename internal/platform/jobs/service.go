package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	JobSalarySlipRun = "salary_slip_generation"
	JobPayslipPDF    = "payslip_pdf_render"
)

const (
	statusRunning   = "running"
	statusCompleted = "completed"
	statusFailed    = "failed"
)

// Service wraps units of work like payroll batches so every execution leaves
// a job_runs row with its outcome, even when triggered from a request.
type Service struct {
	DB *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Service {
	return &Service{DB: db}
}

// RunNow executes fn synchronously and records the run. The returned details
// are whatever fn produced, also stored as JSON on the run row. Bookkeeping
// failures are logged but never mask fn's own result.
func (s *Service) RunNow(ctx context.Context, jobType, tenantID string, fn func(context.Context) (any, error)) (any, error) {
	runID := s.begin(ctx, jobType, tenantID)
	started := time.Now()

	details, err := fn(ctx)

	s.finish(ctx, runID, details, err, time.Since(started))
	return details, err
}

func (s *Service) begin(ctx context.Context, jobType, tenantID string) string {
	var runID string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (tenant_id, job_type, status)
    VALUES ($1,$2,$3)
    RETURNING id
  `, tenantID, jobType, statusRunning).Scan(&runID); err != nil {
		slog.Warn("job run insert failed", "jobType", jobType, "err", err)
		return ""
	}
	return runID
}

func (s *Service) finish(ctx context.Context, runID string, details any, runErr error, elapsed time.Duration) {
	if runID == "" {
		return
	}
	status := statusCompleted
	if runErr != nil {
		status = statusFailed
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		slog.Warn("job details marshal failed", "err", err)
		detailsJSON = []byte("{}")
	}
	if _, err := s.DB.Exec(ctx, `
    UPDATE job_runs
    SET status = $1, details_json = $2, completed_at = now()
    WHERE id = $3
  `, status, detailsJSON, runID); err != nil {
		slog.Warn("job run update failed", "runId", runID, "err", err)
	}
	slog.Info("job run finished", "runId", runID, "status", status, "durationMs", elapsed.Milliseconds())
}
