package payroll

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jung-kurt/gofpdf"

	"agencyerp/internal/domain/auth"
	cryptoutil "agencyerp/internal/platform/crypto"
)

type Service struct {
	Store      *Store
	Crypto     *cryptoutil.Service
	PayslipDir string
}

func NewService(store *Store, crypto *cryptoutil.Service, payslipDir string) *Service {
	if payslipDir == "" {
		payslipDir = "storage/payslips"
	}
	return &Service{Store: store, Crypto: crypto, PayslipDir: payslipDir}
}

type GenerationSummary struct {
	Generated int      `json:"generated"`
	Errors    []string `json:"errors,omitempty"`

	// User IDs of employees whose slips were created, for notification fan-out.
	EmployeeUsers []string `json:"-"`
}

// Message renders the batch outcome as a single human-readable line.
func (g GenerationSummary) Message() string {
	if len(g.Errors) == 0 {
		return fmt.Sprintf("%d salary slips generated", g.Generated)
	}
	return fmt.Sprintf("%d salary slips generated, %d skipped/failed", g.Generated, len(g.Errors))
}

// GenerateSlips creates one slip per employee with a configured salary for
// the given month label. The batch is best-effort: a per-employee failure is
// recorded in the summary and the loop moves on. The existence pre-check only
// produces the friendly message; the unique constraint on
// (tenant, employee, month) remains the authoritative duplicate guard, and a
// constraint violation from a concurrent generation is reported the same way.
func (s *Service) GenerateSlips(ctx context.Context, tenantID, month string, paymentDate time.Time, deductionPct float64, notes string) (GenerationSummary, error) {
	var summary GenerationSummary
	if deductionPct < 0 || deductionPct > 100 {
		return summary, ErrInvalidDeduction
	}

	rows, err := s.Store.DB.Query(ctx, `
    SELECT e.id, e.first_name, e.last_name, e.salary
    FROM employees e
    WHERE e.tenant_id = $1 AND e.status = $2 AND e.salary IS NOT NULL
    ORDER BY e.last_name, e.first_name
  `, tenantID, "active")
	if err != nil {
		return summary, err
	}
	defer rows.Close()

	type candidate struct {
		id     string
		name   string
		salary float64
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		var first, last string
		if err := rows.Scan(&c.id, &first, &last, &c.salary); err != nil {
			return summary, err
		}
		c.name = first + " " + last
		candidates = append(candidates, c)
	}
	rows.Close()

	for _, c := range candidates {
		var existing int
		if err := s.Store.DB.QueryRow(ctx, `
      SELECT COUNT(1) FROM salary_slips WHERE tenant_id = $1 AND employee_id = $2 AND month = $3
    `, tenantID, c.id, month).Scan(&existing); err == nil && existing > 0 {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: salary slip already exists for %s", c.name, month))
			continue
		}

		breakdown := ComputeBreakdown(c.salary)
		deduction, net := ApplyDeduction(breakdown.GrossSalary, deductionPct)

		_, err := s.Store.DB.Exec(ctx, `
      INSERT INTO salary_slips
        (tenant_id, employee_id, month, payment_date, basic_salary, hra, special_allowance, conveyance_allowance, total_allowances, gross_salary, deductions, net_salary, notes)
      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
    `, tenantID, c.id, month, paymentDate, breakdown.Basic, breakdown.HRA, breakdown.SpecialAllowance, breakdown.ConveyanceAllowance, breakdown.TotalAllowances, breakdown.GrossSalary, deduction, net, notes)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s: salary slip already exists for %s", c.name, month))
				continue
			}
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", c.name, err))
			continue
		}
		summary.Generated++

		var employeeUser string
		if err := s.Store.DB.QueryRow(ctx, `
      SELECT user_id FROM employees WHERE tenant_id = $1 AND id = $2
    `, tenantID, c.id).Scan(&employeeUser); err == nil && employeeUser != "" {
			summary.EmployeeUsers = append(summary.EmployeeUsers, employeeUser)
		}
	}

	return summary, nil
}

type SlipListResult struct {
	Slips []SalarySlip
	Total int
}

func (s *Service) ListSlips(ctx context.Context, tenantID, roleName, employeeID string, month string, limit, offset int) (SlipListResult, error) {
	query := `
    SELECT s.id, s.employee_id, e.first_name || ' ' || e.last_name, s.month, s.payment_date,
           s.basic_salary, s.hra, s.special_allowance, s.conveyance_allowance, s.total_allowances,
           s.gross_salary, s.deductions, s.net_salary, COALESCE(s.notes, ''), s.created_at
    FROM salary_slips s
    JOIN employees e ON s.employee_id = e.id
    WHERE s.tenant_id = $1
  `
	args := []any{tenantID}
	countQuery := "SELECT COUNT(1) FROM salary_slips s WHERE s.tenant_id = $1"
	countArgs := []any{tenantID}

	if roleName == auth.RoleEmployee {
		query += fmt.Sprintf(" AND s.employee_id = $%d", len(args)+1)
		args = append(args, employeeID)
		countQuery += fmt.Sprintf(" AND s.employee_id = $%d", len(countArgs)+1)
		countArgs = append(countArgs, employeeID)
	}
	if month != "" {
		query += fmt.Sprintf(" AND s.month = $%d", len(args)+1)
		args = append(args, month)
		countQuery += fmt.Sprintf(" AND s.month = $%d", len(countArgs)+1)
		countArgs = append(countArgs, month)
	}

	var total int
	if err := s.Store.DB.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return SlipListResult{}, err
	}

	query += fmt.Sprintf(" ORDER BY s.created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.Store.DB.Query(ctx, query, args...)
	if err != nil {
		return SlipListResult{}, err
	}
	defer rows.Close()

	var slips []SalarySlip
	for rows.Next() {
		var slip SalarySlip
		if err := rows.Scan(&slip.ID, &slip.EmployeeID, &slip.EmployeeName, &slip.Month, &slip.PaymentDate,
			&slip.Basic, &slip.HRA, &slip.SpecialAllowance, &slip.ConveyanceAllowance, &slip.TotalAllowances,
			&slip.GrossSalary, &slip.Deductions, &slip.NetSalary, &slip.Notes, &slip.CreatedAt); err != nil {
			return SlipListResult{}, err
		}
		slips = append(slips, slip)
	}
	return SlipListResult{Slips: slips, Total: total}, nil
}

func (s *Service) SlipByID(ctx context.Context, tenantID, slipID string) (SalarySlip, error) {
	var slip SalarySlip
	err := s.Store.DB.QueryRow(ctx, `
    SELECT s.id, s.employee_id, e.first_name || ' ' || e.last_name, s.month, s.payment_date,
           s.basic_salary, s.hra, s.special_allowance, s.conveyance_allowance, s.total_allowances,
           s.gross_salary, s.deductions, s.net_salary, COALESCE(s.notes, ''), s.created_at
    FROM salary_slips s
    JOIN employees e ON s.employee_id = e.id
    WHERE s.tenant_id = $1 AND s.id = $2
  `, tenantID, slipID).Scan(&slip.ID, &slip.EmployeeID, &slip.EmployeeName, &slip.Month, &slip.PaymentDate,
		&slip.Basic, &slip.HRA, &slip.SpecialAllowance, &slip.ConveyanceAllowance, &slip.TotalAllowances,
		&slip.GrossSalary, &slip.Deductions, &slip.NetSalary, &slip.Notes, &slip.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return SalarySlip{}, ErrSlipNotFound
	}
	if err != nil {
		return SalarySlip{}, err
	}
	return slip, nil
}

// EmployeeIDForSlip resolves the owning employee so handlers can enforce
// self-only access for the employee role.
func (s *Service) EmployeeIDForSlip(ctx context.Context, tenantID, slipID string) (string, error) {
	var employeeID string
	err := s.Store.DB.QueryRow(ctx, `
    SELECT employee_id FROM salary_slips WHERE tenant_id = $1 AND id = $2
  `, tenantID, slipID).Scan(&employeeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrSlipNotFound
	}
	return employeeID, err
}

// GeneratePayslipPDF renders a slip to disk and returns the file path. When
// an encryption key is configured the plaintext file is replaced with an
// encrypted copy.
func (s *Service) GeneratePayslipPDF(ctx context.Context, tenantID, slipID string) (string, error) {
	slip, err := s.SlipByID(ctx, tenantID, slipID)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.PayslipDir, 0o755); err != nil {
		return "", err
	}
	filePath := filepath.Join(s.PayslipDir, slip.ID+".pdf")

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Salary Slip")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s", slip.EmployeeName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Month: %s", slip.Month))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Payment date: %s", slip.PaymentDate.Format("2006-01-02")))
	pdf.Ln(10)
	pdf.Cell(0, 8, fmt.Sprintf("Basic: %.2f", slip.Basic))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("HRA: %.2f", slip.HRA))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Special allowance: %.2f", slip.SpecialAllowance))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Conveyance allowance: %.2f", slip.ConveyanceAllowance))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Total allowances: %.2f", slip.TotalAllowances))
	pdf.Ln(10)
	pdf.Cell(0, 8, fmt.Sprintf("Gross: %.2f", slip.GrossSalary))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Deductions: %.2f", slip.Deductions))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Net: %.2f", slip.NetSalary))

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", err
	}

	if s.Crypto != nil && s.Crypto.Configured() {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", err
		}
		encrypted, err := s.Crypto.Encrypt(data)
		if err != nil {
			return "", err
		}
		encryptedPath := filePath + ".enc"
		if err := os.WriteFile(encryptedPath, encrypted, 0o600); err != nil {
			return "", err
		}
		if err := os.Remove(filePath); err != nil {
			return "", err
		}
		return encryptedPath, nil
	}

	return filePath, nil
}
