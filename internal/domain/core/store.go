package core

import (
	"context"
	"errors"

	"agencyerp/internal/platform/querier"

	cryptoutil "agencyerp/internal/platform/crypto"
)

var ErrEmployeeNotFound = errors.New("employee not found")

type Store struct {
	DB     querier.Querier
	Crypto *cryptoutil.Service
}

func NewStore(db querier.Querier, crypto *cryptoutil.Service) *Store {
	return &Store{DB: db, Crypto: crypto}
}

func (s *Store) EmployeeIDByUserID(ctx context.Context, tenantID, userID string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    SELECT COALESCE(id::text, '')
    FROM employees
    WHERE tenant_id = $1 AND user_id = $2
  `, tenantID, userID).Scan(&id)
	if err != nil {
		return "", nil
	}
	return id, nil
}

func (s *Store) IsManagerOf(ctx context.Context, tenantID, managerEmployeeID, employeeID string) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM employees
    WHERE tenant_id = $1 AND id = $2 AND manager_id = $3
  `, tenantID, employeeID, managerEmployeeID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

const employeeColumns = `id,
         COALESCE(user_id::text, ''),
         COALESCE(employee_number, ''),
         first_name, last_name, email,
         COALESCE(phone, ''),
         COALESCE(designation, ''),
         date_of_birth,
         COALESCE(address, ''),
         COALESCE(national_id, ''),
         national_id_enc,
         COALESCE(bank_account, ''),
         bank_account_enc,
         salary,
         COALESCE(department_id::text, ''),
         COALESCE(manager_id::text, ''),
         join_date, end_date, status, created_at, updated_at`

func scanEmployee(row interface{ Scan(...any) error }, crypto *cryptoutil.Service) (Employee, error) {
	var emp Employee
	var nationalEnc, bankEnc []byte
	var nationalPlain, bankPlain string
	err := row.Scan(
		&emp.ID, &emp.UserID, &emp.EmployeeNumber, &emp.FirstName, &emp.LastName, &emp.Email, &emp.Phone,
		&emp.Designation, &emp.DateOfBirth, &emp.Address, &nationalPlain, &nationalEnc, &bankPlain, &bankEnc,
		&emp.Salary, &emp.DepartmentID, &emp.ManagerID, &emp.JoinDate, &emp.EndDate, &emp.Status,
		&emp.CreatedAt, &emp.UpdatedAt,
	)
	if err != nil {
		return Employee{}, err
	}
	emp.NationalID = decryptStringFallback(crypto, nationalEnc, nationalPlain)
	emp.BankAccount = decryptStringFallback(crypto, bankEnc, bankPlain)
	return emp, nil
}

func (s *Store) GetEmployee(ctx context.Context, tenantID, employeeID string) (*Employee, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, employeeID)
	emp, err := scanEmployee(row, s.Crypto)
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

func (s *Store) GetEmployeeByUserID(ctx context.Context, tenantID, userID string) (*Employee, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    WHERE tenant_id = $1 AND user_id = $2
  `, tenantID, userID)
	emp, err := scanEmployee(row, s.Crypto)
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

func (s *Store) ListEmployees(ctx context.Context, tenantID string) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    WHERE tenant_id = $1
    ORDER BY last_name, first_name
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows, s.Crypto)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, nil
}

func (s *Store) CreateEmployee(ctx context.Context, tenantID string, emp Employee) (string, error) {
	nationalEnc, bankEnc := encryptEmployeeSensitive(s.Crypto, emp)
	var nationalPlain, bankPlain any = emp.NationalID, emp.BankAccount
	if s.Crypto != nil && s.Crypto.Configured() {
		nationalPlain = nil
		bankPlain = nil
	}
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO employees (tenant_id, user_id, employee_number, first_name, last_name, email, phone, designation,
      date_of_birth, address, national_id, national_id_enc, bank_account, bank_account_enc, salary,
      department_id, manager_id, join_date, end_date, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
    RETURNING id
  `,
		tenantID, nullIfEmpty(emp.UserID), nullIfEmpty(emp.EmployeeNumber), emp.FirstName, emp.LastName, emp.Email, emp.Phone,
		emp.Designation, emp.DateOfBirth, emp.Address, nationalPlain, nationalEnc, bankPlain, bankEnc, emp.Salary,
		nullIfEmpty(emp.DepartmentID), nullIfEmpty(emp.ManagerID), emp.JoinDate, emp.EndDate, emp.Status,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) UpdateEmployee(ctx context.Context, tenantID, employeeID string, emp Employee) error {
	nationalEnc, bankEnc := encryptEmployeeSensitive(s.Crypto, emp)
	var nationalPlain, bankPlain any = emp.NationalID, emp.BankAccount
	if s.Crypto != nil && s.Crypto.Configured() {
		nationalPlain = nil
		bankPlain = nil
	}
	cmd, err := s.DB.Exec(ctx, `
    UPDATE employees
    SET employee_number = $1,
        first_name = $2,
        last_name = $3,
        email = $4,
        phone = $5,
        designation = $6,
        date_of_birth = $7,
        address = $8,
        national_id = $9,
        national_id_enc = $10,
        bank_account = $11,
        bank_account_enc = $12,
        salary = $13,
        department_id = $14,
        manager_id = $15,
        join_date = $16,
        end_date = $17,
        status = $18,
        updated_at = now()
    WHERE tenant_id = $19 AND id = $20
  `,
		emp.EmployeeNumber, emp.FirstName, emp.LastName, emp.Email, emp.Phone, emp.Designation,
		emp.DateOfBirth, emp.Address, nationalPlain, nationalEnc, bankPlain, bankEnc, emp.Salary,
		nullIfEmpty(emp.DepartmentID), nullIfEmpty(emp.ManagerID), emp.JoinDate, emp.EndDate, emp.Status,
		tenantID, employeeID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}

func (s *Store) TerminateEmployee(ctx context.Context, tenantID, employeeID string) error {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE employees
    SET status = $1, end_date = now(), updated_at = now()
    WHERE tenant_id = $2 AND id = $3
  `, EmployeeStatusTerminated, tenantID, employeeID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func encryptEmployeeSensitive(crypto *cryptoutil.Service, emp Employee) ([]byte, []byte) {
	if crypto == nil || !crypto.Configured() {
		return nil, nil
	}
	nationalEnc, _ := crypto.EncryptString(emp.NationalID)
	bankEnc, _ := crypto.EncryptString(emp.BankAccount)
	return nationalEnc, bankEnc
}

func decryptStringFallback(crypto *cryptoutil.Service, encrypted []byte, plain string) string {
	if crypto == nil || !crypto.Configured() || len(encrypted) == 0 {
		return plain
	}
	decrypted, err := crypto.DecryptString(encrypted)
	if err != nil {
		return plain
	}
	return decrypted
}
