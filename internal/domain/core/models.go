package core

import (
	"strings"
	"time"
)

// Employee is the HR record behind both payroll and leave. NationalID and
// BankAccount are decrypted on read when an encryption key is configured.
type Employee struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	EmployeeNumber string     `json:"employeeNumber"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone"`
	Designation    string     `json:"designation"`
	DateOfBirth    *time.Time `json:"dateOfBirth,omitempty"`
	Address        string     `json:"address"`
	NationalID     string     `json:"nationalId,omitempty"`
	BankAccount    string     `json:"bankAccount,omitempty"`
	Salary         *float64   `json:"salary,omitempty"`
	DepartmentID   string     `json:"departmentId"`
	ManagerID      string     `json:"managerId"`
	JoinDate       *time.Time `json:"joinDate,omitempty"`
	EndDate        *time.Time `json:"endDate,omitempty"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// FullName renders the display name used on payslips and in audit trails.
func (e Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

type Department struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ManagerID string    `json:"managerId"`
	CreatedAt time.Time `json:"createdAt"`
}

const (
	EmployeeStatusActive     = "active"
	EmployeeStatusOnLeave    = "on_leave"
	EmployeeStatusTerminated = "terminated"
)

// EmployeeStatuses lists the accepted values for employee status payloads.
var EmployeeStatuses = []string{EmployeeStatusActive, EmployeeStatusOnLeave, EmployeeStatusTerminated}

func ValidEmployeeStatus(status string) bool {
	for _, s := range EmployeeStatuses {
		if status == s {
			return true
		}
	}
	return false
}
