package payroll

import "time"

type SalarySlip struct {
	ID                  string    `json:"id"`
	EmployeeID          string    `json:"employeeId"`
	EmployeeName        string    `json:"employeeName,omitempty"`
	Month               string    `json:"month"`
	PaymentDate         time.Time `json:"paymentDate"`
	Basic               float64   `json:"basicSalary"`
	HRA                 float64   `json:"hra"`
	SpecialAllowance    float64   `json:"specialAllowance"`
	ConveyanceAllowance float64   `json:"conveyanceAllowance"`
	TotalAllowances     float64   `json:"totalAllowances"`
	GrossSalary         float64   `json:"grossSalary"`
	Deductions          float64   `json:"deductions"`
	NetSalary           float64   `json:"netSalary"`
	Notes               string    `json:"notes,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
}
