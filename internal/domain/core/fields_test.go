package core

import (
	"testing"

	"agencyerp/internal/domain/auth"
)

func sampleEmployee() Employee {
	salary := 75000.0
	return Employee{
		FirstName:   "Asha",
		LastName:    "Verma",
		NationalID:  "ID-123",
		BankAccount: "ACC-456",
		Salary:      &salary,
	}
}

func TestFilterEmployeeFieldsHRSeesAll(t *testing.T) {
	emp := sampleEmployee()
	FilterEmployeeFields(&emp, auth.UserContext{RoleName: auth.RoleHR}, false)
	if emp.NationalID == "" || emp.BankAccount == "" || emp.Salary == nil {
		t.Fatalf("hr should see all fields: %+v", emp)
	}
}

func TestFilterEmployeeFieldsSelfKeepsSalary(t *testing.T) {
	emp := sampleEmployee()
	FilterEmployeeFields(&emp, auth.UserContext{RoleName: auth.RoleEmployee}, true)
	if emp.NationalID != "" || emp.BankAccount != "" {
		t.Fatalf("self view should hide identifiers: %+v", emp)
	}
	if emp.Salary == nil {
		t.Fatal("self view should keep salary")
	}
}

func TestFilterEmployeeFieldsOtherHidesAll(t *testing.T) {
	emp := sampleEmployee()
	FilterEmployeeFields(&emp, auth.UserContext{RoleName: auth.RoleManager}, false)
	if emp.NationalID != "" || emp.BankAccount != "" || emp.Salary != nil {
		t.Fatalf("expected sensitive fields cleared: %+v", emp)
	}
}
