package core

import "agencyerp/internal/domain/auth"

// FilterEmployeeFields strips sensitive fields from an employee record based
// on who is asking. Admin and HR see everything; everyone else loses PII and
// salary unless they are looking at their own record.
func FilterEmployeeFields(emp *Employee, user auth.UserContext, isSelf bool) {
	if user.RoleName == auth.RoleAdmin || user.RoleName == auth.RoleHR {
		return
	}
	if isSelf {
		emp.NationalID = ""
		emp.BankAccount = ""
		return
	}
	emp.NationalID = ""
	emp.BankAccount = ""
	emp.Salary = nil
}
