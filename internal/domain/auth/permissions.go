package auth

const (
	PermEmployeesRead   = "core.employees.read"
	PermEmployeesWrite  = "core.employees.write"
	PermOrgRead         = "core.org.read"
	PermOrgWrite        = "core.org.write"
	PermLeaveRead       = "leave.read"
	PermLeaveWrite      = "leave.write"
	PermLeaveApprove    = "leave.approve"
	PermHolidaysWrite   = "leave.holidays.write"
	PermPayrollRead     = "payroll.read"
	PermPayrollGenerate = "payroll.generate"
	PermCRMRead         = "crm.read"
	PermCRMWrite        = "crm.write"
	PermProjectsRead    = "projects.read"
	PermProjectsWrite   = "projects.write"
	PermAuditRead       = "audit.read"
	PermAdminSystem     = "admin.system"
)

var DefaultPermissions = []string{
	PermEmployeesRead,
	PermEmployeesWrite,
	PermOrgRead,
	PermOrgWrite,
	PermLeaveRead,
	PermLeaveWrite,
	PermLeaveApprove,
	PermHolidaysWrite,
	PermPayrollRead,
	PermPayrollGenerate,
	PermCRMRead,
	PermCRMWrite,
	PermProjectsRead,
	PermProjectsWrite,
	PermAuditRead,
	PermAdminSystem,
}

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermEmployeesRead,
		PermOrgRead,
		PermLeaveRead,
		PermLeaveWrite,
		PermPayrollRead,
		PermCRMRead,
		PermCRMWrite,
		PermProjectsRead,
		PermProjectsWrite,
	},
	RoleManager: {
		PermEmployeesRead,
		PermOrgRead,
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermPayrollRead,
		PermCRMRead,
		PermCRMWrite,
		PermProjectsRead,
		PermProjectsWrite,
	},
	RoleHR: {
		PermEmployeesRead,
		PermEmployeesWrite,
		PermOrgRead,
		PermOrgWrite,
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermHolidaysWrite,
		PermPayrollRead,
		PermPayrollGenerate,
		PermCRMRead,
		PermProjectsRead,
		PermAuditRead,
	},
	RoleAdmin: {
		PermEmployeesRead,
		PermEmployeesWrite,
		PermOrgRead,
		PermOrgWrite,
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermHolidaysWrite,
		PermPayrollRead,
		PermPayrollGenerate,
		PermCRMRead,
		PermCRMWrite,
		PermProjectsRead,
		PermProjectsWrite,
		PermAuditRead,
		PermAdminSystem,
	},
}
