package notifications

const (
	TypeLeaveSubmitted      = "leave_submitted"
	TypeLeaveApproved       = "leave_approved"
	TypeLeaveRejected       = "leave_rejected"
	TypeSalarySlipGenerated = "salary_slip_generated"
	TypeLeadAssigned        = "lead_assigned"
	TypeTaskAssigned        = "task_assigned"
)
