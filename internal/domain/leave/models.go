package leave

import "time"

type LeaveRequest struct {
	ID           string     `json:"id"`
	EmployeeID   string     `json:"employeeId"`
	Category     string     `json:"category"`
	StartDate    time.Time  `json:"startDate"`
	EndDate      time.Time  `json:"endDate"`
	Sandwich     bool       `json:"isSandwichLeave"`
	TotalDays    int        `json:"totalDays"`
	SandwichDays int        `json:"sandwichDays"`
	Reason       string     `json:"reason"`
	Status       string     `json:"status"`
	Remarks      string     `json:"remarks,omitempty"`
	ApprovedBy   *string    `json:"approvedBy,omitempty"`
	ApprovedAt   *time.Time `json:"approvedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}
