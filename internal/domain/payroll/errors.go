package payroll

import "errors"

var (
	ErrSlipExists       = errors.New("salary slip already exists for this month")
	ErrSlipNotFound     = errors.New("salary slip not found")
	ErrInvalidDeduction = errors.New("deduction percentage must be between 0 and 100")
)
