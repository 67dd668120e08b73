package payroll

import "math"

// Breakdown is the fixed-ratio decomposition of a gross monthly salary.
type Breakdown struct {
	Basic               float64 `json:"basicSalary"`
	HRA                 float64 `json:"hra"`
	SpecialAllowance    float64 `json:"specialAllowance"`
	ConveyanceAllowance float64 `json:"conveyanceAllowance"`
	TotalAllowances     float64 `json:"totalAllowances"`
	GrossSalary         float64 `json:"grossSalary"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeBreakdown splits a salary figure into basic pay and allowances.
// Each of the six figures is rounded to two decimal places independently,
// not post-hoc on a running sum, so stored components may carry a one-cent
// residual against a separately rounded gross on pathological inputs.
func ComputeBreakdown(salary float64) Breakdown {
	basic := salary * 0.50
	hra := basic * 0.40
	special := basic * 0.30
	conveyance := basic * 0.30
	total := hra + special + conveyance
	gross := basic + total

	return Breakdown{
		Basic:               round2(basic),
		HRA:                 round2(hra),
		SpecialAllowance:    round2(special),
		ConveyanceAllowance: round2(conveyance),
		TotalAllowances:     round2(total),
		GrossSalary:         round2(gross),
	}
}

// ApplyDeduction computes a flat percentage deduction against gross pay.
// The deduction is not re-rounded before subtraction; the storage column's
// precision is the only rounding applied downstream.
func ApplyDeduction(gross, deductionPct float64) (deduction, net float64) {
	deduction = gross * deductionPct / 100
	net = gross - deduction
	return deduction, net
}
