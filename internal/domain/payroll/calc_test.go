package payroll

import "testing"

func TestComputeBreakdown(t *testing.T) {
	b := ComputeBreakdown(100000)

	if b.Basic != 50000 {
		t.Fatalf("expected basic 50000, got %v", b.Basic)
	}
	if b.HRA != 20000 {
		t.Fatalf("expected hra 20000, got %v", b.HRA)
	}
	if b.SpecialAllowance != 15000 {
		t.Fatalf("expected special allowance 15000, got %v", b.SpecialAllowance)
	}
	if b.ConveyanceAllowance != 15000 {
		t.Fatalf("expected conveyance allowance 15000, got %v", b.ConveyanceAllowance)
	}
	if b.TotalAllowances != 50000 {
		t.Fatalf("expected total allowances 50000, got %v", b.TotalAllowances)
	}
	if b.GrossSalary != 100000 {
		t.Fatalf("expected gross 100000, got %v", b.GrossSalary)
	}
}

func TestComputeBreakdownRoundsPerComponent(t *testing.T) {
	b := ComputeBreakdown(1234.56)
	if b.Basic != 617.28 {
		t.Fatalf("expected basic 617.28, got %v", b.Basic)
	}
	if b.HRA != 246.91 {
		t.Fatalf("expected hra 246.91, got %v", b.HRA)
	}
	if b.SpecialAllowance != 185.18 {
		t.Fatalf("expected special allowance 185.18, got %v", b.SpecialAllowance)
	}
}

func TestApplyDeduction(t *testing.T) {
	deduction, net := ApplyDeduction(100000, 10)
	if deduction != 10000 {
		t.Fatalf("expected deduction 10000, got %v", deduction)
	}
	if net != 90000 {
		t.Fatalf("expected net 90000, got %v", net)
	}
}

func TestApplyDeductionZeroDefault(t *testing.T) {
	deduction, net := ApplyDeduction(54321.12, 0)
	if deduction != 0 {
		t.Fatalf("expected no deduction, got %v", deduction)
	}
	if net != 54321.12 {
		t.Fatalf("expected net to equal gross, got %v", net)
	}
}
