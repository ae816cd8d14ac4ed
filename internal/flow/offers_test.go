package flow_test

import (
	"math"
	"testing"

	"github.com/him9495-payu/kaira/internal/flow"
)

func TestMonthlyInstallment(t *testing.T) {
	t.Parallel()

	t.Run("matches amortization formula", func(t *testing.T) {
		t.Parallel()

		principal := 60000.0
		apr := 18.0
		months := 6

		r := apr / 100 / 12
		factor := math.Pow(1+r, float64(months))
		expected := math.Ceil(principal * r * factor / (factor - 1))

		if got := flow.MonthlyInstallment(principal, apr, months); got != expected {
			t.Errorf("MonthlyInstallment(%v, %v, %d) = %v, expected %v", principal, apr, months, got, expected)
		}
	})

	t.Run("zero rate divides evenly", func(t *testing.T) {
		t.Parallel()

		if got := flow.MonthlyInstallment(60000, 0, 6); got != 10000 {
			t.Errorf("MonthlyInstallment(60000, 0, 6) = %v, expected 10000", got)
		}

		if got := flow.MonthlyInstallment(1000, 0, 3); math.Abs(got-1000.0/3.0) > 1e-9 {
			t.Errorf("MonthlyInstallment(1000, 0, 3) = %v, expected %v", got, 1000.0/3.0)
		}
	})

	t.Run("zero months", func(t *testing.T) {
		t.Parallel()

		if got := flow.MonthlyInstallment(60000, 18, 0); got != 0 {
			t.Errorf("MonthlyInstallment(60000, 18, 0) = %v, expected 0", got)
		}
	})
}

func TestEligibleCeiling(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		income   float64
		expected float64
	}{
		{name: "below program ceiling", income: 12000, expected: 120000},
		{name: "at program ceiling", income: 15000, expected: 150000},
		{name: "capped by program ceiling", income: 60000, expected: 150000},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := flow.EligibleCeiling(tc.income); got != tc.expected {
				t.Errorf("EligibleCeiling(%v) = %v, expected %v", tc.income, got, tc.expected)
			}
		})
	}
}

func TestBuildOffers(t *testing.T) {
	t.Parallel()

	decision := flow.Decision{
		Approved:      true,
		ReferenceID:   "REF-ABC123",
		OfferAmount:   150000,
		APR:           18.0,
		MaxTermMonths: 12,
	}

	offers := flow.BuildOffers(decision)
	if len(offers) != 3 {
		t.Fatalf("BuildOffers() returned %d offers, expected 3", len(offers))
	}

	// Base is 60% of the ceiling; tiers mark it up at fixed multipliers.
	expected := []struct {
		id     string
		amount float64
		tenure int
		apr    float64
	}{
		{id: "OFFER1", amount: 90000, tenure: 6, apr: 18.0},
		{id: "OFFER2", amount: 103500, tenure: 9, apr: 21.0},
		{id: "OFFER3", amount: 121500, tenure: 12, apr: 24.0},
	}

	for i, want := range expected {
		got := offers[i]
		if got.ID != want.id || got.Amount != want.amount || got.TenureMonths != want.tenure || got.APR != want.apr {
			t.Errorf("offer %d = %+v, expected id %s amount %v tenure %d apr %v",
				i, got, want.id, want.amount, want.tenure, want.apr)
		}

		if got.MonthlyEMI != flow.MonthlyInstallment(got.Amount, got.APR, got.TenureMonths) {
			t.Errorf("offer %d EMI = %v, inconsistent with MonthlyInstallment", i, got.MonthlyEMI)
		}

		if got.MonthlyEMI*float64(got.TenureMonths) < got.Amount {
			t.Errorf("offer %d total repayment %v is below principal %v", i, got.MonthlyEMI*float64(got.TenureMonths), got.Amount)
		}
	}
}

func TestFindOffer(t *testing.T) {
	t.Parallel()

	offers := flow.BuildOffers(flow.Decision{Approved: true, OfferAmount: 150000})

	if _, ok := flow.FindOffer(offers, "OFFER2"); !ok {
		t.Error("FindOffer(OFFER2) not found, expected found")
	}

	if _, ok := flow.FindOffer(offers, "OFFER9"); ok {
		t.Error("FindOffer(OFFER9) found, expected not found")
	}

	if _, ok := flow.FindOffer(nil, "OFFER1"); ok {
		t.Error("FindOffer on empty set found, expected not found")
	}
}

func TestNewReferenceID(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)

	for range 50 {
		ref := flow.NewReferenceID()
		if len(ref) != len("REF-")+6 {
			t.Fatalf("NewReferenceID() = %q, expected REF- prefix plus 6 characters", ref)
		}

		if ref[:4] != "REF-" {
			t.Fatalf("NewReferenceID() = %q, expected REF- prefix", ref)
		}

		seen[ref] = true
	}

	if len(seen) < 2 {
		t.Error("NewReferenceID() produced no variation across 50 calls")
	}
}

func TestFormatINR(t *testing.T) {
	t.Parallel()

	testCases := map[float64]string{
		0:       "0",
		999:     "999",
		1000:    "1,000",
		45000:   "45,000",
		150000:  "150,000",
		1234567: "1,234,567",
		90000:   "90,000",
	}

	for input, expected := range testCases {
		if got := flow.FormatINR(input); got != expected {
			t.Errorf("FormatINR(%v) = %q, expected %q", input, got, expected)
		}
	}
}
