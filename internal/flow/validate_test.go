// Package flow_test tests the conversation flow package.
package flow_test

import (
	"errors"
	"testing"
	"time"

	"github.com/him9495-payu/kaira/internal/flow"
)

// fixedToday anchors age computations so date-of-birth cases stay stable.
var fixedToday = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func TestAgeAt(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		dob      string
		expected int
	}{
		{name: "birthday already passed this year", dob: "31-12-1995", expected: 28},
		{name: "birthday today", dob: "15-06-2000", expected: 24},
		{name: "birthday tomorrow", dob: "16-06-2000", expected: 23},
		{name: "birthday earlier this month", dob: "01-06-1990", expected: 34},
		{name: "birthday next month", dob: "01-07-1990", expected: 33},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			dob, err := time.Parse("02-01-2006", tc.dob)
			if err != nil {
				t.Fatalf("parse %q: %v", tc.dob, err)
			}

			if got := flow.AgeAt(dob, fixedToday); got != tc.expected {
				t.Errorf("AgeAt(%s) = %d, expected %d", tc.dob, got, tc.expected)
			}
		})
	}
}

func TestValidateDateOfBirth(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		input   string
		wantDOB string
		wantAge int
		wantErr error
	}{
		{name: "valid date", input: "31-12-1995", wantDOB: "31-12-1995", wantAge: 28},
		{name: "valid with surrounding spaces", input: "  15-06-2000 ", wantDOB: "15-06-2000", wantAge: 24},
		{name: "wrong separator", input: "31/12/1995", wantErr: flow.ErrInvalidDate},
		{name: "iso layout", input: "1995-12-31", wantErr: flow.ErrInvalidDate},
		{name: "not a date", input: "yesterday", wantErr: flow.ErrInvalidDate},
		{name: "empty", input: "", wantErr: flow.ErrInvalidDate},
		{name: "too young", input: "01-01-2010", wantErr: flow.ErrAgeOutOfRange},
		{name: "under eighteen by one day", input: "16-06-2006", wantErr: flow.ErrAgeOutOfRange},
		{name: "eighteen exactly", input: "15-06-2006", wantDOB: "15-06-2006", wantAge: 18},
		{name: "seventy five exactly", input: "15-06-1949", wantDOB: "15-06-1949", wantAge: 75},
		{name: "too old", input: "01-01-1940", wantErr: flow.ErrAgeOutOfRange},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			dob, age, err := flow.ValidateDateOfBirth(tc.input, fixedToday)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("ValidateDateOfBirth(%q) error = %v, expected %v", tc.input, err, tc.wantErr)
				}

				return
			}

			if err != nil {
				t.Fatalf("ValidateDateOfBirth(%q) error = %v", tc.input, err)
			}

			if dob != tc.wantDOB || age != tc.wantAge {
				t.Errorf("ValidateDateOfBirth(%q) = (%q, %d), expected (%q, %d)", tc.input, dob, age, tc.wantDOB, tc.wantAge)
			}
		})
	}
}

func TestValidateIncome(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected float64
		wantErr  bool
	}{
		{name: "plain number", input: "45000", expected: 45000},
		{name: "decimal", input: "45000.50", expected: 45000.50},
		{name: "grouped digits", input: "45,000", expected: 45000},
		{name: "currency prefix", input: "₹45000", expected: 45000},
		{name: "surrounding spaces", input: "  45000  ", expected: 45000},
		{name: "words", input: "forty five thousand", wantErr: true},
		{name: "mixed", input: "45000 rupees", wantErr: true},
		{name: "zero", input: "0", wantErr: true},
		{name: "negative", input: "-500", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := flow.ValidateIncome(tc.input)
			if tc.wantErr {
				if !errors.Is(err, flow.ErrInvalidNumber) {
					t.Fatalf("ValidateIncome(%q) error = %v, expected ErrInvalidNumber", tc.input, err)
				}

				return
			}

			if err != nil {
				t.Fatalf("ValidateIncome(%q) error = %v", tc.input, err)
			}

			if got != tc.expected {
				t.Errorf("ValidateIncome(%q) = %v, expected %v", tc.input, got, tc.expected)
			}
		})
	}
}

func TestParseBool(t *testing.T) {
	t.Parallel()

	affirmative := []string{"yes", "Y", "haan", "Haanji", "consent", "agree", "OK", "sure", "accept", "  YES  "}
	negative := []string{"no", "N", "nah", "na", "stop", "Reject"}
	unrecognized := []string{"", "maybe", "yes please", "si"}

	for _, input := range affirmative {
		input := input

		t.Run("affirmative "+input, func(t *testing.T) {
			t.Parallel()

			value, ok := flow.ParseBool(input)
			if !ok || !value {
				t.Errorf("ParseBool(%q) = (%v, %v), expected (true, true)", input, value, ok)
			}
		})
	}

	for _, input := range negative {
		input := input

		t.Run("negative "+input, func(t *testing.T) {
			t.Parallel()

			value, ok := flow.ParseBool(input)
			if !ok || value {
				t.Errorf("ParseBool(%q) = (%v, %v), expected (false, true)", input, value, ok)
			}
		})
	}

	for _, input := range unrecognized {
		input := input

		t.Run("unrecognized "+input, func(t *testing.T) {
			t.Parallel()

			if _, ok := flow.ParseBool(input); ok {
				t.Errorf("ParseBool(%q) recognized, expected unrecognized", input)
			}
		})
	}
}

func TestParseBankDetails(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		input       string
		wantIFSC    string
		wantAccount string
		wantErr     bool
	}{
		{
			name:        "two lines",
			input:       "HDFC0001234\n123456789012",
			wantIFSC:    "HDFC0001234",
			wantAccount: "123456789012",
		},
		{
			name:        "lowercase ifsc normalized",
			input:       "hdfc0001234\n123456789012",
			wantIFSC:    "HDFC0001234",
			wantAccount: "123456789012",
		},
		{
			name:        "blank lines skipped",
			input:       "\nHDFC0001234\n\n123456789012\n",
			wantIFSC:    "HDFC0001234",
			wantAccount: "123456789012",
		},
		{
			name:        "extra lines ignored",
			input:       "HDFC0001234\n123456789012\nRavi Kumar",
			wantIFSC:    "HDFC0001234",
			wantAccount: "123456789012",
		},
		{name: "single line", input: "HDFC0001234 123456789012", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			details, err := flow.ParseBankDetails(tc.input)
			if tc.wantErr {
				if !errors.Is(err, flow.ErrInvalidChoice) {
					t.Fatalf("ParseBankDetails(%q) error = %v, expected ErrInvalidChoice", tc.input, err)
				}

				return
			}

			if err != nil {
				t.Fatalf("ParseBankDetails(%q) error = %v", tc.input, err)
			}

			if details.IFSC != tc.wantIFSC || details.AccountNumber != tc.wantAccount {
				t.Errorf("ParseBankDetails(%q) = %+v, expected IFSC %q account %q", tc.input, details, tc.wantIFSC, tc.wantAccount)
			}
		})
	}
}

func TestTextNormalization(t *testing.T) {
	t.Parallel()

	t.Run("TitleCase", func(t *testing.T) {
		t.Parallel()

		testCases := map[string]string{
			"ravi kumar":   "Ravi Kumar",
			"RAVI KUMAR":   "Ravi Kumar",
			"  ravi  ":     "Ravi",
			"self-employed": "Self-employed",
			"":             "",
		}
		for input, expected := range testCases {
			if got := flow.TitleCase(input); got != expected {
				t.Errorf("TitleCase(%q) = %q, expected %q", input, got, expected)
			}
		}
	})

	t.Run("Capitalize", func(t *testing.T) {
		t.Parallel()

		testCases := map[string]string{
			"education loan": "Education loan",
			"MEDICAL":        "Medical",
			"travel":         "Travel",
			"":               "",
		}
		for input, expected := range testCases {
			if got := flow.Capitalize(input); got != expected {
				t.Errorf("Capitalize(%q) = %q, expected %q", input, got, expected)
			}
		}
	})
}
