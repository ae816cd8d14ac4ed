package flow_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/him9495-payu/kaira/internal/flow"
)

func TestAdvanceField(t *testing.T) {
	t.Parallel()

	t.Run("visits every field once then clears", func(t *testing.T) {
		t.Parallel()

		sess := &flow.Session{}
		var visited []flow.Step

		for range len(flow.OnboardingSequence) {
			visited = append(visited, sess.AdvanceField())
		}

		if !reflect.DeepEqual(visited, flow.OnboardingSequence) {
			t.Errorf("visited %v, expected %v", visited, flow.OnboardingSequence)
		}

		if got := sess.AdvanceField(); got != flow.StepNone {
			t.Errorf("AdvanceField() after last field = %q, expected cleared cursor", got)
		}

		if sess.Step != flow.StepNone {
			t.Errorf("Step = %q after sequence exhausted, expected none", sess.Step)
		}
	})

	t.Run("restarts from first field on foreign cursor", func(t *testing.T) {
		t.Parallel()

		sess := &flow.Session{Step: flow.StepKYC}
		if got := sess.AdvanceField(); got != flow.StepFullName {
			t.Errorf("AdvanceField() from checkpoint = %q, expected %q", got, flow.StepFullName)
		}
	})
}

func TestSessionReset(t *testing.T) {
	t.Parallel()

	base := flow.Session{
		Language: flow.LangHindi,
		Journey:  flow.JourneyOnboarding,
		Step:     flow.StepPurpose,
		Answers:  flow.Answers{FullName: "Ravi Kumar", MonthlyIncome: 45000},
	}

	t.Run("full reset clears language", func(t *testing.T) {
		t.Parallel()

		sess := base
		sess.Reset(false)

		if !reflect.DeepEqual(sess, flow.Session{}) {
			t.Errorf("Reset(false) left %+v, expected zero session", sess)
		}
	})

	t.Run("reset keeping language", func(t *testing.T) {
		t.Parallel()

		sess := base
		sess.Reset(true)

		if sess.Language != flow.LangHindi {
			t.Errorf("Language = %q after Reset(true), expected %q", sess.Language, flow.LangHindi)
		}

		if sess.Journey != flow.JourneyNone || sess.Step != flow.StepNone || sess.Answers != (flow.Answers{}) {
			t.Errorf("Reset(true) left %+v, expected only language retained", sess)
		}
	})
}

func TestMetaRoundTrip(t *testing.T) {
	t.Parallel()

	nudged := time.Date(2024, time.June, 10, 9, 30, 0, 0, time.UTC)
	original := &flow.Meta{
		SchemaVersion: flow.MetaSchemaVersion,
		Session: flow.Session{
			Language: flow.LangHindi,
			Journey:  flow.JourneyOnboarding,
			Step:     flow.StepNACH,
			Answers: flow.Answers{
				FullName:      "Ravi Kumar",
				DateOfBirth:   "31-12-1995",
				Age:           28,
				Employment:    "Salaried",
				MonthlyIncome: 60000,
				Purpose:       "Education",
				Consent:       true,
			},
		},
		Offers:      flow.BuildOffers(flow.Decision{Approved: true, OfferAmount: 150000}),
		Checkpoints: flow.Checkpoints{KYC: true, Selfie: true, Bank: true},
		BankDetails: &flow.BankDetails{IFSC: "HDFC0001234", AccountNumber: "123456789012"},
		Disbursement: &flow.Disbursement{
			Status:    flow.DisbursementDisbursed,
			Amount:    150000,
			Reference: "REF-ABC123",
		},
		Application: &flow.LoanApplication{
			Phone:           "919876543210",
			FullName:        "Ravi Kumar",
			Age:             28,
			Employment:      "Salaried",
			MonthlyIncome:   60000,
			Purpose:         "Education",
			RequestedAmount: 90000,
			Consent:         true,
		},
		LastApplicationID: "REF-ABC123",
		LastEscalation:    &flow.Escalation{Question: "emi date?", At: nudged},
		LastNudgedAt:      &nudged,
	}
	chosen := original.Offers[0]
	original.ChosenOffer = &chosen

	raw, err := original.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	restored := flow.ParseMeta(raw)
	if !reflect.DeepEqual(original, restored) {
		t.Errorf("round trip mismatch:\noriginal: %+v\nrestored: %+v", original, restored)
	}
}

func TestParseMeta(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		raw  string
	}{
		{name: "empty string", raw: ""},
		{name: "empty object literal", raw: "{}"},
		{name: "corrupt json", raw: "{not json"},
		{name: "wrong shape", raw: `[1, 2, 3]`},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			m := flow.ParseMeta(tc.raw)
			if m == nil {
				t.Fatal("ParseMeta() = nil, expected fresh envelope")
			}

			if m.SchemaVersion != flow.MetaSchemaVersion {
				t.Errorf("SchemaVersion = %d, expected %d", m.SchemaVersion, flow.MetaSchemaVersion)
			}

			if m.Session.Journey != flow.JourneyNone || m.Session.Step != flow.StepNone {
				t.Errorf("fresh envelope has journey %q step %q, expected none", m.Session.Journey, m.Session.Step)
			}
		})
	}

	t.Run("legacy envelope without version", func(t *testing.T) {
		t.Parallel()

		m := flow.ParseMeta(`{"session":{"language":"en","journey":"support"}}`)
		if m.SchemaVersion != flow.MetaSchemaVersion {
			t.Errorf("SchemaVersion = %d, expected backfilled %d", m.SchemaVersion, flow.MetaSchemaVersion)
		}

		if m.Session.Journey != flow.JourneySupport {
			t.Errorf("Journey = %q, expected support preserved", m.Session.Journey)
		}
	})
}
