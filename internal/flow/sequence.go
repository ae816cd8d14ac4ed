package flow

// OnboardingSequence is the ordered list of data fields collected before a
// credit decision is made.
var OnboardingSequence = []Step{
	StepFullName,
	StepDateOfBirth,
	StepEmployment,
	StepMonthlyIncome,
	StepPurpose,
	StepConsent,
}

// IsOnboardingField reports whether step is one of the sequenced data fields.
func IsOnboardingField(step Step) bool {
	for _, s := range OnboardingSequence {
		if s == step {
			return true
		}
	}
	return false
}

// AdvanceField moves the session cursor to the next field in the onboarding
// sequence and returns it. From no active field it moves to the first; from
// the last it clears the cursor and returns StepNone. A cursor outside the
// sequence restarts at the first field.
func (s *Session) AdvanceField() Step {
	idx := -1
	for i, f := range OnboardingSequence {
		if f == s.Step {
			idx = i
			break
		}
	}
	next := idx + 1
	if next >= len(OnboardingSequence) {
		s.Step = StepNone
		return StepNone
	}
	s.Step = OnboardingSequence[next]
	return s.Step
}
