package flow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// DecisionEvaluator turns an application snapshot into a credit decision.
type DecisionEvaluator interface {
	Evaluate(ctx context.Context, app LoanApplication) (Decision, error)
}

// Responder produces a free-form answer to a support question. contextText
// carries the user's loan record when one exists. Implementations are
// optional: the engine degrades to its knowledge base when no responder is
// configured or the responder fails.
type Responder interface {
	Answer(ctx context.Context, question string, lang Language, contextText string) (string, error)
}

// LoanReader exposes a read-only rendering of a user's loan record for
// support context and the post-loan detail view.
type LoanReader interface {
	Summary(ctx context.Context, phone string) (summary string, found bool, err error)
}

// Deps carries the engine's collaborators. Responder and Loans may be nil;
// Evaluator is required.
type Deps struct {
	Logger      *slog.Logger
	Evaluator   DecisionEvaluator
	Responder   Responder
	Loans       LoanReader
	DocumentURL string
	Now         func() time.Time
}

// Engine routes classified inbound events through the journey state machine.
// It mutates only the State it is handed and reports every durable side
// effect through the returned Result, so callers control persistence and
// delivery ordering.
type Engine struct {
	logger    *slog.Logger
	evaluator DecisionEvaluator
	responder Responder
	loans     LoanReader
	docURL    string
	now       func() time.Time
}

// NewEngine creates an Engine from its dependencies.
func NewEngine(deps Deps) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		logger:    logger.With("component", "flow"),
		evaluator: deps.Evaluator,
		responder: deps.Responder,
		loans:     deps.Loans,
		docURL:    deps.DocumentURL,
		now:       now,
	}
}

// Handle processes one inbound event against the user's working state. Rules
// are evaluated in a fixed precedence order; the first matching rule wins.
// On error the caller must discard the mutated state without persisting it.
func (e *Engine) Handle(ctx context.Context, ev Event, st *State) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if st.Meta == nil {
		st.Meta = NewMeta()
	}
	sess := &st.Meta.Session
	res := &Result{}
	normalized := Normalize(ev.Text)

	// Explicit language reset clears the whole conversation.
	if IsLanguageReset(normalized) {
		sess.Reset(false)
		promptLanguage(res)
		return res, nil
	}

	// Language selection by button or bare menu ordinal.
	if lang, ok := MatchLanguage(ev.ReplyID, normalized); ok {
		sess.Language = lang
		st.Language = lang
		mainMenu(GetPack(lang), res)
		return res, nil
	}

	// First contact: adopt the profile language and ask for a choice.
	if sess.Language == "" {
		lang := st.Language
		if lang == "" {
			lang = DefaultLanguage
		}
		sess.Language = lang
		st.Language = lang
		res.text(GetPack(lang).Welcome)
		promptLanguage(res)
		return res, nil
	}

	pack := GetPack(sess.Language)

	if IsSupportTrigger(ev.ReplyID, normalized, sess.Journey) {
		presentSupportMenu(st, pack, res)
		return res, nil
	}

	if IsApplyTrigger(ev.ReplyID, normalized, sess.Journey) {
		sess.Journey = JourneyOnboarding
		sess.Step = StepFullName
		st.Stage = StageOnboarding
		res.text(pack.AskName)
		return res, nil
	}

	if sess.Journey == JourneyOnboarding {
		return e.handleOnboarding(ctx, ev, st, pack, res)
	}

	if sess.Journey == JourneySupport && ev.Text != "" {
		e.handleSupportText(ctx, ev, st, pack, res)
		return res, nil
	}

	if e.handlePostAction(ctx, ev, st, pack, res) {
		return res, nil
	}

	// Media with no interpretable text outside the selfie checkpoint.
	if ev.Text == "" && ev.ReplyID == "" && (ev.HasImage || ev.HasDocument) {
		res.text(pack.TextOnlyWarning)
		return res, nil
	}

	// Nothing matched: never drop an event silently.
	mainMenu(pack, res)
	return res, nil
}

// handleOnboarding routes events while the onboarding journey is active:
// checkpoint buttons first, then media, then typed input for the active
// field.
func (e *Engine) handleOnboarding(ctx context.Context, ev Event, st *State, pack Pack, res *Result) (*Result, error) {
	sess := &st.Meta.Session

	if ev.ReplyID != "" {
		handled, err := e.handleOnboardingReply(ctx, ev, st, pack, res)
		if err != nil {
			return nil, err
		}
		if handled {
			return res, nil
		}
	}

	switch {
	case sess.Step == StepSelfie:
		if !ev.HasImage {
			res.text(pack.AskSelfie)
			return res, nil
		}
		st.Meta.Checkpoints.Selfie = true
		res.text(pack.SelfieReceived)
		sess.Step = StepBankDetails
		res.text(pack.AskBank)
		return res, nil

	case sess.Step == StepBankDetails:
		details, err := ParseBankDetails(ev.Text)
		if err != nil {
			res.text(pack.InvalidChoice)
			res.text(pack.AskBank)
			return res, nil
		}
		st.Meta.BankDetails = &details
		st.Meta.Checkpoints.Bank = true
		res.text(pack.BankDetailsReceived)
		return e.disburse(ctx, st, pack, res)

	case IsOnboardingField(sess.Step):
		return e.handleTypedField(ctx, ev, st, pack, res)

	case sess.Step != StepNone:
		e.repromptStep(st, pack, res)
		return res, nil
	}

	// Onboarding journey with no active step: an earlier decline or a
	// restart. Offer the menu.
	mainMenu(pack, res)
	return res, nil
}

// handleOnboardingReply processes the fixed onboarding button identifiers.
// It reports false for unknown identifiers so the button title falls through
// to typed-input handling, matching how plain-text replies arrive from
// channels that echo button labels.
func (e *Engine) handleOnboardingReply(ctx context.Context, ev Event, st *State, pack Pack, res *Result) (bool, error) {
	sess := &st.Meta.Session

	if id, ok := OfferSelectID(ev.ReplyID); ok {
		e.selectOffer(st, pack, id, res)
		return true, nil
	}
	if id, ok := OfferViewID(ev.ReplyID); ok {
		viewOffer(st, pack, id, res)
		return true, nil
	}
	if idx, ok := OptionIndex(ev.ReplyID, replyEmploymentPrefix, len(pack.EmploymentOptions)); ok {
		if sess.Step != StepEmployment {
			e.repromptStep(st, pack, res)
			return true, nil
		}
		sess.Answers.Employment = pack.EmploymentOptions[idx]
		_, err := e.advanceFrom(ctx, st, pack, res)
		return true, err
	}
	if idx, ok := OptionIndex(ev.ReplyID, replyPurposePrefix, len(pack.PurposeOptions)); ok {
		if sess.Step != StepPurpose {
			e.repromptStep(st, pack, res)
			return true, nil
		}
		sess.Answers.Purpose = pack.PurposeOptions[idx]
		_, err := e.advanceFrom(ctx, st, pack, res)
		return true, err
	}

	switch ev.ReplyID {
	case ReplyConsentYes:
		if sess.Step != StepConsent {
			e.repromptStep(st, pack, res)
			return true, nil
		}
		sess.Answers.Consent = true
		_, err := e.advanceFrom(ctx, st, pack, res)
		return true, err

	case ReplyConsentNo:
		if sess.Step != StepConsent {
			e.repromptStep(st, pack, res)
			return true, nil
		}
		res.text(pack.ConsentRequired)
		consentButtons(pack, res)
		return true, nil

	case ReplyKYCComplete:
		if sess.Step != StepKYC {
			e.repromptStep(st, pack, res)
			return true, nil
		}
		st.Meta.Checkpoints.KYC = true
		res.text(pack.KYCCompleted)
		sess.Step = StepSelfie
		res.text(pack.AskSelfie)
		return true, nil

	case ReplyNACHComplete:
		if sess.Step != StepNACH {
			e.repromptStep(st, pack, res)
			return true, nil
		}
		st.Meta.Checkpoints.NACH = true
		res.text("Auto-debit successfully setup.")
		sess.Step = StepAgreement
		res.text(pack.AgreementPrompt)
		if e.docURL != "" {
			res.document(e.docURL, "Customer_Agreement.pdf", "")
		}
		agreementButtons(pack, res)
		return true, nil

	case ReplyAgreeYes:
		if sess.Step != StepAgreement {
			e.repromptStep(st, pack, res)
			return true, nil
		}
		st.Meta.Checkpoints.Agreement = true
		res.text(pack.AgreementSigned)
		sess.Journey = JourneyCompleted
		sess.Step = StepNone
		st.Stage = StageCompleted
		postLoanMenu(pack, res)
		return true, nil

	case ReplyAgreeNo:
		if sess.Step != StepAgreement {
			e.repromptStep(st, pack, res)
			return true, nil
		}
		st.Meta.Checkpoints.Agreement = false
		res.text("You did not agree to the terms. Application cannot proceed.")
		return true, nil
	}

	return false, nil
}

// handleTypedField validates typed input for the active data field and
// advances the sequence on success. Validation failures re-prompt without
// advancing.
func (e *Engine) handleTypedField(ctx context.Context, ev Event, st *State, pack Pack, res *Result) (*Result, error) {
	answers := &st.Meta.Session.Answers

	switch st.Meta.Session.Step {
	case StepFullName:
		name, err := ValidateName(ev.Text)
		if err != nil {
			res.text(pack.AskName)
			return res, nil
		}
		answers.FullName = name

	case StepDateOfBirth:
		dob, age, err := ValidateDateOfBirth(ev.Text, e.now())
		if err != nil {
			res.text(pack.InvalidDOB)
			return res, nil
		}
		answers.DateOfBirth = dob
		answers.Age = age

	case StepEmployment:
		answers.Employment = TitleCase(ev.Text)

	case StepMonthlyIncome:
		income, err := ValidateIncome(ev.Text)
		if err != nil {
			res.text(pack.InvalidNumber)
			return res, nil
		}
		answers.MonthlyIncome = income

	case StepPurpose:
		answers.Purpose = Capitalize(ev.Text)

	case StepConsent:
		granted, ok := ParseBool(ev.Text)
		if !ok || !granted {
			res.text(pack.ConsentRequired)
			consentButtons(pack, res)
			return res, nil
		}
		answers.Consent = true
	}

	return e.advanceFrom(ctx, st, pack, res)
}

// advanceFrom moves the cursor to the next field and prompts for it, or
// submits the completed application when the sequence is exhausted.
func (e *Engine) advanceFrom(ctx context.Context, st *State, pack Pack, res *Result) (*Result, error) {
	next := st.Meta.Session.AdvanceField()
	if next == StepNone {
		return e.completeOnboarding(ctx, st, pack, res)
	}
	e.promptField(next, pack, res)
	return res, nil
}

// promptField emits the prompt for one data field.
func (e *Engine) promptField(step Step, pack Pack, res *Result) {
	switch step {
	case StepFullName:
		res.text(pack.AskName)
	case StepDateOfBirth:
		res.text(pack.AskDOB)
	case StepEmployment:
		res.choiceSplit(pack.AskEmployment, optionButtons(replyEmploymentPrefix, pack.EmploymentOptions))
	case StepMonthlyIncome:
		res.text(pack.AskSalary)
	case StepPurpose:
		res.choiceSplit(pack.AskPurpose, optionButtons(replyPurposePrefix, pack.PurposeOptions))
	case StepConsent:
		consentButtons(pack, res)
	}
}

// repromptStep re-emits the prompt for whatever step is active, covering
// stale button taps and off-step input without advancing anything.
func (e *Engine) repromptStep(st *State, pack Pack, res *Result) {
	step := st.Meta.Session.Step
	if IsOnboardingField(step) {
		e.promptField(step, pack, res)
		return
	}
	switch step {
	case StepOfferSelection:
		res.text(pack.OffersPrompt)
	case StepKYC:
		kycPrompt(pack, res)
	case StepSelfie:
		res.text(pack.AskSelfie)
	case StepBankDetails:
		res.text(pack.AskBank)
	case StepNACH:
		nachPrompt(pack, res)
	case StepAgreement:
		agreementButtons(pack, res)
	default:
		mainMenu(pack, res)
	}
}

// completeOnboarding builds the application from collected answers, obtains
// a credit decision, and either presents offers or a rejection.
func (e *Engine) completeOnboarding(ctx context.Context, st *State, pack Pack, res *Result) (*Result, error) {
	sess := &st.Meta.Session

	app := BuildApplication(st.Phone, sess.Answers, 0)
	if err := app.Validate(); err != nil {
		e.logger.WarnContext(ctx, "Collected answers failed application validation",
			"error", err, "phone", st.Phone)
		res.text("There was a problem with your details. Please restart by typing 'Get Loan'.")
		sess.Step = StepNone
		return res, nil
	}

	res.text(pack.DecisionSubmit)
	decision, err := e.evaluator.Evaluate(ctx, app)
	if err != nil {
		return nil, fmt.Errorf("evaluate application: %w", err)
	}

	st.Meta.Application = &app
	st.Meta.LastApplicationID = decision.ReferenceID
	res.audit(DirectionSystem, "decision", map[string]any{
		"approved":     decision.Approved,
		"reference_id": decision.ReferenceID,
		"reason":       decision.Reason,
	})

	if !decision.Approved {
		res.text(renderTemplate(pack.DecisionRejected, map[string]string{"reason": decision.Reason}))
		sess.Step = StepNone
		return res, nil
	}

	offers := BuildOffers(decision)
	st.Meta.Offers = offers
	sess.Step = StepOfferSelection
	st.Stage = StageOffers
	presentOffers(pack, offers, res)
	return res, nil
}

// selectOffer records the chosen offer and opens the KYC checkpoint. An
// unknown offer id re-prompts without any state change.
func (e *Engine) selectOffer(st *State, pack Pack, id string, res *Result) {
	sess := &st.Meta.Session
	if sess.Step != StepOfferSelection {
		e.repromptStep(st, pack, res)
		return
	}
	offer, ok := FindOffer(st.Meta.Offers, id)
	if !ok {
		res.text(pack.InvalidChoice)
		return
	}
	st.Meta.ChosenOffer = &offer
	st.Stage = StageCheckpoints
	res.text(fmt.Sprintf("You selected:\n₹%s\n%d months\nAPR %.1f%%",
		FormatINR(offer.Amount), offer.TenureMonths, offer.APR))
	sess.Step = StepKYC
	kycPrompt(pack, res)
}

// viewOffer shows the expanded terms for one offer without changing state.
func viewOffer(st *State, pack Pack, id string, res *Result) {
	offer, ok := FindOffer(st.Meta.Offers, id)
	if !ok {
		res.text(pack.InvalidChoice)
		return
	}
	res.choice(offerDetails(offer),
		Button{ID: replyOfferSelectPrefix + offer.ID, Label: pack.OfferButtonAccept},
		Button{ID: ReplyConnectAgent, Label: pack.ConnectAgent},
	)
}

// disburse re-evaluates the application with the chosen offer amount as the
// requested amount, then records and announces the outcome. The loan-record
// write it requests gates session persistence: on upsert failure the caller
// aborts and the bank-details step is retried.
func (e *Engine) disburse(ctx context.Context, st *State, pack Pack, res *Result) (*Result, error) {
	sess := &st.Meta.Session

	var requested float64
	if st.Meta.ChosenOffer != nil {
		requested = st.Meta.ChosenOffer.Amount
	}
	app := BuildApplication(st.Phone, sess.Answers, requested)
	if prev := st.Meta.Application; prev != nil && !prev.SameFacts(app) {
		e.logger.WarnContext(ctx, "Applicant facts changed between onboarding and disbursement",
			"phone", st.Phone, "reference_id", st.Meta.LastApplicationID)
		res.audit(DirectionSystem, "application_mismatch", map[string]any{
			"reference_id": st.Meta.LastApplicationID,
		})
	}

	decision, err := e.evaluator.Evaluate(ctx, app)
	if err != nil {
		return nil, fmt.Errorf("re-evaluate application: %w", err)
	}

	if !decision.Approved {
		res.text(renderTemplate(pack.FinalReject, map[string]string{"reason": decision.Reason}))
		st.Meta.Disbursement = &Disbursement{Status: DisbursementRejected}
		res.audit(DirectionSystem, "final_reject", map[string]any{"reason": decision.Reason})
		sess.Step = StepNone
		return res, nil
	}

	if st.Meta.ChosenOffer != nil && st.Meta.ChosenOffer.Amount > decision.OfferAmount {
		res.text("Selected amount exceeds eligible amount. Please select a different offer.")
		sess.Step = StepOfferSelection
		presentOffers(pack, st.Meta.Offers, res)
		return res, nil
	}

	res.Loan = &LoanUpsert{
		Application: app,
		Decision:    decision,
		Status:      "approved",
		NextEMIDue:  app.MonthlyIncome * 0.4,
	}
	st.Meta.Application = &app
	st.Meta.LastApplicationID = decision.ReferenceID
	st.Meta.Disbursement = &Disbursement{
		Status:    DisbursementDisbursed,
		Amount:    decision.OfferAmount,
		Reference: decision.ReferenceID,
	}
	st.Status = StatusCustomer
	st.IsExisting = true

	res.text(renderTemplate(pack.FinalApproval, map[string]string{
		"amount": FormatINR(decision.OfferAmount),
		"ref":    decision.ReferenceID,
	}))
	res.audit(DirectionOutbound, "disbursed", map[string]any{
		"amount":       decision.OfferAmount,
		"reference_id": decision.ReferenceID,
	})

	sess.Step = StepNACH
	nachPrompt(pack, res)
	return res, nil
}

// handlePostAction serves the post-completion menu. It reports false when
// the reply id is not a post-loan action.
func (e *Engine) handlePostAction(ctx context.Context, ev Event, st *State, pack Pack, res *Result) bool {
	switch ev.ReplyID {
	case ReplyPostView:
		summary := e.loanContext(ctx, st.Phone)
		if summary == "" {
			summary = "{}"
		}
		res.text("Loan details:\n" + summary)

	case ReplyPostDownload:
		if e.docURL != "" {
			res.document(e.docURL, "Loan_Details.pdf", "")
		} else {
			res.text("Your loan statement will be emailed to you shortly.")
		}

	case ReplyPostRepay:
		res.text("To repay early or view your EMI schedule, open the PayU Finance app and go to Loans, then Repay.")

	case ReplyPostSupport:
		res.text(pack.SupportHandoff)
		esc := &Escalation{Question: ev.Text, At: e.now()}
		st.Meta.LastEscalation = esc
		res.Escalation = esc
		res.audit(DirectionSystem, "agent_handoff", map[string]any{"question": ev.Text})
		res.text(pack.SupportEscalationAck)

	default:
		return false
	}
	return true
}

// presentOffers renders every offer into a single interactive message
// followed by the selection prompt.
func presentOffers(pack Pack, offers []Offer, res *Result) {
	if len(offers) == 0 {
		res.text(pack.OffersPrompt)
		return
	}
	blocks := make([]string, 0, len(offers))
	buttons := make([]Button, 0, len(offers))
	for i, o := range offers {
		blocks = append(blocks, offerSummary(i, o))
		buttons = append(buttons, Button{
			ID:    replyOfferSelectPrefix + o.ID,
			Label: fmt.Sprintf("%s %d", pack.OfferButtonAccept, i+1),
		})
	}
	res.choiceSplit(pack.DecisionApprovedIntro+"\n\n"+strings.Join(blocks, "\n\n"), buttons)
	res.text(pack.OffersPrompt)
}

func optionButtons(prefix string, options []string) []Button {
	buttons := make([]Button, 0, len(options))
	for i, opt := range options {
		buttons = append(buttons, Button{ID: fmt.Sprintf("%s%d", prefix, i), Label: opt})
	}
	return buttons
}

func consentButtons(pack Pack, res *Result) {
	res.choice(pack.AskConsent,
		Button{ID: ReplyConsentYes, Label: "Yes"},
		Button{ID: ReplyConsentNo, Label: "No"},
	)
}

func kycPrompt(pack Pack, res *Result) {
	res.choice(pack.AskKYC, Button{ID: ReplyKYCComplete, Label: "Complete KYC"})
}

func nachPrompt(pack Pack, res *Result) {
	res.choice(pack.NACHPrompt, Button{ID: ReplyNACHComplete, Label: "Complete NACH"})
}

func agreementButtons(pack Pack, res *Result) {
	res.choice(pack.AgreementSent,
		Button{ID: ReplyAgreeYes, Label: pack.ConfirmAgree},
		Button{ID: ReplyAgreeNo, Label: pack.ConfirmDisagree},
	)
}

func mainMenu(pack Pack, res *Result) {
	res.choice(pack.MainOfferIntro,
		Button{ID: ReplyGetLoan, Label: pack.GetLoan},
		Button{ID: ReplySupport, Label: pack.Support},
	)
}

func postLoanMenu(pack Pack, res *Result) {
	res.choice(pack.PostLoanMenuIntro,
		Button{ID: ReplyPostView, Label: pack.PostLoanViewDetails},
		Button{ID: ReplyPostDownload, Label: pack.PostLoanDownloadPDF},
		Button{ID: ReplyPostRepay, Label: pack.PostLoanRepay},
	)
	res.choice("Need help?", Button{ID: ReplyPostSupport, Label: pack.Support})
}

// promptLanguage offers the language choice. Labels stay fixed so the
// prompt is readable before any language is chosen.
func promptLanguage(res *Result) {
	pack := GetPack(DefaultLanguage)
	res.choice(pack.LanguagePrompt,
		Button{ID: ReplyLangEnglish, Label: pack.LanguageOptionEN},
		Button{ID: ReplyLangHindi, Label: pack.LanguageOptionHI},
	)
}
