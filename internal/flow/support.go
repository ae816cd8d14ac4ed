package flow

import (
	"context"
	"strings"
)

// Static support copy shared across languages.
const (
	appDownloadText = "Download the PayU Finance app: https://payufin.com/app\nManage your loan, EMIs and statements in one place."
	supportEmailText = "Write to us at care@payufin.com and we will get back within 24 hours."
)

// kbEntry is one canned question/answer pair consulted before offering an
// agent.
type kbEntry struct {
	question string
	answer   string
}

var supportKB = []kbEntry{
	{
		question: "how can i pay my emi",
		answer:   "You can pay your EMI from the PayU Finance app under Loans > Pay EMI, or enable auto-debit via NACH so payments happen automatically.",
	},
	{
		question: "loan status",
		answer:   "Your loan status is visible in the PayU Finance app under Loans. Disbursed amounts reflect in your bank account within 24 hours.",
	},
	{
		question: "statement",
		answer:   "Loan statements can be downloaded from the PayU Finance app under Loans > Statements.",
	},
	{
		question: "prepay",
		answer:   "You can prepay your loan anytime from the app. Foreclosure charges may apply as per your agreement.",
	},
	{
		question: "interest rate",
		answer:   "Your interest rate is fixed for the loan tenure and is shown on your loan agreement and in the app.",
	},
}

// lookupKB scans the canned answers for a question whose key phrase appears
// in the text.
func lookupKB(text string) (string, bool) {
	normalized := Normalize(text)
	for _, entry := range supportKB {
		if strings.Contains(normalized, entry.question) {
			return entry.answer, true
		}
	}
	return "", false
}

// handleSupportText answers free text within the support journey: fixed
// shortcuts first, then the generative responder with the user's loan record
// as context, then the knowledge base, and finally an apology with an
// escalation offer.
func (e *Engine) handleSupportText(ctx context.Context, ev Event, st *State, pack Pack, res *Result) {
	normalized := Normalize(ev.Text)

	switch {
	case ev.ReplyID == ReplyDownloadApp ||
		normalized == "download app" ||
		normalized == Normalize(pack.DownloadApp):
		res.text(appDownloadText)
		return
	case ev.ReplyID == ReplySendEmail ||
		normalized == "send email" ||
		normalized == Normalize(pack.SendEmail):
		res.text(supportEmailText)
		return
	}

	if e.responder != nil {
		contextText := e.loanContext(ctx, st.Phone)
		answer, err := e.responder.Answer(ctx, ev.Text, st.Meta.Session.Language, contextText)
		if err != nil {
			e.logger.WarnContext(ctx, "Support responder unavailable, falling back to knowledge base",
				"error", err, "phone", st.Phone)
		} else if answer != "" {
			res.text(answer)
			res.choice(pack.SupportClosing, Button{ID: ReplyConnectAgent, Label: pack.ConnectAgent})
			res.audit(DirectionOutbound, "support_answer", map[string]any{
				"source":   "responder",
				"question": ev.Text,
			})
			return
		}
	}

	if answer, ok := lookupKB(ev.Text); ok {
		res.text(answer)
		res.choice(pack.SupportClosing, Button{ID: ReplyConnectAgent, Label: pack.ConnectAgent})
		res.audit(DirectionOutbound, "support_answer", map[string]any{
			"source":   "kb",
			"question": ev.Text,
		})
		return
	}

	res.text("I couldn't find a precise answer to that.")
	res.choice(pack.SupportClosing,
		Button{ID: ReplyConnectAgent, Label: pack.ConnectAgent},
		Button{ID: ReplySendEmail, Label: pack.SendEmail},
	)
	res.audit(DirectionSystem, "support_escalation", map[string]any{
		"reason":   "no_match",
		"question": ev.Text,
	})
}

// loanContext renders the user's loan record for the responder prompt, or an
// empty string when none exists.
func (e *Engine) loanContext(ctx context.Context, phone string) string {
	if e.loans == nil {
		return ""
	}
	summary, found, err := e.loans.Summary(ctx, phone)
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to load loan context for support answer",
			"error", err, "phone", phone)
		return ""
	}
	if !found {
		return ""
	}
	return summary
}

// presentSupportMenu switches the session into the support journey and
// offers the fixed support options.
func presentSupportMenu(st *State, pack Pack, res *Result) {
	st.Meta.Session.Journey = JourneySupport
	st.Meta.Session.Step = StepNone
	body := pack.SupportPromptNew
	if st.IsExisting {
		body = pack.SupportPromptKnown
	}
	res.choice(body,
		Button{ID: ReplyDownloadApp, Label: pack.DownloadApp},
		Button{ID: ReplySendEmail, Label: pack.SendEmail},
		Button{ID: ReplyConnectAgent, Label: pack.ConnectAgent},
	)
}
