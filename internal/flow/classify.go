package flow

import "strings"

// Event is one inbound message after channel-specific decoding: the sender,
// the free text or tapped button, and media flags. Exactly one event is
// processed per user at a time.
type Event struct {
	Channel     string
	From        string
	MessageID   string
	ProfileName string
	Text        string
	ReplyID     string
	HasImage    bool
	HasDocument bool
}

// Fixed button identifiers understood by the router.
const (
	ReplyLangEnglish  = "lang_en"
	ReplyLangHindi    = "lang_hi"
	ReplyGetLoan      = "intent_get_loan"
	ReplySupport      = "intent_support"
	ReplyDownloadApp  = "download_app"
	ReplySendEmail    = "send_email"
	ReplyConnectAgent = "connect_agent"
	ReplyKYCComplete  = "kyc_complete"
	ReplyNACHComplete = "nach_complete"
	ReplyAgreeYes     = "agree_yes"
	ReplyAgreeNo      = "agree_no"
	ReplyConsentYes   = "consent_yes"
	ReplyConsentNo    = "consent_no"
	ReplyPostView     = "post_view"
	ReplyPostDownload = "post_download"
	ReplyPostRepay    = "post_repay"
	ReplyPostSupport  = "post_support"

	replyOfferSelectPrefix = "offer_select_"
	replyOfferViewPrefix   = "offer_view_"
	replyEmploymentPrefix  = "emp_"
	replyPurposePrefix     = "purpose_"
)

// languageResetCommand resets language choice and journey when typed.
const languageResetCommand = "language"

var applyKeywords = []string{"apply", "loan", "new loan", "finance", "start", "continue"}

var supportKeywords = []string{"emi", "statement", "status", "issue", "problem", "agent"}

// IsLanguageReset reports whether normalized text is the language reset
// command.
func IsLanguageReset(normalized string) bool {
	return normalized == languageResetCommand
}

// MatchLanguage maps a language button id or a bare menu ordinal to a
// language choice.
func MatchLanguage(replyID, normalized string) (Language, bool) {
	switch {
	case replyID == ReplyLangEnglish || normalized == "1":
		return LangEnglish, true
	case replyID == ReplyLangHindi || normalized == "2":
		return LangHindi, true
	}
	return "", false
}

// IsSupportTrigger reports whether the event should switch the conversation
// into the support journey. Button taps and the exact keywords trigger from
// any journey; broader support phrases trigger only when no journey is
// active so mid-onboarding answers are not hijacked.
func IsSupportTrigger(replyID, normalized string, journey Journey) bool {
	switch replyID {
	case ReplySupport, ReplyConnectAgent:
		return true
	}
	if normalized == "support" || normalized == "help" {
		return true
	}
	if journey != JourneyNone {
		return false
	}
	for _, kw := range supportKeywords {
		if strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}

// IsApplyTrigger reports whether the event should start the onboarding
// journey. The explicit button triggers from any journey; free-text intent
// keywords only when no journey is active.
func IsApplyTrigger(replyID, normalized string, journey Journey) bool {
	if replyID == ReplyGetLoan {
		return true
	}
	if journey != JourneyNone {
		return false
	}
	for _, kw := range applyKeywords {
		if strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}

// OfferSelectID extracts the offer id from an offer-accept button.
func OfferSelectID(replyID string) (string, bool) {
	return strings.CutPrefix(replyID, replyOfferSelectPrefix)
}

// OfferViewID extracts the offer id from an offer-details button.
func OfferViewID(replyID string) (string, bool) {
	return strings.CutPrefix(replyID, replyOfferViewPrefix)
}

// OptionIndex extracts the zero-based option index from an employment or
// purpose button id such as "emp_1". Malformed or out-of-range indexes clamp
// to zero.
func OptionIndex(replyID, prefix string, optionCount int) (int, bool) {
	suffix, ok := strings.CutPrefix(replyID, prefix)
	if !ok {
		return 0, false
	}
	idx := 0
	for _, r := range suffix {
		if r < '0' || r > '9' {
			idx = 0
			break
		}
		idx = idx*10 + int(r-'0')
	}
	if idx < 0 || idx >= optionCount {
		idx = 0
	}
	return idx, true
}
