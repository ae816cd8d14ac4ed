// Package flow implements the conversational session state machine that
// drives the personal-loan onboarding journey: language selection, the fixed
// onboarding field sequence, offer presentation, the post-offer checkpoints
// (KYC, selfie, bank details, NACH, agreement), disbursement, and support
// routing. The engine consumes classified inbound events plus the persisted
// session and produces outbound message intents and persistence effects; the
// caller owns storage and delivery.
package flow

// Language selects one of the supported conversation languages.
type Language string

// Supported languages.
const (
	LangEnglish Language = "en"
	LangHindi   Language = "hi"
)

// DefaultLanguage is used until the user picks a language.
const DefaultLanguage = LangEnglish

// Pack holds every user-facing prompt template and fixed option list for one
// language. Templates use {amount}, {ref}, and {reason} placeholders filled
// by renderTemplate.
type Pack struct {
	Welcome             string
	LanguagePrompt      string
	LanguageOptionEN    string
	LanguageOptionHI    string
	MainOfferIntro      string
	GetLoan             string
	Support             string
	SupportPromptKnown  string
	SupportPromptNew    string
	SupportClosing      string
	SupportHandoff      string
	SupportEscalationAck string
	AskName             string
	AskDOB              string
	InvalidDOB          string
	AskEmployment       string
	EmploymentOptions   []string
	AskSalary           string
	InvalidNumber       string
	AskPurpose          string
	PurposeOptions      []string
	AskConsent          string
	ConsentRequired     string
	DecisionSubmit      string
	DecisionRejected    string
	DecisionApprovedIntro string
	OffersPrompt        string
	OfferButtonAccept   string
	AskKYC              string
	KYCCompleted        string
	AskSelfie           string
	SelfieReceived      string
	AskBank             string
	BankDetailsReceived string
	FinalApproval       string
	FinalReject         string
	NACHPrompt          string
	AgreementPrompt     string
	AgreementSent       string
	AgreementSigned     string
	TextOnlyWarning     string
	DownloadApp         string
	SendEmail           string
	ConnectAgent        string
	PostLoanMenuIntro   string
	PostLoanViewDetails string
	PostLoanDownloadPDF string
	PostLoanRepay       string
	ConfirmAgree        string
	ConfirmDisagree     string
	InvalidChoice       string
}

var packEnglish = Pack{
	Welcome:             "👋 Welcome to PayU Finance! I am your Personal Loan assistant.",
	LanguagePrompt:      "Please choose your preferred language.",
	LanguageOptionEN:    "English",
	LanguageOptionHI:    "हिंदी",
	MainOfferIntro:      "Get a loan up to ₹5,00,000 in under 5 minutes. Apply Now!",
	GetLoan:             "Get Loan",
	Support:             "Support",
	SupportPromptKnown:  "Tell me briefly how I can help or choose an option below.",
	SupportPromptNew:    "Tell me briefly how I can help you?",
	SupportClosing:      "If you need further help, connect to an agent.",
	SupportHandoff:      "Connecting you to a PayU specialist now.",
	SupportEscalationAck: "A PayU specialist has been notified and will reach out shortly.",
	AskName:             "Please share your full name (as per PAN)",
	AskDOB:              "Please enter your date of birth in DD-MM-YYYY format\ne.g. 31-12-1995",
	InvalidDOB:          "Invalid date. Please provide in DD-MM-YYYY format\ne.g. 31-12-1995",
	AskEmployment:       "Select your Employment type",
	EmploymentOptions:   []string{"Salaried", "Self-Employed", "Others"},
	AskSalary:           "What's your Monthly Income in INR\nOnly enter Numbers",
	InvalidNumber:       "Please enter numbers only (e.g. 45000)",
	AskPurpose:          "What will this loan help you with?",
	PurposeOptions:      []string{"Personal", "Education", "Medical", "Home", "Travel", "Others"},
	AskConsent:          "I authorize PayU Finance to process my information and pull credit bureau records.",
	ConsentRequired:     "Consent is required to proceed with credit evaluation.",
	DecisionSubmit:      "Processing your loan application...",
	DecisionRejected:    "We're sorry!\nYour profile is rejected due to {reason}. Please come back later.\n Try our LazyPay app today.",
	DecisionApprovedIntro: "🎉 You're eligible for a loan. Below are few curated offers for you",
	OffersPrompt:        "Select an offer to proceed or type Support for help",
	OfferButtonAccept:   "Accept",
	AskKYC:              "Complete KYC to proceed. Tap Complete KYC.",
	KYCCompleted:        "KYC is successfully completed. Moving to Selfie now.",
	AskSelfie:           "Please take a selfie now using WhatsApp camera and send it here.",
	SelfieReceived:      "Looking good, smarty!",
	AskBank:             "Please provide bank details in the format:\n<IFSC>\n<account_number>",
	BankDetailsReceived: "Bank details received. Submitting your application.",
	FinalApproval:       "✅ Loan approved!\nAmount: ₹{amount}.\nLoan ID: {ref}",
	FinalReject:         "We're unable to disburse the loan because: {reason}. Please contact Support.",
	NACHPrompt:          "Complete NACH (mandate) to enable auto-debit. Tap Complete NACH.",
	AgreementPrompt:     "Please review and agree to the Customer Agreement to proceed.",
	AgreementSent:       "Read the Agreement carefully and tap Agree to sign and continue.",
	AgreementSigned:     "🎉 Congratulations! Everything's done and your amount will be credited to your account soon.",
	TextOnlyWarning:     "I currently support text and buttons. Please respond using text or buttons.",
	DownloadApp:         "Download App",
	SendEmail:           "Mail Us",
	ConnectAgent:        "Connect to Agent",
	PostLoanMenuIntro:   "Choose an option",
	PostLoanViewDetails: "View Loan Details",
	PostLoanDownloadPDF: "Download Loan PDF",
	PostLoanRepay:       "Repay Loan",
	ConfirmAgree:        "Agree",
	ConfirmDisagree:     "Not Agree",
	InvalidChoice:       "Please choose from the available options.",
}

var packHindi = Pack{
	Welcome:             "👋 पेयू फाइनेंस में आपका स्वागत है! मैं आपका पर्सनल लोन असिस्टेंट हूँ।",
	LanguagePrompt:      "कृपया अपनी पसंदीदा भाषा चुनें:",
	LanguageOptionEN:    "English",
	LanguageOptionHI:    "हिंदी",
	MainOfferIntro:      "आप 5 मिनट में ₹5,00,000 तक का लोन प्राप्त कर सकते हैं। आप क्या करना चाहेंगे?",
	GetLoan:             "लोन लें",
	Support:             "सपोर्ट",
	SupportPromptKnown:  "कृपया बताएं कि आपको किस प्रकार मदद चाहिए या नीचे से विकल्प चुनें।",
	SupportPromptNew:    "आवेदन से पहले, आप मुझसे सवाल कर सकते हैं या मदद ले सकते हैं। कैसे मदद करूँ?",
	SupportClosing:      "यदि आपको और सहायता चाहिए तो एजेंट से कनेक्ट करें।",
	SupportHandoff:      "मैं आपको PayU विशेषज्ञ से जोड़ रहा हूँ।",
	SupportEscalationAck: "PayU विशेषज्ञ को सूचित कर दिया गया है, वे जल्द ही संपर्क करेंगे।",
	AskName:             "कृपया अपना पूरा नाम लिखें (आधिकारिक आईडी के अनुसार)।",
	AskDOB:              "कृपया अपनी जन्मतिथि DD-MM-YYYY फॉर्मेट में दें (उदा. 31-12-1990)।",
	InvalidDOB:          "अमान्य तिथि फॉर्मेट। कृपया DD-MM-YYYY (उदा. 31-12-1990) में दें।",
	AskEmployment:       "अपना रोजगार प्रकार चुनें:",
	EmploymentOptions:   []string{"नौकरीपेशा (Salaried)", "स्वरोज़गार (Self-Employed)", "अन्य (Other)"},
	AskSalary:           "कृपया अपनी औसत मासिक आय ₹ में लिखें (सिर्फ अंक).",
	InvalidNumber:       "कृपया केवल संख्याएँ भेजें (उदा. 45000)।",
	AskPurpose:          "इस लोन का मुख्य उद्देश्य क्या है? विकल्प चुनें या लिखें।",
	PurposeOptions:      []string{"Personal", "Education", "Medical", "Home", "Travel", "Other"},
	AskConsent:          "क्या आप PayU को अपने विवरण प्रोसेस करने और क्रेडिट ब्यूरो जांच करने की सहमति देते हैं? (Yes / No)",
	ConsentRequired:     "आगे बढ़ने के लिए सहमति आवश्यक है।",
	DecisionSubmit:      "आपकी जानकारी जाँच के लिए भेज रहा हूँ...",
	DecisionRejected:    "क्षमा करें, हम अभी लोन स्वीकृत नहीं कर पाए क्योंकि: {reason}. कृपया Support का उपयोग करें।",
	DecisionApprovedIntro: "🎉 आप प्रावधानिक रूप से पात्र हैं। उपलब्ध ऑफ़र नीचे हैं:",
	OffersPrompt:        "किसी ऑफ़र का चयन करें या Support चुनें।",
	OfferButtonAccept:   "स्वीकार करें",
	AskKYC:              "कृपया KYC पूरा करें। Complete KYC दबाएँ।",
	KYCCompleted:        "KYC पूरा हो गया। कृपया WhatsApp कैमरा से अपनी सेल्फ़ी भेजें।",
	AskSelfie:           "कृपया अब WhatsApp कैमरा का उपयोग कर सेल्फ़ी लें और भेजें।",
	SelfieReceived:      "सेल्फ़ी प्राप्त हो गई।",
	AskBank:             "कृपया बैंक विवरण दें\n<IFSC>\n<account_number>",
	BankDetailsReceived: "बैंक विवरण प्राप्त। अंतिम जाँच कर रहा हूँ...",
	FinalApproval:       "✅ लोन स्वीकृत और जारी किया गया! राशि: ₹{amount}. संदर्भ: {ref}",
	FinalReject:         "हम लोन जारी नहीं कर पा रहे हैं क्योंकि: {reason}. कृपया Support से संपर्क करें।",
	NACHPrompt:          "NACH (मंडेट) पूरा करें। Complete NACH दबाएँ।",
	AgreementPrompt:     "कृपया ग्राहक समझौते पढ़ें और सहमति दें।",
	AgreementSent:       "समझौता भेजा गया। Agree दबाएँ।",
	AgreementSigned:     "धन्यवाद — समझौता स्वीकार कर लिया गया।",
	TextOnlyWarning:     "मैं अभी टेक्स्ट और बटन रिस्पॉन्स का समर्थन करता हूँ। कृपया टेक्स्ट या बटन का उपयोग करें।",
	DownloadApp:         "एप डाउनलोड करें",
	SendEmail:           "ईमेल भेजें",
	ConnectAgent:        "एजेंट से कनेक्ट करें",
	PostLoanMenuIntro:   "एक विकल्प चुनें:",
	PostLoanViewDetails: "लोन विवरण देखें",
	PostLoanDownloadPDF: "लोन पीडीएफ डाउनलोड करें",
	PostLoanRepay:       "लोन चुका दें",
	ConfirmAgree:        "Agree",
	ConfirmDisagree:     "Not Agree",
	InvalidChoice:       "कृपया उपलब्ध विकल्पों में से चुनें।",
}

// GetPack returns the prompt pack for lang, falling back to English for any
// unknown or empty language code.
func GetPack(lang Language) Pack {
	if lang == LangHindi {
		return packHindi
	}
	return packEnglish
}

// ErrorText is the generic apology sent when an inbound event cannot be
// processed at all.
func ErrorText(lang Language) string {
	if lang == LangHindi {
		return "कुछ गड़बड़ हो गई। कृपया थोड़ी देर बाद फिर से प्रयास करें।"
	}
	return "Something went wrong on our side. Please try again in a moment."
}
