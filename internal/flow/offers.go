package flow

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ProgramCeiling caps the eligible loan amount regardless of income.
const ProgramCeiling = 150000

// MaxRequestedAmount caps the requested amount recorded on an application.
const MaxRequestedAmount = 500000

// Offer is one candidate loan offer presented for selection.
type Offer struct {
	ID            string  `json:"id"`
	Amount        float64 `json:"amount"`
	TenureMonths  int     `json:"tenure"`
	APR           float64 `json:"apr"`
	ProcessingFee float64 `json:"processing_fee"`
	ROI           float64 `json:"roi"`
	MonthlyEMI    float64 `json:"monthly_emi"`
}

// offerTiers are the fixed markup tiers applied over the base amount.
var offerTiers = []struct {
	multiplier float64
	tenure     int
	apr        float64
	fee        float64
	roi        float64
}{
	{1.0, 6, 18.0, 3.0, 16.5},
	{1.15, 9, 21.0, 2.5, 18.0},
	{1.35, 12, 24.0, 2.0, 20.0},
}

// EligibleCeiling is the maximum amount offered for a monthly income:
// ten times the income, capped at the program ceiling.
func EligibleCeiling(monthlyIncome float64) float64 {
	return math.Min(math.Trunc(monthlyIncome*10), ProgramCeiling)
}

// MonthlyInstallment computes the rounded-up EMI for a principal at an
// annual percentage rate over n months. A zero rate yields principal / n
// exactly.
func MonthlyInstallment(principal, aprPercent float64, months int) float64 {
	if months <= 0 {
		return 0
	}
	r := aprPercent / 100 / 12
	if r == 0 {
		return principal / float64(months)
	}
	factor := math.Pow(1+r, float64(months))
	return math.Ceil(principal * r * factor / (factor - 1))
}

// BuildOffers derives up to three candidate offers from an approved
// decision: the base amount is 60% of the eligible ceiling, and each tier
// marks the base up with a longer tenor and a higher rate.
func BuildOffers(decision Decision) []Offer {
	base := math.Trunc(decision.OfferAmount * 0.6)
	offers := make([]Offer, 0, len(offerTiers))
	for i, tier := range offerTiers {
		amount := math.Trunc(base * tier.multiplier)
		offers = append(offers, Offer{
			ID:            fmt.Sprintf("OFFER%d", i+1),
			Amount:        amount,
			TenureMonths:  tier.tenure,
			APR:           tier.apr,
			ProcessingFee: tier.fee,
			ROI:           tier.roi,
			MonthlyEMI:    MonthlyInstallment(amount, tier.apr, tier.tenure),
		})
	}
	return offers
}

// FindOffer returns the offer with the given id from a stored offer set.
func FindOffer(offers []Offer, id string) (Offer, bool) {
	for _, o := range offers {
		if o.ID == id {
			return o, true
		}
	}
	return Offer{}, false
}

// NewReferenceID mints a short human-readable application reference.
func NewReferenceID() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "REF-" + id[:6]
}

// FormatINR renders an amount with Western-style thousands grouping and no
// decimals, e.g. 150000 becomes "150,000".
func FormatINR(amount float64) string {
	n := strconv.FormatFloat(math.Abs(math.Round(amount)), 'f', 0, 64)
	var b strings.Builder
	if amount < 0 {
		b.WriteByte('-')
	}
	lead := len(n) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(n[:lead])
	for i := lead; i < len(n); i += 3 {
		b.WriteByte(',')
		b.WriteString(n[i : i+3])
	}
	return b.String()
}

// offerSummary renders the multi-line block for one offer in the offers
// message.
func offerSummary(index int, o Offer) string {
	return fmt.Sprintf(
		"⭐ *Offer %d*\n• Amount: ₹%s\n• Tenure: %d months\n• APR: %.1f%%\n• EMI: ₹%s/month",
		index+1, FormatINR(o.Amount), o.TenureMonths, o.APR, FormatINR(o.MonthlyEMI),
	)
}

// offerDetails renders the expanded view for one offer.
func offerDetails(o Offer) string {
	return fmt.Sprintf(
		"*%s*\nAmount: ₹%s\nTenure: %d months\nAPR: %.1f%%\nProcessing fee: %.2f%%\nROI: %.1f%%\nEMI: ₹%s/month",
		o.ID, FormatINR(o.Amount), o.TenureMonths, o.APR, o.ProcessingFee, o.ROI, FormatINR(o.MonthlyEMI),
	)
}
