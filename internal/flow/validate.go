package flow

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// dobLayout is the accepted date-of-birth format, DD-MM-YYYY.
const dobLayout = "02-01-2006"

// Permitted applicant age band at intake.
const (
	MinApplicantAge = 18
	MaxApplicantAge = 75
)

var boolSynonyms = map[string]bool{
	"yes": true, "y": true, "haan": true, "haanji": true,
	"consent": true, "agree": true, "ok": true, "sure": true, "accept": true,
	"no": false, "n": false, "nah": false, "na": false,
	"stop": false, "reject": false,
}

// ParseBool maps multilingual affirmation and refusal synonyms to a boolean.
// The second return reports whether the text was recognized at all.
func ParseBool(text string) (value, ok bool) {
	v, ok := boolSynonyms[Normalize(text)]
	return v, ok
}

// Normalize lowercases and trims free text for matching.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// AgeAt computes completed years between dob and today: the year difference,
// minus one when today's month and day precede the birthday.
func AgeAt(dob, today time.Time) int {
	years := today.Year() - dob.Year()
	if today.Month() < dob.Month() ||
		(today.Month() == dob.Month() && today.Day() < dob.Day()) {
		years--
	}
	return years
}

// ValidateDateOfBirth parses text as DD-MM-YYYY and checks the resulting age
// against the permitted band as of today. It returns the canonical date
// string and the computed age, or ErrInvalidDate / ErrAgeOutOfRange.
func ValidateDateOfBirth(text string, today time.Time) (string, int, error) {
	dob, err := time.Parse(dobLayout, strings.TrimSpace(text))
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidDate, strings.TrimSpace(text))
	}
	age := AgeAt(dob, today)
	if age < MinApplicantAge || age > MaxApplicantAge {
		return "", 0, fmt.Errorf("%w: %d", ErrAgeOutOfRange, age)
	}
	return dob.Format(dobLayout), age, nil
}

// ValidateIncome parses text as a positive monthly income. Digit grouping
// ("45,000") and a currency prefix are tolerated.
func ValidateIncome(text string) (float64, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "₹")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, strings.TrimSpace(text))
	}
	return v, nil
}

// ValidateName normalizes a free-text full name to title case. An empty name
// is rejected.
func ValidateName(text string) (string, error) {
	name := TitleCase(text)
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrInvalidChoice)
	}
	return name, nil
}

// ParseBankDetails splits free text into IFSC and account number, one per
// line. Fewer than two non-empty lines is an ErrInvalidChoice.
func ParseBankDetails(text string) (BankDetails, error) {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			lines = append(lines, t)
		}
	}
	if len(lines) < 2 {
		return BankDetails{}, fmt.Errorf("%w: expected IFSC and account number on separate lines", ErrInvalidChoice)
	}
	return BankDetails{
		IFSC:          strings.ToUpper(lines[0]),
		AccountNumber: lines[1],
	}, nil
}

// TitleCase uppercases the first letter of each whitespace-separated word and
// lowercases the rest.
func TitleCase(text string) string {
	words := strings.Fields(strings.TrimSpace(text))
	for i, w := range words {
		words[i] = upperFirst(strings.ToLower(w))
	}
	return strings.Join(words, " ")
}

// Capitalize uppercases the first letter and lowercases the remainder of the
// whole string.
func Capitalize(text string) string {
	return upperFirst(strings.ToLower(strings.TrimSpace(text)))
}

func upperFirst(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
