package tripauth

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultCountryCallingCode is the prefix applied when normalizing local
// phone numbers.
const DefaultCountryCallingCode = "82"

// FormatPhoneNumber normalizes a free-form local phone number to an
// international-prefixed digit string: all non-digits are stripped, a leading
// national trunk "0" is replaced with the country code prefix, and an already
// internationalized number ("+...") passes through unchanged.
//
// An input with no leading zero and no "+" also gets the prefix prepended,
// which produces a visibly malformed number for inputs that already include a
// country code ("15551234567" becomes "+8215551234567"). Downstream callers
// depend on this exact output, so the behavior is kept and pinned by tests
// rather than corrected here.
func FormatPhoneNumber(input, countryCode string) string {
	if countryCode == "" {
		countryCode = DefaultCountryCallingCode
	}

	digits := stripNonDigits(input)
	if strings.HasPrefix(digits, "0") {
		return "+" + countryCode + digits[1:]
	}

	if strings.HasPrefix(input, "+") {
		return input
	}

	return "+" + countryCode + digits
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PlausiblePhoneNumber reports whether a normalized number parses as a
// possible phone number. It is advisory only: the verifier logs implausible
// numbers but never rewrites the legacy normalization output.
func PlausiblePhoneNumber(formatted string) bool {
	num, err := phonenumbers.Parse(formatted, "")
	if err != nil {
		return false
	}
	return phonenumbers.IsPossibleNumber(num)
}
