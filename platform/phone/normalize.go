// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"
	"unicode"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "ZA"

// minContactLength is the shortest text accepted as a contact number.
const minContactLength = 10

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns the trimmed input.
// Local South African numbers such as "082 123 4567" become "+27821234567".
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input), "whatsapp:"))
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// IsValid reports whether input parses to a valid number (ZA assumed for local numbers).
func IsValid(input string) bool {
	number, err := phonenumbers.Parse(strings.TrimSpace(input), defaultRegion)
	if err != nil {
		return false
	}
	return phonenumbers.IsValidNumber(number)
}

// LooksLikeContact applies the conversational contact check: the text must
// contain at least one digit and be at least ten characters long.
func LooksLikeContact(input string) bool {
	trimmed := strings.TrimSpace(input)
	if len(trimmed) < minContactLength {
		return false
	}
	return strings.IndexFunc(trimmed, unicode.IsDigit) >= 0
}

// Digits returns the E.164 number without the leading plus, the form WhatsApp
// gateways address recipients by.
func Digits(input string) string {
	return strings.TrimPrefix(NormalizeE164(input), "+")
}
