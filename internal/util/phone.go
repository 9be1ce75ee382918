package util

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var nonPhoneRe = regexp.MustCompile(`[^\d\+]+`)

// NormalizePhone tries to normalize user input into E.164-like format.
// Billing exports carry Ukrainian numbers in several local shapes.
func NormalizePhone(raw string) string {
	s := strings.TrimSpace(raw)
	s = nonPhoneRe.ReplaceAllString(s, "")

	if strings.HasPrefix(s, "00") {
		s = "+" + s[2:]
	} else if strings.HasPrefix(s, "0") && len(s) == 10 {
		s = "+380" + s[1:]
	} else if strings.HasPrefix(s, "380") {
		s = "+" + s
	}

	return s
}

// ValidPhone reports whether the normalized number parses as a real,
// dialable number. This is the SMS channel's address grammar.
func ValidPhone(normalized string) bool {
	num, err := phonenumbers.Parse(normalized, "")
	if err != nil {
		return false
	}

	return phonenumbers.IsValidNumber(num)
}
