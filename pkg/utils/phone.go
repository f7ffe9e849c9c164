package utils

import (
	"regexp"
	"strings"
)

var (
	nonDigits    = regexp.MustCompile(`\D`)
	kenyanMsisdn = regexp.MustCompile(`^254[0-9]{9}$`)
)

// NormalizePhone rewrites local (07XX...), international (+2547XX...) and
// bare subscriber numbers into the 254XXXXXXXXX form used by M-Pesa.
// The result is not validated; use IsValidMsisdn for that.
func NormalizePhone(raw string) string {
	phone := nonDigits.ReplaceAllString(strings.TrimSpace(raw), "")

	switch {
	case phone == "":
		return ""
	case strings.HasPrefix(phone, "0"):
		return "254" + phone[1:]
	case strings.HasPrefix(phone, "254"):
		return phone
	default:
		return "254" + phone
	}
}

// IsValidMsisdn reports whether phone is exactly 254 followed by nine digits.
func IsValidMsisdn(phone string) bool {
	return kenyanMsisdn.MatchString(phone)
}
