package policy

import (
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`)
)

// RedactPII masks visitor contact details before they reach log output.
// Lead records themselves keep the raw values; only log lines are masked.
func RedactPII(input string) (redacted string, changed bool) {
	out := emailPattern.ReplaceAllString(input, "[REDACTED_EMAIL]")
	changed = out != input

	next := phonePattern.ReplaceAllString(out, "[REDACTED_PHONE]")
	changed = changed || next != out

	return next, changed
}

// MaskEmail keeps the first character of the local part and the full domain
// so operators can correlate log lines with leads without exposing the
// address.
func MaskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return "[invalid-email]"
	}
	return email[:1] + "***" + email[at:]
}
