package domain

import "strings"

// MaskTarget obscures a passcode destination for display. Emails keep their
// first and last local characters and the full domain; anything else (a
// phone number) keeps only its final two digits.
func MaskTarget(target string) string {
	if target == "" {
		return ""
	}

	if at := strings.IndexByte(target, '@'); at > 0 {
		local, tail := target[:at], target[at:]
		if len(local) <= 2 {
			return strings.Repeat("*", len(local)) + tail
		}
		return local[:1] + strings.Repeat("*", len(local)-2) + local[len(local)-1:] + tail
	}

	if len(target) <= 2 {
		return strings.Repeat("*", len(target))
	}
	return strings.Repeat("*", len(target)-2) + target[len(target)-2:]
}
