package service

import (
	"strings"

	"github.com/nyaypaksh/memberportal/internal/portal/domain"
)

// otpEntry holds the six independently addressable passcode slots shared by
// both login flows. Callers hold the owning flow's mutex.
type otpEntry struct {
	digits domain.OtpDigits
}

// setDigit writes one slot and returns the focus transfer for the UI: the
// next slot after a digit, the previous slot on backspace over an already
// empty slot.
func (e *otpEntry) setDigit(index int, value string) (domain.FocusHint, error) {
	if index < 0 || index >= domain.OtpLength {
		return domain.FocusHint{}, &FieldError{Field: "otp", Message: "slot index out of range"}
	}

	if value == "" {
		if e.digits[index] == "" {
			prev := index - 1
			if prev < 0 {
				prev = 0
			}
			return domain.FocusHint{Field: "otp", Index: prev}, nil
		}
		e.digits[index] = ""
		return domain.FocusHint{Field: "otp", Index: index}, nil
	}

	if len(value) != 1 || value[0] < '0' || value[0] > '9' {
		return domain.FocusHint{}, &FieldError{Field: "otp", Message: "enter a single digit"}
	}

	e.digits[index] = value
	next := index + 1
	if next >= domain.OtpLength {
		next = domain.OtpLength - 1
	}
	return domain.FocusHint{Field: "otp", Index: next}, nil
}

// paste distributes a full 6-digit string across all slots and focuses the
// last filled slot (the first if nothing was distributed).
func (e *otpEntry) paste(code string) (domain.FocusHint, error) {
	code = strings.TrimSpace(code)
	if len(code) > domain.OtpLength {
		code = code[:domain.OtpLength]
	}
	if len(code) != domain.OtpLength {
		return domain.FocusHint{}, &FieldError{Field: "otp", Message: "paste a 6-digit code"}
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return domain.FocusHint{}, &FieldError{Field: "otp", Message: "paste a 6-digit code"}
		}
	}

	for i := range domain.OtpLength {
		e.digits[i] = string(code[i])
	}

	focus := e.digits.LastFilled()
	if focus < 0 {
		focus = 0
	}
	return domain.FocusHint{Field: "otp", Index: focus}, nil
}
