package domain

// Stage is one step in the ordered credential-collection sequence.
type Stage string

const (
	// Member flow stages.
	StagePrimaryCredential   Stage = "primary_credential"
	StageSecondaryCredential Stage = "secondary_credential"
	StageOtpEntry            Stage = "otp_entry"

	// Admin flow collapses both credential entries into one stage.
	StageCredentials Stage = "credentials"
)

const (
	// PhoneLength is the exact digit count of a valid primary credential.
	PhoneLength = 10

	// OtpLength is the number of passcode digit slots.
	OtpLength = 6
)

// OtpDigits is the fixed-size sequence of independently addressable
// single-character passcode slots.
type OtpDigits [OtpLength]string

// Code joins the slots into the entered passcode string.
func (d OtpDigits) Code() string {
	var code string
	for _, s := range d {
		code += s
	}
	return code
}

// Filled reports whether every slot holds a character.
func (d OtpDigits) Filled() bool {
	for _, s := range d {
		if s == "" {
			return false
		}
	}
	return true
}

// Clear empties every slot.
func (d *OtpDigits) Clear() {
	*d = OtpDigits{}
}

// LastFilled returns the index of the last non-empty slot, or -1 when all
// slots are empty.
func (d OtpDigits) LastFilled() int {
	last := -1
	for i, s := range d {
		if s != "" {
			last = i
		}
	}
	return last
}

// FocusHint tells the UI layer which input should receive focus after a state
// change. The machine only signals the transfer; moving focus is the UI's job.
type FocusHint struct {
	Field string `json:"field"`           // "phone", "email", "otp"
	Index int    `json:"index,omitempty"` // slot index when Field is "otp"
}
