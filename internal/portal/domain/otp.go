package domain

import "time"

// OtpPhase is the lifecycle phase of one passcode challenge.
//
//	Idle -> Issued -> Expired        (timer-driven, the only unconditional transition)
//	        Issued -> Verified       (explicit verify call)
type OtpPhase string

const (
	OtpIdle     OtpPhase = "idle"
	OtpIssued   OtpPhase = "issued"
	OtpExpired  OtpPhase = "expired"
	OtpVerified OtpPhase = "verified"
)

// DispatchReceipt describes where a passcode was (nominally) sent. MaskedTarget
// is what the UI shows; the raw destination never leaves the engine.
type DispatchReceipt struct {
	ID           string    `json:"id"`
	MaskedTarget string    `json:"masked_target"`
	SentAt       time.Time `json:"sent_at"`
}

// VerifiedCredentials is the bundle returned by a successful OTP verification
// and handed to session issuance.
type VerifiedCredentials struct {
	Phone string
	Email string
}
