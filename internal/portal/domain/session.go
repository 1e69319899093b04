package domain

import "time"

// MemberIdentity is the identity payload persisted alongside a member
// session. It is also the record the OTP verification step cross-checks
// entered credentials against.
type MemberIdentity struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Matches reports whether the entered phone/email pair agrees with the
// stored identity. Empty stored fields are not compared.
func (m MemberIdentity) Matches(phone, email string) bool {
	if m.Phone != "" && m.Phone != phone {
		return false
	}
	if m.Email != "" && m.Email != email {
		return false
	}
	return true
}

// AdminSession is the structured form of the admin's persisted session
// record. On the wire it is flattened into five cooperating keys (role,
// twoFactor, auth, adminEmail, tokenExpiry); the record exists so the rest of
// the code never reasons about individual flags.
type AdminSession struct {
	Email              string
	SecondFactorPassed bool
	Authenticated      bool
	ExpiresAt          time.Time
}

// Complete reports whether every flag required for a valid admin session is
// set. A record missing any one flag is equivalent to "not authenticated".
func (s AdminSession) Complete() bool {
	return s.Email != "" && s.SecondFactorPassed && s.Authenticated
}

// ExpiredAt reports whether the session has expired as of now.
func (s AdminSession) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
