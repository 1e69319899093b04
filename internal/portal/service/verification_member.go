package service

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/nyaypaksh/memberportal/internal/portal/domain"
	"github.com/nyaypaksh/memberportal/internal/portal/store"
	"github.com/nyaypaksh/memberportal/pkg/idx"
)

// Ephemeral keys tracking an in-progress verification. Cleared on success or
// explicit abandonment.
const (
	ephKeyLoginStage = "login_stage"
	ephKeyOtpTarget  = "otpTarget"
)

// Navigation targets handed back to the UI layer.
const (
	MemberLoginPath = "/login"
	MemberHomePath  = "/profile"
	AdminLoginPath  = "/admin/login"
	AdminHomePath   = "/admin/dashboard"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var nonDigits = regexp.MustCompile(`\D`)

// SubmitResult is what a successful stage submit hands the UI layer.
type SubmitResult struct {
	Stage        domain.Stage            `json:"stage"`
	Notification string                  `json:"notification,omitempty"`
	Receipt      *domain.DispatchReceipt `json:"receipt,omitempty"`
	RedirectTo   string                  `json:"redirect_to,omitempty"`
	Focus        *domain.FocusHint       `json:"focus,omitempty"`
}

// MemberOracle is the slice of the backend oracle the member flow needs.
// Both calls may fail; the flow proceeds on local state alone.
type MemberOracle interface {
	ConfirmMember(ctx context.Context, identity domain.MemberIdentity) error
	IssueMemberToken(ctx context.Context, identity domain.MemberIdentity) (string, error)
}

// MemberFlowState is a snapshot of the flow for the UI layer.
type MemberFlowState struct {
	ID         string           `json:"id"`
	Stage      domain.Stage     `json:"stage"`
	Phone      string           `json:"phone"`
	Email      string           `json:"email"`
	EmailError string           `json:"email_error,omitempty"`
	Consent    bool             `json:"consent"`
	Digits     domain.OtpDigits `json:"otp_digits"`
	CanSubmit  bool             `json:"can_submit"`
	Otp        OtpStatus        `json:"otp"`
}

// MemberLoginFlow drives a member through the staged credential collection:
// phone entry, email entry, then OTP entry. One instance models one
// principal's login attempt; it is created fresh when the login screen is
// entered and destroyed on success or abandonment.
type MemberLoginFlow struct {
	Logger *slog.Logger

	id       idx.ID
	otp      *OtpController
	sessions *SessionService
	oracle   MemberOracle
	eph      store.Ephemeral

	mu       sync.Mutex
	stage    domain.Stage
	phone    string
	email    string
	emailErr string
	consent  bool
	entry    otpEntry
	closed   bool
}

func NewMemberLoginFlow(otp *OtpController, sessions *SessionService, oracle MemberOracle, eph store.Ephemeral, logger *slog.Logger) *MemberLoginFlow {
	eph.Clear()
	eph.Set(ephKeyLoginStage, string(domain.StagePrimaryCredential))

	return &MemberLoginFlow{
		Logger:   logger,
		id:       idx.New(),
		otp:      otp,
		sessions: sessions,
		oracle:   oracle,
		eph:      eph,
		stage:    domain.StagePrimaryCredential,
	}
}

func (f *MemberLoginFlow) ID() idx.ID { return f.id }

// UpdatePhone normalizes the primary credential: non-digits are stripped and
// the result truncated to ten digits. Reaching exactly ten digits advances
// to email entry and asks the UI to move focus there. Dropping below ten
// regresses to phone entry regardless of the prior stage; regressing out of
// OTP entry fully resets the challenge so a stale passcode can never be used
// against a changed number.
func (f *MemberLoginFlow) UpdatePhone(raw string) domain.FocusHint {
	f.mu.Lock()
	defer f.mu.Unlock()

	digits := nonDigits.ReplaceAllString(raw, "")
	if len(digits) > domain.PhoneLength {
		digits = digits[:domain.PhoneLength]
	}
	f.phone = digits

	if len(digits) == domain.PhoneLength {
		if f.stage == domain.StagePrimaryCredential {
			f.setStageLocked(domain.StageSecondaryCredential)
		}
		return domain.FocusHint{Field: "email"}
	}

	if f.stage == domain.StageOtpEntry {
		f.resetChallengeLocked()
	}
	f.setStageLocked(domain.StagePrimaryCredential)
	return domain.FocusHint{Field: "phone"}
}

// UpdateEmail trims and validates the secondary credential. Validation
// failure is a field-level message, never fatal, and the stage does not
// advance here: moving to OTP entry happens only on explicit submit.
func (f *MemberLoginFlow) UpdateEmail(raw string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.email = strings.TrimSpace(raw)
	if f.email != "" && !emailPattern.MatchString(f.email) {
		f.emailErr = "enter a valid email address"
		return
	}
	f.emailErr = ""
}

func (f *MemberLoginFlow) SetConsent(given bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.consent = given
}

// CanSubmit computes the stage-dependent enabled predicate. It is evaluated
// fresh on every call, never cached.
func (f *MemberLoginFlow) CanSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canSubmitLocked()
}

func (f *MemberLoginFlow) canSubmitLocked() bool {
	if !f.consent || f.closed {
		return false
	}

	switch f.stage {
	case domain.StageSecondaryCredential:
		return len(f.phone) == domain.PhoneLength && emailPattern.MatchString(f.email)
	case domain.StageOtpEntry:
		return f.entry.digits.Filled()
	default:
		return false
	}
}

// Submit advances the flow. At email entry it issues the OTP challenge; at
// OTP entry it verifies the entered code and, on success, issues the member
// session. A submit while the enabled predicate is false is a no-op.
func (f *MemberLoginFlow) Submit(ctx context.Context) (SubmitResult, error) {
	f.mu.Lock()

	if !f.canSubmitLocked() {
		f.mu.Unlock()
		return SubmitResult{}, ErrSubmitNotReady
	}

	switch f.stage {
	case domain.StageSecondaryCredential:
		target := f.email
		f.setStageLocked(domain.StageOtpEntry)
		f.eph.Set(ephKeyOtpTarget, target)
		f.mu.Unlock()

		receipt := f.otp.Issue(ctx, target)
		focus := domain.FocusHint{Field: "otp", Index: 0}
		return SubmitResult{
			Stage:        domain.StageOtpEntry,
			Notification: "OTP sent to " + receipt.MaskedTarget,
			Receipt:      &receipt,
			Focus:        &focus,
		}, nil

	case domain.StageOtpEntry:
		code := f.entry.digits.Code()
		creds := domain.VerifiedCredentials{Phone: f.phone, Email: f.email}
		f.mu.Unlock()

		if _, err := f.otp.Verify(ctx, code, creds, f.sessions); err != nil {
			return SubmitResult{}, err
		}
		return f.completeLogin(ctx, creds)

	default:
		f.mu.Unlock()
		return SubmitResult{}, ErrFlowStage
	}
}

// completeLogin issues the member session after a verified OTP. The backend
// oracle is consulted but never trusted to be up: confirmation and token
// mint failures degrade to purely local session state.
func (f *MemberLoginFlow) completeLogin(ctx context.Context, creds domain.VerifiedCredentials) (SubmitResult, error) {
	identity := domain.MemberIdentity{Phone: creds.Phone, Email: creds.Email}
	if stored, ok := f.sessions.StoredMemberIdentity(ctx); ok {
		identity.Name = stored.Name
	}

	token, err := f.oracle.IssueMemberToken(ctx, identity)
	if err != nil {
		f.Logger.Warn("member token mint failed, proceeding without token", "err", err)
		token = ""
	}
	if err := f.oracle.ConfirmMember(ctx, identity); err != nil {
		f.Logger.Warn("member confirmation failed, proceeding locally", "err", err)
	}

	if err := f.sessions.IssueMemberSession(ctx, identity, token); err != nil {
		return SubmitResult{}, err
	}

	f.Close()
	return SubmitResult{
		Stage:        domain.StageOtpEntry,
		Notification: "verification successful",
		RedirectTo:   MemberHomePath,
	}, nil
}

// SetOtpDigit writes one passcode slot. Only meaningful at OTP entry.
func (f *MemberLoginFlow) SetOtpDigit(index int, value string) (domain.FocusHint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stage != domain.StageOtpEntry {
		return domain.FocusHint{}, ErrFlowStage
	}
	return f.entry.setDigit(index, value)
}

// PasteOtp distributes a pasted code across the slots.
func (f *MemberLoginFlow) PasteOtp(code string) (domain.FocusHint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stage != domain.StageOtpEntry {
		return domain.FocusHint{}, ErrFlowStage
	}
	return f.entry.paste(code)
}

// ResendOtp re-issues the challenge once the cooldown has elapsed, clearing
// the entered digits. During the cooldown it is a strict no-op.
func (f *MemberLoginFlow) ResendOtp(ctx context.Context) (SubmitResult, bool) {
	f.mu.Lock()
	if f.stage != domain.StageOtpEntry {
		f.mu.Unlock()
		return SubmitResult{}, false
	}
	f.mu.Unlock()

	receipt, ok := f.otp.Resend(ctx)
	if !ok {
		return SubmitResult{}, false
	}

	f.mu.Lock()
	f.entry.digits.Clear()
	f.mu.Unlock()

	focus := domain.FocusHint{Field: "otp", Index: 0}
	return SubmitResult{
		Stage:        domain.StageOtpEntry,
		Notification: "OTP resent to " + receipt.MaskedTarget,
		Receipt:      &receipt,
		Focus:        &focus,
	}, true
}

// State snapshots the flow for the UI layer.
func (f *MemberLoginFlow) State() MemberFlowState {
	f.mu.Lock()
	defer f.mu.Unlock()

	return MemberFlowState{
		ID:         f.id.String(),
		Stage:      f.stage,
		Phone:      f.phone,
		Email:      f.email,
		EmailError: f.emailErr,
		Consent:    f.consent,
		Digits:     f.entry.digits,
		CanSubmit:  f.canSubmitLocked(),
		Otp:        f.otp.Status(),
	}
}

// Close tears the flow down: timers cancelled, ephemeral state cleared. Safe
// to call more than once; every exit path (success, abandonment,
// replacement) must land here.
func (f *MemberLoginFlow) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.mu.Unlock()

	f.otp.Stop()
	f.eph.Clear()
}

// resetChallengeLocked discards the OTP challenge entirely: digits cleared,
// timers cancelled, pending target dropped. Used when the primary credential
// shrinks mid-challenge; rolling back only the visible stage would leave a
// stale passcode usable against a changed number.
func (f *MemberLoginFlow) resetChallengeLocked() {
	f.entry.digits.Clear()
	f.eph.Remove(ephKeyOtpTarget)

	// Reset takes the controller's own lock, never f.mu. Run it inline so
	// the timers are dead before this state change is observable.
	f.otp.Reset()
}

func (f *MemberLoginFlow) setStageLocked(stage domain.Stage) {
	f.stage = stage
	f.eph.Set(ephKeyLoginStage, string(stage))
}
