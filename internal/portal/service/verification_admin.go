package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/nyaypaksh/memberportal/internal/portal/domain"
	"github.com/nyaypaksh/memberportal/internal/portal/store"
	"github.com/nyaypaksh/memberportal/pkg/idx"
)

// Ephemeral markers for the admin second factor. The step marker is the
// gate: OTP verification refuses to run unless it is present, so a direct
// jump to the OTP screen without passing the credential check goes nowhere.
const (
	ephKeyAdminStep      = "admin_login_step"
	adminStepOtpRequired = "otp_required"
)

// AdminOracle is the slice of the backend oracle the admin flow needs.
type AdminOracle interface {
	VerifyAdminCredentials(ctx context.Context, email, password string) error
}

// AdminFlowState is a snapshot of the flow for the UI layer.
type AdminFlowState struct {
	ID        string           `json:"id"`
	Stage     domain.Stage     `json:"stage"`
	Email     string           `json:"email"`
	Digits    domain.OtpDigits `json:"otp_digits"`
	CanSubmit bool             `json:"can_submit"`
	Otp       OtpStatus        `json:"otp"`
}

// AdminLoginFlow drives an administrator through credential entry and the
// mandatory OTP second factor. Unlike the member flow there is no staged
// credential collection: email and password arrive together, and the OTP
// stage is reached only through a successful credential check.
type AdminLoginFlow struct {
	Logger *slog.Logger

	id       idx.ID
	otp      *OtpController
	sessions *SessionService
	oracle   AdminOracle
	eph      store.Ephemeral

	mu     sync.Mutex
	stage  domain.Stage
	email  string
	entry  otpEntry
	closed bool
}

func NewAdminLoginFlow(otp *OtpController, sessions *SessionService, oracle AdminOracle, eph store.Ephemeral, logger *slog.Logger) *AdminLoginFlow {
	eph.Clear()

	return &AdminLoginFlow{
		Logger:   logger,
		id:       idx.New(),
		otp:      otp,
		sessions: sessions,
		oracle:   oracle,
		eph:      eph,
		stage:    domain.StageCredentials,
	}
}

func (f *AdminLoginFlow) ID() idx.ID { return f.id }

// Login checks the credential pair against the oracle and, on success,
// issues the OTP challenge against the admin email. Field-level validation
// failures come back as FieldError; a wrong pair surfaces the oracle's
// credential error unchanged.
func (f *AdminLoginFlow) Login(ctx context.Context, email, password string) (SubmitResult, error) {
	f.mu.Lock()

	if f.stage != domain.StageCredentials || f.closed {
		f.mu.Unlock()
		return SubmitResult{}, ErrFlowStage
	}

	email = strings.TrimSpace(email)
	switch {
	case email == "":
		f.mu.Unlock()
		return SubmitResult{}, &FieldError{Field: "email", Message: "email is required"}
	case !emailPattern.MatchString(email):
		f.mu.Unlock()
		return SubmitResult{}, &FieldError{Field: "email", Message: "enter a valid email address"}
	case password == "":
		f.mu.Unlock()
		return SubmitResult{}, &FieldError{Field: "password", Message: "password is required"}
	}
	f.mu.Unlock()

	if err := f.oracle.VerifyAdminCredentials(ctx, email, password); err != nil {
		return SubmitResult{}, err
	}

	f.mu.Lock()
	f.email = email
	f.stage = domain.StageOtpEntry
	f.entry.digits.Clear()
	f.eph.Set(ephKeyAdminStep, adminStepOtpRequired)
	f.eph.Set(ephKeyOtpTarget, email)
	f.mu.Unlock()

	receipt := f.otp.Issue(ctx, email)
	focus := domain.FocusHint{Field: "otp", Index: 0}
	return SubmitResult{
		Stage:        domain.StageOtpEntry,
		Notification: "OTP sent to " + receipt.MaskedTarget,
		Receipt:      &receipt,
		Focus:        &focus,
	}, nil
}

// VerifyOtp checks the entered passcode and, on success, issues the admin
// session. The ephemeral step marker must still be present; its absence
// means the credential check never ran in this flow and verification is
// refused outright.
func (f *AdminLoginFlow) VerifyOtp(ctx context.Context) (SubmitResult, error) {
	f.mu.Lock()

	if f.stage != domain.StageOtpEntry || f.closed {
		f.mu.Unlock()
		return SubmitResult{}, ErrFlowStage
	}
	if step, ok := f.eph.Get(ephKeyAdminStep); !ok || step != adminStepOtpRequired {
		f.mu.Unlock()
		return SubmitResult{}, ErrFlowStage
	}
	if !f.entry.digits.Filled() {
		f.mu.Unlock()
		return SubmitResult{}, ErrOtpInvalidLength
	}

	code := f.entry.digits.Code()
	email := f.email
	f.mu.Unlock()

	if _, err := f.otp.Verify(ctx, code, domain.VerifiedCredentials{Email: email}, nil); err != nil {
		return SubmitResult{}, err
	}

	// Session issuance failure here is fatal: a half-written admin session
	// must never be left behind, and IssueAdminSession rolls back on error.
	if err := f.sessions.IssueAdminSession(ctx, email); err != nil {
		return SubmitResult{}, err
	}

	f.eph.Remove(ephKeyAdminStep)
	f.eph.Remove(ephKeyOtpTarget)
	f.Close()

	return SubmitResult{
		Stage:        domain.StageOtpEntry,
		Notification: "verification successful",
		RedirectTo:   AdminHomePath,
	}, nil
}

// SetOtpDigit writes one passcode slot. Only meaningful at OTP entry.
func (f *AdminLoginFlow) SetOtpDigit(index int, value string) (domain.FocusHint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stage != domain.StageOtpEntry {
		return domain.FocusHint{}, ErrFlowStage
	}
	return f.entry.setDigit(index, value)
}

// PasteOtp distributes a pasted code across the slots.
func (f *AdminLoginFlow) PasteOtp(code string) (domain.FocusHint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stage != domain.StageOtpEntry {
		return domain.FocusHint{}, ErrFlowStage
	}
	return f.entry.paste(code)
}

// ResendOtp re-issues the challenge once the cooldown has elapsed.
func (f *AdminLoginFlow) ResendOtp(ctx context.Context) (SubmitResult, bool) {
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
func (f *AdminLoginFlow) State() AdminFlowState {
	f.mu.Lock()
	defer f.mu.Unlock()

	canSubmit := f.stage == domain.StageOtpEntry && f.entry.digits.Filled() && !f.closed

	return AdminFlowState{
		ID:        f.id.String(),
		Stage:     f.stage,
		Email:     f.email,
		Digits:    f.entry.digits,
		CanSubmit: canSubmit,
		Otp:       f.otp.Status(),
	}
}

// Close tears the flow down. Safe to call more than once.
func (f *AdminLoginFlow) Close() {
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
