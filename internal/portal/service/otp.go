package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nyaypaksh/memberportal/internal/portal/domain"
	"github.com/nyaypaksh/memberportal/pkg/clockx"
	"github.com/nyaypaksh/memberportal/pkg/idx"
)

// PasscodeDispatcher sends a passcode to a destination. Implemented by the
// oracle client; calls may fail and the controller degrades to local state.
type PasscodeDispatcher interface {
	DispatchPasscode(ctx context.Context, target string) (domain.DispatchReceipt, error)
}

// StoredIdentitySource exposes a previously persisted member identity for
// the verification step's mismatch check.
type StoredIdentitySource interface {
	StoredMemberIdentity(ctx context.Context) (domain.MemberIdentity, bool)
}

// OtpConfig carries the flow-specific countdown constants.
type OtpConfig struct {
	Validity       time.Duration
	ResendCooldown time.Duration
}

// OtpStatus is a point-in-time snapshot of a challenge, safe to hand to the
// UI layer.
type OtpStatus struct {
	Phase             domain.OtpPhase `json:"phase"`
	MaskedTarget      string          `json:"masked_target,omitempty"`
	ValidityRemaining int             `json:"validity_remaining_s"`
	ResendRemaining   int             `json:"resend_remaining_s"`
	Expired           bool            `json:"expired"`
}

// OtpController owns the lifetime of one passcode challenge: issuance, the
// validity countdown, the resend cooldown, and the expiry transition.
//
// Phase transitions: Idle -> Issued -> Expired is the only timer-driven
// transition; Issued -> Verified happens only on an explicit Verify call.
// Both countdowns tick at one-second granularity from a single runner
// goroutine, and every state change holds the controller mutex, so a tick
// can never interleave with a user action.
type OtpController struct {
	Logger *slog.Logger

	clock      clockx.Clock
	cfg        OtpConfig
	dispatcher PasscodeDispatcher

	mu       sync.Mutex
	phase    domain.OtpPhase
	issuedAt time.Time
	target   string
	masked   string
	validity clockx.Countdown
	resend   clockx.Countdown

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewOtpController(clock clockx.Clock, cfg OtpConfig, dispatcher PasscodeDispatcher, logger *slog.Logger) *OtpController {
	return &OtpController{
		Logger:     logger,
		clock:      clock,
		cfg:        cfg,
		dispatcher: dispatcher,
		phase:      domain.OtpIdle,
	}
}

// Issue starts a fresh challenge for target: both countdowns restart at their
// configured constants and any prior challenge (and its runner) is replaced.
// Dispatch failure is tolerated; the challenge proceeds on local state with a
// locally built receipt.
func (c *OtpController) Issue(ctx context.Context, target string) domain.DispatchReceipt {
	// Cancel the previous runner before touching state so a stale tick can
	// never mutate the replacement challenge.
	c.Stop()

	receipt, err := c.dispatcher.DispatchPasscode(ctx, target)
	if err != nil {
		c.Logger.Warn("passcode dispatch failed, continuing locally", "err", err)
		receipt = domain.DispatchReceipt{
			ID:           idx.New().String(),
			MaskedTarget: domain.MaskTarget(target),
			SentAt:       c.clock.Now(),
		}
	}

	c.mu.Lock()
	c.phase = domain.OtpIssued
	c.issuedAt = c.clock.Now()
	c.target = target
	c.masked = receipt.MaskedTarget
	c.validity.Reset(c.cfg.Validity)
	c.resend.Reset(c.cfg.ResendCooldown)
	c.startRunnerLocked()
	c.mu.Unlock()

	c.Logger.Info("otp issued", "target", receipt.MaskedTarget,
		"validity_s", int(c.cfg.Validity.Seconds()), "resend_cooldown_s", int(c.cfg.ResendCooldown.Seconds()))
	return receipt
}

// Tick consumes one elapsed second. The validity countdown crossing zero
// flips the challenge to Expired; the resend cooldown simply clamps at zero
// and keeps its tick (resend availability is read, not event-driven).
func (c *OtpController) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == domain.OtpIssued {
		if c.validity.Tick() {
			c.phase = domain.OtpExpired
			c.Logger.Info("otp expired", "target", c.masked)
		}
	}
	c.resend.Tick()
}

// Resend re-issues the challenge to the same destination once the cooldown
// has elapsed. Called during the cooldown it is a strict no-op: digits,
// validity and issuedAt all stay untouched and ok is false.
func (c *OtpController) Resend(ctx context.Context) (receipt domain.DispatchReceipt, ok bool) {
	c.mu.Lock()
	if c.phase == domain.OtpIdle || !c.resend.Done() {
		c.mu.Unlock()
		return domain.DispatchReceipt{}, false
	}
	target := c.target
	c.mu.Unlock()

	// Re-issue replaces the in-flight window; it never shortens one.
	return c.Issue(ctx, target), true
}

// Verify checks the entered code against this challenge. Failure priority:
// expiry first (an expired, malformed code reports expiry), then length,
// then format, then the stored-identity cross-check. Any syntactically valid
// 6-digit code passes beyond that: the demo trust model never compares
// against a dispatched secret (see the oracle package).
func (c *OtpController) Verify(ctx context.Context, code string, creds domain.VerifiedCredentials, stored StoredIdentitySource) (domain.VerifiedCredentials, error) {
	c.mu.Lock()
	phase := c.phase
	c.mu.Unlock()

	switch phase {
	case domain.OtpIdle, domain.OtpVerified:
		return domain.VerifiedCredentials{}, ErrFlowStage
	case domain.OtpExpired:
		return domain.VerifiedCredentials{}, ErrOtpExpired
	}

	if len(code) != domain.OtpLength {
		return domain.VerifiedCredentials{}, ErrOtpInvalidLength
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return domain.VerifiedCredentials{}, ErrOtpInvalidFormat
		}
	}

	if stored != nil {
		if identity, ok := stored.StoredMemberIdentity(ctx); ok && !identity.Matches(creds.Phone, creds.Email) {
			return domain.VerifiedCredentials{}, ErrIdentityMismatch
		}
	}

	c.mu.Lock()
	c.phase = domain.OtpVerified
	masked := c.masked
	c.mu.Unlock()

	// Success is an exit path: release the runner.
	c.Stop()

	c.Logger.Info("otp verified", "target", masked)
	return creds, nil
}

// Status returns a snapshot of the challenge state.
func (c *OtpController) Status() OtpStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	return OtpStatus{
		Phase:             c.phase,
		MaskedTarget:      c.masked,
		ValidityRemaining: int(c.validity.Remaining().Seconds()),
		ResendRemaining:   int(c.resend.Remaining().Seconds()),
		Expired:           c.phase == domain.OtpExpired,
	}
}

// IssuedAt returns when the current challenge was issued.
func (c *OtpController) IssuedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.issuedAt
}

// Reset cancels the runner and returns the controller to Idle, discarding
// the in-flight challenge entirely. A fresh Issue is required before any
// further verification.
func (c *OtpController) Reset() {
	c.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = domain.OtpIdle
	c.issuedAt = time.Time{}
	c.target = ""
	c.masked = ""
	c.validity.Reset(0)
	c.resend.Reset(0)
}

// Stop cancels the countdown runner. It must be called on every exit path of
// the owning flow (teardown, re-issue, success); a stale runner would keep
// mutating state for a discarded challenge.
func (c *OtpController) Stop() {
	c.mu.Lock()
	stopCh, doneCh := c.stopCh, c.doneCh
	c.stopCh, c.doneCh = nil, nil
	c.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-doneCh
	}
}

// startRunnerLocked launches the single goroutine driving both countdowns at
// one-second granularity. Caller holds c.mu; any prior runner must already
// be stopped.
func (c *OtpController) startRunnerLocked() {
	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	c.stopCh, c.doneCh = stopCh, doneCh

	ticker := c.clock.NewTicker(time.Second)
	go func() {
		defer close(doneCh)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C():
				c.Tick()
			case <-stopCh:
				return
			}
		}
	}()
}
