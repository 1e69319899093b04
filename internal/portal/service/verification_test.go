package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nyaypaksh/memberportal/internal/portal/domain"
	"github.com/nyaypaksh/memberportal/internal/portal/oracle"
	"github.com/nyaypaksh/memberportal/internal/portal/store/memory"
	"github.com/nyaypaksh/memberportal/pkg/clockx"
)

const (
	memberValidity = 571 * time.Second
	memberCooldown = 31 * time.Second
	adminValidity  = 30 * time.Second
	adminCooldown  = 30 * time.Second
)

type memberFixture struct {
	flow     *MemberLoginFlow
	otp      *OtpController
	sessions *SessionService
	eph      *memory.Ephemeral
	kv       *memory.KV
	clock    *clockx.Manual
}

func newMemberFixture(t *testing.T) *memberFixture {
	t.Helper()

	clock := clockx.NewManual(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	client := oracle.NewClient(slog.Default(), clock)
	kv := memory.NewKV()
	eph := memory.NewEphemeral()

	sessions := &SessionService{KV: kv, Clock: clock, Logger: slog.Default()}
	otp := NewOtpController(clock, OtpConfig{Validity: memberValidity, ResendCooldown: memberCooldown}, client, slog.Default())
	flow := NewMemberLoginFlow(otp, sessions, client, eph, slog.Default())
	t.Cleanup(flow.Close)

	return &memberFixture{flow: flow, otp: otp, sessions: sessions, eph: eph, kv: kv, clock: clock}
}

// reachOtpEntry drives a fresh flow through phone, email and consent to the
// passcode stage.
func (f *memberFixture) reachOtpEntry(t *testing.T) SubmitResult {
	t.Helper()

	f.flow.UpdatePhone("9876543210")
	f.flow.UpdateEmail("member@example.com")
	f.flow.SetConsent(true)

	result, err := f.flow.Submit(context.Background())
	require.NoError(t, err)
	return result
}

func TestMemberFlowStages(t *testing.T) {
	ctx := context.Background()

	t.Run("starts at phone entry", func(t *testing.T) {
		fx := newMemberFixture(t)

		state := fx.flow.State()
		require.Equal(t, domain.StagePrimaryCredential, state.Stage)
		require.False(t, state.CanSubmit)

		stage, ok := fx.eph.Get("login_stage")
		require.True(t, ok)
		require.Equal(t, string(domain.StagePrimaryCredential), stage)
	})

	t.Run("tenth digit advances to email entry", func(t *testing.T) {
		fx := newMemberFixture(t)

		focus := fx.flow.UpdatePhone("98765-43210")
		require.Equal(t, "email", focus.Field)

		state := fx.flow.State()
		require.Equal(t, domain.StageSecondaryCredential, state.Stage)
		require.Equal(t, "9876543210", state.Phone)
	})

	t.Run("overlong input truncates to ten digits", func(t *testing.T) {
		fx := newMemberFixture(t)

		fx.flow.UpdatePhone("987654321099")
		require.Equal(t, "9876543210", fx.flow.State().Phone)
	})

	t.Run("shrinking the phone regresses", func(t *testing.T) {
		fx := newMemberFixture(t)

		fx.flow.UpdatePhone("9876543210")
		focus := fx.flow.UpdatePhone("987654321")
		require.Equal(t, "phone", focus.Field)
		require.Equal(t, domain.StagePrimaryCredential, fx.flow.State().Stage)
	})

	t.Run("invalid email is a field message, not an error", func(t *testing.T) {
		fx := newMemberFixture(t)

		fx.flow.UpdatePhone("9876543210")
		fx.flow.UpdateEmail("not-an-email")

		state := fx.flow.State()
		require.Equal(t, domain.StageSecondaryCredential, state.Stage)
		require.NotEmpty(t, state.EmailError)
		require.False(t, state.CanSubmit)

		fx.flow.UpdateEmail("member@example.com")
		require.Empty(t, fx.flow.State().EmailError)
	})

	t.Run("submit requires consent", func(t *testing.T) {
		fx := newMemberFixture(t)

		fx.flow.UpdatePhone("9876543210")
		fx.flow.UpdateEmail("member@example.com")
		require.False(t, fx.flow.CanSubmit())

		_, err := fx.flow.Submit(ctx)
		require.ErrorIs(t, err, ErrSubmitNotReady)

		fx.flow.SetConsent(true)
		require.True(t, fx.flow.CanSubmit())
	})

	t.Run("submit issues the challenge", func(t *testing.T) {
		fx := newMemberFixture(t)

		result := fx.reachOtpEntry(t)
		require.Equal(t, domain.StageOtpEntry, result.Stage)
		require.Contains(t, result.Notification, "m****r@example.com")
		require.NotNil(t, result.Focus)
		require.Equal(t, "otp", result.Focus.Field)
		require.Equal(t, 0, result.Focus.Index)

		status := fx.flow.State().Otp
		require.Equal(t, domain.OtpIssued, status.Phase)
		require.Equal(t, int(memberValidity.Seconds()), status.ValidityRemaining)
		require.False(t, status.Expired)

		target, ok := fx.eph.Get("otpTarget")
		require.True(t, ok)
		require.Equal(t, "member@example.com", target)
	})

	t.Run("shrinking the phone mid-challenge discards it", func(t *testing.T) {
		fx := newMemberFixture(t)

		fx.reachOtpEntry(t)
		_, err := fx.flow.PasteOtp("123456")
		require.NoError(t, err)

		fx.flow.UpdatePhone("987654321")

		state := fx.flow.State()
		require.Equal(t, domain.StagePrimaryCredential, state.Stage)
		require.Equal(t, domain.OtpDigits{}, state.Digits)
		require.Equal(t, domain.OtpIdle, state.Otp.Phase)

		_, ok := fx.eph.Get("otpTarget")
		require.False(t, ok)

		// The old code is unusable even after re-completing the phone.
		fx.flow.UpdatePhone("9876543210")
		_, err = fx.flow.Submit(ctx)
		require.NoError(t, err)
		require.Equal(t, domain.OtpDigits{}, fx.flow.State().Digits)
	})
}

func TestMemberFlowOtpEntry(t *testing.T) {
	ctx := context.Background()

	t.Run("digit focus progression", func(t *testing.T) {
		fx := newMemberFixture(t)
		fx.reachOtpEntry(t)

		focus, err := fx.flow.SetOtpDigit(0, "1")
		require.NoError(t, err)
		require.Equal(t, 1, focus.Index)

		// Backspace over a filled slot clears in place.
		focus, err = fx.flow.SetOtpDigit(0, "")
		require.NoError(t, err)
		require.Equal(t, 0, focus.Index)

		// Backspace over an empty slot steps back.
		focus, err = fx.flow.SetOtpDigit(3, "")
		require.NoError(t, err)
		require.Equal(t, 2, focus.Index)

		_, err = fx.flow.SetOtpDigit(0, "x")
		var fe *FieldError
		require.ErrorAs(t, err, &fe)
	})

	t.Run("digit entry before the otp stage is refused", func(t *testing.T) {
		fx := newMemberFixture(t)

		_, err := fx.flow.SetOtpDigit(0, "1")
		require.ErrorIs(t, err, ErrFlowStage)
	})

	t.Run("paste fills all slots", func(t *testing.T) {
		fx := newMemberFixture(t)
		fx.reachOtpEntry(t)

		focus, err := fx.flow.PasteOtp(" 123456 ")
		require.NoError(t, err)
		require.Equal(t, 5, focus.Index)
		require.True(t, fx.flow.State().Digits.Filled())

		_, err = fx.flow.PasteOtp("12ab56")
		var fe *FieldError
		require.ErrorAs(t, err, &fe)
	})

	t.Run("resend during cooldown leaves everything untouched", func(t *testing.T) {
		fx := newMemberFixture(t)
		fx.reachOtpEntry(t)
		_, err := fx.flow.PasteOtp("123456")
		require.NoError(t, err)
		issuedAt := fx.otp.IssuedAt()

		_, ok := fx.flow.ResendOtp(ctx)
		require.False(t, ok)
		require.True(t, fx.flow.State().Digits.Filled())
		require.Equal(t, issuedAt, fx.otp.IssuedAt())
	})

	t.Run("resend after cooldown clears the digits", func(t *testing.T) {
		fx := newMemberFixture(t)
		fx.reachOtpEntry(t)
		_, err := fx.flow.PasteOtp("123456")
		require.NoError(t, err)

		fx.otp.Stop()
		for range int(memberCooldown.Seconds()) {
			fx.otp.Tick()
		}

		result, ok := fx.flow.ResendOtp(ctx)
		require.True(t, ok)
		require.Contains(t, result.Notification, "m****r@example.com")
		require.False(t, fx.flow.State().Digits.Filled())
		require.Equal(t, int(memberValidity.Seconds()), fx.flow.State().Otp.ValidityRemaining)
	})

	t.Run("expired challenge refuses the code", func(t *testing.T) {
		fx := newMemberFixture(t)
		fx.reachOtpEntry(t)
		_, err := fx.flow.PasteOtp("123456")
		require.NoError(t, err)

		fx.otp.Stop()
		for range int(memberValidity.Seconds()) {
			fx.otp.Tick()
		}

		_, err = fx.flow.Submit(ctx)
		require.ErrorIs(t, err, ErrOtpExpired)
	})
}

func TestMemberFlowCompletion(t *testing.T) {
	ctx := context.Background()

	t.Run("verified code issues the session and closes the flow", func(t *testing.T) {
		fx := newMemberFixture(t)
		fx.reachOtpEntry(t)
		_, err := fx.flow.PasteOtp("482913")
		require.NoError(t, err)

		result, err := fx.flow.Submit(ctx)
		require.NoError(t, err)
		require.Equal(t, MemberHomePath, result.RedirectTo)

		require.True(t, fx.sessions.ValidateMemberSession(ctx))
		identity, ok := fx.sessions.StoredMemberIdentity(ctx)
		require.True(t, ok)
		require.Equal(t, "9876543210", identity.Phone)
		require.Equal(t, "member@example.com", identity.Email)

		tok, err := fx.kv.Get(ctx, "nyaypaksh_token")
		require.NoError(t, err)
		require.NotEmpty(t, tok)

		// The flow is done: ephemeral state gone, further submits refused.
		_, ok = fx.eph.Get("login_stage")
		require.False(t, ok)
		_, err = fx.flow.Submit(ctx)
		require.ErrorIs(t, err, ErrSubmitNotReady)
	})

	t.Run("identity mismatch against a stored member blocks", func(t *testing.T) {
		fx := newMemberFixture(t)
		require.NoError(t, fx.sessions.IssueMemberSession(ctx,
			domain.MemberIdentity{Phone: "1111111111", Email: "other@example.com"}, ""))

		fx.reachOtpEntry(t)
		_, err := fx.flow.PasteOtp("123456")
		require.NoError(t, err)

		_, err = fx.flow.Submit(ctx)
		require.ErrorIs(t, err, ErrIdentityMismatch)
	})
}

type adminFixture struct {
	flow     *AdminLoginFlow
	otp      *OtpController
	sessions *SessionService
	eph      *memory.Ephemeral
	kv       *memory.KV
	clock    *clockx.Manual
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()

	clock := clockx.NewManual(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	client := oracle.NewClient(slog.Default(), clock)
	kv := memory.NewKV()
	eph := memory.NewEphemeral()

	sessions := &SessionService{KV: kv, Clock: clock, Logger: slog.Default(), AdminEphemeral: eph}
	otp := NewOtpController(clock, OtpConfig{Validity: adminValidity, ResendCooldown: adminCooldown}, client, slog.Default())
	flow := NewAdminLoginFlow(otp, sessions, client, eph, slog.Default())
	t.Cleanup(flow.Close)

	return &adminFixture{flow: flow, otp: otp, sessions: sessions, eph: eph, kv: kv, clock: clock}
}

func TestAdminFlowLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("field validation", func(t *testing.T) {
		fx := newAdminFixture(t)

		var fe *FieldError
		_, err := fx.flow.Login(ctx, "", "admin123")
		require.ErrorAs(t, err, &fe)
		require.Equal(t, "email", fe.Field)

		_, err = fx.flow.Login(ctx, "not-an-email", "admin123")
		require.ErrorAs(t, err, &fe)
		require.Equal(t, "email", fe.Field)

		_, err = fx.flow.Login(ctx, "admin@npp.com", "")
		require.ErrorAs(t, err, &fe)
		require.Equal(t, "password", fe.Field)
	})

	t.Run("rejects a wrong credential pair", func(t *testing.T) {
		fx := newAdminFixture(t)

		_, err := fx.flow.Login(ctx, "admin@npp.com", "wrong")
		require.ErrorIs(t, err, oracle.ErrBadCredentials)
		require.Equal(t, domain.StageCredentials, fx.flow.State().Stage)

		_, ok := fx.eph.Get("admin_login_step")
		require.False(t, ok)
	})

	t.Run("accepted credentials reach the second factor", func(t *testing.T) {
		fx := newAdminFixture(t)

		result, err := fx.flow.Login(ctx, "Admin@NPP.com ", "admin123")
		require.NoError(t, err)
		require.Equal(t, domain.StageOtpEntry, result.Stage)
		require.Contains(t, result.Notification, "@npp.com")

		step, ok := fx.eph.Get("admin_login_step")
		require.True(t, ok)
		require.Equal(t, "otp_required", step)

		status := fx.flow.State().Otp
		require.Equal(t, domain.OtpIssued, status.Phase)
		require.Equal(t, int(adminValidity.Seconds()), status.ValidityRemaining)
	})

	t.Run("second login attempt on the same flow is refused", func(t *testing.T) {
		fx := newAdminFixture(t)

		_, err := fx.flow.Login(ctx, "admin@npp.com", "admin123")
		require.NoError(t, err)

		_, err = fx.flow.Login(ctx, "admin@example.com", "password123")
		require.ErrorIs(t, err, ErrFlowStage)
	})
}

func TestAdminFlowVerifyOtp(t *testing.T) {
	ctx := context.Background()

	login := func(t *testing.T, fx *adminFixture) {
		t.Helper()
		_, err := fx.flow.Login(ctx, "admin@npp.com", "admin123")
		require.NoError(t, err)
	}

	t.Run("verified code issues the admin session", func(t *testing.T) {
		fx := newAdminFixture(t)
		login(t, fx)

		_, err := fx.flow.PasteOtp("123456")
		require.NoError(t, err)

		result, err := fx.flow.VerifyOtp(ctx)
		require.NoError(t, err)
		require.Equal(t, AdminHomePath, result.RedirectTo)

		require.True(t, fx.sessions.ValidateAdminSession(ctx))
		email, err := fx.kv.Get(ctx, "adminEmail")
		require.NoError(t, err)
		require.Equal(t, "admin@npp.com", email)

		_, ok := fx.eph.Get("admin_login_step")
		require.False(t, ok)
	})

	t.Run("refused before the credential check", func(t *testing.T) {
		fx := newAdminFixture(t)

		_, err := fx.flow.VerifyOtp(ctx)
		require.ErrorIs(t, err, ErrFlowStage)
	})

	t.Run("refused when the step marker is gone", func(t *testing.T) {
		fx := newAdminFixture(t)
		login(t, fx)
		fx.eph.Remove("admin_login_step")

		_, err := fx.flow.PasteOtp("123456")
		require.NoError(t, err)
		_, err = fx.flow.VerifyOtp(ctx)
		require.ErrorIs(t, err, ErrFlowStage)
	})

	t.Run("refused with incomplete digits", func(t *testing.T) {
		fx := newAdminFixture(t)
		login(t, fx)

		_, err := fx.flow.SetOtpDigit(0, "1")
		require.NoError(t, err)
		_, err = fx.flow.VerifyOtp(ctx)
		require.ErrorIs(t, err, ErrOtpInvalidLength)
	})

	t.Run("expired challenge refuses the code", func(t *testing.T) {
		fx := newAdminFixture(t)
		login(t, fx)

		_, err := fx.flow.PasteOtp("123456")
		require.NoError(t, err)

		fx.otp.Stop()
		for range int(adminValidity.Seconds()) {
			fx.otp.Tick()
		}

		_, err = fx.flow.VerifyOtp(ctx)
		require.ErrorIs(t, err, ErrOtpExpired)
	})

	t.Run("session write failure leaves no partial admin state", func(t *testing.T) {
		fx := newAdminFixture(t)
		login(t, fx)
		fx.kv.FailSet = map[string]error{"auth": errors.New("disk full")}

		_, err := fx.flow.PasteOtp("123456")
		require.NoError(t, err)

		_, err = fx.flow.VerifyOtp(ctx)
		require.Error(t, err)
		require.Zero(t, fx.kv.Len())
		require.False(t, fx.sessions.ValidateAdminSession(ctx))
	})
}
