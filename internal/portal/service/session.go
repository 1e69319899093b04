package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/nyaypaksh/memberportal/internal/portal/domain"
	"github.com/nyaypaksh/memberportal/internal/portal/store"
	"github.com/nyaypaksh/memberportal/pkg/clockx"
)

// Stored key names. These are a wire contract with data written by earlier
// deployments of the portal, so they must not be renamed.
const (
	keyMemberAuthenticated = "nyaypaksh_authenticated"
	keyMemberIdentity      = "nyaypaksh_user"
	keyMemberProfileDone   = "nyaypaksh_profile_complete"
	keyMemberToken         = "nyaypaksh_token"

	keyAdminRole      = "role"
	keyAdminTwoFactor = "twoFactor"
	keyAdminAuth      = "auth"
	keyAdminEmail     = "adminEmail"
	keyAdminExpiry    = "tokenExpiry" // epoch milliseconds, string-encoded
)

var memberKeys = []string{
	keyMemberAuthenticated, keyMemberIdentity, keyMemberProfileDone, keyMemberToken,
}

var adminKeys = []string{
	keyAdminRole, keyAdminTwoFactor, keyAdminAuth, keyAdminEmail, keyAdminExpiry,
}

// SessionService is the sole writer of session records. Member and admin
// sessions never share keys; the two principals are fully independent.
type SessionService struct {
	KV     store.KeyValue
	Clock  clockx.Clock
	Logger *slog.Logger

	// AdminTTL bounds an admin session's lifetime. Member sessions carry no
	// expiry at all: they persist until explicit logout. The asymmetry is
	// inherited from the stored-data contract and is intentional.
	AdminTTL time.Duration

	// AdminEphemeral, when set, is the admin principal's interaction store.
	// Revoking the admin session clears it defensively: the session being
	// revoked may never have finished verification.
	AdminEphemeral store.Ephemeral
}

const DefaultAdminTTL = 24 * time.Hour

func (s *SessionService) adminTTL() time.Duration {
	if s.AdminTTL <= 0 {
		return DefaultAdminTTL
	}
	return s.AdminTTL
}

// IssueMemberSession persists the member session record: the authenticated
// flag, the identity payload, and the backend token when one was obtainable.
func (s *SessionService) IssueMemberSession(ctx context.Context, identity domain.MemberIdentity, token string) error {
	payload, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("marshal member identity: %w", err)
	}

	if err := s.KV.Set(ctx, keyMemberAuthenticated, "true"); err != nil {
		return fmt.Errorf("persist member session: %w", err)
	}
	if err := s.KV.Set(ctx, keyMemberIdentity, string(payload)); err != nil {
		return fmt.Errorf("persist member session: %w", err)
	}
	if token != "" {
		if err := s.KV.Set(ctx, keyMemberToken, token); err != nil {
			// The token is opaque convenience data, not part of the auth
			// decision; the session stands without it.
			s.Logger.Warn("failed to persist member token", "err", err)
		}
	}

	s.Logger.Info("member session issued", "phone", domain.MaskTarget(identity.Phone))
	return nil
}

// ValidateMemberSession reports whether a member session is present. Member
// sessions are never time-limited; only the flag is consulted.
func (s *SessionService) ValidateMemberSession(ctx context.Context) bool {
	v, err := s.KV.Get(ctx, keyMemberAuthenticated)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.Logger.Warn("member session read failed", "err", err)
		}
		return false
	}
	return v == "true"
}

// StoredMemberIdentity returns the persisted member identity, if any. The OTP
// verification step uses it to detect identity mismatches.
func (s *SessionService) StoredMemberIdentity(ctx context.Context) (domain.MemberIdentity, bool) {
	raw, err := s.KV.Get(ctx, keyMemberIdentity)
	if err != nil {
		return domain.MemberIdentity{}, false
	}

	var identity domain.MemberIdentity
	if err := json.Unmarshal([]byte(raw), &identity); err != nil {
		s.Logger.Warn("stored member identity is unreadable", "err", err)
		return domain.MemberIdentity{}, false
	}
	return identity, true
}

// SetMemberProfileComplete records whether the member finished their profile.
// Written by the profile layer, displayed on the dashboard.
func (s *SessionService) SetMemberProfileComplete(ctx context.Context, done bool) error {
	return s.KV.Set(ctx, keyMemberProfileDone, strconv.FormatBool(done))
}

// MemberProfileComplete reads the profile-completion flag.
func (s *SessionService) MemberProfileComplete(ctx context.Context) bool {
	v, err := s.KV.Get(ctx, keyMemberProfileDone)
	return err == nil && v == "true"
}

// IssueAdminSession persists the admin session record as one logical
// transaction over its five wire keys. A partial write is the one condition
// treated as fatal to the session: every admin key is removed before the
// error is returned, because validation is sensitive to partial states.
func (s *SessionService) IssueAdminSession(ctx context.Context, email string) error {
	expiry := s.Clock.Now().Add(s.adminTTL())

	writes := []struct{ key, value string }{
		{keyAdminRole, string(domain.RoleAdmin)},
		{keyAdminTwoFactor, "true"},
		{keyAdminAuth, "true"},
		{keyAdminEmail, email},
		{keyAdminExpiry, strconv.FormatInt(expiry.UnixMilli(), 10)},
	}

	for _, w := range writes {
		if err := s.KV.Set(ctx, w.key, w.value); err != nil {
			s.purgeAdmin(ctx)
			return fmt.Errorf("persist admin session key %q: %w", w.key, err)
		}
	}

	s.Logger.Info("admin session issued", "email", domain.MaskTarget(email), "expires_at", expiry)
	return nil
}

// ValidateAdminSession reports whether a complete, unexpired admin session is
// present. On ANY failure (missing flag, false flag, or expiry) every admin
// key is purged before returning: callers must not assume the keys still
// exist after a failed validation. Expiry is lazy; there is no watcher.
func (s *SessionService) ValidateAdminSession(ctx context.Context) bool {
	record, ok := s.readAdminSession(ctx)
	if !ok || !record.Complete() || record.ExpiredAt(s.Clock.Now()) {
		s.purgeAdmin(ctx)
		return false
	}
	return true
}

// readAdminSession reassembles the structured record from the five wire keys.
// ok is false when any key is absent, unreadable or carries the wrong value.
func (s *SessionService) readAdminSession(ctx context.Context) (domain.AdminSession, bool) {
	role, err := s.KV.Get(ctx, keyAdminRole)
	if err != nil || !strings.EqualFold(role, string(domain.RoleAdmin)) {
		return domain.AdminSession{}, false
	}

	twoFactor, err := s.KV.Get(ctx, keyAdminTwoFactor)
	if err != nil {
		return domain.AdminSession{}, false
	}
	auth, err := s.KV.Get(ctx, keyAdminAuth)
	if err != nil {
		return domain.AdminSession{}, false
	}
	email, err := s.KV.Get(ctx, keyAdminEmail)
	if err != nil {
		return domain.AdminSession{}, false
	}

	rawExpiry, err := s.KV.Get(ctx, keyAdminExpiry)
	if err != nil {
		return domain.AdminSession{}, false
	}
	millis, err := strconv.ParseInt(rawExpiry, 10, 64)
	if err != nil {
		return domain.AdminSession{}, false
	}

	return domain.AdminSession{
		Email:              email,
		SecondFactorPassed: twoFactor == "true",
		Authenticated:      auth == "true",
		ExpiresAt:          time.UnixMilli(millis),
	}, true
}

// Revoke removes every key associated with the role's session. For admin it
// also clears any in-flight verification-stage ephemeral keys.
func (s *SessionService) Revoke(ctx context.Context, role domain.Role) {
	switch role {
	case domain.RoleAdmin:
		s.purgeAdmin(ctx)
		if s.AdminEphemeral != nil {
			s.AdminEphemeral.Clear()
		}
	default:
		for _, key := range memberKeys {
			if err := s.KV.Remove(ctx, key); err != nil {
				s.Logger.Warn("failed to remove member session key", "key", key, "err", err)
			}
		}
	}
	s.Logger.Info("session revoked", "role", role)
}

// SweepExpiredAdminSession deletes the admin keys if the stored expiry has
// passed. Lazy expiry at read time remains the correctness mechanism; this
// sweep only keeps the durable store from holding dead sessions.
func (s *SessionService) SweepExpiredAdminSession(ctx context.Context) bool {
	rawExpiry, err := s.KV.Get(ctx, keyAdminExpiry)
	if err != nil {
		return false
	}

	millis, err := strconv.ParseInt(rawExpiry, 10, 64)
	if err == nil && s.Clock.Now().Before(time.UnixMilli(millis)) {
		return false
	}

	// Expired, or an unparseable expiry that could never validate.
	s.purgeAdmin(ctx)
	return true
}

func (s *SessionService) purgeAdmin(ctx context.Context) {
	for _, key := range adminKeys {
		if err := s.KV.Remove(ctx, key); err != nil {
			s.Logger.Warn("failed to remove admin session key", "key", key, "err", err)
		}
	}
}
