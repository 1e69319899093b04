// Package oracle models the backend verification service the portal talks
// to. The portal treats it as optional and unreliable: every call can fail,
// and the login flows are expected to degrade to purely local state.
//
// This implementation is DEMO MODE, preserved deliberately from the original
// portal's trust model: admin access is granted to a fixed credential table,
// dispatched passcodes are never compared against entered codes, and the
// minted member token is opaque data nothing verifies. A production oracle
// replaces this package behind the same methods.
package oracle

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pquerna/otp/hotp"

	"github.com/nyaypaksh/memberportal/internal/portal/domain"
	"github.com/nyaypaksh/memberportal/pkg/clockx"
	"github.com/nyaypaksh/memberportal/pkg/cryptox"
)

var (
	ErrUnavailable    = errors.New("oracle: backend unavailable")
	ErrBadCredentials = errors.New("oracle: invalid admin credentials")
)

// The two demo admin accounts the original portal accepts. Stored hashed so
// the plaintext table never sits in a comparison path.
var adminCredentials = map[string]string{
	"admin@npp.com":     cryptox.MustHashPassword("admin123"),
	"admin@example.com": cryptox.MustHashPassword("password123"),
}

// demoSecret seeds the HOTP generator that produces the "dispatched"
// passcode. The code is logged for development and otherwise discarded;
// verification never compares against it.
const demoSecret = "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP"

type Client struct {
	Logger *slog.Logger
	Clock  clockx.Clock

	// Unavailable simulates a backend outage; every remote-shaped call
	// returns ErrUnavailable.
	Unavailable bool

	// TokenSigningKey signs the demo member token. Any value works; the
	// token is never verified by the engine.
	TokenSigningKey []byte

	mu      sync.Mutex
	counter uint64
}

func NewClient(logger *slog.Logger, clock clockx.Clock) *Client {
	return &Client{
		Logger:          logger,
		Clock:           clock,
		TokenSigningKey: []byte("demo-signing-key"),
	}
}

// VerifyAdminCredentials checks an email/password pair against the demo
// credential table.
func (c *Client) VerifyAdminCredentials(_ context.Context, email, password string) error {
	hash, ok := adminCredentials[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return ErrBadCredentials
	}
	if err := cryptox.VerifyPassword(password, hash); err != nil {
		return ErrBadCredentials
	}
	return nil
}

// DispatchPasscode "sends" a fresh passcode to target and returns a receipt
// carrying the masked destination for the UI.
func (c *Client) DispatchPasscode(_ context.Context, target string) (domain.DispatchReceipt, error) {
	if c.Unavailable {
		return domain.DispatchReceipt{}, ErrUnavailable
	}

	c.mu.Lock()
	c.counter++
	code, err := hotp.GenerateCode(demoSecret, c.counter)
	c.mu.Unlock()
	if err != nil {
		return domain.DispatchReceipt{}, err
	}

	receipt := domain.DispatchReceipt{
		ID:           uuid.NewString(),
		MaskedTarget: domain.MaskTarget(target),
		SentAt:       c.Clock.Now(),
	}

	// Dev-only visibility into the demo passcode. Verification accepts any
	// well-formed 6-digit code regardless.
	c.Logger.Debug("demo passcode dispatched",
		"receipt_id", receipt.ID,
		"target", receipt.MaskedTarget,
		"code", code,
	)

	return receipt, nil
}

// ConfirmMember asks the backend to acknowledge a member login. Callers
// tolerate failure and proceed on local session state alone.
func (c *Client) ConfirmMember(_ context.Context, identity domain.MemberIdentity) error {
	if c.Unavailable {
		return ErrUnavailable
	}
	c.Logger.Debug("member confirmed", "phone", domain.MaskTarget(identity.Phone))
	return nil
}

// IssueMemberToken mints the opaque demo token stored alongside the member
// session. Nothing in the engine consults it for authorization decisions.
func (c *Client) IssueMemberToken(_ context.Context, identity domain.MemberIdentity) (string, error) {
	if c.Unavailable {
		return "", ErrUnavailable
	}

	now := c.Clock.Now()
	claims := jwt.MapClaims{
		"sub":   identity.Phone,
		"email": identity.Email,
		"jti":   uuid.NewString(),
		"iat":   now.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.TokenSigningKey)
}

