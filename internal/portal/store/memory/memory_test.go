package memory

import (
	"context"
	"testing"

	"github.com/nyaypaksh/memberportal/internal/portal/store"
	"github.com/stretchr/testify/require"
)

func TestKVRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := NewKV()

	_, err := kv.Get(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, kv.Set(ctx, "role", "ADMIN"))
	v, err := kv.Get(ctx, "role")
	require.NoError(t, err)
	require.Equal(t, "ADMIN", v)

	require.NoError(t, kv.Remove(ctx, "role"))
	_, err = kv.Get(ctx, "role")
	require.ErrorIs(t, err, store.ErrNotFound)

	// Removing an absent key is not an error.
	require.NoError(t, kv.Remove(ctx, "role"))
}

func TestKVFailSet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	boom := store.ErrNotFound // any sentinel will do for the fake
	kv := NewKV()
	kv.FailSet = map[string]error{"auth": boom}

	require.NoError(t, kv.Set(ctx, "role", "ADMIN"))
	require.ErrorIs(t, kv.Set(ctx, "auth", "true"), boom)
}

func TestEphemeralClear(t *testing.T) {
	t.Parallel()

	eph := NewEphemeral()
	eph.Set("admin_login_step", "otp_required")
	eph.Set("otpTarget", "admin@npp.com")

	v, ok := eph.Get("admin_login_step")
	require.True(t, ok)
	require.Equal(t, "otp_required", v)

	eph.Clear()
	_, ok = eph.Get("admin_login_step")
	require.False(t, ok)
	_, ok = eph.Get("otpTarget")
	require.False(t, ok)
}
