package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOtpDigits(t *testing.T) {
	t.Parallel()

	var d OtpDigits
	require.Equal(t, "", d.Code())
	require.False(t, d.Filled())
	require.Equal(t, -1, d.LastFilled())

	d = OtpDigits{"1", "2", "3", "", "", ""}
	require.Equal(t, "123", d.Code())
	require.False(t, d.Filled())
	require.Equal(t, 2, d.LastFilled())

	d = OtpDigits{"1", "2", "3", "4", "5", "6"}
	require.Equal(t, "123456", d.Code())
	require.True(t, d.Filled())

	d.Clear()
	require.Equal(t, "", d.Code())
}

func TestMemberIdentityMatches(t *testing.T) {
	t.Parallel()

	id := MemberIdentity{Phone: "9876543210", Email: "a@b.com"}
	require.True(t, id.Matches("9876543210", "a@b.com"))
	require.False(t, id.Matches("9876543211", "a@b.com"))
	require.False(t, id.Matches("9876543210", "other@b.com"))

	// Empty stored fields are not compared.
	partial := MemberIdentity{Phone: "9876543210"}
	require.True(t, partial.Matches("9876543210", "anything@b.com"))
}

func TestAdminSessionComplete(t *testing.T) {
	t.Parallel()

	s := AdminSession{Email: "admin@npp.com", SecondFactorPassed: true, Authenticated: true}
	require.True(t, s.Complete())

	for _, broken := range []AdminSession{
		{SecondFactorPassed: true, Authenticated: true},
		{Email: "admin@npp.com", Authenticated: true},
		{Email: "admin@npp.com", SecondFactorPassed: true},
	} {
		require.False(t, broken.Complete())
	}
}

func TestAdminSessionExpiredAt(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := AdminSession{ExpiresAt: now.Add(24 * time.Hour)}
	require.False(t, s.ExpiredAt(now))
	require.True(t, s.ExpiredAt(now.Add(24*time.Hour)))
	require.True(t, s.ExpiredAt(now.Add(25*time.Hour)))
}

func TestMaskTarget(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":              "",
		"admin@npp.com": "a***n@npp.com",
		"ab@x.com":      "**@x.com",
		"a@x.com":       "*@x.com",
		"9876543210":    "********10",
		"98":            "**",
	}
	for input, want := range cases {
		require.Equal(t, want, MaskTarget(input), "input %q", input)
	}
}
