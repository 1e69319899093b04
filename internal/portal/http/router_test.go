package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nyaypaksh/memberportal/internal/portal/oracle"
	"github.com/nyaypaksh/memberportal/internal/portal/service"
	"github.com/nyaypaksh/memberportal/internal/portal/store/memory"
	"github.com/nyaypaksh/memberportal/pkg/clockx"
)

type testServer struct {
	server   *httptest.Server
	clock    *clockx.Manual
	sessions *service.SessionService
	flows    *FlowRegistry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	clock := clockx.NewManual(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	client := oracle.NewClient(slog.Default(), clock)
	kv := memory.NewKV()
	adminEph := memory.NewEphemeral()

	sessions := &service.SessionService{
		KV:             kv,
		Clock:          clock,
		Logger:         slog.Default(),
		AdminEphemeral: adminEph,
	}

	flows := NewFlowRegistry(FlowDeps{
		Clock:           clock,
		Oracle:          client,
		Sessions:        sessions,
		Logger:          slog.Default(),
		MemberOtp:       service.OtpConfig{Validity: 571 * time.Second, ResendCooldown: 31 * time.Second},
		AdminOtp:        service.OtpConfig{Validity: 30 * time.Second, ResendCooldown: 30 * time.Second},
		MemberEphemeral: memory.NewEphemeral(),
		AdminEphemeral:  adminEph,
	})
	t.Cleanup(flows.Close)

	router := NewRouter("test", kv, flows, slog.Default())
	router.Sessions = sessions
	router.Guard = &service.RouteGuard{Sessions: sessions}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{server: srv, clock: clock, sessions: sessions, flows: flows}
}

func (ts *testServer) do(t *testing.T, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, ts.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp, payload
}

func TestMemberLoginOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, "POST", "/v1/member/login", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "primary_credential", body["stage"])

	// Phone complete: the flow advances and asks for email focus.
	resp, body = ts.do(t, "PATCH", "/v1/member/login/phone", `{"phone":"98765-43210"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "secondary_credential", body["stage"])
	require.Equal(t, "email", body["focus"].(map[string]any)["field"])

	_, _ = ts.do(t, "PATCH", "/v1/member/login/email", `{"email":"member@example.com"}`)
	_, _ = ts.do(t, "PATCH", "/v1/member/login/consent", `{"consent":true}`)

	// Submitting the credentials issues the passcode.
	resp, body = ts.do(t, "POST", "/v1/member/login/submit", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "otp_entry", body["stage"])
	require.Contains(t, body["notification"], "m****r@example.com")

	resp, _ = ts.do(t, "POST", "/v1/member/login/otp/paste", `{"code":"123456"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = ts.do(t, "POST", "/v1/member/login/submit", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "/profile", body["redirect_to"])

	// The protected area now admits the member.
	resp, body = ts.do(t, "GET", "/profile", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "9876543210", body["phone"])

	// The completed flow is gone from the registry.
	resp, _ = ts.do(t, "GET", "/v1/member/login", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMemberLoginErrorsOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	t.Run("operations before start are 404", func(t *testing.T) {
		resp, body := ts.do(t, "POST", "/v1/member/login/submit", "")
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		require.Equal(t, "flow_not_started", body["error"])
	})

	t.Run("submit without consent conflicts", func(t *testing.T) {
		_, _ = ts.do(t, "POST", "/v1/member/login", "")
		_, _ = ts.do(t, "PATCH", "/v1/member/login/phone", `{"phone":"9876543210"}`)
		_, _ = ts.do(t, "PATCH", "/v1/member/login/email", `{"email":"member@example.com"}`)

		resp, body := ts.do(t, "POST", "/v1/member/login/submit", "")
		require.Equal(t, http.StatusConflict, resp.StatusCode)
		require.Equal(t, "submit_not_ready", body["error"])
	})

	t.Run("bad otp slot value is a validation error", func(t *testing.T) {
		_, _ = ts.do(t, "POST", "/v1/member/login", "")
		_, _ = ts.do(t, "PATCH", "/v1/member/login/phone", `{"phone":"9876543210"}`)
		_, _ = ts.do(t, "PATCH", "/v1/member/login/email", `{"email":"member@example.com"}`)
		_, _ = ts.do(t, "PATCH", "/v1/member/login/consent", `{"consent":true}`)
		_, _ = ts.do(t, "POST", "/v1/member/login/submit", "")

		resp, body := ts.do(t, "POST", "/v1/member/login/otp/digit", `{"index":0,"value":"x"}`)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, "validation_error", body["error"])
		require.Equal(t, "otp", body["field"])
	})
}

func TestAdminLoginOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, "POST", "/v1/admin/login", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "credentials", body["stage"])

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		resp, body := ts.do(t, "POST", "/v1/admin/login/credentials",
			`{"email":"admin@npp.com","password":"nope"}`)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "invalid_credentials", body["error"])
	})

	resp, body = ts.do(t, "POST", "/v1/admin/login/credentials",
		`{"email":"admin@npp.com","password":"admin123"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "otp_entry", body["stage"])

	resp, _ = ts.do(t, "POST", "/v1/admin/login/otp/paste", `{"code":"654321"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = ts.do(t, "POST", "/v1/admin/login/verify", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "/admin/dashboard", body["redirect_to"])

	resp, _ = ts.do(t, "GET", "/admin/dashboard", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouteGuardOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	t.Run("anonymous member is redirected to login", func(t *testing.T) {
		req, err := http.NewRequest("GET", ts.server.URL+"/profile", nil)
		require.NoError(t, err)

		client := &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		}
		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, "/login", resp.Header.Get("Location"))
	})

	t.Run("expired admin is redirected and purged", func(t *testing.T) {
		require.NoError(t, ts.sessions.IssueAdminSession(t.Context(), "admin@npp.com"))
		ts.clock.Advance(service.DefaultAdminTTL + time.Minute)

		req, err := http.NewRequest("GET", ts.server.URL+"/admin/dashboard", nil)
		require.NoError(t, err)

		client := &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		}
		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, "/admin/login", resp.Header.Get("Location"))
		require.False(t, ts.sessions.ValidateAdminSession(t.Context()))
	})
}

func TestLogoutOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	require.NoError(t, ts.sessions.IssueAdminSession(t.Context(), "admin@npp.com"))

	resp, body := ts.do(t, "POST", "/v1/admin/logout", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "/admin/login", body["redirect_to"])
	require.False(t, ts.sessions.ValidateAdminSession(t.Context()))
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, "GET", "/livez", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", body["status"])

	resp, body = ts.do(t, "GET", "/readyz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", body["checks"].(map[string]any)["store"])
}
