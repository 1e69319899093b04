package http

import (
	"encoding/json"
	"net/http"

	"github.com/nyaypaksh/memberportal/internal/portal/domain"
	"github.com/nyaypaksh/memberportal/internal/portal/service"
	"github.com/nyaypaksh/memberportal/pkg/httpx"
	"github.com/nyaypaksh/memberportal/pkg/slogx"
)

// AdminLoginHandler exposes the two-step admin login flow.
type AdminLoginHandler struct {
	Flows    *FlowRegistry
	Sessions *service.SessionService
}

type adminStateResponse struct {
	service.AdminFlowState
	Focus *domain.FocusHint `json:"focus,omitempty"`
}

// HandleStart handles POST /v1/admin/login. It begins a fresh login attempt,
// discarding any previous one.
func (h *AdminLoginHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	flow := h.Flows.StartAdmin()
	slogx.FromContext(r.Context()).Info("admin login flow started", "flow_id", flow.ID())

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusCreated, adminStateResponse{AdminFlowState: flow.State()})
}

// HandleState handles GET /v1/admin/login.
func (h *AdminLoginHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	flow := h.Flows.Admin()
	if flow == nil {
		writeFlowNotStarted(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, adminStateResponse{AdminFlowState: flow.State()})
}

// HandleCredentials handles POST /v1/admin/login/credentials. A successful
// check moves the flow to the OTP stage and dispatches the passcode.
func (h *AdminLoginHandler) HandleCredentials(w http.ResponseWriter, r *http.Request) {
	flow := h.Flows.Admin()
	if flow == nil {
		writeFlowNotStarted(w)
		return
	}

	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequestBody(w)
		return
	}

	result, err := flow.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		writeFlowError(w, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, result)
}

// HandleVerify handles POST /v1/admin/login/verify. On success the admin
// session is established and the flow slot released.
func (h *AdminLoginHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	flow := h.Flows.Admin()
	if flow == nil {
		writeFlowNotStarted(w)
		return
	}

	result, err := flow.VerifyOtp(r.Context())
	if err != nil {
		writeFlowError(w, err)
		return
	}

	h.Flows.CloseAdmin()

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, result)
}

// HandleOtpDigit handles POST /v1/admin/login/otp/digit.
func (h *AdminLoginHandler) HandleOtpDigit(w http.ResponseWriter, r *http.Request) {
	flow := h.Flows.Admin()
	if flow == nil {
		writeFlowNotStarted(w)
		return
	}

	var body struct {
		Index int    `json:"index"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequestBody(w)
		return
	}

	focus, err := flow.SetOtpDigit(body.Index, body.Value)
	if err != nil {
		writeFlowError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, adminStateResponse{AdminFlowState: flow.State(), Focus: &focus})
}

// HandleOtpPaste handles POST /v1/admin/login/otp/paste.
func (h *AdminLoginHandler) HandleOtpPaste(w http.ResponseWriter, r *http.Request) {
	flow := h.Flows.Admin()
	if flow == nil {
		writeFlowNotStarted(w)
		return
	}

	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequestBody(w)
		return
	}

	focus, err := flow.PasteOtp(body.Code)
	if err != nil {
		writeFlowError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, adminStateResponse{AdminFlowState: flow.State(), Focus: &focus})
}

// HandleOtpResend handles POST /v1/admin/login/otp/resend.
func (h *AdminLoginHandler) HandleOtpResend(w http.ResponseWriter, r *http.Request) {
	flow := h.Flows.Admin()
	if flow == nil {
		writeFlowNotStarted(w)
		return
	}

	result, ok := flow.ResendOtp(r.Context())
	if !ok {
		httpx.WriteJSON(w, http.StatusOK, adminStateResponse{AdminFlowState: flow.State()})
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, result)
}

// HandleLogout handles POST /v1/admin/logout. Revocation also clears any
// in-flight verification markers for the admin principal.
func (h *AdminLoginHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.Flows.CloseAdmin()
	h.Sessions.Revoke(r.Context(), domain.RoleAdmin)

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"redirect_to": service.AdminLoginPath})
}
