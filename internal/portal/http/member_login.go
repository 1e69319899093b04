package http

import (
	"encoding/json"
	"net/http"

	"github.com/nyaypaksh/memberportal/internal/portal/domain"
	"github.com/nyaypaksh/memberportal/internal/portal/service"
	"github.com/nyaypaksh/memberportal/pkg/httpx"
	"github.com/nyaypaksh/memberportal/pkg/slogx"
)

// MemberLoginHandler exposes the staged member login flow.
type MemberLoginHandler struct {
	Flows    *FlowRegistry
	Sessions *service.SessionService
}

type memberStateResponse struct {
	service.MemberFlowState
	Focus *domain.FocusHint `json:"focus,omitempty"`
}

// HandleStart handles POST /v1/member/login. It begins a fresh login
// attempt, discarding any previous one.
func (h *MemberLoginHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	flow := h.Flows.StartMember()
	slogx.FromContext(r.Context()).Info("member login flow started", "flow_id", flow.ID())

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusCreated, memberStateResponse{MemberFlowState: flow.State()})
}

// HandleState handles GET /v1/member/login.
func (h *MemberLoginHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	flow := h.Flows.Member()
	if flow == nil {
		writeFlowNotStarted(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, memberStateResponse{MemberFlowState: flow.State()})
}

// HandlePhone handles PATCH /v1/member/login/phone.
func (h *MemberLoginHandler) HandlePhone(w http.ResponseWriter, r *http.Request) {
	flow := h.Flows.Member()
	if flow == nil {
		writeFlowNotStarted(w)
		return
	}

	var body struct {
		Phone string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequestBody(w)
		return
	}

	focus := flow.UpdatePhone(body.Phone)
	httpx.WriteJSON(w, http.StatusOK, memberStateResponse{MemberFlowState: flow.State(), Focus: &focus})
}

// HandleEmail handles PATCH /v1/member/login/email.
func (h *MemberLoginHandler) HandleEmail(w http.ResponseWriter, r *http.Request) {
	flow := h.Flows.Member()
	if flow == nil {
		writeFlowNotStarted(w)
		return
	}

	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequestBody(w)
		return
	}

	flow.UpdateEmail(body.Email)
	httpx.WriteJSON(w, http.StatusOK, memberStateResponse{MemberFlowState: flow.State()})
}

// HandleConsent handles PATCH /v1/member/login/consent.
func (h *MemberLoginHandler) HandleConsent(w http.ResponseWriter, r *http.Request) {
	flow := h.Flows.Member()
	if flow == nil {
		writeFlowNotStarted(w)
		return
	}

	var body struct {
		Consent bool `json:"consent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequestBody(w)
		return
	}

	flow.SetConsent(body.Consent)
	httpx.WriteJSON(w, http.StatusOK, memberStateResponse{MemberFlowState: flow.State()})
}

// HandleSubmit handles POST /v1/member/login/submit. At the email stage this
// issues the passcode; at the OTP stage it verifies the entered code and, on
// success, establishes the member session.
func (h *MemberLoginHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	flow := h.Flows.Member()
	if flow == nil {
		writeFlowNotStarted(w)
		return
	}

	result, err := flow.Submit(r.Context())
	if err != nil {
		writeFlowError(w, err)
		return
	}

	if result.RedirectTo != "" {
		// Login completed; the registry slot is stale.
		h.Flows.CloseMember()
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, result)
}

// HandleOtpDigit handles POST /v1/member/login/otp/digit.
func (h *MemberLoginHandler) HandleOtpDigit(w http.ResponseWriter, r *http.Request) {
	flow := h.Flows.Member()
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
	httpx.WriteJSON(w, http.StatusOK, memberStateResponse{MemberFlowState: flow.State(), Focus: &focus})
}

// HandleOtpPaste handles POST /v1/member/login/otp/paste.
func (h *MemberLoginHandler) HandleOtpPaste(w http.ResponseWriter, r *http.Request) {
	flow := h.Flows.Member()
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
	httpx.WriteJSON(w, http.StatusOK, memberStateResponse{MemberFlowState: flow.State(), Focus: &focus})
}

// HandleOtpResend handles POST /v1/member/login/otp/resend. During the
// cooldown this simply reports the unchanged state with 200; the cooldown
// remaining tells the caller when to try again.
func (h *MemberLoginHandler) HandleOtpResend(w http.ResponseWriter, r *http.Request) {
	flow := h.Flows.Member()
	if flow == nil {
		writeFlowNotStarted(w)
		return
	}

	result, ok := flow.ResendOtp(r.Context())
	if !ok {
		httpx.WriteJSON(w, http.StatusOK, memberStateResponse{MemberFlowState: flow.State()})
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, result)
}

// HandleLogout handles POST /v1/member/logout.
func (h *MemberLoginHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.Flows.CloseMember()
	h.Sessions.Revoke(r.Context(), domain.RoleMember)

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"redirect_to": service.MemberLoginPath})
}
