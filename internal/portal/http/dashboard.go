package http

import (
	"encoding/json"
	"net/http"

	"github.com/nyaypaksh/memberportal/internal/portal/service"
	"github.com/nyaypaksh/memberportal/pkg/httpx"
)

// MemberDashboardHandler serves the member's protected area. The route guard
// has already vouched for the session by the time these run.
type MemberDashboardHandler struct {
	Sessions *service.SessionService
}

// HandleGet handles GET /profile.
func (h *MemberDashboardHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, _ := h.Sessions.StoredMemberIdentity(ctx)
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"phone":            identity.Phone,
		"email":            identity.Email,
		"name":             identity.Name,
		"profile_complete": h.Sessions.MemberProfileComplete(ctx),
	})
}

// HandleProfileComplete handles PUT /profile/complete.
func (h *MemberDashboardHandler) HandleProfileComplete(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Complete bool `json:"complete"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequestBody(w)
		return
	}

	if err := h.Sessions.SetMemberProfileComplete(r.Context(), body.Complete); err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "failed to persist profile state")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"profile_complete": body.Complete})
}

// AdminDashboardHandler serves the admin's protected area.
type AdminDashboardHandler struct {
	Sessions *service.SessionService
}

// HandleGet handles GET /admin/dashboard.
func (h *AdminDashboardHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"area":   "admin",
	})
}
