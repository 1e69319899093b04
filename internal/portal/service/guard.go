package service

import (
	"context"

	"github.com/nyaypaksh/memberportal/internal/portal/domain"
)

// Decision is a route guard verdict. When Allow is false, RedirectTo names
// the login screen the caller should be sent to.
type Decision struct {
	Allow      bool   `json:"allow"`
	RedirectTo string `json:"redirect_to,omitempty"`
}

// RouteGuard gates access to protected surfaces on session validity. It
// holds no state of its own; every Evaluate consults the session service
// fresh, so repeated calls against unchanged stores return the same verdict.
type RouteGuard struct {
	Sessions *SessionService
}

// Evaluate checks whether a principal of the given role may enter its
// protected area. An invalid admin session has already been purged by the
// validation itself, so a denied admin arrives at the login screen with no
// residual session keys behind them.
func (g *RouteGuard) Evaluate(ctx context.Context, role domain.Role) Decision {
	switch role {
	case domain.RoleAdmin:
		if g.Sessions.ValidateAdminSession(ctx) {
			return Decision{Allow: true}
		}
		return Decision{RedirectTo: AdminLoginPath}
	default:
		if g.Sessions.ValidateMemberSession(ctx) {
			return Decision{Allow: true}
		}
		return Decision{RedirectTo: MemberLoginPath}
	}
}
