package http

import (
	"net/http"

	"github.com/nyaypaksh/memberportal/internal/portal/domain"
	"github.com/nyaypaksh/memberportal/internal/portal/service"
	"github.com/nyaypaksh/memberportal/pkg/httpx"
	"github.com/nyaypaksh/memberportal/pkg/slogx"
)

// GuardMiddleware gates a protected surface on session validity for the
// given role. A denied request is redirected to the role's login screen with
// 303 See Other; by the time the redirect is issued, an invalid admin
// session has already been purged by the guard itself.
func GuardMiddleware(guard *service.RouteGuard, role domain.Role) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := guard.Evaluate(r.Context(), role)
			if !decision.Allow {
				slogx.FromContext(r.Context()).Info("route guard denied",
					"role", role, "path", r.URL.Path, "redirect", decision.RedirectTo)
				http.Redirect(w, r, decision.RedirectTo, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
