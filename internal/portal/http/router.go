package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/nyaypaksh/memberportal/internal/portal/domain"
	"github.com/nyaypaksh/memberportal/internal/portal/service"
	"github.com/nyaypaksh/memberportal/internal/portal/store"
	"github.com/nyaypaksh/memberportal/pkg/httpx"
	"github.com/nyaypaksh/memberportal/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	kv       store.KeyValue
	flows    *FlowRegistry
	Sessions *service.SessionService
	Guard    *service.RouteGuard
}

func NewRouter(buildVersion string, kv store.KeyValue, flows *FlowRegistry, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		kv:           kv,
		flows:        flows,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerMemberLogin()
	r.registerAdminLogin()
	r.registerDashboards()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerMemberLogin() {
	h := &MemberLoginHandler{Flows: r.flows, Sessions: r.Sessions}

	r.Mux.Handle("POST /v1/member/login", http.HandlerFunc(h.HandleStart))
	r.Mux.Handle("GET /v1/member/login", http.HandlerFunc(h.HandleState))
	r.Mux.Handle("PATCH /v1/member/login/phone", http.HandlerFunc(h.HandlePhone))
	r.Mux.Handle("PATCH /v1/member/login/email", http.HandlerFunc(h.HandleEmail))
	r.Mux.Handle("PATCH /v1/member/login/consent", http.HandlerFunc(h.HandleConsent))
	r.Mux.Handle("POST /v1/member/login/submit", http.HandlerFunc(h.HandleSubmit))
	r.Mux.Handle("POST /v1/member/login/otp/digit", http.HandlerFunc(h.HandleOtpDigit))
	r.Mux.Handle("POST /v1/member/login/otp/paste", http.HandlerFunc(h.HandleOtpPaste))
	r.Mux.Handle("POST /v1/member/login/otp/resend", http.HandlerFunc(h.HandleOtpResend))
	r.Mux.Handle("POST /v1/member/logout", http.HandlerFunc(h.HandleLogout))
}

func (r *Router) registerAdminLogin() {
	h := &AdminLoginHandler{Flows: r.flows, Sessions: r.Sessions}

	r.Mux.Handle("POST /v1/admin/login", http.HandlerFunc(h.HandleStart))
	r.Mux.Handle("GET /v1/admin/login", http.HandlerFunc(h.HandleState))
	r.Mux.Handle("POST /v1/admin/login/credentials", http.HandlerFunc(h.HandleCredentials))
	r.Mux.Handle("POST /v1/admin/login/verify", http.HandlerFunc(h.HandleVerify))
	r.Mux.Handle("POST /v1/admin/login/otp/digit", http.HandlerFunc(h.HandleOtpDigit))
	r.Mux.Handle("POST /v1/admin/login/otp/paste", http.HandlerFunc(h.HandleOtpPaste))
	r.Mux.Handle("POST /v1/admin/login/otp/resend", http.HandlerFunc(h.HandleOtpResend))
	r.Mux.Handle("POST /v1/admin/logout", http.HandlerFunc(h.HandleLogout))
}

func (r *Router) registerDashboards() {
	member := &MemberDashboardHandler{Sessions: r.Sessions}
	admin := &AdminDashboardHandler{Sessions: r.Sessions}

	r.Mux.Handle("GET /profile",
		GuardMiddleware(r.Guard, domain.RoleMember)(http.HandlerFunc(member.HandleGet)))
	r.Mux.Handle("PUT /profile/complete",
		GuardMiddleware(r.Guard, domain.RoleMember)(http.HandlerFunc(member.HandleProfileComplete)))
	r.Mux.Handle("GET /admin/dashboard",
		GuardMiddleware(r.Guard, domain.RoleAdmin)(http.HandlerFunc(admin.HandleGet)))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.kv))
}
