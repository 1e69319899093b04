package http

import (
	"log/slog"
	"sync"

	"github.com/nyaypaksh/memberportal/internal/portal/oracle"
	"github.com/nyaypaksh/memberportal/internal/portal/service"
	"github.com/nyaypaksh/memberportal/internal/portal/store"
	"github.com/nyaypaksh/memberportal/pkg/clockx"
)

// FlowDeps carries everything needed to construct a login flow. Each flow
// gets its own passcode controller; the stores and services are shared.
type FlowDeps struct {
	Clock    clockx.Clock
	Oracle   *oracle.Client
	Sessions *service.SessionService
	Logger   *slog.Logger

	MemberOtp service.OtpConfig
	AdminOtp  service.OtpConfig

	MemberEphemeral store.Ephemeral
	AdminEphemeral  store.Ephemeral
}

// FlowRegistry tracks the single active login flow per role. Starting a new
// flow tears the previous one down first, so an abandoned attempt can never
// keep a passcode challenge alive in the background.
type FlowRegistry struct {
	deps FlowDeps

	mu     sync.Mutex
	member *service.MemberLoginFlow
	admin  *service.AdminLoginFlow
}

func NewFlowRegistry(deps FlowDeps) *FlowRegistry {
	return &FlowRegistry{deps: deps}
}

// StartMember replaces any active member flow with a fresh one.
func (r *FlowRegistry) StartMember() *service.MemberLoginFlow {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.member != nil {
		r.member.Close()
	}

	otp := service.NewOtpController(r.deps.Clock, r.deps.MemberOtp, r.deps.Oracle, r.deps.Logger)
	r.member = service.NewMemberLoginFlow(otp, r.deps.Sessions, r.deps.Oracle, r.deps.MemberEphemeral, r.deps.Logger)
	return r.member
}

// Member returns the active member flow, or nil when none was started.
func (r *FlowRegistry) Member() *service.MemberLoginFlow {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.member
}

// StartAdmin replaces any active admin flow with a fresh one.
func (r *FlowRegistry) StartAdmin() *service.AdminLoginFlow {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.admin != nil {
		r.admin.Close()
	}

	otp := service.NewOtpController(r.deps.Clock, r.deps.AdminOtp, r.deps.Oracle, r.deps.Logger)
	r.admin = service.NewAdminLoginFlow(otp, r.deps.Sessions, r.deps.Oracle, r.deps.AdminEphemeral, r.deps.Logger)
	return r.admin
}

// Admin returns the active admin flow, or nil when none was started.
func (r *FlowRegistry) Admin() *service.AdminLoginFlow {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.admin
}

// CloseMember tears down the active member flow, if any.
func (r *FlowRegistry) CloseMember() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.member != nil {
		r.member.Close()
		r.member = nil
	}
}

// CloseAdmin tears down the active admin flow, if any.
func (r *FlowRegistry) CloseAdmin() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.admin != nil {
		r.admin.Close()
		r.admin = nil
	}
}

// Close tears down every active flow. Called on shutdown.
func (r *FlowRegistry) Close() {
	r.CloseMember()
	r.CloseAdmin()
}
