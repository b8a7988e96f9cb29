package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/classhub/trustgate/internal/api/middleware"
	"github.com/classhub/trustgate/internal/audit"
	"github.com/classhub/trustgate/internal/authz"
	"github.com/classhub/trustgate/internal/core"
	"github.com/classhub/trustgate/internal/service"
	"github.com/classhub/trustgate/internal/tasks"
	"github.com/classhub/trustgate/internal/token"
)

type Server struct {
	auth      *service.AuthService
	roles     *service.RoleService
	access    *service.AccessService
	auditor   core.Auditor
	verifier  *token.Verifier
	transport token.Transport
	public    *middleware.PublicPaths
	rules     *authz.RuleTable
	tasks     *tasks.Manager
	proxies   middleware.TrustedProxies
}

type Options struct {
	Auth      *service.AuthService
	Roles     *service.RoleService
	Auditor   core.Auditor
	Verifier  *token.Verifier
	Transport token.Transport
	Rules     *authz.RuleTable

	// Tasks enables the admin task routes when set.
	Tasks *tasks.Manager

	// PublicPaths defaults to DefaultPublicPaths.
	PublicPaths []string

	// TrustedProxies may set the client address through X-Forwarded-For.
	TrustedProxies middleware.TrustedProxies
}

func NewServer(opts Options) *Server {
	if opts.Auditor == nil {
		opts.Auditor = audit.NewNoopAuditor()
	}
	if opts.PublicPaths == nil {
		opts.PublicPaths = DefaultPublicPaths
	}

	return &Server{
		auth:      opts.Auth,
		roles:     opts.Roles,
		access:    service.NewAccessService(opts.Verifier, opts.Rules),
		auditor:   opts.Auditor,
		verifier:  opts.Verifier,
		transport: opts.Transport,
		public:    middleware.NewPublicPaths(opts.PublicPaths...),
		rules:     opts.Rules,
		tasks:     opts.Tasks,
		proxies:   opts.TrustedProxies,
	}
}

// Routes returns the public API handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// public routes
	mux.HandleFunc("GET "+HealthCheckRoute, s.handleHealth)
	mux.HandleFunc("GET "+AboutRoute, s.handleAbout)
	mux.Handle("GET "+MetricsRoute, promhttp.Handler())

	// token issuer routes
	mux.HandleFunc("POST "+LoginRoute, s.handleLogin)
	mux.HandleFunc("POST "+RefreshRoute, s.handleRefresh)
	mux.HandleFunc("POST "+LogoutRoute, s.handleLogout)
	mux.HandleFunc("GET "+ValidateRoute, s.handleValidate)

	// protected routes
	mux.HandleFunc("GET "+MeRoute, s.handleMe)

	readRoles := middleware.Authorize(authz.AnyOf(
		authz.Owner(authz.PathOwner("id")),
		authz.AnyRole(core.RoleAdmin, core.RoleTeacher),
	))
	mux.Handle("GET "+UserRolesRoute, readRoles(http.HandlerFunc(s.handleListRoles)))
	mux.HandleFunc("POST "+UserRolesRoute, s.handleAssignRole)
	mux.HandleFunc("DELETE "+UserRoleRoute, s.handleRevokeRole)

	// admin routes
	admin := middleware.Authorize(authz.AnyRole(core.RoleAdmin))
	mux.Handle("GET "+ListAuditsRoute, admin(http.HandlerFunc(s.handleAdminAudit)))
	mux.Handle("POST "+ExplainRoute, admin(http.HandlerFunc(s.handleExplain)))
	if s.tasks != nil {
		mux.Handle("GET "+ListTasksRoute, admin(http.HandlerFunc(s.handleListTasks)))
		mux.Handle("POST "+TriggerTaskRoute, admin(http.HandlerFunc(s.handleTriggerTask)))
		mux.Handle("GET "+LogsForTaskRoute, admin(http.HandlerFunc(s.handleTaskLogs)))
	}

	authenticated := middleware.Authenticate(s.verifier, s.transport, s.public)(
		middleware.EnforceRules(s.rules)(mux))

	return middleware.Chain(authenticated)
}

// InternalRoutes returns the handler of the service-to-service listener.
// It applies no end-user authentication and must only be reachable from the
// trusted network.
func (s *Server) InternalRoutes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+HealthCheckRoute, s.handleHealth)
	mux.HandleFunc("GET "+InternalUserRolesRoute, s.handleListRoles)
	mux.HandleFunc("POST "+InternalUserRolesRoute, s.handleInternalAssignRoles)
	mux.HandleFunc("DELETE "+InternalUserRoleRoute, s.handleInternalRevokeRole)
	return middleware.Chain(mux)
}
