package api

import "github.com/classhub/trustgate/internal/paths"

const (
	HealthCheckRoute = paths.Health
	AboutRoute       = paths.About
	MetricsRoute     = paths.Metrics

	AuthParent    = paths.AuthParent
	LoginRoute    = paths.Login
	RefreshRoute  = paths.Refresh
	LogoutRoute   = paths.Logout
	ValidateRoute = paths.Validate

	MeRoute = "/api/v1/me"

	UserRolesRoute = "/api/v1/users/{id}/roles"
	UserRoleRoute  = UserRolesRoute + "/{role}"

	AdminParent     = "/api/v1/admin/"
	ListAuditsRoute = AdminParent + "audits"
	ExplainRoute    = AdminParent + "explain"

	ListTasksRoute   = AdminParent + "tasks"
	TriggerTaskRoute = ListTasksRoute + "/{name}/trigger"
	LogsForTaskRoute = ListTasksRoute + "/{name}/logs"

	InternalUserRolesRoute = "/internal/users/{id}/roles"
	InternalUserRoleRoute  = InternalUserRolesRoute + "/{role}"
)

// DefaultPublicPaths are reachable without a credential.
// Logout is public so that expired tokens can still end their session.
var DefaultPublicPaths = []string{
	LoginRoute,
	RefreshRoute,
	LogoutRoute,
	ValidateRoute,
	HealthCheckRoute,
	AboutRoute,
	MetricsRoute,
	paths.Docs,
}
