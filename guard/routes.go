package guard

import "github.com/jrsteele09/go-session-lifecycle/users"

// Route path constants of the management application.
const (
	RouteRoot  = "/"
	RouteLogin = "/login"

	// Admin Routes
	RouteAdminUsers       = "/admin/users"
	RouteAdminDepartments = "/admin/departments"
	RouteAdminLicenses    = "/admin/licenses"

	// Supervisor Routes
	RouteSupervisorLicenses      = "/supervisor/licenses"
	RouteSupervisorLeaveRequests = "/supervisor/leave-requests"

	// Employee Routes
	RouteEmployeeLicenses      = "/employee/licenses"
	RouteEmployeeLeaveRequests = "/employee/leave-requests"

	// Analyst Routes
	RouteAnalystDashboard = "/analyst/dashboard"

	// Shared Routes
	RouteReports  = "/reports"
	RouteMessages = "/messages"
	RouteProfile  = "/profile"
)

var landingRoutes = map[users.RoleType]string{
	users.RoleAdmin:      RouteAdminUsers,
	users.RoleSupervisor: RouteSupervisorLicenses,
	users.RoleEmployee:   RouteEmployeeLicenses,
	users.RoleAnalyst:    RouteAnalystDashboard,
}

// LandingRoute is the home page of a role. It reports false for an unknown role.
func LandingRoute(role users.RoleType) (string, bool) {
	route, ok := landingRoutes[role]
	return route, ok
}

// DefaultRoutes declares the protected routes and the roles allowed on each.
func DefaultRoutes() []Route {
	all := users.Roles()
	return []Route{
		{Path: RouteAdminUsers, AllowedRoles: []users.RoleType{users.RoleAdmin}},
		{Path: RouteAdminDepartments, AllowedRoles: []users.RoleType{users.RoleAdmin}},
		{Path: RouteAdminLicenses, AllowedRoles: []users.RoleType{users.RoleAdmin}},
		{Path: RouteSupervisorLicenses, AllowedRoles: []users.RoleType{users.RoleSupervisor}},
		{Path: RouteSupervisorLeaveRequests, AllowedRoles: []users.RoleType{users.RoleSupervisor}},
		{Path: RouteEmployeeLicenses, AllowedRoles: []users.RoleType{users.RoleEmployee}},
		{Path: RouteEmployeeLeaveRequests, AllowedRoles: []users.RoleType{users.RoleEmployee}},
		{Path: RouteAnalystDashboard, AllowedRoles: []users.RoleType{users.RoleAnalyst}},
		{Path: RouteReports, AllowedRoles: []users.RoleType{users.RoleAdmin, users.RoleSupervisor, users.RoleAnalyst}},
		{Path: RouteMessages, AllowedRoles: all},
		{Path: RouteProfile, AllowedRoles: all},
	}
}
