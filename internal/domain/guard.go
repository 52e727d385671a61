package domain

// GateKind selects whether a guard admits authenticated or unauthenticated visitors.
type GateKind string

const (
	GateRequireAuth   GateKind = "require_auth"
	GateRequireNoAuth GateKind = "require_no_auth"
)

// RouteGuardConfig is declared once per protected route subtree.
type RouteGuardConfig struct {
	Domain       Domain
	Gate         GateKind
	AllowedRoles []Role
}

// Routes holds the redirect targets of both domains.
type Routes struct {
	AdminLogin   string
	AdminLanding string
	UserLogin    string
	UserLanding  string
	VendorHome   string
	RoleSelect   string
}

// DefaultRoutes returns the storefront's standard route layout.
func DefaultRoutes() Routes {
	return Routes{
		AdminLogin:   "/admin/login",
		AdminLanding: "/admin",
		UserLogin:    "/login",
		UserLanding:  "/",
		VendorHome:   "/vendor",
		RoleSelect:   "/select-role",
	}
}

// Login returns the login route of d.
func (r Routes) Login(d Domain) string {
	if d == DomainAdmin {
		return r.AdminLogin
	}
	return r.UserLogin
}

// Landing returns the default authenticated landing route of d.
func (r Routes) Landing(d Domain) string {
	if d == DomainAdmin {
		return r.AdminLanding
	}
	return r.UserLanding
}

// Home returns the landing route for a user-domain role.
func (r Routes) Home(role Role) string {
	if role == RoleVendor {
		return r.VendorHome
	}
	return r.UserLanding
}
