package server

// Route path constants, relative to the namespace prefix (NAMESPACE, default "tsg")
const (
	RouteVersions = "/versions"

	// SSO
	RouteLogin    = "/login"
	RouteCallback = "/_sso"
	RouteLogout   = "/logout"

	// Operations
	RouteMetrics = "/metrics"

	// Signed proxy to a configured upstream
	RouteAPIProxy = "/api/{upstream}/{path...}"
)

// Strategy names routes bind to by name
const (
	StrategyBearer = "bearer"
)
