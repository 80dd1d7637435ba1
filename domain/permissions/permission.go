package permissions

// KnownPermissions is the fixed, process-wide enumeration of permission
// strings the platform understands. Role and delegation grants outside
// this set are rejected at creation time.
var KnownPermissions = map[string]bool{
	"project:read":   true,
	"project:write":  true,
	"project:delete": true,
	"secret:read":    true,
	"secret:write":   true,
	"deploy:read":    true,
	"deploy:write":   true,
	"agent:spawn":    true,
	"agent:stop":     true,
	"webhook:manage": true,
	"admin:users":    true,
	"admin:roles":    true,
	"admin:delegate": true,
}

// IsKnownPermission reports whether p belongs to the fixed permission set.
func IsKnownPermission(p string) bool {
	return KnownPermissions[p]
}
