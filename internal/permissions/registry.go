package permissions

// Central registry of all capabilities in the application.
//
// HOW IT WORKS:
//  1. A developer registers ONE capability here.
//  2. The same key is used to protect API routes (guard.RequirePermission)
//     and by UI clients querying their effective capability set.
//  3. An admin assigns the capability to groups through the API.
//
// Registered capabilities are synced to the database on startup (see
// sync.go). The registry declares minimum guarantees only: grants that
// exist in the database but not here are left alone.

// KeyAdminManage is the top administrative capability. It gates all user,
// group, permission, and settings management, and can never be removed
// from the Admins group.
const KeyAdminManage Key = "admin.manage"

// KeyPermissionsList gates the read-only permissions overview.
const KeyPermissionsList Key = "permissions.list"

// Registered describes one code-declared capability.
type Registered struct {
	// Key is the unique capability key.
	Key Key `json:"key"`

	// Description is the human-readable label shown in admin tooling.
	Description string `json:"description"`

	// IncludesAccess documents what the capability unlocks. Purely
	// informational.
	IncludesAccess []string `json:"includesAccess"`

	// DefaultAdmin marks capabilities that are granted to the Admins
	// group automatically on startup.
	DefaultAdmin bool `json:"defaultAdmin"`
}

// Registry lists every capability the application declares. Add new
// entries here when creating protected features.
var Registry = []Registered{
	{
		Key:         KeyAdminManage,
		Description: "Manage users, groups, permissions and settings",
		IncludesAccess: []string{
			"API: /api/users (user listing)",
			"API: /api/users/admin/* (user management)",
			"API: /api/groups/* (group management)",
			"API: /api/permissions/* (permission management)",
			"API: /api/settings/update (app settings)",
		},
		DefaultAdmin: true,
	},
	{
		Key:         KeyPermissionsList,
		Description: "View the permissions overview",
		IncludesAccess: []string{
			"API: /api/permissions/registered",
		},
		DefaultAdmin: false,
	},
}

// DefaultAdminCapabilities returns the registry entries that must default
// into the Admins group.
func DefaultAdminCapabilities() []Registered {
	var out []Registered
	for _, r := range Registry {
		if r.DefaultAdmin {
			out = append(out, r)
		}
	}
	return out
}

// IsRegistered reports whether a key is declared in the registry. Grants
// for unregistered keys are still valid; this only informs admin tooling.
func IsRegistered(key Key) bool {
	for _, r := range Registry {
		if r.Key == key {
			return true
		}
	}
	return false
}
