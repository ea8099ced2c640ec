package authcore

import (
	"errors"
	"fmt"
	"sort"
)

// Role names. The admin role is special-cased throughout: it holds the
// full catalog implicitly, with no grant rows.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleUser    = "user"
	RoleGuest   = "guest"
)

// Permission identifiers shipped with DefaultCatalog. PermAPIAccess is the
// baseline capability: it can never be removed or temporarily revoked;
// only full account deactivation takes it away.
const (
	PermAPIAccess    = "api:access"
	PermUsersRead    = "users:read"
	PermUsersWrite   = "users:write"
	PermUsersManage  = "users:manage"
	PermAuditRead    = "audit:read"
	PermReportRead   = "report:read"
	PermReportUpdate = "report:update"
	PermReportDelete = "report:delete"
)

// Catalog is the closed set of valid permission identifiers plus the
// role-to-defaults mapping. It is immutable after construction; unknown
// identifiers are rejected at every boundary, never silently stored.
type Catalog struct {
	perms        map[string]struct{}
	ordered      []string
	roleDefaults map[string][]string
}

// NewCatalog builds a catalog from a permission list and role defaults.
// Every role default must name a catalog member. The admin role takes no
// explicit defaults; listing it is an error.
func NewCatalog(permissions []string, roleDefaults map[string][]string) (*Catalog, error) {
	if len(permissions) == 0 {
		return nil, errors.New("catalog requires at least one permission")
	}

	perms := make(map[string]struct{}, len(permissions))
	ordered := make([]string, 0, len(permissions))
	for _, p := range permissions {
		if p == "" {
			return nil, errors.New("catalog permission name cannot be empty")
		}
		if _, dup := perms[p]; dup {
			return nil, fmt.Errorf("catalog permission %q listed twice", p)
		}
		perms[p] = struct{}{}
		ordered = append(ordered, p)
	}
	sort.Strings(ordered)

	defaults := make(map[string][]string, len(roleDefaults))
	for role, rolePerms := range roleDefaults {
		if role == "" {
			return nil, errors.New("role name cannot be empty")
		}
		if role == RoleAdmin {
			return nil, errors.New("admin role holds the full catalog implicitly")
		}
		cp := make([]string, 0, len(rolePerms))
		for _, p := range rolePerms {
			if _, ok := perms[p]; !ok {
				return nil, fmt.Errorf("role %q default %q is not in the catalog", role, p)
			}
			cp = append(cp, p)
		}
		defaults[role] = cp
	}

	return &Catalog{perms: perms, ordered: ordered, roleDefaults: defaults}, nil
}

// DefaultCatalog returns the built-in catalog and role defaults.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(
		[]string{
			PermAPIAccess,
			PermUsersRead,
			PermUsersWrite,
			PermUsersManage,
			PermAuditRead,
			PermReportRead,
			PermReportUpdate,
			PermReportDelete,
		},
		map[string][]string{
			RoleManager: {PermAPIAccess, PermUsersRead, PermReportRead, PermReportUpdate, PermReportDelete},
			RoleUser:    {PermAPIAccess, PermReportRead},
			RoleGuest:   {PermAPIAccess},
		},
	)
	if err != nil {
		// The built-in tables are internally consistent.
		panic(err)
	}
	return c
}

// Has reports catalog membership.
func (c *Catalog) Has(name string) bool {
	_, ok := c.perms[name]
	return ok
}

// Permissions returns every identifier in sorted order.
func (c *Catalog) Permissions() []string {
	out := make([]string, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// RoleDefaults returns the default permission set for a role. Admin gets
// the full catalog; unknown roles get nothing.
func (c *Catalog) RoleDefaults(role string) []string {
	if role == RoleAdmin {
		return c.Permissions()
	}
	defaults, ok := c.roleDefaults[role]
	if !ok {
		return nil
	}
	out := make([]string, len(defaults))
	copy(out, defaults)
	return out
}

// KnownRole reports whether a role name is admin or has configured
// defaults.
func (c *Catalog) KnownRole(role string) bool {
	if role == RoleAdmin {
		return true
	}
	_, ok := c.roleDefaults[role]
	return ok
}
