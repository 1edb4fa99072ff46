// Package policy decides whether a caller may invoke a tool. The table is
// deny-by-default: a tool name absent from every set is denied, so a catalog
// entry that is never added to a permission set is unreachable rather than
// accidentally open.
package policy

import (
	"fmt"

	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/identity"
)

// Decision is the outcome of a permission check. Never partial: a tool call
// is atomic with respect to authorization.
type Decision struct {
	Allowed bool
	Reason  string
}

// Requirement is the context a tool demands before it may run.
type Requirement int

const (
	// RequireNone — navigation-type tools, always allowed.
	RequireNone Requirement = iota
	// RequireRowScope — read-only lookups whose results the data store
	// already scopes with its own row-level rules; this layer only has to
	// not block them.
	RequireRowScope
	// RequireTenant — business account with a resolved tenant.
	RequireTenant
	// RequireLocation — RequireTenant plus a resolved active location.
	RequireLocation
	// RequireAdmin — RequireTenant plus an administrative tenant role.
	RequireAdmin
)

// adminRoles are the identity provider's administrative role strings.
var adminRoles = map[string]bool{
	"admin":   true,
	"creator": true,
}

// table maps every invokable tool to exactly one requirement tier.
var table = map[string]Requirement{
	"navigate_to_route":     RequireNone,
	"find_pet_and_navigate": RequireNone,

	"get_medical_history":       RequireRowScope,
	"summarize_medical_history": RequireRowScope,

	"list_locations":            RequireTenant,
	"list_location_assignments": RequireTenant,

	"schedule_appointment": RequireLocation,
	"get_available_slots":  RequireLocation,
	"search_inventory":     RequireLocation,

	"create_location":            RequireAdmin,
	"assign_user_to_location":    RequireAdmin,
	"remove_location_assignment": RequireAdmin,
}

// Names returns every tool the permission table covers.
func Names() []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	return names
}

// Registered reports whether the tool appears in the permission table.
// The dispatcher uses this at construction to verify the catalog and the
// table cover the same names.
func Registered(toolName string) bool {
	_, ok := table[toolName]
	return ok
}

// Bypass reports whether the tool skips rate limiting entirely.
// Only the open navigation tools qualify; an unknown name never does.
func Bypass(toolName string) bool {
	req, ok := table[toolName]
	return ok && req == RequireNone
}

func allow() Decision { return Decision{Allowed: true} }

func deny(format string, args ...any) Decision {
	return Decision{Allowed: false, Reason: fmt.Sprintf(format, args...)}
}

// Decide evaluates the permission table for a tool and caller.
func Decide(toolName string, caller *identity.CallerContext) Decision {
	req, ok := table[toolName]
	if !ok {
		return deny("tool %q is not registered for agent use", toolName)
	}

	switch req {
	case RequireNone, RequireRowScope:
		return allow()
	}

	// Every remaining tier is tenant-restricted.
	if caller.AccountKind != identity.AccountBusiness {
		return deny("requires business account")
	}
	if caller.TenantID == "" {
		return deny("requires active tenant")
	}

	switch req {
	case RequireLocation:
		if caller.ActiveLocationID == "" {
			return deny("requires active location")
		}
	case RequireAdmin:
		if !adminRoles[caller.TenantRole] {
			return deny("requires administrator role")
		}
	}

	return allow()
}
