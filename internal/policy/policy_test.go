package policy

import (
	"testing"

	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/identity"
)

func businessCaller() *identity.CallerContext {
	return &identity.CallerContext{
		CallerID:         "user-1",
		TenantID:         "tenant-1",
		ActiveLocationID: "loc-1",
		AccountKind:      identity.AccountBusiness,
		TenantRole:       "admin",
	}
}

func TestDecide_UnknownToolDenied(t *testing.T) {
	unknown := []string{"", "drop_all_tables", "get_medical_historyy", "Navigate_To_Route"}
	for _, name := range unknown {
		d := Decide(name, businessCaller())
		if d.Allowed {
			t.Fatalf("expected deny for unknown tool %q", name)
		}
		if d.Reason == "" {
			t.Fatalf("expected a reason for unknown tool %q", name)
		}
	}
}

func TestDecide_OpenToolsAllowedWithoutContext(t *testing.T) {
	caller := &identity.CallerContext{CallerID: "user-1", AccountKind: identity.AccountIndividual}
	for _, name := range []string{"navigate_to_route", "find_pet_and_navigate"} {
		if d := Decide(name, caller); !d.Allowed {
			t.Fatalf("expected allow for open tool %q, got deny: %s", name, d.Reason)
		}
	}
}

func TestDecide_RowScopedToolsNotBlockedHere(t *testing.T) {
	caller := &identity.CallerContext{CallerID: "user-1", AccountKind: identity.AccountIndividual}
	for _, name := range []string{"get_medical_history", "summarize_medical_history"} {
		if d := Decide(name, caller); !d.Allowed {
			t.Fatalf("expected allow for row-scoped tool %q, got deny: %s", name, d.Reason)
		}
	}
}

func TestDecide_IndividualDeniedAllTenantRestricted(t *testing.T) {
	restricted := []string{
		"list_locations", "list_location_assignments",
		"schedule_appointment", "get_available_slots", "search_inventory",
		"create_location", "assign_user_to_location", "remove_location_assignment",
	}
	// Even with every other field populated, an individual account is denied.
	caller := businessCaller()
	caller.AccountKind = identity.AccountIndividual
	for _, name := range restricted {
		d := Decide(name, caller)
		if d.Allowed {
			t.Fatalf("expected deny for individual on %q", name)
		}
		if d.Reason != "requires business account" {
			t.Fatalf("tool %q: unexpected reason %q", name, d.Reason)
		}
	}
}

func TestDecide_TenantRequired(t *testing.T) {
	caller := businessCaller()
	caller.TenantID = ""
	d := Decide("list_locations", caller)
	if d.Allowed || d.Reason != "requires active tenant" {
		t.Fatalf("expected tenant denial, got %+v", d)
	}
}

func TestDecide_LocationRequired(t *testing.T) {
	caller := businessCaller()
	caller.ActiveLocationID = ""
	for _, name := range []string{"schedule_appointment", "get_available_slots", "search_inventory"} {
		d := Decide(name, caller)
		if d.Allowed || d.Reason != "requires active location" {
			t.Fatalf("tool %q: expected location denial, got %+v", name, d)
		}
	}
	// Tenant-only tools don't need a location.
	if d := Decide("list_locations", caller); !d.Allowed {
		t.Fatalf("list_locations should not require a location: %s", d.Reason)
	}
}

func TestDecide_AdminRoleRequired(t *testing.T) {
	caller := businessCaller()
	caller.TenantRole = "member"
	for _, name := range []string{"create_location", "assign_user_to_location", "remove_location_assignment"} {
		d := Decide(name, caller)
		if d.Allowed || d.Reason != "requires administrator role" {
			t.Fatalf("tool %q: expected admin denial, got %+v", name, d)
		}
	}

	for _, role := range []string{"admin", "creator"} {
		caller.TenantRole = role
		if d := Decide("create_location", caller); !d.Allowed {
			t.Fatalf("role %q should qualify as administrative: %s", role, d.Reason)
		}
	}
}

func TestBypass_OnlyOpenTools(t *testing.T) {
	if !Bypass("navigate_to_route") || !Bypass("find_pet_and_navigate") {
		t.Fatal("open navigation tools must bypass rate limiting")
	}
	for _, name := range []string{"get_medical_history", "schedule_appointment", "nonexistent"} {
		if Bypass(name) {
			t.Fatalf("tool %q must not bypass rate limiting", name)
		}
	}
}

func TestTable_EveryToolInExactlyOneTier(t *testing.T) {
	// The table is a single map, so a name cannot appear twice; this guards
	// the full expected catalog being present.
	expected := []string{
		"navigate_to_route", "find_pet_and_navigate",
		"get_medical_history", "summarize_medical_history",
		"list_locations", "list_location_assignments",
		"schedule_appointment", "get_available_slots", "search_inventory",
		"create_location", "assign_user_to_location", "remove_location_assignment",
	}
	if len(Names()) != len(expected) {
		t.Fatalf("permission table has %d entries, want %d", len(Names()), len(expected))
	}
	for _, name := range expected {
		if !Registered(name) {
			t.Fatalf("tool %q missing from permission table", name)
		}
	}
}
