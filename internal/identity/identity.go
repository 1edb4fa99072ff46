// Package identity turns an inbound bearer token into a normalized caller
// context: who is calling, which tenant they act for, and what role they
// hold there.
package identity

import (
	"context"
	"errors"
)

// AccountKind distinguishes consumer accounts from clinic accounts.
type AccountKind string

const (
	AccountIndividual AccountKind = "individual"
	AccountBusiness   AccountKind = "business"
)

// ErrUnauthenticated is returned when no usable identity can be derived
// from the presented token.
var ErrUnauthenticated = errors.New("unauthenticated")

// CallerContext holds the resolved identity facts for one dispatch.
// It is built once per request and never mutated.
type CallerContext struct {
	CallerID         string
	TenantID         string // empty for callers without a tenant
	ActiveLocationID string // empty when the tenant has no active location
	AccountKind      AccountKind
	TenantRole       string // free-form role string from the identity provider
}

// ThrottleKey is the identity call volume is counted against: the tenant
// when one is present, otherwise the individual caller.
func (c *CallerContext) ThrottleKey() string {
	if c.TenantID != "" {
		return "tenant:" + c.TenantID
	}
	return "user:" + c.CallerID
}

// Directory is the identity-provider side lookup used to enrich token
// claims. Implementations must tolerate missing rows.
type Directory interface {
	// AccountKind returns the stored account kind for a user, or "" if unset.
	AccountKind(ctx context.Context, userID string) (string, error)

	// ActiveLocation returns the tenant's active location id, or "" if none
	// is configured.
	ActiveLocation(ctx context.Context, tenantID string) (string, error)
}
