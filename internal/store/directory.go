package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// AccountKind implements identity.Directory. Returns "" when the user has
// no profile row or the kind is unset.
func (p *Postgres) AccountKind(ctx context.Context, userID string) (string, error) {
	var kind string
	err := p.pool.QueryRow(ctx, `
		SELECT COALESCE(account_kind, '') FROM profiles WHERE user_id = $1
	`, userID).Scan(&kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("AccountKind: %w", err)
	}
	return kind, nil
}

// ActiveLocation implements identity.Directory. Returns "" when the tenant
// has no active location configured.
func (p *Postgres) ActiveLocation(ctx context.Context, tenantID string) (string, error) {
	var loc string
	err := p.pool.QueryRow(ctx, `
		SELECT COALESCE(active_location_id::text, '') FROM tenants WHERE id = $1
	`, tenantID).Scan(&loc)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("ActiveLocation: %w", err)
	}
	return loc, nil
}
