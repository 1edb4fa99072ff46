package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/fault"
	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/identity"
	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/schedule"
)

// Postgres wraps a pgx pool and hands out caller-scoped views of it.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store on an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Connect opens and pings a pool for the given DSN.
func Connect(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the underlying pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Scoped returns a data-access handle bound to one caller. Queries made
// through it filter on the caller's own identity, never an elevated one.
func (p *Postgres) Scoped(caller *identity.CallerContext) *Scoped {
	return &Scoped{pool: p.pool, caller: caller}
}

// Scoped is the per-dispatch data-access handle.
type Scoped struct {
	pool   *pgxpool.Pool
	caller *identity.CallerContext
}

// FindPetByName finds a pet by case-insensitive name among the pets visible
// to the caller: their own, or their clinic's patients.
func (s *Scoped) FindPetByName(ctx context.Context, name string) (*Pet, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, owner_id, COALESCE(clinic_id, ''), name, species
		FROM pets
		WHERE (owner_id = $1 OR clinic_id = NULLIF($2, ''))
		  AND lower(name) = lower($3)
		ORDER BY owner_id = $1 DESC
		LIMIT 1
	`, s.caller.CallerID, s.caller.TenantID, name)

	var pet Pet
	if err := row.Scan(&pet.ID, &pet.OwnerID, &pet.ClinicID, &pet.Name, &pet.Species); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("pet %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("FindPetByName: %w", err)
	}
	return &pet, nil
}

// MedicalHistory returns a pet's records, newest first, if the caller owns
// the pet or it is a patient of the caller's clinic.
func (s *Scoped) MedicalHistory(ctx context.Context, petID string) ([]MedicalRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id, r.pet_id, r.kind, r.description, COALESCE(r.veterinarian, ''), r.visited_at
		FROM medical_records r
		JOIN pets p ON p.id = r.pet_id
		WHERE r.pet_id = $1
		  AND (p.owner_id = $2 OR p.clinic_id = NULLIF($3, ''))
		ORDER BY r.visited_at DESC
	`, petID, s.caller.CallerID, s.caller.TenantID)
	if err != nil {
		return nil, fmt.Errorf("MedicalHistory: %w", err)
	}
	defer rows.Close()

	var out []MedicalRecord
	for rows.Next() {
		var r MedicalRecord
		if err := rows.Scan(&r.ID, &r.PetID, &r.Kind, &r.Description, &r.Veterinarian, &r.VisitedAt); err != nil {
			return nil, fmt.Errorf("MedicalHistory scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AppointmentsOn returns the non-cancelled bookings at a location on a UTC day.
func (s *Scoped) AppointmentsOn(ctx context.Context, locationID string, day time.Time) ([]schedule.Booking, error) {
	y, m, d := day.UTC().Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	rows, err := s.pool.Query(ctx, `
		SELECT start_at, duration_minutes
		FROM appointments
		WHERE location_id = $1
		  AND tenant_id = $2
		  AND status <> 'cancelled'
		  AND start_at >= $3 AND start_at < $4
		ORDER BY start_at
	`, locationID, s.caller.TenantID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("AppointmentsOn: %w", err)
	}
	defer rows.Close()

	var out []schedule.Booking
	for rows.Next() {
		var start time.Time
		var mins int
		if err := rows.Scan(&start, &mins); err != nil {
			return nil, fmt.Errorf("AppointmentsOn scan: %w", err)
		}
		out = append(out, schedule.Booking{Start: start.UTC(), Duration: time.Duration(mins) * time.Minute})
	}
	return out, rows.Err()
}

// CreateAppointment inserts a booking at the caller's active location. The
// appointments table carries an exclusion constraint on
// (location_id, tstzrange(start_at, start_at + duration)); a violation is
// the authoritative overlap signal and surfaces as a conflict fault, not a
// generic error.
func (s *Scoped) CreateAppointment(ctx context.Context, in AppointmentInput) (*Appointment, error) {
	appt := &Appointment{
		TenantID:        s.caller.TenantID,
		LocationID:      s.caller.ActiveLocationID,
		PetName:         in.PetName,
		OwnerName:       in.OwnerName,
		StartAt:         in.StartAt.UTC(),
		DurationMinutes: in.DurationMinutes,
		Reason:          in.Reason,
		Status:          "confirmed",
		CreatedBy:       s.caller.CallerID,
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO appointments
			(tenant_id, location_id, pet_name, owner_name, start_at, duration_minutes, reason, status, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,'confirmed',$8)
		RETURNING id
	`, appt.TenantID, appt.LocationID, appt.PetName, appt.OwnerName,
		appt.StartAt, appt.DurationMinutes, appt.Reason, appt.CreatedBy)

	if err := row.Scan(&appt.ID); err != nil {
		if isOverlapViolation(err) {
			return nil, fault.Wrap(fault.CodeConflict, err, "slot is no longer available")
		}
		return nil, fmt.Errorf("CreateAppointment: %w", err)
	}
	return appt, nil
}

// SearchInventory searches the active location's stock by name or SKU.
func (s *Scoped) SearchInventory(ctx context.Context, query string) ([]InventoryItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT i.id, i.location_id, i.name, COALESCE(i.sku, ''), i.quantity, i.unit_price
		FROM inventory_items i
		JOIN locations l ON l.id = i.location_id
		WHERE i.location_id = $1
		  AND l.tenant_id = $2
		  AND (i.name ILIKE '%' || $3 || '%' OR i.sku ILIKE '%' || $3 || '%')
		ORDER BY i.name
		LIMIT 50
	`, s.caller.ActiveLocationID, s.caller.TenantID, query)
	if err != nil {
		return nil, fmt.Errorf("SearchInventory: %w", err)
	}
	defer rows.Close()

	var out []InventoryItem
	for rows.Next() {
		var it InventoryItem
		if err := rows.Scan(&it.ID, &it.LocationID, &it.Name, &it.SKU, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("SearchInventory scan: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// CreateLocation adds a site to the caller's tenant.
func (s *Scoped) CreateLocation(ctx context.Context, name, address string) (*Location, error) {
	loc := &Location{TenantID: s.caller.TenantID, Name: name, Address: address}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO locations (tenant_id, name, address)
		VALUES ($1, $2, NULLIF($3, ''))
		RETURNING id, created_at
	`, loc.TenantID, name, address)
	if err := row.Scan(&loc.ID, &loc.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, fault.Wrap(fault.CodeConflict, err, fmt.Sprintf("location %q already exists", name))
		}
		return nil, fmt.Errorf("CreateLocation: %w", err)
	}
	return loc, nil
}

// ListLocations returns all of the tenant's locations.
func (s *Scoped) ListLocations(ctx context.Context) ([]Location, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, name, COALESCE(address, ''), created_at
		FROM locations
		WHERE tenant_id = $1
		ORDER BY created_at
	`, s.caller.TenantID)
	if err != nil {
		return nil, fmt.Errorf("ListLocations: %w", err)
	}
	defer rows.Close()

	var out []Location
	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.ID, &l.TenantID, &l.Name, &l.Address, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListLocations scan: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// AssignUserToLocation links a tenant user to one of the tenant's locations.
func (s *Scoped) AssignUserToLocation(ctx context.Context, userID, locationID string) (*Assignment, error) {
	a := &Assignment{TenantID: s.caller.TenantID, LocationID: locationID, UserID: userID}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO location_assignments (tenant_id, location_id, user_id)
		SELECT $1, id, $3 FROM locations WHERE id = $2 AND tenant_id = $1
		RETURNING id, created_at
	`, a.TenantID, locationID, userID)
	if err := row.Scan(&a.ID, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("location %s: %w", locationID, ErrNotFound)
		}
		if isUniqueViolation(err) {
			return nil, fault.Wrap(fault.CodeConflict, err, "user is already assigned to this location")
		}
		return nil, fmt.Errorf("AssignUserToLocation: %w", err)
	}
	return a, nil
}

// RemoveAssignment deletes a user-location link within the tenant.
func (s *Scoped) RemoveAssignment(ctx context.Context, userID, locationID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM location_assignments
		WHERE tenant_id = $1 AND location_id = $2 AND user_id = $3
	`, s.caller.TenantID, locationID, userID)
	if err != nil {
		return fmt.Errorf("RemoveAssignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("assignment: %w", ErrNotFound)
	}
	return nil
}

// ListAssignments returns the tenant's user-location links.
func (s *Scoped) ListAssignments(ctx context.Context) ([]Assignment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, location_id, user_id, created_at
		FROM location_assignments
		WHERE tenant_id = $1
		ORDER BY created_at
	`, s.caller.TenantID)
	if err != nil {
		return nil, fmt.Errorf("ListAssignments: %w", err)
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.TenantID, &a.LocationID, &a.UserID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListAssignments scan: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// isOverlapViolation matches the exclusion constraint (23P01) on the
// appointments table.
func isOverlapViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

// isUniqueViolation matches unique constraint violations (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
