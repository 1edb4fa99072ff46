// Package store provides caller-scoped access to the relational data store.
// Every query carries the caller's identity in its predicates so the rows a
// dispatch can touch are the rows the caller could reach directly.
package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a scoped lookup matches no rows.
var ErrNotFound = errors.New("not found")

// Pet is a consumer-owned animal, optionally linked to a clinic tenant.
type Pet struct {
	ID       string `json:"id"`
	OwnerID  string `json:"owner_id"`
	ClinicID string `json:"clinic_id,omitempty"`
	Name     string `json:"name"`
	Species  string `json:"species"`
}

// MedicalRecord is one entry in a pet's medical history.
type MedicalRecord struct {
	ID           string    `json:"id"`
	PetID        string    `json:"pet_id"`
	Kind         string    `json:"kind"` // "visit", "vaccine", "surgery", ...
	Description  string    `json:"description"`
	Veterinarian string    `json:"veterinarian,omitempty"`
	VisitedAt    time.Time `json:"visited_at"`
}

// Appointment is a booked slot at a clinic location.
type Appointment struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenant_id"`
	LocationID      string    `json:"location_id"`
	PetName         string    `json:"pet_name"`
	OwnerName       string    `json:"owner_name,omitempty"`
	StartAt         time.Time `json:"start_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Reason          string    `json:"reason,omitempty"`
	Status          string    `json:"status"` // "confirmed" or "cancelled"
	CreatedBy       string    `json:"created_by"`
}

// AppointmentInput is the write shape for CreateAppointment.
type AppointmentInput struct {
	PetName         string
	OwnerName       string
	StartAt         time.Time
	DurationMinutes int
	Reason          string
}

// InventoryItem is a stocked product at a clinic location.
type InventoryItem struct {
	ID         string  `json:"id"`
	LocationID string  `json:"location_id"`
	Name       string  `json:"name"`
	SKU        string  `json:"sku,omitempty"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
}

// Location is a tenant's physical site.
type Location struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Assignment links a tenant user to a location.
type Assignment struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	LocationID string    `json:"location_id"`
	UserID     string    `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}
