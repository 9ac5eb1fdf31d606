// internal/models/facility.go
package models

import "time"

// Document is an archived building document (plan, certificate, manual).
type Document struct {
	ID        string
	TenantID  string
	Name      string
	Category  string
	UpdatedAt time.Time
}

// MaintenanceRequest tracks a reported fault or scheduled intervention.
type MaintenanceRequest struct {
	ID          string
	TenantID    string
	UserID      string
	Description string
	Priority    string
	Status      string
	CreatedAt   time.Time
}

// MaintenanceCounts aggregates requests by state for status summaries.
type MaintenanceCounts struct {
	Open       int
	InProgress int
	Closed     int
}

// Booking reserves a shared space (meeting room, common area).
type Booking struct {
	ID       string
	TenantID string
	UserID   string
	Space    string
	StartsAt time.Time
	EndsAt   time.Time
}

// ConversionJob tracks a long-running BIM model conversion.
type ConversionJob struct {
	ID        string
	TenantID  string
	TargetID  string
	Status    string
	Progress  int
	UpdatedAt time.Time
}
