package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntry is one append-only audit event for an entity.
type AuditEntry struct {
	EntityType string    `json:"entity_type"`
	EntityID   uuid.UUID `json:"entity_id"`
	At         time.Time `json:"at"`
	Actor      string    `json:"actor"`
	Action     string    `json:"action"`
}

// Audited is implemented by entities that carry an append-only audit trail.
type Audited interface {
	AuditRecord(actor, action string) AuditEntry
}

// AuditTrail is an in-memory view of an entity's audit history, oldest first.
type AuditTrail []AuditEntry
