package types

import (
	"time"
)

// Audit resource names used by this service.
const (
	AuditResourceAbuseMonitoring = "abuse_monitoring"
	AuditResourceInvestigation   = "abuse_investigation"
)

// AuditLog is an append-only record of administrative and monitoring actions.
type AuditLog struct {
	ID         string         `bun:",pk"        json:"id"` // UUID
	ActorID    uint64         `bun:",nullzero"  json:"actorId,omitempty"` // 0 when the system acts
	Action     string         `bun:",notnull"   json:"action"`
	Resource   string         `bun:",notnull"   json:"resource"`
	ResourceID string         `bun:",notnull"   json:"resourceId"`
	Details    map[string]any `bun:"type:jsonb" json:"details,omitempty"`
	CreatedAt  time.Time      `bun:",notnull"   json:"createdAt"`
}
