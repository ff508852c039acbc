package model

import (
	"encoding/json"
	"time"
)

// AuditLogEntry records an admin action.
type AuditLogEntry struct {
	ID         string          `json:"id" db:"id" bson:"_id,omitempty"`
	ActorID    string          `json:"actor_id" db:"actor_id" bson:"actor_id"`
	Action     string          `json:"action" db:"action" bson:"action"`
	TargetType string          `json:"target_type" db:"target_type" bson:"target_type"`
	TargetID   string          `json:"target_id" db:"target_id" bson:"target_id"`
	Details    json.RawMessage `json:"details,omitempty" db:"details" bson:"details,omitempty"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at" bson:"created_at"`
}
