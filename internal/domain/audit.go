package domain

import (
	"encoding/json"
	"time"
)

// AuditEvent is an immutable, append-only record of a state change produced as
// a side effect of every mutation in this core. Keep it transport-agnostic so
// stores and sinks can fan out.
type AuditEvent struct {
	ID         string
	Actor      string
	EntityType string
	EntityID   string
	Action     string
	OldData    json.RawMessage
	NewData    json.RawMessage
	Metadata   map[string]any
	Timestamp  time.Time
}

// Audit actions emitted by the core.
const (
	AuditActionNoticeParsed      = "notice_parsed"
	AuditActionEligibilityMatch  = "eligibility_match"
	AuditActionSatelliteAnalysis = "satellite_analysis"
	AuditActionPaymentSettled    = "payment_settled"
)
