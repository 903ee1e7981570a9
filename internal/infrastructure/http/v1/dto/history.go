package dto

import (
	"encoding/json"
	"time"
)

// AuditEntryResponse is one recorded lifecycle transition of a record.
type AuditEntryResponse struct {
	ID         string          `json:"id"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	Action     string          `json:"action"`
	UserID     string          `json:"userId,omitempty"`
	Changes    json.RawMessage `json:"changes,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// HistoryResponse wraps the audit trail of a single record.
type HistoryResponse struct {
	Entries []AuditEntryResponse `json:"entries"`
}
