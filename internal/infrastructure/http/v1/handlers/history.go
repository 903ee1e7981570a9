package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"shoplist/internal/core/apperror"
	"shoplist/internal/core/id"
	"shoplist/internal/infrastructure/http/v1/dto"
	"shoplist/internal/infrastructure/storage/postgres"
)

// HistoryProvider serves the recorded audit trail of a record.
type HistoryProvider interface {
	GetEntityHistory(ctx context.Context, entityType string, entityID id.ID, limit int) ([]postgres.AuditEntry, error)
}

// HistoryHandler exposes the audit trail. Admin only.
type HistoryHandler struct {
	BaseHandler
	provider HistoryProvider
}

// NewHistoryHandler creates a history handler.
func NewHistoryHandler(provider HistoryProvider) *HistoryHandler {
	return &HistoryHandler{provider: provider}
}

// Get handles GET /api/v1/history/:entity/:id
func (h *HistoryHandler) Get(c *gin.Context) {
	entityType := c.Param("entity")
	if entityType != "list" && entityType != "item" {
		h.Error(c, apperror.NewValidation("unknown entity type").WithDetail("entity", entityType))
		return
	}

	entityID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	limit := h.ParseIntQuery(c, "limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}

	entries, err := h.provider.GetEntityHistory(c.Request.Context(), entityType, entityID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := dto.HistoryResponse{Entries: make([]dto.AuditEntryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, dto.AuditEntryResponse{
			ID:         e.ID.String(),
			EntityType: e.EntityType,
			EntityID:   e.EntityID.String(),
			Action:     string(e.Action),
			UserID:     e.UserID,
			Changes:    e.Changes,
			CreatedAt:  e.CreatedAt,
		})
	}

	h.OK(c, resp)
}
