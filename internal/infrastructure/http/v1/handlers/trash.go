package handlers

import (
	"github.com/gin-gonic/gin"

	"shoplist/internal/domain/items"
	"shoplist/internal/domain/lists"
	"shoplist/internal/infrastructure/http/v1/dto"
)

// TrashHandler exposes trash views and permanent deletion.
type TrashHandler struct {
	BaseHandler
	listService *lists.Service
	itemService *items.Service
}

// NewTrashHandler creates a trash handler.
func NewTrashHandler(listService *lists.Service, itemService *items.Service) *TrashHandler {
	return &TrashHandler{listService: listService, itemService: itemService}
}

// Lists handles GET /api/v1/trash/lists
func (h *TrashHandler) Lists(c *gin.Context) {
	var query dto.ListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	result, err := h.listService.ListTrashed(c.Request.Context(), query.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(result, func(l *lists.List) any { return dto.FromList(l) }))
}

// Items handles GET /api/v1/trash/items
func (h *TrashHandler) Items(c *gin.Context) {
	var query dto.ListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	result, err := h.itemService.ListTrashed(c.Request.Context(), query.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(result, func(i *items.Item) any { return dto.FromItem(i) }))
}

// PurgeList handles DELETE /api/v1/trash/lists/:id (admin only).
// Physically removes the list together with every item that belongs to it.
func (h *TrashHandler) PurgeList(c *gin.Context) {
	listID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.listService.Purge(c.Request.Context(), listID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// PurgeItem handles DELETE /api/v1/trash/items/:id (admin only).
func (h *TrashHandler) PurgeItem(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.itemService.Purge(c.Request.Context(), itemID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}
