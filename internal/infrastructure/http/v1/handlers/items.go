package handlers

import (
	"github.com/gin-gonic/gin"

	"shoplist/internal/domain/items"
	"shoplist/internal/infrastructure/http/v1/dto"
)

// ItemHandler handles shopping list item endpoints.
type ItemHandler struct {
	BaseHandler
	service *items.Service
}

// NewItemHandler creates an item handler.
func NewItemHandler(service *items.Service) *ItemHandler {
	return &ItemHandler{service: service}
}

// Create handles POST /api/v1/lists/:id/items
func (h *ItemHandler) Create(c *gin.Context) {
	listID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.CreateItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	item, err := h.service.Create(c.Request.Context(), listID, req.Name, req.Quantity, req.OrderIndex)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromItem(item))
}

// Get handles GET /api/v1/items/:id
func (h *ItemHandler) Get(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	item, err := h.service.Get(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromItem(item))
}

// Update handles PUT /api/v1/items/:id
func (h *ItemHandler) Update(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	patch := items.UpdatePatch{
		Name:       req.Name,
		Quantity:   req.Quantity,
		IsChecked:  req.IsChecked,
		OrderIndex: req.OrderIndex,
	}
	item, err := h.service.Update(c.Request.Context(), itemID, patch, req.ExpectedVersion)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromItem(item))
}

// Delete handles DELETE /api/v1/items/:id (moves the item to trash).
func (h *ItemHandler) Delete(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	item, err := h.service.SoftDelete(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromItem(item))
}

// Restore handles POST /api/v1/items/:id/restore
func (h *ItemHandler) Restore(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	item, err := h.service.Restore(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromItem(item))
}

// ClearChecked handles POST /api/v1/lists/:id/items/clear-checked
func (h *ItemHandler) ClearChecked(c *gin.Context) {
	listID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	count, err := h.service.ClearChecked(c.Request.Context(), listID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.CountResponse{Count: count})
}

// ListByList handles GET /api/v1/lists/:id/items
func (h *ItemHandler) ListByList(c *gin.Context) {
	listID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var query dto.ListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	result, err := h.service.ListActive(c.Request.Context(), listID, query.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(result, func(i *items.Item) any { return dto.FromItem(i) }))
}
