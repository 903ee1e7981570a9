package handlers

import (
	"github.com/gin-gonic/gin"

	"shoplist/internal/domain/lists"
	"shoplist/internal/infrastructure/http/v1/dto"
)

// ListHandler handles shopping list endpoints.
type ListHandler struct {
	BaseHandler
	service *lists.Service
}

// NewListHandler creates a list handler.
func NewListHandler(service *lists.Service) *ListHandler {
	return &ListHandler{service: service}
}

// Create handles POST /api/v1/lists
func (h *ListHandler) Create(c *gin.Context) {
	var req dto.CreateListRequest
	if !h.BindJSON(c, &req) {
		return
	}

	list, err := h.service.Create(c.Request.Context(), req.Title, req.IsShared)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromList(list))
}

// Get handles GET /api/v1/lists/:id
func (h *ListHandler) Get(c *gin.Context) {
	listID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	list, err := h.service.Get(c.Request.Context(), listID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromList(list))
}

// GetShared handles GET /api/v1/shared/:token
func (h *ListHandler) GetShared(c *gin.Context) {
	list, err := h.service.GetShared(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromSharedList(list))
}

// Update handles PUT /api/v1/lists/:id
func (h *ListHandler) Update(c *gin.Context) {
	listID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateListRequest
	if !h.BindJSON(c, &req) {
		return
	}

	patch := lists.UpdatePatch{Title: req.Title, IsShared: req.IsShared}
	list, err := h.service.Update(c.Request.Context(), listID, patch, req.ExpectedVersion)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromList(list))
}

// Delete handles DELETE /api/v1/lists/:id (moves the list to trash).
func (h *ListHandler) Delete(c *gin.Context) {
	listID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	list, err := h.service.SoftDelete(c.Request.Context(), listID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromList(list))
}

// Restore handles POST /api/v1/lists/:id/restore
func (h *ListHandler) Restore(c *gin.Context) {
	listID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	list, err := h.service.Restore(c.Request.Context(), listID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromList(list))
}

// List handles GET /api/v1/lists
func (h *ListHandler) List(c *gin.Context) {
	var query dto.ListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	result, err := h.service.ListActive(c.Request.Context(), query.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(result, func(l *lists.List) any { return dto.FromList(l) }))
}
