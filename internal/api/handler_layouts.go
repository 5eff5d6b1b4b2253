package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"seating-backend/internal/apperr"
)

type nameRequest struct {
	Name *string `json:"name"`
}

// CreateLayout handles POST /api/layouts.
func (h *Handler) CreateLayout(c *gin.Context) {
	var req nameRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	layout, err := h.store.CreateLayout(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newLayoutResponse(*layout))
}

// GetLayout handles GET /api/layouts/:layout_id.
func (h *Handler) GetLayout(c *gin.Context) {
	id, ok := pathID(c, "layout_id")
	if !ok {
		return
	}
	layout, err := h.store.GetLayout(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newLayoutResponse(*layout))
}

// CreateSection handles POST /api/sections.
func (h *Handler) CreateSection(c *gin.Context) {
	var req nameRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	section, err := h.store.CreateSection(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sectionResponse{ID: section.ID, Name: section.Name})
}

// slotParams reads :layout_id and :number.
func slotParams(c *gin.Context) (int64, int, bool) {
	layoutID, ok := pathID(c, "layout_id")
	if !ok {
		return 0, 0, false
	}
	number, ok := pathNumber(c, "number")
	if !ok {
		return 0, 0, false
	}
	return layoutID, number, true
}

type assignSectionRequest struct {
	SectionID  int64   `json:"section_id"`
	ServerName *string `json:"server_name"`
}

// AssignSection handles PUT /api/layouts/:layout_id/sections/:number.
func (h *Handler) AssignSection(c *gin.Context) {
	layoutID, number, ok := slotParams(c)
	if !ok {
		return
	}
	var req assignSectionRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.SectionID < 1 {
		respondError(c, apperr.Field(apperr.ErrInvalidArgument, "section_id", "section_id is required"))
		return
	}
	if err := h.store.AssignSectionToLayout(c.Request.Context(), req.SectionID, layoutID, number, req.ServerName); err != nil {
		respondError(c, err)
		return
	}
	h.respondLayout(c, layoutID)
}

// RemoveSection handles DELETE /api/layouts/:layout_id/sections/:number.
func (h *Handler) RemoveSection(c *gin.Context) {
	layoutID, number, ok := slotParams(c)
	if !ok {
		return
	}
	if err := h.store.RemoveSectionFromLayout(c.Request.Context(), layoutID, number); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type serverNameRequest struct {
	ServerName string `json:"server_name"`
}

// SetServerName handles PUT /api/layouts/:layout_id/sections/:number/server.
func (h *Handler) SetServerName(c *gin.Context) {
	layoutID, number, ok := slotParams(c)
	if !ok {
		return
	}
	var req serverNameRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.store.SetServerName(c.Request.Context(), layoutID, number, req.ServerName); err != nil {
		respondError(c, err)
		return
	}
	h.respondLayout(c, layoutID)
}

// ClearServerName handles DELETE /api/layouts/:layout_id/sections/:number/server.
func (h *Handler) ClearServerName(c *gin.Context) {
	layoutID, number, ok := slotParams(c)
	if !ok {
		return
	}
	if err := h.store.ClearServerName(c.Request.Context(), layoutID, number); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SlotTables handles GET /api/layouts/:layout_id/sections/:number/tables.
func (h *Handler) SlotTables(c *gin.Context) {
	layoutID, number, ok := slotParams(c)
	if !ok {
		return
	}
	ids, err := h.store.ResolveTablesForSlot(c.Request.Context(), layoutID, number)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, slotTablesBody(layoutID, number, ids))
}

// PlaceTable handles POST /api/layouts/:layout_id/sections/:number/tables/:table_id.
func (h *Handler) PlaceTable(c *gin.Context) {
	h.placement(c, "table_id", h.store.PlaceTableInSection, http.StatusOK)
}

// RemoveTable handles DELETE /api/layouts/:layout_id/sections/:number/tables/:table_id.
func (h *Handler) RemoveTable(c *gin.Context) {
	h.placement(c, "table_id", h.store.RemoveTableFromSection, http.StatusNoContent)
}

// PlaceTableSet handles POST /api/layouts/:layout_id/sections/:number/table_sets/:table_set_id.
func (h *Handler) PlaceTableSet(c *gin.Context) {
	h.placement(c, "table_set_id", h.store.PlaceTableSetInSection, http.StatusOK)
}

// RemoveTableSet handles DELETE /api/layouts/:layout_id/sections/:number/table_sets/:table_set_id.
func (h *Handler) RemoveTableSet(c *gin.Context) {
	h.placement(c, "table_set_id", h.store.RemoveTableSetFromSection, http.StatusNoContent)
}

type placementFunc func(ctx context.Context, id, layoutID int64, number int) error

func (h *Handler) placement(c *gin.Context, param string, fn placementFunc, status int) {
	layoutID, number, ok := slotParams(c)
	if !ok {
		return
	}
	id, ok := pathID(c, param)
	if !ok {
		return
	}
	if err := fn(c.Request.Context(), id, layoutID, number); err != nil {
		respondError(c, err)
		return
	}
	if status == http.StatusNoContent {
		c.Status(status)
		return
	}
	ids, err := h.store.ResolveTablesForSlot(c.Request.Context(), layoutID, number)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, slotTablesBody(layoutID, number, ids))
}

func slotTablesBody(layoutID int64, number int, ids []int64) gin.H {
	if ids == nil {
		ids = []int64{}
	}
	return gin.H{"layout_id": layoutID, "section_number": number, "table_ids": ids}
}

func (h *Handler) respondLayout(c *gin.Context, layoutID int64) {
	layout, err := h.store.GetLayout(c.Request.Context(), layoutID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newLayoutResponse(*layout))
}
