package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"seating-backend/internal/geometry"
	"seating-backend/internal/store"
)

type tableRequest struct {
	Label         string           `json:"label"`
	Corners       geometry.Corners `json:"corners"`
	DefaultChairs int              `json:"default_chairs"`
	MaxChairs     int              `json:"max_chairs"`
}

func (r tableRequest) input() store.TableInput {
	return store.TableInput{
		Label:    r.Label,
		Corners:  r.Corners,
		Capacity: geometry.Capacity{DefaultChairs: r.DefaultChairs, MaxChairs: r.MaxChairs},
	}
}

// ListTables handles GET /api/tables.
func (h *Handler) ListTables(c *gin.Context) {
	tables, err := h.store.ListTables(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]tableResponse, len(tables))
	for i, t := range tables {
		out[i] = newTableResponse(t)
	}
	c.JSON(http.StatusOK, out)
}

// CreateTable handles POST /api/tables.
func (h *Handler) CreateTable(c *gin.Context) {
	var req tableRequest
	if !bindJSON(c, &req) {
		return
	}
	table, err := h.store.CreateTable(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newTableResponse(*table))
}

// GetTable handles GET /api/tables/:id.
func (h *Handler) GetTable(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	table, err := h.store.GetTable(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTableResponse(*table))
}

// UpdateTable handles PUT /api/tables/:id. The whole shape is replaced.
func (h *Handler) UpdateTable(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req tableRequest
	if !bindJSON(c, &req) {
		return
	}
	table, err := h.store.UpdateTable(c.Request.Context(), id, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTableResponse(*table))
}

// DeleteTable handles DELETE /api/tables/:id.
func (h *Handler) DeleteTable(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteTable(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type tableSetRequest struct {
	TableIDs []int64 `json:"table_ids"`
	Name     string  `json:"name"`
}

// CreateTableSet handles POST /api/table_sets.
func (h *Handler) CreateTableSet(c *gin.Context) {
	var req tableSetRequest
	if !bindJSON(c, &req) {
		return
	}
	set, err := h.store.BuildTableSet(c.Request.Context(), req.TableIDs, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newTableSetResponse(*set))
}

// GetTableSet handles GET /api/table_sets/:id.
func (h *Handler) GetTableSet(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	set, err := h.store.GetTableSet(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTableSetResponse(*set))
}

// SplitTableSet handles POST /api/table_sets/:id/split and returns the
// single-table sets that replaced it.
func (h *Handler) SplitTableSet(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sets, err := h.store.SplitTableSet(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]tableSetResponse, len(sets))
	for i, s := range sets {
		out[i] = newTableSetResponse(s)
	}
	c.JSON(http.StatusOK, out)
}
