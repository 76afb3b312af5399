package handlers

import (
	"context"

	"github.com/maruel/csvdb/internal/csvdb"
)

// HealthHandler reports whether the table is usable.
type HealthHandler struct {
	table *csvdb.Table
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(table *csvdb.Table) *HealthHandler {
	return &HealthHandler{table: table}
}

// HealthRequest is the request type for health check (empty).
type HealthRequest struct{}

// HealthResponse is the response for health check.
type HealthResponse struct {
	Status string `json:"status"`
	Rows   int    `json:"rows"`
	Error  string `json:"error,omitempty"`
}

// Health returns the health status of the server. An unusable table is
// reported in the body, the endpoint itself stays up.
func (h *HealthHandler) Health(ctx context.Context, req HealthRequest) (*HealthResponse, error) {
	if err := h.table.Err(); err != nil {
		return &HealthResponse{Status: "unusable", Error: err.Error()}, nil
	}
	return &HealthResponse{Status: "ok", Rows: h.table.Len()}, nil
}
