package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Timestamp string `json:"timestamp"`
}

// HealthChecker is implemented by QdrantCollection.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NewHealthHandler reports database connectivity: 200 when reachable,
// 503 otherwise.
func NewHealthHandler(db HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		response := HealthResponse{
			Status:    "healthy",
			Database:  "connected",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		status := http.StatusOK
		if err := db.Health(ctx); err != nil {
			response.Status = "unhealthy"
			response.Database = "disconnected"
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(response)
	}
}

// NewHTTPMux serves the MCP server over Streamable HTTP at /mcp and the
// health check at /health.
func NewHTTPMux(server *mcp.Server, db HealthChecker) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", NewHealthHandler(db))
	mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server
	}, nil))
	return mux
}
