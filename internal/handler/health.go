package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HealthChecker reports whether a downstream dependency is reachable.
type HealthChecker interface {
	IsHealthy() bool
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	pool      *pgxpool.Pool
	publisher HealthChecker
}

// NewHealthHandler creates a new HealthHandler instance.
func NewHealthHandler(pool *pgxpool.Pool, publisher HealthChecker) *HealthHandler {
	return &HealthHandler{
		pool:      pool,
		publisher: publisher,
	}
}

// Live reports process liveness.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// Ready reports whether the database and the chain publisher are reachable.
// The publisher is best-effort transport, so its state is reported but does
// not fail readiness.
func (h *HealthHandler) Ready(c *gin.Context) {
	checks := gin.H{}
	status := http.StatusOK

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.pool.Ping(ctx); err != nil {
		checks["database"] = "unreachable"
		status = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	if h.publisher != nil && h.publisher.IsHealthy() {
		checks["chain_publisher"] = "ok"
	} else {
		checks["chain_publisher"] = "unreachable"
	}

	label := "ready"
	if status != http.StatusOK {
		label = "degraded"
	}

	c.JSON(status, gin.H{
		"status":    label,
		"checks":    checks,
		"timestamp": time.Now().UTC(),
	})
}
