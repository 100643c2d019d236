package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/concierge/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// HealthCheck probes one dependency. Implementations must honor the context
// deadline.
type HealthCheck func(ctx context.Context) error

// SystemHandler handles system-related API endpoints
type SystemHandler struct {
	BaseHandler
	startTime time.Time
	checks    map[string]HealthCheck
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler() *SystemHandler {
	return &SystemHandler{
		startTime: time.Now(),
		checks:    make(map[string]HealthCheck),
	}
}

// WithCheck registers a named dependency probe for the health endpoint
func (h *SystemHandler) WithCheck(name string, check HealthCheck) *SystemHandler {
	h.checks[name] = check
	return h
}

// RegisterRoutes registers system routes
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	system := rg.Group("/system")
	{
		system.GET("/ping", h.Ping)
		system.GET("/info", h.GetSystemInfo)
		system.GET("/health", h.Health)
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name" example:"Concierge Tariff API"`
	Version   string `json:"version" example:"1.0.0"`
	GoVersion string `json:"go_version" example:"go1.25.5"`
	Uptime    string `json:"uptime" example:"1h30m45s"`
}

// GetSystemInfo returns basic system information including version and uptime
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      "Concierge Tariff API",
		Version:   "1.0.0",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(info))
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message" example:"pong"`
	Timestamp string `json:"timestamp" example:"2026-01-23T12:00:00Z"`
}

// Ping is a simple liveness endpoint
func (h *SystemHandler) Ping(c *gin.Context) {
	response := PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}

// HealthResponse represents the aggregated dependency health
type HealthResponse struct {
	Status string            `json:"status" example:"healthy"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health probes every registered dependency and reports 503 when any fails
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Status: "healthy",
		Checks: make(map[string]string, len(h.checks)),
	}
	healthy := true

	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			response.Checks[name] = err.Error()
			healthy = false
		} else {
			response.Checks[name] = "ok"
		}
	}

	if !healthy {
		response.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, dto.NewSuccessResponse(response))
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}
