package monitoring

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// HealthStatus represents the health status of the service
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthReport is the payload served on the health endpoint
type HealthReport struct {
	Status    HealthStatus `json:"status"`
	Timestamp time.Time    `json:"timestamp"`
	Service   string       `json:"service"`
	Version   string       `json:"version"`
	Ready     bool         `json:"ready"`
}

// HealthManager tracks service readiness and serves health reports
type HealthManager struct {
	serviceName    string
	serviceVersion string
	ready          atomic.Bool
}

// NewHealthManager creates a new health manager
func NewHealthManager(serviceName, serviceVersion string) *HealthManager {
	return &HealthManager{
		serviceName:    serviceName,
		serviceVersion: serviceVersion,
	}
}

// SetReady marks the service as ready to serve chaincode invocations
func (h *HealthManager) SetReady(ready bool) {
	h.ready.Store(ready)
}

// Report builds the current health report
func (h *HealthManager) Report() HealthReport {
	status := HealthStatusHealthy
	if !h.ready.Load() {
		status = HealthStatusUnhealthy
	}
	return HealthReport{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.serviceVersion,
		Ready:     h.ready.Load(),
	}
}

// Handler returns the health check HTTP handler
func (h *HealthManager) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report := h.Report()

		w.Header().Set("Content-Type", "application/json")
		if report.Status != HealthStatusHealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(report)
	})
}
