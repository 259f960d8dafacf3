package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hpcc-hcmut/batsim-web-portal/internal/sysinfo"
)

// SystemStatusResponse reports service liveness
type SystemStatusResponse struct {
	Service       string `json:"service"`
	Version       string `json:"version"`
	Status        string `json:"status"`
	Database      string `json:"database"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Timestamp     string `json:"timestamp"`
}

// getSystemStatus handles GET /api/system
func (s *Server) getSystemStatus(c *gin.Context) {
	dbStatus := "ok"
	if sqlDB, err := s.db.DB(); err != nil || sqlDB.Ping() != nil {
		dbStatus = "unavailable"
	}

	status := "ok"
	if dbStatus != "ok" {
		status = "degraded"
	}

	c.JSON(http.StatusOK, SystemStatusResponse{
		Service:       "batsim-web-portal",
		Version:       s.version,
		Status:        status,
		Database:      dbStatus,
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	})
}

// getSystemResources handles GET /api/system/resources
func (s *Server) getSystemResources(c *gin.Context) {
	metrics, err := sysinfo.GetMetrics(s.store.Root())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to collect system metrics")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to collect system resources"})
		return
	}

	c.JSON(http.StatusOK, metrics)
}
