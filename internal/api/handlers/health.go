package handlers

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/irfndi/arbscan/internal/services"
	"github.com/irfndi/arbscan/internal/telemetry"
)

// HealthChecker is satisfied by database.RedisClient.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// StatusProvider is satisfied by services.ScannerService.
type StatusProvider interface {
	Status() services.ScannerStatus
}

type SystemStats struct {
	ProcessRSSBytes       uint64  `json:"process_rss_bytes"`
	ProcessCPUPercent     float64 `json:"process_cpu_percent"`
	HostMemoryUsedPercent float64 `json:"host_memory_used_percent"`
	Goroutines            int     `json:"goroutines"`
}

type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Services  map[string]string      `json:"services"`
	Scanner   services.ScannerStatus `json:"scanner"`
	System    SystemStats            `json:"system"`
}

type HealthHandler struct {
	scanner   StatusProvider
	redis     HealthChecker
	startTime time.Time
	proc      *process.Process
}

// NewHealthHandler builds the /health handler. redis may be nil when the
// shared denylist is not configured.
func NewHealthHandler(scanner StatusProvider, redis HealthChecker) *HealthHandler {
	proc, _ := process.NewProcess(int32(os.Getpid()))
	return &HealthHandler{
		scanner:   scanner,
		redis:     redis,
		startTime: time.Now(),
		proc:      proc,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx := c.Request.Context()
	svc := make(map[string]string)
	healthy := true

	status := h.scanner.Status()
	if status.Running {
		svc["scanner"] = "healthy"
	} else {
		svc["scanner"] = "unhealthy: not running"
		healthy = false
	}

	if h.redis != nil {
		if err := h.redis.HealthCheck(ctx); err != nil {
			svc["redis"] = "unhealthy: " + err.Error()
			healthy = false
		} else {
			svc["redis"] = "healthy"
		}
	}

	if status.Alerting {
		svc["telegram"] = "configured"
	} else {
		svc["telegram"] = "disabled"
	}

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   telemetry.ServiceVersion,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Services:  svc,
		Scanner:   status,
		System:    h.systemStats(ctx),
	}

	code := http.StatusOK
	if !healthy {
		response.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, response)
}

// systemStats is best effort; fields the platform cannot report stay zero.
func (h *HealthHandler) systemStats(ctx context.Context) SystemStats {
	stats := SystemStats{Goroutines: runtime.NumGoroutine()}
	if h.proc != nil {
		if info, err := h.proc.MemoryInfoWithContext(ctx); err == nil {
			stats.ProcessRSSBytes = info.RSS
		}
		if pct, err := h.proc.CPUPercentWithContext(ctx); err == nil {
			stats.ProcessCPUPercent = pct
		}
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.HostMemoryUsedPercent = vm.UsedPercent
	}
	return stats
}
