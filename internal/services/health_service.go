package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/oshinlather/image-to-excel-converter/pkg/contracts"
	api "github.com/oshinlather/image-to-excel-converter/pkg/contracts/api/v1"
)

// SessionCounter reports the number of open sessions
type SessionCounter interface {
	SessionCount() int
}

// ClientCounter reports the number of connected websocket clients
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	sessions  SessionCounter
	clients   ClientCounter
	engines   []string
	sheets    bool
	startTime time.Time
	logger    *slog.Logger
}

// HealthDeps are the components whose state is reported by the health
// endpoints. Clients may be nil when websockets are disabled.
type HealthDeps struct {
	Sessions      SessionCounter
	Clients       ClientCounter
	Engines       []string
	SheetsEnabled bool
}

// NewHealthService creates a new health service
func NewHealthService(version string, deps HealthDeps, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	if version == "" {
		version = contracts.Version
	}

	logger.Info("health service initialized",
		slog.String("version", version),
		slog.Any("engines", deps.Engines),
		slog.Bool("sheets_enabled", deps.SheetsEnabled))

	return &HealthService{
		version:   version,
		sessions:  deps.Sessions,
		clients:   deps.Clients,
		engines:   deps.Engines,
		sheets:    deps.SheetsEnabled,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) api.HealthResponse {
	status := api.HealthResponse{
		Status:    "ok",
		Version:   hs.version,
		Uptime:    time.Since(hs.startTime).Round(time.Second).String(),
		Timestamp: time.Now(),
	}
	if hs.sessions != nil {
		status.Sessions = hs.sessions.SessionCount()
	}

	hs.logger.DebugContext(ctx, "health check completed",
		slog.String("status", status.Status),
		slog.Int("sessions", status.Sessions))
	return status
}

// ReadinessCheck reports whether the converter can accept work. It is not
// ready when no recognition engine is configured.
func (hs *HealthService) ReadinessCheck(ctx context.Context) api.HealthResponse {
	status := hs.HealthCheck(ctx)
	status.Status = "ready"
	status.Checks = map[string]string{
		"sessions": "ready",
	}

	if hs.sessions == nil {
		status.Checks["sessions"] = "not_ready"
	}
	if len(hs.engines) == 0 {
		status.Checks["recognition"] = "not_ready"
	} else {
		status.Checks["recognition"] = "ready"
		for _, e := range hs.engines {
			status.Checks["engine:"+e] = "ready"
		}
	}
	if hs.sheets {
		status.Checks["sheets"] = "ready"
	} else {
		status.Checks["sheets"] = "disabled"
	}
	if hs.clients != nil {
		status.Checks["websocket"] = "ready"
	}

	for _, v := range status.Checks {
		if v == "not_ready" {
			status.Status = "not_ready"
			break
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) api.HealthResponse {
	status := hs.HealthCheck(ctx)
	status.Status = "alive"
	return status
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	info := contracts.GetVersionInfo()
	result := map[string]interface{}{
		"version":         hs.version,
		"go_version":      runtime.Version(),
		"os":              info.OS,
		"arch":            info.Architecture,
		"api_version":     info.APIVersion,
		"workbook_format": info.WorkbookFormat,
		"uptime":          time.Since(hs.startTime).Seconds(),
		"start_time":      hs.startTime.Format(time.RFC3339),
	}
	if info.BuildTime != "unknown" {
		result["build_time"] = info.BuildTime
	}
	if info.GitCommit != "unknown" {
		result["git_commit"] = info.GitCommit
	}
	if hs.clients != nil {
		result["websocket_clients"] = hs.clients.ClientCount()
	}
	return result
}
