// Package health exposes liveness, readiness and system status endpoints.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/readlingo/bookreader/pkg/logger"
)

// Pinger checks one dependency. Both the database and the cache satisfy it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// pingerFunc adapts a function to the Pinger interface.
type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// PingerFunc wraps a ping function as a Pinger.
func PingerFunc(f func(ctx context.Context) error) Pinger { return pingerFunc(f) }

// Checker serves the health endpoints.
type Checker struct {
	deps    map[string]Pinger
	log     *logger.Logger
	started time.Time
	version string
}

// NewChecker creates a health checker over named dependencies.
func NewChecker(deps map[string]Pinger, version string, log *logger.Logger) *Checker {
	if log == nil {
		log = logger.NewDefault("health")
	}
	return &Checker{deps: deps, log: log, started: time.Now().UTC(), version: version}
}

// Liveness handles GET /healthz.
func (c *Checker) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"uptime":  time.Since(c.started).Round(time.Second).String(),
		"version": c.version,
	})
}

// Readiness handles GET /readyz, pinging every dependency.
func (c *Checker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(c.deps))
	for name, dep := range c.deps {
		if err := dep.Ping(ctx); err != nil {
			c.log.WithError(err).WithField("dependency", name).Warn("readiness check failed")
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks[name] = "ok"
		}
	}

	body := map[string]interface{}{"checks": checks}
	if status == http.StatusOK {
		body["status"] = "ready"
	} else {
		body["status"] = "unavailable"
	}
	writeJSON(w, status, body)
}

// System handles GET /health/system with host and process statistics.
func (c *Checker) System(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	stats := map[string]interface{}{
		"goroutines": runtime.NumGoroutine(),
		"go_version": runtime.Version(),
		"uptime":     time.Since(c.started).Round(time.Second).String(),
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats["memory"] = map[string]interface{}{
			"total_mb":     vm.Total / (1 << 20),
			"used_mb":      vm.Used / (1 << 20),
			"used_percent": vm.UsedPercent,
		}
	}
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		stats["cpu_percent"] = percents[0]
	}
	if info, err := host.InfoWithContext(ctx); err == nil {
		stats["host"] = map[string]interface{}{
			"hostname": info.Hostname,
			"os":       info.OS,
			"platform": info.Platform,
			"uptime_s": info.Uptime,
		}
	}
	if proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if rss, err := proc.MemoryInfoWithContext(ctx); err == nil {
			stats["process_rss_mb"] = rss.RSS / (1 << 20)
		}
	}

	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
