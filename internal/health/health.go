package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/zenprocess/open-lovable-cf/internal/runtime"
	"github.com/zenprocess/open-lovable-cf/internal/sandbox"
)

// Status represents the health status of a sandbox
type Status string

const (
	StatusHealthy     Status = "healthy"
	StatusUnhealthy   Status = "unhealthy"
	StatusNoDevServer Status = "no-dev-server"
	StatusStopped     Status = "stopped"

	// DefaultProbeTimeout bounds each individual check.
	DefaultProbeTimeout = 3 * time.Second
)

// CheckOptions holds options for health checking.
type CheckOptions struct {
	// HTTPClient is used to probe the dev server URL.
	HTTPClient *http.Client

	// Now is the clock used for CheckedAt and uptime.
	Now func() time.Time
}

// CheckResult contains the results of health checks
type CheckResult struct {
	Provisioned        bool      `json:"provisioned"`
	Responsive         bool      `json:"responsive"`
	DevServerReachable bool      `json:"devServerReachable"`
	Uptime             string    `json:"uptime,omitempty"`
	CheckedAt          time.Time `json:"checkedAt"`
}

// containerBacked is implemented by executors that run in a container.
type containerBacked interface {
	Container(ctx context.Context) (*runtime.ContainerInfo, error)
}

func (o CheckOptions) withDefaults() CheckOptions {
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: DefaultProbeTimeout}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// CheckCommand reports whether the sandbox executes a trivial command.
func CheckCommand(ctx context.Context, exec sandbox.Executor) bool {
	ctx, cancel := context.WithTimeout(ctx, DefaultProbeTimeout)
	defer cancel()

	res, err := exec.RunCommand(ctx, "true")
	return err == nil && res.Success()
}

// CheckDevServer reports whether url answers HTTP requests.
func CheckDevServer(ctx context.Context, client *http.Client, url string) bool {
	if url == "" {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

// startedAt prefers the engine's start time and falls back to when the
// sandbox was provisioned.
func startedAt(ctx context.Context, exec sandbox.Executor) (time.Time, bool) {
	if cb, ok := exec.(containerBacked); ok {
		info, err := cb.Container(ctx)
		if err != nil || info == nil {
			return time.Time{}, false
		}
		// RFC3339Nano also accepts timestamps without fractional seconds.
		t, err := time.Parse(time.RFC3339Nano, info.StartedAt)
		return t, err == nil && !t.IsZero()
	}
	if info := exec.Info(); info != nil && !info.CreatedAt.IsZero() {
		return info.CreatedAt, true
	}
	return time.Time{}, false
}

// GetUptime reports how long the sandbox has been up, or "unknown".
func GetUptime(ctx context.Context, exec sandbox.Executor, now time.Time) string {
	since, ok := startedAt(ctx, exec)
	if !ok {
		return "unknown"
	}
	return formatDuration(now.Sub(since))
}

// formatDuration keeps the two most significant units above seconds:
// 42s, 5m, 2h 30m, 3d 5h.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d/time.Second))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh %dm", int(d/time.Hour), int(d%time.Hour/time.Minute))
	}
	day := 24 * time.Hour
	return fmt.Sprintf("%dd %dh", int(d/day), int(d%day/time.Hour))
}

// Check performs all health checks for a sandbox. A nil executor is
// reported as not provisioned.
func Check(ctx context.Context, exec sandbox.Executor, opts CheckOptions) *CheckResult {
	opts = opts.withDefaults()
	result := &CheckResult{CheckedAt: opts.Now()}

	if exec == nil || exec.Info() == nil {
		return result
	}
	result.Provisioned = true

	result.Responsive = CheckCommand(ctx, exec)
	if !result.Responsive {
		return result
	}

	result.Uptime = GetUptime(ctx, exec, result.CheckedAt)
	result.DevServerReachable = CheckDevServer(ctx, opts.HTTPClient, exec.Info().URL)

	return result
}

// Summary reduces a result to a single status.
func (r *CheckResult) Summary() Status {
	switch {
	case r == nil || !r.Provisioned:
		return StatusStopped
	case !r.Responsive:
		return StatusUnhealthy
	case !r.DevServerReachable:
		return StatusNoDevServer
	}
	return StatusHealthy
}

// Healthy reports whether the sandbox is provisioned and executing commands.
// The dev server may still be starting.
func (r *CheckResult) Healthy() bool {
	return r != nil && r.Provisioned && r.Responsive
}
