// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// PingChecker wraps anything with a Ping method, like the document store.
type PingChecker struct {
	name    string
	ping    func(ctx context.Context) error
	timeout time.Duration
}

// NewPingChecker builds a checker that calls ping with a timeout.
func NewPingChecker(name string, ping func(ctx context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping, timeout: 3 * time.Second}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: "reachable"}
}

// OptionalChecker degrades instead of failing when its target is down.
// Used for the Redis cache, which the service can run without.
type OptionalChecker struct {
	name    string
	ping    func(ctx context.Context) error
	timeout time.Duration
}

// NewOptionalChecker builds a degraded-on-failure checker.
func NewOptionalChecker(name string, ping func(ctx context.Context) error) *OptionalChecker {
	return &OptionalChecker{name: name, ping: ping, timeout: 3 * time.Second}
}

func (c *OptionalChecker) Name() string { return c.name }

func (c *OptionalChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.ping(ctx); err != nil {
		return CheckResult{Status: StatusDegraded, Error: err.Error(), Message: "optional dependency down"}
	}
	return CheckResult{Status: StatusHealthy, Message: "reachable"}
}

// WritableDirChecker fails when the data directory cannot be written, which
// breaks spooling and the embedded stores.
type WritableDirChecker struct {
	name string
	dir  string
}

// NewWritableDirChecker builds a checker probing dir with a touch file.
func NewWritableDirChecker(name, dir string) *WritableDirChecker {
	return &WritableDirChecker{name: name, dir: dir}
}

func (c *WritableDirChecker) Name() string { return c.name }

func (c *WritableDirChecker) Check(context.Context) CheckResult {
	probe := filepath.Join(c.dir, ".health-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	_ = os.Remove(probe)
	return CheckResult{Status: StatusHealthy, Message: "writable"}
}

// LastRunChecker reports when background processing last succeeded. It never
// fails readiness; an idle service is not broken.
type LastRunChecker struct {
	name    string
	lastRun func() time.Time
}

// NewLastRunChecker builds an informational checker over a last-success
// timestamp source.
func NewLastRunChecker(name string, lastRun func() time.Time) *LastRunChecker {
	return &LastRunChecker{name: name, lastRun: lastRun}
}

func (c *LastRunChecker) Name() string { return c.name }

func (c *LastRunChecker) Check(context.Context) CheckResult {
	last := c.lastRun()
	if last.IsZero() {
		return CheckResult{Status: StatusHealthy, Message: "no documents processed yet"}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: fmt.Sprintf("last document processed %s ago", time.Since(last).Round(time.Second)),
	}
}
