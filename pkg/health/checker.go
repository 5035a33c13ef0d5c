// Package health reports whether the server can take new wizard sessions.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/vendapay/teamwizard/pkg/core"
	"github.com/vendapay/teamwizard/pkg/wizard"
)

// Overall states of a readiness report.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

const defaultTimeout = 5 * time.Second

// ErrNotAccepting is reported once the socket manager was shut down.
var ErrNotAccepting = errors.New("not accepting live connections")

// CheckFunc returns nil when its dependency is ready.
type CheckFunc func(ctx context.Context) error

// Result is the outcome of one check.
type Result struct {
	OK        bool           `json:"ok"`
	ElapsedMS int64          `json:"elapsed_ms"`
	Error     string         `json:"error,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// Report is the readiness response body. Status is unhealthy as soon as
// one check fails.
type Report struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]Result `json:"checks"`
}

type check struct {
	name    string
	fn      CheckFunc
	timeout time.Duration
}

// Checker runs the registered readiness checks.
type Checker struct {
	version string

	mu     sync.RWMutex
	checks []check
}

// NewChecker creates a checker that reports version in every response.
func NewChecker(version string) *Checker {
	return &Checker{version: version}
}

// Register adds a check bounded by timeout; 0 means 5 seconds.
func (c *Checker) Register(name string, timeout time.Duration, fn CheckFunc) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c.mu.Lock()
	c.checks = append(c.checks, check{name: name, fn: fn, timeout: timeout})
	c.mu.Unlock()
}

// Run executes every check concurrently.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := append([]check(nil), c.checks...)
	c.mu.RUnlock()

	results := make([]Result, len(checks))
	var wg sync.WaitGroup
	for i, chk := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = chk.run(ctx)
		}()
	}
	wg.Wait()

	report := Report{
		Status:  StatusHealthy,
		Version: c.version,
		Checks:  make(map[string]Result, len(checks)),
	}
	for i, chk := range checks {
		report.Checks[chk.name] = results[i]
		if !results[i].OK {
			report.Status = StatusUnhealthy
		}
	}
	return report
}

func (chk check) run(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, chk.timeout)
	defer cancel()

	start := time.Now()
	err := chk.fn(ctx)
	res := Result{OK: err == nil, ElapsedMS: time.Since(start).Milliseconds()}
	if err != nil {
		res.Error = err.Error()
		var de *DetailError
		if errors.As(err, &de) {
			res.Details = de.Details
		}
	}
	return res
}

// ReadinessHandler answers 200 with the report when every check passes and
// 503 otherwise.
func (c *Checker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		code := http.StatusOK
		if report.Status != StatusHealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, report)
	})
}

// LivenessHandler answers 200 while the process can serve HTTP at all.
func (c *Checker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "alive",
			"version": c.version,
		})
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// StepsCheck fails when the wizard step definitions are unusable.
func StepsCheck(steps func() wizard.Steps) CheckFunc {
	return func(ctx context.Context) error {
		if err := steps().Validate(); err != nil {
			return fmt.Errorf("step definitions: %w", err)
		}
		return nil
	}
}

// SocketManagerCheck fails once the socket manager stopped accepting
// connections or when it is at capacity.
func SocketManagerCheck(sm *core.SocketManager, maxConnections int) CheckFunc {
	return func(ctx context.Context) error {
		if sm.IsShutdown() {
			return ErrNotAccepting
		}
		if n := sm.Count(); maxConnections > 0 && n >= maxConnections {
			return &DetailError{
				Message: "live connections at capacity",
				Details: map[string]any{"current": n, "max": maxConnections},
			}
		}
		return nil
	}
}

// DetailError is a check failure carrying values for the report.
type DetailError struct {
	Message string
	Details map[string]any
}

func (e *DetailError) Error() string {
	return e.Message
}
