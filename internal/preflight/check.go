// Package preflight runs the diagnostics behind `docdex doctor`:
// registry integrity, data directory health, and embedding provider
// availability.
package preflight

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/docset"
)

// CheckStatus is the outcome of a single check.
type CheckStatus int

const (
	StatusPass CheckStatus = iota
	StatusWarn
	StatusFail
)

func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON encodes the status as its string form.
func (s CheckStatus) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", s.String())), nil
}

// CheckResult holds the result of a single preflight check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical reports whether this is a required check that failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Checker performs preflight validation against a loaded config.
type Checker struct {
	cfg     *config.Config
	verbose bool
	output  io.Writer
}

// Option configures a Checker.
type Option func(*Checker)

// WithVerbose enables detail lines in PrintResults.
func WithVerbose(verbose bool) Option {
	return func(c *Checker) {
		c.verbose = verbose
	}
}

// WithOutput sets the writer PrintResults uses.
func WithOutput(w io.Writer) Option {
	return func(c *Checker) {
		c.output = w
	}
}

// New creates a Checker for the given configuration.
func New(cfg *config.Config, opts ...Option) *Checker {
	c := &Checker{
		cfg:    cfg,
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs every check and returns the results in display order.
func (c *Checker) RunAll(ctx context.Context) []CheckResult {
	return []CheckResult{
		c.CheckRegistry(),
		c.CheckDataDir(),
		c.CheckDiskSpace(),
		c.CheckEmbedder(ctx),
	}
}

// CheckRegistry verifies the docset registry parses and that every
// enabled docset root exists and contains at least one supported file.
func (c *Checker) CheckRegistry() CheckResult {
	result := CheckResult{Name: "registry", Required: true}

	docsets, err := docset.LoadRegistry(c.cfg.Paths.DocsetsFile)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("failed to load %s: %v", c.cfg.Paths.DocsetsFile, err)
		return result
	}

	enabled := docset.Enabled(docsets)
	if len(enabled) == 0 {
		result.Status = StatusFail
		result.Message = "no enabled docsets in registry"
		return result
	}

	var empty []string
	for _, ds := range enabled {
		files, err := docset.ListFiles(ds.RootPath)
		if err != nil {
			result.Status = StatusFail
			result.Message = fmt.Sprintf("docset %q: %v", ds.ID, err)
			return result
		}
		if len(files) == 0 {
			empty = append(empty, ds.ID)
		}
	}
	if len(empty) > 0 {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%d docsets enabled, %d contain no indexable files", len(enabled), len(empty))
		result.Details = fmt.Sprintf("empty: %v", empty)
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d docsets enabled", len(enabled))
	return result
}

// CheckDataDir verifies the data directory can be created and written.
func (c *Checker) CheckDataDir() CheckResult {
	result := CheckResult{Name: "data_dir", Required: true}
	dir := c.cfg.Paths.DataDir

	if err := os.MkdirAll(dir, 0o755); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot create %s: %v", dir, err)
		return result
	}

	probe := filepath.Join(dir, ".docdex-write-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot write to %s: %v", dir, err)
		return result
	}
	_ = os.Remove(probe)

	result.Status = StatusPass
	result.Message = dir + " is writable"
	return result
}

// HasCriticalFailures reports whether any required check failed.
func (c *Checker) HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus condenses results into "ready", "ready_with_warnings",
// or "failed".
func (c *Checker) SummaryStatus(results []CheckResult) string {
	hasWarnings := false
	for _, r := range results {
		if r.IsCritical() {
			return "failed"
		}
		if r.Status == StatusWarn || r.Status == StatusFail {
			hasWarnings = true
		}
	}
	if hasWarnings {
		return "ready_with_warnings"
	}
	return "ready"
}

// PrintResults writes a human-readable report to the configured output.
func (c *Checker) PrintResults(results []CheckResult) {
	fmt.Fprintln(c.output, "Docdex System Check")
	fmt.Fprintln(c.output, "===================")
	fmt.Fprintln(c.output)

	for _, r := range results {
		fmt.Fprintf(c.output, "[%s] %s: %s\n", r.Status, r.Name, r.Message)
		if c.verbose && r.Details != "" {
			fmt.Fprintf(c.output, "       %s\n", r.Details)
		}
	}

	fmt.Fprintln(c.output)
	fmt.Fprintf(c.output, "Status: %s\n", c.SummaryStatus(results))
}
