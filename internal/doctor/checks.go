// Package doctor runs pre-flight checks for a collector deployment: the
// config, the host list, the jump host and the sensor tool.
package doctor

import (
	"context"
	"fmt"

	"github.com/rileyhilliard/ipmicollect/internal/util"
)

// CheckStatus represents the result status of a check.
type CheckStatus int

const (
	StatusPass CheckStatus = iota
	StatusWarn
	StatusFail
)

// String returns a human-readable status string.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// CheckResult contains the outcome of running a check.
type CheckResult struct {
	Name       string
	Category   string
	Status     CheckStatus
	Message    string
	Suggestion string
}

// Check is one diagnostic.
type Check interface {
	// Name returns the check's identifier.
	Name() string

	// Category groups related checks in the report: CONFIG, HOSTS, SSH, TOOL.
	Category() string

	// Run executes the check. It must return promptly once ctx is done.
	Run(ctx context.Context) CheckResult
}

// RunAll executes checks in order. Later checks often depend on the
// environment the earlier ones verified, so they are not run in parallel.
func RunAll(ctx context.Context, checks []Check) []CheckResult {
	results := make([]CheckResult, len(checks))
	for i, check := range checks {
		results[i] = run(ctx, check)
	}
	return results
}

func run(ctx context.Context, c Check) CheckResult {
	r := c.Run(ctx)
	if r.Name == "" {
		r.Name = c.Name()
	}
	if r.Category == "" {
		r.Category = c.Category()
	}
	return r
}

// CountByStatus counts results by status.
func CountByStatus(results []CheckResult) map[CheckStatus]int {
	counts := make(map[CheckStatus]int)
	for _, r := range results {
		counts[r.Status]++
	}
	return counts
}

// HasFailures returns true if any result has a fail status.
func HasFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.Status == StatusFail {
			return true
		}
	}
	return false
}

// Summary returns a summary string of the check results.
func Summary(results []CheckResult) string {
	counts := CountByStatus(results)
	total := counts[StatusWarn] + counts[StatusFail]
	if total == 0 {
		return "Everything looks good"
	}
	return fmt.Sprintf("%d %s found", total, util.Pluralize(total, "issue", "issues"))
}
