// Package summary collects step and hook results for one devplug run and
// aggregates them per category.
package summary

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/hooks"
	"github.com/arthur-debert/devplug/pkg/types"
)

// RunSummary is everything that happened during one command.
type RunSummary struct {
	ID         string             `json:"id"`
	Command    string             `json:"command"`
	DryRun     bool               `json:"dry_run,omitempty"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at,omitempty"`
	Results    []types.StepResult `json:"results"`
	Warnings   []string           `json:"warnings,omitempty"`
}

// New starts a summary for command.
func New(command string, dryRun bool) *RunSummary {
	return &RunSummary{
		ID:        uuid.NewString(),
		Command:   command,
		DryRun:    dryRun,
		StartedAt: time.Now(),
		Results:   []types.StepResult{},
	}
}

// Add appends results.
func (s *RunSummary) Add(results ...types.StepResult) {
	s.Results = append(s.Results, results...)
}

// Warn appends warnings.
func (s *RunSummary) Warn(msgs ...string) {
	s.Warnings = append(s.Warnings, msgs...)
}

// Finish records the end time.
func (s *RunSummary) Finish() {
	s.FinishedAt = time.Now()
}

// Duration is the wall time of the run, or zero while it is unfinished.
func (s *RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Counts tallies results by outcome.
type Counts struct {
	Category       string `json:"category"`
	Installed      int    `json:"installed"`
	AlreadyPresent int    `json:"already_present"`
	Pending        int    `json:"pending,omitempty"`
	Skipped        int    `json:"skipped"`
	Disabled       int    `json:"disabled"`
	Failed         int    `json:"failed"`
}

func (c *Counts) add(st types.StepStatus) {
	switch st {
	case types.StatusInstalled, types.StatusSucceeded:
		c.Installed++
	case types.StatusAlreadyPresent:
		c.AlreadyPresent++
	case types.StatusWouldInstall:
		c.Pending++
	case types.StatusSkipped:
		c.Skipped++
	case types.StatusDisabled:
		c.Disabled++
	case types.StatusFailed:
		c.Failed++
	}
}

// Total is the number of results counted.
func (c Counts) Total() int {
	return c.Installed + c.AlreadyPresent + c.Pending + c.Skipped + c.Disabled + c.Failed
}

// Status is the worst outcome in the category: failed, then skipped,
// then installed, then already-present.
func (c Counts) Status() types.StepStatus {
	switch {
	case c.Failed > 0:
		return types.StatusFailed
	case c.Skipped > 0:
		return types.StatusSkipped
	case c.Pending > 0:
		return types.StatusWouldInstall
	case c.Installed > 0:
		return types.StatusInstalled
	case c.AlreadyPresent > 0:
		return types.StatusAlreadyPresent
	}
	return types.StatusDisabled
}

// Categories returns per-category counts in order of first appearance.
func (s *RunSummary) Categories() []Counts {
	index := map[string]int{}
	var out []Counts
	for _, r := range s.Results {
		cat := r.Category
		if cat == "" {
			cat = "other"
		}
		i, ok := index[cat]
		if !ok {
			i = len(out)
			index[cat] = i
			out = append(out, Counts{Category: cat})
		}
		out[i].add(r.Status)
	}
	return out
}

// Totals returns counts over every result.
func (s *RunSummary) Totals() Counts {
	c := Counts{Category: "total"}
	for _, r := range s.Results {
		c.add(r.Status)
	}
	return c
}

// Failures returns the failed results.
func (s *RunSummary) Failures() []types.StepResult {
	var out []types.StepResult
	for _, r := range s.Results {
		if r.Status == types.StatusFailed {
			out = append(out, r)
		}
	}
	return out
}

// HasFailures reports whether any result failed.
func (s *RunSummary) HasFailures() bool {
	return len(s.Failures()) > 0
}

// Err returns an error describing the failures, or nil.
func (s *RunSummary) Err() error {
	failed := s.Failures()
	if len(failed) == 0 {
		return nil
	}
	names := make([]string, 0, len(failed))
	for _, r := range failed {
		if r.Plugin != "" {
			names = append(names, r.Plugin+"/"+r.Name)
		} else {
			names = append(names, r.Name)
		}
	}
	code := errors.ErrInstall
	if failed[0].Category == hooks.Category {
		code = errors.ErrHook
	}
	return errors.New(code, fmt.Sprintf("%d of %d steps failed", len(failed), len(s.Results))).
		WithDetail("failed", names)
}
