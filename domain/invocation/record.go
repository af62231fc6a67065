// Package invocation provides the audit record of a dispatched call and
// aggregation over records.
// All functions are pure - no side effects.
package invocation

import "time"

// Outcome is the terminal state of an invocation.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
)

// Record describes one invocation after it finished (immutable value type).
type Record struct {
	// ID is the invocation's correlation id.
	ID     string `json:"id"`
	AppID  string `json:"appId"`
	Module string `json:"module"`
	Method string `json:"method"`

	// Stage is the last pipeline stage the invocation reached.
	Stage     string        `json:"stage"`
	Outcome   Outcome       `json:"outcome"`
	ErrorKind string        `json:"errorKind,omitempty"`
	Message   string        `json:"message,omitempty"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"durationNs"`
}

// Failed returns true if the invocation ended in an error.
func (r Record) Failed() bool {
	return r.Outcome == OutcomeFailed
}

// Filter selects records. Zero fields match everything.
type Filter struct {
	AppID     string
	Module    string
	Outcome   Outcome
	ErrorKind string
	Since     time.Time
	Limit     int
}

// DefaultLimit caps list queries that do not set a limit.
const DefaultLimit = 100

// EffectiveLimit returns the limit to apply, defaulting and capping it.
func (f Filter) EffectiveLimit() int {
	switch {
	case f.Limit <= 0:
		return DefaultLimit
	case f.Limit > 1000:
		return 1000
	default:
		return f.Limit
	}
}

// Matches reports whether r satisfies the filter.
// This is a PURE function.
func (f Filter) Matches(r Record) bool {
	if f.AppID != "" && r.AppID != f.AppID {
		return false
	}
	if f.Module != "" && r.Module != f.Module {
		return false
	}
	if f.Outcome != "" && r.Outcome != f.Outcome {
		return false
	}
	if f.ErrorKind != "" && r.ErrorKind != f.ErrorKind {
		return false
	}
	if !f.Since.IsZero() && r.StartedAt.Before(f.Since) {
		return false
	}
	return true
}
