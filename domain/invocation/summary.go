package invocation

import "time"

// Summary aggregates a set of records (value type).
type Summary struct {
	Total       int64            `json:"total"`
	Completed   int64            `json:"completed"`
	Failed      int64            `json:"failed"`
	ByErrorKind map[string]int64 `json:"byErrorKind"`
	AvgDuration time.Duration    `json:"avgDurationNs"`
	MaxDuration time.Duration    `json:"maxDurationNs"`
}

// Summarize combines records into a summary.
// This is a PURE function.
func Summarize(records []Record) Summary {
	s := Summary{ByErrorKind: make(map[string]int64)}
	if len(records) == 0 {
		return s
	}

	var total time.Duration
	for _, r := range records {
		s.Total++
		total += r.Duration
		if r.Duration > s.MaxDuration {
			s.MaxDuration = r.Duration
		}

		if r.Failed() {
			s.Failed++
			s.ByErrorKind[r.ErrorKind]++
		} else {
			s.Completed++
		}
	}

	s.AvgDuration = total / time.Duration(s.Total)
	return s
}

// Select returns the records matching f, newest first, capped at the
// filter's limit. The input slice is not modified.
// This is a PURE function.
func Select(records []Record, f Filter) []Record {
	limit := f.EffectiveLimit()
	out := make([]Record, 0, min(limit, len(records)))

	// Records are stored oldest first; walk backwards for newest first.
	for i := len(records) - 1; i >= 0 && len(out) < limit; i-- {
		if f.Matches(records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}
