package pipeline

import (
	"fmt"
	"time"

	"github.com/teranos/bridgegen/drift"
	"github.com/teranos/bridgegen/errors"
)

// Report is the outcome of one run.
type Report struct {
	RunID    string
	Mode     Mode
	Units    []string
	Results  []drift.Result
	Started  time.Time
	Duration time.Duration
}

// Counts tallies results by outcome.
func (r *Report) Counts() map[drift.Outcome]int {
	counts := make(map[drift.Outcome]int, 3)
	for _, res := range r.Results {
		counts[res.Outcome]++
	}
	return counts
}

// Written counts files written or removed.
func (r *Report) Written() int {
	n := 0
	for _, res := range r.Results {
		if res.Written || res.Removed {
			n++
		}
	}
	return n
}

// Drifted lists every result that is not Unchanged and was not resolved by
// this run.
func (r *Report) Drifted() []drift.Result {
	var out []drift.Result
	for _, res := range r.Results {
		if res.Outcome != drift.Unchanged && !res.Written && !res.Removed {
			out = append(out, res)
		}
	}
	return out
}

// OK reports success. A write run fails on any Conflict; a check run fails
// on any drift.
func (r *Report) OK() bool {
	for _, res := range r.Results {
		switch {
		case res.Outcome == drift.Conflict:
			return false
		case r.Mode == Check && res.Outcome != drift.Unchanged:
			return false
		}
	}
	return true
}

// Err describes a failed report as an error listing every offending file.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	var list errors.List
	for _, res := range r.Drifted() {
		kind := errors.ErrConflict
		if res.Outcome != drift.Conflict {
			if r.Mode != Check {
				continue
			}
			kind = errors.ErrDrift
		}
		list = append(list, &errors.GenError{
			Kind: kind,
			Unit: res.Unit,
			Decl: res.Path,
			Msg:  fmt.Sprintf("%s (%s)", res.Outcome, res.Reason),
		})
	}
	return list.Err()
}
