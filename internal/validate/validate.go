// Package validate decides whether a playbook is complete enough to persist.
package validate

import "stitchflow.app/conductor/internal/model"

// Result is the structured completeness verdict. Callers must check
// Complete before activating or persisting a playbook; this is a value, not
// an error, because missing information is an expected state of the loop.
type Result struct {
	Complete     bool        `json:"complete"`
	BlockingGaps []model.Gap `json:"blockingGaps"`
	Warnings     []model.Gap `json:"warnings"`
}

// IsComplete partitions gaps into blocking and warning sets. Critical and
// high severities block unless allowIncomplete is set. Pure and re-runnable
// at any point in the loop.
func IsComplete(gaps []model.Gap, allowIncomplete bool) Result {
	result := Result{
		BlockingGaps: []model.Gap{},
		Warnings:     []model.Gap{},
	}

	for _, g := range gaps {
		if g.Blocking() && !allowIncomplete {
			result.BlockingGaps = append(result.BlockingGaps, g)
		} else {
			result.Warnings = append(result.Warnings, g)
		}
	}

	result.Complete = len(result.BlockingGaps) == 0
	return result
}
