package bootstrap

import (
	"fmt"
	"time"
)

// Status is the terminal state of a phase within a run.
type Status string

const (
	// StatusSkipped means Check found the phase already satisfied.
	StatusSkipped Status = "skipped"
	// StatusSucceeded means Run (and Verify, if set) completed.
	StatusSucceeded Status = "succeeded"
	// StatusFailedFatal means a critical phase failed and aborted the run.
	StatusFailedFatal Status = "failed-fatal"
	// StatusFailedRecoverable means a non-critical phase failed and the run
	// continued.
	StatusFailedRecoverable Status = "failed-recoverable"
	// StatusNotAttempted means an earlier fatal failure prevented the phase
	// from running.
	StatusNotAttempted Status = "not-attempted"
)

// PhaseResult records the outcome of one phase.
type PhaseResult struct {
	Name     string
	Status   Status
	Err      error
	Duration time.Duration
}

// RunReport aggregates the outcomes of a bootstrap run.
type RunReport struct {
	Results  []PhaseResult
	Warnings []string
}

func (r *RunReport) record(result PhaseResult) {
	r.Results = append(r.Results, result)
}

// Warn records a non-fatal condition for the end-of-run summary.
func (r *RunReport) Warn(format string, v ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, v...))
}

// Fatal reports whether the run was aborted by a critical phase failure.
func (r *RunReport) Fatal() bool {
	for _, result := range r.Results {
		if result.Status == StatusFailedFatal {
			return true
		}
	}
	return false
}

// FailedPhase returns the result of the fatally failed phase, or nil.
func (r *RunReport) FailedPhase() *PhaseResult {
	for i := range r.Results {
		if r.Results[i].Status == StatusFailedFatal {
			return &r.Results[i]
		}
	}
	return nil
}

// RunPhases executes the phases in order. A critical failure aborts the run
// and marks the remaining phases not attempted; a non-critical failure is
// recorded as a warning and execution continues.
func RunPhases(ctx *Context, phases []Phase) *RunReport {
	report := &RunReport{}
	start := time.Now()
	ctx.Observer.Printf("Starting bootstrap with %d phases...", len(phases))

	aborted := false
	for i, phase := range phases {
		if aborted {
			report.record(PhaseResult{Name: phase.Name, Status: StatusNotAttempted})
			continue
		}

		label := fmt.Sprintf("%s (%d/%d)", phase.Name, i+1, len(phases))
		ctx.Observer.Printf("[%s] starting", label)

		result := runPhase(ctx, phase)
		report.record(result)

		switch result.Status {
		case StatusSkipped:
			LogPhaseSkipped(ctx.Observer, phase.Name)
		case StatusSucceeded:
			LogPhaseComplete(ctx.Observer, phase.Name, result.Duration)
		case StatusFailedRecoverable:
			LogPhaseFailed(ctx.Observer, phase.Name, result.Err)
			report.Warn("%s failed: %v", phase.Name, result.Err)
		case StatusFailedFatal:
			LogPhaseFailed(ctx.Observer, phase.Name, result.Err)
			aborted = true
		}
	}

	ctx.Observer.Printf("Bootstrap finished in %v", time.Since(start).Round(time.Millisecond))
	return report
}

func runPhase(ctx *Context, phase Phase) PhaseResult {
	start := time.Now()
	result := PhaseResult{Name: phase.Name}

	fail := func(err error) PhaseResult {
		result.Err = err
		result.Status = failureStatus(phase)
		result.Duration = time.Since(start)
		return result
	}

	if phase.Check != nil {
		satisfied, err := phase.Check(ctx)
		if err != nil {
			return fail(fmt.Errorf("check: %w", err))
		}
		if satisfied {
			result.Status = StatusSkipped
			result.Duration = time.Since(start)
			return result
		}
	}

	if err := phase.Run(ctx); err != nil {
		return fail(err)
	}

	if phase.Verify != nil {
		if err := phase.Verify(ctx); err != nil {
			return fail(fmt.Errorf("verify: %w", err))
		}
	}

	result.Status = StatusSucceeded
	result.Duration = time.Since(start)
	return result
}

func failureStatus(phase Phase) Status {
	if phase.Critical {
		return StatusFailedFatal
	}
	return StatusFailedRecoverable
}
