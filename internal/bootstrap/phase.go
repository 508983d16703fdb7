package bootstrap

// Phase is one idempotent step of a bootstrap run.
//
// Check decides whether Run is needed at all: it returns true when the
// phase's outcome is already in place, which marks the phase skipped. Check
// may populate the cluster context as a side effect of its read-only lookups.
// Verify, when set, confirms the outcome after Run.
type Phase struct {
	// Name identifies the phase in logs and the run report.
	Name string

	// Critical phases abort the run on failure. Non-critical failures are
	// recorded as warnings and the run continues.
	Critical bool

	// Check reports whether the phase is already satisfied. Nil means the
	// phase always runs.
	Check func(ctx *Context) (bool, error)

	// Run performs the phase's mutation.
	Run func(ctx *Context) error

	// Verify confirms the outcome after Run. Nil skips verification.
	Verify func(ctx *Context) error
}
