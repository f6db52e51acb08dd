package runner

import (
	"errors"
	"fmt"

	"github.com/phetsims/ct-runner/types"
)

// ErrNoNextTest is the bail-timeout failure: the page neither reported a
// result nor signalled readiness for the next test within the bail window.
// The message text is matched by the CT dashboards; keep it stable.
var ErrNoNextTest = errors.New("Did not get next-test message")

// RunError wraps the root cause of a failed run together with the
// diagnostic log captured up to the failure, so the scheduler has enough
// context to decide whether to retry.
type RunError struct {
	Info types.TestInfo
	Err  error
	Log  string
}

func (e *RunError) Error() string {
	if e.Log == "" {
		return fmt.Sprintf("test %s: %v", e.Info.ID(), e.Err)
	}
	return fmt.Sprintf("test %s: %v\n--- client events ---\n%s", e.Info.ID(), e.Err, e.Log)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
