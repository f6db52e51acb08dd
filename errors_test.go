package ctrunner

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phetsims/ct-runner/exitcodes"
)

func TestErrorTypeDetection(t *testing.T) {
	runtimeErr := NewRuntimeError(errors.New("browser exploded"))
	assert.True(t, IsRuntimeError(runtimeErr))
	assert.False(t, IsTestFailureError(runtimeErr))

	wrapped := fmt.Errorf("starting service: %w", runtimeErr)
	assert.True(t, IsRuntimeError(wrapped))

	failureErr := NewTestFailureError("2 failed")
	assert.True(t, IsTestFailureError(failureErr))
	assert.False(t, IsRuntimeError(failureErr))

	assert.False(t, IsRuntimeError(nil))
	assert.False(t, IsTestFailureError(nil))
}

func TestRuntimeErrorUnwrap(t *testing.T) {
	inner := errors.New("config missing")
	assert.ErrorIs(t, NewRuntimeError(inner), inner)
}

func TestExitCodeFor(t *testing.T) {
	assert.Equal(t, exitcodes.Success, ExitCodeFor(nil))
	assert.Equal(t, exitcodes.RuntimeErr, ExitCodeFor(NewRuntimeError(errors.New("boom"))))
	assert.Equal(t, exitcodes.TestFailure, ExitCodeFor(NewTestFailureError("1 failed")))
	assert.Equal(t, exitcodes.TestFailure, ExitCodeFor(errors.New("untyped")))
}
