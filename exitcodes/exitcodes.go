// Package exitcodes defines the standard exit codes used by ct-runner.
package exitcodes

// Exit code constants used by ct-runner
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): Used when all requested tests pass
// * TestFailure (1): Used when one or more tests fail in the browser
// * RuntimeErr (2): Used for runtime errors such as browser launch failures,
//   configuration errors or timeouts
const (
	Success     = 0 // All tests pass
	TestFailure = 1 // Test failures
	RuntimeErr  = 2 // Runtime errors or timeouts
)
