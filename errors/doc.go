// Package errors provides the structured error type used across orthotile.
//
// Every failure that crosses a package boundary is an *AppError carrying a
// machine-readable code. The session driver uses the code to decide whether a
// failure is session-scoped (configuration, capability, storage,
// post-processing) or ends the run (cancellation).
package errors
