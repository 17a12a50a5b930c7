// Package logging provides a minimal logging interface and adapters for
// Parley.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that the engine, watchdog and model adapters use for
// observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - With for attaching project/run scoped attributes to any Logger
//
// The design intentionally keeps the interface minimal so callers can plug
// any structured logger while the service defaults to slog JSON output.
package logging
