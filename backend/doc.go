// Package backend provides the concrete core.Backend implementations:
// HTTPBackend speaks to the operator backend's internal REST API, and
// InMemoryBackend is a process-local implementation used by tests and local
// development. The orchestration core only ever depends on the interface.
package backend
