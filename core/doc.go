// Package core defines the domain model shared by every Parley component:
// projects, agents, conversations, messages, the transient per-run project
// context, pause reason codes, and the Backend interface describing the
// remote persistence collaborator. Interfaces live here so that engine,
// watchdog and memory are wired against abstractions while concrete
// implementations (HTTP, in-memory) live in the backend package.
package core
