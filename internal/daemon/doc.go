// Package daemon coordinates the long-running Duende Finder process.
//
// It wires configuration, the event store, the workflow manager, and the
// optional status API into a single lifecycle with flock-based locking so
// only one daemon runs per state directory. The daemon also exposes the
// store maintenance helpers the CLI needs while it is running.
//
// Keep orchestration logic here: stage behaviour lives in the enrichment,
// publication, and distribution packages while the daemon focuses on startup,
// shutdown, and high level coordination.
package daemon
