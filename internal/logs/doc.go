// Package logs reads daemon output for the CLI.
//
// Last and Follow read the shared log file or a per-event log written under
// log_dir/events. StreamClient polls the status API's /api/logs endpoint when
// the daemon is serving it, which also allows filtering by event and
// component.
package logs
