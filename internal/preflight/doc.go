// Package preflight provides readiness checks for the external services
// and filesystem paths the pipeline depends on.
//
// These checks run in two contexts:
//   - The workflow manager runs RunAll when the daemon starts and logs each
//     result so misconfiguration shows up before the first event is claimed.
//   - The CLI "duende status" command renders the same results as a table.
//
// Checks for optional integrations are skipped when the feature is disabled.
package preflight
