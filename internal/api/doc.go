// Package api serves the daemon's read-only HTTP status API and defines the
// transport types it returns.
//
// The router is built on gin. Routes:
//
//	GET /api/health            liveness plus store reachability
//	GET /api/events            events filtered by ?status= (repeatable) and ?limit=
//	GET /api/events/:id        a single event
//	GET /api/dashboard         counts per status, workflow state, stage health
//	GET /api/logs              recent daemon log lines from the stream hub
//
// When a token is configured every route requires "Authorization: Bearer <token>".
//
// DTOs use camelCase JSON tags. Pipeline statuses are exposed as their stored
// lowercase strings and timestamps use RFC3339 with milliseconds.
package api
