// Package workflow advances events through the enrichment, publication, and
// distribution stages.
//
// The Manager runs one lane per configured stage. Each lane reclaims stale
// claims via heartbeats, atomically claims the oldest event waiting at the
// stage's start status, and feeds it into the registered stage handler while
// recording attempts and failure metadata. Failures are routed through a
// single policy: retryable errors with attempts remaining roll the event back
// to the stage start status, everything else lands in the stage's failed
// status.
//
// Lanes never share an event because claims are compare-and-set on the
// status field, so the daemon lanes and the one-shot RunStage batches can
// run against the same store at the same time.
package workflow
