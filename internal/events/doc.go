// Package events models flamenco event documents and their content pipeline
// lifecycle.
//
// A single Status field replaces the older contentStatus/status/isDistributed
// trio. Every allowed move is listed in the transition table; stores enforce
// the source status atomically so two workers can never claim the same event.
// StatusFromLegacy maps pre-unification documents onto the new lifecycle and
// CheckContract reports documents whose fields contradict their status.
package events
