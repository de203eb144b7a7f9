// Command duende is the Duende Finder CLI.
//
// It runs the enrichment, publication, and distribution stages as one-shot
// batches or as a long-running daemon, and offers maintenance commands over
// the event store: listing and importing events, retrying failures,
// migrating legacy status fields, finding duplicates, and auditing data
// contracts.
package main
