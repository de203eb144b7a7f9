package testsupport

import (
	"context"
	"testing"

	"duendefinder/internal/config"
	"duendefinder/internal/events"
	"duendefinder/internal/events/sqlitestore"
)

// MustOpenStore opens a SQLite-backed events store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *sqlitestore.Store {
	t.Helper()

	store, err := sqlitestore.Open(context.Background(), cfg.Store.SQLitePath)
	if err != nil {
		t.Fatalf("sqlitestore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewEvent inserts a pending event with the given name, artist, and date.
func NewEvent(t testing.TB, store events.Store, name, artist, date string) *events.Event {
	t.Helper()

	ev := &events.Event{
		Name:   name,
		Artist: artist,
		City:   "Sevilla",
		Venue:  "Casa de la Memoria",
		Date:   date,
		Time:   "21:00",
	}
	if err := store.Insert(context.Background(), ev); err != nil {
		t.Fatalf("store.Insert: %v", err)
	}
	return ev
}
