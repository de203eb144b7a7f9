// Package sqlitestore persists events in a local SQLite database. It backs
// single-machine runs and the test suite.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"duendefinder/internal/events"
)

const table = "events"

// timeLayout is fixed width so stored timestamps sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

var columns = []string{
	"id", "name", "artist", "city", "venue", "event_date", "event_time", "source_url", "description",
	"pipeline_status", "content_json", "publication_json", "distributions_json", "distributed_at",
	"enrichment_attempts", "publish_attempts", "error_message", "last_heartbeat",
	"status_changed_at", "created_at", "updated_at",
}

// Store implements events.Store on SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open creates or opens the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure database directory: %w", err)
		}
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	store := &Store{db: db, path: path, now: func() time.Time { return time.Now().UTC() }}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Insert(ctx context.Context, e *events.Event) error {
	events.PrepareInsert(e, s.now())
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	values, err := rowValues(e)
	if err != nil {
		return err
	}
	values["id"] = e.ID
	query, args, err := sq.Insert(table).SetMap(values).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*events.Event, error) {
	query, args, err := sq.Select(columns...).From(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get: %w", err)
	}
	e, err := scanEvent(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, events.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (s *Store) Update(ctx context.Context, e *events.Event) error {
	e.UpdatedAt = s.now()
	return s.write(ctx, e, e.Status)
}

func (s *Store) Claim(ctx context.Context, from, processing events.Status) (*events.Event, error) {
	return s.ClaimReady(ctx, from, processing, time.Time{})
}

func (s *Store) ClaimReady(ctx context.Context, from, processing events.Status, retryCutoff time.Time) (*events.Event, error) {
	if err := events.ValidateTransition(from, processing); err != nil {
		return nil, err
	}
	now := formatTime(s.now())
	next := sq.Expr("id = (SELECT id FROM events WHERE pipeline_status = ? ORDER BY status_changed_at, created_at LIMIT 1)", string(from))
	if !retryCutoff.IsZero() {
		next = sq.Expr("id = (SELECT id FROM events WHERE pipeline_status = ? AND (COALESCE(error_message, '') = '' OR status_changed_at < ?) ORDER BY status_changed_at, created_at LIMIT 1)",
			string(from), formatTime(retryCutoff))
	}
	query, args, err := sq.Update(table).
		SetMap(map[string]any{
			"pipeline_status":   string(processing),
			"status_changed_at": now,
			"updated_at":        now,
			"last_heartbeat":    now,
		}).
		Where(next).
		Where(sq.Eq{"pipeline_status": string(from)}).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build claim: %w", err)
	}
	e, err := scanEvent(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim %s event: %w", from, err)
	}
	return e, nil
}

func (s *Store) Transition(ctx context.Context, e *events.Event, from, to events.Status) error {
	if err := events.ValidateTransition(from, to); err != nil {
		return err
	}
	restore := events.SnapshotStatus(e)
	now := s.now()
	e.Status = to
	e.StatusChangedAt = now
	e.UpdatedAt = now
	if !to.IsProcessing() {
		e.LastHeartbeat = nil
	}
	if err := s.write(ctx, e, from); err != nil {
		restore()
		return err
	}
	return nil
}

// write persists every column of e where the stored status equals expected.
func (s *Store) write(ctx context.Context, e *events.Event, expected events.Status) error {
	values, err := rowValues(e)
	if err != nil {
		return err
	}
	query, args, err := sq.Update(table).
		SetMap(values).
		Where(sq.Eq{"id": e.ID, "pipeline_status": string(expected)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.missOrConflict(ctx, e.ID)
	}
	return nil
}

func (s *Store) List(ctx context.Context, filter events.Filter) ([]*events.Event, error) {
	builder := sq.Select(columns...).From(table).OrderBy("created_at", "id")
	if len(filter.Statuses) > 0 {
		builder = builder.Where(sq.Eq{"pipeline_status": statusStrings(filter.Statuses)})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []*events.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Stats(ctx context.Context) (map[events.Status]int, error) {
	query, args, err := sq.Select("pipeline_status", "COUNT(*)").From(table).GroupBy("pipeline_status").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build stats: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[events.Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[events.Status(status)] = count
	}
	return stats, rows.Err()
}

func (s *Store) UpdateHeartbeat(ctx context.Context, id string) error {
	query, args, err := sq.Update(table).
		Set("last_heartbeat", formatTime(s.now())).
		Where(sq.Eq{"id": id, "pipeline_status": statusStrings(events.ProcessingStatuses())}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build heartbeat: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return events.ErrNotFound
	}
	return nil
}

func (s *Store) ReclaimStale(ctx context.Context, cutoff time.Time, statuses ...events.Status) (int64, error) {
	stale := sq.Or{
		sq.Eq{"last_heartbeat": nil},
		sq.Lt{"last_heartbeat": formatTime(cutoff)},
	}
	return s.rollback(ctx, statuses, stale)
}

func (s *Store) ResetProcessing(ctx context.Context) (int64, error) {
	return s.rollback(ctx, nil, nil)
}

func (s *Store) rollback(ctx context.Context, statuses []events.Status, extra sq.Sqlizer) (int64, error) {
	if len(statuses) == 0 {
		statuses = events.ProcessingStatuses()
	}
	now := formatTime(s.now())
	var total int64
	for _, status := range statuses {
		target, ok := status.Rollback()
		if !ok {
			continue
		}
		builder := sq.Update(table).
			SetMap(map[string]any{
				"pipeline_status":   string(target),
				"status_changed_at": now,
				"updated_at":        now,
				"last_heartbeat":    nil,
			}).
			Where(sq.Eq{"pipeline_status": string(status)})
		if extra != nil {
			builder = builder.Where(extra)
		}
		n, err := s.exec(ctx, builder)
		if err != nil {
			return total, fmt.Errorf("roll back %s events: %w", status, err)
		}
		total += n
	}
	return total, nil
}

func (s *Store) RetryFailed(ctx context.Context, ids ...string) (int64, error) {
	now := formatTime(s.now())
	var total int64
	for _, status := range events.FailedStatuses() {
		target, _ := status.RetryTarget()
		values := map[string]any{
			"pipeline_status":   string(target),
			"status_changed_at": now,
			"updated_at":        now,
			"error_message":     nil,
		}
		switch status {
		case events.StatusEnrichmentFailed:
			values["enrichment_attempts"] = 0
		case events.StatusPublishFailed:
			values["publish_attempts"] = 0
		}
		builder := sq.Update(table).SetMap(values).Where(sq.Eq{"pipeline_status": string(status)})
		if len(ids) > 0 {
			builder = builder.Where(sq.Eq{"id": ids})
		}
		n, err := s.exec(ctx, builder)
		if err != nil {
			return total, fmt.Errorf("retry %s events: %w", status, err)
		}
		total += n
	}
	return total, nil
}

func (s *Store) Delete(ctx context.Context, ids ...string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.exec(ctx, sq.Delete(table).Where(sq.Eq{"id": ids}))
	if err != nil {
		return 0, fmt.Errorf("delete events: %w", err)
	}
	return n, nil
}

func (s *Store) exec(ctx context.Context, builder sq.Sqlizer) (int64, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) missOrConflict(ctx context.Context, id string) error {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM events WHERE id = ?", id).Scan(&n); err != nil {
		return fmt.Errorf("check event: %w", err)
	}
	if n == 0 {
		return events.ErrNotFound
	}
	return events.ErrConflict
}

func rowValues(e *events.Event) (map[string]any, error) {
	content, err := marshalJSON(e.Content)
	if err != nil {
		return nil, err
	}
	publication, err := marshalJSON(e.Publication)
	if err != nil {
		return nil, err
	}
	var distributions any
	if len(e.Distributions) > 0 {
		if distributions, err = marshalJSON(e.Distributions); err != nil {
			return nil, err
		}
	}
	return map[string]any{
		"name":                e.Name,
		"artist":              nullableString(e.Artist),
		"city":                nullableString(e.City),
		"venue":               nullableString(e.Venue),
		"event_date":          e.Date,
		"event_time":          nullableString(e.Time),
		"source_url":          nullableString(e.SourceURL),
		"description":         nullableString(e.Description),
		"pipeline_status":     string(e.Status),
		"content_json":        content,
		"publication_json":    publication,
		"distributions_json":  distributions,
		"distributed_at":      nullableTime(e.DistributedAt),
		"enrichment_attempts": e.EnrichmentAttempts,
		"publish_attempts":    e.PublishAttempts,
		"error_message":       nullableString(e.ErrorMessage),
		"last_heartbeat":      nullableTime(e.LastHeartbeat),
		"status_changed_at":   formatTime(e.StatusChangedAt),
		"created_at":          formatTime(e.CreatedAt),
		"updated_at":          formatTime(e.UpdatedAt),
	}, nil
}

func scanEvent(scanner interface{ Scan(dest ...any) error }) (*events.Event, error) {
	var (
		e                                         events.Event
		status                                    string
		artist, city, venue, eventTime, sourceURL sql.NullString
		description, content, publication, dists  sql.NullString
		distributedAt, errorMessage, heartbeat    sql.NullString
		statusChangedAt, createdAt, updatedAt     string
	)
	if err := scanner.Scan(
		&e.ID, &e.Name, &artist, &city, &venue, &e.Date, &eventTime, &sourceURL, &description,
		&status, &content, &publication, &dists, &distributedAt,
		&e.EnrichmentAttempts, &e.PublishAttempts, &errorMessage, &heartbeat,
		&statusChangedAt, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	e.Artist = artist.String
	e.City = city.String
	e.Venue = venue.String
	e.Time = eventTime.String
	e.SourceURL = sourceURL.String
	e.Description = description.String
	e.Status = events.Status(status)
	e.ErrorMessage = errorMessage.String
	if err := unmarshalJSON(content, &e.Content); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	if err := unmarshalJSON(publication, &e.Publication); err != nil {
		return nil, fmt.Errorf("decode publication: %w", err)
	}
	if err := unmarshalJSON(dists, &e.Distributions); err != nil {
		return nil, fmt.Errorf("decode distributions: %w", err)
	}
	e.DistributedAt = parseNullableTime(distributedAt)
	e.LastHeartbeat = parseNullableTime(heartbeat)
	e.StatusChangedAt = parseTime(statusChangedAt)
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return &e, nil
}

func statusStrings(statuses []events.Status) []string {
	out := make([]string, len(statuses))
	for i, status := range statuses {
		out[i] = string(status)
	}
	return out
}

func marshalJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode event: %w", err)
	}
	return string(data), nil
}

func unmarshalJSON(raw sql.NullString, dst any) error {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw.String), dst)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func parseNullableTime(value sql.NullString) *time.Time {
	if !value.Valid || value.String == "" {
		return nil
	}
	t := parseTime(value.String)
	if t.IsZero() {
		return nil
	}
	return &t
}
