// Package dedup finds events that describe the same performance and picks
// the one document to keep.
//
// Events are grouped by (date, artist, name) after trimming, collapsing
// whitespace, case folding, and stripping accents, so "Estrella Morente"
// and " estrella  morenté" land in the same group. Within a group the event
// furthest along the pipeline survives.
package dedup

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"duendefinder/internal/events"
)

// Key identifies a group of duplicate events.
type Key struct {
	Date   string `json:"date" yaml:"date"`
	Artist string `json:"artist" yaml:"artist"`
	Name   string `json:"name" yaml:"name"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s | %s | %s", k.Date, k.Artist, k.Name)
}

// Group is one set of duplicates with the survivor chosen.
type Group struct {
	Key    Key             `json:"key" yaml:"key"`
	Keep   *events.Event   `json:"keep" yaml:"keep"`
	Remove []*events.Event `json:"remove" yaml:"remove"`
}

// Report is the outcome of Plan.
type Report struct {
	Scanned    int     `json:"scanned" yaml:"scanned"`
	Ungrouped  int     `json:"ungrouped" yaml:"ungrouped"`
	Groups     []Group `json:"groups" yaml:"groups"`
	Duplicates int     `json:"duplicates" yaml:"duplicates"`
}

// RemoveIDs lists every event the report would delete.
func (r Report) RemoveIDs() []string {
	ids := make([]string, 0, r.Duplicates)
	for _, g := range r.Groups {
		for _, e := range g.Remove {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// Deleter is the part of events.Store that Apply needs.
type Deleter interface {
	Delete(ctx context.Context, ids ...string) (int64, error)
}

// statusRank orders statuses from most to least worth keeping.
var statusRank = map[events.Status]int{
	events.StatusDistributed:        0,
	events.StatusDistributing:       1,
	events.StatusPublished:          2,
	events.StatusPublishing:         3,
	events.StatusContentReady:       4,
	events.StatusEnriching:          5,
	events.StatusPending:            6,
	events.StatusDistributionFailed: 7,
	events.StatusPublishFailed:      8,
	events.StatusEnrichmentFailed:   9,
}

const unknownRank = 10

// KeyFor builds the grouping key for the event. ok is false when the event
// has neither a name nor an artist, since such documents cannot be matched
// safely.
func KeyFor(e *events.Event) (Key, bool) {
	key := Key{
		Date:   normalize(e.Date),
		Artist: normalize(e.Artist),
		Name:   normalize(e.Name),
	}
	if key.Name == "" && key.Artist == "" {
		return key, false
	}
	return key, true
}

// Plan groups the events and picks a survivor per group. It does not touch
// any store. Groups are ordered by key for stable output.
func Plan(all []*events.Event) Report {
	report := Report{Scanned: len(all)}
	groups := make(map[Key][]*events.Event)
	for _, e := range all {
		if e == nil {
			continue
		}
		key, ok := KeyFor(e)
		if !ok {
			report.Ungrouped++
			continue
		}
		groups[key] = append(groups[key], e)
	}

	for key, members := range groups {
		if len(members) < 2 {
			continue
		}
		sort.SliceStable(members, func(i, j int) bool { return better(members[i], members[j]) })
		report.Groups = append(report.Groups, Group{Key: key, Keep: members[0], Remove: members[1:]})
		report.Duplicates += len(members) - 1
	}
	sort.Slice(report.Groups, func(i, j int) bool {
		a, b := report.Groups[i].Key, report.Groups[j].Key
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Artist != b.Artist {
			return a.Artist < b.Artist
		}
		return a.Name < b.Name
	})
	return report
}

// Apply deletes every non-surviving event in the report.
func Apply(ctx context.Context, store Deleter, report Report) (int64, error) {
	ids := report.RemoveIDs()
	if len(ids) == 0 {
		return 0, nil
	}
	deleted, err := store.Delete(ctx, ids...)
	if err != nil {
		return deleted, fmt.Errorf("delete duplicates: %w", err)
	}
	return deleted, nil
}

// better reports whether a should be kept over b.
func better(a, b *events.Event) bool {
	if ra, rb := rank(a.Status), rank(b.Status); ra != rb {
		return ra < rb
	}
	if pa, pb := a.Publication.WordPressPostID > 0, b.Publication.WordPressPostID > 0; pa != pb {
		return pa
	}
	if ta, tb := strings.TrimSpace(a.Content.BlogPostTitle) != "", strings.TrimSpace(b.Content.BlogPostTitle) != ""; ta != tb {
		return ta
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		if a.CreatedAt.IsZero() || b.CreatedAt.IsZero() {
			return !a.CreatedAt.IsZero()
		}
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func rank(s events.Status) int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return unknownRank
}

var folder = cases.Fold()

// normalize trims, collapses whitespace, strips combining marks, and case folds.
func normalize(value string) string {
	value = strings.Join(strings.Fields(value), " ")
	if value == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, value)
	if err != nil {
		stripped = value
	}
	return folder.String(stripped)
}
