package stage

import (
	"context"
	"sort"
	"strings"
	"time"

	"duendefinder/internal/events"
	"duendefinder/internal/services"
)

// RequireFields returns a validation error naming every empty field.
func RequireFields(stageName string, fields map[string]string) error {
	var missing []string
	for _, name := range sortedNames(fields) {
		if strings.TrimSpace(fields[name]) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return services.Wrap(services.ErrValidation, stageName, "validate event",
		"missing "+strings.Join(missing, ", "), nil)
}

// RequireEvent rejects nil events and events without an ID.
func RequireEvent(stageName string, e *events.Event) error {
	if e == nil || strings.TrimSpace(e.ID) == "" {
		return services.Wrap(services.ErrValidation, stageName, "validate event", "event has no id", nil)
	}
	return nil
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func sortedNames(fields map[string]string) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
