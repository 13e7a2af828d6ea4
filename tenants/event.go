package tenants

import (
	"sort"
	"time"
)

type Event struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	StartTime   string `json:"start_time"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
}

var startTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseStartTime accepts ISO-8601 forms with or without zone and seconds.
func ParseStartTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range startTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeEvents coerces backend rows, drops rows without an id, hides
// inactive rows outside AdminView and sorts by start time.
func NormalizeEvents(rows []map[string]any, view View) []Event {
	events := make([]Event, 0, len(rows))
	for _, raw := range rows {
		f := NewFields(raw)
		e := Event{
			ID:          f.String("id", "event_id"),
			Title:       f.String("title", "name"),
			StartTime:   f.String("start_time", "date_time_iso", "datetime", "date", "start"),
			Location:    f.String("location", "venue"),
			Description: f.String("description", "details"),
			IsActive:    f.Active(),
		}
		if e.ID == "" {
			continue
		}
		if !e.IsActive && view != AdminView {
			continue
		}
		events = append(events, e)
	}
	SortEvents(events)
	return events
}

// SortEvents orders by start time ascending. Empty or unparseable start
// times compare as the empty string and therefore sort after every dated
// event; among themselves they keep insertion order.
func SortEvents(events []Event) {
	type keyed struct {
		event Event
		at    time.Time
		dated bool
	}
	ks := make([]keyed, len(events))
	for i, e := range events {
		at, dated := ParseStartTime(e.StartTime)
		ks[i] = keyed{event: e, at: at, dated: dated}
	}
	sort.SliceStable(ks, func(a, b int) bool {
		switch {
		case ks[a].dated && ks[b].dated:
			return ks[a].at.Before(ks[b].at)
		default:
			return ks[a].dated && !ks[b].dated
		}
	})
	for i := range ks {
		events[i] = ks[i].event
	}
}

func (e Event) Record() map[string]any {
	return map[string]any{
		"id":          e.ID,
		"eventId":     e.ID,
		"title":       e.Title,
		"startTime":   e.StartTime,
		"dateTimeISO": e.StartTime,
		"location":    e.Location,
		"description": e.Description,
		"isActive":    e.IsActive,
	}
}

// FilterEvents returns the events visible in view.
func FilterEvents(events []Event, view View) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if e.IsActive || view == AdminView {
			out = append(out, e)
		}
	}
	return out
}
