package domain

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Sentinel errors for calendar operations. A missing event and an event owned
// by someone else both surface as ErrNotFound so existence is not leaked.
var (
	ErrNotFound        = errors.New("event not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrFirstOccurrence = errors.New("first occurrence of a recurring series cannot be edited")
)

// ProcessingError wraps an unexpected failure during assistant-text processing.
// The cause is retained for logging but callers present only the generic message.
type ProcessingError struct {
	Err error
}

func (e *ProcessingError) Error() string { return "processing failed: " + e.Err.Error() }
func (e *ProcessingError) Unwrap() error { return e.Err }

const (
	DateLayout      = "2006-01-02"
	TimeLayout      = "15:04"
	ExceptionLayout = "20060102T150405Z"

	MaxTitleLen       = 256
	MaxDescriptionLen = 1024
	MaxLocationLen    = 256

	// DefaultColour is used when an event is created without an explicit colour.
	DefaultColour = "#2d9cdb"
)

var colourRegexp = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}){1,2}$`)

// ValidColour reports whether s is a 3- or 6-digit hex colour string.
func ValidColour(s string) bool { return colourRegexp.MatchString(s) }

// Event represents a calendar event. A recurring series is stored as a single
// anchor row: RRule holds the recurrence rule and ExDate the comma-joined set
// of suppressed occurrence timestamps in ExceptionLayout form.
type Event struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Location    *string   `json:"location,omitempty"`
	Date        time.Time `json:"date"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
	Colour      string    `json:"colour"`
	RRule       *string   `json:"rrule,omitempty"`
	ExDate      *string   `json:"exdate,omitempty"`
	UserID      int64     `json:"user_id"`
}

// Recurring reports whether the event anchors a recurring series.
func (e *Event) Recurring() bool { return e.RRule != nil && *e.RRule != "" }

// ExDateString returns the persisted exception-date string, or "" when unset.
func (e *Event) ExDateString() string {
	if e.ExDate == nil {
		return ""
	}
	return *e.ExDate
}

// EventEdit carries a partial update. Nil fields keep the existing value;
// present fields override it. PreviousDate identifies which occurrence of a
// recurring series is being edited.
type EventEdit struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Location    *string    `json:"location,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
	StartTime   *string    `json:"start_time,omitempty"`
	EndTime     *string    `json:"end_time,omitempty"`
	Colour      *string    `json:"colour,omitempty"`

	PreviousDate      *time.Time `json:"previous_date,omitempty"`
	PreviousStartTime *string    `json:"previous_start_time,omitempty"`
	PreviousEndTime   *string    `json:"previous_end_time,omitempty"`
}

// Merged returns a copy of e with every present edit field applied. Each
// optional field is enumerated explicitly; absent fields keep their value.
func (e Event) Merged(edit EventEdit) Event {
	if edit.Title != nil {
		e.Title = *edit.Title
	}
	if edit.Description != nil {
		e.Description = edit.Description
	}
	if edit.Location != nil {
		e.Location = edit.Location
	}
	if edit.Date != nil {
		e.Date = DateOnly(*edit.Date)
	}
	if edit.StartTime != nil {
		e.StartTime = *edit.StartTime
	}
	if edit.EndTime != nil {
		e.EndTime = *edit.EndTime
	}
	if edit.Colour != nil {
		e.Colour = *edit.Colour
	}
	return e
}

// Empty reports whether the edit carries no field overrides at all.
func (e EventEdit) Empty() bool {
	return e.Title == nil && e.Description == nil && e.Location == nil &&
		e.Date == nil && e.StartTime == nil && e.EndTime == nil && e.Colour == nil
}

// DateOnly truncates t to its calendar day at midnight UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// CombineDateTime combines a calendar day with an "HH:MM" time of day into a
// single UTC instant.
func CombineDateTime(date time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time of day %q: %w", hhmm, err)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}

// ExceptionSet is the in-memory form of an event's suppressed occurrences.
// Entries are canonical ExceptionLayout timestamps, unique, in insertion
// order. The comma-joined string exists only at the persistence edge.
type ExceptionSet struct {
	entries []string
	seen    map[string]struct{}
}

// ParseExceptionSet decodes the comma-joined persisted form. An empty string
// means no exceptions, not one malformed entry.
func ParseExceptionSet(s string) *ExceptionSet {
	set := &ExceptionSet{seen: make(map[string]struct{})}
	if s == "" {
		return set
	}
	for _, entry := range strings.Split(s, ",") {
		set.Add(entry)
	}
	return set
}

// Add inserts a timestamp entry, returning false if it was already present.
func (s *ExceptionSet) Add(entry string) bool {
	if _, ok := s.seen[entry]; ok {
		return false
	}
	s.seen[entry] = struct{}{}
	s.entries = append(s.entries, entry)
	return true
}

// Contains reports exact string membership of a timestamp entry.
func (s *ExceptionSet) Contains(entry string) bool {
	_, ok := s.seen[entry]
	return ok
}

// ContainsDate reports whether any entry falls on the given calendar day.
func (s *ExceptionSet) ContainsDate(date time.Time) bool {
	day := date.Format("20060102")
	for _, entry := range s.entries {
		if len(entry) >= len(day) && entry[:len(day)] == day {
			return true
		}
	}
	return false
}

// Len returns the number of entries.
func (s *ExceptionSet) Len() int { return len(s.entries) }

// Encode returns the comma-joined persisted form.
func (s *ExceptionSet) Encode() string { return strings.Join(s.entries, ",") }

// ExceptionEntry formats the canonical timestamp that suppresses the
// occurrence of a series on the given date at the given "HH:MM" start time.
func ExceptionEntry(date time.Time, startTime string) (string, error) {
	instant, err := CombineDateTime(date, startTime)
	if err != nil {
		return "", err
	}
	return instant.Format(ExceptionLayout), nil
}

// Window bounds a recurrence expansion: both dates are inclusive.
type Window struct {
	Start time.Time
	End   time.Time
}

// EventRepository defines the interface for event storage
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id int64) (*Event, error)
	QueryInRange(ctx context.Context, userID int64, start, end time.Time) ([]*Event, error)
	Update(ctx context.Context, id int64, edit EventEdit) (*Event, error)
	// AddExceptionDate appends entry to the event's exception set. Re-adding
	// an already-present entry is a no-op.
	AddExceptionDate(ctx context.Context, id int64, entry string) (*Event, error)
	Delete(ctx context.Context, id int64) error
}

// EventService defines the recurrence-aware calendar business logic.
type EventService interface {
	CreateEvent(ctx context.Context, event *Event) error
	ListEventsInRange(ctx context.Context, userID int64, window Window) ([]*Event, error)
	EditEvent(ctx context.Context, userID, eventID int64, edit EventEdit) (*Event, error)
	// DeleteEvent removes an event, or a single occurrence of a recurring
	// series when occurrence names a date other than the anchor's own.
	DeleteEvent(ctx context.Context, userID, eventID int64, occurrence *time.Time) error
}

// AssistantService turns assistant-generated text and uploaded calendars into
// calendar mutations.
type AssistantService interface {
	ApplyRecommendations(ctx context.Context, userID int64, text string) ([]*Event, error)
	ImportICS(ctx context.Context, userID int64, data []byte) ([]*Event, error)
}
