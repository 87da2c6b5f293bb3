// Package recurrence expands stored recurring events into the concrete
// occurrences that fall inside a query window.
package recurrence

import (
	"fmt"

	"github.com/teambition/rrule-go"

	"voicecal/internal/domain"
)

// Expand returns events plus one synthesized virtual event per generated
// occurrence of each recurring anchor inside window. Non-recurring events
// pass through unchanged. Virtual events carry the anchor's id, title,
// description, location, rule, exception set and colour, but the occurrence's
// own date. Order beyond the source order is not guaranteed.
//
// An anchor whose rule does not parse fails the whole expansion, attributed
// to that event.
func Expand(events []*domain.Event, window domain.Window) ([]*domain.Event, error) {
	out := make([]*domain.Event, 0, len(events))
	for _, ev := range events {
		out = append(out, ev)
		if !ev.Recurring() {
			continue
		}
		occurrences, err := expandAnchor(ev, window)
		if err != nil {
			return nil, err
		}
		out = append(out, occurrences...)
	}
	return out, nil
}

func expandAnchor(anchor *domain.Event, window domain.Window) ([]*domain.Event, error) {
	anchorStart, err := domain.CombineDateTime(anchor.Date, anchor.StartTime)
	if err != nil {
		return nil, fmt.Errorf("event %d: %w", anchor.ID, err)
	}

	// rrule-go wants DTSTART alongside the rule text.
	set, err := rrule.StrToRRuleSet(fmt.Sprintf(
		"DTSTART:%s\nRRULE:%s",
		anchorStart.UTC().Format(domain.ExceptionLayout),
		*anchor.RRule,
	))
	if err != nil {
		return nil, fmt.Errorf("event %d: parse rrule %q: %w", anchor.ID, *anchor.RRule, err)
	}

	rangeStart, err := domain.CombineDateTime(window.Start, anchor.StartTime)
	if err != nil {
		return nil, fmt.Errorf("event %d: %w", anchor.ID, err)
	}
	rangeEnd, err := domain.CombineDateTime(window.End, anchor.EndTime)
	if err != nil {
		return nil, fmt.Errorf("event %d: %w", anchor.ID, err)
	}

	exceptions := domain.ParseExceptionSet(anchor.ExDateString())
	anchorDate := domain.DateOnly(anchor.Date)

	var out []*domain.Event
	for _, instant := range set.Between(rangeStart, rangeEnd, true) {
		occDate := domain.DateOnly(instant)
		if occDate.Equal(anchorDate) {
			continue // the anchor row already represents this occurrence
		}
		if exceptions.ContainsDate(occDate) {
			continue
		}
		virtual := *anchor
		virtual.Date = occDate
		out = append(out, &virtual)
	}
	return out, nil
}
