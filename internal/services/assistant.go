package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"voicecal/internal/domain"
	"voicecal/internal/protocol"
)

type assistantService struct {
	events         domain.EventService
	parser         *protocol.Parser
	pickColour     protocol.ColourPicker
	logger         *slog.Logger
	contextTimeout time.Duration
}

// NewAssistantService creates the AssistantService. The colour picker is
// shared between protocol adds and ICS imports; nil means the random palette.
func NewAssistantService(events domain.EventService, pick protocol.ColourPicker, logger *slog.Logger, timeout time.Duration) domain.AssistantService {
	if pick == nil {
		pick = protocol.RandomColour
	}
	return &assistantService{
		events:         events,
		parser:         protocol.NewParser(pick),
		pickColour:     pick,
		logger:         logger,
		contextTimeout: timeout,
	}
}

// ApplyRecommendations parses the assistant's text and applies each decoded
// operation in line order. Skipped lines are tolerated; any failure applying
// an operation aborts the batch wrapped as a ProcessingError so the caller can
// report a generic failure while the cause stays available for logging.
func (s *assistantService) ApplyRecommendations(ctx context.Context, userID int64, text string) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	created := []*domain.Event{}
	for _, result := range s.parser.Parse(text) {
		if result.Skipped() {
			s.logger.DebugContext(ctx, "skipped assistant line", "line", result.Line, "reason", result.SkipReason)
			continue
		}
		switch op := result.Op.(type) {
		case protocol.Add:
			event := &domain.Event{
				Title:       op.Title,
				Description: op.Description.ToPointer(),
				Date:        op.Date,
				StartTime:   op.StartTime,
				EndTime:     op.EndTime,
				Colour:      op.Colour,
				UserID:      userID,
			}
			if err := s.events.CreateEvent(ctx, event); err != nil {
				return nil, &domain.ProcessingError{Err: fmt.Errorf("line %d: %w", result.Line, err)}
			}
			created = append(created, event)

		case protocol.Edit:
			edit := domain.EventEdit{
				Title:       op.Title.ToPointer(),
				Description: op.Description.ToPointer(),
				Date:        op.Date.ToPointer(),
				StartTime:   op.StartTime.ToPointer(),
				EndTime:     op.EndTime.ToPointer(),
			}
			if _, err := s.events.EditEvent(ctx, userID, op.EventID, edit); err != nil {
				return nil, &domain.ProcessingError{Err: fmt.Errorf("line %d: %w", result.Line, err)}
			}

		case protocol.Delete:
			if err := s.events.DeleteEvent(ctx, userID, op.EventID, op.Date.ToPointer()); err != nil {
				return nil, &domain.ProcessingError{Err: fmt.Errorf("line %d: %w", result.Line, err)}
			}
		}
	}
	return created, nil
}

// ImportICS imports single-day VEVENTs from an uploaded ICS payload. Events
// spanning multiple days and events missing a summary or times are skipped.
// RRULE and EXDATE are carried over; an RRULE that does not parse fails the
// import so a broken rule is never stored.
func (s *assistantService) ImportICS(ctx context.Context, userID int64, data []byte) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	cal, err := ical.ParseCalendar(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: parse calendar: %v", domain.ErrInvalidInput, err)
	}

	created := []*domain.Event{}
	for _, ve := range cal.Events() {
		event, ok, err := s.eventFromVEvent(ve, userID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if err := s.events.CreateEvent(ctx, event); err != nil {
			return nil, fmt.Errorf("import event %q: %w", event.Title, err)
		}
		created = append(created, event)
	}
	return created, nil
}

func (s *assistantService) eventFromVEvent(ve *ical.VEvent, userID int64) (*domain.Event, bool, error) {
	summary := propValue(ve, ical.ComponentPropertySummary)
	start, startErr := ve.GetStartAt()
	end, endErr := ve.GetEndAt()
	if summary == "" || startErr != nil || endErr != nil {
		return nil, false, nil
	}
	if !domain.SameDay(start, end) {
		return nil, false, nil
	}

	event := &domain.Event{
		Title:     truncate(summary, domain.MaxTitleLen),
		Date:      domain.DateOnly(start),
		StartTime: start.Format(domain.TimeLayout),
		EndTime:   end.Format(domain.TimeLayout),
		Colour:    s.pickColour(),
		UserID:    userID,
	}
	if desc := propValue(ve, ical.ComponentPropertyDescription); desc != "" {
		d := truncate(desc, domain.MaxDescriptionLen)
		event.Description = &d
	}
	if loc := propValue(ve, ical.ComponentPropertyLocation); loc != "" {
		l := truncate(loc, domain.MaxLocationLen)
		event.Location = &l
	}

	if rruleText := propValue(ve, ical.ComponentPropertyRrule); rruleText != "" {
		if _, err := rrule.StrToRRule(rruleText); err != nil {
			return nil, false, fmt.Errorf("%w: event %q has invalid rrule %q: %v", domain.ErrInvalidInput, event.Title, rruleText, err)
		}
		event.RRule = &rruleText
	}

	// EXDATE may appear multiple times; each value may itself be a
	// comma-separated list.
	var exdates []string
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				exdates = append(exdates, part)
			}
		}
	}
	if len(exdates) > 0 {
		joined := strings.Join(exdates, ",")
		event.ExDate = &joined
	}
	return event, true, nil
}

func propValue(ve *ical.VEvent, name ical.ComponentProperty) string {
	if p := ve.GetProperty(name); p != nil {
		return p.Value
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
