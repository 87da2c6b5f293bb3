package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voicecal/internal/domain"
	"voicecal/internal/recurrence"
)

type calendarService struct {
	eventRepo      domain.EventRepository
	contextTimeout time.Duration
}

// NewCalendarService creates the recurrence-aware EventService.
func NewCalendarService(eventRepo domain.EventRepository, timeout time.Duration) domain.EventService {
	return &calendarService{
		eventRepo:      eventRepo,
		contextTimeout: timeout,
	}
}

func (s *calendarService) CreateEvent(ctx context.Context, event *domain.Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if event.UserID == 0 {
		return fmt.Errorf("%w: event owner is required", domain.ErrInvalidInput)
	}
	if event.Title == "" || len(event.Title) > domain.MaxTitleLen {
		return fmt.Errorf("%w: title is required and at most %d characters", domain.ErrInvalidInput, domain.MaxTitleLen)
	}
	if event.Description != nil && len(*event.Description) > domain.MaxDescriptionLen {
		return fmt.Errorf("%w: description too long", domain.ErrInvalidInput)
	}
	if event.Location != nil && len(*event.Location) > domain.MaxLocationLen {
		return fmt.Errorf("%w: location too long", domain.ErrInvalidInput)
	}
	if _, err := domain.CombineDateTime(event.Date, event.StartTime); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if _, err := domain.CombineDateTime(event.Date, event.EndTime); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if event.Colour == "" {
		event.Colour = domain.DefaultColour
	} else if !domain.ValidColour(event.Colour) {
		return fmt.Errorf("%w: invalid colour %q", domain.ErrInvalidInput, event.Colour)
	}
	event.Date = domain.DateOnly(event.Date)

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// ListEventsInRange returns the user's events whose stored date falls inside
// the window, plus the virtual occurrences of every recurring anchor in it.
// The caller is expected to widen the window so anchors whose own date lies
// outside the visible range still contribute occurrences.
func (s *calendarService) ListEventsInRange(ctx context.Context, userID int64, window domain.Window) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, err := s.eventRepo.QueryInRange(ctx, userID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	expanded, err := recurrence.Expand(events, window)
	if err != nil {
		return nil, fmt.Errorf("expand recurrences: %w", err)
	}
	return expanded, nil
}

// EditEvent applies edit to the user's event. A non-recurring event is
// updated in place. For a recurring series the edit must name the occurrence
// via PreviousDate; the occurrence is suppressed with an exception date and a
// new standalone event is created from the merged fields ("ghost and fork").
func (s *calendarService) EditEvent(ctx context.Context, userID, eventID int64, edit domain.EventEdit) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.getOwned(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}

	if edit.Title != nil && (*edit.Title == "" || len(*edit.Title) > domain.MaxTitleLen) {
		return nil, fmt.Errorf("%w: title is required and at most %d characters", domain.ErrInvalidInput, domain.MaxTitleLen)
	}
	if edit.Description != nil && len(*edit.Description) > domain.MaxDescriptionLen {
		return nil, fmt.Errorf("%w: description too long", domain.ErrInvalidInput)
	}
	if edit.Location != nil && len(*edit.Location) > domain.MaxLocationLen {
		return nil, fmt.Errorf("%w: location too long", domain.ErrInvalidInput)
	}
	if timeEdit := edit.StartTime; timeEdit != nil {
		if _, err := domain.CombineDateTime(event.Date, *timeEdit); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
	}
	if timeEdit := edit.EndTime; timeEdit != nil {
		if _, err := domain.CombineDateTime(event.Date, *timeEdit); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
	}
	if edit.Colour != nil && !domain.ValidColour(*edit.Colour) {
		return nil, fmt.Errorf("%w: invalid colour %q", domain.ErrInvalidInput, *edit.Colour)
	}

	if !event.Recurring() {
		updated, err := s.eventRepo.Update(ctx, eventID, edit)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrNotFound
			}
			return nil, fmt.Errorf("update event: %w", err)
		}
		return updated, nil
	}

	if edit.PreviousDate == nil {
		return nil, fmt.Errorf("%w: editing a recurring event requires previous_date", domain.ErrInvalidInput)
	}
	if domain.SameDay(*edit.PreviousDate, event.Date) {
		return nil, domain.ErrFirstOccurrence
	}

	startTime := event.StartTime
	if edit.PreviousStartTime != nil {
		startTime = *edit.PreviousStartTime
	}
	entry, err := domain.ExceptionEntry(*edit.PreviousDate, startTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if _, err := s.eventRepo.AddExceptionDate(ctx, eventID, entry); err != nil {
		return nil, fmt.Errorf("add exception date: %w", err)
	}

	// Fork: a standalone copy carrying the edited fields, detached from the
	// series but keeping the anchor's colour and owner.
	forked := event.Merged(edit)
	forked.ID = 0
	forked.RRule = nil
	forked.ExDate = nil
	forked.Colour = event.Colour
	forked.UserID = event.UserID
	if edit.Date == nil {
		forked.Date = domain.DateOnly(*edit.PreviousDate)
	}
	if err := s.eventRepo.Create(ctx, &forked); err != nil {
		return nil, fmt.Errorf("create forked event: %w", err)
	}
	return &forked, nil
}

// DeleteEvent removes the user's event. When the event is a recurring anchor
// and occurrence names a date other than the anchor's own, only that
// occurrence is suppressed via an exception date; with no date, or the
// anchor's own date, the whole series is deleted.
func (s *calendarService) DeleteEvent(ctx context.Context, userID, eventID int64, occurrence *time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.getOwned(ctx, userID, eventID)
	if err != nil {
		return err
	}

	if event.Recurring() && occurrence != nil && !domain.SameDay(*occurrence, event.Date) {
		entry, err := domain.ExceptionEntry(*occurrence, event.StartTime)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		if _, err := s.eventRepo.AddExceptionDate(ctx, eventID, entry); err != nil {
			return fmt.Errorf("add exception date: %w", err)
		}
		return nil
	}

	if err := s.eventRepo.Delete(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// getOwned loads an event and checks ownership. Not-owned collapses into
// ErrNotFound so callers cannot probe for other users' event ids.
func (s *calendarService) getOwned(ctx context.Context, userID, eventID int64) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return event, nil
}
