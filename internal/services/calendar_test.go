package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicecal/internal/domain"
)

// fakeEventRepo is an in-memory EventRepository backed by a map.
type fakeEventRepo struct {
	events map[int64]*domain.Event
	nextID int64

	createErr error
}

func newFakeEventRepo(seed ...*domain.Event) *fakeEventRepo {
	r := &fakeEventRepo{events: make(map[int64]*domain.Event), nextID: 1}
	for _, ev := range seed {
		copied := *ev
		r.events[ev.ID] = &copied
		if ev.ID >= r.nextID {
			r.nextID = ev.ID + 1
		}
	}
	return r
}

func (r *fakeEventRepo) Create(_ context.Context, event *domain.Event) error {
	if r.createErr != nil {
		return r.createErr
	}
	event.ID = r.nextID
	r.nextID++
	copied := *event
	r.events[event.ID] = &copied
	return nil
}

func (r *fakeEventRepo) GetByID(_ context.Context, id int64) (*domain.Event, error) {
	ev, ok := r.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *ev
	return &copied, nil
}

func (r *fakeEventRepo) QueryInRange(_ context.Context, userID int64, start, end time.Time) ([]*domain.Event, error) {
	var out []*domain.Event
	for _, ev := range r.events {
		if ev.UserID != userID {
			continue
		}
		if ev.Date.Before(start) || ev.Date.After(end) {
			continue
		}
		copied := *ev
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeEventRepo) Update(_ context.Context, id int64, edit domain.EventEdit) (*domain.Event, error) {
	ev, ok := r.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	merged := ev.Merged(edit)
	r.events[id] = &merged
	copied := merged
	return &copied, nil
}

func (r *fakeEventRepo) AddExceptionDate(_ context.Context, id int64, entry string) (*domain.Event, error) {
	ev, ok := r.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	set := domain.ParseExceptionSet(ev.ExDateString())
	if set.Add(entry) {
		encoded := set.Encode()
		ev.ExDate = &encoded
	}
	copied := *ev
	return &copied, nil
}

func (r *fakeEventRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.events[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.events, id)
	return nil
}

const testTimeout = 2 * time.Second

func validEvent() *domain.Event {
	return &domain.Event{
		Title:     "Dentist",
		Date:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		StartTime: "14:00",
		EndTime:   "15:00",
		UserID:    7,
	}
}

func recurringSeed() *domain.Event {
	rule := "FREQ=WEEKLY"
	return &domain.Event{
		ID:        1,
		Title:     "Standup",
		Date:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		StartTime: "09:00",
		EndTime:   "09:30",
		Colour:    "#47b881",
		RRule:     &rule,
		UserID:    7,
	}
}

func TestCalendarService_CreateEvent(t *testing.T) {
	t.Run("assigns id and default colour", func(t *testing.T) {
		repo := newFakeEventRepo()
		svc := NewCalendarService(repo, testTimeout)

		ev := validEvent()
		require.NoError(t, svc.CreateEvent(context.Background(), ev))
		assert.NotZero(t, ev.ID)
		assert.Equal(t, domain.DefaultColour, ev.Colour)
	})

	t.Run("keeps a valid explicit colour", func(t *testing.T) {
		repo := newFakeEventRepo()
		svc := NewCalendarService(repo, testTimeout)

		ev := validEvent()
		ev.Colour = "#e55e5e"
		require.NoError(t, svc.CreateEvent(context.Background(), ev))
		assert.Equal(t, "#e55e5e", ev.Colour)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		repo := newFakeEventRepo()
		svc := NewCalendarService(repo, testTimeout)

		cases := map[string]*domain.Event{
			"missing owner":  {Title: "X", Date: time.Now(), StartTime: "10:00", EndTime: "11:00"},
			"missing title":  {Date: time.Now(), StartTime: "10:00", EndTime: "11:00", UserID: 7},
			"bad start time": {Title: "X", Date: time.Now(), StartTime: "25:00", EndTime: "11:00", UserID: 7},
			"bad end time":   {Title: "X", Date: time.Now(), StartTime: "10:00", EndTime: "later", UserID: 7},
			"bad colour":     {Title: "X", Date: time.Now(), StartTime: "10:00", EndTime: "11:00", Colour: "red", UserID: 7},
		}
		for name, ev := range cases {
			t.Run(name, func(t *testing.T) {
				err := svc.CreateEvent(context.Background(), ev)
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				assert.Empty(t, repo.events)
			})
		}
	})

	t.Run("normalizes the date to midnight", func(t *testing.T) {
		repo := newFakeEventRepo()
		svc := NewCalendarService(repo, testTimeout)

		ev := validEvent()
		ev.Date = time.Date(2024, 3, 1, 17, 45, 12, 0, time.UTC)
		require.NoError(t, svc.CreateEvent(context.Background(), ev))
		assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), ev.Date)
	})
}

func TestCalendarService_ListEventsInRange(t *testing.T) {
	repo := newFakeEventRepo(recurringSeed())
	svc := NewCalendarService(repo, testTimeout)

	got, err := svc.ListEventsInRange(context.Background(), 7, domain.Window{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	require.Len(t, got, 3)

	dates := make(map[string]bool)
	for _, ev := range got {
		dates[ev.Date.Format(domain.DateLayout)] = true
	}
	assert.True(t, dates["2024-01-01"])
	assert.True(t, dates["2024-01-08"])
	assert.True(t, dates["2024-01-15"])
}

func TestCalendarService_EditEvent(t *testing.T) {
	newTitle := "Planning"

	t.Run("non-recurring updates in place", func(t *testing.T) {
		repo := newFakeEventRepo(&domain.Event{
			ID: 5, Title: "Dentist", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			StartTime: "14:00", EndTime: "15:00", UserID: 7,
		})
		svc := NewCalendarService(repo, testTimeout)

		got, err := svc.EditEvent(context.Background(), 7, 5, domain.EventEdit{Title: &newTitle})
		require.NoError(t, err)
		assert.Equal(t, "Planning", got.Title)
		assert.Equal(t, "Planning", repo.events[5].Title)
	})

	t.Run("recurring edit suppresses the occurrence and forks", func(t *testing.T) {
		repo := newFakeEventRepo(recurringSeed())
		svc := NewCalendarService(repo, testTimeout)

		prev := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
		got, err := svc.EditEvent(context.Background(), 7, 1, domain.EventEdit{
			Title:        &newTitle,
			PreviousDate: &prev,
		})
		require.NoError(t, err)

		// Anchor stays, with the occurrence suppressed.
		anchor := repo.events[1]
		assert.Equal(t, "Standup", anchor.Title)
		assert.Equal(t, "20240108T090000Z", anchor.ExDateString())

		// Fork is a standalone event on the edited occurrence's date.
		assert.NotEqual(t, int64(1), got.ID)
		assert.Equal(t, "Planning", got.Title)
		assert.Equal(t, prev, got.Date)
		assert.Nil(t, got.RRule)
		assert.Nil(t, got.ExDate)
		assert.Equal(t, anchor.Colour, got.Colour)
		assert.Equal(t, int64(7), got.UserID)
	})

	t.Run("recurring edit may move the occurrence to a new date", func(t *testing.T) {
		repo := newFakeEventRepo(recurringSeed())
		svc := NewCalendarService(repo, testTimeout)

		prev := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
		moved := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
		got, err := svc.EditEvent(context.Background(), 7, 1, domain.EventEdit{
			Date:         &moved,
			PreviousDate: &prev,
		})
		require.NoError(t, err)
		assert.Equal(t, moved, got.Date)
		assert.Equal(t, "20240108T090000Z", repo.events[1].ExDateString())
	})

	t.Run("first occurrence cannot be edited", func(t *testing.T) {
		repo := newFakeEventRepo(recurringSeed())
		svc := NewCalendarService(repo, testTimeout)

		prev := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		_, err := svc.EditEvent(context.Background(), 7, 1, domain.EventEdit{
			Title:        &newTitle,
			PreviousDate: &prev,
		})
		assert.ErrorIs(t, err, domain.ErrFirstOccurrence)
		assert.Nil(t, repo.events[1].ExDate)
		assert.Len(t, repo.events, 1)
	})

	t.Run("recurring edit without previous_date is rejected", func(t *testing.T) {
		repo := newFakeEventRepo(recurringSeed())
		svc := NewCalendarService(repo, testTimeout)

		_, err := svc.EditEvent(context.Background(), 7, 1, domain.EventEdit{Title: &newTitle})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("someone else's event looks missing", func(t *testing.T) {
		repo := newFakeEventRepo(recurringSeed())
		svc := NewCalendarService(repo, testTimeout)

		_, err := svc.EditEvent(context.Background(), 99, 1, domain.EventEdit{Title: &newTitle})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("field limits apply to edits too", func(t *testing.T) {
		repo := newFakeEventRepo(&domain.Event{
			ID: 5, Title: "Dentist", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			StartTime: "14:00", EndTime: "15:00", UserID: 7,
		})
		svc := NewCalendarService(repo, testTimeout)

		longTitle := strings.Repeat("x", domain.MaxTitleLen+1)
		longDesc := strings.Repeat("x", domain.MaxDescriptionLen+1)
		longLoc := strings.Repeat("x", domain.MaxLocationLen+1)
		empty := ""

		cases := map[string]domain.EventEdit{
			"over-limit title":       {Title: &longTitle},
			"empty title":            {Title: &empty},
			"over-limit description": {Description: &longDesc},
			"over-limit location":    {Location: &longLoc},
		}
		for name, edit := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := svc.EditEvent(context.Background(), 7, 5, edit)
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				assert.Equal(t, "Dentist", repo.events[5].Title)
			})
		}
	})

	t.Run("over-limit fields never reach a fork", func(t *testing.T) {
		repo := newFakeEventRepo(recurringSeed())
		svc := NewCalendarService(repo, testTimeout)

		longTitle := strings.Repeat("x", domain.MaxTitleLen+1)
		prev := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
		_, err := svc.EditEvent(context.Background(), 7, 1, domain.EventEdit{
			Title:        &longTitle,
			PreviousDate: &prev,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Nil(t, repo.events[1].ExDate)
		assert.Len(t, repo.events, 1)
	})

	t.Run("invalid time edit is rejected", func(t *testing.T) {
		repo := newFakeEventRepo(recurringSeed())
		svc := NewCalendarService(repo, testTimeout)

		bad := "soon"
		_, err := svc.EditEvent(context.Background(), 7, 1, domain.EventEdit{StartTime: &bad})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestCalendarService_DeleteEvent(t *testing.T) {
	t.Run("deletes a plain event", func(t *testing.T) {
		repo := newFakeEventRepo(&domain.Event{
			ID: 5, Title: "Dentist", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			StartTime: "14:00", EndTime: "15:00", UserID: 7,
		})
		svc := NewCalendarService(repo, testTimeout)

		require.NoError(t, svc.DeleteEvent(context.Background(), 7, 5, nil))
		assert.Empty(t, repo.events)
	})

	t.Run("deletes a single occurrence via an exception", func(t *testing.T) {
		repo := newFakeEventRepo(recurringSeed())
		svc := NewCalendarService(repo, testTimeout)

		occ := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
		require.NoError(t, svc.DeleteEvent(context.Background(), 7, 1, &occ))

		require.Len(t, repo.events, 1)
		assert.Equal(t, "20240115T090000Z", repo.events[1].ExDateString())
	})

	t.Run("no date deletes the whole series", func(t *testing.T) {
		repo := newFakeEventRepo(recurringSeed())
		svc := NewCalendarService(repo, testTimeout)

		require.NoError(t, svc.DeleteEvent(context.Background(), 7, 1, nil))
		assert.Empty(t, repo.events)
	})

	t.Run("anchor date deletes the whole series", func(t *testing.T) {
		repo := newFakeEventRepo(recurringSeed())
		svc := NewCalendarService(repo, testTimeout)

		occ := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, svc.DeleteEvent(context.Background(), 7, 1, &occ))
		assert.Empty(t, repo.events)
	})

	t.Run("someone else's event looks missing", func(t *testing.T) {
		repo := newFakeEventRepo(recurringSeed())
		svc := NewCalendarService(repo, testTimeout)

		err := svc.DeleteEvent(context.Background(), 99, 1, nil)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
