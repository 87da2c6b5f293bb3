package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestExceptionSet(t *testing.T) {
	t.Run("empty string means no exceptions", func(t *testing.T) {
		set := ParseExceptionSet("")
		assert.Equal(t, 0, set.Len())
		assert.Equal(t, "", set.Encode())
	})

	t.Run("round trip preserves order", func(t *testing.T) {
		set := ParseExceptionSet("20240108T090000Z,20240115T090000Z")
		assert.Equal(t, 2, set.Len())
		assert.Equal(t, "20240108T090000Z,20240115T090000Z", set.Encode())
	})

	t.Run("add is idempotent", func(t *testing.T) {
		set := ParseExceptionSet("20240108T090000Z")
		assert.False(t, set.Add("20240108T090000Z"))
		assert.True(t, set.Add("20240115T090000Z"))
		assert.False(t, set.Add("20240115T090000Z"))
		assert.Equal(t, 2, set.Len())
	})

	t.Run("contains date matches on the calendar day", func(t *testing.T) {
		set := ParseExceptionSet("20240108T090000Z")
		assert.True(t, set.ContainsDate(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)))
		assert.False(t, set.ContainsDate(time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC)))
	})
}

func TestExceptionEntry(t *testing.T) {
	entry, err := ExceptionEntry(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), "09:00")
	require.NoError(t, err)
	assert.Equal(t, "20240108T090000Z", entry)

	_, err = ExceptionEntry(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), "morning")
	assert.Error(t, err)
}

func TestCombineDateTime(t *testing.T) {
	got, err := CombineDateTime(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "14:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC), got)
}

func TestEventMerged(t *testing.T) {
	base := Event{
		ID:        1,
		Title:     "Standup",
		Date:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		StartTime: "09:00",
		EndTime:   "09:30",
		Colour:    "#47b881",
		UserID:    7,
	}

	t.Run("present fields override", func(t *testing.T) {
		newDate := time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC)
		got := base.Merged(EventEdit{
			Title:     strPtr("Planning"),
			Date:      &newDate,
			StartTime: strPtr("10:00"),
		})
		assert.Equal(t, "Planning", got.Title)
		assert.Equal(t, newDate, got.Date)
		assert.Equal(t, "10:00", got.StartTime)
		assert.Equal(t, "09:30", got.EndTime)
		assert.Equal(t, "#47b881", got.Colour)
	})

	t.Run("empty edit keeps everything", func(t *testing.T) {
		got := base.Merged(EventEdit{})
		assert.Equal(t, base, got)
	})

	t.Run("explicit empty string is an override", func(t *testing.T) {
		got := base.Merged(EventEdit{Description: strPtr("")})
		require.NotNil(t, got.Description)
		assert.Equal(t, "", *got.Description)
	})

	t.Run("merge does not mutate the receiver", func(t *testing.T) {
		_ = base.Merged(EventEdit{Title: strPtr("Changed")})
		assert.Equal(t, "Standup", base.Title)
	})
}

func TestValidColour(t *testing.T) {
	assert.True(t, ValidColour("#2d9cdb"))
	assert.True(t, ValidColour("#fff"))
	assert.False(t, ValidColour("2d9cdb"))
	assert.False(t, ValidColour("#2d9cd"))
	assert.False(t, ValidColour("blue"))
}

func TestRecurring(t *testing.T) {
	e := &Event{}
	assert.False(t, e.Recurring())
	empty := ""
	e.RRule = &empty
	assert.False(t, e.Recurring())
	rule := "FREQ=WEEKLY"
	e.RRule = &rule
	assert.True(t, e.Recurring())
}
