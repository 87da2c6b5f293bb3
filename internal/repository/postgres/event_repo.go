package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"voicecal/internal/domain"
)

const eventColumns = "id, title, description, location, date, start_time, end_time, colour, rrule, exdate, user_id"

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (title, description, location, date, start_time, end_time, colour, rrule, exdate, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		e.Title, e.Description, e.Location, e.Date, e.StartTime, e.EndTime,
		e.Colour, e.RRule, e.ExDate, e.UserID,
	).Scan(&e.ID)
}

func (r *eventRepository) GetByID(ctx context.Context, id int64) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) QueryInRange(ctx context.Context, userID int64, start, end time.Time) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE user_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date, start_time
	`
	rows, err := r.DB.QueryContext(ctx, query, userID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *eventRepository) Update(ctx context.Context, id int64, edit domain.EventEdit) (*domain.Event, error) {
	setClauses := []string{}
	args := []interface{}{}
	n := 1
	add := func(column string, value interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, n))
		args = append(args, value)
		n++
	}
	if edit.Title != nil {
		add("title", *edit.Title)
	}
	if edit.Description != nil {
		add("description", *edit.Description)
	}
	if edit.Location != nil {
		add("location", *edit.Location)
	}
	if edit.Date != nil {
		add("date", *edit.Date)
	}
	if edit.StartTime != nil {
		add("start_time", *edit.StartTime)
	}
	if edit.EndTime != nil {
		add("end_time", *edit.EndTime)
	}
	if edit.Colour != nil {
		add("colour", *edit.Colour)
	}
	if n == 1 {
		// No fields to update; just fetch current row
		return r.GetByID(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE events SET %s
		WHERE id = $%d
		RETURNING %s
	`, strings.Join(setClauses, ", "), n, eventColumns)
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// AddExceptionDate appends entry to the event's comma-joined exception set.
// Re-adding an entry that is already present leaves the row untouched.
func (r *eventRepository) AddExceptionDate(ctx context.Context, id int64, entry string) (*domain.Event, error) {
	var current sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT exdate FROM events WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	set := domain.ParseExceptionSet(current.String)
	if !set.Add(entry) {
		return r.GetByID(ctx, id)
	}

	query := `UPDATE events SET exdate = $1 WHERE id = $2 RETURNING ` + eventColumns
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, set.Encode(), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var descNull, locNull, rruleNull, exdateNull sql.NullString
	err := row.Scan(
		&e.ID, &e.Title, &descNull, &locNull, &e.Date, &e.StartTime, &e.EndTime,
		&e.Colour, &rruleNull, &exdateNull, &e.UserID,
	)
	if err != nil {
		return nil, err
	}
	if descNull.Valid {
		e.Description = &descNull.String
	}
	if locNull.Valid {
		e.Location = &locNull.String
	}
	if rruleNull.Valid {
		e.RRule = &rruleNull.String
	}
	if exdateNull.Valid {
		e.ExDate = &exdateNull.String
	}
	return e, nil
}
