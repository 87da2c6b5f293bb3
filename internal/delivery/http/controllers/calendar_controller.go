package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"voicecal/internal/delivery/http/helpers"
	"voicecal/internal/delivery/http/middleware"
	"voicecal/internal/domain"
)

// queryWidening is how far the repository window extends beyond the requested
// range, so recurring anchors dated outside the visible range still
// contribute occurrences inside it.
const queryWidening = 365 * 24 * time.Hour

// CreateEventRequest is the request body for POST /events.
type CreateEventRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Location    *string `json:"location,omitempty"`
	Date        string  `json:"date"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	Colour      string  `json:"colour,omitempty"`
	RRule       *string `json:"rrule,omitempty"`
}

// Validate implements Validator.
func (r CreateEventRequest) Validate() []string {
	var errs []string
	if r.Title == "" {
		errs = append(errs, "title is required")
	}
	if _, err := time.Parse(domain.DateLayout, r.Date); err != nil {
		errs = append(errs, "date must be YYYY-MM-DD")
	}
	if _, err := time.Parse(domain.TimeLayout, r.StartTime); err != nil {
		errs = append(errs, "start_time must be HH:MM")
	}
	if _, err := time.Parse(domain.TimeLayout, r.EndTime); err != nil {
		errs = append(errs, "end_time must be HH:MM")
	}
	return errs
}

// EditEventRequest is the request body for PUT /events/{eventID}. All fields
// are optional overrides; previous_date identifies the occurrence of a
// recurring series being edited.
type EditEventRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Location    *string `json:"location,omitempty"`
	Date        *string `json:"date,omitempty"`
	StartTime   *string `json:"start_time,omitempty"`
	EndTime     *string `json:"end_time,omitempty"`
	Colour      *string `json:"colour,omitempty"`

	PreviousDate      *string `json:"previous_date,omitempty"`
	PreviousStartTime *string `json:"previous_start_time,omitempty"`
	PreviousEndTime   *string `json:"previous_end_time,omitempty"`
}

func (r EditEventRequest) toEdit() (domain.EventEdit, error) {
	edit := domain.EventEdit{
		Title:             r.Title,
		Description:       r.Description,
		Location:          r.Location,
		StartTime:         r.StartTime,
		EndTime:           r.EndTime,
		Colour:            r.Colour,
		PreviousStartTime: r.PreviousStartTime,
		PreviousEndTime:   r.PreviousEndTime,
	}
	if r.Date != nil {
		d, err := time.Parse(domain.DateLayout, *r.Date)
		if err != nil {
			return edit, err
		}
		edit.Date = &d
	}
	if r.PreviousDate != nil {
		d, err := time.Parse(domain.DateLayout, *r.PreviousDate)
		if err != nil {
			return edit, err
		}
		edit.PreviousDate = &d
	}
	return edit, nil
}

type CalendarController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewCalendarController(logger *slog.Logger, svc domain.EventService) *CalendarController {
	return &CalendarController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateEvent godoc
// @Summary Create a calendar event
// @Description Creates an event for the authenticated user. An rrule makes it a recurring series anchored at date/start_time.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body CreateEventRequest true "Event data"
// @Success 201 {object} helpers.APIResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *CalendarController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	date, _ := time.Parse(domain.DateLayout, req.Date)
	event := &domain.Event{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Date:        date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Colour:      req.Colour,
		RRule:       req.RRule,
		UserID:      userID,
	}
	if err := c.Service.CreateEvent(r.Context(), event); err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// ListEvents godoc
// @Summary List events in a date range
// @Description Returns the user's events between start_date and end_date inclusive, with recurring series expanded into occurrences.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param start_date query string true "Range start (YYYY-MM-DD)"
// @Param end_date query string true "Range end (YYYY-MM-DD)"
// @Success 200 {object} helpers.APIResponse "data contains the event list"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *CalendarController) ListEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	start, err := time.Parse(domain.DateLayout, r.URL.Query().Get("start_date"))
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "start_date must be YYYY-MM-DD")
		return
	}
	end, err := time.Parse(domain.DateLayout, r.URL.Query().Get("end_date"))
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "end_date must be YYYY-MM-DD")
		return
	}
	window := domain.Window{
		Start: start.Add(-queryWidening),
		End:   end.Add(queryWidening),
	}
	events, err := c.Service.ListEventsInRange(r.Context(), userID, window)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

// EditEvent godoc
// @Summary Edit an event or one occurrence of a series
// @Description Updates a non-recurring event in place. For a recurring series, previous_date selects the occurrence: it is suppressed and an edited standalone event is returned.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path int true "Event ID"
// @Param edit body EditEventRequest true "Fields to change"
// @Success 200 {object} helpers.APIResponse "data contains the resulting event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or first_occurrence"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [put]
func (c *CalendarController) EditEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	eventID, err := strconv.ParseInt(r.PathValue("eventID"), 10, 64)
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid eventID")
		return
	}
	var req EditEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	edit, err := req.toEdit()
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "dates must be YYYY-MM-DD")
		return
	}
	event, err := c.Service.EditEvent(r.Context(), userID, eventID, edit)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// DeleteEvent godoc
// @Summary Delete an event or one occurrence of a series
// @Description Deletes the event. For a recurring series, a date query parameter other than the anchor's own date removes only that occurrence.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path int true "Event ID"
// @Param date query string false "Occurrence date (YYYY-MM-DD)"
// @Success 204 "no content"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [delete]
func (c *CalendarController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	eventID, err := strconv.ParseInt(r.PathValue("eventID"), 10, 64)
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid eventID")
		return
	}
	var occurrence *time.Time
	if s := r.URL.Query().Get("date"); s != "" {
		d, err := time.Parse(domain.DateLayout, s)
		if err != nil {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "date must be YYYY-MM-DD")
			return
		}
		occurrence = &d
	}
	if err := c.Service.DeleteEvent(r.Context(), userID, eventID, occurrence); err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *CalendarController) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
	case errors.Is(err, domain.ErrFirstOccurrence):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeFirstOccurrence, "the first occurrence of a recurring series cannot be edited this way")
	case errors.Is(err, domain.ErrInvalidInput):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
	default:
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal error")
	}
}
