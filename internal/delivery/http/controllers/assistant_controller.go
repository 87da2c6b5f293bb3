package controllers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"voicecal/internal/delivery/http/helpers"
	"voicecal/internal/delivery/http/middleware"
	"voicecal/internal/domain"
)

// maxICSUploadBytes caps the size of an uploaded calendar file.
const maxICSUploadBytes = 5 << 20

// ApplyRecommendationsRequest is the request body for POST /assistant/apply.
type ApplyRecommendationsRequest struct {
	Text string `json:"text"`
}

// Validate implements Validator.
func (r ApplyRecommendationsRequest) Validate() []string {
	if r.Text == "" {
		return []string{"text is required"}
	}
	return nil
}

type AssistantController struct {
	Logger  *slog.Logger
	Service domain.AssistantService
}

func NewAssistantController(logger *slog.Logger, svc domain.AssistantService) *AssistantController {
	return &AssistantController{
		Logger:  logger,
		Service: svc,
	}
}

// ApplyRecommendations godoc
// @Summary Apply assistant scheduling output
// @Description Parses the assistant's pipe-delimited command lines and applies the resulting add/edit/delete operations in order. Lines that are not commands are ignored.
// @Tags assistant
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ApplyRecommendationsRequest true "Assistant output"
// @Success 200 {object} helpers.APIResponse "data contains the events created by add lines"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /assistant/apply [post]
func (c *AssistantController) ApplyRecommendations(w http.ResponseWriter, r *http.Request) {
	var req ApplyRecommendationsRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	created, err := c.Service.ApplyRecommendations(r.Context(), userID, req.Text)
	if err != nil {
		var procErr *domain.ProcessingError
		if errors.As(err, &procErr) {
			// Keep the cause for the log, return the generic message only.
			c.Logger.ErrorContext(r.Context(), "apply recommendations failed", "err", procErr.Err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "processing failed")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal error")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, created)
}

// ImportICS godoc
// @Summary Import events from an ICS file
// @Description Imports single-day events from an uploaded iCalendar file, carrying over recurrence rules and exception dates.
// @Tags assistant
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param file formData file true "ICS file"
// @Success 201 {object} helpers.APIResponse "data contains the imported events"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/import [post]
func (c *AssistantController) ImportICS(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	if err := r.ParseMultipartForm(maxICSUploadBytes); err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "expected multipart form with a file field")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing file")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxICSUploadBytes))
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "failed to read file")
		return
	}

	created, err := c.Service.ImportICS(r.Context(), userID, data)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal error")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, created)
}
