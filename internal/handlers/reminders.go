package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/sonna-ai/sonna/internal/database"
	"github.com/sonna-ai/sonna/internal/models"
	"github.com/sonna-ai/sonna/internal/recurrence"
	"github.com/sonna-ai/sonna/internal/request"
	"github.com/sonna-ai/sonna/internal/scheduler"
	"github.com/sonna-ai/sonna/internal/timeparse"
	"github.com/sonna-ai/sonna/internal/validation"
)

const (
	// MaxReminderContentLength is the maximum length for reminder content
	MaxReminderContentLength = 2000
	// DefaultListLimit is the default limit for listing pending reminders
	DefaultListLimit = 100
	// MaxListLimit is the maximum limit for listing pending reminders
	MaxListLimit = 500
)

// ReminderDirectory is the read/create surface the handler needs from the
// database layer
type ReminderDirectory interface {
	Create(ctx context.Context, rem *models.Reminder) error
	GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Reminder, error)
	ListPending(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Reminder, error)
	ListNonTerminal(ctx context.Context, userID *uuid.UUID) ([]*models.Reminder, error)
}

// SchedulerEngine is the slice of the scheduling core the HTTP layer drives
type SchedulerEngine interface {
	Admit(ctx context.Context, rem *models.Reminder) error
	RecordOutcome(ctx context.Context, id uuid.UUID, outcome models.Outcome, ackTime time.Time, snoozeFor *time.Duration) (*models.Reminder, error)
	Ack(ctx context.Context, id uuid.UUID) (*models.Reminder, error)
	Cancel(ctx context.Context, id uuid.UUID) (*models.Reminder, error)
}

// ReminderHandler handles reminder-related requests
type ReminderHandler struct {
	reminders ReminderDirectory
	engine    SchedulerEngine
}

// NewReminderHandler creates a new reminder handler
func NewReminderHandler(reminders ReminderDirectory, engine SchedulerEngine) *ReminderHandler {
	return &ReminderHandler{reminders: reminders, engine: engine}
}

// RegisterRoutes registers reminder routes on the given router.
// The router should already have the /reminders prefix.
func (h *ReminderHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListReminders).Methods("GET")
	r.HandleFunc("", h.CreateReminder).Methods("POST")
	r.HandleFunc("/{id}", h.GetReminder).Methods("GET")
	r.HandleFunc("/{id}", h.CancelReminder).Methods("DELETE")
	r.HandleFunc("/{id}/ack", h.AckReminder).Methods("POST")
	r.HandleFunc("/{id}/complete", h.CompleteReminder).Methods("POST")
	r.HandleFunc("/{id}/snooze", h.SnoozeReminder).Methods("POST")
}

// CreateReminderRequest represents a create reminder request. Exactly one of
// TimeText and FireTime must be provided.
type CreateReminderRequest struct {
	Content  string     `json:"content" validate:"required,min=1,max=2000"`
	TimeText string     `json:"time_text,omitempty"`
	FireTime *time.Time `json:"fire_time,omitempty"`
	Category string     `json:"category,omitempty" validate:"omitempty,max=100"`
}

// SnoozeReminderRequest represents a snooze request
type SnoozeReminderRequest struct {
	Minutes int `json:"minutes,omitempty" validate:"omitempty,min=1,max=1440"`
}

// ListRemindersResponse represents the response for listing reminders. Limit
// is omitted for the unbounded ?all=1 listing.
type ListRemindersResponse struct {
	Reminders []*models.Reminder `json:"reminders"`
	Limit     int                `json:"limit,omitempty"`
}

// ListReminders lists pending reminders for the authenticated user, soonest
// fire time first. With ?all=1 it instead returns every non-terminal reminder,
// including fired ones awaiting an answer.
func (h *ReminderHandler) ListReminders(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	if r.URL.Query().Get("all") == "1" {
		reminders, err := h.reminders.ListNonTerminal(r.Context(), &user.ID)
		if err != nil {
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve reminders")
			return
		}
		respondJSON(w, http.StatusOK, ListRemindersResponse{Reminders: reminders})
		return
	}

	limit := DefaultListLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
			if limit > MaxListLimit {
				limit = MaxListLimit
			}
		}
	}

	reminders, err := h.reminders.ListPending(r.Context(), user.ID, limit)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve reminders")
		return
	}

	respondJSON(w, http.StatusOK, ListRemindersResponse{Reminders: reminders, Limit: limit})
}

// CreateReminder creates a new reminder and admits it into the scheduler
func (h *ReminderHandler) CreateReminder(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", validationErrors[0].Error()))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return
	}

	req.Content = validation.SanitizeText(req.Content)
	if req.Content == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Content is required and cannot be empty after sanitization")
		return
	}

	rem, err := h.buildReminder(user, &req)
	if err != nil {
		switch {
		case errors.Is(err, timeparse.ErrAmbiguousTime):
			respondJSONError(w, http.StatusUnprocessableEntity, "Ambiguous Time", err.Error())
		case errors.Is(err, timeparse.ErrUnparsableTime):
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		default:
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		}
		return
	}

	ctx := r.Context()
	if err := h.reminders.Create(ctx, rem); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create reminder")
		return
	}
	if err := h.engine.Admit(ctx, rem); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to schedule reminder")
		return
	}

	respondJSON(w, http.StatusCreated, rem)
}

// buildReminder resolves the fire time and recurrence from the request
func (h *ReminderHandler) buildReminder(user *models.User, req *CreateReminderRequest) (*models.Reminder, error) {
	if (req.TimeText == "") == (req.FireTime == nil) {
		return nil, errors.New("exactly one of time_text and fire_time must be provided")
	}

	fireTime := time.Time{}
	recurrenceRule := ""
	if req.FireTime != nil {
		fireTime = req.FireTime.UTC()
	} else {
		sched, err := timeparse.Parse(req.TimeText, time.Now().UTC(), user.Timezone)
		if err != nil {
			return nil, err
		}
		fireTime = sched.FireTime
		recurrenceRule = sched.Recurrence
	}

	if recurrenceRule != "" {
		if _, err := recurrence.Parse(recurrenceRule); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	id := uuid.New()
	return &models.Reminder{
		ID:         id,
		UserID:     user.ID,
		TemplateID: id,
		Content:    req.Content,
		FireTime:   fireTime,
		Recurrence: recurrenceRule,
		State:      models.ReminderStateScheduled,
		Context: models.ReminderContext{
			OriginalText: req.TimeText,
			Timezone:     user.Timezone,
			Category:     req.Category,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetReminder returns a single reminder owned by the authenticated user
func (h *ReminderHandler) GetReminder(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	rem, err := h.reminders.GetByIDForUser(r.Context(), id, user.ID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Reminder not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve reminder")
		return
	}

	respondJSON(w, http.StatusOK, rem)
}

// AckReminder records that the user saw a fired reminder without completing
// or snoozing it; the ack-timeout window restarts
func (h *ReminderHandler) AckReminder(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	if !h.ownsReminder(w, r, id, user.ID) {
		return
	}

	rem, err := h.engine.Ack(r.Context(), id)
	if err != nil {
		respondOutcomeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, rem)
}

// CompleteReminder acknowledges a fired reminder as done
func (h *ReminderHandler) CompleteReminder(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	if !h.ownsReminder(w, r, id, user.ID) {
		return
	}

	rem, err := h.engine.RecordOutcome(r.Context(), id, models.OutcomeCompleted, time.Now().UTC(), nil)
	if err != nil {
		respondOutcomeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, rem)
}

// SnoozeReminder pushes a fired reminder's fire time forward
func (h *ReminderHandler) SnoozeReminder(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	if !h.ownsReminder(w, r, id, user.ID) {
		return
	}

	var req SnoozeReminderRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
			return
		}
		if err := validation.Validate.Struct(req); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Snooze minutes must be between 1 and 1440")
			return
		}
	}

	var snoozeFor *time.Duration
	if req.Minutes > 0 {
		d := time.Duration(req.Minutes) * time.Minute
		snoozeFor = &d
	}

	rem, err := h.engine.RecordOutcome(r.Context(), id, models.OutcomeSnoozed, time.Now().UTC(), snoozeFor)
	if err != nil {
		if errors.Is(err, scheduler.ErrSnoozeLimit) {
			// The reminder was forced to Missed; surface the final state
			respondJSON(w, http.StatusConflict, rem)
			return
		}
		respondOutcomeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, rem)
}

// CancelReminder cancels a reminder in any non-terminal state
func (h *ReminderHandler) CancelReminder(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	if !h.ownsReminder(w, r, id, user.ID) {
		return
	}

	rem, err := h.engine.Cancel(r.Context(), id)
	if err != nil {
		respondOutcomeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, rem)
}

// ownsReminder verifies the reminder belongs to the user before the engine is
// asked to mutate it
func (h *ReminderHandler) ownsReminder(w http.ResponseWriter, r *http.Request, id, userID uuid.UUID) bool {
	if _, err := h.reminders.GetByIDForUser(r.Context(), id, userID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Reminder not found")
		} else {
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve reminder")
		}
		return false
	}
	return true
}

func parseIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid reminder ID")
		return uuid.Nil, false
	}
	return id, true
}

func respondOutcomeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondJSONError(w, http.StatusNotFound, "Not Found", "Reminder not found")
	case errors.Is(err, scheduler.ErrInvalidTransition):
		respondJSONError(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, database.ErrVersionConflict):
		respondJSONError(w, http.StatusConflict, "Conflict", "Reminder was modified concurrently")
	default:
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update reminder")
	}
}
