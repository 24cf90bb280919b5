package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/sonna-ai/sonna/internal/models"
	"github.com/sonna-ai/sonna/internal/request"
	"github.com/sonna-ai/sonna/internal/services/intent"
	"github.com/sonna-ai/sonna/internal/timeparse"
	"github.com/sonna-ai/sonna/internal/validation"
)

// AssistantHandler turns raw voice-assistant utterances into reminder
// operations
type AssistantHandler struct {
	provider  intent.Provider
	reminders ReminderDirectory
	engine    SchedulerEngine
	logger    *zap.Logger
}

// NewAssistantHandler creates a new assistant handler
func NewAssistantHandler(provider intent.Provider, reminders ReminderDirectory, engine SchedulerEngine, logger *zap.Logger) *AssistantHandler {
	return &AssistantHandler{
		provider:  provider,
		reminders: reminders,
		engine:    engine,
		logger:    logger,
	}
}

// RegisterRoutes registers assistant routes on the given router
func (h *AssistantHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/command", h.Command).Methods("POST")
}

// CommandRequest represents a raw assistant utterance
type CommandRequest struct {
	Text string `json:"text" validate:"required,min=1,max=2000"`
}

// CommandResponse carries the parsed intent and, when the command created a
// reminder, the reminder itself
type CommandResponse struct {
	Intent    *intent.Intent     `json:"intent"`
	Reminder  *models.Reminder   `json:"reminder,omitempty"`
	Reminders []*models.Reminder `json:"reminders,omitempty"`
	Message   string             `json:"message,omitempty"`
}

// Command parses an utterance and executes the resolved intent
func (h *AssistantHandler) Command(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	req.Text = validation.SanitizeText(req.Text)
	if req.Text == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Text is required")
		return
	}

	ctx := r.Context()
	parsed, err := h.provider.ParseIntent(ctx, req.Text)
	if err != nil {
		h.logger.Error("intent parsing failed", zap.Error(err))
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "Failed to parse command")
		return
	}

	switch parsed.Kind {
	case intent.KindCreateReminder:
		h.createFromIntent(w, r, user, parsed)

	case intent.KindListReminders:
		reminders, err := h.reminders.ListPending(ctx, user.ID, DefaultListLimit)
		if err != nil {
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve reminders")
			return
		}
		respondJSON(w, http.StatusOK, CommandResponse{Intent: parsed, Reminders: reminders})

	case intent.KindCancelReminder:
		h.cancelFromIntent(w, r, user, parsed)

	case intent.KindCreateNote:
		// Notes have no schedule; nothing for the engine to do
		respondJSON(w, http.StatusOK, CommandResponse{Intent: parsed, Message: "Noted"})

	default:
		respondJSON(w, http.StatusOK, CommandResponse{
			Intent:  parsed,
			Message: "Sorry, I did not understand that",
		})
	}
}

func (h *AssistantHandler) createFromIntent(w http.ResponseWriter, r *http.Request, user *models.User, parsed *intent.Intent) {
	if parsed.TimeText == "" {
		respondJSONError(w, http.StatusUnprocessableEntity, "Unprocessable Entity", "Could not find a time in the command")
		return
	}

	sched, err := timeparse.Extract(parsed.TimeText, time.Now().UTC(), user.Timezone)
	if err != nil {
		if errors.Is(err, timeparse.ErrAmbiguousTime) {
			respondJSONError(w, http.StatusUnprocessableEntity, "Ambiguous Time", err.Error())
			return
		}
		respondJSONError(w, http.StatusUnprocessableEntity, "Unprocessable Entity", err.Error())
		return
	}

	content := validation.SanitizeText(parsed.Content)
	if content == "" {
		content = parsed.TimeText
	}

	now := time.Now().UTC()
	id := uuid.New()
	rem := &models.Reminder{
		ID:         id,
		UserID:     user.ID,
		TemplateID: id,
		Content:    content,
		FireTime:   sched.FireTime,
		Recurrence: sched.Recurrence,
		State:      models.ReminderStateScheduled,
		Context: models.ReminderContext{
			OriginalText: parsed.TimeText,
			Timezone:     user.Timezone,
			Category:     parsed.Category,
		},
		CreatedAt: now,
		UpdatedAt: now,
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

	respondJSON(w, http.StatusCreated, CommandResponse{Intent: parsed, Reminder: rem})
}

// cancelFromIntent cancels by content match. The assistant has no reminder
// IDs, so a single unambiguous pending match is required.
func (h *AssistantHandler) cancelFromIntent(w http.ResponseWriter, r *http.Request, user *models.User, parsed *intent.Intent) {
	ctx := r.Context()
	pending, err := h.reminders.ListPending(ctx, user.ID, MaxListLimit)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve reminders")
		return
	}

	matches := matchByContent(pending, parsed.Content)
	switch len(matches) {
	case 0:
		respondJSONError(w, http.StatusNotFound, "Not Found", "No matching reminder found")
	case 1:
		rem, err := h.engine.Cancel(ctx, matches[0].ID)
		if err != nil {
			respondOutcomeError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, CommandResponse{Intent: parsed, Reminder: rem, Message: "Cancelled"})
	default:
		respondJSON(w, http.StatusOK, CommandResponse{
			Intent:    parsed,
			Reminders: matches,
			Message:   "Multiple reminders match; cancel one by ID",
		})
	}
}

func matchByContent(reminders []*models.Reminder, content string) []*models.Reminder {
	if content == "" {
		return reminders
	}

	var matches []*models.Reminder
	for _, rem := range reminders {
		if strings.Contains(strings.ToLower(rem.Content), strings.ToLower(content)) {
			matches = append(matches, rem)
		}
	}
	return matches
}
