package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/sonna-ai/sonna/internal/database"
	"github.com/sonna-ai/sonna/internal/models"
	"github.com/sonna-ai/sonna/internal/request"
	"github.com/sonna-ai/sonna/internal/scheduler"
)

type fakeDirectory struct {
	mu        sync.Mutex
	reminders map[uuid.UUID]*models.Reminder
	createErr error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{reminders: make(map[uuid.UUID]*models.Reminder)}
}

func (f *fakeDirectory) Create(_ context.Context, rem *models.Reminder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	cp := *rem
	f.reminders[rem.ID] = &cp
	return nil
}

func (f *fakeDirectory) GetByIDForUser(_ context.Context, id, userID uuid.UUID) (*models.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rem, ok := f.reminders[id]
	if !ok || rem.UserID != userID {
		return nil, database.ErrNotFound
	}
	cp := *rem
	return &cp, nil
}

func (f *fakeDirectory) ListPending(_ context.Context, userID uuid.UUID, limit int) ([]*models.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Reminder
	for _, rem := range f.reminders {
		if rem.UserID == userID && rem.State.IsPending() {
			cp := *rem
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FireTime.Before(out[j].FireTime) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeDirectory) ListNonTerminal(_ context.Context, userID *uuid.UUID) ([]*models.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Reminder
	for _, rem := range f.reminders {
		if userID != nil && rem.UserID != *userID {
			continue
		}
		if rem.State.IsTerminal() {
			continue
		}
		cp := *rem
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FireTime.Before(out[j].FireTime) })
	return out, nil
}

type fakeSchedulerEngine struct {
	mu       sync.Mutex
	admitted []*models.Reminder
	outcome  *models.Reminder
	err      error
}

func (f *fakeSchedulerEngine) Admit(_ context.Context, rem *models.Reminder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.admitted = append(f.admitted, rem)
	return nil
}

func (f *fakeSchedulerEngine) RecordOutcome(_ context.Context, id uuid.UUID, outcome models.Outcome, _ time.Time, _ *time.Duration) (*models.Reminder, error) {
	return f.outcome, f.err
}

func (f *fakeSchedulerEngine) Ack(_ context.Context, id uuid.UUID) (*models.Reminder, error) {
	return f.outcome, f.err
}

func (f *fakeSchedulerEngine) Cancel(_ context.Context, id uuid.UUID) (*models.Reminder, error) {
	return f.outcome, f.err
}

func testUser() *models.User {
	return &models.User{ID: uuid.New(), Email: "user@example.com", Timezone: "America/New_York"}
}

func reminderRouter(h *ReminderHandler, user *models.User) http.Handler {
	r := mux.NewRouter()
	h.RegisterRoutes(r.PathPrefix("/reminders").Subrouter())
	return withUser(r, user)
}

func withUser(next http.Handler, user *models.User) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(request.WithUser(r.Context(), user)))
	})
}

func TestCreateReminderWithTimeText(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	engine := &fakeSchedulerEngine{}
	user := testUser()
	router := reminderRouter(NewReminderHandler(dir, engine), user)

	body := bytes.NewBufferString(`{"content": "call mom", "time_text": "in 20 minutes", "category": "calls"}`)
	req := httptest.NewRequest("POST", "/reminders", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if len(engine.admitted) != 1 {
		t.Fatalf("admitted = %d reminders, want 1", len(engine.admitted))
	}

	rem := engine.admitted[0]
	if rem.Content != "call mom" {
		t.Errorf("content = %q, want %q", rem.Content, "call mom")
	}
	if rem.State != models.ReminderStateScheduled {
		t.Errorf("state = %q, want scheduled", rem.State)
	}
	if rem.Context.Category != "calls" {
		t.Errorf("category = %q, want calls", rem.Context.Category)
	}
	if until := time.Until(rem.FireTime); until < 19*time.Minute || until > 21*time.Minute {
		t.Errorf("fire time %v not ~20 minutes out", rem.FireTime)
	}
}

func TestCreateReminderWithExplicitFireTime(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	engine := &fakeSchedulerEngine{}
	user := testUser()
	router := reminderRouter(NewReminderHandler(dir, engine), user)

	fireTime := time.Now().UTC().Add(2 * time.Hour).Truncate(time.Second)
	payload := fmt.Sprintf(`{"content": "standup", "fire_time": %q}`, fireTime.Format(time.RFC3339))
	req := httptest.NewRequest("POST", "/reminders", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if got := engine.admitted[0].FireTime; !got.Equal(fireTime) {
		t.Errorf("fire time = %v, want %v", got, fireTime)
	}
}

func TestCreateReminderRejectsBadInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "missing content", body: `{"time_text": "in 5 minutes"}`, want: http.StatusBadRequest},
		{name: "no time at all", body: `{"content": "call mom"}`, want: http.StatusBadRequest},
		{name: "both time fields", body: `{"content": "x", "time_text": "in 5 minutes", "fire_time": "2026-09-02T10:00:00Z"}`, want: http.StatusBadRequest},
		{name: "unparsable time text", body: `{"content": "x", "time_text": "whenever you feel like it"}`, want: http.StatusBadRequest},
		{name: "malformed json", body: `{"content": `, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := reminderRouter(NewReminderHandler(newFakeDirectory(), &fakeSchedulerEngine{}), testUser())
			req := httptest.NewRequest("POST", "/reminders", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestListRemindersSortedByFireTime(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	user := testUser()
	now := time.Now().UTC()
	for i := 3; i >= 1; i-- {
		id := uuid.New()
		dir.reminders[id] = &models.Reminder{
			ID:       id,
			UserID:   user.ID,
			Content:  fmt.Sprintf("task %d", i),
			FireTime: now.Add(time.Duration(i) * time.Hour),
			State:    models.ReminderStateScheduled,
		}
	}

	router := reminderRouter(NewReminderHandler(dir, &fakeSchedulerEngine{}), user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/reminders", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Data ListRemindersResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Data.Reminders) != 3 {
		t.Fatalf("got %d reminders, want 3", len(body.Data.Reminders))
	}
	if body.Data.Reminders[0].Content != "task 1" {
		t.Errorf("first reminder = %q, want task 1", body.Data.Reminders[0].Content)
	}
}

func TestListRemindersAllIncludesFired(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	user := testUser()
	states := []models.ReminderState{
		models.ReminderStateScheduled,
		models.ReminderStateAwaitingAck,
		models.ReminderStateCompleted,
	}
	for i, state := range states {
		id := uuid.New()
		dir.reminders[id] = &models.Reminder{
			ID:       id,
			UserID:   user.ID,
			Content:  fmt.Sprintf("task %d", i+1),
			FireTime: time.Now().UTC().Add(time.Duration(i+1) * time.Hour),
			State:    state,
		}
	}

	router := reminderRouter(NewReminderHandler(dir, &fakeSchedulerEngine{}), user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/reminders?all=1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Data ListRemindersResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Data.Reminders) != 2 {
		t.Fatalf("got %d reminders, want 2 (terminal excluded)", len(body.Data.Reminders))
	}
	for _, rem := range body.Data.Reminders {
		if rem.State.IsTerminal() {
			t.Errorf("listing contains terminal reminder %s", rem.ID)
		}
	}
}

func TestGetReminderEnforcesOwnership(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	owner := testUser()
	other := testUser()
	id := uuid.New()
	dir.reminders[id] = &models.Reminder{
		ID:       id,
		UserID:   owner.ID,
		Content:  "private",
		FireTime: time.Now().UTC().Add(time.Hour),
		State:    models.ReminderStateScheduled,
	}

	router := reminderRouter(NewReminderHandler(dir, &fakeSchedulerEngine{}), other)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/reminders/"+id.String(), nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCompleteReminder(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	user := testUser()
	id := uuid.New()
	dir.reminders[id] = &models.Reminder{
		ID:     id,
		UserID: user.ID,
		State:  models.ReminderStateAwaitingAck,
	}
	engine := &fakeSchedulerEngine{outcome: &models.Reminder{ID: id, State: models.ReminderStateCompleted}}

	router := reminderRouter(NewReminderHandler(dir, engine), user)
	req := httptest.NewRequest("POST", "/reminders/"+id.String()+"/complete", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestAckReminder(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	user := testUser()
	id := uuid.New()
	dir.reminders[id] = &models.Reminder{
		ID:     id,
		UserID: user.ID,
		State:  models.ReminderStateAwaitingAck,
	}
	engine := &fakeSchedulerEngine{outcome: &models.Reminder{ID: id, State: models.ReminderStateAwaitingAck}}

	router := reminderRouter(NewReminderHandler(dir, engine), user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/reminders/"+id.String()+"/ack", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Data models.Reminder `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Data.State != models.ReminderStateAwaitingAck {
		t.Errorf("state = %s, want awaiting_ack", body.Data.State)
	}
}

func TestAckReminderNotFired(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	user := testUser()
	id := uuid.New()
	dir.reminders[id] = &models.Reminder{
		ID:     id,
		UserID: user.ID,
		State:  models.ReminderStateScheduled,
	}
	engine := &fakeSchedulerEngine{err: fmt.Errorf("%w: cannot ack from scheduled", scheduler.ErrInvalidTransition)}

	router := reminderRouter(NewReminderHandler(dir, engine), user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/reminders/"+id.String()+"/ack", nil))

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestSnoozeReminderAtLimitReturnsConflict(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	user := testUser()
	id := uuid.New()
	dir.reminders[id] = &models.Reminder{
		ID:     id,
		UserID: user.ID,
		State:  models.ReminderStateAwaitingAck,
	}
	engine := &fakeSchedulerEngine{
		outcome: &models.Reminder{ID: id, State: models.ReminderStateMissed},
		err:     scheduler.ErrSnoozeLimit,
	}

	router := reminderRouter(NewReminderHandler(dir, engine), user)
	req := httptest.NewRequest("POST", "/reminders/"+id.String()+"/snooze", bytes.NewBufferString(`{"minutes": 15}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", rec.Code, rec.Body.String())
	}
}

func TestCancelReminderInvalidTransition(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	user := testUser()
	id := uuid.New()
	dir.reminders[id] = &models.Reminder{
		ID:     id,
		UserID: user.ID,
		State:  models.ReminderStateCompleted,
	}
	engine := &fakeSchedulerEngine{err: fmt.Errorf("%w: completed -> cancelled", scheduler.ErrInvalidTransition)}

	router := reminderRouter(NewReminderHandler(dir, engine), user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("DELETE", "/reminders/"+id.String(), nil))

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestRemindersRequireUser(t *testing.T) {
	t.Parallel()

	r := mux.NewRouter()
	NewReminderHandler(newFakeDirectory(), &fakeSchedulerEngine{}).RegisterRoutes(r.PathPrefix("/reminders").Subrouter())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/reminders", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
