package request

import (
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/sonna-ai/sonna/internal/models"
)

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{
			name:    "x-forwarded-for single",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.9"},
			remote:  "10.0.0.1:1234",
			want:    "203.0.113.9",
		},
		{
			name:    "x-forwarded-for chain takes first",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.9, 70.41.3.18"},
			remote:  "10.0.0.1:1234",
			want:    "203.0.113.9",
		},
		{
			name:    "x-real-ip",
			headers: map[string]string{"X-Real-IP": "203.0.113.10"},
			remote:  "10.0.0.1:1234",
			want:    "203.0.113.10",
		},
		{
			name:   "remote addr fallback",
			remote: "10.0.0.1:1234",
			want:   "10.0.0.1:1234",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUserContextRoundTrip(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New(), Email: "user@example.com"}
	r := httptest.NewRequest("GET", "/", nil)

	if got := UserFromContext(r); got != nil {
		t.Errorf("UserFromContext on bare request = %v, want nil", got)
	}

	r = r.WithContext(WithUser(r.Context(), user))
	got := UserFromContext(r)
	if got == nil || got.ID != user.ID {
		t.Errorf("UserFromContext = %v, want %v", got, user)
	}
}
