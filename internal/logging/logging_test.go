package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew_Level(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l := New(&bytes.Buffer{}, tt.level, false)
			if l.GetLevel() != tt.want {
				t.Errorf("GetLevel() = %v, want %v", l.GetLevel(), tt.want)
			}
		})
	}
}

func TestMiddleware_RequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
	}{
		{"generated", ""},
		{"propagated", "abc-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			base := New(&buf, "info", false)

			var ctxLogged bool
			handler := Middleware(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				zerolog.Ctx(r.Context()).Info().Msg("inside")
				ctxLogged = true
				w.WriteHeader(http.StatusTeapot)
			}))

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			id := rec.Header().Get(RequestIDHeader)
			if id == "" {
				t.Fatal("response is missing the request id header")
			}
			if tt.incoming != "" && id != tt.incoming {
				t.Errorf("request id = %q, want %q", id, tt.incoming)
			}
			if !ctxLogged {
				t.Fatal("handler was not called")
			}

			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			if len(lines) != 2 {
				t.Fatalf("got %d log lines, want 2: %q", len(lines), buf.String())
			}

			var last map[string]any
			if err := json.Unmarshal([]byte(lines[1]), &last); err != nil {
				t.Fatalf("decoding log line: %v", err)
			}
			if last["request_id"] != id {
				t.Errorf("logged request_id = %v, want %q", last["request_id"], id)
			}
			if last["status"] != float64(http.StatusTeapot) {
				t.Errorf("logged status = %v, want %d", last["status"], http.StatusTeapot)
			}
		})
	}
}
