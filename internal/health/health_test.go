package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"schedule-bot/pkg/logx"
)

func get(t *testing.T, h http.Handler, path string) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: %v", path, err)
		}
	}
	return rec.Code, body
}

func TestHealthEndpoints(t *testing.T) {
	s := New("schedule-bot", func() int { return 3 }, logx.Nop())
	s.now = func() time.Time { return time.Date(2025, 7, 20, 10, 0, 0, 0, time.UTC) }
	h := s.Handler()

	for _, path := range []string{"/", "/health"} {
		code, body := get(t, h, path)
		if code != http.StatusOK {
			t.Fatalf("%s: status %d", path, code)
		}
		if body["status"] != "healthy" || body["service"] != "schedule-bot" || body["timestamp"] != "2025-07-20T10:00:00Z" {
			t.Errorf("%s: body %v", path, body)
		}
	}

	code, body := get(t, h, "/status")
	if code != http.StatusOK {
		t.Fatalf("/status: status %d", code)
	}
	if body["status"] != "running" || body["type"] != "discord-bot" || body["sessions"] != float64(3) {
		t.Errorf("/status: body %v", body)
	}

	if code, _ := get(t, h, "/nope"); code != http.StatusNotFound {
		t.Errorf("/nope: status %d", code)
	}
}

func TestStatusWithoutRegistry(t *testing.T) {
	_, body := get(t, New("x", nil, logx.Nop()).Handler(), "/status")
	if body["sessions"] != float64(0) {
		t.Fatalf("sessions = %v", body["sessions"])
	}
}
