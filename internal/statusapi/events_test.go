package statusapi

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zulandar/pcremote/internal/models"
)

// syncActions is an ActionSource whose rows change while a stream is open.
type syncActions struct {
	mu   sync.Mutex
	rows []models.ActionLog
}

func (s *syncActions) Recent(ctx context.Context, limit int) ([]models.ActionLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ActionLog(nil), s.rows...), nil
}

func (s *syncActions) set(rows ...models.ActionLog) {
	s.mu.Lock()
	s.rows = rows
	s.mu.Unlock()
}

func TestNewerThan(t *testing.T) {
	rows := []models.ActionLog{{ID: 5}, {ID: 4}, {ID: 3}, {ID: 2}}
	got := newerThan(rows, 3)
	if len(got) != 2 || got[0].ID != 4 || got[1].ID != 5 {
		t.Errorf("newerThan = %+v, want IDs 4,5", got)
	}
	if got := newerThan(rows, 5); len(got) != 0 {
		t.Errorf("nothing new = %+v", got)
	}
}

func TestEvents_NoSource(t *testing.T) {
	s := newTestServer(t, ServerOpts{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "event: connected") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestEvents_StreamsNewActions(t *testing.T) {
	src := &syncActions{rows: []models.ActionLog{{ID: 1, RequestID: "old", Action: "Kilitle"}}}
	s := newTestServer(t, ServerOpts{Actions: src})
	s.pollEvery = 10 * time.Millisecond
	s.heartbeatEvery = time.Hour

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()

	lines := bufio.NewScanner(resp.Body)
	waitFor := func(substr string) string {
		t.Helper()
		for lines.Scan() {
			if strings.Contains(lines.Text(), substr) {
				return lines.Text()
			}
		}
		t.Fatalf("stream ended before %q: %v", substr, lines.Err())
		return ""
	}

	waitFor("event: connected")
	src.set(
		models.ActionLog{ID: 3, RequestID: "new-2", Action: "Ses Kapat"},
		models.ActionLog{ID: 2, RequestID: "new-1", Action: "Ekran Görüntüsü"},
		models.ActionLog{ID: 1, RequestID: "old", Action: "Kilitle"},
	)

	first := waitFor(`"request_id"`)
	if !strings.Contains(first, "new-1") {
		t.Errorf("first event = %s, want new-1 (oldest new row first)", first)
	}
	second := waitFor(`"request_id"`)
	if !strings.Contains(second, "new-2") {
		t.Errorf("second event = %s", second)
	}
}
