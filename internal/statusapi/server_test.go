package statusapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zulandar/pcremote/internal/actions"
	"github.com/zulandar/pcremote/internal/models"
	"github.com/zulandar/pcremote/internal/state"
)

type fakeTasks struct {
	tasks []models.AutomationTask
	next  map[uint]time.Time
	err   error
}

func (f *fakeTasks) Tasks(ctx context.Context) ([]models.AutomationTask, error) {
	return f.tasks, f.err
}

func (f *fakeTasks) Next(id uint) (time.Time, bool) {
	t, ok := f.next[id]
	return t, ok
}

type fakeActions struct {
	rows      []models.ActionLog
	err       error
	lastLimit int
}

func (f *fakeActions) Recent(ctx context.Context, limit int) ([]models.ActionLog, error) {
	f.lastLimit = limit
	return f.rows, f.err
}

type fakeSamples []actions.Sample

func (f fakeSamples) Samples() []actions.Sample { return f }

func newTestServer(t *testing.T, opts ServerOpts) *Server {
	t.Helper()
	if opts.Listen == "" {
		opts.Listen = "127.0.0.1:0"
	}
	if opts.Store == nil {
		opts.Store = state.NewStore()
	}
	s, err := NewServer(opts)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}

func get(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return rec, body
}

func TestNewServer_Validation(t *testing.T) {
	tests := []struct {
		name string
		opts ServerOpts
		want string
	}{
		{"no listen", ServerOpts{Store: state.NewStore()}, "listen address is required"},
		{"bad listen", ServerOpts{Listen: "8080", Store: state.NewStore()}, "listen address"},
		{"no store", ServerOpts{Listen: ":8080"}, "store is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewServer(tt.opts)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, ServerOpts{})
	rec, body := get(t, s, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestStatus(t *testing.T) {
	store := state.NewStore()
	store.Arm("42", state.AwaitCommand)
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	s := newTestServer(t, ServerOpts{
		Store:   store,
		Version: "1.2.3",
		Samples: fakeSamples{
			{At: started, CPU: 10, RAM: 20},
			{At: started.Add(time.Minute), CPU: 55.5, RAM: 60},
		},
	})
	s.startedAt = started
	s.now = func() time.Time { return started.Add(90 * time.Second) }

	rec, body := get(t, s, "/api/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["version"] != "1.2.3" {
		t.Errorf("version = %v", body["version"])
	}
	if body["uptime_seconds"] != float64(90) {
		t.Errorf("uptime = %v", body["uptime_seconds"])
	}
	if body["conversations"] != float64(1) {
		t.Errorf("conversations = %v", body["conversations"])
	}
	states := body["states"].([]any)
	first := states[0].(map[string]any)
	if first["principal"] != "42" || first["awaiting"] != "command" {
		t.Errorf("state = %v", first)
	}
	last := body["last_sample"].(map[string]any)
	if last["cpu_percent"] != 55.5 {
		t.Errorf("last sample = %v", last)
	}
}

func TestStatus_NoSamples(t *testing.T) {
	s := newTestServer(t, ServerOpts{Samples: fakeSamples{}})
	_, body := get(t, s, "/api/status")
	if _, ok := body["last_sample"]; ok {
		t.Error("expected last_sample to be omitted")
	}
}

func TestTasks(t *testing.T) {
	next := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	tasks := &fakeTasks{
		tasks: []models.AutomationTask{
			{ID: 1, Command: "echo hi", Kind: models.TaskRecurring, IntervalMinutes: 5, RunCount: 3},
			{ID: 2, Command: "backup", Kind: models.TaskCron, CronSpec: "0 3 * * *"},
		},
		next: map[uint]time.Time{1: next},
	}
	s := newTestServer(t, ServerOpts{Tasks: tasks})

	rec, body := get(t, s, "/api/tasks")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	list := body["tasks"].([]any)
	if len(list) != 2 {
		t.Fatalf("tasks = %d, want 2", len(list))
	}
	one := list[0].(map[string]any)
	if one["command"] != "echo hi" || one["interval_minutes"] != float64(5) || one["run_count"] != float64(3) {
		t.Errorf("task 1 = %v", one)
	}
	if one["next_run_at"] != next.Format(time.RFC3339) {
		t.Errorf("next_run_at = %v", one["next_run_at"])
	}
	two := list[1].(map[string]any)
	if two["cron_spec"] != "0 3 * * *" {
		t.Errorf("task 2 = %v", two)
	}
	if _, ok := two["next_run_at"]; ok {
		t.Error("unscheduled task should omit next_run_at")
	}
}

func TestTasks_Error(t *testing.T) {
	s := newTestServer(t, ServerOpts{Tasks: &fakeTasks{err: errors.New("db down")}})
	rec, body := get(t, s, "/api/tasks")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(body["error"].(string), "db down") {
		t.Error("internal error leaked to client")
	}
}

func TestTasks_NoSource(t *testing.T) {
	s := newTestServer(t, ServerOpts{})
	_, body := get(t, s, "/api/tasks")
	if list := body["tasks"].([]any); len(list) != 0 {
		t.Errorf("tasks = %v", list)
	}
}

func TestActions(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	src := &fakeActions{rows: []models.ActionLog{
		{RequestID: "r1", Principal: "42", Platform: "telegram", Action: "Ekran Görüntüsü", Outcome: "ok", DurationMs: 120, CreatedAt: at},
		{RequestID: "r2", Principal: "42", Platform: "telegram", Action: "Komut Çalıştır", Outcome: "error", Error: "boom"},
	}}
	s := newTestServer(t, ServerOpts{Actions: src})

	rec, body := get(t, s, "/api/actions")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if src.lastLimit != defaultActionLimit {
		t.Errorf("limit = %d, want default", src.lastLimit)
	}
	list := body["actions"].([]any)
	if len(list) != 2 {
		t.Fatalf("actions = %d", len(list))
	}
	first := list[0].(map[string]any)
	if first["action"] != "Ekran Görüntüsü" || first["duration_ms"] != float64(120) || first["at"] != at.Format(time.RFC3339) {
		t.Errorf("first = %v", first)
	}
	if list[1].(map[string]any)["error"] != "boom" {
		t.Errorf("second = %v", list[1])
	}
}

func TestActions_Limit(t *testing.T) {
	src := &fakeActions{}
	s := newTestServer(t, ServerOpts{Actions: src})

	get(t, s, "/api/actions?limit=5")
	if src.lastLimit != 5 {
		t.Errorf("limit = %d, want 5", src.lastLimit)
	}
	get(t, s, "/api/actions?limit=100000")
	if src.lastLimit != maxActionLimit {
		t.Errorf("limit = %d, want cap %d", src.lastLimit, maxActionLimit)
	}
	for _, bad := range []string{"0", "-1", "abc"} {
		rec, _ := get(t, s, "/api/actions?limit="+bad)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", bad, rec.Code)
		}
	}
}

func TestActions_Error(t *testing.T) {
	s := newTestServer(t, ServerOpts{Actions: &fakeActions{err: errors.New("locked")}})
	rec, _ := get(t, s, "/api/actions")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "pcremote_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Add(3)

	s := newTestServer(t, ServerOpts{Gatherer: reg})
	rec, _ := get(t, s, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "pcremote_test_total 3") {
		t.Errorf("metrics body missing counter:\n%s", rec.Body.String())
	}
}

func TestMetrics_Disabled(t *testing.T) {
	s := newTestServer(t, ServerOpts{})
	rec, _ := get(t, s, "/metrics")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRun_ServesAndShutsDown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()

	var out strings.Builder
	s := newTestServer(t, ServerOpts{Listen: addr, Out: &out})
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	var resp *http.Response
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp, err = http.Get("http://" + addr + "/healthz")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		cancel()
		t.Fatalf("server never came up: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `"ok"`) {
		t.Errorf("body = %s", body)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if !strings.Contains(out.String(), addr) {
		t.Errorf("startup line = %q", out.String())
	}
}

// --- Client tests ---

func TestClient_StatusAndTasks(t *testing.T) {
	store := state.NewStore()
	store.Arm("7", state.AwaitCommand)
	s := newTestServer(t, ServerOpts{
		Store:   store,
		Version: "0.9.0",
		Tasks: &fakeTasks{tasks: []models.AutomationTask{
			{ID: 3, Command: "backup", Kind: models.TaskCron, CronSpec: "0 3 * * *"},
		}},
	})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	c, err := NewClient(ts.URL+"/", ts.Client())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	st, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Version != "0.9.0" || st.Conversations != 1 {
		t.Errorf("status = %+v", st)
	}
	if len(st.States) != 1 || st.States[0].Awaiting != "command" {
		t.Errorf("states = %+v", st.States)
	}

	tasks, err := c.Tasks(context.Background())
	if err != nil {
		t.Fatalf("Tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].CronSpec != "0 3 * * *" {
		t.Errorf("tasks = %+v", tasks)
	}
}

func TestClient_ServerError(t *testing.T) {
	s := newTestServer(t, ServerOpts{Tasks: &fakeTasks{err: errors.New("db down")}})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	c, _ := NewClient(ts.URL, ts.Client())
	_, err := c.Tasks(context.Background())
	if err == nil || !strings.Contains(err.Error(), "failed to list tasks") {
		t.Errorf("err = %v", err)
	}
}

func TestNewClient(t *testing.T) {
	if _, err := NewClient(" ", nil); err == nil {
		t.Error("expected error for empty address")
	}
	c, err := NewClient("127.0.0.1:8765", nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.base != "http://127.0.0.1:8765" {
		t.Errorf("base = %q", c.base)
	}
}
