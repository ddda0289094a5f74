package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"deckhand/internal/api"
	"deckhand/internal/config"
	"deckhand/internal/logging"
	"deckhand/internal/orchestrator"
	"deckhand/internal/queue"
	"deckhand/internal/services/worker"
	"deckhand/internal/testsupport"
)

type queueStoreStub struct {
	items []*queue.Job
}

func (s *queueStoreStub) List(context.Context, ...queue.Status) ([]*queue.Job, error) {
	return s.items, nil
}

func (s *queueStoreStub) Stats(context.Context) (map[queue.Status]int, error) {
	return map[queue.Status]int{queue.StatusPending: len(s.items)}, nil
}

func (s *queueStoreStub) GetByID(_ context.Context, id string) (*queue.Job, error) {
	for _, item := range s.items {
		if item.ID == id {
			return item, nil
		}
	}
	return nil, nil
}

type stubWorkerDriver struct{}

func (stubWorkerDriver) CheckAuth(context.Context) (*worker.Response, error) {
	ok := true
	return &worker.Response{Authenticated: &ok}, nil
}

func (stubWorkerDriver) Process(context.Context, worker.ProcessRequest, func(worker.Response)) (*worker.Response, error) {
	return &worker.Response{Status: worker.GenerationCompleted}, nil
}

func (stubWorkerDriver) FindWorkspace(context.Context, string) (*worker.Response, error) {
	return &worker.Response{}, nil
}

func (stubWorkerDriver) CheckStatus(context.Context, string, string) (*worker.Response, error) {
	return &worker.Response{GenerationStatus: worker.GenerationProcessing}, nil
}

func (stubWorkerDriver) Download(context.Context, string, string, string, string) (*worker.Response, error) {
	return &worker.Response{}, nil
}

func (stubWorkerDriver) Login(context.Context, func(worker.Response)) (*worker.Response, error) {
	return &worker.Response{}, nil
}

// newTestServer builds a daemon-backed API server without starting the
// daemon; handlers are exercised directly.
func newTestServer(t *testing.T) (*apiServer, *queue.Store) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	hub := queue.NewHub(logging.NewNop())
	store.SetHub(hub)
	mgr := orchestrator.NewManager(func() *config.Config { return cfg }, store, stubWorkerDriver{}, logging.NewNop(),
		orchestrator.WithHub(hub))
	d, err := New(cfg, store, logging.NewNop(), mgr, hub)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
	})
	return d.api, store
}

func submitSource(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "chapter.md")
	if err := os.WriteFile(path, []byte("# chapter"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

func TestAPIServerHandleQueue(t *testing.T) {
	store := &queueStoreStub{items: []*queue.Job{{ID: "job-1", PrimarySource: "/docs/example.pdf", Status: queue.StatusPending}}}
	srv := &apiServer{queueSvc: api.NewQueueService(store)}

	req := httptest.NewRequest(http.MethodGet, "/api/queue", nil)
	w := httptest.NewRecorder()
	srv.handleQueue(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var resp api.QueueListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(resp.Items))
	}
	if resp.Items[0].PrimarySource != "/docs/example.pdf" {
		t.Fatalf("unexpected primary source: %q", resp.Items[0].PrimarySource)
	}
}

func TestAPIServerHandleQueueRejectsUnknownStatus(t *testing.T) {
	srv := &apiServer{queueSvc: api.NewQueueService(&queueStoreStub{})}

	req := httptest.NewRequest(http.MethodGet, "/api/queue?status=bogus", nil)
	w := httptest.NewRecorder()
	srv.handleQueue(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "unknown status") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestAPIServerHandleQueueItemDescribe(t *testing.T) {
	store := &queueStoreStub{items: []*queue.Job{{ID: "job-1", PrimarySource: "/docs/example.pdf", Status: queue.StatusCompleted}}}
	srv := &apiServer{queueSvc: api.NewQueueService(store)}

	req := httptest.NewRequest(http.MethodGet, "/api/queue/job-1", nil)
	w := httptest.NewRecorder()
	srv.handleQueueItem(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var resp api.QueueItemResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Item.ID != "job-1" || resp.Item.Status != "completed" {
		t.Fatalf("unexpected item: %+v", resp.Item)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/queue/missing", nil)
	w = httptest.NewRecorder()
	srv.handleQueueItem(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing item, got %d", w.Code)
	}
}

func TestAPIServerSubmitAndRemove(t *testing.T) {
	srv, _ := newTestServer(t)
	source := submitSource(t)

	body, err := json.Marshal(api.SubmitRequest{PrimarySource: source})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/queue", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.handleQueue(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 Created, got %d: %s", w.Code, w.Body.String())
	}
	var created api.QueueItemResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.Item.ID == "" || created.Item.Status != "pending" {
		t.Fatalf("unexpected created item: %+v", created.Item)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/queue/"+created.Item.ID, nil)
	w = httptest.NewRecorder()
	srv.handleQueueItem(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK on delete, got %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/queue/"+created.Item.ID, nil)
	w = httptest.NewRecorder()
	srv.handleQueueItem(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on repeat delete, got %d", w.Code)
	}
}

func TestAPIServerSubmitValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/queue", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	srv.handleQueue(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", w.Code)
	}

	body, err := json.Marshal(api.SubmitRequest{PrimarySource: filepath.Join(t.TempDir(), "missing.pdf")})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req = httptest.NewRequest(http.MethodPost, "/api/queue", bytes.NewReader(body))
	w = httptest.NewRecorder()
	srv.handleQueue(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing source, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAPIServerHandleStatus(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	srv.handleStatus(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var status api.DaemonStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if status.Running {
		t.Fatal("daemon should not report running")
	}
	if status.PID <= 0 {
		t.Fatalf("unexpected pid %d", status.PID)
	}
	found := false
	for _, check := range status.Checks {
		if check.Name == "Queue snapshot" {
			found = true
			if !check.Ready {
				t.Fatalf("snapshot check not ready: %s", check.Detail)
			}
		}
	}
	if !found {
		t.Fatal("expected queue snapshot check in status payload")
	}
}

func TestAPIServerServesHTTP(t *testing.T) {
	srv, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer srv.stop()

	if srv.addr() == "" {
		t.Fatal("expected a bound address")
	}

	resp, err := http.Get("http://" + srv.addr() + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", resp.StatusCode)
	}
}

func TestAPIServerEventStream(t *testing.T) {
	srv, store := newTestServer(t)

	ts := httptest.NewServer(http.HandlerFunc(srv.handleEvents))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var snapshot api.EventSnapshot
	if err := conn.ReadJSON(&snapshot); err != nil {
		t.Fatalf("read snapshot frame: %v", err)
	}
	if snapshot.Type != "snapshot" {
		t.Fatalf("expected snapshot frame first, got %q", snapshot.Type)
	}
	if len(snapshot.Items) != 0 {
		t.Fatalf("expected empty snapshot, got %d items", len(snapshot.Items))
	}

	job := testsupport.NewPendingJob(t, store, submitSource(t))

	var event api.Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event frame: %v", err)
	}
	if event.Type != string(queue.EventQueued) {
		t.Fatalf("expected queued event, got %q", event.Type)
	}
	if event.Job == nil || event.Job.ID != job.ID {
		t.Fatalf("unexpected event payload: %+v", event.Job)
	}
}
