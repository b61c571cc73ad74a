package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"tracklix/tracking/internal/tracking/domain"
	"tracklix/tracking/internal/tracking/queue"
	"tracklix/tracking/internal/tracking/repository"
	"tracklix/tracking/internal/tracking/worker"
)

const testCookie = "__ModuleSessionCookie"

type testServer struct {
	repo   *repository.MemoryRepository
	queue  *queue.Queue
	router chi.Router
}

func newTestServer(t *testing.T, queueCapacity int) *testServer {
	t.Helper()
	repo := repository.NewMemoryRepository()
	q := queue.New(queueCapacity)
	w := worker.New(q, repo, nil, nil)
	r := chi.NewRouter()
	New(repo, q, w, testCookie).Register(r)
	return &testServer{repo: repo, queue: q, router: r}
}

func sessionCookie(t *testing.T, companyID, employeeID uuid.UUID) *http.Cookie {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"cid": companyID.String(),
		"eid": employeeID.String(),
	})
	signed, err := token.SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return &http.Cookie{Name: testCookie, Value: signed}
}

func eventBody() string {
	return `{"production":"PT","eventType":"Click","eventName":"Click_Demo_Button","pageName":"Demo_Page"}`
}

func TestCreateEvent_Accepted(t *testing.T) {
	ts := newTestServer(t, 10)
	sessionID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/entities/"+sessionID.String()+"/events", strings.NewReader(eventBody()))
	req.AddCookie(sessionCookie(t, uuid.New(), uuid.New()))
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (body %s)", rec.Code, rec.Body)
	}
	if got := ts.queue.Depth(); got != 1 {
		t.Errorf("queue depth = %d, want 1", got)
	}

	var resp struct {
		Accepted  bool      `json:"accepted"`
		SessionID uuid.UUID `json:"session_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Accepted || resp.SessionID != sessionID {
		t.Errorf("response = %+v", resp)
	}
}

func TestCreateEvent_MissingCookie(t *testing.T) {
	ts := newTestServer(t, 10)

	req := httptest.NewRequest(http.MethodPost, "/entities/events", strings.NewReader(eventBody()))
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if got := ts.queue.Depth(); got != 0 {
		t.Errorf("queue depth = %d, want 0", got)
	}
}

func TestCreateEvent_InvalidBody(t *testing.T) {
	ts := newTestServer(t, 10)

	for _, body := range []string{"{not json", `{"production":"PT"}`} {
		req := httptest.NewRequest(http.MethodPost, "/entities/events", strings.NewReader(body))
		req.AddCookie(sessionCookie(t, uuid.New(), uuid.New()))
		rec := httptest.NewRecorder()
		ts.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestCreateEvent_QueueFullReturns429(t *testing.T) {
	ts := newTestServer(t, 1)
	cookie := sessionCookie(t, uuid.New(), uuid.New())

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/entities/events", strings.NewReader(eventBody()))
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		ts.router.ServeHTTP(rec, req)
		return rec
	}

	if rec := post(); rec.Code != http.StatusAccepted {
		t.Fatalf("first post: status = %d, want 202", rec.Code)
	}
	if rec := post(); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second post: status = %d, want 429", rec.Code)
	}
	if got := ts.queue.Dropped(); got != 1 {
		t.Errorf("dropped = %d, want 1", got)
	}
}

func TestListEvents_ReturnsSessionEvents(t *testing.T) {
	ts := newTestServer(t, 10)
	sessionID := uuid.New()
	for i := 0; i < 3; i++ {
		ts.repo.InsertEvent(context.Background(), &domain.Event{
			ID:        uuid.New(),
			SessionID: sessionID,
			EventName: fmt.Sprintf("Click_%d", i),
			Timestamp: time.Now().Add(time.Duration(i) * time.Second),
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/entities/"+sessionID.String()+"/events?limit=2", nil)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var events []*domain.Event
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (limit)", len(events))
	}
	if events[0].EventName != "Click_2" {
		t.Errorf("events not newest-first: %s", events[0].EventName)
	}
}

func TestGetEntity_NotFound(t *testing.T) {
	ts := newTestServer(t, 10)

	req := httptest.NewRequest(http.MethodGet, "/entities/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, 10)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestQueueStats_ReflectsCounters(t *testing.T) {
	ts := newTestServer(t, 2)
	cookie := sessionCookie(t, uuid.New(), uuid.New())
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/entities/events", strings.NewReader(eventBody()))
		req.AddCookie(cookie)
		ts.router.ServeHTTP(httptest.NewRecorder(), req)
	}

	req := httptest.NewRequest(http.MethodGet, "/queue/stats", nil)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var stats struct {
		Capacity int   `json:"capacity"`
		Depth    int   `json:"depth"`
		Enqueued int64 `json:"enqueued"`
		Dropped  int64 `json:"dropped"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if stats.Capacity != 2 || stats.Depth != 2 || stats.Enqueued != 2 || stats.Dropped != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
