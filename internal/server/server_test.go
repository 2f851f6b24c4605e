package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gorilla/websocket"
	"github.com/kapu/kfp-startpage/internal/domain"
	"github.com/kapu/kfp-startpage/internal/samples"
	"github.com/kapu/kfp-startpage/internal/util"
	"github.com/kapu/kfp-startpage/internal/view"
	"go.uber.org/zap"
)

type stubResolver struct {
	mu    sync.Mutex
	links []string
	calls int
}

func (s *stubResolver) Resolve(_ context.Context, names []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return append([]string(nil), s.links...)
}

type stubPublisher struct {
	calls int
	err   error
}

func (p *stubPublisher) PublishRefresh(context.Context) error {
	p.calls++
	return p.err
}

func newTestServer(t *testing.T, resolver view.LinkResolver, publisher RefreshPublisher) (*Server, *view.Page) {
	t.Helper()
	catalog := &samples.Catalog{
		Names:  []string{"dataPipeline", "controlPipeline"},
		Topics: samples.DefaultTopics,
	}
	page := view.NewPage(catalog, resolver, zap.NewNop())
	opts := Options{Page: page, Logger: zap.NewNop()}
	if publisher != nil {
		opts.Publisher = publisher
	}
	srv, err := New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	srv.Shell().SetToolbar(page.Toolbar())
	return srv, page
}

func TestIndexRendersUnresolvedPage(t *testing.T) {
	srv, _ := newTestServer(t, &stubResolver{links: []string{"#/pipelines/details/p1", "#/pipelines"}}, nil)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	doc, err := goquery.NewDocumentFromReader(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	if title := doc.Find("header h1").Text(); title != "Getting Started" {
		t.Fatalf("unexpected title: %q", title)
	}
	if state, _ := doc.Find("#content").Attr("data-state"); state != "unresolved" {
		t.Fatalf("unexpected state: %q", state)
	}
	doc.Find(`#content a:contains("Data passing"), #content a:contains("Control structures")`).Each(func(_ int, a *goquery.Selection) {
		if href, _ := a.Attr("href"); href != "#/pipelines" {
			t.Fatalf("unresolved page should link to the list, got %q", href)
		}
	})
	if doc.Find("#refreshBtn").Length() != 1 {
		t.Fatalf("refresh button missing")
	}
}

func TestRefreshRedirectsAndResolves(t *testing.T) {
	publisher := &stubPublisher{}
	srv, page := newTestServer(t, &stubResolver{links: []string{"#/pipelines/details/p1", "#/pipelines"}}, publisher)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/refresh", nil))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("unexpected response: %d %s", rec.Code, rec.Header().Get("Location"))
	}
	if page.Snapshot().State != domain.PageStateResolved {
		t.Fatalf("refresh should resolve the page")
	}
	if publisher.calls != 1 {
		t.Fatalf("refresh should be broadcast once, got %d", publisher.calls)
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	doc, _ := goquery.NewDocumentFromReader(rec.Body)
	href, _ := doc.Find(`#content a:contains("Data passing")`).Attr("href")
	if href != "#/pipelines/details/p1" {
		t.Fatalf("unexpected data href after refresh: %q", href)
	}
}

func TestRefreshJSONIgnoresBroadcastFailure(t *testing.T) {
	publisher := &stubPublisher{err: errors.New("redis down")}
	srv, _ := newTestServer(t, &stubResolver{links: []string{"#/pipelines", "#/pipelines/details/c1"}}, publisher)

	req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var body stateResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.State != domain.PageStateResolved || body.Links[1] != "#/pipelines/details/c1" {
		t.Fatalf("unexpected body: %+v", body)
	}
	if !strings.Contains(body.Markdown, "[DSL - Control structures](#/pipelines/details/c1)") {
		t.Fatalf("markdown missing control link: %s", body.Markdown)
	}
}

func TestRefreshRejectsGet(t *testing.T) {
	srv, _ := newTestServer(t, &stubResolver{}, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/refresh", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestToolbarEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &stubResolver{}, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/toolbar", nil))

	var toolbar domain.ToolbarState
	if err := json.NewDecoder(rec.Body).Decode(&toolbar); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if toolbar.PageTitle != "Getting Started" || len(toolbar.Breadcrumbs) != 0 {
		t.Fatalf("unexpected toolbar: %+v", toolbar)
	}
	if toolbar.Actions["refresh"].Title != "Refresh" {
		t.Fatalf("refresh action missing: %+v", toolbar.Actions)
	}
}

func TestHealthzReportsCircuit(t *testing.T) {
	srv, _ := newTestServer(t, &stubResolver{}, nil)
	srv.circuitStatus = func() *util.CircuitBreakerStatus {
		return &util.CircuitBreakerStatus{Name: "pipelines-api", State: util.CircuitStateOpen}
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var body struct {
		Status  string                    `json:"status"`
		Circuit util.CircuitBreakerStatus `json:"circuit"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Circuit.State != util.CircuitStateOpen {
		t.Fatalf("unexpected health: %+v", body)
	}
}

func TestHealthzRejectsPost(t *testing.T) {
	srv, _ := newTestServer(t, &stubResolver{}, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestUnknownPathNotFound(t *testing.T) {
	srv, _ := newTestServer(t, &stubResolver{}, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestWebSocketStreamsTransitions(t *testing.T) {
	srv, page := newTestServer(t, &stubResolver{links: []string{"#/pipelines/details/p1", "#/pipelines/details/c1"}}, nil)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var initial SnapshotMessage
	if err := conn.ReadJSON(&initial); err != nil {
		t.Fatalf("read initial: %v", err)
	}
	if initial.State != domain.PageStateUnresolved {
		t.Fatalf("unexpected initial state: %s", initial.State)
	}

	page.Refresh(context.Background())

	var update SnapshotMessage
	if err := conn.ReadJSON(&update); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if update.State != domain.PageStateResolved || update.Generation != 1 {
		t.Fatalf("unexpected update: %+v", update.Snapshot)
	}
	if !strings.Contains(update.HTML, `href="#/pipelines/details/c1"`) {
		t.Fatalf("update html missing resolved link: %s", update.HTML)
	}
}
