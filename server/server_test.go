package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"persona_studio/generator"
	"persona_studio/orchestrator"
	"persona_studio/persona"
	"persona_studio/publisher"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type staticGen struct{}

func (staticGen) Generate(ctx context.Context, draft string, p persona.Persona) (generator.Result, error) {
	if p.ID == "broken" {
		return generator.Result{}, errors.New("model unavailable")
	}
	return generator.Result{
		Content:  "# " + p.Name + "\n\n" + draft,
		Analysis: "贴合" + string(p.Platform),
		Tags:     []string{"demo"},
	}, nil
}

type fakePublisher struct {
	got []publisher.Article
}

func (f *fakePublisher) PublishDraft(ctx context.Context, art publisher.Article) (string, error) {
	f.got = append(f.got, art)
	return "media-1", nil
}

type harness struct {
	store *persona.Store
	orch  *orchestrator.Orchestrator
	pub   *fakePublisher
	h     http.Handler
}

func newHarness(t *testing.T, withPublisher bool) *harness {
	t.Helper()
	store := persona.NewStore()
	err := store.Seed([]persona.Persona{
		{ID: "1", Name: "Alex", Role: "导师", Platform: persona.LinkedIn, Tone: "专业", Description: "职场"},
		{ID: "2", Name: "公号君", Role: "编辑", Platform: persona.WeChat, Tone: "温和", Description: "长文"},
		{ID: "broken", Name: "Bug", Role: "x", Platform: persona.Twitter, Tone: "x", Description: "x"},
	})
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	reg := prometheus.NewRegistry()
	metrics, err := orchestrator.NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	orch, err := orchestrator.New(staticGen{}, store, orchestrator.WithMetrics(metrics))
	if err != nil {
		t.Fatalf("orchestrator.New: %v", err)
	}
	hs := &harness{store: store, orch: orch}
	deps := Deps{Personas: store, Orchestrator: orch, Gatherer: reg}
	if withPublisher {
		hs.pub = &fakePublisher{}
		deps.Publisher = hs.pub
	}
	srv, err := New(deps)
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	hs.h = srv.Routes()
	return hs
}

func (hs *harness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	hs.h.ServeHTTP(w, req)
	return w
}

func (hs *harness) waitSettled(t *testing.T) orchestrator.Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if snap := hs.orch.Snapshot(); !snap.Generating {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("batch did not settle")
	return orchestrator.Snapshot{}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apiError {
	t.Helper()
	var env errorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope %q: %v", w.Body.String(), err)
	}
	return env.Error
}

func TestHealthAndPlatforms(t *testing.T) {
	hs := newHarness(t, false)

	if w := hs.do(t, http.MethodGet, "/healthz", nil); w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", w.Code, w.Body.String())
	}

	w := hs.do(t, http.MethodGet, "/api/platforms", nil)
	var resp struct {
		Platforms []string `json:"platforms"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Platforms) != 6 || resp.Platforms[5] != "公众号" {
		t.Fatalf("platforms = %v", resp.Platforms)
	}
}

func TestPersonaCRUD(t *testing.T) {
	hs := newHarness(t, false)

	w := hs.do(t, http.MethodPost, "/api/personas", map[string]string{
		"name": "Amy", "role": "博主", "platform": "xiaohongshu", "tone": "活泼", "description": "种草",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", w.Code, w.Body.String())
	}
	var created persona.Persona
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == "" || created.Platform != persona.Xiaohongshu || created.AvatarColor == "" {
		t.Fatalf("created = %+v", created)
	}

	w = hs.do(t, http.MethodPost, "/api/personas", map[string]string{
		"name": " ", "role": "r", "platform": "LinkedIn", "tone": "t", "description": "d",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("blank name status = %d", w.Code)
	}
	if e := decodeError(t, w); e.Code != "invalid_name" {
		t.Fatalf("error code = %q", e.Code)
	}

	w = hs.do(t, http.MethodPost, "/api/personas", map[string]string{
		"name": "n", "role": "r", "platform": "MySpace", "tone": "t", "description": "d",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad platform status = %d", w.Code)
	}

	w = hs.do(t, http.MethodPut, "/api/personas/"+created.ID, map[string]string{
		"name": "Amy2", "role": "博主", "platform": "抖音", "tone": "活泼", "description": "种草",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d body=%s", w.Code, w.Body.String())
	}
	got, _ := hs.store.Get(created.ID)
	if got.Name != "Amy2" || got.Platform != persona.Douyin || got.AvatarColor != created.AvatarColor {
		t.Fatalf("after update = %+v", got)
	}

	w = hs.do(t, http.MethodPut, "/api/personas/missing", map[string]string{
		"name": "n", "role": "r", "platform": "LinkedIn", "tone": "t", "description": "d",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("update missing status = %d", w.Code)
	}

	for i := 0; i < 2; i++ {
		if w := hs.do(t, http.MethodDelete, "/api/personas/"+created.ID, nil); w.Code != http.StatusNoContent {
			t.Fatalf("delete #%d status = %d", i, w.Code)
		}
	}
	if hs.store.Len() != 3 {
		t.Fatalf("store len = %d, want 3", hs.store.Len())
	}
}

func TestGenerateRejectsEmptyInput(t *testing.T) {
	hs := newHarness(t, false)

	w := hs.do(t, http.MethodPost, "/api/generate", generateRequest{Draft: "  ", PersonaIDs: []string{"1"}})
	if w.Code != http.StatusBadRequest || decodeError(t, w).Code != "empty_draft" {
		t.Fatalf("empty draft = %d %s", w.Code, w.Body.String())
	}
	w = hs.do(t, http.MethodPost, "/api/generate", generateRequest{Draft: "hi"})
	if w.Code != http.StatusBadRequest || decodeError(t, w).Code != "no_personas" {
		t.Fatalf("no personas = %d %s", w.Code, w.Body.String())
	}
}

func TestGenerateAndRenderResults(t *testing.T) {
	hs := newHarness(t, false)

	w := hs.do(t, http.MethodPost, "/api/generate", generateRequest{Draft: "新品上市", PersonaIDs: []string{"1", "broken"}})
	if w.Code != http.StatusAccepted {
		t.Fatalf("generate status = %d body=%s", w.Code, w.Body.String())
	}
	var initial orchestrator.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &initial); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(initial.Results) != 2 || initial.Results[0].Status != orchestrator.StatusLoading {
		t.Fatalf("initial = %+v", initial)
	}

	hs.waitSettled(t)
	w = hs.do(t, http.MethodGet, "/api/results", nil)
	var snap orchestrator.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Generating || len(snap.Results) != 2 {
		t.Fatalf("snapshot = %+v", snap)
	}
	ok, failed := snap.Results[0], snap.Results[1]
	if ok.Status != orchestrator.StatusSuccess || failed.Status != orchestrator.StatusError {
		t.Fatalf("statuses = %s, %s", ok.Status, failed.Status)
	}

	w = hs.do(t, http.MethodGet, "/api/results/"+ok.ID+"/html", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "<h1>Alex</h1>") {
		t.Fatalf("html = %d %q", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("content type = %q", ct)
	}
	if w := hs.do(t, http.MethodGet, "/api/results/"+failed.ID+"/html", nil); w.Code != http.StatusConflict {
		t.Fatalf("html of failed result = %d", w.Code)
	}
	if w := hs.do(t, http.MethodGet, "/api/results/nope/html", nil); w.Code != http.StatusNotFound {
		t.Fatalf("html of unknown result = %d", w.Code)
	}

	w = hs.do(t, http.MethodGet, "/metrics", nil)
	if !strings.Contains(w.Body.String(), `persona_studio_generations_total{status="success"} 1`) {
		t.Fatalf("metrics missing success counter:\n%s", w.Body.String())
	}
}

func TestPublishResult(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		hs := newHarness(t, false)
		w := hs.do(t, http.MethodPost, "/api/results/2-1/publish", nil)
		if w.Code != http.StatusNotImplemented {
			t.Fatalf("status = %d", w.Code)
		}
	})

	t.Run("wechat only", func(t *testing.T) {
		hs := newHarness(t, true)
		hs.do(t, http.MethodPost, "/api/generate", generateRequest{Draft: "秋季新品", PersonaIDs: []string{"1", "2"}})
		snap := hs.waitSettled(t)

		w := hs.do(t, http.MethodPost, "/api/results/"+snap.Results[0].ID+"/publish", nil)
		if w.Code != http.StatusBadRequest || decodeError(t, w).Code != "unsupported_platform" {
			t.Fatalf("linkedin publish = %d %s", w.Code, w.Body.String())
		}

		w = hs.do(t, http.MethodPost, "/api/results/"+snap.Results[1].ID+"/publish", nil)
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "media-1") {
			t.Fatalf("wechat publish = %d %s", w.Code, w.Body.String())
		}
		if len(hs.pub.got) != 1 {
			t.Fatalf("publisher calls = %d", len(hs.pub.got))
		}
		art := hs.pub.got[0]
		if !strings.Contains(art.Markdown, "秋季新品") || art.Digest != "贴合公众号" {
			t.Fatalf("article = %+v", art)
		}
	})
}

func TestResultEventsStream(t *testing.T) {
	hs := newHarness(t, false)
	ts := httptest.NewServer(hs.h)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/results/events", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content type = %q", ct)
	}

	events := make(chan orchestrator.Snapshot, 16)
	go func() {
		defer close(events)
		sc := bufio.NewScanner(resp.Body)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for sc.Scan() {
			line := sc.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			var snap orchestrator.Snapshot
			if json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &snap) == nil {
				events <- snap
			}
		}
	}()

	next := func() orchestrator.Snapshot {
		t.Helper()
		select {
		case snap, ok := <-events:
			if !ok {
				t.Fatalf("stream closed")
			}
			return snap
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event")
		}
		return orchestrator.Snapshot{}
	}

	if first := next(); len(first.Results) != 0 {
		t.Fatalf("first event = %+v", first)
	}

	if _, err := hs.orch.RunBatch(context.Background(), "草稿", []string{"1"}); err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	for {
		snap := next()
		if !snap.Generating && len(snap.Results) == 1 && snap.Results[0].Status == orchestrator.StatusSuccess {
			break
		}
	}
}
