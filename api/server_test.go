package api

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

	"github.com/seenimoa/crmreport/internal/config"
	"github.com/seenimoa/crmreport/internal/datasource"
	"github.com/seenimoa/crmreport/internal/report"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

const validPayload = `{
	"answer": "Trees and Roads lead this year's growth.",
	"rationale": ["Trees grew 108.9% with 172 more requests."],
	"key_metrics": ["108.9% growth in Trees", "172 requests increase in Trees", "21.4% growth in Roads"],
	"products": [{"product": "top10_volume_30d", "why": "current demand"}]
}`

func testServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	csv := "rank,category,primary_metric,secondary_metric,ranking_type\n" +
		"1,Recreation and leisure,663,18.5,Volume (Last 30 Days)\n" +
		"2,Trees,330,9.2,Volume (Last 30 Days)\n"
	if err := os.WriteFile(filepath.Join(dir, "top10.csv"), []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{}
	cfg.LLM.GeminiKey = "AIzaSyTESTKEY123"
	cat := datasource.DefaultCatalog()
	src := datasource.NewDirSource(cat, dir)
	gen := report.New(report.WithSource(src, cat))
	srv := NewServer(cfg, gen, WithSource(src, cat), WithVersion("1.2.3"))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.Hub().Run(ctx)
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) APIResponse {
	t.Helper()
	var raw struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if data != nil && len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, data); err != nil {
			t.Fatalf("failed to decode data: %v", err)
		}
	}
	return APIResponse{Success: raw.Success, Error: raw.Error}
}

// ════════════════════════════════════════════════════════════════════
// Health
// ════════════════════════════════════════════════════════════════════

func TestHandleHealth(t *testing.T) {
	srv := testServer(t)
	for _, path := range []string{"/health", "/api/v1/health"} {
		rec := do(t, srv, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status got %d, want 200", path, rec.Code)
		}
		var data map[string]interface{}
		resp := decodeResponse(t, rec, &data)
		if !resp.Success || data["status"] != "ok" || data["version"] != "1.2.3" {
			t.Errorf("%s: got %+v %v", path, resp, data)
		}
		if data["llm"] != false {
			t.Errorf("%s: llm should be off when not enabled", path)
		}
		if src, _ := data["source"].(string); !strings.HasPrefix(src, "files ") {
			t.Errorf("%s: source got %q", path, src)
		}
	}
}

// ════════════════════════════════════════════════════════════════════
// Reports
// ════════════════════════════════════════════════════════════════════

func TestHandleReportPDF(t *testing.T) {
	rec := do(t, testServer(t), http.MethodPost, "/api/v1/reports", validPayload)
	if rec.Code != http.StatusOK {
		t.Fatalf("status got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type got %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, `"report.pdf"`) {
		t.Errorf("Content-Disposition got %q", cd)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")) {
		t.Error("body is not a PDF")
	}
}

func TestHandleReportText(t *testing.T) {
	rec := do(t, testServer(t), http.MethodPost, "/api/v1/reports?format=text&title=Quarterly+Trends&subtitle=Q1+2025", validPayload)
	if rec.Code != http.StatusOK {
		t.Fatalf("status got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type got %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{"Quarterly Trends", "Q1 2025", "Top 10 Categories by Volume (Last 30 Days)", report.Footer} {
		if !strings.Contains(body, want) {
			t.Errorf("text report missing %q", want)
		}
	}
}

func TestHandleReport_InvalidPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad json", `{"answer":`, "invalid payload"},
		{"missing fields", `{"answer":"x"}`, "missing rationale, key_metrics"},
		{"blank answer", `{"answer":"  ","rationale":[],"key_metrics":[]}`, "missing answer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, testServer(t), http.MethodPost, "/api/v1/reports", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status got %d, want 400", rec.Code)
			}
			resp := decodeResponse(t, rec, nil)
			if resp.Success || !strings.Contains(resp.Error, tt.want) {
				t.Errorf("error got %q, want it to contain %q", resp.Error, tt.want)
			}
		})
	}
}

func TestHandleReport_UnsupportedFormat(t *testing.T) {
	rec := do(t, testServer(t), http.MethodPost, "/api/v1/reports?format=docx", validPayload)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status got %d, want 400", rec.Code)
	}
}

// ════════════════════════════════════════════════════════════════════
// Metrics
// ════════════════════════════════════════════════════════════════════

func TestHandleParseMetrics(t *testing.T) {
	body := `{"metrics": ["73.1% growth in Recreation", "663 recent requests in Recreation", "Steady demand"]}`
	rec := do(t, testServer(t), http.MethodPost, "/api/v1/metrics/parse", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status got %d: %s", rec.Code, rec.Body.String())
	}
	var data ParseResult
	decodeResponse(t, rec, &data)
	if len(data.Metrics) != 3 {
		t.Fatalf("metrics: got %d, want 3", len(data.Metrics))
	}
	if m := data.Metrics[0]; m.Value == nil || *m.Value != 73.1 || m.Unit != "%" || m.Category != "Recreation" {
		t.Errorf("first metric: got %+v", m)
	}
	if data.Metrics[2].Value != nil {
		t.Error("unparseable metric should have no value")
	}
	if len(data.Categories) != 1 || data.Categories[0] != "Recreation" {
		t.Errorf("categories: got %v", data.Categories)
	}
	if data.Charted != 1 {
		t.Errorf("charted: got %d, want one before/after bar", data.Charted)
	}
}

func TestHandleParseMetrics_Errors(t *testing.T) {
	srv := testServer(t)
	if rec := do(t, srv, http.MethodPost, "/api/v1/metrics/parse", `not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad json: status got %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodPost, "/api/v1/metrics/parse", `{"metrics": []}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty: status got %d", rec.Code)
	}
}

// ════════════════════════════════════════════════════════════════════
// Products
// ════════════════════════════════════════════════════════════════════

func TestHandleProducts(t *testing.T) {
	rec := do(t, testServer(t), http.MethodGet, "/api/v1/products", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status got %d", rec.Code)
	}
	var infos []ProductInfo
	decodeResponse(t, rec, &infos)
	if len(infos) != 8 {
		t.Fatalf("products: got %d, want the 8 catalog entries", len(infos))
	}
	byKey := map[string]ProductInfo{}
	for _, p := range infos {
		byKey[p.Key] = p
	}
	top := byKey["top10_volume_30d"]
	if top.Status != "available" || top.File != "top10.csv" || top.Shape != "2 rows × 5 columns" {
		t.Errorf("top10: got %+v", top)
	}
	if b := byKey["backlog_ranked_list"]; b.Status != "missing" || b.Title != "Backlog Analysis - Urgent Unresolved Items" {
		t.Errorf("backlog: got %+v", b)
	}
}

func TestHandleProductChart(t *testing.T) {
	srv := testServer(t)
	rec := do(t, srv, http.MethodGet, "/api/v1/products/top10_volume_30d/chart", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status got %d: %s", rec.Code, rec.Body.String())
	}
	var info ChartInfo
	decodeResponse(t, rec, &info)
	if info.Chart != "bar" || info.Rule != "ranking" || info.Rows != 2 || len(info.Columns) != 5 {
		t.Errorf("chart info: got %+v", info)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/products/time_to_close/chart", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing product: status got %d, want 404", rec.Code)
	}
}

func TestHandleProductChart_NoSource(t *testing.T) {
	srv := NewServer(&config.Config{}, nil)
	rec := do(t, srv, http.MethodGet, "/api/v1/products/top10_volume_30d/chart", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status got %d, want 503", rec.Code)
	}
}

// ════════════════════════════════════════════════════════════════════
// Config
// ════════════════════════════════════════════════════════════════════

func TestHandleGetConfigKeys(t *testing.T) {
	rec := do(t, testServer(t), http.MethodGet, "/api/v1/config/keys", "")
	var keys []config.KeyStatus
	decodeResponse(t, rec, &keys)
	if len(keys) != 3 {
		t.Fatalf("keys: got %d, want 3", len(keys))
	}
	if !keys[0].IsSet || keys[0].Masked != "AIz...123" {
		t.Errorf("gemini key: got %+v", keys[0])
	}
	if strings.Contains(rec.Body.String(), "AIzaSyTESTKEY123") {
		t.Error("raw key leaked")
	}
	if keys[1].IsSet || keys[1].Source != config.KeySourceNone {
		t.Errorf("openai key: got %+v", keys[1])
	}
}

// ════════════════════════════════════════════════════════════════════
// WebSocket
// ════════════════════════════════════════════════════════════════════

func TestWebSocketReportEvents(t *testing.T) {
	srv := testServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Hub().ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp, err := http.Post(ts.URL+"/api/v1/reports?format=text", "application/json", strings.NewReader(validPayload))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	resp, err = http.Post(ts.URL+"/api/v1/reports", "application/json", strings.NewReader(`{"answer":"x"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var got []Event
	for len(got) < 2 {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read event %d: %v", len(got), err)
		}
		got = append(got, ev)
	}
	if got[0].Type != EventReportStarted || got[1].Type != EventReportCompleted {
		t.Errorf("events: got %s, %s", got[0].Type, got[1].Type)
	}
	if got[0].ID == "" || got[0].ID != got[1].ID {
		t.Errorf("events should share the request id: %q vs %q", got[0].ID, got[1].ID)
	}
	if got[1].Bytes == 0 {
		t.Error("completed event should carry the output size")
	}
}

func TestHubDropsClientsOnShutdown(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() { h.Run(ctx); close(stopped) }()

	c := &client{send: make(chan Event, 1)}
	if !h.join(c) {
		t.Fatal("join failed on a running hub")
	}
	h.Broadcast(Event{Type: EventReportStarted})
	if ev := <-c.send; ev.Type != EventReportStarted {
		t.Errorf("got %q", ev.Type)
	}

	cancel()
	<-stopped
	if _, ok := <-c.send; ok {
		t.Error("client queue should be closed")
	}
	if h.join(&client{send: make(chan Event)}) {
		t.Error("join should fail after shutdown")
	}
	if h.ClientCount() != 0 {
		t.Errorf("clients: got %d", h.ClientCount())
	}
}
