package datasource

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/seenimoa/crmreport/internal/config"
	"github.com/seenimoa/crmreport/internal/dataset"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ── readers ──

func TestReadCSV(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("\ufeffcategory,count\nTrees,5\nRoads\n"))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if got := tbl.Names(); got[0] != "category" || got[1] != "count" {
		t.Errorf("headers: got %v", got)
	}
	if tbl.Len() != 2 || !tbl.Value(1, 1).Null {
		t.Errorf("ragged record should be padded with null, got %+v", tbl.Rows)
	}
	if !tbl.IsNumeric(1) {
		t.Error("count column should be numeric")
	}
}

func TestReadCSVEmpty(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(""))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if !tbl.Empty() {
		t.Error("empty input should give an empty table")
	}
}

func TestReadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "top10.xlsx")
	f := excelize.NewFile()
	_ = f.SetSheetRow("Sheet1", "A1", &[]any{"category", "count"})
	_ = f.SetSheetRow("Sheet1", "A2", &[]any{"Trees", 12})
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	tbl, err := ReadXLSX(path, "")
	if err != nil {
		t.Fatalf("ReadXLSX: %v", err)
	}
	if tbl.Len() != 1 || tbl.Value(0, 1).Raw != "12" {
		t.Errorf("rows: got %+v", tbl.Rows)
	}
}

// ── catalog ──

func TestCatalogLookup(t *testing.T) {
	cat := DefaultCatalog()
	cases := map[string]string{
		"top10_volume_30d":  "top10.csv",
		"priority_quadrant": "priority_quadrant_data_p90.csv",
		"custom_product":    "custom_product.csv",
		"already.csv":       "already.csv",
	}
	for key, want := range cases {
		if got := cat.Lookup(key).File; got != want {
			t.Errorf("Lookup(%q): got %q, want %q", key, got, want)
		}
	}
}

func TestCatalogTitle(t *testing.T) {
	cat := DefaultCatalog()
	cases := map[string]string{
		"backlog_ranked_list": "Backlog Analysis - Urgent Unresolved Items",
		"request_mix":         "Request Mix Analysis",
		"channel_analysis":    "Channel Analysis",
		"open__cases_":        "Open Cases Analysis",
	}
	for key, want := range cases {
		if got := cat.Title(key); got != want {
			t.Errorf("Title(%q): got %q, want %q", key, got, want)
		}
	}
	var nilCat *Catalog
	if got := nilCat.Title("x"); got != "X Analysis" {
		t.Errorf("nil catalog title: got %q", got)
	}
}

func TestLoadCatalogLayersOverDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "catalog.yaml", `
products:
  top10_volume_30d:
    file: ranking.csv
  survey:
    file: survey.xlsx
    sheet: Results
    title: Resident Survey
`)
	cat, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if got := cat.Lookup("top10_volume_30d").File; got != "ranking.csv" {
		t.Errorf("override: got %q", got)
	}
	if p := cat.Lookup("survey"); p.Sheet != "Results" || cat.Title("survey") != "Resident Survey" {
		t.Errorf("added product: got %+v", p)
	}
	if cat.Lookup("time_to_close").File != "time_to_close.csv" {
		t.Error("defaults should survive")
	}
}

func TestLoadCatalogErrors(t *testing.T) {
	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
	bad := writeFile(t, t.TempDir(), "bad.yaml", "products: [unclosed")
	if _, err := LoadCatalog(bad); err == nil {
		t.Error("malformed yaml should fail")
	}
}

// ── dir source ──

func TestDirSourceSearchOrder(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	writeFile(t, second, "top10.csv", "rank,category\n1,Roads\n")
	writeFile(t, first, "top10.csv", "rank,category\n1,Trees\n")

	src := NewDirSource(DefaultCatalog(), first, second)
	tbl, err := src.Load(context.Background(), "top10_volume_30d")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := tbl.Value(0, 1).Raw; got != "Trees" {
		t.Errorf("first directory should win, got %q", got)
	}
}

func TestDirSourceNotFound(t *testing.T) {
	src := NewDirSource(DefaultCatalog(), t.TempDir())
	_, err := src.Load(context.Background(), "time_to_close")
	if !errors.Is(err, ErrProductNotFound) {
		t.Errorf("err: got %v, want ErrProductNotFound", err)
	}
}

func TestDirSourceUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "survey.json", "{}")
	cat := &Catalog{Products: map[string]Product{"survey": {File: "survey.json"}}}
	_, err := NewDirSource(cat, dir).Load(context.Background(), "survey")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err: got %v, want ErrUnsupportedFormat", err)
	}
}

// ── sqlite ──

func seedSQLite(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	stmts := []string{
		`CREATE TABLE time_to_close (category TEXT, median_days REAL, request_count INTEGER)`,
		`INSERT INTO time_to_close VALUES ('Trees', 4.5, 120), ('Roads', NULL, 80)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("%s: %v", s, err)
		}
	}
}

func TestSQLiteSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.db")
	seedSQLite(t, path)

	src, err := OpenSQLite(path, DefaultCatalog())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer src.Close()

	tbl, err := src.Load(context.Background(), "time_to_close")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tbl.Len() != 2 || tbl.Value(0, 1).Raw != "4.5" || !tbl.Value(1, 1).Null {
		t.Errorf("rows: got %+v", tbl.Rows)
	}
	if !tbl.IsNumeric(2) {
		t.Error("request_count should be numeric")
	}

	if _, err := src.Load(context.Background(), "seasonality_heatmap"); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("missing table: got %v, want ErrProductNotFound", err)
	}
}

func TestDirSourceReadsSQLiteFile(t *testing.T) {
	dir := t.TempDir()
	seedSQLite(t, filepath.Join(dir, "ttc.db"))
	cat := &Catalog{Products: map[string]Product{"time_to_close": {File: "ttc.db"}}}
	tbl, err := NewDirSource(cat, dir).Load(context.Background(), "time_to_close")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tbl.Len() != 2 {
		t.Errorf("rows: got %d, want 2", tbl.Len())
	}
}

// ── remote ──

func TestRemoteSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data/top10.csv":
			if r.Header.Get("Authorization") != "Bearer token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte("rank,category\n1,Trees\n"))
		case "/data/broken.csv":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := NewRemoteSource(srv.URL+"/data/", DefaultCatalog())
	src.Headers = map[string]string{"Authorization": "Bearer token"}
	ctx := context.Background()

	tbl, err := src.Load(ctx, "top10_volume_30d")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tbl.Value(0, 1).Raw != "Trees" {
		t.Errorf("row: got %+v", tbl.Rows[0])
	}

	if _, err := src.Load(ctx, "time_to_close"); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("404: got %v, want ErrProductNotFound", err)
	}

	var httpErr *ErrHTTP
	if _, err := src.Load(ctx, "broken"); !errors.As(err, &httpErr) || httpErr.StatusCode != 500 {
		t.Errorf("500: got %v", err)
	}
}

// ── decorators ──

type stubSource struct {
	name  string
	table *dataset.Table
	err   error
	calls atomic.Int32
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Load(context.Context, string) (*dataset.Table, error) {
	s.calls.Add(1)
	return s.table, s.err
}

func sample() *dataset.Table {
	return dataset.New([]string{"a"}, [][]string{{"1"}})
}

func TestChain(t *testing.T) {
	missing := &stubSource{name: "missing", err: ErrProductNotFound}
	found := &stubSource{name: "found", table: sample()}
	tbl, err := Chain{missing, found}.Load(context.Background(), "p")
	if err != nil || tbl == nil {
		t.Fatalf("Load: %v", err)
	}

	_, err = Chain{missing, missing}.Load(context.Background(), "p")
	if !errors.Is(err, ErrProductNotFound) {
		t.Errorf("all missing: got %v", err)
	}

	boom := errors.New("disk on fire")
	broken := &stubSource{name: "broken", err: boom}
	_, err = Chain{missing, broken}.Load(context.Background(), "p")
	if !errors.Is(err, boom) {
		t.Errorf("real failure should surface, got %v", err)
	}
	if !strings.Contains(Chain{missing, found}.Name(), "missing, found") {
		t.Errorf("Name: got %q", Chain{missing, found}.Name())
	}
}

func TestCached(t *testing.T) {
	inner := &stubSource{name: "inner", table: sample()}
	c := NewCached(inner, time.Minute)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := c.Load(ctx, "p"); err != nil {
			t.Fatalf("Load: %v", err)
		}
	}
	if got := inner.calls.Load(); got != 1 {
		t.Errorf("inner calls: got %d, want 1", got)
	}
	c.Invalidate("p")
	c.Load(ctx, "p")
	if got := inner.calls.Load(); got != 2 {
		t.Errorf("inner calls after invalidate: got %d, want 2", got)
	}
}

func TestCachedDoesNotCacheErrors(t *testing.T) {
	inner := &stubSource{name: "inner", err: ErrProductNotFound}
	c := NewCached(inner, time.Minute)
	c.Load(context.Background(), "p")
	c.Load(context.Background(), "p")
	if got := inner.calls.Load(); got != 2 {
		t.Errorf("inner calls: got %d, want 2", got)
	}
}

func TestLoadAllKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", "x\n1\n")
	writeFile(t, dir, "c.csv", "x\n3\n")
	src := NewDirSource(DefaultCatalog(), dir)

	results := LoadAll(context.Background(), src, []string{"a", "b", "c"}, 2)
	if len(results) != 3 {
		t.Fatalf("results: got %d", len(results))
	}
	if results[0].Product != "a" || results[0].Err != nil || results[2].Table.Value(0, 0).Raw != "3" {
		t.Errorf("results: got %+v", results)
	}
	if !Missing(results[1].Err) {
		t.Errorf("b: got %v, want missing", results[1].Err)
	}
}

func TestNewFromConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "top10.csv", "rank,category\n1,Trees\n")

	src, cat, err := New(config.DataConfig{Dirs: []string{dir}, CacheTTL: 60})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := src.(*Cached); !ok {
		t.Errorf("source: got %T, want *Cached", src)
	}
	if cat.Lookup("top10_volume_30d").File != "top10.csv" {
		t.Error("default catalog expected")
	}
	if _, err := src.Load(context.Background(), "top10_volume_30d"); err != nil {
		t.Errorf("Load: %v", err)
	}

	if _, _, err := New(config.DataConfig{SQLite: filepath.Join(dir, "none.db")}); err == nil {
		t.Error("missing sqlite file should fail")
	}
}

func TestDescribe(t *testing.T) {
	if got := Describe(sample()); got != "1 rows × 1 columns" {
		t.Errorf("Describe: got %q", got)
	}
	if got := Describe(nil); got != "no data" {
		t.Errorf("Describe(nil): got %q", got)
	}
}
