package datasource

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	_ "modernc.org/sqlite"

	"github.com/seenimoa/crmreport/internal/dataset"
)

// ════════════════════════════════════════════════════════════════════
// Readers
// ════════════════════════════════════════════════════════════════════

// ReadCSV reads a header row followed by records. Ragged records are
// accepted and padded with nulls.
func ReadCSV(r io.Reader) (*dataset.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return dataset.New(nil, nil), nil
	}
	headers := records[0]
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}
	return dataset.New(headers, records[1:]), nil
}

// ReadXLSX reads one sheet of a workbook, the first when sheet is empty.
// The first row is the header.
func ReadXLSX(path, sheet string) (*dataset.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return dataset.New(nil, nil), nil
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return dataset.New(nil, nil), nil
	}
	return dataset.New(rows[0], rows[1:]), nil
}

// ════════════════════════════════════════════════════════════════════
// DirSource
// ════════════════════════════════════════════════════════════════════

// DirSource finds product files in a list of directories, first match wins.
// CSV, XLSX and SQLite files are supported; a catalog entry naming a CSV
// file also matches a workbook of the same base name.
type DirSource struct {
	Dirs    []string
	Catalog *Catalog
}

// NewDirSource returns a directory source over the given catalog.
func NewDirSource(cat *Catalog, dirs ...string) *DirSource {
	return &DirSource{Dirs: dirs, Catalog: cat}
}

func (d *DirSource) Name() string { return "files " + strings.Join(d.Dirs, ":") }

// Path returns the file that would be loaded for product.
func (d *DirSource) Path(product string) (string, bool) {
	p := d.Catalog.Lookup(product)
	names := []string{p.File}
	if ext := filepath.Ext(p.File); strings.EqualFold(ext, ".csv") {
		names = append(names, strings.TrimSuffix(p.File, ext)+".xlsx")
	}
	for _, dir := range d.Dirs {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, true
			}
		}
	}
	return "", false
}

func (d *DirSource) Load(ctx context.Context, product string) (*dataset.Table, error) {
	path, ok := d.Path(product)
	if !ok {
		return nil, fmt.Errorf("%s: %w", product, ErrProductNotFound)
	}
	p := d.Catalog.Lookup(product)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		return ReadCSV(f)
	case ".xlsx", ".xlsm":
		return ReadXLSX(path, p.Sheet)
	case ".db", ".sqlite", ".sqlite3":
		src, err := OpenSQLite(path, d.Catalog)
		if err != nil {
			return nil, err
		}
		defer src.Close()
		return src.Load(ctx, product)
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
}

// ════════════════════════════════════════════════════════════════════
// SQLiteSource
// ════════════════════════════════════════════════════════════════════

// SQLiteSource reads one table per product from a SQLite database.
type SQLiteSource struct {
	db      *sql.DB
	path    string
	Catalog *Catalog
}

// OpenSQLite opens the database at path read-only.
func OpenSQLite(path string, cat *Catalog) (*SQLiteSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &SQLiteSource{db: db, path: path, Catalog: cat}, nil
}

// NewSQLiteSource wraps an open database.
func NewSQLiteSource(db *sql.DB, cat *Catalog) *SQLiteSource {
	return &SQLiteSource{db: db, path: "memory", Catalog: cat}
}

func (s *SQLiteSource) Name() string { return "sqlite " + s.path }

// Close closes the database connection.
func (s *SQLiteSource) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteSource) tableName(product string) string {
	if t := s.Catalog.Lookup(product).Table; t != "" {
		return t
	}
	return strings.TrimSuffix(product, ".csv")
}

func (s *SQLiteSource) Load(ctx context.Context, product string) (*dataset.Table, error) {
	table := s.tableName(product)

	var found string
	err := s.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type IN ('table','view') AND name = ?", table).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", product, ErrProductNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup table %s: %w", table, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT * FROM "`+strings.ReplaceAll(found, `"`, `""`)+`"`)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns %s: %w", table, err)
	}
	var records [][]string
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		rec := make([]string, len(cols))
		for i, v := range vals {
			rec[i] = sqlText(v)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows %s: %w", table, err)
	}
	return dataset.New(cols, records), nil
}

// sqlText renders a scanned SQLite value; NULL becomes the empty string,
// which the dataset treats as a null cell.
func sqlText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
