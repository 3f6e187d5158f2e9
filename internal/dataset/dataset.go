// Package dataset holds the in-memory tabular form of a product dataset:
// named columns with an inferred numeric or text kind, and string-backed
// cells that keep their parsed number alongside the raw text.
package dataset

import (
	"sort"
	"strconv"
	"strings"
)

// Kind is the inferred type of a column.
type Kind int

const (
	Text Kind = iota
	Numeric
)

func (k Kind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "text"
}

// Column describes one column.
type Column struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Cell is one value. Null cells carry neither text nor number.
type Cell struct {
	Raw  string
	Num  float64
	Null bool
}

// Float returns the numeric value of the cell, false for nulls and text.
func (c Cell) Float() (float64, bool) {
	if c.Null {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(c.Raw), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Table is an ordered set of rows over named columns.
type Table struct {
	Columns []Column
	Rows    [][]Cell
}

var nullMarkers = map[string]bool{
	"": true, "na": true, "n/a": true, "nan": true, "null": true, "none": true, "<na>": true,
}

// IsNull reports whether raw text denotes a missing value.
func IsNull(raw string) bool {
	return nullMarkers[strings.ToLower(strings.TrimSpace(raw))]
}

// New builds a table from a header row and string records. Short records are
// padded with nulls, extra fields dropped. A column is numeric when it has at
// least one non-null value and every non-null value parses as a number.
func New(headers []string, records [][]string) *Table {
	t := &Table{Columns: make([]Column, len(headers))}
	for i, h := range headers {
		t.Columns[i] = Column{Name: strings.TrimSpace(h), Kind: Text}
	}

	t.Rows = make([][]Cell, 0, len(records))
	for _, rec := range records {
		row := make([]Cell, len(headers))
		for i := range headers {
			if i >= len(rec) || IsNull(rec[i]) {
				row[i] = Cell{Null: true}
				continue
			}
			row[i] = Cell{Raw: strings.TrimSpace(rec[i])}
		}
		t.Rows = append(t.Rows, row)
	}

	for col := range t.Columns {
		if t.inferNumeric(col) {
			t.Columns[col].Kind = Numeric
			for _, row := range t.Rows {
				if !row[col].Null {
					row[col].Num, _ = row[col].Float()
				}
			}
		}
	}
	return t
}

func (t *Table) inferNumeric(col int) bool {
	seen := false
	for _, row := range t.Rows {
		c := row[col]
		if c.Null {
			continue
		}
		if _, ok := c.Float(); !ok {
			return false
		}
		seen = true
	}
	return seen
}

// Len returns the row count.
func (t *Table) Len() int { return len(t.Rows) }

// Empty reports a table with no columns or no rows.
func (t *Table) Empty() bool { return t == nil || len(t.Columns) == 0 || len(t.Rows) == 0 }

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of the named column or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Has reports whether the named column exists.
func (t *Table) Has(name string) bool { return t.Index(name) >= 0 }

// IsNumeric reports whether column col is numeric.
func (t *Table) IsNumeric(col int) bool {
	return col >= 0 && col < len(t.Columns) && t.Columns[col].Kind == Numeric
}

// NumericColumns returns the indexes of numeric columns.
func (t *Table) NumericColumns() []int { return t.columnsOfKind(Numeric) }

// TextColumns returns the indexes of text columns.
func (t *Table) TextColumns() []int { return t.columnsOfKind(Text) }

func (t *Table) columnsOfKind(k Kind) []int {
	var out []int
	for i, c := range t.Columns {
		if c.Kind == k {
			out = append(out, i)
		}
	}
	return out
}

// Value returns the cell at row, col.
func (t *Table) Value(row, col int) Cell { return t.Rows[row][col] }

func (t *Table) withRows(rows [][]Cell) *Table {
	return &Table{Columns: append([]Column(nil), t.Columns...), Rows: rows}
}

// Head returns a table with the first n rows.
func (t *Table) Head(n int) *Table {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	if n < 0 {
		n = 0
	}
	return t.withRows(t.Rows[:n])
}

// Tail returns a table with the last n rows.
func (t *Table) Tail(n int) *Table {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	if n < 0 {
		n = 0
	}
	return t.withRows(t.Rows[len(t.Rows)-n:])
}

// Filter returns the rows for which keep is true.
func (t *Table) Filter(keep func(row []Cell) bool) *Table {
	var rows [][]Cell
	for _, r := range t.Rows {
		if keep(r) {
			rows = append(rows, r)
		}
	}
	return t.withRows(rows)
}

// SortKey orders rows by one column.
type SortKey struct {
	Col  int
	Desc bool
}

// SortBy returns a stably sorted copy. Nulls sort last in either direction;
// numeric columns compare by value, text columns lexically.
func (t *Table) SortBy(keys ...SortKey) *Table {
	rows := append([][]Cell(nil), t.Rows...)
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			if c := t.compare(rows[i][k.Col], rows[j][k.Col], k); c != 0 {
				return c < 0
			}
		}
		return false
	})
	return t.withRows(rows)
}

func (t *Table) compare(a, b Cell, k SortKey) int {
	switch {
	case a.Null && b.Null:
		return 0
	case a.Null:
		return 1
	case b.Null:
		return -1
	}

	c := 0
	if t.IsNumeric(k.Col) {
		switch {
		case a.Num < b.Num:
			c = -1
		case a.Num > b.Num:
			c = 1
		}
	} else {
		c = strings.Compare(a.Raw, b.Raw)
	}
	if k.Desc {
		c = -c
	}
	return c
}
