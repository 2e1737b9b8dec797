package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"customer-insights/internal/domain"
)

// ErrUnknownDataset is returned for names missing from the catalog.
var ErrUnknownDataset = errors.New("unknown dataset")

// Names of the two datasets the dashboard ships with.
const (
	Customers = "customers"
	Mall      = "mall"
)

// Table is a parsed tabular file. Rows keep the raw cell text.
type Table struct {
	Name    string     `json:"name"`
	Title   string     `json:"title"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Source describes one read-only dataset file.
type Source struct {
	Name  string
	Title string
	Path  string
}

// Catalog lists the datasets the dashboard can show. Files are read on every
// call; they are treated as immutable inputs.
type Catalog struct {
	sources map[string]Source
	order   []string
}

func NewCatalog(sources ...Source) *Catalog {
	c := &Catalog{sources: make(map[string]Source, len(sources))}
	for _, s := range sources {
		if _, dup := c.sources[s.Name]; !dup {
			c.order = append(c.order, s.Name)
		}
		c.sources[s.Name] = s
	}
	return c
}

// Names returns dataset names in registration order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

func (c *Catalog) Source(name string) (Source, bool) {
	s, ok := c.sources[name]
	return s, ok
}

func (c *Catalog) Load(name string) (Table, error) {
	src, ok := c.sources[name]
	if !ok {
		return Table{}, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}

	data, err := os.ReadFile(src.Path)
	if err != nil {
		return Table{}, fmt.Errorf("read dataset %s: %w", src.Name, err)
	}

	t, err := Parse(data)
	if err != nil {
		return Table{}, fmt.Errorf("dataset %s: %w", src.Name, err)
	}
	t.Name = src.Name
	t.Title = src.Title
	return t, nil
}

// Parse reads CSV data with a header row. Ragged rows are a storage error.
func Parse(data []byte) (Table, error) {
	r := csv.NewReader(bytes.NewReader(data))

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return Table{}, fmt.Errorf("%w: missing header row", domain.ErrStorageRead)
		}
		return Table{}, fmt.Errorf("%w: read header: %v", domain.ErrStorageRead, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	t := Table{Columns: header, Rows: [][]string{}}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("%w: %v", domain.ErrStorageRead, err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ColumnIndex returns the position of the named column.
func (t Table) ColumnIndex(name string) (int, error) {
	for i, c := range t.Columns {
		if c == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: column %q not found", domain.ErrStorageRead, name)
}

// Column returns the raw values of a column.
func (t Table) Column(name string) ([]string, error) {
	idx, err := t.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

// Floats parses a numeric column.
func (t Table) Floats(name string) ([]float64, error) {
	raw, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(raw))
	for i, v := range raw {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: column %q row %d: %v", domain.ErrStorageRead, name, i+1, err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: column %q row %d: %q is not a finite number", domain.ErrStorageRead, name, i+1, v)
		}
		out[i] = f
	}
	return out, nil
}

// Records returns every row keyed by column name, numbers decoded as numbers.
func (t Table) Records() []map[string]any {
	out := make([]map[string]any, len(t.Rows))
	for i, row := range t.Rows {
		rec := make(map[string]any, len(t.Columns))
		for j, col := range t.Columns {
			rec[col] = Cell(row[j])
		}
		out[i] = rec
	}
	return out
}

// Cell converts raw cell text into a number when it parses as a finite one.
func Cell(raw string) any {
	v := strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return raw
}
