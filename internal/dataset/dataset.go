// Package dataset loads, mutates and writes back the whiskey index CSV.
//
// The file is hand-curated and diffed by humans, so a Dataset keeps the raw
// bytes of every record and only re-encodes the rows it actually changed.
package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"WhiskeyIndex/internal/domain"
)

var (
	// ErrMissingColumn is returned when a required column is absent from the header.
	ErrMissingColumn = errors.New("missing required column")
	// ErrEmptyDataset is returned for a file without a header row.
	ErrEmptyDataset = errors.New("dataset has no header")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Columns names the header fields the reconciler reads.
type Columns struct {
	Name        string
	Batch       string
	Proof       string
	ReleaseYear string
	Distillery  string
	Type        string
	Identifier  string
}

// DefaultColumns matches _data/whiskeyindex.csv.
func DefaultColumns() Columns {
	return Columns{
		Name:        "Name",
		Batch:       "Batch",
		Proof:       "Proof",
		ReleaseYear: "ReleaseYear",
		Distillery:  "Distillery",
		Type:        "Type",
		Identifier:  "TTB_ID",
	}
}

type record struct {
	fields []string
	raw    []byte
	dirty  bool
}

// Dataset is an in-memory copy of the CSV file.
type Dataset struct {
	header     []string
	headerRaw  []byte
	records    []record
	bom        bool
	lineEnding string
	index      map[string]int
	cols       Columns
}

// Load reads the whole file; nothing is mutated on failure.
func Load(path string, cols Columns) (*Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	ds, err := Parse(raw, cols)
	if err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", path, err)
	}
	return ds, nil
}

// Parse decodes CSV bytes, remembering BOM, line ending and raw rows.
func Parse(raw []byte, cols Columns) (*Dataset, error) {
	ds := &Dataset{cols: cols, lineEnding: "\n"}
	if bytes.HasPrefix(raw, utf8BOM) {
		ds.bom = true
		raw = raw[len(utf8BOM):]
	}
	if i := bytes.IndexByte(raw, '\n'); i > 0 && raw[i-1] == '\r' {
		ds.lineEnding = "\r\n"
	}

	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyDataset
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	offset := r.InputOffset()
	ds.header = header
	ds.headerRaw = raw[:offset]

	ds.index = make(map[string]int, len(header))
	for i, h := range header {
		ds.index[strings.TrimSpace(h)] = i
	}
	for _, required := range []string{cols.Name, cols.Batch, cols.ReleaseYear, cols.Identifier} {
		if _, ok := ds.index[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		next := r.InputOffset()
		ds.records = append(ds.records, record{fields: fields, raw: raw[offset:next]})
		offset = next
	}

	return ds, nil
}

// Header returns the column names in file order.
func (d *Dataset) Header() []string {
	return append([]string(nil), d.header...)
}

// Len is the number of data rows.
func (d *Dataset) Len() int {
	return len(d.records)
}

// Releases returns a snapshot of every row.
func (d *Dataset) Releases() []domain.Release {
	out := make([]domain.Release, 0, len(d.records))
	for i := range d.records {
		out = append(out, d.release(i))
	}
	return out
}

func (d *Dataset) release(i int) domain.Release {
	return domain.Release{
		Name:        d.field(i, d.cols.Name),
		Batch:       d.field(i, d.cols.Batch),
		Proof:       d.field(i, d.cols.Proof),
		ReleaseYear: d.field(i, d.cols.ReleaseYear),
		Distillery:  d.field(i, d.cols.Distillery),
		Type:        d.field(i, d.cols.Type),
		Identifier:  strings.TrimSpace(d.field(i, d.cols.Identifier)),
		Line:        i + 2,
	}
}

func (d *Dataset) field(i int, column string) string {
	idx, ok := d.index[column]
	if !ok || idx >= len(d.records[i].fields) {
		return ""
	}
	return d.records[i].fields[idx]
}

func (d *Dataset) setIdentifier(i int, value string) {
	idx := d.index[d.cols.Identifier]
	rec := &d.records[i]
	for len(rec.fields) <= idx {
		rec.fields = append(rec.fields, "")
	}
	rec.fields[idx] = value
	rec.dirty = true
}

// Write encodes the dataset. Untouched rows are copied verbatim; changed
// rows are re-encoded with minimal quoting and the file's line ending.
func (d *Dataset) Write(w io.Writer) error {
	if d.bom {
		if _, err := w.Write(utf8BOM); err != nil {
			return err
		}
	}
	if _, err := w.Write(d.headerRaw); err != nil {
		return err
	}
	for _, rec := range d.records {
		if !rec.dirty {
			if _, err := w.Write(rec.raw); err != nil {
				return err
			}
			continue
		}
		terminator := d.lineEnding
		if !bytes.HasSuffix(rec.raw, []byte("\n")) {
			terminator = ""
		}
		if err := writeRecord(w, rec.fields, terminator); err != nil {
			return err
		}
	}
	return nil
}

// Save replaces the file at path in one step.
func (d *Dataset) Save(path string) error {
	var buf bytes.Buffer
	if err := d.Write(&buf); err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".whiskeyindex-*.csv")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if info, err := os.Stat(path); err == nil {
		_ = os.Chmod(tmp.Name(), info.Mode().Perm())
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace dataset: %w", err)
	}
	return nil
}

func writeRecord(w io.Writer, fields []string, terminator string) error {
	for i, field := range fields {
		if i > 0 {
			if _, err := io.WriteString(w, ","); err != nil {
				return err
			}
		}
		if strings.ContainsAny(field, ",\"\n\r") {
			field = `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
		}
		if _, err := io.WriteString(w, field); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, terminator)
	return err
}
