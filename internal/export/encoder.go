// AngelaMos | 2026
// encoder.go

package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat defaults to CSV.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported export format %q", raw)
}

func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv; charset=utf-8"
}

// Row is one exported record. CSV uses Fields and JSON uses Value.
type Row struct {
	Fields []string
	Value  any
}

type encoder interface {
	Encode(row Row) error
	Close() error
}

func newEncoder(format Format, w io.Writer, header []string) (encoder, error) {
	if format == FormatJSON {
		return &jsonEncoder{w: w, enc: json.NewEncoder(w)}, nil
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return nil, err
	}
	return &csvEncoder{w: cw}, nil
}

type csvEncoder struct {
	w    *csv.Writer
	rows int
}

func (e *csvEncoder) Encode(row Row) error {
	if err := e.w.Write(row.Fields); err != nil {
		return err
	}
	e.rows++
	if e.rows%500 == 0 {
		e.w.Flush()
		return e.w.Error()
	}
	return nil
}

func (e *csvEncoder) Close() error {
	e.w.Flush()
	return e.w.Error()
}

// jsonEncoder writes a single JSON array one element at a time.
type jsonEncoder struct {
	w     io.Writer
	enc   *json.Encoder
	count int
}

func (e *jsonEncoder) Encode(row Row) error {
	sep := ","
	if e.count == 0 {
		sep = "["
	}
	if _, err := io.WriteString(e.w, sep); err != nil {
		return err
	}
	e.count++
	return e.enc.Encode(row.Value)
}

func (e *jsonEncoder) Close() error {
	closing := "]\n"
	if e.count == 0 {
		closing = "[]\n"
	}
	_, err := io.WriteString(e.w, closing)
	return err
}

// sanitizeCell stops spreadsheet apps from evaluating user text as a
// formula.
func sanitizeCell(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return sanitizeCell(*s)
}
