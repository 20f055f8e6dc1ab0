// Package csvload imports CSV files into workshop tables via the
// PostgreSQL COPY protocol.
//
// Type coercion on optional columns is tolerant: a value that fails to
// parse becomes NULL and is counted, matching how the hosted import tool
// treats malformed non-critical fields. A malformed required column
// aborts the import with the offending row number. Referential integrity
// is not checked here; rows referencing a missing parent key are rejected
// by the database and surface as pgdb.ErrForeignKey.
package csvload

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/barnardcsc/workshopdb/pkg/pgdb"
)

// Kind is the coercion applied to a CSV field.
type Kind int

const (
	// KindText passes the field through unchanged.
	KindText Kind = iota
	// KindBigint parses a 64-bit integer.
	KindBigint
	// KindDouble parses a float.
	KindDouble
	// KindDate parses MM/DD/YYYY (falling back to YYYY-MM-DD).
	KindDate
	// KindTime parses H:MM or H:MM:SS clock times.
	KindTime
)

// ColumnSpec maps one CSV header to one table column.
type ColumnSpec struct {
	Name     string // table column
	CSV      string // CSV header
	Kind     Kind
	Required bool
}

// Mapping maps a CSV file onto a table.
type Mapping struct {
	Table   string
	Columns []ColumnSpec
}

// Report summarizes one import.
type Report struct {
	RowsCopied   int64
	NullsCoerced int
}

// Import copies all rows of r into the mapped table. The first CSV record
// must be a header containing every mapped column name.
func Import(ctx context.Context, db *pgdb.DB, m Mapping, r io.Reader) (*Report, error) {
	src, err := NewSource(m, r)
	if err != nil {
		return nil, err
	}

	columns := make([]string, len(m.Columns))
	for i, spec := range m.Columns {
		columns[i] = spec.Name
	}

	copied, err := db.Pool().CopyFrom(ctx, pgx.Identifier{m.Table}, columns, src)
	if err != nil {
		if src.err != nil {
			return nil, src.err
		}
		return nil, fmt.Errorf("copy into %s: %w", m.Table, pgdb.MapError(err))
	}

	return &Report{RowsCopied: copied, NullsCoerced: src.nulls}, nil
}

// Source adapts a CSV stream to pgx.CopyFromSource.
type Source struct {
	reader *csv.Reader
	specs  []ColumnSpec
	index  []int // CSV field position per spec
	record []string
	line   int
	nulls  int
	err    error
}

// NewSource reads the header record and resolves the column mapping.
func NewSource(m Mapping, r io.Reader) (*Source, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	position := make(map[string]int, len(header))
	for i, name := range header {
		position[strings.ToLower(strings.TrimSpace(name))] = i
	}

	index := make([]int, len(m.Columns))
	for i, spec := range m.Columns {
		pos, ok := position[strings.ToLower(spec.CSV)]
		if !ok {
			return nil, fmt.Errorf("CSV header missing column %q", spec.CSV)
		}
		index[i] = pos
	}

	return &Source{reader: reader, specs: m.Columns, index: index, line: 1}, nil
}

// Next advances to the next CSV record.
func (s *Source) Next() bool {
	record, err := s.reader.Read()
	if err == io.EOF {
		return false
	}
	if err != nil {
		s.err = fmt.Errorf("read CSV row: %w", err)
		return false
	}
	s.record = record
	s.line++
	return true
}

// Values coerces the current record into column values.
func (s *Source) Values() ([]any, error) {
	values := make([]any, len(s.specs))
	for i, spec := range s.specs {
		pos := s.index[i]
		if pos >= len(s.record) {
			if spec.Required {
				s.err = fmt.Errorf("row %d: missing required column %s", s.line, spec.CSV)
				return nil, s.err
			}
			s.nulls++
			continue
		}

		value, err := Coerce(spec.Kind, s.record[pos])
		if err != nil {
			if spec.Required {
				s.err = fmt.Errorf("row %d: column %s: %w", s.line, spec.CSV, err)
				return nil, s.err
			}
			s.nulls++
			continue
		}
		if value == nil && spec.Required {
			s.err = fmt.Errorf("row %d: required column %s is empty", s.line, spec.CSV)
			return nil, s.err
		}
		values[i] = value
	}
	return values, nil
}

// Err reports a read or coercion failure encountered mid-stream.
func (s *Source) Err() error {
	return s.err
}

// NullsCoerced reports how many malformed optional fields became NULL.
func (s *Source) NullsCoerced() int {
	return s.nulls
}

// Coerce parses one CSV field according to kind. Empty fields are NULL.
func Coerce(kind Kind, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	switch kind {
	case KindText:
		return raw, nil
	case KindBigint:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", raw)
		}
		return n, nil
	case KindDouble:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", raw)
		}
		return f, nil
	case KindDate:
		for _, layout := range []string{"01/02/2006", "2006-01-02"} {
			if d, err := time.Parse(layout, raw); err == nil {
				return d, nil
			}
		}
		return nil, fmt.Errorf("not a date: %q", raw)
	case KindTime:
		for _, layout := range []string{"15:04:05", "15:04"} {
			if t, err := time.Parse(layout, raw); err == nil {
				micros := int64(t.Hour())*3600e6 + int64(t.Minute())*60e6 + int64(t.Second())*1e6
				return pgtype.Time{Microseconds: micros, Valid: true}, nil
			}
		}
		return nil, fmt.Errorf("not a clock time: %q", raw)
	}
	return nil, fmt.Errorf("unknown coercion kind %d", kind)
}
