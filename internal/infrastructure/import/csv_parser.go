// Package csvimport turns uploaded migration files into records and checks
// records against per-entity field schemas.
package csvimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// CSVParser reads a UTF-8 CSV file with a header row.
type CSVParser struct {
	delimiter  rune
	lazyQuotes bool
	trimSpace  bool
	headerMap  map[string]int
	headers    []string
	currentRow int
	reader     *csv.Reader
	bufReader  *bufio.Reader
}

// ParserOption configures a CSVParser
type ParserOption func(*CSVParser)

// WithDelimiter sets the field delimiter. Zero means detect from the header
// line, which is how semicolon exports from Logo and Netsis are handled.
func WithDelimiter(d rune) ParserOption {
	return func(p *CSVParser) {
		p.delimiter = d
	}
}

// WithLazyQuotes enables lazy quote handling
func WithLazyQuotes(lazy bool) ParserOption {
	return func(p *CSVParser) {
		p.lazyQuotes = lazy
	}
}

// WithTrimSpace enables trimming of leading/trailing spaces from fields
func WithTrimSpace(trim bool) ParserOption {
	return func(p *CSVParser) {
		p.trimSpace = trim
	}
}

// NewCSVParser creates a parser, stripping a UTF-8 BOM and rejecting
// content that is not UTF-8.
func NewCSVParser(r io.Reader, opts ...ParserOption) (*CSVParser, error) {
	p := &CSVParser{
		lazyQuotes: true,
		trimSpace:  true,
		headerMap:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.bufReader = bufio.NewReader(r)

	bom, err := p.bufReader.Peek(3)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(bom) >= 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		_, _ = p.bufReader.Discard(3)
	}

	head, err := p.bufReader.Peek(4096)
	if err != nil && err != io.EOF && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("failed to read file for encoding validation: %w", err)
	}
	if len(bytes.TrimSpace(head)) == 0 {
		return nil, ErrEmptyFile
	}
	if !utf8.Valid(trimPartialRune(head)) {
		return nil, ErrInvalidEncoding
	}
	if p.delimiter == 0 {
		p.delimiter = detectDelimiter(head)
	}

	p.reader = csv.NewReader(p.bufReader)
	p.reader.Comma = p.delimiter
	p.reader.LazyQuotes = p.lazyQuotes
	p.reader.TrimLeadingSpace = p.trimSpace
	p.reader.FieldsPerRecord = -1
	return p, nil
}

// trimPartialRune drops a multi-byte rune cut off by the peek window.
func trimPartialRune(b []byte) []byte {
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		if utf8.RuneStart(b[len(b)-i]) {
			if !utf8.FullRune(b[len(b)-i:]) {
				return b[:len(b)-i]
			}
			break
		}
	}
	return b
}

func detectDelimiter(head []byte) rune {
	line := head
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		line = head[:i]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t', '|'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// ParseHeader reads the header row. Column names are lowercased and inner
// spaces become underscores so "Expected Close Date" maps to
// expected_close_date.
func (p *CSVParser) ParseHeader() error {
	record, err := p.reader.Read()
	if err == io.EOF {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	p.headers = make([]string, len(record))
	for i, h := range record {
		name := NormalizeKey(h)
		if name == "" {
			return &RowError{Row: 1, Err: fmt.Errorf("column %d has an empty name", i+1)}
		}
		if _, dup := p.headerMap[name]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateHeader, name)
		}
		p.headers[i] = name
		p.headerMap[name] = i
	}
	p.currentRow = 1
	return nil
}

// Headers returns the normalized header names
func (p *CSVParser) Headers() []string {
	return p.headers
}

// HasHeader checks if a header exists
func (p *CSVParser) HasHeader(name string) bool {
	_, ok := p.headerMap[name]
	return ok
}

// Row is a parsed data row keyed by header.
type Row struct {
	LineNumber int
	Data       map[string]string
}

// IsEmpty returns true if the row has no non-empty values
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// ReadRow reads the next row. Missing trailing fields become empty strings.
func (p *CSVParser) ReadRow() (*Row, error) {
	record, err := p.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	p.currentRow++
	if err != nil {
		return nil, &RowError{Row: p.currentRow, Err: err}
	}

	row := &Row{
		LineNumber: p.currentRow,
		Data:       make(map[string]string, len(p.headers)),
	}
	for i, header := range p.headers {
		var value string
		if i < len(record) {
			value = record[i]
			if p.trimSpace {
				value = strings.TrimSpace(value)
			}
		}
		row.Data[header] = value
	}
	return row, nil
}

// ReadAllRows reads the remaining rows, skipping blank ones.
func (p *CSVParser) ReadAllRows() ([]*Row, error) {
	var rows []*Row
	for {
		row, err := p.ReadRow()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		if !row.IsEmpty() {
			rows = append(rows, row)
		}
	}
}

// ParseRecords parses a whole CSV document into migration records.
func ParseRecords(data []byte, opts ...ParserOption) ([]map[string]any, error) {
	p, err := NewCSVParser(bytes.NewReader(data), opts...)
	if err != nil {
		return nil, err
	}
	if err := p.ParseHeader(); err != nil {
		return nil, err
	}
	rows, err := p.ReadAllRows()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoDataRows
	}

	records := make([]map[string]any, len(rows))
	for i, row := range rows {
		rec := make(map[string]any, len(row.Data))
		for k, v := range row.Data {
			rec[k] = v
		}
		records[i] = rec
	}
	return records, nil
}

// SplitRecords cuts records into consecutive slices of at most size.
func SplitRecords(records []map[string]any, size int) [][]map[string]any {
	if len(records) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(records)
	}
	out := make([][]map[string]any, 0, (len(records)+size-1)/size)
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		out = append(out, records[start:end])
	}
	return out
}
