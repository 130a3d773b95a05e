package wire

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/leapstack-labs/leapch/pkg/chtype"
	"github.com/leapstack-labs/leapch/pkg/core"
)

// ExceptionMarker is present in every structured server exception.
const ExceptionMarker = "DB::Exception"

var (
	unknownDatabaseRe = regexp.MustCompile(`DB::Exception:.*\(UNKNOWN_DATABASE\)`)
	databaseExistsRe  = regexp.MustCompile(`DB::Exception:.*\(DATABASE_ALREADY_EXISTS\)`)
)

// Response is a decoded body. Exactly one of Result or Raw is meaningful:
// Result for tabular formats, Raw for FormatNone and unknown formats.
type Response struct {
	Result *core.TabularResult
	Raw    string
}

// Decoder turns response bodies into tabular results, attaching a type
// descriptor to every column.
type Decoder struct {
	reg *chtype.Registry
}

// NewDecoder creates a Decoder backed by reg.
func NewDecoder(reg *chtype.Registry) *Decoder {
	return &Decoder{reg: reg}
}

// Classify maps a status and body to the error taxonomy. It returns nil for
// a successful response.
func Classify(status int, body []byte, stmt string) error {
	if status == 200 {
		if bytes.Contains(body, []byte(ExceptionMarker)) {
			return &core.StatementError{Statement: stmt, StatusCode: status, Body: string(body)}
		}
		return nil
	}
	switch {
	case unknownDatabaseRe.Match(body):
		return fmt.Errorf("%w: %s", core.ErrDatabaseMissing, firstLine(body))
	case databaseExistsRe.Match(body):
		return fmt.Errorf("%w: %s", core.ErrDatabaseAlreadyExists, firstLine(body))
	}
	return &core.StatementError{Statement: stmt, StatusCode: status, Body: string(body)}
}

// Decode classifies the response and parses the body in the requested
// format. When a tabular body fails to parse, Decode returns the raw body in
// Response.Raw together with a *core.MalformedResponseError so the caller
// can decide whether that is fatal.
func (d *Decoder) Decode(status int, body []byte, format, stmt string) (*Response, error) {
	if err := Classify(status, body, stmt); err != nil {
		return nil, err
	}

	var (
		result *core.TabularResult
		err    error
	)
	switch format {
	case FormatRowsWithHeader:
		result, err = d.decodeRowsWithHeader(body)
	case FormatBatch:
		result, err = d.decodeBatch(body)
	default:
		return &Response{Raw: string(body)}, nil
	}
	if err != nil {
		return &Response{Raw: string(body)}, &core.MalformedResponseError{Format: format, Raw: string(body), Err: err}
	}
	return &Response{Result: result}, nil
}

func (d *Decoder) decodeRowsWithHeader(body []byte) (*core.TabularResult, error) {
	var lines [][]any
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		row, err := parseArray(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", len(lines)+1, err)
		}
		lines = append(lines, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	result := &core.TabularResult{Rows: [][]any{}}
	if len(lines) == 0 {
		return result, nil
	}
	if len(lines) < 2 {
		return nil, errors.New("missing types line")
	}

	names, types := lines[0], lines[1]
	if len(names) != len(types) {
		return nil, fmt.Errorf("%d names but %d types", len(names), len(types))
	}
	cols := make([]core.ColumnMeta, len(names))
	for i := range names {
		name, ok1 := names[i].(string)
		typ, ok2 := types[i].(string)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("header cell %d is not a string", i)
		}
		col, err := d.column(name, typ, i)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	result.Columns = cols
	result.Rows = lines[2:]
	if err := result.Validate(); err != nil {
		return nil, err
	}
	return result, nil
}

type batchPayload struct {
	Meta []struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"meta"`
	Data [][]any `json:"data"`
}

func (d *Decoder) decodeBatch(body []byte) (*core.TabularResult, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return &core.TabularResult{Rows: [][]any{}}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload batchPayload
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if payload.Meta == nil {
		return nil, errors.New("payload has no meta array")
	}

	result := &core.TabularResult{
		Columns: make([]core.ColumnMeta, len(payload.Meta)),
		Rows:    payload.Data,
	}
	if result.Rows == nil {
		result.Rows = [][]any{}
	}
	for i, m := range payload.Meta {
		col, err := d.column(m.Name, m.Type, i)
		if err != nil {
			return nil, err
		}
		result.Columns[i] = col
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}
	return result, nil
}

func (d *Decoder) column(name, typ string, pos int) (core.ColumnMeta, error) {
	desc, err := d.reg.Describe(typ)
	if err != nil {
		return core.ColumnMeta{}, fmt.Errorf("column %s: %w", name, err)
	}
	return core.ColumnMeta{
		Name:       name,
		Type:       typ,
		Descriptor: desc,
		Nullable:   desc.IsNullable(),
		Position:   pos + 1,
	}, nil
}

func parseArray(line []byte) ([]any, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var row []any
	if err := dec.Decode(&row); err != nil {
		return nil, err
	}
	return row, nil
}

func firstLine(body []byte) string {
	s := strings.TrimSpace(string(body))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
