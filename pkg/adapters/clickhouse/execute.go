package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapch/pkg/core"
	"github.com/leapstack-labs/leapch/pkg/wire"
)

// Kind selects how a statement is dispatched and how its response is read.
type Kind int

const (
	// KindRead returns rows in the batch format.
	KindRead Kind = iota
	// KindInsert is rewritten for DEFAULT VALUES and reports written rows.
	KindInsert
	// KindUpdate reports written rows of a mutation.
	KindUpdate
	// KindDelete reports result rows of a lightweight delete.
	KindDelete
	// KindMetadata is an introspection query; it returns rows in the
	// header format and a malformed body is fatal.
	KindMetadata
	// KindDDL returns nothing; the body is kept raw.
	KindDDL
)

func (k Kind) String() string {
	switch k {
	case KindRead:
		return "read"
	case KindInsert:
		return "insert"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	case KindMetadata:
		return "metadata"
	case KindDDL:
		return "ddl"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) defaultFormat() string {
	switch k {
	case KindRead:
		return wire.FormatBatch
	case KindMetadata:
		return wire.FormatRowsWithHeader
	}
	return wire.FormatNone
}

// Result is the outcome of Execute. Table is set for tabular responses,
// Raw for everything else. RowsAffected is only meaningful for insert,
// update and delete.
type Result struct {
	Table        *core.TabularResult
	Raw          string
	RowsAffected int64
	QueryID      string
}

type execOptions struct {
	format    string
	formatSet bool
	settings  map[string]string
	body      io.Reader
}

// ExecOption customizes a single Execute call.
type ExecOption func(*execOptions)

// WithFormat overrides the output format chosen by the statement kind.
// Pass wire.FormatNone to receive the raw body.
func WithFormat(format string) ExecOption {
	return func(o *execOptions) {
		o.format = format
		o.formatSet = true
	}
}

// WithSettings adds per-call settings. They override connection settings
// with the same key.
func WithSettings(settings map[string]string) ExecOption {
	return func(o *execOptions) {
		o.settings = settings
	}
}

// withData appends r after the statement in the request body. Used for
// INSERT ... FORMAT uploads.
func withData(r io.Reader) ExecOption {
	return func(o *execOptions) {
		o.body = r
	}
}

// Execute sends one statement and decodes the response according to kind.
func (a *Adapter) Execute(ctx context.Context, stmt string, kind Kind, opts ...ExecOption) (*Result, error) {
	if !a.IsConnected() {
		return nil, core.ErrNotConnected
	}

	o := execOptions{format: kind.defaultFormat()}
	for _, opt := range opts {
		opt(&o)
	}
	if kind == KindInsert {
		stmt = rewriteDefaultValues(stmt)
	}

	req := wire.EncodeRequest(stmt, o.format, a.defaults, o.settings)
	queryID := uuid.NewString()
	req.Params.Set("query_id", queryID)

	start := time.Now()
	status, header, body, err := a.post(ctx, req, o.body)
	elapsed := time.Since(start)
	a.logStatement(kind, stmt, o.format, queryID, elapsed, err)
	if err != nil {
		return nil, err
	}

	res, err := a.decode(status, body, o.format, stmt, kind)
	if err != nil {
		return nil, err
	}
	res.QueryID = queryID

	switch kind {
	case KindInsert, KindUpdate:
		res.RowsAffected = a.summaryCount(header, "written_rows")
	case KindDelete:
		res.RowsAffected = a.summaryCount(header, "result_rows")
	}

	a.warnings.drain(stmt)
	return res, nil
}

func (a *Adapter) post(ctx context.Context, req wire.Request, data io.Reader) (int, http.Header, []byte, error) {
	var body io.Reader = strings.NewReader(req.Body)
	if data != nil {
		body = io.MultiReader(strings.NewReader(req.Body+"\n"), data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.Endpoint(req.Params), body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", wire.ContentType)
	httpReq.Header.Set("User-Agent", UserAgent)
	if a.Cfg.Username != "" {
		httpReq.Header.Set("X-ClickHouse-User", a.Cfg.Username)
	}
	if a.Cfg.Password != "" {
		httpReq.Header.Set("X-ClickHouse-Key", a.Cfg.Password)
	}

	resp, err := a.Client.Do(httpReq)
	if err != nil {
		return 0, nil, nil, &core.ConnectionError{Op: "request", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, &core.ConnectionError{Op: "read response", Err: err}
	}
	return resp.StatusCode, resp.Header, raw, nil
}

// decode parses the body and converts every cell to its host value. A
// malformed tabular body is fatal for metadata queries; other kinds fall
// back to the raw body and record a warning.
func (a *Adapter) decode(status int, body []byte, format, stmt string, kind Kind) (*Result, error) {
	resp, err := a.decoder.Decode(status, body, format, stmt)
	if err != nil {
		var malformed *core.MalformedResponseError
		if kind == KindMetadata || !errors.As(err, &malformed) {
			return nil, err
		}
		a.warnings.add(Warning{Code: "malformed_response", Message: malformed.Error()})
		return &Result{Raw: resp.Raw}, nil
	}
	if resp.Result == nil {
		return &Result{Raw: resp.Raw}, nil
	}

	table := resp.Result
	for _, row := range table.Rows {
		for i, cell := range row {
			v, err := a.reg.Deserialize(cell, table.Columns[i].Descriptor)
			if err != nil {
				return nil, fmt.Errorf("failed to decode column %s: %w", table.Columns[i].Name, err)
			}
			row[i] = v
		}
	}
	return &Result{Table: table}, nil
}

func (a *Adapter) logStatement(kind Kind, stmt, format, queryID string, elapsed time.Duration, err error) {
	if kind == KindMetadata && !a.params.Debug {
		return
	}
	attrs := []any{
		slog.String("kind", kind.String()),
		slog.String("sql", stmt),
		slog.String("format", format),
		slog.String("query_id", queryID),
		slog.Duration("duration", elapsed),
	}
	if err != nil {
		a.Logger.Debug("statement failed", append(attrs, slog.String("error", err.Error()))...)
		return
	}
	a.Logger.Debug("statement executed", attrs...)
}
