package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"

	"github.com/leapstack-labs/leapch/pkg/core"
)

// summaryHeader carries the progress counters of a finished query.
const summaryHeader = "X-ClickHouse-Summary"

var (
	defaultValuesRe = regexp.MustCompile(` (?:DEFAULT )?VALUES`)

	// readQueryRe matches statements that never mutate: the cursor and
	// session verbs plus the usual read-only statements, after optional
	// whitespace, parentheses and comments.
	readQueryRe = regexp.MustCompile(`(?is)\A(?:\s|\(|/\*.*?\*/|--[^\n]*(?:\n|\z))*` +
		`(?:begin|close|commit|declare|explain|fetch|move|release|rollback|savepoint|select|set|show|with)\b`)
)

// IsWriteQuery reports whether stmt may mutate data. Anything outside the
// read-only allowlist counts as a write.
func IsWriteQuery(stmt string) bool {
	return !readQueryRe.MatchString(stmt)
}

// rewriteDefaultValues turns the first " DEFAULT VALUES" or " VALUES" into
// " VALUES"; ClickHouse rejects the DEFAULT VALUES form.
func rewriteDefaultValues(stmt string) string {
	loc := defaultValuesRe.FindStringIndex(stmt)
	if loc == nil {
		return stmt
	}
	return stmt[:loc[0]] + " VALUES" + stmt[loc[1]:]
}

// summaryCount reads one counter from the summary header. A missing header
// yields zero; an unparsable one yields zero and a warning.
func (a *Adapter) summaryCount(h http.Header, field string) int64 {
	raw := h.Get(summaryHeader)
	if raw == "" {
		return 0
	}
	var summary map[string]any
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		a.warnings.add(Warning{Code: "summary_header", Message: fmt.Sprintf("unparsable %s header: %v", summaryHeader, err)})
		return 0
	}
	switch v := summary[field].(type) {
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return n
		}
	case float64:
		return int64(v)
	case nil:
		return 0
	}
	a.warnings.add(Warning{Code: "summary_header", Message: fmt.Sprintf("unparsable %s in %s header: %v", field, summaryHeader, summary[field])})
	return 0
}

// ExecInsert runs an INSERT and returns the number of written rows.
func (a *Adapter) ExecInsert(ctx context.Context, stmt string, opts ...ExecOption) (int64, error) {
	res, err := a.Execute(ctx, stmt, KindInsert, opts...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

// ExecUpdate runs a mutation (ALTER TABLE ... UPDATE or UPDATE ... SET)
// as given and returns the written row count when the server reports one.
func (a *Adapter) ExecUpdate(ctx context.Context, stmt string, opts ...ExecOption) (int64, error) {
	res, err := a.Execute(ctx, stmt, KindUpdate, opts...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

// ExecDelete runs a delete (DELETE FROM or ALTER TABLE ... DELETE) as given
// and returns the affected row count when the server reports one.
func (a *Adapter) ExecDelete(ctx context.Context, stmt string, opts ...ExecOption) (int64, error) {
	res, err := a.Execute(ctx, stmt, KindDelete, opts...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

// ExecSystem runs an introspection query. It is only logged when the debug
// param is set.
func (a *Adapter) ExecSystem(ctx context.Context, stmt string) (*core.TabularResult, error) {
	res, err := a.Execute(ctx, stmt, KindMetadata)
	if err != nil {
		return nil, err
	}
	return res.Table, nil
}

// CreateSavepoint is a no-op: ClickHouse has no transactions.
func (a *Adapter) CreateSavepoint(_ context.Context, name string) error {
	a.Logger.Debug("savepoint not supported, ignoring", slog.String("op", "create"), slog.String("name", name))
	return nil
}

// RollbackToSavepoint is a no-op. Nothing is rolled back.
func (a *Adapter) RollbackToSavepoint(_ context.Context, name string) error {
	a.Logger.Debug("savepoint not supported, ignoring", slog.String("op", "rollback"), slog.String("name", name))
	return nil
}

// ReleaseSavepoint is a no-op.
func (a *Adapter) ReleaseSavepoint(_ context.Context, name string) error {
	a.Logger.Debug("savepoint not supported, ignoring", slog.String("op", "release"), slog.String("name", name))
	return nil
}
