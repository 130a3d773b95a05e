package clickhouse

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LoadCSV loads data from a CSV file into a table. The table is created
// with String columns when it does not exist, then the file is streamed as
// CSVWithNames.
func (a *Adapter) LoadCSV(ctx context.Context, tableName string, filePath string) error {
	if !a.IsConnected() {
		return fmt.Errorf("database connection not established")
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	file, err := os.Open(absPath) //nolint:gosec // absPath is derived from user-provided filePath, which is expected
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = file.Close() }()

	headers, err := csv.NewReader(file).Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	if err := a.createStringTable(ctx, tableName, headers); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to reset file: %w", err)
	}

	stmt := fmt.Sprintf("INSERT INTO %s FORMAT CSVWithNames", a.reg.QuoteTableName(tableName))
	n, err := a.ExecInsert(ctx, stmt, withData(file))
	if err != nil {
		return fmt.Errorf("failed to load data: %w", err)
	}
	a.Logger.Debug("loaded csv", slog.String("table", tableName), slog.String("file", absPath), slog.Int64("rows", n))
	return nil
}

func (a *Adapter) createStringTable(ctx context.Context, tableName string, columns []string) error {
	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = fmt.Sprintf("`%s` String", strings.ReplaceAll(strings.TrimSpace(col), "`", "\\`"))
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s) ENGINE = MergeTree ORDER BY tuple()",
		a.reg.QuoteTableName(tableName), strings.Join(defs, ", "))
	return a.Exec(ctx, stmt)
}
