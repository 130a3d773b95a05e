// Package schemamigration keeps the schema_migrations bookkeeping table.
//
// ClickHouse cannot delete rows cheaply, so every change appends a row:
// adding a version inserts active=1, removing it inserts active=0, and
// ReplacingMergeTree(ver) keeps the newest row per version. Reads use FINAL
// to collapse unmerged parts.
package schemamigration

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapch/pkg/chtype"
	"github.com/leapstack-labs/leapch/pkg/core"
)

// DefaultTable is the bookkeeping table name.
const DefaultTable = "schema_migrations"

// Executor runs statements. *clickhouse.Adapter implements it.
type Executor interface {
	Exec(ctx context.Context, sql string) error
	Query(ctx context.Context, sql string) (*core.TabularResult, error)
}

// Store reads and writes migration versions.
type Store struct {
	exec   Executor
	table  string
	logger *slog.Logger
}

// New creates a Store on DefaultTable.
// If logger is nil, a discard logger is used.
func New(exec Executor, logger *slog.Logger) *Store {
	return NewWithTable(exec, DefaultTable, logger)
}

// NewWithTable creates a Store on a custom table, e.g. "ops.schema_migrations".
func NewWithTable(exec Executor, table string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var names chtype.NameQuoter
	return &Store{exec: exec, table: names.Table(table), logger: logger}
}

// CreateTable creates the bookkeeping table if it does not exist.
func (s *Store) CreateTable(ctx context.Context) error {
	stmt := "CREATE TABLE IF NOT EXISTS " + s.table +
		" (version String, active Int8 DEFAULT 1, ver DateTime DEFAULT now())" +
		" ENGINE = ReplacingMergeTree(ver) ORDER BY (version)"
	if err := s.exec.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create %s: %w", s.table, err)
	}
	return nil
}

// Versions returns the active versions in ascending order.
func (s *Store) Versions(ctx context.Context) ([]string, error) {
	res, err := s.exec.Query(ctx, "SELECT version FROM "+s.table+" FINAL WHERE active = 1 ORDER BY version ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to load versions: %w", err)
	}
	cells := res.FirstColumn()
	out := make([]string, 0, len(cells))
	for _, c := range cells {
		out = append(out, fmt.Sprint(c))
	}
	return out, nil
}

// Latest returns the highest active version, or "" when none is recorded.
func (s *Store) Latest(ctx context.Context) (string, error) {
	versions, err := s.Versions(ctx)
	if err != nil {
		return "", err
	}
	if len(versions) == 0 {
		return "", nil
	}
	sort.Slice(versions, func(i, j int) bool { return compareVersions(versions[i], versions[j]) < 0 })
	return versions[len(versions)-1], nil
}

// Add records version as applied.
func (s *Store) Add(ctx context.Context, version string) error {
	return s.insert(ctx, version, 1)
}

// Remove records version as rolled back.
func (s *Store) Remove(ctx context.Context, version string) error {
	return s.insert(ctx, version, 0)
}

func (s *Store) insert(ctx context.Context, version string, active int) error {
	stmt := fmt.Sprintf("INSERT INTO %s (version, active) VALUES (%s, %d)", s.table, chtype.QuoteString(version), active)
	if err := s.exec.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to record version %s: %w", version, err)
	}
	s.logger.Debug("recorded migration version", slog.String("version", version), slog.Int("active", active))
	return nil
}

// AssumeMigratedUpTo marks version and every known earlier version as
// applied. known lists the versions of all migration files; a version that
// appears twice among those to insert is an error.
func (s *Store) AssumeMigratedUpTo(ctx context.Context, version string, known []string) error {
	migrated, err := s.Versions(ctx)
	if err != nil {
		return err
	}
	done := make(map[string]bool, len(migrated))
	for _, v := range migrated {
		done[v] = true
	}

	if !done[version] {
		if err := s.Add(ctx, version); err != nil {
			return err
		}
	}

	var inserting []string
	seen := make(map[string]bool)
	for _, v := range known {
		if done[v] || compareVersions(v, version) >= 0 {
			continue
		}
		if seen[v] {
			return fmt.Errorf("duplicate migration %s: renumber your migrations to resolve the conflict", v)
		}
		seen[v] = true
		inserting = append(inserting, v)
	}
	if len(inserting) == 0 {
		return nil
	}

	values := make([]string, len(inserting))
	for i, v := range inserting {
		values[i] = "(" + chtype.QuoteString(v) + ")"
	}
	stmt := fmt.Sprintf("INSERT INTO %s (version) SETTINGS max_partitions_per_insert_block = %d VALUES %s",
		s.table, max(100, len(inserting)), strings.Join(values, ", "))
	if err := s.exec.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to insert %d versions: %w", len(inserting), err)
	}
	s.logger.Debug("assumed migrated", slog.String("up_to", version), slog.Int("inserted", len(inserting)))
	return nil
}

// compareVersions orders numeric versions numerically and anything else
// lexically.
func compareVersions(a, b string) int {
	ai, errA := strconv.ParseUint(a, 10, 64)
	bi, errB := strconv.ParseUint(b, 10, 64)
	if errA == nil && errB == nil {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}
