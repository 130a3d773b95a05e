package schemamigration

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/leapstack-labs/leapch/internal/testutil"
	"github.com/leapstack-labs/leapch/pkg/adapters/clickhouse"
	"github.com/leapstack-labs/leapch/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	versions []string
	execs    []string
	queryErr error
	execErr  error
}

func (r *recorder) Exec(_ context.Context, sql string) error {
	r.execs = append(r.execs, sql)
	return r.execErr
}

func (r *recorder) Query(_ context.Context, _ string) (*core.TabularResult, error) {
	if r.queryErr != nil {
		return nil, r.queryErr
	}
	res := &core.TabularResult{Columns: []core.ColumnMeta{{Name: "version", Type: "String"}}}
	for _, v := range r.versions {
		res.Rows = append(res.Rows, []any{v})
	}
	return res, nil
}

func TestStore_Statements(t *testing.T) {
	rec := &recorder{}
	s := New(rec, nil)
	ctx := context.Background()

	require.NoError(t, s.CreateTable(ctx))
	require.NoError(t, s.Add(ctx, "20240101"))
	require.NoError(t, s.Remove(ctx, "20240101"))

	assert.Equal(t, []string{
		"CREATE TABLE IF NOT EXISTS `schema_migrations` (version String, active Int8 DEFAULT 1, ver DateTime DEFAULT now()) ENGINE = ReplacingMergeTree(ver) ORDER BY (version)",
		"INSERT INTO `schema_migrations` (version, active) VALUES ('20240101', 1)",
		"INSERT INTO `schema_migrations` (version, active) VALUES ('20240101', 0)",
	}, rec.execs)
}

func TestStore_QualifiedTable(t *testing.T) {
	rec := &recorder{}
	s := NewWithTable(rec, "ops.migrations", nil)
	require.NoError(t, s.Add(context.Background(), "1"))
	assert.Equal(t, "INSERT INTO `ops`.`migrations` (version, active) VALUES ('1', 1)", rec.execs[0])
}

func TestStore_Latest(t *testing.T) {
	tests := []struct {
		name     string
		versions []string
		want     string
	}{
		{"empty", nil, ""},
		{"numeric", []string{"9", "10", "2"}, "10"},
		{"lexical", []string{"a", "c", "b"}, "c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(&recorder{versions: tt.versions}, nil).Latest(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStore_AssumeMigratedUpTo(t *testing.T) {
	rec := &recorder{versions: []string{"1"}}
	s := New(rec, nil)

	err := s.AssumeMigratedUpTo(context.Background(), "4", []string{"1", "2", "3", "4", "5"})
	require.NoError(t, err)

	require.Len(t, rec.execs, 2)
	assert.Equal(t, "INSERT INTO `schema_migrations` (version, active) VALUES ('4', 1)", rec.execs[0])
	assert.Equal(t, "INSERT INTO `schema_migrations` (version) SETTINGS max_partitions_per_insert_block = 100 VALUES ('2'), ('3')", rec.execs[1])
}

func TestStore_AssumeMigratedUpTo_AlreadyRecorded(t *testing.T) {
	rec := &recorder{versions: []string{"1", "2", "3"}}
	require.NoError(t, New(rec, nil).AssumeMigratedUpTo(context.Background(), "3", []string{"1", "2", "3"}))
	assert.Empty(t, rec.execs)
}

func TestStore_AssumeMigratedUpTo_PartitionLimit(t *testing.T) {
	rec := &recorder{}
	known := make([]string, 0, 151)
	for i := 1; i <= 151; i++ {
		known = append(known, fmt.Sprintf("%03d", i))
	}
	require.NoError(t, New(rec, nil).AssumeMigratedUpTo(context.Background(), "151", known))
	require.Len(t, rec.execs, 2)
	assert.Contains(t, rec.execs[1], "max_partitions_per_insert_block = 150 ")
}

func TestStore_AssumeMigratedUpTo_Duplicate(t *testing.T) {
	rec := &recorder{}
	err := New(rec, nil).AssumeMigratedUpTo(context.Background(), "5", []string{"1", "2", "2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate migration 2")
}

func TestStore_Errors(t *testing.T) {
	boom := errors.New("boom")

	_, err := New(&recorder{queryErr: boom}, nil).Versions(context.Background())
	assert.ErrorIs(t, err, boom)

	err = New(&recorder{execErr: boom}, nil).Add(context.Background(), "1")
	assert.ErrorIs(t, err, boom)
}

func TestStore_AgainstAdapter(t *testing.T) {
	srv := testutil.NewFakeClickHouse(t)
	srv.On("FROM `schema_migrations` FINAL", testutil.Reply{
		Body: testutil.Batch([]string{"version"}, []string{"String"}, []any{"1"}, []any{"2"}),
	})
	srv.On("INSERT INTO `schema_migrations`", testutil.Reply{})

	a := clickhouse.New(testutil.NewTestLogger(t))
	require.NoError(t, a.Connect(context.Background(), srv.Config()))
	t.Cleanup(func() { _ = a.Close() })

	s := New(a, nil)
	versions, err := s.Versions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, versions)

	require.NoError(t, s.Add(context.Background(), "3"))
	assert.Equal(t, "INSERT INTO `schema_migrations` (version, active) VALUES ('3', 1)", srv.LastRequest().Body)
}
