package wire

import (
	"encoding/json"
	"testing"

	"github.com/leapstack-labs/leapch/pkg/chtype"
	"github.com/leapstack-labs/leapch/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDecoder() *Decoder {
	return NewDecoder(chtype.NewRegistry(chtype.MapStrategyJSON))
}

func TestDecode_RowsWithHeader(t *testing.T) {
	body := "[\"a\",\"b\"]\n[\"UInt32\",\"String\"]\n[1,\"x\"]\n[2,\"y\"]\n"

	resp, err := newTestDecoder().Decode(200, []byte(body), FormatRowsWithHeader, "SELECT a, b FROM t")
	require.NoError(t, err)
	require.NotNil(t, resp.Result)

	res := resp.Result
	require.Len(t, res.Columns, 2)
	assert.Equal(t, "a", res.Columns[0].Name)
	assert.Equal(t, "UInt32", res.Columns[0].Type)
	assert.Equal(t, chtype.KindInteger, res.Columns[0].Descriptor.Kind())
	assert.Equal(t, "b", res.Columns[1].Name)
	assert.Equal(t, chtype.KindString, res.Columns[1].Descriptor.Kind())

	require.Len(t, res.Rows, 2)
	assert.Equal(t, []any{json.Number("1"), "x"}, res.Rows[0])
	assert.Equal(t, []any{json.Number("2"), "y"}, res.Rows[1])
}

func TestDecode_BatchMatchesRowsWithHeader(t *testing.T) {
	batch := `{"meta":[{"name":"a","type":"UInt32"}],"data":[[1],[2]],"rows":2}`
	rows := "[\"a\"]\n[\"UInt32\"]\n[1]\n[2]\n"

	dec := newTestDecoder()
	fromBatch, err := dec.Decode(200, []byte(batch), FormatBatch, "")
	require.NoError(t, err)
	fromRows, err := dec.Decode(200, []byte(rows), FormatRowsWithHeader, "")
	require.NoError(t, err)

	assert.Equal(t, fromRows.Result.ColumnNames(), fromBatch.Result.ColumnNames())
	assert.Equal(t, fromRows.Result.Rows, fromBatch.Result.Rows)
	assert.Same(t, fromRows.Result.Columns[0].Descriptor, fromBatch.Result.Columns[0].Descriptor)
}

func TestDecode_EmptyBody(t *testing.T) {
	for _, format := range []string{FormatRowsWithHeader, FormatBatch} {
		t.Run(format, func(t *testing.T) {
			resp, err := newTestDecoder().Decode(200, nil, format, "")
			require.NoError(t, err)
			require.NotNil(t, resp.Result)
			assert.Empty(t, resp.Result.Rows)
		})
	}
}

func TestDecode_HeaderOnly(t *testing.T) {
	body := "[\"name\"]\n[\"String\"]\n"
	resp, err := newTestDecoder().Decode(200, []byte(body), FormatRowsWithHeader, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, resp.Result.ColumnNames())
	assert.Empty(t, resp.Result.Rows)
}

func TestDecode_RawFormats(t *testing.T) {
	resp, err := newTestDecoder().Decode(200, []byte("Ok.\n"), FormatNone, "CREATE TABLE t (a UInt8) ENGINE = Memory")
	require.NoError(t, err)
	assert.Nil(t, resp.Result)
	assert.Equal(t, "Ok.\n", resp.Raw)
}

func TestDecode_MalformedReturnsRaw(t *testing.T) {
	resp, err := newTestDecoder().Decode(200, []byte("42"), FormatBatch, "SELECT 42")
	require.Error(t, err)

	var malformed *core.MalformedResponseError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, FormatBatch, malformed.Format)
	require.NotNil(t, resp)
	assert.Equal(t, "42", resp.Raw)
}

func TestDecode_RowShapeMismatch(t *testing.T) {
	body := "[\"a\",\"b\"]\n[\"UInt8\",\"UInt8\"]\n[1]\n"
	_, err := newTestDecoder().Decode(200, []byte(body), FormatRowsWithHeader, "")

	var malformed *core.MalformedResponseError
	require.ErrorAs(t, err, &malformed)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		stmtErr  bool
	}{
		{
			name:   "success",
			status: 200,
			body:   "Ok.",
		},
		{
			name:    "exception marker on 200",
			status:  200,
			body:    "[1]\nCode: 241. DB::Exception: Memory limit exceeded",
			stmtErr: true,
		},
		{
			name:     "unknown database",
			status:   404,
			body:     "Code: 81. DB::Exception: Database nope does not exist. (UNKNOWN_DATABASE) (version 23.8)",
			sentinel: core.ErrDatabaseMissing,
		},
		{
			name:     "database exists",
			status:   500,
			body:     "Code: 82. DB::Exception: Database foo already exists. (DATABASE_ALREADY_EXISTS)",
			sentinel: core.ErrDatabaseAlreadyExists,
		},
		{
			name:    "generic failure",
			status:  400,
			body:    "Code: 62. DB::Exception: Syntax error. (SYNTAX_ERROR)",
			stmtErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify(tt.status, []byte(tt.body), "SELECT 1")
			switch {
			case tt.sentinel != nil:
				assert.ErrorIs(t, err, tt.sentinel)
			case tt.stmtErr:
				var stmtErr *core.StatementError
				require.ErrorAs(t, err, &stmtErr)
				assert.Equal(t, "SELECT 1", stmtErr.Statement)
				assert.Equal(t, tt.status, stmtErr.StatusCode)
				assert.Contains(t, err.Error(), "query: SELECT 1")
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestDecode_ExceptionNeverSucceeds(t *testing.T) {
	body := `{"meta":[{"name":"a","type":"UInt8"}],"data":[[1]]}` + "\nCode: 395. DB::Exception: Value passed to 'throwIf' function is non-zero"
	resp, err := newTestDecoder().Decode(200, []byte(body), FormatBatch, "SELECT throwIf(1)")
	assert.Nil(t, resp)

	var stmtErr *core.StatementError
	require.ErrorAs(t, err, &stmtErr)
	assert.Equal(t, "SELECT throwIf(1)", stmtErr.Statement)
}
