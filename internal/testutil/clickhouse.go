package testutil

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/leapstack-labs/leapch/pkg/core"
)

// Reply is a canned HTTP response.
type Reply struct {
	Status int
	Body   string
	Header map[string]string
}

// RecordedRequest is one request received by FakeClickHouse.
type RecordedRequest struct {
	Body   string
	Params url.Values
	Header http.Header
}

type route struct {
	match string
	reply Reply
}

// FakeClickHouse is an httptest server that answers statements by
// substring match. Routes are tried in registration order. "SELECT 1" is
// answered by default so Connect succeeds.
type FakeClickHouse struct {
	*httptest.Server

	mu       sync.Mutex
	routes   []route
	requests []RecordedRequest
}

// NewFakeClickHouse starts a fake server that is closed with the test.
func NewFakeClickHouse(t testing.TB) *FakeClickHouse {
	t.Helper()
	f := &FakeClickHouse{}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

// On registers reply for every statement containing match.
func (f *FakeClickHouse) On(match string, reply Reply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes = append(f.routes, route{match: match, reply: reply})
}

// Requests returns the requests received so far.
func (f *FakeClickHouse) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

// LastRequest returns the most recent request. It panics when none was
// received.
func (f *FakeClickHouse) LastRequest() RecordedRequest {
	reqs := f.Requests()
	return reqs[len(reqs)-1]
}

// Config returns an adapter config pointing at the server.
func (f *FakeClickHouse) Config() core.AdapterConfig {
	u, _ := url.Parse(f.URL)
	host, portStr, _ := net.SplitHostPort(u.Host)
	port, _ := strconv.Atoi(portStr)
	return core.AdapterConfig{Type: "clickhouse", Host: host, Port: port}
}

func (f *FakeClickHouse) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	stmt := string(body)

	f.mu.Lock()
	f.requests = append(f.requests, RecordedRequest{Body: stmt, Params: r.URL.Query(), Header: r.Header.Clone()})
	reply, ok := f.lookup(stmt)
	f.mu.Unlock()

	if !ok {
		if strings.HasPrefix(stmt, "SELECT 1 FORMAT") {
			reply = Reply{Body: RowsWithHeader([]string{"1"}, []string{"UInt8"}, []any{1})}
		} else {
			reply = Reply{Status: http.StatusBadRequest, Body: "Code: 62. DB::Exception: no fake route for statement: " + stmt + ". (SYNTAX_ERROR)"}
		}
	}

	for k, v := range reply.Header {
		w.Header().Set(k, v)
	}
	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, reply.Body)
}

func (f *FakeClickHouse) lookup(stmt string) (Reply, bool) {
	for _, r := range f.routes {
		if strings.Contains(stmt, r.match) {
			return r.reply, true
		}
	}
	return Reply{}, false
}

// RowsWithHeader renders a JSONCompactEachRowWithNamesAndTypes body.
func RowsWithHeader(names, types []string, rows ...[]any) string {
	var b strings.Builder
	writeJSONLine(&b, names)
	writeJSONLine(&b, types)
	for _, row := range rows {
		writeJSONLine(&b, row)
	}
	return b.String()
}

// Batch renders a JSONCompact body.
func Batch(names, types []string, rows ...[]any) string {
	type meta struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}
	payload := struct {
		Meta []meta `json:"meta"`
		Data [][]any `json:"data"`
		Rows int     `json:"rows"`
	}{Data: rows, Rows: len(rows)}
	if payload.Data == nil {
		payload.Data = [][]any{}
	}
	for i := range names {
		payload.Meta = append(payload.Meta, meta{Name: names[i], Type: types[i]})
	}
	out, _ := json.Marshal(payload)
	return string(out)
}

func writeJSONLine(b *strings.Builder, v any) {
	out, _ := json.Marshal(v)
	b.Write(out)
	b.WriteByte('\n')
}
