// Package wire encodes statements for the ClickHouse HTTP interface and
// decodes its responses into core.TabularResult values.
package wire

import (
	"net/url"
	"sort"
	"strings"
)

// Output formats understood by the decoder.
const (
	// FormatRowsWithHeader is newline-delimited JSON arrays: a names line,
	// a types line, then one line per row.
	FormatRowsWithHeader = "JSONCompactEachRowWithNamesAndTypes"

	// FormatBatch is a single JSON object with "meta" and "data" arrays.
	FormatBatch = "JSONCompact"

	// FormatNone requests no FORMAT clause; the body is returned raw.
	FormatNone = ""
)

// ContentType is sent with every request.
const ContentType = "application/x-www-form-urlencoded"

// Request is an encoded statement ready to be POSTed to "/".
type Request struct {
	Body   string
	Params url.Values
}

// Query returns the encoded query string.
func (r Request) Query() string {
	return r.Params.Encode()
}

// EncodeRequest builds the body and query parameters for a statement. A
// single trailing semicolon is stripped, a FORMAT clause is appended when
// format is non-empty (on its own line after a trailing line comment), and
// settings override defaults key by key.
func EncodeRequest(stmt, format string, defaults, settings map[string]string) Request {
	body := strings.TrimRightFunc(stmt, isSpace)
	body = strings.TrimSuffix(body, ";")
	if format != FormatNone {
		sep := " "
		if endsInLineComment(body) {
			sep = "\n"
		}
		body += sep + "FORMAT " + format
	}

	params := url.Values{}
	for _, m := range []map[string]string{defaults, settings} {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			params.Set(k, m[k])
		}
	}
	return Request{Body: body, Params: params}
}

// endsInLineComment reports whether the last line of stmt carries a -- or #
// comment outside of quoted literals and identifiers.
func endsInLineComment(stmt string) bool {
	line := stmt[strings.LastIndexByte(stmt, '\n')+1:]
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '#':
			return true
		case c == '-' && i+1 < len(line) && line[i+1] == '-':
			return true
		}
	}
	return false
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
