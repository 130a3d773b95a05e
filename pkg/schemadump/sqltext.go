package schemadump

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	viewRe        = regexp.MustCompile(`^CREATE\s+(MATERIALIZED\s+)?VIEW`)
	asSelectRe    = regexp.MustCompile(`^CREATE .*? AS (SELECT .*)$`)
	replicationRe = regexp.MustCompile(`Replicated(\w*)\('[^']+',\s*'[^']+',?\s?([^)]*)\)`)
	indexRe       = regexp.MustCompile(`INDEX (\S+) (.+?) TYPE (.+?) GRANULARITY (\d+)`)
	functionRe    = regexp.MustCompile(`(?s)\ACREATE\s+(?:OR\s+REPLACE\s+)?FUNCTION\s+\S+\s+AS\s+`)
)

// TableOptions are the storage details captured from a CREATE statement.
type TableOptions struct {
	// Engine is everything after "ENGINE = " up to an AS SELECT clause.
	Engine string
	// As is the SELECT of a view.
	As string
}

// ParseTableOptions extracts the engine clause and view query from a
// single-line CREATE statement.
func ParseTableOptions(createSQL string) TableOptions {
	var opts TableOptions
	if i := strings.Index(createSQL, "ENGINE = "); i >= 0 {
		engine := createSQL[i+len("ENGINE = "):]
		if j := strings.Index(engine, " AS SELECT "); j >= 0 {
			engine = engine[:j]
		}
		opts.Engine = strings.TrimSpace(engine)
	}
	if m := asSelectRe.FindStringSubmatch(createSQL); m != nil {
		opts.As = m[1]
	}
	return opts
}

// StripReplication drops the ZooKeeper path and replica name from
// Replicated* engines: ReplicatedReplacingMergeTree('/p', '{replica}', ver)
// becomes ReplacingMergeTree(ver).
func StripReplication(s string) string {
	return replicationRe.ReplaceAllString(s, "${1}(${2})")
}

// IsView reports whether createSQL defines a view or materialized view.
func IsView(createSQL string) (view, materialized bool) {
	m := viewRe.FindStringSubmatch(createSQL)
	if m == nil {
		return false, false
	}
	return true, m[1] != ""
}

// Index is a data-skipping index declared in a CREATE TABLE statement.
type Index struct {
	Name        string
	Expr        string
	Type        string
	Granularity int
}

// ExtractIndexes finds every INDEX ... TYPE ... GRANULARITY n clause.
func ExtractIndexes(createSQL string) []Index {
	var out []Index
	for _, m := range indexRe.FindAllStringSubmatch(createSQL, -1) {
		g, err := strconv.Atoi(m[4])
		if err != nil {
			continue
		}
		out = append(out, Index{Name: m[1], Expr: m[2], Type: m[3], Granularity: g})
	}
	return out
}

// FunctionBody strips "CREATE [OR REPLACE] FUNCTION name AS" from a stored
// function definition.
func FunctionBody(createSQL string) string {
	return strings.TrimSpace(functionRe.ReplaceAllString(strings.TrimSpace(createSQL), ""))
}
