package chtype

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// MapStrategy selects how Map values cross the transport boundary.
type MapStrategy string

const (
	// MapStrategyJSON expects maps to arrive as decoded JSON objects and
	// serializes them back into objects with string keys.
	MapStrategyJSON MapStrategy = "json"

	// MapStrategyLiteral exchanges maps as ClickHouse map literals,
	// e.g. {'a': 1, 'b': 2}.
	MapStrategyLiteral MapStrategy = "literal"
)

// ParseMapStrategy validates a configured strategy name. Empty means JSON.
func ParseMapStrategy(s string) (MapStrategy, error) {
	switch MapStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", MapStrategyJSON:
		return MapStrategyJSON, nil
	case MapStrategyLiteral:
		return MapStrategyLiteral, nil
	}
	return "", fmt.Errorf("unknown map strategy %q (expected %q or %q)", s, MapStrategyJSON, MapStrategyLiteral)
}

// Registry resolves native type names to descriptors and converts values
// according to them. A Registry is safe for concurrent use.
type Registry struct {
	strategy MapStrategy

	descriptors sync.Map // native string -> *Descriptor
	group       singleflight.Group

	names NameQuoter
}

// NewRegistry creates a Registry using the given map strategy.
func NewRegistry(strategy MapStrategy) *Registry {
	if strategy == "" {
		strategy = MapStrategyJSON
	}
	return &Registry{strategy: strategy}
}

// MapStrategy returns the strategy the registry was built with.
func (r *Registry) MapStrategy() MapStrategy {
	return r.strategy
}

// Describe returns the memoized Descriptor for a native type name.
func (r *Registry) Describe(native string) (*Descriptor, error) {
	if d, ok := r.descriptors.Load(native); ok {
		return d.(*Descriptor), nil
	}
	v, err, _ := r.group.Do(native, func() (any, error) {
		if d, ok := r.descriptors.Load(native); ok {
			return d, nil
		}
		d, err := Parse(native)
		if err != nil {
			return nil, err
		}
		r.descriptors.Store(native, d)
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Descriptor), nil
}

// MustDescribe is like Describe but panics on malformed names. Use it only
// for type names that are compile-time constants.
func (r *Registry) MustDescribe(native string) *Descriptor {
	d, err := r.Describe(native)
	if err != nil {
		panic(err)
	}
	return d
}

// QuoteColumnName quotes a column name for use in statements.
func (r *Registry) QuoteColumnName(name string) string {
	return r.names.Column(name)
}

// QuoteTableName quotes a table name for use in statements.
func (r *Registry) QuoteTableName(name string) string {
	return r.names.Table(name)
}

// NameQuoter memoizes quoted identifiers. The zero value is ready to use and
// safe for concurrent use; entries are write-once per key.
type NameQuoter struct {
	columns sync.Map
}

// Column backtick-quotes names that contain a dot (flattened nested columns)
// and returns every other name unchanged.
func (q *NameQuoter) Column(name string) string {
	if v, ok := q.columns.Load(name); ok {
		return v.(string)
	}
	quoted := name
	if strings.Contains(name, ".") {
		quoted = backtick(name)
	}
	v, _ := q.columns.LoadOrStore(name, quoted)
	return v.(string)
}

// Table quotes a possibly database-qualified table name. "db.events" becomes
// `db`.`events`. Names that are already quoted pass through, so wrap a bare
// name containing a dot with QuoteIdentifier first.
func (q *NameQuoter) Table(name string) string {
	if strings.HasPrefix(name, "`") {
		return name
	}
	if db, tbl, ok := strings.Cut(name, "."); ok && db != "" && tbl != "" {
		if !strings.HasPrefix(tbl, "`") {
			tbl = backtick(tbl)
		}
		return backtick(db) + "." + tbl
	}
	return backtick(name)
}

// QuoteIdentifier backtick-quotes name as a single identifier, dots included.
func QuoteIdentifier(name string) string {
	return backtick(name)
}

func backtick(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "\\`") + "`"
}
