package chtype

import (
	"fmt"
	"sort"
	"strings"
)

// castMap converts every value of a map-like input with convert, keyed by
// the string form of the original key.
func (r *Registry) castMap(value any, d *Descriptor, convert func(any, *Descriptor) (any, error)) (map[string]any, error) {
	m, err := toMap(value)
	if err != nil {
		return nil, castError(value, d, err)
	}
	out := make(map[string]any, len(m))
	for k, item := range m {
		v, err := convert(item, d.elem)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// deserializeMap reads a map cell according to the registry strategy. The
// JSON strategy expects a decoded object; the literal strategy expects the
// server's {'k': v} text form. Cells of the other shape are rejected so the
// two strategies are never mixed.
func (r *Registry) deserializeMap(raw any, d *Descriptor) (any, error) {
	switch r.strategy {
	case MapStrategyLiteral:
		s, ok := raw.(string)
		if !ok {
			return nil, castError(raw, d, fmt.Errorf("map strategy %q expects a literal string, got %T", r.strategy, raw))
		}
		parsed, err := parseLiteral(s)
		if err != nil {
			return nil, castError(raw, d, err)
		}
		return r.castMap(parsed, d, r.Deserialize)
	default:
		if _, ok := raw.(map[string]any); !ok {
			return nil, castError(raw, d, fmt.Errorf("map strategy %q expects an object, got %T", r.strategy, raw))
		}
		return r.castMap(raw, d, r.Deserialize)
	}
}

// serializeMap produces either a string-keyed object or a map literal.
func (r *Registry) serializeMap(value any, d *Descriptor) (any, error) {
	if r.strategy == MapStrategyLiteral {
		return r.Quote(value, d)
	}
	return r.castMap(value, d, r.Serialize)
}

// quoteMap renders {key: value, ...} with keys in sorted order.
func (r *Registry) quoteMap(value any, d *Descriptor) (string, error) {
	m, err := r.Cast(value, d)
	if err != nil {
		return "", err
	}
	entries := m.(map[string]any)
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		qk, err := r.Quote(k, d.key)
		if err != nil {
			return "", err
		}
		qv, err := r.Quote(entries[k], d.elem)
		if err != nil {
			return "", err
		}
		parts = append(parts, qk+": "+qv)
	}
	return "{" + strings.Join(parts, ", ") + "}", nil
}
