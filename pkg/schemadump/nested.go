package schemadump

import (
	"strings"

	"github.com/leapstack-labs/leapch/pkg/chtype"
	"github.com/leapstack-labs/leapch/pkg/core"
)

// NestedGroup is one logical Nested column stored as parallel arrays named
// "<Name>.<field>".
type NestedGroup struct {
	Name    string
	Columns []core.ColumnMeta
}

// Declaration renders the group as Nested(field Type, ...), with the Array
// wrapper of each fragment removed.
func (g NestedGroup) Declaration() string {
	parts := make([]string, len(g.Columns))
	for i, c := range g.Columns {
		_, field, _ := strings.Cut(c.Name, ".")
		parts[i] = field + " " + c.Descriptor.Elem().Native()
	}
	return "Nested(" + strings.Join(parts, ", ") + ")"
}

// GroupNested splits columns into plain columns and nested groups. Groups
// keep the order in which their first fragment appears.
func GroupNested(cols []core.ColumnMeta) (flat []core.ColumnMeta, nested []NestedGroup) {
	index := make(map[string]int)
	for _, c := range cols {
		if !isNestedFragment(c) {
			flat = append(flat, c)
			continue
		}
		prefix, _, _ := strings.Cut(c.Name, ".")
		i, ok := index[prefix]
		if !ok {
			i = len(nested)
			index[prefix] = i
			nested = append(nested, NestedGroup{Name: prefix})
		}
		nested[i].Columns = append(nested[i].Columns, c)
	}
	return flat, nested
}

func isNestedFragment(c core.ColumnMeta) bool {
	return strings.Contains(c.Name, ".") && c.Descriptor != nil && c.Descriptor.Kind() == chtype.KindArray
}
