// Package chtype models ClickHouse column types.
//
// A native type-name string such as "Nullable(Array(UInt32))" is parsed once
// into an immutable Descriptor. Everything downstream of the Registry works on
// descriptors and never re-inspects the raw string.
package chtype

import (
	"strconv"
	"strings"
)

// Kind identifies the variant of a Descriptor.
type Kind int

// Descriptor kinds. Scalar kinds come first, wrappers and containers last.
const (
	KindString Kind = iota
	KindInteger
	KindFloat
	KindBoolean
	KindDate
	KindDateTime
	KindEnum // width only; labels are not captured and values pass through as strings
	KindArray
	KindMap
	KindLowCardinality
	KindNullable
)

var kindNames = map[Kind]string{
	KindString:         "string",
	KindInteger:        "integer",
	KindFloat:          "float",
	KindBoolean:        "boolean",
	KindDate:           "date",
	KindDateTime:       "datetime",
	KindEnum:           "enum",
	KindArray:          "array",
	KindMap:            "map",
	KindLowCardinality: "low_cardinality",
	KindNullable:       "nullable",
}

// String returns the lowercase kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// IsScalar reports whether the kind carries no nested descriptor.
func (k Kind) IsScalar() bool {
	return k <= KindEnum
}

// Descriptor is an immutable description of one native column type.
// Descriptors are shared between columns; never mutate one after Parse.
type Descriptor struct {
	kind   Kind
	native string
	width  int // enum bit width, 8 or 16
	elem   *Descriptor
	key    *Descriptor
}

// Kind returns the descriptor variant.
func (d *Descriptor) Kind() Kind { return d.kind }

// Native returns the type-name string the descriptor was parsed from.
func (d *Descriptor) Native() string { return d.native }

// String implements fmt.Stringer.
func (d *Descriptor) String() string { return d.native }

// Width returns the enum bit width (8 or 16), or 0 for non-enum kinds.
func (d *Descriptor) Width() int { return d.width }

// Elem returns the element descriptor of an Array.
func (d *Descriptor) Elem() *Descriptor {
	if d.kind == KindArray {
		return d.elem
	}
	return nil
}

// Key returns the key descriptor of a Map.
func (d *Descriptor) Key() *Descriptor { return d.key }

// Value returns the value descriptor of a Map.
func (d *Descriptor) Value() *Descriptor {
	if d.kind == KindMap {
		return d.elem
	}
	return nil
}

// Inner returns the wrapped descriptor of a Nullable or LowCardinality.
func (d *Descriptor) Inner() *Descriptor {
	if d.kind == KindNullable || d.kind == KindLowCardinality {
		return d.elem
	}
	return nil
}

// Unwrap strips every Nullable and LowCardinality wrapper.
func (d *Descriptor) Unwrap() *Descriptor {
	cur := d
	for cur.kind == KindNullable || cur.kind == KindLowCardinality {
		cur = cur.elem
	}
	return cur
}

// IsNullable reports whether a Nullable wrapper appears before the first
// container, so LowCardinality(Nullable(String)) counts as nullable.
func (d *Descriptor) IsNullable() bool {
	for cur := d; ; cur = cur.elem {
		switch cur.kind {
		case KindNullable:
			return true
		case KindLowCardinality:
			continue
		default:
			return false
		}
	}
}

// IsLowCardinality reports whether a LowCardinality wrapper is present at the top level.
func (d *Descriptor) IsLowCardinality() bool {
	for cur := d; ; cur = cur.elem {
		switch cur.kind {
		case KindLowCardinality:
			return true
		case KindNullable:
			continue
		default:
			return false
		}
	}
}

// IsUnsigned reports whether the unwrapped type is an unsigned integer.
func (d *Descriptor) IsUnsigned() bool {
	u := d.Unwrap()
	return u.kind == KindInteger && strings.HasPrefix(u.native, "UInt")
}

// IsDecimal reports whether the unwrapped type is a Decimal variant. Decimals
// classify as floats but keep exact values.
func (d *Descriptor) IsDecimal() bool {
	u := d.Unwrap()
	return u.kind == KindFloat && strings.HasPrefix(u.native, "Decimal")
}

// IntegerBits returns the declared bit size of an integer type (Int32 -> 32),
// or 0 when the unwrapped type is not an integer.
func (d *Descriptor) IntegerBits() int {
	u := d.Unwrap()
	if u.kind != KindInteger {
		return 0
	}
	digits := strings.TrimPrefix(strings.TrimPrefix(u.native, "U"), "Int")
	bits, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return bits
}

// Precision returns the sub-second precision of DateTime64(p, ...) or the
// scale of Decimal(p, s). It returns -1 when no precision is declared.
func (d *Descriptor) Precision() int {
	u := d.Unwrap()
	args, ok := typeArgs(u.native)
	if !ok || len(args) == 0 {
		return -1
	}
	switch {
	case strings.HasPrefix(u.native, "DateTime64"):
		p, err := strconv.Atoi(strings.TrimSpace(args[0]))
		if err != nil {
			return -1
		}
		return p
	case strings.HasPrefix(u.native, "Decimal") && len(args) == 2:
		s, err := strconv.Atoi(strings.TrimSpace(args[1]))
		if err != nil {
			return -1
		}
		return s
	case strings.HasPrefix(u.native, "Decimal") && len(args) == 1:
		s, err := strconv.Atoi(strings.TrimSpace(args[0]))
		if err != nil {
			return -1
		}
		return s
	}
	return -1
}

// ContainsArray reports whether an Array appears anywhere inside the type.
func (d *Descriptor) ContainsArray() bool {
	switch d.kind {
	case KindArray:
		return true
	case KindMap:
		return d.key.ContainsArray() || d.elem.ContainsArray()
	case KindNullable, KindLowCardinality:
		return d.elem.ContainsArray()
	}
	return false
}

// typeArgs returns the top-level comma separated arguments of "Name(a, b)".
func typeArgs(native string) ([]string, bool) {
	open := strings.IndexByte(native, '(')
	if open < 0 || !strings.HasSuffix(native, ")") {
		return nil, false
	}
	return splitTopLevel(native[open+1 : len(native)-1]), true
}
