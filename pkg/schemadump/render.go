package schemadump

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapch/pkg/chtype"
	"github.com/leapstack-labs/leapch/pkg/core"
)

var literalEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`, "#{", `\#{`)

// quote renders s as a double-quoted DSL string.
func quote(s string) string {
	return `"` + literalEscaper.Replace(s) + `"`
}

type option struct {
	key   string
	value string
}

func formatOptions(opts []option) string {
	parts := make([]string, len(opts))
	for i, o := range opts {
		parts[i] = o.key + ": " + o.value
	}
	return strings.Join(parts, ", ")
}

// columnSpec is the declarative form of one column: t.<Type> "name"[, "native"], opts...
type columnSpec struct {
	Type string
	// Native is set for t.column declarations that carry the raw type.
	Native string
	Opts   []option
}

var decimalPrecision = map[string]int{"Decimal32": 9, "Decimal64": 18, "Decimal128": 38, "Decimal256": 76}

// specFor derives a column spec from the column's descriptor. Unsigned
// flags are only emitted in full mode.
func specFor(col core.ColumnMeta, mode Mode) (columnSpec, error) {
	d := col.Descriptor
	if d == nil {
		return columnSpec{}, &core.UnsupportedTypeError{Column: col.Name, Type: col.Type}
	}
	u := d.Unwrap()

	var spec columnSpec
	switch u.Kind() {
	case chtype.KindArray:
		spec.Type, spec.Native = "column", d.Native()
		spec.Opts = append(spec.Opts, option{"array", "true"})
	case chtype.KindMap:
		if u.ContainsArray() {
			spec.Type, spec.Native = "column", d.Native()
		} else {
			spec.Type = "map"
		}
		spec.Opts = append(spec.Opts,
			option{"key_type", quote(u.Key().Native())},
			option{"value_type", quote(u.Value().Native())},
			option{"map", "true"})
	case chtype.KindEnum:
		spec.Type, spec.Native = "column", d.Native()
	case chtype.KindInteger:
		spec.Type = "integer"
		if mode == ModeFull && d.IsUnsigned() {
			spec.Opts = append(spec.Opts, option{"unsigned", "true"})
		}
		if bits := d.IntegerBits(); bits != 0 && bits != 32 {
			spec.Opts = append(spec.Opts, option{"limit", strconv.Itoa(bits / 8)})
		}
	case chtype.KindFloat:
		if !u.IsDecimal() {
			spec.Type = "float"
			break
		}
		spec.Type = "decimal"
		if p := decimalPrecisionOf(u.Native()); p > 0 {
			spec.Opts = append(spec.Opts, option{"precision", strconv.Itoa(p)})
		}
		if s := d.Precision(); s >= 0 {
			spec.Opts = append(spec.Opts, option{"scale", strconv.Itoa(s)})
		}
	case chtype.KindDateTime:
		spec.Type = "datetime"
		if p := d.Precision(); p >= 0 {
			spec.Opts = append(spec.Opts, option{"precision", strconv.Itoa(p)})
		}
	case chtype.KindDate:
		spec.Type = "date"
	case chtype.KindBoolean:
		spec.Type = "boolean"
	case chtype.KindString:
		switch n := u.Native(); {
		case n == "String":
			spec.Type = "string"
		case strings.HasPrefix(n, "FixedString("):
			spec.Type = "string"
			spec.Opts = append(spec.Opts, option{"limit", strings.TrimSuffix(strings.TrimPrefix(n, "FixedString("), ")")})
		default:
			spec.Type, spec.Native = "column", d.Native()
		}
	default:
		return columnSpec{}, &core.UnsupportedTypeError{Column: col.Name, Type: col.Type}
	}

	if d.IsLowCardinality() {
		spec.Opts = append(spec.Opts, option{"low_cardinality", "true"})
	}
	if def, ok := defaultOption(col, u); ok {
		spec.Opts = append(spec.Opts, def)
	}
	if !col.Nullable {
		spec.Opts = append(spec.Opts, option{"null", "false"})
	}
	return spec, nil
}

// decimalPrecisionOf returns P of Decimal(P, S) or the fixed precision of
// DecimalN(S).
func decimalPrecisionOf(native string) int {
	name, args, ok := strings.Cut(native, "(")
	if !ok {
		return 0
	}
	if p, known := decimalPrecision[name]; known {
		return p
	}
	first, _, _ := strings.Cut(strings.TrimSuffix(args, ")"), ",")
	p, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil {
		return 0
	}
	return p
}

func defaultOption(col core.ColumnMeta, u *chtype.Descriptor) (option, bool) {
	switch {
	case col.Default != nil:
		switch u.Kind() {
		case chtype.KindInteger, chtype.KindFloat, chtype.KindBoolean:
			return option{"default", *col.Default}, true
		}
		return option{"default", quote(*col.Default)}, true
	case col.DefaultFunction != "":
		return option{"default", "-> { " + quote(col.DefaultFunction) + " }"}, true
	}
	return option{}, false
}

// renderColumn writes one t.<type> line.
func renderColumn(b *strings.Builder, name string, spec columnSpec) {
	fmt.Fprintf(b, "    t.%s %s", spec.Type, quote(name))
	if spec.Native != "" {
		b.WriteString(", " + quote(spec.Native))
	}
	if len(spec.Opts) > 0 {
		b.WriteString(", " + formatOptions(spec.Opts))
	}
	b.WriteByte('\n')
}

// primaryKeyOptions renders the key options of create_table and reports
// which column, if any, they already declare.
func primaryKeyOptions(pk []string, cols []core.ColumnMeta, mode Mode) ([]option, string, error) {
	switch len(pk) {
	case 0:
		return []option{{"id", "false"}}, "", nil
	case 1:
		var opts []option
		if pk[0] != "id" {
			opts = append(opts, option{"primary_key", quote(pk[0])})
		}
		for _, c := range cols {
			if c.Name != pk[0] {
				continue
			}
			spec, err := specFor(c, mode)
			if err != nil {
				return nil, "", err
			}
			id := option{"id", ":" + spec.Type}
			if spec.Native != "" {
				id.value = quote(spec.Native)
			}
			opts = append(opts, id)
			for _, o := range spec.Opts {
				if o.key != "null" {
					opts = append(opts, o)
				}
			}
			return opts, pk[0], nil
		}
		return opts, "", nil
	}
	quoted := make([]string, len(pk))
	for i, k := range pk {
		quoted[i] = quote(k)
	}
	return []option{{"primary_key", "[" + strings.Join(quoted, ", ") + "]"}}, "", nil
}
