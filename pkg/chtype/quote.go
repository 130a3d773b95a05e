package chtype

import (
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var stringEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// Quote renders value as a literal that can be embedded in a statement.
// The value is cast first, so serialized primitives and host values quote
// identically.
func (r *Registry) Quote(value any, d *Descriptor) (string, error) {
	if value == nil {
		return "NULL", nil
	}
	switch d.kind {
	case KindNullable, KindLowCardinality:
		return r.Quote(value, d.elem)
	case KindArray:
		items, err := toSlice(value)
		if err != nil {
			return "", castError(value, d, err)
		}
		parts := make([]string, len(items))
		for i, item := range items {
			if parts[i], err = r.Quote(item, d.elem); err != nil {
				return "", err
			}
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case KindMap:
		return r.quoteMap(value, d)
	}

	v, err := castScalar(value, d)
	if err != nil {
		return "", err
	}
	switch x := v.(type) {
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case *big.Int:
		return x.String(), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case decimal.Decimal:
		return formatDecimal(x, d.Precision()), nil
	case bool:
		return strconv.FormatBool(x), nil
	case time.Time:
		if d.kind == KindDate {
			return QuoteString(x.Format(DateLayout)), nil
		}
		return QuoteString(formatDateTime(x, d.Precision())), nil
	case string:
		return QuoteString(x), nil
	}
	return QuoteString(toString(v)), nil
}

// QuoteString renders s as a single-quoted string literal.
func QuoteString(s string) string {
	return "'" + stringEscaper.Replace(s) + "'"
}
