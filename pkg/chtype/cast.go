package chtype

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Layouts used on the wire. ClickHouse emits and accepts naive timestamps,
// which are interpreted as UTC here.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

var dateTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	DateLayout,
}

// Cast normalizes a value already in host representation. It is idempotent:
// Cast(Cast(v)) equals Cast(v).
//
// Host representations: integers are int64 (uint64 or *big.Int when out of
// range), floats are float64, Decimal(P, S) values decimal.Decimal, booleans bool, dates and datetimes time.Time in
// UTC, strings and enum labels string, arrays []any and maps map[string]any.
// A nil value is returned as nil for every descriptor.
func (r *Registry) Cast(value any, d *Descriptor) (any, error) {
	if value == nil {
		return nil, nil
	}
	switch d.kind {
	case KindNullable, KindLowCardinality:
		return r.Cast(value, d.elem)
	case KindArray:
		items, err := toSlice(value)
		if err != nil {
			return nil, castError(value, d, err)
		}
		out := make([]any, len(items))
		for i, item := range items {
			if out[i], err = r.Cast(item, d.elem); err != nil {
				return nil, err
			}
		}
		return out, nil
	case KindMap:
		if s, ok := value.(string); ok {
			parsed, err := parseLiteral(s)
			if err != nil {
				return nil, castError(value, d, err)
			}
			value = parsed
		}
		return r.castMap(value, d, r.Cast)
	}
	return castScalar(value, d)
}

// Deserialize converts a transport primitive (string, json.Number, bool,
// []any, map[string]any or nil) into a host value.
func (r *Registry) Deserialize(raw any, d *Descriptor) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch d.kind {
	case KindNullable, KindLowCardinality:
		return r.Deserialize(raw, d.elem)
	case KindArray:
		items, ok := raw.([]any)
		if !ok {
			return nil, castError(raw, d, fmt.Errorf("expected array, got %T", raw))
		}
		out := make([]any, len(items))
		for i, item := range items {
			v, err := r.Deserialize(item, d.elem)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case KindMap:
		return r.deserializeMap(raw, d)
	}
	return castScalar(raw, d)
}

// Serialize converts a host value into the primitive sent to the server.
func (r *Registry) Serialize(value any, d *Descriptor) (any, error) {
	if value == nil {
		return nil, nil
	}
	switch d.kind {
	case KindNullable, KindLowCardinality:
		return r.Serialize(value, d.elem)
	case KindArray:
		items, err := toSlice(value)
		if err != nil {
			return nil, castError(value, d, err)
		}
		out := make([]any, len(items))
		for i, item := range items {
			if out[i], err = r.Serialize(item, d.elem); err != nil {
				return nil, err
			}
		}
		return out, nil
	case KindMap:
		return r.serializeMap(value, d)
	}

	v, err := castScalar(value, d)
	if err != nil {
		return nil, err
	}
	switch d.kind {
	case KindDate:
		return v.(time.Time).Format(DateLayout), nil
	case KindDateTime:
		return formatDateTime(v.(time.Time), d.Precision()), nil
	case KindInteger:
		if b, ok := v.(*big.Int); ok {
			return b.String(), nil
		}
	case KindFloat:
		if dec, ok := v.(decimal.Decimal); ok {
			return formatDecimal(dec, d.Precision()), nil
		}
	}
	return v, nil
}

func castScalar(value any, d *Descriptor) (any, error) {
	var (
		v   any
		err error
	)
	switch d.kind {
	case KindInteger:
		v, err = toInteger(value)
	case KindFloat:
		if d.IsDecimal() {
			v, err = toDecimal(value)
		} else {
			v, err = toFloat(value)
		}
	case KindBoolean:
		v, err = toBool(value)
	case KindDate:
		var t time.Time
		t, err = toTime(value)
		if err == nil {
			v = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
	case KindDateTime:
		v, err = toTime(value)
	case KindEnum:
		v, err = toEnum(value)
	default:
		v = toString(value)
	}
	if err != nil {
		return nil, castError(value, d, err)
	}
	return v, nil
}

func castError(value any, d *Descriptor, err error) error {
	return fmt.Errorf("cannot cast %T %v to %s: %w", value, value, d.native, err)
}

func toSlice(value any) ([]any, error) {
	if items, ok := value.([]any); ok {
		return items, nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected slice, got %T", value)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func toMap(value any) (map[string]any, error) {
	if m, ok := value.(map[string]any); ok {
		return m, nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map {
		return nil, fmt.Errorf("expected map, got %T", value)
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[fmt.Sprint(iter.Key().Interface())] = iter.Value().Interface()
	}
	return out, nil
}

func normalizeBig(b *big.Int) any {
	switch {
	case b.IsInt64():
		return b.Int64()
	case b.IsUint64():
		return b.Uint64()
	}
	return b
}

func toInteger(value any) (any, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint:
		return normalizeBig(new(big.Int).SetUint64(uint64(v))), nil
	case uint64:
		return normalizeBig(new(big.Int).SetUint64(v)), nil
	case *big.Int:
		return normalizeBig(new(big.Int).Set(v)), nil
	case float32:
		return floatToInteger(float64(v))
	case float64:
		return floatToInteger(v)
	case bool:
		if v {
			return int64(1), nil
		}
		return int64(0), nil
	case json.Number:
		return parseInteger(string(v))
	case string:
		return parseInteger(v)
	case []byte:
		return parseInteger(string(v))
	}
	return nil, fmt.Errorf("unsupported integer source %T", value)
}

func floatToInteger(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Trunc(f) != f {
		return nil, fmt.Errorf("%v is not an integral value", f)
	}
	if f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f), nil
	}
	b, _ := big.NewFloat(f).Int(nil)
	return normalizeBig(b), nil
}

func parseInteger(s string) (any, error) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return normalizeBig(b), nil
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	case []byte:
		return strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
	case *big.Int:
		f, _ := new(big.Float).SetInt(v).Float64()
		return f, nil
	}
	return 0, fmt.Errorf("unsupported float source %T", value)
}

// toDecimal keeps every digit of the source. Floats are converted by their
// shortest exact representation.
func toDecimal(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case json.Number:
		return decimal.NewFromString(string(v))
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	case []byte:
		return decimal.NewFromString(strings.TrimSpace(string(v)))
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0), nil
	case uint32:
		return decimal.NewFromInt(int64(v)), nil
	case *big.Int:
		return decimal.NewFromBigInt(v, 0), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Decimal{}, fmt.Errorf("%v is not a finite decimal", v)
		}
		return decimal.NewFromFloat(v), nil
	}
	return decimal.Decimal{}, fmt.Errorf("unsupported decimal source %T", value)
}

// formatDecimal renders dec in plain notation, padded to scale when the
// column declares one.
func formatDecimal(dec decimal.Decimal, scale int) string {
	if scale >= 0 {
		return dec.StringFixed(int32(scale))
	}
	return dec.String()
}

func toBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(v))
	case json.Number:
		return strconv.ParseBool(string(v))
	case int64:
		return v != 0, nil
	case int:
		return v != 0, nil
	case float64:
		return v != 0, nil
	}
	return false, fmt.Errorf("unsupported boolean source %T", value)
}

func toTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		if v.Location() == time.Local {
			return v.UTC(), nil
		}
		return v, nil
	case *time.Time:
		if v == nil {
			return time.Time{}, fmt.Errorf("nil time")
		}
		return toTime(*v)
	case int64:
		return time.Unix(v, 0).UTC(), nil
	case int:
		return time.Unix(int64(v), 0).UTC(), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return time.Unix(i, 0).UTC(), nil
		}
		return parseTime(string(v))
	case string:
		return parseTime(v)
	case []byte:
		return parseTime(string(v))
	}
	return time.Time{}, fmt.Errorf("unsupported time source %T", value)
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}

func formatDateTime(t time.Time, precision int) string {
	t = t.UTC()
	if precision <= 0 {
		return t.Format(DateTimeLayout)
	}
	return t.Format(DateTimeLayout + "." + strings.Repeat("0", precision))
}

// toEnum keeps labels as strings and numeric codes as int64. Label
// membership is not checked.
func toEnum(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	}
	return toInteger(value)
}

func toString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case json.Number:
		return v.String()
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(value)
}
