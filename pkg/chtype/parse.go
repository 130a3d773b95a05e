package chtype

import (
	"fmt"
	"strings"
)

// ParseError is returned for malformed type-name strings such as
// "Array(UInt8" or "Map(String)". It indicates a schema or programming error.
type ParseError struct {
	Native string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed type %q: %s", e.Native, e.Reason)
}

// wrappers are matched in precedence order. Each takes exactly one argument
// except Map, which takes two.
var wrappers = []struct {
	prefix string
	kind   Kind
}{
	{"Map(", KindMap},
	{"Array(", KindArray},
	{"LowCardinality(", KindLowCardinality},
	{"Nullable(", KindNullable},
}

// Parse converts a native type-name string into a Descriptor without caching.
// Unknown type names classify as strings; only unbalanced or structurally
// invalid names fail.
func Parse(native string) (*Descriptor, error) {
	name := strings.TrimSpace(native)
	if name == "" {
		return nil, &ParseError{Native: native, Reason: "empty type name"}
	}
	if err := checkBalanced(name); err != nil {
		return nil, &ParseError{Native: native, Reason: err.Error()}
	}

	switch {
	case strings.HasPrefix(name, "Enum8("):
		return &Descriptor{kind: KindEnum, native: name, width: 8}, nil
	case strings.HasPrefix(name, "Enum16("):
		return &Descriptor{kind: KindEnum, native: name, width: 16}, nil
	}

	for _, w := range wrappers {
		if !strings.HasPrefix(name, w.prefix) {
			continue
		}
		if !strings.HasSuffix(name, ")") {
			return nil, &ParseError{Native: native, Reason: "trailing characters after closing parenthesis"}
		}
		body := name[len(w.prefix) : len(name)-1]
		if w.kind == KindMap {
			return parseMap(native, name, body)
		}
		inner, err := Parse(body)
		if err != nil {
			return nil, err
		}
		return &Descriptor{kind: w.kind, native: name, elem: inner}, nil
	}

	return &Descriptor{kind: classifyScalar(name), native: name}, nil
}

func parseMap(native, name, body string) (*Descriptor, error) {
	idx := topLevelComma(body)
	if idx < 0 {
		return nil, &ParseError{Native: native, Reason: "map requires key and value types"}
	}
	key, err := Parse(body[:idx])
	if err != nil {
		return nil, err
	}
	value, err := Parse(body[idx+1:])
	if err != nil {
		return nil, err
	}
	return &Descriptor{kind: KindMap, native: name, key: key, elem: value}, nil
}

// classifyScalar maps a non-parametric type name to a scalar kind by prefix.
func classifyScalar(name string) Kind {
	switch {
	case isIntegerName(name):
		return KindInteger
	case strings.HasPrefix(name, "DateTime"):
		return KindDateTime
	case strings.HasPrefix(name, "Date"):
		return KindDate
	case strings.HasPrefix(name, "Float"), strings.HasPrefix(name, "Decimal"):
		return KindFloat
	case name == "Bool" || name == "Boolean":
		return KindBoolean
	}
	return KindString
}

// isIntegerName matches Int<N> and UInt<N>, so IntervalSecond stays a string.
func isIntegerName(name string) bool {
	rest := strings.TrimPrefix(name, "U")
	if !strings.HasPrefix(rest, "Int") {
		return false
	}
	rest = rest[len("Int"):]
	return rest != "" && rest[0] >= '0' && rest[0] <= '9'
}

// checkBalanced verifies parentheses outside of single-quoted literals.
func checkBalanced(s string) error {
	depth := 0
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote && c == '\\':
			i++
		case c == '\'':
			inQuote = !inQuote
		case inQuote:
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("unexpected ')' at offset %d", i)
			}
		}
	}
	if inQuote {
		return fmt.Errorf("unterminated quoted literal")
	}
	if depth != 0 {
		return fmt.Errorf("unbalanced parentheses")
	}
	return nil
}

// topLevelComma returns the index of the first comma at nesting depth zero,
// ignoring commas inside quotes, or -1.
func topLevelComma(s string) int {
	depth := 0
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote && c == '\\':
			i++
		case c == '\'':
			inQuote = !inQuote
		case inQuote:
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			return i
		}
	}
	return -1
}

// splitTopLevel splits s on every top-level comma.
func splitTopLevel(s string) []string {
	var parts []string
	for {
		idx := topLevelComma(s)
		if idx < 0 {
			return append(parts, strings.TrimSpace(s))
		}
		parts = append(parts, strings.TrimSpace(s[:idx]))
		s = s[idx+1:]
	}
}
