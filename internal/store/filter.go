package store

import (
	"fmt"
	"strconv"
	"strings"
)

// Cond is a single equality term of a filter expression.
type Cond struct {
	Field string
	Value string
}

// ParseFilter parses expressions like `mission = "abc" && user = "x"`.
// Quoted values may hold "&&" and "=". Empty input gives no conditions.
func ParseFilter(s string) ([]Cond, error) {
	var res []Cond

	rest := strings.TrimSpace(s)

	for rest != "" {
		field, value, ok := strings.Cut(rest, "=")
		if !ok {
			return nil, fmt.Errorf("invalid filter term %q", rest)
		}

		field = strings.TrimSpace(field)
		if field == "" || strings.ContainsAny(field, " \t!<>~&|\"'") {
			return nil, fmt.Errorf("invalid filter field %q", field)
		}

		raw, tail, err := splitValue(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid filter value for %s: %w", field, err)
		}

		v, err := unquote(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid filter value for %s: %w", field, err)
		}

		res = append(res, Cond{Field: field, Value: v})

		tail = strings.TrimSpace(tail)
		if tail == "" {
			break
		}

		next, found := strings.CutPrefix(tail, "&&")
		if !found || strings.TrimSpace(next) == "" {
			return nil, fmt.Errorf("invalid filter near %q", tail)
		}

		rest = strings.TrimSpace(next)
	}

	return res, nil
}

// splitValue cuts the leading value token off s, honouring quotes.
func splitValue(s string) (raw, tail string, err error) {
	if s == "" {
		return "", "", nil
	}

	if q := s[0]; q == '"' || q == '\'' {
		for i := 1; i < len(s); i++ {
			switch s[i] {
			case '\\':
				// single quoted values have no escapes
				if q == '"' {
					i++
				}
			case q:
				return s[:i+1], s[i+1:], nil
			}
		}

		return "", "", fmt.Errorf("unterminated value %s", s)
	}

	if i := strings.IndexAny(s, " \t&"); i >= 0 {
		return s[:i], s[i:], nil
	}

	return s, "", nil
}

func unquote(s string) (string, error) {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		if s[0] == '\'' {
			return s[1 : len(s)-1], nil
		}

		return strconv.Unquote(s)
	}

	if s == "" || strings.ContainsAny(s, " \t\"'") {
		return "", fmt.Errorf("bad value %q", s)
	}

	return s, nil
}

// Eq builds a conjunction of equality terms with quoted values.
func Eq(kv ...string) string {
	sb := strings.Builder{}

	for i := 0; i+1 < len(kv); i += 2 {
		if i > 0 {
			sb.WriteString(" && ")
		}

		sb.WriteString(kv[i])
		sb.WriteString(" = ")
		sb.WriteString(strconv.Quote(kv[i+1]))
	}

	return sb.String()
}

// ParseSort splits "-created" into field and direction.
func ParseSort(s string) (field string, desc bool) {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "-") {
		return s[1:], true
	}

	return strings.TrimPrefix(s, "+"), false
}
