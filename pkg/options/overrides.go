// Package options holds the per-row override column of the batch table.
//
// An override string has the form "Key=value, Key=value". Keys are checked
// against a fixed registry of typed properties. Keys that are not registered
// are dropped without error so batch files written for other versions of the
// registry still load; malformed syntax and values that do not coerce to the
// registered type are rejected.
package options

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrMalformedOverrideToken = errors.New("malformed override token")
	ErrUnknownOverrideKey     = errors.New("unknown override key")
	ErrTypeCoercion           = errors.New("override value has the wrong type")
)

const (
	pairSeparator  = ","
	valueSeparator = "="
	quoteChars     = `"'`
)

// Overrides is a parsed override string. The zero value is not usable, use
// Parse or New.
type Overrides struct {
	values map[string]any
}

// New returns an empty set of overrides.
func New() *Overrides {
	return &Overrides{values: make(map[string]any)}
}

// Parse builds Overrides from s. An empty string gives empty overrides.
func Parse(s string) (*Overrides, error) {
	raw, err := split(s)
	if err != nil {
		return nil, err
	}

	o := New()
	for _, kv := range raw {
		p, ok := Lookup(kv.key)
		if !ok {
			continue
		}
		value, err := coerce(p, kv.value)
		if err != nil {
			return nil, err
		}
		o.values[p.Name] = value
	}

	return o, nil
}

type pair struct {
	key, value string
}

// split breaks s into key/value pairs. Commas inside a quoted value do not
// separate pairs. A token without "=" continues the value of the previous key
// when that key is a registered string property, which lets unquoted values
// such as event slices contain commas.
func split(s string) ([]pair, error) {
	tokens, err := tokenize(s)
	if err != nil {
		return nil, err
	}

	res := []pair{}
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		key, value, found := strings.Cut(token, valueSeparator)
		if !found || strings.ContainsAny(key, quoteChars) {
			if len(res) > 0 && isStringProperty(res[len(res)-1].key) {
				res[len(res)-1].value += pairSeparator + unquote(token)
				continue
			}

			return nil, errors.Wrapf(ErrMalformedOverrideToken, "missing %q in %q", valueSeparator, token)
		}

		key = strings.TrimSpace(key)
		value = unquote(strings.TrimSpace(value))
		if key == "" || value == "" {
			return nil, errors.Wrapf(ErrMalformedOverrideToken, "empty key or value in %q", token)
		}
		res = append(res, pair{key: key, value: value})
	}

	return res, nil
}

// tokenize splits s on commas that are not inside quotes.
func tokenize(s string) ([]string, error) {
	var (
		tokens  []string
		current strings.Builder
		inQuote rune
	)
	for _, r := range s {
		switch {
		case inQuote != 0:
			if r == inQuote {
				inQuote = 0
			}
			current.WriteRune(r)
		case strings.ContainsRune(quoteChars, r):
			inQuote = r
			current.WriteRune(r)
		case string(r) == pairSeparator:
			tokens = append(tokens, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	if inQuote != 0 {
		return nil, errors.Wrapf(ErrMalformedOverrideToken, "unterminated quote in %q", s)
	}

	return append(tokens, current.String()), nil
}

func isStringProperty(key string) bool {
	p, ok := Lookup(key)
	return ok && p.Kind == KindString
}

// unquote strips one pair of matching quotes around s.
func unquote(s string) string {
	if len(s) >= 2 && strings.ContainsRune(quoteChars, rune(s[0])) && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}

	return s
}

// quote wraps values that would not survive split unchanged.
func quote(s string) string {
	if !strings.ContainsAny(s, pairSeparator+valueSeparator+quoteChars) && strings.TrimSpace(s) == s {
		return s
	}
	if strings.Contains(s, `"`) {
		return "'" + s + "'"
	}

	return `"` + s + `"`
}

func coerce(p Property, raw string) (any, error) {
	switch p.Kind {
	case KindFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrTypeCoercion, "%s=%q is not a float", p.Name, raw)
		}

		return f, nil
	case KindString:
		return raw, nil
	default:
		return nil, errors.Wrapf(ErrTypeCoercion, "%s has unsupported kind %s", p.Name, p.Kind)
	}
}

// Options returns a copy of the parsed key/value pairs. Float properties
// hold float64 values and string properties hold string values.
func (o *Overrides) Options() map[string]any {
	res := make(map[string]any, len(o.values))
	for k, v := range o.values {
		res[k] = v
	}

	return res
}

// Len returns the number of options held.
func (o *Overrides) Len() int {
	return len(o.values)
}

// Float returns the value of a float property.
func (o *Overrides) Float(key string) (float64, bool) {
	f, ok := o.values[key].(float64)
	return f, ok
}

// Text returns the value of a string property.
func (o *Overrides) Text(key string) (string, bool) {
	s, ok := o.values[key].(string)
	return s, ok
}

// Set inserts or replaces one option. The value must match the registered
// kind; integer values are accepted for float properties.
func (o *Overrides) Set(key string, value any) error {
	p, ok := Lookup(key)
	if !ok {
		return errors.Wrap(ErrUnknownOverrideKey, key)
	}

	switch p.Kind {
	case KindFloat:
		f, ok := toFloat(value)
		if !ok {
			return errors.Wrapf(ErrTypeCoercion, "%s expects a float, got %T", key, value)
		}
		o.values[key] = f
	case KindString:
		s, ok := value.(string)
		if !ok {
			return errors.Wrapf(ErrTypeCoercion, "%s expects a string, got %T", key, value)
		}
		if strings.TrimSpace(s) == "" {
			return errors.Wrapf(ErrMalformedOverrideToken, "%s has an empty value", key)
		}
		if strings.ContainsRune(s, '"') && strings.ContainsRune(s, '\'') {
			return errors.Wrapf(ErrMalformedOverrideToken, "%s value %q mixes both quote characters", key, s)
		}
		o.values[key] = s
	}

	return nil
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// String serialises the options with keys in alphabetical order. Floats
// always carry a decimal point and string values holding separators are
// quoted, so the string parses back to the same values.
func (o *Overrides) String() string {
	keys := make([]string, 0, len(o.values))
	for k := range o.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+valueSeparator+format(o.values[k]))
	}

	return strings.Join(parts, pairSeparator+" ")
}

func format(value any) string {
	switch v := value.(type) {
	case float64:
		return formatFloat(v)
	case string:
		return quote(v)
	default:
		return ""
	}
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if math.IsInf(f, 0) || math.IsNaN(f) || strings.Contains(s, ".") {
		return s
	}

	return s + ".0"
}

// Clone returns an independent copy.
func (o *Overrides) Clone() *Overrides {
	return &Overrides{values: o.Options()}
}
