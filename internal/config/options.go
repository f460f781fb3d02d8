package config

import (
	"strconv"
	"strings"
)

// Options is a loosely-typed option bag decoded from JSON. Reader and
// backend code pulls typed values out with the accessors below; missing
// or mistyped values fall back to the provided default.
type Options map[string]any

// Bool returns the option as a bool, accepting JSON booleans and the
// common string spellings.
func (o Options) Bool(key string, def bool) bool {
	v, ok := o[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "t", "true", "yes", "y":
			return true
		case "0", "f", "false", "no", "n":
			return false
		}
	}
	return def
}

// Int returns the option as an int. JSON numbers decode as float64, so
// both forms are accepted.
func (o Options) Int(key string, def int) int {
	v, ok := o[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	}
	return def
}

// Float returns the option as a float64.
func (o Options) Float(key string, def float64) float64 {
	v, ok := o[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f
		}
	}
	return def
}

// String returns the option as a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Rune returns the first rune of a string option. Useful for CSV
// delimiters ("," or ";").
func (o Options) Rune(key string, def rune) rune {
	s := o.String(key, "")
	for _, r := range s {
		return r
	}
	return def
}

// StringMap returns the option as a map[string]string. Non-string values
// are skipped.
func (o Options) StringMap(key string) map[string]string {
	v, ok := o[key]
	if !ok {
		return nil
	}
	raw, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, vv := range raw {
		if s, ok := vv.(string); ok {
			out[k] = s
		}
	}
	return out
}

// Any returns the raw option value, or nil.
func (o Options) Any(key string) any {
	return o[key]
}
