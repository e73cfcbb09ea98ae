// Package config holds the option and limit types shared across the profiler.
package config

import "strconv"

// Options is a loosely-typed option bag used by the row source adapters.
// Values typically arrive from JSON or from CLI flag plumbing, so getters
// accept the handful of dynamic types encoding/json produces and fall back
// to the provided default on anything else.
type Options map[string]any

// String returns the string value for key, or def when missing/mismatched.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key, or def when missing/mismatched.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		switch t := v.(type) {
		case bool:
			return t
		case string:
			if b, err := strconv.ParseBool(t); err == nil {
				return b
			}
		}
	}
	return def
}

// Int returns the int value for key, or def when missing/mismatched.
// JSON numbers decode as float64; those are accepted when integral.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch t := v.(type) {
		case int:
			return t
		case int64:
			return int(t)
		case float64:
			if t == float64(int(t)) {
				return int(t)
			}
		case string:
			if n, err := strconv.Atoi(t); err == nil {
				return n
			}
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def.
// Used for CSV delimiters ("," "\t" ";").
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		switch t := v.(type) {
		case rune:
			return t
		case string:
			for _, r := range t {
				return r
			}
		}
	}
	return def
}

// StringMap returns a map value for key as map[string]string.
// JSON-decoded maps arrive as map[string]any; non-string values are dropped.
func (o Options) StringMap(key string) map[string]string {
	out := make(map[string]string)
	v, ok := o[key]
	if !ok {
		return out
	}
	switch m := v.(type) {
	case map[string]string:
		for k, s := range m {
			out[k] = s
		}
	case map[string]any:
		for k, raw := range m {
			if s, ok := raw.(string); ok {
				out[k] = s
			}
		}
	}
	return out
}

// Any returns the raw value for key, or nil.
func (o Options) Any(key string) any {
	return o[key]
}

// With returns a copy of the bag with key set to value. The receiver is
// not modified.
func (o Options) With(key string, value any) Options {
	out := make(Options, len(o)+1)
	for k, v := range o {
		out[k] = v
	}
	out[key] = value
	return out
}
