// Package param provides the read-only parameter view handed to pipeline
// factories during pipeline generation.
package param

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ErrMalformed is returned when a parameter is present but holds a value of
// the wrong type.
var ErrMalformed = errors.New("malformed parameter")

// Handler is a read-only key/value view. Getters return found=false when the
// key is absent; a present value that cannot be converted yields an error
// wrapping ErrMalformed.
type Handler interface {
	GetString(key string) (string, bool, error)
	GetBool(key string) (bool, bool, error)
	GetInt(key string) (int, bool, error)
	GetFloat(key string) (float64, bool, error)
	Keys() []string
}

// Map is a Handler over a flat map. Nested maps as produced by YAML decoding
// are flattened with "." separators.
type Map struct {
	values map[string]any
}

// NewMap copies raw into a new Map, flattening nested maps.
func NewMap(raw map[string]any) *Map {
	m := &Map{values: make(map[string]any)}
	flatten("", raw, m.values)
	return m
}

func flatten(prefix string, raw map[string]any, out map[string]any) {
	for k, v := range raw {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			flatten(key, nested, out)
			continue
		}
		out[key] = v
	}
}

// Values returns a copy of the flattened parameters.
func (m *Map) Values() map[string]any {
	out := make(map[string]any, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// Export returns the parameters of h as a flat map. Handlers other than *Map
// are read through GetString.
func Export(h Handler) map[string]any {
	if h == nil {
		return map[string]any{}
	}
	if m, ok := h.(interface{ Values() map[string]any }); ok {
		return m.Values()
	}
	out := make(map[string]any)
	for _, k := range h.Keys() {
		if v, found, err := h.GetString(k); found && err == nil {
			out[k] = v
		}
	}
	return out
}

// Keys returns all parameter names, sorted.
func (m *Map) Keys() []string {
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *Map) GetString(key string) (string, bool, error) {
	v, ok := m.values[key]
	if !ok {
		return "", false, nil
	}
	switch val := v.(type) {
	case string:
		return val, true, nil
	case fmt.Stringer:
		return val.String(), true, nil
	}
	return "", true, malformed(key, "string", v)
}

func (m *Map) GetBool(key string) (bool, bool, error) {
	v, ok := m.values[key]
	if !ok {
		return false, false, nil
	}
	switch val := v.(type) {
	case bool:
		return val, true, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err != nil {
			return false, true, malformed(key, "bool", v)
		}
		return b, true, nil
	}
	return false, true, malformed(key, "bool", v)
}

func (m *Map) GetInt(key string) (int, bool, error) {
	v, ok := m.values[key]
	if !ok {
		return 0, false, nil
	}
	switch val := v.(type) {
	case int:
		return val, true, nil
	case int64:
		return int(val), true, nil
	case float64:
		if val == math.Trunc(val) {
			return int(val), true, nil
		}
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(val))
		if err == nil {
			return i, true, nil
		}
	}
	return 0, true, malformed(key, "int", v)
}

func (m *Map) GetFloat(key string) (float64, bool, error) {
	v, ok := m.values[key]
	if !ok {
		return 0, false, nil
	}
	switch val := v.(type) {
	case float64:
		return val, true, nil
	case int:
		return float64(val), true, nil
	case int64:
		return float64(val), true, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err == nil {
			return f, true, nil
		}
	}
	return 0, true, malformed(key, "float", v)
}

func malformed(key, want string, got any) error {
	return fmt.Errorf("%w: %s must be a %s, got %T(%v)", ErrMalformed, key, want, got, got)
}

// Empty is a Handler without any parameters.
var Empty Handler = NewMap(nil)
