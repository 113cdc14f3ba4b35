package template

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Expr is target-language code that renders verbatim
type Expr string

// Args is an insertion-ordered keyword argument mapping
type Args struct {
	keys   []string
	values map[string]interface{}
}

// NewArgs creates an empty argument mapping
func NewArgs() *Args {
	return &Args{values: make(map[string]interface{})}
}

// Set stores a value, keeping the position of an existing key
func (a *Args) Set(key string, value interface{}) {
	if _, exists := a.values[key]; !exists {
		a.keys = append(a.keys, key)
	}
	a.values[key] = value
}

// Get returns the value stored for key
func (a *Args) Get(key string) (interface{}, bool) {
	v, ok := a.values[key]
	return v, ok
}

// Has reports whether key is present
func (a *Args) Has(key string) bool {
	_, ok := a.values[key]
	return ok
}

// Keys returns the keys in insertion order
func (a *Args) Keys() []string {
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// Len returns the number of arguments
func (a *Args) Len() int {
	return len(a.keys)
}

// Clone returns an independent copy
func (a *Args) Clone() *Args {
	c := NewArgs()
	for _, k := range a.keys {
		c.Set(k, a.values[k])
	}
	return c
}

// Keyword renders the arguments as "k={k}" pairs for a constructor call
func (a *Args) Keyword() string {
	parts := make([]string, len(a.keys))
	for i, k := range a.keys {
		parts[i] = k + "=" + Ref(k)
	}
	return strings.Join(parts, ", ")
}

// FormatValue renders a Go value as a target-language literal.
// Integer slices render as tuples, other slices as lists.
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "None"
	case Expr:
		return string(val)
	case string:
		return strconv.Quote(val)
	case bool:
		if val {
			return "True"
		}
		return "False"
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case float32:
		return formatFloat(float64(val))
	case float64:
		return formatFloat(val)
	case []int:
		parts := make([]string, len(val))
		for i, x := range val {
			parts[i] = strconv.Itoa(x)
		}
		return formatTuple(parts)
	case []float64:
		parts := make([]string, len(val))
		for i, x := range val {
			parts[i] = formatFloat(x)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case []interface{}:
		parts := make([]string, len(val))
		for i, x := range val {
			parts[i] = FormatValue(x)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("%v", val)
	}
}

func formatTuple(parts []string) string {
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "float('inf')"
	case math.IsInf(f, -1):
		return "float('-inf')"
	case math.IsNaN(f):
		return "float('nan')"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
