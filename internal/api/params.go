package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
)

// MaxParamDepth bounds how deeply nested params may be. Deeper input is
// rejected by the encoders.
const MaxParamDepth = 32

// Param is a single key/value entry of Params.
type Param struct {
	Key   string
	Value any
}

// Params is an ordered parameter mapping. Order is preserved on the wire.
//
// Values may be scalars (string, bool, integer, float, fmt.Stringer, []byte),
// nested Params, map[string]any (flattened in sorted key order), or slices of
// those.
type Params []Param

// P builds Params from alternating keys and values.
// It panics if a key is not a string, since that is a programming error.
func P(kv ...any) Params {
	if len(kv)%2 != 0 {
		panic("api.P: odd number of arguments")
	}
	p := make(Params, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("api.P: key at position %d is %T, not string", i, kv[i]))
		}
		p = append(p, Param{Key: key, Value: kv[i+1]})
	}
	return p
}

// Add appends a key/value pair and returns the extended Params.
func (p Params) Add(key string, value any) Params {
	return append(p, Param{Key: key, Value: value})
}

// Set replaces the first entry with key, or appends one.
func (p Params) Set(key string, value any) Params {
	for i := range p {
		if p[i].Key == key {
			p[i].Value = value
			return p
		}
	}
	return p.Add(key, value)
}

// Get returns the value of the first entry with key.
func (p Params) Get(key string) (any, bool) {
	for _, e := range p {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// MarshalJSON encodes Params as a JSON object, keeping entry order.
// Scalar values keep their native JSON types.
func (p Params) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(e.Value)
		if err != nil {
			return nil, fmt.Errorf("encode param %q: %w", e.Key, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ParamsFromMap converts a map to Params in sorted key order. Nested maps
// are converted recursively so the result is deterministic.
func ParamsFromMap(m map[string]any) Params {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	p := make(Params, 0, len(keys))
	for _, k := range keys {
		v := m[k]
		if nested, ok := v.(map[string]any); ok {
			v = ParamsFromMap(nested)
		}
		p = append(p, Param{Key: k, Value: v})
	}
	return p
}

// pair is one flattened (key, value) entry before escaping.
type pair struct {
	key   string
	value string
}

// flatten walks params depth-first, producing bracket-notation keys:
// nested mappings become parent[child] and list elements parent[].
func flatten(p Params) ([]pair, error) {
	var out []pair
	if err := flattenInto(&out, "", p, 0); err != nil {
		return nil, err
	}
	return out, nil
}

func flattenInto(out *[]pair, parent string, p Params, depth int) error {
	if depth > MaxParamDepth {
		return fmt.Errorf("params nested deeper than %d levels", MaxParamDepth)
	}
	for _, e := range p {
		key := e.Key
		if parent != "" {
			key = parent + "[" + e.Key + "]"
		}
		if err := flattenValue(out, key, e.Value, depth); err != nil {
			return err
		}
	}
	return nil
}

func flattenValue(out *[]pair, key string, value any, depth int) error {
	switch v := value.(type) {
	case Params:
		return flattenInto(out, key, v, depth+1)
	case map[string]any:
		return flattenInto(out, key, ParamsFromMap(v), depth+1)
	case []any:
		for _, item := range v {
			if err := flattenListItem(out, key, item, depth); err != nil {
				return err
			}
		}
		return nil
	case []byte:
		*out = append(*out, pair{key: key, value: string(v)})
		return nil
	}

	rv := reflect.ValueOf(value)
	if rv.IsValid() && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) {
		for i := 0; i < rv.Len(); i++ {
			if err := flattenListItem(out, key, rv.Index(i).Interface(), depth); err != nil {
				return err
			}
		}
		return nil
	}

	*out = append(*out, pair{key: key, value: stringify(value)})
	return nil
}

func flattenListItem(out *[]pair, key string, item any, depth int) error {
	switch item.(type) {
	case Params, map[string]any:
		return flattenValue(out, key+"[]", item, depth)
	}
	*out = append(*out, pair{key: key + "[]", value: stringify(item)})
	return nil
}

// stringify renders a scalar the way it appears on the wire.
func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case int:
		return strconv.Itoa(s)
	case int8:
		return strconv.FormatInt(int64(s), 10)
	case int16:
		return strconv.FormatInt(int64(s), 10)
	case int32:
		return strconv.FormatInt(int64(s), 10)
	case int64:
		return strconv.FormatInt(s, 10)
	case uint:
		return strconv.FormatUint(uint64(s), 10)
	case uint8:
		return strconv.FormatUint(uint64(s), 10)
	case uint16:
		return strconv.FormatUint(uint64(s), 10)
	case uint32:
		return strconv.FormatUint(uint64(s), 10)
	case uint64:
		return strconv.FormatUint(s, 10)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case json.Number:
		return s.String()
	case []byte:
		return string(s)
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}
