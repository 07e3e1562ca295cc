package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Values is a string-keyed map that remembers insertion order.
//
// Experiment documents are order sensitive: a block's block_type must be
// written before the type-specific fields that depend on it, so the document
// keeps the order in which keys were decoded or set.
type Values struct {
	keys []string
	m    map[string]any
}

// NewValues creates an empty Values
func NewValues() *Values {
	return &Values{m: make(map[string]any)}
}

// ValuesOf builds a Values from alternating key/value arguments.
// It panics on an odd argument count or a non-string key.
func ValuesOf(kv ...any) *Values {
	if len(kv)%2 != 0 {
		panic("types.ValuesOf: odd number of arguments")
	}
	v := NewValues()
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("types.ValuesOf: key %v is not a string", kv[i]))
		}
		v.Set(key, kv[i+1])
	}
	return v
}

// ValuesFromMap converts a plain map. Keys listed in order come first, the
// rest follow sorted.
func ValuesFromMap(m map[string]any, order ...string) *Values {
	v := NewValues()
	for _, k := range order {
		if val, ok := m[k]; ok {
			v.Set(k, val)
		}
	}
	rest := make([]string, 0, len(m))
	for k := range m {
		if !v.Has(k) {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		v.Set(k, m[k])
	}
	return v
}

// Set stores a value. Overwriting keeps the key's original position.
func (v *Values) Set(key string, val any) {
	if v.m == nil {
		v.m = make(map[string]any)
	}
	if _, exists := v.m[key]; !exists {
		v.keys = append(v.keys, key)
	}
	v.m[key] = val
}

// Get returns the value stored under key
func (v *Values) Get(key string) (any, bool) {
	if v == nil {
		return nil, false
	}
	val, ok := v.m[key]
	return val, ok
}

// Has reports whether key is present
func (v *Values) Has(key string) bool {
	_, ok := v.Get(key)
	return ok
}

// Delete removes key
func (v *Values) Delete(key string) {
	if v == nil {
		return
	}
	if _, ok := v.m[key]; !ok {
		return
	}
	delete(v.m, key)
	for i, k := range v.keys {
		if k == key {
			v.keys = append(v.keys[:i], v.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in order
func (v *Values) Keys() []string {
	if v == nil {
		return nil
	}
	out := make([]string, len(v.keys))
	copy(out, v.keys)
	return out
}

// Len returns the number of keys
func (v *Values) Len() int {
	if v == nil {
		return 0
	}
	return len(v.keys)
}

// Map returns a shallow, unordered copy
func (v *Values) Map() map[string]any {
	out := make(map[string]any, v.Len())
	for _, k := range v.Keys() {
		out[k] = v.m[k]
	}
	return out
}

// String returns the compact JSON form, or an error marker
func (v *Values) String() string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("<values: %v>", err)
	}
	return string(data)
}

// MarshalJSON writes keys in order
func (v *Values) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range v.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(v.m[k])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keeping document key order. Nested objects
// become *Values, arrays []any, numbers float64.
func (v *Values) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	out, err := decodeJSONObject(dec)
	if err != nil {
		return err
	}
	*v = *out
	return nil
}

func decodeJSONObject(dec *json.Decoder) (*Values, error) {
	out := NewValues()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		val, err := decodeJSONValue(dec)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		out.Set(key, val)
	}
	// closing '}'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeJSONObject(dec)
		case '[':
			list := make([]any, 0)
			for dec.More() {
				item, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				list = append(list, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return list, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %v", t)
		}
	default:
		return t, nil
	}
}

// MarshalYAML emits a mapping node in key order
func (v *Values) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range v.Keys() {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
		valNode := &yaml.Node{}
		if err := valNode.Encode(v.m[k]); err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		node.Content = append(node.Content, keyNode, valNode)
	}
	return node, nil
}

// UnmarshalYAML decodes a mapping node keeping document key order
func (v *Values) UnmarshalYAML(node *yaml.Node) error {
	decoded, err := decodeYAMLNode(node)
	if err != nil {
		return err
	}
	out, ok := decoded.(*Values)
	if !ok {
		return fmt.Errorf("expected YAML mapping, got %T", decoded)
	}
	*v = *out
	return nil
}

func decodeYAMLNode(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return NewValues(), nil
		}
		return decodeYAMLNode(node.Content[0])
	case yaml.AliasNode:
		return decodeYAMLNode(node.Alias)
	case yaml.MappingNode:
		out := NewValues()
		for i := 0; i+1 < len(node.Content); i += 2 {
			val, err := decodeYAMLNode(node.Content[i+1])
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", node.Content[i].Value, err)
			}
			out.Set(node.Content[i].Value, val)
		}
		return out, nil
	case yaml.SequenceNode:
		list := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			val, err := decodeYAMLNode(item)
			if err != nil {
				return nil, err
			}
			list = append(list, val)
		}
		return list, nil
	default:
		var scalar any
		if err := node.Decode(&scalar); err != nil {
			return nil, err
		}
		return NormalizeNumber(scalar), nil
	}
}

// NormalizeNumber widens integer kinds to float64 so documents decoded from
// different formats compare equal. Other values are returned unchanged.
func NormalizeNumber(val any) any {
	switch n := val.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	}
	return val
}
