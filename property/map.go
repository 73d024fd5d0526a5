// Package property provides the ordered key/value map shared by stream tags
// and construction-time block settings.
package property

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pair is a single key/value entry.
type Pair struct {
	Key   string
	Value any
}

// Map is an insertion-ordered key/value map. The zero value is an empty map
// ready to use. Setting an existing key keeps its original position.
type Map struct {
	keys   []string
	values map[string]any
}

// New builds a Map from pairs in order. Later duplicates overwrite earlier values.
func New(pairs ...Pair) Map {
	var m Map
	for _, p := range pairs {
		m.Set(p.Key, p.Value)
	}
	return m
}

// FromGoMap builds a Map from a Go map with keys sorted lexicographically,
// since Go maps carry no order.
func FromGoMap(src map[string]any) Map {
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var m Map
	for _, k := range keys {
		m.Set(k, src[k])
	}
	return m
}

// Set inserts or replaces the value for key.
func (m *Map) Set(key string, value any) {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value for key.
func (m Map) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present.
func (m Map) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Delete removes key, preserving the order of the remaining keys.
func (m *Map) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i:i], m.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of entries.
func (m Map) Len() int {
	return len(m.keys)
}

// IsEmpty reports whether the map has no entries.
func (m Map) IsEmpty() bool {
	return len(m.keys) == 0
}

// Keys returns the keys in insertion order.
func (m Map) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Pairs returns the entries in insertion order.
func (m Map) Pairs() []Pair {
	out := make([]Pair, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, Pair{Key: k, Value: m.values[k]})
	}
	return out
}

// Range calls fn for each entry in order until fn returns false.
func (m Map) Range(fn func(key string, value any) bool) {
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

// Clone returns a shallow copy. Values are shared, keys and order are not.
func (m Map) Clone() Map {
	out := Map{
		keys:   make([]string, len(m.keys)),
		values: make(map[string]any, len(m.values)),
	}
	copy(out.keys, m.keys)
	for k, v := range m.values {
		out.values[k] = v
	}
	return out
}

// Merge returns the key-set union of m and other. On collision the value
// from other wins and the key keeps its position in m.
func (m Map) Merge(other Map) Map {
	out := m.Clone()
	for _, k := range other.keys {
		out.Set(k, other.values[k])
	}
	return out
}

// Equal reports whether both maps hold the same keys with deeply equal values.
// Order is not significant.
func (m Map) Equal(other Map) bool {
	if len(m.keys) != len(other.keys) {
		return false
	}
	for k, v := range m.values {
		ov, ok := other.values[k]
		if !ok || !reflect.DeepEqual(v, ov) {
			return false
		}
	}
	return true
}

// ToGoMap returns the entries as a plain Go map.
func (m Map) ToGoMap() map[string]any {
	out := make(map[string]any, len(m.keys))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// String renders the map as {k1: v1, k2: v2} in insertion order.
func (m Map) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %v", k, m.values[k])
	}
	sb.WriteByte('}')
	return sb.String()
}

// MarshalJSON encodes the map as a JSON object in insertion order.
func (m Map) MarshalJSON() ([]byte, error) {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		sb.Write(kb)
		sb.WriteByte(':')
		sb.Write(vb)
	}
	sb.WriteByte('}')
	return []byte(sb.String()), nil
}

// UnmarshalYAML decodes a YAML mapping keeping document order. JSON input is
// accepted as well since yaml.v3 parses JSON documents.
func (m *Map) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: properties must be a mapping", node.Line)
	}

	*m = Map{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var key string
		if err := node.Content[i].Decode(&key); err != nil {
			return fmt.Errorf("line %d: property key: %w", node.Content[i].Line, err)
		}

		valueNode := node.Content[i+1]
		if valueNode.Kind == yaml.MappingNode {
			var nested Map
			if err := nested.UnmarshalYAML(valueNode); err != nil {
				return err
			}
			m.Set(key, nested)
			continue
		}

		var value any
		if err := valueNode.Decode(&value); err != nil {
			return fmt.Errorf("line %d: property %q: %w", valueNode.Line, key, err)
		}
		m.Set(key, value)
	}
	return nil
}

// MarshalYAML encodes the map as a YAML mapping in insertion order.
func (m Map) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range m.keys {
		var value yaml.Node
		if err := value.Encode(m.values[k]); err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: k}, &value)
	}
	return node, nil
}
