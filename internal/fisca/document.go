package fisca

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// OrderedMap is a string-keyed map that remembers insertion order. The wire
// contract with the calculation service is order-sensitive in two places:
// payload keys must serialize in the order they were written, and response
// interpretation picks the first key of each period sub-map. A plain Go map
// satisfies neither, so documents are built from this type.
type OrderedMap struct {
	keys   []string
	values map[string]any
}

// NewOrderedMap returns an empty ordered map.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{values: make(map[string]any)}
}

// Set stores a value under key. New keys are appended; existing keys keep
// their original position.
func (m *OrderedMap) Set(key string, value any) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value stored under key.
func (m *OrderedMap) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Delete removes a key and its value.
func (m *OrderedMap) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (m *OrderedMap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of keys.
func (m *OrderedMap) Len() int {
	return len(m.keys)
}

// First returns the insertion-order-first key and value.
func (m *OrderedMap) First() (string, any, bool) {
	if len(m.keys) == 0 {
		return "", nil, false
	}
	k := m.keys[0]
	return k, m.values[k], true
}

// MarshalJSON serializes the map as a JSON object in insertion order.
func (m *OrderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object preserving its document key order.
// Nested objects decode into nested OrderedMaps, arrays into []any, numbers
// into float64.
func (m *OrderedMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	if m.values == nil {
		m.values = make(map[string]any)
	}
	return m.decodeObject(dec)
}

func (m *OrderedMap) decodeObject(dec *json.Decoder) error {
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		value, err := decodeValue(dec)
		if err != nil {
			return err
		}
		m.Set(key, value)
	}
	// closing brace
	_, err := dec.Token()
	return err
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		child := NewOrderedMap()
		if err := child.decodeObject(dec); err != nil {
			return nil, err
		}
		return child, nil
	case '[':
		var arr []any
		for dec.More() {
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %v", delim)
	}
}

// Document is a nested key/value payload exchanged with the calculation
// service, plus a debug side-table for diagnostics. The side-table never
// appears in Data or JSON output.
type Document struct {
	data  *OrderedMap
	debug map[string]any
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{data: NewOrderedMap(), debug: make(map[string]any)}
}

// FromJSON decodes a document from its wire form. The empty string decodes
// to an empty document rather than an error.
func FromJSON(raw string) (*Document, error) {
	doc := NewDocument()
	if raw == "" {
		return doc, nil
	}
	if err := json.Unmarshal([]byte(raw), doc.data); err != nil {
		return nil, err
	}
	return doc, nil
}

// Data returns the document tree. Debug data is excluded.
func (d *Document) Data() *OrderedMap {
	return d.data
}

// ToJSON serializes the document tree. Debug data is excluded.
func (d *Document) ToJSON(pretty bool) (string, error) {
	raw, err := json.Marshal(d.data)
	if err != nil {
		return "", err
	}
	if pretty {
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			return "", err
		}
		return buf.String(), nil
	}
	return string(raw), nil
}

// KeyPathExists reports whether the given path resolves to a node. The
// empty path is the root and always exists.
func (d *Document) KeyPathExists(path []string) bool {
	node := any(d.data)
	for _, key := range path {
		m, ok := node.(*OrderedMap)
		if !ok {
			return false
		}
		node, ok = m.Get(key)
		if !ok {
			return false
		}
	}
	return true
}

// Value returns the node at path, or nil when the path does not resolve.
func (d *Document) Value(path []string) any {
	node := any(d.data)
	for _, key := range path {
		m, ok := node.(*OrderedMap)
		if !ok {
			return nil
		}
		node, ok = m.Get(key)
		if !ok {
			return nil
		}
	}
	return node
}

// SetValue writes a value at path, creating intermediate maps as needed.
// Intermediate nodes that are not maps are replaced.
func (d *Document) SetValue(path []string, value any) {
	if len(path) == 0 {
		return
	}
	current := d.data
	for _, key := range path[:len(path)-1] {
		next, ok := current.Get(key)
		child, isMap := next.(*OrderedMap)
		if !ok || !isMap {
			child = NewOrderedMap()
			current.Set(key, child)
		}
		current = child
	}
	current.Set(path[len(path)-1], value)
}

// FindKey searches the tree for the first occurrence of key and returns its
// full path, or nil. The search is depth-first pre-order over insertion
// order: at each level a key is tested, then descended into, before the next
// sibling is considered. A non-empty parents path restricts the search to
// that subtree.
func (d *Document) FindKey(key string, parents []string) []string {
	start := d.data
	if len(parents) > 0 {
		node, ok := d.Value(parents).(*OrderedMap)
		if !ok {
			return nil
		}
		start = node
	}
	return findKey(start, key, parents)
}

// FindKeyPath is FindKey with the result joined into a dotted string.
func (d *Document) FindKeyPath(key string, parents []string) (string, bool) {
	path := d.FindKey(key, parents)
	if path == nil {
		return "", false
	}
	return DottedPath(path), true
}

func findKey(m *OrderedMap, key string, prefix []string) []string {
	for _, k := range m.keys {
		path := make([]string, 0, len(prefix)+1)
		path = append(path, prefix...)
		path = append(path, k)
		if k == key {
			return path
		}
		if child, ok := m.values[k].(*OrderedMap); ok {
			if found := findKey(child, key, path); found != nil {
				return found
			}
		}
	}
	return nil
}

// SetDebugData stores a diagnostic value under key.
func (d *Document) SetDebugData(key string, value any) {
	d.debug[key] = value
}

// DebugData returns the diagnostic value stored under key.
func (d *Document) DebugData(key string) (any, bool) {
	v, ok := d.debug[key]
	return v, ok
}

// HasDebugData reports whether a diagnostic value exists under key.
func (d *Document) HasDebugData(key string) bool {
	_, ok := d.debug[key]
	return ok
}

// UnsetDebugData removes a single diagnostic value.
func (d *Document) UnsetDebugData(key string) {
	delete(d.debug, key)
}

// AllDebugData returns a copy of the debug side-table.
func (d *Document) AllDebugData() map[string]any {
	out := make(map[string]any, len(d.debug))
	for k, v := range d.debug {
		out[k] = v
	}
	return out
}

// UnsetAllDebugData clears the debug side-table.
func (d *Document) UnsetAllDebugData() {
	d.debug = make(map[string]any)
}
