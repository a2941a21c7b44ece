package ir

import (
	"strings"
)

// Object is an insertion-ordered map of field names to values.
//
// Go maps iterate in random order; Object remembers the order keys were first
// set so that MarshalJSON is byte-stable. Replacing an existing key keeps its
// original position.
//
// The zero value is an empty object ready to use. A nil *Object behaves as an
// empty object for all read methods.
type Object struct {
	keys []string
	vals map[string]Value
}

func (*Object) irValue() {}

// NewObject creates an Object from ordered pairs.
// Later pairs with a duplicate key replace the earlier value in place.
func NewObject(pairs ...Pair) *Object {
	obj := &Object{vals: make(map[string]Value, len(pairs))}
	for _, p := range pairs {
		obj.Set(p.Key, p.Value)
	}
	return obj
}

// Set stores v under key. New keys are appended; existing keys keep their position.
func (o *Object) Set(key string, v Value) {
	if o.vals == nil {
		o.vals = make(map[string]Value)
	}
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	if v == nil {
		v = Null{}
	}
	o.vals[key] = v
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.vals[key]
	return v, ok
}

// GetFold returns the value under the first key that matches key
// case-insensitively. Exact matches win over folded matches.
func (o *Object) GetFold(key string) (Value, bool) {
	if o == nil {
		return nil, false
	}
	if v, ok := o.vals[key]; ok {
		return v, true
	}
	for _, k := range o.keys {
		if strings.EqualFold(k, key) {
			return o.vals[k], true
		}
	}
	return nil, false
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Delete removes key, preserving the order of the remaining keys.
func (o *Object) Delete(key string) {
	if o == nil {
		return
	}
	if _, ok := o.vals[key]; !ok {
		return
	}
	delete(o.vals, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i:i], o.keys[i+1:]...)
			break
		}
	}
}

// Keys returns a copy of the keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Pairs returns the entries in insertion order.
func (o *Object) Pairs() []Pair {
	if o == nil {
		return nil
	}
	out := make([]Pair, len(o.keys))
	for i, k := range o.keys {
		out[i] = Pair{Key: k, Value: o.vals[k]}
	}
	return out
}

// Clone returns a shallow copy. Nested objects are shared.
func (o *Object) Clone() *Object {
	out := &Object{vals: make(map[string]Value, o.Len())}
	for _, p := range o.Pairs() {
		out.Set(p.Key, p.Value)
	}
	return out
}

// Merge sets every entry of other onto o, in other's order.
func (o *Object) Merge(other *Object) {
	for _, p := range other.Pairs() {
		o.Set(p.Key, p.Value)
	}
}

// Object returns the nested object stored under key, if any.
func (o *Object) Object(key string) (*Object, bool) {
	v, ok := o.Get(key)
	if !ok {
		return nil, false
	}
	obj, ok := v.(*Object)
	return obj, ok
}

// Array returns the nested array stored under key, if any.
func (o *Object) Array(key string) (Array, bool) {
	v, ok := o.Get(key)
	if !ok {
		return nil, false
	}
	arr, ok := v.(Array)
	return arr, ok
}

// MarshalJSON implements json.Marshaler in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	return Marshal(o)
}
