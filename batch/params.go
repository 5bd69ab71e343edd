package batch

import "sort"

// ParameterSet is an ordered mapping from parameter key to Param. Keys are
// unique; setting an existing key overwrites the value in place without
// changing its position.
type ParameterSet struct {
	keys   []string
	values map[string]Param
}

// NewParameterSet returns an empty ParameterSet.
func NewParameterSet() *ParameterSet {
	return &ParameterSet{values: make(map[string]Param)}
}

// Set stores p under key, overwriting any prior value (last write wins).
func (s *ParameterSet) Set(key string, p Param) {
	if _, exists := s.values[key]; !exists {
		s.keys = append(s.keys, key)
	}
	s.values[key] = p
}

// Get returns the parameter stored under key.
func (s *ParameterSet) Get(key string) (Param, bool) {
	p, ok := s.values[key]
	return p, ok
}

// Keys returns the keys in insertion order.
func (s *ParameterSet) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Len returns the number of parameters.
func (s *ParameterSet) Len() int {
	return len(s.keys)
}

// Clone returns a deep copy.
func (s *ParameterSet) Clone() *ParameterSet {
	c := &ParameterSet{
		keys:   make([]string, len(s.keys)),
		values: make(map[string]Param, len(s.values)),
	}
	copy(c.keys, s.keys)
	for k, v := range s.values {
		c.values[k] = v
	}
	return c
}

// Equal reports whether both sets hold the same keys in the same order with
// equal values.
func (s *ParameterSet) Equal(other *ParameterSet) bool {
	if len(s.keys) != len(other.keys) {
		return false
	}
	for i, k := range s.keys {
		if other.keys[i] != k {
			return false
		}
		if !s.values[k].Equal(other.values[k]) {
			return false
		}
	}
	return true
}

// sortedKeys returns the keys in lexical order, used for canonical key
// encoding so that parameter insertion order does not affect identity.
func (s *ParameterSet) sortedKeys() []string {
	out := s.Keys()
	sort.Strings(out)
	return out
}
