// Package bounded provides slices with a fixed maximum size. Adding past the
// maximum returns an error instead of growing the slice.
package bounded

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrCapacityExceeded is returned when a value is added to a full container.
var ErrCapacityExceeded = errors.New("capacity exceeded")

// Vec is a slice that never holds more than its limit.
type Vec[T any] struct {
	name   string
	limit  int
	values []T
}

// NewVec constructs an empty Vec. The name is used in error messages.
func NewVec[T any](name string, limit int) *Vec[T] {
	return &Vec[T]{
		name:  name,
		limit: limit,
	}
}

// FromSlice constructs a Vec holding the values, failing if there are more
// values than the limit allows.
func FromSlice[T any](name string, limit int, values []T) (*Vec[T], error) {
	if err := Check(name, limit, len(values)); err != nil {
		return nil, err
	}

	v := NewVec[T](name, limit)
	v.values = append(v.values, values...)

	return v, nil
}

// Check reports ErrCapacityExceeded when size is over the limit.
func Check(name string, limit int, size int) error {
	if size > limit {
		return fmt.Errorf("%s: %d over limit %d: %w", name, size, limit, ErrCapacityExceeded)
	}

	return nil
}

// Push adds a value to the end of the Vec.
func (v *Vec[T]) Push(value T) error {
	if err := Check(v.name, v.limit, len(v.values)+1); err != nil {
		return err
	}

	v.values = append(v.values, value)
	return nil
}

// Len returns the number of values held.
func (v *Vec[T]) Len() int {
	return len(v.values)
}

// Limit returns the maximum number of values.
func (v *Vec[T]) Limit() int {
	return v.limit
}

// Values returns a copy of the values held.
func (v *Vec[T]) Values() []T {
	out := make([]T, len(v.values))
	copy(out, v.values)
	return out
}

// Reset empties the Vec keeping the limit.
func (v *Vec[T]) Reset() {
	v.values = nil
}

// MarshalJSON implements the json.Marshaler interface.
func (v *Vec[T]) MarshalJSON() ([]byte, error) {
	if v.values == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(v.values)
}

// =============================================================================

// Set is a set of comparable keys that never holds more than its limit.
type Set[K comparable] struct {
	name  string
	limit int
	keys  map[K]struct{}
	order []K
}

// NewSet constructs an empty Set. The name is used in error messages.
func NewSet[K comparable](name string, limit int) *Set[K] {
	return &Set[K]{
		name:  name,
		limit: limit,
		keys:  make(map[K]struct{}),
	}
}

// Insert adds the key, returning false if it already existed.
func (s *Set[K]) Insert(key K) (bool, error) {
	if _, exists := s.keys[key]; exists {
		return false, nil
	}

	if err := Check(s.name, s.limit, len(s.keys)+1); err != nil {
		return false, err
	}

	s.keys[key] = struct{}{}
	s.order = append(s.order, key)

	return true, nil
}

// Contains reports whether the key exists.
func (s *Set[K]) Contains(key K) bool {
	_, exists := s.keys[key]
	return exists
}

// Len returns the number of keys held.
func (s *Set[K]) Len() int {
	return len(s.keys)
}

// Keys returns the keys in insertion order.
func (s *Set[K]) Keys() []K {
	out := make([]K, len(s.order))
	copy(out, s.order)
	return out
}
