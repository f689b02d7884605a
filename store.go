package compose

import (
	"sync"
)

// componentStore is a typed map from identity to live component.
type componentStore[T any] struct {
	data sync.Map
}

func newComponentStore[T any]() *componentStore[T] {
	return &componentStore[T]{}
}

func (s *componentStore[T]) Load(id ID) (T, bool) {
	value, ok := s.data.Load(id)
	if !ok {
		var zero T
		return zero, false
	}
	return value.(T), true
}

func (s *componentStore[T]) Store(id ID, value T) {
	s.data.Store(id, value)
}

// Delete removes id and reports whether it was present.
func (s *componentStore[T]) Delete(id ID) (T, bool) {
	value, ok := s.data.LoadAndDelete(id)
	if !ok {
		var zero T
		return zero, false
	}
	return value.(T), true
}

func (s *componentStore[T]) Keys() []ID {
	var keys []ID
	s.data.Range(func(key, _ any) bool {
		keys = append(keys, key.(ID))
		return true
	})
	return keys
}

func (s *componentStore[T]) Len() int {
	count := 0
	s.data.Range(func(key, value any) bool {
		count++
		return true
	})
	return count
}
