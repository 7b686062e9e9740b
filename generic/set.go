package generic

// A Set is an unordered collection of unique items. Implementations are not safe for concurrent use.
type Set[T any] interface {
	// Add inserts item, reporting whether it was new.
	Add(item T) bool
	// Contains reports whether every one of items is present. It is true for no items.
	Contains(items ...T) bool
	Count() int
	// Remove deletes item, reporting whether it was present.
	Remove(item T) bool
	// ToSlice copies the items out in no particular order.
	ToSlice() []T
}

func NewSet[T comparable](items ...T) Set[T] {
	s := make(set[T], len(items))
	for _, item := range items {
		s[item] = NewVoid()
	}
	return s
}

type set[T comparable] map[T]Void

func (s set[T]) Add(item T) bool {
	before := len(s)
	s[item] = NewVoid()
	return len(s) > before
}

func (s set[T]) Contains(items ...T) bool {
	for _, item := range items {
		if _, ok := s[item]; !ok {
			return false
		}
	}
	return true
}

func (s set[T]) Count() int {
	return len(s)
}

func (s set[T]) Remove(item T) bool {
	before := len(s)
	delete(s, item)
	return len(s) < before
}

func (s set[T]) ToSlice() []T {
	items := make([]T, 0, len(s))
	for item := range s {
		items = append(items, item)
	}
	return items
}
