package util

import (
	"cmp"
	"slices"
)

type Set[K cmp.Ordered] map[K]struct{}

func NewSet[K cmp.Ordered](keys ...K) Set[K] {
	s := make(Set[K], len(keys))

	for _, k := range keys {
		s.Add(k)
	}

	return s
}

func (s Set[K]) Add(key K) {
	s[key] = struct{}{}
}

// AddNew adds key and reports whether it was not there before.
func (s Set[K]) AddNew(key K) bool {
	if s.Has(key) {
		return false
	}

	s[key] = struct{}{}

	return true
}

func (s Set[K]) Remove(key K) {
	delete(s, key)
}

func (s Set[K]) Has(key K) bool {
	_, ok := s[key]

	return ok
}

// Sorted returns the keys in ascending order.
func (s Set[K]) Sorted() []K {
	res := make([]K, 0, len(s))

	for k := range s {
		res = append(res, k)
	}

	slices.Sort(res)

	return res
}
