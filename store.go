package acf

import (
	"slices"
	"strings"
)

// RootSection is the name of the implicit top-level section.
const RootSection = "main"

// handle addresses an element slot in a Store arena.
type handle int

// Store maps dotted paths to elements. Elements live in an arena and are
// addressed by handle; recursive links are kept as handle->path plus a
// value index so that value->path lookups do not depend on identity.
//
// A Store is not safe for concurrent mutation.
type Store struct {
	arena []Element
	free  []handle

	paths map[string]handle
	order []string

	// reverse holds the path a recursive handle resolves back to.
	reverse map[handle]string
	// byValue holds the handle a value is recursively linked through.
	byValue map[string]handle
	// links holds the value key each recursive handle is indexed under.
	links map[handle]string

	indexes map[string]int
	removed map[string]bool
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		paths:   make(map[string]handle),
		reverse: make(map[handle]string),
		byValue: make(map[string]handle),
		links:   make(map[handle]string),
		indexes: make(map[string]int),
		removed: make(map[string]bool),
	}
}

// Qualify prefixes path with the root section when it is not already rooted.
func Qualify(path string) string {
	path = strings.Trim(path, ".")
	switch {
	case path == "" || path == RootSection:
		return RootSection
	case strings.HasPrefix(path, RootSection+"."):
		return path
	default:
		return RootSection + "." + path
	}
}

// parentOf drops the last segment of path.
func parentOf(path string) string {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

// lastSegment returns the last segment of path.
func lastSegment(path string) string {
	return path[strings.LastIndexByte(path, '.')+1:]
}

func (s *Store) alloc(e Element) handle {
	if n := len(s.free); n > 0 {
		h := s.free[n-1]
		s.free = s.free[:n-1]
		s.arena[h] = e
		return h
	}
	s.arena = append(s.arena, e)
	return handle(len(s.arena) - 1)
}

func (s *Store) release(h handle) {
	s.unlink(h)
	s.arena[h] = nil
	s.free = append(s.free, h)
}

// unlink drops the recursive link of h, using the key it was indexed under.
func (s *Store) unlink(h handle) {
	vk, ok := s.links[h]
	if !ok {
		return
	}
	delete(s.links, h)
	delete(s.reverse, h)
	if linked, ok := s.byValue[vk]; ok && linked == h {
		delete(s.byValue, vk)
	}
}

// refreshLinks re-indexes recursive links whose list value was changed in
// place. A changed value that now equals another linked value loses its link.
func (s *Store) refreshLinks() {
	type moved struct {
		h   handle
		key string
	}
	var changed []moved
	for h, vk := range s.links {
		cur := valueKey(s.arena[h])
		if cur == vk {
			continue
		}
		if linked, ok := s.byValue[vk]; ok && linked == h {
			delete(s.byValue, vk)
		}
		changed = append(changed, moved{h: h, key: cur})
	}
	if len(changed) == 0 {
		return
	}
	slices.SortFunc(changed, func(a, b moved) int { return int(a.h) - int(b.h) })
	for _, m := range changed {
		if other, taken := s.byValue[m.key]; taken && other != m.h {
			delete(s.links, m.h)
			delete(s.reverse, m.h)
			continue
		}
		s.byValue[m.key] = m.h
		s.links[m.h] = m.key
	}
}

// Get returns the element stored at path, or nil.
func (s *Store) Get(path string) Element {
	h, ok := s.paths[Qualify(path)]
	if !ok {
		return nil
	}
	return s.arena[h]
}

// PathOf returns the path e is recursively bound to, or "".
func (s *Store) PathOf(e Element) string {
	if e == nil {
		return ""
	}
	s.refreshLinks()
	h, ok := s.byValue[valueKey(e)]
	if !ok {
		return ""
	}
	return s.reverse[h]
}

// Set binds path to e without a recursive link. A nil e removes the binding.
func (s *Store) Set(path string, e Element) {
	path = Qualify(path)
	if e == nil {
		s.Remove(path)
		return
	}
	if h, ok := s.paths[path]; ok {
		s.release(h)
	} else {
		s.order = append(s.order, path)
	}
	s.paths[path] = s.alloc(e)
	delete(s.removed, path)
}

// SetRecursive binds path to e and e back to path. If an equal value was
// linked to another path, that link moves here. A nil e removes the binding.
func (s *Store) SetRecursive(path string, e Element) {
	path = Qualify(path)
	s.Set(path, e)
	if e == nil {
		return
	}
	s.refreshLinks()
	h := s.paths[path]
	vk := valueKey(e)
	if prev, ok := s.byValue[vk]; ok && prev != h {
		s.unlink(prev)
	}
	s.reverse[h] = path
	s.byValue[vk] = h
	s.links[h] = vk
}

// Remove deletes the binding at path and any recursive link of its value.
func (s *Store) Remove(path string) {
	path = Qualify(path)
	h, ok := s.paths[path]
	if !ok {
		return
	}
	s.release(h)
	delete(s.paths, path)
	s.order = slices.DeleteFunc(s.order, func(p string) bool { return p == path })
	s.removed[path] = true
}

// IsSet reports whether a valid element is stored at path.
func (s *Store) IsSet(path string) bool {
	e := s.Get(path)
	return e != nil && e.IsValid()
}

// IsRecursive reports whether the element at path resolves back to path. A
// recursively bound list stays linked when it is changed in place.
func (s *Store) IsRecursive(path string) bool {
	path = Qualify(path)
	h, ok := s.paths[path]
	if !ok {
		return false
	}
	s.refreshLinks()
	vk, ok := s.links[h]
	if !ok || s.reverse[h] != path {
		return false
	}
	linked, ok := s.byValue[vk]
	return ok && linked == h
}

// IsRecursiveElement reports whether e is bound to a path that resolves back to it.
func (s *Store) IsRecursiveElement(e Element) bool {
	p := s.PathOf(e)
	if p == "" || !s.IsRecursive(p) {
		return false
	}
	stored := s.Get(p)
	return stored != nil && stored.Equal(e)
}

// wasRemoved reports whether path was bound and then removed.
func (s *Store) wasRemoved(path string) bool {
	return s.removed[path]
}

// Paths returns every bound path in insertion order.
func (s *Store) Paths() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of bindings.
func (s *Store) Len() int { return len(s.order) }

// Keys returns the names of the bindings directly inside section, in order.
func (s *Store) Keys(section string) []string {
	section = Qualify(section)
	var keys []string
	for _, p := range s.order {
		if parentOf(p) == section {
			keys = append(keys, lastSegment(p))
		}
	}
	return keys
}

// Sections returns the names of the sections directly inside section, in
// first-seen order.
func (s *Store) Sections(section string) []string {
	section = Qualify(section)
	prefix := section + "."
	var names []string
	seen := make(map[string]bool)
	for _, p := range s.order {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := p[len(prefix):]
		idx := strings.IndexByte(rest, '.')
		if idx < 0 {
			continue
		}
		name := rest[:idx]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// HasSection reports whether any binding lives under section.
func (s *Store) HasSection(section string) bool {
	section = Qualify(section)
	if section == RootSection {
		return true
	}
	prefix := section + "."
	for _, p := range s.order {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// Line returns the 1-based line number recorded for a raw source line.
func (s *Store) Line(raw string) (int, bool) {
	n, ok := s.indexes[raw]
	return n, ok
}

func (s *Store) index(raw string, num int) {
	if _, ok := s.indexes[raw]; !ok {
		s.indexes[raw] = num
	}
}

// Copy returns a deep copy of the store, recursive links included.
func (s *Store) Copy() *Store {
	out := NewStore()
	for _, p := range s.order {
		e := s.arena[s.paths[p]].Copy()
		if s.IsRecursive(p) {
			out.SetRecursive(p, e)
		} else {
			out.Set(p, e)
		}
	}
	for raw, n := range s.indexes {
		out.indexes[raw] = n
	}
	return out
}

// Equal reports whether both stores hold the same path->element map and the
// same recursive links.
func (s *Store) Equal(other *Store) bool {
	if other == nil || len(s.order) != len(other.order) {
		return false
	}
	for _, p := range s.order {
		o := other.Get(p)
		if o == nil || !s.Get(p).Equal(o) || s.IsRecursive(p) != other.IsRecursive(p) {
			return false
		}
	}
	return true
}
