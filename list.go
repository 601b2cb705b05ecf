package acf

import "strings"

// List is an ordered, duplicate-tolerant collection of elements without keys.
type List struct {
	items []Element
}

// NewList returns a list holding items.
func NewList(items ...Element) *List {
	l := &List{items: make([]Element, 0, len(items))}
	l.items = append(l.items, items...)
	return l
}

// TextList is a shorthand for a list of text scalars.
func TextList(items ...string) *List {
	l := &List{items: make([]Element, len(items))}
	for i, s := range items {
		l.items[i] = Text(s)
	}
	return l
}

func (l *List) Kind() Kind { return KindList }

func (l *List) Len() int { return len(l.items) }

// At returns the i-th element.
func (l *List) At(i int) Element { return l.items[i] }

// Items returns the elements in order. The slice is a copy.
func (l *List) Items() []Element {
	out := make([]Element, len(l.items))
	copy(out, l.items)
	return out
}

// Strings returns the plain rendering of every scalar item.
func (l *List) Strings() []string {
	out := make([]string, 0, len(l.items))
	for _, item := range l.items {
		if s, ok := item.(Scalar); ok {
			out = append(out, s.Str())
		} else if item != nil {
			out = append(out, item.String())
		}
	}
	return out
}

func (l *List) Append(items ...Element) {
	l.items = append(l.items, items...)
}

// Set replaces the i-th element.
func (l *List) Set(i int, e Element) {
	l.items[i] = e
}

// RemoveAt deletes the i-th element.
func (l *List) RemoveAt(i int) {
	l.items = append(l.items[:i], l.items[i+1:]...)
}

// IsValid reports whether the list has no nil slots.
func (l *List) IsValid() bool {
	for _, item := range l.items {
		if item == nil {
			return false
		}
	}
	return true
}

func (l *List) Copy() Element {
	return l.mapItems(func(e Element) Element { return e.Copy() })
}

func (l *List) Upper() Element {
	return l.mapItems(func(e Element) Element { return e.Upper() })
}

func (l *List) Lower() Element {
	return l.mapItems(func(e Element) Element { return e.Lower() })
}

func (l *List) mapItems(fn func(Element) Element) *List {
	out := &List{items: make([]Element, len(l.items))}
	for i, item := range l.items {
		if item != nil {
			out.items[i] = fn(item)
		}
	}
	return out
}

// Equal compares items in order. Empty lists of either kind are equal: both
// are written as {}.
func (l *List) Equal(other Element) bool {
	if k, ok := other.(*KeyedList); ok && k != nil {
		return len(l.items) == 0 && k.Len() == 0
	}
	o, ok := other.(*List)
	if !ok || o == nil || len(o.items) != len(l.items) {
		return false
	}
	for i, item := range l.items {
		if item == nil || o.items[i] == nil {
			if item != o.items[i] {
				return false
			}
			continue
		}
		if !item.Equal(o.items[i]) {
			return false
		}
	}
	return true
}

func (l *List) String() string {
	parts := make([]string, len(l.items))
	for i, item := range l.items {
		if item == nil {
			parts[i] = "null"
			continue
		}
		parts[i] = item.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// KeyedList is an ordered mapping from keys to elements. Entries may be bound
// recursively, in which case the value resolves back to its key.
type KeyedList struct {
	keys    []string
	entries map[string]Element
	// reverse maps the value key of a recursive entry to its key.
	reverse map[string]string
	// links holds the value key each recursive key is indexed under.
	links map[string]string
}

// NewKeyedList returns an empty keyed list.
func NewKeyedList() *KeyedList {
	return &KeyedList{
		entries: make(map[string]Element),
		reverse: make(map[string]string),
		links:   make(map[string]string),
	}
}

func (k *KeyedList) Kind() Kind { return KindKeyedList }

func (k *KeyedList) Len() int { return len(k.keys) }

// Keys returns the keys in insertion order.
func (k *KeyedList) Keys() []string {
	out := make([]string, len(k.keys))
	copy(out, k.keys)
	return out
}

// Get returns the element bound to key, or nil.
func (k *KeyedList) Get(key string) Element {
	return k.entries[key]
}

// Has reports whether key is bound.
func (k *KeyedList) Has(key string) bool {
	_, ok := k.entries[key]
	return ok
}

// Set binds key to e. A nil e removes the entry.
func (k *KeyedList) Set(key string, e Element) {
	if e == nil {
		k.Remove(key)
		return
	}
	k.unlink(key)
	if _, ok := k.entries[key]; !ok {
		k.keys = append(k.keys, key)
	}
	k.entries[key] = e
}

// SetRecursive binds key to e and e back to key. An equal value previously
// linked to another key loses that link.
func (k *KeyedList) SetRecursive(key string, e Element) {
	k.Set(key, e)
	if e == nil {
		return
	}
	k.refresh()
	vk := valueKey(e)
	if prev, ok := k.reverse[vk]; ok && prev != key {
		delete(k.links, prev)
	}
	k.reverse[vk] = key
	k.links[key] = vk
}

// Remove deletes the entry for key.
func (k *KeyedList) Remove(key string) {
	if _, ok := k.entries[key]; !ok {
		return
	}
	k.unlink(key)
	delete(k.entries, key)
	for i, existing := range k.keys {
		if existing == key {
			k.keys = append(k.keys[:i], k.keys[i+1:]...)
			break
		}
	}
}

// unlink drops the recursive link of key, using the value key it was
// indexed under.
func (k *KeyedList) unlink(key string) {
	vk, ok := k.links[key]
	if !ok {
		return
	}
	delete(k.links, key)
	if k.reverse[vk] == key {
		delete(k.reverse, vk)
	}
}

// refresh re-indexes recursive entries whose list value was changed in
// place. A changed value that now equals another linked value loses its link.
func (k *KeyedList) refresh() {
	var changed []string
	for _, key := range k.keys {
		vk, ok := k.links[key]
		if !ok {
			continue
		}
		cur := valueKey(k.entries[key])
		if cur == vk {
			continue
		}
		if k.reverse[vk] == key {
			delete(k.reverse, vk)
		}
		k.links[key] = cur
		changed = append(changed, key)
	}
	for _, key := range changed {
		cur := k.links[key]
		if other, taken := k.reverse[cur]; taken && other != key {
			delete(k.links, key)
			continue
		}
		k.reverse[cur] = key
	}
}

// KeyOf returns the key e is recursively bound to, or "".
func (k *KeyedList) KeyOf(e Element) string {
	if e == nil {
		return ""
	}
	k.refresh()
	return k.reverse[valueKey(e)]
}

// IsRecursive reports whether key and its value resolve to each other.
func (k *KeyedList) IsRecursive(key string) bool {
	if _, ok := k.links[key]; !ok {
		return false
	}
	k.refresh()
	vk, ok := k.links[key]
	return ok && k.reverse[vk] == key
}

// IsValid reports whether no key maps to nil and every recursive link points
// at a bound key.
func (k *KeyedList) IsValid() bool {
	for _, key := range k.keys {
		if k.entries[key] == nil {
			return false
		}
	}
	k.refresh()
	for vk, key := range k.reverse {
		if k.links[key] != vk {
			return false
		}
	}
	return true
}

func (k *KeyedList) Copy() Element {
	return k.mapValues(func(e Element) Element { return e.Copy() })
}

func (k *KeyedList) Upper() Element {
	return k.mapValues(func(e Element) Element { return e.Upper() })
}

func (k *KeyedList) Lower() Element {
	return k.mapValues(func(e Element) Element { return e.Lower() })
}

func (k *KeyedList) mapValues(fn func(Element) Element) *KeyedList {
	out := NewKeyedList()
	for _, key := range k.keys {
		e := k.entries[key]
		if e == nil {
			continue
		}
		if k.IsRecursive(key) {
			out.SetRecursive(key, fn(e))
		} else {
			out.Set(key, fn(e))
		}
	}
	return out
}

// Equal compares entries, their order and their recursive flags. An empty
// keyed list equals an empty simple list.
func (k *KeyedList) Equal(other Element) bool {
	if l, ok := other.(*List); ok && l != nil {
		return len(k.keys) == 0 && l.Len() == 0
	}
	o, ok := other.(*KeyedList)
	if !ok || o == nil || len(o.keys) != len(k.keys) {
		return false
	}
	for i, key := range k.keys {
		if o.keys[i] != key {
			return false
		}
		a, b := k.entries[key], o.entries[key]
		if a == nil || b == nil || !a.Equal(b) {
			return false
		}
		if k.IsRecursive(key) != o.IsRecursive(key) {
			return false
		}
	}
	return true
}

func (k *KeyedList) String() string {
	parts := make([]string, len(k.keys))
	for i, key := range k.keys {
		arrow := "->"
		if k.IsRecursive(key) {
			arrow = "<->"
		}
		value := "null"
		if e := k.entries[key]; e != nil {
			value = e.String()
		}
		parts[i] = "'" + key + "' " + arrow + " " + value
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
