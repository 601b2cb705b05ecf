package acf

// Section is a read-only view over the bindings under one section path.
type Section struct {
	store *Store
	path  string
}

// Path returns the fully qualified section path.
func (s *Section) Path() string { return s.path }

// Name returns the last segment of the section path.
func (s *Section) Name() string { return lastSegment(s.path) }

func (s *Section) child(key string) string {
	return s.path + "." + key
}

// Get returns the element bound to key inside the section. key may itself be
// a dotted path relative to the section.
func (s *Section) Get(key string) Element {
	return s.store.Get(s.child(key))
}

// IsSet reports whether key holds a valid element.
func (s *Section) IsSet(key string) bool {
	return s.store.IsSet(s.child(key))
}

// IsRecursive reports whether key and its value resolve to each other.
func (s *Section) IsRecursive(key string) bool {
	return s.store.IsRecursive(s.child(key))
}

// Keys returns the names of the bindings directly inside the section.
func (s *Section) Keys() []string {
	return s.store.Keys(s.path)
}

// Sections returns the names of the direct subsections.
func (s *Section) Sections() []string {
	return s.store.Sections(s.path)
}

// HasSection reports whether a direct or nested subsection exists.
func (s *Section) HasSection(name string) bool {
	return s.store.HasSection(s.child(name))
}

// Section returns a view of a subsection, or nil.
func (s *Section) Section(name string) *Section {
	path := s.child(name)
	if !s.store.HasSection(path) {
		return nil
	}
	return &Section{store: s.store, path: path}
}
