package acf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/uplang/acf/internal/logging"
)

// ErrNotFound indicates a typed lookup of a path that is not set.
var ErrNotFound = errors.New("path not set")

// Document is one ACF file held in memory. It is parsed lazily: after
// ClearCache the next access parses the backing file again.
//
// A Document is not safe for concurrent mutation; callers sharing one across
// goroutines must serialize access.
type Document struct {
	path     string
	source   []byte
	defaults []byte
	parser   *Parser
	writer   *Writer

	store  *Store
	raw    []byte
	loaded bool
}

// Option configures a Document.
type Option func(*Document)

// WithDefaults sets the template Validate reconciles the document against.
func WithDefaults(data []byte) Option {
	return func(d *Document) {
		d.defaults = data
	}
}

// WithParser replaces the default parser.
func WithParser(p *Parser) Option {
	return func(d *Document) {
		d.parser = p
	}
}

// WithWriter replaces the default writer.
func WithWriter(w *Writer) Option {
	return func(d *Document) {
		d.writer = w
	}
}

func newDocument(path string, opts []Option) *Document {
	d := &Document{path: path}
	for _, opt := range opts {
		opt(d)
	}
	if d.parser == nil {
		d.parser = NewParser()
	}
	if d.parser.source == "" {
		d.parser.source = path
	}
	if d.writer == nil {
		d.writer = NewWriter().WithParser(d.parser)
	}
	return d
}

// Open parses the file at path. A missing file yields an empty document that
// is created on the first Save or Validate.
func Open(path string, opts ...Option) (*Document, error) {
	d := newDocument(path, opts)
	if err := d.Reload(); err != nil {
		return nil, err
	}
	return d, nil
}

// Parse reads a document from r. The result has no backing file: SaveTo
// works, Save reports failure.
func Parse(r io.Reader, opts ...Option) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return ParseBytes(data, opts...)
}

// ParseBytes parses a document held in memory.
func ParseBytes(data []byte, opts ...Option) (*Document, error) {
	d := newDocument("", opts)
	d.source = data
	if err := d.Reload(); err != nil {
		return nil, err
	}
	return d, nil
}

// Path returns the backing file, or "" for in-memory documents.
func (d *Document) Path() string { return d.path }

// Reload discards in-memory changes and parses the backing content again.
func (d *Document) Reload() error {
	data := d.source
	if d.path != "" {
		var err error
		data, err = os.ReadFile(d.path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read %s: %w", d.path, err)
		}
	}
	store, err := d.parser.ParseBytes(data)
	if err != nil {
		return err
	}
	d.store = store
	d.raw = data
	d.loaded = true
	return nil
}

// ClearCache drops the parsed store and the raw cache. The next access
// parses again.
func (d *Document) ClearCache() {
	d.store = nil
	d.raw = nil
	d.loaded = false
}

// ensure returns the store, parsing first when the cache was cleared. A
// failed parse is logged and leaves an empty store.
func (d *Document) ensure() *Store {
	if !d.loaded {
		if err := d.Reload(); err != nil {
			logging.Error("Document", err, "Failed to reload %s", d.name())
			d.store = NewStore()
			d.loaded = true
		}
	}
	return d.store
}

func (d *Document) name() string {
	if d.path == "" {
		return "<memory>"
	}
	return d.path
}

// Store returns the underlying store.
func (d *Document) Store() *Store { return d.ensure() }

// Get returns the element at path, or nil.
func (d *Document) Get(path string) Element {
	return d.ensure().Get(path)
}

// GetOr returns the element at path, or def when it is not set.
func (d *Document) GetOr(path string, def Element) Element {
	if e := d.Get(path); e != nil && e.IsValid() {
		return e
	}
	return def
}

// GetScalar returns the scalar at path.
func (d *Document) GetScalar(path string) (Scalar, error) {
	e := d.Get(path)
	if e == nil {
		return Scalar{}, fmt.Errorf("%w: %s", ErrNotFound, Qualify(path))
	}
	s, ok := e.(Scalar)
	if !ok {
		return Scalar{}, &TypeError{Path: Qualify(path), Want: KindScalar, Got: e.Kind()}
	}
	return s, nil
}

// GetList returns the simple list at path.
func (d *Document) GetList(path string) (*List, error) {
	e := d.Get(path)
	if e == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, Qualify(path))
	}
	l, ok := e.(*List)
	if !ok {
		return nil, &TypeError{Path: Qualify(path), Want: KindList, Got: e.Kind()}
	}
	return l, nil
}

// GetKeyedList returns the keyed list at path.
func (d *Document) GetKeyedList(path string) (*KeyedList, error) {
	e := d.Get(path)
	if e == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, Qualify(path))
	}
	k, ok := e.(*KeyedList)
	if !ok {
		return nil, &TypeError{Path: Qualify(path), Want: KindKeyedList, Got: e.Kind()}
	}
	return k, nil
}

// GetString returns the text of the scalar at path, or def.
func (d *Document) GetString(path, def string) string {
	s, err := d.GetScalar(path)
	if err != nil {
		return def
	}
	return s.Str()
}

// GetInt returns the numeric scalar at path as an integer, or def.
func (d *Document) GetInt(path string, def int64) int64 {
	s, err := d.GetScalar(path)
	if err != nil {
		return def
	}
	if i, ok := s.Int64(); ok {
		return i
	}
	return def
}

// GetFloat returns the numeric scalar at path, or def.
func (d *Document) GetFloat(path string, def float64) float64 {
	s, err := d.GetScalar(path)
	if err != nil {
		return def
	}
	if f, ok := s.Float64(); ok {
		return f
	}
	return def
}

// GetBool returns the boolean scalar at path, or def.
func (d *Document) GetBool(path string, def bool) bool {
	s, err := d.GetScalar(path)
	if err != nil {
		return def
	}
	if b, ok := s.Boolean(); ok {
		return b
	}
	return def
}

// Set binds path to e. A nil e removes the binding.
func (d *Document) Set(path string, e Element) {
	d.ensure().Set(path, e)
}

// SetRecursive binds path to e and e back to path.
func (d *Document) SetRecursive(path string, e Element) {
	d.ensure().SetRecursive(path, e)
}

// Remove deletes the binding at path.
func (d *Document) Remove(path string) {
	d.ensure().Remove(path)
}

// IsSet reports whether a valid element is stored at path.
func (d *Document) IsSet(path string) bool {
	return d.ensure().IsSet(path)
}

// IsRecursive reports whether path and its value resolve to each other.
func (d *Document) IsRecursive(path string) bool {
	return d.ensure().IsRecursive(path)
}

// IsRecursiveElement reports whether e resolves to a path that resolves back to e.
func (d *Document) IsRecursiveElement(e Element) bool {
	return d.ensure().IsRecursiveElement(e)
}

// PathOf returns the path e is recursively bound to, or "".
func (d *Document) PathOf(e Element) string {
	return d.ensure().PathOf(e)
}

// Keys returns the binding names directly inside the root section.
func (d *Document) Keys() []string {
	return d.ensure().Keys(RootSection)
}

// Section returns a view of the section at path, or nil when nothing is
// bound under it.
func (d *Document) Section(path string) *Section {
	store := d.ensure()
	path = Qualify(path)
	if !store.HasSection(path) {
		return nil
	}
	return &Section{store: store, path: path}
}

// Bytes renders the document, patching the current backing content.
func (d *Document) Bytes() ([]byte, error) {
	store := d.ensure()
	previous := d.source
	if d.path != "" {
		data, err := os.ReadFile(d.path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", d.path, err)
		}
		previous = data
	}
	return d.writer.Write(store, previous)
}

// SaveTo writes the document to path, patching whatever that file holds.
// Format errors in the existing file and I/O errors are returned.
func (d *Document) SaveTo(path string) error {
	store := d.ensure()
	previous, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read %s: %w", path, err)
	}
	out, err := d.writer.Write(store, previous)
	if err != nil {
		return err
	}
	if bytes.Equal(out, previous) {
		logging.Debug("Document", "%s is up to date", path)
		return nil
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory for %s: %w", path, err)
		}
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if path == d.path {
		d.raw = out
	}
	logging.Debug("Document", "Saved %s (%d bytes)", path, len(out))
	return nil
}

// Save writes the document to its backing file and reports success. Failures
// are logged rather than returned.
func (d *Document) Save() bool {
	if d.path == "" {
		logging.Error("Document", ErrNoBackingFile, "Cannot save in-memory document")
		return false
	}
	if err := d.SaveTo(d.path); err != nil {
		logging.Error("Document", err, "Failed to save %s", d.path)
		return false
	}
	return true
}

// Raw returns the content last read from or written to the backing file.
func (d *Document) Raw() []byte {
	d.ensure()
	return d.raw
}
