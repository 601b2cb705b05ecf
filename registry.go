package acf

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/uplang/acf/internal/logging"
)

// Registry holds open documents by id. Documents read from a stream are
// spooled to a temporary file so they can be saved and watched like any other
// file; Close removes those files.
//
// A Registry is safe for concurrent use. The documents it hands out are not.
type Registry struct {
	mu sync.Mutex

	docs   map[string]*Document
	order  []string
	temps  map[string]string
	opts   []Option
	closed bool
}

// NewRegistry creates an empty registry. opts apply to every document it opens.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		docs:  make(map[string]*Document),
		temps: make(map[string]string),
		opts:  opts,
	}
}

// Open opens the file at path under id, replacing a document already held
// under that id.
func (r *Registry) Open(id, path string) (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRegistryClosed
	}

	doc, err := Open(path, r.opts...)
	if err != nil {
		return nil, err
	}
	r.put(id, doc)
	logging.Debug("Registry", "Opened %s as %s", path, id)
	return doc, nil
}

// OpenReader copies rd into a temporary file and opens it under id.
func (r *Registry) OpenReader(id string, rd io.Reader) (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRegistryClosed
	}

	path := filepath.Join(os.TempDir(), "acf-"+uuid.New().String()+".conf")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create temporary file: %w", err)
	}
	if _, err := io.Copy(f, rd); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("spool %s: %w", id, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("spool %s: %w", id, err)
	}

	doc, err := Open(path, r.opts...)
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	r.put(id, doc)
	r.temps[id] = path
	logging.Debug("Registry", "Spooled %s to %s", id, path)
	return doc, nil
}

// put stores doc under id, dropping the temporary file of a replaced document.
func (r *Registry) put(id string, doc *Document) {
	if _, ok := r.docs[id]; !ok {
		r.order = append(r.order, id)
	}
	r.dropTemp(id)
	r.docs[id] = doc
}

func (r *Registry) dropTemp(id string) {
	path, ok := r.temps[id]
	if !ok {
		return
	}
	delete(r.temps, id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logging.Warn("Registry", "Failed to remove %s: %v", path, err)
	}
}

// Get returns the document held under id.
func (r *Registry) Get(id string) (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRegistryClosed
	}
	doc, ok := r.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, id)
	}
	return doc, nil
}

// IDs returns the ids of the held documents in the order they were opened.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.order)
}

// Remove forgets the document held under id.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDocument, id)
	}
	r.dropTemp(id)
	delete(r.docs, id)
	r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == id })
	return nil
}

// Close forgets every document and removes the temporary files. It may be
// called more than once.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	for id := range r.temps {
		r.dropTemp(id)
	}
	logging.Debug("Registry", "Closed with %d documents", len(r.docs))
	r.docs = make(map[string]*Document)
	r.order = nil
	return nil
}
