package acf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/uplang/acf/internal/logging"
)

// Merge strategies for keyed lists present in both document and template.
const (
	MergeDeep    = "deep"
	MergeShallow = "shallow"
)

// List strategies for simple lists present in both document and template.
const (
	ListKeep   = "keep"
	ListUnique = "unique"
)

// TemplateEngine reconciles documents with a template of defaults.
type TemplateEngine struct {
	options  TemplateOptions
	raw      []byte
	template *Store
}

// TemplateOptions configures template reconciliation
type TemplateOptions struct {
	MergeStrategy string // "deep", "shallow"
	ListStrategy  string // "keep", "unique"
}

// NewTemplateEngine parses the template document.
func NewTemplateEngine(template []byte) (*TemplateEngine, error) {
	store, err := NewParser().WithSource("<defaults>").ParseBytes(template)
	if err != nil {
		return nil, fmt.Errorf("parse defaults: %w", err)
	}
	return &TemplateEngine{
		options: TemplateOptions{
			MergeStrategy: MergeDeep,
			ListStrategy:  ListKeep,
		},
		raw:      template,
		template: store,
	}, nil
}

// WithOptions sets template options
func (e *TemplateEngine) WithOptions(opts TemplateOptions) *TemplateEngine {
	e.options = opts
	return e
}

// Reconcile brings store in line with the template and reports whether
// anything changed. Missing paths are copied from the template. When the
// types diverge the template wins; when they match the store keeps its own
// value. Paths missing from the template are left alone.
func (e *TemplateEngine) Reconcile(store *Store) bool {
	changed := false
	for _, path := range e.template.Paths() {
		want := e.template.Get(path)
		cur := store.Get(path)

		if cur == nil || !cur.IsValid() || !sameType(cur, want) {
			logging.Debug("Template", "Taking default for %s", path)
			setLinked(store, path, want.Copy(), e.template.IsRecursive(path))
			changed = true
			continue
		}

		merged := e.mergeValues(cur, want)
		if !merged.Equal(cur) {
			setLinked(store, path, merged, store.IsRecursive(path))
			changed = true
		}
	}
	return changed
}

func setLinked(store *Store, path string, e Element, recursive bool) {
	if recursive {
		store.SetRecursive(path, e)
	} else {
		store.Set(path, e)
	}
}

// sameType reports whether two elements share a variant and, for scalars,
// the same class of value. All numeric types form one class.
func sameType(a, b Element) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	sa, ok := a.(Scalar)
	if !ok {
		return true
	}
	sb := b.(Scalar)
	if sa.typ.IsNumber() && sb.typ.IsNumber() {
		return true
	}
	return sa.typ == sb.typ
}

// mergeValues merges a template value into a current value of the same type
// according to merge strategy
func (e *TemplateEngine) mergeValues(cur, want Element) Element {
	switch c := cur.(type) {
	case *KeyedList:
		if e.options.MergeStrategy != MergeDeep {
			return cur
		}
		return e.mergeKeyed(c, want.(*KeyedList))
	case *List:
		if e.options.ListStrategy == ListUnique {
			return uniqueList(c, want.(*List))
		}
		return cur
	default:
		return cur
	}
}

// mergeKeyed adds template entries missing from cur and replaces entries
// whose type diverges, recursing into nested keyed lists.
func (e *TemplateEngine) mergeKeyed(cur, want *KeyedList) *KeyedList {
	out := cur.Copy().(*KeyedList)
	for _, key := range want.keys {
		tv := want.entries[key]
		cv := out.Get(key)
		switch {
		case cv == nil || !sameType(cv, tv):
			if want.IsRecursive(key) {
				out.SetRecursive(key, tv.Copy())
			} else {
				out.Set(key, tv.Copy())
			}
		default:
			merged := e.mergeValues(cv, tv)
			if merged.Equal(cv) {
				continue
			}
			if out.IsRecursive(key) {
				out.SetRecursive(key, merged)
			} else {
				out.Set(key, merged)
			}
		}
	}
	return out
}

// uniqueList appends template items missing from cur.
func uniqueList(cur, want *List) *List {
	out := cur.Copy().(*List)
	for _, item := range want.items {
		found := false
		for _, existing := range out.items {
			if existing != nil && existing.Equal(item) {
				found = true
				break
			}
		}
		if !found {
			out.Append(item.Copy())
		}
	}
	return out
}

// Validate reconciles the document with the template given by WithDefaults.
// A missing backing file is created from the template verbatim. It reports
// whether the document changed.
func (d *Document) Validate() (bool, error) {
	if d.defaults == nil {
		return false, nil
	}
	engine, err := NewTemplateEngine(d.defaults)
	if err != nil {
		return false, err
	}
	return d.ValidateWith(engine)
}

// ValidateWith reconciles the document with engine's template and saves the
// result when anything changed.
func (d *Document) ValidateWith(engine *TemplateEngine) (bool, error) {
	if d.path != "" {
		if _, err := os.Stat(d.path); errors.Is(err, fs.ErrNotExist) {
			if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
				return false, fmt.Errorf("create directory for %s: %w", d.path, err)
			}
			if err := os.WriteFile(d.path, engine.raw, 0o644); err != nil {
				return false, fmt.Errorf("write %s: %w", d.path, err)
			}
			logging.Info("Template", "Created %s from defaults", d.path)
			return true, d.Reload()
		}
	}

	store := d.ensure()
	if !engine.Reconcile(store) {
		return false, nil
	}
	if d.path == "" {
		return true, nil
	}
	if err := d.SaveTo(d.path); err != nil {
		return true, err
	}
	logging.Info("Template", "Updated %s with defaults", d.path)
	return true, nil
}
