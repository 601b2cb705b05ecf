package acf

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseExampleFiles(t *testing.T) {
	examplesDir := "testdata"

	examples := []string{
		"basic.acf",
		"full.acf",
		"defaults.acf",
	}

	for _, example := range examples {
		path := filepath.Join(examplesDir, example)
		t.Run(example, func(t *testing.T) {
			content, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("Failed to read %s: %v", path, err)
			}

			store, err := NewParser().WithSource(path).ParseBytes(content)
			if err != nil {
				t.Fatalf("Failed to parse %s: %v", example, err)
			}

			// An untouched store patches back to the exact input.
			patched, err := NewWriter().Write(store, content)
			if err != nil {
				t.Fatalf("Write() failed for %s: %v", example, err)
			}
			if string(patched) != string(content) {
				t.Errorf("Patch of unchanged %s altered it:\n%s", example, patched)
			}

			// A fresh rendering reads back to the same document.
			fresh, err := NewWriter().Write(store, nil)
			if err != nil {
				t.Fatalf("Write() failed for %s: %v", example, err)
			}
			again, err := NewParser().ParseBytes(fresh)
			if err != nil {
				t.Fatalf("Fresh rendering of %s does not parse: %v\n%s", example, err, fresh)
			}
			if !store.Equal(again) {
				t.Errorf("Fresh rendering of %s changed the document:\n%s", example, fresh)
			}

			t.Logf("Successfully parsed %s with %d bindings", example, store.Len())
		})
	}
}

func TestFullExample(t *testing.T) {
	doc, err := Open(filepath.Join("testdata", "full.acf"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	checks := []struct {
		path string
		want Element
	}{
		{"name", Text("demo")},
		{"port", Int(8080)},
		{"ratio", Float(0.75)},
		{"legacy", Decimal(3.5)},
		{"enabled", Bool(true)},
		{"motd", Text("Welcome */ not a comment")},
		{"admin", Text("root")},
		{"tags", TextList("web", "api")},
		{"empty", NewList()},
		{"database.host", Text("localhost")},
		{"database.port", Int(5432)},
		{"database.replica.host", Text("replica.local")},
	}
	for _, check := range checks {
		got := doc.Get(check.path)
		if got == nil || !got.Equal(check.want) {
			t.Errorf("%s: expected %v, got %v", check.path, check.want, got)
		}
	}

	if got := doc.Get("legacy").(Scalar).Type(); got != TypeDecimal {
		t.Errorf("legacy: expected decimal, got %s", got)
	}
	if !doc.IsRecursive("admin") {
		t.Error("admin: expected recursive link")
	}

	limits, err := doc.GetKeyedList("limits")
	if err != nil {
		t.Fatalf("GetKeyedList(limits) failed: %v", err)
	}
	if !limits.IsRecursive("owner") {
		t.Error("limits.owner: expected recursive link")
	}

	if doc.Section("cache") != nil {
		t.Error("cache: an empty section has no view")
	}
	if got := doc.Section("database").Sections(); len(got) != 1 || got[0] != "replica" {
		t.Errorf("database: expected subsection replica, got %v", got)
	}
}
