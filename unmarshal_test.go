package acf

import (
	"strings"
	"testing"
)

func TestUnmarshal_Simple(t *testing.T) {
	input := `("main"
	'host' -> "localhost"
	'port' -> 8080
	'enabled' -> true
	'ratio' -> 0,25
)`

	type Config struct {
		Host    string  `acf:"host"`
		Port    int     `acf:"port"`
		Enabled bool    `acf:"enabled"`
		Ratio   float64 `acf:"ratio"`
	}

	var config Config
	err := Unmarshal([]byte(input), &config)
	if err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}

	if config.Host != "localhost" {
		t.Errorf("Expected host 'localhost', got '%s'", config.Host)
	}
	if config.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", config.Port)
	}
	if !config.Enabled {
		t.Errorf("Expected enabled true, got %v", config.Enabled)
	}
	if config.Ratio != 0.25 {
		t.Errorf("Expected ratio 0.25, got %v", config.Ratio)
	}
}

func TestUnmarshal_Nested(t *testing.T) {
	input := `("main"
	'tags' -> {
		'a'
		'b'
	}
	'limits' -> {
		'cpu' -> 2
		'memory' -> "512M"
	}
	'labels' -> {
		'team' -> "ops"
		'tier' -> "web"
	}
	("database"
		'host' -> "db.local"
		'port' -> 5432
		("replica"
			'host' -> "replica.local"
		)
	)
)`

	type Replica struct {
		Host string
	}
	type Config struct {
		Tags   []string
		Limits struct {
			CPU    uint
			Memory string
		}
		Labels   map[string]string
		Database struct {
			Host    string
			Port    int64
			Replica *Replica
		}
		Ignored string `acf:"-"`
		hidden  string
	}

	var config Config
	if err := Unmarshal([]byte(input), &config); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}

	if len(config.Tags) != 2 || config.Tags[0] != "a" || config.Tags[1] != "b" {
		t.Errorf("Expected tags [a b], got %v", config.Tags)
	}
	if config.Limits.CPU != 2 || config.Limits.Memory != "512M" {
		t.Errorf("Unexpected limits %+v", config.Limits)
	}
	if config.Labels["team"] != "ops" || config.Labels["tier"] != "web" {
		t.Errorf("Unexpected labels %v", config.Labels)
	}
	if config.Database.Host != "db.local" || config.Database.Port != 5432 {
		t.Errorf("Unexpected database %+v", config.Database)
	}
	if config.Database.Replica == nil || config.Database.Replica.Host != "replica.local" {
		t.Errorf("Unexpected replica %+v", config.Database.Replica)
	}
	_ = config.hidden
}

func TestUnmarshal_Required(t *testing.T) {
	type Config struct {
		Name string `acf:"name,required"`
	}

	var config Config
	err := Unmarshal([]byte("(\"main\"\n)"), &config)
	if err == nil || !strings.Contains(err.Error(), "required field name") {
		t.Errorf("Expected required field error, got %v", err)
	}
}

func TestUnmarshal_TypeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		into  any
	}{
		{"list into int", "(\"main\"\n'v' -> {\n'a'\n}\n)", &struct{ V int }{}},
		{"text into int", "(\"main\"\n'v' -> \"abc\"\n)", &struct{ V int }{}},
		{"negative into uint", "(\"main\"\n'v' -> -1\n)", &struct{ V uint }{}},
		{"scalar into struct", "(\"main\"\n'v' -> 1\n)", &struct{ V struct{ A int } }{}},
		{"scalar into map", "(\"main\"\n'v' -> 1\n)", &struct{ V map[string]int }{}},
		{"text into bool", "(\"main\"\n'v' -> \"maybe\"\n)", &struct{ V bool }{}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if err := Unmarshal([]byte(test.input), test.into); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestUnmarshal_InvalidTarget(t *testing.T) {
	var notPtr struct{}
	if err := Unmarshal([]byte("(\n)"), notPtr); err == nil {
		t.Error("Expected error for non-pointer target")
	}

	var s string
	if err := Unmarshal([]byte("(\n)"), &s); err == nil {
		t.Error("Expected error for non-struct target")
	}

	if err := Unmarshal([]byte("(\n"), &struct{}{}); err == nil {
		t.Error("Expected parse error")
	}
}

func TestUnmarshal_Conversions(t *testing.T) {
	input := `("main"
	'count' -> "12"
	'flag' -> "yes"
	'single' -> "only"
	'any' -> {
		'x' -> 1
	}
	'price' -> "4,5"
)`

	type Config struct {
		Count  int
		Flag   bool
		Single []string
		Any    any
		Price  float32
	}

	var config Config
	if err := Unmarshal([]byte(input), &config); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	if config.Count != 12 {
		t.Errorf("Expected count 12, got %d", config.Count)
	}
	if !config.Flag {
		t.Error("Expected flag true")
	}
	if len(config.Single) != 1 || config.Single[0] != "only" {
		t.Errorf("Expected [only], got %v", config.Single)
	}
	if m, ok := config.Any.(map[string]any); !ok || m["x"] != int64(1) {
		t.Errorf("Expected map with x=1, got %#v", config.Any)
	}
	if config.Price != 4.5 {
		t.Errorf("Expected price 4.5, got %v", config.Price)
	}
}

func TestDocument_Decode(t *testing.T) {
	doc, err := ParseBytes([]byte("(\"main\"\n\t'a' -> 1\n\t(\"s\"\n\t\t'b' -> \"x\"\n\t)\n)"))
	if err != nil {
		t.Fatalf("ParseBytes() failed: %v", err)
	}

	var root struct{ A int }
	if err := doc.Decode(&root); err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if root.A != 1 {
		t.Errorf("Expected a 1, got %d", root.A)
	}

	var sub struct{ B string }
	if err := doc.Section("s").Decode(&sub); err != nil {
		t.Fatalf("Section.Decode() failed: %v", err)
	}
	if sub.B != "x" {
		t.Errorf("Expected b 'x', got %q", sub.B)
	}
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"true", "YES", "1", "on"} {
		if b, err := parseBool(s); err != nil || !b {
			t.Errorf("parseBool(%s) = %v, %v", s, b, err)
		}
	}
	for _, s := range []string{"false", "No", "0", "off"} {
		if b, err := parseBool(s); err != nil || b {
			t.Errorf("parseBool(%s) = %v, %v", s, b, err)
		}
	}
	if _, err := parseBool("maybe"); err == nil {
		t.Error("parseBool(maybe): expected error")
	}
}
