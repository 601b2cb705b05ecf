package acf

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ToMap converts the document into nested maps: sections and keyed lists
// become map[string]any, simple lists []any and scalars their plain value.
func (d *Document) ToMap() map[string]any {
	return (&Section{store: d.ensure(), path: RootSection}).ToMap()
}

// ToMap converts the section the way Document.ToMap does.
func (s *Section) ToMap() map[string]any {
	out := make(map[string]any)
	for _, key := range s.Keys() {
		out[key] = plainValue(s.Get(key))
	}
	for _, name := range s.Sections() {
		out[name] = s.Section(name).ToMap()
	}
	return out
}

// plainValue converts an Element or *Section into Go values.
func plainValue(v any) any {
	switch e := v.(type) {
	case Scalar:
		return e.Value()
	case *List:
		out := make([]any, len(e.items))
		for i, item := range e.items {
			out[i] = plainValue(item)
		}
		return out
	case *KeyedList:
		out := make(map[string]any, len(e.keys))
		for _, key := range e.keys {
			out[key] = plainValue(e.entries[key])
		}
		return out
	case *Section:
		return e.ToMap()
	default:
		return nil
	}
}

// MarshalYAML implements yaml.Marshaler. The document becomes a mapping
// that keeps key order.
func (d *Document) MarshalYAML() (any, error) {
	return sectionNode(&Section{store: d.ensure(), path: RootSection})
}

// EncodeYAML writes the document as YAML to w.
func (d *Document) EncodeYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// MarshalJSON renders the document as a JSON object. Object keys come out
// sorted.
func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.ToMap())
}

func sectionNode(s *Section) (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range s.Keys() {
		value, err := elementNode(s.Get(key))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.child(key), err)
		}
		node.Content = append(node.Content, keyNode(key), value)
	}
	for _, name := range s.Sections() {
		value, err := sectionNode(s.Section(name))
		if err != nil {
			return nil, err
		}
		node.Content = append(node.Content, keyNode(name), value)
	}
	return node, nil
}

func keyNode(key string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
}

func elementNode(e Element) (*yaml.Node, error) {
	switch v := e.(type) {
	case Scalar:
		return scalarNode(v)
	case *List:
		node := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range v.items {
			child, err := elementNode(item)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, child)
		}
		return node, nil
	case *KeyedList:
		node := &yaml.Node{Kind: yaml.MappingNode}
		for _, key := range v.keys {
			child, err := elementNode(v.entries[key])
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, keyNode(key), child)
		}
		return node, nil
	default:
		return nil, fmt.Errorf("%w: nil element", ErrUnencodable)
	}
}

func scalarNode(s Scalar) (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.ScalarNode}
	switch s.typ {
	case TypeText:
		node.Tag, node.Value = "!!str", s.text
	case TypeInteger:
		node.Tag, node.Value = "!!int", strconv.FormatInt(s.i, 10)
	case TypeFloat, TypeDecimal:
		node.Tag, node.Value = "!!float", formatFloat(s.f)
	case TypeBool:
		node.Tag, node.Value = "!!bool", strconv.FormatBool(s.b)
	default:
		return nil, fmt.Errorf("%w: empty scalar", ErrUnencodable)
	}
	return node, nil
}
