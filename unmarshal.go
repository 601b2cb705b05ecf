package acf

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Unmarshal parses an ACF document and stores the root section in the value
// pointed to by v. If v is not a pointer to a struct, Unmarshal returns an error.
//
// Unmarshal uses struct tags to determine how to map ACF keys to struct fields:
//   - `acf:"fieldname"` - maps ACF key "fieldname" to this struct field
//   - `acf:"fieldname,required"` - fails when the key is not set
//   - `acf:"-"` - ignores this field
//
// Nested structs are filled from subsections or keyed lists, slices from
// simple lists and maps from keyed lists or sections.
//
// Example:
//
//	type Config struct {
//	    Host    string   `acf:"host"`
//	    Port    int      `acf:"port"`
//	    Enabled bool     `acf:"enabled"`
//	    Tags    []string `acf:"tags"`
//	    Database struct {
//	        Host string `acf:"host"`
//	        Port int    `acf:"port"`
//	    } `acf:"database"`
//	}
func Unmarshal(data []byte, v any) error {
	store, err := NewParser().ParseBytes(data)
	if err != nil {
		return err
	}
	return decode(&Section{store: store, path: RootSection}, v)
}

// Decode stores the root section in the struct pointed to by v.
func (d *Document) Decode(v any) error {
	return decode(&Section{store: d.ensure(), path: RootSection}, v)
}

// Decode stores the section in the struct pointed to by v.
func (s *Section) Decode(v any) error {
	return decode(s, v)
}

func decode(s *Section, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("unmarshal target must be a non-nil pointer")
	}

	elem := rv.Elem()
	if elem.Kind() != reflect.Struct {
		return fmt.Errorf("unmarshal target must be a pointer to struct")
	}

	return unmarshalStruct(sectionSource{s}, elem)
}

// fieldSource resolves struct field names to values: an Element or a
// *Section.
type fieldSource interface {
	lookup(name string) (any, bool)
}

type sectionSource struct{ s *Section }

func (src sectionSource) lookup(name string) (any, bool) {
	if e := src.s.Get(name); e != nil {
		return e, true
	}
	if sub := src.s.Section(name); sub != nil {
		return sub, true
	}
	return nil, false
}

type keyedSource struct{ k *KeyedList }

func (src keyedSource) lookup(name string) (any, bool) {
	e := src.k.Get(name)
	return e, e != nil
}

// unmarshalStruct fills a struct value from src
func unmarshalStruct(src fieldSource, v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)

		// Skip unexported fields
		if !fieldValue.CanSet() {
			continue
		}

		tag := field.Tag.Get("acf")
		if tag == "-" {
			continue
		}

		tagName, opts := parseTag(tag)
		if tagName == "" {
			tagName = strings.ToLower(field.Name)
		}

		value, ok := src.lookup(tagName)
		if !ok {
			if hasOption(opts, "required") {
				return fmt.Errorf("required field %s not found", tagName)
			}
			continue
		}

		if err := setField(fieldValue, value); err != nil {
			return fmt.Errorf("field %s: %v", field.Name, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from an Element or *Section
func setField(field reflect.Value, value any) error {
	if value == nil {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		return setString(field, value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return setInt(field, value)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return setUint(field, value)
	case reflect.Float32, reflect.Float64:
		return setFloat(field, value)
	case reflect.Bool:
		return setBool(field, value)
	case reflect.Slice:
		return setSlice(field, value)
	case reflect.Map:
		return setMap(field, value)
	case reflect.Struct:
		return setStruct(field, value)
	case reflect.Ptr:
		return setPointer(field, value)
	case reflect.Interface:
		pv := plainValue(value)
		if pv == nil {
			return nil
		}
		rv := reflect.ValueOf(pv)
		if !rv.Type().AssignableTo(field.Type()) {
			return fmt.Errorf("cannot assign %s to %s", rv.Type(), field.Type())
		}
		field.Set(rv)
		return nil
	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
}

func scalarOf(value any) (Scalar, error) {
	s, ok := value.(Scalar)
	if !ok {
		return Scalar{}, fmt.Errorf("cannot convert %s to scalar", describe(value))
	}
	return s, nil
}

func describe(value any) string {
	switch v := value.(type) {
	case Element:
		return v.Kind().String()
	case *Section:
		return "section"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func setString(field reflect.Value, value any) error {
	s, err := scalarOf(value)
	if err != nil {
		return err
	}
	field.SetString(s.Str())
	return nil
}

func setInt(field reflect.Value, value any) error {
	s, err := scalarOf(value)
	if err != nil {
		return err
	}
	if i, ok := s.Int64(); ok {
		field.SetInt(i)
		return nil
	}
	if s.IsText() {
		i, err := strconv.ParseInt(s.Str(), 10, 64)
		if err != nil {
			return fmt.Errorf("cannot parse as int: %v", err)
		}
		field.SetInt(i)
		return nil
	}
	return fmt.Errorf("cannot convert %s to int", s.Type())
}

func setUint(field reflect.Value, value any) error {
	s, err := scalarOf(value)
	if err != nil {
		return err
	}
	if i, ok := s.Int64(); ok {
		if i < 0 {
			return fmt.Errorf("cannot convert negative %d to uint", i)
		}
		field.SetUint(uint64(i))
		return nil
	}
	if s.IsText() {
		u, err := strconv.ParseUint(s.Str(), 10, 64)
		if err != nil {
			return fmt.Errorf("cannot parse as uint: %v", err)
		}
		field.SetUint(u)
		return nil
	}
	return fmt.Errorf("cannot convert %s to uint", s.Type())
}

func setFloat(field reflect.Value, value any) error {
	s, err := scalarOf(value)
	if err != nil {
		return err
	}
	if f, ok := s.Float64(); ok {
		field.SetFloat(f)
		return nil
	}
	if s.IsText() {
		f, err := strconv.ParseFloat(strings.Replace(s.Str(), ",", ".", 1), 64)
		if err != nil {
			return fmt.Errorf("cannot parse as float: %v", err)
		}
		field.SetFloat(f)
		return nil
	}
	return fmt.Errorf("cannot convert %s to float", s.Type())
}

func setBool(field reflect.Value, value any) error {
	s, err := scalarOf(value)
	if err != nil {
		return err
	}
	if b, ok := s.Boolean(); ok {
		field.SetBool(b)
		return nil
	}
	if s.IsText() {
		b, err := parseBool(s.Str())
		if err != nil {
			return fmt.Errorf("cannot parse as bool: %v", err)
		}
		field.SetBool(b)
		return nil
	}
	return fmt.Errorf("cannot convert %s to bool", s.Type())
}

func setSlice(field reflect.Value, value any) error {
	switch v := value.(type) {
	case *List:
		slice := reflect.MakeSlice(field.Type(), len(v.items), len(v.items))
		for i, item := range v.items {
			if err := setField(slice.Index(i), item); err != nil {
				return fmt.Errorf("index %d: %v", i, err)
			}
		}
		field.Set(slice)
	case Scalar:
		// A lone scalar decodes as a one-element slice.
		slice := reflect.MakeSlice(field.Type(), 1, 1)
		if err := setField(slice.Index(0), v); err != nil {
			return fmt.Errorf("index 0: %v", err)
		}
		field.Set(slice)
	default:
		return fmt.Errorf("cannot convert %s to slice", describe(value))
	}
	return nil
}

func setMap(field reflect.Value, value any) error {
	if field.Type().Key().Kind() != reflect.String {
		return fmt.Errorf("map key must be string, got %s", field.Type().Key())
	}
	m := reflect.MakeMap(field.Type())
	put := func(key string, val any) error {
		elemValue := reflect.New(field.Type().Elem()).Elem()
		if err := setField(elemValue, val); err != nil {
			return fmt.Errorf("key %s: %v", key, err)
		}
		m.SetMapIndex(reflect.ValueOf(key).Convert(field.Type().Key()), elemValue)
		return nil
	}

	switch v := value.(type) {
	case *KeyedList:
		for _, key := range v.keys {
			if err := put(key, v.entries[key]); err != nil {
				return err
			}
		}
	case *Section:
		for _, key := range v.Keys() {
			if err := put(key, v.Get(key)); err != nil {
				return err
			}
		}
		for _, name := range v.Sections() {
			if err := put(name, v.Section(name)); err != nil {
				return err
			}
		}
	case *List:
		// {} reads back as an empty simple list.
		if v.Len() != 0 {
			return fmt.Errorf("cannot convert %s to map", describe(value))
		}
	default:
		return fmt.Errorf("cannot convert %s to map", describe(value))
	}
	field.Set(m)
	return nil
}

func setStruct(field reflect.Value, value any) error {
	switch v := value.(type) {
	case *Section:
		return unmarshalStruct(sectionSource{v}, field)
	case *KeyedList:
		return unmarshalStruct(keyedSource{v}, field)
	default:
		return fmt.Errorf("cannot convert %s to struct", describe(value))
	}
}

func setPointer(field reflect.Value, value any) error {
	if value == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}

	// Create new pointer
	ptr := reflect.New(field.Type().Elem())
	if err := setField(ptr.Elem(), value); err != nil {
		return err
	}
	field.Set(ptr)
	return nil
}

// Helper functions

func parseTag(tag string) (string, []string) {
	parts := strings.Split(tag, ",")
	if len(parts) == 0 {
		return "", nil
	}
	return parts[0], parts[1:]
}

func hasOption(opts []string, option string) bool {
	for _, opt := range opts {
		if opt == option {
			return true
		}
	}
	return false
}

func parseBool(s string) (bool, error) {
	s = strings.ToLower(s)
	switch s {
	case "true", "yes", "1", "on":
		return true, nil
	case "false", "no", "0", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value: %s", s)
	}
}
