// Package acf implements the ACF (Arrow Configuration Format) engine: a
// hierarchical configuration format built from sections, scalar bindings,
// simple lists, keyed lists, comments and bidirectional "recursive" links.
//
// Documents are parsed into a Store of dotted paths rooted at "main" and can be
// written back without disturbing comments, ordering or untouched sections.
package acf

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the variant of an Element.
type Kind int

const (
	KindScalar Kind = iota + 1
	KindList
	KindKeyedList
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	case KindKeyedList:
		return "keyed list"
	default:
		return "unknown"
	}
}

// Element is a value node of a document.
type Element interface {
	// Kind reports the variant.
	Kind() Kind
	// IsValid reports whether the element holds no null parts.
	IsValid() bool
	// Copy returns a deep copy.
	Copy() Element
	// Upper returns a copy with every text value upper-cased.
	Upper() Element
	// Lower returns a copy with every text value lower-cased.
	Lower() Element
	// Equal reports whether other holds the same value.
	Equal(other Element) bool
	// String renders the element on a single line.
	String() string
}

// ScalarType tells which value a Scalar holds.
type ScalarType int

const (
	TypeNone ScalarType = iota
	TypeText
	TypeInteger
	TypeFloat
	// TypeDecimal is a float read from the legacy comma notation ("3,5").
	TypeDecimal
	TypeBool
)

func (t ScalarType) String() string {
	switch t {
	case TypeText:
		return "text"
	case TypeInteger:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeDecimal:
		return "decimal"
	case TypeBool:
		return "boolean"
	default:
		return "none"
	}
}

// IsNumber reports whether t is one of the numeric types.
func (t ScalarType) IsNumber() bool {
	return t == TypeInteger || t == TypeFloat || t == TypeDecimal
}

// Scalar holds exactly one text, number or boolean. The zero Scalar holds
// nothing and is not valid.
type Scalar struct {
	typ  ScalarType
	text string
	i    int64
	f    float64
	b    bool
}

// Text returns a text scalar.
func Text(s string) Scalar { return Scalar{typ: TypeText, text: s} }

// Int returns an integer scalar.
func Int(i int64) Scalar { return Scalar{typ: TypeInteger, i: i} }

// Float returns a float scalar.
func Float(f float64) Scalar { return Scalar{typ: TypeFloat, f: f} }

// Decimal returns a decimal scalar.
func Decimal(f float64) Scalar { return Scalar{typ: TypeDecimal, f: f} }

// Bool returns a boolean scalar.
func Bool(b bool) Scalar { return Scalar{typ: TypeBool, b: b} }

func (s Scalar) Kind() Kind { return KindScalar }

// Type reports which value the scalar holds.
func (s Scalar) Type() ScalarType { return s.typ }

func (s Scalar) IsText() bool   { return s.typ == TypeText }
func (s Scalar) IsNumber() bool { return s.typ.IsNumber() }
func (s Scalar) IsBool() bool   { return s.typ == TypeBool }

func (s Scalar) IsValid() bool { return s.typ != TypeNone }

// Str returns the text value, or the plain rendering of a number or boolean.
func (s Scalar) Str() string {
	switch s.typ {
	case TypeText:
		return s.text
	case TypeInteger:
		return strconv.FormatInt(s.i, 10)
	case TypeFloat, TypeDecimal:
		return formatFloat(s.f)
	case TypeBool:
		return strconv.FormatBool(s.b)
	default:
		return ""
	}
}

// Int64 returns the value as an integer. Floats are truncated.
func (s Scalar) Int64() (int64, bool) {
	switch s.typ {
	case TypeInteger:
		return s.i, true
	case TypeFloat, TypeDecimal:
		return int64(s.f), true
	default:
		return 0, false
	}
}

// Float64 returns the value of any numeric scalar.
func (s Scalar) Float64() (float64, bool) {
	switch s.typ {
	case TypeInteger:
		return float64(s.i), true
	case TypeFloat, TypeDecimal:
		return s.f, true
	default:
		return 0, false
	}
}

// Boolean returns the value of a boolean scalar.
func (s Scalar) Boolean() (bool, bool) {
	return s.b, s.typ == TypeBool
}

// Value returns the held value as string, int64, float64 or bool.
func (s Scalar) Value() any {
	switch s.typ {
	case TypeText:
		return s.text
	case TypeInteger:
		return s.i
	case TypeFloat, TypeDecimal:
		return s.f
	case TypeBool:
		return s.b
	default:
		return nil
	}
}

func (s Scalar) Copy() Element { return s }

func (s Scalar) Upper() Element {
	if s.typ == TypeText {
		return Text(strings.ToUpper(s.text))
	}
	return s
}

func (s Scalar) Lower() Element {
	if s.typ == TypeText {
		return Text(strings.ToLower(s.text))
	}
	return s
}

// Equal compares by value. Integers, floats and decimals are equal when
// numerically equal.
func (s Scalar) Equal(other Element) bool {
	o, ok := other.(Scalar)
	if !ok {
		return false
	}
	if s.typ.IsNumber() && o.typ.IsNumber() {
		if s.typ == TypeInteger && o.typ == TypeInteger {
			return s.i == o.i
		}
		a, _ := s.Float64()
		b, _ := o.Float64()
		return a == b
	}
	if s.typ != o.typ {
		return false
	}
	switch s.typ {
	case TypeText:
		return s.text == o.text
	case TypeBool:
		return s.b == o.b
	default:
		return true
	}
}

// String renders text quoted and numbers or booleans plain.
func (s Scalar) String() string {
	if s.typ == TypeText {
		q, err := quoteText(s.text, '"')
		if err != nil {
			return `"` + s.text + `"`
		}
		return q
	}
	return s.Str()
}

// AsScalar returns e as a Scalar or a *TypeError.
func AsScalar(e Element) (Scalar, error) {
	s, ok := e.(Scalar)
	if !ok {
		return Scalar{}, &TypeError{Want: KindScalar, Got: kindOf(e)}
	}
	return s, nil
}

// AsList returns e as a *List or a *TypeError.
func AsList(e Element) (*List, error) {
	l, ok := e.(*List)
	if !ok || l == nil {
		return nil, &TypeError{Want: KindList, Got: kindOf(e)}
	}
	return l, nil
}

// AsKeyedList returns e as a *KeyedList or a *TypeError.
func AsKeyedList(e Element) (*KeyedList, error) {
	k, ok := e.(*KeyedList)
	if !ok || k == nil {
		return nil, &TypeError{Want: KindKeyedList, Got: kindOf(e)}
	}
	return k, nil
}

func kindOf(e Element) Kind {
	if e == nil {
		return 0
	}
	return e.Kind()
}

// formatFloat renders f with a '.' and at least one fractional digit so the
// result reads back as a float.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}

// quoteText wraps s in the preferred quote, falling back to the other quote
// when s contains the preferred one. Text holding both quotes or a line break
// cannot be written.
func quoteText(s string, prefer byte) (string, error) {
	if strings.ContainsAny(s, "\r\n") {
		return "", fmt.Errorf("%w: text %q contains a line break", ErrUnencodable, s)
	}
	other := byte('\'')
	if prefer == '\'' {
		other = '"'
	}
	switch {
	case strings.IndexByte(s, prefer) < 0:
		return string(prefer) + s + string(prefer), nil
	case strings.IndexByte(s, other) < 0:
		return string(other) + s + string(other), nil
	default:
		return "", fmt.Errorf("%w: text %q contains both quote characters", ErrUnencodable, s)
	}
}

// valueKey is a canonical encoding consistent with Equal, used to index
// recursive links by value.
func valueKey(e Element) string {
	var b strings.Builder
	writeValueKey(&b, e)
	return b.String()
}

func writeValueKey(b *strings.Builder, e Element) {
	switch v := e.(type) {
	case Scalar:
		switch {
		case v.typ == TypeText:
			b.WriteString("t:")
			b.WriteString(strconv.Quote(v.text))
		case v.typ.IsNumber():
			f, _ := v.Float64()
			b.WriteString("n:")
			if v.typ == TypeInteger {
				b.WriteString(strconv.FormatInt(v.i, 10))
			} else if f == math.Trunc(f) && math.Abs(f) < 1e18 {
				b.WriteString(strconv.FormatInt(int64(f), 10))
			} else {
				b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
			}
		case v.typ == TypeBool:
			b.WriteString("b:")
			b.WriteString(strconv.FormatBool(v.b))
		default:
			b.WriteString("z:")
		}
	case *List:
		b.WriteString("[")
		for i, item := range v.items {
			if i > 0 {
				b.WriteString(",")
			}
			writeValueKey(b, item)
		}
		b.WriteString("]")
	case *KeyedList:
		if len(v.keys) == 0 {
			b.WriteString("[]")
			return
		}
		b.WriteString("{")
		for i, k := range v.keys {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(strconv.Quote(k))
			if v.IsRecursive(k) {
				b.WriteString("<->")
			} else {
				b.WriteString("->")
			}
			writeValueKey(b, v.entries[k])
		}
		b.WriteString("}")
	default:
		b.WriteString("nil")
	}
}
