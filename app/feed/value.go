package feed

import "strings"

// Value is one decoded XML node. It is exactly one of Scalar, AttributedScalar
// or Sequence.
type Value interface {
	isValue()
}

// Scalar is an element with text only.
type Scalar string

// AttributedScalar is an element carrying attributes or child elements.
type AttributedScalar struct {
	Text     string
	Attrs    map[string]string
	Children map[string]Value
}

// Sequence holds sibling elements sharing a name, in document order.
type Sequence []Value

func (Scalar) isValue()            {}
func (*AttributedScalar) isValue() {}
func (Sequence) isValue()          {}

// Items views v as a sequence. A single element yields a one-element slice.
func Items(v Value) []Value {
	switch n := v.(type) {
	case nil:
		return nil
	case Sequence:
		return n
	default:
		return []Value{n}
	}
}

func first(v Value) Value {
	if seq, ok := v.(Sequence); ok {
		if len(seq) == 0 {
			return nil
		}
		return seq[0]
	}
	return v
}

// Text returns the character data of v, or of its first element for a sequence.
func Text(v Value) string {
	switch n := first(v).(type) {
	case Scalar:
		return string(n)
	case *AttributedScalar:
		return n.Text
	default:
		return ""
	}
}

// Attr returns the named attribute of v, or of its first element for a sequence.
func Attr(v Value, name string) string {
	if n, ok := first(v).(*AttributedScalar); ok {
		return n.Attrs[name]
	}
	return ""
}

// Child returns the named child element, or nil.
func Child(v Value, name string) Value {
	if n, ok := first(v).(*AttributedScalar); ok {
		return n.Children[name]
	}
	return nil
}

// stripCDATA removes a literal CDATA wrapper that survived entity decoding.
func stripCDATA(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<![CDATA[") && strings.HasSuffix(s, "]]>") {
		return strings.TrimSpace(s[len("<![CDATA[") : len(s)-len("]]>")])
	}
	return s
}
