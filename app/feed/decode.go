package feed

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

type Family string

const (
	FamilyRSS     Family = "RSS"
	FamilyAtom    Family = "Atom"
	FamilyJSON    Family = "JSON"
	FamilyUnknown Family = ""
)

// Decode parses an XML feed into a tree of Values. Element and attribute names
// keep their literal prefixes ("media:content", "itunes:image").
func Decode(data []byte) (*Document, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Strict = false
	decoder.AutoClose = xml.HTMLAutoClose
	decoder.Entity = xml.HTMLEntity
	decoder.CharsetReader = charset.NewReaderLabel

	type frame struct {
		name     string
		text     strings.Builder
		attrs    map[string]string
		children map[string]Value
	}

	var stack []*frame
	var root *Document

	for {
		tok, err := decoder.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if root != nil {
				break
			}
			return nil, fmt.Errorf("failed to decode feed XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			f := &frame{name: qualified(t.Name)}
			for _, a := range t.Attr {
				if f.attrs == nil {
					f.attrs = make(map[string]string)
				}
				f.attrs[qualified(a.Name)] = a.Value
			}
			stack = append(stack, f)

		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}

		case xml.EndElement:
			name := qualified(t.Name)
			// Unwind to the matching start element; stray end tags are ignored.
			idx := -1
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i].name == name {
					idx = i
					break
				}
			}
			if idx < 0 {
				continue
			}

			for len(stack) > idx {
				f := stack[len(stack)-1]
				stack = stack[:len(stack)-1]

				var v Value
				if f.attrs == nil && f.children == nil {
					v = Scalar(strings.TrimSpace(f.text.String()))
				} else {
					v = &AttributedScalar{
						Text:     strings.TrimSpace(f.text.String()),
						Attrs:    f.attrs,
						Children: f.children,
					}
				}

				if len(stack) == 0 {
					root = &Document{Root: f.name, Value: v}
					continue
				}

				parent := stack[len(stack)-1]
				if parent.children == nil {
					parent.children = make(map[string]Value)
				}
				parent.children[f.name] = appendValue(parent.children[f.name], v)
			}
		}
	}

	if root == nil {
		return nil, errors.New("failed to decode feed XML: no root element")
	}

	return root, nil
}

func appendValue(existing, v Value) Value {
	switch e := existing.(type) {
	case nil:
		return v
	case Sequence:
		return append(e, v)
	default:
		return Sequence{e, v}
	}
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
