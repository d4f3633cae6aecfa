package feed

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/raine/catalog-feed-import/internal/textutil"
)

// ErrNestedElement is returned when an element contains another element of
// the same name. The flat scanner cannot pair such tags correctly, so the
// document is rejected instead of being misread.
var ErrNestedElement = errors.New("nested element")

var reAttr = regexp.MustCompile(`([A-Za-z_:][-A-Za-z0-9_:.]*)\s*=\s*"([^"]*)"`)

// Attr is a single key="value" attribute.
type Attr struct {
	Key   string
	Value string
}

// Element is one occurrence of a tag: its attributes and raw inner content.
type Element struct {
	Name  string
	Attrs []Attr
	Inner string

	start, end int
}

// Attr returns the cleaned value of the named attribute or "" when absent.
func (e Element) Attr(key string) string {
	for _, a := range e.Attrs {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

// Text returns the cleaned inner text of the element.
func (e Element) Text() string {
	return cleanText(e.Inner)
}

// Elements returns every top-level occurrence of name in doc, in document
// order. Matching is case-sensitive and flat: an element runs from its
// opening tag to the nearest following closing tag of the same name. Self
// closing tags yield an element with empty content. An unterminated final
// element is ignored.
func Elements(doc, name string) ([]Element, error) {
	var out []Element
	open := "<" + name
	closing := "</" + name + ">"

	pos := 0
	for pos < len(doc) {
		start := indexOpenTag(doc, open, pos)
		if start < 0 {
			break
		}
		headEnd := strings.IndexByte(doc[start:], '>')
		if headEnd < 0 {
			break
		}
		headEnd += start
		head := doc[start+len(open) : headEnd]

		if strings.HasSuffix(head, "/") {
			out = append(out, Element{
				Name:  name,
				Attrs: parseAttrs(strings.TrimSuffix(head, "/")),
				start: start,
				end:   headEnd + 1,
			})
			pos = headEnd + 1
			continue
		}

		contentStart := headEnd + 1
		rel := strings.Index(doc[contentStart:], closing)
		if rel < 0 {
			break
		}
		inner := doc[contentStart : contentStart+rel]
		if indexOpenTag(inner, open, 0) >= 0 {
			return nil, fmt.Errorf("%w: <%s> at offset %d", ErrNestedElement, name, start)
		}

		end := contentStart + rel + len(closing)
		out = append(out, Element{
			Name:  name,
			Attrs: parseAttrs(head),
			Inner: inner,
			start: start,
			end:   end,
		})
		pos = end
	}
	return out, nil
}

// First returns the first occurrence of name in doc.
func First(doc, name string) (Element, bool, error) {
	elements, err := Elements(doc, name)
	if err != nil || len(elements) == 0 {
		return Element{}, false, err
	}
	return elements[0], true, nil
}

// Text returns the cleaned inner text of the first occurrence of name, or ""
// when the element is missing or empty.
func Text(doc, name string) (string, error) {
	el, ok, err := First(doc, name)
	if err != nil || !ok {
		return "", err
	}
	return el.Text(), nil
}

// Without removes every occurrence of the named elements from doc.
func Without(doc string, names ...string) (string, error) {
	for _, name := range names {
		elements, err := Elements(doc, name)
		if err != nil {
			return "", err
		}
		if len(elements) == 0 {
			continue
		}
		var b strings.Builder
		b.Grow(len(doc))
		last := 0
		for _, el := range elements {
			b.WriteString(doc[last:el.start])
			last = el.end
		}
		b.WriteString(doc[last:])
		doc = b.String()
	}
	return doc, nil
}

// indexOpenTag finds open ("<NAME") at or after pos where the name is
// followed by whitespace, '>' or '/', so <IMAGE does not match <IMAGES.
func indexOpenTag(doc, open string, pos int) int {
	for pos < len(doc) {
		i := strings.Index(doc[pos:], open)
		if i < 0 {
			return -1
		}
		i += pos
		next := i + len(open)
		if next >= len(doc) {
			return -1
		}
		switch doc[next] {
		case '>', '/', ' ', '\t', '\n', '\r':
			return i
		}
		pos = next
	}
	return -1
}

func parseAttrs(head string) []Attr {
	matches := reAttr.FindAllStringSubmatch(head, -1)
	if len(matches) == 0 {
		return nil
	}
	attrs := make([]Attr, 0, len(matches))
	for _, m := range matches {
		attrs = append(attrs, Attr{Key: m[1], Value: textutil.Clean(m[2])})
	}
	return attrs
}

func cleanText(s string) string {
	if strings.Contains(s, "<![CDATA[") {
		s = strings.ReplaceAll(s, "<![CDATA[", "")
		s = strings.ReplaceAll(s, "]]>", "")
	}
	return textutil.Clean(s)
}
