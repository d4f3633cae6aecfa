package feed

import (
	"math"
	"strconv"
	"strings"

	"github.com/raine/catalog-feed-import/internal/textutil"
)

var (
	truthy = map[string]bool{"1": true, "true": true, "yes": true, "y": true, "ano": true, "on": true}
	falsy  = map[string]bool{"0": true, "false": true, "no": true, "n": true, "ne": true, "nie": true, "off": true}
)

// reader wraps the scanning primitives and keeps the first structural
// error, so decoders can read many optional fields without checking an
// error after each one.
type reader struct {
	err error
}

func (r *reader) elements(doc, name string) []Element {
	if r.err != nil {
		return nil
	}
	elements, err := Elements(doc, name)
	if err != nil {
		r.err = err
		return nil
	}
	return elements
}

func (r *reader) first(doc, name string) (Element, bool) {
	elements := r.elements(doc, name)
	if len(elements) == 0 {
		return Element{}, false
	}
	return elements[0], true
}

func (r *reader) text(doc, name string) string {
	el, ok := r.first(doc, name)
	if !ok {
		return ""
	}
	return el.Text()
}

func (r *reader) texts(doc, name string) []string {
	var out []string
	for _, el := range r.elements(doc, name) {
		if v := el.Text(); v != "" {
			out = append(out, v)
		}
	}
	return dedupeStrings(out)
}

func (r *reader) float(doc, name string) *float64 {
	return parseFloat(r.text(doc, name))
}

func (r *reader) int(doc, name string) *int {
	f := r.float(doc, name)
	if f == nil {
		return nil
	}
	v := int(math.Round(*f))
	return &v
}

func (r *reader) bool(doc, name string, def bool) bool {
	return parseBool(r.text(doc, name), def)
}

func (r *reader) optBool(doc, name string) *bool {
	raw := r.text(doc, name)
	if raw == "" {
		return nil
	}
	key := strings.ToLower(textutil.FoldDiacritics(raw))
	switch {
	case truthy[key]:
		v := true
		return &v
	case falsy[key]:
		v := false
		return &v
	}
	return nil
}

func (r *reader) without(doc string, names ...string) string {
	if r.err != nil {
		return ""
	}
	out, err := Without(doc, names...)
	if err != nil {
		r.err = err
		return ""
	}
	return out
}

// parseFloat accepts a decimal comma and embedded spaces. Values that do not
// parse or are not finite are absent.
func parseFloat(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	raw = strings.NewReplacer(" ", "", "\u00a0", "", ",", ".").Replace(raw)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// parseBool maps the known truthy and falsy tokens and falls back to def for
// anything else.
func parseBool(raw string, def bool) bool {
	key := strings.ToLower(textutil.FoldDiacritics(strings.TrimSpace(raw)))
	switch {
	case truthy[key]:
		return true
	case falsy[key]:
		return false
	}
	return def
}

func dedupeStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(values))
	out := values[:0]
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
