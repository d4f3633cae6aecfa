// Package content splits free-text product copy into labeled sections using
// heading boundaries, bold lead labels and swappable keyword tables.
package content

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/raine/catalog-feed-import/internal/feed"
	"github.com/raine/catalog-feed-import/internal/textutil"
)

// Section is one labeled part of a product's copy.
type Section struct {
	Key     Key    `json:"key"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Input is the copy of one shop item.
type Input struct {
	ShortDescription string
	Description      string
	Properties       []feed.TextProperty
	Warranty         string
	Appendix         string
}

// InputFromItem collects the classifiable fields of a shop item.
func InputFromItem(item feed.ShopItem) Input {
	return Input{
		ShortDescription: item.ShortDescription,
		Description:      item.Description,
		Properties:       item.TextProperties,
		Warranty:         item.Warranty,
		Appendix:         item.Appendix,
	}
}

// Classifier routes copy into sections. It holds no per-call state and is
// safe for concurrent use.
type Classifier struct {
	rules  *Rules
	policy *bluemonday.Policy
}

// NewClassifier returns a classifier using rules, or the embedded keyword
// table when rules is nil.
func NewClassifier(rules *Rules) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Classifier{
		rules:  rules,
		policy: bluemonday.UGCPolicy(),
	}
}

// Rules returns the keyword table in use.
func (c *Classifier) Rules() *Rules {
	return c.rules
}

// sectionSet accumulates fragments per section, dropping near duplicates.
type sectionSet struct {
	fragments map[Key][]string
	seen      map[Key]map[string]bool
}

func newSectionSet() *sectionSet {
	return &sectionSet{
		fragments: map[Key][]string{},
		seen:      map[Key]map[string]bool{},
	}
}

func (s *sectionSet) add(key Key, fragment string) {
	fragment = strings.TrimSpace(fragment)
	fp := fingerprint(fragment)
	if fp == "" {
		return
	}
	if s.seen[key] == nil {
		s.seen[key] = map[string]bool{}
	}
	if s.seen[key][fp] {
		return
	}
	s.seen[key][fp] = true
	s.fragments[key] = append(s.fragments[key], fragment)
}

func (s *sectionSet) empty(key Key) bool {
	return len(s.fragments[key]) == 0
}

// fingerprint is the readable text of a fragment, folded and collapsed.
func fingerprint(fragment string) string {
	return textutil.Fold(textutil.StripTags(fragment))
}

// Classify returns the sections of in, in the fixed section order. Sections
// without content are omitted, so copy-free input yields an empty list.
func (c *Classifier) Classify(in Input) []Section {
	set := newSectionSet()

	if desc := c.prepare(in.Description); desc != "" {
		c.splitByHeadings(set, desc)
		c.splitByLabels(set, desc)
	}
	if set.empty(KeyDescription) {
		if short := c.prepare(in.ShortDescription); short != "" {
			for _, b := range splitBlocks(short) {
				set.add(KeyDescription, b.html)
			}
		}
	}

	c.addProperties(set, in.Properties)
	c.addLabeled(set, c.rules.Labels.Warranty, in.Warranty)
	c.addLabeled(set, c.rules.Labels.Appendix, in.Appendix)

	var out []Section
	for _, key := range Order {
		if set.empty(key) {
			continue
		}
		out = append(out, Section{
			Key:     key,
			Title:   c.rules.Title(key),
			Content: strings.Join(set.fragments[key], "\n"),
		})
	}
	return out
}

// prepare wraps plain text into a paragraph and sanitizes markup.
func (c *Classifier) prepare(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return strings.TrimSpace(c.policy.Sanitize(textutil.WrapParagraph(s)))
}

// splitByHeadings assigns every block to the section named by the closest
// preceding heading. Blocks before the first heading, and blocks under a
// heading no keyword matches, go to the description.
func (c *Classifier) splitByHeadings(set *sectionSet, fragment string) {
	current := KeyDescription
	for _, b := range splitBlocks(fragment) {
		if b.heading {
			key, matched := c.rules.Match(b.text)
			if !matched {
				current = KeyDescription
				set.add(KeyDescription, b.html)
				continue
			}
			current = key
			continue
		}
		set.add(current, b.html)
	}
}

// splitByLabels routes paragraphs and list items that open with a bold
// label. Only labels that match a keyword contribute.
func (c *Classifier) splitByLabels(set *sectionSet, fragment string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return
	}
	doc.Find("p, li").Each(func(_ int, s *goquery.Selection) {
		label := leadingLabel(s)
		if label == "" {
			return
		}
		key, ok := c.rules.Match(label)
		if !ok {
			return
		}
		inner, err := s.Html()
		if err != nil {
			return
		}
		set.add(key, "<p>"+strings.TrimSpace(inner)+"</p>")
	})
}

// leadingLabel returns the text of a strong or b element that opens s.
func leadingLabel(s *goquery.Selection) string {
	var label string
	s.Contents().EachWithBreak(func(_ int, child *goquery.Selection) bool {
		switch goquery.NodeName(child) {
		case "#text":
			// leading whitespace is allowed before the label
			return strings.TrimSpace(child.Text()) == ""
		case "strong", "b":
			label = strings.TrimSpace(child.Text())
		}
		return false
	})
	return label
}

func (c *Classifier) addProperties(set *sectionSet, props []feed.TextProperty) {
	var rest []string
	for _, p := range props {
		value := propertyValue(p)
		if value == "" {
			continue
		}
		if key, ok := c.rules.Match(p.Name); ok {
			if !textutil.ContainsMarkup(value) {
				value = "<p>" + value + "</p>"
			}
			set.add(key, c.policy.Sanitize(value))
			continue
		}
		item := value
		if p.Name != "" {
			item = "<strong>" + html.EscapeString(p.Name) + ":</strong> " + value
		}
		rest = append(rest, "<li>"+c.policy.Sanitize(item)+"</li>")
	}
	if len(rest) > 0 {
		set.add(KeyOther, "<ul>"+strings.Join(rest, "")+"</ul>")
	}
}

// propertyValue joins value and description, escaping plain text.
func propertyValue(p feed.TextProperty) string {
	var parts []string
	for _, v := range []string{p.Value, p.Description} {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if !textutil.ContainsMarkup(v) {
			v = html.EscapeString(v)
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, " ")
}

func (c *Classifier) addLabeled(set *sectionSet, label, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if textutil.ContainsMarkup(text) {
		text = html.EscapeString(textutil.StripTags(text))
	} else {
		text = strings.ReplaceAll(html.EscapeString(text), "\n", "<br>")
	}
	set.add(KeyOther, "<p><strong>"+html.EscapeString(label)+":</strong> "+text+"</p>")
}
