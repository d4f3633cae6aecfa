package content

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/raine/catalog-feed-import/internal/textutil"
)

//go:embed keywords.yaml
var defaultKeywords []byte

// Key identifies a content section.
type Key string

const (
	KeyDescription Key = "description"
	KeyUsage       Key = "usage"
	KeyComposition Key = "composition"
	KeyWarning     Key = "warning"
	KeyOther       Key = "other"
)

// Order is the fixed output order of sections.
var Order = []Key{KeyDescription, KeyUsage, KeyComposition, KeyWarning, KeyOther}

var defaultTitles = map[Key]string{
	KeyDescription: "Description",
	KeyUsage:       "Usage",
	KeyComposition: "Composition",
	KeyWarning:     "Warning",
	KeyOther:       "Other information",
}

// SectionRule lists the keywords that route text into one section.
type SectionRule struct {
	Key      Key      `yaml:"key"`
	Title    string   `yaml:"title"`
	Keywords []string `yaml:"keywords"`
}

// Labels are the captions used for fields appended to the other section.
type Labels struct {
	Warranty string `yaml:"warranty"`
	Appendix string `yaml:"appendix"`
}

// Rules is a keyword table. Sections are matched in declaration order.
type Rules struct {
	Sections []SectionRule `yaml:"sections"`
	Labels   Labels        `yaml:"labels"`

	titles map[Key]string
}

// DefaultRules returns the embedded keyword table.
func DefaultRules() *Rules {
	rules, err := LoadRules(defaultKeywords)
	if err != nil {
		panic(fmt.Sprintf("embedded keywords.yaml: %v", err))
	}
	return rules
}

// LoadRulesFile reads a keyword table from a YAML file.
func LoadRulesFile(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keywords file: %w", err)
	}
	rules, err := LoadRules(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// LoadRules parses a YAML keyword table. Keywords are folded once here so
// matching only folds the candidate text.
func LoadRules(data []byte) (*Rules, error) {
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse keywords: %w", err)
	}

	rules.titles = make(map[Key]string, len(defaultTitles))
	for k, v := range defaultTitles {
		rules.titles[k] = v
	}

	seen := map[Key]bool{}
	for i, s := range rules.Sections {
		if _, ok := defaultTitles[s.Key]; !ok {
			return nil, fmt.Errorf("unknown section key %q", s.Key)
		}
		if seen[s.Key] {
			return nil, fmt.Errorf("section %q listed twice", s.Key)
		}
		seen[s.Key] = true
		if s.Title != "" {
			rules.titles[s.Key] = s.Title
		}
		keywords := make([]string, 0, len(s.Keywords))
		for _, kw := range s.Keywords {
			if kw = normalizeLabel(kw); kw != "" {
				keywords = append(keywords, kw)
			}
		}
		rules.Sections[i].Keywords = keywords
	}

	if rules.Labels.Warranty == "" {
		rules.Labels.Warranty = "Warranty"
	}
	if rules.Labels.Appendix == "" {
		rules.Labels.Appendix = "Appendix"
	}
	return &rules, nil
}

// Title returns the display title of a section.
func (r *Rules) Title(key Key) string {
	if t, ok := r.titles[key]; ok {
		return t
	}
	return string(key)
}

// Match classifies a heading, bold label or property name. ok is false when
// no keyword matches.
func (r *Rules) Match(label string) (Key, bool) {
	norm := normalizeLabel(label)
	if norm == "" {
		return "", false
	}
	for _, s := range r.Sections {
		for _, kw := range s.Keywords {
			if strings.Contains(norm, kw) {
				return s.Key, true
			}
		}
	}
	return "", false
}

// normalizeLabel folds diacritics and case and strips the punctuation that
// usually trails a label ("Použitie:", "Zloženie -").
func normalizeLabel(s string) string {
	s = textutil.Fold(textutil.StripTags(s))
	return strings.Trim(s, " :-\u2013\u2014.")
}
