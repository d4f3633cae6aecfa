package content

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/raine/catalog-feed-import/internal/textutil"
)

// ShortCopyItems is how many list items or blocks a short copy keeps.
const ShortCopyItems = 3

// ShortCopy picks a teaser for listing pages. The first section holding
// list items wins and contributes its first items as a list; otherwise the
// first blocks of the description, the usage section or the short
// description are used. The result is "" when nothing qualifies.
func ShortCopy(sections []Section, shortDescription string) string {
	for _, s := range sections {
		if items := listItems(s.Content, ShortCopyItems); len(items) > 0 {
			return "<ul>" + strings.Join(items, "") + "</ul>"
		}
	}

	candidates := []string{
		sectionContent(sections, KeyDescription),
		sectionContent(sections, KeyUsage),
		textutil.WrapParagraph(shortDescription),
	}
	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		blocks := splitBlocks(candidate)
		var parts []string
		for _, b := range blocks {
			if len(parts) == ShortCopyItems {
				break
			}
			parts = append(parts, b.html)
		}
		if len(parts) > 0 {
			return strings.Join(parts, "\n")
		}
	}
	return ""
}

func sectionContent(sections []Section, key Key) string {
	for _, s := range sections {
		if s.Key == key {
			return s.Content
		}
	}
	return ""
}

func listItems(fragment string, limit int) []string {
	if !strings.Contains(fragment, "<li") {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil
	}
	var items []string
	doc.Find("li").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.TrimSpace(s.Text()) == "" {
			return true
		}
		h, err := goquery.OuterHtml(s)
		if err == nil {
			items = append(items, h)
		}
		return len(items) < limit
	})
	return items
}
