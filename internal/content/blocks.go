package content

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/raine/catalog-feed-import/internal/textutil"
)

var blockTags = map[string]bool{
	"p": true, "div": true, "ul": true, "ol": true, "dl": true,
	"table": true, "blockquote": true, "pre": true, "hr": true, "figure": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "header": true, "footer": true, "aside": true,
}

// wrappers that are flattened when they hold block content
var containerTags = map[string]bool{
	"div": true, "section": true, "article": true, "main": true,
	"header": true, "footer": true, "aside": true,
}

var headingTags = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

const blockSelector = "p, div, ul, ol, dl, table, blockquote, pre, h1, h2, h3, h4, h5, h6, section, article"

type block struct {
	html    string
	text    string
	heading bool
}

// splitBlocks returns the top-level blocks of an HTML fragment. Wrapper
// elements holding block content are flattened, so headings nested in a div
// still split the copy. Runs of loose inline content become paragraphs.
func splitBlocks(fragment string) []block {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil
	}

	var out []block
	var run strings.Builder
	flush := func() {
		inline := strings.TrimSpace(run.String())
		run.Reset()
		if textutil.StripTags(inline) == "" {
			return
		}
		out = append(out, block{html: "<p>" + inline + "</p>", text: textutil.StripTags(inline)})
	}

	var walk func(s *goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, child *goquery.Selection) {
			name := goquery.NodeName(child)
			switch {
			case name == "#comment":
			case containerTags[name] && child.Find(blockSelector).Length() > 0:
				flush()
				walk(child)
				flush()
			case blockTags[name]:
				flush()
				h, err := goquery.OuterHtml(child)
				if err != nil {
					return
				}
				out = append(out, block{
					html:    h,
					text:    textutil.CollapseWhitespace(child.Text()),
					heading: headingTags[name],
				})
			default:
				h, err := goquery.OuterHtml(child)
				if err != nil {
					return
				}
				run.WriteString(h)
			}
		})
	}
	walk(doc.Find("body"))
	flush()
	return out
}
