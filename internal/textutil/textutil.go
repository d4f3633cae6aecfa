// Package textutil provides the text primitives used while decoding catalog
// feeds: entity decoding, whitespace normalization, tag stripping,
// diacritic-insensitive comparison, slugs and length-bounded identifiers.
package textutil

import (
	"encoding/hex"
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// HashLength is the number of hex characters appended by TruncateWithHash.
const HashLength = 8

var (
	strictPolicy = bluemonday.StrictPolicy()

	reMarkup        = regexp.MustCompile(`<[a-zA-Z/!][^>]*>`)
	reBlockBoundary = regexp.MustCompile(`(?i)<(br|p|/p|div|/div|li|/li|tr|/tr|td|/td|th|/th|h[1-6]|/h[1-6])(\s[^>]*)?/?>`)
	reEntity        = regexp.MustCompile(`&(#[0-9]+|#[xX][0-9a-fA-F]+|[a-zA-Z][a-zA-Z0-9]*);`)
	reNonSlug       = regexp.MustCompile(`[^a-z0-9]+`)
	reBlankLines    = regexp.MustCompile(`\n{3,}`)
)

// letters that have no canonical decomposition into base letter + mark
var foldExtra = strings.NewReplacer(
	"ł", "l", "Ł", "L",
	"đ", "d", "Đ", "D",
	"ø", "o", "Ø", "O",
	"ß", "ss",
	"æ", "ae", "Æ", "AE",
	"œ", "oe", "Œ", "OE",
	"ı", "i",
)

// DecodeEntities resolves named, decimal and hex character references.
// Feeds regularly contain double-escaped values such as "&amp;amp;", so
// decoding repeats while it still changes the text (at most three passes).
func DecodeEntities(s string) string {
	for i := 0; i < 3; i++ {
		if !strings.Contains(s, "&") {
			return s
		}
		decoded := html.UnescapeString(s)
		if decoded == s {
			return s
		}
		s = decoded
		if !reEntity.MatchString(s) {
			return s
		}
	}
	return s
}

// NormalizeWhitespace unifies line endings, turns non-breaking spaces into
// regular ones, collapses horizontal whitespace runs inside each line, drops
// runs of blank lines beyond one and trims the result.
func NormalizeWhitespace(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\u00a0", " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	s = strings.Join(lines, "\n")
	s = reBlankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Clean decodes entities and normalizes whitespace. An empty result means
// the value is absent.
func Clean(s string) string {
	return NormalizeWhitespace(DecodeEntities(s))
}

// CollapseWhitespace reduces every whitespace run, newlines included, to a
// single space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "\u00a0", " ")), " ")
}

// ContainsMarkup reports whether s looks like it carries HTML tags.
func ContainsMarkup(s string) bool {
	return reMarkup.MatchString(s)
}

// StripTags removes all markup and returns the readable text on a single
// line. Block boundaries become spaces so adjacent paragraphs do not run
// together.
func StripTags(s string) string {
	if s == "" {
		return s
	}
	s = reBlockBoundary.ReplaceAllStringFunc(s, func(tag string) string {
		return " " + tag
	})
	return CollapseWhitespace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

// WrapParagraph turns plain text into a single HTML paragraph. Text that
// already contains markup is returned unchanged.
func WrapParagraph(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || ContainsMarkup(s) {
		return s
	}
	escaped := html.EscapeString(s)
	return "<p>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</p>"
}

// FoldDiacritics removes combining marks (č -> c, ô -> o) and maps the few
// letters without a decomposition to their ASCII look-alikes.
func FoldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return foldExtra.Replace(folded)
}

// Fold returns the comparison form of s: no diacritics, lower case, single
// spaces.
func Fold(s string) string {
	return strings.ToLower(CollapseWhitespace(FoldDiacritics(s)))
}

// EqualFold compares two strings ignoring case and diacritics.
func EqualFold(a, b string) bool {
	return Fold(a) == Fold(b)
}

// Slugify converts s to a lower-case, dash separated ASCII slug.
func Slugify(s string) string {
	s = strings.ToLower(FoldDiacritics(s))
	s = reNonSlug.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ContentHash returns the first HashLength hex characters of the BLAKE2b-256
// digest of s.
func ContentHash(s string) string {
	sum := blake2b.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:HashLength]
}

// TruncateWithHash bounds s to maxLen bytes. Values that fit are returned
// unchanged; longer ones keep as much of their prefix as fits and end with
// "-" plus the content hash of the full value, so two long values sharing a
// prefix still differ.
func TruncateWithHash(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	hash := ContentHash(s)
	keep := maxLen - len(hash) - 1
	if keep <= 0 {
		if maxLen < len(hash) {
			return hash[:maxLen]
		}
		return hash
	}
	prefix := strings.TrimRight(cutBytes(s, keep), "-_ ")
	if prefix == "" {
		return hash
	}
	return prefix + "-" + hash
}

// cutBytes returns the longest prefix of s that is at most n bytes and does
// not split a rune.
func cutBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	end := 0
	for i := range s {
		if i > n {
			break
		}
		end = i
	}
	return s[:end]
}
