package catalog

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/raine/catalog-feed-import/internal/textutil"
	"github.com/raine/catalog-feed-import/internal/uniq"
)

var reSKUSeparators = regexp.MustCompile(`[^A-Z0-9]+`)

// SanitizeSKU upper-cases sku, folds diacritics and turns every run of other
// characters into a single dash.
func SanitizeSKU(sku string) string {
	s := strings.ToUpper(textutil.FoldDiacritics(sku))
	s = reSKUSeparators.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "SKU"
	}
	return s
}

// EnforceUniqueSKUs walks every variant once more and makes its SKU unique
// across all products in sanitized form. A rewritten SKU keeps the original
// under the source_sku metadata key. It returns the number of rewrites.
func EnforceUniqueSKUs(products []ProductSeed) int {
	skus := uniq.NewUpperSet(uniq.MaxSKULength)
	rewritten := 0

	for i := range products {
		for j := range products[i].Variants {
			v := &products[i].Variants[j]
			original := v.SKU
			sku := skus.Claim(SanitizeSKU(original))
			if sku == original {
				continue
			}
			if v.Metadata == nil {
				v.Metadata = map[string]any{}
			}
			if _, kept := v.Metadata["source_sku"]; !kept {
				v.Metadata["source_sku"] = original
			}
			v.SKU = sku
			rewritten++
			log.Debug().Str("from", original).Str("to", sku).Msg("rewrote SKU")
		}
	}
	return rewritten
}
