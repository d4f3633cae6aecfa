package catalog

import (
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/raine/catalog-feed-import/internal/feed"
	"github.com/raine/catalog-feed-import/internal/pricing"
)

// defaultVariant synthesizes the single variant of an item that declares
// none, from the top offer.
func (b *Builder) defaultVariant(item feed.ShopItem, handle string) ([]OptionSeed, []VariantSeed, bool) {
	top := item.Top

	skuSeed := top.Code
	if skuSeed == "" {
		skuSeed = SanitizeSKU(itemKey(item, handle) + "-DEFAULT")
	}

	variant, discounted := b.variant(top, nil, skuSeed)
	variant.Title = DefaultOptionValue
	variant.Options = map[string]string{DefaultOptionTitle: DefaultOptionValue}

	options := []OptionSeed{{Title: DefaultOptionTitle, Values: []string{DefaultOptionValue}}}
	return options, []VariantSeed{variant}, discounted
}

// explicitVariants maps declared variants. The option names are the union
// of parameter names over all variants, in first-seen order, and every
// variant gets a value for each of them.
func (b *Builder) explicitVariants(item feed.ShopItem, handle string) ([]OptionSeed, []VariantSeed, bool) {
	names := optionNames(item.Variants)
	synthesized := len(names) == 0
	if synthesized {
		names = []string{DefaultOptionTitle}
	}

	values := make(map[string][]string, len(names))
	variants := make([]VariantSeed, 0, len(item.Variants))
	anyDiscount := false

	for i, offer := range item.Variants {
		ordinal := strconv.Itoa(i + 1)

		skuSeed := offer.Code
		if skuSeed == "" {
			ref := offer.VariantID
			if ref == "" {
				ref = ordinal
			}
			skuSeed = SanitizeSKU(itemKey(item, handle) + "-VARIANT-" + ref)
		}

		variant, discounted := b.variant(offer, &item.Top, skuSeed)
		anyDiscount = anyDiscount || discounted

		label := offer.Code
		if label == "" {
			label = ordinal
		}
		declared := parameterValues(offer.Parameters)

		variant.Options = make(map[string]string, len(names))
		switch {
		case synthesized:
			variant.Options[DefaultOptionTitle] = label
			variant.Title = label
		case len(declared) == 0:
			// a bare variant among parameterized siblings is told apart by
			// its code or position in the first option
			variant.Options[names[0]] = label
			for _, name := range names[1:] {
				variant.Options[name] = DefaultOptionValue
			}
			variant.Title = label
		default:
			parts := make([]string, 0, len(names))
			for _, name := range names {
				v, ok := declared[name]
				if !ok {
					v = DefaultOptionValue
				}
				variant.Options[name] = v
				parts = append(parts, v)
			}
			variant.Title = strings.Join(parts, " / ")
		}

		for _, name := range names {
			values[name] = appendUnique(values[name], variant.Options[name])
		}
		variants = append(variants, variant)
	}

	options := make([]OptionSeed, 0, len(names))
	for _, name := range names {
		options = append(options, OptionSeed{Title: name, Values: values[name]})
	}
	return options, variants, anyDiscount
}

// variant builds the price, stock, identifiers and metadata shared by both
// variant kinds.
func (b *Builder) variant(offer feed.Offer, fallback *feed.Offer, skuSeed string) (VariantSeed, bool) {
	quote := pricing.Resolve(offer, fallback, b.opts.ReferenceTime)
	currency := pricing.Currency(offer, fallback, b.opts.DefaultCurrency)

	v := VariantSeed{
		SKU:      b.ctx.SKUs.Claim(skuSeed),
		Prices:   []PriceSeed{{CurrencyCode: currency, Amount: quote.Current}},
		Quantity: stockQuantity(offer.Stock.Amount),
		Metadata: map[string]any{
			"offer":           offer,
			"current_price":   quote.Current,
			"discount_active": quote.Discounted,
		},
	}
	if quote.CompareAt != nil {
		v.Metadata["compare_at_price"] = *quote.CompareAt
	}
	if offer.VariantID != "" {
		v.Metadata["source_variant_id"] = offer.VariantID
	}
	if offer.Code != "" {
		v.Metadata["source_code"] = offer.Code
	}

	if offer.EAN != "" {
		if b.ctx.EANs.Reserve(offer.EAN) {
			v.EAN = offer.EAN
		} else {
			log.Debug().Str("ean", offer.EAN).Str("sku", v.SKU).Msg("omitting duplicate EAN")
			v.Metadata["source_ean"] = offer.EAN
		}
	}

	if offer.ImageRef != "" {
		v.Thumbnail = offer.ImageRef
		v.Images = []string{offer.ImageRef}
	}
	return v, quote.Discounted
}

func itemKey(item feed.ShopItem, handle string) string {
	if item.ID != "" {
		return item.ID
	}
	return handle
}

func optionNames(variants []feed.Offer) []string {
	var names []string
	for _, v := range variants {
		for _, p := range v.Parameters {
			names = appendUnique(names, p.Name)
		}
	}
	return names
}

// parameterValues keeps the first value declared for each name.
func parameterValues(params []feed.Parameter) map[string]string {
	out := make(map[string]string, len(params))
	for _, p := range params {
		if _, ok := out[p.Name]; !ok && p.Value != "" {
			out[p.Name] = p.Value
		}
	}
	return out
}

// stockQuantity floors the declared amount; absent or negative stock is 0.
func stockQuantity(amount *float64) int {
	if amount == nil || *amount <= 0 {
		return 0
	}
	return int(math.Floor(*amount))
}
