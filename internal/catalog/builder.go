// Package catalog turns decoded shop items into import-ready category and
// product seeds.
package catalog

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/raine/catalog-feed-import/internal/content"
	"github.com/raine/catalog-feed-import/internal/feed"
	"github.com/raine/catalog-feed-import/internal/pricing"
	"github.com/raine/catalog-feed-import/internal/textutil"
	"github.com/raine/catalog-feed-import/internal/uniq"
)

// Options configure a build.
type Options struct {
	// ReferenceTime decides which promotions are active.
	ReferenceTime   time.Time
	DefaultCurrency string
	ShippingProfile string
	SalesChannels   []string
	// Classifier splits copy into sections; nil uses the embedded keywords.
	Classifier *content.Classifier
}

// Seed is the complete output of one build.
type Seed struct {
	ReferenceTime time.Time      `json:"reference_time"`
	Categories    []CategorySeed `json:"categories"`
	Products      []ProductSeed  `json:"products"`
}

// Builder maps shop items to seeds. Its uniqueness context accumulates
// across calls, so one Builder serves exactly one build.
type Builder struct {
	opts       Options
	ctx        *uniq.Context
	classifier *content.Classifier
}

// NewBuilder returns a builder claiming identifiers from ctx.
func NewBuilder(opts Options, ctx *uniq.Context) *Builder {
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = "EUR"
	}
	classifier := opts.Classifier
	if classifier == nil {
		classifier = content.NewClassifier(nil)
	}
	return &Builder{opts: opts, ctx: ctx, classifier: classifier}
}

// BuildDocument decodes doc and builds it with a fresh context.
func BuildDocument(doc string, opts Options) (Seed, error) {
	items, err := feed.Decode(doc)
	if err != nil {
		return Seed{}, fmt.Errorf("failed to decode feed: %w", err)
	}
	return Build(items, opts), nil
}

// Build runs the whole pipeline over items with a fresh context.
func Build(items []feed.ShopItem, opts Options) Seed {
	return BuildWithContext(items, opts, uniq.NewContext())
}

// BuildWithContext builds categories, then products in input order, then
// enforces SKU uniqueness across every product.
func BuildWithContext(items []feed.ShopItem, opts Options, ctx *uniq.Context) Seed {
	b := NewBuilder(opts, ctx)

	categories, handles := b.Categories(items)
	products := make([]ProductSeed, 0, len(items))
	for i, item := range items {
		products = append(products, b.Product(item, i+1, handles))
	}
	if n := EnforceUniqueSKUs(products); n > 0 {
		log.Debug().Int("count", n).Msg("rewrote SKUs in final pass")
	}

	return Seed{
		ReferenceTime: opts.ReferenceTime,
		Categories:    categories,
		Products:      products,
	}
}

// Categories builds the category tree of all items and claims its handles.
func (b *Builder) Categories(items []feed.ShopItem) ([]CategorySeed, CategoryHandles) {
	var paths []string
	for _, item := range items {
		paths = append(paths, item.Categories...)
	}
	return BuildCategoryTree(paths).AssignHandles(b.ctx.Handles)
}

// Product maps one shop item. ordinal is its 1-based position in the feed.
func (b *Builder) Product(item feed.ShopItem, ordinal int, handles CategoryHandles) ProductSeed {
	at := b.opts.ReferenceTime
	sections := b.classifier.Classify(content.InputFromItem(item))

	product := ProductSeed{
		Title:           productTitle(item, ordinal),
		Handle:          b.ctx.Handles.Claim(productHandleSeed(item, ordinal)),
		Description:     productDescription(sections, item),
		Weight:          productWeight(item),
		Status:          productStatus(item),
		ShippingProfile: b.opts.ShippingProfile,
		Manufacturer:    item.Manufacturer,
		Supplier:        item.Supplier,
		SalesChannels:   b.opts.SalesChannels,
	}

	for _, raw := range item.Categories {
		handle, ok := handles.Resolve(raw)
		if !ok {
			log.Debug().Str("item", item.ID).Str("category", raw).Msg("dropping unresolved category")
			continue
		}
		product.CategoryHandles = appendUnique(product.CategoryHandles, handle)
	}

	product.Images = dedupe(append(append([]string{}, item.Images...), item.Top.ImageRef))
	if len(product.Images) > 0 {
		product.Thumbnail = product.Images[0]
	}

	var discounted bool
	if len(item.Variants) == 0 {
		product.Options, product.Variants, discounted = b.defaultVariant(item, product.Handle)
	} else {
		product.Options, product.Variants, discounted = b.explicitVariants(item, product.Handle)
	}

	product.Metadata = productMetadata(item, sections, pricing.ResolveFlags(item.Flags, discounted, at))
	return product
}

func productTitle(item feed.ShopItem, ordinal int) string {
	if item.Name != "" {
		return textutil.CollapseWhitespace(item.Name)
	}
	if item.ID != "" {
		return "Product " + item.ID
	}
	return "Product " + strconv.Itoa(ordinal)
}

// productHandleSeed is slug(name)-slug(id), or slug(name)-ordinal when the
// item carries no usable id.
func productHandleSeed(item feed.ShopItem, ordinal int) string {
	name := textutil.Slugify(item.Name)
	if name == "" {
		name = "product"
	}
	if id := textutil.Slugify(item.ID); id != "" {
		return name + "-" + id
	}
	return name + "-" + strconv.Itoa(ordinal)
}

func productDescription(sections []content.Section, item feed.ShopItem) string {
	for _, s := range sections {
		if s.Key == content.KeyDescription {
			return s.Content
		}
	}
	if item.ShortDescription != "" {
		return textutil.WrapParagraph(item.ShortDescription)
	}
	return ""
}

// productWeight converts the declared kilograms of the top offer, or of the
// first variant declaring one, to whole grams.
func productWeight(item feed.ShopItem) int {
	kg := item.Top.Weight
	if kg == nil {
		for _, v := range item.Variants {
			if v.Weight != nil {
				kg = v.Weight
				break
			}
		}
	}
	if kg == nil {
		return DefaultWeight
	}
	grams := int(math.Round(*kg * 1000))
	if grams <= 0 {
		return DefaultWeight
	}
	return grams
}

var hiddenVisibility = map[string]bool{
	"hidden": true, "blocked": true, "invisible": true,
	"0": true, "false": true, "no": true, "nie": true, "ne": true,
	"skryte": true, "skryty": true, "neviditelne": true,
}

// productStatus hides the product when either the item visibility or the
// top offer says so.
func productStatus(item feed.ShopItem) string {
	if hiddenVisibility[strings.ReplaceAll(textutil.Fold(item.Visibility), " ", "")] || !item.Top.Visible {
		return StatusDraft
	}
	return StatusPublished
}

func productMetadata(item feed.ShopItem, sections []content.Section, flags []pricing.ResolvedFlag) map[string]any {
	m := map[string]any{
		"offer": item.Top,
	}
	set := func(key string, value any, present bool) {
		if present {
			m[key] = value
		}
	}
	set("source_id", item.ID, item.ID != "")
	set("import_code", item.ImportCode, item.ImportCode != "")
	set("guid", item.GUID, item.GUID != "")
	set("item_type", item.ItemType, item.ItemType != "")
	set("adult", item.Adult, item.Adult)
	set("visibility", item.Visibility, item.Visibility != "")
	set("seo_title", item.SEOTitle, item.SEOTitle != "")
	set("meta_description", item.MetaDescription, item.MetaDescription != "")
	set("internal_note", item.InternalNote, item.InternalNote != "")
	set("content_sections", sections, len(sections) > 0)
	short := content.ShortCopy(sections, item.ShortDescription)
	set("short_copy", short, short != "")
	set("flags", flags, len(flags) > 0)
	set("text_properties", item.TextProperties, len(item.TextProperties) > 0)
	set("related_products", item.RelatedProducts, len(item.RelatedProducts) > 0)
	set("alternative_products", item.AlternativeProducts, len(item.AlternativeProducts) > 0)
	set("related_files", item.RelatedFiles, len(item.RelatedFiles) > 0)
	set("related_videos", item.RelatedVideos, len(item.RelatedVideos) > 0)
	set("market_categories", item.MarketCategories, len(item.MarketCategories) > 0)
	set("set_items", item.SetItems, len(item.SetItems) > 0)
	return m
}

func appendUnique(values []string, v string) []string {
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	return append(values, v)
}

func dedupe(values []string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = appendUnique(out, v)
		}
	}
	return out
}
