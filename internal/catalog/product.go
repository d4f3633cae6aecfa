package catalog

// Product publish states.
const (
	StatusPublished = "published"
	StatusDraft     = "draft"
)

const (
	// DefaultOptionTitle names the single option of a product without
	// declared variants.
	DefaultOptionTitle = "Variant"
	// DefaultOptionValue fills options a variant does not declare.
	DefaultOptionValue = "Default"
	// DefaultWeight is used when no offer declares a weight, in grams.
	DefaultWeight = 1
)

// ProductSeed is one product ready for import.
type ProductSeed struct {
	Title           string         `json:"title"`
	Handle          string         `json:"handle"`
	Description     string         `json:"description,omitempty"`
	Weight          int            `json:"weight"`
	Status          string         `json:"status"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	ShippingProfile string         `json:"shipping_profile_name,omitempty"`
	Thumbnail       string         `json:"thumbnail,omitempty"`
	Images          []string       `json:"images,omitempty"`
	Options         []OptionSeed   `json:"options"`
	CategoryHandles []string       `json:"category_handles,omitempty"`
	Manufacturer    string         `json:"manufacturer,omitempty"`
	Supplier        string         `json:"supplier,omitempty"`
	Variants        []VariantSeed  `json:"variants"`
	SalesChannels   []string       `json:"sales_channels,omitempty"`
}

// OptionSeed declares an option and the values its variants use.
type OptionSeed struct {
	Title  string   `json:"title"`
	Values []string `json:"values"`
}

// VariantSeed is one purchasable variant of a product.
type VariantSeed struct {
	Title     string            `json:"title"`
	SKU       string            `json:"sku"`
	EAN       string            `json:"ean,omitempty"`
	Options   map[string]string `json:"options"`
	Prices    []PriceSeed       `json:"prices"`
	Thumbnail string            `json:"thumbnail,omitempty"`
	Images    []string          `json:"images,omitempty"`
	Metadata  map[string]any    `json:"metadata,omitempty"`
	Quantity  int               `json:"inventory_quantity"`
}

// PriceSeed is a price in major currency units.
type PriceSeed struct {
	CurrencyCode string  `json:"currency_code"`
	Amount       float64 `json:"amount"`
}

// OptionTitles returns the option names in declaration order.
func (p ProductSeed) OptionTitles() []string {
	titles := make([]string, len(p.Options))
	for i, o := range p.Options {
		titles[i] = o.Title
	}
	return titles
}
