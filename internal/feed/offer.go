package feed

import (
	"fmt"
	"strings"
)

// Offer is the priced, stocked unit of sale: an item's default offer or one
// of its variants. Absent numeric fields are nil, absent strings are empty.
type Offer struct {
	VariantID     string `json:"variant_id,omitempty"`
	Code          string `json:"code,omitempty"`
	EAN           string `json:"ean,omitempty"`
	PartNumber    string `json:"part_number,omitempty"`
	ProductNumber string `json:"product_number,omitempty"`
	PLU           string `json:"plu,omitempty"`
	Unit          string `json:"unit,omitempty"`
	Currency      string `json:"currency,omitempty"`

	VAT              *float64 `json:"vat,omitempty"`
	PriceVAT         *float64 `json:"price_vat,omitempty"`
	StandardPrice    *float64 `json:"standard_price,omitempty"`
	ActionPrice      *float64 `json:"action_price,omitempty"`
	ActionPriceFrom  string   `json:"action_price_from,omitempty"`
	ActionPriceUntil string   `json:"action_price_until,omitempty"`

	PurchasePrice            *float64 `json:"purchase_price,omitempty"`
	PurchaseVAT              *float64 `json:"purchase_vat,omitempty"`
	PurchasePriceIncludesVAT bool     `json:"purchase_price_includes_vat"`

	Stock                  Stock    `json:"stock"`
	StockMinSupply         *float64 `json:"stock_min_supply,omitempty"`
	AvailabilityInStock    string   `json:"availability_in_stock,omitempty"`
	AvailabilityOutOfStock string   `json:"availability_out_of_stock,omitempty"`

	ImageRef     string `json:"image_ref,omitempty"`
	Visible      bool   `json:"visible"`
	FreeShipping bool   `json:"free_shipping"`
	FreeBilling  bool   `json:"free_billing"`
	DecimalCount *int   `json:"decimal_count,omitempty"`

	PriceRatio            *float64 `json:"price_ratio,omitempty"`
	ApplyDiscountCoupon   bool     `json:"apply_discount_coupon"`
	ApplyVolumeDiscount   bool     `json:"apply_volume_discount"`
	ApplyQuantityDiscount bool     `json:"apply_quantity_discount"`

	Weight           *float64 `json:"weight,omitempty"`
	AtypicalShipping bool     `json:"atypical_shipping"`
	AtypicalBilling  bool     `json:"atypical_billing"`

	PackageAmount     *float64 `json:"package_amount,omitempty"`
	PackageAmountUnit string   `json:"package_amount_unit,omitempty"`
	MeasureAmount     *float64 `json:"measure_amount,omitempty"`
	MeasureAmountUnit string   `json:"measure_amount_unit,omitempty"`

	Parameters []Parameter `json:"parameters,omitempty"`
	Pricelists []Pricelist `json:"pricelists,omitempty"`
	VATRates   []VATRate   `json:"vat_rates,omitempty"`
}

// Stock describes warehouse availability.
type Stock struct {
	Amount    *float64 `json:"amount,omitempty"`
	Location  string   `json:"location,omitempty"`
	MinAmount *float64 `json:"min_amount,omitempty"`
	MaxAmount *float64 `json:"max_amount,omitempty"`
}

// Parameter is a free-form name/value pair. On variants the names become
// product options.
type Parameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Pricelist is one historical or customer-group price entry.
type Pricelist struct {
	Title            string   `json:"title,omitempty"`
	Currency         string   `json:"currency,omitempty"`
	PriceVAT         *float64 `json:"price_vat,omitempty"`
	StandardPrice    *float64 `json:"standard_price,omitempty"`
	ActionPrice      *float64 `json:"action_price,omitempty"`
	ActionPriceFrom  string   `json:"action_price_from,omitempty"`
	ActionPriceUntil string   `json:"action_price_until,omitempty"`
}

// VATRate overrides the VAT rate for one country.
type VATRate struct {
	Country string   `json:"country,omitempty"`
	Rate    *float64 `json:"rate,omitempty"`
}

// sub-lists read separately so their children never leak into offer fields
var offerSubLists = []string{"PARAMETERS", "PRICELISTS", "STOCK", "VAT_RATES"}

// DecodeOffer decodes one offer block. Every field is optional; only a
// structural problem in the block (nested same-named elements) is an error.
func DecodeOffer(block string) (Offer, error) {
	r := &reader{}
	offer := decodeOffer(r, block)
	if r.err != nil {
		return Offer{}, r.err
	}
	return offer, nil
}

func decodeOffer(r *reader, block string) Offer {
	fields := r.without(block, offerSubLists...)

	offer := Offer{
		VariantID:     r.text(fields, "ID"),
		Code:          r.text(fields, "CODE"),
		EAN:           r.text(fields, "EAN"),
		PartNumber:    r.text(fields, "PART_NUMBER"),
		ProductNumber: r.text(fields, "PRODUCT_NUMBER"),
		PLU:           r.text(fields, "PLU"),
		Unit:          r.text(fields, "UNIT"),
		Currency:      strings.ToUpper(r.text(fields, "CURRENCY")),

		VAT:              r.float(fields, "VAT"),
		PriceVAT:         r.float(fields, "PRICE_VAT"),
		StandardPrice:    r.float(fields, "STANDARD_PRICE"),
		ActionPrice:      r.float(fields, "ACTION_PRICE"),
		ActionPriceFrom:  r.text(fields, "ACTION_PRICE_FROM"),
		ActionPriceUntil: r.text(fields, "ACTION_PRICE_UNTIL"),

		PurchasePrice:            r.float(fields, "PURCHASE_PRICE"),
		PurchaseVAT:              r.float(fields, "PURCHASE_VAT"),
		PurchasePriceIncludesVAT: r.bool(fields, "PURCHASE_PRICE_INCLUDES_VAT", false),

		StockMinSupply:         r.float(fields, "STOCK_MIN_SUPPLY"),
		AvailabilityInStock:    r.text(fields, "AVAILABILITY_IN_STOCK"),
		AvailabilityOutOfStock: r.text(fields, "AVAILABILITY_OUT_OF_STOCK"),

		ImageRef:     r.text(fields, "IMAGE_REF"),
		Visible:      r.bool(fields, "VISIBLE", true),
		FreeShipping: r.bool(fields, "FREE_SHIPPING", false),
		FreeBilling:  r.bool(fields, "FREE_BILLING", false),
		DecimalCount: r.int(fields, "DECIMAL_COUNT"),

		PriceRatio:            r.float(fields, "PRICE_RATIO"),
		ApplyDiscountCoupon:   r.bool(fields, "APPLY_DISCOUNT_COUPON", true),
		ApplyVolumeDiscount:   r.bool(fields, "APPLY_VOLUME_DISCOUNT", true),
		ApplyQuantityDiscount: r.bool(fields, "APPLY_QUANTITY_DISCOUNT", true),

		Weight:           r.float(fields, "WEIGHT"),
		AtypicalShipping: r.bool(fields, "ATYPICAL_SHIPPING", false),
		AtypicalBilling:  r.bool(fields, "ATYPICAL_BILLING", false),

		PackageAmount:     r.float(fields, "PACKAGE_AMOUNT"),
		PackageAmountUnit: r.text(fields, "PACKAGE_AMOUNT_UNIT"),
		MeasureAmount:     r.float(fields, "MEASURE_AMOUNT"),
		MeasureAmountUnit: r.text(fields, "MEASURE_AMOUNT_UNIT"),
	}

	if stock, ok := r.first(block, "STOCK"); ok {
		offer.Stock = Stock{
			Amount:    r.float(stock.Inner, "AMOUNT"),
			Location:  r.text(stock.Inner, "LOCATION"),
			MinAmount: r.float(stock.Inner, "MINIMAL_AMOUNT"),
			MaxAmount: r.float(stock.Inner, "MAXIMAL_AMOUNT"),
		}
	}

	offer.Parameters = decodeParameters(r, block)
	offer.Pricelists = decodePricelists(r, block)
	offer.VATRates = decodeVATRates(r, block)
	return offer
}

func decodeParameters(r *reader, block string) []Parameter {
	list, ok := r.first(block, "PARAMETERS")
	if !ok {
		return nil
	}
	var out []Parameter
	seen := map[Parameter]bool{}
	for _, el := range r.elements(list.Inner, "PARAMETER") {
		p := Parameter{
			Name:  r.text(el.Inner, "NAME"),
			Value: r.text(el.Inner, "VALUE"),
		}
		if p.Name == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func decodePricelists(r *reader, block string) []Pricelist {
	list, ok := r.first(block, "PRICELISTS")
	if !ok {
		return nil
	}
	var out []Pricelist
	seen := map[string]bool{}
	for _, el := range r.elements(list.Inner, "PRICELIST") {
		p := Pricelist{
			Title:            r.text(el.Inner, "TITLE"),
			Currency:         strings.ToUpper(r.text(el.Inner, "CURRENCY")),
			PriceVAT:         r.float(el.Inner, "PRICE_VAT"),
			StandardPrice:    r.float(el.Inner, "STANDARD_PRICE"),
			ActionPrice:      r.float(el.Inner, "ACTION_PRICE"),
			ActionPriceFrom:  r.text(el.Inner, "ACTION_PRICE_FROM"),
			ActionPriceUntil: r.text(el.Inner, "ACTION_PRICE_UNTIL"),
		}
		if p.isEmpty() {
			continue
		}
		key := p.key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

func decodeVATRates(r *reader, block string) []VATRate {
	list, ok := r.first(block, "VAT_RATES")
	if !ok {
		return nil
	}
	var out []VATRate
	for _, el := range r.elements(list.Inner, "VAT_RATE") {
		rate := VATRate{
			Country: strings.ToUpper(el.Attr("country")),
			Rate:    parseFloat(el.Text()),
		}
		if rate.Rate == nil {
			continue
		}
		out = append(out, rate)
	}
	return out
}

func (p Pricelist) isEmpty() bool {
	return p.Title == "" && p.PriceVAT == nil && p.StandardPrice == nil && p.ActionPrice == nil
}

// key identifies a pricelist by its full content.
func (p Pricelist) key() string {
	return strings.Join([]string{
		p.Title, p.Currency,
		formatOptional(p.PriceVAT), formatOptional(p.StandardPrice), formatOptional(p.ActionPrice),
		p.ActionPriceFrom, p.ActionPriceUntil,
	}, "\x1f")
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%g", *v)
}
