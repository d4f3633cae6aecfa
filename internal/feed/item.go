package feed

import "fmt"

// ShopItem is one catalog entry of the source document.
type ShopItem struct {
	ID               string `json:"id,omitempty"`
	ImportCode       string `json:"import_code,omitempty"`
	Name             string `json:"name,omitempty"`
	GUID             string `json:"guid,omitempty"`
	ShortDescription string `json:"short_description,omitempty"`
	Description      string `json:"description,omitempty"`
	Warranty         string `json:"warranty,omitempty"`
	Appendix         string `json:"appendix,omitempty"`
	Manufacturer     string `json:"manufacturer,omitempty"`
	Supplier         string `json:"supplier,omitempty"`
	Adult            bool   `json:"adult"`
	ItemType         string `json:"item_type,omitempty"`

	// Categories holds raw category paths such as "Tea > Green Tea".
	Categories []string `json:"categories,omitempty"`
	Images     []string `json:"images,omitempty"`

	TextProperties      []TextProperty `json:"text_properties,omitempty"`
	RelatedProducts     []string       `json:"related_products,omitempty"`
	AlternativeProducts []string       `json:"alternative_products,omitempty"`
	RelatedFiles        []Link         `json:"related_files,omitempty"`
	RelatedVideos       []Link         `json:"related_videos,omitempty"`
	Flags               []Flag         `json:"flags,omitempty"`
	SetItems            []SetItem      `json:"set_items,omitempty"`

	Visibility       string           `json:"visibility,omitempty"`
	SEOTitle         string           `json:"seo_title,omitempty"`
	MetaDescription  string           `json:"meta_description,omitempty"`
	InternalNote     string           `json:"internal_note,omitempty"`
	MarketCategories []MarketCategory `json:"market_categories,omitempty"`

	Top      Offer   `json:"top"`
	Variants []Offer `json:"variants,omitempty"`
}

// TextProperty is a named free-text fact about an item.
type TextProperty struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// Link is a related file or video.
type Link struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// Flag is a promotional or status marker. Active is nil when the source
// does not state it explicitly.
type Flag struct {
	Code      string `json:"code"`
	Title     string `json:"title,omitempty"`
	Active    *bool  `json:"active,omitempty"`
	ValidFrom string `json:"valid_from,omitempty"`
	ValidTo   string `json:"valid_to,omitempty"`
}

// SetItem is one component of a bundle.
type SetItem struct {
	Code   string   `json:"code"`
	Amount *float64 `json:"amount,omitempty"`
}

// MarketCategory maps the item into a price-comparison marketplace taxonomy.
type MarketCategory struct {
	Market string `json:"market"`
	ID     string `json:"id"`
}

var marketCategoryTags = []struct {
	tag    string
	market string
}{
	{"HEUREKA_CATEGORY_ID", "heureka"},
	{"ZBOZI_CATEGORY_ID", "zbozi"},
	{"GOOGLE_CATEGORY_ID", "google"},
	{"GLAMI_CATEGORY_ID", "glami"},
}

// list sections of an item; their children must not be read as item or
// top-offer fields
var itemLists = []string{
	"VARIANTS", "TEXT_PROPERTIES", "SET_ITEMS", "FLAGS",
	"RELATED_PRODUCTS", "ALTERNATIVE_PRODUCTS", "RELATED_FILES", "RELATED_VIDEOS",
	"CATEGORIES", "IMAGES",
}

// long text fields; they may embed markup and are read before being removed
var itemTexts = []string{"DESCRIPTION", "SHORT_DESCRIPTION", "WARRANTY", "APPENDIX"}

// Decode decodes every SHOPITEM of a document in document order.
func Decode(doc string) ([]ShopItem, error) {
	blocks, err := Elements(doc, "SHOPITEM")
	if err != nil {
		return nil, err
	}
	items := make([]ShopItem, 0, len(blocks))
	for i, block := range blocks {
		item, err := DecodeShopItem(block)
		if err != nil {
			return nil, fmt.Errorf("shop item %d: %w", i+1, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// DecodeShopItem decodes one SHOPITEM element.
func DecodeShopItem(el Element) (ShopItem, error) {
	r := &reader{}
	body := el.Inner
	scalars := r.without(body, itemLists...)

	item := ShopItem{
		ID:               el.Attr("id"),
		ImportCode:       el.Attr("import-code"),
		ShortDescription: r.text(scalars, "SHORT_DESCRIPTION"),
		Description:      r.text(scalars, "DESCRIPTION"),
		Warranty:         r.text(scalars, "WARRANTY"),
		Appendix:         r.text(scalars, "APPENDIX"),
	}

	offerBody := r.without(scalars, itemTexts...)
	fields := r.without(offerBody, offerSubLists...)

	item.Name = r.text(fields, "NAME")
	item.GUID = r.text(fields, "GUID")
	item.Manufacturer = r.text(fields, "MANUFACTURER")
	item.Supplier = r.text(fields, "SUPPLIER")
	item.Adult = r.bool(fields, "ADULT", false)
	item.ItemType = r.text(fields, "ITEM_TYPE")
	item.Visibility = r.text(fields, "VISIBILITY")
	item.SEOTitle = r.text(fields, "SEO_TITLE")
	item.MetaDescription = r.text(fields, "META_DESCRIPTION")
	item.InternalNote = r.text(fields, "INTERNAL_NOTE")
	if item.ImportCode == "" {
		item.ImportCode = r.text(fields, "IMPORT_CODE")
	}
	for _, mc := range marketCategoryTags {
		if id := r.text(fields, mc.tag); id != "" {
			item.MarketCategories = append(item.MarketCategories, MarketCategory{Market: mc.market, ID: id})
		}
	}

	item.Top = decodeOffer(r, offerBody)
	if item.ID == "" {
		item.ID = item.Top.VariantID
	}
	item.Top.VariantID = ""

	item.Categories = decodeCategories(r, body)
	item.Images = decodeImages(r, body)
	item.TextProperties = decodeTextProperties(r, body)
	item.RelatedProducts = decodeCodes(r, body, "RELATED_PRODUCTS")
	item.AlternativeProducts = decodeCodes(r, body, "ALTERNATIVE_PRODUCTS")
	item.RelatedFiles = decodeLinks(r, body, "RELATED_FILES", "FILE")
	item.RelatedVideos = decodeLinks(r, body, "RELATED_VIDEOS", "VIDEO")
	item.Flags = decodeFlags(r, body)
	item.SetItems = decodeSetItems(r, body)
	item.Variants = decodeVariants(r, body)

	if r.err != nil {
		return ShopItem{}, r.err
	}
	return item, nil
}

func decodeCategories(r *reader, body string) []string {
	list, ok := r.first(body, "CATEGORIES")
	if !ok {
		return nil
	}
	var paths []string
	paths = append(paths, r.texts(list.Inner, "DEFAULT_CATEGORY")...)
	paths = append(paths, r.texts(list.Inner, "CATEGORY")...)
	return dedupeStrings(paths)
}

func decodeImages(r *reader, body string) []string {
	list, ok := r.first(body, "IMAGES")
	if !ok {
		return nil
	}
	return r.texts(list.Inner, "IMAGE")
}

func decodeTextProperties(r *reader, body string) []TextProperty {
	list, ok := r.first(body, "TEXT_PROPERTIES")
	if !ok {
		return nil
	}
	var out []TextProperty
	seen := map[TextProperty]bool{}
	for _, el := range r.elements(list.Inner, "TEXT_PROPERTY") {
		p := TextProperty{
			Name:        r.text(el.Inner, "NAME"),
			Value:       r.text(el.Inner, "VALUE"),
			Description: r.text(el.Inner, "DESCRIPTION"),
		}
		if p.Name == "" && p.Value == "" {
			continue
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func decodeCodes(r *reader, body, listName string) []string {
	list, ok := r.first(body, listName)
	if !ok {
		return nil
	}
	return r.texts(list.Inner, "CODE")
}

func decodeLinks(r *reader, body, listName, entryName string) []Link {
	list, ok := r.first(body, listName)
	if !ok {
		return nil
	}
	var out []Link
	seen := map[string]bool{}
	for _, el := range r.elements(list.Inner, entryName) {
		link := Link{
			URL:   r.text(el.Inner, "URL"),
			Title: r.text(el.Inner, "TITLE"),
		}
		if link.URL == "" && link.Title == "" {
			// bare <VIDEO>https://...</VIDEO>
			link.URL = el.Text()
		}
		if link.URL == "" || seen[link.URL] {
			continue
		}
		seen[link.URL] = true
		out = append(out, link)
	}
	return out
}

func decodeFlags(r *reader, body string) []Flag {
	list, ok := r.first(body, "FLAGS")
	if !ok {
		return nil
	}
	var out []Flag
	for _, el := range r.elements(list.Inner, "FLAG") {
		flag := Flag{
			Code:      r.text(el.Inner, "CODE"),
			Title:     r.text(el.Inner, "TITLE"),
			Active:    r.optBool(el.Inner, "ACTIVE"),
			ValidFrom: r.text(el.Inner, "VALID_FROM"),
			ValidTo:   r.text(el.Inner, "VALID_TO"),
		}
		if flag.Code == "" {
			continue
		}
		out = append(out, flag)
	}
	return out
}

func decodeSetItems(r *reader, body string) []SetItem {
	list, ok := r.first(body, "SET_ITEMS")
	if !ok {
		return nil
	}
	var out []SetItem
	for _, el := range r.elements(list.Inner, "SET_ITEM") {
		item := SetItem{
			Code:   r.text(el.Inner, "CODE"),
			Amount: r.float(el.Inner, "AMOUNT"),
		}
		if item.Code == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

func decodeVariants(r *reader, body string) []Offer {
	list, ok := r.first(body, "VARIANTS")
	if !ok {
		return nil
	}
	var out []Offer
	for _, el := range r.elements(list.Inner, "VARIANT") {
		offer := decodeOffer(r, el.Inner)
		if id := el.Attr("id"); id != "" {
			offer.VariantID = id
		}
		out = append(out, offer)
	}
	return out
}
