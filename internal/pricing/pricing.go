// Package pricing resolves the effective price of an offer and the state of
// promotional flags at an explicit reference instant. Nothing here reads the
// clock.
package pricing

import (
	"strings"
	"time"

	"github.com/raine/catalog-feed-import/internal/feed"
)

// Quote is the resolved price of one offer at a reference instant.
type Quote struct {
	// Current is the price a customer pays now. Zero when nothing is known.
	Current float64 `json:"current_price"`
	// CompareAt is the base price when a discount is active.
	CompareAt *float64 `json:"compare_at_price,omitempty"`

	Base       *float64 `json:"base_price,omitempty"`
	Action     *float64 `json:"action_price,omitempty"`
	Discounted bool     `json:"discount_active"`
}

// BasePrice returns the standard price, then the price including VAT, then
// the same two fields of fallback. fallback may be nil.
func BasePrice(offer feed.Offer, fallback *feed.Offer) *float64 {
	if offer.StandardPrice != nil {
		return offer.StandardPrice
	}
	if offer.PriceVAT != nil {
		return offer.PriceVAT
	}
	if fallback == nil {
		return nil
	}
	if fallback.StandardPrice != nil {
		return fallback.StandardPrice
	}
	return fallback.PriceVAT
}

// promotion returns the promotional price and its window, taken from offer
// when it declares one and from fallback otherwise.
func promotion(offer feed.Offer, fallback *feed.Offer) (*float64, Window) {
	if offer.ActionPrice != nil {
		return offer.ActionPrice, ParseWindow(offer.ActionPriceFrom, offer.ActionPriceUntil)
	}
	if fallback != nil && fallback.ActionPrice != nil {
		return fallback.ActionPrice, ParseWindow(fallback.ActionPriceFrom, fallback.ActionPriceUntil)
	}
	return nil, Window{}
}

// EffectiveActionPrice returns the promotional price when its window contains
// at, nil otherwise.
func EffectiveActionPrice(offer feed.Offer, fallback *feed.Offer, at time.Time) *float64 {
	price, window := promotion(offer, fallback)
	if price == nil || !window.Contains(at) {
		return nil
	}
	return price
}

// HasActiveDiscount reports whether an active promotional price undercuts a
// known base price.
func HasActiveDiscount(offer feed.Offer, fallback *feed.Offer, at time.Time) bool {
	action := EffectiveActionPrice(offer, fallback, at)
	base := BasePrice(offer, fallback)
	return action != nil && base != nil && *action < *base
}

// CurrentPrice returns the active promotional price when it undercuts the
// base price, else the base price, else a promotional price that is the only
// value known, else zero.
func CurrentPrice(offer feed.Offer, fallback *feed.Offer, at time.Time) float64 {
	return Resolve(offer, fallback, at).Current
}

// Resolve computes the full quote for offer at instant at.
func Resolve(offer feed.Offer, fallback *feed.Offer, at time.Time) Quote {
	base := BasePrice(offer, fallback)
	action := EffectiveActionPrice(offer, fallback, at)

	q := Quote{Base: base, Action: action}
	switch {
	case action != nil && base != nil && *action < *base:
		q.Current = *action
		q.Discounted = true
		compareAt := *base
		q.CompareAt = &compareAt
	case base != nil:
		q.Current = *base
	default:
		if raw, _ := promotion(offer, fallback); raw != nil {
			q.Current = *raw
		}
	}
	return q
}

// Currency returns the upper-cased offer currency, then the fallback's, then
// def.
func Currency(offer feed.Offer, fallback *feed.Offer, def string) string {
	if offer.Currency != "" {
		return offer.Currency
	}
	if fallback != nil && fallback.Currency != "" {
		return fallback.Currency
	}
	return strings.ToUpper(def)
}
