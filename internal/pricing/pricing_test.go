package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raine/catalog-feed-import/internal/feed"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func price(v float64) *float64 { return &v }

func day(offset int) string {
	return now.AddDate(0, 0, offset).Format("2006-01-02")
}

func TestResolve_ActionInsideWindow(t *testing.T) {
	offer := feed.Offer{
		StandardPrice:    price(100),
		ActionPrice:      price(80),
		ActionPriceFrom:  day(-1),
		ActionPriceUntil: day(1),
	}

	q := Resolve(offer, nil, now)
	assert.Equal(t, 80.0, q.Current)
	assert.True(t, q.Discounted)
	require.NotNil(t, q.CompareAt)
	assert.Equal(t, 100.0, *q.CompareAt)
	assert.True(t, HasActiveDiscount(offer, nil, now))
}

func TestResolve_WindowEnded(t *testing.T) {
	offer := feed.Offer{
		StandardPrice:    price(100),
		ActionPrice:      price(80),
		ActionPriceFrom:  day(-5),
		ActionPriceUntil: day(-1),
	}

	assert.Equal(t, 100.0, CurrentPrice(offer, nil, now))
	assert.False(t, HasActiveDiscount(offer, nil, now))
	assert.Nil(t, EffectiveActionPrice(offer, nil, now))
}

func TestResolve_OnlyStandardPrice(t *testing.T) {
	offer := feed.Offer{StandardPrice: price(50)}

	q := Resolve(offer, nil, now)
	assert.Equal(t, 50.0, q.Current)
	assert.False(t, q.Discounted)
	assert.Nil(t, q.CompareAt)
}

func TestResolve_ActionNotLowerIsIgnored(t *testing.T) {
	offer := feed.Offer{StandardPrice: price(50), ActionPrice: price(60)}

	assert.Equal(t, 50.0, CurrentPrice(offer, nil, now))
	assert.False(t, HasActiveDiscount(offer, nil, now))
}

func TestResolve_ActionWithoutBase(t *testing.T) {
	offer := feed.Offer{ActionPrice: price(30)}

	q := Resolve(offer, nil, now)
	assert.Equal(t, 30.0, q.Current)
	assert.False(t, q.Discounted)
}

func TestResolve_NothingKnown(t *testing.T) {
	assert.Equal(t, 0.0, CurrentPrice(feed.Offer{}, nil, now))
}

func TestBasePrice_Fallbacks(t *testing.T) {
	top := feed.Offer{PriceVAT: price(12)}

	assert.Equal(t, 9.0, *BasePrice(feed.Offer{StandardPrice: price(9), PriceVAT: price(10)}, &top))
	assert.Equal(t, 10.0, *BasePrice(feed.Offer{PriceVAT: price(10)}, &top))
	assert.Equal(t, 12.0, *BasePrice(feed.Offer{}, &top))
	assert.Nil(t, BasePrice(feed.Offer{}, nil))
}

func TestResolve_VariantInheritsTopPromotion(t *testing.T) {
	top := feed.Offer{StandardPrice: price(20), ActionPrice: price(15)}
	variant := feed.Offer{Code: "V1"}

	q := Resolve(variant, &top, now)
	assert.Equal(t, 15.0, q.Current)
	assert.True(t, q.Discounted)
}

func TestResolve_OnlyReferenceInstantChangesOutcome(t *testing.T) {
	offer := feed.Offer{
		StandardPrice:    price(100),
		ActionPrice:      price(80),
		ActionPriceFrom:  "2026-03-01",
		ActionPriceUntil: "2026-03-31",
	}

	inside := Resolve(offer, nil, time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC))
	after := Resolve(offer, nil, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))

	assert.True(t, inside.Discounted)
	assert.False(t, after.Discounted)
	assert.Equal(t, inside.Base, after.Base)
}

func TestCurrency(t *testing.T) {
	top := feed.Offer{Currency: "CZK"}

	assert.Equal(t, "EUR", Currency(feed.Offer{Currency: "EUR"}, &top, "usd"))
	assert.Equal(t, "CZK", Currency(feed.Offer{}, &top, "usd"))
	assert.Equal(t, "USD", Currency(feed.Offer{}, nil, "usd"))
}
