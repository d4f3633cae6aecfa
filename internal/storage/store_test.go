package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raine/catalog-feed-import/internal/catalog"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleSeed(ref time.Time) catalog.Seed {
	return catalog.Seed{
		ReferenceTime: ref,
		Categories: []catalog.CategorySeed{
			{Name: "Tea", Handle: "tea", IsActive: true},
			{Name: "Green", Handle: "green", IsActive: true, ParentHandle: "tea"},
		},
		Products: []catalog.ProductSeed{
			{
				Title:   "Sencha",
				Handle:  "sencha-101",
				Weight:  100,
				Status:  catalog.StatusPublished,
				Options: []catalog.OptionSeed{{Title: "Variant", Values: []string{"Default"}}},
				Variants: []catalog.VariantSeed{{
					Title:    "Default",
					SKU:      "SEN-01",
					Options:  map[string]string{"Variant": "Default"},
					Prices:   []catalog.PriceSeed{{CurrencyCode: "EUR", Amount: 9.9}},
					Quantity: 4,
				}},
				CategoryHandles: []string{"green"},
			},
		},
	}
}

func TestSaveRun_LoadSeed(t *testing.T) {
	store := newTestStore(t)
	ref := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	run, err := store.SaveRun("feed.xml", sampleSeed(ref))
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, 2, run.Categories)
	assert.Equal(t, 1, run.Products)

	seed, err := store.LoadSeed(run.ID)
	require.NoError(t, err)
	require.NotNil(t, seed)

	assert.True(t, seed.ReferenceTime.Equal(ref))
	require.Len(t, seed.Categories, 2)
	assert.Equal(t, "tea", seed.Categories[0].Handle)
	assert.Equal(t, "tea", seed.Categories[1].ParentHandle)
	require.Len(t, seed.Products, 1)
	p := seed.Products[0]
	assert.Equal(t, "sencha-101", p.Handle)
	assert.Equal(t, []string{"green"}, p.CategoryHandles)
	require.Len(t, p.Variants, 1)
	assert.Equal(t, "SEN-01", p.Variants[0].SKU)
	assert.Equal(t, 9.9, p.Variants[0].Prices[0].Amount)
	assert.Equal(t, 4, p.Variants[0].Quantity)
}

func TestLoadSeed_Missing(t *testing.T) {
	store := newTestStore(t)

	seed, err := store.LoadSeed("nope")
	require.NoError(t, err)
	assert.Nil(t, seed)
}

func TestLatestRun(t *testing.T) {
	store := newTestStore(t)

	run, err := store.LatestRun()
	require.NoError(t, err)
	assert.Nil(t, run)

	ref := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err = store.SaveRun("a.xml", sampleSeed(ref))
	require.NoError(t, err)
	second, err := store.SaveRun("b.xml", sampleSeed(ref))
	require.NoError(t, err)

	run, err = store.LatestRun()
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, second.ID, run.ID)
	assert.Equal(t, "b.xml", run.Source)

	runs, err := store.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b.xml", runs[0].Source)
	assert.Equal(t, "a.xml", runs[1].Source)

	runs, err = store.ListRuns(1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestSeedDigest_IgnoresReferenceTime(t *testing.T) {
	first, err := SeedDigest(sampleSeed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	second, err := SeedDigest(sampleSeed(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	changed := sampleSeed(time.Time{})
	changed.Products[0].Title = "Sencha Premium"
	other, err := SeedDigest(changed)
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestLatestRunOf(t *testing.T) {
	store := newTestStore(t)
	ref := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	run, err := store.LatestRunOf("feed.xml")
	require.NoError(t, err)
	assert.Nil(t, run)

	first, err := store.SaveRun("feed.xml", sampleSeed(ref))
	require.NoError(t, err)
	changed := sampleSeed(ref)
	changed.Products[0].Title = "Sencha Premium"
	second, err := store.SaveRun("feed.xml", changed)
	require.NoError(t, err)
	_, err = store.SaveRun("other.xml", sampleSeed(ref))
	require.NoError(t, err)

	run, err = store.LatestRunOf("feed.xml")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, second.ID, run.ID)
	assert.NotEqual(t, first.Digest, run.Digest)
}

func TestDeleteRun(t *testing.T) {
	store := newTestStore(t)

	run, err := store.SaveRun("feed.xml", sampleSeed(time.Now()))
	require.NoError(t, err)
	require.NoError(t, store.DeleteRun(run.ID))

	seed, err := store.LoadSeed(run.ID)
	require.NoError(t, err)
	assert.Nil(t, seed)

	var n int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM products WHERE run_id = ?`, run.ID).Scan(&n))
	assert.Zero(t, n)
}

func TestNewSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	run, err := store.SaveRun("feed.xml", sampleSeed(time.Now()))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	latest, err := store.LatestRun()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, run.ID, latest.ID)
}

func TestPruneRuns_PerSource(t *testing.T) {
	store := newTestStore(t)
	ref := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, src := range []string{"busy.xml", "quiet.xml", "busy.xml", "busy.xml"} {
		_, err := store.SaveRun(src, sampleSeed(ref))
		require.NoError(t, err)
	}

	n, err := store.PruneRuns(2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	runs, err := store.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "busy.xml", runs[0].Source)
	assert.Equal(t, "busy.xml", runs[1].Source)
	assert.Equal(t, "quiet.xml", runs[2].Source)

	// a quiet source keeps its only run however busy the others are
	n, err = store.PruneRuns(1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	quiet, err := store.LatestRunOf("quiet.xml")
	require.NoError(t, err)
	assert.NotNil(t, quiet)

	var categories int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM categories`).Scan(&categories))
	assert.Equal(t, 4, categories)
}
