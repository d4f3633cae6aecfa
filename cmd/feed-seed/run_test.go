package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lithammer/dedent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raine/catalog-feed-import/internal/catalog"
	"github.com/raine/catalog-feed-import/internal/source"
	"github.com/raine/catalog-feed-import/internal/storage"
)

var feedDoc = dedent.Dedent(`
	<SHOP>
	  <SHOPITEM id="1">
	    <NAME>Sencha</NAME>
	    <CODE>SEN-01</CODE>
	    <PRICE_VAT>9.90</PRICE_VAT>
	    <CATEGORIES><CATEGORY>Tea > Green</CATEGORY></CATEGORIES>
	  </SHOPITEM>
	</SHOP>
`)

func testOptions() catalog.Options {
	return catalog.Options{ReferenceTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestBuildAll_SeparateContextPerFeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.xml")
	require.NoError(t, os.WriteFile(path, []byte(feedDoc), 0o644))

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(feedDoc))
	}))
	defer ts.Close()

	locs := []source.Location{{Path: path}, {Path: ts.URL, Remote: true}}
	results, err := buildAll(context.Background(), source.NewLoader(time.Second), locs, testOptions())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, path, results[0].Source)
	assert.Equal(t, ts.URL, results[1].Source)
	for _, r := range results {
		require.Len(t, r.Seed.Products, 1)
		// the same feed yields the same identifiers in each build
		assert.Equal(t, "sencha-1", r.Seed.Products[0].Handle)
		assert.Equal(t, "SEN-01", r.Seed.Products[0].Variants[0].SKU)
		assert.Len(t, r.Seed.Categories, 2)
	}
}

func TestBuildAll_FailsOnMissingFeed(t *testing.T) {
	locs := []source.Location{{Path: filepath.Join(t.TempDir(), "missing.xml")}}

	_, err := buildAll(context.Background(), source.NewLoader(time.Second), locs, testOptions())
	assert.ErrorContains(t, err, "missing.xml")
}

func TestWriteJSON(t *testing.T) {
	seed := catalog.Seed{Categories: []catalog.CategorySeed{}, Products: []catalog.ProductSeed{}}

	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, []result{{Source: "a.xml", Seed: seed}}, false))
	var single map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &single))
	assert.Contains(t, single, "products")

	buf.Reset()
	require.NoError(t, writeJSON(&buf, []result{{Source: "a.xml", Seed: seed}, {Source: "b.xml", Seed: seed}}, true))
	var many []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &many))
	require.Len(t, many, 2)
	assert.Equal(t, "b.xml", many[1]["source"])
}

func TestSaveRuns_SkipUnchanged(t *testing.T) {
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	defer store.Close()

	seed, err := catalog.BuildDocument(feedDoc, testOptions())
	require.NoError(t, err)
	results := []result{{Source: "feed.xml", Seed: seed}}

	require.NoError(t, saveRuns(store, results, true))
	require.NoError(t, saveRuns(store, results, true))
	runs, err := store.ListRuns(0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	require.NoError(t, saveRuns(store, results, false))
	runs, err = store.ListRuns(0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

type failingStore struct {
	storage.SeedStore
}

func (failingStore) SaveRun(string, catalog.Seed) (*storage.Run, error) {
	return nil, errors.New("disk full")
}

func TestSaveRuns_ReturnsStoreError(t *testing.T) {
	seed, err := catalog.BuildDocument(feedDoc, testOptions())
	require.NoError(t, err)

	err = saveRuns(failingStore{}, []result{{Source: "feed.xml", Seed: seed}}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feed.xml")
	assert.Contains(t, err.Error(), "disk full")
}

func TestStoreResults(t *testing.T) {
	seed, err := catalog.BuildDocument(feedDoc, testOptions())
	require.NoError(t, err)
	results := []result{{Source: "feed.xml", Seed: seed}}

	dbPath := filepath.Join(t.TempDir(), "seed.db")
	require.NoError(t, storeResults(dbPath, results, true))

	store, err := storage.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()
	run, err := store.LatestRunOf("feed.xml")
	require.NoError(t, err)
	assert.NotNil(t, run)

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	assert.Error(t, storeResults(filepath.Join(blocker, "seed.db"), results, true))
}

func TestResolveFeeds_SeveralMustExist(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.xml")
	require.NoError(t, os.WriteFile(a, []byte(feedDoc), 0o644))

	locs, err := resolveFeeds([]string{a, "https://example.com/b.xml"}, "")
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.True(t, locs[1].Remote)

	_, err = resolveFeeds([]string{a, filepath.Join(dir, "b.xml")}, "")
	assert.ErrorIs(t, err, source.ErrSourceNotFound)
}
