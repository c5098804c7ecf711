package browser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/labtests-e2e/internal/expect"
	"github.com/kuitang/labtests-e2e/internal/reconcile"
)

func TestListing_RendersEveryBackendItem(t *testing.T) {
	skipShort(t)
	env := SetupBrowserTestEnv(t)
	env.InitBrowser(t)

	cat := BackendCatalog(t, env.BaseURL)
	require.Equal(t, 14, cat.Len())

	listing := env.OpenListing(t, env.BaseURL)
	n, err := listing.CardCount()
	require.NoError(t, err)
	assert.Equal(t, cat.Len(), n)

	cards, err := listing.Snapshot()
	require.NoError(t, err)
	for i, it := range cat.Items() {
		assert.Equal(t, DisplayName(it), cards[i].Name, "card %d", i)
		assert.Equal(t, expect.ListSampleTypeLabel(it.Code, it.SampleType), cards[i].SampleTypeLabel, "card %s", it.Code)
		assert.True(t, cards[i].HasImage, "card %s has no image", it.Code)
	}
}

func TestListing_ReconcilesWithBackend(t *testing.T) {
	skipShort(t)
	env := SetupBrowserTestEnv(t)
	env.InitBrowser(t)

	cat := BackendCatalog(t, env.BaseURL)
	cards, err := env.OpenListing(t, env.BaseURL).Snapshot()
	require.NoError(t, err)

	res := reconcile.Reconcile(context.Background(), cat, cards, reconcile.Options{RequireImages: true})
	require.NoError(t, res.Err())
	require.NoError(t, res.UIErr())
	assert.Equal(t, 0, res.MismatchCount)
	assert.Equal(t, cat.Len(), res.MatchedCount)
	assert.Empty(t, res.MissingBackendItems)
}

// Clicks every View-Details control in backend order and comes back each time.
func TestListing_ViewDetailsOpensEveryItem(t *testing.T) {
	skipShort(t)
	env := SetupBrowserTestEnv(t)
	env.InitBrowser(t)

	cat := BackendCatalog(t, env.BaseURL)
	listing := env.OpenListing(t, env.BaseURL)
	cards, err := listing.Snapshot()
	require.NoError(t, err)

	issues := 0
	for _, it := range cat.Items() {
		name := DisplayName(it)
		detail, err := listing.OpenDetails(name)
		if err != nil {
			t.Errorf("open details of %s: %v", it.Code, err)
			issues++
			require.NoError(t, listing.Open())
			continue
		}
		title, err := detail.Title()
		require.NoError(t, err)
		assert.Equal(t, name, title)
		assert.Contains(t, detail.URL(), "/lab-tests/"+it.Code)

		listing, err = detail.Back()
		require.NoError(t, err)
	}
	assert.Equal(t, 0, issues)

	after, err := listing.Snapshot()
	require.NoError(t, err)
	assert.Len(t, after, len(cards))
}
