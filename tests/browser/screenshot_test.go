package browser

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/labtests-e2e/internal/artifacts"
	"github.com/kuitang/labtests-e2e/internal/pages"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

// TestScreenshot_ListingAndDetailUploaded captures the listing and one detail page
// and stores them the way a failed run does.
func TestScreenshot_ListingAndDetailUploaded(t *testing.T) {
	skipShort(t)
	env := SetupBrowserTestEnv(t)
	env.InitBrowser(t)

	store := artifacts.TestStore(t, "browser-test-bucket")
	ctx := context.Background()

	listing := env.OpenListing(t, env.BaseURL)
	shot, err := pages.Screenshot(listing.Page())
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(shot, pngMagic))
	_, err = store.PutScreenshot(ctx, "browser-run", "listing", shot)
	require.NoError(t, err)

	detail, err := listing.OpenDetails("Vitamin D (25-OH)")
	require.NoError(t, err)
	shot, err = pages.Screenshot(listing.Page())
	require.NoError(t, err)
	_, err = store.PutScreenshot(ctx, "browser-run", "detail VIT_D", shot)
	require.NoError(t, err)
	_, err = detail.Back()
	require.NoError(t, err)

	keys, err := store.RunObjects(ctx, "browser-run")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		artifacts.ScreenshotKey("browser-run", "listing"),
		artifacts.ScreenshotKey("browser-run", "detail VIT_D"),
	}, keys)
}
