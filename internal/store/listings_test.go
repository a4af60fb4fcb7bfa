// ABOUTME: Tests for listing store operations
// ABOUTME: Covers price updates, list/delist transitions, and active listing queries

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetListing_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetListing(context.Background(), 999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSetListingPrice(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	assetID, err := store.MintListed(ctx, "seller-1", "ipfs://x", 100)
	require.NoError(t, err)

	err = store.SetListingPrice(ctx, assetID, 250)
	require.NoError(t, err)

	listing, err := store.GetListing(ctx, assetID)
	require.NoError(t, err)
	assert.Equal(t, int64(250), listing.Price)
	assert.True(t, listing.Listed, "price change must not delist")
}

func TestSetListingPrice_NotFound(t *testing.T) {
	store := setupTestStore(t)

	err := store.SetListingPrice(context.Background(), 42, 100)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSetListed_Delist(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	assetID, err := store.MintListed(ctx, "seller-1", "ipfs://x", 100)
	require.NoError(t, err)

	err = store.SetListed(ctx, assetID, "seller-1", 100, false)
	require.NoError(t, err)

	listing, err := store.GetListing(ctx, assetID)
	require.NoError(t, err)
	assert.False(t, listing.Listed)
}

func TestSetListed_Relist(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	assetID, err := store.MintListed(ctx, "seller-1", "ipfs://x", 100)
	require.NoError(t, err)

	// Sale moves ownership and closes the listing
	_, err = store.ExecuteSale(ctx, SaleParams{
		AssetID: assetID, Buyer: "buyer-1", Owner: "seller-1", Seller: "seller-1", Price: 100,
	})
	require.NoError(t, err)

	// New owner relists at a new price
	err = store.SetListed(ctx, assetID, "buyer-1", 500, true)
	require.NoError(t, err)

	listing, err := store.GetListing(ctx, assetID)
	require.NoError(t, err)
	assert.True(t, listing.Listed)
	assert.Equal(t, int64(500), listing.Price)
	assert.Equal(t, "buyer-1", listing.Seller)
}

func TestListActiveListings(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	id1, err := store.MintListed(ctx, "seller-1", "ipfs://a", 100)
	require.NoError(t, err)
	id2, err := store.MintListed(ctx, "seller-2", "ipfs://b", 200)
	require.NoError(t, err)
	id3, err := store.MintListed(ctx, "seller-1", "ipfs://c", 300)
	require.NoError(t, err)

	// Delist the third one
	require.NoError(t, store.SetListed(ctx, id3, "seller-1", 300, false))

	listings, err := store.ListActiveListings(ctx)
	require.NoError(t, err)
	require.Len(t, listings, 2)

	assert.Equal(t, id1, listings[0].AssetID)
	assert.Equal(t, "ipfs://a", listings[0].TokenURI)
	assert.Equal(t, id2, listings[1].AssetID)
	assert.Equal(t, int64(200), listings[1].Price)
}

func TestListActiveListings_Empty(t *testing.T) {
	store := setupTestStore(t)

	listings, err := store.ListActiveListings(context.Background())
	require.NoError(t, err)
	assert.Empty(t, listings)
}
