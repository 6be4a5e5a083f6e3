// Package assets wires the console's managed hosts into a collection store
// and provides the list views built on top of it.
package assets

import (
	"context"

	"github.com/cjl-github/chiwen/internal/collection"
	"github.com/cjl-github/chiwen/internal/log"
	"github.com/cjl-github/chiwen/internal/platform"
)

// Asset is a managed host.
type Asset = platform.Asset

// Store is the in-memory asset collection.
type Store = collection.Store[Asset]

// API is the part of the console client the asset backend uses.
type API interface {
	ListAssets(ctx context.Context, token string) ([]platform.Asset, error)
	DeleteAsset(ctx context.Context, token string, id platform.AssetID) error
	UpdateAssetLabels(ctx context.Context, token string, id platform.AssetID, labels map[string]string) error
}

// Backend adapts API to collection.Backend.
type Backend struct {
	api API
}

// NewBackend creates a backend over api.
func NewBackend(api API) *Backend {
	return &Backend{api: api}
}

// List fetches all assets.
func (b *Backend) List(ctx context.Context, token string) ([]Asset, error) {
	return b.api.ListAssets(ctx, token)
}

// Delete removes an asset.
func (b *Backend) Delete(ctx context.Context, token, id string) error {
	return b.api.DeleteAsset(ctx, token, platform.AssetID(id))
}

// UpdateMetadata replaces an asset's labels.
func (b *Backend) UpdateMetadata(ctx context.Context, token, id string, fields map[string]string) error {
	return b.api.UpdateAssetLabels(ctx, token, platform.AssetID(id), fields)
}

// NewStore creates the asset store.
func NewStore(api API, tokens collection.TokenSource, logger *log.Logger) *Store {
	return collection.New[Asset](NewBackend(api), tokens, collection.Options[Asset]{
		Name:   "assets",
		ID:     ID,
		Patch:  PatchLabels,
		Logger: logger,
	})
}

// ID returns the asset's identity.
func ID(a Asset) string {
	return string(a.ID)
}

// PatchLabels returns a with its labels replaced.
func PatchLabels(a Asset, labels map[string]string) Asset {
	a.Labels = labels
	return a
}

var _ collection.Backend[Asset] = (*Backend)(nil)
