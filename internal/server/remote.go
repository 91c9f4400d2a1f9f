package server

import (
	"context"

	"github.com/livetemplate/newyear/internal/store"
)

// storeRemote lets in-process sessions read and write wishes without a round
// trip through the HTTP API.
type storeRemote struct {
	store store.WishStore
}

func (r storeRemote) Fetch(ctx context.Context, name string) ([]string, error) {
	return r.store.List(ctx, name)
}

func (r storeRemote) Save(ctx context.Context, name, wish string) error {
	return r.store.Save(ctx, name, wish)
}
