package auth

import (
	"context"
	"sync"
)

// InventoryTokens manages the omnichannel inventory API token. The API
// rotates it on its own schedule by echoing a replacement in a response
// header; Rotate persists the replacement for subsequent calls.
type InventoryTokens struct {
	store TokenStore
	mu    sync.Mutex
}

// NewInventoryTokens creates an InventoryTokens manager.
func NewInventoryTokens(store TokenStore) *InventoryTokens {
	return &InventoryTokens{store: store}
}

// Token returns the current inventory token.
func (t *InventoryTokens) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	doc, err := t.store.Load(ctx)
	if err != nil {
		return "", err
	}
	if doc.InventoryToken == "" {
		return "", ErrNoCredentials
	}
	return doc.InventoryToken, nil
}

// Rotate stores a replacement token, leaving the marketplace credentials
// untouched. A blank replacement is ignored.
func (t *InventoryTokens) Rotate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	doc, err := t.store.Load(ctx)
	if err != nil {
		return err
	}
	if doc.InventoryToken == token {
		return nil
	}
	doc.InventoryToken = token
	return t.store.Save(ctx, doc)
}
