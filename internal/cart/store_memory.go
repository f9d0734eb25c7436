package cart

import (
	"context"
	"encoding/json"
	"sync"

	pkgerrors "github.com/angelmondragon/shoppingcart/pkg/errors"
)

// MemoryStore keeps cart content in process. Content is stored in its serialized
// form so callers never share mutable state with the store.
type MemoryStore struct {
	mu    sync.RWMutex
	carts map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: map[string][]byte{}}
}

func (s *MemoryStore) Load(_ context.Context, instance string) (*Content, bool, error) {
	s.mu.RLock()
	raw, ok := s.carts[instance]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	var content Content
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode cart content")
	}
	return &content, true, nil
}

func (s *MemoryStore) Save(_ context.Context, instance string, content *Content) error {
	raw, err := json.Marshal(content)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart content")
	}
	s.mu.Lock()
	s.carts[instance] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, instance string) error {
	s.mu.Lock()
	delete(s.carts, instance)
	s.mu.Unlock()
	return nil
}
