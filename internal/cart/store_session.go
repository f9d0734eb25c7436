package cart

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	pkgerrors "github.com/angelmondragon/shoppingcart/pkg/errors"
	"github.com/angelmondragon/shoppingcart/pkg/redis"
)

type sessionClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Touch(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	CartKey(instance string) string
}

// SessionStore keeps cart content in redis with a sliding TTL.
type SessionStore struct {
	client sessionClient
	ttl    time.Duration
}

// NewSessionStore builds a redis backed store. A zero ttl keeps carts forever.
func NewSessionStore(client sessionClient, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Load(ctx context.Context, instance string) (*Content, bool, error) {
	key := s.client.CartKey(instance)
	raw, err := s.client.Get(ctx, key)
	if errors.Is(err, redis.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart session")
	}

	var content Content
	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode cart session")
	}
	if s.ttl > 0 {
		if _, err := s.client.Touch(ctx, key, s.ttl); err != nil {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh cart session ttl")
		}
	}
	return &content, true, nil
}

func (s *SessionStore) Save(ctx context.Context, instance string, content *Content) error {
	raw, err := json.Marshal(content)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart session")
	}
	if err := s.client.Set(ctx, s.client.CartKey(instance), string(raw), s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart session")
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, instance string) error {
	if err := s.client.Del(ctx, s.client.CartKey(instance)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart session")
	}
	return nil
}
