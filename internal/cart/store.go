package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	redisclient "github.com/angelmondragon/storefront-backend/pkg/redis"
)

var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{16,128}$`)

const updateAttempts = 10

type kvStore interface {
	Get(ctx context.Context, key string) (string, error)
	CompareAndSwap(ctx context.Context, key, expected, value string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	CartKey(token string) string
}

// Store persists carts as JSON documents with a sliding TTL.
type Store struct {
	kv  kvStore
	ttl time.Duration
}

// NewStore builds a Redis-backed cart store.
func NewStore(kv kvStore, ttl time.Duration) (*Store, error) {
	if kv == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cart ttl must be positive")
	}
	return &Store{kv: kv, ttl: ttl}, nil
}

// ValidateToken checks the opaque cart token format.
func ValidateToken(token string) error {
	if !tokenPattern.MatchString(token) {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid cart token").
			WithDetails(map[string]string{"token": "must be 16-128 characters of [A-Za-z0-9_-]"})
	}
	return nil
}

// Load returns the stored cart, or an empty one when none exists.
func (s *Store) Load(ctx context.Context, token string) (*Cart, error) {
	c, _, err := s.load(ctx, token)
	return c, err
}

func (s *Store) load(ctx context.Context, token string) (*Cart, string, error) {
	raw, err := s.kv.Get(ctx, s.kv.CartKey(token))
	if err != nil {
		if redisclient.IsNil(err) {
			return &Cart{}, "", nil
		}
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	var c Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode cart")
	}
	return &c, raw, nil
}

// Update applies mutate to the stored cart and writes it back only if no
// other writer replaced the document in between; otherwise it reloads and
// retries. Errors from mutate abort without writing.
func (s *Store) Update(ctx context.Context, token string, mutate func(*Cart) error) (*Cart, error) {
	key := s.kv.CartKey(token)
	for attempt := 0; attempt < updateAttempts; attempt++ {
		c, raw, err := s.load(ctx, token)
		if err != nil {
			return nil, err
		}
		if err := mutate(c); err != nil {
			return nil, err
		}
		c.UpdatedAt = time.Now().UTC()
		next, err := json.Marshal(c)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart")
		}
		swapped, err := s.kv.CompareAndSwap(ctx, key, raw, string(next), s.ttl)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
		}
		if swapped {
			return c, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is being modified concurrently")
}

// Delete removes the cart.
func (s *Store) Delete(ctx context.Context, token string) error {
	if err := s.kv.Del(ctx, s.kv.CartKey(token)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart")
	}
	return nil
}
