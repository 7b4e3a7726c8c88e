// Package hold implements short-lived advisory holds on reservation slots
// in Redis.  A hold is a single key written with SET NX PX, so exactly one
// of many concurrent acquirers wins while the key is live and the key
// vanishes on its own once the TTL elapses.
//
// Holds never decide correctness on their own: the unique index on
// confirmed reservations does.  Holds exist so conflicting requests fail
// fast, before a database transaction is opened.
package hold

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/frontdesk/internal/model"
)

// TTL is the lifetime of every hold.
const TTL = 300 * time.Second

// ErrUnavailable is returned for every operation when Redis is not
// configured or cannot be reached.  Callers must fail closed.
var ErrUnavailable = errors.New("hold cache unavailable")

// releaseScript deletes the key only while it still belongs to the caller,
// so a commit whose hold already expired cannot drop somebody else's.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// Manager owns all writes to hold keys.
type Manager struct {
	rdb *redis.Client
}

// NewManager returns a Manager backed by rdb.  rdb may be nil, in which
// case every call returns ErrUnavailable.
func NewManager(rdb *redis.Client) *Manager { return &Manager{rdb: rdb} }

// NewHolderID returns a fresh opaque hold identifier.
func NewHolderID() string { return uuid.NewString() }

// Acquire writes key=holderID with the given ttl only if key is absent.
// It reports true iff this call created the entry.
func (m *Manager) Acquire(ctx context.Context, key, holderID string, ttl time.Duration) (bool, error) {
	if m == nil || m.rdb == nil {
		return false, ErrUnavailable
	}
	ok, err := m.rdb.SetNX(ctx, key, holderID, ttl).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return ok, nil
}

// Release removes key if it is still held by holderID.  Releasing a hold
// that expired or belongs to someone else is a no-op.
func (m *Manager) Release(ctx context.Context, key, holderID string) error {
	if m == nil || m.rdb == nil {
		return ErrUnavailable
	}
	if err := releaseScript.Run(ctx, m.rdb, []string{key}, holderID).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return unavailable(err)
	}
	return nil
}

// TTLRemaining returns the time left on key.  The boolean is false when
// the key does not exist.
func (m *Manager) TTLRemaining(ctx context.Context, key string) (time.Duration, bool, error) {
	if m == nil || m.rdb == nil {
		return 0, false, ErrUnavailable
	}
	d, err := m.rdb.PTTL(ctx, key).Result()
	if err != nil {
		return 0, false, unavailable(err)
	}
	// PTTL reports -2 for a missing key and -1 for a key without expiry.
	if d < 0 {
		return 0, false, nil
	}
	return d, true, nil
}

// Exists reports whether a live hold is present on key.
func (m *Manager) Exists(ctx context.Context, key string) (bool, error) {
	if m == nil || m.rdb == nil {
		return false, ErrUnavailable
	}
	n, err := m.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return n > 0, nil
}

// Lookup returns the current hold on key, or nil when there is none.
func (m *Manager) Lookup(ctx context.Context, key string) (*model.Hold, error) {
	if m == nil || m.rdb == nil {
		return nil, ErrUnavailable
	}
	pipe := m.rdb.Pipeline()
	get := pipe.Get(ctx, key)
	pttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, unavailable(err)
	}
	holder, err := get.Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable(err)
	}
	left := pttl.Val()
	if left < 0 {
		left = 0
	}
	return &model.Hold{Key: key, HolderID: holder, ExpiresIn: left}, nil
}

// Ping checks that the backing cache answers.
func (m *Manager) Ping(ctx context.Context) error {
	if m == nil || m.rdb == nil {
		return ErrUnavailable
	}
	if err := m.rdb.Ping(ctx).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
