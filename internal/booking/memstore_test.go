package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/iliyamo/frontdesk/internal/model"
	"github.com/iliyamo/frontdesk/internal/repository"
	"github.com/iliyamo/frontdesk/internal/slot"
)

// memStore is an in-memory Store.  WithinTx runs one transaction at a
// time, which matches what the rule row lock gives the SQL store for
// commits that share a rule.
type memStore struct {
	txMu sync.Mutex

	mu           sync.Mutex
	rules        []model.CapacityRule
	blackouts    []model.Blackout
	reservations map[string]*model.Reservation
	restaurants  map[string]*model.Restaurant
	err          error
}

func newMemStore() *memStore {
	return &memStore{
		reservations: map[string]*model.Reservation{},
		restaurants:  map[string]*model.Restaurant{},
	}
}

func (s *memStore) addRule(r model.CapacityRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = uint64(len(s.rules) + 1)
	s.rules = append(s.rules, r)
}

func (s *memStore) addBlackout(b model.Blackout) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blackouts = append(s.blackouts, b)
}

func (s *memStore) failWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *memStore) confirmed(restaurantID string) []model.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Reservation
	for _, r := range s.reservations {
		if r.RestaurantID == restaurantID && r.Status == model.StatusConfirmed {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTS.Before(out[j].StartTS) })
	return out
}

func (s *memStore) RuleForWindow(_ context.Context, restaurantID string, w slot.Window) (*model.CapacityRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var best *model.CapacityRule
	for i := range s.rules {
		r := &s.rules[i]
		if r.RestaurantID != restaurantID || !w.Overlaps(slot.Window{Start: r.StartTS, End: r.EndTS}) {
			continue
		}
		if best == nil || r.StartTS.After(best.StartTS) || (r.StartTS.Equal(best.StartTS) && r.ID > best.ID) {
			best = r
		}
	}
	if best == nil {
		return nil, nil
	}
	rule := *best
	return &rule, nil
}

func (s *memStore) Usage(_ context.Context, restaurantID string, w slot.Window) (model.Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return model.Usage{}, s.err
	}
	var u model.Usage
	for _, r := range s.reservations {
		if r.RestaurantID == restaurantID && r.Status == model.StatusConfirmed &&
			w.Overlaps(slot.Window{Start: r.StartTS, End: r.EndTS}) {
			u.Covers += r.PartySize
			u.Parties++
		}
	}
	return u, nil
}

func (s *memStore) BlackedOut(_ context.Context, restaurantID string, w slot.Window) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	for _, b := range s.blackouts {
		if b.RestaurantID == restaurantID && w.Overlaps(slot.Window{Start: b.StartTS, End: b.EndTS}) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) SlotBooked(_ context.Context, restaurantID, slotID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	return s.slotTaken(restaurantID, slotID), nil
}

// slotTaken mirrors the unique index on (restaurant_id, confirmed_slot_id).
// Callers hold s.mu.
func (s *memStore) slotTaken(restaurantID, slotID string) bool {
	for _, r := range s.reservations {
		if r.RestaurantID == restaurantID && r.SlotID == slotID && r.Status == model.StatusConfirmed {
			return true
		}
	}
	return false
}

func (s *memStore) WithinTx(ctx context.Context, fn func(Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{s: s}
	if err := fn(tx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range tx.pending {
		s.reservations[r.ID] = r
	}
	return nil
}

func (s *memStore) Reservation(_ context.Context, id string) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	r, ok := s.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *memStore) Cancel(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	r, ok := s.reservations[id]
	if !ok {
		return repository.ErrNotFound
	}
	if r.Status != model.StatusConfirmed {
		return repository.ErrNoChange
	}
	r.Status = model.StatusCancelled
	return nil
}

func (s *memStore) Restaurant(_ context.Context, id string) (*model.Restaurant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	r, ok := s.restaurants[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *memStore) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

type memTx struct {
	s       *memStore
	pending []*model.Reservation
}

func (t *memTx) LockRule(ctx context.Context, restaurantID string, w slot.Window) (*model.CapacityRule, error) {
	return t.s.RuleForWindow(ctx, restaurantID, w)
}

func (t *memTx) BlackedOut(ctx context.Context, restaurantID string, w slot.Window) (bool, error) {
	return t.s.BlackedOut(ctx, restaurantID, w)
}

func (t *memTx) Usage(ctx context.Context, restaurantID string, w slot.Window) (model.Usage, error) {
	return t.s.Usage(ctx, restaurantID, w)
}

func (t *memTx) Insert(_ context.Context, res *model.Reservation) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.s.err != nil {
		return t.s.err
	}
	if t.s.slotTaken(res.RestaurantID, res.SlotID) {
		return fmt.Errorf("%w: duplicate %s", repository.ErrSlotTaken, res.SlotID)
	}
	cp := *res
	t.pending = append(t.pending, &cp)
	return nil
}
