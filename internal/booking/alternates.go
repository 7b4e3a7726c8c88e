package booking

import (
	"context"
	"time"

	"github.com/iliyamo/frontdesk/internal/slot"
)

// Alternate search bounds.
const (
	AlternateStep          = 15 * time.Minute
	MaxAlternates          = 4
	MaxAlternateCandidates = 32
)

// Searcher proposes later windows when the requested one is unavailable.
// It only reads; nothing it returns is held.
type Searcher struct {
	eval  *Evaluator
	store Reader
	holds Holds
}

func NewSearcher(eval *Evaluator, store Reader, holds Holds) *Searcher {
	return &Searcher{eval: eval, store: store, holds: holds}
}

// Search walks forward from anchor in AlternateStep increments, never
// including anchor itself, and returns the start times (UTC) of up to
// MaxAlternates open windows among the first MaxAlternateCandidates.
func (s *Searcher) Search(ctx context.Context, restaurantID string, anchor time.Time, d time.Duration, partySize int) ([]time.Time, error) {
	out := make([]time.Time, 0, MaxAlternates)
	base := slot.NewWindow(anchor, d)
	for i := 1; i <= MaxAlternateCandidates && len(out) < MaxAlternates; i++ {
		w := base.Shift(time.Duration(i) * AlternateStep)
		ok, err := s.open(ctx, restaurantID, w, partySize)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, w.Start)
		}
	}
	return out, nil
}

func (s *Searcher) open(ctx context.Context, restaurantID string, w slot.Window, partySize int) (bool, error) {
	ev, err := s.eval.Evaluate(ctx, restaurantID, w)
	if err != nil {
		return false, err
	}
	if !ev.Admits(partySize) {
		return false, nil
	}
	booked, err := s.store.SlotBooked(ctx, restaurantID, w.ID())
	if err != nil || booked {
		return false, err
	}
	held, err := s.holds.Exists(ctx, slot.HoldKey(restaurantID, w, partySize))
	if err != nil {
		return false, err
	}
	return !held, nil
}
