package booking

import (
	"context"

	"github.com/iliyamo/frontdesk/internal/model"
	"github.com/iliyamo/frontdesk/internal/slot"
)

// Evaluation is the capacity picture for one window.  A nil Rule means the
// window is unbookable and the other fields are zero.
type Evaluation struct {
	Rule       *model.CapacityRule
	Usage      model.Usage
	BlackedOut bool
}

// Verdict returns nil when a party of partySize fits, otherwise the
// outcome explaining why not.
func (e Evaluation) Verdict(partySize int) error {
	return verdict(e.Rule, e.Usage, e.BlackedOut, partySize)
}

// Admits reports whether a party of partySize fits.
func (e Evaluation) Admits(partySize int) bool { return e.Verdict(partySize) == nil }

// verdict is shared by the advisory evaluation and the commit pipeline so
// both apply the same limits.  A missing rule wins over every other reason.
func verdict(rule *model.CapacityRule, u model.Usage, blackedOut bool, partySize int) error {
	switch {
	case rule == nil:
		return ErrUnbookable
	case blackedOut:
		return ErrBlackedOut
	case !rule.AcceptsParty(partySize),
		u.Covers+partySize > rule.MaxCovers,
		u.Parties+1 > rule.MaxParties:
		return ErrCapacityExceeded
	}
	return nil
}

// Evaluator reads capacity outside any transaction.  Its answers are
// advisory; the commit pipeline re-reads everything under lock.
type Evaluator struct {
	store Reader
}

func NewEvaluator(store Reader) *Evaluator { return &Evaluator{store: store} }

// Evaluate loads the applicable rule, the confirmed usage overlapping w and
// whether w touches a blackout.
func (e *Evaluator) Evaluate(ctx context.Context, restaurantID string, w slot.Window) (Evaluation, error) {
	rule, err := e.store.RuleForWindow(ctx, restaurantID, w)
	if err != nil || rule == nil {
		return Evaluation{}, err
	}
	u, err := e.store.Usage(ctx, restaurantID, w)
	if err != nil {
		return Evaluation{}, err
	}
	out, err := e.store.BlackedOut(ctx, restaurantID, w)
	if err != nil {
		return Evaluation{}, err
	}
	return Evaluation{Rule: rule, Usage: u, BlackedOut: out}, nil
}
