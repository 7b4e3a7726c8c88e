// Package booking is the reservation engine: capacity evaluation, hold
// orchestration, alternate search and the commit pipeline.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/frontdesk/internal/hold"
	"github.com/iliyamo/frontdesk/internal/model"
	"github.com/iliyamo/frontdesk/internal/repository"
	"github.com/iliyamo/frontdesk/internal/slot"
)

// DefaultCommitTimeout bounds one commit attempt end to end.
const DefaultCommitTimeout = 10 * time.Second

// cleanupTimeout bounds hold release and event publishing, which run on a
// context detached from the request.
const cleanupTimeout = 2 * time.Second

// Holds is the slice of hold.Manager the service uses.
type Holds interface {
	Acquire(ctx context.Context, key, holderID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, holderID string) error
	Exists(ctx context.Context, key string) (bool, error)
	TTLRemaining(ctx context.Context, key string) (time.Duration, bool, error)
	Lookup(ctx context.Context, key string) (*model.Hold, error)
	Ping(ctx context.Context) error
}

// Publisher announces confirmed reservations.  Delivery is best effort.
type Publisher interface {
	PublishConfirmed(ctx context.Context, res *model.Reservation) error
}

// HoldGrant is a successful availability check.
type HoldGrant struct {
	HoldID           string
	RestaurantID     string
	Start            time.Time
	End              time.Time
	DurationMinutes  int
	ExpiresInSeconds int
}

// Options tunes a Service.  Zero values take the defaults.
type Options struct {
	CommitTimeout time.Duration
	HoldTTL       time.Duration
}

// Service coordinates holds and the durable store.
type Service struct {
	store     Store
	holds     Holds
	publisher Publisher
	log       *slog.Logger

	eval     *Evaluator
	search   *Searcher
	pipeline *Pipeline

	commitTimeout time.Duration
	holdTTL       time.Duration
}

// NewService builds a Service.  publisher may be nil.
func NewService(store Store, holds Holds, publisher Publisher, log *slog.Logger, opts Options) *Service {
	if log == nil {
		log = slog.Default()
	}
	if opts.CommitTimeout <= 0 {
		opts.CommitTimeout = DefaultCommitTimeout
	}
	if opts.HoldTTL <= 0 {
		opts.HoldTTL = hold.TTL
	}
	eval := NewEvaluator(store)
	return &Service{
		store:         store,
		holds:         holds,
		publisher:     publisher,
		log:           log,
		eval:          eval,
		search:        NewSearcher(eval, store, holds),
		pipeline:      NewPipeline(store),
		commitTimeout: opts.CommitTimeout,
		holdTTL:       opts.HoldTTL,
	}
}

// CheckAvailability evaluates the window and, when it is open, places a
// hold on it for the caller.
func (s *Service) CheckAvailability(ctx context.Context, req AvailabilityRequest) (*HoldGrant, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	w := req.window()
	ev, err := s.eval.Evaluate(ctx, req.RestaurantID, w)
	if err != nil {
		return nil, s.internal("evaluate capacity", err)
	}
	if ev.Rule == nil {
		return nil, ErrUnbookable
	}

	key := slot.HoldKey(req.RestaurantID, w, req.PartySize)
	held, err := s.holds.Exists(ctx, key)
	if err != nil {
		return nil, s.internal("check hold", err)
	}
	reason := ev.Verdict(req.PartySize)
	if reason == nil && held {
		reason = ErrSlotHeld
	}
	if reason == nil {
		booked, err := s.store.SlotBooked(ctx, req.RestaurantID, w.ID())
		if err != nil {
			return nil, s.internal("check booked slot", err)
		}
		if booked {
			reason = ErrSlotAlreadyBooked
		}
	}
	if reason != nil {
		return nil, s.unavailable(ctx, req, w, "Slot unavailable", reason)
	}

	holderID := hold.NewHolderID()
	ok, err := s.holds.Acquire(ctx, key, holderID, s.holdTTL)
	if err != nil {
		return nil, s.internal("acquire hold", err)
	}
	if !ok {
		return nil, s.unavailable(ctx, req, w, "Slot temporarily held by another request", ErrSlotHeld)
	}
	left, live, err := s.holds.TTLRemaining(ctx, key)
	if err != nil || !live {
		left = s.holdTTL
	}
	return &HoldGrant{
		HoldID:           holderID,
		RestaurantID:     req.RestaurantID,
		Start:            w.Start,
		End:              w.End,
		DurationMinutes:  req.DurationMinutes,
		ExpiresInSeconds: int(left.Round(time.Second) / time.Second),
	}, nil
}

func (s *Service) unavailable(ctx context.Context, req AvailabilityRequest, w slot.Window, msg string, reason error) error {
	alts, err := s.search.Search(ctx, req.RestaurantID, w.Start, w.Duration(), req.PartySize)
	if err != nil {
		s.log.Warn("alternate search failed",
			slog.String("restaurant_id", req.RestaurantID),
			slog.String("slot_id", w.ID()),
			slog.Any("error", err))
		alts = []time.Time{}
	}
	return &UnavailableError{Message: msg, Alternates: alts, Reason: reason}
}

// ReleaseHold drops a hold the caller obtained from CheckAvailability.
// Holds owned by someone else, or already expired, are left alone.
func (s *Service) ReleaseHold(ctx context.Context, req ReleaseRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	key := slot.HoldKey(req.RestaurantID, req.window(), req.PartySize)
	if err := s.holds.Release(ctx, key, req.HoldID); err != nil {
		return s.internal("release hold", err)
	}
	return nil
}

// Commit books the window.  The caller's hold is consumed when HoldID
// matches the live hold; otherwise a new hold is taken for the duration of
// the attempt.  Every failure releases the hold this call owns.  On
// success the hold is left to expire.
func (s *Service) Commit(ctx context.Context, req CommitRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	w := req.window()
	key := slot.HoldKey(req.RestaurantID, w, req.PartySize)

	holderID, err := s.claimHold(ctx, key, req.HoldID)
	if err != nil {
		return "", err
	}

	cctx, cancel := context.WithTimeout(ctx, s.commitTimeout)
	defer cancel()
	res, err := s.pipeline.Commit(cctx, CommitInput{
		RestaurantID: req.RestaurantID,
		Window:       w,
		PartySize:    req.PartySize,
		Name:         req.Name,
		Source:       req.Source,
		ContactPhone: req.ContactPhone,
		ContactEmail: req.ContactEmail,
		Notes:        req.Notes,
	})
	if err != nil {
		s.releaseDetached(ctx, key, holderID)
		return "", s.internal("commit", err)
	}

	s.log.Info("reservation confirmed",
		slog.String("reservation_id", res.ID),
		slog.String("restaurant_id", res.RestaurantID),
		slog.String("slot_id", res.SlotID),
		slog.Int("party_size", res.PartySize))
	s.publish(ctx, res)
	return res.ID, nil
}

// claimHold returns the holder id this commit runs under.
func (s *Service) claimHold(ctx context.Context, key, presented string) (string, error) {
	if presented != "" {
		h, err := s.holds.Lookup(ctx, key)
		if err != nil {
			return "", s.internal("look up hold", err)
		}
		if h != nil {
			if h.HolderID == presented {
				return presented, nil
			}
			return "", ErrSlotHeld
		}
	}
	holderID := hold.NewHolderID()
	ok, err := s.holds.Acquire(ctx, key, holderID, s.holdTTL)
	if err != nil {
		return "", s.internal("acquire hold", err)
	}
	if !ok {
		return "", ErrSlotHeld
	}
	return holderID, nil
}

func (s *Service) releaseDetached(ctx context.Context, key, holderID string) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := s.holds.Release(rctx, key, holderID); err != nil {
		s.log.Error("hold release failed", slog.String("key", key), slog.Any("error", err))
	}
}

func (s *Service) publish(ctx context.Context, res *model.Reservation) {
	if s.publisher == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := s.publisher.PublishConfirmed(pctx, res); err != nil {
		s.log.Warn("publish reservation.confirmed failed",
			slog.String("reservation_id", res.ID),
			slog.Any("error", err))
	}
}

// GetReservation returns one reservation.
func (s *Service) GetReservation(ctx context.Context, id string) (*model.Reservation, error) {
	res, err := s.store.Reservation(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, s.internal("get reservation", err)
	}
	return res, nil
}

// CancelReservation moves a confirmed reservation to cancelled, freeing
// its slot and capacity.
func (s *Service) CancelReservation(ctx context.Context, id string) error {
	err := s.store.Cancel(ctx, id)
	switch {
	case err == nil:
		s.log.Info("reservation cancelled", slog.String("reservation_id", id))
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrReservationNotFound
	case errors.Is(err, repository.ErrNoChange):
		return ErrAlreadyCancelled
	}
	return s.internal("cancel reservation", err)
}

// GetRestaurant returns restaurant reference data.
func (s *Service) GetRestaurant(ctx context.Context, id string) (*model.Restaurant, error) {
	r, err := s.store.Restaurant(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrRestaurantNotFound
	}
	if err != nil {
		return nil, s.internal("get restaurant", err)
	}
	return r, nil
}

// Ready reports whether both MySQL and Redis answer.
func (s *Service) Ready(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: mysql: %w", ErrBackingStoreUnavailable, err)
	}
	if err := s.holds.Ping(ctx); err != nil {
		return fmt.Errorf("%w: redis: %w", ErrBackingStoreUnavailable, err)
	}
	return nil
}

// internal passes typed outcomes through and tags store failures; other
// errors are wrapped with op for the log.
func (s *Service) internal(op string, err error) error {
	if isOutcome(err) {
		return err
	}
	if f := storeFailure(err); errors.Is(f, ErrBackingStoreUnavailable) {
		return f
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isOutcome(err error) bool {
	for _, target := range []error{
		ErrInvalidInput, ErrBackingStoreUnavailable, ErrUnbookable, ErrSlotHeld,
		ErrCapacityExceeded, ErrSlotAlreadyBooked, ErrSlotUnavailable, ErrBlackedOut,
		ErrReservationNotFound, ErrRestaurantNotFound, ErrAlreadyCancelled,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
