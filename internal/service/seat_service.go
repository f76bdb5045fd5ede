// Package service holds the seat reservation core: availability, the
// reservation engine and the cancellation engine.  It validates a whole
// request before issuing exactly one conditional write to the showtime
// store, so a rejected request never changes seat state.
package service

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/iliyamo/cinema-ticketing/internal/logger"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// ShowtimeStore persists each showtime's occupied seats.  AddOccupied must
// apply all seats or none and reject the write when any seat is already
// occupied.  RemoveOccupied must remove all codes or none and report 0 when
// it removed nothing.
type ShowtimeStore interface {
	Get(ctx context.Context, id string) (*model.Showtime, error)
	List(ctx context.Context) ([]model.Showtime, error)
	AddOccupied(ctx context.Context, id string, seats []model.OccupiedSeat) error
	RemoveOccupied(ctx context.Context, id string, codes []string) (int, error)
}

// LayoutResolver returns the seat layout of a room.
type LayoutResolver interface {
	GetLayout(ctx context.Context, roomID string) (*model.SeatLayout, error)
}

// EventPublisher receives seat events after successful mutations.
type EventPublisher interface {
	PublishSeatEvent(ctx context.Context, ev queue.SeatEvent) error
}

// ReservationResult lists the seats reserved, in request order.
type ReservationResult struct {
	ShowtimeID string   `json:"id"`
	Seats      []string `json:"asientos"`
}

// CancellationResult lists the seats released, in request order.
type CancellationResult struct {
	ShowtimeID string   `json:"id"`
	Seats      []string `json:"asientos"`
}

// Availability is the free-seat view of one showtime.
type Availability struct {
	ShowtimeID string   `json:"id"`
	RoomID     string   `json:"id_sala"`
	Room       string   `json:"sala"`
	Available  []string `json:"asientosDisponibles"`
}

// SeatService wires the engines to their stores.
type SeatService struct {
	showtimes ShowtimeStore
	layouts   LayoutResolver
	events    EventPublisher
	metrics   *Metrics
	now       func() time.Time
}

// NewSeatService builds the service.  events and metrics may be nil.
func NewSeatService(showtimes ShowtimeStore, layouts LayoutResolver, events EventPublisher, metrics *Metrics) *SeatService {
	if showtimes == nil || layouts == nil {
		panic("nil store passed to NewSeatService")
	}
	return &SeatService{
		showtimes: showtimes,
		layouts:   layouts,
		events:    events,
		metrics:   metrics,
		now:       time.Now,
	}
}

// AvailableSeats returns layout seats that are not occupied, in layout order.
func AvailableSeats(layout model.SeatLayout, st model.Showtime) []string {
	occupied := st.OccupiedSet()
	out := make([]string, 0, len(layout.Seats))
	for _, code := range layout.Seats {
		if _, taken := occupied[code]; !taken {
			out = append(out, code)
		}
	}
	return out
}

func (s *SeatService) showtime(ctx context.Context, id string) (*model.Showtime, error) {
	st, err := s.showtimes.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrShowtimeNotFound) {
			return nil, errors.Mark(err, ErrShowtimeNotFound)
		}
		return nil, errors.Wrap(err, "load showtime")
	}
	return st, nil
}

func (s *SeatService) layout(ctx context.Context, roomID string) (*model.SeatLayout, error) {
	l, err := s.layouts.GetLayout(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, errors.Mark(err, ErrRoomNotFound)
		}
		return nil, errors.Wrap(err, "load room layout")
	}
	return l, nil
}

// ListShowtimes returns every showtime.
func (s *SeatService) ListShowtimes(ctx context.Context) ([]model.Showtime, error) {
	list, err := s.showtimes.List(ctx)
	return list, errors.Wrap(err, "list showtimes")
}

// GetShowtime returns one showtime with its occupied seats.
func (s *SeatService) GetShowtime(ctx context.Context, id string) (*model.Showtime, error) {
	return s.showtime(ctx, id)
}

// Availability computes the free seats of a showtime.  A room without any
// seats is reported as ErrLayoutEmpty.
func (s *SeatService) Availability(ctx context.Context, showtimeID string) (*Availability, error) {
	st, err := s.showtime(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	l, err := s.layout(ctx, st.RoomID)
	if err != nil {
		return nil, err
	}
	if len(l.Seats) == 0 {
		return nil, errors.Mark(errors.Newf("room %s has no seats", l.ID), ErrLayoutEmpty)
	}
	return &Availability{
		ShowtimeID: st.ID,
		RoomID:     l.ID,
		Room:       l.Name,
		Available:  AvailableSeats(*l, *st),
	}, nil
}

// Reserve validates codes in request order and then reserves all of them
// with a single conditional write.  The first failing code decides the
// error; a code repeated within the request fails as already reserved on
// its second occurrence.
func (s *SeatService) Reserve(ctx context.Context, showtimeID string, codes []string) (res *ReservationResult, err error) {
	start := s.now()
	defer func() { s.metrics.observe("reserve", start, err, len(codes)) }()

	if len(codes) == 0 {
		return nil, ErrEmptySelection
	}
	st, err := s.showtime(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	l, err := s.layout(ctx, st.RoomID)
	if err != nil {
		return nil, err
	}

	valid := l.SeatSet()
	occupied := st.OccupiedSet()
	for _, code := range codes {
		if _, ok := valid[code]; !ok {
			return nil, seatErr(ErrSeatUnknown, code)
		}
		if _, taken := occupied[code]; taken {
			return nil, seatErr(ErrSeatAlreadyReserved, code)
		}
		occupied[code] = struct{}{}
	}

	if err := s.showtimes.AddOccupied(ctx, st.ID, model.ReservedEntries(codes)); err != nil {
		return nil, s.reserveWriteError(ctx, st.ID, codes, err)
	}

	logger.WithContext(ctx).Info("seats reserved", "showtime_id", st.ID, "seats", codes)
	s.publish(ctx, queue.SeatsReserved, st, codes)
	return &ReservationResult{ShowtimeID: st.ID, Seats: append([]string(nil), codes...)}, nil
}

// reserveWriteError maps a failed conditional write.  A conflict means a
// concurrent request took one of the seats after validation.
func (s *SeatService) reserveWriteError(ctx context.Context, showtimeID string, codes []string, err error) error {
	switch {
	case errors.Is(err, repository.ErrShowtimeNotFound):
		return errors.Mark(err, ErrShowtimeNotFound)
	case errors.Is(err, repository.ErrSeatConflict):
		code, ok := repository.ConflictCode(err)
		if !ok {
			code = s.firstTaken(ctx, showtimeID, codes)
		}
		logger.WithContext(ctx).Debug("reservation lost race", "showtime_id", showtimeID, "seat", code)
		return seatErr(ErrSeatAlreadyReserved, code)
	}
	return errors.Wrap(err, "reserve seats")
}

// firstTaken re-reads the showtime to name the seat that caused a conflict.
func (s *SeatService) firstTaken(ctx context.Context, showtimeID string, codes []string) string {
	if st, err := s.showtimes.Get(ctx, showtimeID); err == nil {
		occupied := st.OccupiedSet()
		for _, c := range codes {
			if _, ok := occupied[c]; ok {
				return c
			}
		}
	}
	return codes[0]
}

// Cancel validates that every code is currently reserved, in request
// order, and releases all of them with a single write.  If the store
// removes nothing after validation passed, a concurrent change won and
// ErrCancellationConflict is returned; the request may be retried.
func (s *SeatService) Cancel(ctx context.Context, showtimeID string, codes []string) (res *CancellationResult, err error) {
	start := s.now()
	defer func() { s.metrics.observe("cancel", start, err, len(codes)) }()

	if len(codes) == 0 {
		return nil, ErrEmptySelection
	}
	st, err := s.showtime(ctx, showtimeID)
	if err != nil {
		return nil, err
	}

	occupied := st.OccupiedSet()
	for _, code := range codes {
		if _, ok := occupied[code]; !ok {
			return nil, seatErr(ErrSeatNotReserved, code)
		}
		delete(occupied, code)
	}

	removed, err := s.showtimes.RemoveOccupied(ctx, st.ID, codes)
	if err != nil {
		if errors.Is(err, repository.ErrShowtimeNotFound) {
			return nil, errors.Mark(err, ErrShowtimeNotFound)
		}
		return nil, errors.Wrap(err, "cancel seats")
	}
	if removed == 0 {
		logger.WithContext(ctx).Warn("cancellation removed nothing", "showtime_id", st.ID, "seats", codes)
		return nil, errors.Wrapf(ErrCancellationConflict, "showtime %s", st.ID)
	}

	logger.WithContext(ctx).Info("seats cancelled", "showtime_id", st.ID, "seats", codes)
	s.publish(ctx, queue.SeatsCancelled, st, codes)
	return &CancellationResult{ShowtimeID: st.ID, Seats: append([]string(nil), codes...)}, nil
}

// publish is best effort: the seat change is already committed.
func (s *SeatService) publish(ctx context.Context, kind string, st *model.Showtime, codes []string) {
	if s.events == nil {
		return
	}
	ev := queue.NewSeatEvent(kind, st.ID, st.RoomID, codes, logger.UserID(ctx), s.now())
	if err := s.events.PublishSeatEvent(ctx, ev); err != nil {
		logger.WithContext(ctx).Warn("seat event not published", "type", kind, "showtime_id", st.ID, "error", err)
	}
}
