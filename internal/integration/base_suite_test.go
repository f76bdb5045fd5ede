//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// storeSuite runs the same seat scenarios against any backend.  Concrete
// suites start a container in SetupSuite and implement seed.
type storeSuite struct {
	suite.Suite
	ctx  context.Context
	svc  *service.SeatService
	seed func(room model.SeatLayout, st model.Showtime)
	get  func(id string) (*model.Showtime, error)
	n    atomic.Int64
}

// fixture seeds a fresh room and showtime so tests never share seat state.
func (s *storeSuite) fixture(seats ...string) string {
	n := s.n.Add(1)
	roomID := fmt.Sprintf("room-%d", n)
	showID := fmt.Sprintf("show-%d", n)
	// DATETIME rejects Go's zero time.
	start := time.Now().UTC().Truncate(time.Second)
	s.seed(
		model.SeatLayout{ID: roomID, Name: "Sala " + roomID, Seats: seats},
		model.Showtime{ID: showID, RoomID: roomID, MovieID: "pel-1", StartTime: start, EndTime: start.Add(2 * time.Hour)},
	)
	return showID
}

func (s *storeSuite) occupied(id string) []string {
	st, err := s.get(id)
	s.Require().NoError(err)
	out := make([]string, 0, len(st.OccupiedSeats))
	for _, o := range st.OccupiedSeats {
		out = append(out, o.SeatCode)
	}
	return out
}

func (s *storeSuite) TestReserveThenCancel() {
	id := s.fixture("A1", "A2", "A3")

	_, err := s.svc.Reserve(s.ctx, id, []string{"A1", "A2"})
	s.Require().NoError(err)
	s.ElementsMatch([]string{"A1", "A2"}, s.occupied(id))

	_, err = s.svc.Reserve(s.ctx, id, []string{"A3", "A2"})
	s.True(errors.Is(err, service.ErrSeatAlreadyReserved))
	code, _ := service.SeatCode(err)
	s.Equal("A2", code)
	s.ElementsMatch([]string{"A1", "A2"}, s.occupied(id))

	_, err = s.svc.Cancel(s.ctx, id, []string{"A1"})
	s.Require().NoError(err)
	s.Equal([]string{"A2"}, s.occupied(id))

	_, err = s.svc.Cancel(s.ctx, id, []string{"A1"})
	s.True(errors.Is(err, service.ErrSeatNotReserved))

	av, err := s.svc.Availability(s.ctx, id)
	s.Require().NoError(err)
	s.Equal([]string{"A1", "A3"}, av.Available)
}

func (s *storeSuite) TestUnknownShowtime() {
	_, err := s.svc.Reserve(s.ctx, "missing", []string{"A1"})
	s.True(errors.Is(err, service.ErrShowtimeNotFound))
	_, err = s.svc.Cancel(s.ctx, "missing", []string{"A1"})
	s.True(errors.Is(err, service.ErrShowtimeNotFound))
}

func (s *storeSuite) TestConcurrentReservationsOfOneSeat() {
	id := s.fixture("A1", "A2")

	const workers = 16
	var (
		wg       sync.WaitGroup
		won      atomic.Int32
		conflict atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.svc.Reserve(s.ctx, id, []string{"A1"})
			switch {
			case err == nil:
				won.Add(1)
			case errors.Is(err, service.ErrSeatAlreadyReserved):
				conflict.Add(1)
			default:
				s.Failf("unexpected error", "%+v", err)
			}
		}()
	}
	wg.Wait()

	s.EqualValues(1, won.Load())
	s.EqualValues(workers-1, conflict.Load())
	s.Equal([]string{"A1"}, s.occupied(id))
}

func (s *storeSuite) TestConcurrentCancelsOfOneSeat() {
	id := s.fixture("A1", "A2")
	_, err := s.svc.Reserve(s.ctx, id, []string{"A1"})
	s.Require().NoError(err)

	const workers = 8
	var (
		wg  sync.WaitGroup
		won atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.svc.Cancel(s.ctx, id, []string{"A1"})
			if err == nil {
				won.Add(1)
				return
			}
			// Losers either saw the seat already free or lost the write.
			s.True(errors.Is(err, service.ErrSeatNotReserved) || service.Retryable(err), "%+v", err)
		}()
	}
	wg.Wait()

	s.EqualValues(1, won.Load())
	s.Empty(s.occupied(id))
}
