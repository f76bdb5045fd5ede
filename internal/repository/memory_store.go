package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// MemoryStore keeps showtimes, rooms and movies in process memory.  It backs
// SEAT_STORE=memory and the unit tests.  Each showtime has its own mutex so
// mutations of one showtime are serialised while different showtimes
// proceed in parallel.
type MemoryStore struct {
	mu        sync.RWMutex
	showtimes map[string]*memoryShowtime
	rooms     map[string]model.SeatLayout
	movies    map[string]model.Movie
}

type memoryShowtime struct {
	mu sync.Mutex
	st model.Showtime
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		showtimes: make(map[string]*memoryShowtime),
		rooms:     make(map[string]model.SeatLayout),
		movies:    make(map[string]model.Movie),
	}
}

// PutShowtime inserts or replaces a showtime.
func (m *MemoryStore) PutShowtime(st model.Showtime) {
	st.OccupiedSeats = append([]model.OccupiedSeat(nil), st.OccupiedSeats...)
	m.mu.Lock()
	m.showtimes[st.ID] = &memoryShowtime{st: st}
	m.mu.Unlock()
}

// PutRoom inserts or replaces a room layout.
func (m *MemoryStore) PutRoom(l model.SeatLayout) {
	l.Seats = append([]string(nil), l.Seats...)
	m.mu.Lock()
	m.rooms[l.ID] = l
	m.mu.Unlock()
}

// PutMovie inserts or replaces a catalog movie.
func (m *MemoryStore) PutMovie(mv model.Movie) {
	m.mu.Lock()
	m.movies[mv.ID] = mv
	m.mu.Unlock()
}

func (m *MemoryStore) entry(id string) (*memoryShowtime, error) {
	m.mu.RLock()
	e, ok := m.showtimes[id]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrShowtimeNotFound, "showtime %s", id)
	}
	return e, nil
}

func copyShowtime(st model.Showtime) *model.Showtime {
	st.OccupiedSeats = append([]model.OccupiedSeat{}, st.OccupiedSeats...)
	return &st
}

// Get returns a snapshot of the showtime.
func (m *MemoryStore) Get(_ context.Context, id string) (*model.Showtime, error) {
	e, err := m.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyShowtime(e.st), nil
}

// List returns every showtime ordered by start time, then id.
func (m *MemoryStore) List(_ context.Context) ([]model.Showtime, error) {
	m.mu.RLock()
	entries := make([]*memoryShowtime, 0, len(m.showtimes))
	for _, e := range m.showtimes {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	out := make([]model.Showtime, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, *copyShowtime(e.st))
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// AddOccupied appends seats only if none of them is already occupied.
func (m *MemoryStore) AddOccupied(_ context.Context, id string, seats []model.OccupiedSeat) error {
	e, err := m.entry(id)
	if err != nil {
		return err
	}
	codes := seatCodes(seats)

	e.mu.Lock()
	defer e.mu.Unlock()
	if code, ok := firstConflict(codes, e.st.OccupiedSet()); ok {
		return &SeatConflictError{Code: code}
	}
	if code, ok := repeatedCode(codes); ok {
		return &SeatConflictError{Code: code}
	}
	e.st.OccupiedSeats = append(e.st.OccupiedSeats, seats...)
	return nil
}

// RemoveOccupied removes the codes only if every one of them is occupied;
// otherwise nothing changes and 0 is returned.
func (m *MemoryStore) RemoveOccupied(_ context.Context, id string, codes []string) (int, error) {
	e, err := m.entry(id)
	if err != nil {
		return 0, err
	}
	codes = uniqueCodes(codes)

	e.mu.Lock()
	defer e.mu.Unlock()
	occupied := e.st.OccupiedSet()
	for _, c := range codes {
		if _, ok := occupied[c]; !ok {
			return 0, nil
		}
	}
	drop := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		drop[c] = struct{}{}
	}
	kept := make([]model.OccupiedSeat, 0, len(e.st.OccupiedSeats))
	for _, o := range e.st.OccupiedSeats {
		if _, ok := drop[o.SeatCode]; !ok {
			kept = append(kept, o)
		}
	}
	removed := len(e.st.OccupiedSeats) - len(kept)
	e.st.OccupiedSeats = kept
	return removed, nil
}

// GetLayout returns the room's seat layout.
func (m *MemoryStore) GetLayout(_ context.Context, roomID string) (*model.SeatLayout, error) {
	m.mu.RLock()
	l, ok := m.rooms[roomID]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrRoomNotFound, "room %s", roomID)
	}
	l.Seats = append([]string{}, l.Seats...)
	return &l, nil
}

// ListRooms returns every room ordered by id.
func (m *MemoryStore) ListRooms(_ context.Context) ([]model.SeatLayout, error) {
	m.mu.RLock()
	out := make([]model.SeatLayout, 0, len(m.rooms))
	for _, l := range m.rooms {
		l.Seats = append([]string{}, l.Seats...)
		out = append(out, l)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListMovies returns every movie ordered by title.
func (m *MemoryStore) ListMovies(_ context.Context) ([]model.Movie, error) {
	m.mu.RLock()
	out := make([]model.Movie, 0, len(m.movies))
	for _, mv := range m.movies {
		out = append(out, mv)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

// GetMovie returns a single movie.
func (m *MemoryStore) GetMovie(_ context.Context, id string) (*model.Movie, error) {
	m.mu.RLock()
	mv, ok := m.movies[id]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrMovieNotFound, "movie %s", id)
	}
	return &mv, nil
}
