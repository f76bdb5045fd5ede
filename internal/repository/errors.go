// Package repository holds the showtime and catalog stores.  Every backend
// (MySQL, MongoDB, memory) reports failures through the sentinel values
// below so the service layer can translate them without knowing which store
// is configured.
package repository

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// ErrShowtimeNotFound is returned when a showtime id does not resolve.
var ErrShowtimeNotFound = errors.New("showtime not found")

// ErrRoomNotFound is returned when a room (seat layout) lookup fails.
var ErrRoomNotFound = errors.New("room not found")

// ErrMovieNotFound is returned when a catalog movie lookup fails.
var ErrMovieNotFound = errors.New("movie not found")

// ErrSeatConflict signals that a conditional add found at least one of the
// requested seats already occupied.  Nothing was written.
var ErrSeatConflict = errors.New("seat already occupied")

// SeatConflictError names the first conflicting seat when the store can tell.
type SeatConflictError struct {
	Code string
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seat %s already occupied", e.Code)
}

func (e *SeatConflictError) Is(target error) bool { return target == ErrSeatConflict }

// ConflictCode extracts the seat code carried by a conflict error, if any.
func ConflictCode(err error) (string, bool) {
	var ce *SeatConflictError
	if errors.As(err, &ce) && ce.Code != "" {
		return ce.Code, true
	}
	return "", false
}

// firstConflict returns the first code (in request order) present in taken.
func firstConflict(codes []string, taken map[string]struct{}) (string, bool) {
	for _, c := range codes {
		if _, ok := taken[c]; ok {
			return c, true
		}
	}
	return "", false
}

// uniqueCodes drops repeated codes while keeping first-seen order.
func uniqueCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// repeatedCode reports the second occurrence of a code repeated in codes.
func repeatedCode(codes []string) (string, bool) {
	seen := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		if _, ok := seen[c]; ok {
			return c, true
		}
		seen[c] = struct{}{}
	}
	return "", false
}

func seatCodes(seats []model.OccupiedSeat) []string {
	out := make([]string, len(seats))
	for i, s := range seats {
		out[i] = s.SeatCode
	}
	return out
}
