package model

import "time"

// SeatStatus is the state recorded for an occupied seat.  Only "reserved"
// exists today; finer states (held, sold) would be added here.
type SeatStatus string

const SeatReserved SeatStatus = "reserved"

// Showtime ("función") is a scheduled screening of a movie in a room.
// Showtimes are created outside this service; the only field mutated here is
// OccupiedSeats, through the showtime store's add/remove operations.
//
// Fields:
//  ID            – opaque identifier (ObjectID hex in Mongo, VARCHAR in MySQL).
//  RoomID        – room whose seat layout applies.
//  MovieID       – catalog movie being screened.
//  StartTime     – when the screening begins.
//  EndTime       – when the screening ends.
//  OccupiedSeats – seats currently reserved; codes are unique and belong to
//                  the room's layout.
type Showtime struct {
	ID            string         `json:"id"`             // showtimes.id
	RoomID        string         `json:"id_sala"`        // showtimes.room_id
	MovieID       string         `json:"id_pelicula"`    // showtimes.movie_id
	StartTime     time.Time      `json:"hora_inicio"`    // showtimes.start_time
	EndTime       time.Time      `json:"hora_fin"`       // showtimes.end_time
	OccupiedSeats []OccupiedSeat `json:"asientos_ocupados"`
}

// OccupiedSeat is one entry of a showtime's occupied set.
type OccupiedSeat struct {
	SeatCode string     `json:"codigo_asiento"` // showtime_seats.seat_code
	Status   SeatStatus `json:"estado"`         // showtime_seats.status
}

// OccupiedSet returns the occupied seat codes as a set.
func (s Showtime) OccupiedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.OccupiedSeats))
	for _, o := range s.OccupiedSeats {
		set[o.SeatCode] = struct{}{}
	}
	return set
}

// ReservedEntries builds one reserved entry per code, preserving order.
func ReservedEntries(codes []string) []OccupiedSeat {
	out := make([]OccupiedSeat, 0, len(codes))
	for _, c := range codes {
		out = append(out, OccupiedSeat{SeatCode: c, Status: SeatReserved})
	}
	return out
}
