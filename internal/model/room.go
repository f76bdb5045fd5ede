package model

// SeatLayout describes a physical screening room ("sala") and the seat codes
// it contains.  Layouts are immutable once the room exists and are treated
// as read-only by the reservation core.
//
// Fields:
//  ID    – room identifier referenced by showtimes.
//  Name  – human readable room name.
//  Seats – every valid seat code (row letter + number, e.g. "A1").
type SeatLayout struct {
	ID    string   `json:"id"`       // rooms.id
	Name  string   `json:"nombre"`   // rooms.name
	Seats []string `json:"asientos"` // room_seats.seat_code
}

// SeatSet returns the layout's seat codes as a set.
func (l SeatLayout) SeatSet() map[string]struct{} {
	set := make(map[string]struct{}, len(l.Seats))
	for _, c := range l.Seats {
		set[c] = struct{}{}
	}
	return set
}
