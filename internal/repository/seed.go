package repository

import (
	"fmt"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// GridSeats builds row-letter + number codes ("A1".."A<cols>", "B1", ...).
func GridSeats(rows, cols int) []string {
	out := make([]string, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 1; c <= cols; c++ {
			out = append(out, fmt.Sprintf("%c%d", 'A'+r, c))
		}
	}
	return out
}

// SeedDemo loads a small catalog into a memory store for local runs.
func SeedDemo(m *MemoryStore, now time.Time) {
	m.PutRoom(model.SeatLayout{ID: "sala-1", Name: "Sala 1", Seats: GridSeats(5, 8)})
	m.PutRoom(model.SeatLayout{ID: "sala-2", Name: "Sala 2 VIP", Seats: GridSeats(3, 6)})

	m.PutMovie(model.Movie{ID: "pel-1", Title: "El Viaje de Chihiro", Genre: "Animación", DurationMin: 125})
	m.PutMovie(model.Movie{ID: "pel-2", Title: "Coco", Genre: "Animación", DurationMin: 105})

	start := now.UTC().Truncate(time.Hour).Add(2 * time.Hour)
	m.PutShowtime(model.Showtime{ID: "fun-1", RoomID: "sala-1", MovieID: "pel-1", StartTime: start, EndTime: start.Add(125 * time.Minute)})
	m.PutShowtime(model.Showtime{ID: "fun-2", RoomID: "sala-2", MovieID: "pel-2", StartTime: start.Add(3 * time.Hour), EndTime: start.Add(3*time.Hour + 105*time.Minute)})
}
