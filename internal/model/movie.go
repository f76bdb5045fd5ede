package model

// Movie is a read-only catalog entry ("película").  The seat core never
// touches movies; they are exposed for browsing alongside showtimes.
type Movie struct {
	ID          string `json:"id"`              // movies.id
	Title       string `json:"titulo"`          // movies.title
	Genre       string `json:"genero"`          // movies.genre
	DurationMin int    `json:"duracion_minutos"` // movies.duration_min
	Synopsis    string `json:"sinopsis,omitempty"`
}
