package repository

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// MovieRepo is the read-only movie catalog on MySQL.
type MovieRepo struct {
	db *sql.DB
}

func NewMovieRepo(db *sql.DB) *MovieRepo {
	return &MovieRepo{db: db}
}

// Create inserts a movie; used for seeding.
func (r *MovieRepo) Create(ctx context.Context, m model.Movie) error {
	const q = `INSERT INTO movies (id, title, genre, duration_min, synopsis) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, m.ID, m.Title, m.Genre, m.DurationMin, sql.NullString{String: m.Synopsis, Valid: m.Synopsis != ""})
	return errors.Wrap(err, "insert movie")
}

func (r *MovieRepo) ListMovies(ctx context.Context) ([]model.Movie, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, title, genre, duration_min, synopsis FROM movies ORDER BY title`)
	if err != nil {
		return nil, errors.Wrap(err, "list movies")
	}
	defer rows.Close()
	out := []model.Movie{}
	for rows.Next() {
		var m model.Movie
		var synopsis sql.NullString
		if err := rows.Scan(&m.ID, &m.Title, &m.Genre, &m.DurationMin, &synopsis); err != nil {
			return nil, errors.Wrap(err, "scan movie")
		}
		m.Synopsis = synopsis.String
		out = append(out, m)
	}
	return out, errors.Wrap(rows.Err(), "iterate movies")
}

func (r *MovieRepo) GetMovie(ctx context.Context, id string) (*model.Movie, error) {
	var m model.Movie
	var synopsis sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT id, title, genre, duration_min, synopsis FROM movies WHERE id = ?`, id).
		Scan(&m.ID, &m.Title, &m.Genre, &m.DurationMin, &synopsis)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(ErrMovieNotFound, "movie %s", id)
		}
		return nil, errors.Wrap(err, "select movie")
	}
	m.Synopsis = synopsis.String
	return &m, nil
}
