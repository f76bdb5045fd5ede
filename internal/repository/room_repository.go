package repository

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// RoomRepo reads room seat layouts from rooms and room_seats.  Layouts are
// managed outside this service; only Create exists for seeding.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo constructs a RoomRepo with the given DB handle.
func NewRoomRepo(db *sql.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// Create inserts a room and its seats in one transaction.
func (r *RoomRepo) Create(ctx context.Context, l model.SeatLayout) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `INSERT INTO rooms (id, name) VALUES (?, ?)`, l.ID, l.Name); err != nil {
		return errors.Wrap(err, "insert room")
	}
	if len(l.Seats) > 0 {
		query := `INSERT INTO room_seats (room_id, seat_code) VALUES `
		args := make([]interface{}, 0, len(l.Seats)*2)
		for i, code := range l.Seats {
			if i > 0 {
				query += ","
			}
			query += "(?, ?)"
			args = append(args, l.ID, code)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return errors.Wrap(err, "insert room seats")
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}
	committed = true
	return nil
}

// GetLayout returns the room and its seat codes in insertion order.  It
// returns ErrRoomNotFound when the room does not exist.
func (r *RoomRepo) GetLayout(ctx context.Context, roomID string) (*model.SeatLayout, error) {
	var l model.SeatLayout
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM rooms WHERE id = ?`, roomID).Scan(&l.ID, &l.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(ErrRoomNotFound, "room %s", roomID)
		}
		return nil, errors.Wrap(err, "select room")
	}

	rows, err := r.db.QueryContext(ctx, `SELECT seat_code FROM room_seats WHERE room_id = ? ORDER BY id`, roomID)
	if err != nil {
		return nil, errors.Wrap(err, "select room seats")
	}
	defer rows.Close()
	l.Seats = []string{}
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, errors.Wrap(err, "scan room seat")
		}
		l.Seats = append(l.Seats, code)
	}
	return &l, errors.Wrap(rows.Err(), "iterate room seats")
}

// ListRooms returns every room with its seats.
func (r *RoomRepo) ListRooms(ctx context.Context) ([]model.SeatLayout, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM rooms ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "list rooms")
	}
	defer rows.Close()
	out := []model.SeatLayout{}
	index := map[string]int{}
	for rows.Next() {
		l := model.SeatLayout{Seats: []string{}}
		if err := rows.Scan(&l.ID, &l.Name); err != nil {
			return nil, errors.Wrap(err, "scan room")
		}
		index[l.ID] = len(out)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate rooms")
	}

	seatRows, err := r.db.QueryContext(ctx, `SELECT room_id, seat_code FROM room_seats ORDER BY room_id, id`)
	if err != nil {
		return nil, errors.Wrap(err, "list room seats")
	}
	defer seatRows.Close()
	for seatRows.Next() {
		var roomID, code string
		if err := seatRows.Scan(&roomID, &code); err != nil {
			return nil, errors.Wrap(err, "scan room seat")
		}
		if i, ok := index[roomID]; ok {
			out[i].Seats = append(out[i].Seats, code)
		}
	}
	return out, errors.Wrap(seatRows.Err(), "iterate room seats")
}
