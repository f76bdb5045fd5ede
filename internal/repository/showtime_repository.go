package repository // repository for showtime seat state on MySQL

import (
	"context"
	"database/sql"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY, raised by uq_showtime_seat.
const mysqlDuplicateEntry = 1062

// ShowtimeRepo persists showtimes and their occupied seats.  Occupied seats
// live in showtime_seats, one row per seat, guarded by a UNIQUE
// (showtime_id, seat_code) key.
type ShowtimeRepo struct {
	db *sql.DB
}

// NewShowtimeRepo constructs a ShowtimeRepo given a DB handle.
func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo {
	return &ShowtimeRepo{db: db}
}

// Create inserts a showtime row.  Showtimes are scheduled outside the seat
// core; this exists for seeding and tests.
func (r *ShowtimeRepo) Create(ctx context.Context, st model.Showtime) error {
	const q = `INSERT INTO showtimes (id, room_id, movie_id, start_time, end_time) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, st.ID, st.RoomID, st.MovieID, st.StartTime, st.EndTime)
	return errors.Wrap(err, "insert showtime")
}

// Get loads a showtime and its occupied seats.  It returns
// ErrShowtimeNotFound when no row matches.
func (r *ShowtimeRepo) Get(ctx context.Context, id string) (*model.Showtime, error) {
	const q = `SELECT id, room_id, movie_id, start_time, end_time FROM showtimes WHERE id = ?`
	var st model.Showtime
	err := r.db.QueryRowContext(ctx, q, id).Scan(&st.ID, &st.RoomID, &st.MovieID, &st.StartTime, &st.EndTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(ErrShowtimeNotFound, "showtime %s", id)
		}
		return nil, errors.Wrap(err, "select showtime")
	}

	const qSeats = `SELECT seat_code, status FROM showtime_seats WHERE showtime_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, qSeats, id)
	if err != nil {
		return nil, errors.Wrap(err, "select showtime seats")
	}
	defer rows.Close()
	st.OccupiedSeats = []model.OccupiedSeat{}
	for rows.Next() {
		var o model.OccupiedSeat
		if err := rows.Scan(&o.SeatCode, &o.Status); err != nil {
			return nil, errors.Wrap(err, "scan showtime seat")
		}
		st.OccupiedSeats = append(st.OccupiedSeats, o)
	}
	return &st, errors.Wrap(rows.Err(), "iterate showtime seats")
}

// List returns every showtime with its occupied seats, ordered by start time.
func (r *ShowtimeRepo) List(ctx context.Context) ([]model.Showtime, error) {
	const q = `SELECT id, room_id, movie_id, start_time, end_time FROM showtimes ORDER BY start_time, id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "list showtimes")
	}
	defer rows.Close()

	out := []model.Showtime{}
	index := map[string]int{}
	for rows.Next() {
		var st model.Showtime
		if err := rows.Scan(&st.ID, &st.RoomID, &st.MovieID, &st.StartTime, &st.EndTime); err != nil {
			return nil, errors.Wrap(err, "scan showtime")
		}
		st.OccupiedSeats = []model.OccupiedSeat{}
		index[st.ID] = len(out)
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate showtimes")
	}

	const qSeats = `SELECT showtime_id, seat_code, status FROM showtime_seats ORDER BY showtime_id, id`
	seatRows, err := r.db.QueryContext(ctx, qSeats)
	if err != nil {
		return nil, errors.Wrap(err, "list showtime seats")
	}
	defer seatRows.Close()
	for seatRows.Next() {
		var showtimeID string
		var o model.OccupiedSeat
		if err := seatRows.Scan(&showtimeID, &o.SeatCode, &o.Status); err != nil {
			return nil, errors.Wrap(err, "scan showtime seat")
		}
		if i, ok := index[showtimeID]; ok {
			out[i].OccupiedSeats = append(out[i].OccupiedSeats, o)
		}
	}
	return out, errors.Wrap(seatRows.Err(), "iterate showtime seats")
}

// lockShowtimeTx takes a row lock on the showtime so every seat mutation of
// one showtime runs serially.  Different showtimes lock different rows.
func lockShowtimeTx(ctx context.Context, tx *sql.Tx, id string) error {
	var got string
	err := tx.QueryRowContext(ctx, `SELECT id FROM showtimes WHERE id = ? FOR UPDATE`, id).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrapf(ErrShowtimeNotFound, "showtime %s", id)
	}
	return errors.Wrap(err, "lock showtime")
}

func inPlaceholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// AddOccupied inserts every seat in one transaction, or none of them.  If
// any requested code is already occupied it returns a *SeatConflictError
// naming the first such code in request order.
func (r *ShowtimeRepo) AddOccupied(ctx context.Context, id string, seats []model.OccupiedSeat) error {
	if len(seats) == 0 {
		return nil
	}
	codes := seatCodes(seats)
	if code, ok := repeatedCode(codes); ok {
		return &SeatConflictError{Code: code}
	}

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

	if err := lockShowtimeTx(ctx, tx, id); err != nil {
		return err
	}

	args := make([]interface{}, 0, len(codes)+1)
	args = append(args, id)
	for _, c := range codes {
		args = append(args, c)
	}
	qTaken := `SELECT seat_code FROM showtime_seats WHERE showtime_id = ? AND seat_code IN (` + inPlaceholders(len(codes)) + `)`
	rows, err := tx.QueryContext(ctx, qTaken, args...)
	if err != nil {
		return errors.Wrap(err, "check occupied seats")
	}
	taken := map[string]struct{}{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			rows.Close()
			return errors.Wrap(err, "scan occupied seat")
		}
		taken[c] = struct{}{}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "iterate occupied seats")
	}
	if code, ok := firstConflict(codes, taken); ok {
		return &SeatConflictError{Code: code}
	}

	// Build the INSERT with placeholders for each seat.
	query := `INSERT INTO showtime_seats (showtime_id, seat_code, status) VALUES `
	insArgs := make([]interface{}, 0, len(seats)*3)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		insArgs = append(insArgs, id, s.SeatCode, string(s.Status))
	}
	if _, err := tx.ExecContext(ctx, query, insArgs...); err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return errors.Mark(errors.Wrap(err, "insert showtime seats"), ErrSeatConflict)
		}
		return errors.Wrap(err, "insert showtime seats")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}
	committed = true
	return nil
}

// RemoveOccupied deletes the given codes in one transaction.  Unless every
// code was occupied the transaction is rolled back and 0 is returned.
func (r *ShowtimeRepo) RemoveOccupied(ctx context.Context, id string, codes []string) (int, error) {
	codes = uniqueCodes(codes)
	if len(codes) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "begin tx")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := lockShowtimeTx(ctx, tx, id); err != nil {
		return 0, err
	}

	args := make([]interface{}, 0, len(codes)+1)
	args = append(args, id)
	for _, c := range codes {
		args = append(args, c)
	}
	q := `DELETE FROM showtime_seats WHERE showtime_id = ? AND seat_code IN (` + inPlaceholders(len(codes)) + `)`
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, errors.Wrap(err, "delete showtime seats")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "rows affected")
	}
	if int(n) != len(codes) {
		return 0, nil
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit")
	}
	committed = true
	return int(n), nil
}
