package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/railway-ticket-booking/internal/model"
)

// TrainRepo provides read and administrative write access to the
// schedule directory: the trains table and its embedded fare tiers in
// train_classes.  The booking core treats this data as read-only;
// seat occupancy is tracked separately in seat_inventory and owned by
// the inventory ledger.  Available seat counts are derived on read
// and never stored.
type TrainRepo struct {
	db *sql.DB
}

// NewTrainRepo returns a new TrainRepo bound to the given database.
func NewTrainRepo(db *sql.DB) *TrainRepo { return &TrainRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions
// that span multiple repositories.
func (r *TrainRepo) DB() *sql.DB { return r.db }

const trainColumns = `id, train_number, route, time_of_day, duration,
	departure_station, departure_date, departure_time,
	arrival_station, arrival_date, arrival_time`

// scanTrain reads one trains row from the given scanner.  The helper
// is shared by single-row and multi-row queries.
func scanTrain(sc interface {
	Scan(dest ...interface{}) error
}) (*model.Train, error) {
	var t model.Train
	err := sc.Scan(
		&t.ID, &t.TrainNumber, &t.Route, &t.TimeOfDay, &t.Duration,
		&t.Departure.Station, &t.Departure.Date, &t.Departure.Time,
		&t.Arrival.Station, &t.Arrival.Date, &t.Arrival.Time,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByID returns a train and its fare tiers, including the derived
// available seat count for each class.  It returns ErrTrainNotFound
// when no train with the given ID exists.
func (r *TrainRepo) GetByID(ctx context.Context, id uint64) (*model.Train, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+trainColumns+` FROM trains WHERE id = ?`, id)
	t, err := scanTrain(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTrainNotFound
		}
		return nil, err
	}
	if t.Classes, err = r.classesFor(ctx, r.db, t.ID); err != nil {
		return nil, err
	}
	return t, nil
}

// GetByIDTx is GetByID within an existing transaction.  The payment
// reconciler uses it so that the schedule completeness check and the
// booking confirmation observe the same snapshot.
func (r *TrainRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Train, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+trainColumns+` FROM trains WHERE id = ?`, id)
	t, err := scanTrain(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTrainNotFound
		}
		return nil, err
	}
	if t.Classes, err = r.classesFor(ctx, tx, t.ID); err != nil {
		return nil, err
	}
	return t, nil
}

// querier is the subset of *sql.DB and *sql.Tx used by read helpers.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// classesFor loads the fare tiers of a train with availability derived
// from the seat_inventory occupancy rows.
func (r *TrainRepo) classesFor(ctx context.Context, q querier, trainID uint64) ([]model.TrainClass, error) {
	const query = `SELECT c.id, c.train_id, c.class_type, c.price_adult, c.price_child, c.total_seats,
	                      COALESCE((SELECT SUM(si.reserved_seats)
	                                FROM seat_inventory si
	                                WHERE si.train_id = c.train_id AND si.class_type = c.class_type), 0)
	               FROM train_classes c
	               WHERE c.train_id = ?
	               ORDER BY c.id`
	rows, err := q.QueryContext(ctx, query, trainID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	classes := make([]model.TrainClass, 0, 4)
	for rows.Next() {
		var c model.TrainClass
		var reserved uint32
		if err := rows.Scan(&c.ID, &c.TrainID, &c.Type, &c.PriceAdult, &c.PriceChild, &c.TotalSeats, &reserved); err != nil {
			return nil, err
		}
		if reserved > c.TotalSeats {
			reserved = c.TotalSeats
		}
		c.AvailableSeats = c.TotalSeats - reserved
		classes = append(classes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return classes, nil
}

// List returns all trains ordered by departure date and time, each
// with its fare tiers populated.
func (r *TrainRepo) List(ctx context.Context) ([]model.Train, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+trainColumns+` FROM trains ORDER BY departure_date, departure_time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	trains := make([]model.Train, 0)
	for rows.Next() {
		t, err := scanTrain(rows)
		if err != nil {
			return nil, err
		}
		trains = append(trains, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range trains {
		if trains[i].Classes, err = r.classesFor(ctx, r.db, trains[i].ID); err != nil {
			return nil, err
		}
	}
	return trains, nil
}

// Search returns trains departing fromStation for toStation on the
// given date that still have at least one available seat in some
// class.  Station names are matched after trimming surrounding
// whitespace.
func (r *TrainRepo) Search(ctx context.Context, fromStation, toStation, date string) ([]model.Train, error) {
	const q = `SELECT ` + trainColumns + ` FROM trains
	           WHERE departure_station = ? AND arrival_station = ? AND departure_date = ?
	           ORDER BY departure_time`
	rows, err := r.db.QueryContext(ctx, q,
		strings.TrimSpace(fromStation), strings.TrimSpace(toStation), strings.TrimSpace(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	trains := make([]model.Train, 0)
	for rows.Next() {
		t, err := scanTrain(rows)
		if err != nil {
			return nil, err
		}
		trains = append(trains, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	available := trains[:0]
	for i := range trains {
		if trains[i].Classes, err = r.classesFor(ctx, r.db, trains[i].ID); err != nil {
			return nil, err
		}
		for _, c := range trains[i].Classes {
			if c.AvailableSeats > 0 {
				available = append(available, trains[i])
				break
			}
		}
	}
	return available, nil
}

// AvailableDates returns the distinct departure dates of trains that
// still have available seats in at least one class.
func (r *TrainRepo) AvailableDates(ctx context.Context) ([]string, error) {
	const q = `SELECT DISTINCT t.departure_date
	           FROM trains t
	           JOIN train_classes c ON c.train_id = t.id
	           WHERE c.total_seats > COALESCE((SELECT SUM(si.reserved_seats)
	                                           FROM seat_inventory si
	                                           WHERE si.train_id = c.train_id AND si.class_type = c.class_type), 0)
	           ORDER BY t.departure_date`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	dates := make([]string, 0)
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return dates, nil
}

// Create inserts a train and its fare tiers in one transaction.  The
// generated IDs are populated on the passed structure.  A duplicate
// train number surfaces the driver's unique-constraint error.
func (r *TrainRepo) Create(ctx context.Context, t *model.Train) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	const ins = `INSERT INTO trains (train_number, route, time_of_day, duration,
	             departure_station, departure_date, departure_time,
	             arrival_station, arrival_date, arrival_time)
	             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, ins,
		t.TrainNumber, t.Route, t.TimeOfDay, t.Duration,
		t.Departure.Station, t.Departure.Date, t.Departure.Time,
		t.Arrival.Station, t.Arrival.Date, t.Arrival.Time,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	for i := range t.Classes {
		c := &t.Classes[i]
		res, err := tx.ExecContext(ctx,
			`INSERT INTO train_classes (train_id, class_type, price_adult, price_child, total_seats) VALUES (?, ?, ?, ?, ?)`,
			t.ID, c.Type, c.PriceAdult, c.PriceChild, c.TotalSeats,
		)
		if err != nil {
			return err
		}
		cid, err := res.LastInsertId()
		if err != nil {
			return err
		}
		c.ID = uint64(cid)
		c.TrainID = t.ID
		c.AvailableSeats = c.TotalSeats
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Update replaces the mutable schedule fields of a train.  Fare tiers
// are not touched; capacity changes under live bookings would break
// the inventory invariant and are not supported.  It returns
// ErrTrainNotFound when no row was updated.
func (r *TrainRepo) Update(ctx context.Context, t *model.Train) error {
	const q = `UPDATE trains SET route = ?, time_of_day = ?, duration = ?,
	           departure_station = ?, departure_date = ?, departure_time = ?,
	           arrival_station = ?, arrival_date = ?, arrival_time = ?
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q,
		t.Route, t.TimeOfDay, t.Duration,
		t.Departure.Station, t.Departure.Date, t.Departure.Time,
		t.Arrival.Station, t.Arrival.Date, t.Arrival.Time,
		t.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTrainNotFound
	}
	return nil
}

// Delete removes a train.  Classes and inventory rows are removed by
// cascading foreign keys.  It returns ErrTrainNotFound when the train
// does not exist.
func (r *TrainRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM trains WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTrainNotFound
	}
	return nil
}
