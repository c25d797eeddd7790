package repository

import (
	"context"
	"database/sql"
)

// InventoryRepo owns the seat_inventory table: one row per
// (train, class, coach) partition carrying the count of seats held by
// non-cancelled bookings.  Every mutation happens inside a
// transaction supplied by the inventory ledger; no other code path
// may touch reserved_seats.  Locking all rows of a class with
// SELECT ... FOR UPDATE serializes concurrent reservations so the
// read-then-write of occupancy has no race window.
type InventoryRepo struct {
	db *sql.DB
}

// NewInventoryRepo returns a new InventoryRepo bound to the given database.
func NewInventoryRepo(db *sql.DB) *InventoryRepo { return &InventoryRepo{db: db} }

// EnsurePartitionTx creates the occupancy row for a partition if it
// does not exist yet.  Rows are created lazily on first reservation
// for a coach.  The no-op update keeps the statement idempotent.
func (r *InventoryRepo) EnsurePartitionTx(ctx context.Context, tx *sql.Tx, trainID uint64, classType, coach string) error {
	const q = `INSERT INTO seat_inventory (train_id, class_type, coach, reserved_seats)
	           VALUES (?, ?, ?, 0)
	           ON DUPLICATE KEY UPDATE reserved_seats = reserved_seats`
	_, err := tx.ExecContext(ctx, q, trainID, classType, coach)
	return err
}

// LockClassTx acquires row locks on every occupancy row of a class
// and returns the total number of reserved seats across its coaches.
// Concurrent transactions reserving on the same class block here
// until the first commits, which is what keeps the capacity check and
// the seat-conflict check consistent with the subsequent write.
func (r *InventoryRepo) LockClassTx(ctx context.Context, tx *sql.Tx, trainID uint64, classType string) (uint32, error) {
	const q = `SELECT coach, reserved_seats FROM seat_inventory
	           WHERE train_id = ? AND class_type = ?
	           ORDER BY coach
	           FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, trainID, classType)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	var total uint32
	for rows.Next() {
		var coach string
		var reserved uint32
		if err := rows.Scan(&coach, &reserved); err != nil {
			return 0, err
		}
		total += reserved
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	return total, nil
}

// IncrementTx adds n held seats to a partition.  The partition row
// must already exist (EnsurePartitionTx) and be locked by the current
// transaction.
func (r *InventoryRepo) IncrementTx(ctx context.Context, tx *sql.Tx, trainID uint64, classType, coach string, n uint32) error {
	const q = `UPDATE seat_inventory SET reserved_seats = reserved_seats + ?
	           WHERE train_id = ? AND class_type = ? AND coach = ?`
	_, err := tx.ExecContext(ctx, q, n, trainID, classType, coach)
	return err
}

// DecrementTx releases n held seats from a partition, clamping at
// zero so a double release can never drive the counter negative.
func (r *InventoryRepo) DecrementTx(ctx context.Context, tx *sql.Tx, trainID uint64, classType, coach string, n uint32) error {
	const q = `UPDATE seat_inventory
	           SET reserved_seats = IF(reserved_seats > ?, reserved_seats - ?, 0)
	           WHERE train_id = ? AND class_type = ? AND coach = ?`
	_, err := tx.ExecContext(ctx, q, n, n, trainID, classType, coach)
	return err
}
