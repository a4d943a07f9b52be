// Package journal keeps a local Postgres record of every accepted distribution.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entry is one accepted create or update.
type Entry struct {
	ID            string
	Kind          string
	Mode          string
	EditID        *int
	IssuedToEmpID int
	AppStartNo    int
	AppEndNo      int
	Range         int
	Amount        int
	CreatedBy     int
	CreatedAt     time.Time
}

type Journal struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Journal {
	return &Journal{db: db, now: time.Now}
}

const insertEntry = `INSERT INTO distribution_journal
	(id, kind, mode, edit_id, issued_to_emp_id, app_start_no, app_end_no, range_size, amount, created_by, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// Record inserts e, assigning an id and timestamp when they are unset.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = j.now().UTC()
	}

	var editID sql.NullInt64
	if e.EditID != nil {
		editID = sql.NullInt64{Int64: int64(*e.EditID), Valid: true}
	}

	_, err := j.db.ExecContext(ctx, insertEntry,
		e.ID, e.Kind, e.Mode, editID, e.IssuedToEmpID,
		e.AppStartNo, e.AppEndNo, e.Range, e.Amount, e.CreatedBy, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record distribution %s/%s: %w", e.Kind, e.Mode, err)
	}
	return nil
}
