package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/pdrinv/inventory-api/internal/model"
)

// SessionRepo provides CRUD operations and the status state machine for
// inventory sessions.  All timestamp fields are stored in UTC.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo returns a new SessionRepo bound to the given database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

const sessionCols = `id, nom_session, depot, status, started_at, finished_at, created_by_user_id, notes, created_at, updated_at`

func scanSession(row interface{ Scan(...interface{}) error }) (*model.Session, error) {
	var s model.Session
	var finished sql.NullTime
	var createdBy sql.NullInt64
	var notes sql.NullString
	err := row.Scan(&s.ID, &s.Name, &s.Depot, &s.Status, &s.StartedAt,
		&finished, &createdBy, &notes, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		t := finished.Time
		s.FinishedAt = &t
	}
	if createdBy.Valid {
		id := uint64(createdBy.Int64)
		s.CreatedByUserID = &id
	}
	if notes.Valid {
		n := notes.String
		s.Notes = &n
	}
	return &s, nil
}

// Create inserts a new session in the open state.  The session name is
// unique; a collision returns ErrConflict.
func (r *SessionRepo) Create(ctx context.Context, name, depot string, createdBy uint64, notes *string) (*model.Session, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO inventory_sessions (nom_session, depot, status, created_by_user_id, notes) VALUES (?, ?, ?, ?, ?)`,
		name, depot, model.SessionOpen, createdBy, notes)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID fetches a session by id.  Returns ErrNotFound when no row exists.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (*model.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx,
		`SELECT `+sessionCols+` FROM inventory_sessions WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return s, err
}

// List returns sessions newest first, optionally filtered by status and
// depot, with offset/limit pagination.
func (r *SessionRepo) List(ctx context.Context, status, depot string, offset, limit int) ([]model.Session, error) {
	q := `SELECT ` + sessionCols + ` FROM inventory_sessions WHERE 1=1`
	args := make([]interface{}, 0, 4)
	if status != "" {
		q += ` AND status = ?`
		args = append(args, status)
	}
	if depot != "" {
		q += ` AND depot = ?`
		args = append(args, depot)
	}
	q += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// SetStatus moves a session to newStatus under the forward-only rule.  The
// first transition out of open stamps finished_at; re-closing never changes
// it.  Returns ErrNotFound for a missing session and ErrInvalidState for a
// backwards transition.
func (r *SessionRepo) SetStatus(ctx context.Context, id uint64, newStatus string) (*model.Session, error) {
	if !model.ValidStatus(newStatus) {
		return nil, Validationf("status", "must be one of open, closed, finalized")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Lock the row so concurrent transitions serialize.
	cur, err := scanSession(tx.QueryRowContext(ctx,
		`SELECT `+sessionCols+` FROM inventory_sessions WHERE id = ? FOR UPDATE`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(cur.Status, newStatus) {
		return nil, ErrInvalidState
	}
	if newStatus != model.SessionOpen && cur.FinishedAt == nil {
		now := time.Now().UTC()
		_, err = tx.ExecContext(ctx,
			`UPDATE inventory_sessions SET status = ?, finished_at = ? WHERE id = ?`,
			newStatus, now, id)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE inventory_sessions SET status = ? WHERE id = ?`, newStatus, id)
	}
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return r.GetByID(ctx, id)
}

// UpdateMeta edits name, depot and notes.  Nil pointers leave the field
// unchanged.  A duplicate name returns ErrConflict.
func (r *SessionRepo) UpdateMeta(ctx context.Context, id uint64, name, depot, notes *string) (*model.Session, error) {
	q := `UPDATE inventory_sessions SET id = id`
	args := make([]interface{}, 0, 4)
	if name != nil {
		q += `, nom_session = ?`
		args = append(args, *name)
	}
	if depot != nil {
		q += `, depot = ?`
		args = append(args, *depot)
	}
	if notes != nil {
		q += `, notes = ?`
		args = append(args, *notes)
	}
	q += ` WHERE id = ?`
	args = append(args, id)
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 affected rows for a no-op update as well, so
		// distinguish missing from unchanged with a lookup.
		return r.GetByID(ctx, id)
	}
	return r.GetByID(ctx, id)
}

// Delete removes a session.  Counts, history, results and add-log entries
// cascade at the schema level.  Returns ErrNotFound when nothing was
// deleted.
func (r *SessionRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM inventory_sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
