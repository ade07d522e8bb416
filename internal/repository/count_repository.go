package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/pdrinv/inventory-api/internal/auth"
	"github.com/pdrinv/inventory-api/internal/config"
	"github.com/pdrinv/inventory-api/internal/model"
)

// CountRepo is the counting ledger.  Every mutating method runs as one
// transaction containing both the count write and its history entry: a
// count change can never commit without its audit record.  History rows are
// written only here; HistoryRepo is a read-only surface.
type CountRepo struct {
	db *sql.DB
	// duplicateMode selects what a second submission for an existing
	// (session, article, round, counter) tuple does: correct in place or
	// fail with a conflict.
	duplicateMode string
}

// NewCountRepo returns a CountRepo with the given duplicate-submission mode
// (config.DuplicateModeCorrect or config.DuplicateModeReject).
func NewCountRepo(db *sql.DB, duplicateMode string) *CountRepo {
	return &CountRepo{db: db, duplicateMode: config.ParseDuplicateMode(duplicateMode)}
}

const countCols = `id, session_id, article_id, round, quantity_counted, counted_by_user_id, counted_at, is_new, notes, version`

func scanCount(row interface{ Scan(...interface{}) error }) (*model.Count, error) {
	var c model.Count
	var notes sql.NullString
	err := row.Scan(&c.ID, &c.SessionID, &c.ArticleID, &c.Round, &c.Quantity,
		&c.CountedByUserID, &c.CountedAt, &c.IsNew, &notes, &c.Version)
	if err != nil {
		return nil, err
	}
	if notes.Valid {
		n := notes.String
		c.Notes = &n
	}
	return &c, nil
}

// SubmitParams carries one count submission.  Location, when set, updates
// the article's location as a side effect of the same transaction.  The
// principal is the authenticated counter; the count is always attributed
// to them.
type SubmitParams struct {
	Principal auth.Principal
	SessionID uint64
	ArticleID uint64
	Round     int
	Quantity  decimal.Decimal
	IsNew     bool
	Notes     *string
	Location  *string
}

// Submit is the ledger's core operation: insert a new logical count at
// version 1 or correct the existing one for the same (session, article,
// round, counter) tuple. The checks run in contract order: session
// existence, session state, article existence, round assignment, field
// validation. Corrected reports whether an existing count was overwritten
// rather than created.
//
// Two racing submissions for the same tuple serialize on the composite
// unique index: the loser of the insert race sees a duplicate-key error,
// retries, finds the winner's row and corrects it.
func (r *CountRepo) Submit(ctx context.Context, p SubmitParams) (c *model.Count, corrected bool, err error) {
	// At most one retry: a second duplicate-key failure would mean the
	// winner's row vanished between attempts, which only an interleaved
	// delete can cause; surface that as a conflict.
	for attempt := 0; attempt < 2; attempt++ {
		c, corrected, err = r.submitOnce(ctx, p)
		if err != nil && isDuplicateKey(err) {
			continue
		}
		return c, corrected, err
	}
	return nil, false, ErrConflict
}

func (r *CountRepo) submitOnce(ctx context.Context, p SubmitParams) (*model.Count, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// 1. Session must exist and be open.
	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM inventory_sessions WHERE id = ?`, p.SessionID).Scan(&status)
	if err == sql.ErrNoRows {
		return nil, false, ErrNotFound
	}
	if err != nil {
		return nil, false, err
	}
	if status != model.SessionOpen {
		return nil, false, ErrInvalidState
	}

	// 2. Article must exist; its current location is needed for the
	// side-effect comparison.
	var articleID uint64
	var curLocation sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT id, code_emplacement FROM articles WHERE id = ?`, p.ArticleID).Scan(&articleID, &curLocation)
	if err == sql.ErrNoRows {
		return nil, false, ErrNotFound
	}
	if err != nil {
		return nil, false, err
	}

	// 3. Round assignment: round-bound counters may only write their own
	// round.
	if !p.Principal.CanSubmitRound(p.Round) {
		return nil, false, ErrForbidden
	}

	// 4. Field validation.
	if p.Round < 1 {
		return nil, false, Validationf("round", "must be at least 1")
	}
	if p.Quantity.IsNegative() {
		return nil, false, Validationf("quantity_counted", "must not be negative")
	}

	// Location side effect, applied whether the submission creates or
	// corrects: the counter found the article on a different shelf.
	if p.Location != nil && *p.Location != "" && (!curLocation.Valid || curLocation.String != *p.Location) {
		if _, err := tx.ExecContext(ctx,
			`UPDATE articles SET code_emplacement = ? WHERE id = ?`, *p.Location, p.ArticleID); err != nil {
			return nil, false, err
		}
	}

	// 5. Lock the logical count for this tuple, if any.
	existing, err := scanCount(tx.QueryRowContext(ctx,
		`SELECT `+countCols+` FROM inventory_counts
		 WHERE session_id = ? AND article_id = ? AND round = ? AND counted_by_user_id = ?
		 FOR UPDATE`,
		p.SessionID, p.ArticleID, p.Round, p.Principal.UserID))
	if err != nil && err != sql.ErrNoRows {
		return nil, false, err
	}

	if existing != nil {
		if r.duplicateMode == config.DuplicateModeReject {
			return nil, false, ErrConflict
		}
		// Correct in place: overwrite quantity and notes, bump version.
		prev := existing.Quantity
		if _, err := tx.ExecContext(ctx,
			`UPDATE inventory_counts
			 SET quantity_counted = ?, notes = ?, version = version + 1, counted_at = NOW()
			 WHERE id = ?`,
			p.Quantity, p.Notes, existing.ID); err != nil {
			return nil, false, err
		}
		reason := "Recount/Correction by same user"
		if err := appendHistoryTx(ctx, tx, historyRow{
			SessionID:        p.SessionID,
			ArticleID:        p.ArticleID,
			Round:            p.Round,
			Quantity:         p.Quantity,
			CountedBy:        p.Principal.UserID,
			Action:           model.HistoryCorrected,
			PreviousQuantity: &prev,
			CountID:          &existing.ID,
			CorrectionReason: &reason,
			Notes:            p.Notes,
		}); err != nil {
			return nil, false, err
		}
		c, err := r.getByIDTx(ctx, tx, existing.ID)
		if err != nil {
			return nil, false, err
		}
		if err := tx.Commit(); err != nil {
			return nil, false, err
		}
		committed = true
		return c, true, nil
	}

	// No logical count yet: insert at version 1.
	res, err := tx.ExecContext(ctx,
		`INSERT INTO inventory_counts (session_id, article_id, round, quantity_counted, counted_by_user_id, is_new, notes, version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1)`,
		p.SessionID, p.ArticleID, p.Round, p.Quantity, p.Principal.UserID, p.IsNew, p.Notes)
	if err != nil {
		// Duplicate key: lost the insert race, bubble up for the retry.
		return nil, false, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, err
	}
	countID := uint64(id)

	if err := appendHistoryTx(ctx, tx, historyRow{
		SessionID: p.SessionID,
		ArticleID: p.ArticleID,
		Round:     p.Round,
		Quantity:  p.Quantity,
		CountedBy: p.Principal.UserID,
		Action:    model.HistoryCreated,
		CountID:   &countID,
		Notes:     p.Notes,
	}); err != nil {
		return nil, false, err
	}
	c, err := r.getByIDTx(ctx, tx, countID)
	if err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	committed = true
	return c, false, nil
}

// ApplyDelta adjusts an existing count's quantity by a signed delta.  Only
// the original counter or a privileged requester may do so, and the result
// must not go negative.  The history entry carries the previous quantity
// and a reason describing the delta.
func (r *CountRepo) ApplyDelta(ctx context.Context, countID uint64, delta decimal.Decimal, notes *string, requesterID uint64, privileged bool) (*model.Count, error) {
	reason := fmt.Sprintf("Quantity updated by %s", delta.String())
	return r.mutate(ctx, countID, requesterID, privileged, model.HistoryUpdatedByDelta, reason, notes,
		func(current decimal.Decimal) (decimal.Decimal, error) {
			next := current.Add(delta)
			if next.IsNegative() {
				return decimal.Decimal{}, Validationf("quantity_change", "resulting quantity must not be negative")
			}
			return next, nil
		})
}

// CorrectWithReason overwrites a count's quantity with an explicit,
// human-supplied reason.  Same authorization rule as ApplyDelta.
func (r *CountRepo) CorrectWithReason(ctx context.Context, countID uint64, newQuantity decimal.Decimal, reason string, notes *string, requesterID uint64, privileged bool) (*model.Count, error) {
	if reason == "" {
		return nil, Validationf("correction_reason", "is required")
	}
	if newQuantity.IsNegative() {
		return nil, Validationf("new_quantity", "must not be negative")
	}
	return r.mutate(ctx, countID, requesterID, privileged, model.HistoryCorrected, reason, notes,
		func(decimal.Decimal) (decimal.Decimal, error) { return newQuantity, nil })
}

// mutate locks a count, applies fn to its quantity, bumps the version and
// appends the matching history entry, all in one transaction.
func (r *CountRepo) mutate(ctx context.Context, countID, requesterID uint64, privileged bool, action, reason string, notes *string, fn func(decimal.Decimal) (decimal.Decimal, error)) (*model.Count, error) {
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

	existing, err := scanCount(tx.QueryRowContext(ctx,
		`SELECT `+countCols+` FROM inventory_counts WHERE id = ? FOR UPDATE`, countID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !privileged && existing.CountedByUserID != requesterID {
		return nil, ErrForbidden
	}

	next, err := fn(existing.Quantity)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE inventory_counts
		 SET quantity_counted = ?, notes = COALESCE(?, notes), version = version + 1, counted_at = NOW()
		 WHERE id = ?`,
		next, notes, countID); err != nil {
		return nil, err
	}
	prev := existing.Quantity
	if err := appendHistoryTx(ctx, tx, historyRow{
		SessionID:        existing.SessionID,
		ArticleID:        existing.ArticleID,
		Round:            existing.Round,
		Quantity:         next,
		CountedBy:        requesterID,
		Action:           action,
		PreviousQuantity: &prev,
		CountID:          &countID,
		CorrectionReason: &reason,
		Notes:            notes,
	}); err != nil {
		return nil, err
	}
	c, err := r.getByIDTx(ctx, tx, countID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return c, nil
}

// Delete removes a logical count (privileged only, enforced by the
// caller's role gate).  A final "deleted" history entry records the
// removal; prior entries stay untouched — history is a record of what
// happened, not current state.
func (r *CountRepo) Delete(ctx context.Context, countID uint64) error {
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

	existing, err := scanCount(tx.QueryRowContext(ctx,
		`SELECT `+countCols+` FROM inventory_counts WHERE id = ? FOR UPDATE`, countID))
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := appendHistoryTx(ctx, tx, historyRow{
		SessionID: existing.SessionID,
		ArticleID: existing.ArticleID,
		Round:     existing.Round,
		Quantity:  existing.Quantity,
		CountedBy: existing.CountedByUserID,
		Action:    model.HistoryDeleted,
		CountID:   &existing.ID,
		Notes:     existing.Notes,
	}); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM inventory_counts WHERE id = ?`, countID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (r *CountRepo) getByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Count, error) {
	return scanCount(tx.QueryRowContext(ctx,
		`SELECT `+countCols+` FROM inventory_counts WHERE id = ?`, id))
}

// GetByID fetches a count by id.  Returns ErrNotFound when absent.
func (r *CountRepo) GetByID(ctx context.Context, id uint64) (*model.Count, error) {
	c, err := scanCount(r.db.QueryRowContext(ctx,
		`SELECT `+countCols+` FROM inventory_counts WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return c, err
}

// historyRow is the denormalized audit record appended for every ledger
// mutation.
type historyRow struct {
	SessionID        uint64
	ArticleID        uint64
	Round            int
	Quantity         decimal.Decimal
	CountedBy        uint64
	Action           string
	PreviousQuantity *decimal.Decimal
	CountID          *uint64
	CorrectionReason *string
	Notes            *string
}

// appendHistoryTx writes one counting_history row inside the caller's
// transaction.  A failure here aborts the enclosing ledger operation: a
// count mutation must never persist without its audit entry.
func appendHistoryTx(ctx context.Context, tx *sql.Tx, h historyRow) error {
	var prev decimal.NullDecimal
	if h.PreviousQuantity != nil {
		prev = decimal.NullDecimal{Decimal: *h.PreviousQuantity, Valid: true}
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO counting_history
		 (session_id, article_id, round, quantity_counted, counted_by_user_id, action, previous_quantity, count_id, correction_reason, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.SessionID, h.ArticleID, h.Round, h.Quantity, h.CountedBy, h.Action,
		prev, h.CountID, h.CorrectionReason, h.Notes)
	return err
}
