package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pdrinv/inventory-api/internal/model"
)

// ResultRepo stores reconciliation outcomes.  One result per (session,
// article); a second reconcile for the same pair is a conflict, never an
// overwrite.  Corrections after the fact go through Update, which keeps the
// frozen baseline and recomputes the variance.
type ResultRepo struct {
	db *sql.DB
}

func NewResultRepo(db *sql.DB) *ResultRepo {
	return &ResultRepo{db: db}
}

const resultCols = `id, session_id, article_id, quantite_initiale, quantite_finale, ecart_final, ajuste, created_at, updated_at`

func scanResult(row interface{ Scan(...interface{}) error }) (*model.Result, error) {
	var res model.Result
	err := row.Scan(&res.ID, &res.SessionID, &res.ArticleID,
		&res.Baseline, &res.Final, &res.Variance, &res.Adjusted,
		&res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Reconcile writes the final quantity for one article of a session.  The
// baseline is read from the article row inside the same transaction and
// frozen into the result; the variance is computed server side.  Returns
// ErrConflict when the pair was already reconciled, ErrInvalidState when
// the session is still open, ErrNotFound for a missing session or article.
func (r *ResultRepo) Reconcile(ctx context.Context, sessionID, articleID uint64, final decimal.Decimal, adjusted bool) (*model.Result, error) {
	if final.IsNegative() {
		return nil, Validationf("quantite_finale", "must not be negative")
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

	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM inventory_sessions WHERE id = ?`, sessionID).Scan(&status)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if status == model.SessionOpen {
		return nil, ErrInvalidState
	}

	var baseline decimal.Decimal
	err = tx.QueryRowContext(ctx,
		`SELECT quantite_en_stock FROM articles WHERE id = ?`, articleID).Scan(&baseline)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	variance := final.Sub(baseline)
	res, err := tx.ExecContext(ctx,
		`INSERT INTO inventory_results (session_id, article_id, quantite_initiale, quantite_finale, ecart_final, ajuste)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, articleID, baseline, final, variance, adjusted)
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
	out, err := scanResult(tx.QueryRowContext(ctx,
		`SELECT `+resultCols+` FROM inventory_results WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return out, nil
}

// GetByID fetches one result.  Returns ErrNotFound when absent.
func (r *ResultRepo) GetByID(ctx context.Context, id uint64) (*model.Result, error) {
	res, err := scanResult(r.db.QueryRowContext(ctx,
		`SELECT `+resultCols+` FROM inventory_results WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return res, err
}

// ResultFilter narrows result listings.
type ResultFilter struct {
	SessionID   uint64
	ArticleID   uint64
	HasVariance *bool
	Adjusted    *bool
}

func (f ResultFilter) clause() (string, []interface{}) {
	where := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)
	if f.SessionID != 0 {
		where = append(where, "r.session_id = ?")
		args = append(args, f.SessionID)
	}
	if f.ArticleID != 0 {
		where = append(where, "r.article_id = ?")
		args = append(args, f.ArticleID)
	}
	if f.HasVariance != nil {
		if *f.HasVariance {
			where = append(where, "r.ecart_final <> 0")
		} else {
			where = append(where, "r.ecart_final = 0")
		}
	}
	if f.Adjusted != nil {
		where = append(where, "r.ajuste = ?")
		args = append(args, *f.Adjusted)
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// List returns results matching the filter, largest absolute variance
// first, plus the pre-paging total.
func (r *ResultRepo) List(ctx context.Context, f ResultFilter, offset, limit int) ([]model.Result, int, error) {
	clause, args := f.clause()

	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM inventory_results r`+clause, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT r.id, r.session_id, r.article_id, r.quantite_initiale, r.quantite_finale, r.ecart_final, r.ajuste, r.created_at, r.updated_at
		 FROM inventory_results r`+clause+
			` ORDER BY ABS(r.ecart_final) DESC, r.article_id ASC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Result, 0, 32)
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *res)
	}
	return out, total, rows.Err()
}

// ListWithDetails joins article detail and current reference stock onto the
// session's results, ordered like List.
func (r *ResultRepo) ListWithDetails(ctx context.Context, sessionID uint64) ([]model.ResultWithArticle, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.session_id, r.article_id, r.quantite_initiale, r.quantite_finale, r.ecart_final, r.ajuste, r.created_at, r.updated_at,
		       a.numero_article, a.description_article, a.code_emplacement, a.quantite_en_stock
		FROM inventory_results r
		JOIN articles a ON a.id = r.article_id
		WHERE r.session_id = ?
		ORDER BY ABS(r.ecart_final) DESC, r.article_id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.ResultWithArticle, 0, 32)
	for rows.Next() {
		var res model.ResultWithArticle
		var desc, loc sql.NullString
		var stock decimal.NullDecimal
		if err := rows.Scan(&res.ID, &res.SessionID, &res.ArticleID,
			&res.Baseline, &res.Final, &res.Variance, &res.Adjusted,
			&res.CreatedAt, &res.UpdatedAt,
			&res.ArticleNumero, &desc, &loc, &stock); err != nil {
			return nil, err
		}
		if desc.Valid {
			v := desc.String
			res.ArticleDescription = &v
		}
		if loc.Valid {
			v := loc.String
			res.ArticleLocation = &v
		}
		if stock.Valid {
			d := stock.Decimal
			res.ReferenceStock = &d
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// ListBySession returns every result of a session without article detail,
// the input for the pure variance and results summaries.
func (r *ResultRepo) ListBySession(ctx context.Context, sessionID uint64) ([]model.Result, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+resultCols+` FROM inventory_results WHERE session_id = ? ORDER BY article_id ASC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Result, 0, 64)
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

// Update changes a result's final quantity and/or adjusted flag.  The
// baseline never moves; the variance is recomputed from the stored
// baseline.
func (r *ResultRepo) Update(ctx context.Context, id uint64, final *decimal.Decimal, adjusted *bool) (*model.Result, error) {
	if final == nil && adjusted == nil {
		return r.GetByID(ctx, id)
	}
	if final != nil && final.IsNegative() {
		return nil, Validationf("quantite_finale", "must not be negative")
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

	existing, err := scanResult(tx.QueryRowContext(ctx,
		`SELECT `+resultCols+` FROM inventory_results WHERE id = ? FOR UPDATE`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	newFinal := existing.Final
	if final != nil {
		newFinal = *final
	}
	newAdjusted := existing.Adjusted
	if adjusted != nil {
		newAdjusted = *adjusted
	}
	variance := newFinal.Sub(existing.Baseline)
	if _, err := tx.ExecContext(ctx,
		`UPDATE inventory_results SET quantite_finale = ?, ecart_final = ?, ajuste = ? WHERE id = ?`,
		newFinal, variance, newAdjusted, id); err != nil {
		return nil, err
	}
	out, err := scanResult(tx.QueryRowContext(ctx,
		`SELECT `+resultCols+` FROM inventory_results WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return out, nil
}

// Delete removes a result, reopening the pair for reconciliation.
func (r *ResultRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM inventory_results WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
