package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pdrinv/inventory-api/internal/model"
)

// HistoryRepo reads the counting audit trail.  It deliberately has no
// insert, update or delete methods; entries are appended exclusively by the
// ledger inside its own transactions.
type HistoryRepo struct {
	db *sql.DB
}

func NewHistoryRepo(db *sql.DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// HistoryFilter narrows audit trail queries.  Zero values mean "no filter".
type HistoryFilter struct {
	SessionID uint64
	ArticleID uint64
	Round     int
	CountedBy uint64
	Action    string
	CountID   uint64
}

func (f HistoryFilter) clause() (string, []interface{}) {
	where := make([]string, 0, 6)
	args := make([]interface{}, 0, 6)
	if f.SessionID != 0 {
		where = append(where, "h.session_id = ?")
		args = append(args, f.SessionID)
	}
	if f.ArticleID != 0 {
		where = append(where, "h.article_id = ?")
		args = append(args, f.ArticleID)
	}
	if f.Round != 0 {
		where = append(where, "h.round = ?")
		args = append(args, f.Round)
	}
	if f.CountedBy != 0 {
		where = append(where, "h.counted_by_user_id = ?")
		args = append(args, f.CountedBy)
	}
	if f.Action != "" {
		where = append(where, "h.action = ?")
		args = append(args, f.Action)
	}
	if f.CountID != 0 {
		where = append(where, "h.count_id = ?")
		args = append(args, f.CountID)
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

const historyCols = `h.id, h.session_id, h.article_id, h.round, h.quantity_counted,
	h.counted_by_user_id, h.counted_at, h.action, h.previous_quantity,
	h.count_id, h.correction_reason, h.notes, h.created_at`

func scanHistory(rows *sql.Rows, extra ...interface{}) (*model.HistoryEntry, []interface{}, error) {
	var h model.HistoryEntry
	var prev decimal.NullDecimal
	var countID sql.NullInt64
	var reason, notes sql.NullString
	dest := []interface{}{&h.ID, &h.SessionID, &h.ArticleID, &h.Round, &h.Quantity,
		&h.CountedByUserID, &h.CountedAt, &h.Action, &prev,
		&countID, &reason, &notes, &h.CreatedAt}
	dest = append(dest, extra...)
	if err := rows.Scan(dest...); err != nil {
		return nil, nil, err
	}
	if prev.Valid {
		d := prev.Decimal
		h.PreviousQuantity = &d
	}
	if countID.Valid {
		v := uint64(countID.Int64)
		h.CountID = &v
	}
	if reason.Valid {
		v := reason.String
		h.CorrectionReason = &v
	}
	if notes.Valid {
		v := notes.String
		h.Notes = &v
	}
	return &h, extra, nil
}

// List returns audit entries matching the filter, newest first.  Entries
// with equal timestamps keep insertion order via the id tiebreak, so the
// per-tuple sequence always reads correction-before-creation when walking
// backwards.
func (r *HistoryRepo) List(ctx context.Context, f HistoryFilter, offset, limit int) ([]model.HistoryEntry, int, error) {
	clause, args := f.clause()

	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM counting_history h`+clause, args...).Scan(&total)
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
		`SELECT `+historyCols+` FROM counting_history h`+clause+
			` ORDER BY h.created_at DESC, h.id DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.HistoryEntry, 0, 32)
	for rows.Next() {
		h, _, err := scanHistory(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *h)
	}
	return out, total, rows.Err()
}

// ListDetailed is List with article, user and session names joined in for
// the audit UI.
func (r *HistoryRepo) ListDetailed(ctx context.Context, f HistoryFilter, offset, limit int) ([]model.HistoryDetail, int, error) {
	clause, args := f.clause()

	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM counting_history h`+clause, args...).Scan(&total)
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
		`SELECT `+historyCols+`,
		        a.numero_article, a.description_article, u.username, u.full_name, s.nom_session
		 FROM counting_history h
		 JOIN articles a ON a.id = h.article_id
		 JOIN app_users u ON u.id = h.counted_by_user_id
		 JOIN inventory_sessions s ON s.id = h.session_id`+clause+
			` ORDER BY h.created_at DESC, h.id DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.HistoryDetail, 0, 32)
	for rows.Next() {
		var d model.HistoryDetail
		var desc, fullName sql.NullString
		h, _, err := scanHistory(rows, &d.ArticleNumero, &desc, &d.Username, &fullName, &d.SessionName)
		if err != nil {
			return nil, 0, err
		}
		d.HistoryEntry = *h
		if desc.Valid {
			v := desc.String
			d.ArticleDescription = &v
		}
		if fullName.Valid {
			v := fullName.String
			d.UserFullName = &v
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}
