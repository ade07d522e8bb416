package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pdrinv/inventory-api/internal/model"
)

// CountFilter narrows count listings.  Zero values mean "no filter".
type CountFilter struct {
	SessionID uint64
	ArticleID uint64
	Round     int
	CountedBy uint64
	Location  string // exact article location match
	Search    string // substring over article number and description
}

// List returns counts matching the filter, newest first, with article
// detail joined in.  Also reports the total row count before paging.
func (r *CountRepo) List(ctx context.Context, f CountFilter, offset, limit int) ([]model.CountWithArticle, int, error) {
	where := make([]string, 0, 6)
	args := make([]interface{}, 0, 6)
	if f.SessionID != 0 {
		where = append(where, "c.session_id = ?")
		args = append(args, f.SessionID)
	}
	if f.ArticleID != 0 {
		where = append(where, "c.article_id = ?")
		args = append(args, f.ArticleID)
	}
	if f.Round != 0 {
		where = append(where, "c.round = ?")
		args = append(args, f.Round)
	}
	if f.CountedBy != 0 {
		where = append(where, "c.counted_by_user_id = ?")
		args = append(args, f.CountedBy)
	}
	if f.Location != "" {
		where = append(where, "a.code_emplacement = ?")
		args = append(args, f.Location)
	}
	if f.Search != "" {
		where = append(where, "(a.numero_article LIKE ? OR a.description_article LIKE ?)")
		like := "%" + f.Search + "%"
		args = append(args, like, like)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM inventory_counts c JOIN articles a ON a.id = c.article_id`+clause,
		args...).Scan(&total)
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
		countWithArticleSelect+clause+` ORDER BY c.counted_at DESC, c.id DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out, err := collectCountsWithArticle(rows)
	return out, total, err
}

const countWithArticleSelect = `
	SELECT c.id, c.session_id, c.article_id, c.round, c.quantity_counted,
	       c.counted_by_user_id, c.counted_at, c.is_new, c.notes, c.version,
	       a.numero_article, a.description_article, a.code_emplacement
	FROM inventory_counts c
	JOIN articles a ON a.id = c.article_id`

func collectCountsWithArticle(rows *sql.Rows) ([]model.CountWithArticle, error) {
	out := make([]model.CountWithArticle, 0, 32)
	for rows.Next() {
		var c model.CountWithArticle
		var notes, desc, loc sql.NullString
		if err := rows.Scan(&c.ID, &c.SessionID, &c.ArticleID, &c.Round, &c.Quantity,
			&c.CountedByUserID, &c.CountedAt, &c.IsNew, &notes, &c.Version,
			&c.ArticleNumero, &desc, &loc); err != nil {
			return nil, err
		}
		if notes.Valid {
			v := notes.String
			c.Notes = &v
		}
		if desc.Valid {
			v := desc.String
			c.ArticleDescription = &v
		}
		if loc.Valid {
			v := loc.String
			c.ArticleLocation = &v
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListBySession returns every count of a session with article detail,
// ordered by article number then round, for the session detail view.
func (r *CountRepo) ListBySession(ctx context.Context, sessionID uint64) ([]model.CountWithArticle, error) {
	rows, err := r.db.QueryContext(ctx,
		countWithArticleSelect+` WHERE c.session_id = ? ORDER BY a.numero_article ASC, c.round ASC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCountsWithArticle(rows)
}

// LastByUser returns the user's most recent counts across all sessions,
// newest first.  Equal timestamps break toward the lower count id so the
// order is stable.
func (r *CountRepo) LastByUser(ctx context.Context, userID uint64, limit int) ([]model.LastCounted, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, lastCountedSelect+`
		WHERE c.counted_by_user_id = ?
		ORDER BY c.counted_at DESC, c.id ASC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLastCounted(rows)
}

// LastCountedRows returns every count of a session ordered newest first
// with the lower count id winning timestamp ties, the input shape the
// per-user "last counted" projection reduces over.
func (r *CountRepo) LastCountedRows(ctx context.Context, sessionID uint64) ([]model.LastCounted, error) {
	rows, err := r.db.QueryContext(ctx, lastCountedSelect+`
		WHERE c.session_id = ?
		ORDER BY c.counted_at DESC, c.id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLastCounted(rows)
}

const lastCountedSelect = `
	SELECT c.id, c.article_id, a.numero_article, a.description_article, a.code_emplacement,
	       c.quantity_counted, c.round, c.counted_at,
	       u.id, u.username, s.id, s.nom_session
	FROM inventory_counts c
	JOIN articles a ON a.id = c.article_id
	JOIN app_users u ON u.id = c.counted_by_user_id
	JOIN inventory_sessions s ON s.id = c.session_id`

func collectLastCounted(rows *sql.Rows) ([]model.LastCounted, error) {
	out := make([]model.LastCounted, 0, 16)
	for rows.Next() {
		var lc model.LastCounted
		var desc, loc sql.NullString
		if err := rows.Scan(&lc.CountID, &lc.ArticleID, &lc.ArticleNumero, &desc, &loc,
			&lc.Quantity, &lc.Round, &lc.CountedAt,
			&lc.UserID, &lc.Username, &lc.SessionID, &lc.SessionName); err != nil {
			return nil, err
		}
		if desc.Valid {
			v := desc.String
			lc.ArticleDescription = &v
		}
		if loc.Valid {
			v := loc.String
			lc.ArticleLocation = &v
		}
		out = append(out, lc)
	}
	return out, rows.Err()
}

// RoundCount is the number of counts recorded in one round of a session.
type RoundCount struct {
	Round int `json:"round"`
	Count int `json:"count"`
}

// UserCount is the number of counts one user recorded in a session.
type UserCount struct {
	UserID   uint64 `json:"user_id"`
	Username string `json:"username"`
	Count    int    `json:"count"`
}

// SessionStats aggregates a session's counting activity.
type SessionStats struct {
	TotalCounts    int          `json:"total_counts"`
	UniqueArticles int          `json:"unique_articles"`
	NewArticles    int          `json:"new_articles"`
	ByRound        []RoundCount `json:"counts_by_round"`
	ByUser         []UserCount  `json:"counts_by_user"`
}

// StatsBySession computes the session activity summary straight from the
// ledger.
func (r *CountRepo) StatsBySession(ctx context.Context, sessionID uint64) (*SessionStats, error) {
	var s SessionStats
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(DISTINCT article_id),
		       COALESCE(SUM(is_new), 0)
		FROM inventory_counts WHERE session_id = ?`, sessionID).
		Scan(&s.TotalCounts, &s.UniqueArticles, &s.NewArticles)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT round, COUNT(*) FROM inventory_counts
		WHERE session_id = ? GROUP BY round ORDER BY round`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	s.ByRound = make([]RoundCount, 0, 4)
	for rows.Next() {
		var rc RoundCount
		if err := rows.Scan(&rc.Round, &rc.Count); err != nil {
			return nil, err
		}
		s.ByRound = append(s.ByRound, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	urows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.username, COUNT(*)
		FROM inventory_counts c JOIN app_users u ON u.id = c.counted_by_user_id
		WHERE c.session_id = ? GROUP BY u.id, u.username ORDER BY COUNT(*) DESC, u.id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer urows.Close()
	s.ByUser = make([]UserCount, 0, 8)
	for urows.Next() {
		var uc UserCount
		if err := urows.Scan(&uc.UserID, &uc.Username, &uc.Count); err != nil {
			return nil, err
		}
		s.ByUser = append(s.ByUser, uc)
	}
	return &s, urows.Err()
}
