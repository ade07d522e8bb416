package repository

import (
	"context"
	"database/sql"

	"github.com/pdrinv/inventory-api/internal/model"
)

// ArticleAddLogRepo records articles reported during counting that were not
// yet in the catalog.  Append and read only.
type ArticleAddLogRepo struct {
	db *sql.DB
}

func NewArticleAddLogRepo(db *sql.DB) *ArticleAddLogRepo {
	return &ArticleAddLogRepo{db: db}
}

// Append records one reported article.  The session must exist; a missing
// one surfaces as ErrNotFound via the foreign key.
func (r *ArticleAddLogRepo) Append(ctx context.Context, sessionID uint64, numero string, description *string, createdBy uint64) (*model.ArticleAddLogEntry, error) {
	if numero == "" {
		return nil, Validationf("numero_article", "is required")
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO article_add_log (session_id, numero_article, description_article, created_by_user_id)
		 VALUES (?, ?, ?, ?)`,
		sessionID, numero, description, createdBy)
	if err != nil {
		if isForeignKey(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.getByID(ctx, uint64(id))
}

func (r *ArticleAddLogRepo) getByID(ctx context.Context, id uint64) (*model.ArticleAddLogEntry, error) {
	var e model.ArticleAddLogEntry
	var desc sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, session_id, numero_article, description_article, created_by_user_id, created_at
		 FROM article_add_log WHERE id = ?`, id).
		Scan(&e.ID, &e.SessionID, &e.Numero, &desc, &e.CreatedByUserID, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if desc.Valid {
		v := desc.String
		e.Description = &v
	}
	return &e, nil
}

// ListBySession returns a session's reported articles, newest first.
func (r *ArticleAddLogRepo) ListBySession(ctx context.Context, sessionID uint64) ([]model.ArticleAddLogEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, numero_article, description_article, created_by_user_id, created_at
		 FROM article_add_log WHERE session_id = ? ORDER BY created_at DESC, id DESC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.ArticleAddLogEntry, 0, 16)
	for rows.Next() {
		var e model.ArticleAddLogEntry
		var desc sql.NullString
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Numero, &desc, &e.CreatedByUserID, &e.CreatedAt); err != nil {
			return nil, err
		}
		if desc.Valid {
			v := desc.String
			e.Description = &v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
