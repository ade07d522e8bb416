package repository

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/pdrinv/inventory-api/internal/model"
)

// ArticleRepo provides read/write access to the article catalog.  The
// catalog is mostly maintained by the reference-stock importer; the counting
// core only touches the location field as a side effect of submissions.
type ArticleRepo struct {
	db *sql.DB
}

// NewArticleRepo returns a new ArticleRepo bound to the given database.
func NewArticleRepo(db *sql.DB) *ArticleRepo { return &ArticleRepo{db: db} }

const articleCols = `id, numero_article, description_article, catalogue_fournisseur, code_entrepot, code_emplacement, quantite_en_stock, created_at, updated_at`

func scanArticle(row interface{ Scan(...interface{}) error }) (*model.Article, error) {
	var a model.Article
	var desc, cat, wh, loc sql.NullString
	err := row.Scan(&a.ID, &a.Numero, &desc, &cat, &wh, &loc, &a.StockQuantity, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if desc.Valid {
		v := desc.String
		a.Description = &v
	}
	if cat.Valid {
		v := cat.String
		a.SupplierCatalog = &v
	}
	if wh.Valid {
		v := wh.String
		a.Warehouse = &v
	}
	if loc.Valid {
		v := loc.String
		a.Location = &v
	}
	return &a, nil
}

// GetByID fetches an article by id.  Returns ErrNotFound when absent.
func (r *ArticleRepo) GetByID(ctx context.Context, id uint64) (*model.Article, error) {
	a, err := scanArticle(r.db.QueryRowContext(ctx,
		`SELECT `+articleCols+` FROM articles WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return a, err
}

// GetByNumero fetches an article by its unique article number.
func (r *ArticleRepo) GetByNumero(ctx context.Context, numero string) (*model.Article, error) {
	a, err := scanArticle(r.db.QueryRowContext(ctx,
		`SELECT `+articleCols+` FROM articles WHERE numero_article = ?`, numero))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return a, err
}

// ArticleFilter narrows List.  Zero values mean "no filter".
type ArticleFilter struct {
	Warehouse string
	Location  string
	HasStock  *bool
}

// List returns a page of articles ordered by article number plus the total
// number of rows matching the filter (for pagination headers).
func (r *ArticleRepo) List(ctx context.Context, f ArticleFilter, offset, limit int) ([]model.Article, int, error) {
	where := ` FROM articles WHERE 1=1`
	args := make([]interface{}, 0, 4)
	if f.Warehouse != "" {
		where += ` AND code_entrepot = ?`
		args = append(args, f.Warehouse)
	}
	if f.Location != "" {
		where += ` AND code_emplacement = ?`
		args = append(args, f.Location)
	}
	if f.HasStock != nil {
		if *f.HasStock {
			where += ` AND quantite_en_stock > 0`
		} else {
			where += ` AND quantite_en_stock = 0`
		}
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*)`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + articleCols + where + ` ORDER BY numero_article LIMIT ? OFFSET ?`
	args = append(args, limit, offset)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]model.Article, 0)
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *a)
	}
	return out, total, rows.Err()
}

// Search matches the term against article number, description, supplier
// catalog and location, case-insensitively.
func (r *ArticleRepo) Search(ctx context.Context, term string, offset, limit int) ([]model.Article, error) {
	like := "%" + term + "%"
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+articleCols+` FROM articles
		 WHERE numero_article LIKE ? OR description_article LIKE ?
		    OR catalogue_fournisseur LIKE ? OR code_emplacement LIKE ?
		 ORDER BY numero_article LIMIT ? OFFSET ?`,
		like, like, like, like, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Article, 0)
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// Create inserts a catalog entry.  A duplicate article number returns
// ErrConflict.
func (r *ArticleRepo) Create(ctx context.Context, a *model.Article) (*model.Article, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO articles (numero_article, description_article, catalogue_fournisseur, code_entrepot, code_emplacement, quantite_en_stock)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.Numero, a.Description, a.SupplierCatalog, a.Warehouse, a.Location, a.StockQuantity)
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

// Update edits the mutable catalog fields.  Nil pointers leave a field
// unchanged.
func (r *ArticleRepo) Update(ctx context.Context, id uint64, description, supplierCatalog, warehouse, location *string, stock *decimal.Decimal) (*model.Article, error) {
	q := `UPDATE articles SET id = id`
	args := make([]interface{}, 0, 6)
	if description != nil {
		q += `, description_article = ?`
		args = append(args, *description)
	}
	if supplierCatalog != nil {
		q += `, catalogue_fournisseur = ?`
		args = append(args, *supplierCatalog)
	}
	if warehouse != nil {
		q += `, code_entrepot = ?`
		args = append(args, *warehouse)
	}
	if location != nil {
		q += `, code_emplacement = ?`
		args = append(args, *location)
	}
	if stock != nil {
		q += `, quantite_en_stock = ?`
		args = append(args, *stock)
	}
	q += ` WHERE id = ?`
	args = append(args, id)
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes an article by id.  Returns ErrNotFound when nothing was
// deleted and ErrConflict when counts or results still reference it.
func (r *ArticleRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id)
	if err != nil {
		if isForeignKey(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByNumero removes an article by its article number.
func (r *ArticleRepo) DeleteByNumero(ctx context.Context, numero string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM articles WHERE numero_article = ?`, numero)
	if err != nil {
		if isForeignKey(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
