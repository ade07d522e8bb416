package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pdrinv/inventory-api/internal/model"
)

// UserRepo manages application accounts.
type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

const userCols = `id, username, full_name, role, is_active, password_hash, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*model.User, error) {
	var u model.User
	var fullName sql.NullString
	err := row.Scan(&u.ID, &u.Username, &fullName, &u.Role, &u.IsActive,
		&u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if fullName.Valid {
		v := fullName.String
		u.FullName = &v
	}
	return &u, nil
}

// Create inserts a new account.  Returns ErrConflict when the username is
// taken.
func (r *UserRepo) Create(ctx context.Context, username, passwordHash, role string, fullName *string) (*model.User, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO app_users (username, full_name, role, password_hash) VALUES (?, ?, ?, ?)`,
		username, fullName, role, passwordHash)
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

// GetByID returns the account or ErrNotFound.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM app_users WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return u, err
}

// GetByUsername returns the account or ErrNotFound.  Login lookups go
// through here; inactive accounts are still returned so the caller can
// distinguish "unknown" from "disabled".
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM app_users WHERE username = ?`, username))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return u, err
}

// List returns accounts ordered by username.  Role filters exactly when
// non-empty.
func (r *UserRepo) List(ctx context.Context, role string, activeOnly bool) ([]model.User, error) {
	where := make([]string, 0, 2)
	args := make([]interface{}, 0, 2)
	if role != "" {
		where = append(where, "role = ?")
		args = append(args, role)
	}
	if activeOnly {
		where = append(where, "is_active = 1")
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userCols+` FROM app_users`+clause+` ORDER BY username ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.User, 0, 16)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// Update modifies an account's mutable fields.  Nil pointers leave the
// column unchanged.
func (r *UserRepo) Update(ctx context.Context, id uint64, fullName, role *string, isActive *bool) (*model.User, error) {
	sets := make([]string, 0, 3)
	args := make([]interface{}, 0, 4)
	if fullName != nil {
		sets = append(sets, "full_name = ?")
		args = append(args, *fullName)
	}
	if role != nil {
		sets = append(sets, "role = ?")
		args = append(args, *role)
	}
	if isActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *isActive)
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}
	args = append(args, id)
	res, err := r.db.ExecContext(ctx,
		`UPDATE app_users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Zero rows can also mean a no-op update; confirm existence.
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

// SetPassword replaces the stored hash.
func (r *UserRepo) SetPassword(ctx context.Context, id uint64, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE app_users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes an account.  Accounts referenced by counts cannot be
// removed; that surfaces as ErrConflict.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM app_users WHERE id = ?`, id)
	if err != nil {
		if isForeignKey(err) {
			return ErrConflict
		}
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
