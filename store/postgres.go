package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres implements both repositories over two plain tables referenced
// by stable IDs:
//
//	users(id, email, password_hash, role, active, created_at, updated_at)
//	user_permissions(user_id, permission, granted_by, created_at)
type Postgres struct {
	db *sql.DB
}

// OpenPostgres opens a pgx-backed pool for the given DSN.
func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	return &Postgres{db: db}, nil
}

// NewPostgres wraps an existing handle; the caller owns its lifecycle.
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// Close releases the underlying pool.
func (p *Postgres) Close() error { return p.db.Close() }

const userColumns = `id, email, password_hash, role, active, created_at, updated_at`

func scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (p *Postgres) GetByID(ctx context.Context, id string) (*User, error) {
	return scanUser(p.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id = $1`, id))
}

func (p *Postgres) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(p.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where lower(email) = lower($1)`, email))
}

func (p *Postgres) Create(ctx context.Context, u *User) error {
	now := time.Now().UTC()
	_, err := p.db.ExecContext(ctx,
		`insert into users(id, email, password_hash, role, active, created_at, updated_at)
		 values($1, $2, $3, $4, $5, $6, $6)`,
		u.ID, u.Email, u.PasswordHash, u.Role, u.Active, now)
	if err != nil {
		return err
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

func (p *Postgres) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	res, err := p.db.ExecContext(ctx,
		`update users set password_hash = $2, updated_at = now() where id = $1`, id, hash)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (p *Postgres) SetActive(ctx context.Context, id string, active bool) error {
	res, err := p.db.ExecContext(ctx,
		`update users set active = $2, updated_at = now() where id = $1`, id, active)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (p *Postgres) Permissions(ctx context.Context, userID string) ([]string, error) {
	rows, err := p.db.QueryContext(ctx,
		`select permission from user_permissions where user_id = $1 order by permission`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []string
	for rows.Next() {
		var perm string
		if err := rows.Scan(&perm); err != nil {
			return nil, err
		}
		perms = append(perms, perm)
	}
	return perms, rows.Err()
}

func (p *Postgres) Add(ctx context.Context, g Grant) error {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	_, err := p.db.ExecContext(ctx,
		`insert into user_permissions(user_id, permission, granted_by, created_at)
		 values($1, $2, $3, $4)
		 on conflict (user_id, permission) do nothing`,
		g.UserID, g.Permission, g.GrantedBy, g.CreatedAt)
	return err
}

func (p *Postgres) Remove(ctx context.Context, userID, permission string) error {
	_, err := p.db.ExecContext(ctx,
		`delete from user_permissions where user_id = $1 and permission = $2`,
		userID, permission)
	return err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var (
	_ UserRepository  = (*Postgres)(nil)
	_ GrantRepository = (*Postgres)(nil)
)
