package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/usershub/internal/domain/user"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const userColumns = `id, name, email, password_hash, role, created_at`

// DBObserver wraps a logical DB operation, e.g. to record latency and error classes.
type DBObserver interface {
	ObserveDB(op string, fn func() error) error
}

type UsersRepo struct {
	pool *pgxpool.Pool
	obs  DBObserver
}

func NewUsersRepo(pool *pgxpool.Pool, obs DBObserver) *UsersRepo {
	return &UsersRepo{pool: pool, obs: obs}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.obs == nil {
		return fn()
	}
	return r.obs.ObserveDB(op, fn)
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}

	return u, nil
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return user.ErrEmailTaken
	}
	return err
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	out := make([]user.User, 0)

	err := r.observe("users.list", func() error {
		rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			out = append(out, u)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_id", func() (err error) {
		u, err = scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		return
	})

	return u, err
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_email", func() (err error) {
		u, err = scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
		return
	})

	return u, err
}

func (r *UsersRepo) Create(ctx context.Context, name, email, passwordHash, role string) (user.User, error) {
	var u user.User

	err := r.observe("users.create", func() (err error) {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`INSERT INTO users (name, email, password_hash, role)
			VALUES ($1, $2, $3, $4)
			RETURNING `+userColumns,
			name, email, passwordHash, role,
		))
		return mapWriteErr(err)
	})

	return u, err
}

func (r *UsersRepo) Update(ctx context.Context, id int64, changes user.Changes) (user.User, error) {
	if changes.Empty() {
		return r.GetByID(ctx, id)
	}

	var sets []string
	var args []interface{}

	argsPosition := 1

	add := func(col string, v *string) {
		if v == nil {
			return
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argsPosition))
		args = append(args, *v)
		argsPosition++
	}

	add("name", changes.Name)
	add("email", changes.Email)
	add("role", changes.Role)

	query := `UPDATE users SET ` + strings.Join(sets, ", ") +
		fmt.Sprintf(` WHERE id = $%d RETURNING `, argsPosition) + userColumns
	args = append(args, id)

	var u user.User

	err := r.observe("users.update", func() (err error) {
		u, err = scanUser(r.pool.QueryRow(ctx, query, args...))
		return mapWriteErr(err)
	})

	return u, err
}

func (r *UsersRepo) Delete(ctx context.Context, id int64) (user.User, error) {
	var u user.User

	err := r.observe("users.delete", func() (err error) {
		u, err = scanUser(r.pool.QueryRow(ctx, `DELETE FROM users WHERE id = $1 RETURNING `+userColumns, id))
		return
	})

	return u, err
}
