package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/octrolabs/userhub/internal/domain/user"
	"github.com/octrolabs/userhub/internal/observability"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("user already exists")
)

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const userColumns = `id, external_id, email, name, avatar_url, role, created_at, updated_at`

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.ExternalID,
		&u.Email,
		&u.Name,
		&u.AvatarURL,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, ErrUserNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByExternalID(ctx context.Context, externalID string) (user.User, error) {
	var u user.User
	var err error

	err = r.observe("users.get_by_external_id", func() error {
		u, err = scanUser(r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+` FROM users WHERE external_id = $1`,
			externalID,
		))
		return err
	})
	return u, err
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (user.User, error) {
	var u user.User
	var err error

	err = r.observe("users.get_by_id", func() error {
		u, err = scanUser(r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`,
			id,
		))
		return err
	})
	return u, err
}

// Count is only used by the identity resolver's bootstrap check.
func (r *UsersRepo) Count(ctx context.Context) (int64, error) {
	var n int64

	err := r.observe("users.count", func() error {
		return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	})

	if err != nil {
		return 0, err
	}
	return n, nil
}

// Create inserts a new user. The unique constraints on external_id and
// email arbitrate concurrent creation; losers get ErrDuplicateUser.
func (r *UsersRepo) Create(ctx context.Context, nu user.NewUser) (user.User, error) {
	var u user.User
	var err error

	err = r.observe("users.create", func() error {
		u, err = scanUser(r.pool.QueryRow(
			ctx,
			`INSERT INTO users (external_id, email, name, avatar_url, role)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING `+userColumns,
			nu.ExternalID, nu.Email, nu.Name, nu.AvatarURL, string(nu.Role),
		))
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, ErrDuplicateUser
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) UpdateRole(ctx context.Context, id int64, role user.Role) error {
	var tag pgconn.CommandTag

	err := r.observe("users.update_role", func() error {
		var err error
		tag, err = r.pool.Exec(
			ctx,
			`UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2`,
			string(role), id,
		)
		return err
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	var users []user.User

	err := r.observe("users.list", func() error {
		rows, err := r.pool.Query(
			ctx,
			`SELECT `+userColumns+` FROM users ORDER BY id`,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			users = append(users, u)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	if users == nil {
		users = []user.User{}
	}
	return users, nil
}
