package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/octrolabs/userhub/internal/domain/group"
	"github.com/octrolabs/userhub/internal/observability"
)

type GroupsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewGroupsRepo(pool *pgxpool.Pool, prom *observability.Prom) *GroupsRepo {
	return &GroupsRepo{pool: pool, prom: prom}
}

func (r *GroupsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const groupColumns = `id, name, description, created_at, updated_at`

func scanGroup(row pgx.Row) (group.Group, error) {
	var g group.Group

	err := row.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return group.Group{}, err
	}
	return g, nil
}

func (r *GroupsRepo) List(ctx context.Context) ([]group.Group, error) {
	return r.queryGroups(ctx, "groups.list",
		`SELECT `+groupColumns+` FROM user_groups ORDER BY id`)
}

// ListForUser returns the groups the given user is a member of.
func (r *GroupsRepo) ListForUser(ctx context.Context, userID int64) ([]group.Group, error) {
	return r.queryGroups(ctx, "groups.list_for_user",
		`SELECT g.id, g.name, g.description, g.created_at, g.updated_at
		 FROM user_groups g
		 INNER JOIN user_group_memberships m ON g.id = m.group_id
		 WHERE m.user_id = $1
		 ORDER BY g.id`, userID)
}

func (r *GroupsRepo) Create(ctx context.Context, name, description string) (group.Group, error) {
	var g group.Group
	var err error

	err = r.observe("groups.create", func() error {
		g, err = scanGroup(r.pool.QueryRow(
			ctx,
			`INSERT INTO user_groups (name, description)
			 VALUES ($1, $2)
			 RETURNING `+groupColumns,
			name, description,
		))
		return err
	})

	if err != nil {
		return group.Group{}, err
	}
	return g, nil
}

func (r *GroupsRepo) queryGroups(ctx context.Context, op, sql string, args ...any) ([]group.Group, error) {
	var groups []group.Group

	err := r.observe(op, func() error {
		rows, err := r.pool.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			g, err := scanGroup(rows)
			if err != nil {
				return err
			}
			groups = append(groups, g)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	if groups == nil {
		groups = []group.Group{}
	}
	return groups, nil
}
