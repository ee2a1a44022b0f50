package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/octrolabs/userhub/internal/domain/group"
	"github.com/octrolabs/userhub/internal/observability"
)

type ProcessesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewProcessesRepo(pool *pgxpool.Pool, prom *observability.Prom) *ProcessesRepo {
	return &ProcessesRepo{pool: pool, prom: prom}
}

func (r *ProcessesRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func scanProcess(row pgx.Row) (group.Process, error) {
	var p group.Process

	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return group.Process{}, err
	}
	return p, nil
}

func (r *ProcessesRepo) List(ctx context.Context) ([]group.Process, error) {
	var processes []group.Process

	err := r.observe("processes.list", func() error {
		rows, err := r.pool.Query(
			ctx,
			`SELECT id, name, description, created_at, updated_at FROM processes ORDER BY id`,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanProcess(rows)
			if err != nil {
				return err
			}
			processes = append(processes, p)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	if processes == nil {
		processes = []group.Process{}
	}
	return processes, nil
}

func (r *ProcessesRepo) Create(ctx context.Context, name, description string) (group.Process, error) {
	var p group.Process
	var err error

	err = r.observe("processes.create", func() error {
		p, err = scanProcess(r.pool.QueryRow(
			ctx,
			`INSERT INTO processes (name, description)
			 VALUES ($1, $2)
			 RETURNING id, name, description, created_at, updated_at`,
			name, description,
		))
		return err
	})

	if err != nil {
		return group.Process{}, err
	}
	return p, nil
}
