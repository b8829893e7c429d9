package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/invest-access/internal/domain"
)

// ContractRepository manages platform contract state.
type ContractRepository interface {
	List(ctx context.Context) ([]domain.Contract, error)
	SetStatus(ctx context.Context, name string, status domain.ContractStatus) (*domain.Contract, error)
}

type contractRepository struct {
	pool *pgxpool.Pool
}

// NewContractRepository constructs repository.
func NewContractRepository(pool *pgxpool.Pool) ContractRepository {
	return &contractRepository{pool: pool}
}

func (r *contractRepository) List(ctx context.Context) ([]domain.Contract, error) {
	const query = `SELECT name, address, status, updated_at FROM contracts ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Contract
	for rows.Next() {
		var c domain.Contract
		if err := rows.Scan(&c.Name, &c.Address, &c.Status, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *contractRepository) SetStatus(ctx context.Context, name string, status domain.ContractStatus) (*domain.Contract, error) {
	const query = `
        UPDATE contracts SET status=$1, updated_at=NOW()
        WHERE name=$2
        RETURNING name, address, status, updated_at`
	var c domain.Contract
	if err := r.pool.QueryRow(ctx, query, status, name).Scan(&c.Name, &c.Address, &c.Status, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
