package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/invest-access/internal/domain"
)

// AccountFilter narrows List results. Zero fields match everything.
type AccountFilter struct {
	Roles     []domain.Role
	KYCStatus domain.KYCStatus
}

// AccountRepository defines persistence access for wallet accounts.
type AccountRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByAddress(ctx context.Context, address string) (*domain.User, error)
	List(ctx context.Context, filter AccountFilter) ([]domain.User, error)
	UpdateRole(ctx context.Context, address string, role domain.Role) (*domain.User, error)
	UpdateKYC(ctx context.Context, address string, status domain.KYCStatus) (*domain.User, error)
}

type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

const accountColumns = `id, address, role, name, email, bio, avatar, kyc_status, permissions, status, created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.User, error) {
	var (
		user        domain.User
		permissions []string
	)
	if err := row.Scan(
		&user.ID,
		&user.Address,
		&user.Role,
		&user.Profile.Name,
		&user.Profile.Email,
		&user.Profile.Bio,
		&user.Profile.Avatar,
		&user.KYCStatus,
		&permissions,
		&user.Status,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	user.Permissions = domain.ParseCapabilities(permissions)
	return &user, nil
}

func (r *accountRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO accounts (address, role, name, email, bio, avatar, kyc_status, permissions, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id, created_at, updated_at`

	permissions := make([]string, 0, len(user.Permissions))
	for _, c := range user.Permissions {
		permissions = append(permissions, string(c))
	}
	if user.KYCStatus == "" {
		user.KYCStatus = domain.KYCNone
	}
	if user.Status == "" {
		user.Status = domain.UserStatusActive
	}

	return r.pool.QueryRow(ctx, query,
		user.Address,
		user.Role,
		user.Profile.Name,
		user.Profile.Email,
		user.Profile.Bio,
		user.Profile.Avatar,
		user.KYCStatus,
		permissions,
		user.Status,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id=$1`
	return scanAccount(r.pool.QueryRow(ctx, query, id))
}

func (r *accountRepository) GetByAddress(ctx context.Context, address string) (*domain.User, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE address=$1`
	return scanAccount(r.pool.QueryRow(ctx, query, address))
}

func (r *accountRepository) List(ctx context.Context, filter AccountFilter) ([]domain.User, error) {
	var (
		clauses []string
		args    []any
	)
	if len(filter.Roles) > 0 {
		roles := make([]string, 0, len(filter.Roles))
		for _, role := range filter.Roles {
			roles = append(roles, string(role))
		}
		args = append(args, roles)
		clauses = append(clauses, fmt.Sprintf("role = ANY($%d)", len(args)))
	}
	if filter.KYCStatus != "" {
		args = append(args, filter.KYCStatus)
		clauses = append(clauses, fmt.Sprintf("kyc_status = $%d", len(args)))
	}

	query := `SELECT ` + accountColumns + ` FROM accounts`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		user, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *user)
	}
	return out, rows.Err()
}

func (r *accountRepository) UpdateRole(ctx context.Context, address string, role domain.Role) (*domain.User, error) {
	query := `
        UPDATE accounts SET role=$1, updated_at=NOW()
        WHERE address=$2
        RETURNING ` + accountColumns
	return scanAccount(r.pool.QueryRow(ctx, query, role, address))
}

func (r *accountRepository) UpdateKYC(ctx context.Context, address string, status domain.KYCStatus) (*domain.User, error) {
	query := `
        UPDATE accounts SET kyc_status=$1, updated_at=NOW()
        WHERE address=$2
        RETURNING ` + accountColumns
	return scanAccount(r.pool.QueryRow(ctx, query, status, address))
}
