package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/chatelio/internal/models"
	"github.com/lalith-99/chatelio/internal/repository"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func insertUser(ctx context.Context, q querier, companyID uuid.UUID, email, name, passwordHash string) (*models.User, error) {
	query := `
		INSERT INTO users (company_id, email, name, password_hash, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, company_id, email, name, password_hash, created_at`

	var u models.User
	err := q.QueryRow(ctx, query, companyID, email, name, passwordHash).Scan(
		&u.ID,
		&u.CompanyID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&u.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &u, nil
}

func (s *UserStore) Create(ctx context.Context, companyID uuid.UUID, email, name, passwordHash string) (*models.User, error) {
	return insertUser(ctx, s.pool, companyID, email, name, passwordHash)
}

func (s *UserStore) GetByID(ctx context.Context, companyID, userID uuid.UUID) (*models.User, error) {
	query := `
		SELECT id, company_id, email, name, password_hash, created_at
		FROM users
		WHERE id = $1 AND company_id = $2`

	var u models.User
	err := s.pool.QueryRow(ctx, query, userID, companyID).Scan(
		&u.ID,
		&u.CompanyID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// GetByEmail is scoped to one company: the same email may exist in many.
func (s *UserStore) GetByEmail(ctx context.Context, companyID uuid.UUID, email string) (*models.User, error) {
	query := `
		SELECT id, company_id, email, name, password_hash, created_at
		FROM users
		WHERE company_id = $1 AND lower(email) = lower($2)`

	var u models.User
	err := s.pool.QueryRow(ctx, query, companyID, email).Scan(
		&u.ID,
		&u.CompanyID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

var _ repository.UserRepository = (*UserStore)(nil)
