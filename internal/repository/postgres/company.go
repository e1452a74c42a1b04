package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/chatelio/internal/models"
	"github.com/lalith-99/chatelio/internal/repository"
)

const companyColumns = `id, name, email, password_hash, slug, is_published, published_at,
	chatbot_title, chatbot_description, plan, status, created_at`

type CompanyStore struct {
	pool *pgxpool.Pool
}

func NewCompanyStore(pool *pgxpool.Pool) *CompanyStore {
	return &CompanyStore{pool: pool}
}

// isUniqueViolation reports a Postgres 23505 error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func scanCompany(row pgx.Row) (*models.Company, error) {
	var c models.Company
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Email,
		&c.PasswordHash,
		&c.Slug,
		&c.IsPublished,
		&c.PublishedAt,
		&c.ChatbotTitle,
		&c.ChatbotDescription,
		&c.Plan,
		&c.Status,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CompanyStore) Create(ctx context.Context, name, email, passwordHash string) (*models.Company, error) {
	query := `
		INSERT INTO companies (name, email, password_hash, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING ` + companyColumns

	c, err := scanCompany(s.pool.QueryRow(ctx, query, name, email, passwordHash))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, fmt.Errorf("insert company: %w", err)
	}
	return c, nil
}

func (s *CompanyStore) get(ctx context.Context, where string, arg any) (*models.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE ` + where

	c, err := scanCompany(s.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get company: %w", err)
	}
	return c, nil
}

func (s *CompanyStore) GetByID(ctx context.Context, companyID uuid.UUID) (*models.Company, error) {
	return s.get(ctx, "id = $1", companyID)
}

func (s *CompanyStore) GetByEmail(ctx context.Context, email string) (*models.Company, error) {
	return s.get(ctx, "lower(email) = lower($1)", email)
}

func (s *CompanyStore) GetBySlug(ctx context.Context, slug string) (*models.Company, error) {
	return s.get(ctx, "slug = $1", slug)
}

func (s *CompanyStore) UpdateChatbot(ctx context.Context, companyID uuid.UUID, slug *string, title, description string) (*models.Company, error) {
	query := `
		UPDATE companies
		SET slug = COALESCE($2, slug), chatbot_title = $3, chatbot_description = $4
		WHERE id = $1
		RETURNING ` + companyColumns

	c, err := scanCompany(s.pool.QueryRow(ctx, query, companyID, slug, title, description))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, fmt.Errorf("update company chatbot: %w", err)
	}
	return c, nil
}

func (s *CompanyStore) SetPublished(ctx context.Context, companyID uuid.UUID, published bool, at time.Time) (*models.Company, error) {
	query := `
		UPDATE companies
		SET is_published = $2,
		    published_at = CASE WHEN $2 THEN $3::timestamptz ELSE NULL END
		WHERE id = $1
		RETURNING ` + companyColumns

	c, err := scanCompany(s.pool.QueryRow(ctx, query, companyID, published, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("set company published: %w", err)
	}
	return c, nil
}

var _ repository.CompanyRepository = (*CompanyStore)(nil)
