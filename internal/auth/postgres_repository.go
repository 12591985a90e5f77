package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements CredentialRepository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new CredentialRepository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) CredentialRepository {
	return &PostgresRepository{pool: pool}
}

// Create inserts a new credential. Returns ErrEmailTaken on a duplicate email.
func (r *PostgresRepository) Create(ctx context.Context, c *Credential) error {
	query := `
		INSERT INTO credentials (email, password_hash)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query, c.Email, c.PasswordHash).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrEmailTaken
		}
		return fmt.Errorf("inserting credential: %w", err)
	}

	return nil
}

// GetByEmail retrieves a single credential by its normalized email.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*Credential, error) {
	query := `
		SELECT id, email, password_hash, created_at
		FROM credentials
		WHERE email = $1`

	var c Credential
	err := r.pool.QueryRow(ctx, query, email).Scan(&c.ID, &c.Email, &c.PasswordHash, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("querying credential: %w", err)
	}
	return &c, nil
}

// Delete removes a credential by its UUID.
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM credentials WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrCredentialNotFound
	}

	return nil
}
