package profile

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &PostgresStore{pool: pool}
}

// Get retrieves a single profile by the owning identity's ID.
func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Profile, error) {
	query := `
		SELECT id, email, display_name, role, approved, created_at
		FROM profiles
		WHERE id = $1`

	var p Profile
	var role string
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Email, &p.DisplayName, &role, &p.Approved, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, &StoreError{Op: "get", Err: err}
	}
	p.Role = Role(role)

	return &p, nil
}

// Set writes the whole profile, creating it if it does not exist. The
// creation time of an existing profile is never changed.
func (s *PostgresStore) Set(ctx context.Context, p *Profile) error {
	query := `
		INSERT INTO profiles (id, email, display_name, role, approved, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email,
		    display_name = EXCLUDED.display_name,
		    role = EXCLUDED.role,
		    approved = EXCLUDED.approved
		RETURNING created_at`

	var createdAt any
	if !p.CreatedAt.IsZero() {
		createdAt = p.CreatedAt
	}

	err := s.pool.QueryRow(ctx, query,
		p.ID,
		p.Email,
		p.DisplayName,
		string(p.Role),
		p.Approved,
		createdAt,
	).Scan(&p.CreatedAt)
	if err != nil {
		return &StoreError{Op: "set", Err: err}
	}

	return nil
}

// Update applies the non-nil fields of u. Returns ErrProfileNotFound if the
// profile does not exist.
func (s *PostgresStore) Update(ctx context.Context, id uuid.UUID, u Update) error {
	query := `
		UPDATE profiles
		SET approved = COALESCE($2, approved),
		    role = COALESCE($3, role)
		WHERE id = $1`

	var role *string
	if u.Role != nil {
		r := string(*u.Role)
		role = &r
	}

	result, err := s.pool.Exec(ctx, query, id, u.Approved, role)
	if err != nil {
		return &StoreError{Op: "update", Err: err}
	}

	if result.RowsAffected() == 0 {
		return ErrProfileNotFound
	}

	return nil
}

// Delete removes a profile. Returns ErrProfileNotFound if it does not exist.
func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return &StoreError{Op: "delete", Err: err}
	}

	if result.RowsAffected() == 0 {
		return ErrProfileNotFound
	}

	return nil
}

// List retrieves all profiles ordered by creation time.
func (s *PostgresStore) List(ctx context.Context) ([]Profile, error) {
	query := `
		SELECT id, email, display_name, role, approved, created_at
		FROM profiles
		ORDER BY created_at ASC, id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		var p Profile
		var role string
		if err := rows.Scan(&p.ID, &p.Email, &p.DisplayName, &role, &p.Approved, &p.CreatedAt); err != nil {
			return nil, &StoreError{Op: "list", Err: err}
		}
		p.Role = Role(role)
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}

	if profiles == nil {
		profiles = []Profile{}
	}

	return profiles, nil
}

// CountAdmins returns the number of admin profiles.
func (s *PostgresStore) CountAdmins(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles WHERE role = $1`, string(RoleAdmin)).Scan(&count)
	if err != nil {
		return 0, &StoreError{Op: "count admins", Err: err}
	}
	return count, nil
}
