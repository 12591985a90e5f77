package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrProfileNotFound is returned when a profile record is not found.
var ErrProfileNotFound = errors.New("profile not found")

// StoreError wraps a profile read or write failure other than not-found.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("profile store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Getter fetches a single profile. It is the only part of the store the
// session manager needs.
type Getter interface {
	Get(ctx context.Context, id uuid.UUID) (*Profile, error)
}

// Store provides operations on the profiles collection.
type Store interface {
	Getter
	Set(ctx context.Context, p *Profile) error
	Update(ctx context.Context, id uuid.UUID, u Update) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]Profile, error)
	CountAdmins(ctx context.Context) (int, error)
}
