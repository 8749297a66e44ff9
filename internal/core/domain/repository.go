package domain

import "context"

// UserRepository defines the interface for user data access
type UserRepository interface {
	// List returns every user ordered by id; an empty table yields an empty slice.
	List(ctx context.Context) ([]User, error)
	// GetByID returns ErrUserNotFound when no row matches.
	GetByID(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, in UserInput) (*User, error)
	// Update overwrites all mutable fields and returns ErrUserNotFound when no row matches.
	Update(ctx context.Context, id int64, in UserInput) (*User, error)
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, id int64) (bool, error)
}
