package psql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/duynhne/user-management/internal/core/domain"
)

// Connector hands out scoped connections from a bounded pool.
// *sql.DB satisfies it; Conn blocks while every connection is checked out.
type Connector interface {
	Conn(ctx context.Context) (*sql.Conn, error)
}

// DBTX is the query surface shared by *sql.Conn, *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const userColumns = `id, first_name, last_name, email, phone, company, role, country`

// UserRepository implements domain.UserRepository using PostgreSQL
type UserRepository struct {
	db Connector
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db Connector) *UserRepository {
	return &UserRepository{db: db}
}

var _ domain.UserRepository = (*UserRepository)(nil)

// withConn acquires a connection for the duration of fn and always returns it to the pool.
func (r *UserRepository) withConn(ctx context.Context, fn func(conn DBTX) error) error {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	return fn(conn)
}

// List retrieves all users
func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	users := make([]domain.User, 0)

	err := r.withConn(ctx, func(conn DBTX) error {
		rows, err := conn.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
		if err != nil {
			return fmt.Errorf("query users: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var u domain.User
			if err := scanUser(rows, &u); err != nil {
				return fmt.Errorf("scan user: %w", err)
			}
			users = append(users, u)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate users: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return users, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User

	err := r.withConn(ctx, func(conn DBTX) error {
		row := conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
		return scanUser(row, &u)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("query user %d: %w", id, err)
	}

	return &u, nil
}

// Create inserts a new user and returns it with the generated id
func (r *UserRepository) Create(ctx context.Context, in domain.UserInput) (*domain.User, error) {
	var id int64

	err := r.withConn(ctx, func(conn DBTX) error {
		query := `INSERT INTO users (first_name, last_name, email, phone, company, role, country)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`
		return conn.QueryRowContext(ctx, query,
			in.FirstName, in.LastName, in.Email, in.Phone, in.Company, in.Role, in.Country,
		).Scan(&id)
	})
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return in.ToUser(id), nil
}

// Update overwrites every mutable column of the user.
// Returns domain.ErrUserNotFound if no row has the given id.
func (r *UserRepository) Update(ctx context.Context, id int64, in domain.UserInput) (*domain.User, error) {
	var u domain.User

	err := r.withConn(ctx, func(conn DBTX) error {
		query := `UPDATE users
			SET first_name = $1, last_name = $2, email = $3, phone = $4, company = $5, role = $6, country = $7
			WHERE id = $8
			RETURNING ` + userColumns
		row := conn.QueryRowContext(ctx, query,
			in.FirstName, in.LastName, in.Email, in.Phone, in.Company, in.Role, in.Country, id,
		)
		return scanUser(row, &u)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}

	return &u, nil
}

// Delete removes a user by ID
// Returns true if deleted, false if not found
func (r *UserRepository) Delete(ctx context.Context, id int64) (bool, error) {
	var affected int64

	err := r.withConn(ctx, func(conn DBTX) error {
		result, err := conn.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return false, fmt.Errorf("delete user %d: %w", id, err)
	}

	return affected > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner, u *domain.User) error {
	return s.Scan(
		&u.ID,
		&u.FirstName,
		&u.LastName,
		&u.Email,
		&u.Phone,
		&u.Company,
		&u.Role,
		&u.Country,
	)
}
