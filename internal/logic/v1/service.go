package v1

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/user-management/internal/core/domain"
	"github.com/duynhne/user-management/middleware"
)

// UserService holds the business rules for user management on top of a repository
type UserService struct {
	repo domain.UserRepository
}

// NewUserService creates a new user service
func NewUserService(repo domain.UserRepository) *UserService {
	return &UserService{repo: repo}
}

// ListUsers returns every stored user
func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	ctx, span := middleware.StartSpan(ctx, "user.list", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	users, err := s.repo.List(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list users: %w", err)
	}

	span.SetAttributes(attribute.Int("user.count", len(users)))
	return users, nil
}

// GetUser retrieves a user by ID
func (s *UserService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	ctx, span := middleware.StartSpan(ctx, "user.get", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.Int64("user.id", id),
	))
	defer span.End()

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			span.SetAttributes(attribute.Bool("user.found", false))
		} else {
			span.RecordError(err)
		}
		return nil, fmt.Errorf("get user by id %d: %w", id, err)
	}

	span.SetAttributes(attribute.Bool("user.found", true))
	return user, nil
}

// CreateUser stores a new user. Empty optional fields are stored as null.
func (s *UserService) CreateUser(ctx context.Context, in domain.UserInput) (*domain.User, error) {
	ctx, span := middleware.StartSpan(ctx, "user.create", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("email", in.Email),
	))
	defer span.End()

	user, err := s.repo.Create(ctx, in.Normalize())
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("user.created", false))
		return nil, fmt.Errorf("create user %q: %w", in.Email, err)
	}

	span.SetAttributes(
		attribute.Int64("user.id", user.ID),
		attribute.Bool("user.created", true),
	)
	span.AddEvent("user.created")
	return user, nil
}

// UpdateUser replaces every mutable field of the user. Optional fields that
// are omitted reset to null.
func (s *UserService) UpdateUser(ctx context.Context, id int64, in domain.UserInput) (*domain.User, error) {
	ctx, span := middleware.StartSpan(ctx, "user.update", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.Int64("user.id", id),
	))
	defer span.End()

	user, err := s.repo.Update(ctx, id, in.Normalize())
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			span.RecordError(err)
		}
		span.SetAttributes(attribute.Bool("user.updated", false))
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}

	span.SetAttributes(attribute.Bool("user.updated", true))
	return user, nil
}

// DeleteUser removes the user. A missing row is reported as domain.ErrUserNotFound.
func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	ctx, span := middleware.StartSpan(ctx, "user.delete", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.Int64("user.id", id),
	))
	defer span.End()

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	if !deleted {
		span.SetAttributes(attribute.Bool("user.deleted", false))
		return fmt.Errorf("delete user %d: %w", id, domain.ErrUserNotFound)
	}

	span.SetAttributes(attribute.Bool("user.deleted", true))
	return nil
}
