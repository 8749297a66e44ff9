package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/duynhne/user-management/internal/core/domain"
	logicv1 "github.com/duynhne/user-management/internal/logic/v1"
	"github.com/duynhne/user-management/middleware"
)

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	service *logicv1.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(service *logicv1.UserService) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

func startRequestSpan(c *gin.Context) trace.Span {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	c.Request = c.Request.WithContext(ctx)
	return span
}

// ListUsers handles GET /api/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	span := startRequestSpan(c)
	defer span.End()
	logger := middleware.GetLoggerFromGinContext(c)

	users, err := h.service.ListUsers(c.Request.Context())
	if err != nil {
		middleware.RecordError(span, err)
		logger.Error("Failed to fetch users", zap.Error(err))
		respondFailure(c, "Failed to fetch users", err)
		return
	}

	total := len(users)
	c.JSON(http.StatusOK, Response{Success: true, Data: users, Total: &total})
}

// GetUser handles GET /api/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	span := startRequestSpan(c)
	defer span.End()
	logger := middleware.GetLoggerFromGinContext(c)

	id, err := parseUserID(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid user id")
		return
	}
	span.SetAttributes(attribute.Int64("user.id", id))

	user, err := h.service.GetUser(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "User not found")
			return
		}
		middleware.RecordError(span, err)
		logger.Error("Failed to fetch user", zap.Int64("user_id", id), zap.Error(err))
		respondFailure(c, "Failed to fetch user", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: user})
}

// CreateUser handles POST /api/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	span := startRequestSpan(c)
	defer span.End()
	logger := middleware.GetLoggerFromGinContext(c)

	in, msg, ok := bindUserInput(c)
	if !ok {
		span.SetAttributes(attribute.Bool("request.valid", false))
		logger.Info("Rejected create request", zap.String("reason", msg))
		respondError(c, http.StatusBadRequest, msg)
		return
	}
	span.SetAttributes(attribute.Bool("request.valid", true))

	user, err := h.service.CreateUser(c.Request.Context(), in)
	if err != nil {
		middleware.RecordError(span, err)
		logger.Error("Failed to create user", zap.Error(err))
		respondFailure(c, "Failed to create user", err)
		return
	}

	logger.Info("User created", zap.Int64("user_id", user.ID))
	c.JSON(http.StatusCreated, Response{Success: true, Data: user, Message: "User created successfully"})
}

// UpdateUser handles PUT /api/users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	span := startRequestSpan(c)
	defer span.End()
	logger := middleware.GetLoggerFromGinContext(c)

	id, err := parseUserID(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid user id")
		return
	}
	span.SetAttributes(attribute.Int64("user.id", id))

	in, msg, ok := bindUserInput(c)
	if !ok {
		span.SetAttributes(attribute.Bool("request.valid", false))
		logger.Info("Rejected update request", zap.Int64("user_id", id), zap.String("reason", msg))
		respondError(c, http.StatusBadRequest, msg)
		return
	}
	span.SetAttributes(attribute.Bool("request.valid", true))

	user, err := h.service.UpdateUser(c.Request.Context(), id, in)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "User not found")
			return
		}
		middleware.RecordError(span, err)
		logger.Error("Failed to update user", zap.Int64("user_id", id), zap.Error(err))
		respondFailure(c, "Failed to update user", err)
		return
	}

	logger.Info("User updated", zap.Int64("user_id", id))
	c.JSON(http.StatusOK, Response{Success: true, Data: user, Message: "User updated successfully"})
}

// DeleteUser handles DELETE /api/users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	span := startRequestSpan(c)
	defer span.End()
	logger := middleware.GetLoggerFromGinContext(c)

	id, err := parseUserID(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid user id")
		return
	}
	span.SetAttributes(attribute.Int64("user.id", id))

	if err := h.service.DeleteUser(c.Request.Context(), id); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "User not found")
			return
		}
		middleware.RecordError(span, err)
		logger.Error("Failed to delete user", zap.Int64("user_id", id), zap.Error(err))
		respondFailure(c, "Failed to delete user", err)
		return
	}

	logger.Info("User deleted", zap.Int64("user_id", id))
	c.JSON(http.StatusOK, Response{Success: true, Message: "User deleted successfully"})
}
