package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/usershub/internal/domain/user"
	"github.com/geocoder89/usershub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type UserService interface {
	List(ctx context.Context) ([]user.PublicUser, error)
	GetByID(ctx context.Context, id int64) (user.PublicUser, error)
	Create(ctx context.Context, req user.CreateUserRequest) (user.PublicUser, error)
	Update(ctx context.Context, id int64, changes user.Changes) (user.PublicUser, error)
	Delete(ctx context.Context, id int64) (user.PublicUser, error)
}

const storeTimeout = 3 * time.Second

type UsersHandler struct {
	users UserService
	log   *slog.Logger
}

func NewUsersHandler(users UserService, log *slog.Logger) *UsersHandler {
	if log == nil {
		log = slog.Default()
	}
	return &UsersHandler{users: users, log: log}
}

// internal logs err and answers with a bare 500.
func (h *UsersHandler) internal(ctx *gin.Context, msg string, err error) {
	h.log.ErrorContext(ctx.Request.Context(), msg, "err", err)
	RespondInternal(ctx)
}

func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	users, err := h.users.List(cctx)
	if err != nil {
		h.internal(ctx, "list users failed", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Successfully retrieved users",
		"users":   users,
		"count":   len(users),
	})
}

func (h *UsersHandler) GetUserByID(ctx *gin.Context) {
	id, ok := BindUserID(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	u, err := h.users.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		h.internal(ctx, "get user failed", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User retrieved successfully",
		"user":    u,
	})
}

func (h *UsersHandler) CreateUser(ctx *gin.Context) {
	var req user.CreateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	u, err := h.users.Create(cctx, req)
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondConflict(ctx, "Email already exists")
			return
		}
		h.internal(ctx, "create user failed", err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"user":    u,
	})
}

// UpdateUser lets callers edit their own profile; admins may edit anyone and change roles.
func (h *UsersHandler) UpdateUser(ctx *gin.Context) {
	id, ok := BindUserID(ctx)
	if !ok {
		return
	}

	var req user.UpdateUserRequest
	if !BindJSON(ctx, &req) {
		return
	}

	caller, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "You must be logged in to update user information")
		return
	}

	if !caller.IsAdmin() && caller.ID != id {
		RespondForbidden(ctx, "Access denied", "You can only update your own information")
		return
	}

	if req.Role != nil && !caller.IsAdmin() {
		RespondForbidden(ctx, "Access denied", "Only administrators can change user roles")
		return
	}

	changes := req.Changes()
	if !caller.IsAdmin() {
		changes.Role = nil
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	u, err := h.users.Update(cctx, id, changes)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "User not found")
		case errors.Is(err, user.ErrEmailTaken):
			RespondConflict(ctx, "Email already exists")
		default:
			h.internal(ctx, "update user failed", err)
		}
		return
	}

	h.log.InfoContext(ctx.Request.Context(), "user updated", "user_id", u.ID, "by", caller.ID)

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User updated successfully",
		"user":    u,
	})
}

// DeleteUser is admin only, and an admin cannot delete their own account.
func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	id, ok := BindUserID(ctx)
	if !ok {
		return
	}

	caller, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "You must be logged in to delete users")
		return
	}

	if !caller.IsAdmin() {
		RespondForbidden(ctx, "Access denied", "Only administrators can delete users")
		return
	}

	if caller.ID == id {
		RespondForbidden(ctx, "Operation denied", "You cannot delete your own account")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	u, err := h.users.Delete(cctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		h.internal(ctx, "delete user failed", err)
		return
	}

	h.log.InfoContext(ctx.Request.Context(), "user deleted", "user_id", u.ID, "by", caller.ID)

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User deleted successfully",
		"user":    u,
	})
}
