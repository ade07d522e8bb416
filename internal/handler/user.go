package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pdrinv/inventory-api/internal/auth"
	"github.com/pdrinv/inventory-api/internal/config"
	"github.com/pdrinv/inventory-api/internal/repository"
	"github.com/pdrinv/inventory-api/internal/utils"
)

// UserHandler covers account administration.  All routes except password
// change are admin-only; the role gate lives in the router.
type UserHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

func NewUserHandler(cfg config.Config, u *repository.UserRepo) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: u}
}

type createUserReq struct {
	Username string  `json:"username" validate:"required,min=3,max=64"`
	Password string  `json:"password" validate:"required,min=8"`
	Role     string  `json:"role" validate:"required"`
	FullName *string `json:"full_name"`
}

type updateUserReq struct {
	FullName *string `json:"full_name"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// Create registers a new account.  The role must be admin, viewer or
// compteur_<n>.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	req.Username = strings.TrimSpace(req.Username)
	if !auth.ValidRole(req.Role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash password failed"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.Create(ctx, req.Username, hash, req.Role, req.FullName)
	if err != nil {
		return repoError(c, err, "user not found")
	}
	return c.JSON(http.StatusCreated, u)
}

// List returns accounts, optionally filtered by exact role or activity.
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	activeOnly := false
	if b := queryBoolPtr(c, "active_only"); b != nil {
		activeOnly = *b
	}
	users, err := h.Users.List(ctx, c.QueryParam("role"), activeOnly)
	if err != nil {
		return repoError(c, err, "user not found")
	}
	return c.JSON(http.StatusOK, users)
}

// Get returns one account.
func (h *UserHandler) Get(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return repoError(c, err, "user not found")
	}
	return c.JSON(http.StatusOK, u)
}

// Update modifies role, full name or activity.  Deactivating an account
// keeps its counts and history intact.
func (h *UserHandler) Update(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Role != nil && !auth.ValidRole(*req.Role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.Update(ctx, id, req.FullName, req.Role, req.IsActive)
	if err != nil {
		return repoError(c, err, "user not found")
	}
	return c.JSON(http.StatusOK, u)
}

// ChangePassword lets the caller rotate their own password after proving
// the current one.
func (h *UserHandler) ChangePassword(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, p.UserID)
	if err != nil {
		return repoError(c, err, "user not found")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.CurrentPassword) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	hash, err := utils.HashPassword(req.NewPassword, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash password failed"})
	}
	if err := h.Users.SetPassword(ctx, p.UserID, hash); err != nil {
		return repoError(c, err, "user not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// Delete removes an account that owns no counts.
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.Delete(ctx, id); err != nil {
		return repoError(c, err, "user not found")
	}
	return c.NoContent(http.StatusNoContent)
}
