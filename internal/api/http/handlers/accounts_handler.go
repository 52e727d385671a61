package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/storefront/internal/api/dto"
	"github.com/spec-kit/storefront/internal/auth"
	"github.com/spec-kit/storefront/internal/domain"
	"github.com/spec-kit/storefront/internal/repository"
	"github.com/spec-kit/storefront/internal/service"
	apperrors "github.com/spec-kit/storefront/pkg/util/errorutil"
)

const claimsKey = "auth_claims"

// AccountsHandler exposes the development remote API.
type AccountsHandler struct {
	accounts *service.AccountService
}

// NewAccountsHandler constructs handler.
func NewAccountsHandler(accounts *service.AccountService) *AccountsHandler {
	return &AccountsHandler{accounts: accounts}
}

// RequireToken admits requests carrying a valid, not revoked bearer token.
func (h *AccountsHandler) RequireToken(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" || token == header {
		return apperrors.NewUnauthorized("missing bearer token")
	}
	claims, err := h.accounts.Authenticate(token)
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}
	c.Locals(claimsKey, claims)
	return c.Next()
}

// RequireAdmin admits admin-domain tokens. Must run after RequireToken.
func (h *AccountsHandler) RequireAdmin(c *fiber.Ctx) error {
	if claimsFrom(c).Domain != domain.DomainAdmin {
		return apperrors.NewForbidden("admin token required")
	}
	return c.Next()
}

// Login handles POST /auth/{admin|users}/login.
func (h *AccountsHandler) Login(c *fiber.Ctx) error {
	d, err := domainParam(c)
	if err != nil {
		return err
	}

	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "email and password required")
	}

	account, token, exp, err := h.accounts.Login(c.UserContext(), d, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return apperrors.NewUnauthorized(err.Error())
		}
		return err
	}

	return c.JSON(dto.Envelope[dto.LoginResponse]{Data: dto.LoginResponse{
		SubjectID: account.ID,
		Token:     token,
		ExpiresAt: exp,
		RoleHint:  string(account.Role()),
		Status:    string(account.Status),
	}})
}

// Logout handles POST /auth/{admin|users}/logout.
func (h *AccountsHandler) Logout(c *fiber.Ctx) error {
	d, err := domainParam(c)
	if err != nil {
		return err
	}
	claims := claimsFrom(c)
	if claims.Domain != d {
		return apperrors.NewForbidden("token belongs to another domain")
	}
	h.accounts.Logout(c.UserContext(), claims)
	return c.SendStatus(http.StatusNoContent)
}

// Status handles GET /users/:id/status.
func (h *AccountsHandler) Status(c *fiber.Ctx) error {
	id, err := h.ownAccount(c)
	if err != nil {
		return err
	}
	status, err := h.accounts.Status(c.UserContext(), id)
	if err != nil {
		return accountError(err)
	}
	return c.JSON(dto.Envelope[dto.AccountStatusResponse]{Data: dto.AccountStatusResponse{Status: string(status)}})
}

// Roles handles GET /users/:id/roles.
func (h *AccountsHandler) Roles(c *fiber.Ctx) error {
	id, err := h.ownAccount(c)
	if err != nil {
		return err
	}
	isVendor, err := h.accounts.IsVendor(c.UserContext(), id)
	if err != nil {
		return accountError(err)
	}
	return c.JSON(dto.Envelope[dto.RoleFlagsResponse]{Data: dto.RoleFlagsResponse{IsVendor: isVendor}})
}

// Block handles POST /users/:id/block.
func (h *AccountsHandler) Block(c *fiber.Ctx) error {
	account, err := h.accounts.Block(c.UserContext(), c.Params("id"))
	if err != nil {
		return accountError(err)
	}
	return c.JSON(dto.Envelope[dto.AccountStatusResponse]{Data: dto.AccountStatusResponse{Status: string(account.Status)}})
}

// SetVendor handles POST /users/:id/vendor.
func (h *AccountsHandler) SetVendor(c *fiber.Ctx) error {
	var req dto.VendorUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	account, err := h.accounts.SetVendor(c.UserContext(), c.Params("id"), req.IsVendor)
	if err != nil {
		return accountError(err)
	}
	return c.JSON(dto.Envelope[dto.RoleFlagsResponse]{Data: dto.RoleFlagsResponse{IsVendor: account.IsVendor}})
}

// ownAccount returns :id when the caller is that account or an admin.
func (h *AccountsHandler) ownAccount(c *fiber.Ctx) (string, error) {
	id := c.Params("id")
	claims := claimsFrom(c)
	if claims.Domain != domain.DomainAdmin && claims.Subject != id {
		return "", apperrors.NewForbidden("not your account")
	}
	return id, nil
}

func claimsFrom(c *fiber.Ctx) *auth.Claims {
	claims, ok := c.Locals(claimsKey).(*auth.Claims)
	if !ok {
		return &auth.Claims{}
	}
	return claims
}

func accountError(err error) error {
	if errors.Is(err, repository.ErrAccountNotFound) {
		return apperrors.NewNotFound("account", nil)
	}
	return apperrors.NewValidationError(err.Error(), nil)
}
