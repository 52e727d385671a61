package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/storefront/internal/api/dto"
	"github.com/spec-kit/storefront/internal/auth"
	"github.com/spec-kit/storefront/internal/domain"
	"github.com/spec-kit/storefront/internal/remote"
	"github.com/spec-kit/storefront/internal/session"
	apperrors "github.com/spec-kit/storefront/pkg/util/errorutil"
)

// SessionService is the part of the session manager exposed over HTTP.
type SessionService interface {
	State(d domain.Domain) domain.SessionState
	IsReady(d domain.Domain) bool
	Subscribe(d domain.Domain, listener func(domain.SessionState)) (unsubscribe func())
	Login(ctx context.Context, d domain.Domain, creds remote.Credentials) (domain.SessionState, error)
	Logout(ctx context.Context, d domain.Domain)
	RefreshRoleFlags(ctx context.Context) (domain.SessionState, error)
}

// SessionHandler exposes session snapshots and the login/logout actions.
type SessionHandler struct {
	sessions  SessionService
	routes    domain.Routes
	logger    *zap.Logger
	heartbeat time.Duration
}

// NewSessionHandler constructs handler.
func NewSessionHandler(sessions SessionService, routes domain.Routes, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{sessions: sessions, routes: routes, logger: logger, heartbeat: 15 * time.Second}
}

// Get handles GET /api/session/:domain.
func (h *SessionHandler) Get(c *fiber.Ctx) error {
	d, err := domainParam(c)
	if err != nil {
		return err
	}
	return c.JSON(dto.Envelope[dto.SessionResponse]{Data: h.snapshot(d, h.sessions.State(d))})
}

// Stream handles GET /api/session/:domain/events as server-sent events.
// The current snapshot is sent first, then one event per published transition.
func (h *SessionHandler) Stream(c *fiber.Ctx) error {
	d, err := domainParam(c)
	if err != nil {
		return err
	}

	updates := make(chan domain.SessionState, 16)
	unsubscribe := h.sessions.Subscribe(d, func(s domain.SessionState) {
		select {
		case updates <- s:
		default:
			h.logger.Warn("dropping session update for slow stream", zap.String("domain", string(d)))
		}
	})
	initial := h.sessions.State(d)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()

		if err := h.writeEvent(w, d, initial); err != nil {
			return
		}
		ticker := time.NewTicker(h.heartbeat)
		defer ticker.Stop()

		for {
			select {
			case s := <-updates:
				if err := h.writeEvent(w, d, s); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})
	return nil
}

func (h *SessionHandler) writeEvent(w *bufio.Writer, d domain.Domain, s domain.SessionState) error {
	payload, err := json.Marshal(h.snapshot(d, s))
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: session\ndata: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

// Login handles POST /api/:domain/login. Form posts are answered with a redirect.
func (h *SessionHandler) Login(c *fiber.Ctx) error {
	d, err := domainParam(c)
	if err != nil {
		return err
	}

	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	st, err := h.sessions.Login(c.UserContext(), d, remote.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		return loginError(err)
	}

	if isFormPost(c) {
		target := h.routes.Landing(d)
		if d == domain.DomainUser && auth.ResolveRole(st) == domain.RoleVendor {
			target = h.routes.RoleSelect
		}
		return c.Redirect(target, http.StatusSeeOther)
	}
	return c.JSON(dto.Envelope[dto.SessionResponse]{Data: h.snapshot(d, st)})
}

// Logout handles POST /api/:domain/logout. It always succeeds.
func (h *SessionHandler) Logout(c *fiber.Ctx) error {
	d, err := domainParam(c)
	if err != nil {
		return err
	}

	h.sessions.Logout(c.UserContext(), d)

	if isFormPost(c) {
		return c.Redirect(h.routes.Login(d), http.StatusSeeOther)
	}
	return c.JSON(dto.Envelope[dto.SessionResponse]{Data: h.snapshot(d, h.sessions.State(d))})
}

// RefreshRoles handles POST /api/user/roles/refresh.
func (h *SessionHandler) RefreshRoles(c *fiber.Ctx) error {
	st, err := h.sessions.RefreshRoleFlags(c.UserContext())
	if err != nil {
		if errors.Is(err, session.ErrNotAuthenticated) {
			return apperrors.NewUnauthorized("not signed in")
		}
		return apperrors.NewUpstreamError(err)
	}
	return c.JSON(dto.Envelope[dto.SessionResponse]{Data: h.snapshot(domain.DomainUser, st)})
}

func (h *SessionHandler) snapshot(d domain.Domain, s domain.SessionState) dto.SessionResponse {
	resp := dto.SessionResponse{
		Domain:          d,
		Ready:           h.sessions.IsReady(d),
		IsAuthenticated: s.IsAuthenticated,
		SubjectID:       s.SubjectID,
		AccountStatus:   s.AccountStatus,
		IsVendor:        s.IsVendor,
	}
	if d == domain.DomainUser {
		resp.Role = auth.ResolveRole(s)
	}
	return resp
}

func domainParam(c *fiber.Ctx) (domain.Domain, error) {
	d, ok := domain.ParseDomain(c.Params("domain"))
	if !ok {
		return "", apperrors.NewNotFound("domain", map[string]any{"domain": c.Params("domain")})
	}
	return d, nil
}

func loginError(err error) error {
	var apiErr *remote.APIError
	switch {
	case errors.Is(err, session.ErrAccountBlocked):
		return apperrors.NewAccountBlocked()
	case errors.Is(err, remote.ErrUnauthorized):
		return apperrors.NewUnauthorized("invalid credentials")
	case errors.Is(err, session.ErrUnknownDomain):
		return apperrors.NewNotFound("domain", nil)
	case errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError:
		return apperrors.NewValidationError(apiErr.Message, map[string]any{"code": apiErr.Code})
	}
	return apperrors.NewUpstreamError(err)
}

func isFormPost(c *fiber.Ctx) bool {
	ct := string(c.Request().Header.ContentType())
	return strings.HasPrefix(ct, fiber.MIMEApplicationForm) || strings.HasPrefix(ct, fiber.MIMEMultipartForm)
}
