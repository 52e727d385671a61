// Package remote talks to the storefront API that owns accounts and tokens.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spec-kit/storefront/internal/api/dto"
	"github.com/spec-kit/storefront/internal/domain"
)

// ErrUnauthorized is returned when the API rejects credentials or a token.
var ErrUnauthorized = errors.New("remote: unauthorized")

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Credentials are what a visitor types into a login form.
type Credentials struct {
	Email    string
	Password string
}

// LoginResult is the outcome of a successful login call.
type LoginResult struct {
	SubjectID string
	Token     string
	RoleHint  domain.Role
	Status    domain.AccountStatus
}

// RoleFlags are the role bits of a user account.
type RoleFlags struct {
	IsVendor bool
}

// API is the remote collaborator consumed by the session core.
type API interface {
	Login(ctx context.Context, d domain.Domain, creds Credentials) (LoginResult, error)
	Logout(ctx context.Context, d domain.Domain, token string) error
	FetchAccountStatus(ctx context.Context, subjectID, token string) (domain.AccountStatus, error)
	FetchRoleFlags(ctx context.Context, subjectID, token string) (RoleFlags, error)
}

// Client is the JSON-over-HTTP implementation of API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

var _ API = (*Client)(nil)

// NewClient creates a client with a bounded per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

func domainPath(d domain.Domain) string {
	if d == domain.DomainAdmin {
		return "admin"
	}
	return "users"
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, d domain.Domain, creds Credentials) (LoginResult, error) {
	var out dto.Envelope[dto.LoginResponse]
	body := dto.LoginRequest{Email: creds.Email, Password: creds.Password}
	if err := c.do(ctx, http.MethodPost, "/auth/"+domainPath(d)+"/login", "", body, &out); err != nil {
		return LoginResult{}, err
	}
	if out.Data.Token == "" || out.Data.SubjectID == "" {
		return LoginResult{}, fmt.Errorf("remote: login response missing token or subject")
	}

	res := LoginResult{
		SubjectID: out.Data.SubjectID,
		Token:     out.Data.Token,
		RoleHint:  domain.RoleUser,
		Status:    domain.ParseAccountStatus(out.Data.Status),
	}
	if role, ok := domain.ParseRole(out.Data.RoleHint); ok {
		res.RoleHint = role
	}
	return res, nil
}

// Logout invalidates token server-side.
func (c *Client) Logout(ctx context.Context, d domain.Domain, token string) error {
	return c.do(ctx, http.MethodPost, "/auth/"+domainPath(d)+"/logout", token, nil, nil)
}

// FetchAccountStatus reads whether the account is active or blocked.
func (c *Client) FetchAccountStatus(ctx context.Context, subjectID, token string) (domain.AccountStatus, error) {
	var out dto.Envelope[dto.AccountStatusResponse]
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(subjectID)+"/status", token, nil, &out); err != nil {
		return domain.AccountStatusUnknown, err
	}
	return domain.ParseAccountStatus(out.Data.Status), nil
}

// FetchRoleFlags reads the vendor flag of the account.
func (c *Client) FetchRoleFlags(ctx context.Context, subjectID, token string) (RoleFlags, error) {
	var out dto.Envelope[dto.RoleFlagsResponse]
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(subjectID)+"/roles", token, nil, &out); err != nil {
		return RoleFlags{}, err
	}
	return RoleFlags{IsVendor: out.Data.IsVendor}, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Code: "UNKNOWN", Message: http.StatusText(resp.StatusCode)}
		var eb dto.ErrorBody
		if json.Unmarshal(raw, &eb) == nil && eb.Error.Code != "" {
			apiErr.Code = eb.Error.Code
			apiErr.Message = eb.Error.Message
		}
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
