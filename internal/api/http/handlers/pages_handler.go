package handlers

import (
	"fmt"
	"html"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/storefront/internal/api/dto"
	"github.com/spec-kit/storefront/internal/auth"
	"github.com/spec-kit/storefront/internal/domain"
)

// PagesHandler serves placeholder pages behind the route guards.
type PagesHandler struct {
	routes domain.Routes
}

// NewPagesHandler constructs handler.
func NewPagesHandler(routes domain.Routes) *PagesHandler {
	return &PagesHandler{routes: routes}
}

// AdminLogin renders the admin sign-in form.
func (h *PagesHandler) AdminLogin(c *fiber.Ctx) error {
	return page(c, "Admin sign in", loginForm("/api/admin/login"))
}

// AdminDashboard renders the admin landing and any admin subtree page.
func (h *PagesHandler) AdminDashboard(c *fiber.Ctx) error {
	return page(c, "Admin", signedIn(c)+logoutForm("/api/admin/logout"))
}

// UserLogin renders the customer sign-in form.
func (h *PagesHandler) UserLogin(c *fiber.Ctx) error {
	return page(c, "Sign in", loginForm("/api/user/login"))
}

// Register renders the sign-up placeholder.
func (h *PagesHandler) Register(c *fiber.Ctx) error {
	return page(c, "Create account", `<p>Registration happens on the storefront API.</p>`)
}

// Home renders the public storefront landing.
func (h *PagesHandler) Home(c *fiber.Ctx) error {
	return page(c, "Storefront", `<p>Welcome.</p>`)
}

// Customer renders pages of the user-only subtree.
func (h *PagesHandler) Customer(c *fiber.Ctx) error {
	return page(c, c.Path(), signedIn(c)+logoutForm("/api/user/logout"))
}

// Vendor renders pages of the vendor subtree.
func (h *PagesHandler) Vendor(c *fiber.Ctx) error {
	return page(c, "Vendor", signedIn(c)+logoutForm("/api/user/logout"))
}

// RoleSelect renders the user/vendor choice.
func (h *PagesHandler) RoleSelect(c *fiber.Ctx) error {
	body := fmt.Sprintf(`<form method="post" action="%s">
<button name="role" value="%s">Shop</button>
<button name="role" value="%s">Manage my store</button>
</form>`, html.EscapeString(h.routes.RoleSelect), domain.RoleUser, domain.RoleVendor)
	return page(c, "Continue as", body)
}

// SelectRole handles POST on the role-select route and redirects to the chosen home.
func (h *PagesHandler) SelectRole(c *fiber.Ctx) error {
	var req dto.RoleSelectRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	role, ok := domain.ParseRole(req.Role)
	if !ok {
		return fiber.NewError(http.StatusBadRequest, "role must be user or vendor")
	}
	return c.Redirect(h.routes.Home(role), http.StatusSeeOther)
}

func page(c *fiber.Ctx, title, body string) error {
	c.Type("html")
	return c.SendString(fmt.Sprintf("<!doctype html><title>%[1]s</title><h1>%[1]s</h1>%s", html.EscapeString(title), body))
}

func signedIn(c *fiber.Ctx) string {
	st, ok := auth.SessionFromContext(c)
	if !ok || !st.IsAuthenticated {
		return ""
	}
	return fmt.Sprintf(`<p>Signed in as %s.</p>`, html.EscapeString(st.SubjectID))
}

func loginForm(action string) string {
	return fmt.Sprintf(`<form method="post" action="%s">
<input name="email" type="email"><input name="password" type="password">
<button>Sign in</button>
</form>`, action)
}

func logoutForm(action string) string {
	return fmt.Sprintf(`<form method="post" action="%s"><button>Sign out</button></form>`, action)
}
