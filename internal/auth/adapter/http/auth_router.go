package http

import (
	"errors"
	"time"

	"photoshoot-studio/internal/auth/config"
	"photoshoot-studio/internal/auth/domain/model"
	"photoshoot-studio/internal/auth/usecase"
	apperrors "photoshoot-studio/internal/shared/errors"

	"github.com/gofiber/fiber/v2"
)

// AuthHTTPHandler handles HTTP requests for authentication
type AuthHTTPHandler struct {
	usecase           usecase.AuthUsecaseInterface
	cookieName        string
	cookiePath        string
	cookieDomain      string
	cookieMaxAge      int
	cookieSecure      bool
	cookieHTTPOnly    bool
	cookieSameSite    string
	postLoginRedirect string
	tokens            *AuthMiddleware
}

// NewAuthHTTPHandler creates a new authentication HTTP handler
func NewAuthHTTPHandler(uc usecase.AuthUsecaseInterface, cfg *config.Config) *AuthHTTPHandler {
	return &AuthHTTPHandler{
		usecase:           uc,
		cookieName:        cfg.CookieName,
		cookiePath:        cfg.CookiePath,
		cookieDomain:      cfg.CookieDomain,
		cookieMaxAge:      int(cfg.AccessTokenTTL.Seconds()),
		cookieSecure:      cfg.CookieSecure,
		cookieHTTPOnly:    cfg.CookieHTTPOnly,
		cookieSameSite:    cfg.CookieSameSite,
		postLoginRedirect: cfg.PostLoginRedirect,
		tokens:            NewAuthMiddleware(uc, cfg.CookieName),
	}
}

// SetupAuthRoutesWithMiddleware registers /auth and /api/profile.
func (h *AuthHTTPHandler) SetupAuthRoutesWithMiddleware(app fiber.Router, middleware *AuthMiddleware, limiter fiber.Handler) {
	auth := app.Group("/auth")
	if limiter != nil {
		auth.Post("/signup", limiter, h.SignUp)
		auth.Post("/login", limiter, h.Login)
	} else {
		auth.Post("/signup", h.SignUp)
		auth.Post("/login", h.Login)
	}
	auth.Post("/logout", h.Logout)
	auth.Post("/refresh", h.Refresh)
	auth.Get("/session", h.Session)

	// callback must be registered before the :provider wildcard
	auth.Get("/oauth/callback", h.OAuthCallback)
	auth.Get("/oauth/:provider", h.OAuthStart)

	profile := app.Group("/api/profile", middleware.Protect())
	profile.Get("/", h.GetProfile)
	profile.Put("/", h.UpdateProfile)
}

// SignUp handles password registration
func (h *AuthHTTPHandler) SignUp(c *fiber.Ctx) error {
	var req usecase.SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	session, err := h.usecase.SignUp(c.UserContext(), req)
	if err != nil {
		return writeError(c, err)
	}

	h.setCookie(c, session.AccessToken)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session": session})
}

// Login handles password sign-in
func (h *AuthHTTPHandler) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	session, err := h.usecase.SignInWithPassword(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}

	h.setCookie(c, session.AccessToken)
	return c.JSON(fiber.Map{"session": session})
}

// Logout revokes the current session
func (h *AuthHTTPHandler) Logout(c *fiber.Ctx) error {
	if err := h.usecase.SignOut(c.UserContext(), h.token(c)); err != nil {
		return writeError(c, err)
	}

	h.clearCookie(c)
	return c.JSON(fiber.Map{
		"message": "Logged out successfully",
	})
}

// Refresh rotates the access token of the current session
func (h *AuthHTTPHandler) Refresh(c *fiber.Ctx) error {
	session, err := h.usecase.RefreshSession(c.UserContext(), h.token(c))
	if err != nil {
		return writeError(c, err)
	}

	h.setCookie(c, session.AccessToken)
	return c.JSON(fiber.Map{"session": session})
}

// Session returns the current session or null when signed out.
func (h *AuthHTTPHandler) Session(c *fiber.Ctx) error {
	session, err := h.usecase.GetSession(c.UserContext(), h.token(c))
	if err != nil {
		return writeError(c, err)
	}
	if session == nil {
		return c.JSON(fiber.Map{"session": nil})
	}
	return c.JSON(fiber.Map{"session": session})
}

// OAuthStart redirects the browser to the provider's consent page.
func (h *AuthHTTPHandler) OAuthStart(c *fiber.Ctx) error {
	url, err := h.usecase.OAuthURL(c.UserContext(), c.Params("provider"))
	if err != nil {
		return writeError(c, err)
	}
	return c.Redirect(url, fiber.StatusFound)
}

// OAuthCallback finishes the redirect flow and lands on the post-login page.
func (h *AuthHTTPHandler) OAuthCallback(c *fiber.Ctx) error {
	if reason := c.Query("error"); reason != "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": reason})
	}

	session, err := h.usecase.OAuthCallback(c.UserContext(), c.Query("state"), c.Query("code"))
	if err != nil {
		return writeError(c, err)
	}

	h.setCookie(c, session.AccessToken)
	return c.Redirect(h.postLoginRedirect, fiber.StatusFound)
}

// GetProfile returns the caller's profile
func (h *AuthHTTPHandler) GetProfile(c *fiber.Ctx) error {
	userID, _ := GetUserID(c)
	profile, err := h.usecase.GetProfile(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, model.ErrProfileNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return writeError(c, err)
	}
	return c.JSON(profile)
}

// UpdateProfile upserts the caller's profile
func (h *AuthHTTPHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, _ := GetUserID(c)

	var req usecase.ProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	profile, err := h.usecase.UpdateProfile(c.UserContext(), userID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(profile)
}

func writeError(c *fiber.Ctx, err error) error {
	body := fiber.Map{"error": err.Error()}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		body["error"] = appErr.Message
		if appErr.Code != "" {
			body["code"] = appErr.Code
		}
	}
	return c.Status(apperrors.HTTPStatus(err)).JSON(body)
}

// Helper methods

func (h *AuthHTTPHandler) token(c *fiber.Ctx) string {
	return h.tokens.ExtractToken(c)
}

func (h *AuthHTTPHandler) setCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     h.cookiePath,
		Domain:   h.cookieDomain,
		MaxAge:   h.cookieMaxAge,
		Secure:   h.cookieSecure,
		HTTPOnly: h.cookieHTTPOnly,
		SameSite: h.cookieSameSite,
		Expires:  time.Now().Add(time.Duration(h.cookieMaxAge) * time.Second),
	})
}

func (h *AuthHTTPHandler) clearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     h.cookiePath,
		Domain:   h.cookieDomain,
		MaxAge:   -1,
		Secure:   h.cookieSecure,
		HTTPOnly: h.cookieHTTPOnly,
		SameSite: h.cookieSameSite,
		Expires:  time.Now().Add(-1 * time.Hour),
	})
}
