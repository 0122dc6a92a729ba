package http

import (
	"strings"
	"time"

	"photoshoot-studio/internal/auth/domain/model"
	"photoshoot-studio/internal/auth/usecase"
	"photoshoot-studio/internal/shared/contextkeys"
	apperrors "photoshoot-studio/internal/shared/errors"
	"photoshoot-studio/internal/shared/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// Locals keys set by Protect and OptionalAuth.
const (
	LocalUserID        = "user_id"
	LocalUserEmail     = "user_email"
	LocalSessionID     = "session_id"
	LocalToken         = "token"
	LocalAuthenticated = "authenticated"
)

// AuthMiddleware provides authentication middleware for Fiber
type AuthMiddleware struct {
	usecase    usecase.AuthUsecaseInterface
	cookieName string
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(uc usecase.AuthUsecaseInterface, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{
		usecase:    uc,
		cookieName: cookieName,
	}
}

// CORS middleware allowing credentials from allowOrigins.
func (m *AuthMiddleware) CORS(allowOrigins string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Requested-With,X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	})
}

// SecurityHeaders adds security headers
func (m *AuthMiddleware) SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		return c.Next()
	}
}

// RateLimiter creates rate limiting middleware for credential endpoints
func (m *AuthMiddleware) RateLimiter(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.Get("X-Forwarded-For", c.IP())
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Rate limit exceeded. Please try again later.",
			})
		},
	})
}

// RequestID middleware
func (m *AuthMiddleware) RequestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     "X-Request-ID",
		ContextKey: string(contextkeys.RequestIDKey),
	})
}

// Protect requires a live session. The resolved identity is placed both in
// the user context and in Locals.
func (m *AuthMiddleware) Protect() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := m.ExtractToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}

		session, err := m.usecase.GetSession(c.UserContext(), token)
		if err != nil || session == nil {
			status := fiber.StatusUnauthorized
			if err != nil && !apperrors.IsAuthentication(err) {
				status = fiber.StatusInternalServerError
			}
			return c.Status(status).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		m.attach(c, session)
		return c.Next()
	}
}

// OptionalAuth attaches the session when a valid token is present and
// continues anonymously otherwise.
func (m *AuthMiddleware) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := m.ExtractToken(c)
		if token == "" {
			return c.Next()
		}
		session, err := m.usecase.GetSession(c.UserContext(), token)
		if err == nil && session != nil {
			m.attach(c, session)
		}
		return c.Next()
	}
}

func (m *AuthMiddleware) attach(c *fiber.Ctx, session *model.Session) {
	ctx := c.UserContext()
	ctx = utils.WithUserID(ctx, session.UserID)
	ctx = utils.WithSessionID(ctx, session.ID)
	ctx = utils.WithToken(ctx, session.AccessToken)
	if session.User != nil {
		ctx = utils.WithUserEmail(ctx, session.User.Email)
		c.Locals(LocalUserEmail, session.User.Email)
	}
	c.SetUserContext(ctx)

	c.Locals(LocalUserID, session.UserID)
	c.Locals(LocalSessionID, session.ID)
	c.Locals(LocalToken, session.AccessToken)
	c.Locals(LocalAuthenticated, true)
}

// ExtractToken reads the access token from the Authorization header, the
// session cookie or the token query parameter, in that order.
func (m *AuthMiddleware) ExtractToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}

	if token := c.Cookies(m.cookieName); token != "" {
		return token
	}

	// WebSocket clients cannot set headers from the browser
	return c.Query("token")
}

// GetUserID helper function to get user ID from context
func GetUserID(c *fiber.Ctx) (string, bool) {
	userID, ok := c.Locals(LocalUserID).(string)
	return userID, ok && userID != ""
}

// GetUserEmail helper function to get user email from context
func GetUserEmail(c *fiber.Ctx) (string, bool) {
	email, ok := c.Locals(LocalUserEmail).(string)
	return email, ok
}

// IsAuthenticated helper function to check if user is authenticated
func IsAuthenticated(c *fiber.Ctx) bool {
	auth, ok := c.Locals(LocalAuthenticated).(bool)
	return ok && auth
}
