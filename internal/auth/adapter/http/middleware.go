package http

import (
	"strings"
	"time"

	"blog-cms/internal/auth/domain/repository"
	"blog-cms/internal/auth/usecase"
	"blog-cms/internal/shared/callable"
	"blog-cms/internal/shared/contextkeys"
	apperrors "blog-cms/internal/shared/errors"
	"blog-cms/internal/shared/logger"
	"blog-cms/internal/shared/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

const (
	localsToken  = "access_token"
	localsClaims = "claims"
)

var errNoToken = apperrors.NewAuthenticationError("authentication required")

// AuthMiddleware provides authentication middleware for Fiber
type AuthMiddleware struct {
	usecase     usecase.AuthUsecaseInterface
	cookieName  string
	corsOrigins string
	log         logger.Logger
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(uc usecase.AuthUsecaseInterface, cookieName, corsOrigins string, log logger.Logger) *AuthMiddleware {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &AuthMiddleware{
		usecase:     uc,
		cookieName:  cookieName,
		corsOrigins: corsOrigins,
		log:         log.WithComponent("auth_middleware"),
	}
}

// CORS middleware for the admin client
func (m *AuthMiddleware) CORS() fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     m.corsOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Requested-With,X-Request-ID",
		AllowCredentials: m.corsOrigins != "*",
		MaxAge:           86400,
	})
}

// SecurityHeaders adds security headers
func (m *AuthMiddleware) SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		return c.Next()
	}
}

// RateLimiter allows max requests per window and client IP. The IP only comes
// from a proxy header when the app trusts the proxy that sent it.
func RateLimiter(max int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        window,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": fiber.Map{
					"status":  "RESOURCE_EXHAUSTED",
					"message": "Rate limit exceeded. Please try again later.",
				},
			})
		},
	})
}

// RateLimiter limits auth endpoints to 10 requests per minute
func (m *AuthMiddleware) RateLimiter() fiber.Handler {
	return RateLimiter(10, time.Minute)
}

// RequestID assigns X-Request-ID
func RequestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     fiber.HeaderXRequestID,
		ContextKey: string(contextkeys.RequestIDKey),
	})
}

// RequestContext copies the request ID assigned by RequestID into the request
// context so usecases and loggers can read it.
func RequestContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id, ok := c.Locals(string(contextkeys.RequestIDKey)).(string); ok && id != "" {
			c.SetUserContext(utils.WithRequestID(c.UserContext(), id))
		}
		return c.Next()
	}
}

// Protect returns middleware that requires a valid admin access token
func (m *AuthMiddleware) Protect() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := m.extractToken(c)
		if !ok {
			return callable.WriteError(c, m.log, errNoToken)
		}

		claims, err := m.usecase.ValidateToken(c.UserContext(), token)
		if err != nil {
			return callable.WriteError(c, m.log, err)
		}

		c.Locals(localsToken, token)
		c.Locals(localsClaims, claims)
		ctx := utils.WithUserID(c.UserContext(), claims.UserID)
		ctx = utils.WithUserEmail(ctx, claims.Email)
		ctx = utils.WithUserRoles(ctx, claims.Roles)
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// RequireRole returns middleware that requires any of roles. It must run after Protect.
func (m *AuthMiddleware) RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals(localsClaims).(*repository.Claims)
		if !ok {
			return callable.WriteError(c, m.log, errNoToken)
		}
		for _, role := range roles {
			if claims.HasRole(role) {
				return c.Next()
			}
		}
		return callable.WriteError(c, m.log, apperrors.NewAuthorizationError("insufficient permissions"))
	}
}

// extractToken reads the token from the Authorization header, the cookie, or
// the token query parameter used by websocket clients.
func (m *AuthMiddleware) extractToken(c *fiber.Ctx) (string, bool) {
	if authHeader := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(authHeader, "Bearer ") {
		if token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")); token != "" {
			return token, true
		}
	}
	if token := c.Cookies(m.cookieName); token != "" {
		return token, true
	}
	if token := c.Query("token"); token != "" {
		return token, true
	}
	return "", false
}

// AccessToken returns the token Protect accepted
func AccessToken(c *fiber.Ctx) string {
	token, _ := c.Locals(localsToken).(string)
	return token
}

// ClaimsFrom returns the claims Protect stored for the request
func ClaimsFrom(c *fiber.Ctx) (*repository.Claims, bool) {
	claims, ok := c.Locals(localsClaims).(*repository.Claims)
	return claims, ok
}
