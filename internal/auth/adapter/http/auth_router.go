package http

import (
	"time"

	"blog-cms/internal/auth/config"
	"blog-cms/internal/auth/usecase"
	"blog-cms/internal/shared/callable"
	apperrors "blog-cms/internal/shared/errors"
	"blog-cms/internal/shared/logger"
	"blog-cms/internal/shared/utils"

	"github.com/gofiber/fiber/v2"
)

// AuthHTTPHandler handles HTTP requests for authentication
type AuthHTTPHandler struct {
	usecase        usecase.AuthUsecaseInterface
	log            logger.Logger
	cookieName     string
	cookiePath     string
	cookieDomain   string
	cookieMaxAge   int
	cookieSecure   bool
	cookieHTTPOnly bool
	cookieSameSite string
}

// NewAuthHTTPHandler creates a new authentication HTTP handler
func NewAuthHTTPHandler(uc usecase.AuthUsecaseInterface, cfg *config.Config, log logger.Logger) *AuthHTTPHandler {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &AuthHTTPHandler{
		usecase:        uc,
		log:            log.WithComponent("auth_http"),
		cookieName:     cfg.CookieName,
		cookiePath:     cfg.CookiePath,
		cookieDomain:   cfg.CookieDomain,
		cookieMaxAge:   int(cfg.AccessTokenTTL.Seconds()),
		cookieSecure:   cfg.CookieSecure,
		cookieHTTPOnly: cfg.CookieHTTPOnly,
		cookieSameSite: cfg.CookieSameSite,
	}
}

// SetupAuthRoutesWithMiddleware sets up authentication routes with middleware
func (h *AuthHTTPHandler) SetupAuthRoutesWithMiddleware(router fiber.Router, middleware *AuthMiddleware) {
	// Public routes (no authentication required)
	router.Post("/login", middleware.RateLimiter(), h.Login)
	router.Post("/refresh", middleware.RateLimiter(), h.RefreshToken)

	// Protected routes (authentication required)
	protected := router.Group("/", middleware.Protect())
	protected.Post("/logout", h.Logout)
	protected.Get("/me", h.GetCurrentUser)
	protected.Put("/me", h.UpdateCurrentUser)
	protected.Post("/change-password", h.ChangePassword)
}

func (h *AuthHTTPHandler) fail(c *fiber.Ctx, err error) error {
	return callable.WriteError(c, h.log, err)
}

func (h *AuthHTTPHandler) parse(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid request body").WithCause(err)
	}
	return nil
}

// Login handles admin login
func (h *AuthHTTPHandler) Login(c *fiber.Ctx) error {
	var req usecase.LoginRequest
	if err := h.parse(c, &req); err != nil {
		return h.fail(c, err)
	}

	response, err := h.usecase.Login(c.UserContext(), req)
	if err != nil {
		return h.fail(c, err)
	}

	h.setCookie(c, response.AccessToken)
	return c.JSON(response)
}

// Logout closes the session of the presented token
func (h *AuthHTTPHandler) Logout(c *fiber.Ctx) error {
	if err := h.usecase.Logout(c.UserContext(), AccessToken(c)); err != nil {
		return h.fail(c, err)
	}

	h.clearCookie(c)
	return c.JSON(fiber.Map{
		"message": "Logged out successfully",
	})
}

// RefreshToken exchanges a refresh token for a new token pair
func (h *AuthHTTPHandler) RefreshToken(c *fiber.Ctx) error {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := h.parse(c, &req); err != nil {
		return h.fail(c, err)
	}

	response, err := h.usecase.RefreshToken(c.UserContext(), req.RefreshToken)
	if err != nil {
		return h.fail(c, err)
	}

	h.setCookie(c, response.AccessToken)
	return c.JSON(response)
}

// GetCurrentUser returns the signed-in user
func (h *AuthHTTPHandler) GetCurrentUser(c *fiber.Ctx) error {
	userID, err := utils.GetUserIDFromContext(c.UserContext())
	if err != nil {
		return h.fail(c, errNoToken)
	}

	user, err := h.usecase.GetUserByID(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(user)
}

// UpdateCurrentUser changes the signed-in user's profile. Roles cannot be changed here.
func (h *AuthHTTPHandler) UpdateCurrentUser(c *fiber.Ctx) error {
	userID, err := utils.GetUserIDFromContext(c.UserContext())
	if err != nil {
		return h.fail(c, errNoToken)
	}

	var req usecase.UpdateUserRequest
	if err := h.parse(c, &req); err != nil {
		return h.fail(c, err)
	}
	req.Roles = nil

	user, err := h.usecase.UpdateUser(c.UserContext(), userID, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(user)
}

// ChangePassword handles password change
func (h *AuthHTTPHandler) ChangePassword(c *fiber.Ctx) error {
	userID, err := utils.GetUserIDFromContext(c.UserContext())
	if err != nil {
		return h.fail(c, errNoToken)
	}

	var req usecase.ChangePasswordRequest
	if err := h.parse(c, &req); err != nil {
		return h.fail(c, err)
	}

	if err := h.usecase.ChangePassword(c.UserContext(), userID, req); err != nil {
		return h.fail(c, err)
	}

	h.clearCookie(c)
	return c.JSON(fiber.Map{
		"message": "Password changed successfully",
	})
}

// Helper methods

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
