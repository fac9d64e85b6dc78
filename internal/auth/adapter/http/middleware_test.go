package http_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	authhttp "blog-cms/internal/auth/adapter/http"
	"blog-cms/internal/auth/domain/model"
	"blog-cms/internal/shared/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type MiddlewareTestSuite struct {
	suite.Suite
	app        *fiber.App
	mockUC     *mockAuthUsecase
	middleware *authhttp.AuthMiddleware
}

func (suite *MiddlewareTestSuite) SetupTest() {
	suite.mockUC = &mockAuthUsecase{}
	suite.middleware = authhttp.NewAuthMiddleware(suite.mockUC, "auth_cookie", "http://localhost:3000", nil)
	suite.app = fiber.New()
}

func (suite *MiddlewareTestSuite) whoAmI(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID, err := utils.GetUserIDFromContext(ctx)
	if err != nil {
		return c.Status(500).SendString("user id missing")
	}
	email, _ := utils.GetUserEmailFromContext(ctx)
	return c.SendString(fmt.Sprintf("%s|%s|%s", userID, email, strings.Join(utils.GetUserRolesFromContext(ctx), ",")))
}

func (suite *MiddlewareTestSuite) get(req *http.Request) (int, string) {
	resp, err := suite.app.Test(req)
	require.NoError(suite.T(), err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(suite.T(), err)
	return resp.StatusCode, string(body)
}

func (suite *MiddlewareTestSuite) TestProtect_TokenSources() {
	suite.app.Get("/protected", suite.middleware.Protect(), suite.whoAmI)
	suite.mockUC.expectToken("valid-token", "user-123", model.RoleEditor)

	tests := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer valid-token") }},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "auth_cookie", Value: "valid-token"}) }},
		{"query", func(r *http.Request) { r.URL.RawQuery = "token=valid-token" }},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			req := httptest.NewRequest("GET", "/protected", nil)
			tc.setup(req)

			status, body := suite.get(req)

			assert.Equal(suite.T(), http.StatusOK, status)
			assert.Equal(suite.T(), "user-123|user-123@example.com|editor", body)
		})
	}
}

func (suite *MiddlewareTestSuite) TestProtect_Rejections() {
	suite.app.Get("/protected", suite.middleware.Protect(), suite.whoAmI)
	suite.mockUC.On("ValidateToken", mock.Anything, "revoked").Return(nil, model.ErrTokenInvalid)

	req := httptest.NewRequest("GET", "/protected", nil)
	status, body := suite.get(req)
	assert.Equal(suite.T(), http.StatusUnauthorized, status)
	assert.Contains(suite.T(), body, "UNAUTHENTICATED")

	req = httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	status, _ = suite.get(req)
	assert.Equal(suite.T(), http.StatusUnauthorized, status)

	req = httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer revoked")
	status, _ = suite.get(req)
	assert.Equal(suite.T(), http.StatusUnauthorized, status)
}

func (suite *MiddlewareTestSuite) TestRequireRole() {
	suite.app.Get("/admin", suite.middleware.Protect(), suite.middleware.RequireRole(model.RoleAdmin), suite.whoAmI)
	suite.mockUC.expectToken("editor-token", "ed", model.RoleEditor)
	suite.mockUC.expectToken("admin-token", "root", model.RoleAdmin)

	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer editor-token")
	status, body := suite.get(req)
	assert.Equal(suite.T(), http.StatusForbidden, status)
	assert.Contains(suite.T(), body, "PERMISSION_DENIED")

	req = httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	status, _ = suite.get(req)
	assert.Equal(suite.T(), http.StatusOK, status)
}

func (suite *MiddlewareTestSuite) TestRequireRole_WithoutProtect() {
	suite.app.Get("/admin", suite.middleware.RequireRole(model.RoleAdmin), suite.whoAmI)

	status, _ := suite.get(httptest.NewRequest("GET", "/admin", nil))
	assert.Equal(suite.T(), http.StatusUnauthorized, status)
}

func (suite *MiddlewareTestSuite) TestSecurityHeaders() {
	suite.app.Use(suite.middleware.SecurityHeaders())
	suite.app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) })

	resp, err := suite.app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(suite.T(), "DENY", resp.Header.Get("X-Frame-Options"))
}

func (suite *MiddlewareTestSuite) TestRequestContext() {
	suite.app.Use(authhttp.RequestID(), authhttp.RequestContext())
	suite.app.Get("/", func(c *fiber.Ctx) error {
		id, err := utils.GetRequestIDFromContext(c.UserContext())
		if err != nil {
			return c.SendStatus(http.StatusInternalServerError)
		}
		return c.SendString(id)
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	status, body := suite.get(req)

	assert.Equal(suite.T(), http.StatusOK, status)
	assert.Equal(suite.T(), "req-42", body)
}

func (suite *MiddlewareTestSuite) TestRateLimiter() {
	suite.app.Get("/limited", authhttp.RateLimiter(2, time.Minute), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})

	for i := 0; i < 2; i++ {
		status, _ := suite.get(httptest.NewRequest("GET", "/limited", nil))
		assert.Equal(suite.T(), http.StatusNoContent, status)
	}
	status, body := suite.get(httptest.NewRequest("GET", "/limited", nil))
	assert.Equal(suite.T(), http.StatusTooManyRequests, status)
	assert.Contains(suite.T(), body, "RESOURCE_EXHAUSTED")
}

func (suite *MiddlewareTestSuite) TestRateLimiter_IgnoresForwardedHeader() {
	suite.app.Get("/limited", authhttp.RateLimiter(2, time.Minute), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})

	blocked := 0
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest("GET", "/limited", nil)
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		if status, _ := suite.get(req); status == http.StatusTooManyRequests {
			blocked++
		}
	}
	assert.Equal(suite.T(), 4, blocked)
}

func TestMiddlewareTestSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareTestSuite))
}
