package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"blog-cms/internal/auth"
	"blog-cms/internal/auth/testutil"
	"blog-cms/internal/auth/usecase"
	"blog-cms/internal/shared/callable"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func loginRequest(email string) usecase.LoginRequest {
	return usecase.LoginRequest{Email: email, Password: testutil.DefaultPassword}
}

type AuthIntegrationTestSuite struct {
	suite.Suite
	app    *fiber.App
	module *auth.AuthModule
}

func (suite *AuthIntegrationTestSuite) SetupTest() {
	cfg := testutil.TestConfig()
	cfg.BootstrapAdminEmail = "admin@example.com"
	cfg.BootstrapAdminPassword = testutil.DefaultPassword

	module, err := auth.NewAuthModule(context.Background(), nil, cfg, nil, nil)
	require.NoError(suite.T(), err)
	suite.module = module

	registry := callable.NewRegistry(nil)
	module.RegisterCallables(registry)

	suite.app = fiber.New()
	module.RegisterRoutes(suite.app.Group("/auth"))
	suite.app.Post("/callable/:name", module.GetMiddleware().Protect(), registry.Handler())
}

func (suite *AuthIntegrationTestSuite) request(method, path, body, token string) (int, map[string]interface{}) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := suite.app.Test(req, -1)
	require.NoError(suite.T(), err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(suite.T(), err)
	out := map[string]interface{}{}
	require.NoError(suite.T(), json.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

func (suite *AuthIntegrationTestSuite) login(email, password string) string {
	status, out := suite.request("POST", "/auth/login", `{"email":"`+email+`","password":"`+password+`"}`, "")
	require.Equal(suite.T(), http.StatusOK, status, out)
	return out["accessToken"].(string)
}

func (suite *AuthIntegrationTestSuite) TestAdminLifecycle() {
	adminToken := suite.login("admin@example.com", testutil.DefaultPassword)

	status, me := suite.request("GET", "/auth/me", ``, adminToken)
	require.Equal(suite.T(), http.StatusOK, status)
	assert.Equal(suite.T(), "admin@example.com", me["email"])

	status, out := suite.request("POST", "/callable/createAdminUser",
		`{"data":{"email":"editor@example.com","password":"Ed1tor!pass","roles":["editor"]}}`, adminToken)
	require.Equal(suite.T(), http.StatusOK, status, out)
	editorID := out["result"].(map[string]interface{})["id"].(string)

	editorToken := suite.login("editor@example.com", "Ed1tor!pass")

	status, out = suite.request("POST", "/callable/listAdminUsers", `{"data":{}}`, editorToken)
	assert.Equal(suite.T(), http.StatusForbidden, status)
	assert.Equal(suite.T(), "PERMISSION_DENIED", out["error"].(map[string]interface{})["status"])

	status, out = suite.request("POST", "/callable/listAdminUsers", `{"data":{}}`, adminToken)
	require.Equal(suite.T(), http.StatusOK, status)
	assert.Len(suite.T(), out["result"], 2)

	status, _ = suite.request("POST", "/callable/deleteAdminUser", `{"data":{"userId":"`+editorID+`"}}`, adminToken)
	require.Equal(suite.T(), http.StatusOK, status)

	status, _ = suite.request("GET", "/auth/me", ``, editorToken)
	assert.Equal(suite.T(), http.StatusUnauthorized, status, "deleting a user closes their sessions")
}

func (suite *AuthIntegrationTestSuite) TestLogoutRevokesToken() {
	token := suite.login("admin@example.com", testutil.DefaultPassword)

	status, _ := suite.request("POST", "/auth/logout", ``, token)
	require.Equal(suite.T(), http.StatusOK, status)

	status, out := suite.request("GET", "/auth/me", ``, token)
	assert.Equal(suite.T(), http.StatusUnauthorized, status)
	assert.Equal(suite.T(), "UNAUTHENTICATED", out["error"].(map[string]interface{})["status"])
}

func TestAuthIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(AuthIntegrationTestSuite))
}
