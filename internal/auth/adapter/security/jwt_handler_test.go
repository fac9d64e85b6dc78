package security_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"blog-cms/internal/auth/adapter/security"
	"blog-cms/internal/auth/config"
	"blog-cms/internal/auth/domain/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type JWTTestSuite struct {
	suite.Suite
	config  *config.Config
	service *security.JWTokenService
}

func subject(userID, email string, roles ...string) repository.TokenSubject {
	return repository.TokenSubject{UserID: userID, Email: email, Roles: roles, SessionID: "session-" + userID}
}

func (suite *JWTTestSuite) SetupTest() {
	suite.config = &config.Config{
		JWTSecretKey:    "test-secret-key-32-characters-long-12345",
		JWTIssuer:       "test-issuer",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	}

	service, err := security.NewJWTokenService(suite.config)
	require.NoError(suite.T(), err)
	suite.service = service
}

func (suite *JWTTestSuite) TestNewJWTokenService_ValidationErrors() {
	testCases := []struct {
		name         string
		modifyConfig func(*config.Config)
		expectedErr  string
	}{
		{
			name:         "empty secret key",
			modifyConfig: func(cfg *config.Config) { cfg.JWTSecretKey = "" },
			expectedErr:  "jwt secret key cannot be empty",
		},
		{
			name:         "empty issuer",
			modifyConfig: func(cfg *config.Config) { cfg.JWTIssuer = "" },
			expectedErr:  "jwt issuer cannot be empty",
		},
		{
			name:         "zero TTL",
			modifyConfig: func(cfg *config.Config) { cfg.AccessTokenTTL = 0 },
			expectedErr:  "jwt access token TTL must be positive",
		},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			cfg := *suite.config
			tc.modifyConfig(&cfg)

			service, err := security.NewJWTokenService(&cfg)

			assert.Error(suite.T(), err)
			assert.Nil(suite.T(), service)
			assert.Contains(suite.T(), err.Error(), tc.expectedErr)
		})
	}
}

func (suite *JWTTestSuite) TestGenerateToken_Claims() {
	tokenString, err := suite.service.GenerateToken(context.Background(), subject("user-123", "test@example.com", "admin"))
	require.NoError(suite.T(), err)

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(suite.config.JWTSecretKey), nil
	})
	require.NoError(suite.T(), err)

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(suite.T(), ok)
	assert.Equal(suite.T(), "user-123", claims["userID"])
	assert.Equal(suite.T(), "user-123", claims["sub"])
	assert.Equal(suite.T(), "test@example.com", claims["email"])
	assert.Equal(suite.T(), []interface{}{"admin"}, claims["roles"])
	assert.Equal(suite.T(), "session-user-123", claims["sid"])
	assert.Equal(suite.T(), suite.config.JWTIssuer, claims["iss"])
}

func (suite *JWTTestSuite) TestValidateToken_RoundTrip() {
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		userID := fmt.Sprintf("user-%d", i)
		email := fmt.Sprintf("user%d@example.com", i)

		token, err := suite.service.GenerateToken(ctx, subject(userID, email, "editor"))
		require.NoError(suite.T(), err)

		claims, err := suite.service.ValidateToken(ctx, token)
		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), userID, claims.UserID)
		assert.Equal(suite.T(), email, claims.Email)
		assert.True(suite.T(), claims.HasRole("editor"))
		assert.False(suite.T(), claims.HasRole("admin"))
	}
}

func (suite *JWTTestSuite) TestValidateToken_InvalidSignature() {
	ctx := context.Background()

	differentConfig := *suite.config
	differentConfig.JWTSecretKey = "different-secret-key-32-chars-long"
	differentService, err := security.NewJWTokenService(&differentConfig)
	require.NoError(suite.T(), err)

	tokenString, err := differentService.GenerateToken(ctx, subject("user-123", "test@example.com"))
	require.NoError(suite.T(), err)

	claims, err := suite.service.ValidateToken(ctx, tokenString)

	assert.Nil(suite.T(), claims)
	assert.Equal(suite.T(), security.ErrTokenSignatureInvalid, err)
}

func (suite *JWTTestSuite) TestValidateToken_WrongIssuer() {
	ctx := context.Background()

	otherConfig := *suite.config
	otherConfig.JWTIssuer = "someone-else"
	other, err := security.NewJWTokenService(&otherConfig)
	require.NoError(suite.T(), err)

	tokenString, err := other.GenerateToken(ctx, subject("user-123", "test@example.com"))
	require.NoError(suite.T(), err)

	_, err = suite.service.ValidateToken(ctx, tokenString)
	assert.Equal(suite.T(), security.ErrTokenInvalid, err)
}

func (suite *JWTTestSuite) TestValidateToken_ExpiredToken() {
	ctx := context.Background()

	shortConfig := *suite.config
	shortConfig.AccessTokenTTL = 1 * time.Millisecond
	shortService, err := security.NewJWTokenService(&shortConfig)
	require.NoError(suite.T(), err)

	tokenString, err := shortService.GenerateToken(ctx, subject("user-123", "test@example.com"))
	require.NoError(suite.T(), err)

	time.Sleep(10 * time.Millisecond)

	claims, err := shortService.ValidateToken(ctx, tokenString)

	assert.Nil(suite.T(), claims)
	assert.Equal(suite.T(), security.ErrTokenExpired, err)
}

func (suite *JWTTestSuite) TestValidateToken_MalformedTokens() {
	ctx := context.Background()

	testCases := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"invalid format", "invalid.token.format"},
		{"malformed jwt", "header.payload"},
		{"random string", "not-a-jwt-token"},
		{"incomplete jwt", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9"},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			claims, err := suite.service.ValidateToken(ctx, tc.token)

			assert.Nil(suite.T(), claims)
			assert.Equal(suite.T(), security.ErrTokenInvalid, err)
		})
	}
}

func TestJWTTestSuite(t *testing.T) {
	suite.Run(t, new(JWTTestSuite))
}

func BenchmarkValidateToken(b *testing.B) {
	cfg := &config.Config{
		JWTSecretKey:   "test-secret-key-32-characters-long-12345",
		JWTIssuer:      "test-issuer",
		AccessTokenTTL: 15 * time.Minute,
	}
	service, _ := security.NewJWTokenService(cfg)
	ctx := context.Background()

	token, _ := service.GenerateToken(ctx, subject("user-123", "test@example.com", "admin"))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		service.ValidateToken(ctx, token)
	}
}
