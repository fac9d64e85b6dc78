package mongodb_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"blog-cms/internal/auth/adapter/persistence/mongodb"
	"blog-cms/internal/auth/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepoTestSuite struct {
	suite.Suite
	client     *mongo.Client
	database   *mongo.Database
	repository *mongodb.MongoAuthRepository
}

func (suite *MongoRepoTestSuite) SetupSuite() {
	uri := os.Getenv("TEST_MONGODB_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err == nil {
		err = client.Ping(ctx, nil)
	}
	if err != nil {
		suite.T().Skip("MongoDB not available for testing")
		return
	}

	suite.client = client
	suite.database = client.Database(fmt.Sprintf("blog_auth_test_%d", time.Now().UnixNano()))

	repo, err := mongodb.NewMongoAuthRepository(ctx, suite.database)
	require.NoError(suite.T(), err)
	suite.repository = repo
}

func (suite *MongoRepoTestSuite) TearDownSuite() {
	if suite.client != nil {
		_ = suite.database.Drop(context.Background())
		_ = suite.client.Disconnect(context.Background())
	}
}

func (suite *MongoRepoTestSuite) TestUserLifecycle() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	user := &model.AdminUser{
		ID:                    "u-1",
		Email:                 "ada@example.com",
		Roles:                 []string{model.RoleAdmin},
		PasswordHash:          "hash",
		CreatedTimestamp:      now,
		LastModifiedTimestamp: now,
	}

	require.NoError(suite.T(), suite.repository.CreateUser(ctx, user))

	dup := *user
	dup.ID = "u-2"
	assert.Equal(suite.T(), model.ErrEmailTaken, suite.repository.CreateUser(ctx, &dup))

	byEmail, err := suite.repository.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "u-1", byEmail.ID)
	assert.Equal(suite.T(), "hash", byEmail.PasswordHash)

	user.DisplayName = "Ada"
	require.NoError(suite.T(), suite.repository.UpdateUser(ctx, user))
	byID, err := suite.repository.GetUserByID(ctx, "u-1")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Ada", byID.DisplayName)

	count, err := suite.repository.CountUsers(ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), count)

	require.NoError(suite.T(), suite.repository.DeleteUser(ctx, "u-1"))
	_, err = suite.repository.GetUserByID(ctx, "u-1")
	assert.Equal(suite.T(), model.ErrUserNotFound, err)
	assert.Equal(suite.T(), model.ErrUserNotFound, suite.repository.UpdateUser(ctx, user))
}

func (suite *MongoRepoTestSuite) TestSessions() {
	ctx := context.Background()
	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Millisecond)

	require.NoError(suite.T(), suite.repository.CreateSession(ctx, &model.Session{ID: "s-1", UserID: "u-9", ExpiresAt: expires}))
	require.NoError(suite.T(), suite.repository.CreateSession(ctx, &model.Session{ID: "s-2", UserID: "u-9", ExpiresAt: expires}))

	session, err := suite.repository.GetSessionByID(ctx, "s-1")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "u-9", session.UserID)

	require.NoError(suite.T(), suite.repository.DeleteSession(ctx, "s-1"))
	assert.Equal(suite.T(), model.ErrSessionNotFound, suite.repository.DeleteSession(ctx, "s-1"))

	require.NoError(suite.T(), suite.repository.DeleteUserSessions(ctx, "u-9"))
	_, err = suite.repository.GetSessionByID(ctx, "s-2")
	assert.Equal(suite.T(), model.ErrSessionNotFound, err)
}

func TestMongoRepoTestSuite(t *testing.T) {
	suite.Run(t, new(MongoRepoTestSuite))
}
