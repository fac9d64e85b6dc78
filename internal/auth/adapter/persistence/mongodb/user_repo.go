package mongodb

import (
	"context"
	"errors"

	"blog-cms/internal/auth/domain/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names in the admin database
const (
	UsersCollection    = "admin_users"
	SessionsCollection = "admin_sessions"
)

// MongoAuthRepository implements the AuthRepository interface using MongoDB
type MongoAuthRepository struct {
	usersCollection    *mongo.Collection
	sessionsCollection *mongo.Collection
}

// NewMongoAuthRepository creates the repository and its indexes
func NewMongoAuthRepository(ctx context.Context, db *mongo.Database) (*MongoAuthRepository, error) {
	repo := &MongoAuthRepository{
		usersCollection:    db.Collection(UsersCollection),
		sessionsCollection: db.Collection(SessionsCollection),
	}

	// Email index for users (unique)
	emailIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := repo.usersCollection.Indexes().CreateOne(ctx, emailIndex); err != nil {
		return nil, err
	}

	sessionIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}}},
		// Mongo removes expired sessions on its own
		{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	}
	if _, err := repo.sessionsCollection.Indexes().CreateMany(ctx, sessionIndexes); err != nil {
		return nil, err
	}

	return repo, nil
}

// CreateUser inserts a new admin user
func (r *MongoAuthRepository) CreateUser(ctx context.Context, user *model.AdminUser) error {
	if _, err := r.usersCollection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.ErrEmailTaken
		}
		return err
	}
	return nil
}

// GetUserByEmail retrieves a user by email
func (r *MongoAuthRepository) GetUserByEmail(ctx context.Context, email string) (*model.AdminUser, error) {
	return r.findUser(ctx, bson.M{"email": email})
}

// GetUserByID retrieves a user by ID
func (r *MongoAuthRepository) GetUserByID(ctx context.Context, id string) (*model.AdminUser, error) {
	return r.findUser(ctx, bson.M{"_id": id})
}

func (r *MongoAuthRepository) findUser(ctx context.Context, filter bson.M) (*model.AdminUser, error) {
	var user model.AdminUser
	if err := r.usersCollection.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ListUsers returns users ordered by email
func (r *MongoAuthRepository) ListUsers(ctx context.Context, limit, offset int) ([]*model.AdminUser, error) {
	opts := options.Find().SetSort(bson.D{{Key: "email", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}

	cursor, err := r.usersCollection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := make([]*model.AdminUser, 0)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// CountUsers returns the number of admin users
func (r *MongoAuthRepository) CountUsers(ctx context.Context) (int64, error) {
	return r.usersCollection.CountDocuments(ctx, bson.M{})
}

// UpdateUser replaces the stored user
func (r *MongoAuthRepository) UpdateUser(ctx context.Context, user *model.AdminUser) error {
	result, err := r.usersCollection.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.ErrEmailTaken
		}
		return err
	}
	if result.MatchedCount == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

// DeleteUser removes a user. Deleting a missing user is not an error.
func (r *MongoAuthRepository) DeleteUser(ctx context.Context, id string) error {
	_, err := r.usersCollection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// CreateSession creates a new session
func (r *MongoAuthRepository) CreateSession(ctx context.Context, session *model.Session) error {
	_, err := r.sessionsCollection.InsertOne(ctx, session)
	return err
}

// GetSessionByID retrieves a session by ID
func (r *MongoAuthRepository) GetSessionByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	if err := r.sessionsCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&session); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

// DeleteSession deletes a session by ID
func (r *MongoAuthRepository) DeleteSession(ctx context.Context, id string) error {
	result, err := r.sessionsCollection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return model.ErrSessionNotFound
	}
	return nil
}

// DeleteUserSessions deletes every session of a user
func (r *MongoAuthRepository) DeleteUserSessions(ctx context.Context, userID string) error {
	_, err := r.sessionsCollection.DeleteMany(ctx, bson.M{"userId": userID})
	return err
}
