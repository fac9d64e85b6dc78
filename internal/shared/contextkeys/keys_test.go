package contextkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextKey_String(t *testing.T) {
	key := contextKey("testKey")
	assert.Equal(t, "blog-cms context key testKey", key.String())
}

func TestContextKeys_Usage(t *testing.T) {
	ctx := context.Background()
	ctx = context.WithValue(ctx, UserIDKey, "user-123")
	ctx = context.WithValue(ctx, UserEmailKey, "editor@example.com")
	ctx = context.WithValue(ctx, UserRolesKey, []string{"admin"})
	ctx = context.WithValue(ctx, RequestIDKey, "req-456")
	ctx = context.WithValue(ctx, ComponentKey, "posts")
	ctx = context.WithValue(ctx, OperationKey, "publishPost")

	assert.Equal(t, "user-123", ctx.Value(UserIDKey))
	assert.Equal(t, "editor@example.com", ctx.Value(UserEmailKey))
	assert.Equal(t, []string{"admin"}, ctx.Value(UserRolesKey))
	assert.Equal(t, "req-456", ctx.Value(RequestIDKey))
	assert.Equal(t, "posts", ctx.Value(ComponentKey))
	assert.Equal(t, "publishPost", ctx.Value(OperationKey))
}
