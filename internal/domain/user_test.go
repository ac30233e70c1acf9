package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithUser(t *testing.T) {
	user := &User{ID: "user123", Email: "test@example.com"}
	ctx := WithUser(context.Background(), user)

	got, ok := UserFromContext(ctx)
	assert.True(t, ok)
	assert.Same(t, user, got)
	assert.Equal(t, "user123", ctx.Value(UserIDKey))
}

func TestUserFromContext_Missing(t *testing.T) {
	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)

	var nilUser *User
	ctx := context.WithValue(context.Background(), UserKey, nilUser)
	_, ok = UserFromContext(ctx)
	assert.False(t, ok)
}
