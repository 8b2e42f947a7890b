package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserDefaultsToSystem(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, SystemUser, User(ctx))
	assert.Equal(t, SystemUser, User(WithUser(ctx, "")))
	assert.Equal(t, "alice", User(WithUser(ctx, "alice")))
}

func TestNowUsesInjectedTime(t *testing.T) {
	fixed := time.Date(2024, 4, 2, 10, 30, 0, 0, time.FixedZone("EST", -5*3600))
	ctx := WithTime(context.Background(), fixed)
	got := Now(ctx)
	assert.True(t, got.Equal(fixed))
	assert.Equal(t, time.UTC, got.Location())
}

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestID(ctx))
	assert.Equal(t, "req-1", RequestID(WithRequestID(ctx, "req-1")))
}
