package reqctx

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRequestMeta(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", RequestIDFromContext(ctx))

	ctx = WithRequestMeta(ctx, &RequestMeta{RequestID: "req-1"})
	meta, ok := RequestMetaFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "req-1", meta.RequestID)
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
}

func TestActorAndLogAttrs(t *testing.T) {
	ctx := context.Background()
	_, ok := ActorFromContext(ctx)
	assert.False(t, ok)
	assert.Empty(t, LogAttrs(ctx))

	a := Actor{UserID: uuid.New(), TenantID: uuid.New(), Role: "ADMIN"}
	ctx = WithActor(WithRequestMeta(ctx, &RequestMeta{RequestID: "r"}), a)

	got, ok := ActorFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, a, got)
	assert.Len(t, LogAttrs(ctx), 3)
}
