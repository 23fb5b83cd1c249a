package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextResolver(t *testing.T) {
	resolver := ContextResolver()

	_, ok := resolver.CurrentActor(context.Background())
	assert.False(t, ok, "bare context carries no actor")

	ctx := ContextWithActor(context.Background(), "user-42")
	actor, ok := resolver.CurrentActor(ctx)
	assert.True(t, ok)
	assert.Equal(t, "user-42", actor)
}

func TestContextResolver_EmptyActor(t *testing.T) {
	resolver := ContextResolver()

	ctx := ContextWithActor(context.Background(), "")
	_, ok := resolver.CurrentActor(ctx)
	assert.False(t, ok, "an empty actor id is the same as no actor")
}

func TestStaticResolver(t *testing.T) {
	actor, ok := StaticResolver("system:snapshot-scheduler").CurrentActor(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "system:snapshot-scheduler", actor)
}
