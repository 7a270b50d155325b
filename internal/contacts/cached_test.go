package contacts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingResolver struct {
	names   map[string]string
	lookups int
}

func (r *countingResolver) Lookup(_ context.Context, number string) (string, bool) {
	r.lookups++
	name, ok := r.names[CleanNumber(number)]
	return name, ok
}

func TestCleanNumber(t *testing.T) {
	assert.Equal(t, "+15550100", CleanNumber("+1 (555) 010-0"))
	assert.Equal(t, "0100", CleanNumber("01 00"))
}

func TestCachedResolver_HitCached(t *testing.T) {
	inner := &countingResolver{names: map[string]string{"+15550100": "Ada"}}
	cached := NewCachedResolver(inner, time.Minute)

	for i := 0; i < 3; i++ {
		name, ok := cached.Lookup(context.Background(), "+1 555 0100")
		assert.True(t, ok)
		assert.Equal(t, "Ada", name)
	}
	assert.Equal(t, 1, inner.lookups)
}

func TestCachedResolver_MissCached(t *testing.T) {
	inner := &countingResolver{names: map[string]string{}}
	cached := NewCachedResolver(inner, time.Minute)

	for i := 0; i < 3; i++ {
		_, ok := cached.Lookup(context.Background(), "+15550199")
		assert.False(t, ok)
	}
	assert.Equal(t, 1, inner.lookups)
}
