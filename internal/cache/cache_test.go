package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNilCacheIsInert(t *testing.T) {
	var c *Cache

	var dest []string
	assert.False(t, c.Get(context.Background(), "key", &dest))
	assert.NotPanics(t, func() {
		c.Set(context.Background(), "key", []string{"value"})
	})
}
