package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisOptionsFromURL(t *testing.T) {
	opts, err := redisOptions("redis://:secret@cache.internal:6380/2")
	require.NoError(t, err)

	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 3*time.Second, opts.ReadTimeout)
}

func TestRedisOptionsBareAddress(t *testing.T) {
	opts, err := redisOptions("localhost:6379")
	require.NoError(t, err)

	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 0, opts.DB)
}

func TestRedisOptionsInvalidURL(t *testing.T) {
	_, err := redisOptions("redis://host:6379/notadb")
	assert.Error(t, err)
}
