package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/set-night/crazegpt/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestImageService() (*ImageService, *[]time.Duration) {
	svc := NewImageService(NewIDSource())
	waits := &[]time.Duration{}
	svc.sleep = func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
	return svc, waits
}

func TestImageGenerateKeywords(t *testing.T) {
	svc, waits := newTestImageService()

	img, err := svc.Generate(context.Background(), "A red fox!", 0, -1)
	require.NoError(t, err)

	assert.Equal(t, "https://loremflickr.com/512/512/a,red,fox", img.URL)
	assert.Equal(t, "A red fox!", img.Prompt)
	assert.True(t, strings.HasPrefix(img.ID, "img_"))
	require.Len(t, *waits, 1)
	assert.GreaterOrEqual(t, (*waits)[0], config.ImageDelayMin)
	assert.LessOrEqual(t, (*waits)[0], config.ImageDelayMax)
}

func TestImageGenerateSeededFallback(t *testing.T) {
	svc, _ := newTestImageService()

	img, err := svc.Generate(context.Background(), "!!!", 640, 480)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(img.URL, "https://picsum.photos/seed/"))
	assert.True(t, strings.HasSuffix(img.URL, "/640/480"))
}

func TestImageGenerateUniqueIDs(t *testing.T) {
	svc, _ := newTestImageService()

	a, err := svc.Generate(context.Background(), "cat", 1, 1)
	require.NoError(t, err)
	b, err := svc.Generate(context.Background(), "cat", 1, 1)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestImageGenerateCancelled(t *testing.T) {
	svc := NewImageService(NewIDSource())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Generate(ctx, "cat", 0, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImageIntent(t *testing.T) {
	prompt, ok := ImageIntent("Generate an image of a sunset over the sea")
	require.True(t, ok)
	assert.Equal(t, "a sunset over the sea", prompt)

	prompt, ok = ImageIntent("draw a cat")
	require.True(t, ok)
	assert.Equal(t, "a cat", prompt)

	_, ok = ImageIntent("I want to withdraw money")
	assert.False(t, ok)
}

func TestIDSourceMonotonic(t *testing.T) {
	fixed := time.UnixMilli(1000)
	ids := &IDSource{now: func() time.Time { return fixed }}

	assert.Equal(t, int64(1000), ids.Next())
	assert.Equal(t, int64(1001), ids.Next())
	assert.Equal(t, int64(1002), ids.Next())
}
