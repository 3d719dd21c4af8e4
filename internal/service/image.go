package service

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/set-night/crazegpt/internal/config"
	"github.com/set-night/crazegpt/internal/domain"
)

var (
	imageIntentPattern = regexp.MustCompile(`(?i)\b(?:generate|create|make|draw)(?:\s+(?:an?|the|me\s+an?))?\s+(?:image|picture|photo)s?\b(?:\s+of\b)?|^\s*draw\b`)
	keywordPattern     = regexp.MustCompile(`[A-Za-z0-9]+`)
)

// ImageService produces placeholder image URLs for a prompt after a short
// simulated generation delay.
type ImageService struct {
	ids   *IDSource
	sleep sleepFunc
	delay func() time.Duration
}

func NewImageService(ids *IDSource) *ImageService {
	return &ImageService{ids: ids, sleep: sleepContext, delay: imageDelay}
}

func imageDelay() time.Duration {
	spread := int64(config.ImageDelayMax - config.ImageDelayMin)
	return config.ImageDelayMin + time.Duration(rand.Int63n(spread+1))
}

func (s *ImageService) Generate(ctx context.Context, prompt string, width, height int) (domain.GeneratedImage, error) {
	if width <= 0 {
		width = config.DefaultImageWidth
	}
	if height <= 0 {
		height = config.DefaultImageHeight
	}

	if err := s.sleep(ctx, s.delay()); err != nil {
		return domain.GeneratedImage{}, fmt.Errorf("generate image: %w", err)
	}

	id := s.ids.Next()
	return domain.GeneratedImage{
		ID:     fmt.Sprintf("img_%d", id),
		URL:    imageURL(prompt, width, height, id),
		Prompt: prompt,
	}, nil
}

func imageURL(prompt string, width, height int, seed int64) string {
	if keywords := imageKeywords(prompt); len(keywords) > 0 {
		return fmt.Sprintf("https://loremflickr.com/%d/%d/%s", width, height, strings.Join(keywords, ","))
	}
	return fmt.Sprintf("https://picsum.photos/seed/%d/%d/%d", seed, width, height)
}

func imageKeywords(prompt string) []string {
	return keywordPattern.FindAllString(strings.ToLower(prompt), -1)
}

// ImageIntent reports whether text asks for an image and returns the prompt
// with the request phrase removed.
func ImageIntent(text string) (string, bool) {
	loc := imageIntentPattern.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	prompt := strings.TrimSpace(text[loc[1]:])
	if prompt == "" {
		prompt = strings.TrimSpace(text)
	}
	return prompt, true
}
