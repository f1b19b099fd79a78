package cache

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"path/filepath"
	"time"
)

const artworkLoadTimeout = 15 * time.Second

// ArtworkPath returns a local path to a cached copy of the cover at url,
// downloading it on first use. Desktop consumers (MPRIS artUrl) want a
// file, not a remote URL.
func (c *Cache) ArtworkPath(url string) (string, error) {
	imagePath := filepath.Join(c.baseDir, ImageSubdir, hashURL(url)+".png")

	// GetImage owns the expiry and corrupt-file handling; a decodable hit
	// means the file behind imagePath is valid.
	if img := c.GetImage(url); img != nil {
		return imagePath, nil
	}

	img, err := fetchImage(url)
	if err != nil {
		return "", err
	}
	if err := c.SaveImage(url, img); err != nil {
		return "", err
	}
	return imagePath, nil
}

func fetchImage(url string) (image.Image, error) {
	ctx, cancel := context.WithTimeout(context.Background(), artworkLoadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching artwork", resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode artwork: %w", err)
	}
	return img, nil
}
