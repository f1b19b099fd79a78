// Package api provides the HTTP client for the Spotify track search API.
package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	accountsBaseURL = "https://accounts.spotify.com"
	apiBaseURL      = "https://api.spotify.com"
	requestTimeout  = 30 * time.Second

	// SearchLimit bounds the result count of a single search.
	SearchLimit = 10

	// Tokens are refreshed slightly before Spotify's reported expiry.
	tokenExpirySlack = 30 * time.Second
)

// Image is a cover artwork resource.
type Image struct {
	URL string `json:"url"`
}

// Artist carries the subset of the artist object the player needs.
type Artist struct {
	Name string `json:"name"`
}

// TrackAlbum carries the album images attached to a search result.
type TrackAlbum struct {
	Images []Image `json:"images"`
}

// Track is a single track search result.
type Track struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Artists []Artist   `json:"artists"`
	Album   TrackAlbum `json:"album"`
}

// PrimaryArtist returns the first artist name, or "Unknown Artist".
func (t Track) PrimaryArtist() string {
	if len(t.Artists) > 0 && t.Artists[0].Name != "" {
		return t.Artists[0].Name
	}
	return "Unknown Artist"
}

// CoverURL returns the first album image, or empty.
func (t Track) CoverURL() string {
	if len(t.Album.Images) > 0 {
		return t.Album.Images[0].URL
	}
	return ""
}

// SpotifyClient searches the Spotify catalog using the client-credentials
// grant. The bearer token is cached until shortly before expiry.
type SpotifyClient struct {
	api      *resty.Client
	accounts *resty.Client

	clientID     string
	clientSecret string

	mu           sync.Mutex
	accessToken  string
	tokenExpires time.Time
}

// NewSpotifyClient creates a client for the given credential pair.
func NewSpotifyClient(clientID, clientSecret string) *SpotifyClient {
	return &SpotifyClient{
		api: resty.New().
			SetBaseURL(apiBaseURL).
			SetTimeout(requestTimeout),
		accounts: resty.New().
			SetBaseURL(accountsBaseURL).
			SetTimeout(requestTimeout),
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// SetBaseURLs points the client at alternate endpoints (tests).
func (c *SpotifyClient) SetBaseURLs(accountsURL, apiURL string) {
	c.accounts.SetBaseURL(accountsURL)
	c.api.SetBaseURL(apiURL)
}

func (c *SpotifyClient) token() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpires) {
		return c.accessToken, nil
	}

	if c.clientID == "" || c.clientSecret == "" {
		return "", fmt.Errorf("spotify credentials are not configured")
	}

	resp, err := c.accounts.R().
		SetBasicAuth(c.clientID, c.clientSecret).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		Post("/api/token")
	if err != nil {
		return "", fmt.Errorf("failed to fetch access token: %w", err)
	}

	if !resp.IsSuccess() {
		return "", fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode(), resp.Status())
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(resp.Body(), &tokenResp); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned an empty access token")
	}

	c.accessToken = tokenResp.AccessToken
	c.tokenExpires = time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - tokenExpirySlack)
	log.Debug().Int("expires_in", tokenResp.ExpiresIn).Msg("Fetched Spotify access token")

	return c.accessToken, nil
}

// SearchTracks searches for tracks matching the query. An empty or
// whitespace-only query returns no results without a network call.
func (c *SpotifyClient) SearchTracks(query string) ([]Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	token, err := c.token()
	if err != nil {
		return nil, err
	}

	resp, err := c.api.R().
		SetAuthToken(token).
		SetQueryParams(map[string]string{
			"q":     query,
			"type":  "track",
			"limit": fmt.Sprintf("%d", SearchLimit),
		}).
		Get("/v1/search")
	if err != nil {
		return nil, fmt.Errorf("failed to search tracks: %w", err)
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("search returned status %d: %s", resp.StatusCode(), resp.Status())
	}

	var searchResp struct {
		Tracks struct {
			Items []Track `json:"items"`
		} `json:"tracks"`
	}
	if err := json.Unmarshal(resp.Body(), &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	return searchResp.Tracks.Items, nil
}
