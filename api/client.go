package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"reelfeed/models"
)

// ErrAuthRequired is returned before any network call when no access token
// is available, and for 401/403 responses. Its text is the user-facing
// login prompt.
var ErrAuthRequired = errors.New("Please login to your account")

// TokenSource supplies the viewer's access token. An empty token with a nil
// error means the viewer is logged out.
type TokenSource interface {
	AccessToken() (string, error)
}

// StaticToken is a TokenSource for a fixed token, used in tests.
type StaticToken string

func (s StaticToken) AccessToken() (string, error) { return string(s), nil }

// RequestError wraps a non-2xx backend response.
type RequestError struct {
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the social backend. All endpoints are resource-scoped:
// feeds list under /<resource>/list/ and interactions toggle under
// /<resource>/<id>/<kind>/.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
}

func NewClient(baseURL string, tokens TokenSource, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: timeout},
		Tokens:     tokens,
	}
}

// listResponse is the backend's page envelope.
type listResponse struct {
	Results []models.FeedItem `json:"results"`
	Next    *string           `json:"next"`
}

func (c *Client) newRequest(ctx context.Context, method, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", "Reelfeed/1.0")
	req.Header.Set("Accept", "application/json")

	token, err := c.Tokens.AccessToken()
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req, nil
}

// ListPage fetches one page of a feed resource and reports whether a next
// page exists. Malformed entries are dropped at this boundary so nothing
// downstream has to re-validate shapes.
func (c *Client) ListPage(ctx context.Context, resource string, page int) ([]models.FeedItem, bool, error) {
	url := fmt.Sprintf("%s/%s/list/?page=%d", c.BaseURL, resource, page)
	req, err := c.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return nil, false, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, false, ErrAuthRequired
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, false, &RequestError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var list listResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, false, fmt.Errorf("decoding feed page: %w", err)
	}

	items := make([]models.FeedItem, 0, len(list.Results))
	for _, item := range list.Results {
		if normalized, ok := normalizeItem(item); ok {
			items = append(items, normalized)
		}
	}

	return items, list.Next != nil && *list.Next != "", nil
}

// SetInteraction creates (enabled) or removes (disabled) one viewer
// interaction on an entity. The token check runs before the request so a
// logged-out toggle never reaches the network.
func (c *Client) SetInteraction(ctx context.Context, resource, entityID string, kind models.InteractionKind, enabled bool) error {
	token, err := c.Tokens.AccessToken()
	if err != nil {
		return err
	}
	if token == "" {
		return ErrAuthRequired
	}

	method := http.MethodPost
	if !enabled {
		method = http.MethodDelete
	}

	url := fmt.Sprintf("%s/%s/%s/%s/", c.BaseURL, resource, entityID, kind)
	req, err := c.newRequest(ctx, method, url)
	if err != nil {
		return err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrAuthRequired
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &RequestError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return nil
}

// normalizeItem rejects entries the UI cannot render and fills defaults the
// backend is allowed to omit.
func normalizeItem(item models.FeedItem) (models.FeedItem, bool) {
	if item.ID == "" || len(item.Media) == 0 {
		return models.FeedItem{}, false
	}

	media := make([]models.MediaRef, 0, len(item.Media))
	for _, m := range item.Media {
		if m.URL == "" {
			continue
		}
		if m.Kind != models.MediaVideo && m.Kind != models.MediaImage {
			m.Kind = models.MediaImage
		}
		media = append(media, m)
	}
	if len(media) == 0 {
		return models.FeedItem{}, false
	}
	item.Media = media

	return item, true
}
