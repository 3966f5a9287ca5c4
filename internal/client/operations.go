package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/starford/qarchive/internal/api"
	"github.com/starford/qarchive/internal/models"
	"github.com/starford/qarchive/internal/retry"
	"github.com/starford/qarchive/internal/search"
)

func esc(s string) string { return url.PathEscape(s) }

// LoadSettings returns the server's persisted preferences.
func (c *Client) LoadSettings(ctx context.Context) (models.Settings, error) {
	var out models.Settings
	err := c.do(ctx, request{class: retry.Safe, method: http.MethodGet, path: "/settings", out: &out})
	return out, err
}

// SaveSettings stores preferences and switches the server's data root.
func (c *Client) SaveSettings(ctx context.Context, s models.Settings) (models.Settings, error) {
	var out models.Settings
	err := c.do(ctx, request{class: retry.Idempotent, method: http.MethodPut, path: "/settings", in: s, out: &out})
	return out, err
}

// PickDirectory asks the server host for a directory. ok is false when the
// picker was cancelled.
func (c *Client) PickDirectory(ctx context.Context) (path string, ok bool, err error) {
	var out api.PickDirectoryResponse
	err = c.do(ctx, request{class: retry.NonIdempotent, method: http.MethodPost, path: "/settings/pick-directory", out: &out})
	if err != nil || out.Path == nil {
		return "", false, err
	}
	return *out.Path, true, nil
}

// LoadThreads returns the thread index in file order.
func (c *Client) LoadThreads(ctx context.Context) (*models.ThreadMap, error) {
	out := models.NewThreadMap()
	if err := c.do(ctx, request{class: retry.Safe, method: http.MethodGet, path: "/threads", out: out}); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveThreads replaces the whole thread index.
func (c *Client) SaveThreads(ctx context.Context, threads *models.ThreadMap) error {
	return c.do(ctx, request{class: retry.Idempotent, method: http.MethodPut, path: "/threads", in: threads})
}

// CreateThread creates an empty thread and returns its id.
func (c *Client) CreateThread(ctx context.Context, name string) (string, error) {
	var out api.CreateThreadResponse
	err := c.do(ctx, request{
		class: retry.NonIdempotent, method: http.MethodPost, path: "/threads",
		in: api.CreateThreadRequest{Name: name}, out: &out,
	})
	return out.ID, err
}

// RenameThread renames a thread. Unknown ids are a no-op.
func (c *Client) RenameThread(ctx context.Context, id, name string) error {
	return c.do(ctx, request{
		class: retry.Idempotent, method: http.MethodPatch, path: "/threads/" + esc(id),
		in: api.RenameThreadRequest{Name: name},
	})
}

// DeleteThread removes a thread. Its pairs are kept.
func (c *Client) DeleteThread(ctx context.Context, id string) error {
	return c.do(ctx, request{class: retry.Idempotent, method: http.MethodDelete, path: "/threads/" + esc(id)})
}

// AddToThread appends pairID unless it is already a member.
func (c *Client) AddToThread(ctx context.Context, id, pairID string) error {
	return c.do(ctx, request{
		class: retry.Idempotent, method: http.MethodPost, path: "/threads/" + esc(id) + "/items",
		in: api.AddItemRequest{PairID: pairID},
	})
}

// RemoveFromThread drops pairID from the thread.
func (c *Client) RemoveFromThread(ctx context.Context, id, pairID string) error {
	return c.do(ctx, request{
		class: retry.Idempotent, method: http.MethodDelete, path: "/threads/" + esc(id) + "/items/" + esc(pairID),
	})
}

// MoveInThread swaps pairID with its neighbour: -1 moves up, 1 moves down.
func (c *Client) MoveInThread(ctx context.Context, id, pairID string, direction int) error {
	return c.do(ctx, request{
		class: retry.NonIdempotent, method: http.MethodPost,
		path: "/threads/" + esc(id) + "/items/" + esc(pairID) + "/move",
		in:   api.MoveItemRequest{Direction: direction},
	})
}

// ListAll returns every pair keyed by id in archive order.
func (c *Client) ListAll(ctx context.Context) (*models.PairMap, error) {
	out := models.NewPairMap()
	if err := c.do(ctx, request{class: retry.Safe, method: http.MethodGet, path: "/qa", out: out}); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches one pair. found is false for unknown ids.
func (c *Client) Get(ctx context.Context, id string) (pair models.QAPair, found bool, err error) {
	err = c.do(ctx, request{class: retry.Safe, method: http.MethodGet, path: "/qa/" + esc(id), out: &pair})
	if isNotFound(err) {
		return models.QAPair{}, false, nil
	}
	if err != nil {
		return models.QAPair{}, false, err
	}
	return pair, true, nil
}

// Create archives a new pair.
func (c *Client) Create(ctx context.Context, data models.QACreateData) (models.QAPair, error) {
	var out models.QAPair
	err := c.do(ctx, request{class: retry.NonIdempotent, method: http.MethodPost, path: "/qa", in: data, out: &out})
	return out, err
}

// Update merges data into a pair. found is false for unknown ids.
func (c *Client) Update(ctx context.Context, id string, data models.QAUpdateData) (pair models.QAPair, found bool, err error) {
	err = c.do(ctx, request{class: retry.NonIdempotent, method: http.MethodPatch, path: "/qa/" + esc(id), in: data, out: &pair})
	if isNotFound(err) {
		return models.QAPair{}, false, nil
	}
	if err != nil {
		return models.QAPair{}, false, err
	}
	return pair, true, nil
}

// Delete removes a pair. Unknown ids succeed.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, request{class: retry.Idempotent, method: http.MethodDelete, path: "/qa/" + esc(id)})
}

// Search returns matching pair ids in archive order.
func (c *Client) Search(ctx context.Context, query string, mode search.Mode) ([]string, error) {
	q := url.Values{}
	q.Set("q", query)
	if mode != "" {
		q.Set("mode", string(mode))
	}
	var out api.SearchResponse
	if err := c.do(ctx, request{class: retry.Safe, method: http.MethodGet, path: "/search?" + q.Encode(), out: &out}); err != nil {
		return nil, err
	}
	return out.IDs, nil
}
