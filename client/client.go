// Package client talks to a preset device over its JSON HTTP API. A Client
// satisfies the backend interfaces of the store, the save coordinator and
// the pusher.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/asaidimu/go-presets/core/preset"
	"github.com/asaidimu/go-presets/core/schema"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// ErrUnexpectedStatus is wrapped by every StatusError.
var ErrUnexpectedStatus = errors.New("unexpected status")

// StatusError is returned when the device answers outside 2xx/3xx.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %d", ErrUnexpectedStatus, e.Code)
	}
	return fmt.Sprintf("%s %d: %s", ErrUnexpectedStatus, e.Code, e.Message)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient replaces the default client when set. Timeout is ignored
	// then.
	HTTPClient *http.Client
}

// DefaultConfig points at a device on the local machine.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8080",
		Timeout: 10 * time.Second,
	}
}

// Client is an HTTP client for one device.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *zap.Logger
}

// New creates a Client. A nil logger disables logging.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host are required", cfg.BaseURL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{base: base, http: hc, logger: logger}, nil
}

// HTTPClient returns the underlying client.
func (c *Client) HTTPClient() *http.Client { return c.http }

// ListPresets returns every stored preset keyed by id.
func (c *Client) ListPresets(ctx context.Context) (map[string]preset.RawPreset, error) {
	out := map[string]preset.RawPreset{}
	if err := c.do(ctx, http.MethodGet, "/list_presets", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	return out, nil
}

// PresetIDs returns the ids of the stored presets.
func (c *Client) PresetIDs(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.do(ctx, http.MethodGet, "/presets", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("list preset ids: %w", err)
	}
	return out, nil
}

// GetPreset fetches one preset.
func (c *Client) GetPreset(ctx context.Context, id string) (preset.RawPreset, error) {
	var out preset.RawPreset
	if err := c.do(ctx, http.MethodGet, "/presets", idQuery(id), nil, &out); err != nil {
		return preset.RawPreset{}, fmt.Errorf("get preset %q: %w", id, err)
	}
	if out.Scenes == nil {
		out.Scenes = []preset.Scene{}
	}
	return out, nil
}

// SavePreset stores raw under id, creating or replacing it.
func (c *Client) SavePreset(ctx context.Context, id string, raw preset.RawPreset) error {
	if err := c.do(ctx, http.MethodPost, "/preset", idQuery(id), raw, nil); err != nil {
		return fmt.Errorf("save preset %q: %w", id, err)
	}
	return nil
}

// AddPreset creates a new preset. The device refuses ids already in use.
func (c *Client) AddPreset(ctx context.Context, id string, raw preset.RawPreset) error {
	if err := c.do(ctx, http.MethodPost, "/add_preset", idQuery(id), raw, nil); err != nil {
		return fmt.Errorf("add preset %q: %w", id, err)
	}
	return nil
}

// DeletePreset removes a preset.
func (c *Client) DeletePreset(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/preset", idQuery(id), nil, nil); err != nil {
		return fmt.Errorf("delete preset %q: %w", id, err)
	}
	return nil
}

// ActivatePreset makes a stored preset the one the device runs.
func (c *Client) ActivatePreset(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodGet, "/set_preset", idQuery(id), nil, nil); err != nil {
		return fmt.Errorf("activate preset %q: %w", id, err)
	}
	return nil
}

// PushPreset sends an unsaved preset for the device to run.
func (c *Client) PushPreset(ctx context.Context, id string, raw preset.RawPreset) error {
	if err := c.do(ctx, http.MethodPost, "/set_preset", idQuery(id), raw, nil); err != nil {
		return fmt.Errorf("push preset %q: %w", id, err)
	}
	return nil
}

// ListScenes fetches the scene schema catalog.
func (c *Client) ListScenes(ctx context.Context) (schema.Catalog, error) {
	var out schema.Catalog
	if err := c.do(ctx, http.MethodGet, "/list_scenes", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	return out, nil
}

// ListProviders fetches the provider schema catalog.
func (c *Client) ListProviders(ctx context.Context) (schema.Catalog, error) {
	var out schema.Catalog
	if err := c.do(ctx, http.MethodGet, "/list_providers", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	return out, nil
}

func idQuery(id string) url.Values {
	return url.Values{"id": []string{id}}
}

// do sends a request with an optional JSON body and decodes a JSON reply
// into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body, out any) error {
	u := *c.base
	u.Path = c.base.Path + endpoint
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("Request failed", zap.String("method", method), zap.String("url", u.String()), zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug("Request done",
		zap.String("method", method),
		zap.String("url", u.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return statusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	e := &StatusError{Code: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var reply struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &reply) == nil && reply.Error != "" {
		e.Message = reply.Error
	} else {
		e.Message = strings.TrimSpace(string(data))
	}
	return e
}
