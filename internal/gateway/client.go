package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/flanker-wargame/client/internal/session"
	"github.com/flanker-wargame/client/pkg/core"
	"github.com/google/uuid"
)

const (
	// DefaultTimeout bounds a single request unless overridden.
	DefaultTimeout = 10 * time.Second

	// maxBodySize caps how much of a response is read.
	maxBodySize = 8 << 20
)

// Client talks to the game server REST API.
type Client struct {
	baseURL    string
	apiKey     string
	session    *session.Context
	httpClient *http.Client
}

var _ Gateway = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides DefaultTimeout. Zero disables the client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a client bound to sess. Every call resolves the route at call
// time, so rebinding the session redirects subsequent requests.
func New(baseURL, apiKey string, sess *session.Context, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		session:    sess,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Route returns the route the next request will target.
func (c *Client) Route() session.Route {
	return c.session.Route()
}

// Healthcheck checks that the game server answers.
func (c *Client) Healthcheck(ctx context.Context) error {
	_, err := c.send(ctx, http.MethodGet, "/openapi.json", nil)
	return err
}

func (c *Client) FetchTerrain(ctx context.Context) ([]core.Terrain, error) {
	var terrain []core.Terrain
	if err := c.call(ctx, http.MethodGet, "terrain", nil, &terrain); err != nil {
		return nil, err
	}
	return terrain, nil
}

func (c *Client) UpdateTerrain(ctx context.Context, t core.Terrain) error {
	return c.call(ctx, http.MethodPut, "terrain", t, nil)
}

func (c *Client) CreateTerrain(ctx context.Context, t core.Terrain) error {
	return c.call(ctx, http.MethodPost, "terrain", t, nil)
}

func (c *Client) DeleteTerrain(ctx context.Context, terrainID int) error {
	return c.call(ctx, http.MethodDelete, path.Join("terrain", strconv.Itoa(terrainID)), nil, nil)
}

func (c *Client) FetchUnitState(ctx context.Context) (core.UnitsViewState, error) {
	var v core.UnitsViewState
	err := c.call(ctx, http.MethodGet, "units", nil, &v)
	return v, err
}

func (c *Client) DispatchMove(ctx context.Context, unitID int, to core.Vec2) (core.UnitsViewState, error) {
	var v core.UnitsViewState
	err := c.call(ctx, http.MethodPost, "move", core.MoveRequest{UnitID: unitID, To: to}, &v)
	return v, err
}

func (c *Client) DispatchFire(ctx context.Context, unitID, targetID int) (core.UnitsViewState, error) {
	var v core.UnitsViewState
	err := c.call(ctx, http.MethodPost, "fire", core.TargetRequest{UnitID: unitID, TargetID: targetID}, &v)
	return v, err
}

func (c *Client) DispatchAssault(ctx context.Context, unitID, targetID int) (core.UnitsViewState, error) {
	var v core.UnitsViewState
	err := c.call(ctx, http.MethodPost, "assault", core.TargetRequest{UnitID: unitID, TargetID: targetID}, &v)
	return v, err
}

func (c *Client) DispatchWaypoints(ctx context.Context, w core.Waypoints) error {
	return c.call(ctx, http.MethodPost, "ai-config", w, nil)
}

func (c *Client) FetchLogs(ctx context.Context) ([]core.ActionLog, error) {
	data, err := c.send(ctx, http.MethodGet, c.routePath("logs"), nil)
	if err != nil {
		return nil, err
	}
	logs, err := core.DecodeActionLogs(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode logs: %w", err)
	}
	return logs, nil
}

// SaveScene stores the current game on the server as a new scene.
func (c *Client) SaveScene(ctx context.Context, newScene string) error {
	switch newScene {
	case "":
		return fmt.Errorf("scene name is required")
	case ".", "..":
		return fmt.Errorf("invalid scene name %q", newScene)
	}
	// escaped like session.Route so the rebound route addresses the same scene
	return c.call(ctx, http.MethodPost, "save/"+url.PathEscape(newScene), nil, nil)
}

// PlayAI asks the server to play the AI faction's turn.
func (c *Client) PlayAI(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "ai-play", nil, nil)
}

func (c *Client) routePath(elem string) string {
	return "/api/" + c.session.Route().String() + "/" + elem
}

// call sends body as JSON to a route-relative endpoint and decodes the
// response into out when out is non-nil.
func (c *Client) call(ctx context.Context, method, elem string, body, out any) error {
	p := c.routePath(elem)
	data, err := c.send(ctx, method, p, body)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, p, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, p string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+p, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrUnreachable, method, p, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s %s response: %w", method, p, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			Method:     method,
			Path:       p,
			StatusCode: resp.StatusCode,
			RequestID:  requestID,
			Body:       data,
		}
	}
	return data, nil
}
