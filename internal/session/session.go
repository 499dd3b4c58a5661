package session

import (
	"fmt"
	"net/url"
	"sync"
)

// DefaultScene is the scene used before a route has been set.
const DefaultScene = "default"

// Route identifies one game of one scene on the backend.
type Route struct {
	SceneName string
	GameID    int
}

// String renders the route as it appears in API paths.
func (r Route) String() string {
	return fmt.Sprintf("%s/%d", url.PathEscape(r.SceneName), r.GameID)
}

// Context holds the route the client is currently bound to
type Context struct {
	mu    sync.RWMutex
	route Route
}

// NewContext creates a Context bound to sceneName/gameID.
// An empty scene name falls back to DefaultScene.
func NewContext(sceneName string, gameID int) *Context {
	if sceneName == "" {
		sceneName = DefaultScene
	}
	return &Context{route: Route{SceneName: sceneName, GameID: gameID}}
}

// Route returns the current route
func (c *Context) Route() Route {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.route
}

// SetRoute rebinds the context, e.g. after saving a scene under a new name
func (c *Context) SetRoute(r Route) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.route = r
}
