// Package stream relays controller views and action logs to an external
// renderer over a WebSocket.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/flanker-wargame/client/internal/channel"
	"github.com/flanker-wargame/client/internal/session"
	"github.com/flanker-wargame/client/pkg/core"
	"github.com/google/uuid"
)

// Config holds relay configuration.
type Config struct {
	URL    string
	APIKey string
}

// Relay pushes envelopes to the renderer. Sends are fire-and-forget; only
// the hello handshake waits for an ack.
type Relay struct {
	conn     *connection
	cfg      Config
	clientID string
	logger   *slog.Logger
}

// New creates a relay. Call Start to connect.
func New(cfg Config, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		conn:     newConnection(logger),
		cfg:      cfg,
		clientID: uuid.NewString(),
		logger:   logger,
	}
}

// ClientID identifies this relay to the renderer.
func (r *Relay) ClientID() string {
	return r.clientID
}

// Start connects and announces the route. The hello message is replayed
// after every reconnect.
func (r *Relay) Start(route session.Route) error {
	header := http.Header{}
	header.Set("X-Client-ID", r.clientID)
	if r.cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+r.cfg.APIKey)
	}
	if err := r.conn.dial(r.cfg.URL, header); err != nil {
		return err
	}

	data, err := marshalEnvelope(TypeHello, HelloPayload{
		ClientID:  r.clientID,
		SceneName: route.SceneName,
		GameID:    route.GameID,
	})
	if err != nil {
		return err
	}

	r.conn.mu.Lock()
	r.conn.cachedHello = data
	r.conn.mu.Unlock()

	return r.conn.sendAndWait(data, TypeHello, ackTimeout)
}

// Close flushes queued messages, says goodbye and disconnects.
func (r *Relay) Close() error {
	goodbye, err := marshalEnvelope(TypeGoodbye, nil)
	if err != nil {
		return err
	}
	return r.conn.close(goodbye)
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

func (r *Relay) send(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	r.conn.send(data)
	return nil
}

func (r *Relay) SendPlayerView(p PlayerViewPayload) error {
	return r.send(TypePlayerView, p)
}

func (r *Relay) SendEditorView(p EditorViewPayload) error {
	return r.send(TypeEditorView, p)
}

// SendActionLogs sends the log as a JSON array of discriminated entries.
func (r *Relay) SendActionLogs(logs []core.ActionLog) error {
	if logs == nil {
		logs = []core.ActionLog{}
	}
	return r.send(TypeActionLogs, logs)
}

// Forward relays every value received from recv until ctx ends or recv is
// closed. It blocks; run it in a goroutine.
func Forward[T any](ctx context.Context, recv channel.Receiver[T], send func(T) error, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-recv.Receive():
			if !ok {
				return
			}
			if err := send(v); err != nil {
				logger.Warn("stream relay failed", "error", err)
			}
		}
	}
}
