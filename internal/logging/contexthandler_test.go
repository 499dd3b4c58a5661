package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextHandler_CtxAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := NewContextHandler(slog.NewTextHandler(&buf, nil), func() []slog.Attr {
		return []slog.Attr{slog.String("scene", "ridge")}
	})
	logger := slog.New(h)

	ctx := WithAttrs(context.Background(), slog.String("cmd", "move"))
	ctx = WithAttrs(ctx, slog.Int("unitId", 4))
	logger.InfoContext(ctx, "dispatched")

	out := buf.String()
	assert.Contains(t, out, "scene=ridge")
	assert.Contains(t, out, "cmd=move")
	assert.Contains(t, out, "unitId=4")

	buf.Reset()
	logger.Info("plain")
	assert.NotContains(t, buf.String(), "cmd=")
}

func TestContextHandler_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	h := NewContextHandler(slog.NewTextHandler(&buf, nil), nil)

	assert.Equal(t, h, h.WithGroup(""))
	slog.New(h.WithGroup("grp").WithAttrs([]slog.Attr{slog.String("k", "v")})).Info("grouped")
	assert.Contains(t, buf.String(), "grp.k=v")
}
