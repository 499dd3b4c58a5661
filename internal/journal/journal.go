// Package journal archives the server's action log and terrain of the
// current game into a storage backend.
package journal

import (
	"context"
	"fmt"

	"github.com/flanker-wargame/client/internal/dispatcher"
	"github.com/flanker-wargame/client/internal/gateway"
	"github.com/flanker-wargame/client/internal/session"
	"github.com/flanker-wargame/client/internal/storage"
	"github.com/flanker-wargame/client/pkg/core"
	"golang.org/x/sync/errgroup"
)

// Result describes one archive run.
type Result struct {
	Route   session.Route
	Entries int
	Terrain int
}

// Recorder fetches and stores journals on its own serial queue, so archives
// of the same game never interleave.
type Recorder struct {
	gw      gateway.Gateway
	sess    *session.Context
	backend storage.Backend
	queue   *dispatcher.Dispatcher
}

// New creates a Recorder. The backend must already be initialized.
func New(gw gateway.Gateway, sess *session.Context, backend storage.Backend, logger dispatcher.Logger) (*Recorder, error) {
	q, err := dispatcher.New("journal", logger, dispatcher.Buffered(8), dispatcher.Logged())
	if err != nil {
		return nil, err
	}
	return &Recorder{gw: gw, sess: sess, backend: backend, queue: q}, nil
}

// Archive records the current game and waits for it.
func (r *Recorder) Archive(ctx context.Context) (Result, error) {
	var res Result
	err := r.queue.Do(ctx, "archive", func(ctx context.Context) error {
		var err error
		res, err = r.archive(ctx)
		return err
	})
	return res, err
}

// ArchiveAsync queues an archive of the current game; failures are logged.
func (r *Recorder) ArchiveAsync() error {
	return r.queue.Go("archive", func(ctx context.Context) error {
		_, err := r.archive(ctx)
		return err
	})
}

func (r *Recorder) archive(ctx context.Context) (Result, error) {
	// snapshot the route before fetching, the gateway reads it per request
	route := r.sess.Route()

	var (
		logs    []core.ActionLog
		terrain []core.Terrain
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		logs, err = r.gw.FetchLogs(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		terrain, err = r.gw.FetchTerrain(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("archive %s: %w", route, err)
	}

	if err := r.backend.RecordTerrain(route, terrain); err != nil {
		return Result{}, fmt.Errorf("archive %s: record terrain: %w", route, err)
	}
	if err := r.backend.RecordActionLogs(route, logs); err != nil {
		return Result{}, fmt.Errorf("archive %s: record action logs: %w", route, err)
	}
	return Result{Route: route, Entries: len(logs), Terrain: len(terrain)}, nil
}

// Close drains pending archives then closes the backend.
func (r *Recorder) Close() error {
	r.queue.Close()
	return r.backend.Close()
}
