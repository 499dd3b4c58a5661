package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/flanker-wargame/client/internal/config"
	"github.com/flanker-wargame/client/internal/journal"
	"github.com/flanker-wargame/client/internal/logging"
	"github.com/flanker-wargame/client/internal/model"
	"github.com/flanker-wargame/client/internal/model/convert"
	"github.com/flanker-wargame/client/internal/session"
	"github.com/flanker-wargame/client/internal/storage"
	"github.com/flanker-wargame/client/pkg/core"

	"github.com/google/uuid"
)

// newRecorder creates and initializes the configured storage backend and
// wraps it in a journal recorder.
func newRecorder() (*journal.Recorder, storage.Backend, error) {
	storageCfg := config.GetStorageConfig()
	backend, err := storage.NewBackend(storageCfg, storage.Dependencies{
		Logger: JournalLogger,
		Info: model.JournalInfo{
			ClientID:      uuid.NewString(),
			ClientVersion: Version,
			ServerURL:     config.GetGatewayConfig().ServerURL,
		},
		Influx: config.GetInfluxConfig(),
	})
	if err != nil {
		return nil, nil, err
	}
	if err := backend.Init(); err != nil {
		return nil, nil, fmt.Errorf("failed to init %s storage: %w", storageCfg.Type, err)
	}
	Logger.Info("Storage backend initialized", "type", storageCfg.Type)

	rec, err := journal.New(Gateway, Session, backend, logging.NewDispatcherLogger(JournalLogger))
	if err != nil {
		_ = backend.Close()
		return nil, nil, err
	}
	return rec, backend, nil
}

// closeRecorder closes the recorder and reports files the backend wrote.
func closeRecorder(rec *journal.Recorder, backend storage.Backend, out io.Writer) error {
	err := rec.Close()
	if exp, ok := backend.(storage.Exporter); ok {
		for _, f := range exp.ExportedFiles() {
			fmt.Fprintf(out, "journal written to %s\n", f)
		}
	}
	return err
}

func archiveJournal(ctx context.Context, out io.Writer) error {
	rec, backend, err := newRecorder()
	if err != nil {
		return err
	}
	res, err := rec.Archive(ctx)
	if err == nil {
		fmt.Fprintf(out, "archived %s: %d entries, %d terrain features\n", res.Route, res.Entries, res.Terrain)
	}
	if cerr := closeRecorder(rec, backend, out); err == nil {
		err = cerr
	}
	return err
}

func printLogs(ctx context.Context, out io.Writer) error {
	logs, err := Gateway.FetchLogs(ctx)
	if err != nil {
		return err
	}
	writeLogs(out, logs)
	return nil
}

func writeLogs(out io.Writer, logs []core.ActionLog) {
	if len(logs) == 0 {
		fmt.Fprintln(out, "no actions yet")
		return
	}
	for i, l := range logs {
		fmt.Fprintf(out, "%3d %s\n", i, describeLog(l))
	}
}

func describeLog(l core.ActionLog) string {
	var s string
	switch v := l.(type) {
	case core.MoveLog:
		s = fmt.Sprintf("unit %d moved to (%.1f, %.1f)", v.Body.UnitID, v.Body.To.X, v.Body.To.Y)
	case core.FireLog:
		s = fmt.Sprintf("unit %d fired at unit %d", v.Body.UnitID, v.Body.TargetID)
	case core.AssaultLog:
		s = fmt.Sprintf("unit %d assaulted unit %d", v.Body.UnitID, v.Body.TargetID)
	default:
		s = string(l.LogType())
	}
	if o := convert.Outcome(l); o != "" {
		s += ": " + o
	}
	if o := convert.ReactiveOutcome(l); o != "" {
		s += " (reactive fire: " + o + ")"
	}
	return s
}

// saveScene stores the game as newScene and rebinds the session to it.
func saveScene(ctx context.Context, newScene string, out io.Writer) error {
	newScene = strings.TrimSpace(newScene)
	if err := Gateway.SaveScene(ctx, newScene); err != nil {
		return err
	}
	Session.SetRoute(session.Route{SceneName: newScene, GameID: Session.Route().GameID})
	fmt.Fprintf(out, "saved as scene %s\n", newScene)
	return nil
}
