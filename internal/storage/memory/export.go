// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/flanker-wargame/client/internal/model/convert"
	"github.com/flanker-wargame/client/pkg/core"
)

// FormatVersion is bumped whenever JournalExport changes shape.
const FormatVersion = 1

// JournalExport is the root JSON structure of an exported game.
type JournalExport struct {
	FormatVersion int              `json:"formatVersion"`
	SceneName     string           `json:"sceneName"`
	GameID        int              `json:"gameId"`
	ExportedAt    time.Time        `json:"exportedAt"`
	Summary       Summary          `json:"summary"`
	Terrain       []core.Terrain   `json:"terrain"`
	ActionLogs    []core.ActionLog `json:"actionLogs"`
}

// Summary counts log entries by type and by primary outcome.
type Summary struct {
	Entries   int            `json:"entries"`
	ByType    map[string]int `json:"byType"`
	ByOutcome map[string]int `json:"byOutcome"`
	Final     *Snapshot      `json:"final,omitempty"`
}

// Snapshot is the condensed state after the last entry.
type Snapshot struct {
	ObjectiveState core.ObjectiveState `json:"objectiveState"`
	HasInitiative  bool                `json:"hasInitiative"`
	FriendlyActive int                 `json:"friendlyActive"`
	EnemyActive    int                 `json:"enemyActive"`
}

func summarize(logs []core.ActionLog) Summary {
	s := Summary{
		Entries:   len(logs),
		ByType:    make(map[string]int),
		ByOutcome: make(map[string]int),
	}
	for _, l := range logs {
		s.ByType[string(l.LogType())]++
		if o := convert.Outcome(l); o != "" {
			s.ByOutcome[o]++
		}
	}
	if len(logs) > 0 {
		last := logs[len(logs)-1].Snapshot()
		final := &Snapshot{ObjectiveState: last.ObjectiveState, HasInitiative: last.HasInitiative}
		for _, sq := range last.Squads {
			if sq.Status != core.StatusActive {
				continue
			}
			if sq.IsFriendly {
				final.FriendlyActive++
			} else {
				final.EnemyActive++
			}
		}
		s.Final = final
	}
	return s
}

func (b *Backend) buildExport(g *GameRecord) JournalExport {
	terrain := make([]core.Terrain, 0, len(g.Terrain))
	for _, t := range g.Terrain {
		terrain = append(terrain, t)
	}
	sort.Slice(terrain, func(i, j int) bool { return terrain[i].TerrainID < terrain[j].TerrainID })

	logs := g.ActionLogs
	if logs == nil {
		logs = []core.ActionLog{}
	}

	return JournalExport{
		FormatVersion: FormatVersion,
		SceneName:     g.Route.SceneName,
		GameID:        g.Route.GameID,
		ExportedAt:    b.now().UTC(),
		Summary:       summarize(logs),
		Terrain:       terrain,
		ActionLogs:    logs,
	}
}

var unsafeChars = strings.NewReplacer(" ", "_", ":", "_", "/", "_", "\\", "_")

// fileName builds "<scene>_<game>_<timestamp>.json[.gz]".
func (b *Backend) fileName(g *GameRecord) string {
	scene := unsafeChars.Replace(g.Route.SceneName)
	timestamp := g.UpdatedAt.UTC().Format("20060102_150405")
	name := fmt.Sprintf("%s_%d_%s.json", scene, g.Route.GameID, timestamp)
	if b.cfg.CompressOutput {
		name += ".gz"
	}
	return name
}

// exportAll writes one file per game. Caller holds b.mu.
func (b *Backend) exportAll() error {
	b.exported = nil
	if len(b.games) == 0 {
		return nil
	}

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, g := range b.games {
		outputPath := filepath.Join(b.cfg.OutputDir, b.fileName(g))
		export := b.buildExport(g)

		var err error
		if b.cfg.CompressOutput {
			err = writeGzipJSON(outputPath, export)
		} else {
			err = writeJSON(outputPath, export)
		}
		if err != nil {
			return fmt.Errorf("export %s: %w", g.Route, err)
		}
		b.exported = append(b.exported, outputPath)
	}
	sort.Strings(b.exported)
	return nil
}

func writeJSON(path string, data JournalExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data JournalExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}

// ReadExport loads a file written by the memory backend.
func ReadExport(path string) (JournalExport, error) {
	f, err := os.Open(path)
	if err != nil {
		return JournalExport{}, err
	}
	defer f.Close()

	var raw struct {
		JournalExport
		ActionLogs []json.RawMessage `json:"actionLogs"`
	}

	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return JournalExport{}, fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		err = json.NewDecoder(gz).Decode(&raw)
		if err != nil {
			return JournalExport{}, err
		}
	} else if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return JournalExport{}, err
	}

	out := raw.JournalExport
	out.ActionLogs = make([]core.ActionLog, 0, len(raw.ActionLogs))
	for i, msg := range raw.ActionLogs {
		l, err := core.DecodeActionLog(msg)
		if err != nil {
			return JournalExport{}, fmt.Errorf("entry %d: %w", i, err)
		}
		out.ActionLogs = append(out.ActionLogs, l)
	}
	return out, nil
}
