package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/flanker-wargame/client/internal/config"
	"github.com/flanker-wargame/client/internal/editor"
	"github.com/flanker-wargame/client/internal/player"
	"github.com/flanker-wargame/client/internal/stream"
	"github.com/flanker-wargame/client/pkg/core"
)

var errQuit = errors.New("quit")

// aiPlayer is the part of the gateway client the play REPL needs beyond
// gateway.Gateway.
type aiPlayer interface {
	PlayAI(ctx context.Context) error
}

// repl reads commands from in until EOF, quit or ctx ends. Command errors
// are printed and do not stop the loop.
func repl(ctx context.Context, in io.Reader, out io.Writer, prompt string, handle func(cmd string, args []string) error) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		err := handle(strings.ToLower(fields[0]), fields[1:])
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}

func parseInt(args []string, i int, name string) (int, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("missing %s", name)
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, args[i])
	}
	return n, nil
}

func parseFloat(args []string, i int, name string) (float64, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("missing %s", name)
	}
	f, err := strconv.ParseFloat(args[i], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, args[i])
	}
	return f, nil
}

func parseVec(args []string, i int) (core.Vec2, error) {
	x, err := parseFloat(args, i, "x")
	if err != nil {
		return core.Vec2{}, err
	}
	y, err := parseFloat(args, i+1, "y")
	if err != nil {
		return core.Vec2{}, err
	}
	return core.Vec2{X: x, Y: y}, nil
}

// startRelay connects to the renderer when streaming is enabled. A nil relay
// with a nil error means streaming is off.
func startRelay() (*stream.Relay, error) {
	streamCfg := config.GetStreamConfig()
	if !streamCfg.Enabled {
		return nil, nil
	}
	relay := stream.New(stream.Config{
		URL:    streamCfg.URL,
		APIKey: config.GetGatewayConfig().APIKey,
	}, Logger)
	if err := relay.Start(Session.Route()); err != nil {
		return nil, fmt.Errorf("failed to start stream relay: %w", err)
	}
	Logger.Info("Stream relay connected", "url", streamCfg.URL, "clientId", relay.ClientID())
	return relay, nil
}

func runPlay(ctx context.Context, in io.Reader, out io.Writer) error {
	c, err := player.New(Gateway, player.WithLogger(Logger))
	if err != nil {
		return err
	}
	defer c.Close()

	relay, err := startRelay()
	if err != nil {
		return err
	}
	if relay != nil {
		defer relay.Close()
		recv, cancel := c.Subscribe(16)
		defer cancel()
		go stream.Forward(ctx, recv, func(v player.View) error {
			return relay.SendPlayerView(stream.NewPlayerViewPayload(v))
		}, Logger)
	}

	if err := c.Initialize(ctx); err != nil {
		return err
	}
	printPlayerStatus(out, c)
	return playREPL(ctx, c, Gateway, relay, in, out)
}

// playREPL drives a player controller from text commands. ai and relay may
// be nil.
func playREPL(ctx context.Context, c *player.Controller, ai aiPlayer, relay *stream.Relay, in io.Reader, out io.Writer) error {
	return repl(ctx, in, out, "play> ", func(cmd string, args []string) error {
		switch cmd {
		case "select":
			id, err := parseInt(args, 0, "unit id")
			if err != nil {
				return err
			}
			c.SelectUnit(id)
		case "move":
			to, err := parseVec(args, 0)
			if err != nil {
				return err
			}
			c.SetMoveMarker(to)
			if !c.IsMoveActionValid() {
				return fmt.Errorf("move not allowed in state %s", c.State().Name())
			}
			if err := c.MoveAction(ctx); err != nil {
				return err
			}
		case "target":
			id, err := parseInt(args, 0, "unit id")
			if err != nil {
				return err
			}
			target, ok := c.UnitState().FindSquad(id)
			if !ok {
				return fmt.Errorf("unknown unit %d", id)
			}
			c.SetAttackMarker(target)
		case "fire":
			if !c.IsFireActionValid() {
				return fmt.Errorf("fire not allowed in state %s", c.State().Name())
			}
			if err := c.FireAction(ctx); err != nil {
				return err
			}
		case "assault":
			if !c.IsAssaultActionValid() {
				return fmt.Errorf("assault not allowed in state %s", c.State().Name())
			}
			if err := c.AssaultAction(ctx); err != nil {
				return err
			}
		case "cancel":
			c.CloseSelection()
		case "refresh":
			if err := c.Initialize(ctx); err != nil {
				return err
			}
		case "status":
		case "logs":
			logs, err := c.RefreshLogs(ctx)
			if err != nil {
				return err
			}
			writeLogs(out, logs)
			if relay != nil {
				return relay.SendActionLogs(logs)
			}
			return nil
		case "ai-play":
			if ai == nil {
				return errors.New("ai-play is not available")
			}
			if err := ai.PlayAI(ctx); err != nil {
				return err
			}
			if err := c.Initialize(ctx); err != nil {
				return err
			}
		case "quit", "exit":
			return errQuit
		default:
			return fmt.Errorf("unknown command %q", cmd)
		}
		printPlayerStatus(out, c)
		return nil
	})
}

func printPlayerStatus(out io.Writer, c *player.Controller) {
	v := c.View()
	fmt.Fprintf(out, "state: %s", v.State.Name())
	switch s := v.State.(type) {
	case player.Selected:
		fmt.Fprintf(out, " unit=%d", s.Unit.UnitID)
	case player.MoveMarked:
		fmt.Fprintf(out, " unit=%d to=(%.1f, %.1f)", s.Unit.UnitID, s.Marker.X, s.Marker.Y)
	case player.AttackMarked:
		fmt.Fprintf(out, " unit=%d target=%d", s.Unit.UnitID, s.Target.UnitID)
	}
	fmt.Fprintf(out, " initiative=%t objective=%s\n", v.Units.HasInitiative, v.Units.ObjectiveState)
	for _, s := range v.Units.Squads {
		marker := " "
		if s.IsSelected {
			marker = "*"
		}
		side := "enemy"
		if s.IsFriendly {
			side = "friendly"
		}
		fmt.Fprintf(out, " %s %3d %-8s %-10s (%.1f, %.1f)\n", marker, s.UnitID, side, s.Status, s.Position.X, s.Position.Y)
	}
}

func runEdit(ctx context.Context, in io.Reader, out io.Writer) error {
	c, err := editor.New(Gateway, editor.WithLogger(Logger))
	if err != nil {
		return err
	}
	defer c.Close()

	relay, err := startRelay()
	if err != nil {
		return err
	}
	if relay != nil {
		defer relay.Close()
		recv, cancel := c.Subscribe(16)
		defer cancel()
		go stream.Forward(ctx, recv, func(v editor.View) error {
			return relay.SendEditorView(stream.NewEditorViewPayload(v))
		}, Logger)
	}

	c.RefreshTerrain()
	if err := c.Wait(ctx); err != nil {
		return err
	}
	printEditorStatus(out, c)
	return editREPL(ctx, c, in, out)
}

// editREPL drives an editor controller from text commands. Queued calls are
// awaited before the status is printed so output follows input order.
func editREPL(ctx context.Context, c *editor.Controller, in io.Reader, out io.Writer) error {
	return repl(ctx, in, out, "edit> ", func(cmd string, args []string) error {
		switch cmd {
		case "refresh":
			c.RefreshTerrain()
		case "select":
			id, err := parseInt(args, 0, "terrain id")
			if err != nil {
				return err
			}
			t, ok := core.FindTerrain(c.Terrain(), id)
			if !ok {
				return fmt.Errorf("unknown terrain %d", id)
			}
			c.SelectTerrain(t)
		case "pick":
			p, err := parseVec(args, 0)
			if err != nil {
				return err
			}
			if !c.SelectAt(p) {
				return fmt.Errorf("no terrain at (%.1f, %.1f)", p.X, p.Y)
			}
		case "position":
			p, err := parseVec(args, 0)
			if err != nil {
				return err
			}
			if !c.EditSelected(func(t *core.Terrain) { t.Position = p }) {
				return errors.New("no terrain selected")
			}
		case "rotate":
			deg, err := parseFloat(args, 0, "degrees")
			if err != nil {
				return err
			}
			if !c.EditSelected(func(t *core.Terrain) { t.Degrees = deg }) {
				return errors.New("no terrain selected")
			}
		case "type":
			if len(args) == 0 {
				return errors.New("missing terrain type")
			}
			tt := core.TerrainType(strings.ToUpper(args[0]))
			if !tt.Valid() {
				return fmt.Errorf("unknown terrain type %q", args[0])
			}
			if !c.EditSelected(func(t *core.Terrain) { t.TerrainType = tt }) {
				return errors.New("no terrain selected")
			}
		case "update":
			if err := c.UpdateTerrain(ctx); err != nil {
				return err
			}
		case "delete":
			if err := c.DeleteTerrain(ctx); err != nil {
				return err
			}
			c.Reset()
			c.RefreshTerrain()
		case "draw":
			c.DrawMode()
		case "vertex":
			p, err := parseVec(args, 0)
			if err != nil {
				return err
			}
			c.AddVertex(p)
		case "finish":
			if err := c.FinishDraw(ctx); err != nil {
				return err
			}
		case "waypoints":
			if len(args) == 0 {
				return errors.New("missing faction")
			}
			f, err := core.ParseFaction(args[0])
			if err != nil {
				return err
			}
			c.WaypointsMode(f)
		case "point":
			p, err := parseVec(args, 0)
			if err != nil {
				return err
			}
			c.AddWaypoint(p)
		case "commit":
			if err := c.UpdateWaypoints(ctx); err != nil {
				return err
			}
		case "reset":
			c.Reset()
		case "status":
		case "quit", "exit":
			return errQuit
		default:
			return fmt.Errorf("unknown command %q", cmd)
		}
		if err := c.Wait(ctx); err != nil {
			return err
		}
		printEditorStatus(out, c)
		return nil
	})
}

func printEditorStatus(out io.Writer, c *editor.Controller) {
	v := c.View()
	fmt.Fprintf(out, "state: %s", v.State.Name())
	switch s := v.State.(type) {
	case editor.Selected:
		t := s.Terrain
		fmt.Fprintf(out, " terrain=%d type=%s at=(%.1f, %.1f) degrees=%.1f", t.TerrainID, t.TerrainType, t.Position.X, t.Position.Y, t.Degrees)
	case editor.Draw:
		fmt.Fprintf(out, " vertices=%d", len(s.Polygon))
	case editor.DrawWaypoints:
		fmt.Fprintf(out, " faction=%s points=%d", s.Waypoints.Faction, len(s.Waypoints.Points))
	}
	fmt.Fprintf(out, " terrain=%d\n", len(v.Terrain))
}
