// Command analyze prints quick, human-readable summaries of saved game
// snapshots. It reports the phase, the players and their heights, the tallest
// stack and how far each player stands from it, and per-player action counts
// from the move history. Compressed (.json.zst) snapshots are read as well.
//
// Usage:
//
//	analyze [snapshot ...]
//
// Without arguments every snapshot under ./sessions is analyzed.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/wricardo/cubeclash/game/engine"
	"github.com/wricardo/cubeclash/game/session"
)

// PlayerSummary describes one player in a snapshot
type PlayerSummary struct {
	Name           string
	Color          string
	Position       engine.Position
	DistanceToPeak int
	Actions        map[engine.ActionType]int
}

// Summary is the analysis of a single snapshot
type Summary struct {
	Phase         string
	CurrentPlayer int
	Cubes         int
	Peak          engine.Position
	PeakSize      int
	HasPeak       bool
	Moves         int
	Leader        string
	Players       []PlayerSummary
}

// Summarize derives the analysis figures from a snapshot
func Summarize(snap engine.Snapshot) Summary {
	data := snap.StateData
	s := Summary{
		Phase:         snap.CurrentState,
		CurrentPlayer: data.CurrentPlayerID,
		Moves:         len(data.MoveHistory),
	}
	for _, n := range engine.StackHeights(data.Board) {
		s.Cubes += n
	}
	s.Peak, s.PeakSize, s.HasPeak = engine.TallestStack(data.Board)

	counts := engine.ActionCounts(data.MoveHistory)
	best := -1
	for _, p := range data.Players {
		ps := PlayerSummary{
			Name:     p.Name,
			Color:    p.Color,
			Position: p.Position,
			Actions:  counts[p.ID],
		}
		if ps.Actions == nil {
			ps.Actions = map[engine.ActionType]int{}
		}
		if s.HasPeak {
			ps.DistanceToPeak = engine.ManhattanDistance(p.Position, s.Peak)
		}
		if p.Position.Y > best {
			best, s.Leader = p.Position.Y, p.Name
		}
		s.Players = append(s.Players, ps)
	}
	return s
}

func analyzeSnapshot(path string, w io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading file: %w", err)
	}
	snap, err := session.DecodeSnapshot(data)
	if err != nil {
		return fmt.Errorf("error decoding snapshot: %w", err)
	}
	report(Summarize(snap), w)
	return nil
}

func report(s Summary, w io.Writer) {
	fmt.Fprintf(w, "Phase: %s\n", s.Phase)
	fmt.Fprintf(w, "Players: %d (current: %d)\n", len(s.Players), s.CurrentPlayer)
	fmt.Fprintf(w, "Cubes on board: %d\n", s.Cubes)
	fmt.Fprintf(w, "Moves recorded: %d\n", s.Moves)
	if s.HasPeak {
		fmt.Fprintf(w, "Tallest stack: %d cubes at (%d, %d)\n", s.PeakSize, s.Peak.X, s.Peak.Z)
	} else {
		fmt.Fprintln(w, "Tallest stack: none")
	}
	if s.Leader != "" {
		fmt.Fprintf(w, "Highest player: %s\n", s.Leader)
	}

	idle := 0
	for _, p := range s.Players {
		fmt.Fprintf(w, "  %-10s %-6s at (%d, %d, %d)", p.Name, p.Color, p.Position.X, p.Position.Y, p.Position.Z)
		if s.HasPeak {
			fmt.Fprintf(w, " %d from peak", p.DistanceToPeak)
		}
		fmt.Fprintf(w, " | moves %d, builds %d, rolls %d\n",
			p.Actions[engine.ActionMove], p.Actions[engine.ActionBuild], p.Actions[engine.ActionRoll])
		if len(p.Actions) == 0 {
			idle++
		}
	}

	if idle > 0 && s.Moves > 0 {
		fmt.Fprintf(w, "⚠️  %d players have not acted yet\n", idle)
	} else if s.Moves > 0 {
		fmt.Fprintln(w, "✅ Every player has acted")
	}
}

// snapshotFiles finds every stored slot below dir
func snapshotFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*/slots/*.json", "*/slots/*.json.zst"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

func main() {
	files := os.Args[1:]
	if len(files) == 0 {
		var err error
		files, err = snapshotFiles("sessions")
		if err != nil {
			fmt.Printf("Error finding snapshots: %v\n", err)
			os.Exit(1)
		}
	}

	failed := false
	for _, file := range files {
		fmt.Printf("\n=== Analyzing %s ===\n", file)
		if err := analyzeSnapshot(file, os.Stdout); err != nil {
			fmt.Println(err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}
