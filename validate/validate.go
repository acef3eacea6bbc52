// Command validate checks every rule-set file (.json, .yaml, .yml) in a
// directory, ../configs by default. For each file it checks:
//   - the rule-set schema and field constraints
//   - that a height win condition can be reached under the build cap
//   - that the opening player has at least one legal move or build
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/cubeclash/game/config"
	"github.com/wricardo/cubeclash/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) note(format string, args ...any) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

// validateConfig loads one rule-set file and checks that it is playable
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	rules, err := config.LoadFile(filePath)
	if err != nil {
		result.fail("%v", err)
		return result
	}
	result.note("Board %dx%d, directions: %s", rules.BoardSize, rules.BoardSize, strings.Join(rules.Directions, ", "))
	if n := len(rules.InitialCubes); n > 0 {
		result.note("%d initial cubes", n)
	}

	checkWinCondition(rules, &result)
	checkOpening(rules, &result)
	return result
}

// checkWinCondition rejects height goals that stacks can never support. A
// player standing on the tallest allowed stack is at height max_build_height.
func checkWinCondition(rules *engine.GameConfig, result *ValidationResult) {
	win := rules.WinCondition
	switch win.Type {
	case engine.WinHeight:
		if rules.MaxBuildHeight > 0 && win.Value > rules.MaxBuildHeight {
			result.fail("Height goal %d is unreachable: stacks stop below height %d", win.Value, rules.MaxBuildHeight)
			return
		}
		if rules.MaxClimb == 0 {
			result.fail("Height goal %d is unreachable: max_climb is 0", win.Value)
			return
		}
		result.note("Win: reach height %d", win.Value)
	case engine.WinMoveLimit:
		result.note("Win: highest player after %d moves", win.Value)
	default:
		result.note("Win: none (open-ended)")
	}
}

// checkOpening seats two players and makes sure the first one can act
func checkOpening(rules *engine.GameConfig, result *ValidationResult) {
	eng, err := engine.NewEngine(rules)
	if err != nil {
		result.fail("Engine rejected rule set: %v", err)
		return
	}
	for _, name := range []string{"first", "second"} {
		if _, err := eng.AddPlayer(name); err != nil {
			result.fail("Cannot seat players: %v", err)
			return
		}
	}
	if err := eng.StartGame(); err != nil {
		result.fail("Cannot start: %v", err)
		return
	}

	moves, err := eng.ProposeAction(engine.ActionMove, nil)
	if err != nil {
		result.fail("Cannot propose a move: %v", err)
		return
	}
	builds, err := eng.ProposeAction(engine.ActionBuild, nil)
	if err != nil {
		result.fail("Cannot propose a build: %v", err)
		return
	}
	if len(moves) == 0 && len(builds) == 0 {
		result.fail("Opening player is stuck: no legal move or build from the first corner")
		return
	}
	result.note("Opening: %d moves, %d builds", len(moves), len(builds))
}

// ruleFiles lists the rule-set files of dir in name order
func ruleFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := []string{}
	for _, entry := range entries {
		if !entry.IsDir() && config.IsRuleFile(entry.Name()) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func main() {
	configDir := "../configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	files, err := ruleFiles(configDir)
	if err != nil {
		fmt.Printf("Error finding rule sets: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No rule sets found in %s\n", configDir)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateConfig(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All rule sets are valid!")
	} else {
		fmt.Println("❌ Some rule sets have errors")
		os.Exit(1)
	}
}
