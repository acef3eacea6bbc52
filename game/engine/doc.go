// Package engine provides the core rules of the CubeClash board game.
//
// The engine package implements the game mechanics including:
//   - A sparse board where each cell holds a stack of cubes and players
//   - Move and build legality with climb, descend and support rules
//   - The pending-action lifecycle (propose, validate, commit, clear)
//   - Turn rotation and per-turn capabilities
//   - Dice rolls with grapple and wind effects
//   - The Setup, Playing and GameOver phases with snapshot save and load
//
// Core Types:
//
// Board is the spatial model and never checks legality. MoveStrategy and
// BuildStrategy compute and validate targets for their action type. Ledger
// holds the roster and whose turn it is. Machine owns one game session and
// is the only thing that mutates the board. GameEngine wraps a Machine and
// an ActionManager behind the Engine interface used by transports.
//
// Usage:
//
//	eng, err := engine.NewEngine(engine.DefaultGameConfig(),
//		engine.WithLogger(logger),
//		engine.WithStore(store),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	eng.AddPlayer("Ada")
//	eng.AddPlayer("Bo")
//	if err := eng.StartGame(); err != nil {
//		log.Fatal(err)
//	}
//
//	targets, _ := eng.ProposeAction(engine.ActionMove, nil)
//	if err := eng.CommitAction(targets[0]); err != nil {
//		log.Println(engine.ReasonOf(err))
//	}
//	eng.EndTurn()
//
// Game Rules:
//
// Players start on the board corners. Each turn the current player may move
// once, build once and roll once, in any order, before ending the turn. A
// move steps one cell and may climb at most max_climb cubes. A build places
// a cube directly on top of a stack, or on the ground next to a cube or the
// builder. Rolling 1 or 2 tries a grapple that lifts the player by the rolled
// amount; rolling 3 blows every player one cell in a random direction.
//
// Every committed change is written to the "autosave" slot of the configured
// Store and announced through the Notifier.
package engine
