// Package service provides the business logic layer for CubeClash.
//
// The service package implements:
//   - Multi-session game management
//   - The propose/commit action flow on top of each session's engine
//   - Named save slots
//   - Move history pagination
//   - Event forwarding to connected clients
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and persistence.
// ConfigManager loads and stores rule sets.
// Broadcaster pushes messages to the clients watching a session.
//
// Architecture:
//
// The service layer sits between the transports (HTTP, WebSocket, MCP) and the
// game engine. Engines are not safe for concurrent use, so every operation
// runs under one service mutex. Each session's engine events are subscribed
// once and forwarded to the Broadcaster: state_changed becomes a
// "state_update" message carrying the full view, other events keep their type.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr,
//		service.WithBroadcaster(hub),
//		service.WithLogger(logger),
//	)
//
//	info, err := gameService.CreateSession(ctx, "classic")
//	proposal, err := gameService.ProposeAction(ctx, info.ID, engine.ActionMove, nil)
//	result, err := gameService.CommitAction(ctx, info.ID, proposal.ValidPositions[0])
//
// Errors:
//
// Unknown sessions wrap ErrSessionNotFound and unknown rule sets wrap
// ErrConfigNotFound. Rule violations are returned as the engine's
// *engine.RuleError unchanged so transports can map the reason.
package service
