// Package session provides session management and snapshot storage for CubeClash.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Snapshot stores on the file system (plain or zstd) and in SQLite
//   - Lazy reload of stored sessions from their autosave slot
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager owns the in-memory sessions, each with its own engine instance.
// SnapshotStore is the persistence contract; FileStore and SQLiteStore
// implement it. ScopedStore narrows a SnapshotStore to one session so the
// engine can write its autosave and named slots without knowing the id.
//
// Session Identifiers:
//
// Sessions use 4-character hex IDs for easy reference. IDs and slot names are
// restricted to letters, digits, '-' and '_' since they become file names.
//
// Usage:
//
//	store, err := session.NewFileStore("sessions", true)
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManager(
//		session.WithStore(store, configManager),
//		session.WithLogger(logger),
//	)
//
//	sess, err := manager.Create("", "classic", config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Later, possibly after a restart
//	sess, err = manager.Get(sess.ID)
//
// Layout:
//
// FileStore writes <dir>/<session>/meta.json and one slots/<slot>.json (or
// slots/<slot>.json.zst) per slot. SQLiteStore keeps a sessions table and a
// snapshots table keyed by (session_id, slot).
package session
