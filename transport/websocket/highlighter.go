package websocket

import (
	"github.com/wricardo/cubeclash/game/engine"
)

// Highlighter sends an engine's target highlights to the clients of one
// session
type Highlighter struct {
	hub       *Hub
	sessionID string
}

var _ engine.Highlighter = (*Highlighter)(nil)

// NewHighlighter binds a highlighter to sessionID
func NewHighlighter(hub *Hub, sessionID string) *Highlighter {
	return &Highlighter{hub: hub, sessionID: sessionID}
}

func (h *Highlighter) ShowTargets(hl engine.Highlight) {
	h.hub.BroadcastToSession(h.sessionID, EventHighlight, hl)
}

func (h *Highlighter) ClearTargets() {
	h.hub.BroadcastToSession(h.sessionID, EventHighlightClear, nil)
}
