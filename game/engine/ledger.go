package engine

import (
	"fmt"

	"go.uber.org/zap"
)

// playerColors is the canonical slot-to-color table
var playerColors = [MaxPlayers + 1]string{"", "red", "blue", "green", "yellow"}

// ColorFor returns the canonical color of a player slot
func ColorFor(playerID int) string {
	if playerID < 1 || playerID > MaxPlayers {
		return ""
	}
	return playerColors[playerID]
}

// StartingCorners returns the spawn cells in slot order
func StartingCorners(board *Board) []Position {
	lo, hi := board.Bounds()
	return []Position{
		{X: lo, Y: 0, Z: lo},
		{X: hi, Y: 0, Z: hi},
		{X: hi, Y: 0, Z: lo},
		{X: lo, Y: 0, Z: hi},
	}
}

// Ledger tracks the roster, whose turn it is and what the current player
// may still do this turn
type Ledger struct {
	players   []Player
	currentID int
	hand      []string
	logger    *zap.Logger
}

// NewLedger creates an empty roster dealing hand to every new player
func NewLedger(hand []string, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{hand: append([]string(nil), hand...), logger: logger}
}

// AddPlayer appends a player in the next free slot
func (l *Ledger) AddPlayer(name string, pos Position) (Player, error) {
	if len(l.players) >= MaxPlayers {
		return Player{}, ruleErr(ReasonRosterFull, "roster already holds %d players", MaxPlayers)
	}
	id := len(l.players) + 1
	if name == "" {
		name = fmt.Sprintf("Player %d", id)
	}
	cards := make([]PowerCard, 0, len(l.hand))
	for _, c := range l.hand {
		cards = append(cards, PowerCard{Type: c})
	}
	p := Player{
		ID:         id,
		Name:       name,
		Color:      ColorFor(id),
		Position:   pos,
		PowerCards: cards,
		CanMove:    true,
		CanBuild:   true,
		CanRoll:    true,
	}
	l.players = append(l.players, p)
	l.logger.Info("player joined", zap.Int("player_id", id), zap.String("name", name), zap.String("color", p.Color))
	return p, nil
}

// Len returns the roster size
func (l *Ledger) Len() int {
	return len(l.players)
}

// Players returns a copy of the roster in id order
func (l *Ledger) Players() []Player {
	out := make([]Player, len(l.players))
	for i, p := range l.players {
		out[i] = copyPlayer(p)
	}
	return out
}

// Get returns a copy of the player with id
func (l *Ledger) Get(id int) (Player, bool) {
	idx := l.index(id)
	if idx < 0 {
		return Player{}, false
	}
	return copyPlayer(l.players[idx]), true
}

// CurrentID returns the current player's id, 0 before the game starts
func (l *Ledger) CurrentID() int {
	return l.currentID
}

// Current returns the player whose turn it is
func (l *Ledger) Current() (Player, error) {
	p, ok := l.Get(l.currentID)
	if !ok {
		return Player{}, ruleErr(ReasonNoActivePlayer, "no player has the turn")
	}
	return p, nil
}

// Begin hands the first turn to the lowest player id
func (l *Ledger) Begin() error {
	if len(l.players) == 0 {
		return ruleErr(ReasonNoActivePlayer, "roster is empty")
	}
	l.currentID = l.players[0].ID
	l.resetCapabilities()
	return nil
}

// Can reports whether player id still has the capability for actionType
func (l *Ledger) Can(id int, actionType ActionType) bool {
	idx := l.index(id)
	if idx < 0 {
		return false
	}
	p := l.players[idx]
	switch actionType {
	case ActionMove:
		return p.CanMove
	case ActionBuild:
		return p.CanBuild
	case ActionRoll:
		return p.CanRoll
	case ActionNone:
		return true
	}
	return false
}

// HasCapability reports whether player id can still act this turn
func (l *Ledger) HasCapability(id int) bool {
	return l.Can(id, ActionMove) || l.Can(id, ActionBuild) || l.Can(id, ActionRoll)
}

func (l *Ledger) UseMove(id int)  { l.use(id, ActionMove) }
func (l *Ledger) UseBuild(id int) { l.use(id, ActionBuild) }
func (l *Ledger) UseRoll(id int)  { l.use(id, ActionRoll) }

func (l *Ledger) use(id int, actionType ActionType) {
	idx := l.index(id)
	if idx < 0 {
		return
	}
	switch actionType {
	case ActionMove:
		l.players[idx].CanMove = false
	case ActionBuild:
		l.players[idx].CanBuild = false
	case ActionRoll:
		l.players[idx].CanRoll = false
	case ActionNone:
	}
}

// SetPosition records where player id now stands
func (l *Ledger) SetPosition(id int, pos Position) {
	if idx := l.index(id); idx >= 0 {
		l.players[idx].Position = pos
	}
}

// EndTurn passes the turn to the next player in id order, wrapping around,
// and returns the new current id
func (l *Ledger) EndTurn() int {
	if len(l.players) == 0 {
		return 0
	}
	idx := l.index(l.currentID)
	next := l.players[(idx+1)%len(l.players)]
	l.logger.Debug("turn passed", zap.Int("from", l.currentID), zap.Int("to", next.ID))
	l.currentID = next.ID
	l.resetCapabilities()
	return l.currentID
}

// Reset empties the roster
func (l *Ledger) Reset() {
	l.players = nil
	l.currentID = 0
}

// Restore replaces the roster from persisted data
func (l *Ledger) Restore(players []Player, currentID int) {
	l.players = make([]Player, len(players))
	for i, p := range players {
		l.players[i] = copyPlayer(p)
	}
	l.currentID = currentID
}

func (l *Ledger) resetCapabilities() {
	for i := range l.players {
		l.players[i].CanMove = true
		l.players[i].CanBuild = true
		l.players[i].CanRoll = true
	}
}

func (l *Ledger) index(id int) int {
	for i, p := range l.players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func copyPlayer(p Player) Player {
	p.PowerCards = append([]PowerCard{}, p.PowerCards...)
	return p
}
