package engine

// ObjectKind identifies the variant of a BoardObject
type ObjectKind string

const (
	KindGround ObjectKind = "ground"
	KindCube   ObjectKind = "cube"
	KindPlayer ObjectKind = "player"
)

// ActionType is the closed set of actions a player can start
type ActionType string

const (
	ActionNone  ActionType = "none"
	ActionMove  ActionType = "move"
	ActionBuild ActionType = "build"
	ActionRoll  ActionType = "roll"
)

// ParseActionType maps a transport string to an ActionType
func ParseActionType(s string) (ActionType, bool) {
	switch t := ActionType(s); t {
	case ActionNone, ActionMove, ActionBuild, ActionRoll:
		return t, true
	}
	return "", false
}

const (
	MinPlayers = 2
	MaxPlayers = 4

	MinBoardSize = 4
	MaxBoardSize = 32

	// AutoSaveSlot is the snapshot slot refreshed after every commit.
	AutoSaveSlot = "autosave"
)

// Position is a grid coordinate (X, Z) plus the height Y of the surface there
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Add returns the position shifted laterally by d. Height is left untouched.
func (p Position) Add(d Direction) Position {
	return Position{X: p.X + d.DX, Y: p.Y, Z: p.Z + d.DZ}
}

// SameCell reports whether both positions refer to the same (x, z) cell.
func (p Position) SameCell(o Position) bool {
	return p.X == o.X && p.Z == o.Z
}

// BoardObject is a tagged variant over ground, cube and player entries
type BoardObject struct {
	ID       string     `json:"id"`
	Kind     ObjectKind `json:"kind"`
	Height   int        `json:"height"`
	Owner    int        `json:"owner,omitempty"`     // cube owner, 0 when unowned
	PlayerID int        `json:"player_id,omitempty"` // set for player objects
}

// NewCube builds a cube object resting at the given height
func NewCube(id string, owner, height int) BoardObject {
	return BoardObject{ID: id, Kind: KindCube, Height: height, Owner: owner}
}

// NewPlayerObject builds the board marker for a player standing at height
func NewPlayerObject(playerID, height int) BoardObject {
	return BoardObject{ID: PlayerObjectID(playerID), Kind: KindPlayer, Height: height, PlayerID: playerID}
}

// PowerCard is a card held in a player's hand
type PowerCard struct {
	Type string `json:"type"`
}

// Player is a roster entry
type Player struct {
	ID         int         `json:"id"`
	Name       string      `json:"name"`
	Color      string      `json:"color"`
	Position   Position    `json:"position"`
	PowerCards []PowerCard `json:"powerCards"`
	CanMove    bool        `json:"canMove"`
	CanBuild   bool        `json:"canBuild"`
	CanRoll    bool        `json:"canRoll"`
}

// ActionState describes the pending action; it decides what can be clicked
type ActionState struct {
	Type           ActionType `json:"type"`
	IsProcessing   bool       `json:"isProcessing"`
	ValidPositions []Position `json:"validPositions"`
	SourcePosition *Position  `json:"sourcePosition,omitempty"`
}

// BoardEntry is the persisted form of a single board object
type BoardEntry struct {
	ID       string     `json:"id"`
	Position Position   `json:"position"`
	Kind     ObjectKind `json:"kind"`
	Owner    int        `json:"owner,omitempty"`
	PlayerID int        `json:"playerId,omitempty"`
}

// MoveRecord is one entry of the append-only move history
type MoveRecord struct {
	PlayerID  int        `json:"playerId"`
	Action    ActionType `json:"action"`
	Position  Position   `json:"position"`
	Timestamp int64      `json:"timestamp"`
}

// Move is a request to the state machine on behalf of a player
type Move struct {
	PlayerID int
	Action   ActionType
	Position Position
}

// GameStateData is the unit persisted in snapshots
type GameStateData struct {
	Players         []Player     `json:"players"`
	CurrentPlayerID int          `json:"currentPlayerId"`
	Board           []BoardEntry `json:"board"`
	MoveHistory     []MoveRecord `json:"moveHistory"`
	Timestamp       int64        `json:"timestamp"`
}

// Snapshot is the stored document for a save slot
type Snapshot struct {
	CurrentState string        `json:"currentState"`
	StateData    GameStateData `json:"stateData"`
}

// GameView is the read model returned to callers
type GameView struct {
	Phase      Phase         `json:"phase"`
	Winner     int           `json:"winner,omitempty"`
	ConfigName string        `json:"config_name"`
	BoardSize  int           `json:"board_size"`
	Action     ActionState   `json:"action"`
	Data       GameStateData `json:"data"`
}
