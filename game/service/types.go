package service

import (
	"time"

	"github.com/wricardo/mcp-training/goodiegrid/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameState      *engine.GameState  `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// ActionResult is the outcome of a state-changing operation
type ActionResult struct {
	GameState *engine.GameState `json:"game_state"`
	Message   string            `json:"message"`
	Events    []engine.Event    `json:"events"`
}

// AddGoodiesRequest places goodies on the board. With Position set a single
// goodie goes on that tile and Count is ignored.
type AddGoodiesRequest struct {
	Count    int              `json:"count"`
	Type     string           `json:"type,omitempty"`
	Energy   int              `json:"energy,omitempty"`
	Sound    string           `json:"sound,omitempty"`
	Position *engine.Position `json:"position,omitempty"`
}

// GoodiesResult lists the goodies placed by AddGoodies
type GoodiesResult struct {
	ActionResult
	Requested int                 `json:"requested"`
	Placed    int                 `json:"placed"`
	GridFull  bool                `json:"grid_full,omitempty"`
	Goodies   []engine.GoodieView `json:"goodies"`
}

// AddPlayerRequest adds a player. A nil Position picks a random free tile.
type AddPlayerRequest struct {
	Name     string           `json:"name"`
	Type     string           `json:"type,omitempty"`
	Position *engine.Position `json:"position,omitempty"`
}

// PlayerResult describes the player added by AddPlayer
type PlayerResult struct {
	ActionResult
	Player engine.PlayerView `json:"player"`
}

// MoveResult contains the result of a move operation
type MoveResult struct {
	Success    bool              `json:"success"`
	Move       engine.MoveResult `json:"move"`
	GameState  *engine.GameState `json:"game_state"`
	Message    string            `json:"message"`
	Events     []engine.Event    `json:"events"`
	EnergyRisk string            `json:"energy_risk,omitempty"`
}

// BulkMoveResult contains the result of multiple moves
type BulkMoveResult struct {
	MovesExecuted  int               `json:"moves_executed"`
	RequestedMoves int               `json:"requested_moves"`
	Success        bool              `json:"success"`
	GameState      *engine.GameState `json:"game_state"`
	Events         []engine.Event    `json:"events"`
	StoppedReason  string            `json:"stopped_reason,omitempty"`
	StoppedOnMove  int               `json:"stopped_on_move,omitempty"` // 1-based
	Truncated      bool              `json:"truncated,omitempty"`
	Limit          int               `json:"limit,omitempty"`

	StartPos    engine.Position `json:"start_pos"`
	EndPos      engine.Position `json:"end_pos"`
	StartHealth int             `json:"start_health"`
	EndHealth   int             `json:"end_health"`
	Consumed    int             `json:"consumed"`
	Defeated    bool            `json:"defeated"`

	Steps      []engine.MoveResult `json:"steps,omitempty"`
	Message    string              `json:"message,omitempty"`
	EnergyRisk string              `json:"energy_risk,omitempty"`
}

// SaveResult reports where a game was saved
type SaveResult struct {
	SessionID string    `json:"session_id"`
	Key       string    `json:"key"`
	Bytes     int       `json:"bytes"`
	SavedAt   time.Time `json:"saved_at"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveHistoryEntry `json:"moves"`
	TotalMoves  int                       `json:"total_moves"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"` // The identifier to use for session creation
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Goodies     int    `json:"goodies"`
	Players     int    `json:"players"`
}
