package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/goodiegrid/game/engine"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrConfigNotFound  = errors.New("configuration not found")
	ErrSaveNotFound    = errors.New("no saved game")
	ErrInvalidConfig   = errors.New("invalid configuration")
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Board setup
	CreateBoard(ctx context.Context, sessionID string, width, height int) (*ActionResult, error)
	AddGoodies(ctx context.Context, sessionID string, req AddGoodiesRequest) (*GoodiesResult, error)
	AddPlayer(ctx context.Context, sessionID string, req AddPlayerRequest) (*PlayerResult, error)
	SetActivePlayer(ctx context.Context, sessionID string, index int) (*ActionResult, error)

	// Game Operations
	Move(ctx context.Context, sessionID, direction string, reset bool) (*MoveResult, error)
	MoveBy(ctx context.Context, sessionID string, dx, dy int) (*MoveResult, error)
	MoveTo(ctx context.Context, sessionID string, x, y int) (*MoveResult, error)
	BulkMove(ctx context.Context, sessionID string, moves []string, reset bool) (*BulkMoveResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Save and restore
	SaveGame(ctx context.Context, sessionID string) (*SaveResult, error)
	LoadGame(ctx context.Context, sessionID string, snapshot []byte) (*ActionResult, error)
	ExportSnapshot(ctx context.Context, sessionID string) ([]byte, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, configID string, config *engine.GameConfig) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles game configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
	SaveConfig(name string, config *engine.GameConfig) error
}

// Session represents an active game session. Events raised by the game are
// buffered until the next DrainEvents call.
type Session struct {
	ID             string
	ConfigID       string
	Game           *engine.Game
	Config         *engine.GameConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time

	mu     sync.Mutex
	events []engine.Event
}

// NewSession wraps game in a session and starts recording its events
func NewSession(id, configID string, config *engine.GameConfig, game *engine.Game) *Session {
	now := time.Now()
	s := &Session{
		ID:             id,
		ConfigID:       configID,
		Config:         config,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	s.ReplaceGame(game)
	return s
}

// ReplaceGame swaps in a new game, dropping events of the previous one
func (s *Session) ReplaceGame(game *engine.Game) {
	s.mu.Lock()
	s.events = nil
	s.mu.Unlock()

	s.Game = game
	game.Observe(s.record)
}

func (s *Session) record(ev engine.Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

// DrainEvents returns and clears the buffered events
func (s *Session) DrainEvents() []engine.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.events
	s.events = nil
	if events == nil {
		events = []engine.Event{}
	}
	return events
}
