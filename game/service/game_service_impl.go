package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/inconshreveable/log15/v3"

	"github.com/wricardo/mcp-training/goodiegrid/game/engine"
	"github.com/wricardo/mcp-training/goodiegrid/game/storage"
)

// ErrInvalidRequest marks malformed operation arguments
var ErrInvalidRequest = errors.New("invalid request")

// SaveKeyName is the store key suffix a session's saved game lives under
const SaveKeyName = "gameState"

var log = log15.New("module", "service")

// gameServiceImpl implements the GameService interface. A single mutex
// serializes every operation, so each game sees one command at a time.
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	store    storage.Store
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance. store receives saved
// games; a nil store keeps them in memory.
func NewGameService(sessions SessionManager, configs ConfigManager, store storage.Store) GameService {
	if store == nil {
		store = storage.NewMemoryStore()
	}
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		store:    store,
	}
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "classic"
	}
	return configName
}

// session looks up a session and marks it accessed. Callers hold the write
// lock since both the lookup and the touch mutate the session.
func (s *gameServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %q: %w", sessionID, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

// persist writes the session through to storage. Failures are logged only.
func (s *gameServiceImpl) persist(sessionID, op string) {
	if err := s.sessions.Save(sessionID); err != nil {
		log.Warn("failed to persist session", "session", sessionID, "op", op, "err", err)
	}
}

func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	configID := sess.ConfigID
	if configID == "" {
		configID = s.getConfigID(sess.Config.Name)
	}
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     configID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Game.State(),
		GameConfig:     sess.Config,
	}
}

func actionResult(sess *Session) *ActionResult {
	state := sess.Game.State()
	return &ActionResult{
		GameState: state,
		Message:   state.Message,
		Events:    sess.DrainEvents(),
	}
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.GameConfig
	var err error
	configID := configName
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("%w: '%s'. Available configs: %v", ErrConfigNotFound, configName, configIDs)
				}
				return nil, fmt.Errorf("%w: '%s'. Use /api/configs to list available configurations", ErrConfigNotFound, configName)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
		configID = s.getConfigID(config.Name)
	}

	sess, err := s.sessions.Create("", configID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	sess.DrainEvents()

	return s.sessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session and its saved game
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("session %q: %w", sessionID, err)
	}
	if err := s.store.Delete(saveKey(sessionID)); err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Warn("failed to delete saved game", "session", sessionID, "err", err)
	}
	return nil
}

// CreateBoard replaces the session's board with an empty one
func (s *gameServiceImpl) CreateBoard(ctx context.Context, sessionID string, width, height int) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.Game.CreateBoard(width, height); err != nil {
		return nil, err
	}
	s.persist(sessionID, "create_board")
	return actionResult(sess), nil
}

// AddGoodies scatters goodies on free tiles, or puts one on req.Position.
// When the board fills up the goodies placed so far are kept and GridFull is
// set; ErrGridFull is returned only when nothing could be placed.
func (s *gameServiceImpl) AddGoodies(ctx context.Context, sessionID string, req AddGoodiesRequest) (*GoodiesResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	opts := engine.GoodieOptions{Type: req.Type, Energy: req.Energy, Sound: req.Sound}
	var placed []*engine.Goodie
	gridFull := false

	if req.Position != nil {
		goodie, err := sess.Game.PlaceGoodie(*req.Position, opts)
		if err != nil {
			sess.DrainEvents()
			return nil, err
		}
		placed = []*engine.Goodie{goodie}
		req.Count = 1
	} else {
		if req.Count <= 0 {
			return nil, fmt.Errorf("%w: count must be positive, got %d", ErrInvalidRequest, req.Count)
		}
		placed, err = sess.Game.AddGoodies(req.Count, opts)
		if err != nil {
			if !errors.Is(err, engine.ErrGridFull) || len(placed) == 0 {
				sess.DrainEvents()
				return nil, err
			}
			gridFull = true
		}
	}

	s.persist(sessionID, "add_goodies")

	result := &GoodiesResult{
		ActionResult: *actionResult(sess),
		Requested:    req.Count,
		Placed:       len(placed),
		GridFull:     gridFull,
		Goodies:      make([]engine.GoodieView, 0, len(placed)),
	}
	for _, goodie := range placed {
		result.Goodies = append(result.Goodies, engine.GoodieView{
			ID:       goodie.ID,
			Kind:     goodie.Kind,
			Visual:   goodie.Visual,
			Value:    goodie.Value,
			Sound:    goodie.Sound,
			Position: goodie.Position,
		})
	}
	result.Message = fmt.Sprintf("Placed %d of %d goodies", len(placed), req.Count)
	if gridFull {
		result.Message += ": board is full"
	}
	return result, nil
}

// AddPlayer adds a player and makes it active
func (s *gameServiceImpl) AddPlayer(ctx context.Context, sessionID string, req AddPlayerRequest) (*PlayerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = fmt.Sprintf("Player %d", len(sess.Game.Players())+1)
	}
	if _, err := sess.Game.AddPlayer(name, req.Type, req.Position); err != nil {
		sess.DrainEvents()
		return nil, err
	}
	s.persist(sessionID, "add_player")

	result := &PlayerResult{ActionResult: *actionResult(sess)}
	result.Player, _ = engine.ActivePlayerView(result.GameState)
	return result, nil
}

// SetActivePlayer selects the player move commands apply to
func (s *gameServiceImpl) SetActivePlayer(ctx context.Context, sessionID string, index int) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.Game.SetActivePlayer(index); err != nil {
		return nil, err
	}
	s.persist(sessionID, "set_active_player")
	return actionResult(sess), nil
}

// Move executes a single move for a session
func (s *gameServiceImpl) Move(ctx context.Context, sessionID, direction string, reset bool) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if reset {
		if err := resetGame(sess); err != nil {
			return nil, err
		}
	}
	return s.applyMove(sess, func(g *engine.Game) (engine.MoveResult, error) {
		return g.Move(strings.ToLower(strings.TrimSpace(direction)))
	})
}

// MoveBy moves the active player by a tile delta
func (s *gameServiceImpl) MoveBy(ctx context.Context, sessionID string, dx, dy int) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.applyMove(sess, func(g *engine.Game) (engine.MoveResult, error) {
		return g.MovePlayer(dx, dy)
	})
}

// MoveTo moves the active player straight to a tile
func (s *gameServiceImpl) MoveTo(ctx context.Context, sessionID string, x, y int) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.applyMove(sess, func(g *engine.Game) (engine.MoveResult, error) {
		return g.MovePlayerTo(x, y)
	})
}

// applyMove runs one move and builds the result. Callers hold the lock.
func (s *gameServiceImpl) applyMove(sess *Session, move func(*engine.Game) (engine.MoveResult, error)) (*MoveResult, error) {
	mr, err := move(sess.Game)
	if err != nil {
		sess.DrainEvents()
		return nil, err
	}

	state := sess.Game.State()
	result := &MoveResult{
		Success:    mr.Moved,
		Move:       mr,
		GameState:  state,
		Message:    state.Message,
		Events:     sess.DrainEvents(),
		EnergyRisk: riskCode(engine.AnalyzeEnergyRisk(state)),
	}
	if !mr.Moved {
		result.Message = reasonMessage(mr.Reason)
	}

	s.persist(sess.ID, "move")
	return result, nil
}

// BulkMove executes multiple moves in sequence. It stops early once the
// active player is defeated.
func (s *gameServiceImpl) BulkMove(ctx context.Context, sessionID string, moves []string, reset bool) (*BulkMoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if reset {
		if err := resetGame(sess); err != nil {
			return nil, err
		}
	}

	result := &BulkMoveResult{
		RequestedMoves: len(moves),
		Success:        true,
	}
	if len(moves) > engine.MaxBulkMoves {
		result.Truncated = true
		result.Limit = engine.MaxBulkMoves
		moves = moves[:engine.MaxBulkMoves]
	}

	directions := make([]string, len(moves))
	for i, m := range moves {
		directions[i] = strings.ToLower(strings.TrimSpace(m))
	}

	if player := sess.Game.ActivePlayer(); player != nil {
		result.StartPos = player.Position()
		result.StartHealth = player.Health()
	}

	steps, moveErr := sess.Game.BulkMove(directions)
	result.Steps = steps
	for _, step := range steps {
		if step.Moved {
			result.MovesExecuted++
		}
		if step.Consumed != nil {
			result.Consumed++
		}
	}

	switch {
	case moveErr != nil:
		result.StoppedReason = moveErr.Error()
		result.StoppedOnMove = len(steps)
	case len(steps) < len(directions):
		result.StoppedReason = "player defeated"
		result.StoppedOnMove = len(steps) + 1
	}
	result.Success = result.StoppedReason == "" && result.MovesExecuted == len(directions)

	state := sess.Game.State()
	result.GameState = state
	result.Events = sess.DrainEvents()
	result.Message = state.Message
	result.EnergyRisk = riskCode(engine.AnalyzeEnergyRisk(state))
	if player := sess.Game.ActivePlayer(); player != nil {
		result.EndPos = player.Position()
		result.EndHealth = player.Health()
		result.Defeated = player.Defeated()
	}

	s.persist(sessionID, "bulk_move")
	return result, nil
}

// Reset rebuilds the session's game from its scenario
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := resetGame(sess); err != nil {
		return nil, err
	}
	s.persist(sessionID, "reset")
	return sess.Game.State(), nil
}

func resetGame(sess *Session) error {
	game, err := engine.NewGameFromConfig(sess.Config, nil)
	if err != nil {
		return fmt.Errorf("failed to reset game: %w", err)
	}
	sess.ReplaceGame(game)
	return nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Game.State(), nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Game.History()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	moves := []engine.MoveHistoryEntry{}
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			moves = append(moves, history[i])
		}
	} else if start < total {
		moves = append(moves, history[start:end]...)
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

func saveKey(sessionID string) string {
	return storage.Join(strings.ToLower(sessionID), SaveKeyName)
}

// SaveGame writes the game's snapshot to the store under <session>/gameState
func (s *gameServiceImpl) SaveGame(ctx context.Context, sessionID string) (*SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	data, err := sess.Game.SaveGameState()
	if err != nil {
		return nil, err
	}
	key := saveKey(sess.ID)
	if err := s.store.Set(key, data); err != nil {
		return nil, fmt.Errorf("failed to save game: %w", err)
	}

	log.Info("game saved", "session", sess.ID, "key", key, "bytes", len(data))
	return &SaveResult{
		SessionID: sess.ID,
		Key:       key,
		Bytes:     len(data),
		SavedAt:   time.Now(),
	}, nil
}

// LoadGame restores a snapshot into the session's game. Without snapshot
// data the last saved game is loaded from the store.
func (s *gameServiceImpl) LoadGame(ctx context.Context, sessionID string, snapshot []byte) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	data := snapshot
	if len(data) == 0 {
		data, err = s.store.Get(saveKey(sess.ID))
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("%w for session %s", ErrSaveNotFound, sess.ID)
			}
			return nil, fmt.Errorf("failed to read saved game: %w", err)
		}
	}

	if err := sess.Game.LoadGameState(data); err != nil {
		return nil, err
	}
	s.persist(sessionID, "load_game")
	return actionResult(sess), nil
}

// ExportSnapshot returns the game's snapshot without storing it
func (s *gameServiceImpl) ExportSnapshot(ctx context.Context, sessionID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Game.SaveGameState()
}

// ListConfigs returns available game configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific game configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a game configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(configName, config)
}

func reasonMessage(reason string) string {
	switch reason {
	case engine.ReasonNoActivePlayer:
		return "No active player"
	case engine.ReasonOutOfBounds:
		return "Can't move off the board"
	case engine.ReasonDefeated:
		return "Player is out of energy"
	case engine.ReasonBlocked:
		return "Tile is blocked"
	case engine.ReasonInvalidDirection:
		return "Unknown direction, use up, down, left or right"
	}
	return "Move failed"
}

func riskCode(text string) string {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "critical"):
		return "CRITICAL"
	case strings.Contains(t, "danger"):
		return "DANGER"
	case strings.Contains(t, "caution"):
		return "CAUTION"
	case strings.Contains(t, "low"):
		return "LOW"
	case strings.Contains(t, "warning"):
		return "WARNING"
	case strings.Contains(t, "safe"):
		return "SAFE"
	case strings.Contains(t, "none"):
		return "NONE"
	default:
		return "UNKNOWN"
	}
}
