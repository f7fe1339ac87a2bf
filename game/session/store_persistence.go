package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wricardo/mcp-training/goodiegrid/game/engine"
	"github.com/wricardo/mcp-training/goodiegrid/game/service"
	"github.com/wricardo/mcp-training/goodiegrid/game/storage"
)

const sessionKeyPrefix = "sessions/"

// StorePersistence implements SessionPersistence on top of a key-value store.
// Each session is one value under "sessions/<id>".
type StorePersistence struct {
	store         storage.Store
	codec         Codec
	configManager service.ConfigManager
}

// NewStorePersistence creates a persistence layer writing through store
func NewStorePersistence(store storage.Store, codec Codec, configManager service.ConfigManager) *StorePersistence {
	if codec == nil {
		codec = JSONCodec{}
	}
	return &StorePersistence{
		store:         store,
		codec:         codec,
		configManager: configManager,
	}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + strings.ToLower(id)
}

// Save persists the session's snapshot and move history
func (p *StorePersistence) Save(session *service.Session) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}

	data := PersistedSessionData{
		ID:             session.ID,
		ConfigID:       session.ConfigID,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		Snapshot:       session.Game.Snapshot(),
		History:        session.Game.History(),
		TotalMoves:     session.Game.TotalMoves(),
	}

	encoded, err := p.codec.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}
	if err := p.store.Set(sessionKey(session.ID), encoded); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Load rebuilds a session from its stored snapshot. The scenario is looked
// up again by config ID for the game rules.
func (p *StorePersistence) Load(id string) (*service.Session, error) {
	encoded, err := p.store.Get(sessionKey(id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var data PersistedSessionData
	if err := p.codec.Unmarshal(encoded, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}

	config, err := p.configManager.LoadConfig(data.ConfigID)
	if err != nil {
		log.Warn("session config unavailable, using default", "session", data.ID, "config", data.ConfigID, "err", err)
		config = p.configManager.GetDefault()
	}

	game := engine.NewGame(config.Options())
	if snap := data.Snapshot; snap != nil && snap.Width > 0 && snap.Height > 0 {
		if err := game.CreateBoard(snap.Width, snap.Height); err != nil {
			return nil, fmt.Errorf("failed to create board: %w", err)
		}
		if err := game.Restore(snap); err != nil {
			return nil, fmt.Errorf("failed to restore game state: %w", err)
		}
	}
	game.SetHistory(data.History, data.TotalMoves)

	session := service.NewSession(data.ID, data.ConfigID, config, game)
	session.CreatedAt = data.CreatedAt
	session.LastAccessedAt = data.LastAccessedAt
	return session, nil
}

// Delete removes a stored session
func (p *StorePersistence) Delete(id string) error {
	if err := p.store.Delete(sessionKey(id)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ListAll returns all persisted session IDs
func (p *StorePersistence) ListAll() ([]string, error) {
	keys, err := p.store.Keys(sessionKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, strings.TrimPrefix(key, sessionKeyPrefix))
	}
	return ids, nil
}

// Exists checks if a session is stored
func (p *StorePersistence) Exists(id string) bool {
	if storage.ValidateKey(sessionKey(id)) != nil {
		return false
	}
	_, err := p.store.Get(sessionKey(id))
	return err == nil
}
