package engine

import "errors"

var (
	ErrGridFull          = errors.New("grid full: no free tile available")
	ErrMissingTileSize   = errors.New("missing tile size")
	ErrIndexOutOfRange   = errors.New("player index out of range")
	ErrInvalidDimensions = errors.New("invalid board dimensions")
	ErrInvalidPhase      = errors.New("operation not allowed in current phase")
	ErrBoardNotReady     = errors.New("board has not been created")
	ErrSnapshotMismatch  = errors.New("snapshot does not match board")
	ErrSnapshotVersion   = errors.New("unsupported snapshot version")
	ErrInvalidSnapshot   = errors.New("invalid snapshot")
	ErrTileOccupied      = errors.New("tile is occupied")

	// Returned only when Options.Strict is set; otherwise the move is a no-op
	ErrNoActivePlayer   = errors.New("no active player")
	ErrOutOfBounds      = errors.New("target tile out of bounds")
	ErrPlayerDefeated   = errors.New("active player is defeated")
	ErrInvalidDirection = errors.New("invalid direction")
)
