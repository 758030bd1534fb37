package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Rule layer.
	ErrUnauthorized       = "E_UNAUTHORIZED"
	ErrGameNotActive      = "E_GAME_NOT_ACTIVE"
	ErrCapacityExceeded   = "E_CAPACITY_EXCEEDED"
	ErrOutOfBounds        = "E_OUT_OF_BOUNDS"
	ErrPositionOccupied   = "E_POSITION_OCCUPIED"
	ErrInsufficientHealth = "E_INSUFFICIENT_HEALTH"
	ErrCooldownNotElapsed = "E_COOLDOWN_NOT_ELAPSED"
	ErrNothingToCollect   = "E_NOTHING_TO_COLLECT"

	// Runtime layer.
	ErrNotJoined  = "E_NOT_JOINED"
	ErrBadRequest = "E_BAD_REQUEST"
	ErrStale      = "E_STALE"
	ErrInternal   = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:    {},
	ErrUnauthorized:       {},
	ErrGameNotActive:      {},
	ErrCapacityExceeded:   {},
	ErrOutOfBounds:        {},
	ErrPositionOccupied:   {},
	ErrInsufficientHealth: {},
	ErrCooldownNotElapsed: {},
	ErrNothingToCollect:   {},
	ErrNotJoined:          {},
	ErrBadRequest:         {},
	ErrStale:              {},
	ErrInternal:           {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
