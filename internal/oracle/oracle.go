package oracle

import "errors"

var (
	ErrUnknownPlayer      = errors.New("oracle: unknown player")
	ErrInsufficientHealth = errors.New("oracle: insufficient health")
)

// Registry resolves which principal owns a player identity.
type Registry interface {
	OwnerOf(playerID string) (string, error)
}

// HealthStore owns per-player vitality. The world queries and adjusts it
// but never caches it.
type HealthStore interface {
	HealthOf(playerID string) (uint64, error)
	IncreaseHealth(playerID string, amount uint64) error
	DecreaseHealth(playerID string, amount uint64) error
}

// Ledger receives token credits on behalf of a principal.
type Ledger interface {
	Credit(identity string, amount uint64) error
}

// Minter creates fresh player identities bound to a principal. Minting
// happens inside the world loop so replayed sessions mint the same ids
// in the same order.
type Minter interface {
	Mint(principal string) string
}
