package world

// PlayerEntry is the world-side record for one joined player. Ownership
// and health live in the external oracles; the entry only tracks grid
// placement and the shared collection cooldown.
type PlayerEntry struct {
	ID  string
	Pos Pos

	// Placed distinguishes "never placed" from a real position, so the
	// first placement cannot clear (0,0) as if the player held it.
	Placed bool

	LastCollectTick uint64
	// HasCollected makes "never collected" explicit; the first
	// collection attempt is exempt from the cooldown gate.
	HasCollected bool

	JoinedTick uint64
}
