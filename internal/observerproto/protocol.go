package observerproto

import "gridlands.gg/internal/protocol"

// Version is the observer protocol version (separate from the player WS protocol).
const Version = "0.1"

// Client -> Server. First message on the observer WS connection.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
}

// HTTP response for GET /admin/v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string               `json:"protocol_version"`
	WorldID         string               `json:"world_id"`
	Tick            uint64               `json:"tick"`
	WorldParams     protocol.WorldParams `json:"world_params"`
}

// Server -> Client. Sent every tick: the whole board plus the events
// the tick produced. Observers are read-only; nothing they send feeds
// back into the simulation.
type TickMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`

	Epoch  uint64 `json:"epoch"`
	Active bool   `json:"active"`
	Digest string `json:"digest"`

	Players []PlayerState       `json:"players"`
	Cells   []protocol.CellView `json:"cells"`
	Events  []protocol.Event    `json:"events,omitempty"`
}

type PlayerState struct {
	ID        string `json:"id"`
	Connected bool   `json:"connected"`

	Placed bool   `json:"placed"`
	Pos    [2]int `json:"pos"`

	Health            uint64 `json:"health"`
	JoinedTick        uint64 `json:"joined_tick"`
	CooldownReadyTick uint64 `json:"cooldown_ready_tick,omitempty"`
}
