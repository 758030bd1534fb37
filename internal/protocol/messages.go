package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	Principal       string            `json:"principal"`
	PlayerID        string            `json:"player_id,omitempty"`
	Capabilities    HelloCapabilities `json:"capabilities,omitempty"`
}

type HelloCapabilities struct {
	MaxQueue int `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	PlayerID        string      `json:"player_id"`
	Tick            uint64      `json:"tick"`
	Health          uint64      `json:"health"`
	Joined          bool        `json:"joined"`
	Pos             *[2]int     `json:"pos,omitempty"`
	World           WorldParams `json:"world"`
}

type WorldParams struct {
	WorldID              string `json:"world_id"`
	TickRateHz           int    `json:"tick_rate_hz"`
	GridWidth            int    `json:"grid_width"`
	GridHeight           int    `json:"grid_height"`
	CollectIntervalTicks uint64 `json:"collect_interval_ticks"`
	DropOnCollect        bool   `json:"drop_on_collect"`
	HealthCostPerMove    uint64 `json:"health_cost_per_move"`
	MaxPlayers           int    `json:"max_players"`
	Epoch                uint64 `json:"epoch"`
	TuningDigest         string `json:"tuning_digest,omitempty"`
}

// CMD (client -> server): a batch of commands applied in order.
// Every command is answered with an ACTION_RESULT event referencing its id.
type CmdMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Tick            uint64       `json:"tick"`
	PlayerID        string       `json:"player_id"`
	Commands        []CommandReq `json:"commands"`
}

type CommandReq struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Direction string `json:"direction,omitempty"`
}

// STATE (server -> client): per-tick view. Cells lists only non-empty
// fields (an occupant or a deposit); everything else is implicitly empty.
type StateMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Tick            uint64     `json:"tick"`
	Epoch           uint64     `json:"epoch"`
	Active          bool       `json:"active"`
	Self            SelfView   `json:"self"`
	Cells           []CellView `json:"cells"`
	Events          []Event    `json:"events,omitempty"`
}

type SelfView struct {
	PlayerID          string  `json:"player_id"`
	Joined            bool    `json:"joined"`
	Pos               *[2]int `json:"pos,omitempty"`
	Health            uint64  `json:"health"`
	CooldownReadyTick uint64  `json:"cooldown_ready_tick,omitempty"`
}

type CellView struct {
	Pos           [2]int `json:"pos"`
	Occupant      string `json:"occupant,omitempty"`
	TokenDeposit  uint64 `json:"token_deposit,omitempty"`
	HealthDeposit uint64 `json:"health_deposit,omitempty"`
}

type Event map[string]interface{}
