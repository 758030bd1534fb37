package world

import "fmt"

// maxGridAxis caps either grid dimension. Placement and drops draw one
// entropy byte per axis, so an axis above 256 cells would leave part of
// the grid unreachable.
const maxGridAxis = 256

type WorldConfig struct {
	ID         string
	TickRateHz int
	Seed       int64

	GridWidth  int
	GridHeight int

	SnapshotEveryTicks int

	// StartActive opens the join gate at boot without an explicit
	// administrative start.
	StartActive bool

	// AdminPrincipal is the only identity allowed to run administrative
	// operations.
	AdminPrincipal string

	// TuningDigest identifies the tuning file the server booted with;
	// echoed to clients in WELCOME.
	TuningDigest string

	Balance BalanceConfig
}

// BalanceConfig is the game-balance subset an operator may replace at
// runtime through the admin surface.
type BalanceConfig struct {
	CollectIntervalTicks uint64    `json:"collect_interval_ticks"`
	DropOnCollect        bool      `json:"drop_on_collect"`
	AttritionDivider     uint64    `json:"attrition_divider"`
	HealthCostPerMove    uint64    `json:"health_cost_per_move"`
	MaxPlayers           int       `json:"max_players"`
	ShuffleTokenAmounts  [2]uint64 `json:"shuffle_token_amounts"`
	ShuffleHealthAmounts [2]uint64 `json:"shuffle_health_amounts"`
}

func (c *WorldConfig) applyDefaults() {
	if c.ID == "" {
		c.ID = "grid_1"
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 5
	}
	if c.GridWidth <= 0 {
		c.GridWidth = 24
	}
	if c.GridHeight <= 0 {
		c.GridHeight = 24
	}
	if c.SnapshotEveryTicks <= 0 {
		c.SnapshotEveryTicks = 3000
	}
	if c.AdminPrincipal == "" {
		c.AdminPrincipal = "acct:operator"
	}
	b := &c.Balance
	if b.CollectIntervalTicks == 0 {
		b.CollectIntervalTicks = 50
	}
	if b.AttritionDivider == 0 {
		b.AttritionDivider = 10
	}
	if b.HealthCostPerMove == 0 {
		b.HealthCostPerMove = 1
	}
	if b.MaxPlayers <= 0 {
		b.MaxPlayers = 50
	}
	if b.ShuffleTokenAmounts == ([2]uint64{}) {
		b.ShuffleTokenAmounts = [2]uint64{500, 250}
	}
	if b.ShuffleHealthAmounts == ([2]uint64{}) {
		b.ShuffleHealthAmounts = [2]uint64{100, 50}
	}
}

func (c *WorldConfig) validate() error {
	if c.GridWidth < 1 || c.GridWidth > maxGridAxis || c.GridHeight < 1 || c.GridHeight > maxGridAxis {
		return fmt.Errorf("grid dimensions must be within 1..%d, got %dx%d", maxGridAxis, c.GridWidth, c.GridHeight)
	}
	return c.Balance.validate(c.GridWidth, c.GridHeight)
}

// validate keeps the roster cap strictly below the cell count so
// placement always finds a free cell.
func (b *BalanceConfig) validate(width, height int) error {
	if b.MaxPlayers < 1 {
		return fmt.Errorf("max_players must be at least 1, got %d", b.MaxPlayers)
	}
	if b.MaxPlayers >= width*height {
		return fmt.Errorf("max_players %d must stay below the cell count %d", b.MaxPlayers, width*height)
	}
	return nil
}
