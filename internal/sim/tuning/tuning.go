package tuning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning is the operator-editable knob set loaded from tuning.yaml.
// Everything here flows into WorldConfig at startup; the balance subset
// can later be changed live through the admin surface.
type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version" json:"protocol_version"`

	TickRateHz int `yaml:"tick_rate_hz" json:"tick_rate_hz"`

	GridWidth  int `yaml:"grid_width" json:"grid_width"`
	GridHeight int `yaml:"grid_height" json:"grid_height"`

	CollectIntervalTicks uint64 `yaml:"collect_interval_ticks" json:"collect_interval_ticks"`
	DropOnCollect        bool   `yaml:"drop_on_collect" json:"drop_on_collect"`
	AttritionDivider     uint64 `yaml:"attrition_divider" json:"attrition_divider"`
	HealthCostPerMove    uint64 `yaml:"health_cost_per_move" json:"health_cost_per_move"`
	MaxPlayers           int    `yaml:"max_players" json:"max_players"`

	StartingHealth uint64 `yaml:"starting_health" json:"starting_health"`
	StartActive    bool   `yaml:"start_active" json:"start_active"`

	SnapshotEveryTicks int `yaml:"snapshot_every_ticks" json:"snapshot_every_ticks"`

	AdminPrincipal string `yaml:"admin_principal" json:"admin_principal"`

	Shuffle ShuffleTuning `yaml:"shuffle" json:"shuffle"`
}

// ShuffleTuning fixes the amounts of the four deposit slots reseeded by
// an administrative shuffle: two token slots and two health slots.
type ShuffleTuning struct {
	TokenAmounts  [2]uint64 `yaml:"token_amounts" json:"token_amounts"`
	HealthAmounts [2]uint64 `yaml:"health_amounts" json:"health_amounts"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:      "1.0",
		TickRateHz:           5,
		GridWidth:            24,
		GridHeight:           24,
		CollectIntervalTicks: 50,
		DropOnCollect:        true,
		AttritionDivider:     10,
		HealthCostPerMove:    1,
		MaxPlayers:           50,
		StartingHealth:       100,
		StartActive:          true,
		SnapshotEveryTicks:   3000,
		AdminPrincipal:       "acct:operator",
		Shuffle: ShuffleTuning{
			TokenAmounts:  [2]uint64{500, 250},
			HealthAmounts: [2]uint64{100, 50},
		},
	}
}

// Load reads path over Defaults, so keys absent from the file keep
// their default value.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Digest is a stable hash of the effective tuning, surfaced in WELCOME
// so clients can tell when the world they reconnected to was retuned.
func (t Tuning) Digest() string {
	raw, _ := json.Marshal(t)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
