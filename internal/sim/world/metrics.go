package world

// WorldMetrics is a consistent, thread-safe view of key runtime
// signals, refreshed at the end of every step and read from HTTP
// handlers and tests.
type WorldMetrics struct {
	Tick   uint64 `json:"tick"`
	Epoch  uint64 `json:"epoch"`
	Active bool   `json:"active"`

	Players   int `json:"players"`
	Clients   int `json:"clients"`
	Observers int `json:"observers"`

	OccupiedCells      int    `json:"occupied_cells"`
	TokenDepositCells  int    `json:"token_deposit_cells"`
	TokenDepositSum    uint64 `json:"token_deposit_sum"`
	HealthDepositCells int    `json:"health_deposit_cells"`
	HealthDepositSum   uint64 `json:"health_deposit_sum"`

	RestartTotal uint64 `json:"restart_total"`

	QueueDepths QueueDepths `json:"queue_depths"`

	StepMS float64 `json:"step_ms"`
}

type QueueDepths struct {
	Inbox  int `json:"inbox"`
	Attach int `json:"attach"`
	Admin  int `json:"admin"`
}

func (w *World) Metrics() WorldMetrics {
	m, _ := w.metrics.Load().(WorldMetrics)
	return m
}

func (w *World) storeMetrics(nextTick uint64, stepMS float64) {
	m := WorldMetrics{
		Tick:         nextTick,
		Epoch:        w.epoch,
		Active:       w.active,
		Players:      len(w.roster),
		Clients:      len(w.clients),
		Observers:    len(w.observers),
		RestartTotal: w.restartTotal,
		QueueDepths: QueueDepths{
			Inbox:  len(w.inbox),
			Attach: len(w.attach),
			Admin:  len(w.admin),
		},
		StepMS: stepMS,
	}
	for i := range w.grid.cells {
		f := &w.grid.cells[i]
		if f.Occupant != "" {
			m.OccupiedCells++
		}
		if f.TokenDeposit > 0 {
			m.TokenDepositCells++
			m.TokenDepositSum += f.TokenDeposit
		}
		if f.HealthDeposit > 0 {
			m.HealthDepositCells++
			m.HealthDepositSum += f.HealthDeposit
		}
	}
	w.metrics.Store(m)
}
