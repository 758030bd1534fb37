package oracle

import (
	"fmt"
	"sort"
	"sync"
)

// PlayerStore is the in-process Registry + HealthStore. Guarded by a
// mutex because transports and the world loop both reach it.
type PlayerStore struct {
	mu             sync.Mutex
	seq            uint64
	owners         map[string]string
	health         map[string]uint64
	startingHealth uint64
}

func NewPlayerStore(startingHealth uint64) *PlayerStore {
	return &PlayerStore{
		owners:         make(map[string]string),
		health:         make(map[string]uint64),
		startingHealth: startingHealth,
	}
}

// Mint registers a fresh player for principal and returns its id.
// Ids are sequential so a replayed mint order reproduces the same ids.
func (s *PlayerStore) Mint(principal string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	id := fmt.Sprintf("P%d", s.seq)
	s.owners[id] = principal
	s.health[id] = s.startingHealth
	return id
}

// StartingHealth reports the vitality granted to freshly minted players.
func (s *PlayerStore) StartingHealth() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startingHealth
}

func (s *PlayerStore) OwnerOf(playerID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, ok := s.owners[playerID]
	if !ok {
		return "", ErrUnknownPlayer
	}
	return owner, nil
}

func (s *PlayerStore) HealthOf(playerID string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.health[playerID]
	if !ok {
		return 0, ErrUnknownPlayer
	}
	return h, nil
}

func (s *PlayerStore) IncreaseHealth(playerID string, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.health[playerID]
	if !ok {
		return ErrUnknownPlayer
	}
	s.health[playerID] = h + amount
	return nil
}

func (s *PlayerStore) DecreaseHealth(playerID string, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.health[playerID]
	if !ok {
		return ErrUnknownPlayer
	}
	if amount > h {
		return ErrInsufficientHealth
	}
	s.health[playerID] = h - amount
	return nil
}

type PlayerRecord struct {
	ID        string `json:"id"`
	Principal string `json:"principal"`
	Health    uint64 `json:"health"`
}

type PlayersSection struct {
	Seq     uint64         `json:"seq"`
	Players []PlayerRecord `json:"players"`
}

func (s *PlayerStore) Export() PlayersSection {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := PlayersSection{Seq: s.seq}
	ids := make([]string, 0, len(s.owners))
	for id := range s.owners {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		out.Players = append(out.Players, PlayerRecord{
			ID:        id,
			Principal: s.owners[id],
			Health:    s.health[id],
		})
	}
	return out
}

func (s *PlayerStore) Import(sec PlayersSection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = sec.Seq
	s.owners = make(map[string]string, len(sec.Players))
	s.health = make(map[string]uint64, len(sec.Players))
	for _, p := range sec.Players {
		s.owners[p.ID] = p.Principal
		s.health[p.ID] = p.Health
	}
}

// MemLedger accumulates token credits per principal.
type MemLedger struct {
	mu       sync.Mutex
	balances map[string]uint64
}

func NewMemLedger() *MemLedger {
	return &MemLedger{balances: make(map[string]uint64)}
}

func (l *MemLedger) Credit(identity string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[identity] += amount
	return nil
}

func (l *MemLedger) BalanceOf(identity string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[identity]
}

type BalanceRecord struct {
	Identity string `json:"identity"`
	Amount   uint64 `json:"amount"`
}

type LedgerSection struct {
	Balances []BalanceRecord `json:"balances"`
}

func (l *MemLedger) Export() LedgerSection {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out LedgerSection
	ids := make([]string, 0, len(l.balances))
	for id := range l.balances {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		out.Balances = append(out.Balances, BalanceRecord{Identity: id, Amount: l.balances[id]})
	}
	return out
}

func (l *MemLedger) Import(sec LedgerSection) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances = make(map[string]uint64, len(sec.Balances))
	for _, b := range sec.Balances {
		l.balances[b.Identity] = b.Amount
	}
}
