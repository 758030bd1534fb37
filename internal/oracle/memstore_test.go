package oracle

import (
	"errors"
	"testing"
)

func TestPlayerStore_MintSequence(t *testing.T) {
	s := NewPlayerStore(100)
	a := s.Mint("acct:alice")
	b := s.Mint("acct:bob")
	if a != "P1" || b != "P2" {
		t.Fatalf("unexpected ids: %q %q", a, b)
	}
	owner, err := s.OwnerOf(a)
	if err != nil || owner != "acct:alice" {
		t.Fatalf("OwnerOf(%q) = %q, %v", a, owner, err)
	}
	h, err := s.HealthOf(b)
	if err != nil || h != 100 {
		t.Fatalf("HealthOf(%q) = %d, %v", b, h, err)
	}
}

func TestPlayerStore_UnknownPlayer(t *testing.T) {
	s := NewPlayerStore(100)
	if _, err := s.OwnerOf("P9"); !errors.Is(err, ErrUnknownPlayer) {
		t.Fatalf("expected ErrUnknownPlayer, got %v", err)
	}
	if _, err := s.HealthOf("P9"); !errors.Is(err, ErrUnknownPlayer) {
		t.Fatalf("expected ErrUnknownPlayer, got %v", err)
	}
	if err := s.IncreaseHealth("P9", 1); !errors.Is(err, ErrUnknownPlayer) {
		t.Fatalf("expected ErrUnknownPlayer, got %v", err)
	}
}

func TestPlayerStore_HealthAdjust(t *testing.T) {
	s := NewPlayerStore(10)
	id := s.Mint("acct:alice")
	if err := s.DecreaseHealth(id, 4); err != nil {
		t.Fatalf("decrease: %v", err)
	}
	if err := s.IncreaseHealth(id, 7); err != nil {
		t.Fatalf("increase: %v", err)
	}
	h, _ := s.HealthOf(id)
	if h != 13 {
		t.Fatalf("health = %d, want 13", h)
	}
	if err := s.DecreaseHealth(id, 14); !errors.Is(err, ErrInsufficientHealth) {
		t.Fatalf("expected ErrInsufficientHealth, got %v", err)
	}
	if h, _ := s.HealthOf(id); h != 13 {
		t.Fatalf("failed decrease must not change health, got %d", h)
	}
}

func TestPlayerStore_ExportImport(t *testing.T) {
	s := NewPlayerStore(100)
	s.Mint("acct:alice")
	id := s.Mint("acct:bob")
	_ = s.DecreaseHealth(id, 25)

	sec := s.Export()
	if sec.Seq != 2 || len(sec.Players) != 2 {
		t.Fatalf("unexpected section: %+v", sec)
	}

	r := NewPlayerStore(100)
	r.Import(sec)
	if next := r.Mint("acct:carol"); next != "P3" {
		t.Fatalf("seq not restored, minted %q", next)
	}
	h, err := r.HealthOf(id)
	if err != nil || h != 75 {
		t.Fatalf("HealthOf(%q) after import = %d, %v", id, h, err)
	}
}

func TestMemLedger_CreditAndExport(t *testing.T) {
	l := NewMemLedger()
	if err := l.Credit("acct:alice", 500); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := l.Credit("acct:alice", 250); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if got := l.BalanceOf("acct:alice"); got != 750 {
		t.Fatalf("balance = %d, want 750", got)
	}
	if got := l.BalanceOf("acct:nobody"); got != 0 {
		t.Fatalf("balance = %d, want 0", got)
	}

	sec := l.Export()
	r := NewMemLedger()
	r.Import(sec)
	if got := r.BalanceOf("acct:alice"); got != 750 {
		t.Fatalf("balance after import = %d, want 750", got)
	}
}
