package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// genesisDigest seeds the digest chain before any tick has sealed.
// Entropy draws at tick 0 key off it.
func (w *World) genesisDigest() string {
	h := sha256.New()
	var tmp [8]byte
	digestWriteString(h, &tmp, w.cfg.ID)
	digestWriteI64(h, &tmp, w.cfg.Seed)
	return hex.EncodeToString(h.Sum(nil))
}

// stateDigest seals tick nowTick: a sha256 over all world-owned state
// in a fixed order. Oracle state (health, balances, ownership) is
// external and not digested; replay reconstructs it from the op log and
// any drift surfaces as a digest mismatch on a later tick's draws.
func (w *World) stateDigest(nowTick uint64) string {
	h := sha256.New()
	var tmp [8]byte

	w.digestHeader(h, &tmp, nowTick)
	w.digestGrid(h, &tmp)
	w.digestPlayers(h, &tmp)

	return hex.EncodeToString(h.Sum(nil))
}

func (w *World) digestHeader(h hashWriter, tmp *[8]byte, nowTick uint64) {
	digestWriteU64(h, tmp, nowTick)
	digestWriteU64(h, tmp, w.epoch)
	h.Write([]byte{boolByte(w.active)})
	digestWriteU64(h, tmp, uint64(w.cfg.GridWidth))
	digestWriteU64(h, tmp, uint64(w.cfg.GridHeight))

	b := w.cfg.Balance
	digestWriteU64(h, tmp, b.CollectIntervalTicks)
	h.Write([]byte{boolByte(b.DropOnCollect)})
	digestWriteU64(h, tmp, b.AttritionDivider)
	digestWriteU64(h, tmp, b.HealthCostPerMove)
	digestWriteU64(h, tmp, uint64(b.MaxPlayers))
	digestWriteU64(h, tmp, b.ShuffleTokenAmounts[0])
	digestWriteU64(h, tmp, b.ShuffleTokenAmounts[1])
	digestWriteU64(h, tmp, b.ShuffleHealthAmounts[0])
	digestWriteU64(h, tmp, b.ShuffleHealthAmounts[1])
}

// digestGrid walks every cell in row-major order, empty or not, so the
// encoding needs no cell markers.
func (w *World) digestGrid(h hashWriter, tmp *[8]byte) {
	for i := range w.grid.cells {
		f := &w.grid.cells[i]
		digestWriteString(h, tmp, f.Occupant)
		digestWriteU64(h, tmp, f.TokenDeposit)
		digestWriteU64(h, tmp, f.HealthDeposit)
	}
}

// digestPlayers covers the roster in join order, which is stable and
// identical across replicas.
func (w *World) digestPlayers(h hashWriter, tmp *[8]byte) {
	digestWriteU64(h, tmp, uint64(len(w.roster)))
	for _, id := range w.roster {
		digestWriteString(h, tmp, id)
		e := w.players[id]
		if e == nil {
			continue
		}
		digestWriteI64(h, tmp, int64(e.Pos.X))
		digestWriteI64(h, tmp, int64(e.Pos.Y))
		h.Write([]byte{boolByte(e.Placed)})
		digestWriteU64(h, tmp, e.LastCollectTick)
		h.Write([]byte{boolByte(e.HasCollected)})
		digestWriteU64(h, tmp, e.JoinedTick)
	}
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

func digestWriteString(h hashWriter, tmp *[8]byte, s string) {
	digestWriteU64(h, tmp, uint64(len(s)))
	h.Write([]byte(s))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

type hashWriter interface {
	Write(p []byte) (n int, err error)
}
