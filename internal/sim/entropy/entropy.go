package entropy

import (
	"crypto/sha256"
	"encoding/binary"
)

// Inputs name everything a draw is allowed to depend on. TickHash must be
// the digest of an already-sealed tick, never the tick being computed.
type Inputs struct {
	TickHash string
	Caller   string
	Origin   string
	Target   string
	System   string
}

// Stream hands out bytes from sha256(inputs || round). When a block is
// exhausted the round counter advances and the block is recomputed, so
// two streams built from equal inputs always agree byte for byte.
type Stream struct {
	seed  [32]byte
	block [32]byte
	round uint64
	off   int
}

func New(in Inputs) *Stream {
	h := sha256.New()
	writeField(h, in.TickHash)
	writeField(h, in.Caller)
	writeField(h, in.Origin)
	writeField(h, in.Target)
	writeField(h, in.System)
	s := &Stream{}
	h.Sum(s.seed[:0])
	s.fill()
	return s
}

func (s *Stream) Byte() byte {
	if s.off >= len(s.block) {
		s.round++
		s.fill()
	}
	b := s.block[s.off]
	s.off++
	return b
}

func (s *Stream) Uint64() uint64 {
	var buf [8]byte
	for i := range buf {
		buf[i] = s.Byte()
	}
	return binary.LittleEndian.Uint64(buf[:])
}

// Intn returns a draw in [0, n). n must be positive.
func (s *Stream) Intn(n int) int {
	if n <= 0 {
		panic("entropy: Intn with non-positive n")
	}
	return int(s.Uint64() % uint64(n))
}

func (s *Stream) fill() {
	h := sha256.New()
	h.Write(s.seed[:])
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], s.round)
	h.Write(tmp[:])
	h.Sum(s.block[:0])
	s.off = 0
}

// writeField length-prefixes each input so adjacent fields cannot
// alias ("ab","c" vs "a","bc").
func writeField(h interface{ Write(p []byte) (int, error) }, v string) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(len(v)))
	h.Write(tmp[:])
	h.Write([]byte(v))
}
