package drop

import (
	"encoding/binary"
	"math"

	"github.com/tolelom/dropchain/crypto"
)

// EntropySource yields values in [0, bound). bound is always > 0.
type EntropySource interface {
	Draw(bound uint64) uint64
}

// ChainEntropy derives draws from Keccak-256 over execution context (previous
// block hash, height, timestamp, transaction id, caller). It is reproducible
// by every node and NOT secret: a block proposer can choose ordering or
// timing to steer outcomes.
type ChainEntropy struct {
	seed    [32]byte
	counter uint64
}

// NewChainEntropy hashes the length-prefixed parts into a seed.
func NewChainEntropy(parts ...[]byte) *ChainEntropy {
	var buf []byte
	var lenBuf [4]byte
	for _, p := range parts {
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(p)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, p...)
	}
	e := &ChainEntropy{}
	copy(e.seed[:], crypto.Keccak256(buf))
	return e
}

// Draw uses rejection sampling so every value in [0, bound) is equally likely.
func (e *ChainEntropy) Draw(bound uint64) uint64 {
	if bound <= 1 {
		return 0
	}
	ceiling := math.MaxUint64 - math.MaxUint64%bound
	for {
		if v := e.next(); v < ceiling {
			return v % bound
		}
	}
}

func (e *ChainEntropy) next() uint64 {
	var ctr [8]byte
	binary.BigEndian.PutUint64(ctr[:], e.counter)
	e.counter++
	return binary.BigEndian.Uint64(crypto.Keccak256(e.seed[:], ctr[:])[:8])
}
