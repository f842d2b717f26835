package sample

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"time"
)

// drawLimit is the largest multiple of Span not above 1<<63. Draws at or
// above it are rejected so every value is equally likely.
const drawLimit = uint64(1<<63) - uint64(1<<63)%uint64(Span)

// Generator draws Samples uniformly from [Min, Max].
// It's not safe for concurrent use.
type Generator struct {
	Source rand.Source
}

// NewGenerator creates a Generator seeded from the system entropy source.
func NewGenerator() *Generator {
	return NewSeeded(randomSeed())
}

// NewSeeded creates a Generator with a fixed seed, the sequence is
// reproducible for the same seed.
func NewSeeded(seed int64) *Generator {
	return &Generator{Source: rand.NewSource(seed)}
}

// Next draws the next Sample.
func (g *Generator) Next() Sample {
	for {
		if v := uint64(g.Source.Int63()); v < drawLimit {
			return Min + Sample(v%uint64(Span))
		}
	}
}

func randomSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}
