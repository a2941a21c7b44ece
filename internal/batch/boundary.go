package batch

import (
	"sync"

	"github.com/google/uuid"
)

// BoundaryGenerator produces multipart boundary tokens.
// Implemented by RandomBoundary (production) and FixedBoundary (tests).
type BoundaryGenerator interface {
	Generate() string
}

// RandomBoundary generates "batch_" followed by a random (version 4) UUID.
//
// 122 random bits make a collision with body content practically
// impossible, so bodies are never scanned for the token.
//
// Thread-safety: RandomBoundary is stateless and safe for concurrent use.
type RandomBoundary struct{}

// Generate returns a new boundary. Panics if the system random source fails.
func (RandomBoundary) Generate() string {
	return "batch_" + uuid.Must(uuid.NewRandom()).String()
}

// FixedBoundary returns predetermined boundaries in order, then keeps
// returning the last one. Intended for golden tests where the envelope bytes
// must be reproducible.
//
// Thread-safety: FixedBoundary is safe for concurrent use via internal mutex.
type FixedBoundary struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedBoundary creates a generator that yields tokens in order.
//
// Example:
//
//	gen := NewFixedBoundary("batch_1", "batch_2")
//	gen.Generate() // "batch_1"
//	gen.Generate() // "batch_2"
//	gen.Generate() // "batch_2"
func NewFixedBoundary(tokens ...string) *FixedBoundary {
	if len(tokens) == 0 {
		tokens = []string{"batch_test"}
	}
	return &FixedBoundary{tokens: tokens}
}

// Generate returns the next predetermined boundary.
func (g *FixedBoundary) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	token := g.tokens[g.idx]
	if g.idx < len(g.tokens)-1 {
		g.idx++
	}
	return token
}
