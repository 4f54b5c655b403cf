package game

import (
	"math/rand/v2"
	"sync"
)

// Source is the randomness used to draw secrets.
// Implementations must be safe for concurrent use.
type Source interface {
	// IntN returns a uniform int in [0, n). n > 0.
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// DefaultSource draws from the runtime-seeded math/rand/v2 generator.
func DefaultSource() Source { return globalSource{} }

type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (s *lockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.IntN(n)
}

// NewSeededSource returns a deterministic source: equal seeds yield equal
// secret sequences.
func NewSeededSource(seed uint64) Source {
	return &lockedSource{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// GenerateSecret draws digits 1..9 and keeps each one only if it is not
// already taken, until three are collected.
func GenerateSecret(src Source) Secret {
	var s Secret
	n := 0
	for n < DigitsLen {
		d := MinDigit + src.IntN(MaxDigit-MinDigit+1)
		if containsDigit(s[:n], d) {
			continue
		}
		s[n] = d
		n++
	}
	return s
}

func containsDigit(ds []int, d int) bool {
	for _, x := range ds {
		if x == d {
			return true
		}
	}
	return false
}
