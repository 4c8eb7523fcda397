package services

import (
	"math/rand"
	"sync"
	"time"
)

// Chance abstracts the randomness behind humanized behavior (response
// delays, thinking phrases) so tests can substitute a deterministic one.
type Chance interface {
	Float64() float64
	IntN(n int) int
}

type systemChance struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewChance returns the production randomness source.
func NewChance() Chance {
	return &systemChance{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (c *systemChance) Float64() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.r.Float64()
}

func (c *systemChance) IntN(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n <= 0 {
		return 0
	}
	return c.r.Intn(n)
}
