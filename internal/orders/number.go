package orders

import (
	"fmt"
	"math/rand"
	"time"
)

// NumberGenerator produces human-readable order numbers of the form
// ORD-<last six digits of the unix-millis clock><three random digits>.
// Numbers are not globally unique; the store's unique key plus a retry in
// the caller covers collisions.
type NumberGenerator struct {
	Now  func() time.Time
	Rand func(n int) int
}

func (g NumberGenerator) Next() string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	rnd := rand.Intn
	if g.Rand != nil {
		rnd = g.Rand
	}
	ms := now().UnixMilli() % 1_000_000
	return fmt.Sprintf("ORD-%06d%03d", ms, rnd(1000))
}
