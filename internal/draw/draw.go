// Package draw builds gift-exchange assignments.
//
// An assignment is produced by shuffling the participants and linking each
// one to the next in a single cycle, which always yields a derangement. Cycles
// that use an excluded edge are rejected and the shuffle is retried. The
// result is uniform over single-cycle derangements only.
package draw

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
)

// DefaultMaxAttempts bounds the shuffle-and-check loop.
const DefaultMaxAttempts = 2000

var (
	ErrUnsatisfiable = errors.New("no valid assignment within the attempt limit")
	ErrTooFew        = errors.New("at least two participants are required")
	ErrDuplicate     = errors.New("participant listed more than once")
)

// Pair is a directed giver to receiver edge.
type Pair struct {
	Giver    uuid.UUID
	Receiver uuid.UUID
}

type Generator struct {
	// MaxAttempts defaults to DefaultMaxAttempts when zero.
	MaxAttempts int
	// Rand defaults to the math/rand/v2 global source when nil.
	// A *rand.Rand is not safe for concurrent use.
	Rand *rand.Rand
}

// Generate returns one assignment per participant. exclusions lists
// forbidden edges; self-assignment is always forbidden.
func (g *Generator) Generate(participants []uuid.UUID, exclusions []Pair) ([]Pair, error) {
	n := len(participants)
	if n < 2 {
		return nil, ErrTooFew
	}

	seen := make(map[uuid.UUID]struct{}, n)
	for _, id := range participants {
		if _, ok := seen[id]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, id)
		}
		seen[id] = struct{}{}
	}

	forbidden := make(map[Pair]struct{}, len(exclusions))
	for _, x := range exclusions {
		forbidden[x] = struct{}{}
	}

	limit := g.MaxAttempts
	if limit <= 0 {
		limit = DefaultMaxAttempts
	}

	order := make([]uuid.UUID, n)
	copy(order, participants)

	for attempt := 0; attempt < limit; attempt++ {
		g.shuffle(order)
		if pairs, ok := cycle(order, forbidden); ok {
			return pairs, nil
		}
	}

	return nil, fmt.Errorf("%w (%d participants, %d exclusions, %d attempts)",
		ErrUnsatisfiable, n, len(forbidden), limit)
}

func (g *Generator) shuffle(order []uuid.UUID) {
	swap := func(i, j int) { order[i], order[j] = order[j], order[i] }
	if g.Rand != nil {
		g.Rand.Shuffle(len(order), swap)
		return
	}
	rand.Shuffle(len(order), swap)
}

// cycle links order[i] to order[i+1 mod n], failing on the first forbidden edge.
func cycle(order []uuid.UUID, forbidden map[Pair]struct{}) ([]Pair, bool) {
	n := len(order)
	pairs := make([]Pair, 0, n)
	for i, giver := range order {
		p := Pair{Giver: giver, Receiver: order[(i+1)%n]}
		if _, bad := forbidden[p]; bad {
			return nil, false
		}
		pairs = append(pairs, p)
	}
	return pairs, true
}
