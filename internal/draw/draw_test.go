package draw

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/google/uuid"
)

func ids(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}

func seeded(seed uint64) *Generator {
	return &Generator{Rand: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func checkDerangement(t *testing.T, people []uuid.UUID, pairs []Pair) {
	t.Helper()
	if len(pairs) != len(people) {
		t.Fatalf("expected %d pairs, got %d", len(people), len(pairs))
	}
	gives := make(map[uuid.UUID]int)
	gets := make(map[uuid.UUID]int)
	for _, p := range pairs {
		if p.Giver == p.Receiver {
			t.Fatalf("self assignment for %s", p.Giver)
		}
		gives[p.Giver]++
		gets[p.Receiver]++
	}
	for _, id := range people {
		if gives[id] != 1 || gets[id] != 1 {
			t.Fatalf("participant %s gives %d receives %d", id, gives[id], gets[id])
		}
	}
}

func TestGenerateNoExclusions(t *testing.T) {
	for n := 2; n <= 12; n++ {
		people := ids(n)
		for seed := uint64(0); seed < 20; seed++ {
			pairs, err := seeded(seed).Generate(people, nil)
			if err != nil {
				t.Fatalf("n=%d seed=%d: unexpected error %v", n, seed, err)
			}
			checkDerangement(t, people, pairs)
		}
	}
}

func TestGenerateSingleCycle(t *testing.T) {
	people := ids(7)
	pairs, err := seeded(3).Generate(people, nil)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	next := make(map[uuid.UUID]uuid.UUID)
	for _, p := range pairs {
		next[p.Giver] = p.Receiver
	}
	cur := people[0]
	for i := 0; i < len(people)-1; i++ {
		cur = next[cur]
		if cur == people[0] {
			t.Fatalf("cycle closed after %d steps, expected %d", i+1, len(people))
		}
	}
	if next[cur] != people[0] {
		t.Fatalf("cycle does not close back to start")
	}
}

func TestGenerateTwoParticipants(t *testing.T) {
	people := ids(2)
	pairs, err := (&Generator{}).Generate(people, nil)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	checkDerangement(t, people, pairs)
}

func TestGenerateRespectsExclusions(t *testing.T) {
	people := ids(5)
	exclusions := []Pair{
		{Giver: people[0], Receiver: people[1]},
		{Giver: people[1], Receiver: people[0]},
		{Giver: people[2], Receiver: people[3]},
		{Giver: people[4], Receiver: people[0]},
	}
	for seed := uint64(0); seed < 50; seed++ {
		pairs, err := seeded(seed).Generate(people, exclusions)
		if err != nil {
			t.Fatalf("seed=%d: unexpected error %v", seed, err)
		}
		checkDerangement(t, people, pairs)
		for _, p := range pairs {
			for _, x := range exclusions {
				if p == x {
					t.Fatalf("seed=%d: excluded pair %v used", seed, x)
				}
			}
		}
	}
}

func TestGenerateUnsatisfiable(t *testing.T) {
	people := ids(4)
	var exclusions []Pair
	for _, g := range people {
		for _, r := range people {
			if g != r {
				exclusions = append(exclusions, Pair{Giver: g, Receiver: r})
			}
		}
	}
	gen := seeded(1)
	gen.MaxAttempts = 50
	_, err := gen.Generate(people, exclusions)
	if !errors.Is(err, ErrUnsatisfiable) {
		t.Fatalf("expected ErrUnsatisfiable, got %v", err)
	}
}

func TestGenerateTwoWithOneWayExclusion(t *testing.T) {
	people := ids(2)
	_, err := seeded(9).Generate(people, []Pair{{Giver: people[0], Receiver: people[1]}})
	if !errors.Is(err, ErrUnsatisfiable) {
		t.Fatalf("expected ErrUnsatisfiable, got %v", err)
	}
}

func TestGenerateInputValidation(t *testing.T) {
	gen := &Generator{}
	if _, err := gen.Generate(ids(1), nil); !errors.Is(err, ErrTooFew) {
		t.Fatalf("expected ErrTooFew, got %v", err)
	}
	dup := ids(3)
	dup[2] = dup[0]
	if _, err := gen.Generate(dup, nil); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestGenerateDoesNotMutateInput(t *testing.T) {
	people := ids(6)
	before := make([]uuid.UUID, len(people))
	copy(before, people)
	if _, err := seeded(4).Generate(people, nil); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	for i := range people {
		if people[i] != before[i] {
			t.Fatalf("input slice reordered at %d", i)
		}
	}
}
