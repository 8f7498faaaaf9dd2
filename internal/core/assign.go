package core

import (
	"math/rand/v2"

	"gwi.com/secret-santa-bot/internal/store"
)

// DefaultMaxAttempts bounds the rejection sampler in Assign.
const DefaultMaxAttempts = 100

// Pair is an ordered (giver, receiver) pair of user ids.
type Pair struct {
	Giver    string
	Receiver string
}

// ForbiddenSet holds pairs that must never become giver -> receiver.
type ForbiddenSet map[Pair]struct{}

func (f ForbiddenSet) Forbid(giver, receiver string) {
	f[Pair{Giver: giver, Receiver: receiver}] = struct{}{}
}

// ForbidBoth forbids a and b in either direction.
func (f ForbiddenSet) ForbidBoth(a, b string) {
	f.Forbid(a, b)
	f.Forbid(b, a)
}

func (f ForbiddenSet) Contains(giver, receiver string) bool {
	_, ok := f[Pair{Giver: giver, Receiver: receiver}]
	return ok
}

// Engine builds random giver -> receiver bijections. It keeps no state
// between calls other than its random source.
type Engine struct {
	rng         *rand.Rand
	maxAttempts int
}

// NewEngine returns an engine drawing from rng. A nil rng uses an unseeded
// source; maxAttempts <= 0 means DefaultMaxAttempts.
func NewEngine(rng *rand.Rand, maxAttempts int) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Engine{rng: rng, maxAttempts: maxAttempts}
}

// Assign maps every participant's user id to another participant's user id
// so that each appears once as giver and once as receiver, nobody gives to
// themselves and no forbidden pair is used.
//
// Givers are taken in a shuffled order and each picks uniformly among the
// receivers still free. An attempt that strands a giver is thrown away and
// the receivers reshuffled; after maxAttempts failures ErrInfeasible is
// returned. The result is not uniform over all valid bijections.
func (e *Engine) Assign(participants []store.Participant, forbidden ForbiddenSet) (map[string]string, error) {
	if len(participants) < 2 {
		return nil, ErrNotEnoughParticipants
	}
	seen := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		if !p.HasWishlist() {
			return nil, &MissingWishlistError{UserID: p.UserID, DisplayName: p.DisplayName}
		}
		if _, dup := seen[p.UserID]; dup {
			return nil, ErrDuplicateParticipant
		}
		seen[p.UserID] = struct{}{}
	}

	givers := userIDs(participants)
	receivers := userIDs(participants)
	e.shuffle(givers)
	e.shuffle(receivers)

	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		if result, ok := e.tryAssign(givers, receivers, forbidden); ok {
			return result, nil
		}
		e.shuffle(receivers)
	}
	return nil, ErrInfeasible
}

func (e *Engine) tryAssign(givers, receivers []string, forbidden ForbiddenSet) (map[string]string, bool) {
	free := make([]string, len(receivers))
	copy(free, receivers)
	result := make(map[string]string, len(givers))

	candidates := make([]int, 0, len(free))
	for _, giver := range givers {
		candidates = candidates[:0]
		for i, r := range free {
			if r != giver && !forbidden.Contains(giver, r) {
				candidates = append(candidates, i)
			}
		}
		if len(candidates) == 0 {
			return nil, false
		}
		pick := candidates[e.rng.IntN(len(candidates))]
		result[giver] = free[pick]
		free = append(free[:pick], free[pick+1:]...)
	}
	return result, true
}

func (e *Engine) shuffle(ids []string) {
	e.rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
}

func userIDs(participants []store.Participant) []string {
	ids := make([]string, len(participants))
	for i, p := range participants {
		ids[i] = p.UserID
	}
	return ids
}
