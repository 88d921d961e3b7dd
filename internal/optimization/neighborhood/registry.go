package neighborhood

import (
	"fmt"
	"math/rand"
)

// New creates the move of the given kind.
func New(kind Kind, rng *rand.Rand, priority int, useMakespanMachine bool) (Move, error) {
	smart := kind.Smart()
	switch kind {
	case KindShift, KindShiftSmart:
		return NewShift(rng, priority, useMakespanMachine, smart), nil
	case KindSimpleSwap, KindSimpleSwapSmart:
		return NewSimpleSwap(rng, priority, useMakespanMachine, smart), nil
	case KindSwap, KindSwapSmart:
		return NewSwap(rng, priority, useMakespanMachine, smart), nil
	case KindSwitch, KindSwitchSmart:
		return NewSwitch(rng, priority, useMakespanMachine, smart), nil
	case KindTaskMove, KindTaskMoveSmart:
		return NewTaskMove(rng, priority, useMakespanMachine, smart), nil
	case KindTwoShift, KindTwoShiftSmart:
		return NewTwoShift(rng, priority, useMakespanMachine, smart), nil
	default:
		return nil, fmt.Errorf("unknown move kind %v", kind)
	}
}

// Build returns the moves of every family not listed in disabled. Each family
// contributes four moves: plain and smart, each starting from the makespan
// machine or from any machine. All share rng and have priority 1.
func Build(rng *rand.Rand, disabled []string) ([]Move, error) {
	off := make(map[Family]bool, len(disabled))
	for _, name := range disabled {
		f, err := ParseFamily(name)
		if err != nil {
			return nil, err
		}
		off[f] = true
	}

	var moves []Move
	for _, f := range families {
		if off[f] {
			continue
		}
		plain, smart := f.Kinds()
		for _, kind := range []Kind{plain, smart} {
			for _, mk := range []bool{true, false} {
				mv, err := New(kind, rng, 1, mk)
				if err != nil {
					return nil, err
				}
				moves = append(moves, mv)
			}
		}
	}
	return moves, nil
}
