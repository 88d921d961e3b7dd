package neighborhood

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/upmsp/internal/problem"
	"github.com/copyleftdev/upmsp/internal/solution"
)

func testSolution(t *testing.T, jobs, machines int, seed int64) *solution.Solution {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	p, err := problem.Random("test", jobs, machines, 1, 99, 1, 20, rng)
	require.NoError(t, err)
	return solution.Random(p, rng)
}

func allMoves(t *testing.T, rng *rand.Rand) []Move {
	t.Helper()
	moves, err := Build(rng, nil)
	require.NoError(t, err)
	require.Len(t, moves, 24)
	return moves
}

func TestEvaluateMatchesAppliedDelta(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for _, mv := range allMoves(t, rng) {
		t.Run(mv.Name(), func(t *testing.T) {
			s := testSolution(t, 25, 4, 5)
			for i := 0; i < 300; i++ {
				if !mv.HasMove(s) {
					continue
				}
				before := s.Cost()
				delta := mv.Evaluate(s)
				assert.Equal(t, before, s.Cost(), "Evaluate must not mutate")

				mv.Accept()
				assert.Equal(t, before+delta, s.Cost())
				require.True(t, s.Validate().Feasible(), s.Validate().String())
			}
		})
	}
}

func TestRejectLeavesSolutionUntouched(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for _, mv := range allMoves(t, rng) {
		t.Run(mv.Name(), func(t *testing.T) {
			s := testSolution(t, 20, 3, 8)
			ref := s.Clone()
			for i := 0; i < 50; i++ {
				mv.Evaluate(s)
				mv.Reject()
			}
			for m := 0; m < s.NMachines(); m++ {
				assert.Equal(t, ref.Sequence(m), s.Sequence(m))
			}
			st := mv.Stats()
			assert.Equal(t, int64(50), st.Calls)
			assert.Equal(t, int64(50), st.Rejects)
			assert.Zero(t, st.Accepts)
		})
	}
}

func TestStatisticsAndReset(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	s := testSolution(t, 20, 3, 1)
	mv := NewShift(rng, 1, false, true)

	var improvements, sideways int64
	for i := 0; i < 40; i++ {
		d := mv.Evaluate(s)
		if i%2 == 0 {
			mv.Accept()
			if d < 0 {
				improvements++
			} else if d == 0 {
				sideways++
			}
		} else {
			mv.Reject()
		}
	}

	st := mv.Stats()
	assert.Equal(t, Stats{
		Calls:        40,
		Improvements: improvements,
		Sideways:     sideways,
		Accepts:      20,
		Rejects:      20,
	}, st)

	mv.Evaluate(s)
	mv.Reset()
	assert.Equal(t, Stats{}, mv.Stats())
	assert.Panics(t, func() { mv.Accept() }, "reset drops the pending candidate")
}

func TestAcceptWithoutEvaluatePanics(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, mv := range allMoves(t, rng) {
		assert.Panics(t, func() { mv.Accept() }, mv.Name())
		assert.Panics(t, func() { mv.Reject() }, mv.Name())
	}

	s := testSolution(t, 10, 2, 3)
	mv := NewSwitch(rng, 1, false, false)
	mv.Evaluate(s)
	mv.Accept()
	assert.Panics(t, func() { mv.Accept() }, "a candidate is applied once")
}

func TestHasMoveOnDegenerateSolutions(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	single, err := problem.Random("one-machine", 4, 1, 1, 9, 0, 3, rng)
	require.NoError(t, err)
	oneMachine := solution.Random(single, rng)

	twoJobs, err := problem.Random("two-jobs", 2, 3, 1, 9, 0, 3, rng)
	require.NoError(t, err)
	spread := solution.New(twoJobs)
	spread.Append(0, 0)
	spread.Append(2, 1)

	stacked := solution.New(twoJobs)
	stacked.Append(1, 0)
	stacked.Append(1, 1)

	tests := []struct {
		name  string
		sol   *solution.Solution
		kinds map[Family]bool
	}{
		{
			name: "single machine",
			sol:  oneMachine,
			kinds: map[Family]bool{
				FamilyShift: false, FamilySimpleSwap: false, FamilySwap: false,
				FamilySwitch: true, FamilyTaskMove: true, FamilyTwoShift: false,
			},
		},
		{
			name: "one job per machine",
			sol:  spread,
			kinds: map[Family]bool{
				FamilyShift: true, FamilySimpleSwap: true, FamilySwap: true,
				FamilySwitch: false, FamilyTaskMove: false, FamilyTwoShift: false,
			},
		},
		{
			name: "all jobs on one machine",
			sol:  stacked,
			kinds: map[Family]bool{
				FamilyShift: true, FamilySimpleSwap: false, FamilySwap: false,
				FamilySwitch: true, FamilyTaskMove: true, FamilyTwoShift: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, mv := range allMoves(t, rng) {
				assert.Equal(t, tt.kinds[mv.Kind().Family()], mv.HasMove(tt.sol), mv.Name())
			}
		})
	}
}

func TestSmartShiftPicksCheapestPosition(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	for i := 0; i < 50; i++ {
		s := testSolution(t, 12, 2, int64(i))
		mv := NewShift(rng, 1, true, true)

		mv.Evaluate(s)
		mv.Reject()
		job := s.Job(mv.from, mv.fromPos)
		for q := 0; q <= s.Len(mv.to); q++ {
			assert.LessOrEqual(t, s.InsertionDelta(mv.to, solution.None, mv.toPos, job), s.InsertionDelta(mv.to, solution.None, q, job))
		}
	}
}

func TestBuildDisablesFamilies(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	moves, err := Build(rng, []string{"shift", "Two-Shift"})
	require.NoError(t, err)
	assert.Len(t, moves, 16)
	for _, mv := range moves {
		assert.NotEqual(t, FamilyShift, mv.Kind().Family())
		assert.NotEqual(t, FamilyTwoShift, mv.Kind().Family())
		assert.Equal(t, 1, mv.Priority())
	}

	_, err = Build(rng, []string{"teleport"})
	assert.Error(t, err)
}

func TestKinds(t *testing.T) {
	for _, f := range Families() {
		plain, smart := f.Kinds()
		assert.False(t, plain.Smart())
		assert.True(t, smart.Smart())
		assert.Equal(t, f, plain.Family())
		assert.Equal(t, f, smart.Family())
		assert.Equal(t, plain.String()+"Smart", smart.String())
	}
	assert.Equal(t, "Kind(99)", Kind(99).String())

	mv, err := New(KindSwapSmart, rand.New(rand.NewSource(1)), 3, true)
	require.NoError(t, err)
	assert.Equal(t, "SwapSmart(mk)", mv.Name())
	assert.Equal(t, 3, mv.Priority())

	_, err = New(Kind(42), nil, 1, false)
	assert.Error(t, err)
}
