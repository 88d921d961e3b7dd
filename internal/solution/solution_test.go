package solution

import (
	"bytes"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/upmsp/internal/problem"
)

func testProblem(t *testing.T, jobs, machines int, seed int64) *problem.Problem {
	t.Helper()
	p, err := problem.Random("test", jobs, machines, 1, 99, 1, 20, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return p
}

func TestNewIsEmpty(t *testing.T) {
	s := New(testProblem(t, 5, 2, 1))
	assert.Equal(t, 0, s.Cost())
	for j := 0; j < 5; j++ {
		assert.Equal(t, None, s.MachineOf(j))
	}
	r := s.Validate()
	assert.False(t, r.Feasible())
	assert.Len(t, r.Issues, 5)
}

func TestManualCompletion(t *testing.T) {
	process := [][]int{{4, 6}, {5, 2}, {3, 3}}
	setup := [][][]int{
		{{0, 1, 2}, {1, 0, 3}, {2, 3, 0}},
		{{0, 2, 2}, {2, 0, 1}, {4, 1, 0}},
	}
	p, err := problem.New("manual", process, setup)
	require.NoError(t, err)

	s := New(p)
	s.Append(0, 0)
	s.Append(0, 2)
	s.Append(1, 1)

	// machine 0: 4 + (2 + 3) ; machine 1: 2
	assert.Equal(t, 9, s.Completion(0))
	assert.Equal(t, 2, s.Completion(1))
	assert.Equal(t, 9, s.Cost())
	assert.Equal(t, 0, s.MakespanMachine())
	assert.True(t, s.Validate().Feasible())
}

func TestDeltasMatchMutations(t *testing.T) {
	p := testProblem(t, 30, 4, 7)
	rng := rand.New(rand.NewSource(3))
	s := Random(p, rng)
	require.True(t, s.Validate().Feasible())

	for i := 0; i < 2000; i++ {
		m := rng.Intn(s.NMachines())
		before := s.Completion(m)
		n := s.Len(m)

		switch rng.Intn(5) {
		case 0:
			if n == 0 {
				continue
			}
			pos := rng.Intn(n)
			d := s.RemovalDelta(m, pos)
			job := s.Remove(m, pos)
			assert.Equal(t, before+d, s.completionOf(m, s.Sequence(m)))
			pos = rng.Intn(s.Len(m) + 1)
			d = s.InsertionDelta(m, None, pos, job)
			mid := s.Completion(m)
			s.Insert(m, pos, job)
			assert.Equal(t, mid+d, s.completionOf(m, s.Sequence(m)))
		case 1:
			if n < 2 {
				continue
			}
			skip := rng.Intn(n)
			pos := rng.Intn(n)
			job := s.Job(m, skip)
			want := s.RemovalDelta(m, skip) + s.InsertionDelta(m, skip, pos, job)
			s.Remove(m, skip)
			s.Insert(m, pos, job)
			assert.Equal(t, before+want, s.completionOf(m, s.Sequence(m)))
		case 2:
			if n < 2 {
				continue
			}
			p, q := rng.Intn(n), rng.Intn(n)
			d := s.SwapDelta(m, p, q)
			s.SwapPositions(m, p, q)
			assert.Equal(t, before+d, s.completionOf(m, s.Sequence(m)))
		case 3:
			if n < 3 {
				continue
			}
			pos := rng.Intn(n - 1)
			x, y := s.Job(m, pos), s.Job(m, pos+1)
			d := s.BlockRemovalDelta(m, pos)
			s.Remove(m, pos)
			s.Remove(m, pos)
			assert.Equal(t, before+d, s.completionOf(m, s.Sequence(m)))
			mid := s.Completion(m)
			at := rng.Intn(s.Len(m) + 1)
			d = s.BlockInsertionDelta(m, at, x, y)
			s.Insert(m, at, x)
			s.Insert(m, at+1, y)
			assert.Equal(t, mid+d, s.completionOf(m, s.Sequence(m)))
		case 4:
			other := (m + 1) % s.NMachines()
			if n == 0 || s.Len(other) == 0 {
				continue
			}
			p, q := rng.Intn(n), rng.Intn(s.Len(other))
			j1, j2 := s.Job(m, p), s.Job(other, q)
			d1, d2 := s.ReplacementDelta(m, p, j2), s.ReplacementDelta(other, q, j1)
			beforeOther := s.Completion(other)
			s.Replace(m, p, j2)
			s.Replace(other, q, j1)
			assert.Equal(t, before+d1, s.completionOf(m, s.Sequence(m)))
			assert.Equal(t, beforeOther+d2, s.completionOf(other, s.Sequence(other)))
		}
		require.True(t, s.Validate().Feasible(), "iteration %d: %s", i, s.Validate())
	}
}

func TestMaxCompletionExcept(t *testing.T) {
	p := testProblem(t, 12, 3, 11)
	s := Random(p, rand.New(rand.NewSource(5)))

	mk := s.MakespanMachine()
	assert.Equal(t, s.Cost(), s.MaxCompletionExcept(None, None))
	for m := 0; m < s.NMachines(); m++ {
		if m != mk {
			assert.Equal(t, s.Cost(), s.MaxCompletionExcept(m, None))
		}
	}
	assert.LessOrEqual(t, s.MaxCompletionExcept(mk, None), s.Cost())
}

func TestCloneAndCopyFrom(t *testing.T) {
	p := testProblem(t, 15, 3, 2)
	rng := rand.New(rand.NewSource(9))
	s := Random(p, rng)
	c := s.Clone()
	assert.Equal(t, s.Cost(), c.Cost())

	// Mutating the clone leaves the original untouched.
	for c.Len(0) > 0 {
		c.Append(1, c.Remove(0, 0))
	}
	assert.True(t, s.Validate().Feasible())
	assert.True(t, c.Validate().Feasible())

	s.CopyFrom(c)
	assert.Equal(t, c.Cost(), s.Cost())
	assert.Equal(t, 0, s.Len(0))
	assert.True(t, s.Validate().Feasible())
}

func TestGreedyIsFeasible(t *testing.T) {
	p := testProblem(t, 40, 5, 4)
	s := Greedy(p)
	assert.True(t, s.Validate().Feasible())

	r := Random(p, rand.New(rand.NewSource(1)))
	assert.True(t, r.Validate().Feasible())
}

func TestValidateDetectsCorruption(t *testing.T) {
	p := testProblem(t, 6, 2, 1)
	s := Random(p, rand.New(rand.NewSource(1)))
	s.completion[0] += 5

	r := s.Validate()
	assert.False(t, r.Feasible())
	assert.Contains(t, r.String(), "cached completion")
}

func TestWrite(t *testing.T) {
	process := [][]int{{1, 1}, {2, 2}, {3, 3}}
	zero := [][]int{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}}
	p, err := problem.New("w", process, [][][]int{zero, zero})
	require.NoError(t, err)

	s := New(p)
	s.Append(0, 2)
	s.Append(0, 0)
	s.Append(1, 1)

	var buf bytes.Buffer
	require.NoError(t, s.Write(&buf))
	assert.Equal(t, "4\n0 2 2 0\n1 1 1\n", buf.String())

	path := filepath.Join(t.TempDir(), "out", "sol.txt")
	require.NoError(t, s.WriteFile(path))
}

func TestReportString(t *testing.T) {
	assert.Equal(t, "feasible", Report{}.String())
	r := Report{Issues: []string{"a", "b"}}
	assert.Equal(t, "a\nb", r.String())
	assert.True(t, strings.Contains(r.String(), "b"))
}
