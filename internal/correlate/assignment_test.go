package correlate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSolveAssignmentSquareMatrix(t *testing.T) {
	// Classic 3x3 example with a known optimal assignment (cost 5):
	// row0->col1 (1), row1->col0 (2), row2->col2 (2), chosen to have one clear optimum.
	cost := mat.NewDense(3, 3, []float64{
		4, 1, 3,
		2, 0, 5,
		3, 2, 2,
	})

	result := SolveAssignment(cost)
	require.Len(t, result, 3)

	seen := make(map[int]bool)
	total := 0.0
	for i, j := range result {
		require.False(t, seen[j], "column %d assigned twice", j)
		seen[j] = true
		total += cost.At(i, j)
	}

	// Brute-force the optimum over all 6 permutations of 3 columns to
	// confirm the solver found the true minimum.
	perms := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	minCost := mat.Sum(cost) // loose upper bound
	for _, perm := range perms {
		sum := 0.0
		for i, j := range perm {
			sum += cost.At(i, j)
		}
		if sum < minCost {
			minCost = sum
		}
	}

	assert.Equal(t, minCost, total)
}

func TestSolveAssignmentRectangularMatrixPrefersNewTrackColumn(t *testing.T) {
	// 1 observation, 1 track column (infeasible, high cost) + 1 own
	// pseudo-column (cheap) — mirrors buildCostMatrix's shape.
	cost := mat.NewDense(1, 2, []float64{infeasibleCost, 0.5})

	result := SolveAssignment(cost)
	require.Len(t, result, 1)
	assert.Equal(t, 1, result[0], "observation should prefer its own cheap pseudo-column over the infeasible track")
}

func TestGreedyFallbackRespectsFeasibility(t *testing.T) {
	// Shape mirrors buildCostMatrix: 1 track column (0) + 2 observations'
	// own pseudo-columns (1, 2). feasible only covers the track column;
	// pseudo-columns are always implicitly eligible.
	cost := mat.NewDense(2, 3, []float64{
		infeasibleCost, 0.5, infeasibleCost, // row 0: track infeasible, own pseudo cheap
		infeasibleCost, infeasibleCost, 0.4, // row 1: track infeasible, own pseudo cheap
	})
	feasible := [][]bool{
		{false},
		{false},
	}

	result := greedyFallback(cost, feasible)
	require.Len(t, result, 2)

	assert.Equal(t, 1, result[0], "row 0 must fall to its own pseudo-column, not the infeasible track")
	assert.Equal(t, 2, result[1], "row 1 must fall to its own pseudo-column, not the infeasible track")
}

func TestGreedyFallbackProducesDistinctColumnsWhenPossible(t *testing.T) {
	cost := mat.NewDense(2, 2, []float64{1, 2, 2, 1})
	feasible := [][]bool{{true, true}, {true, true}}

	result := greedyFallback(cost, feasible)
	require.Len(t, result, 2)
	assert.NotEqual(t, result[0], result[1])
}
