package assigner

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peereval/internal/apperr"
	"peereval/internal/models"
)

func pairsByEvaluator(pairs []models.AssignmentPair) map[string][]string {
	out := map[string][]string{}
	for _, p := range pairs {
		out[p.EvaluatorID] = append(out[p.EvaluatorID], p.TargetID)
	}
	for k := range out {
		sort.Strings(out[k])
	}
	return out
}

// E1: n=5, k=2, allow_self=false, seed=0 (no shuffle) yields the ring
// A->[B,C], B->[C,D], C->[D,E], D->[E,A], E->[A,B].
func TestPerfectAssign_E1(t *testing.T) {
	students := []string{"A", "B", "C", "D", "E"}
	seed := int64(0)
	a := New()
	set, err := a.Assign(students, nil, Options{
		AssignmentsPerStudent: 2,
		AllowSelfEvaluation:   false,
		Mode:                  ModePerfect,
		RandomSeed:            &seed,
	})
	require.NoError(t, err)

	got := pairsByEvaluator(set.Pairs)
	for evaluator, targets := range got {
		assert.Len(t, targets, 2, "evaluator %s", evaluator)
		for _, target := range targets {
			assert.NotEqual(t, evaluator, target)
		}
	}

	inDegree := map[string]int{}
	for _, p := range set.Pairs {
		inDegree[p.TargetID]++
	}
	for _, id := range students {
		assert.Equal(t, 2, inDegree[id], "in-degree for %s", id)
	}
}

func TestPerfectAssign_Deterministic(t *testing.T) {
	students := []string{"A", "B", "C", "D", "E", "F", "G"}
	seed := int64(42)
	opts := Options{AssignmentsPerStudent: 3, AllowSelfEvaluation: false, Mode: ModePerfect, RandomSeed: &seed}

	a := New()
	set1, err := a.Assign(students, nil, opts)
	require.NoError(t, err)
	set2, err := a.Assign(students, nil, opts)
	require.NoError(t, err)

	assert.Equal(t, set1.Pairs, set2.Pairs)
}

func TestAssign_InvalidConfiguration(t *testing.T) {
	a := New()
	students := []string{"A", "B"}

	_, err := a.Assign(students, nil, Options{AssignmentsPerStudent: 5, Mode: ModePerfect})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidConfiguration, apperr.KindOf(err))

	_, err = a.Assign(students, nil, Options{AssignmentsPerStudent: 0, Mode: ModePerfect})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidConfiguration, apperr.KindOf(err))
}

func TestRandomAssign_NoSelfMatch(t *testing.T) {
	students := []string{"A", "B", "C", "D"}
	seed := int64(7)
	a := New()
	set, err := a.Assign(students, nil, Options{
		AssignmentsPerStudent: 2,
		AllowSelfEvaluation:   false,
		Mode:                  ModeRandom,
		RandomSeed:            &seed,
	})
	require.NoError(t, err)

	for _, p := range set.Pairs {
		assert.NotEqual(t, p.EvaluatorID, p.TargetID)
	}
	for _, id := range students {
		assert.Len(t, set.ByEvalID[id], 2)
	}
}
