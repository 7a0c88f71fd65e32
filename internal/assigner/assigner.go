// Package assigner builds the reviewer-to-paper bipartite graph that
// drives a peer-evaluation cycle. It implements the perfect-balance
// ring algorithm, a random mode, and a weighted mode that is currently
// equivalent to perfect, matching the three balance_mode values
// recognized by configuration.
package assigner

import (
	"math"
	"math/rand"
	"sort"

	"peereval/internal/apperr"
	"peereval/internal/models"
)

// BalanceMode selects the assignment algorithm.
type BalanceMode string

const (
	ModePerfect  BalanceMode = "perfect"
	ModeRandom   BalanceMode = "random"
	ModeWeighted BalanceMode = "weighted"
)

// Options configures a single assignment run.
type Options struct {
	AssignmentsPerStudent int
	AllowSelfEvaluation   bool
	Mode                  BalanceMode
	RandomSeed            *int64
}

// Assigner builds AssignmentSets from a student roster. It holds no
// mutable state between runs; every call to Assign is independent and,
// for a fixed seed and mode, deterministic.
type Assigner struct{}

// New returns an Assigner. There is nothing to configure at
// construction time; every run takes its own Options explicitly.
func New() *Assigner {
	return &Assigner{}
}

// Assign produces the reviewer->paper relation for the given roster.
// studentIDs must already be sorted the way the caller wants ties
// broken; Assign does not resort it except to build its own internal
// shuffle.
func (a *Assigner) Assign(studentIDs []string, questions []models.Question, opts Options) (models.AssignmentSet, error) {
	n := len(studentIDs)
	maxPossible := n
	if !opts.AllowSelfEvaluation {
		maxPossible = n - 1
	}
	if opts.AssignmentsPerStudent <= 0 {
		return models.AssignmentSet{}, apperr.New(apperr.KindInvalidConfiguration,
			"assignments_per_student must be positive")
	}
	if opts.AssignmentsPerStudent > maxPossible {
		return models.AssignmentSet{}, apperr.New(apperr.KindInvalidConfiguration,
			"assignments_per_student exceeds the number of eligible targets")
	}

	var pairs []models.AssignmentPair
	switch opts.Mode {
	case ModeRandom:
		pairs = a.randomAssign(studentIDs, opts)
	case ModePerfect, ModeWeighted, "":
		pairs = a.perfectAssign(studentIDs, opts)
	default:
		return models.AssignmentSet{}, apperr.New(apperr.KindInvalidConfiguration,
			"unknown balance_mode")
	}

	byEval := make(map[string][]string, n)
	for _, id := range studentIDs {
		byEval[id] = nil
	}
	for _, p := range pairs {
		byEval[p.EvaluatorID] = append(byEval[p.EvaluatorID], p.TargetID)
	}

	return models.AssignmentSet{
		Pairs:     pairs,
		ByEvalID:  byEval,
		Questions: questions,
		Balance:   analyzeBalance(pairs, studentIDs),
	}, nil
}

// perfectAssign implements the ring algorithm: shuffle the roster with
// a seeded PRNG (a seed of 0 keeps the caller's order unshuffled), then
// each reviewer at shuffled position i reviews the next k students
// found by walking the ring, skipping self when self-evaluation is
// disallowed.
func (a *Assigner) perfectAssign(studentIDs []string, opts Options) []models.AssignmentPair {
	n := len(studentIDs)
	shuffled := make([]string, n)
	copy(shuffled, studentIDs)

	if opts.RandomSeed == nil || *opts.RandomSeed != 0 {
		rng := newRand(opts.RandomSeed)
		rng.Shuffle(n, func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	}

	var pairs []models.AssignmentPair
	for i, evaluator := range shuffled {
		offset := 1
		if opts.AllowSelfEvaluation {
			offset = 0
		}
		assigned := 0
		for assigned < opts.AssignmentsPerStudent {
			targetIdx := (i + offset) % n
			target := shuffled[targetIdx]
			if opts.AllowSelfEvaluation || target != evaluator {
				pairs = append(pairs, models.AssignmentPair{EvaluatorID: evaluator, TargetID: target})
				assigned++
			}
			offset++
			if offset > n {
				break
			}
		}
	}
	return pairs
}

// randomAssign draws k distinct targets per reviewer uniformly at
// random without self-match. It preserves out-degree exactly but only
// approximates in-degree.
func (a *Assigner) randomAssign(studentIDs []string, opts Options) []models.AssignmentPair {
	rng := newRand(opts.RandomSeed)
	var pairs []models.AssignmentPair
	for _, evaluator := range studentIDs {
		pool := make([]string, 0, len(studentIDs))
		for _, s := range studentIDs {
			if opts.AllowSelfEvaluation || s != evaluator {
				pool = append(pool, s)
			}
		}
		rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		k := opts.AssignmentsPerStudent
		if k > len(pool) {
			k = len(pool)
		}
		for _, target := range pool[:k] {
			pairs = append(pairs, models.AssignmentPair{EvaluatorID: evaluator, TargetID: target})
		}
	}
	return pairs
}

func newRand(seed *int64) *rand.Rand {
	if seed == nil {
		return rand.New(rand.NewSource(rand.Int63()))
	}
	return rand.New(rand.NewSource(*seed))
}

// analyzeBalance computes the in-degree spread and balance index,
// grounded on the Python reference's _analyze_assignments.
func analyzeBalance(pairs []models.AssignmentPair, studentIDs []string) models.BalanceReport {
	inDegree := make(map[string]int, len(studentIDs))
	for _, id := range studentIDs {
		inDegree[id] = 0
	}
	for _, p := range pairs {
		inDegree[p.TargetID]++
	}

	ids := make([]string, 0, len(inDegree))
	for id := range inDegree {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if len(ids) == 0 {
		return models.BalanceReport{}
	}

	min, max, sum := inDegree[ids[0]], inDegree[ids[0]], 0
	for _, id := range ids {
		d := inDegree[id]
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
		sum += d
	}
	avg := float64(sum) / float64(len(ids))

	var sqDiff float64
	for _, id := range ids {
		diff := float64(inDegree[id]) - avg
		sqDiff += diff * diff
	}
	stddev := math.Sqrt(sqDiff / float64(len(ids)))

	balanceIndex := 0.0
	if avg > 0 {
		balanceIndex = 1 - stddev/avg
	}

	return models.BalanceReport{
		MinInDegree:  min,
		MaxInDegree:  max,
		AvgInDegree:  avg,
		BalanceIndex: balanceIndex,
	}
}
