package consensus

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Ported from vancouver.py's TestMedian cases.
func TestMedianAggregate(t *testing.T) {
	cases := []struct {
		name     string
		values   []float64
		weights  []float64
		expected float64
	}{
		{"equal weights", []float64{1.0, 3.0, 2.0}, []float64{1.0, 1.0, 1.0}, 2.0},
		{"tie broken by higher weight on 2.0", []float64{1.0, 3.0, 2.0}, []float64{1.0, 1.0, 2.0}, 2.0},
		{"interpolates toward 3.0", []float64{1.0, 3.0, 2.0}, []float64{1.0, 2.0, 1.0}, 2.5},
		{"interpolates with two heavy weights", []float64{1.0, 3.0, 2.0}, []float64{1.0, 2.0, 2.0}, 2.25},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := medianAggregate(c.values, c.weights)
			assert.InDelta(t, c.expected, got, 1e-4)
		})
	}
}

func buildHonestTriangle(scores map[string]float64) []Edge {
	reviewers := []string{"A", "B", "C"}
	items := []string{"P", "Q", "R"}
	owner := map[string]string{"P": "A", "Q": "B", "R": "C"}

	var edges []Edge
	for _, u := range reviewers {
		for _, it := range items {
			if owner[it] == u {
				continue // each paper reviewed by the other two reviewers
			}
			edges = append(edges, Edge{ReviewerID: u, ItemID: it, Score: scores[it]})
		}
	}
	return edges
}

// E4: three reviewers, three papers, honest zero-noise scores converge
// to the true values with reputation -> R_max.
func TestRun_E4_HonestConvergence(t *testing.T) {
	scores := map[string]float64{"P": 100, "Q": 80, "R": 60}
	edges := buildHonestTriangle(scores)

	cfg := DefaultConfig()
	results := Run(edges, cfg)

	assert.InDelta(t, 100.0, results.Items["P"].Consensus, 1e-6)
	assert.InDelta(t, 80.0, results.Items["Q"].Consensus, 1e-6)
	assert.InDelta(t, 60.0, results.Items["R"].Consensus, 1e-6)

	for _, id := range []string{"A", "B", "C"} {
		assert.InDelta(t, 0.0, results.Reviewers[id].Variance, 1e-4, "reviewer %s variance", id)
		assert.InDelta(t, cfg.RMax, results.Reviewers[id].Reputation, 1e-4, "reviewer %s reputation", id)
	}
}

// E5: reviewer C always reports 0 regardless of paper; C's reputation
// should fall strictly below A and B's, and the floor must still
// protect C's own paper grade.
func TestRun_E5_NoisyReviewerPenalty(t *testing.T) {
	reviewers := []string{"A", "B", "C"}
	items := []string{"P", "Q", "R"}
	owner := map[string]string{"P": "A", "Q": "B", "R": "C"}
	trueScore := map[string]float64{"P": 100, "Q": 80, "R": 60}

	var edges []Edge
	for _, u := range reviewers {
		for _, it := range items {
			if owner[it] == u {
				continue
			}
			score := trueScore[it]
			if u == "C" {
				score = 0
			}
			edges = append(edges, Edge{ReviewerID: u, ItemID: it, Score: score})
		}
	}

	cfg := DefaultConfig()
	results := Run(edges, cfg)

	assert.Less(t, results.Reviewers["C"].Reputation, results.Reviewers["A"].Reputation)
	assert.Less(t, results.Reviewers["C"].Reputation, results.Reviewers["B"].Reputation)

	final, _, protectionUsed := FinalGrade(cfg.Alpha, results.Items["R"].Consensus, results.Reviewers["C"].IncentiveWeight)
	assert.GreaterOrEqual(t, final, results.Items["R"].Consensus)
	_ = protectionUsed
}

// Reviewer D reports wildly inconsistent scores (alternating +/-40
// against the true value) on every paper it touches, while A, B, and C
// are always exact. The per-item consensus must down-weight D's
// high-variance messages, landing closer to the true score than a
// naive unweighted mean of the same raw reports would. This is the
// regression case for aggregateItems reading the wrong message buffer:
// a buggy swap collapses every edge of an item onto one already-broadcast
// value and never fuses each reviewer's own (variance-weighted) score,
// so the heterogeneous-noise signal this test checks for would be lost.
func TestRun_HeterogeneousNoiseWeighting(t *testing.T) {
	reviewers := []string{"A", "B", "C", "D"}
	items := []string{"P", "Q", "R", "S"}
	owner := map[string]string{"P": "A", "Q": "B", "R": "C", "S": "D"}
	trueScore := map[string]float64{"P": 100, "Q": 90, "R": 80, "S": 70}
	noiseFromD := map[string]float64{"P": 40, "Q": -40, "R": 40}

	var edges []Edge
	for _, u := range reviewers {
		for _, it := range items {
			if owner[it] == u {
				continue
			}
			score := trueScore[it]
			if u == "D" {
				score += noiseFromD[it]
			}
			edges = append(edges, Edge{ReviewerID: u, ItemID: it, Score: score})
		}
	}

	cfg := DefaultConfig()
	results := Run(edges, cfg)

	for _, it := range []string{"P", "Q", "R"} {
		var unweightedSum float64
		var count int
		for _, u := range reviewers {
			if owner[it] == u {
				continue
			}
			score := trueScore[it]
			if u == "D" {
				score += noiseFromD[it]
			}
			unweightedSum += score
			count++
		}
		unweightedMean := unweightedSum / float64(count)

		weightedErr := math.Abs(results.Items[it].Consensus - trueScore[it])
		unweightedErr := math.Abs(unweightedMean - trueScore[it])
		assert.Less(t, weightedErr, unweightedErr,
			"item %s: weighted consensus %.4f should be closer to true score %.1f than the unweighted mean %.4f",
			it, results.Items[it].Consensus, trueScore[it], unweightedMean)
	}

	assert.Less(t, results.Reviewers["D"].Reputation, results.Reviewers["A"].Reputation)
}

// E6: floor activation with literal values from the specification.
func TestFinalGrade_E6_FloorActivation(t *testing.T) {
	final, weighted, protectionUsed := FinalGrade(0.1, 90, 0.1)
	assert.InDelta(t, 82.0, weighted, 1e-9)
	assert.InDelta(t, 90.0, final, 1e-9)
	assert.True(t, protectionUsed)
}

func TestFinalGrade_NoProtectionWhenWeightedHigher(t *testing.T) {
	final, weighted, protectionUsed := FinalGrade(0.5, 50, 1.0)
	assert.InDelta(t, 75.0, weighted, 1e-9)
	assert.InDelta(t, 75.0, final, 1e-9)
	assert.False(t, protectionUsed)
}

func TestRun_Idempotent(t *testing.T) {
	edges := buildHonestTriangle(map[string]float64{"P": 95, "Q": 70, "R": 88})
	cfg := DefaultConfig()

	r1 := Run(edges, cfg)
	r2 := Run(edges, cfg)

	for id, item := range r1.Items {
		assert.InDelta(t, item.Consensus, r2.Items[id].Consensus, 1e-12)
	}
	for id, rev := range r1.Reviewers {
		assert.InDelta(t, rev.Reputation, r2.Reviewers[id].Reputation, 1e-12)
	}
}

func TestRun_ReputationBounds(t *testing.T) {
	edges := buildHonestTriangle(map[string]float64{"P": 10, "Q": 99, "R": 0})
	cfg := DefaultConfig()
	results := Run(edges, cfg)

	for id, rev := range results.Reviewers {
		assert.GreaterOrEqual(t, rev.Reputation, 0.0, "reviewer %s", id)
		assert.LessOrEqual(t, rev.Reputation, cfg.RMax, "reviewer %s", id)
	}
}

func TestRun_SingleReviewerItem(t *testing.T) {
	edges := []Edge{
		{ReviewerID: "A", ItemID: "P", Score: 90},
		{ReviewerID: "A", ItemID: "Q", Score: 70},
	}
	cfg := DefaultConfig()
	results := Run(edges, cfg)

	assert.InDelta(t, 90.0, results.Items["P"].Consensus, 1e-6)
	assert.InDelta(t, 70.0, results.Items["Q"].Consensus, 1e-6)
}
