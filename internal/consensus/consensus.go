// Package consensus runs the Vancouver-style iterative message-passing
// estimator that jointly infers each paper's consensus score and each
// reviewer's variance/reputation from a bipartite graph of reviewer to
// paper scores, then combines them into a final grade with a floor
// guarantee. It is grounded on original_source/core/vancouver.py,
// re-architected per the source patterns the specification calls out:
// two flat, rekeyed message arrays instead of mutated per-node lists,
// integer-indexed reviewers/items with a string<->int boundary map, and
// an edge list instead of a Reviewer<->Paper ownership cycle.
package consensus

import (
	"math"
	"sort"
)

// Config holds the algorithm's tunable parameters. Passed explicitly
// into Run; never a package-level global.
type Config struct {
	RMax           float64 // reputation ceiling
	VG             float64 // penalty-slope denominator; lambda = RMax/VG
	Alpha          float64 // weight of the incentive term in the final grade
	N              int     // minimum reviews for full incentive credit
	NIterations    int     // fixed iteration count; convergence is not proven
	BasicPrecision float64 // added to every variance before inversion
	UseAllData     bool    // include the recipient's own message when >= 2 others exist
	Debias         bool    // reference source's unused bias-correction path
	AggregateByMedian bool // weighted-median instead of weighted-mean aggregation
}

// DefaultConfig mirrors the constants vancouver.py sets at module
// scope, threaded here as data instead of globals.
func DefaultConfig() Config {
	return Config{
		RMax:           1.0,
		VG:             1.0,
		Alpha:          0.1,
		N:              3,
		NIterations:    25,
		BasicPrecision: 0.0001,
		UseAllData:     true,
		Debias:         false,
	}
}

// Edge is one reviewer->item score, the flattened equivalent of the
// reference implementation's User.add_item/Item.add_user cross-links.
type Edge struct {
	ReviewerID string
	ItemID     string
	Score      float64
}

// ItemResult is one paper's consensus output.
type ItemResult struct {
	Consensus float64
	Variance  float64
}

// ReviewerResult is one reviewer's output.
type ReviewerResult struct {
	Variance        float64
	Reputation      float64
	IncentiveWeight float64
	ItemsReviewed   int
}

// Results is the full Consensus artifact: per-item and per-reviewer
// derived values for a single run. It is a value record; Run never
// mutates persisted state.
type Results struct {
	Items     map[string]ItemResult
	Reviewers map[string]ReviewerResult
}

// message carries a (grade, variance) pair between one side of the
// bipartite graph and the other, same shape as vancouver.py's Msg.
type message struct {
	grade    float64
	variance float64
}

// graph is the integer-indexed working representation built once per
// run from the edge list. reviewer/item arrays are index-addressable;
// adjacency is CSR-style (reviewerEdges[r] / itemEdges[i] list edge
// indices), removing the Reviewer<->Paper ownership cycle the
// reference implementation has.
type graph struct {
	reviewerIDs []string
	itemIDs     []string
	reviewerIdx map[string]int
	itemIdx     map[string]int

	edges        []Edge
	reviewerEdges [][]int // reviewer index -> edge indices
	itemEdges     [][]int // item index -> edge indices

	// Each buffer is named for the half-step that consumes it.
	// itemToUser[e] is the input of the item->user step: the message
	// reviewer edges[e].ReviewerID sends to item edges[e].ItemID (its
	// score and variance), written by propagateFromUsers and also read
	// by aggregateItems. userToItem[e] is the input of the user->item
	// step: the item's estimate sent back to the reviewer, written by
	// propagateFromItems. Both are rekeyed wholesale each half-step
	// rather than mutated in place, so there is no aliasing hazard
	// across iterations.
	itemToUser []message
	userToItem []message
}

func buildGraph(edges []Edge) *graph {
	g := &graph{
		reviewerIdx: map[string]int{},
		itemIdx:     map[string]int{},
	}

	for _, e := range edges {
		if _, ok := g.reviewerIdx[e.ReviewerID]; !ok {
			g.reviewerIdx[e.ReviewerID] = len(g.reviewerIDs)
			g.reviewerIDs = append(g.reviewerIDs, e.ReviewerID)
		}
		if _, ok := g.itemIdx[e.ItemID]; !ok {
			g.itemIdx[e.ItemID] = len(g.itemIDs)
			g.itemIDs = append(g.itemIDs, e.ItemID)
		}
	}

	// Deterministic enumeration order: sort by id, per spec §4.5.
	sort.Strings(g.reviewerIDs)
	sort.Strings(g.itemIDs)
	for i, id := range g.reviewerIDs {
		g.reviewerIdx[id] = i
	}
	for i, id := range g.itemIDs {
		g.itemIdx[id] = i
	}

	g.edges = make([]Edge, len(edges))
	copy(g.edges, edges)
	sort.Slice(g.edges, func(i, j int) bool {
		if g.edges[i].ReviewerID != g.edges[j].ReviewerID {
			return g.edges[i].ReviewerID < g.edges[j].ReviewerID
		}
		return g.edges[i].ItemID < g.edges[j].ItemID
	})

	g.reviewerEdges = make([][]int, len(g.reviewerIDs))
	g.itemEdges = make([][]int, len(g.itemIDs))
	for e, edge := range g.edges {
		r := g.reviewerIdx[edge.ReviewerID]
		it := g.itemIdx[edge.ItemID]
		g.reviewerEdges[r] = append(g.reviewerEdges[r], e)
		g.itemEdges[it] = append(g.itemEdges[it], e)
	}

	g.itemToUser = make([]message, len(g.edges))
	g.userToItem = make([]message, len(g.edges))
	return g
}

// Run executes the full estimator: seed, iterate, aggregate, then
// derive reputation/incentive weight. Deterministic for fixed inputs
// and configuration.
func Run(edges []Edge, cfg Config) Results {
	g := buildGraph(edges)

	// Initialization: seed the input of the first item->user step with
	// the raw score and variance 1.0, for every edge.
	for e, edge := range g.edges {
		g.itemToUser[e] = message{grade: edge.Score, variance: 1.0}
	}

	for iter := 0; iter < cfg.NIterations; iter++ {
		g.propagateFromItems(cfg)
		g.propagateFromUsers(cfg)
	}

	itemResults := g.aggregateItems(cfg)
	reviewerResults := g.aggregateReviewers(cfg, itemResults)

	lambda := 0.0
	if cfg.VG > 0 {
		lambda = cfg.RMax / cfg.VG
	}
	for id, rr := range reviewerResults {
		v := rr.Variance
		if v < 0 {
			v = 0
		}
		rep := cfg.RMax - lambda*math.Sqrt(v)
		if rep < 0 {
			rep = 0
		}
		if rep > cfg.RMax {
			rep = cfg.RMax
		}
		rr.Reputation = rep

		m := float64(rr.ItemsReviewed)
		capped := m
		if cfg.N > 0 && capped > float64(cfg.N) {
			capped = float64(cfg.N)
		}
		incentive := 0.0
		if cfg.N > 0 {
			incentive = capped / float64(cfg.N) * rep
		}
		rr.IncentiveWeight = incentive
		reviewerResults[id] = rr
	}

	return Results{Items: itemResults, Reviewers: reviewerResults}
}

// propagateFromItems is the item->user step: for each item, for each
// reviewer who scored it, compute a weighted aggregate of the scores
// from all other reviewers of that item (or all reviewers when
// use_all_data or fewer than 2 messages exist).
func (g *graph) propagateFromItems(cfg Config) {
	next := make([]message, len(g.edges))

	for itIdx, edgeIdxs := range g.itemEdges {
		if len(edgeIdxs) == 0 {
			continue
		}
		for _, selfEdge := range edgeIdxs {
			var grades, variances []float64
			for _, otherEdge := range edgeIdxs {
				if cfg.UseAllData || otherEdge != selfEdge || len(edgeIdxs) < 2 {
					grades = append(grades, g.itemToUser[otherEdge].grade)
					variances = append(variances, g.itemToUser[otherEdge].variance)
				}
			}
			weights := normalizedWeights(variances, cfg.BasicPrecision)
			grade := aggregate(grades, weights, cfg.AggregateByMedian)
			variance := weightedSumOfSquares(variances, weights)
			next[selfEdge] = message{grade: grade, variance: variance}
		}
		_ = itIdx
	}

	g.userToItem = next
}

// propagateFromUsers is the user->item step: for each reviewer, for
// each item they reviewed, estimate the reviewer's variance from the
// weighted aggregate of (given score - other items' estimated score)^2
// using messages from the user's other items (or all of the user's
// items when use_all_data or fewer than 2 messages exist).
func (g *graph) propagateFromUsers(cfg Config) {
	next := make([]message, len(g.edges))

	for _, edgeIdxs := range g.reviewerEdges {
		if len(edgeIdxs) == 0 {
			continue
		}

		bias := 0.0
		if cfg.Debias {
			var biases, weights []float64
			for _, selfEdge := range edgeIdxs {
				for _, otherEdge := range edgeIdxs {
					if cfg.UseAllData || otherEdge != selfEdge || len(edgeIdxs) < 2 {
						weights = append(weights, 1.0/(cfg.BasicPrecision+g.userToItem[otherEdge].variance))
						biases = append(biases, g.edges[selfEdge].Score-g.userToItem[otherEdge].grade)
					}
				}
			}
			bias = aggregate(biases, weights, cfg.AggregateByMedian)
		}

		for _, selfEdge := range edgeIdxs {
			var varianceEstimates, weights []float64
			for _, otherEdge := range edgeIdxs {
				if cfg.UseAllData || otherEdge != selfEdge || len(edgeIdxs) < 2 {
					itemGrade := g.edges[otherEdge].Score - bias
					diff := itemGrade - g.userToItem[otherEdge].grade
					varianceEstimates = append(varianceEstimates, diff*diff)
					weights = append(weights, 1.0/(cfg.BasicPrecision+g.userToItem[otherEdge].variance))
				}
			}
			variance := aggregate(varianceEstimates, weights, cfg.AggregateByMedian)
			next[selfEdge] = message{grade: g.edges[selfEdge].Score - bias, variance: variance}
		}
	}

	g.itemToUser = next
}

// aggregateItems computes the final per-item consensus and variance
// from all incoming user->item messages.
func (g *graph) aggregateItems(cfg Config) map[string]ItemResult {
	out := make(map[string]ItemResult, len(g.itemIDs))
	for itIdx, id := range g.itemIDs {
		edgeIdxs := g.itemEdges[itIdx]
		if len(edgeIdxs) == 0 {
			out[id] = ItemResult{}
			continue
		}
		var grades, variances []float64
		for _, e := range edgeIdxs {
			grades = append(grades, g.itemToUser[e].grade)
			variances = append(variances, g.itemToUser[e].variance)
		}
		weights := normalizedWeights(variances, cfg.BasicPrecision)
		out[id] = ItemResult{
			Consensus: aggregate(grades, weights, cfg.AggregateByMedian),
			Variance:  weightedSumOfSquares(variances, weights),
		}
	}
	return out
}

// aggregateReviewers computes each reviewer's variance against the
// converged item consensus: variance of (given_score - item.consensus)^2.
func (g *graph) aggregateReviewers(cfg Config, items map[string]ItemResult) map[string]ReviewerResult {
	out := make(map[string]ReviewerResult, len(g.reviewerIDs))
	for rIdx, id := range g.reviewerIDs {
		edgeIdxs := g.reviewerEdges[rIdx]
		if len(edgeIdxs) == 0 {
			out[id] = ReviewerResult{}
			continue
		}
		var varianceEstimates, weights []float64
		for _, e := range edgeIdxs {
			itemID := g.edges[e].ItemID
			diff := g.edges[e].Score - items[itemID].Consensus
			varianceEstimates = append(varianceEstimates, diff*diff)
			weights = append(weights, 1.0/(cfg.BasicPrecision+g.userToItem[e].variance))
		}
		out[id] = ReviewerResult{
			Variance:      aggregate(varianceEstimates, weights, cfg.AggregateByMedian),
			ItemsReviewed: len(edgeIdxs),
		}
	}
	return out
}

// FinalGrade applies the §4.5 floor-protection rule for one student,
// given their paper's consensus score and their own incentive weight
// as a reviewer.
func FinalGrade(alpha, consensusScore, incentiveWeight float64) (final, weighted float64, protectionUsed bool) {
	weighted = (1-alpha)*consensusScore + alpha*incentiveWeight*100
	final = math.Max(consensusScore, weighted)
	protectionUsed = weighted < consensusScore
	return final, weighted, protectionUsed
}

// normalizedWeights converts variances into weights
// w_k = 1/(basic_precision + variance_k), normalized to sum to 1. All
// weights zero (or no data) falls back to a uniform distribution, the
// unweighted-mean fallback from §4.5's numerical edge cases.
func normalizedWeights(variances []float64, basicPrecision float64) []float64 {
	n := len(variances)
	if n == 0 {
		return nil
	}
	weights := make([]float64, n)
	var sum float64
	for i, v := range variances {
		if v < 0 {
			v = 0
		}
		w := 1.0 / (basicPrecision + v)
		weights[i] = w
		sum += w
	}
	if sum == 0 || math.IsInf(sum, 0) || math.IsNaN(sum) {
		uniform := 1.0 / float64(n)
		for i := range weights {
			weights[i] = uniform
		}
		return weights
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}

// weightedSumOfSquares computes sum(variance_k * w_k^2), the message
// variance update the reference implementation uses for both the
// item->user and the final item-aggregation steps.
func weightedSumOfSquares(variances, weights []float64) float64 {
	var sum float64
	for i := range variances {
		v := variances[i]
		if v < 0 {
			v = 0
		}
		sum += v * weights[i] * weights[i]
	}
	return sum
}

// aggregate dispatches to the weighted mean or the weighted median
// depending on configuration, mirroring vancouver.py's aggregate().
func aggregate(values, weights []float64, byMedian bool) float64 {
	if len(values) == 0 {
		return 0
	}
	if byMedian {
		return medianAggregate(values, weights)
	}
	return weightedMean(values, weights)
}

func weightedMean(values, weights []float64) float64 {
	if len(weights) == 0 {
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values))
	}
	var sum, wsum float64
	for i, v := range values {
		sum += v * weights[i]
		wsum += weights[i]
	}
	if wsum == 0 {
		return weightedMean(values, nil)
	}
	return sum / wsum
}

// medianAggregate is a direct port of vancouver.py's median_aggregate:
// the weighted median via linear interpolation between the two values
// straddling the half-total-weight point.
func medianAggregate(values, weights []float64) float64 {
	if len(values) == 1 {
		return values[0]
	}
	if weights == nil {
		weights = make([]float64, len(values))
		for i := range weights {
			weights[i] = 1
		}
	}

	type pair struct{ v, w float64 }
	var vv []pair
	for i, w := range weights {
		if w > 0 {
			vv = append(vv, pair{values[i], w})
		}
	}
	if len(vv) == 0 {
		return values[0]
	}
	if len(vv) == 1 {
		return vv[0].v
	}
	sort.Slice(vv, func(i, j int) bool { return vv[i].v < vv[j].v })

	v := make([]float64, len(vv))
	w := make([]float64, len(vv))
	var total float64
	for i, p := range vv {
		v[i] = p.v
		w[i] = p.w
		total += p.w
	}
	half := total / 2.0

	below := 0.0
	i := 0
	for i < len(v) && below+w[i] < half {
		below += w[i]
		i++
	}

	if half < below+0.5*w[i] {
		if i == 0 {
			return v[0]
		}
		alpha := half - below
		beta := below + 0.5*w[i] - half
		return (beta*(v[i]+v[i-1])/2.0 + alpha*v[i]) / (alpha + beta)
	}
	if i == len(v)-1 {
		return v[i]
	}
	alpha := half - below - 0.5*w[i]
	beta := below + w[i] - half
	return (beta*v[i] + alpha*(v[i]+v[i+1])/2.0) / (alpha + beta)
}
