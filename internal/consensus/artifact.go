package consensus

import "peereval/internal/models"

// EdgesFromSubmissions collapses per-question submissions into one
// reviewer->target edge per pair, summing the per-question scores the
// way specification §4.5 defines g(r, i).
func EdgesFromSubmissions(subs []models.Submission) []Edge {
	type key struct{ evaluator, target string }
	sums := make(map[key]float64)
	order := make([]key, 0)
	for _, s := range subs {
		k := key{s.EvaluatorID, s.TargetID}
		if _, ok := sums[k]; !ok {
			order = append(order, k)
		}
		sums[k] += float64(s.Score)
	}
	edges := make([]Edge, 0, len(order))
	for _, k := range order {
		edges = append(edges, Edge{ReviewerID: k.evaluator, ItemID: k.target, Score: sums[k]})
	}
	return edges
}

// BuildArtifact combines a student's item-side consensus score with
// their own reviewer-side incentive weight into the final per-student
// grade, grounded on vancouver.py's final grade combination.
func BuildArtifact(results Results, cfg Config) models.ConsensusResults {
	grades := make(map[string]models.FinalGrade, len(results.Items))
	for id, item := range results.Items {
		rr := results.Reviewers[id]
		final, weighted, protectionUsed := FinalGrade(cfg.Alpha, item.Consensus, rr.IncentiveWeight)
		grades[id] = models.FinalGrade{
			StudentID:       id,
			ConsensusScore:  item.Consensus,
			IncentiveWeight: rr.IncentiveWeight,
			FinalGrade:      final,
			WeightedGrade:   weighted,
			ProtectionUsed:  protectionUsed,
			Reputation:      rr.Reputation,
			Variance:        item.Variance,
		}
	}

	var sum float64
	for _, g := range grades {
		sum += g.FinalGrade
	}
	n := float64(len(grades))
	mean := 0.0
	if n > 0 {
		mean = sum / n
	}

	return models.ConsensusResults{
		AlgorithmParameters: map[string]float64{
			"r_max": cfg.RMax, "v_g": cfg.VG, "alpha": cfg.Alpha,
			"n": float64(cfg.N), "n_iterations": float64(cfg.NIterations),
		},
		FinalGrades: grades,
		SummaryStatistics: map[string]float64{
			"mean_final_grade": mean,
			"student_count":    n,
		},
	}
}
