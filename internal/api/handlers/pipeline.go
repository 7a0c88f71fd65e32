package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"peereval/internal/apperr"
	"peereval/internal/assigner"
	"peereval/internal/consensus"
	"peereval/internal/tokenminter"
)

// AssignAndMint runs the assignment and token-minting pipeline stages
// against the roster loaded at startup, persists the minted tokens,
// and returns the balance diagnostics plus how many tokens were
// created — the admin-facing equivalent of "peerctl assign && peerctl
// mint".
// POST /api/admin/pipeline/assign
func (h *Handlers) AssignAndMint(c *gin.Context) {
	opts := assigner.Options{
		AssignmentsPerStudent: h.Config.Assignment.AssignmentsPerStudent,
		AllowSelfEvaluation:   h.Config.Assignment.AllowSelfEvaluation,
		Mode:                  assigner.BalanceMode(h.Config.Assignment.BalanceMode),
		RandomSeed:            h.Config.Assignment.RandomSeed,
	}
	set, err := h.Assigner.Assign(h.Doc.StudentIDs(), h.Doc.Questions, opts)
	if err != nil {
		c.JSON(statusForKind(apperr.KindOf(err)), gin.H{"error": err.Error()})
		return
	}

	tokens, err := h.Minter.Mint(set.Pairs, tokenminter.Options{
		Questions:   h.Doc.QuestionIDs(),
		TTLDays:     h.Config.Token.ExpiryDays,
		TokenLength: h.Config.Token.Length,
	})
	if err != nil {
		c.JSON(statusForKind(apperr.KindOf(err)), gin.H{"error": err.Error()})
		return
	}

	if err := h.Store.SaveTokensBatch(c.Request.Context(), tokens); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist tokens"})
		return
	}
	if h.Metrics != nil {
		h.Metrics.TokensMinted.Add(float64(len(tokens)))
	}

	c.JSON(http.StatusCreated, gin.H{
		"balance":       set.Balance,
		"tokens_minted": len(tokens),
	})
}

// Consensus runs the Vancouver estimator over every accepted
// submission and returns the final-grade artifact from specification
// §4.5.
// POST /api/admin/pipeline/consensus
func (h *Handlers) Consensus(c *gin.Context) {
	subs, err := h.Store.AllSubmissions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read submissions"})
		return
	}

	edges := consensus.EdgesFromSubmissions(subs)
	cfg := consensus.Config{
		RMax:              h.Config.Vancouver.RMax,
		VG:                h.Config.Vancouver.VG,
		Alpha:             h.Config.Vancouver.Alpha,
		N:                 h.Config.Vancouver.N,
		NIterations:       h.Config.Vancouver.NIterations,
		BasicPrecision:    h.Config.Vancouver.BasicPrecision,
		UseAllData:        h.Config.Vancouver.UseAllData,
		Debias:            h.Config.Vancouver.Debias,
		AggregateByMedian: h.Config.Vancouver.AggregateByMedian,
	}

	start := time.Now()
	results := consensus.Run(edges, cfg)
	if h.Metrics != nil {
		h.Metrics.ConsensusRunDuration.Observe(time.Since(start).Seconds())
		h.Metrics.ConsensusIterations.Observe(float64(cfg.NIterations))
	}
	c.JSON(http.StatusOK, consensus.BuildArtifact(results, cfg))
}

// EvaluatorProgress surfaces the per-evaluator completion query from
// specification §4.3's query operations.
// GET /api/admin/evaluator-progress
func (h *Handlers) EvaluatorProgress(c *gin.Context) {
	progress, err := h.Store.EvaluatorProgress(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read evaluator progress"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"evaluator_progress": progress})
}

// TargetStats surfaces the per-target review count query from
// specification §4.3's query operations.
// GET /api/admin/target-stats
func (h *Handlers) TargetStats(c *gin.Context) {
	stats, err := h.Store.TargetStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read target stats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"target_stats": stats})
}
