// Package models holds the data-transfer and persistence types shared
// across the peer-evaluation pipeline: students and their papers, the
// reviewer assignment relation, evaluation tokens, submissions, audit
// log entries, and the administrative identities (courses, admins) that
// orchestrate a run.
package models

import "time"

// Student is the immutable identity of an exam taker. The set is fixed
// once the roster is ingested; students never authenticate.
type Student struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Question is one exam question, carrying its own score ceiling.
type Question struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	MaxScore int    `json:"max_score"`
}

// Answer is a student's response to a single Question, as produced by
// the external exam-processing step.
type Answer struct {
	Text      string `json:"text"`
	WordCount int    `json:"word_count"`
	CharCount int    `json:"char_count"`
	IsEmpty   bool   `json:"is_empty"`
}

// Paper is a student's complete, immutable set of answers, keyed by
// student ID.
type Paper struct {
	StudentID string            `json:"student_id"`
	Answers   map[string]Answer `json:"answers"`
}

// TokenStatus enumerates the lifecycle states of an evaluation token.
type TokenStatus string

const (
	TokenPending   TokenStatus = "pending"
	TokenSubmitted TokenStatus = "submitted"
	TokenExpired   TokenStatus = "expired"
)

// Token is a single-use evaluation credential binding one evaluator to
// one target paper. Mutated only by EvaluationService at successful
// submission; never deleted.
type Token struct {
	Token       string      `json:"token"`
	EvaluatorID string      `json:"evaluator_id"`
	TargetID    string      `json:"target_id"`
	Questions   []string    `json:"questions"`
	CreatedAt   time.Time   `json:"created_at"`
	ExpiresAt   time.Time   `json:"expires_at"`
	Status      TokenStatus `json:"status"`
	IsUsed      bool        `json:"is_used"`
	UsedAt      *time.Time  `json:"used_at,omitempty"`
	IPAddress   string      `json:"ip_address,omitempty"`
	UserAgent   string      `json:"user_agent,omitempty"`
}

// Expired reports whether the token's validity window has passed,
// evaluated lazily against the supplied instant.
func (t Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Submission is one append-only per-question score+comment row.
type Submission struct {
	ID          int64     `json:"id"`
	Token       string    `json:"token"`
	EvaluatorID string    `json:"evaluator_id"`
	TargetID    string    `json:"target_id"`
	QuestionID  string    `json:"question_id"`
	Score       int       `json:"score"`
	Comment     string    `json:"comment"`
	SubmittedAt time.Time `json:"submitted_at"`
	IPAddress   string    `json:"ip_address,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
}

// SubmissionInput is the per-question payload accepted from a client
// at POST /api/submit, before it is attached to a token/evaluator/target.
type SubmissionInput struct {
	QuestionID string `json:"question_id"`
	Score      int    `json:"score"`
	Comment    string `json:"comment"`
}

// LogAction enumerates the append-only audit actions.
type LogAction string

const (
	LogView   LogAction = "view"
	LogSubmit LogAction = "submit"
	LogError  LogAction = "error"
)

// LogEntry is one append-only audit record. Never mutated; best-effort
// writes must never block a submission's success.
type LogEntry struct {
	ID        int64     `json:"id"`
	Token     string    `json:"token,omitempty"`
	Action    LogAction `json:"action"`
	Details   string    `json:"details,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// AdminRole enumerates the administrative identities that may log in
// and drive the pipeline. Students never hold one of these.
type AdminRole string

const (
	RoleProfessor AdminRole = "professor"
	RoleHeadTA    AdminRole = "head_ta"
)

// Admin is a professor or head TA account, authenticated via the
// course administration API (JWT + bcrypt), distinct from Student.
type Admin struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         AdminRole `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Course groups one exam cycle's roster, assignment, tokens, and
// submissions under an owning Admin.
type Course struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// AssignmentPair is one (evaluator, target) edge in the reviewer→paper
// relation produced by the Assigner.
type AssignmentPair struct {
	EvaluatorID string `json:"evaluator_id"`
	TargetID    string `json:"target_id"`
}

// AssignmentSet is the Assigner → TokenMinter artifact: the full
// reviewer→paper relation plus the balance diagnostics from
// original_source's _analyze_assignments.
type AssignmentSet struct {
	Pairs     []AssignmentPair    `json:"pairs"`
	ByEvalID  map[string][]string `json:"assignments"` // evaluator_id -> assigned_papers
	Questions []Question          `json:"questions"`
	Balance   BalanceReport       `json:"balance"`
}

// BalanceReport summarizes in-degree spread across targets, grounded
// on the Python reference's assignment analysis. Non-authoritative
// diagnostics only.
type BalanceReport struct {
	MinInDegree  int     `json:"min_in_degree"`
	MaxInDegree  int     `json:"max_in_degree"`
	AvgInDegree  float64 `json:"avg_in_degree"`
	BalanceIndex float64 `json:"balance_index"` // 1 - stddev/avg
}

// TokenStats reports token counts by status and a completion rate,
// surfaced at GET /api/status.
type TokenStats struct {
	Total          int     `json:"total"`
	Pending        int     `json:"pending"`
	Submitted      int     `json:"submitted"`
	Expired        int     `json:"expired"`
	CompletionRate float64 `json:"completion_rate"`
}

// EvaluatorProgress reports how many of an evaluator's assigned tokens
// have been completed.
type EvaluatorProgress struct {
	EvaluatorID string  `json:"evaluator_id"`
	Assigned    int     `json:"assigned"`
	Completed   int     `json:"completed"`
	Rate        float64 `json:"rate"`
}

// TargetStats reports how many reviews a given paper has received.
type TargetStats struct {
	TargetID        string `json:"target_id"`
	ReviewsAssigned int    `json:"reviews_assigned"`
	ReviewsReceived int    `json:"reviews_received"`
}

// FinalGrade is one student's row in the Consensus results artifact.
type FinalGrade struct {
	StudentID       string  `json:"student_id"`
	ConsensusScore  float64 `json:"consensus_score"`
	IncentiveWeight float64 `json:"incentive_weight"`
	FinalGrade      float64 `json:"final_grade"`
	WeightedGrade   float64 `json:"weighted_grade"`
	ProtectionUsed  bool    `json:"protection_used"`
	Reputation      float64 `json:"reputation"`
	Variance        float64 `json:"variance"`
}

// ConsensusResults is the full Consensus → artifact output.
type ConsensusResults struct {
	AlgorithmParameters map[string]float64    `json:"algorithm_parameters"`
	FinalGrades         map[string]FinalGrade `json:"final_grades"`
	SummaryStatistics   map[string]float64    `json:"summary_statistics"`
}
