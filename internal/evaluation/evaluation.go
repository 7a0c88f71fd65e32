// Package evaluation is the EvaluationService use-case layer: it turns
// a token-bearing HTTP request into a persisted submission or a typed
// error. Responsibilities are kept separate per the specification's
// re-architecture note on the reference web handler — this package is
// the use-case step only; request decoding and HTTP presentation live
// in internal/api.
package evaluation

import (
	"context"
	"time"

	"peereval/internal/apperr"
	"peereval/internal/models"
)

// Store is the subset of the persistence layer the use-case needs.
// Defined here (not imported as a concrete type) so the use-case layer
// can be tested against a fake without a real SQLite file.
type Store interface {
	GetToken(ctx context.Context, token string) (models.Token, error)
	ValidateToken(ctx context.Context, token string, now time.Time) (bool, *models.Token, string)
	SaveSubmissionsBatchAndMarkUsed(ctx context.Context, subs []models.Submission, token, ip, ua string) ([]int64, error)
	LogAction(ctx context.Context, entry models.LogEntry)
}

// PaperProvider resolves a target's paper for the view protocol. It is
// backed by the ingested exam-data document.
type PaperProvider interface {
	Paper(studentID string) (models.Paper, bool)
}

// Questions resolves question metadata (content, max score) used by
// both the view protocol and submission validation.
type Questions interface {
	Question(id string) (models.Question, bool)
}

// Service implements the submission-acceptance and view protocols from
// specification §4.4.
type Service struct {
	store     Store
	papers    PaperProvider
	questions Questions
	now       func() time.Time
}

// New constructs a Service. now defaults to time.Now; callers needing
// deterministic tests can override it.
func New(store Store, papers PaperProvider, questions Questions) *Service {
	return &Service{store: store, papers: papers, questions: questions, now: time.Now}
}

// View is the anonymity-preserving DTO returned for a pending token.
// target_id is intentionally absent from this struct, not merely
// omitted at render time — the anonymity rule is a type boundary, not
// a rendering convention.
type View struct {
	Questions []ViewQuestion `json:"questions"`
}

// ViewQuestion pairs one question's text with the target's answer,
// still without identifying the target.
type ViewQuestion struct {
	QuestionID string `json:"question_id"`
	Content    string `json:"content"`
	MaxScore   int    `json:"max_score"`
	AnswerText string `json:"answer_text"`
}

// AlreadySubmittedView is returned for a token that has already been
// used, so the client can render a distinct non-error page with
// used_at for auditability.
type AlreadySubmittedView struct {
	UsedAt time.Time `json:"used_at"`
}

// ViewToken implements the view protocol: for a pending token, render
// the target paper's answers; for a used token, surface
// AlreadySubmitted instead of an error. Every call is logged.
func (s *Service) ViewToken(ctx context.Context, token, ip, ua string) (*View, *AlreadySubmittedView, error) {
	now := s.now()
	valid, info, reason := s.store.ValidateToken(ctx, token, now)
	if info == nil {
		s.logError(ctx, token, ip, ua, "token not found")
		return nil, nil, apperr.New(apperr.KindNotFound, "token not found")
	}
	if info.IsUsed {
		s.store.LogAction(ctx, logEntry(token, models.LogView, "already submitted", ip, ua, now))
		return nil, &AlreadySubmittedView{UsedAt: *info.UsedAt}, nil
	}
	if !valid {
		s.logError(ctx, token, ip, ua, reason)
		return nil, nil, apperr.New(kindForReason(reason), reason)
	}

	paper, ok := s.papers.Paper(info.TargetID)
	if !ok {
		s.logError(ctx, token, ip, ua, "target paper not found")
		return nil, nil, apperr.New(apperr.KindInternal, "target paper not found")
	}

	view := &View{}
	for _, qID := range info.Questions {
		q, _ := s.questions.Question(qID)
		answer := paper.Answers[qID]
		view.Questions = append(view.Questions, ViewQuestion{
			QuestionID: qID,
			Content:    q.Content,
			MaxScore:   q.MaxScore,
			AnswerText: answer.Text,
		})
	}

	s.store.LogAction(ctx, logEntry(token, models.LogView, "", ip, ua, now))
	return view, nil, nil
}

// SubmitResult is returned on a successful submission.
type SubmitResult struct {
	SubmissionIDs []int64
}

// Submit implements the §4.4 submission-acceptance protocol: resolve
// the token, check used/expired/state, validate the request body
// against the token's question set and score bounds, then insert all
// per-question submissions and mark the token used in one transaction.
func (s *Service) Submit(ctx context.Context, token string, inputs []models.SubmissionInput, ip, ua string) (*SubmitResult, *AlreadySubmittedView, error) {
	now := s.now()

	info, err := s.store.GetToken(ctx, token)
	if err != nil {
		s.logError(ctx, token, ip, ua, "token not found")
		return nil, nil, apperr.New(apperr.KindNotFound, "token not found")
	}
	if info.IsUsed {
		s.store.LogAction(ctx, logEntry(token, models.LogView, "already submitted", ip, ua, now))
		return nil, &AlreadySubmittedView{UsedAt: *info.UsedAt}, nil
	}
	if now.After(info.ExpiresAt) {
		s.logError(ctx, token, ip, ua, "expired")
		return nil, nil, apperr.New(apperr.KindExpired, "token expired")
	}
	if info.Status != models.TokenPending {
		s.logError(ctx, token, ip, ua, "invalid state: "+string(info.Status))
		return nil, nil, apperr.New(apperr.KindInvalidState, "token is not pending")
	}

	if err := s.validateBody(info, inputs); err != nil {
		s.logError(ctx, token, ip, ua, err.Error())
		return nil, nil, err
	}

	subs := make([]models.Submission, 0, len(inputs))
	for _, in := range inputs {
		subs = append(subs, models.Submission{
			Token:       token,
			EvaluatorID: info.EvaluatorID,
			TargetID:    info.TargetID,
			QuestionID:  in.QuestionID,
			Score:       in.Score,
			Comment:     in.Comment,
			SubmittedAt: now,
			IPAddress:   ip,
			UserAgent:   ua,
		})
	}

	ids, err := s.store.SaveSubmissionsBatchAndMarkUsed(ctx, subs, token, ip, ua)
	if err != nil {
		s.logError(ctx, token, ip, ua, err.Error())
		if apperr.KindOf(err) == apperr.KindAlreadyUsed {
			return nil, &AlreadySubmittedView{UsedAt: now}, nil
		}
		return nil, nil, err
	}

	s.store.LogAction(ctx, logEntry(token, models.LogSubmit, "", ip, ua, now))
	return &SubmitResult{SubmissionIDs: ids}, nil, nil
}

// validateBody enforces §4.4 step 5: the submitted question-id set
// must equal the token's questions set, and every score must be an
// integer in [0, max_score].
func (s *Service) validateBody(token models.Token, inputs []models.SubmissionInput) error {
	if len(inputs) != len(token.Questions) {
		return apperr.New(apperr.KindValidation, "submission does not cover the required question set")
	}
	want := make(map[string]bool, len(token.Questions))
	for _, q := range token.Questions {
		want[q] = true
	}
	seen := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		if !want[in.QuestionID] || seen[in.QuestionID] {
			return apperr.New(apperr.KindValidation, "unexpected or duplicate question_id in submission")
		}
		seen[in.QuestionID] = true

		q, ok := s.questions.Question(in.QuestionID)
		maxScore := q.MaxScore
		if !ok {
			maxScore = 0
		}
		if in.Score < 0 || in.Score > maxScore {
			return apperr.New(apperr.KindValidation, "score out of range")
		}
	}
	for q := range want {
		if !seen[q] {
			return apperr.New(apperr.KindValidation, "submission does not cover the required question set")
		}
	}
	return nil
}

func (s *Service) logError(ctx context.Context, token, ip, ua, reason string) {
	s.store.LogAction(ctx, logEntry(token, models.LogError, reason, ip, ua, s.now()))
}

func logEntry(token string, action models.LogAction, details, ip, ua string, now time.Time) models.LogEntry {
	return models.LogEntry{Token: token, Action: action, Details: details, IPAddress: ip, UserAgent: ua, Timestamp: now}
}

func kindForReason(reason string) apperr.Kind {
	switch reason {
	case "expired":
		return apperr.KindExpired
	case "already used":
		return apperr.KindAlreadyUsed
	default:
		return apperr.KindInvalidState
	}
}
