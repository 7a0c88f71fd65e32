// Package store is the single source of truth for tokens, submissions,
// audit logs, students, courses, and admins. It serializes writes at
// the SQLite layer (single-writer, multi-reader, WAL journal mode) and
// exposes typed apperr failures instead of bare database/sql errors.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"peereval/internal/apperr"
	"peereval/internal/models"
)

//go:embed schema.sql
var schemaFS embed.FS

// Store wraps a *sql.DB. Unlike the teacher's package-level DB global,
// every caller holds its own Store value and passes it explicitly —
// there is no package-level singleton.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open connects to the SQLite file at path, enabling WAL journaling and
// a busy timeout so concurrent readers never block the single writer,
// and applies the embedded schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("store: ping %s: %w", path, err)
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return nil, fmt.Errorf("store: read schema: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveToken inserts a single token. Conflict on an existing token
// string is surfaced as apperr.KindConflict.
func (s *Store) SaveToken(ctx context.Context, t models.Token) error {
	return s.insertToken(ctx, s.db, t)
}

func (s *Store) insertToken(ctx context.Context, exec execer, t models.Token) error {
	questionsJSON, err := json.Marshal(t.Questions)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "marshal questions", err)
	}
	_, err = exec.ExecContext(ctx, `
		INSERT INTO tokens (token, evaluator_id, target_id, questions, created_at, expires_at, status, is_used)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Token, t.EvaluatorID, t.TargetID, string(questionsJSON),
		t.CreatedAt, t.ExpiresAt, string(t.Status), t.IsUsed,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Wrap(apperr.KindConflict, "token already exists", err)
		}
		return apperr.Wrap(apperr.KindInternal, "insert token", err)
	}
	return nil
}

// SaveTokensBatch persists every token in one transaction. On the
// first conflict the whole batch is rolled back.
func (s *Store) SaveTokensBatch(ctx context.Context, tokens []models.Token) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "begin transaction", err)
	}
	defer tx.Rollback()

	for _, t := range tokens {
		if err := s.insertToken(ctx, tx, t); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.KindInternal, "commit batch", err)
	}
	return nil
}

// GetToken looks up a token by its string. Not found is
// apperr.KindNotFound.
func (s *Store) GetToken(ctx context.Context, token string) (models.Token, error) {
	return s.queryToken(ctx, s.db, token)
}

func (s *Store) queryToken(ctx context.Context, q querier, token string) (models.Token, error) {
	var t models.Token
	var questionsJSON string
	var status string
	var usedAt sql.NullTime
	var ip, ua sql.NullString

	row := q.QueryRowContext(ctx, `
		SELECT token, evaluator_id, target_id, questions, created_at, expires_at, status, is_used, used_at, ip_address, user_agent
		FROM tokens WHERE token = ?`, token)
	err := row.Scan(&t.Token, &t.EvaluatorID, &t.TargetID, &questionsJSON, &t.CreatedAt, &t.ExpiresAt, &status, &t.IsUsed, &usedAt, &ip, &ua)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Token{}, apperr.New(apperr.KindNotFound, "token not found")
	}
	if err != nil {
		return models.Token{}, apperr.Wrap(apperr.KindInternal, "query token", err)
	}

	t.Status = models.TokenStatus(status)
	if usedAt.Valid {
		u := usedAt.Time
		t.UsedAt = &u
	}
	t.IPAddress = ip.String
	t.UserAgent = ua.String
	if err := json.Unmarshal([]byte(questionsJSON), &t.Questions); err != nil {
		return models.Token{}, apperr.Wrap(apperr.KindInternal, "unmarshal questions", err)
	}
	return t, nil
}

// ValidateToken performs the pure, never-failing check from spec §4.3:
// existence, is_used, status, expiry, in that order.
func (s *Store) ValidateToken(ctx context.Context, token string, now time.Time) (valid bool, info *models.Token, reason string) {
	t, err := s.GetToken(ctx, token)
	if err != nil {
		return false, nil, "token not found"
	}
	if t.IsUsed {
		return false, &t, "already used"
	}
	if t.Status != models.TokenPending {
		return false, &t, "invalid state: " + string(t.Status)
	}
	if now.After(t.ExpiresAt) {
		return false, &t, "expired"
	}
	return true, &t, ""
}

// MarkTokenUsed performs the atomic pending->submitted transition.
// Rejects an already-used token with apperr.KindAlreadyUsed.
func (s *Store) MarkTokenUsed(ctx context.Context, token, ip, ua string) error {
	return s.markTokenUsed(ctx, s.db, token, ip, ua, time.Now())
}

func (s *Store) markTokenUsed(ctx context.Context, exec execer, token, ip, ua string, now time.Time) error {
	res, err := exec.ExecContext(ctx, `
		UPDATE tokens SET is_used = 1, status = 'submitted', used_at = ?, ip_address = ?, user_agent = ?
		WHERE token = ? AND is_used = 0`,
		now, ip, ua, token,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "mark token used", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "rows affected", err)
	}
	if n == 0 {
		if _, err := s.queryToken(ctx, exec.(querier), token); err != nil {
			return apperr.New(apperr.KindNotFound, "token not found")
		}
		return apperr.New(apperr.KindAlreadyUsed, "token already used")
	}
	return nil
}

// SaveSubmission appends one per-question submission row.
func (s *Store) SaveSubmission(ctx context.Context, sub models.Submission) (int64, error) {
	return s.insertSubmission(ctx, s.db, sub)
}

func (s *Store) insertSubmission(ctx context.Context, exec execer, sub models.Submission) (int64, error) {
	res, err := exec.ExecContext(ctx, `
		INSERT INTO submissions (token, evaluator_id, target_id, question_id, score, comment, submitted_at, ip_address, user_agent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.Token, sub.EvaluatorID, sub.TargetID, sub.QuestionID, sub.Score, sub.Comment, sub.SubmittedAt, sub.IPAddress, sub.UserAgent,
	)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "insert submission", err)
	}
	return res.LastInsertId()
}

// SaveSubmissionsBatchAndMarkUsed performs the §4.4 step-6 atomic
// operation: insert all per-question submissions and mark the token
// used in one transaction. Either all succeed or all roll back. The
// token is marked first, so an already-used token fails with
// apperr.KindAlreadyUsed before any row is inserted.
func (s *Store) SaveSubmissionsBatchAndMarkUsed(ctx context.Context, subs []models.Submission, token, ip, ua string) ([]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "begin transaction", err)
	}
	defer tx.Rollback()

	if err := s.markTokenUsed(ctx, tx, token, ip, ua, time.Now()); err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(subs))
	for _, sub := range subs {
		id, err := s.insertSubmission(ctx, tx, sub)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "commit submission batch", err)
	}
	return ids, nil
}

// LogAction appends a best-effort audit record. Failures are swallowed
// (logged, not propagated) per spec §4.3 — a logging failure must
// never block a submission's success.
func (s *Store) LogAction(ctx context.Context, entry models.LogEntry) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submission_logs (token, action, details, ip_address, user_agent, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		nullableString(entry.Token), string(entry.Action), entry.Details, entry.IPAddress, entry.UserAgent, entry.Timestamp,
	)
	if err != nil && s.logger != nil {
		s.logger.Warn("audit log write failed", "action", entry.Action, "err", err)
	}
}

// TokensByEvaluator returns every token minted for the given evaluator.
func (s *Store) TokensByEvaluator(ctx context.Context, evaluatorID string) ([]models.Token, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT token FROM tokens WHERE evaluator_id = ? ORDER BY token`, evaluatorID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "query tokens by evaluator", err)
	}
	defer rows.Close()

	var tokenStrs []string
	for rows.Next() {
		var tok string
		if err := rows.Scan(&tok); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan token", err)
		}
		tokenStrs = append(tokenStrs, tok)
	}

	out := make([]models.Token, 0, len(tokenStrs))
	for _, tok := range tokenStrs {
		t, err := s.GetToken(ctx, tok)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// SubmissionsByTarget returns every accepted submission for a paper,
// ordered by id.
func (s *Store) SubmissionsByTarget(ctx context.Context, targetID string) ([]models.Submission, error) {
	return s.querySubmissions(ctx, `WHERE target_id = ?`, targetID)
}

// AllSubmissions returns the complete accepted-submission set, the
// Consensus engine's primary input.
func (s *Store) AllSubmissions(ctx context.Context) ([]models.Submission, error) {
	return s.querySubmissions(ctx, ``)
}

func (s *Store) querySubmissions(ctx context.Context, where string, args ...interface{}) ([]models.Submission, error) {
	query := `SELECT id, token, evaluator_id, target_id, question_id, score, comment, submitted_at, ip_address, user_agent FROM submissions ` + where + ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "query submissions", err)
	}
	defer rows.Close()

	var out []models.Submission
	for rows.Next() {
		var sub models.Submission
		var ip, ua sql.NullString
		if err := rows.Scan(&sub.ID, &sub.Token, &sub.EvaluatorID, &sub.TargetID, &sub.QuestionID, &sub.Score, &sub.Comment, &sub.SubmittedAt, &ip, &ua); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan submission", err)
		}
		sub.IPAddress = ip.String
		sub.UserAgent = ua.String
		out = append(out, sub)
	}
	return out, nil
}

// TokenStats reports counts by status and a completion rate, surfaced
// at GET /api/status.
func (s *Store) TokenStats(ctx context.Context) (models.TokenStats, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'submitted' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'expired' THEN 1 ELSE 0 END)
		FROM tokens`)

	var stats models.TokenStats
	var pending, submitted, expired sql.NullInt64
	if err := row.Scan(&stats.Total, &pending, &submitted, &expired); err != nil {
		return models.TokenStats{}, apperr.Wrap(apperr.KindInternal, "query token stats", err)
	}
	stats.Pending = int(pending.Int64)
	stats.Submitted = int(submitted.Int64)
	stats.Expired = int(expired.Int64)
	if stats.Total > 0 {
		stats.CompletionRate = float64(stats.Submitted) / float64(stats.Total) * 100
	}
	return stats, nil
}

// EvaluatorProgress reports, per evaluator, how many of their assigned
// tokens have been completed, grounded on the reference
// get_evaluator_progress query.
func (s *Store) EvaluatorProgress(ctx context.Context) ([]models.EvaluatorProgress, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT evaluator_id, COUNT(*), SUM(CASE WHEN is_used = 1 THEN 1 ELSE 0 END)
		FROM tokens
		GROUP BY evaluator_id
		ORDER BY evaluator_id`)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "query evaluator progress", err)
	}
	defer rows.Close()

	var out []models.EvaluatorProgress
	for rows.Next() {
		var p models.EvaluatorProgress
		if err := rows.Scan(&p.EvaluatorID, &p.Assigned, &p.Completed); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan evaluator progress", err)
		}
		if p.Assigned > 0 {
			p.Rate = float64(p.Completed) / float64(p.Assigned) * 100
		}
		out = append(out, p)
	}
	return out, nil
}

// TargetStats reports, per target paper, how many reviews were
// assigned versus actually received.
func (s *Store) TargetStats(ctx context.Context) ([]models.TargetStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			t.target_id,
			COUNT(DISTINCT t.token) AS assigned,
			COUNT(DISTINCT CASE WHEN t.is_used = 1 THEN t.token END) AS received
		FROM tokens t
		GROUP BY t.target_id
		ORDER BY t.target_id`)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "query target stats", err)
	}
	defer rows.Close()

	var out []models.TargetStats
	for rows.Next() {
		var ts models.TargetStats
		if err := rows.Scan(&ts.TargetID, &ts.ReviewsAssigned, &ts.ReviewsReceived); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan target stats", err)
		}
		out = append(out, ts)
	}
	return out, nil
}

// SaveStudentsBatch upserts the roster in one transaction: an existing
// id takes the new name and email, so re-ingesting the same roster is
// idempotent.
func (s *Store) SaveStudentsBatch(ctx context.Context, students []models.Student) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "begin transaction", err)
	}
	defer tx.Rollback()

	for _, st := range students {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO students (id, name, email) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email`,
			st.ID, st.Name, st.Email,
		); err != nil {
			return apperr.Wrap(apperr.KindInternal, "insert student", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.KindInternal, "commit students batch", err)
	}
	return nil
}

// Students returns the full roster, sorted by id.
func (s *Store) Students(ctx context.Context) ([]models.Student, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, email FROM students ORDER BY id`)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "query students", err)
	}
	defer rows.Close()

	var out []models.Student
	for rows.Next() {
		var st models.Student
		if err := rows.Scan(&st.ID, &st.Name, &st.Email); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan student", err)
		}
		out = append(out, st)
	}
	return out, nil
}

// CreateAdmin inserts a professor/head-TA account.
func (s *Store) CreateAdmin(ctx context.Context, a models.Admin) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admins (id, email, password_hash, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Email, a.PasswordHash, string(a.Role), a.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Wrap(apperr.KindConflict, "admin email already registered", err)
		}
		return apperr.Wrap(apperr.KindInternal, "insert admin", err)
	}
	return nil
}

// AdminByEmail looks up an admin for login.
func (s *Store) AdminByEmail(ctx context.Context, email string) (models.Admin, error) {
	var a models.Admin
	var role string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, role, created_at FROM admins WHERE email = ?`, email,
	).Scan(&a.ID, &a.Email, &a.PasswordHash, &role, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Admin{}, apperr.New(apperr.KindNotFound, "admin not found")
	}
	if err != nil {
		return models.Admin{}, apperr.Wrap(apperr.KindInternal, "query admin", err)
	}
	a.Role = models.AdminRole(role)
	return a, nil
}

// CreateCourse inserts a new course owned by createdBy.
func (s *Store) CreateCourse(ctx context.Context, c models.Course) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO courses (id, name, created_by, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.Name, c.CreatedBy, c.CreatedAt,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "insert course", err)
	}
	return nil
}

// CoursesByAdmin returns every course an admin owns.
func (s *Store) CoursesByAdmin(ctx context.Context, adminID string) ([]models.Course, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_by, created_at FROM courses WHERE created_by = ? ORDER BY created_at DESC`, adminID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "query courses", err)
	}
	defer rows.Close()

	var out []models.Course
	for rows.Next() {
		var c models.Course
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan course", err)
		}
		out = append(out, c)
	}
	return out, nil
}

// execer and querier narrow *sql.DB/*sql.Tx to what store needs so the
// same helper methods serve both a bare connection and a transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	return err != nil && (containsFold(err.Error(), "UNIQUE constraint") || containsFold(err.Error(), "constraint failed"))
}

func containsFold(s, substr string) bool {
	return len(s) >= len(substr) && (func() bool {
		for i := 0; i+len(substr) <= len(s); i++ {
			if equalFold(s[i:i+len(substr)], substr) {
				return true
			}
		}
		return false
	})()
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
