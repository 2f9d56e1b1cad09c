package cases

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	_ "github.com/lib/pq"
	"github.com/mhosigiri/FeedbackAI/internal/models"
	"github.com/sirupsen/logrus"
)

//go:embed migrations.sql
var migrations embed.FS

// PostgresStore keeps cases in PostgreSQL. The classification payload is a
// JSONB document; resolution state lives in its own columns.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.initializeSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	logrus.Info("Connected to PostgreSQL case store")
	return store, nil
}

func (s *PostgresStore) initializeSchema(ctx context.Context) error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateSubmission(ctx context.Context, sub models.Submission) error {
	if sub.FeedbackID == "" {
		return fmt.Errorf("%w: feedback id is required", models.ErrInvalidSubmission)
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO feedback_submissions (feedback_id, name, problem, location_hint, submitted_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.ExecContext(ctx, query, sub.FeedbackID, sub.Name, sub.Problem, sub.LocationHint, sub.SubmittedAt)
	if err != nil {
		return fmt.Errorf("%w: error creating submission: %w", models.ErrStoreWrite, err)
	}
	return nil
}

func (s *PostgresStore) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	query := `
		SELECT feedback_id, name, problem, location_hint, submitted_at
		FROM feedback_submissions
		WHERE feedback_id = $1`

	sub := &models.Submission{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(&sub.FeedbackID, &sub.Name, &sub.Problem, &sub.LocationHint, &sub.SubmittedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", models.ErrCaseNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying submission: %w", err)
	}
	return sub, nil
}

func (s *PostgresStore) PendingSubmissions(ctx context.Context, olderThan time.Duration) ([]models.Submission, error) {
	query := `
		SELECT s.feedback_id, s.name, s.problem, s.location_hint, s.submitted_at
		FROM feedback_submissions s
		WHERE NOT EXISTS (SELECT 1 FROM feedback_analyses a WHERE a.feedback_id = s.feedback_id)
		  AND s.submitted_at <= $1
		ORDER BY s.submitted_at, s.seq`

	return s.querySubmissions(ctx, query, time.Now().Add(-olderThan))
}

func (s *PostgresStore) RecentSubmissions(ctx context.Context, limit int) ([]models.Submission, error) {
	query := `
		SELECT feedback_id, name, problem, location_hint, submitted_at
		FROM feedback_submissions
		ORDER BY submitted_at DESC, seq DESC
		LIMIT NULLIF($1::int, 0)`

	return s.querySubmissions(ctx, query, max(limit, 0))
}

func (s *PostgresStore) querySubmissions(ctx context.Context, query string, args ...interface{}) ([]models.Submission, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying submissions: %w", err)
	}
	defer rows.Close()

	subs := []models.Submission{}
	for rows.Next() {
		var sub models.Submission
		if err := rows.Scan(&sub.FeedbackID, &sub.Name, &sub.Problem, &sub.LocationHint, &sub.SubmittedAt); err != nil {
			return nil, fmt.Errorf("error scanning submission: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// SaveAnalysis inserts only when the submission exists and no analysis does;
// a zero row count is then explained with one extra lookup
func (s *PostgresStore) SaveAnalysis(ctx context.Context, analysis models.FeedbackAnalysis) (*models.FeedbackAnalysis, error) {
	sub, err := s.GetSubmission(ctx, analysis.FeedbackID)
	if err != nil {
		return nil, err
	}

	saved := prepareAnalysis(analysis, *sub, time.Now())
	payload, err := json.Marshal(saved)
	if err != nil {
		return nil, fmt.Errorf("error encoding analysis: %w", err)
	}

	query := `
		INSERT INTO feedback_analyses (feedback_id, payload, analyzed_at)
		SELECT $1::text, $2::jsonb, $3::bigint
		WHERE EXISTS (SELECT 1 FROM feedback_submissions WHERE feedback_id = $1::text)
		ON CONFLICT (feedback_id) DO NOTHING`

	result, err := s.db.ExecContext(ctx, query, saved.FeedbackID, string(payload), saved.AnalyzedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: error saving analysis: %w", models.ErrStoreWrite, err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrStoreWrite, err)
	}
	if inserted == 0 {
		if _, err := s.GetSubmission(ctx, saved.FeedbackID); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", models.ErrAlreadyClassified, saved.FeedbackID)
	}
	return &saved, nil
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, id string) (*models.FeedbackAnalysis, error) {
	query := `
		SELECT a.payload, a.resolved, a.analyzed_at
		FROM feedback_submissions s
		LEFT JOIN feedback_analyses a ON a.feedback_id = s.feedback_id
		WHERE s.feedback_id = $1`

	var (
		payload    []byte
		resolved   sql.NullBool
		analyzedAt sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(&payload, &resolved, &analyzedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", models.ErrCaseNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying analysis: %w", err)
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: %s", models.ErrCaseNotClassified, id)
	}
	return decodeAnalysis(payload, resolved.Bool, analyzedAt.Int64)
}

func (s *PostgresStore) Resolve(ctx context.Context, id string) (*models.FeedbackAnalysis, bool, error) {
	query := `
		UPDATE feedback_analyses
		SET resolved = TRUE, resolved_at = NOW()
		WHERE feedback_id = $1 AND resolved = FALSE`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return nil, false, fmt.Errorf("%w: error resolving case: %w", models.ErrStoreWrite, err)
	}
	updated, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", models.ErrStoreWrite, err)
	}

	analysis, err := s.GetAnalysis(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return analysis, updated > 0, nil
}

func (s *PostgresStore) ListAnalyses(ctx context.Context, limit int) ([]models.FeedbackAnalysis, error) {
	query := `
		SELECT payload, resolved, analyzed_at
		FROM feedback_analyses
		ORDER BY analyzed_at DESC, seq DESC
		LIMIT NULLIF($1::int, 0)`

	return s.queryAnalyses(ctx, query, max(limit, 0))
}

func (s *PostgresStore) ListUnresolved(ctx context.Context, limit int) ([]models.FeedbackAnalysis, error) {
	query := `
		SELECT payload, resolved, analyzed_at
		FROM feedback_analyses
		WHERE resolved = FALSE
		ORDER BY analyzed_at DESC, seq DESC
		LIMIT NULLIF($1::int, 0)`

	return s.queryAnalyses(ctx, query, max(limit, 0))
}

func (s *PostgresStore) queryAnalyses(ctx context.Context, query string, args ...interface{}) ([]models.FeedbackAnalysis, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying analyses: %w", err)
	}
	defer rows.Close()

	analyses := []models.FeedbackAnalysis{}
	for rows.Next() {
		var (
			payload    []byte
			resolved   bool
			analyzedAt int64
		)
		if err := rows.Scan(&payload, &resolved, &analyzedAt); err != nil {
			return nil, fmt.Errorf("error scanning analysis: %w", err)
		}
		analysis, err := decodeAnalysis(payload, resolved, analyzedAt)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, *analysis)
	}
	return analyses, rows.Err()
}

func decodeAnalysis(payload []byte, resolved bool, analyzedAt int64) (*models.FeedbackAnalysis, error) {
	var analysis models.FeedbackAnalysis
	if err := json.Unmarshal(payload, &analysis); err != nil {
		return nil, fmt.Errorf("error decoding analysis: %w", err)
	}
	analysis.Resolved = resolved
	analysis.AnalyzedAt = analyzedAt
	return &analysis, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
