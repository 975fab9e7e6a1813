package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"race-quiz-service/internal/domain"
)

// SubmissionStore persists submissions as JSONB rows keyed by the composite
// (participant_id, quiz_id) primary key.
type SubmissionStore struct {
	pool *pgxpool.Pool
}

func NewSubmissionStore(pool *pgxpool.Pool) *SubmissionStore {
	return &SubmissionStore{pool: pool}
}

func (s *SubmissionStore) Upsert(ctx context.Context, submission domain.Submission) error {
	data, err := json.Marshal(submission)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO submissions (participant_id, quiz_id, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (participant_id, quiz_id) DO UPDATE SET data = EXCLUDED.data`,
		submission.Key.ParticipantID, submission.Key.QuizID, data)
	if err != nil {
		return fmt.Errorf("upsert submission: %w", err)
	}
	return nil
}

func (s *SubmissionStore) Get(ctx context.Context, key domain.SubmissionKey) (domain.Submission, bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM submissions WHERE participant_id = $1 AND quiz_id = $2`,
		key.ParticipantID, key.QuizID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Submission{}, false, nil
	}
	if err != nil {
		return domain.Submission{}, false, fmt.Errorf("load submission: %w", err)
	}
	submission, err := unmarshalSubmission(raw)
	if err != nil {
		return domain.Submission{}, false, err
	}
	return submission, true, nil
}

func (s *SubmissionStore) ListByQuiz(ctx context.Context, quizID string) ([]domain.Submission, error) {
	return s.list(ctx, `SELECT data FROM submissions WHERE quiz_id = $1`, quizID)
}

func (s *SubmissionStore) ListAll(ctx context.Context) ([]domain.Submission, error) {
	return s.list(ctx, `SELECT data FROM submissions`)
}

func (s *SubmissionStore) SetScore(ctx context.Context, key domain.SubmissionKey, score, totalQuestions int) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE submissions
		SET data = data || jsonb_build_object('score', $3::int, 'totalQuestions', $4::int, 'scored', true)
		WHERE participant_id = $1 AND quiz_id = $2`,
		key.ParticipantID, key.QuizID, score, totalQuestions)
	if err != nil {
		return fmt.Errorf("write score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("write score for %s/%s: %w", key.ParticipantID, key.QuizID, domain.ErrSubmissionNotFound)
	}
	return nil
}

func (s *SubmissionStore) list(ctx context.Context, query string, args ...interface{}) ([]domain.Submission, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var submissions []domain.Submission
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		submission, err := unmarshalSubmission(raw)
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, submission)
	}
	return submissions, rows.Err()
}

func unmarshalSubmission(raw []byte) (domain.Submission, error) {
	var submission domain.Submission
	if err := json.Unmarshal(raw, &submission); err != nil {
		return domain.Submission{}, fmt.Errorf("unmarshal submission: %w", err)
	}
	return submission, nil
}
