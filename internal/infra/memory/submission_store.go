package memory

import (
	"context"
	"sync"

	"race-quiz-service/internal/domain"
)

// SubmissionStore is an in-memory implementation of app.SubmissionStore,
// keyed by the explicit composite (participant, quiz) key.
type SubmissionStore struct {
	mu          sync.RWMutex
	submissions map[domain.SubmissionKey]domain.Submission
}

func NewSubmissionStore() *SubmissionStore {
	return &SubmissionStore{submissions: make(map[domain.SubmissionKey]domain.Submission)}
}

func (s *SubmissionStore) Upsert(_ context.Context, submission domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions[submission.Key] = cloneSubmission(submission)
	return nil
}

func (s *SubmissionStore) Get(_ context.Context, key domain.SubmissionKey) (domain.Submission, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	submission, ok := s.submissions[key]
	if !ok {
		return domain.Submission{}, false, nil
	}
	return cloneSubmission(submission), true, nil
}

func (s *SubmissionStore) ListByQuiz(_ context.Context, quizID string) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var submissions []domain.Submission
	for key, submission := range s.submissions {
		if key.QuizID == quizID {
			submissions = append(submissions, cloneSubmission(submission))
		}
	}
	return submissions, nil
}

func (s *SubmissionStore) ListAll(_ context.Context) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	submissions := make([]domain.Submission, 0, len(s.submissions))
	for _, submission := range s.submissions {
		submissions = append(submissions, cloneSubmission(submission))
	}
	return submissions, nil
}

func (s *SubmissionStore) SetScore(_ context.Context, key domain.SubmissionKey, score, totalQuestions int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	submission, ok := s.submissions[key]
	if !ok {
		return domain.ErrSubmissionNotFound
	}
	submission.Score = score
	submission.TotalQuestions = totalQuestions
	submission.Scored = true
	s.submissions[key] = submission
	return nil
}

func cloneSubmission(submission domain.Submission) domain.Submission {
	clone := submission
	clone.Answers = make(map[string]string, len(submission.Answers))
	for key, answer := range submission.Answers {
		clone.Answers[key] = answer
	}
	return clone
}
