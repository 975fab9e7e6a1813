package memory

import (
	"context"
	"sync"

	"race-quiz-service/internal/domain"
)

// QuizStore is an in-memory implementation of app.QuizStore, useful for tests
// and for running the service without Postgres.
type QuizStore struct {
	mu      sync.RWMutex
	quizzes map[string]domain.Quiz
	// order records insertion sequence; it is the stable tie-break when two
	// quizzes share a CreatedAt.
	order []string
}

func NewQuizStore() *QuizStore {
	return &QuizStore{quizzes: make(map[string]domain.Quiz)}
}

func (s *QuizStore) Put(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quiz.ID]; !ok {
		s.order = append(s.order, quiz.ID)
	}
	s.quizzes[quiz.ID] = cloneQuiz(quiz)
	return nil
}

func (s *QuizStore) Update(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quiz.ID]; !ok {
		return domain.ErrQuizNotFound
	}
	s.quizzes[quiz.ID] = cloneQuiz(quiz)
	return nil
}

func (s *QuizStore) Get(_ context.Context, id string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[id]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return cloneQuiz(quiz), nil
}

func (s *QuizStore) Latest(_ context.Context) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found := false
	var latest domain.Quiz
	for _, id := range s.order {
		quiz := s.quizzes[id]
		// Not-before keeps the later-inserted quiz on CreatedAt ties, matching
		// List and the Postgres store.
		if !found || !quiz.CreatedAt.Before(latest.CreatedAt) {
			latest = quiz
			found = true
		}
	}
	if !found {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return cloneQuiz(latest), nil
}

func (s *QuizStore) List(_ context.Context) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quizzes := make([]domain.Quiz, 0, len(s.order))
	// Walk insertion order backwards so equal CreatedAt values keep a stable
	// newest-first order after the sort.
	for i := len(s.order) - 1; i >= 0; i-- {
		quizzes = append(quizzes, cloneQuiz(s.quizzes[s.order[i]]))
	}
	sortByCreatedAtDesc(quizzes)
	return quizzes, nil
}

func sortByCreatedAtDesc(quizzes []domain.Quiz) {
	// Insertion sort keeps the pre-established order for equal keys.
	for i := 1; i < len(quizzes); i++ {
		for j := i; j > 0 && quizzes[j].CreatedAt.After(quizzes[j-1].CreatedAt); j-- {
			quizzes[j], quizzes[j-1] = quizzes[j-1], quizzes[j]
		}
	}
}

func cloneQuiz(quiz domain.Quiz) domain.Quiz {
	clone := quiz
	clone.Questions = make([]domain.Question, len(quiz.Questions))
	copy(clone.Questions, quiz.Questions)
	for i := range clone.Questions {
		options := make([]string, len(quiz.Questions[i].Options))
		copy(options, quiz.Questions[i].Options)
		clone.Questions[i].Options = options
	}
	return clone
}
