package app

import (
	"context"

	"race-quiz-service/internal/domain"
)

// QuizStore persists quiz definitions (in-memory, Postgres, cached, etc).
type QuizStore interface {
	Put(ctx context.Context, quiz domain.Quiz) error
	Update(ctx context.Context, quiz domain.Quiz) error
	// Get returns domain.ErrQuizNotFound for unknown ids.
	Get(ctx context.Context, id string) (domain.Quiz, error)
	// Latest returns the quiz with the maximum CreatedAt, ties broken toward
	// the most recent insertion. domain.ErrQuizNotFound when no quiz exists.
	Latest(ctx context.Context) (domain.Quiz, error)
	// List returns all quizzes ordered by CreatedAt descending with the same
	// tie-break as Latest, so Latest always matches the head of List.
	List(ctx context.Context) ([]domain.Quiz, error)
}

// SubmissionStore persists at most one submission per (participant, quiz).
type SubmissionStore interface {
	// Upsert overwrites any prior submission for the same key.
	Upsert(ctx context.Context, submission domain.Submission) error
	// Get returns ok=false for absent submissions; absence is not an error.
	Get(ctx context.Context, key domain.SubmissionKey) (domain.Submission, bool, error)
	ListByQuiz(ctx context.Context, quizID string) ([]domain.Submission, error)
	ListAll(ctx context.Context) ([]domain.Submission, error)
	// SetScore writes the scoring engine's result for an existing submission.
	// domain.ErrSubmissionNotFound when no submission exists for the key.
	SetScore(ctx context.Context, key domain.SubmissionKey, score, totalQuestions int) error
}

// UserStore persists registered users.
type UserStore interface {
	Create(ctx context.Context, user domain.User) error
	// Get returns domain.ErrUserNotFound for unknown ids.
	Get(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, bool, error)
	List(ctx context.Context) ([]domain.User, error)
	Count(ctx context.Context) (int, error)
	SetRole(ctx context.Context, id string, role domain.Role) error
}

// SessionStore maps opaque login tokens to user ids (in-memory or Redis).
type SessionStore interface {
	Put(ctx context.Context, token, userID string) error
	Get(ctx context.Context, token string) (string, bool, error)
	Delete(ctx context.Context, token string) error
}
