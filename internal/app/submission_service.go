package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"race-quiz-service/internal/domain"
)

// SubmissionService owns participant answer sets: one live submission per
// (participant, quiz), overwritten in place on every submit.
type SubmissionService struct {
	quizzes     QuizStore
	submissions SubmissionStore
	users       UserStore
	now         func() time.Time
}

func NewSubmissionService(quizzes QuizStore, submissions SubmissionStore, users UserStore) *SubmissionService {
	return &SubmissionService{
		quizzes:     quizzes,
		submissions: submissions,
		users:       users,
		now:         time.Now,
	}
}

// NewSubmissionServiceWithClock is test-only for deterministic timestamps.
func NewSubmissionServiceWithClock(quizzes QuizStore, submissions SubmissionStore, users UserStore, now func() time.Time) *SubmissionService {
	return &SubmissionService{quizzes: quizzes, submissions: submissions, users: users, now: now}
}

// Submit upserts the actor's answers for the quiz. Participants may only
// submit while the quiz is open; the phase is evaluated here, at write time,
// so no call path can slip through after the deadline. A previously computed
// score is carried over untouched until the next rescore batch.
func (s *SubmissionService) Submit(ctx context.Context, actor Actor, quizID string, answers map[string]string) (domain.Submission, error) {
	quiz, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return domain.Submission{}, err
	}
	if err := Authorize(actor, OpSubmitAnswers, quiz.PhaseAt(s.now()), quiz.Disclosed()); err != nil {
		return domain.Submission{}, err
	}
	if err := validateAnswers(quiz, answers); err != nil {
		return domain.Submission{}, err
	}

	user, err := s.users.Get(ctx, actor.ID)
	if err != nil {
		return domain.Submission{}, err
	}

	submission := domain.Submission{
		Key:         domain.SubmissionKey{ParticipantID: actor.ID, QuizID: quizID},
		Username:    user.Username,
		Answers:     answers,
		SubmittedAt: s.now(),
	}

	if previous, ok, err := s.submissions.Get(ctx, submission.Key); err != nil {
		return domain.Submission{}, fmt.Errorf("load submission: %w", err)
	} else if ok && previous.Scored {
		submission.Score = previous.Score
		submission.TotalQuestions = previous.TotalQuestions
		submission.Scored = true
	}

	if err := s.submissions.Upsert(ctx, submission); err != nil {
		return domain.Submission{}, fmt.Errorf("store submission: %w", err)
	}
	return submission, nil
}

// MySubmission returns the actor's own submission for the quiz, if any.
// Absence is reported via ok=false, not an error.
func (s *SubmissionService) MySubmission(ctx context.Context, actor Actor, quizID string) (domain.Submission, bool, error) {
	if err := Authorize(actor, OpViewQuiz, domain.PhaseOpen, false); err != nil {
		return domain.Submission{}, false, err
	}
	return s.submissions.Get(ctx, domain.SubmissionKey{ParticipantID: actor.ID, QuizID: quizID})
}

// ListByQuiz returns every submission for a quiz. Administrators only.
func (s *SubmissionService) ListByQuiz(ctx context.Context, actor Actor, quizID string) ([]domain.Submission, error) {
	if err := Authorize(actor, OpManageQuiz, domain.PhaseOpen, false); err != nil {
		return nil, err
	}
	return s.submissions.ListByQuiz(ctx, quizID)
}

// validateAnswers checks that every answer addresses an existing question and
// picks one of its options. Leaving questions unanswered is fine.
func validateAnswers(quiz domain.Quiz, answers map[string]string) error {
	for key, answer := range answers {
		position, ok := questionPosition(key)
		if !ok || position < 1 || position > len(quiz.Questions) {
			return domain.Validationf("answers", "unknown question key %q", key)
		}
		if !optionOf(quiz.Questions[position-1], answer) {
			return domain.Validationf("answers", "%s: %q is not one of its options", key, answer)
		}
	}
	return nil
}

func questionPosition(key string) (int, bool) {
	if !strings.HasPrefix(key, "q") {
		return 0, false
	}
	position, err := strconv.Atoi(key[1:])
	if err != nil {
		return 0, false
	}
	return position, true
}
