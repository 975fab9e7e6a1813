package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"race-quiz-service/internal/domain"
)

// QuizService owns the quiz lifecycle: creation, edits, answer disclosure,
// and the rescore batch that disclosure triggers.
type QuizService struct {
	quizzes     QuizStore
	submissions SubmissionStore
	now         func() time.Time
	newID       func() string
}

func NewQuizService(quizzes QuizStore, submissions SubmissionStore) *QuizService {
	return &QuizService{
		quizzes:     quizzes,
		submissions: submissions,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// NewQuizServiceWithClock is test-only for deterministic time and ids.
func NewQuizServiceWithClock(quizzes QuizStore, submissions SubmissionStore, now func() time.Time, newID func() string) *QuizService {
	return &QuizService{quizzes: quizzes, submissions: submissions, now: now, newID: newID}
}

// QuizPatch describes an administrator edit. Nil fields are left unchanged.
// Confirm must be set when the quiz already has submissions.
type QuizPatch struct {
	Title         *string
	Deadline      *time.Time
	QuestionTexts []string
	Confirm       bool
}

// RescoreResult summarizes one rescore batch. Failed writes never roll back
// the successes, and disclosure stands regardless of the counts.
type RescoreResult struct {
	Total  int
	Scored int
	Failed int
	Errs   []error
}

// Create validates and persists a new quiz. Every question gets the fixed
// Yes/No option pair and an unset correct answer.
func (s *QuizService) Create(ctx context.Context, actor Actor, title string, deadline time.Time, questionTexts []string) (domain.Quiz, error) {
	if err := Authorize(actor, OpManageQuiz, domain.PhaseOpen, false); err != nil {
		return domain.Quiz{}, err
	}
	if err := validateQuizFields(title, deadline, questionTexts); err != nil {
		return domain.Quiz{}, err
	}

	quiz := domain.Quiz{
		ID:        s.newID(),
		Title:     strings.TrimSpace(title),
		Deadline:  deadline,
		CreatedAt: s.now(),
	}
	for _, text := range questionTexts {
		quiz.Questions = append(quiz.Questions, domain.Question{
			Text:    strings.TrimSpace(text),
			Options: domain.Options(),
		})
	}

	if err := s.quizzes.Put(ctx, quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("store quiz: %w", err)
	}
	return quiz, nil
}

// Update applies an administrator edit. CreatedAt is never touched, and the
// question count is fixed for the quiz's lifetime. Once submissions exist the
// patch must carry Confirm, since edits can invalidate recorded answers.
func (s *QuizService) Update(ctx context.Context, actor Actor, id string, patch QuizPatch) (domain.Quiz, error) {
	if err := Authorize(actor, OpManageQuiz, domain.PhaseOpen, false); err != nil {
		return domain.Quiz{}, err
	}

	quiz, err := s.quizzes.Get(ctx, id)
	if err != nil {
		return domain.Quiz{}, err
	}

	if !patch.Confirm {
		existing, err := s.submissions.ListByQuiz(ctx, id)
		if err != nil {
			return domain.Quiz{}, fmt.Errorf("list submissions: %w", err)
		}
		if len(existing) > 0 {
			return domain.Quiz{}, domain.ErrConfirmRequired
		}
	}

	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return domain.Quiz{}, domain.Validationf("title", "must not be empty")
		}
		quiz.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Deadline != nil {
		if patch.Deadline.IsZero() {
			return domain.Quiz{}, domain.Validationf("deadline", "must be set")
		}
		quiz.Deadline = *patch.Deadline
	}
	if patch.QuestionTexts != nil {
		if len(patch.QuestionTexts) != len(quiz.Questions) {
			return domain.Quiz{}, domain.Validationf("questions", "expected %d texts, got %d", len(quiz.Questions), len(patch.QuestionTexts))
		}
		for i, text := range patch.QuestionTexts {
			if strings.TrimSpace(text) == "" {
				return domain.Quiz{}, domain.Validationf("questions", "question %d text must not be empty", i+1)
			}
			quiz.Questions[i].Text = strings.TrimSpace(text)
		}
	}

	if err := s.quizzes.Update(ctx, quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("update quiz: %w", err)
	}
	return quiz, nil
}

// Disclose sets correct answers and immediately rescores every existing
// submission of the quiz. answers is positional: entry i belongs to question
// i+1; an empty entry leaves that question's answer unchanged. Disclosure is
// the only trigger for rescoring.
func (s *QuizService) Disclose(ctx context.Context, actor Actor, id string, answers []string) (domain.Quiz, RescoreResult, error) {
	if err := Authorize(actor, OpManageQuiz, domain.PhaseOpen, false); err != nil {
		return domain.Quiz{}, RescoreResult{}, err
	}

	quiz, err := s.quizzes.Get(ctx, id)
	if err != nil {
		return domain.Quiz{}, RescoreResult{}, err
	}
	if len(answers) != len(quiz.Questions) {
		return domain.Quiz{}, RescoreResult{}, domain.Validationf("answers", "expected %d entries, got %d", len(quiz.Questions), len(answers))
	}
	for i, answer := range answers {
		if answer == "" {
			continue
		}
		if !optionOf(quiz.Questions[i], answer) {
			return domain.Quiz{}, RescoreResult{}, domain.Validationf("answers", "question %d: %q is not one of its options", i+1, answer)
		}
		quiz.Questions[i].CorrectAnswer = answer
	}

	if err := s.quizzes.Update(ctx, quiz); err != nil {
		return domain.Quiz{}, RescoreResult{}, fmt.Errorf("update quiz: %w", err)
	}

	result, err := s.rescoreAll(ctx, quiz)
	if err != nil {
		// Disclosure itself stands; only the batch could not even start.
		return quiz, result, err
	}
	return quiz, result, nil
}

// rescoreAll recomputes the score of every submission for the quiz. Writes
// are independent: one failure does not stop, or roll back, the rest.
func (s *QuizService) rescoreAll(ctx context.Context, quiz domain.Quiz) (RescoreResult, error) {
	submissions, err := s.submissions.ListByQuiz(ctx, quiz.ID)
	if err != nil {
		return RescoreResult{}, fmt.Errorf("list submissions: %w", err)
	}

	result := RescoreResult{Total: len(submissions)}
	for _, submission := range submissions {
		score, total := domain.Score(quiz, submission)
		if err := s.submissions.SetScore(ctx, submission.Key, score, total); err != nil {
			result.Failed++
			result.Errs = append(result.Errs, fmt.Errorf("score %s: %w", submission.Key.ParticipantID, err))
			continue
		}
		result.Scored++
	}
	return result, nil
}

// Get returns one quiz, with correct answers redacted for participants while
// the quiz is still open.
func (s *QuizService) Get(ctx context.Context, actor Actor, id string) (domain.Quiz, error) {
	if err := Authorize(actor, OpViewQuiz, domain.PhaseOpen, false); err != nil {
		return domain.Quiz{}, err
	}
	quiz, err := s.quizzes.Get(ctx, id)
	if err != nil {
		return domain.Quiz{}, err
	}
	return s.redactFor(actor, quiz), nil
}

// Latest returns the most recently created quiz.
func (s *QuizService) Latest(ctx context.Context, actor Actor) (domain.Quiz, error) {
	if err := Authorize(actor, OpViewQuiz, domain.PhaseOpen, false); err != nil {
		return domain.Quiz{}, err
	}
	quiz, err := s.quizzes.Latest(ctx)
	if err != nil {
		return domain.Quiz{}, err
	}
	return s.redactFor(actor, quiz), nil
}

// List returns all quizzes, newest first.
func (s *QuizService) List(ctx context.Context, actor Actor) ([]domain.Quiz, error) {
	if err := Authorize(actor, OpViewQuiz, domain.PhaseOpen, false); err != nil {
		return nil, err
	}
	quizzes, err := s.quizzes.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range quizzes {
		quizzes[i] = s.redactFor(actor, quizzes[i])
	}
	return quizzes, nil
}

// redactFor strips correct answers from quizzes that participants should not
// see them for yet: disclosure only becomes visible once the quiz has closed.
func (s *QuizService) redactFor(actor Actor, quiz domain.Quiz) domain.Quiz {
	if actor.IsAdmin() || quiz.PhaseAt(s.now()) == domain.PhaseClosed {
		return quiz
	}
	redacted := quiz
	redacted.Questions = make([]domain.Question, len(quiz.Questions))
	copy(redacted.Questions, quiz.Questions)
	for i := range redacted.Questions {
		redacted.Questions[i].CorrectAnswer = ""
	}
	return redacted
}

func validateQuizFields(title string, deadline time.Time, questionTexts []string) error {
	if strings.TrimSpace(title) == "" {
		return domain.Validationf("title", "must not be empty")
	}
	if deadline.IsZero() {
		return domain.Validationf("deadline", "must be set")
	}
	if len(questionTexts) == 0 {
		return domain.Validationf("questions", "at least one question is required")
	}
	for i, text := range questionTexts {
		if strings.TrimSpace(text) == "" {
			return domain.Validationf("questions", "question %d text must not be empty", i+1)
		}
	}
	return nil
}

func optionOf(question domain.Question, answer string) bool {
	for _, option := range question.Options {
		if option == answer {
			return true
		}
	}
	return false
}
