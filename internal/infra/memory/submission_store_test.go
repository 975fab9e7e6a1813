package memory

import (
	"context"
	"errors"
	"testing"

	"race-quiz-service/internal/domain"
)

func TestSubmissionStoreUpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewSubmissionStore()
	key := domain.SubmissionKey{ParticipantID: "u1", QuizID: "quiz-1"}

	_ = store.Upsert(ctx, domain.Submission{Key: key, Answers: map[string]string{"q1": domain.OptionYes}})
	_ = store.Upsert(ctx, domain.Submission{Key: key, Answers: map[string]string{"q1": domain.OptionNo}})

	submission, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if submission.Answers["q1"] != domain.OptionNo {
		t.Fatalf("expected the second upsert to win, got %q", submission.Answers["q1"])
	}
}

func TestSubmissionStoreAbsenceIsNotAnError(t *testing.T) {
	_, ok, err := NewSubmissionStore().Get(context.Background(), domain.SubmissionKey{ParticipantID: "u1", QuizID: "q"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected absent submission")
	}
}

func TestSubmissionStoreListByQuiz(t *testing.T) {
	ctx := context.Background()
	store := NewSubmissionStore()
	_ = store.Upsert(ctx, domain.Submission{Key: domain.SubmissionKey{ParticipantID: "u1", QuizID: "a"}})
	_ = store.Upsert(ctx, domain.Submission{Key: domain.SubmissionKey{ParticipantID: "u2", QuizID: "a"}})
	_ = store.Upsert(ctx, domain.Submission{Key: domain.SubmissionKey{ParticipantID: "u1", QuizID: "b"}})

	forA, err := store.ListByQuiz(ctx, "a")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(forA) != 2 {
		t.Fatalf("expected 2 submissions for quiz a, got %d", len(forA))
	}

	all, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 submissions, got %d", len(all))
	}
}

func TestSubmissionStoreSetScore(t *testing.T) {
	ctx := context.Background()
	store := NewSubmissionStore()
	key := domain.SubmissionKey{ParticipantID: "u1", QuizID: "a"}
	_ = store.Upsert(ctx, domain.Submission{Key: key})

	if err := store.SetScore(ctx, key, 2, 3); err != nil {
		t.Fatalf("set score: %v", err)
	}
	submission, _, _ := store.Get(ctx, key)
	if !submission.Scored || submission.Score != 2 || submission.TotalQuestions != 3 {
		t.Fatalf("unexpected scored state: %+v", submission)
	}

	err := store.SetScore(ctx, domain.SubmissionKey{ParticipantID: "ghost", QuizID: "a"}, 1, 3)
	if !errors.Is(err, domain.ErrSubmissionNotFound) {
		t.Fatalf("expected ErrSubmissionNotFound, got %v", err)
	}
}
