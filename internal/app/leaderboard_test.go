package app_test

import (
	"context"
	"testing"
	"time"

	"race-quiz-service/internal/app"
	"race-quiz-service/internal/domain"
	"race-quiz-service/internal/infra/memory"
)

func seedQuiz(t *testing.T, store *memory.QuizStore, id string, createdAt time.Time) {
	t.Helper()
	err := store.Put(context.Background(), domain.Quiz{
		ID:        id,
		Title:     id,
		CreatedAt: createdAt,
		Questions: []domain.Question{{Text: "x", Options: domain.Options()}},
	})
	if err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
}

func seedScored(t *testing.T, store *memory.SubmissionStore, participantID, quizID string, score int) {
	t.Helper()
	err := store.Upsert(context.Background(), domain.Submission{
		Key:            domain.SubmissionKey{ParticipantID: participantID, QuizID: quizID},
		Username:       participantID,
		Score:          score,
		TotalQuestions: 3,
		Scored:         true,
	})
	if err != nil {
		t.Fatalf("seed submission: %v", err)
	}
}

func TestStandingsRanksByTotalScore(t *testing.T) {
	ctx := context.Background()
	quizzes := memory.NewQuizStore()
	submissions := memory.NewSubmissionStore()
	service := app.NewLeaderboardService(quizzes, submissions)

	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	seedQuiz(t, quizzes, "quiz-a", base)
	seedQuiz(t, quizzes, "quiz-b", base.Add(time.Hour))

	// P1 totals 5, P2 totals 7, P3 has an unscored submission only.
	seedScored(t, submissions, "p1", "quiz-a", 2)
	seedScored(t, submissions, "p1", "quiz-b", 3)
	seedScored(t, submissions, "p2", "quiz-a", 3)
	seedScored(t, submissions, "p2", "quiz-b", 4)
	_ = submissions.Upsert(ctx, domain.Submission{
		Key:      domain.SubmissionKey{ParticipantID: "p3", QuizID: "quiz-b"},
		Username: "p3",
		Answers:  map[string]string{"q1": domain.OptionYes},
	})

	standings, err := service.Standings(ctx, participant)
	if err != nil {
		t.Fatalf("standings: %v", err)
	}

	if len(standings.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(standings.Rows))
	}
	order := []string{"p2", "p1", "p3"}
	for i, want := range order {
		if standings.Rows[i].ParticipantID != want {
			t.Fatalf("rank %d: expected %s, got %s", i+1, want, standings.Rows[i].ParticipantID)
		}
	}
	if standings.Rows[0].TotalScore != 7 || standings.Rows[1].TotalScore != 5 || standings.Rows[2].TotalScore != 0 {
		t.Fatalf("unexpected totals: %+v", standings.Rows)
	}

	// P3: pending for the submitted quiz, none for the other.
	p3 := standings.Rows[2]
	if p3.Cells["quiz-b"].State != app.CellPending {
		t.Fatalf("expected pending cell, got %+v", p3.Cells["quiz-b"])
	}
	if p3.Cells["quiz-a"].State != app.CellNone {
		t.Fatalf("expected none cell, got %+v", p3.Cells["quiz-a"])
	}

	// Quiz columns come newest first.
	if standings.Quizzes[0].ID != "quiz-b" || standings.Quizzes[1].ID != "quiz-a" {
		t.Fatalf("expected newest-first columns, got %+v", standings.Quizzes)
	}
}

func TestStandingsTieBreaksByParticipantID(t *testing.T) {
	ctx := context.Background()
	quizzes := memory.NewQuizStore()
	submissions := memory.NewSubmissionStore()
	service := app.NewLeaderboardService(quizzes, submissions)

	seedQuiz(t, quizzes, "quiz-a", time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC))
	seedScored(t, submissions, "zoe", "quiz-a", 2)
	seedScored(t, submissions, "amy", "quiz-a", 2)

	standings, err := service.Standings(ctx, participant)
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	if standings.Rows[0].ParticipantID != "amy" || standings.Rows[1].ParticipantID != "zoe" {
		t.Fatalf("tie must break by participant id ascending, got %+v", standings.Rows)
	}
}

func TestStandingsTotalsSumOnlyDefinedScores(t *testing.T) {
	ctx := context.Background()
	quizzes := memory.NewQuizStore()
	submissions := memory.NewSubmissionStore()
	service := app.NewLeaderboardService(quizzes, submissions)

	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	seedQuiz(t, quizzes, "quiz-a", base)
	seedQuiz(t, quizzes, "quiz-b", base.Add(time.Hour))

	seedScored(t, submissions, "p1", "quiz-a", 3)
	_ = submissions.Upsert(ctx, domain.Submission{
		Key:      domain.SubmissionKey{ParticipantID: "p1", QuizID: "quiz-b"},
		Username: "p1",
	})

	standings, err := service.Standings(ctx, participant)
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	row := standings.Rows[0]
	if row.TotalScore != 3 {
		t.Fatalf("pending submissions contribute 0, got total %d", row.TotalScore)
	}
	if row.Cells["quiz-b"].State != app.CellPending {
		t.Fatalf("submitted-but-unscored must show pending, got %+v", row.Cells["quiz-b"])
	}
}

func TestStandingsRequireIdentity(t *testing.T) {
	service := app.NewLeaderboardService(memory.NewQuizStore(), memory.NewSubmissionStore())
	if _, err := service.Standings(context.Background(), app.Actor{}); err == nil {
		t.Fatal("anonymous actors must not read the leaderboard")
	}
}
