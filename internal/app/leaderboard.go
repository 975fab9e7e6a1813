package app

import (
	"context"
	"sort"

	"race-quiz-service/internal/domain"
)

// CellState distinguishes the three mutually exclusive states of one
// (participant, quiz) pair on the leaderboard.
type CellState string

const (
	// CellScored means the submission has a computed score.
	CellScored CellState = "scored"
	// CellPending means a submission exists but has not been scored yet.
	CellPending CellState = "pending"
	// CellNone means the participant never submitted for this quiz.
	CellNone CellState = "none"
)

// Cell is the displayed value for one participant on one quiz.
type Cell struct {
	State CellState `json:"state"`
	Score int       `json:"score,omitempty"`
}

// Row is one ranked participant with their per-quiz cells.
type Row struct {
	ParticipantID string          `json:"participantId"`
	Username      string          `json:"username"`
	TotalScore    int             `json:"totalScore"`
	Cells         map[string]Cell `json:"cells"`
}

// QuizColumn names one quiz column of the standings table.
type QuizColumn struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Standings is the full leaderboard, recomputed from store state on every
// read. Nothing about it is cached or persisted.
type Standings struct {
	Quizzes []QuizColumn `json:"quizzes"`
	Rows    []Row        `json:"rows"`
}

// LeaderboardService folds all submissions into ranked per-participant totals.
type LeaderboardService struct {
	quizzes     QuizStore
	submissions SubmissionStore
}

func NewLeaderboardService(quizzes QuizStore, submissions SubmissionStore) *LeaderboardService {
	return &LeaderboardService{quizzes: quizzes, submissions: submissions}
}

// Standings aggregates every submission across every quiz. Participants are
// ranked by total score descending; ties break by participant id ascending so
// the order is reproducible regardless of input order. Unscored submissions
// contribute zero and show as pending, never as missing.
func (s *LeaderboardService) Standings(ctx context.Context, actor Actor) (Standings, error) {
	if err := Authorize(actor, OpViewQuiz, domain.PhaseOpen, false); err != nil {
		return Standings{}, err
	}

	quizzes, err := s.quizzes.List(ctx)
	if err != nil {
		return Standings{}, err
	}
	submissions, err := s.submissions.ListAll(ctx)
	if err != nil {
		return Standings{}, err
	}

	byParticipant := make(map[string]*Row)
	for _, submission := range submissions {
		row, ok := byParticipant[submission.Key.ParticipantID]
		if !ok {
			row = &Row{
				ParticipantID: submission.Key.ParticipantID,
				Username:      submission.Username,
				Cells:         make(map[string]Cell),
			}
			byParticipant[submission.Key.ParticipantID] = row
		}
		if submission.Scored {
			row.Cells[submission.Key.QuizID] = Cell{State: CellScored, Score: submission.Score}
			row.TotalScore += submission.Score
		} else {
			row.Cells[submission.Key.QuizID] = Cell{State: CellPending}
		}
	}

	standings := Standings{Quizzes: make([]QuizColumn, 0, len(quizzes))}
	for _, quiz := range quizzes {
		standings.Quizzes = append(standings.Quizzes, QuizColumn{ID: quiz.ID, Title: quiz.Title})
	}

	standings.Rows = make([]Row, 0, len(byParticipant))
	for _, row := range byParticipant {
		for _, quiz := range quizzes {
			if _, ok := row.Cells[quiz.ID]; !ok {
				row.Cells[quiz.ID] = Cell{State: CellNone}
			}
		}
		standings.Rows = append(standings.Rows, *row)
	}

	sort.Slice(standings.Rows, func(i, j int) bool {
		if standings.Rows[i].TotalScore != standings.Rows[j].TotalScore {
			return standings.Rows[i].TotalScore > standings.Rows[j].TotalScore
		}
		return standings.Rows[i].ParticipantID < standings.Rows[j].ParticipantID
	})

	return standings, nil
}
