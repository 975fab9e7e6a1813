package domain

import (
	"fmt"
	"time"
)

// Role controls what a user may do; the access policy gate interprets it.
type Role string

const (
	RoleParticipant Role = "participant"
	RoleAdmin       Role = "admin"
)

// OptionYes and OptionNo are the fixed option pair of every question.
const (
	OptionYes = "Yes"
	OptionNo  = "No"
)

// Options returns the fixed binary option pair.
func Options() []string {
	return []string{OptionYes, OptionNo}
}

// Question is one binary prediction inside a quiz. Text and the option pair
// are fixed at creation; CorrectAnswer stays empty until the administrator
// discloses it after the race.
type Question struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer,omitempty"`
}

// Quiz is a set of binary-choice questions sharing one deadline.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Deadline  time.Time  `json:"deadline"`
	CreatedAt time.Time  `json:"createdAt"`
	Questions []Question `json:"questions"`
}

// Disclosed reports whether at least one correct answer has been set.
// Scoring only credits questions with a set answer, so partial disclosure
// is a valid state.
func (q Quiz) Disclosed() bool {
	for _, question := range q.Questions {
		if question.CorrectAnswer != "" {
			return true
		}
	}
	return false
}

// QuestionKey is the canonical answer-map key for the question at the given
// 1-based position.
func QuestionKey(position int) string {
	return fmt.Sprintf("q%d", position)
}

// SubmissionKey identifies the single live submission of one participant for
// one quiz. It is an explicit composite type; identity never relies on string
// concatenation.
type SubmissionKey struct {
	ParticipantID string `json:"participantId"`
	QuizID        string `json:"quizId"`
}

// Submission is one participant's answer set for one quiz. Score and
// TotalQuestions are written only by the scoring engine; Scored marks whether
// that has ever happened.
type Submission struct {
	Key            SubmissionKey     `json:"key"`
	Username       string            `json:"username"`
	Answers        map[string]string `json:"answers"`
	SubmittedAt    time.Time         `json:"submittedAt"`
	Score          int               `json:"score"`
	TotalQuestions int               `json:"totalQuestions"`
	Scored         bool              `json:"scored"`
}

// User is a registered identity. The first user ever registered is granted
// the admin role; everyone after that starts as a participant.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}
