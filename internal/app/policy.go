package app

import (
	"race-quiz-service/internal/domain"
)

// Actor is the identity performing an operation. Every use case takes it as
// an explicit parameter; the zero value is anonymous.
type Actor struct {
	ID   string
	Role domain.Role
}

// Anonymous reports whether the actor carries no identity.
func (a Actor) Anonymous() bool {
	return a.ID == ""
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == domain.RoleAdmin
}

// Op enumerates the operations guarded by the access policy gate.
type Op int

const (
	// OpViewQuiz covers reading quiz definitions and one's own submission.
	OpViewQuiz Op = iota
	// OpSubmitAnswers covers creating or updating a submission.
	OpSubmitAnswers
	// OpViewAnswers covers reading disclosed correct answers.
	OpViewAnswers
	// OpManageQuiz covers create, edit, and answer disclosure.
	OpManageQuiz
	// OpManageUsers covers listing users and changing roles.
	OpManageUsers
)

// Authorize decides whether the actor may perform op on a quiz in the given
// phase. Anonymous actors are denied everything; administrators are allowed
// everything; participants may view, submit while the quiz is open, and see
// correct answers once disclosed.
func Authorize(actor Actor, op Op, phase domain.Phase, disclosed bool) error {
	if actor.Anonymous() {
		return domain.ErrUnauthorized
	}
	if actor.IsAdmin() {
		return nil
	}

	switch op {
	case OpViewQuiz:
		return nil
	case OpSubmitAnswers:
		if phase != domain.PhaseOpen {
			return domain.ErrQuizClosed
		}
		return nil
	case OpViewAnswers:
		if !disclosed {
			return domain.ErrForbidden
		}
		return nil
	default:
		return domain.ErrForbidden
	}
}
