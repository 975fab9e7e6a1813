package domain

// Score computes the submission's score against the quiz's disclosed answers.
// Question i (1-based) is credited one point iff the submission answered
// "q<i>", the question's correct answer is set, and the two match exactly.
// Unanswered questions and undisclosed answers contribute zero; the result
// is always within [0, totalQuestions].
func Score(quiz Quiz, submission Submission) (score, totalQuestions int) {
	totalQuestions = len(quiz.Questions)
	for i, question := range quiz.Questions {
		if question.CorrectAnswer == "" {
			continue
		}
		answer, ok := submission.Answers[QuestionKey(i+1)]
		if ok && answer == question.CorrectAnswer {
			score++
		}
	}
	return score, totalQuestions
}
