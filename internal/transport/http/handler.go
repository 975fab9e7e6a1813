package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"race-quiz-service/internal/app"
	"race-quiz-service/internal/domain"
)

// Handler exposes the quiz use cases as a JSON API. Every request resolves
// its bearer token to an explicit actor before touching a service.
type Handler struct {
	auth        *app.AuthService
	quizzes     *app.QuizService
	submissions *app.SubmissionService
	leaderboard *app.LeaderboardService
}

func NewHandler(auth *app.AuthService, quizzes *app.QuizService, submissions *app.SubmissionService, leaderboard *app.LeaderboardService) *Handler {
	return &Handler{auth: auth, quizzes: quizzes, submissions: submissions, leaderboard: leaderboard}
}

// Register mounts all routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/register", h.register)
	mux.HandleFunc("POST /api/login", h.login)
	mux.HandleFunc("POST /api/logout", h.logout)

	mux.HandleFunc("GET /api/quizzes", h.listQuizzes)
	mux.HandleFunc("POST /api/quizzes", h.createQuiz)
	mux.HandleFunc("GET /api/quizzes/latest", h.latestQuiz)
	mux.HandleFunc("GET /api/quizzes/{id}", h.getQuiz)
	mux.HandleFunc("PATCH /api/quizzes/{id}", h.updateQuiz)
	mux.HandleFunc("POST /api/quizzes/{id}/answers", h.disclose)

	mux.HandleFunc("PUT /api/quizzes/{id}/submission", h.submit)
	mux.HandleFunc("GET /api/quizzes/{id}/submission", h.mySubmission)
	mux.HandleFunc("GET /api/quizzes/{id}/submissions", h.listSubmissions)

	mux.HandleFunc("GET /api/leaderboard", h.standings)

	mux.HandleFunc("GET /api/users", h.listUsers)
	mux.HandleFunc("PUT /api/users/{id}/role", h.setRole)
}

// actor resolves the request's bearer token. A missing or stale token yields
// the anonymous actor; the policy gate decides what that may do.
func (h *Handler) actor(r *http.Request) (app.Actor, error) {
	return h.auth.Authenticate(r.Context(), bearerToken(r))
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.auth.Register(r.Context(), req.Email, req.Password, req.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	user, token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), bearerToken(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createQuizRequest struct {
	Title     string    `json:"title"`
	Deadline  time.Time `json:"deadline"`
	Questions []string  `json:"questions"`
}

func (h *Handler) createQuiz(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req createQuizRequest
	if !decode(w, r, &req) {
		return
	}
	quiz, err := h.quizzes.Create(r.Context(), actor, req.Title, req.Deadline, req.Questions)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

type updateQuizRequest struct {
	Title     *string    `json:"title"`
	Deadline  *time.Time `json:"deadline"`
	Questions []string   `json:"questions"`
	Confirm   bool       `json:"confirm"`
}

func (h *Handler) updateQuiz(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateQuizRequest
	if !decode(w, r, &req) {
		return
	}
	quiz, err := h.quizzes.Update(r.Context(), actor, r.PathValue("id"), app.QuizPatch{
		Title:         req.Title,
		Deadline:      req.Deadline,
		QuestionTexts: req.Questions,
		Confirm:       req.Confirm,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

type discloseRequest struct {
	Answers []string `json:"answers"`
}

type discloseResponse struct {
	Quiz    domain.Quiz    `json:"quiz"`
	Rescore rescoreSummary `json:"rescore"`
}

type rescoreSummary struct {
	Total  int `json:"total"`
	Scored int `json:"scored"`
	Failed int `json:"failed"`
}

func (h *Handler) disclose(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req discloseRequest
	if !decode(w, r, &req) {
		return
	}
	quiz, result, err := h.quizzes.Disclose(r.Context(), actor, r.PathValue("id"), req.Answers)
	if err != nil {
		writeError(w, err)
		return
	}
	for _, scoreErr := range result.Errs {
		log.Printf("rescore %s: %v", quiz.ID, scoreErr)
	}
	writeJSON(w, http.StatusOK, discloseResponse{
		Quiz:    quiz,
		Rescore: rescoreSummary{Total: result.Total, Scored: result.Scored, Failed: result.Failed},
	})
}

func (h *Handler) getQuiz(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	quiz, err := h.quizzes.Get(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *Handler) latestQuiz(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	quiz, err := h.quizzes.Latest(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *Handler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	quizzes, err := h.quizzes.List(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

type submitRequest struct {
	Answers map[string]string `json:"answers"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req submitRequest
	if !decode(w, r, &req) {
		return
	}
	submission, err := h.submissions.Submit(r.Context(), actor, r.PathValue("id"), req.Answers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submission)
}

func (h *Handler) mySubmission(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	submission, ok, err := h.submissions.MySubmission(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not submitted yet"})
		return
	}
	writeJSON(w, http.StatusOK, submission)
}

func (h *Handler) listSubmissions(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	submissions, err := h.submissions.ListByQuiz(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submissions)
}

func (h *Handler) standings(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	standings, err := h.leaderboard.Standings(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, standings)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	users, err := h.auth.ListUsers(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

type setRoleRequest struct {
	Role domain.Role `json:"role"`
}

func (h *Handler) setRole(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req setRoleRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.auth.SetRole(r.Context(), actor, r.PathValue("id"), req.Role); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type errorResponse struct {
	Error string `json:"error"`
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case domain.IsValidation(err):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrQuizClosed):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrQuizNotFound), errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrSubmissionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrEmailTaken), errors.Is(err, domain.ErrConfirmRequired):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
