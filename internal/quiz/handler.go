package quiz

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"quizonomy/internal/apperr"
	"quizonomy/internal/auth"
	"quizonomy/internal/models"
	"quizonomy/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type Handler struct {
	service  *Service
	daily    *DailyAllocator
	scoring  *ScoringEngine
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(service *Service, daily *DailyAllocator, scoring *ScoringEngine, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		daily:    daily,
		scoring:  scoring,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

func (h *Handler) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req NewQuiz
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Fail(w, http.StatusBadRequest, err.Error())
		return
	}

	quiz, err := h.service.CreateQuiz(r.Context(), user.ID, req)
	if err != nil {
		h.fail(w, "create quiz", err)
		return
	}
	w.Header().Set("Location", "/quiz/"+strconv.FormatUint(uint64(quiz.ID), 10))
	response.JSON(w, http.StatusCreated, quiz.ID)
}

func (h *Handler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid quiz id")
		return
	}

	quiz, err := h.service.GetQuiz(r.Context(), uint(id))
	if err != nil {
		h.fail(w, "get quiz", err)
		return
	}
	response.JSON(w, http.StatusOK, quiz.ToDTO())
}

func (h *Handler) SearchQuizzes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	skip, err := intParam(q.Get("skip"))
	if err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid skip")
		return
	}
	take, err := intParam(q.Get("take"))
	if err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid take")
		return
	}

	quizzes, err := h.service.SearchQuizzes(r.Context(), q.Get("searchQuery"), skip, take)
	if err != nil {
		h.fail(w, "search quizzes", err)
		return
	}
	response.JSON(w, http.StatusOK, toDTOs(quizzes))
}

func (h *Handler) RandomQuiz(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.service.RandomQuiz(r.Context())
	if err != nil {
		h.fail(w, "random quiz", err)
		return
	}
	response.JSON(w, http.StatusOK, toDTOs(quizzes))
}

func (h *Handler) DailyQuiz(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	quizID, err := h.daily.Allocate(r.Context(), user.ID)
	if err != nil {
		h.fail(w, "daily quiz", err)
		return
	}
	response.JSON(w, http.StatusOK, quizID)
}

func (h *Handler) SubmitAttempt(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var sub Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if err := h.validate.Struct(sub); err != nil {
		response.Fail(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.scoring.Submit(r.Context(), user.ID, sub)
	if err != nil {
		h.fail(w, "submit attempt", err)
		return
	}
	response.JSON(w, http.StatusOK, res)
}

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	take, err := intParam(r.URL.Query().Get("take"))
	if err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid take")
		return
	}

	entries, err := h.service.Leaderboard(r.Context(), Period(mux.Vars(r)["period"]), take)
	if err != nil {
		h.fail(w, "leaderboard", err)
		return
	}
	response.JSON(w, http.StatusOK, entries)
}

// currentUser loads the authenticated caller. It writes the error response
// itself and reports false when there is none.
func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		response.Error(w, apperr.ErrUnauthorized)
		return nil, false
	}
	user, err := h.service.UserByUsername(r.Context(), principal.Username)
	if err != nil {
		// A valid credential for a deleted user is a server-side inconsistency.
		h.logger.Error("authenticated user not found", "username", principal.Username, "error", err)
		response.Fail(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	return user, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if apperr.Status(err) == http.StatusInternalServerError {
		h.logger.Error(op+" failed", "error", err)
	}
	response.Error(w, err)
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func toDTOs(quizzes []models.Quiz) []models.QuizDTO {
	dtos := make([]models.QuizDTO, len(quizzes))
	for i, q := range quizzes {
		dtos[i] = q.ToDTO()
	}
	return dtos
}
