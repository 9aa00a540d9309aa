package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kmhistory/quizhub-backend/internal/middleware"
	"github.com/kmhistory/quizhub-backend/internal/model"
	"github.com/kmhistory/quizhub-backend/internal/repository"
	"github.com/kmhistory/quizhub-backend/internal/response"
	"github.com/kmhistory/quizhub-backend/internal/service"
	"github.com/kmhistory/quizhub-backend/internal/validator"
)

// QuizHandler serves the public quiz-play endpoints.
type QuizHandler struct {
	quizService  *service.QuizService
	topicService *service.TopicService
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(quizService *service.QuizService, topicService *service.TopicService) *QuizHandler {
	return &QuizHandler{quizService: quizService, topicService: topicService}
}

// Random godoc
// GET /api/quiz/random?category=&difficulty=&type=&topic_id=
// Returns one random question matching the filters, without grading data.
func (h *QuizHandler) Random(c *gin.Context) {
	filter := model.QuestionFilter{
		Type:       model.QuestionType(c.Query("type")),
		Category:   model.Category(c.Query("category")),
		Difficulty: model.Difficulty(c.Query("difficulty")),
	}
	// ALL means no category constraint.
	if filter.Category == model.CategoryAll {
		filter.Category = ""
	}
	if raw := c.Query("topic_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			response.Fail(c, http.StatusBadRequest, response.DetailInvalidID)
			return
		}
		filter.TopicID = id
	}

	question, err := h.quizService.RandomQuestion(c.Request.Context(), filter)
	if err != nil {
		if errors.Is(err, service.ErrNoQuestion) {
			response.Fail(c, http.StatusNotFound, response.DetailNoQuestion)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.DetailInternal)
		return
	}
	response.JSON(c, http.StatusOK, question)
}

// Submit godoc
// POST /api/quiz/submit
// Grades an answer. Authenticated submissions are recorded in history.
func (h *QuizHandler) Submit(c *gin.Context) {
	var req model.SubmitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.DetailValidation, fields)
		return
	}

	result, err := h.quizService.Submit(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.DetailQuestionNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.DetailInternal)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Topics godoc
// GET /api/quiz/topics
// Lists all topics for the filter dropdown.
func (h *QuizHandler) Topics(c *gin.Context) {
	topics, err := h.topicService.List(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.DetailInternal)
		return
	}
	response.JSON(c, http.StatusOK, topics)
}
