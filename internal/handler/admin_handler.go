package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kmhistory/quizhub-backend/internal/model"
	"github.com/kmhistory/quizhub-backend/internal/repository"
	"github.com/kmhistory/quizhub-backend/internal/response"
	"github.com/kmhistory/quizhub-backend/internal/service"
	"github.com/kmhistory/quizhub-backend/internal/validator"
)

// AdminHandler serves the console CRUD and dashboard endpoints. Every route
// sits behind the admin middleware.
type AdminHandler struct {
	questionService *service.QuestionService
	bundleService   *service.BundleService
	topicService    *service.TopicService
	statsService    *service.StatsService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	questionService *service.QuestionService,
	bundleService *service.BundleService,
	topicService *service.TopicService,
	statsService *service.StatsService,
) *AdminHandler {
	return &AdminHandler{
		questionService: questionService,
		bundleService:   bundleService,
		topicService:    topicService,
		statsService:    statsService,
	}
}

// ListQuestions godoc
// GET /api/admin/quiz/questions?search=&type=&category=&difficulty=&topic_id=&page=&limit=
func (h *AdminHandler) ListQuestions(c *gin.Context) {
	page, limit := pageParams(c, 20)
	filter := model.QuestionFilter{
		Search:     c.Query("search"),
		Type:       model.QuestionType(c.Query("type")),
		Category:   model.Category(c.Query("category")),
		Difficulty: model.Difficulty(c.Query("difficulty")),
	}
	if filter.Category == model.CategoryAll {
		filter.Category = ""
	}
	if raw := c.Query("topic_id"); raw != "" {
		if id, err := strconv.Atoi(raw); err == nil && id > 0 {
			filter.TopicID = id
		}
	}

	items, total, err := h.questionService.List(c.Request.Context(), filter, limit, (page-1)*limit)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.DetailInternal)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"questions":  items,
		"pagination": response.NewPagination(page, limit, total),
	})
}

// GetQuestion godoc
// GET /api/admin/quiz/questions/:id
func (h *AdminHandler) GetQuestion(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	question, err := h.questionService.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.DetailQuestionNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.DetailInternal)
		return
	}
	response.JSON(c, http.StatusOK, question)
}

// CreateQuestion godoc
// POST /api/admin/quiz/questions
func (h *AdminHandler) CreateQuestion(c *gin.Context) {
	var req model.QuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.DetailValidation, fields)
		return
	}

	question, err := h.questionService.Create(c.Request.Context(), req)
	if err != nil {
		h.writeQuestionError(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, question)
}

// UpdateQuestion godoc
// PUT /api/admin/quiz/questions/:id
func (h *AdminHandler) UpdateQuestion(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req model.QuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.DetailValidation, fields)
		return
	}

	question, err := h.questionService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.writeQuestionError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, question)
}

// DeleteQuestion godoc
// DELETE /api/admin/quiz/questions/:id
func (h *AdminHandler) DeleteQuestion(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.questionService.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.DetailQuestionNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.DetailInternal)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) writeQuestionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.DetailQuestionNotFound)
	case errors.Is(err, service.ErrChoicesRequired),
		errors.Is(err, service.ErrOneCorrectChoice),
		errors.Is(err, service.ErrChoicesNotAllowed),
		errors.Is(err, service.ErrUnknownTopics):
		response.Fail(c, http.StatusUnprocessableEntity, err.Error())
	default:
		response.Fail(c, http.StatusInternalServerError, response.DetailInternal)
	}
}

// ListBundles godoc
// GET /api/admin/quiz/bundles?search=&category=&difficulty=&page=&limit=
// Unlike the public listing this includes inactive bundles.
func (h *AdminHandler) ListBundles(c *gin.Context) {
	page, limit := pageParams(c, 20)
	filter := model.BundleFilter{
		Search:     c.Query("search"),
		Category:   model.Category(c.Query("category")),
		Difficulty: model.Difficulty(c.Query("difficulty")),
	}
	if filter.Category == model.CategoryAll {
		filter.Category = ""
	}

	bundles, total, err := h.bundleService.List(c.Request.Context(), nil, filter, limit, (page-1)*limit)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.DetailInternal)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"bundles":    bundles,
		"pagination": response.NewPagination(page, limit, total),
	})
}

// GetBundle godoc
// GET /api/admin/quiz/bundles/:id
func (h *AdminHandler) GetBundle(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	detail, err := h.bundleService.AdminDetail(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.DetailBundleNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.DetailInternal)
		return
	}
	response.JSON(c, http.StatusOK, detail)
}

// CreateBundle godoc
// POST /api/admin/quiz/bundles
func (h *AdminHandler) CreateBundle(c *gin.Context) {
	var req model.BundleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.DetailValidation, fields)
		return
	}

	bundle, err := h.bundleService.Create(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrUnknownQuestions) {
			response.Fail(c, http.StatusUnprocessableEntity, err.Error())
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.DetailInternal)
		return
	}
	response.JSON(c, http.StatusCreated, bundle)
}

// UpdateBundle godoc
// PUT /api/admin/quiz/bundles/:id
func (h *AdminHandler) UpdateBundle(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req model.BundleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.DetailValidation, fields)
		return
	}

	bundle, err := h.bundleService.Update(c.Request.Context(), id, req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			response.Fail(c, http.StatusNotFound, response.DetailBundleNotFound)
		case errors.Is(err, service.ErrUnknownQuestions):
			response.Fail(c, http.StatusUnprocessableEntity, err.Error())
		default:
			response.Fail(c, http.StatusInternalServerError, response.DetailInternal)
		}
		return
	}
	response.JSON(c, http.StatusOK, bundle)
}

// DeleteBundle godoc
// DELETE /api/admin/quiz/bundles/:id
func (h *AdminHandler) DeleteBundle(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.bundleService.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.DetailBundleNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.DetailInternal)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateTopic godoc
// POST /api/admin/quiz/topics
func (h *AdminHandler) CreateTopic(c *gin.Context) {
	var req model.TopicRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.DetailValidation, fields)
		return
	}

	topic, err := h.topicService.Create(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrTopicNameTaken) {
			response.Fail(c, http.StatusConflict, response.DetailTopicExists)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.DetailInternal)
		return
	}
	response.JSON(c, http.StatusCreated, topic)
}

// UpdateTopic godoc
// PUT /api/admin/quiz/topics/:id
func (h *AdminHandler) UpdateTopic(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req model.TopicRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.DetailValidation, fields)
		return
	}

	topic, err := h.topicService.Update(c.Request.Context(), id, req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			response.Fail(c, http.StatusNotFound, response.DetailTopicNotFound)
		case errors.Is(err, service.ErrTopicNameTaken):
			response.Fail(c, http.StatusConflict, response.DetailTopicExists)
		default:
			response.Fail(c, http.StatusInternalServerError, response.DetailInternal)
		}
		return
	}
	response.JSON(c, http.StatusOK, topic)
}

// DeleteTopic godoc
// DELETE /api/admin/quiz/topics/:id
func (h *AdminHandler) DeleteTopic(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.topicService.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.DetailTopicNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.DetailInternal)
		return
	}
	c.Status(http.StatusNoContent)
}

// Stats godoc
// GET /api/admin/quiz/stats
// Question accuracy (worst first) plus per-bundle completion aggregates.
func (h *AdminHandler) Stats(c *gin.Context) {
	overview, err := h.statsService.Overview(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.DetailInternal)
		return
	}
	response.JSON(c, http.StatusOK, overview)
}
