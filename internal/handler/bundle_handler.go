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

// BundleHandler serves the public bundle endpoints: listing, session
// hydration and per-user progress.
type BundleHandler struct {
	bundleService *service.BundleService
}

// NewBundleHandler creates a new BundleHandler.
func NewBundleHandler(bundleService *service.BundleService) *BundleHandler {
	return &BundleHandler{bundleService: bundleService}
}

// List godoc
// GET /api/quiz/bundles?category=&difficulty=&search=&page=&limit=
// Lists active bundles; authenticated callers get their progress inline.
func (h *BundleHandler) List(c *gin.Context) {
	page, limit := pageParams(c, 20)
	filter := model.BundleFilter{
		Search:     c.Query("search"),
		Category:   model.Category(c.Query("category")),
		Difficulty: model.Difficulty(c.Query("difficulty")),
		OnlyActive: true,
	}
	if filter.Category == model.CategoryAll {
		filter.Category = ""
	}

	bundles, total, err := h.bundleService.List(c.Request.Context(), middleware.UserID(c), filter, limit, (page-1)*limit)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.DetailInternal)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"bundles":    bundles,
		"pagination": response.NewPagination(page, limit, total),
	})
}

// Detail godoc
// GET /api/quiz/bundles/:id
// Returns the bundle header, ordered questions, and for authenticated
// callers their saved progress plus already-graded questions.
func (h *BundleHandler) Detail(c *gin.Context) {
	bundleID, ok := idParam(c)
	if !ok {
		return
	}

	detail, err := h.bundleService.Detail(c.Request.Context(), middleware.UserID(c), bundleID)
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

// SaveProgress godoc
// POST /api/quiz/bundles/:id/progress
// Upserts the caller's progress snapshot for a bundle.
func (h *BundleHandler) SaveProgress(c *gin.Context) {
	bundleID, ok := idParam(c)
	if !ok {
		return
	}

	var req model.ProgressUpdateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.DetailValidation, fields)
		return
	}

	claims := middleware.GetClaims(c)
	progress, err := h.bundleService.SaveProgress(c.Request.Context(), claims.UserID, bundleID, req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.DetailBundleNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.DetailInternal)
		return
	}
	response.JSON(c, http.StatusOK, progress)
}

// ResetProgress godoc
// DELETE /api/quiz/bundles/:id/progress
// Wipes the caller's progress and history for a bundle.
func (h *BundleHandler) ResetProgress(c *gin.Context) {
	bundleID, ok := idParam(c)
	if !ok {
		return
	}

	claims := middleware.GetClaims(c)
	if err := h.bundleService.ResetProgress(c.Request.Context(), claims.UserID, bundleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.DetailBundleNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.DetailInternal)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"detail": response.DetailProgressReset})
}

// idParam parses the :id path segment, writing a 400 on failure.
func idParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, response.DetailInvalidID)
		return 0, false
	}
	return id, true
}

// pageParams parses page/limit query params with sane bounds.
func pageParams(c *gin.Context, defaultLimit int) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if limit < 1 || limit > 100 {
		limit = defaultLimit
	}
	return page, limit
}
