package response

import (
	"github.com/gin-gonic/gin"
)

// ErrorBody is the error payload shape the web client expects: a single
// human-readable detail string, plus field-level messages on validation
// failures.
type ErrorBody struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Pagination describes a page of a listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes page counts, guaranteeing at least one page so the
// client's pager never renders "page 1 of 0".
func NewPagination(page, limit, total int) Pagination {
	totalPages := 1
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

// JSON sends a success payload as-is.
func JSON(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// Fail sends an error with a detail message.
func Fail(c *gin.Context, statusCode int, detail string) {
	c.JSON(statusCode, ErrorBody{Detail: detail})
}

// FailWithFields sends a validation error with per-field messages.
func FailWithFields(c *gin.Context, statusCode int, detail string, fields map[string]string) {
	c.JSON(statusCode, ErrorBody{Detail: detail, Fields: fields})
}

// AbortFail aborts the middleware chain and sends an error response.
func AbortFail(c *gin.Context, statusCode int, detail string) {
	c.AbortWithStatusJSON(statusCode, ErrorBody{Detail: detail})
}
