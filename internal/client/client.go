// Package client is the Go consumer of the quiz API. It implements the
// quizsession collaborator interfaces over HTTP, carrying identity in the
// same HttpOnly cookie the web client uses.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kmhistory/quizhub-backend/internal/model"
	"github.com/kmhistory/quizhub-backend/internal/quizsession"
	"github.com/kmhistory/quizhub-backend/internal/response"
)

// defaultTimeout is the blanket request timeout. There is no retry: a timed
// out call surfaces as a generic failure the caller may re-issue.
const defaultTimeout = 30 * time.Second

// APIError is a non-2xx response, carrying the server's detail message.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Detail)
}

// Unwrap maps auth and missing-resource statuses onto the session error
// contract so errors.Is works across the package boundary.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return quizsession.ErrUnauthorized
	case http.StatusNotFound:
		return quizsession.ErrNotFound
	}
	return nil
}

// Client talks to one quiz API server. The zero value is not usable; use New.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client for the given server base URL (scheme and host, no
// /api suffix). The cookie jar keeps the auth cookie across calls.
func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: defaultTimeout,
			Jar:     jar,
		},
	}, nil
}

// Login authenticates and stores the session cookie on the jar.
func (c *Client) Login(ctx context.Context, email, password string) (*model.User, error) {
	var user model.User
	err := c.do(ctx, http.MethodPost, "/api/auth/login", model.LoginRequest{Email: email, Password: password}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Register creates an account and logs in.
func (c *Client) Register(ctx context.Context, req model.RegisterRequest) (*model.User, error) {
	var user model.User
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout clears the server-side cookie.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// Me returns the authenticated profile.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// RandomQuestion implements quizsession.QuestionSource.
func (c *Client) RandomQuestion(ctx context.Context, filter quizsession.Filter) (*model.QuestionView, error) {
	params := url.Values{}
	if filter.Type != "" {
		params.Set("type", string(filter.Type))
	}
	if filter.Category != "" {
		params.Set("category", string(filter.Category))
	}
	if filter.Difficulty != "" {
		params.Set("difficulty", string(filter.Difficulty))
	}
	if filter.TopicID != 0 {
		params.Set("topic_id", strconv.Itoa(filter.TopicID))
	}

	path := "/api/quiz/random"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var question model.QuestionView
	if err := c.do(ctx, http.MethodGet, path, nil, &question); err != nil {
		return nil, err
	}
	return &question, nil
}

// Topics implements quizsession.QuestionSource.
func (c *Client) Topics(ctx context.Context) ([]model.Topic, error) {
	var topics []model.Topic
	if err := c.do(ctx, http.MethodGet, "/api/quiz/topics", nil, &topics); err != nil {
		return nil, err
	}
	return topics, nil
}

// BundlePage is one page of the bundle listing.
type BundlePage struct {
	Bundles    []model.BundleSummary `json:"bundles"`
	Pagination response.Pagination   `json:"pagination"`
}

// Bundles lists active bundles.
func (c *Client) Bundles(ctx context.Context, page, limit int) (*BundlePage, error) {
	path := fmt.Sprintf("/api/quiz/bundles?page=%d&limit=%d", page, limit)
	var out BundlePage
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Bundle implements quizsession.QuestionSource.
func (c *Client) Bundle(ctx context.Context, id int) (*model.BundleDetail, error) {
	var detail model.BundleDetail
	if err := c.do(ctx, http.MethodGet, "/api/quiz/bundles/"+strconv.Itoa(id), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Submit implements quizsession.AnswerSubmitter.
func (c *Client) Submit(ctx context.Context, req model.SubmitRequest) (*model.QuizResult, error) {
	var result model.QuizResult
	if err := c.do(ctx, http.MethodPost, "/api/quiz/submit", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SaveProgress implements quizsession.ProgressStore.
func (c *Client) SaveProgress(ctx context.Context, bundleID int, req model.ProgressUpdateRequest) (*model.BundleProgress, error) {
	var progress model.BundleProgress
	path := "/api/quiz/bundles/" + strconv.Itoa(bundleID) + "/progress"
	if err := c.do(ctx, http.MethodPost, path, req, &progress); err != nil {
		return nil, err
	}
	return &progress, nil
}

// ResetProgress implements quizsession.ProgressStore.
func (c *Client) ResetProgress(ctx context.Context, bundleID int) error {
	return c.do(ctx, http.MethodDelete, "/api/quiz/bundles/"+strconv.Itoa(bundleID)+"/progress", nil, nil)
}

// do issues one request and decodes the response. Non-2xx responses become
// APIError with the server's detail message when one is present.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Detail: http.StatusText(resp.StatusCode)}
		var errBody response.ErrorBody
		if err := json.NewDecoder(resp.Body).Decode(&errBody); err == nil && errBody.Detail != "" {
			apiErr.Detail = errBody.Detail
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
