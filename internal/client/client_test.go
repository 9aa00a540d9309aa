package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kmhistory/quizhub-backend/internal/client"
	"github.com/kmhistory/quizhub-backend/internal/model"
	"github.com/kmhistory/quizhub-backend/internal/quizsession"
	"github.com/kmhistory/quizhub-backend/internal/response"
)

func newTestClient(t *testing.T, handler http.Handler) *client.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := client.New(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestUnauthorizedMapsToSessionContract(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, response.ErrorBody{Detail: "Authentication required."})
	}))

	_, err := c.Bundle(context.Background(), 1)
	if !errors.Is(err, quizsession.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected an APIError, got %T", err)
	}
	if apiErr.Detail != "Authentication required." {
		t.Fatalf("expected the server detail, got %q", apiErr.Detail)
	}
}

func TestNotFoundMapsToSessionContract(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, response.ErrorBody{Detail: "No question is available."})
	}))

	_, err := c.RandomQuestion(context.Background(), quizsession.Filter{})
	if !errors.Is(err, quizsession.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRandomQuestionPassesFilters(t *testing.T) {
	var gotQuery map[string][]string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		writeJSON(w, http.StatusOK, model.QuestionView{ID: 3, QuestionText: "q", Type: model.QuestionTypeShort})
	}))

	q, err := c.RandomQuestion(context.Background(), quizsession.Filter{
		Category:   model.CategoryModern,
		Difficulty: model.DifficultyBasic,
		TopicID:    12,
	})
	if err != nil {
		t.Fatalf("random question: %v", err)
	}
	if q.ID != 3 {
		t.Fatalf("expected question 3, got %d", q.ID)
	}
	if gotQuery["category"][0] != "MODERN_HISTORY" ||
		gotQuery["difficulty"][0] != "BASIC" ||
		gotQuery["topic_id"][0] != "12" {
		t.Fatalf("filters not forwarded: %v", gotQuery)
	}
	if _, ok := gotQuery["type"]; ok {
		t.Fatalf("empty filter must not be forwarded: %v", gotQuery)
	}
}

func TestLoginCookiePersistsAcrossCalls(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "access_token", Value: "token-123", Path: "/", HttpOnly: true})
		writeJSON(w, http.StatusOK, model.User{ID: 1, Email: "a@b.c", Nickname: "tester"})
	})
	mux.HandleFunc("/api/quiz/bundles/7/progress", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("access_token")
		if err != nil || cookie.Value != "token-123" {
			writeJSON(w, http.StatusUnauthorized, response.ErrorBody{Detail: "Authentication required."})
			return
		}
		writeJSON(w, http.StatusOK, model.BundleProgress{BundleID: 7, TotalQuestions: 3})
	})
	c := newTestClient(t, mux)

	user, err := c.Login(context.Background(), "a@b.c", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.Nickname != "tester" {
		t.Fatalf("unexpected user: %+v", user)
	}

	progress, err := c.SaveProgress(context.Background(), 7, model.ProgressUpdateRequest{TotalQuestions: 3})
	if err != nil {
		t.Fatalf("save progress: %v", err)
	}
	if progress.BundleID != 7 {
		t.Fatalf("unexpected progress: %+v", progress)
	}
}

func TestSubmitSendsBodyAndDecodesVerdict(t *testing.T) {
	var gotBody model.SubmitRequest
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/quiz/submit" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		explanation := "founded in 1392"
		writeJSON(w, http.StatusOK, model.QuizResult{IsCorrect: true, CorrectAnswer: "joseon", Explanation: &explanation})
	}))

	bundleID := 7
	result, err := c.Submit(context.Background(), model.SubmitRequest{QuestionID: 11, UserAnswer: "joseon", BundleID: &bundleID})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.IsCorrect || result.CorrectAnswer != "joseon" {
		t.Fatalf("unexpected verdict: %+v", result)
	}
	if gotBody.QuestionID != 11 || gotBody.BundleID == nil || *gotBody.BundleID != 7 {
		t.Fatalf("unexpected request body: %+v", gotBody)
	}
}

func TestResetProgressIssuesDelete(t *testing.T) {
	var gotMethod, gotPath string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		writeJSON(w, http.StatusOK, map[string]string{"detail": "Bundle progress has been reset."})
	}))

	if err := c.ResetProgress(context.Background(), 9); err != nil {
		t.Fatalf("reset progress: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/api/quiz/bundles/9/progress" {
		t.Fatalf("unexpected request: %s %s", gotMethod, gotPath)
	}
}
