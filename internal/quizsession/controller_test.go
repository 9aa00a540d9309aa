package quizsession_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/kmhistory/quizhub-backend/internal/model"
	"github.com/kmhistory/quizhub-backend/internal/quizsession"
)

type fakeSource struct {
	question  *model.QuestionView
	randomErr error
	detail    *model.BundleDetail
	bundleErr error
	topics    []model.Topic

	randomCalls int
	bundleCalls int
}

func (f *fakeSource) RandomQuestion(ctx context.Context, filter quizsession.Filter) (*model.QuestionView, error) {
	f.randomCalls++
	if f.randomErr != nil {
		return nil, f.randomErr
	}
	return f.question, nil
}

func (f *fakeSource) Bundle(ctx context.Context, id int) (*model.BundleDetail, error) {
	f.bundleCalls++
	if f.bundleErr != nil {
		return nil, f.bundleErr
	}
	return f.detail, nil
}

func (f *fakeSource) Topics(ctx context.Context) ([]model.Topic, error) {
	return f.topics, nil
}

type fakeSubmitter struct {
	verdict *model.QuizResult
	err     error

	calls    int
	requests []model.SubmitRequest
}

func (f *fakeSubmitter) Submit(ctx context.Context, req model.SubmitRequest) (*model.QuizResult, error) {
	f.calls++
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.verdict, nil
}

type fakeStore struct {
	mu     sync.Mutex
	saves  []model.ProgressUpdateRequest
	resets []int
}

func (f *fakeStore) SaveProgress(ctx context.Context, bundleID int, req model.ProgressUpdateRequest) (*model.BundleProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, req)
	return &model.BundleProgress{BundleID: bundleID}, nil
}

func (f *fakeStore) ResetProgress(ctx context.Context, bundleID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, bundleID)
	return nil
}

func (f *fakeStore) savedRequests() []model.ProgressUpdateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.ProgressUpdateRequest, len(f.saves))
	copy(out, f.saves)
	return out
}

func shortBundle(questionIDs ...int) *model.BundleDetail {
	detail := &model.BundleDetail{
		Bundle: model.Bundle{ID: 7, Title: "Unification Era", IsActive: true},
	}
	for i, id := range questionIDs {
		detail.Questions = append(detail.Questions, model.BundleQuestion{
			ID:           100 + i,
			QuestionID:   id,
			Order:        i + 1,
			QuestionText: fmt.Sprintf("question %d", id),
			Type:         model.QuestionTypeShort,
		})
	}
	return detail
}

func solvedEntry(questionID int) model.QuestionProgress {
	return model.QuestionProgress{
		QuestionID:    questionID,
		IsCorrect:     true,
		UserAnswer:    "prior answer",
		CorrectAnswer: "prior answer",
	}
}

func newBundleSession(t *testing.T, source *fakeSource, submitter *fakeSubmitter, store *fakeStore) *quizsession.Controller {
	t.Helper()
	c := quizsession.NewController(source, submitter, store, zerolog.Nop())
	t.Cleanup(c.Close)
	return c
}

func TestResumptionLandsOnFirstUnsolved(t *testing.T) {
	detail := shortBundle(11, 12, 13)
	detail.QuestionProgress = []model.QuestionProgress{solvedEntry(11), solvedEntry(13)}
	source := &fakeSource{detail: detail}

	c := newBundleSession(t, source, &fakeSubmitter{}, &fakeStore{})
	if err := c.StartBundle(context.Background(), 7); err != nil {
		t.Fatalf("start bundle: %v", err)
	}

	if c.Phase() != quizsession.PhaseReady {
		t.Fatalf("expected ready, got %s", c.Phase())
	}
	if got := c.Current().ID; got != 12 {
		t.Fatalf("expected to resume on question 12, got %d", got)
	}
}

func TestResumptionIgnoresLastQuestionOrder(t *testing.T) {
	detail := shortBundle(11, 12, 13)
	detail.QuestionProgress = []model.QuestionProgress{solvedEntry(11)}
	order := 3
	detail.UserProgress = &model.BundleProgress{BundleID: 7, LastQuestionOrder: &order}
	source := &fakeSource{detail: detail}

	c := newBundleSession(t, source, &fakeSubmitter{}, &fakeStore{})
	if err := c.StartBundle(context.Background(), 7); err != nil {
		t.Fatalf("start bundle: %v", err)
	}

	// First unsolved (12) wins over the server's claimed position (13).
	if got := c.Current().ID; got != 12 {
		t.Fatalf("expected question 12, got %d", got)
	}
}

func TestLocalCoverageBeatsStaleServerFlag(t *testing.T) {
	detail := shortBundle(11, 12)
	detail.QuestionProgress = []model.QuestionProgress{solvedEntry(11), solvedEntry(12)}
	detail.UserProgress = &model.BundleProgress{BundleID: 7, Completed: false}
	source := &fakeSource{detail: detail}

	c := newBundleSession(t, source, &fakeSubmitter{}, &fakeStore{})
	if err := c.StartBundle(context.Background(), 7); err != nil {
		t.Fatalf("start bundle: %v", err)
	}
	if c.Phase() != quizsession.PhaseCompleted {
		t.Fatalf("expected completed, got %s", c.Phase())
	}
}

func TestServerCompletedFlagHonored(t *testing.T) {
	detail := shortBundle(11, 12)
	detail.UserProgress = &model.BundleProgress{BundleID: 7, Completed: true}
	source := &fakeSource{detail: detail}

	c := newBundleSession(t, source, &fakeSubmitter{}, &fakeStore{})
	if err := c.StartBundle(context.Background(), 7); err != nil {
		t.Fatalf("start bundle: %v", err)
	}
	if c.Phase() != quizsession.PhaseCompleted {
		t.Fatalf("expected completed, got %s", c.Phase())
	}
}

func TestSubmitRecordsVerdictAndPersistsCompletion(t *testing.T) {
	detail := shortBundle(11, 12)
	detail.QuestionProgress = []model.QuestionProgress{solvedEntry(11)}
	source := &fakeSource{detail: detail}
	submitter := &fakeSubmitter{verdict: &model.QuizResult{IsCorrect: true, CorrectAnswer: "sejong"}}
	store := &fakeStore{}

	c := newBundleSession(t, source, submitter, store)
	if err := c.StartBundle(context.Background(), 7); err != nil {
		t.Fatalf("start bundle: %v", err)
	}

	result, err := c.Submit(context.Background(), "sejong")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.IsCorrect {
		t.Fatalf("expected a correct verdict")
	}
	if err := c.Advance(context.Background()); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if c.Phase() != quizsession.PhaseCompleted {
		t.Fatalf("expected completed, got %s", c.Phase())
	}

	c.Close()
	saves := store.savedRequests()
	if len(saves) == 0 {
		t.Fatalf("expected at least one progress save")
	}
	last := saves[len(saves)-1]
	if !last.Completed {
		t.Fatalf("final snapshot should be completed: %+v", last)
	}
	if last.InProgress == nil || *last.InProgress {
		t.Fatalf("final snapshot should not be in progress: %+v", last)
	}
	if last.TotalQuestions != 2 || last.CorrectAnswers != 2 {
		t.Fatalf("unexpected counters: %+v", last)
	}
}

func TestSubmitIsImmutablePerQuestion(t *testing.T) {
	detail := shortBundle(11, 12)
	source := &fakeSource{detail: detail}
	submitter := &fakeSubmitter{verdict: &model.QuizResult{IsCorrect: false, CorrectAnswer: "goryeo"}}

	c := newBundleSession(t, source, submitter, &fakeStore{})
	if err := c.StartBundle(context.Background(), 7); err != nil {
		t.Fatalf("start bundle: %v", err)
	}

	first, err := c.Submit(context.Background(), "joseon")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	second, err := c.Submit(context.Background(), "another answer")
	if err != nil {
		t.Fatalf("re-submit: %v", err)
	}

	if submitter.calls != 1 {
		t.Fatalf("expected exactly one network call, got %d", submitter.calls)
	}
	if second.UserAnswer != first.UserAnswer {
		t.Fatalf("re-submit must return the stored verdict, got %+v", second)
	}
}

func TestValidationBlocksBeforeNetwork(t *testing.T) {
	shortQ := shortBundle(11)
	multiQ := shortBundle(21)
	multiQ.Questions[0].Type = model.QuestionTypeMultiple
	multiQ.Questions[0].Choices = []model.ChoiceView{{ID: 1, Content: "a"}, {ID: 2, Content: "b"}}

	cases := []struct {
		name    string
		detail  *model.BundleDetail
		answer  string
		wantErr error
	}{
		{"short empty", shortQ, "   ", quizsession.ErrEmptyAnswer},
		{"multiple unselected", multiQ, "", quizsession.ErrNoChoiceSelected},
		{"multiple not a choice", multiQ, "zzz", quizsession.ErrNoChoiceSelected},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			source := &fakeSource{detail: tc.detail}
			submitter := &fakeSubmitter{verdict: &model.QuizResult{}}

			c := newBundleSession(t, source, submitter, &fakeStore{})
			if err := c.StartBundle(context.Background(), 7); err != nil {
				t.Fatalf("start bundle: %v", err)
			}

			if _, err := c.Submit(context.Background(), tc.answer); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if submitter.calls != 0 {
				t.Fatalf("validation failure must not reach the network")
			}
		})
	}
}

func TestRetryClearsResultsAndRestarts(t *testing.T) {
	detail := shortBundle(11, 12, 13)
	detail.QuestionProgress = []model.QuestionProgress{solvedEntry(11), solvedEntry(12)}
	source := &fakeSource{detail: detail}
	store := &fakeStore{}

	c := newBundleSession(t, source, &fakeSubmitter{}, store)
	if err := c.StartBundle(context.Background(), 7); err != nil {
		t.Fatalf("start bundle: %v", err)
	}

	// The server clears its state on reset; model that with a fresh detail.
	source.detail = shortBundle(11, 12, 13)

	if err := c.Retry(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}

	if len(store.resets) != 1 || store.resets[0] != 7 {
		t.Fatalf("expected one reset for bundle 7, got %v", store.resets)
	}
	if len(c.Results()) != 0 {
		t.Fatalf("expected empty results after retry, got %v", c.Results())
	}
	if got := c.Current().ID; got != 11 {
		t.Fatalf("expected to land on the first question, got %d", got)
	}
}

func TestModeSwitchDiscardsBundleState(t *testing.T) {
	// Random and bundle questions share one pool, so a random question can
	// carry the id of a question solved in an earlier bundle session.
	detail := shortBundle(11, 12)
	source := &fakeSource{detail: detail}
	submitter := &fakeSubmitter{verdict: &model.QuizResult{IsCorrect: true, CorrectAnswer: "bundle answer"}}
	store := &fakeStore{}

	c := newBundleSession(t, source, submitter, store)
	if err := c.StartBundle(context.Background(), 7); err != nil {
		t.Fatalf("start bundle: %v", err)
	}
	if _, err := c.Submit(context.Background(), "bundle answer"); err != nil {
		t.Fatalf("submit in bundle: %v", err)
	}

	source.question = &model.QuestionView{ID: 11, QuestionText: "question 11", Type: model.QuestionTypeShort}
	if err := c.StartRandom(context.Background(), quizsession.Filter{}); err != nil {
		t.Fatalf("start random: %v", err)
	}

	if len(c.Results()) != 0 {
		t.Fatalf("bundle verdicts must not survive the mode switch, got %v", c.Results())
	}
	if len(store.savedRequests()) == 0 {
		t.Fatalf("expected the abandoned bundle snapshot to be saved")
	}

	result, err := c.Submit(context.Background(), "fresh answer")
	if err != nil {
		t.Fatalf("submit in random: %v", err)
	}
	if submitter.calls != 2 {
		t.Fatalf("expected a fresh grading call, got %d calls", submitter.calls)
	}
	if result.UserAnswer != "fresh answer" {
		t.Fatalf("expected the new submission's answer, got %q", result.UserAnswer)
	}
}

func TestExitKeepsServerCompletedFlag(t *testing.T) {
	// After an admin reshuffles bundle membership the history rows may no
	// longer join, leaving a completed progress row with no local verdicts.
	detail := shortBundle(11, 12)
	detail.UserProgress = &model.BundleProgress{BundleID: 7, Completed: true}
	source := &fakeSource{detail: detail}
	store := &fakeStore{}

	c := newBundleSession(t, source, &fakeSubmitter{}, store)
	if err := c.StartBundle(context.Background(), 7); err != nil {
		t.Fatalf("start bundle: %v", err)
	}
	if c.Phase() != quizsession.PhaseCompleted {
		t.Fatalf("expected completed, got %s", c.Phase())
	}

	c.Exit(context.Background())

	saves := store.savedRequests()
	if len(saves) == 0 {
		t.Fatalf("expected a progress save on exit")
	}
	last := saves[len(saves)-1]
	if !last.Completed {
		t.Fatalf("exit must not downgrade a completed bundle: %+v", last)
	}
	if last.InProgress == nil || *last.InProgress {
		t.Fatalf("a completed bundle is not in progress: %+v", last)
	}
}

func TestRandomNoQuestionKeepsSessionUsable(t *testing.T) {
	source := &fakeSource{randomErr: fmt.Errorf("random: %w", quizsession.ErrNotFound)}

	c := newBundleSession(t, source, &fakeSubmitter{}, &fakeStore{})
	err := c.StartRandom(context.Background(), quizsession.Filter{TopicID: 3})
	if !errors.Is(err, quizsession.ErrNoQuestion) {
		t.Fatalf("expected ErrNoQuestion, got %v", err)
	}
	if c.Phase() != quizsession.PhaseIdle {
		t.Fatalf("expected idle after a failed fetch, got %s", c.Phase())
	}

	// Changing the filter and retrying issues a fresh fetch.
	source.randomErr = nil
	source.question = &model.QuestionView{ID: 5, QuestionText: "q", Type: model.QuestionTypeShort}
	if err := c.StartRandom(context.Background(), quizsession.Filter{}); err != nil {
		t.Fatalf("retry fetch: %v", err)
	}
	if source.randomCalls != 2 {
		t.Fatalf("expected two fetches, got %d", source.randomCalls)
	}
	if c.Phase() != quizsession.PhaseReady {
		t.Fatalf("expected ready, got %s", c.Phase())
	}
}

func TestResultKeepsRawUserAnswer(t *testing.T) {
	detail := shortBundle(42)
	detail.Questions[0].Type = model.QuestionTypeMultiple
	detail.Questions[0].Choices = []model.ChoiceView{{ID: 42, Content: "forty-two"}, {ID: 14, Content: "fourteen"}}
	source := &fakeSource{detail: detail}
	submitter := &fakeSubmitter{verdict: &model.QuizResult{IsCorrect: false, CorrectAnswer: "14"}}

	c := newBundleSession(t, source, submitter, &fakeStore{})
	if err := c.StartBundle(context.Background(), 7); err != nil {
		t.Fatalf("start bundle: %v", err)
	}

	result, err := c.Submit(context.Background(), "42")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.UserAnswer != "42" {
		t.Fatalf("expected the raw submitted answer, got %q", result.UserAnswer)
	}
	if result.CorrectAnswer != "14" {
		t.Fatalf("expected the server's correct answer, got %q", result.CorrectAnswer)
	}
}

func TestUnauthorizedBecomesLoginRequiredInBothModes(t *testing.T) {
	authErr := fmt.Errorf("submit: %w", quizsession.ErrUnauthorized)

	t.Run("bundle submit", func(t *testing.T) {
		source := &fakeSource{detail: shortBundle(11)}
		submitter := &fakeSubmitter{err: authErr}

		c := newBundleSession(t, source, submitter, &fakeStore{})
		if err := c.StartBundle(context.Background(), 7); err != nil {
			t.Fatalf("start bundle: %v", err)
		}
		if _, err := c.Submit(context.Background(), "x"); !errors.Is(err, quizsession.ErrLoginRequired) {
			t.Fatalf("expected ErrLoginRequired, got %v", err)
		}
	})

	t.Run("random submit", func(t *testing.T) {
		source := &fakeSource{question: &model.QuestionView{ID: 1, Type: model.QuestionTypeShort}}
		submitter := &fakeSubmitter{err: authErr}

		c := newBundleSession(t, source, submitter, &fakeStore{})
		if err := c.StartRandom(context.Background(), quizsession.Filter{}); err != nil {
			t.Fatalf("start random: %v", err)
		}
		if _, err := c.Submit(context.Background(), "x"); !errors.Is(err, quizsession.ErrLoginRequired) {
			t.Fatalf("expected ErrLoginRequired, got %v", err)
		}
	})

	t.Run("bundle fetch", func(t *testing.T) {
		source := &fakeSource{bundleErr: fmt.Errorf("bundle: %w", quizsession.ErrUnauthorized)}

		c := newBundleSession(t, source, &fakeSubmitter{}, &fakeStore{})
		if err := c.StartBundle(context.Background(), 7); !errors.Is(err, quizsession.ErrLoginRequired) {
			t.Fatalf("expected ErrLoginRequired, got %v", err)
		}
	})
}

func TestStaleTopicFilterIsDropped(t *testing.T) {
	source := &fakeSource{topics: []model.Topic{{ID: 1, Name: "Three Kingdoms"}}}

	c := newBundleSession(t, source, &fakeSubmitter{}, &fakeStore{})
	c.SetFilter(quizsession.Filter{TopicID: 99})

	if _, err := c.Topics(context.Background()); err != nil {
		t.Fatalf("topics: %v", err)
	}
	if c.Filter().TopicID != 0 {
		t.Fatalf("expected the stale topic filter to be dropped, got %d", c.Filter().TopicID)
	}

	// A still-valid selection survives.
	c.SetFilter(quizsession.Filter{TopicID: 1})
	if _, err := c.Topics(context.Background()); err != nil {
		t.Fatalf("topics: %v", err)
	}
	if c.Filter().TopicID != 1 {
		t.Fatalf("valid topic filter must survive, got %d", c.Filter().TopicID)
	}
}

func TestAdvanceSkipsSolvedQuestions(t *testing.T) {
	detail := shortBundle(11, 12, 13)
	detail.QuestionProgress = []model.QuestionProgress{solvedEntry(12)}
	source := &fakeSource{detail: detail}
	submitter := &fakeSubmitter{verdict: &model.QuizResult{IsCorrect: true, CorrectAnswer: "x"}}

	c := newBundleSession(t, source, submitter, &fakeStore{})
	if err := c.StartBundle(context.Background(), 7); err != nil {
		t.Fatalf("start bundle: %v", err)
	}
	if got := c.Current().ID; got != 11 {
		t.Fatalf("expected question 11, got %d", got)
	}

	if _, err := c.Submit(context.Background(), "x"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := c.Advance(context.Background()); err != nil {
		t.Fatalf("advance: %v", err)
	}
	// 12 is already solved; advance jumps straight to 13.
	if got := c.Current().ID; got != 13 {
		t.Fatalf("expected question 13, got %d", got)
	}

	if _, err := c.Submit(context.Background(), "x"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := c.Advance(context.Background()); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if c.Phase() != quizsession.PhaseCompleted {
		t.Fatalf("expected completed, got %s", c.Phase())
	}
}

func TestEmptyBundleIsNoQuestion(t *testing.T) {
	source := &fakeSource{detail: shortBundle()}

	c := newBundleSession(t, source, &fakeSubmitter{}, &fakeStore{})
	if err := c.StartBundle(context.Background(), 7); !errors.Is(err, quizsession.ErrNoQuestion) {
		t.Fatalf("expected ErrNoQuestion for an empty bundle, got %v", err)
	}
}
