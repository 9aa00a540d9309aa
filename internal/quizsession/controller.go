package quizsession

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kmhistory/quizhub-backend/internal/model"
)

// Controller is the session state machine. It is not safe for concurrent
// use: one controller serves one player, and all methods are expected to be
// called from a single goroutine. The only background activity is the
// progress persister, which the controller feeds already-computed snapshots.
type Controller struct {
	source    QuestionSource
	submitter AnswerSubmitter
	persister *Persister
	log       zerolog.Logger

	mode   Mode
	phase  Phase
	filter Filter

	// Random mode: the single current question.
	random *model.QuestionView

	// Bundle mode: the hydrated bundle, the current index into its
	// question list, and the verdicts recorded so far keyed by question id.
	bundle  *model.BundleDetail
	index   int
	results map[int]Result

	last *Result
}

// NewController builds a controller around the three collaborators. The
// progress store is wrapped in a persister goroutine owned by the
// controller; call Close when the session is abandoned.
func NewController(source QuestionSource, submitter AnswerSubmitter, store ProgressStore, log zerolog.Logger) *Controller {
	return &Controller{
		source:    source,
		submitter: submitter,
		persister: NewPersister(store, log),
		log:       log.With().Str("component", "quizsession").Logger(),
		phase:     PhaseIdle,
		results:   make(map[int]Result),
	}
}

// Close stops the persister after draining any pending snapshot.
func (c *Controller) Close() {
	c.persister.Close()
}

// Phase returns the current session phase.
func (c *Controller) Phase() Phase { return c.phase }

// Mode returns the current session mode. Meaningless while Idle.
func (c *Controller) Mode() Mode { return c.mode }

// Filter returns the active random-mode filter.
func (c *Controller) Filter() Filter { return c.filter }

// SetFilter replaces the random-mode filter. Takes effect on the next fetch.
func (c *Controller) SetFilter(f Filter) { c.filter = f }

// Current returns the question the session is positioned on, nil while Idle
// or Completed.
func (c *Controller) Current() *model.QuestionView {
	switch c.phase {
	case PhaseReady, PhaseAnswered:
	default:
		return nil
	}
	if c.mode == ModeRandom {
		return c.random
	}
	if c.bundle == nil || c.index >= len(c.bundle.Questions) {
		return nil
	}
	view := bundleQuestionView(c.bundle.Questions[c.index])
	return &view
}

// LastResult returns the verdict for the current question, nil before it is
// answered.
func (c *Controller) LastResult() *Result { return c.last }

// Results returns the recorded verdicts keyed by question id (bundle mode).
func (c *Controller) Results() map[int]Result { return c.results }

// CorrectCount counts recorded correct answers.
func (c *Controller) CorrectCount() int {
	n := 0
	for _, r := range c.results {
		if r.IsCorrect {
			n++
		}
	}
	return n
}

// Topics fetches the topic list and drops a previously selected topic
// filter that no longer exists, so a stale selection cannot pin future
// fetches to an impossible constraint.
func (c *Controller) Topics(ctx context.Context) ([]model.Topic, error) {
	topics, err := c.source.Topics(ctx)
	if err != nil {
		return nil, err
	}
	if c.filter.TopicID != 0 {
		found := false
		for _, t := range topics {
			if t.ID == c.filter.TopicID {
				found = true
				break
			}
		}
		if !found {
			c.log.Debug().Int("topic_id", c.filter.TopicID).Msg("dropping stale topic filter")
			c.filter.TopicID = 0
		}
	}
	return topics, nil
}

// StartRandom enters random mode and fetches the first question. On
// ErrNoQuestion the previous state is preserved so the player can adjust
// filters and retry.
func (c *Controller) StartRandom(ctx context.Context, filter Filter) error {
	c.filter = filter
	return c.fetchRandom(ctx)
}

// NextRandom fetches a fresh question with the current filter. Random mode
// keeps no memory of previous questions.
func (c *Controller) NextRandom(ctx context.Context) error {
	if c.phase != PhaseIdle && c.mode != ModeRandom {
		return fmt.Errorf("next random in bundle mode: %w", ErrNoActiveQuestion)
	}
	return c.fetchRandom(ctx)
}

func (c *Controller) fetchRandom(ctx context.Context) error {
	// Switching out of bundle mode abandons that session: its snapshot is
	// persisted, then every trace of it is dropped so bundle verdicts
	// cannot resurface against a random question with the same id.
	if c.mode == ModeBundle && c.bundle != nil && c.phase != PhaseIdle {
		c.persist(c.bundleComplete())
		c.persister.Flush(ctx)
		c.reset()
	}

	question, err := c.source.RandomQuestion(ctx, c.filter)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return ErrNoQuestion
		case errors.Is(err, ErrUnauthorized):
			return ErrLoginRequired
		}
		return err
	}

	c.mode = ModeRandom
	c.random = question
	c.last = nil
	c.phase = PhaseReady
	return nil
}

// StartBundle enters bundle mode: one fetch hydrates the ordered question
// list plus any prior verdicts, then the session resumes at the first
// question without a verdict. A bundle whose questions are all solved, or
// that the server already flags complete, opens directly in Completed.
func (c *Controller) StartBundle(ctx context.Context, bundleID int) error {
	detail, err := c.source.Bundle(ctx, bundleID)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnauthorized):
			return ErrLoginRequired
		case errors.Is(err, ErrNotFound):
			return err
		}
		return err
	}
	if len(detail.Questions) == 0 {
		return ErrNoQuestion
	}

	c.mode = ModeBundle
	c.bundle = detail
	c.random = nil
	c.last = nil
	c.results = make(map[int]Result, len(detail.Questions))
	for _, p := range detail.QuestionProgress {
		c.results[p.QuestionID] = Result{
			QuestionID:    p.QuestionID,
			UserAnswer:    p.UserAnswer,
			IsCorrect:     p.IsCorrect,
			CorrectAnswer: p.CorrectAnswer,
			Explanation:   p.Explanation,
		}
	}

	// Local coverage beats a stale server flag in both directions: all
	// questions solved means complete even if the server disagrees, and a
	// server "complete" is honored even with verdicts missing locally.
	serverComplete := detail.UserProgress != nil && detail.UserProgress.Completed
	if len(c.results) >= len(detail.Questions) || serverComplete {
		c.index = len(detail.Questions)
		c.phase = PhaseCompleted
		return nil
	}

	// First unsolved wins over the server's last_question_order.
	c.index = c.firstUnsolved(0)
	c.phase = PhaseReady
	return nil
}

// firstUnsolved returns the lowest index >= from whose question has no
// verdict, or len(questions) when everything from that point is solved.
func (c *Controller) firstUnsolved(from int) int {
	for i := from; i < len(c.bundle.Questions); i++ {
		if _, solved := c.results[c.bundle.Questions[i].QuestionID]; !solved {
			return i
		}
	}
	return len(c.bundle.Questions)
}

// Submit validates and grades the answer for the current question.
// Whitespace-only SHORT answers and missing MULTIPLE selections fail
// locally without touching the network. A question that already has a
// verdict is immutable: re-submitting returns the stored verdict and makes
// no network call.
func (c *Controller) Submit(ctx context.Context, answer string) (*Result, error) {
	if c.phase == PhaseCompleted {
		return nil, ErrSessionCompleted
	}
	question := c.Current()
	if question == nil {
		return nil, ErrNoActiveQuestion
	}

	if prior, ok := c.results[question.ID]; ok {
		c.last = &prior
		c.phase = PhaseAnswered
		return &prior, nil
	}
	if c.mode == ModeRandom && c.phase == PhaseAnswered {
		return c.last, nil
	}

	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		if question.Type == model.QuestionTypeMultiple {
			return nil, ErrNoChoiceSelected
		}
		return nil, ErrEmptyAnswer
	}
	if question.Type == model.QuestionTypeMultiple && !matchesChoice(question.Choices, trimmed) {
		return nil, ErrNoChoiceSelected
	}

	req := model.SubmitRequest{QuestionID: question.ID, UserAnswer: answer}
	if c.mode == ModeBundle {
		req.BundleID = &c.bundle.ID
	}

	verdict, err := c.submitter.Submit(ctx, req)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return nil, ErrLoginRequired
		}
		return nil, err
	}

	result := Result{
		QuestionID:    question.ID,
		UserAnswer:    answer,
		IsCorrect:     verdict.IsCorrect,
		CorrectAnswer: verdict.CorrectAnswer,
		Explanation:   verdict.Explanation,
	}
	c.last = &result
	c.phase = PhaseAnswered

	if c.mode == ModeBundle {
		// The verdict is recorded before the snapshot is computed, so the
		// persisted counters always include this submission.
		c.results[question.ID] = result
		c.persist(c.allSolved())
	}
	return &result, nil
}

// Advance moves to the next question. Random mode fetches a fresh one;
// bundle mode jumps to the next unsolved question after the current index,
// wrapping to the first unsolved overall, and enters Completed when none
// remain.
func (c *Controller) Advance(ctx context.Context) error {
	if c.mode == ModeRandom {
		return c.NextRandom(ctx)
	}
	if c.phase == PhaseCompleted {
		return ErrSessionCompleted
	}
	if c.bundle == nil {
		return ErrNoActiveQuestion
	}

	next := c.firstUnsolved(c.index + 1)
	if next >= len(c.bundle.Questions) {
		next = c.firstUnsolved(0)
	}
	if next >= len(c.bundle.Questions) {
		c.phase = PhaseCompleted
		c.persist(true)
		return nil
	}

	c.index = next
	c.last = nil
	c.phase = PhaseReady
	return nil
}

// Exit persists the current snapshot and returns the session to Idle.
// Outside bundle mode it just resets.
func (c *Controller) Exit(ctx context.Context) {
	if c.mode == ModeBundle && c.bundle != nil && c.phase != PhaseIdle {
		c.persist(c.bundleComplete())
		c.persister.Flush(ctx)
	}
	c.reset()
}

// Retry clears the server-side progress for the current bundle and starts
// it over with an empty result set.
func (c *Controller) Retry(ctx context.Context) error {
	if c.mode != ModeBundle || c.bundle == nil {
		return ErrNoActiveQuestion
	}
	bundleID := c.bundle.ID

	// Drop any queued snapshot first so it cannot resurrect the progress
	// we are about to delete.
	c.persister.Discard()

	if err := c.persister.store.ResetProgress(ctx, bundleID); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return ErrLoginRequired
		}
		return err
	}
	return c.StartBundle(ctx, bundleID)
}

func (c *Controller) allSolved() bool {
	return len(c.results) >= len(c.bundle.Questions)
}

// bundleComplete reports whether the snapshot about to be persisted is
// terminal. A session opened as complete on the server's say-so stays
// complete even when local verdicts are missing, so an exit can never
// downgrade it.
func (c *Controller) bundleComplete() bool {
	return c.phase == PhaseCompleted || c.allSolved()
}

// persist queues a fire-and-forget progress snapshot. The persister
// serializes saves and keeps only the newest pending snapshot, so a slow
// request can never overwrite a later state with an earlier one.
func (c *Controller) persist(completed bool) {
	questions := c.bundle.Questions
	req := model.ProgressUpdateRequest{
		TotalQuestions: len(questions),
		CorrectAnswers: c.CorrectCount(),
		Completed:      completed,
	}
	inProgress := !completed
	req.InProgress = &inProgress

	if c.index < len(questions) {
		id := questions[c.index].QuestionID
		order := questions[c.index].Order
		req.LastQuestionID = &id
		req.LastQuestionOrder = &order
	}

	c.persister.Enqueue(c.bundle.ID, req)
}

func (c *Controller) reset() {
	c.phase = PhaseIdle
	c.random = nil
	c.bundle = nil
	c.index = 0
	c.last = nil
	c.results = make(map[int]Result)
}

// matchesChoice reports whether the answer names one of the choices, by id
// or by content, the same two forms the server grades against.
func matchesChoice(choices []model.ChoiceView, answer string) bool {
	for _, ch := range choices {
		if answer == strconv.Itoa(ch.ID) || answer == ch.Content {
			return true
		}
	}
	return false
}

// bundleQuestionView presents a bundle question through the same shape as a
// random one, so callers render a single question type.
func bundleQuestionView(q model.BundleQuestion) model.QuestionView {
	choices := q.Choices
	if choices == nil {
		choices = []model.ChoiceView{}
	}
	topics := q.Topics
	if topics == nil {
		topics = []model.Topic{}
	}
	return model.QuestionView{
		ID:           q.QuestionID,
		QuestionText: q.QuestionText,
		Type:         q.Type,
		Choices:      choices,
		Explanation:  q.Explanation,
		Category:     q.Category,
		Difficulty:   q.Difficulty,
		Topics:       topics,
		ImageURL:     q.ImageURL,
	}
}
