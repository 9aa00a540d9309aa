package model

import "time"

// QuestionType distinguishes multiple-choice from short-answer questions.
type QuestionType string

const (
	QuestionTypeMultiple QuestionType = "MULTIPLE"
	QuestionTypeShort    QuestionType = "SHORT"
)

// Category is the curriculum area a question belongs to.
type Category string

const (
	CategoryAll       Category = "ALL"
	CategoryPreModern Category = "PRE_MODERN_HISTORY"
	CategoryModern    Category = "MODERN_HISTORY"
)

// Difficulty grades how hard a question is.
type Difficulty string

const (
	DifficultyBasic    Difficulty = "BASIC"
	DifficultyStandard Difficulty = "STANDARD"
	DifficultyAdvanced Difficulty = "ADVANCED"
)

// Question is the full question record including grading data.
// Only admin responses may serialize it directly; players receive
// a QuestionView that omits the correct answer.
type Question struct {
	ID            int          `json:"id"`
	QuestionText  string       `json:"question_text"`
	Type          QuestionType `json:"type"`
	CorrectAnswer string       `json:"correct_answer"`
	Explanation   *string      `json:"explanation"`
	Category      Category     `json:"category"`
	Difficulty    Difficulty   `json:"difficulty"`
	Choices       []Choice     `json:"choices"`
	Topics        []Topic      `json:"topics"`
	ImageURL      *string      `json:"image_url,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

// Choice is one answer option of a MULTIPLE question.
type Choice struct {
	ID        int    `json:"id"`
	Content   string `json:"content"`
	IsCorrect bool   `json:"is_correct"`
}

// ChoiceView hides the correctness flag from players.
type ChoiceView struct {
	ID      int    `json:"id"`
	Content string `json:"content"`
}

// QuestionView is the player-facing question payload. The explanation stays
// included because the client only reveals it after submission.
type QuestionView struct {
	ID           int          `json:"id"`
	QuestionText string       `json:"question_text"`
	Type         QuestionType `json:"type"`
	Choices      []ChoiceView `json:"choices"`
	Explanation  *string      `json:"explanation"`
	Category     Category     `json:"category"`
	Difficulty   Difficulty   `json:"difficulty"`
	Topics       []Topic      `json:"topics"`
	ImageURL     *string      `json:"image_url,omitempty"`
}

// View converts a full question to its player-facing shape.
func (q Question) View() QuestionView {
	choices := make([]ChoiceView, 0, len(q.Choices))
	for _, c := range q.Choices {
		choices = append(choices, ChoiceView{ID: c.ID, Content: c.Content})
	}
	topics := q.Topics
	if topics == nil {
		topics = []Topic{}
	}
	return QuestionView{
		ID:           q.ID,
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

// ChoiceRequest is one choice in a question create/update payload.
type ChoiceRequest struct {
	Content   string `json:"content" binding:"required,min=1,max=255"`
	IsCorrect bool   `json:"is_correct"`
}

// QuestionRequest is the admin payload for creating or updating a question.
// Choices are replaced wholesale on update.
type QuestionRequest struct {
	QuestionText  string          `json:"question_text" binding:"required,min=1,max=2000"`
	Type          string          `json:"type" binding:"required,oneof=MULTIPLE SHORT"`
	CorrectAnswer string          `json:"correct_answer" binding:"required,max=2000"`
	Explanation   *string         `json:"explanation" binding:"omitempty,max=4000"`
	Choices       []ChoiceRequest `json:"choices" binding:"omitempty,dive"`
	Category      string          `json:"category" binding:"omitempty,oneof=ALL PRE_MODERN_HISTORY MODERN_HISTORY"`
	Difficulty    string          `json:"difficulty" binding:"omitempty,oneof=BASIC STANDARD ADVANCED"`
	TopicIDs      []int           `json:"topic_ids"`
	ImageURL      *string         `json:"image_url" binding:"omitempty,max=512"`
}

// QuestionListItem is the admin list row: lighter than the full record.
type QuestionListItem struct {
	ID             int          `json:"id"`
	QuestionText   string       `json:"question_text"`
	Type           QuestionType `json:"type"`
	CreatedAt      time.Time    `json:"created_at"`
	ChoiceCount    int          `json:"choice_count"`
	HasExplanation bool         `json:"has_explanation"`
	Category       Category     `json:"category"`
	Difficulty     Difficulty   `json:"difficulty"`
	Topics         []Topic      `json:"topics"`
	ImageURL       *string      `json:"image_url,omitempty"`
}

// QuestionFilter narrows question listings and random selection.
// Zero values mean "no constraint"; filters combine with AND semantics.
type QuestionFilter struct {
	Search     string
	Type       QuestionType
	Category   Category
	Difficulty Difficulty
	TopicID    int
}
