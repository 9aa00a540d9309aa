package model

import "time"

// Bundle is a curated, ordered set of questions played as one session.
type Bundle struct {
	ID            int         `json:"id"`
	Title         string      `json:"title"`
	Description   *string     `json:"description"`
	Category      *Category   `json:"category"`
	Difficulty    *Difficulty `json:"difficulty"`
	QuestionCount int         `json:"question_count"`
	IsActive      bool        `json:"is_active"`
	CreatedAt     time.Time   `json:"created_at"`
}

// BundleSummary is a bundle list row, optionally annotated with the
// requesting user's aggregate progress.
type BundleSummary struct {
	Bundle
	UserProgress *BundleProgress `json:"user_progress"`
}

// BundleQuestion is a question as it appears inside a bundle: the join-row
// id, the bundle-local order, and the player-facing question fields.
type BundleQuestion struct {
	ID           int          `json:"id"`
	QuestionID   int          `json:"question_id"`
	Order        int          `json:"order"`
	QuestionText string       `json:"question_text"`
	Type         QuestionType `json:"type"`
	Category     Category     `json:"category"`
	Difficulty   Difficulty   `json:"difficulty"`
	Explanation  *string      `json:"explanation"`
	Choices      []ChoiceView `json:"choices"`
	Topics       []Topic      `json:"topics"`
	ImageURL     *string      `json:"image_url,omitempty"`
}

// BundleDetail is the full hydration payload for starting or resuming a
// bundle session: the ordered questions plus the user's prior results.
type BundleDetail struct {
	Bundle
	UserProgress     *BundleProgress    `json:"user_progress"`
	Questions        []BundleQuestion   `json:"questions"`
	QuestionProgress []QuestionProgress `json:"question_progress"`
}

// BundleRequest is the admin payload for creating or updating a bundle.
// QuestionIDs replace the bundle membership wholesale, preserving order.
type BundleRequest struct {
	Title       string  `json:"title" binding:"required,min=1,max=255"`
	Description *string `json:"description" binding:"omitempty,max=4000"`
	Category    *string `json:"category" binding:"omitempty,oneof=ALL PRE_MODERN_HISTORY MODERN_HISTORY"`
	Difficulty  *string `json:"difficulty" binding:"omitempty,oneof=BASIC STANDARD ADVANCED"`
	IsActive    bool    `json:"is_active"`
	QuestionIDs []int   `json:"question_ids"`
}

// BundleFilter narrows bundle listings.
type BundleFilter struct {
	Search     string
	Category   Category
	Difficulty Difficulty
	OnlyActive bool
}
