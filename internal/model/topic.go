package model

import "time"

// Topic is a free-form tag grouping questions by subject matter.
type Topic struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// TopicRequest is the admin payload for creating or renaming a topic.
type TopicRequest struct {
	Name        string  `json:"name" binding:"required,min=1,max=100"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
}
