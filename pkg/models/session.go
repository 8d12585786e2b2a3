// Package models contains domain models for ecosketch.
package models

import "time"

// SessionStatus represents where a session sits in the prompt-to-image workflow.
type SessionStatus string

const (
	StatusPrompt     SessionStatus = "prompt"
	StatusDescribing SessionStatus = "describing"
	StatusFeedback   SessionStatus = "feedback"
	StatusGenerating SessionStatus = "generating"
	StatusCompleted  SessionStatus = "completed"
)

// Valid reports whether the status is one of the known workflow states.
func (s SessionStatus) Valid() bool {
	switch s {
	case StatusPrompt, StatusDescribing, StatusFeedback, StatusGenerating, StatusCompleted:
		return true
	}
	return false
}

// Session is one end-to-end prompt-to-image workflow instance.
// UserPrompt and CreatedAt are set once at creation; Status is mutated only
// by the orchestrator. EnergySaved and TimeSaved are attached at completion.
type Session struct {
	ID                int64         `json:"id"`
	UserPrompt        string        `json:"userPrompt"`
	Status            SessionStatus `json:"status"`
	AIDescription     string        `json:"aiDescription,omitempty"`
	UserFeedback      string        `json:"userFeedback,omitempty"`
	FinalDescription  string        `json:"finalDescription,omitempty"`
	GeneratedImageURL string        `json:"generatedImageUrl,omitempty"`
	EnergySaved       int           `json:"energySaved,omitempty"`
	TimeSaved         int           `json:"timeSaved,omitempty"`
	CreatedAt         time.Time     `json:"createdAt"`
}

// Clone returns a copy so store callers cannot alias internal state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
