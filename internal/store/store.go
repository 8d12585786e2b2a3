// Package store persists ecosketch sessions.
//
// The store is a dumb record holder: it assigns identifiers, stamps creation
// times, and shallow-merges partial updates. State-machine legality is the
// orchestrator's job.
package store

import (
	"context"
	"errors"

	"github.com/ecosketch/ecosketch/pkg/models"
)

// ErrNotFound is returned when a session id does not exist.
var ErrNotFound = errors.New("session not found")

// NewSession holds the caller-supplied fields for Create.
type NewSession struct {
	UserPrompt string
	// Status defaults to models.StatusPrompt when empty.
	Status models.SessionStatus
}

// SessionUpdate is a partial update. Nil fields are left untouched.
type SessionUpdate struct {
	Status            *models.SessionStatus
	AIDescription     *string
	UserFeedback      *string
	FinalDescription  *string
	GeneratedImageURL *string
	EnergySaved       *int
	TimeSaved         *int
}

// SessionStore is the persistence contract for sessions.
type SessionStore interface {
	Create(ctx context.Context, in NewSession) (*models.Session, error)
	Get(ctx context.Context, id int64) (*models.Session, error)
	Update(ctx context.Context, id int64, upd SessionUpdate) (*models.Session, error)
	List(ctx context.Context) ([]*models.Session, error)
}

// apply merges the set fields of upd into sess.
func (u SessionUpdate) apply(sess *models.Session) {
	if u.Status != nil {
		sess.Status = *u.Status
	}
	if u.AIDescription != nil {
		sess.AIDescription = *u.AIDescription
	}
	if u.UserFeedback != nil {
		sess.UserFeedback = *u.UserFeedback
	}
	if u.FinalDescription != nil {
		sess.FinalDescription = *u.FinalDescription
	}
	if u.GeneratedImageURL != nil {
		sess.GeneratedImageURL = *u.GeneratedImageURL
	}
	if u.EnergySaved != nil {
		sess.EnergySaved = *u.EnergySaved
	}
	if u.TimeSaved != nil {
		sess.TimeSaved = *u.TimeSaved
	}
}
