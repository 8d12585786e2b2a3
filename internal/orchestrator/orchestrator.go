// Package orchestrator drives the guided prompt-to-image workflow.
//
// A session walks prompt -> describing -> feedback -> generating -> completed.
// The orchestrator is the only writer of Status: it records the in-flight
// state before calling a collaborator, commits the result on success, and
// rolls the status back on failure. Per-session locking serializes the
// read-modify-write cycle for one session while letting distinct sessions
// proceed in parallel.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ecosketch/ecosketch/internal/store"
	"github.com/ecosketch/ecosketch/pkg/models"
)

var (
	// ErrNotFound is returned when the session id does not exist.
	ErrNotFound = errors.New("session not found")
	// ErrInvalidInput is returned when a request payload fails validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrPreconditionFailed is returned when the session is not in a state
	// that permits the requested operation.
	ErrPreconditionFailed = errors.New("operation not allowed in current session status")
	// ErrGenerationFailed is returned when description generation fails.
	ErrGenerationFailed = errors.New("description generation failed")
	// ErrRefinementFailed is returned when description refinement fails.
	ErrRefinementFailed = errors.New("description refinement failed")
	// ErrImageFailed is returned when image generation fails.
	ErrImageFailed = errors.New("image generation failed")
)

// Describer expands a short user prompt into a full image description.
type Describer interface {
	Describe(ctx context.Context, userPrompt string) (string, error)
}

// DescriberFunc adapts a function to the Describer interface.
type DescriberFunc func(ctx context.Context, userPrompt string) (string, error)

func (f DescriberFunc) Describe(ctx context.Context, userPrompt string) (string, error) {
	return f(ctx, userPrompt)
}

// Refiner revises a description according to user feedback.
type Refiner interface {
	Refine(ctx context.Context, original, feedback string) (string, error)
}

// RefinerFunc adapts a function to the Refiner interface.
type RefinerFunc func(ctx context.Context, original, feedback string) (string, error)

func (f RefinerFunc) Refine(ctx context.Context, original, feedback string) (string, error) {
	return f(ctx, original, feedback)
}

// ImageGenerator turns a final description into an image URL.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, description string) (string, error)
}

// ImagerFunc adapts a function to the ImageGenerator interface.
type ImagerFunc func(ctx context.Context, description string) (string, error)

func (f ImagerFunc) GenerateImage(ctx context.Context, description string) (string, error) {
	return f(ctx, description)
}

// Notifier receives session events after each committed status change.
// The SSE broadcaster satisfies this.
type Notifier interface {
	Broadcast(data interface{})
}

// Event is the payload published to the notifier on status changes.
type Event struct {
	Type      string               `json:"type"`
	SessionID int64                `json:"sessionId"`
	Status    models.SessionStatus `json:"status"`
}

const (
	energySavedBase = 50
	energySavedSpan = 31 // 50..80 inclusive
	timeSavedBase   = 30
	timeSavedSpan   = 31 // 30..60 inclusive
)

// Orchestrator coordinates the store and the generation collaborators.
type Orchestrator struct {
	store     store.SessionStore
	describer Describer
	refiner   Refiner
	imager    ImageGenerator
	notifier  Notifier // may be nil

	randInt func(n int) int

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithNotifier attaches a notifier for status-change events.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithRandInt replaces the random source used for completion metrics.
func WithRandInt(f func(n int) int) Option {
	return func(o *Orchestrator) { o.randInt = f }
}

// New creates an Orchestrator over the given store and collaborators.
func New(st store.SessionStore, d Describer, r Refiner, img ImageGenerator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:     st,
		describer: d,
		refiner:   r,
		imager:    img,
		randInt:   rand.Intn,
		locks:     make(map[int64]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// lock acquires the per-session mutex and returns its release func.
// Entries live for the process lifetime: a waiting goroutine may still hold
// a reference to a mutex, so safe eviction would need refcounting.
func (o *Orchestrator) lock(id int64) func() {
	o.mu.Lock()
	m, ok := o.locks[id]
	if !ok {
		m = &sync.Mutex{}
		o.locks[id] = m
	}
	o.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func (o *Orchestrator) publish(id int64, status models.SessionStatus) {
	if o.notifier == nil {
		return
	}
	o.notifier.Broadcast(Event{Type: "session.status", SessionID: id, Status: status})
}

// setStatus writes a bare status transition and publishes it.
func (o *Orchestrator) setStatus(ctx context.Context, id int64, status models.SessionStatus) (*models.Session, error) {
	sess, err := o.store.Update(ctx, id, store.SessionUpdate{Status: &status})
	if err != nil {
		return nil, err
	}
	o.publish(id, status)
	return sess, nil
}

// CreateSession opens a new workflow session for the given prompt.
func (o *Orchestrator) CreateSession(ctx context.Context, userPrompt string) (*models.Session, error) {
	userPrompt = strings.TrimSpace(userPrompt)
	if userPrompt == "" {
		return nil, fmt.Errorf("%w: userPrompt is required", ErrInvalidInput)
	}

	sess, err := o.store.Create(ctx, store.NewSession{UserPrompt: userPrompt})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	log.Info().Int64("sessionId", sess.ID).Msg("session created")
	o.publish(sess.ID, sess.Status)
	return sess, nil
}

// GetSession returns a session by id.
func (o *Orchestrator) GetSession(ctx context.Context, id int64) (*models.Session, error) {
	sess, err := o.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return sess, err
}

// ListSessions returns all sessions, newest first.
func (o *Orchestrator) ListSessions(ctx context.Context) ([]*models.Session, error) {
	return o.store.List(ctx)
}

// GenerateDescription expands the session's prompt into an AI description.
// The session moves to describing immediately so concurrent readers see the
// work in flight; failure rolls it back to prompt.
func (o *Orchestrator) GenerateDescription(ctx context.Context, id int64) (*models.Session, error) {
	defer o.lock(id)()

	sess, err := o.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Status != models.StatusPrompt {
		return nil, fmt.Errorf("%w: cannot describe in status %q", ErrPreconditionFailed, sess.Status)
	}

	if _, err := o.setStatus(ctx, id, models.StatusDescribing); err != nil {
		return nil, fmt.Errorf("mark describing: %w", err)
	}

	description, err := o.describer.Describe(ctx, sess.UserPrompt)
	if err != nil {
		log.Error().Err(err).Int64("sessionId", id).Msg("description generation failed, rolling back")
		if _, rbErr := o.setStatus(ctx, id, models.StatusPrompt); rbErr != nil {
			log.Error().Err(rbErr).Int64("sessionId", id).Msg("rollback to prompt failed")
		}
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	status := models.StatusFeedback
	sess, err = o.store.Update(ctx, id, store.SessionUpdate{
		Status:        &status,
		AIDescription: &description,
	})
	if err != nil {
		return nil, fmt.Errorf("commit description: %w", err)
	}
	o.publish(id, status)

	log.Info().Int64("sessionId", id).Int("descriptionLen", len(description)).Msg("description generated")
	return sess, nil
}

// RefineDescription revises the AI description using the user's feedback.
// The session stays in feedback status; there is no intermediate state to
// roll back.
func (o *Orchestrator) RefineDescription(ctx context.Context, id int64, feedback string) (*models.Session, error) {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return nil, fmt.Errorf("%w: userFeedback is required", ErrInvalidInput)
	}

	defer o.lock(id)()

	sess, err := o.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Status != models.StatusFeedback || sess.AIDescription == "" {
		return nil, fmt.Errorf("%w: no description to refine in status %q", ErrPreconditionFailed, sess.Status)
	}

	refined, err := o.refiner.Refine(ctx, sess.AIDescription, feedback)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRefinementFailed, err)
	}

	// The refined text becomes both the working and the committed
	// description, so pollers see a complete session between refine and
	// generate-image.
	sess, err = o.store.Update(ctx, id, store.SessionUpdate{
		AIDescription:    &refined,
		FinalDescription: &refined,
		UserFeedback:     &feedback,
	})
	if err != nil {
		return nil, fmt.Errorf("commit refinement: %w", err)
	}

	log.Info().Int64("sessionId", id).Msg("description refined")
	return sess, nil
}

// GenerateImage commits the current description and produces the image.
// The session moves to generating immediately; failure rolls it back to
// feedback so the user can retry without repeating the describe step.
func (o *Orchestrator) GenerateImage(ctx context.Context, id int64) (*models.Session, error) {
	defer o.lock(id)()

	sess, err := o.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Status != models.StatusFeedback || sess.AIDescription == "" {
		return nil, fmt.Errorf("%w: cannot generate image in status %q", ErrPreconditionFailed, sess.Status)
	}

	if _, err := o.setStatus(ctx, id, models.StatusGenerating); err != nil {
		return nil, fmt.Errorf("mark generating: %w", err)
	}

	// A refined session already carries its committed text; an unrefined one
	// commits the AI description as-is.
	finalDescription := sess.FinalDescription
	if finalDescription == "" {
		finalDescription = sess.AIDescription
	}

	imageURL, err := o.imager.GenerateImage(ctx, finalDescription)
	if err != nil {
		log.Error().Err(err).Int64("sessionId", id).Msg("image generation failed, rolling back")
		if _, rbErr := o.setStatus(ctx, id, models.StatusFeedback); rbErr != nil {
			log.Error().Err(rbErr).Int64("sessionId", id).Msg("rollback to feedback failed")
		}
		return nil, fmt.Errorf("%w: %v", ErrImageFailed, err)
	}

	status := models.StatusCompleted
	energySaved := energySavedBase + o.randInt(energySavedSpan)
	timeSaved := timeSavedBase + o.randInt(timeSavedSpan)
	sess, err = o.store.Update(ctx, id, store.SessionUpdate{
		Status:            &status,
		FinalDescription:  &finalDescription,
		GeneratedImageURL: &imageURL,
		EnergySaved:       &energySaved,
		TimeSaved:         &timeSaved,
	})
	if err != nil {
		return nil, fmt.Errorf("commit image: %w", err)
	}
	o.publish(id, status)

	log.Info().
		Int64("sessionId", id).
		Int("energySaved", energySaved).
		Int("timeSaved", timeSaved).
		Msg("session completed")
	return sess, nil
}
