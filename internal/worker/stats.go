package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Stats tracks per-operation counters. Counts are mirrored to OpenTelemetry
// for external collectors and kept as atomics for the /api/stats snapshot.
type Stats struct {
	startTime time.Time

	sessionsCreated       atomic.Int64
	descriptionsGenerated atomic.Int64
	refinements           atomic.Int64
	imagesGenerated       atomic.Int64
	operationFailures     atomic.Int64

	operations metric.Int64Counter
	failures   metric.Int64Counter
}

// NewStats creates a Stats tracker backed by the global otel meter.
func NewStats() *Stats {
	meter := otel.Meter("github.com/ecosketch/ecosketch/internal/worker")

	operations, err := meter.Int64Counter("ecosketch.operations",
		metric.WithDescription("Completed workflow operations by kind"))
	if err != nil {
		log.Warn().Err(err).Msg("failed to create operations counter")
	}
	failures, err := meter.Int64Counter("ecosketch.operation_failures",
		metric.WithDescription("Failed workflow operations by kind"))
	if err != nil {
		log.Warn().Err(err).Msg("failed to create failures counter")
	}

	return &Stats{
		startTime:  time.Now(),
		operations: operations,
		failures:   failures,
	}
}

func (s *Stats) record(kind string, counter *atomic.Int64) {
	counter.Add(1)
	if s.operations != nil {
		s.operations.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", kind)))
	}
}

// RecordSessionCreated counts a successful session creation.
func (s *Stats) RecordSessionCreated() { s.record("create", &s.sessionsCreated) }

// RecordDescriptionGenerated counts a successful describe operation.
func (s *Stats) RecordDescriptionGenerated() { s.record("describe", &s.descriptionsGenerated) }

// RecordRefinement counts a successful refine operation.
func (s *Stats) RecordRefinement() { s.record("refine", &s.refinements) }

// RecordImageGenerated counts a successful image generation.
func (s *Stats) RecordImageGenerated() { s.record("image", &s.imagesGenerated) }

// RecordFailure counts a failed operation of any kind.
func (s *Stats) RecordFailure(kind string) {
	s.operationFailures.Add(1)
	if s.failures != nil {
		s.failures.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", kind)))
	}
}

// StatsSnapshot is the /api/stats payload.
type StatsSnapshot struct {
	SessionsCreated       int64  `json:"sessionsCreated"`
	DescriptionsGenerated int64  `json:"descriptionsGenerated"`
	Refinements           int64  `json:"refinements"`
	ImagesGenerated       int64  `json:"imagesGenerated"`
	OperationFailures     int64  `json:"operationFailures"`
	UptimeSeconds         int64  `json:"uptimeSeconds"`
	SSEClients            int    `json:"sseClients"`
	Version               string `json:"version"`
}

// Snapshot returns current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		SessionsCreated:       s.sessionsCreated.Load(),
		DescriptionsGenerated: s.descriptionsGenerated.Load(),
		Refinements:           s.refinements.Load(),
		ImagesGenerated:       s.imagesGenerated.Load(),
		OperationFailures:     s.operationFailures.Load(),
		UptimeSeconds:         int64(time.Since(s.startTime).Seconds()),
	}
}
