package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"

	"github.com/timmy/gifforge/internal/cache"
	"github.com/timmy/gifforge/internal/domain"
	"github.com/timmy/gifforge/internal/logger"
	"github.com/timmy/gifforge/internal/metrics"
	"github.com/timmy/gifforge/internal/overlay"
)

// Engine abstracts the encoder wrapper consumed by the orchestrator.
type Engine interface {
	Initialize(ctx context.Context) error
	Process(ctx context.Context, url string, overlays []domain.TextOverlay, onProgress domain.ProgressFunc) (*domain.ProcessingResult, error)
	Cancel()
	MemoryUsage() domain.MemoryUsage
	Dispose()
}

// ProcessingConfig holds orchestrator settings.
type ProcessingConfig struct {
	// MaxAttempts bounds retries of the engine call; only errors flagged
	// retryable are tried again.
	MaxAttempts int

	// InitialBackoff seeds the exponential backoff between attempts.
	InitialBackoff time.Duration

	// BreakerFailures is the consecutive-failure count that opens the
	// circuit breaker.
	BreakerFailures uint32

	// BreakerCooldown is how long the breaker stays open before probing.
	BreakerCooldown time.Duration

	// ArtifactBasePath prefixes processed artifact URLs.
	ArtifactBasePath string
}

func (c *ProcessingConfig) applyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 500 * time.Millisecond
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = 30 * time.Second
	}
	if c.ArtifactBasePath == "" {
		c.ArtifactBasePath = "/api/v1/artifacts"
	}
}

// ProcessingService is the public face of the rendering pipeline: it
// validates requests, short-circuits identical ones from cache, wraps the
// engine call in retry-with-backoff behind a circuit breaker, and fans
// progress out to subscribers.
type ProcessingService struct {
	engine    Engine
	results   *cache.Cache[*domain.ProcessedGif]
	artifacts *cache.Cache[[]byte]
	logger    *logger.Logger
	cfg       ProcessingConfig
	breaker   *gobreaker.CircuitBreaker[*domain.ProcessingResult]

	mu           sync.Mutex
	processing   bool
	current      *domain.ProcessingProgress
	lastProgress float64
	subscribers  map[int]domain.ProgressFunc
	nextSubID    int
}

// NewProcessingService creates the processing orchestrator.
// Parameters:
//   - eng: encoder wrapper.
//   - results: cache for ProcessedGif objects keyed by request.
//   - artifacts: cache for rendered bytes keyed by artifact id.
//   - log: logger instance.
//   - cfg: orchestrator configuration.
//
// Returns:
//   - *ProcessingService: initialized service.
func NewProcessingService(
	eng Engine,
	results *cache.Cache[*domain.ProcessedGif],
	artifacts *cache.Cache[[]byte],
	log *logger.Logger,
	cfg ProcessingConfig,
) *ProcessingService {
	cfg.applyDefaults()
	if log == nil {
		log = logger.GetDefault()
	}
	s := &ProcessingService{
		engine:      eng,
		results:     results,
		artifacts:   artifacts,
		logger:      log.WithField(logger.FieldComponent, "processing"),
		cfg:         cfg,
		subscribers: make(map[int]domain.ProgressFunc),
	}

	s.breaker = gobreaker.NewCircuitBreaker[*domain.ProcessingResult](gobreaker.Settings{
		Name:    "engine",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			metrics.BreakerTransitionsTotal.WithLabelValues(to.String()).Inc()
			s.logger.WithFields(logger.Fields{"from": from.String(), "to": to.String()}).
				Warn("engine circuit breaker state changed")
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})
	return s
}

// log returns a logger from context if available, otherwise the default.
func (s *ProcessingService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// ProcessGif renders the overlays onto the GIF and returns the artifact.
// Identical (gif, overlays) requests are served from cache without touching
// the engine; a second call while one is in flight fails fast.
// Parameters:
//   - ctx: context for the whole job.
//   - gif: source GIF descriptor.
//   - textOverlays: caption layers.
//
// Returns:
//   - *domain.ProcessedGif: rendered artifact reference.
//   - error: normalized per the shared taxonomy.
func (s *ProcessingService) ProcessGif(ctx context.Context, gif domain.GifDescriptor, textOverlays []domain.TextOverlay) (*domain.ProcessedGif, error) {
	log := s.log(ctx)

	validation := overlay.ValidateRequest(gif, textOverlays)
	for _, w := range validation.Warnings {
		log.WithField(logger.FieldGifID, gif.ID).Warn(w)
	}
	if !validation.IsValid {
		metrics.JobsProcessedTotal.WithLabelValues("rejected").Inc()
		return nil, domain.NewValidationError(
			"The request cannot be rendered: "+joinReasons(validation.Errors),
			"Fix the reported overlay fields.",
			"Make sure at least one overlay has text.",
		)
	}

	key := requestKey(gif.ID, textOverlays)
	if cached, ok := s.results.Get(key); ok {
		metrics.CacheRequestsTotal.WithLabelValues("results", "hit").Inc()
		log.WithField(logger.FieldGifID, gif.ID).Info("serving processed gif from cache")
		return cached, nil
	}
	metrics.CacheRequestsTotal.WithLabelValues("results", "miss").Inc()

	s.mu.Lock()
	if s.processing {
		s.mu.Unlock()
		metrics.JobsProcessedTotal.WithLabelValues("rejected").Inc()
		return nil, domain.NewBusyError()
	}
	s.processing = true
	s.lastProgress = 0
	s.current = nil
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.processing = false
		s.mu.Unlock()
	}()

	jobID := uuid.NewString()
	log = log.WithFields(logger.Fields{logger.FieldJobID: jobID, logger.FieldGifID: gif.ID})
	log.Info("processing started")
	start := time.Now()

	s.publish(domain.ProcessingProgress{Progress: 0, Stage: domain.StageLoading})

	result, err := s.runEngine(ctx, gif, textOverlays)
	if err != nil {
		normalized := domain.Classify(err)
		s.publish(domain.ProcessingProgress{
			Progress: s.progressFloor(),
			Stage:    domain.StageProcessing,
			Error:    normalized.Message,
		})
		metrics.JobsProcessedTotal.WithLabelValues("failed").Inc()
		log.WithError(normalized).Error("processing failed")
		return nil, normalized
	}

	artifactID := uuid.NewString()
	s.artifacts.Set(artifactID, result.Data)

	processed := &domain.ProcessedGif{
		GifDescriptor:  gif,
		ProcessedURL:   s.cfg.ArtifactBasePath + "/" + artifactID,
		ProcessedAt:    time.Now(),
		TextOverlays:   textOverlays,
		FileSize:       result.Size,
		ProcessingTime: result.ProcessingTime,
	}
	if result.Width > 0 {
		processed.Width = result.Width
		processed.Height = result.Height
	}
	if result.FrameCount > 0 {
		processed.FrameCount = result.FrameCount
	}
	if result.Duration > 0 {
		processed.Duration = result.Duration
	}
	s.results.Set(key, processed)

	// Terminal event is published exactly once, here.
	s.publish(domain.ProcessingProgress{Progress: 1, Stage: domain.StageComplete})
	metrics.JobsProcessedTotal.WithLabelValues("completed").Inc()
	metrics.JobStageDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())
	logger.With(logger.Fields{
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
		logger.FieldSize:       result.Size,
	}).Info(ctx, "processing completed")

	return processed, nil
}

// runEngine wraps the engine call in the circuit breaker and bounded
// retry-with-backoff. Non-retryable errors and an open breaker stop the
// retry loop immediately.
func (s *ProcessingService) runEngine(ctx context.Context, gif domain.GifDescriptor, textOverlays []domain.TextOverlay) (*domain.ProcessingResult, error) {
	attempt := 0
	operation := func() (*domain.ProcessingResult, error) {
		attempt++
		if attempt > 1 {
			metrics.RetryTotal.Inc()
			s.log(ctx).WithField("attempt", attempt).Info("retrying engine call")
		}

		result, err := s.breaker.Execute(func() (*domain.ProcessingResult, error) {
			return s.engine.Process(ctx, gif.URL, textOverlays, s.publish)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return nil, backoff.Permanent(domain.NewProcessingError("encoder is cooling down after repeated failures", err))
			}
			if !domain.IsRetryable(err) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return result, nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = s.cfg.InitialBackoff

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(s.cfg.MaxAttempts)),
	)
}

// publish delivers a progress update to every subscriber. Values are clamped
// so a job's progress never goes backwards, and a panicking subscriber does
// not prevent delivery to the others.
func (s *ProcessingService) publish(p domain.ProcessingProgress) {
	s.mu.Lock()
	if p.Progress < s.lastProgress {
		p.Progress = s.lastProgress
	}
	s.lastProgress = p.Progress
	snapshot := p
	s.current = &snapshot
	subs := make([]domain.ProgressFunc, 0, len(s.subscribers))
	for _, cb := range s.subscribers {
		subs = append(subs, cb)
	}
	s.mu.Unlock()

	for _, cb := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.WithField("panic", r).Error("progress subscriber panicked")
				}
			}()
			cb(p)
		}()
	}
}

func (s *ProcessingService) progressFloor() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastProgress
}

// OnProgressUpdate registers a progress subscriber.
// Parameters:
//   - cb: callback invoked on every update.
//
// Returns:
//   - func(): unsubscribe function; each subscriber unsubscribes independently.
func (s *ProcessingService) OnProgressUpdate(cb domain.ProgressFunc) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = cb
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// GetProcessingProgress returns the latest progress event, or nil before the
// first update of the current job.
func (s *ProcessingService) GetProcessingProgress() *domain.ProcessingProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	copied := *s.current
	return &copied
}

// IsProcessing reports whether a job is currently in flight.
func (s *ProcessingService) IsProcessing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processing
}

// CancelProcessing asks the engine to stop waiting for the in-flight job.
// Best-effort; the caller of ProcessGif receives a processing error.
func (s *ProcessingService) CancelProcessing() {
	s.engine.Cancel()
}

// GetMemoryUsage exposes the engine's advisory memory accounting.
func (s *ProcessingService) GetMemoryUsage() domain.MemoryUsage {
	return s.engine.MemoryUsage()
}

// GetArtifact returns rendered bytes by artifact id.
func (s *ProcessingService) GetArtifact(id string) ([]byte, bool) {
	data, ok := s.artifacts.Get(id)
	if ok {
		metrics.CacheRequestsTotal.WithLabelValues("artifacts", "hit").Inc()
	} else {
		metrics.CacheRequestsTotal.WithLabelValues("artifacts", "miss").Inc()
	}
	return data, ok
}

// ClearCache drops all cached results and artifacts.
func (s *ProcessingService) ClearCache() {
	s.results.Clear()
	s.artifacts.Clear()
}

// Dispose tears down the engine and drops all subscribers. The caches are
// disposed by their owner.
func (s *ProcessingService) Dispose() {
	s.engine.Dispose()
	s.mu.Lock()
	s.subscribers = make(map[int]domain.ProgressFunc)
	s.mu.Unlock()
}

// requestKey builds the deterministic cache key from the GIF id and the
// serialized overlay list.
func requestKey(gifID string, textOverlays []domain.TextOverlay) string {
	h := sha256.New()
	h.Write([]byte(gifID))
	h.Write([]byte{0})
	// Marshal of a fixed struct slice is deterministic.
	payload, _ := json.Marshal(textOverlays)
	h.Write(payload)
	return "proc:" + hex.EncodeToString(h.Sum(nil))
}

func joinReasons(reasons []string) string {
	if len(reasons) == 0 {
		return "invalid request"
	}
	out := reasons[0]
	for _, r := range reasons[1:] {
		out += "; " + r
	}
	return out
}
