// Package engine wraps a single exclusively-owned encoder slot: it stages
// runtime assets, executes filter graphs against fetched input bytes inside
// a per-job scratch directory, and enforces the one-job-at-a-time policy.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"image/gif"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/timmy/gifforge/internal/domain"
	"github.com/timmy/gifforge/internal/logger"
	"github.com/timmy/gifforge/internal/metrics"
	"github.com/timmy/gifforge/internal/overlay"
)

// State is the engine lifecycle phase.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateReady         State = "ready"
	StateProcessing    State = "processing"
	StateDisposed      State = "disposed"
)

// GIF signatures accepted by the input check.
var gifMagics = [][]byte{[]byte("GIF87a"), []byte("GIF89a")}

// Config holds engine settings.
type Config struct {
	// BinaryPath overrides encoder binary discovery; empty means "ffmpeg"
	// resolved on PATH.
	BinaryPath string

	// WorkDir is the root for scratch directories and staged fonts.
	WorkDir string

	// FontBaseURL is the remote base for font assets; empty skips the
	// remote fetch and stages the embedded fonts directly.
	FontBaseURL string

	// InitTimeout bounds the core encoder startup check.
	InitTimeout time.Duration

	// ProcessTimeout bounds the encode step of one job, independent of
	// InitTimeout.
	ProcessTimeout time.Duration

	// MaxInputBytes rejects oversized source GIFs before any encoding.
	MaxInputBytes int64

	// MaxMemoryBytes is the advisory ceiling reported by MemoryUsage.
	MaxMemoryBytes int64
}

func (c *Config) applyDefaults() {
	if c.WorkDir == "" {
		c.WorkDir = filepath.Join(os.TempDir(), "gifforge")
	}
	if c.InitTimeout <= 0 {
		c.InitTimeout = 30 * time.Second
	}
	if c.ProcessTimeout <= 0 {
		c.ProcessTimeout = 2 * time.Minute
	}
	if c.MaxInputBytes <= 0 {
		c.MaxInputBytes = 10 << 20
	}
	if c.MaxMemoryBytes <= 0 {
		c.MaxMemoryBytes = 100 << 20
	}
}

// Engine owns the encoder slot. It supports exactly one concurrent job;
// concurrent callers are rejected, not queued.
type Engine struct {
	cfg    Config
	log    *logger.Logger
	runner CommandRunner
	client *resty.Client

	mu        sync.Mutex
	state     State
	binary    string
	cancelJob context.CancelFunc
	jobGen    uint64
	memory    int64

	fonts fontFiles
}

// New creates an engine using the real encoder binary.
// Parameters:
//   - cfg: engine configuration.
//   - log: logger instance; nil uses the default logger.
//
// Returns:
//   - *Engine: engine in the uninitialized state.
func New(cfg Config, log *logger.Logger) *Engine {
	client := resty.New()
	client.SetTimeout(60 * time.Second)
	return NewWithRunner(cfg, log, execRunner{}, client)
}

// NewWithRunner allows injecting a custom command runner and HTTP client
// (used for tests).
func NewWithRunner(cfg Config, log *logger.Logger, runner CommandRunner, client *resty.Client) *Engine {
	cfg.applyDefaults()
	if log == nil {
		log = logger.GetDefault()
	}
	return &Engine{
		cfg:    cfg,
		log:    log.WithField(logger.FieldComponent, "engine"),
		runner: runner,
		client: client,
		state:  StateUninitialized,
	}
}

// State returns the current lifecycle phase.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Initialize prepares the encoder slot: it resolves and probes the encoder
// binary under InitTimeout, creates the work directory, and stages font
// assets. Idempotent: calling it while already ready is a no-op. A failed
// or timed-out core load leaves the engine uninitialized so the call can be
// retried.
// Parameters:
//   - ctx: context for asset fetches.
//
// Returns:
//   - error: non-nil when the core load fails; font failures short of total
//     loss are tolerated.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	switch e.state {
	case StateDisposed:
		e.mu.Unlock()
		return domain.NewProcessingError("engine is disposed", nil)
	case StateReady, StateProcessing:
		e.mu.Unlock()
		return nil
	case StateInitializing:
		e.mu.Unlock()
		return domain.NewProcessingError("initialization already in progress", nil)
	}
	e.state = StateInitializing
	e.mu.Unlock()

	fail := func(err error) error {
		e.mu.Lock()
		e.state = StateUninitialized
		e.mu.Unlock()
		return err
	}

	name := e.cfg.BinaryPath
	if name == "" {
		name = "ffmpeg"
	}
	path, err := e.runner.LookPath(name)
	if err != nil {
		return fail(domain.NewProcessingError(fmt.Sprintf("encoder binary %q not found", name), err))
	}

	coreCtx, cancel := context.WithTimeout(ctx, e.cfg.InitTimeout)
	defer cancel()
	if _, err := e.runner.Run(coreCtx, path, "-version"); err != nil {
		if coreCtx.Err() == context.DeadlineExceeded {
			return fail(domain.NewTimeoutError("encoder startup check timed out", coreCtx.Err()))
		}
		return fail(domain.NewProcessingError("encoder startup check failed", err))
	}

	if err := os.MkdirAll(e.cfg.WorkDir, 0o755); err != nil {
		return fail(domain.NewProcessingError("could not create work directory", err))
	}

	staged, err := e.stageFonts(ctx)
	if err != nil {
		return fail(err)
	}
	e.fonts.set(staged)

	e.mu.Lock()
	e.binary = path
	e.state = StateReady
	e.mu.Unlock()

	e.log.WithField("binary", path).Info("engine initialized")
	return nil
}

// Process renders overlays onto the GIF at url and returns the encoded
// bytes. It rejects immediately when another job is already running.
// Progress is reported with non-decreasing values; the final complete event
// is left to the caller so success is observable exactly once.
// Parameters:
//   - ctx: context for the whole job.
//   - url: source GIF location.
//   - overlays: caption layers; blank overlays are skipped.
//   - onProgress: optional progress callback.
//
// Returns:
//   - *domain.ProcessingResult: encoded output and metadata.
//   - error: classified per the shared taxonomy.
func (e *Engine) Process(ctx context.Context, url string, overlays []domain.TextOverlay, onProgress domain.ProgressFunc) (*domain.ProcessingResult, error) {
	e.mu.Lock()
	switch e.state {
	case StateProcessing:
		e.mu.Unlock()
		return nil, domain.NewBusyError()
	case StateReady:
	default:
		state := e.state
		e.mu.Unlock()
		return nil, domain.NewProcessingError(fmt.Sprintf("engine is %s, not ready", state), nil)
	}
	e.state = StateProcessing
	jobCtx, cancel := context.WithCancel(ctx)
	e.cancelJob = cancel
	e.jobGen++
	gen := e.jobGen
	binary := e.binary
	e.mu.Unlock()

	start := time.Now()
	defer func() {
		cancel()
		e.mu.Lock()
		// After a Cancel a newer job may already own the slot; only the
		// job that registered this cancel may reset it.
		if e.jobGen == gen {
			if e.state == StateProcessing {
				e.state = StateReady
			}
			e.cancelJob = nil
		}
		e.mu.Unlock()
	}()

	report := func(progress float64, stage domain.ProcessingStage) {
		if onProgress != nil {
			onProgress(progressAt(start, progress, stage))
		}
	}

	report(0.05, domain.StageLoading)
	input, err := e.fetchInput(jobCtx, url)
	if err != nil {
		return nil, err
	}
	e.addMemory(int64(len(input)))

	scratch, err := os.MkdirTemp(e.cfg.WorkDir, "job-*")
	if err != nil {
		e.resetMemory()
		return nil, domain.NewProcessingError("could not create scratch directory", err)
	}
	// Scratch cleanup is best-effort and runs even on timeout, before the
	// error reaches the caller.
	defer e.cleanupScratch(scratch)

	inPath := filepath.Join(scratch, "input.gif")
	if err := os.WriteFile(inPath, input, 0o644); err != nil {
		return nil, domain.NewProcessingError("could not write scratch input", err)
	}
	report(0.2, domain.StageLoading)

	passes := overlay.BuildPasses(overlays, e.fonts.resolve)
	report(0.3, domain.StageProcessing)

	outPath := filepath.Join(scratch, "output.gif")
	encCtx, encCancel := context.WithTimeout(jobCtx, e.cfg.ProcessTimeout)
	defer encCancel()

	encStart := time.Now()
	var lastErr error
	rendered := false
	for i, pass := range passes {
		report(0.45+0.15*float64(i), domain.StageEncoding)
		if i > 0 {
			metrics.FallbackPassTotal.Inc()
		}
		_ = os.Remove(outPath)

		out, runErr := e.runner.Run(encCtx, binary, encodeArgs(inPath, pass.Graph, outPath)...)
		if runErr != nil {
			lastErr = fmt.Errorf("encode pass %d: %w (%s)", i+1, runErr, truncate(out, 200))
			e.log.WithError(runErr).WithFields(logger.Fields{
				"pass":       i + 1,
				"with_fonts": pass.WithFonts,
			}).Warn("encode pass failed")
			if encCtx.Err() != nil {
				break
			}
			continue
		}
		if st, statErr := os.Stat(outPath); statErr != nil || st.Size() == 0 {
			// Empty output is a hard failure, never a silent success.
			lastErr = fmt.Errorf("encode pass %d produced empty output", i+1)
			continue
		}
		rendered = true
		break
	}
	metrics.JobStageDuration.WithLabelValues(string(domain.StageEncoding)).Observe(time.Since(encStart).Seconds())

	if !rendered {
		switch {
		case encCtx.Err() == context.DeadlineExceeded:
			return nil, domain.NewTimeoutError("encode step timed out", lastErr)
		case jobCtx.Err() == context.Canceled:
			return nil, domain.NewProcessingError("processing was canceled", jobCtx.Err())
		default:
			return nil, domain.NewProcessingError("all encode passes failed", lastErr)
		}
	}

	output, err := os.ReadFile(outPath)
	if err != nil {
		return nil, domain.NewProcessingError("could not read encoder output", err)
	}
	if len(output) == 0 {
		return nil, domain.NewProcessingError("encoder produced empty output", nil)
	}
	report(0.9, domain.StageEncoding)

	result := &domain.ProcessingResult{
		Data:           output,
		Size:           int64(len(output)),
		ProcessingTime: time.Since(start),
	}
	probeMetadata(output, result)
	report(0.95, domain.StageEncoding)

	e.log.WithFields(logger.Fields{
		logger.FieldSize:       result.Size,
		logger.FieldDurationMs: result.ProcessingTime.Milliseconds(),
	}).Info("gif rendered")
	return result, nil
}

// Cancel is best-effort: it stops waiting for the in-flight job and returns
// the engine to ready. The underlying encode may keep running briefly; there
// is no preemption primitive.
func (e *Engine) Cancel() {
	e.mu.Lock()
	cancel := e.cancelJob
	if e.state == StateProcessing {
		e.state = StateReady
	}
	e.mu.Unlock()
	if cancel != nil {
		cancel()
		e.log.Info("processing canceled")
	}
}

// MemoryUsage returns the advisory byte accounting for UI/backpressure
// decisions. Nothing inside the engine enforces this limit.
func (e *Engine) MemoryUsage() domain.MemoryUsage {
	e.mu.Lock()
	defer e.mu.Unlock()
	usage := domain.MemoryUsage{Current: e.memory, Max: e.cfg.MaxMemoryBytes}
	if usage.Max > 0 {
		usage.Percentage = float64(usage.Current) / float64(usage.Max) * 100
	}
	return usage
}

// Dispose tears the engine down and removes its work directory. Safe to call
// even if the engine was never initialized.
func (e *Engine) Dispose() {
	e.mu.Lock()
	cancel := e.cancelJob
	e.state = StateDisposed
	e.cancelJob = nil
	e.memory = 0
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	metrics.EngineMemoryBytes.Set(0)
	if err := os.RemoveAll(e.cfg.WorkDir); err != nil {
		e.log.WithError(err).Warn("could not remove work directory")
	}
}

func (e *Engine) fetchInput(ctx context.Context, url string) ([]byte, error) {
	resp, err := e.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, domain.NewNetworkError("could not download source gif", err)
	}
	if resp.IsError() {
		return nil, domain.NewNetworkError(fmt.Sprintf("source gif fetch returned %d", resp.StatusCode()), nil)
	}
	data := resp.Body()
	if int64(len(data)) > e.cfg.MaxInputBytes {
		return nil, domain.NewFormatError(fmt.Sprintf("input is %d bytes, limit is %d", len(data), e.cfg.MaxInputBytes))
	}
	if !hasGifMagic(data) {
		return nil, domain.NewFormatError("input does not carry a GIF signature")
	}
	return data, nil
}

func (e *Engine) cleanupScratch(dir string) {
	// Failures here are swallowed; a leaked scratch dir is not worth
	// failing a finished job over.
	if err := os.RemoveAll(dir); err != nil {
		e.log.WithError(err).Warn("scratch cleanup failed")
	}
	e.resetMemory()
}

func (e *Engine) addMemory(n int64) {
	e.mu.Lock()
	e.memory += n
	current := e.memory
	e.mu.Unlock()
	metrics.EngineMemoryBytes.Set(float64(current))
}

func (e *Engine) resetMemory() {
	e.mu.Lock()
	e.memory = 0
	e.mu.Unlock()
	metrics.EngineMemoryBytes.Set(0)
}

func encodeArgs(inPath, graph, outPath string) []string {
	return []string{
		"-y",
		"-i", inPath,
		"-filter_complex", graph,
		"-loop", "0",
		outPath,
	}
}

// truncate keeps encoder output readable in logs and wrapped errors.
func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

func hasGifMagic(data []byte) bool {
	for _, magic := range gifMagics {
		if bytes.HasPrefix(data, magic) {
			return true
		}
	}
	return false
}

// probeMetadata fills best-effort media metadata from the output bytes.
// Probe failures leave the fields zero.
func probeMetadata(data []byte, result *domain.ProcessingResult) {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		if cfg, cfgErr := gif.DecodeConfig(bytes.NewReader(data)); cfgErr == nil {
			result.Width = cfg.Width
			result.Height = cfg.Height
		}
		return
	}
	result.Width = g.Config.Width
	result.Height = g.Config.Height
	result.FrameCount = len(g.Image)
	total := 0
	for _, d := range g.Delay {
		total += d
	}
	result.Duration = float64(total) / 100
}

// progressAt builds a progress event with a remaining-time estimate by
// linear extrapolation from elapsed time.
func progressAt(start time.Time, progress float64, stage domain.ProcessingStage) domain.ProcessingProgress {
	p := domain.ProcessingProgress{Progress: progress, Stage: stage}
	if progress > 0 && progress < 1 {
		elapsed := time.Since(start)
		p.TimeRemaining = int64(float64(elapsed) * (1 - progress) / progress / float64(time.Millisecond))
	}
	return p
}
