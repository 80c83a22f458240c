package service

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/timmy/gifforge/internal/cache"
	"github.com/timmy/gifforge/internal/domain"
	"github.com/timmy/gifforge/internal/logger"
)

// ShareConfig holds shareable link settings.
type ShareConfig struct {
	// TTL is how long a link stays resolvable.
	TTL time.Duration
	// BaseURL is prepended to generated link paths, e.g. "https://gifforge.dev".
	BaseURL string
}

// DefaultShareConfig returns share settings with sensible defaults.
func DefaultShareConfig() ShareConfig {
	return ShareConfig{TTL: 24 * time.Hour}
}

// ShareService creates and resolves expiring shareable links for processed
// GIFs. Links live purely in the share cache; expiry is the cache TTL.
type ShareService struct {
	shares *cache.Cache[*domain.SharedGif]
	cfg    ShareConfig
	logger *logger.Logger
}

// NewShareService creates the share service.
// Parameters:
//   - shares: cache backing link storage.
//   - cfg: share settings.
//   - log: logger instance.
//
// Returns:
//   - *ShareService: initialized service.
func NewShareService(shares *cache.Cache[*domain.SharedGif], cfg ShareConfig, log *logger.Logger) *ShareService {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultShareConfig().TTL
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &ShareService{
		shares: shares,
		cfg:    cfg,
		logger: log.WithField(logger.FieldComponent, "share"),
	}
}

func (s *ShareService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// CreateShareableLink stores the processed GIF under a fresh id and returns
// the share record.
// Parameters:
//   - ctx: context for cancellation.
//   - gif: processed GIF to share.
//
// Returns:
//   - *domain.SharedGif: created share with URL and expiry.
//   - error: non-nil when the GIF is missing required fields.
func (s *ShareService) CreateShareableLink(ctx context.Context, gif *domain.ProcessedGif) (*domain.SharedGif, error) {
	if gif == nil || gif.ProcessedURL == "" {
		return nil, domain.NewValidationError(
			"A processed GIF is required to create a share link.",
			"Process a GIF first, then share it.",
		)
	}

	id := uuid.New().String()
	now := time.Now()
	shared := &domain.SharedGif{
		ID:        id,
		URL:       s.linkFor(id),
		Gif:       *gif,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.TTL),
	}
	s.shares.SetWithTTL("share:"+id, shared, s.cfg.TTL)

	s.log(ctx).WithFields(logger.Fields{
		"share_id":        id,
		logger.FieldGifID: gif.ID,
	}).Info("shareable link created")
	return shared, nil
}

// GetSharedGif resolves a share id and counts the view.
// Parameters:
//   - ctx: context for cancellation.
//   - id: share id.
//
// Returns:
//   - *domain.SharedGif: the share, or nil when unknown or expired.
//   - error: always nil; reserved for future backends.
func (s *ShareService) GetSharedGif(ctx context.Context, id string) (*domain.SharedGif, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	shared, ok := s.shares.Get("share:" + id)
	if !ok {
		return nil, nil
	}
	views := atomic.AddInt64(&shared.ViewCount, 1)
	s.log(ctx).WithFields(logger.Fields{
		"share_id": id,
		"views":    views,
	}).Debug("shared gif viewed")
	return shared, nil
}

func (s *ShareService) linkFor(id string) string {
	base := strings.TrimRight(s.cfg.BaseURL, "/")
	return fmt.Sprintf("%s/api/v1/share/%s", base, id)
}
