package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/timmy/gifforge/internal/domain"
)

// fontSpec describes one font asset: a remote path under the configured
// asset base URL and embedded bytes used when the fetch fails.
type fontSpec struct {
	weight   domain.FontWeight
	file     string
	remote   string
	embedded []byte
}

var fontSpecs = []fontSpec{
	{weight: domain.WeightNormal, file: "regular.ttf", remote: "fonts/regular.ttf", embedded: goregular.TTF},
	{weight: domain.WeightBold, file: "bold.ttf", remote: "fonts/bold.ttf", embedded: gobold.TTF},
}

// stageFonts materializes the font assets into the engine's font directory.
// Individual failures are logged and tolerated; only staging nothing at all
// is an error.
// Parameters:
//   - ctx: context for the remote fetches.
//
// Returns:
//   - map[domain.FontWeight]string: staged font paths by weight.
//   - error: non-nil when no font could be staged.
func (e *Engine) stageFonts(ctx context.Context) (map[domain.FontWeight]string, error) {
	dir := filepath.Join(e.cfg.WorkDir, "fonts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	staged := make(map[domain.FontWeight]string, len(fontSpecs))
	for _, spec := range fontSpecs {
		data := spec.embedded
		if e.cfg.FontBaseURL != "" {
			resp, err := e.client.R().SetContext(ctx).Get(e.cfg.FontBaseURL + "/" + spec.remote)
			if err == nil && !resp.IsError() && len(resp.Body()) > 0 {
				data = resp.Body()
			} else {
				e.log.WithField("font", spec.file).Warn("font asset fetch failed, using embedded font")
			}
		}

		path := filepath.Join(dir, spec.file)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			e.log.WithError(err).WithField("font", spec.file).Warn("could not stage font asset")
			continue
		}
		staged[spec.weight] = path
	}

	if len(staged) == 0 {
		return nil, domain.NewProcessingError("no font assets could be staged", nil)
	}
	return staged, nil
}

// fontFiles guards access to the staged font map.
type fontFiles struct {
	mu    sync.RWMutex
	paths map[domain.FontWeight]string
}

func (f *fontFiles) set(paths map[domain.FontWeight]string) {
	f.mu.Lock()
	f.paths = paths
	f.mu.Unlock()
}

// resolve returns the staged path for a weight, falling back to the normal
// weight, or "" when nothing is staged.
func (f *fontFiles) resolve(weight domain.FontWeight) string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if path, ok := f.paths[weight]; ok {
		return path
	}
	return f.paths[domain.WeightNormal]
}
