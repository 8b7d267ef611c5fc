// Package browser provides the page drivers behind the decision loop: a
// chromedp-backed driver for real Chrome sessions and a static HTTP driver
// for JS-free targets and tests.
package browser

import (
	"context"
	"fmt"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfinder-cli/api/schemas"
	"github.com/xkilldash9x/wayfinder-cli/internal/agent"
	"github.com/xkilldash9x/wayfinder-cli/internal/config"
)

// New builds the driver selected by configuration.
func New(ctx context.Context, cfg config.BrowserConfig, screenshotDir string, logger *zap.Logger) (agent.Driver, error) {
	switch cfg.Mode {
	case "chromedp", "":
		return NewChromedpDriver(ctx, cfg, screenshotDir, logger)
	case "static":
		return NewStaticDriver(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown browser mode %q (want chromedp or static)", cfg.Mode)
	}
}

func unmarshalObservation(raw string, obs *schemas.PageObservation) error {
	if err := json.Unmarshal([]byte(raw), obs); err != nil {
		return fmt.Errorf("observation payload is not valid JSON: %w", err)
	}
	truncateObservation(obs)
	return nil
}

// truncateObservation enforces the observation size bounds regardless of
// what the in-page script produced.
func truncateObservation(obs *schemas.PageObservation) {
	if len(obs.Headings) > schemas.MaxHeadings {
		obs.Headings = obs.Headings[:schemas.MaxHeadings]
	}
	if len(obs.NavLinks) > schemas.MaxNavLinks {
		obs.NavLinks = obs.NavLinks[:schemas.MaxNavLinks]
	}
	if len(obs.Interactive) > schemas.MaxInteractive {
		obs.Interactive = obs.Interactive[:schemas.MaxInteractive]
	}
}
