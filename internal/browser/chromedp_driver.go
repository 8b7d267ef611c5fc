// internal/browser/chromedp_driver.go
package browser

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/log"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfinder-cli/api/schemas"
	"github.com/xkilldash9x/wayfinder-cli/internal/agent"
	"github.com/xkilldash9x/wayfinder-cli/internal/config"
)

// ChromedpDriver drives a real Chrome instance over CDP. One driver owns one
// tab and serves exactly one run.
type ChromedpDriver struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	allocCancel context.CancelFunc
	tabCancel   context.CancelFunc
	tabCtx      context.Context

	screenshotDir string

	// Event buffers filled by the CDP listener and drained once per step.
	mu             sync.Mutex
	originHost     string
	consoleErrors  []string
	failedRequests []string
}

// NewChromedpDriver launches the browser and attaches the event listeners.
// The caller owns the driver and must Close it.
func NewChromedpDriver(ctx context.Context, cfg config.BrowserConfig, screenshotDir string, logger *zap.Logger) (*ChromedpDriver, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("mute-audio", true),
	)
	if cfg.IgnoreTLSErrors {
		opts = append(opts, chromedp.Flag("ignore-certificate-errors", true))
	}
	for _, arg := range cfg.Args {
		name, value, found := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if found {
			opts = append(opts, chromedp.Flag(name, value))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	d := &ChromedpDriver{
		logger:        logger.Named("chromedp_driver"),
		cfg:           cfg,
		allocCancel:   allocCancel,
		tabCancel:     tabCancel,
		tabCtx:        tabCtx,
		screenshotDir: screenshotDir,
	}

	d.listen()

	if err := chromedp.Run(tabCtx, network.Enable(), runtime.Enable(), log.Enable()); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	d.logger.Info("Browser launched", zap.Bool("headless", cfg.Headless))
	return d, nil
}

// listen routes the CDP events that matter for diagnostics into the step
// buffers: console errors and warnings, uncaught exceptions, and same-origin
// responses with status >= 400.
func (d *ChromedpDriver) listen() {
	chromedp.ListenTarget(d.tabCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *runtime.EventConsoleAPICalled:
			if e.Type != runtime.APITypeError && e.Type != runtime.APITypeWarning {
				return
			}
			parts := make([]string, 0, len(e.Args))
			for _, arg := range e.Args {
				if len(arg.Value) > 0 {
					parts = append(parts, strings.Trim(string(arg.Value), `"`))
				}
			}
			d.recordConsoleError(fmt.Sprintf("console.%s: %s", e.Type, strings.Join(parts, " ")))

		case *runtime.EventExceptionThrown:
			if e.ExceptionDetails != nil {
				d.recordConsoleError("uncaught exception: " + e.ExceptionDetails.Text)
			}

		case *log.EventEntryAdded:
			if e.Entry != nil && e.Entry.Level == log.LevelError {
				d.recordConsoleError(fmt.Sprintf("%s: %s", e.Entry.Source, e.Entry.Text))
			}

		case *network.EventResponseReceived:
			d.handleResponse(e)
		}
	})
}

func (d *ChromedpDriver) recordConsoleError(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.consoleErrors = append(d.consoleErrors, msg)
}

func (d *ChromedpDriver) handleResponse(e *network.EventResponseReceived) {
	if e.Response == nil || e.Response.Status < 400 {
		return
	}
	u, err := url.Parse(e.Response.URL)
	if err != nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	// Third-party noise (trackers, CDNs) is not the target's bug.
	if d.originHost != "" && u.Host != d.originHost {
		return
	}
	d.failedRequests = append(d.failedRequests,
		fmt.Sprintf("%s -> %d", e.Response.URL, int(e.Response.Status)))
}

// Navigate loads the target URL and pins the run's origin host for the
// same-origin failed-request filter.
func (d *ChromedpDriver) Navigate(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid target URL %q: %w", rawURL, err)
	}

	d.mu.Lock()
	d.originHost = u.Host
	d.mu.Unlock()

	navCtx, cancel := context.WithTimeout(d.tabCtx, d.cfg.NavigationTimeout)
	defer cancel()

	if err := chromedp.Run(navCtx, chromedp.Navigate(rawURL)); err != nil {
		return agent.NewExecError(agent.ErrCodeNavigationError, fmt.Errorf("navigation to %q failed: %w", rawURL, err))
	}
	return nil
}

// Observe evaluates the observation script in the page and decodes its
// JSON result.
func (d *ChromedpDriver) Observe(ctx context.Context) (schemas.PageObservation, error) {
	var raw string
	evalCtx, cancel := context.WithTimeout(d.tabCtx, d.cfg.NavigationTimeout)
	defer cancel()

	if err := chromedp.Run(evalCtx, chromedp.Evaluate(observeScript, &raw)); err != nil {
		return schemas.PageObservation{}, fmt.Errorf("observation script failed: %w", err)
	}

	var obs schemas.PageObservation
	if err := unmarshalObservation(raw, &obs); err != nil {
		return schemas.PageObservation{}, err
	}
	return obs, nil
}

// Execute performs one canonical action against the page.
func (d *ChromedpDriver) Execute(ctx context.Context, action agent.Action) (string, error) {
	execCtx, cancel := context.WithTimeout(d.tabCtx, d.cfg.NavigationTimeout)
	defer cancel()

	switch action.Type {
	case agent.ActionClick:
		sel, err := d.resolveTarget(execCtx, action.Target)
		if err != nil {
			return "", err
		}
		if err := chromedp.Run(execCtx, chromedp.Click(sel, chromedp.ByQuery)); err != nil {
			return "", fmt.Errorf("click on %q failed: %w", action.Target, err)
		}
		return "clicked " + action.Target, nil

	case agent.ActionFill:
		sel, err := d.resolveTarget(execCtx, action.Target)
		if err != nil {
			return "", err
		}
		err = chromedp.Run(execCtx,
			chromedp.Focus(sel, chromedp.ByQuery),
			chromedp.SetValue(sel, "", chromedp.ByQuery),
			chromedp.SendKeys(sel, action.Value, chromedp.ByQuery),
		)
		if err != nil {
			return "", fmt.Errorf("fill of %q failed: %w", action.Target, err)
		}
		return fmt.Sprintf("filled %s with %q", action.Target, action.Value), nil

	case agent.ActionSelect:
		sel, err := d.resolveTarget(execCtx, action.Target)
		if err != nil {
			return "", err
		}
		script := fmt.Sprintf(selectOptionScript, jsString(sel), jsString(action.Option))
		result, err := d.evalString(execCtx, script)
		if err != nil {
			return "", fmt.Errorf("select on %q failed: %w", action.Target, err)
		}
		if strings.HasPrefix(result, "no ") {
			return "", fmt.Errorf("select on %q: %s", action.Target, result)
		}
		return result, nil

	case agent.ActionScroll:
		dy := "window.innerHeight * 0.8"
		if action.Direction == "up" {
			dy = "-window.innerHeight * 0.8"
		}
		if err := chromedp.Run(execCtx, chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %s); ''", dy), nil)); err != nil {
			return "", fmt.Errorf("scroll failed: %w", err)
		}
		return "scrolled " + action.Direction, nil

	case agent.ActionBack:
		if err := chromedp.Run(execCtx, chromedp.NavigateBack()); err != nil {
			return "", fmt.Errorf("history back failed: %w", err)
		}
		return "navigated back", nil

	case agent.ActionWait:
		select {
		case <-time.After(time.Duration(action.Ms) * time.Millisecond):
		case <-execCtx.Done():
			return "", execCtx.Err()
		}
		return fmt.Sprintf("waited %dms", action.Ms), nil

	case agent.ActionSearch:
		script := fmt.Sprintf("(%s)(%s)", strings.TrimSpace(searchSubmitScript), jsString(action.Query))
		result, err := d.evalString(execCtx, script)
		if err != nil {
			return "", fmt.Errorf("search failed: %w", err)
		}
		if result == "no search input found" {
			return "", agent.Errorf(agent.ErrCodeFeatureUnavailable, "search failed: %s", result)
		}
		return result, nil

	case agent.ActionOpenHelp:
		result, err := d.evalString(execCtx, helpLinkScript)
		if err != nil {
			return "", fmt.Errorf("open_help failed: %w", err)
		}
		if result == "no help link found" {
			return "", agent.Errorf(agent.ErrCodeFeatureUnavailable, "open_help failed: %s", result)
		}
		return result, nil

	default:
		return "", agent.Errorf(agent.ErrCodeUnknownAction, "unsupported action type %q", action.Type)
	}
}

// resolveTarget turns an action target into a usable CSS selector.
// Observation refs map straight to the tagged attribute; anything else goes
// through an in-page resolution chain (visible text, label, raw selector)
// that tags the match so chromedp can address it.
func (d *ChromedpDriver) resolveTarget(ctx context.Context, target string) (string, error) {
	if strings.HasPrefix(target, "el_") {
		return fmt.Sprintf(`[data-wf-ref=%q]`, target), nil
	}

	script := fmt.Sprintf("(%s)(%s)", strings.TrimSpace(resolveTargetScript), jsString(target))
	result, err := d.evalString(ctx, script)
	if err != nil {
		return "", fmt.Errorf("target resolution for %q failed: %w", target, err)
	}
	if result != "resolved" {
		return "", agent.Errorf(agent.ErrCodeElementNotFound, "no element matched target %q", target)
	}
	return `[data-wf-resolved="1"]`, nil
}

func (d *ChromedpDriver) evalString(ctx context.Context, script string) (string, error) {
	var result string
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &result)); err != nil {
		return "", err
	}
	return result, nil
}

// WaitSettle blocks until the document is loaded and a short quiet period
// has passed. Best effort: a timeout is reported, not fatal.
func (d *ChromedpDriver) WaitSettle(ctx context.Context) agent.SettleResult {
	settleCtx, cancel := context.WithTimeout(d.tabCtx, d.cfg.NavigationTimeout)
	defer cancel()

	err := chromedp.Run(settleCtx, chromedp.Poll(
		`document.readyState === 'complete' || document.readyState === 'interactive'`,
		nil,
		chromedp.WithPollingInterval(100*time.Millisecond),
	))
	if err != nil {
		if settleCtx.Err() != nil {
			return agent.SettleResult{Status: agent.SettleTimedOut, Detail: "document never reached a ready state"}
		}
		return agent.SettleResult{Status: agent.SettleFailed, Detail: err.Error()}
	}

	select {
	case <-time.After(d.cfg.SettleWait):
	case <-settleCtx.Done():
		return agent.SettleResult{Status: agent.SettleTimedOut, Detail: settleCtx.Err().Error()}
	}
	return agent.SettleResult{Status: agent.SettleOK}
}

func (d *ChromedpDriver) CurrentURL(ctx context.Context) (string, error) {
	var loc string
	urlCtx, cancel := context.WithTimeout(d.tabCtx, 10*time.Second)
	defer cancel()
	if err := chromedp.Run(urlCtx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("failed to read current location: %w", err)
	}
	return loc, nil
}

// Screenshot captures the viewport into the run's artifact directory and
// returns the file path. Disabled captures return an empty path.
func (d *ChromedpDriver) Screenshot(ctx context.Context, name string) (string, error) {
	if !d.cfg.Screenshots || d.screenshotDir == "" {
		return "", nil
	}

	var buf []byte
	shotCtx, cancel := context.WithTimeout(d.tabCtx, 15*time.Second)
	defer cancel()
	if err := chromedp.Run(shotCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return "", fmt.Errorf("screenshot capture failed: %w", err)
	}

	if err := os.MkdirAll(d.screenshotDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create screenshot directory: %w", err)
	}
	path := filepath.Join(d.screenshotDir, name+".png")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	return path, nil
}

// DrainPageIssues returns the buffered diagnostics and clears the buffers
// so each step only reports what happened during it.
func (d *ChromedpDriver) DrainPageIssues() agent.PageIssues {
	d.mu.Lock()
	defer d.mu.Unlock()

	issues := agent.PageIssues{
		ConsoleErrors:  d.consoleErrors,
		FailedRequests: d.failedRequests,
	}
	d.consoleErrors = nil
	d.failedRequests = nil
	return issues
}

func (d *ChromedpDriver) Close(ctx context.Context) error {
	d.tabCancel()
	d.allocCancel()
	d.logger.Debug("Browser closed")
	return nil
}

// jsString renders a Go string as a quoted JS literal.
func jsString(s string) string {
	return fmt.Sprintf("%q", s)
}

// resolveTargetScript implements the non-ref resolution chain: stale ref
// attribute, exact visible text, partial visible text, then raw CSS
// selector. The winning element is tagged for selection.
const resolveTargetScript = `
((target) => {
  for (const el of document.querySelectorAll('[data-wf-resolved]')) {
    el.removeAttribute('data-wf-resolved');
  }
  const tag = (el) => { el.setAttribute('data-wf-resolved', '1'); return 'resolved'; };

  const tagged = document.querySelector('[data-wf-ref="' + target + '"]');
  if (tagged) return tag(tagged);

  const want = target.trim().toLowerCase();
  const candidates = Array.from(document.querySelectorAll('a, button, input, select, textarea, [role="button"], [onclick]'));
  const labelOf = (el) => {
    const aria = el.getAttribute('aria-label');
    if (aria) return aria.trim().toLowerCase();
    if (el.labels && el.labels.length > 0) return el.labels[0].innerText.trim().toLowerCase();
    return ((el.innerText || el.value || el.getAttribute('placeholder') || el.getAttribute('name') || '')).trim().toLowerCase();
  };

  let match = candidates.find((el) => labelOf(el) === want);
  if (!match) match = candidates.find((el) => labelOf(el).includes(want) && want.length >= 3);
  if (match) return tag(match);

  try {
    const bySelector = document.querySelector(target);
    if (bySelector) return tag(bySelector);
  } catch (e) { /* not a selector */ }

  return 'unresolved';
})
`

const selectOptionScript = `
(() => {
  const sel = document.querySelector(%s);
  if (!sel) return 'no select element found';
  const want = %s.toLowerCase();
  for (const opt of sel.options) {
    if (opt.text.trim().toLowerCase() === want || opt.value.toLowerCase() === want) {
      sel.value = opt.value;
      sel.dispatchEvent(new Event('change', { bubbles: true }));
      return 'selected option ' + opt.text.trim();
    }
  }
  return 'no matching option';
})()
`
