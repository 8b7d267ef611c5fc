// internal/browser/static_driver.go
package browser

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/wayfinder-cli/api/schemas"
	"github.com/xkilldash9x/wayfinder-cli/internal/agent"
	"github.com/xkilldash9x/wayfinder-cli/internal/config"
)

// StaticDriver explores server-rendered sites over plain HTTP. No JS runs,
// so console errors are never produced; failed same-origin responses are
// still tracked. It keeps its own history stack to honor back actions.
type StaticDriver struct {
	logger *zap.Logger
	cfg    config.BrowserConfig
	client *http.Client

	mu             sync.Mutex
	originHost     string
	history        []string
	page           *staticPage
	failedRequests []string
}

// staticPage is the parsed state of the current document.
type staticPage struct {
	url      *url.URL
	obs      schemas.PageObservation
	elements map[string]*staticElement
	// values filled by the agent, keyed by ref; submitted with the form.
	filled map[string]string
}

// staticElement is one interactive node plus what the driver needs to act
// on it.
type staticElement struct {
	ref     string
	role    string
	name    string
	href    string
	form    *html.Node
	node    *html.Node
	options []string
}

// NewStaticDriver builds the HTTP driver. It is immediately usable; the
// first Navigate establishes the origin.
func NewStaticDriver(cfg config.BrowserConfig, logger *zap.Logger) *StaticDriver {
	timeout := cfg.NavigationTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := &http.Transport{}
	if cfg.IgnoreTLSErrors {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &StaticDriver{
		logger: logger.Named("static_driver"),
		cfg:    cfg,
		client: &http.Client{Timeout: timeout, Transport: transport},
	}
}

func (d *StaticDriver) Navigate(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid target URL %q: %w", rawURL, err)
	}
	d.mu.Lock()
	d.originHost = u.Host
	d.mu.Unlock()

	if err := d.fetch(ctx, rawURL); err != nil {
		return err
	}
	d.mu.Lock()
	d.history = append(d.history, d.page.url.String())
	d.mu.Unlock()
	return nil
}

func (d *StaticDriver) Observe(ctx context.Context) (schemas.PageObservation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.page == nil {
		return schemas.PageObservation{}, fmt.Errorf("no page loaded")
	}
	return d.page.obs, nil
}

func (d *StaticDriver) Execute(ctx context.Context, action agent.Action) (string, error) {
	switch action.Type {
	case agent.ActionClick:
		return d.click(ctx, action.Target)
	case agent.ActionFill:
		return d.fill(action.Target, action.Value)
	case agent.ActionSelect:
		return d.selectOption(action.Target, action.Option)
	case agent.ActionScroll:
		// The whole document is already parsed; scrolling is meaningless.
		return "scrolled " + action.Direction + " (static page, no effect)", nil
	case agent.ActionBack:
		return d.back(ctx)
	case agent.ActionWait:
		select {
		case <-time.After(time.Duration(action.Ms) * time.Millisecond):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		return fmt.Sprintf("waited %dms", action.Ms), nil
	case agent.ActionSearch:
		return d.search(ctx, action.Query)
	case agent.ActionOpenHelp:
		return d.openHelp(ctx)
	default:
		return "", agent.Errorf(agent.ErrCodeUnknownAction, "unsupported action type %q", action.Type)
	}
}

func (d *StaticDriver) WaitSettle(ctx context.Context) agent.SettleResult {
	return agent.SettleResult{Status: agent.SettleOK}
}

func (d *StaticDriver) CurrentURL(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.page == nil {
		return "", fmt.Errorf("no page loaded")
	}
	return d.page.url.String(), nil
}

// Screenshot is not available without a rendering engine.
func (d *StaticDriver) Screenshot(ctx context.Context, name string) (string, error) {
	return "", nil
}

func (d *StaticDriver) DrainPageIssues() agent.PageIssues {
	d.mu.Lock()
	defer d.mu.Unlock()
	issues := agent.PageIssues{FailedRequests: d.failedRequests}
	d.failedRequests = nil
	return issues
}

func (d *StaticDriver) Close(ctx context.Context) error {
	d.client.CloseIdleConnections()
	return nil
}

// -- Action implementations --

func (d *StaticDriver) click(ctx context.Context, target string) (string, error) {
	el, err := d.resolve(target)
	if err != nil {
		return "", err
	}

	if el.href != "" {
		dest, err := d.absoluteURL(el.href)
		if err != nil {
			return "", err
		}
		if err := d.navigateTo(ctx, dest); err != nil {
			return "", err
		}
		return fmt.Sprintf("followed link %q", el.name), nil
	}

	if el.form != nil && (el.role == "button" || el.role == "submit") {
		return d.submitForm(ctx, el.form)
	}
	return fmt.Sprintf("clicked %q (no navigation on a static page)", el.name), nil
}

func (d *StaticDriver) fill(target, value string) (string, error) {
	el, err := d.resolve(target)
	if err != nil {
		return "", err
	}
	d.mu.Lock()
	d.page.filled[el.ref] = value
	d.mu.Unlock()
	return fmt.Sprintf("filled %s with %q", el.ref, value), nil
}

func (d *StaticDriver) selectOption(target, option string) (string, error) {
	el, err := d.resolve(target)
	if err != nil {
		return "", err
	}
	for _, opt := range el.options {
		if strings.EqualFold(strings.TrimSpace(opt), strings.TrimSpace(option)) {
			d.mu.Lock()
			d.page.filled[el.ref] = opt
			d.mu.Unlock()
			return fmt.Sprintf("selected option %q", opt), nil
		}
	}
	return "", agent.Errorf(agent.ErrCodeElementNotFound, "no option %q on %s", option, el.ref)
}

func (d *StaticDriver) back(ctx context.Context) (string, error) {
	d.mu.Lock()
	if len(d.history) < 2 {
		d.mu.Unlock()
		return "", fmt.Errorf("no earlier page in history")
	}
	d.history = d.history[:len(d.history)-1]
	prev := d.history[len(d.history)-1]
	d.mu.Unlock()

	if err := d.fetch(ctx, prev); err != nil {
		return "", err
	}
	return "navigated back to " + prev, nil
}

func (d *StaticDriver) search(ctx context.Context, query string) (string, error) {
	d.mu.Lock()
	var input *staticElement
	for _, el := range d.page.obs.Interactive {
		if candidate := d.page.elements[el.Ref]; candidate.role == "searchbox" {
			input = candidate
			break
		}
	}
	if input == nil {
		d.mu.Unlock()
		return "", agent.Errorf(agent.ErrCodeFeatureUnavailable, "no search input on this page")
	}
	d.page.filled[input.ref] = query
	form := input.form
	d.mu.Unlock()

	if form == nil {
		return "", fmt.Errorf("search input has no form to submit")
	}
	if _, err := d.submitForm(ctx, form); err != nil {
		return "", err
	}
	return fmt.Sprintf("searched for %q", query), nil
}

func (d *StaticDriver) openHelp(ctx context.Context) (string, error) {
	d.mu.Lock()
	var help *staticElement
	for _, el := range d.page.obs.Interactive {
		candidate := d.page.elements[el.Ref]
		if candidate.href == "" {
			continue
		}
		probe := strings.ToLower(candidate.name + " " + candidate.href)
		if strings.Contains(probe, "help") || strings.Contains(probe, "support") || strings.Contains(probe, "faq") {
			help = candidate
			break
		}
	}
	d.mu.Unlock()

	if help == nil {
		return "", agent.Errorf(agent.ErrCodeFeatureUnavailable, "no help link on this page")
	}
	dest, err := d.absoluteURL(help.href)
	if err != nil {
		return "", err
	}
	if err := d.navigateTo(ctx, dest); err != nil {
		return "", err
	}
	return fmt.Sprintf("opened help page %q", help.name), nil
}

// -- Fetching and parsing --

// navigateTo fetches a destination reached by an action and records it in
// the history stack.
func (d *StaticDriver) navigateTo(ctx context.Context, dest string) error {
	if err := d.fetch(ctx, dest); err != nil {
		return err
	}
	d.mu.Lock()
	d.history = append(d.history, d.page.url.String())
	d.mu.Unlock()
	return nil
}

func (d *StaticDriver) fetch(ctx context.Context, rawURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("building request for %q: %w", rawURL, err)
	}
	return d.doRequest(req)
}

func (d *StaticDriver) doRequest(req *http.Request) error {
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("request to %q failed: %w", req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		d.mu.Lock()
		if d.originHost == "" || resp.Request.URL.Host == d.originHost {
			d.failedRequests = append(d.failedRequests,
				fmt.Sprintf("%s %s -> %d", req.Method, resp.Request.URL, resp.StatusCode))
		}
		d.mu.Unlock()
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("reading response from %q: %w", req.URL, err)
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("parsing HTML from %q: %w", req.URL, err)
	}

	page := parsePage(resp.Request.URL, doc)

	d.mu.Lock()
	d.page = page
	d.mu.Unlock()
	return nil
}

func (d *StaticDriver) submitForm(ctx context.Context, form *html.Node) (string, error) {
	d.mu.Lock()
	page := d.page
	action := nodeAttr(form, "action")
	method := strings.ToUpper(nodeAttr(form, "method"))

	values := url.Values{}
	for _, el := range page.elements {
		if el.form != form {
			continue
		}
		name := nodeAttr(el.node, "name")
		if name == "" {
			continue
		}
		if v, ok := page.filled[el.ref]; ok {
			values.Set(name, v)
		} else if v := nodeAttr(el.node, "value"); v != "" {
			values.Set(name, v)
		}
	}
	d.mu.Unlock()

	dest, err := d.absoluteURL(action)
	if err != nil {
		return "", err
	}

	var req *http.Request
	if method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, dest, strings.NewReader(values.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		target := dest
		if encoded := values.Encode(); encoded != "" {
			if strings.Contains(dest, "?") {
				target = dest + "&" + encoded
			} else {
				target = dest + "?" + encoded
			}
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	}
	if err != nil {
		return "", fmt.Errorf("building form submission: %w", err)
	}

	if err := d.doRequest(req); err != nil {
		return "", err
	}
	d.mu.Lock()
	d.history = append(d.history, d.page.url.String())
	d.mu.Unlock()
	return "submitted form", nil
}

// resolve finds the element for an action target: exact ref first, then a
// case-insensitive name match, then a substring match.
func (d *StaticDriver) resolve(target string) (*staticElement, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.page == nil {
		return nil, fmt.Errorf("no page loaded")
	}

	if el, ok := d.page.elements[target]; ok {
		return el, nil
	}

	want := strings.ToLower(strings.TrimSpace(target))
	var partial *staticElement
	for _, el := range d.page.obs.Interactive {
		candidate := d.page.elements[el.Ref]
		name := strings.ToLower(candidate.name)
		if name == want ||
			strings.EqualFold(nodeAttr(candidate.node, "name"), want) ||
			strings.EqualFold(nodeAttr(candidate.node, "id"), want) {
			return candidate, nil
		}
		if partial == nil && len(want) >= 3 && strings.Contains(name, want) {
			partial = candidate
		}
	}
	if partial != nil {
		return partial, nil
	}
	return nil, agent.Errorf(agent.ErrCodeElementNotFound, "no element matched target %q", target)
}

func (d *StaticDriver) absoluteURL(href string) (string, error) {
	d.mu.Lock()
	base := d.page.url
	d.mu.Unlock()

	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid href %q: %w", href, err)
	}
	return base.ResolveReference(ref).String(), nil
}
