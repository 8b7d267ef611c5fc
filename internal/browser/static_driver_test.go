package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfinder-cli/internal/agent"
	"github.com/xkilldash9x/wayfinder-cli/internal/config"
)

const homePage = `<!DOCTYPE html>
<html><head><title>Acme Store</title></head>
<body>
<header><nav><a href="/">Home</a><a href="/pricing">Pricing</a><a href="/help">Help Center</a></nav></header>
<h1>Welcome to Acme</h1>
<h2>Everything in one place</h2>
<form action="/search" method="get">
  <input type="search" name="q" placeholder="Search the store">
  <input type="submit" value="Go">
</form>
<a href="/signup">Create an account</a>
</body></html>`

const pricingPage = `<!DOCTYPE html>
<html><head><title>Pricing</title></head>
<body><h1>Pricing</h1><p>Pro plan: $10/mo</p><a href="/">Home</a></body></html>`

const signupPage = `<!DOCTYPE html>
<html><head><title>Sign up</title></head>
<body><h1>Create account</h1>
<form action="/register" method="post">
  <input type="text" name="email" placeholder="Email address">
  <select name="plan"><option>Free</option><option>Pro</option></select>
  <button type="submit">Register</button>
</form>
</body></html>`

func newStaticTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, homePage)
	})
	mux.HandleFunc("/pricing", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, pricingPage)
	})
	mux.HandleFunc("/signup", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, signupPage)
	})
	mux.HandleFunc("/help", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Help</title></head><body><h1>Help Center</h1></body></html>`)
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><head><title>Results</title></head><body><h1>Results for %s</h1></body></html>`, r.URL.Query().Get("q"))
	})
	mux.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		fmt.Fprintf(w, `<html><head><title>Done</title></head><body><h1>Welcome %s on plan %s</h1></body></html>`,
			r.PostFormValue("email"), r.PostFormValue("plan"))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestStaticDriver(t *testing.T, server *httptest.Server) *StaticDriver {
	t.Helper()
	driver := NewStaticDriver(config.BrowserConfig{
		Mode:              "static",
		NavigationTimeout: 10 * time.Second,
	}, zap.NewNop())
	require.NoError(t, driver.Navigate(context.Background(), server.URL+"/"))
	return driver
}

func TestStaticDriver_Observe(t *testing.T) {
	server := newStaticTestServer(t)
	driver := newTestStaticDriver(t, server)

	obs, err := driver.Observe(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Acme Store", obs.Title)
	assert.Equal(t, []string{"Welcome to Acme", "Everything in one place"}, obs.Headings)
	assert.Contains(t, obs.NavLinks, "Pricing")
	assert.True(t, obs.HasSearch)
	assert.True(t, obs.HasHelp)
	assert.NotEmpty(t, obs.Interactive)
}

func TestStaticDriver_ClickLinkByText(t *testing.T) {
	server := newStaticTestServer(t)
	driver := newTestStaticDriver(t, server)

	notes, err := driver.Execute(context.Background(), agent.Action{Type: agent.ActionClick, Target: "Pricing"})
	require.NoError(t, err)
	assert.Contains(t, notes, "followed link")

	current, err := driver.CurrentURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/pricing", current)
}

func TestStaticDriver_ClickByRef(t *testing.T) {
	server := newStaticTestServer(t)
	driver := newTestStaticDriver(t, server)

	obs, err := driver.Observe(context.Background())
	require.NoError(t, err)

	var signupRef string
	for _, el := range obs.Interactive {
		if el.Name == "Create an account" {
			signupRef = el.Ref
		}
	}
	require.NotEmpty(t, signupRef)

	_, err = driver.Execute(context.Background(), agent.Action{Type: agent.ActionClick, Target: signupRef})
	require.NoError(t, err)

	current, _ := driver.CurrentURL(context.Background())
	assert.Equal(t, server.URL+"/signup", current)
}

func TestStaticDriver_Back(t *testing.T) {
	server := newStaticTestServer(t)
	driver := newTestStaticDriver(t, server)

	_, err := driver.Execute(context.Background(), agent.Action{Type: agent.ActionClick, Target: "Pricing"})
	require.NoError(t, err)

	notes, err := driver.Execute(context.Background(), agent.Action{Type: agent.ActionBack})
	require.NoError(t, err)
	assert.Contains(t, notes, "navigated back")

	current, _ := driver.CurrentURL(context.Background())
	assert.Equal(t, server.URL+"/", current)
}

func TestStaticDriver_BackWithoutHistoryFails(t *testing.T) {
	server := newStaticTestServer(t)
	driver := newTestStaticDriver(t, server)

	_, err := driver.Execute(context.Background(), agent.Action{Type: agent.ActionBack})
	assert.Error(t, err)
}

func TestStaticDriver_Search(t *testing.T) {
	server := newStaticTestServer(t)
	driver := newTestStaticDriver(t, server)

	notes, err := driver.Execute(context.Background(), agent.Action{Type: agent.ActionSearch, Query: "widgets"})
	require.NoError(t, err)
	assert.Contains(t, notes, "widgets")

	obs, err := driver.Observe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Results for widgets"}, obs.Headings)
}

func TestStaticDriver_OpenHelp(t *testing.T) {
	server := newStaticTestServer(t)
	driver := newTestStaticDriver(t, server)

	_, err := driver.Execute(context.Background(), agent.Action{Type: agent.ActionOpenHelp})
	require.NoError(t, err)

	obs, _ := driver.Observe(context.Background())
	assert.Equal(t, "Help", obs.Title)
}

func TestStaticDriver_FormFillAndSubmit(t *testing.T) {
	server := newStaticTestServer(t)
	driver := newTestStaticDriver(t, server)

	_, err := driver.Execute(context.Background(), agent.Action{Type: agent.ActionClick, Target: "Create an account"})
	require.NoError(t, err)

	_, err = driver.Execute(context.Background(), agent.Action{Type: agent.ActionFill, Target: "Email address", Value: "jane@acme.test"})
	require.NoError(t, err)

	_, err = driver.Execute(context.Background(), agent.Action{Type: agent.ActionSelect, Target: "plan", Option: "pro"})
	require.NoError(t, err)

	_, err = driver.Execute(context.Background(), agent.Action{Type: agent.ActionClick, Target: "Register"})
	require.NoError(t, err)

	obs, err := driver.Observe(context.Background())
	require.NoError(t, err)
	require.Len(t, obs.Headings, 1)
	assert.Equal(t, "Welcome jane@acme.test on plan Pro", obs.Headings[0])
}

func TestStaticDriver_FailedRequestTracking(t *testing.T) {
	server := newStaticTestServer(t)
	driver := newTestStaticDriver(t, server)

	require.NoError(t, driver.Navigate(context.Background(), server.URL+"/missing"))

	issues := driver.DrainPageIssues()
	require.Len(t, issues.FailedRequests, 1)
	assert.Contains(t, issues.FailedRequests[0], "404")

	// Draining clears the buffer.
	assert.Empty(t, driver.DrainPageIssues().FailedRequests)
}

func TestStaticDriver_UnknownTargetFails(t *testing.T) {
	server := newStaticTestServer(t)
	driver := newTestStaticDriver(t, server)

	_, err := driver.Execute(context.Background(), agent.Action{Type: agent.ActionClick, Target: "Nonexistent Button"})
	assert.Error(t, err)
}
