// Package browser provides shared test utilities for Playwright browser tests
// of the TaskFlow AI web UI. All browser test files use TestEnv via
// SetupTestEnv(t).
package browser

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/taskflowai/taskflow-e2e/internal/stubapp"
)

const (
	// CODING AGENT RULE: Always use these timeout constants for browser tests.
	// Never introduce a larger timeout value anywhere in tests/browser, with
	// the single exception of the auth bootstrap readiness wait below.
	browserMaxTimeoutMS = 5000
	browserMaxTimeout   = 5 * time.Second

	// authReadyTimeoutMS bounds the post-login readiness wait during the
	// one-time auth bootstrap. Exceeding it aborts the whole run.
	authReadyTimeoutMS = 10000

	// networkIdleTimeoutMS bounds the network quiescence wait.
	networkIdleTimeoutMS = 10000
)

var fixtureMu sync.Mutex
var sharedFixture *TestEnv

// TestEnv is the unified test environment for all browser tests. By default
// it serves the embedded TaskFlow fixture pages from an in-process server;
// setting TASKFLOW_BASE_URL points the whole suite at a real deployment
// instead.
type TestEnv struct {
	BaseURL  string
	External bool

	// Credentials the auth bootstrap submits when a login form is present.
	Email    string
	Password string

	App    *stubapp.App
	server *httptest.Server

	pw        *playwright.Playwright
	browser   playwright.Browser
	browserMu sync.Mutex

	authMu        sync.Mutex
	authStatePath string
}

// SetupTestEnv returns the shared test environment, creating it on first use.
func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	fixtureMu.Lock()
	defer fixtureMu.Unlock()

	if sharedFixture != nil {
		return sharedFixture
	}

	env := &TestEnv{
		Email:    envOr("TASKFLOW_TEST_EMAIL", stubapp.DefaultEmail),
		Password: envOr("TASKFLOW_TEST_PASSWORD", stubapp.DefaultPassword),
	}

	if base := os.Getenv("TASKFLOW_BASE_URL"); base != "" {
		env.BaseURL = strings.TrimRight(base, "/")
		env.External = true
	} else {
		app, err := stubapp.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
		if err != nil {
			t.Fatalf("Failed to build fixture app: %v", err)
		}
		app.Email = env.Email
		app.Password = env.Password
		env.App = app
		env.server = httptest.NewServer(app.Handler())
		env.BaseURL = env.server.URL
	}

	sharedFixture = env
	return env
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func cleanupSharedTestEnv() {
	fixtureMu.Lock()
	defer fixtureMu.Unlock()

	if sharedFixture == nil {
		return
	}
	if sharedFixture.browser != nil {
		_ = sharedFixture.browser.Close()
	}
	if sharedFixture.pw != nil {
		_ = sharedFixture.pw.Stop()
	}
	if sharedFixture.server != nil {
		sharedFixture.server.Close()
	}
	sharedFixture = nil
}

func TestMain(m *testing.M) {
	code := m.Run()
	cleanupSharedTestEnv()
	os.Exit(code)
}

// =============================================================================
// Browser lifecycle helpers
// =============================================================================

// InitBrowser initializes Playwright and launches Chromium. Skips the test if
// not available. Set TASKFLOW_HEADFUL=1 to watch the browser.
func (env *TestEnv) InitBrowser(t *testing.T) {
	t.Helper()

	env.browserMu.Lock()
	defer env.browserMu.Unlock()

	if env.browser != nil {
		return
	}

	pw, err := playwright.Run()
	if err != nil {
		t.Skip("Playwright not available:", err)
	}

	headless := os.Getenv("TASKFLOW_HEADFUL") == ""
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
	})
	if err != nil {
		_ = pw.Stop()
		t.Skip("Could not launch browser:", err)
	}
	env.pw = pw
	env.browser = browser
}

// NewPage creates a new browser page with default 5s timeout.
func (env *TestEnv) NewPage(t *testing.T) playwright.Page {
	t.Helper()

	page, err := env.browser.NewPage()
	if err != nil {
		t.Fatalf("could not create page: %v", err)
	}
	page.SetDefaultTimeout(browserMaxTimeoutMS)
	page.SetDefaultNavigationTimeout(browserMaxTimeoutMS)
	return page
}

// NewContext creates a new browser context.
func (env *TestEnv) NewContext(t *testing.T) playwright.BrowserContext {
	t.Helper()

	ctx, err := env.browser.NewContext()
	if err != nil {
		t.Fatalf("could not create browser context: %v", err)
	}
	ctx.SetDefaultTimeout(browserMaxTimeoutMS)
	ctx.SetDefaultNavigationTimeout(browserMaxTimeoutMS)
	return ctx
}

// NewAuthedContext creates a browser context preloaded with the persisted
// signed-in session state, running the auth bootstrap first if needed.
func (env *TestEnv) NewAuthedContext(t *testing.T) playwright.BrowserContext {
	t.Helper()

	statePath := env.EnsureAuthState(t)
	ctx, err := env.browser.NewContext(playwright.BrowserNewContextOptions{
		StorageStatePath: playwright.String(statePath),
	})
	if err != nil {
		t.Fatalf("could not create authed browser context: %v", err)
	}
	ctx.SetDefaultTimeout(browserMaxTimeoutMS)
	ctx.SetDefaultNavigationTimeout(browserMaxTimeoutMS)
	return ctx
}

// NewPageInContext creates a page inside ctx with the default timeouts set.
func NewPageInContext(t *testing.T, ctx playwright.BrowserContext) playwright.Page {
	t.Helper()

	page, err := ctx.NewPage()
	if err != nil {
		t.Fatalf("could not create page in context: %v", err)
	}
	page.SetDefaultTimeout(browserMaxTimeoutMS)
	page.SetDefaultNavigationTimeout(browserMaxTimeoutMS)
	return page
}

// =============================================================================
// Navigation and wait helpers
// =============================================================================

// Navigate navigates to a path on the app under test and waits for
// DOMContentLoaded.
func Navigate(t *testing.T, page playwright.Page, baseURL, path string) {
	t.Helper()

	_, err := page.Goto(baseURL+path, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(browserMaxTimeoutMS),
	})
	if err != nil {
		t.Fatalf("Failed to navigate to %s: %v", path, err)
	}
}

// WaitForSelector waits for an element to be visible and returns its locator.
// Comma-separated selectors keep first-match-wins, any-of semantics.
func WaitForSelector(t *testing.T, page playwright.Page, selector string) playwright.Locator {
	t.Helper()

	locator := page.Locator(selector)
	first := locator.First()
	err := first.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(browserMaxTimeoutMS),
	})
	if err != nil {
		currentURL := page.URL()
		title, _ := page.Title()
		content, _ := page.Content()
		if len(content) > 500 {
			content = content[:500] + "..."
		}
		t.Logf("Current URL: %s", currentURL)
		t.Logf("Current title: %s", title)
		t.Logf("Content preview: %s", content)
		t.Fatalf("Failed to wait for selector %s: %v", selector, err)
	}
	return first
}

// =============================================================================
// Screenshot helpers
// =============================================================================

var screenshotNameRe = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// sanitizeScreenshotName turns an arbitrary label into a filesystem-safe
// filename fragment.
func sanitizeScreenshotName(name string) string {
	cleaned := screenshotNameRe.ReplaceAllString(name, "-")
	return strings.Trim(cleaned, "-")
}

// CaptureScreenshot writes a screenshot named after label plus a timestamp
// under screenshots/.
func CaptureScreenshot(t *testing.T, page playwright.Page, label string) string {
	t.Helper()

	name := sanitizeScreenshotName(label) + "-" + time.Now().UTC().Format("20060102T150405")
	path := "screenshots/" + name + ".png"
	if err := os.MkdirAll("screenshots", 0o755); err != nil {
		t.Fatalf("Failed to create screenshots dir: %v", err)
	}
	if _, err := page.Screenshot(playwright.PageScreenshotOptions{
		Path: playwright.String(path),
	}); err != nil {
		t.Fatalf("Failed to capture screenshot %s: %v", path, err)
	}
	return path
}
