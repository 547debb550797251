package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
)

// AuthStatePath is the fixed artifact path holding the serialized signed-in
// browser state (cookies + storage). Written once per run by the auth
// bootstrap, read by every test that needs an authenticated context.
const AuthStatePath = "playwright/.auth/user.json"

// Selectors the bootstrap branches on. Comma-separated alternatives keep the
// first-match-wins, any-of semantics of the locator syntax.
const (
	loginFormSelector     = `[data-testid="login-form"]`
	loginEmailSelector    = `[data-testid="email-input"], input[name="email"], #email`
	loginPasswordSelector = `[data-testid="password-input"], input[name="password"], #password`
	loginSubmitSelector   = `[data-testid="login-submit"], button[type="submit"]`
	dashboardSelector     = `[data-testid="dashboard"]`
	appReadySelector      = `[data-testid="dashboard"], [data-testid="app-root"], main`
)

// EnsureAuthState runs the one-time signed-in bootstrap and returns the
// storage state artifact path. Later calls reuse the artifact. A login or
// readiness timeout is a hard setup failure: every dependent test assumes a
// valid session, so the run aborts rather than proceeding unauthenticated.
func (env *TestEnv) EnsureAuthState(t *testing.T) string {
	t.Helper()

	env.InitBrowser(t)

	env.authMu.Lock()
	defer env.authMu.Unlock()

	if env.authStatePath != "" {
		return env.authStatePath
	}

	if err := env.buildAuthState(); err != nil {
		t.Fatalf("Auth setup failed, aborting run: %v", err)
	}
	env.authStatePath = AuthStatePath
	return env.authStatePath
}

func (env *TestEnv) buildAuthState() error {
	ctx, err := env.browser.NewContext()
	if err != nil {
		return fmt.Errorf("create bootstrap context: %w", err)
	}
	defer ctx.Close()
	ctx.SetDefaultTimeout(authReadyTimeoutMS)

	page, err := ctx.NewPage()
	if err != nil {
		return fmt.Errorf("create bootstrap page: %w", err)
	}

	if _, err := page.Goto(env.BaseURL+"/", playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(authReadyTimeoutMS),
	}); err != nil {
		return fmt.Errorf("navigate to app root: %w", err)
	}

	if err := page.Locator("body").WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(authReadyTimeoutMS),
	}); err != nil {
		return fmt.Errorf("wait for document body: %w", err)
	}

	loginVisible, err := page.Locator(loginFormSelector).IsVisible()
	if err != nil {
		loginVisible = false
	}

	if loginVisible {
		if err := env.submitLogin(page); err != nil {
			return err
		}
		if err := page.Locator(dashboardSelector).First().WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateVisible,
			Timeout: playwright.Float(authReadyTimeoutMS),
		}); err != nil {
			return fmt.Errorf("post-login landing marker %s did not appear: %w", dashboardSelector, err)
		}
	} else {
		if err := page.Locator(appReadySelector).First().WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateVisible,
			Timeout: playwright.Float(authReadyTimeoutMS),
		}); err != nil {
			return fmt.Errorf("application-ready marker did not appear: %w", err)
		}
	}

	if err := page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(networkIdleTimeoutMS),
	}); err != nil {
		return fmt.Errorf("network did not go idle: %w", err)
	}

	sessionID := fmt.Sprint(time.Now().UnixMilli())
	if _, err := page.Evaluate(`(id) => {
		localStorage.setItem('playwright_test_mode', 'true');
		localStorage.setItem('test_session_id', id);
	}`, sessionID); err != nil {
		return fmt.Errorf("write test-mode flags to local storage: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(AuthStatePath), 0o755); err != nil {
		return fmt.Errorf("create auth state dir: %w", err)
	}
	if _, err := ctx.StorageState(AuthStatePath); err != nil {
		return fmt.Errorf("persist storage state: %w", err)
	}
	return nil
}

func (env *TestEnv) submitLogin(page playwright.Page) error {
	if err := page.Locator(loginEmailSelector).First().Fill(env.Email); err != nil {
		return fmt.Errorf("fill email field: %w", err)
	}
	if err := page.Locator(loginPasswordSelector).First().Fill(env.Password); err != nil {
		return fmt.Errorf("fill password field: %w", err)
	}
	if err := page.Locator(loginSubmitSelector).First().Click(); err != nil {
		return fmt.Errorf("submit login form: %w", err)
	}
	return nil
}
