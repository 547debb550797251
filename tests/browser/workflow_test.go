package browser

import (
	"strings"
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openWorkflows(t *testing.T) (*TestEnv, *PageHelper) {
	t.Helper()
	env := SetupTestEnv(t)
	env.InitBrowser(t)

	ctx := env.NewAuthedContext(t)
	t.Cleanup(func() { ctx.Close() })
	page := NewPageInContext(t, ctx)

	Navigate(t, page, env.BaseURL, "/workflows")
	WaitForSelector(t, page, `[data-testid="workflow-panel"]`)
	return env, NewPageHelper(env, page)
}

func TestWorkflowShowsStepsAndProgress(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	_, h := openWorkflows(t)

	steps := h.page.Locator(`[data-testid="workflow-step"]`)
	n, err := steps.Count()
	require.NoError(t, err)
	require.Greater(t, n, 0, "workflow should list at least one step")

	progress, err := h.page.Locator(`[data-testid="workflow-progress"]`).TextContent()
	require.NoError(t, err)
	assert.Contains(t, progress, "Step 1 of", "progress indicator should start at step 1")

	state, err := steps.First().GetAttribute("data-state")
	require.NoError(t, err)
	assert.Equal(t, "active", state, "first step should start active")
}

func TestWorkflowSuggestionRequestAndAccept(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	_, h := openWorkflows(t)

	h.MockAPIResponse(t, "**/api/workflows/suggest",
		map[string]string{"suggestion": "Break the rollout into two phases."}, 200)

	require.NoError(t, h.page.Locator(`[data-testid="request-suggestion"]`).Click())
	card := h.WaitForElement(t, `[data-testid="ai-suggestion"]`, 0, "suggestion card missing")

	text, err := card.Locator(`[data-testid="suggestion-text"]`).TextContent()
	require.NoError(t, err)
	assert.Contains(t, text, "two phases")

	require.NoError(t, h.page.Locator(`[data-testid="accept-suggestion"]`).Click())

	// Accepting advances the workflow: step one completes, step two activates.
	first := h.page.Locator(`[data-testid="workflow-step"]`).First()
	state, err := first.GetAttribute("data-state")
	require.NoError(t, err)
	assert.Equal(t, "complete", state)

	progress, err := h.page.Locator(`[data-testid="workflow-progress"]`).TextContent()
	require.NoError(t, err)
	assert.Contains(t, progress, "Step 2 of")
}

func TestWorkflowSuggestionDismiss(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	_, h := openWorkflows(t)

	require.NoError(t, h.page.Locator(`[data-testid="request-suggestion"]`).Click())
	card := h.WaitForElement(t, `[data-testid="ai-suggestion"]`, 0, "suggestion card missing")

	before, err := h.page.Locator(`[data-testid="workflow-progress"]`).TextContent()
	require.NoError(t, err)

	require.NoError(t, h.page.Locator(`[data-testid="dismiss-suggestion"]`).Click())
	require.NoError(t, card.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateHidden,
		Timeout: playwright.Float(browserMaxTimeoutMS),
	}), "dismissed suggestion should disappear")

	after, err := h.page.Locator(`[data-testid="workflow-progress"]`).TextContent()
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(before), strings.TrimSpace(after),
		"dismissing must not advance the workflow")
}

func TestWorkflowPageEmitsNoConsoleErrors(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	_, h := openWorkflows(t)
	ExpectNoConsoleErrors(t, h.page)
}
