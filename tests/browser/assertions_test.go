package browser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessibleCheckPassesOnLabelledControl(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	env := SetupTestEnv(t)
	env.InitBrowser(t)

	ctx := env.NewAuthedContext(t)
	defer ctx.Close()
	page := NewPageInContext(t, ctx)
	Navigate(t, page, env.BaseURL, "/chat")
	WaitForSelector(t, page, `[data-testid="chat-panel"]`)

	ExpectElementToBeAccessible(t, page.Locator(`[data-testid="chat-send"]`))
	ExpectElementToBeAccessible(t, page.Locator(`[data-testid="chat-input"]`))
}

func TestAccessibleCheckFlagsUnlabelledControl(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	env := SetupTestEnv(t)
	env.InitBrowser(t)

	ctx := env.NewAuthedContext(t)
	defer ctx.Close()
	page := NewPageInContext(t, ctx)
	Navigate(t, page, env.BaseURL, "/dashboard")
	WaitForSelector(t, page, `[data-testid="dashboard"]`)

	_, err := page.Evaluate(`() => {
		const btn = document.createElement('button');
		btn.id = 'bare-btn';
		document.body.appendChild(btn);
	}`)
	require.NoError(t, err)

	err = checkAccessible(page.Locator("#bare-btn"))
	require.Error(t, err, "a button with no label or text should fail the check")
	assert.Contains(t, err.Error(), "accessible name")
}

func TestConsoleErrorCollection(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	env := SetupTestEnv(t)
	env.InitBrowser(t)

	ctx := env.NewAuthedContext(t)
	defer ctx.Close()
	page := NewPageInContext(t, ctx)
	Navigate(t, page, env.BaseURL, "/dashboard")
	WaitForSelector(t, page, `[data-testid="dashboard"]`)

	_, err := page.Evaluate(`() => setTimeout(() => console.error('deliberate failure'), 100)`)
	require.NoError(t, err)

	errs := collectConsoleErrors(page, time.Second)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "deliberate failure")
}

func TestConsoleListenerDetachedAfterWindow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	env := SetupTestEnv(t)
	env.InitBrowser(t)

	ctx := env.NewAuthedContext(t)
	defer ctx.Close()
	page := NewPageInContext(t, ctx)
	Navigate(t, page, env.BaseURL, "/dashboard")
	WaitForSelector(t, page, `[data-testid="dashboard"]`)

	before := page.ListenerCount("console")
	for range 3 {
		collectConsoleErrors(page, 50*time.Millisecond)
	}
	assert.Equal(t, before, page.ListenerCount("console"),
		"each collection window must remove its console listener")
}

func TestDashboardEmitsNoConsoleErrors(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	env := SetupTestEnv(t)
	env.InitBrowser(t)

	ctx := env.NewAuthedContext(t)
	defer ctx.Close()
	page := NewPageInContext(t, ctx)
	Navigate(t, page, env.BaseURL, "/dashboard")
	WaitForSelector(t, page, `[data-testid="dashboard"]`)

	ExpectNoConsoleErrors(t, page)
}

func TestPerformanceBudget(t *testing.T) {
	ExpectPerformanceWithinBudget(t, func() error {
		time.Sleep(20 * time.Millisecond)
		return nil
	}, time.Second, "fast action")

	elapsed, err := timeAction(func() error {
		time.Sleep(60 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
	assert.Greater(t, time.Second, elapsed)
}
