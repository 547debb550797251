package browser

import (
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskflowai/taskflow-e2e/internal/fixtures"
)

func visibleTaskCount(t *testing.T, h *PageHelper) int {
	t.Helper()
	items := h.page.Locator(`[data-testid="task-item"]`)
	n, err := items.Count()
	require.NoError(t, err)
	visible := 0
	for i := range n {
		vis, err := items.Nth(i).IsVisible()
		require.NoError(t, err)
		if vis {
			visible++
		}
	}
	return visible
}

func TestStatusFilterHidesNonMatching(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	_, h := authedDashboard(t)
	defer h.CleanupTestData(t)

	h.CreateTestTasks(t, 2)
	total := visibleTaskCount(t, h)
	require.GreaterOrEqual(t, total, 2)

	// New tasks start as todo; the seeded in-progress one must disappear.
	_, err := h.page.Locator(`[data-testid="filter-status"]`).SelectOption(playwright.SelectOptionValues{
		Values: playwright.StringSlice("todo"),
	})
	require.NoError(t, err)

	filtered := visibleTaskCount(t, h)
	assert.Less(t, filtered, total, "status filter should hide non-matching tasks")

	items := h.page.Locator(`[data-testid="task-item"]`)
	n, err := items.Count()
	require.NoError(t, err)
	for i := range n {
		item := items.Nth(i)
		vis, err := item.IsVisible()
		require.NoError(t, err)
		if !vis {
			continue
		}
		status, err := item.GetAttribute("data-status")
		require.NoError(t, err)
		assert.Equal(t, "todo", status)
	}

	require.NoError(t, h.page.Locator(`[data-testid="clear-filters"]`).Click())
	assert.Equal(t, total, visibleTaskCount(t, h), "clearing filters should restore the full list")
}

func TestStatusCycleMovesTaskThroughStates(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	_, h := authedDashboard(t)
	defer h.CleanupTestData(t)

	ids := h.CreateTestTasks(t, 1)
	item := h.page.Locator(`[data-testid="task-item"][data-task-id="` + ids[0] + `"]`)
	cycle := item.Locator(`[data-testid="task-status"]`)

	for _, want := range []string{"in-progress", "done"} {
		require.NoError(t, cycle.Click())
		status, err := item.GetAttribute("data-status")
		require.NoError(t, err)
		assert.Equal(t, want, status)
	}
}

func TestSearchFilterMatchesTitleText(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	_, h := authedDashboard(t)
	defer h.CleanupTestData(t)

	h.CreateTestTasks(t, 2)

	search := h.WaitForElement(t, `[data-testid="filter-search"]`, 0, "search filter missing")
	h.TypeRealistic(t, search, "Quarterly planning", 10*time.Millisecond)

	seeded := h.page.Locator(`[data-testid="task-item"]`, playwright.PageLocatorOptions{
		HasText: "Quarterly planning review",
	}).First()
	vis, err := seeded.IsVisible()
	require.NoError(t, err)
	assert.True(t, vis, "matching task should stay visible")

	assert.Equal(t, 1, visibleTaskCount(t, h), "only the matching task should remain visible")
}

func TestProjectFilterAfterCreatingProject(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	_, h := authedDashboard(t)
	defer h.CleanupTestData(t)

	projectName := fixtures.UniqueTitle("Test Project")
	require.NoError(t, h.page.Locator(`[data-testid="add-project-btn"]`).Click())
	h.WaitForElement(t, `[data-testid="project-form"]`, 0, "project form did not open")
	require.NoError(t, h.page.Locator(`[data-testid="project-name-input"]`).Fill(projectName))
	require.NoError(t, h.page.Locator(`[data-testid="project-submit"]`).Click())

	entry := h.page.Locator(`[data-testid="project-item"]`, playwright.PageLocatorOptions{
		HasText: projectName,
	}).First()
	require.NoError(t, entry.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(browserMaxTimeoutMS),
	}), "created project should appear in the list")

	// Assign a fresh task to the new project through the task form.
	title := fixtures.UniqueTitle("Test Task")
	require.NoError(t, h.page.Locator(`[data-testid="add-task-btn"]`).Click())
	h.WaitForElement(t, `[data-testid="task-form"]`, 0, "task form did not open")
	require.NoError(t, h.page.Locator(`[data-testid="task-title-input"]`).Fill(title))
	_, err := h.page.Locator(`[data-testid="task-project-select"]`).SelectOption(playwright.SelectOptionValues{
		Values: playwright.StringSlice(projectName),
	})
	require.NoError(t, err)
	require.NoError(t, h.page.Locator(`[data-testid="task-submit"]`).Click())

	_, err = h.page.Locator(`[data-testid="filter-project"]`).SelectOption(playwright.SelectOptionValues{
		Values: playwright.StringSlice(projectName),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, visibleTaskCount(t, h), "project filter should leave only the assigned task")

	item := h.page.Locator(`[data-testid="task-item"]`, playwright.PageLocatorOptions{
		HasText: title,
	}).First()
	vis, err := item.IsVisible()
	require.NoError(t, err)
	assert.True(t, vis)
}
