package browser

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Tags and ARIA roles that take keyboard focus and so must be reachable and
// labelled for assistive tech.
var interactiveTags = map[string]bool{
	"a": true, "button": true, "input": true, "select": true, "textarea": true,
}

var interactiveRoles = map[string]bool{
	"button": true, "link": true, "checkbox": true, "radio": true,
	"textbox": true, "combobox": true, "menuitem": true, "tab": true,
}

// checkAccessible verifies the element is visible and, when interactive,
// focusable and labelled via aria-label, aria-labelledby, or title.
func checkAccessible(loc playwright.Locator) error {
	visible, err := loc.IsVisible()
	if err != nil {
		return fmt.Errorf("visibility check: %w", err)
	}
	if !visible {
		return fmt.Errorf("element is not visible")
	}

	info, err := loc.Evaluate(`el => ({
		tag: el.tagName.toLowerCase(),
		role: el.getAttribute('role') || '',
		label: el.getAttribute('aria-label') || '',
		labelledBy: el.getAttribute('aria-labelledby') || '',
		title: el.getAttribute('title') || '',
	})`, nil)
	if err != nil {
		return fmt.Errorf("read element attributes: %w", err)
	}
	attrs, ok := info.(map[string]any)
	if !ok {
		return fmt.Errorf("unexpected attribute payload %T", info)
	}
	str := func(key string) string {
		s, _ := attrs[key].(string)
		return s
	}

	if !interactiveTags[str("tag")] && !interactiveRoles[str("role")] {
		return nil
	}

	if err := loc.Focus(); err != nil {
		return fmt.Errorf("element refused focus: %w", err)
	}
	focused, err := loc.Evaluate(`el => document.activeElement === el`, nil)
	if err != nil {
		return fmt.Errorf("check active element: %w", err)
	}
	if ok, _ := focused.(bool); !ok {
		return fmt.Errorf("element did not become document.activeElement")
	}

	if str("label") == "" && str("labelledBy") == "" && str("title") == "" {
		return fmt.Errorf("interactive <%s> has no accessible name (aria-label, aria-labelledby, or title)", str("tag"))
	}
	return nil
}

// ExpectElementToBeAccessible fails the test when the element is hidden,
// unfocusable, or unlabelled.
func ExpectElementToBeAccessible(t *testing.T, loc playwright.Locator) {
	t.Helper()
	if err := checkAccessible(loc); err != nil {
		t.Fatalf("accessibility check failed: %v", err)
	}
}

// collectConsoleErrors listens for console errors over the given window and
// returns their texts. Favicon fetch noise is ignored. The listener is
// removed when the window closes so repeated collections do not stack
// handlers on a long-lived page.
func collectConsoleErrors(page playwright.Page, window time.Duration) []string {
	var (
		mu     sync.Mutex
		done   bool
		errors []string
	)
	handler := func(msg playwright.ConsoleMessage) {
		if msg.Type() != "error" {
			return
		}
		text := msg.Text()
		if strings.Contains(text, "favicon") {
			return
		}
		mu.Lock()
		if !done {
			errors = append(errors, text)
		}
		mu.Unlock()
	}
	page.On("console", handler)
	defer page.RemoveListener("console", handler)

	time.Sleep(window)
	mu.Lock()
	done = true
	out := append([]string(nil), errors...)
	mu.Unlock()
	return out
}

// ExpectNoConsoleErrors fails if the page emits any console error during a
// one second observation window.
func ExpectNoConsoleErrors(t *testing.T, page playwright.Page) {
	t.Helper()
	if errs := collectConsoleErrors(page, time.Second); len(errs) > 0 {
		t.Fatalf("page emitted %d console error(s):\n%s", len(errs), strings.Join(errs, "\n"))
	}
}

func timeAction(action func() error) (time.Duration, error) {
	start := time.Now()
	err := action()
	return time.Since(start), err
}

// ExpectPerformanceWithinBudget runs action and fails if it exceeds budget.
func ExpectPerformanceWithinBudget(t *testing.T, action func() error, budget time.Duration, name string) {
	t.Helper()
	elapsed, err := timeAction(action)
	if err != nil {
		t.Fatalf("%s failed: %v", name, err)
	}
	if elapsed > budget {
		t.Fatalf("%s took %v, over the %v budget", name, elapsed, budget)
	}
	t.Logf("%s completed in %v (budget %v)", name, elapsed, budget)
}
