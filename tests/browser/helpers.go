package browser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/playwright-community/playwright-go"

	"github.com/taskflowai/taskflow-e2e/internal/fixtures"
)

// === Page helper ===

// PageHelper bundles a page with the environment base URL so feature tests
// can share the higher-level interaction verbs below.
type PageHelper struct {
	page    playwright.Page
	baseURL string
}

func NewPageHelper(env *TestEnv, page playwright.Page) *PageHelper {
	return &PageHelper{page: page, baseURL: env.BaseURL}
}

// Page exposes the underlying page for direct locator work.
func (h *PageHelper) Page() playwright.Page { return h.page }

// WaitForElement waits until the selector is visible, then returns its
// first-match locator. timeout of 0 means the default page timeout.
func (h *PageHelper) WaitForElement(t *testing.T, selector string, timeout time.Duration, msg string) playwright.Locator {
	t.Helper()
	if timeout == 0 {
		timeout = browserMaxTimeout
	}
	loc := h.page.Locator(selector).First()
	if err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	}); err != nil {
		if msg == "" {
			msg = "element did not appear"
		}
		t.Fatalf("%s: selector %q not visible within %v: %v", msg, selector, timeout, err)
	}
	return loc
}

// === Test data lifecycle ===

// CreateTestTasks creates count tasks through the UI and returns their
// data-task-id values. Titles are unique and carry the "Test Task" prefix so
// CleanupTestData can find them later.
func (h *PageHelper) CreateTestTasks(t *testing.T, count int) []string {
	t.Helper()
	ids := make([]string, 0, count)
	for i := range count {
		title := fixtures.UniqueTitle("Test Task")

		addBtn := h.page.Locator(`[data-testid="add-task-btn"], .add-task-btn, .btn`).First()
		if err := addBtn.Click(); err != nil {
			t.Fatalf("click add-task button for task %d: %v", i+1, err)
		}
		h.WaitForElement(t, `[data-testid="task-form"]`, 0, "task form did not open")
		if err := h.page.Locator(`[data-testid="task-title-input"]`).Fill(title); err != nil {
			t.Fatalf("fill task title %q: %v", title, err)
		}
		if err := h.page.Locator(`[data-testid="task-submit"]`).Click(); err != nil {
			t.Fatalf("submit task %q: %v", title, err)
		}

		item := h.page.Locator(`[data-testid="task-item"]`, playwright.PageLocatorOptions{
			HasText: title,
		}).First()
		if err := item.WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateVisible,
			Timeout: playwright.Float(browserMaxTimeoutMS),
		}); err != nil {
			t.Fatalf("created task %q never appeared in the list: %v", title, err)
		}

		id, err := item.GetAttribute("data-task-id")
		if err != nil || id == "" {
			// List items without ids get a positional stand-in.
			id = fmt.Sprintf("task-%d", i+1)
		}
		ids = append(ids, id)
	}
	return ids
}

// CleanupTestData removes every task and project whose title carries the
// test-data prefix, leaving seeded or user data alone. Deletion confirmations
// are clicked when the UI asks for one.
func (h *PageHelper) CleanupTestData(t *testing.T) {
	t.Helper()
	h.deleteWhilePresent(t, `[data-testid="task-item"]`, "Test Task", `[data-testid="delete-task"]`)
	h.deleteWhilePresent(t, `[data-testid="project-item"]`, "Test Project", `[data-testid="delete-project"]`)
}

func (h *PageHelper) deleteWhilePresent(t *testing.T, itemSelector, titlePrefix, deleteSelector string) {
	t.Helper()
	skipped := 0
	// Hard iteration cap so a UI that refuses to delete cannot hang the run.
	for range 100 {
		item, found := h.matchingItemWithPrefix(t, itemSelector, titlePrefix, skipped)
		if !found {
			return
		}

		del := item.Locator(deleteSelector).First()
		visible, err := del.IsVisible()
		if err != nil || !visible {
			// No visible delete control: leave this item in place and move
			// on to the rest.
			skipped++
			continue
		}
		if err := del.Click(); err != nil {
			t.Fatalf("click delete control in %s: %v", itemSelector, err)
		}

		confirm := h.page.Locator(`[data-testid="confirm-delete"]`).First()
		if vis, err := confirm.IsVisible(); err == nil && vis {
			if err := confirm.Click(); err != nil {
				t.Fatalf("confirm deletion: %v", err)
			}
		}

		if err := item.WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateDetached,
			Timeout: playwright.Float(browserMaxTimeoutMS),
		}); err != nil {
			t.Fatalf("deleted item still attached: %v", err)
		}
	}
	t.Fatalf("cleanup did not converge for %s after 100 deletions", itemSelector)
}

// matchingItemWithPrefix returns the (skip+1)-th item whose text carries the
// prefix, so callers can step past items they have decided to leave alone.
func (h *PageHelper) matchingItemWithPrefix(t *testing.T, itemSelector, titlePrefix string, skip int) (playwright.Locator, bool) {
	t.Helper()
	items := h.page.Locator(itemSelector)
	n, err := items.Count()
	if err != nil {
		t.Fatalf("count %s items: %v", itemSelector, err)
	}
	seen := 0
	for i := range n {
		item := items.Nth(i)
		text, err := item.TextContent()
		if err != nil {
			continue
		}
		if !strings.HasPrefix(strings.TrimSpace(text), titlePrefix) {
			continue
		}
		if seen < skip {
			seen++
			continue
		}
		return item, true
	}
	return nil, false
}

// === Network mocking ===

// MockAPIResponse fulfills every request matching pattern with a JSON body.
func (h *PageHelper) MockAPIResponse(t *testing.T, pattern string, body any, status int) {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal mock body for %s: %v", pattern, err)
	}
	err = h.page.Route(pattern, func(route playwright.Route) {
		if err := route.Fulfill(playwright.RouteFulfillOptions{
			Status:      playwright.Int(status),
			ContentType: playwright.String("application/json"),
			Body:        payload,
		}); err != nil {
			t.Logf("fulfill mock route %s: %v", pattern, err)
		}
	})
	if err != nil {
		t.Fatalf("install mock route %s: %v", pattern, err)
	}
}

// MockChatStream fulfills matching requests with a server-sent-event stream
// delivering each delta as a message event followed by a done event, the
// same shape the live assistant endpoint produces.
func (h *PageHelper) MockChatStream(t *testing.T, pattern string, deltas []string) {
	t.Helper()
	body, err := encodeChatStream(deltas)
	if err != nil {
		t.Fatalf("encode mock chat stream: %v", err)
	}
	err = h.page.Route(pattern, func(route playwright.Route) {
		if err := route.Fulfill(playwright.RouteFulfillOptions{
			Status:      playwright.Int(200),
			ContentType: playwright.String("text/event-stream"),
			Body:        body,
		}); err != nil {
			t.Logf("fulfill chat stream route %s: %v", pattern, err)
		}
	})
	if err != nil {
		t.Fatalf("install chat stream route %s: %v", pattern, err)
	}
}

func encodeChatStream(deltas []string) ([]byte, error) {
	var buf bytes.Buffer
	for _, delta := range deltas {
		ev := sse.Event{Event: "message", Data: map[string]string{"delta": delta}}
		if err := sse.Encode(&buf, ev); err != nil {
			return nil, err
		}
	}
	if err := sse.Encode(&buf, sse.Event{Event: "done", Data: "{}"}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SimulateSlowNetwork delays every request by the given duration before
// letting it through.
func (h *PageHelper) SimulateSlowNetwork(t *testing.T, delay time.Duration) {
	t.Helper()
	err := h.page.Route("**/*", func(route playwright.Route) {
		time.Sleep(delay)
		if err := route.Continue(); err != nil {
			t.Logf("continue throttled request: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("install slow-network route: %v", err)
	}
}

// === Input simulation ===

// TypeRealistic clears the field and types text with jittered per-character
// delays, approximating a human typist closely enough to trip debounced
// handlers.
func (h *PageHelper) TypeRealistic(t *testing.T, loc playwright.Locator, text string, baseDelay time.Duration) {
	t.Helper()
	if err := loc.Fill(""); err != nil {
		t.Fatalf("clear field before typing: %v", err)
	}
	if err := loc.Click(); err != nil {
		t.Fatalf("focus field before typing: %v", err)
	}
	for _, r := range text {
		if err := loc.PressSequentially(string(r)); err != nil {
			t.Fatalf("type %q: %v", r, err)
		}
		time.Sleep(baseDelay + time.Duration(rand.Intn(50))*time.Millisecond)
	}
}

type point struct {
	x, y float64
}

// swipePath computes the start and end points of a swipe across the center
// of a bounding box.
func swipePath(box *playwright.Rect, direction string, distance float64) (point, point, error) {
	if box == nil {
		return point{}, point{}, fmt.Errorf("element has no bounding box")
	}
	start := point{x: box.X + box.Width/2, y: box.Y + box.Height/2}
	end := start
	switch direction {
	case "left":
		end.x -= distance
	case "right":
		end.x += distance
	case "up":
		end.y -= distance
	case "down":
		end.y += distance
	default:
		return point{}, point{}, fmt.Errorf("unknown swipe direction %q", direction)
	}
	return start, end, nil
}

// SimulateSwipeGesture drags the pointer across the element in the given
// direction, as a touch swipe would.
func (h *PageHelper) SimulateSwipeGesture(t *testing.T, loc playwright.Locator, direction string, distance float64) {
	t.Helper()
	box, err := loc.BoundingBox()
	if err != nil {
		t.Fatalf("bounding box for swipe target: %v", err)
	}
	start, end, err := swipePath(box, direction, distance)
	if err != nil {
		t.Fatalf("swipe %s: %v", direction, err)
	}
	mouse := h.page.Mouse()
	if err := mouse.Move(start.x, start.y); err != nil {
		t.Fatalf("move to swipe start: %v", err)
	}
	if err := mouse.Down(); err != nil {
		t.Fatalf("press at swipe start: %v", err)
	}
	if err := mouse.Move(end.x, end.y, playwright.MouseMoveOptions{Steps: playwright.Int(10)}); err != nil {
		t.Fatalf("drag to swipe end: %v", err)
	}
	if err := mouse.Up(); err != nil {
		t.Fatalf("release at swipe end: %v", err)
	}
}

// === Responsive layout ===

type breakpoint struct {
	name   string
	width  int
	height int
}

// Smallest first so layout has to grow into each size.
var breakpoints = []breakpoint{
	{"mobile", 375, 667},
	{"tablet", 768, 1024},
	{"desktop", 1200, 800},
}

// TestResponsiveBreakpoints resizes the viewport through the standard
// breakpoints and asserts the element stays visible at each, capturing a
// screenshot per size.
func (h *PageHelper) TestResponsiveBreakpoints(t *testing.T, loc playwright.Locator) {
	t.Helper()
	for _, bp := range breakpoints {
		if err := h.page.SetViewportSize(bp.width, bp.height); err != nil {
			t.Fatalf("set %s viewport %dx%d: %v", bp.name, bp.width, bp.height, err)
		}
		// Let CSS media queries and reflow settle.
		time.Sleep(250 * time.Millisecond)

		visible, err := loc.IsVisible()
		if err != nil {
			t.Fatalf("visibility check at %s breakpoint: %v", bp.name, err)
		}
		if !visible {
			t.Fatalf("element not visible at %s breakpoint (%dx%d)", bp.name, bp.width, bp.height)
		}
		CaptureScreenshot(t, h.page, "responsive/"+bp.name)
	}
}

// === Local storage ===

// SetLocalStorage stores value under key, JSON-encoding non-string values
// the way the application itself does.
func (h *PageHelper) SetLocalStorage(t *testing.T, key string, value any) {
	t.Helper()
	_, err := h.page.Evaluate(`([key, value]) => {
		localStorage.setItem(key, typeof value === 'string' ? value : JSON.stringify(value));
	}`, []any{key, value})
	if err != nil {
		t.Fatalf("set localStorage[%q]: %v", key, err)
	}
}

// GetLocalStorage reads key, JSON-decoding when the stored value parses,
// else returning the raw string. Missing keys return nil.
func (h *PageHelper) GetLocalStorage(t *testing.T, key string) any {
	t.Helper()
	val, err := h.page.Evaluate(`(key) => {
		const raw = localStorage.getItem(key);
		if (raw === null) return null;
		try { return JSON.parse(raw); } catch (e) { return raw; }
	}`, key)
	if err != nil {
		t.Fatalf("get localStorage[%q]: %v", key, err)
	}
	return val
}

// ClearLocalStorage wipes the page origin's local storage.
func (h *PageHelper) ClearLocalStorage(t *testing.T) {
	t.Helper()
	if _, err := h.page.Evaluate(`() => localStorage.clear()`); err != nil {
		t.Fatalf("clear localStorage: %v", err)
	}
}

// === Timing ===

// MeasurePerformance runs action and returns its result together with how
// long it took.
func MeasurePerformance[T any](t *testing.T, action func() (T, error), name string) (T, time.Duration) {
	t.Helper()
	start := time.Now()
	result, err := action()
	if err != nil {
		t.Fatalf("%s failed while being timed: %v", name, err)
	}
	elapsed := time.Since(start)
	t.Logf("%s took %v", name, elapsed)
	return result, elapsed
}
