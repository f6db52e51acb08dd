//go:build integration
// +build integration

package browser_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/phetsims/ct-runner/browser"
)

// TestChromeLifecycle exercises the real Chrome implementation end to end:
// launch, open a page, expose a binding, inject an init script, navigate,
// and observe console events. Requires a Chrome install; run with
// -tags=integration.
func TestChromeLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	launcher := browser.NewChromeLauncher(nil)
	b, err := launcher.Launch(ctx, browser.DefaultLaunchOptions())
	if err != nil {
		t.Fatalf("failed to launch chrome: %v", err)
	}
	defer func() {
		if err := b.Close(); err != nil {
			t.Errorf("failed to close browser: %v", err)
		}
	}()

	page, err := b.NewPage(ctx)
	if err != nil {
		t.Fatalf("failed to open page: %v", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			t.Errorf("failed to close page: %v", err)
		}
	}()

	payloads := make(chan string, 1)
	if err := page.ExposeBinding(ctx, "ctTestBinding", func(payload string) {
		select {
		case payloads <- payload:
		default:
		}
	}); err != nil {
		t.Fatalf("failed to expose binding: %v", err)
	}

	if err := page.AddInitScript(ctx, `window.ctInjected = true;`); err != nil {
		t.Fatalf("failed to add init script: %v", err)
	}

	var mu sync.Mutex
	var consoleLines []string
	page.Subscribe(func(ev browser.Event) {
		if ev.Kind == browser.EventConsole {
			mu.Lock()
			consoleLines = append(consoleLines, ev.Text)
			mu.Unlock()
		}
	})

	const doc = `data:text/html,<script>
		console.log('injected=' + window.ctInjected);
		window.ctTestBinding('hello from page');
	</script>`
	if err := page.Navigate(ctx, doc); err != nil {
		t.Fatalf("failed to navigate: %v", err)
	}

	select {
	case payload := <-payloads:
		if payload != "hello from page" {
			t.Errorf("unexpected binding payload: %q", payload)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for binding call")
	}

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		joined := strings.Join(consoleLines, "\n")
		mu.Unlock()
		if strings.Contains(joined, "injected=true") {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatal("init script output never observed on the console")
}
