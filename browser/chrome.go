package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	cdppage "github.com/chromedp/cdproto/page"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// launchTimeout bounds how long we wait for the Chrome process to come up.
const launchTimeout = 30 * time.Second

// ChromeLauncher launches headless Chrome instances over the DevTools
// protocol.
type ChromeLauncher struct {
	log logrus.FieldLogger
}

// NewChromeLauncher creates a launcher. A nil logger falls back to the
// standard logrus logger.
func NewChromeLauncher(log logrus.FieldLogger) *ChromeLauncher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ChromeLauncher{log: log}
}

// Launch starts a new Chrome process. The browser's lifetime is decoupled
// from ctx; ctx only bounds the launch itself. The caller owns the returned
// Browser and must Close it.
func (l *ChromeLauncher) Launch(ctx context.Context, opts LaunchOptions) (Browser, error) {
	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("mute-audio", true),
	}
	if opts.Headless {
		allocOpts = append(allocOpts, chromedp.Headless)
	}
	if opts.DisableGPU {
		allocOpts = append(allocOpts, chromedp.Flag("disable-gpu", true))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	for name, value := range opts.ExtraFlags {
		allocOpts = append(allocOpts, chromedp.Flag(name, value))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	cancel := func() {
		browserCancel()
		allocCancel()
	}

	// Start the process eagerly so a broken install fails here, not on the
	// first page. The start is bounded by launchTimeout and the caller ctx.
	startCtx, startCancel := context.WithTimeout(browserCtx, launchTimeout)
	defer startCancel()
	stop := context.AfterFunc(ctx, startCancel)
	defer stop()
	if err := chromedp.Run(startCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("launching chrome: %w", err)
	}

	l.log.WithField("execPath", opts.ExecPath).Debug("chrome launched")
	return &chromeBrowser{ctx: browserCtx, cancel: cancel, log: l.log}, nil
}

type chromeBrowser struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    logrus.FieldLogger
}

func (b *chromeBrowser) NewPage(ctx context.Context) (Page, error) {
	if b.ctx.Err() != nil {
		return nil, ErrBrowserClosed
	}
	pageCtx, pageCancel := chromedp.NewContext(b.ctx)
	p := &chromePage{ctx: pageCtx, cancel: pageCancel, log: b.log}
	p.listen()

	// Materialize the tab and enable the network domain so response events
	// are delivered.
	createCtx, createCancel := context.WithCancel(pageCtx)
	defer createCancel()
	stop := context.AfterFunc(ctx, createCancel)
	defer stop()
	if err := chromedp.Run(createCtx, network.Enable()); err != nil {
		pageCancel()
		return nil, fmt.Errorf("opening page: %w", err)
	}
	return p, nil
}

func (b *chromeBrowser) Close() error {
	defer b.cancel()
	if err := chromedp.Cancel(b.ctx); err != nil {
		return fmt.Errorf("closing chrome: %w", err)
	}
	return nil
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    logrus.FieldLogger

	mu       sync.Mutex
	sinks    []func(Event)
	bindings map[string]BindingFunc
	queue    *eventQueue
}

// listen wires the CDP target events into binding calls and diagnostic
// events. Registered once, before the tab exists, so nothing is missed.
//
// ListenTarget handlers run on the target's event goroutine and must never
// block there: a stalled handler stalls every later CDP message, including
// the load events an in-flight navigation waits on. Bindings and sinks may
// block (a result report is an HTTP round trip), so events are queued and
// delivered by a dedicated goroutine, one at a time and in arrival order.
func (p *chromePage) listen() {
	p.queue = newEventQueue()
	context.AfterFunc(p.ctx, p.queue.close)
	chromedp.ListenTarget(p.ctx, func(ev any) {
		switch ev.(type) {
		case *cdpruntime.EventBindingCalled,
			*cdpruntime.EventConsoleAPICalled,
			*cdpruntime.EventExceptionThrown,
			*cdppage.EventFrameNavigated,
			*network.EventResponseReceived:
			p.queue.push(ev)
		}
	})
	go p.dispatchLoop()
}

func (p *chromePage) dispatchLoop() {
	for {
		ev, ok := p.queue.pop()
		if !ok {
			return
		}
		switch ev := ev.(type) {
		case *cdpruntime.EventBindingCalled:
			p.mu.Lock()
			fn := p.bindings[ev.Name]
			p.mu.Unlock()
			if fn != nil {
				fn(ev.Payload)
			}
		case *cdpruntime.EventConsoleAPICalled:
			p.emit(Event{Kind: EventConsole, Text: consoleText(ev)})
		case *cdpruntime.EventExceptionThrown:
			p.emit(Event{Kind: EventPageError, Text: ev.ExceptionDetails.Error()})
		case *cdppage.EventFrameNavigated:
			p.emit(Event{Kind: EventFrameNavigated, URL: ev.Frame.URL})
		case *network.EventResponseReceived:
			p.emit(Event{Kind: EventResponse, URL: ev.Response.URL, Status: ev.Response.Status})
		}
	}
}

func (p *chromePage) emit(ev Event) {
	p.mu.Lock()
	sinks := make([]func(Event), len(p.sinks))
	copy(sinks, p.sinks)
	p.mu.Unlock()
	for _, sink := range sinks {
		sink(ev)
	}
}

func (p *chromePage) ExposeBinding(ctx context.Context, name string, fn BindingFunc) error {
	p.mu.Lock()
	if p.bindings == nil {
		p.bindings = make(map[string]BindingFunc)
	}
	p.bindings[name] = fn
	p.mu.Unlock()
	return p.run(ctx, cdpruntime.AddBinding(name))
}

func (p *chromePage) AddInitScript(ctx context.Context, source string) error {
	return p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := cdppage.AddScriptToEvaluateOnNewDocument(source).Do(ctx)
		return err
	}))
}

func (p *chromePage) Subscribe(sink func(Event)) {
	p.mu.Lock()
	p.sinks = append(p.sinks, sink)
	p.mu.Unlock()
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, chromedp.Navigate(url))
}

func (p *chromePage) Close() error {
	defer p.cancel()
	if p.ctx.Err() != nil {
		return nil
	}
	if err := chromedp.Cancel(p.ctx); err != nil {
		return fmt.Errorf("closing page: %w", err)
	}
	return nil
}

// run executes actions on the page, honoring both the page lifetime and the
// caller's ctx deadline/cancellation.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	if p.ctx.Err() != nil {
		return ErrPageClosed
	}
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if deadline, ok := ctx.Deadline(); ok {
		var dcancel context.CancelFunc
		runCtx, dcancel = context.WithDeadline(runCtx, deadline)
		defer dcancel()
	}
	return chromedp.Run(runCtx, actions...)
}

// eventQueue is an unbounded FIFO between the CDP event goroutine and the
// page's dispatch goroutine. push never blocks; pop blocks until an event
// arrives or the queue is closed.
type eventQueue struct {
	mu     sync.Mutex
	ready  *sync.Cond
	items  []any
	closed bool
}

func newEventQueue() *eventQueue {
	q := &eventQueue{}
	q.ready = sync.NewCond(&q.mu)
	return q
}

func (q *eventQueue) push(ev any) {
	q.mu.Lock()
	if !q.closed {
		q.items = append(q.items, ev)
		q.ready.Signal()
	}
	q.mu.Unlock()
}

// pop returns the next event, blocking until one is available. The second
// return value is false once the queue is closed and drained.
func (q *eventQueue) pop() (any, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.ready.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	ev := q.items[0]
	q.items = q.items[1:]
	return ev, true
}

func (q *eventQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.ready.Broadcast()
	q.mu.Unlock()
}

// consoleText renders a console API call as one line of text.
func consoleText(ev *cdpruntime.EventConsoleAPICalled) string {
	parts := make([]string, 0, len(ev.Args)+1)
	if ev.Type != "" {
		parts = append(parts, fmt.Sprintf("%s:", ev.Type))
	}
	for _, arg := range ev.Args {
		if arg == nil {
			continue
		}
		if len(arg.Value) > 0 {
			parts = append(parts, string(arg.Value))
		} else if arg.Description != "" {
			parts = append(parts, arg.Description)
		}
	}
	return strings.Join(parts, " ")
}
