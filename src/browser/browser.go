package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// ErrTimeout is returned when a readiness wait runs out of time.
var ErrTimeout = errors.New("timed out waiting for selector")

type Options struct {
	Headless  bool
	ExecPath  string
	UserAgent string
	Width     int
	Height    int
	// ActionTimeout bounds every action that would otherwise wait
	// forever for its node (clicks, navigation).
	ActionTimeout time.Duration
}

// Browser is a single chrome tab. All actions run against the context
// given to Open; cancelling it closes the browser.
type Browser struct {
	ctx           context.Context
	cancel        context.CancelFunc
	allocCancel   context.CancelFunc
	actionTimeout time.Duration
}

func Open(parent context.Context, opts Options) (*Browser, error) {
	// Using a fixed window size so the sites do not fall back to mobile layouts
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("force-device-scale-factor", "1"),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(opts.Width, opts.Height),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocOpts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	// starts the browser
	err := chromedp.Run(ctx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{
			"Accept-Language": "en-GB,en;q=0.9",
		}),
	)
	if err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	timeout := opts.ActionTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Browser{
		ctx:           ctx,
		cancel:        cancel,
		allocCancel:   allocCancel,
		actionTimeout: timeout,
	}, nil
}

func (b *Browser) Close() {
	b.cancel()
	b.allocCancel()
}

func (b *Browser) run(actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(b.ctx, b.actionTimeout)
	defer cancel()

	return chromedp.Run(ctx, actions...)
}

// Navigate loads url and waits for the load event.
func (b *Browser) Navigate(url string) error {
	if err := b.run(chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// SetLocation changes window.location without waiting for a load event.
// Fragment-only changes never fire one, so callers follow up with Reload.
func (b *Browser) SetLocation(url string) error {
	expr := fmt.Sprintf(`window.location.href = %s`, jsString(url))
	if err := b.run(chromedp.Evaluate(expr, nil)); err != nil {
		return fmt.Errorf("set location %s: %w", url, err)
	}
	return nil
}

func (b *Browser) Reload() error {
	if err := b.run(chromedp.Reload()); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	return nil
}

func (b *Browser) Back() error {
	if err := b.run(chromedp.NavigateBack()); err != nil {
		return fmt.Errorf("navigate back: %w", err)
	}
	return nil
}

// WaitPresent waits until selector matches a node in the DOM.
func (b *Browser) WaitPresent(selector string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(b.ctx, timeout)
	defer cancel()

	err := chromedp.Run(ctx, chromedp.WaitReady(selector, chromedp.ByQuery))
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && b.ctx.Err() == nil {
		return ErrTimeout
	}
	return fmt.Errorf("wait for %s: %w", selector, err)
}

func (b *Browser) Click(selector string) error {
	if err := b.run(chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

// ClickLinkText clicks the first anchor whose visible text is text.
func (b *Browser) ClickLinkText(text string) error {
	xpath := fmt.Sprintf(`//a[normalize-space(.)=%s]`, xpathString(text))
	if err := b.run(chromedp.Click(xpath, chromedp.BySearch, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("click link %q: %w", text, err)
	}
	return nil
}

// SelectByText picks the option with the given label in a <select> and
// fires the change event.
func (b *Browser) SelectByText(selector, text string) error {
	script := fmt.Sprintf(`(() => {
		const sel = document.querySelector(%s);
		if (!sel) return false;
		const opt = Array.from(sel.options).find(o => o.text.trim() === %s);
		if (!opt) return false;
		sel.value = opt.value;
		sel.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	})()`, jsString(selector), jsString(text))

	var ok bool
	if err := b.run(chromedp.Evaluate(script, &ok)); err != nil {
		return fmt.Errorf("select %q in %s: %w", text, selector, err)
	}
	if !ok {
		return fmt.Errorf("select %q in %s: option not found", text, selector)
	}
	return nil
}

func (b *Browser) ScrollTo(y int) error {
	return b.run(chromedp.Evaluate(fmt.Sprintf(`window.scrollTo(0, %d)`, y), nil))
}

// HTML returns the current page source.
func (b *Browser) HTML() (string, error) {
	var html string
	if err := b.run(chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read page source: %w", err)
	}
	return html, nil
}

func (b *Browser) Count(selector string) (int, error) {
	var n int
	expr := fmt.Sprintf(`document.querySelectorAll(%s).length`, jsString(selector))
	if err := b.run(chromedp.Evaluate(expr, &n)); err != nil {
		return 0, fmt.Errorf("count %s: %w", selector, err)
	}
	return n, nil
}

// VisibleAttrs returns attr of every displayed node matching selector.
func (b *Browser) VisibleAttrs(selector, attr string) ([]string, error) {
	script := fmt.Sprintf(`Array.from(document.querySelectorAll(%s))
		.filter(el => el.offsetParent !== null)
		.map(el => el.getAttribute(%s))
		.filter(v => v)`, jsString(selector), jsString(attr))

	var values []string
	if err := b.run(chromedp.Evaluate(script, &values)); err != nil {
		return nil, fmt.Errorf("read %s of %s: %w", attr, selector, err)
	}
	return values, nil
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// xpathString quotes s as an XPath literal. XPath 1.0 has no escapes, so
// text holding both quote kinds is built with concat().
func xpathString(s string) string {
	for _, q := range []string{`"`, `'`} {
		if !strings.Contains(s, q) {
			return q + s + q
		}
	}

	parts := strings.Split(s, `"`)
	args := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			args = append(args, `'"'`)
		}
		if p != "" {
			args = append(args, `"`+p+`"`)
		}
	}
	return "concat(" + strings.Join(args, ", ") + ")"
}
