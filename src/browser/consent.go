package browser

import (
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// AcceptOneTrust waits for the OneTrust banner and clicks accept.
func (b *Browser) AcceptOneTrust(timeout time.Duration) error {
	if err := b.WaitPresent("#onetrust-consent-sdk", timeout); err != nil {
		return fmt.Errorf("cookie banner: %w", err)
	}
	if err := b.WaitPresent("#onetrust-accept-btn-handler", timeout); err != nil {
		return fmt.Errorf("cookie accept button: %w", err)
	}
	return b.Click("#onetrust-accept-btn-handler")
}

// The usercentrics banner lives in a shadow root, so it is clicked from JS.
const usercentricsScript = `(() => {
	const aside = document.querySelector('aside#usercentrics-cmp-ui');
	if (!aside) return "missing";
	const root = aside.shadowRoot;
	if (!root) return "no-button";
	const btn = root.querySelector('button#accept, button[aria-label="Accept All"], button.uc-accept-button');
	if (!btn) return "no-button";
	btn.click();
	return "clicked";
})()`

// AcceptUsercentrics clicks the usercentrics accept button when the
// banner is there. A missing banner is not an error.
func (b *Browser) AcceptUsercentrics() (bool, error) {
	var state string
	if err := b.run(chromedp.Evaluate(usercentricsScript, &state)); err != nil {
		return false, fmt.Errorf("cookie banner: %w", err)
	}
	return state == "clicked", nil
}
