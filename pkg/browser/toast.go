package browser

import (
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/alttext/pkg/mutator"
)

// DefaultToastDuration is how long a toast stays on the page.
const DefaultToastDuration = 4 * time.Second

const toastScript = `({message, background, duration}) => {
  const toast = document.createElement('div');
  toast.setAttribute('role', 'status');
  toast.textContent = message;
  Object.assign(toast.style, {
    position: 'fixed', right: '16px', bottom: '16px', zIndex: '2147483647',
    padding: '10px 14px', borderRadius: '6px', color: '#fff',
    font: '14px sans-serif', background: background,
    boxShadow: '0 2px 8px rgba(0,0,0,.3)'
  });
  document.body.appendChild(toast);
  setTimeout(() => toast.remove(), duration);
}`

// ToastNotifier shows notices as a small toast in the page.
// Failures to render fall back to the log.
type ToastNotifier struct {
	page     playwright.Page
	duration time.Duration
	fallback mutator.Notifier
}

// NewToastNotifier creates a notifier for p; a non-positive duration selects
// DefaultToastDuration.
func NewToastNotifier(p playwright.Page, duration time.Duration) *ToastNotifier {
	if duration <= 0 {
		duration = DefaultToastDuration
	}
	return &ToastNotifier{
		page:     p,
		duration: duration,
		fallback: mutator.LogNotifier{Logger: debugLog},
	}
}

// Notify renders message on the page.
func (n *ToastNotifier) Notify(kind mutator.NoticeKind, message string) {
	_, err := n.page.Evaluate(toastScript, toastArgs(kind, message, n.duration))
	if err != nil {
		debugLog.Warnf("Failed to show toast: %v", err)
		n.fallback.Notify(kind, message)
	}
}

func toastArgs(kind mutator.NoticeKind, message string, d time.Duration) map[string]any {
	return map[string]any{
		"message":    message,
		"background": toastColor(kind),
		"duration":   d.Milliseconds(),
	}
}

func toastColor(kind mutator.NoticeKind) string {
	switch kind {
	case mutator.NoticeSuccess:
		return "#2e7d32"
	case mutator.NoticeError:
		return "#c62828"
	default:
		return "#323232"
	}
}
