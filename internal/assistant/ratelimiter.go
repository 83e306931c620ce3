package assistant

import (
	"context"
	"sync"
	"time"

	"github.com/podline/podline/internal/chat"
)

// RateLimited wraps a Completer with a token bucket limiting requests
// per minute. The dashboard shares one assistant across websocket
// clients, so the bucket keeps one noisy tab from starving the backend.
type RateLimited struct {
	completer Completer
	rpm       int
	mu        sync.Mutex
	tokens    int
	lastFill  time.Time
}

// NewRateLimited allows at most rpm completions per minute.
func NewRateLimited(completer Completer, rpm int) *RateLimited {
	return &RateLimited{
		completer: completer,
		rpm:       rpm,
		tokens:    rpm,
		lastFill:  time.Now(),
	}
}

func (r *RateLimited) Complete(ctx context.Context, messages []chat.Message) (string, error) {
	if err := r.wait(ctx); err != nil {
		return "", err
	}
	return r.completer.Complete(ctx, messages)
}

// Title draws from the same bucket as completions. When throttled or
// when the wrapped completer has no title support, it falls back to a
// truncation of the message.
func (r *RateLimited) Title(ctx context.Context, firstMessage string) string {
	t, ok := r.completer.(Titler)
	if !ok {
		return fallbackTitle(firstMessage)
	}
	if err := r.wait(ctx); err != nil {
		return fallbackTitle(firstMessage)
	}
	return t.Title(ctx, firstMessage)
}

func (r *RateLimited) wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		now := time.Now()
		elapsed := now.Sub(r.lastFill)

		refill := int(elapsed.Seconds() * float64(r.rpm) / 60.0)
		if refill > 0 {
			r.tokens += refill
			if r.tokens > r.rpm {
				r.tokens = r.rpm
			}
			r.lastFill = now
		}

		if r.tokens > 0 {
			r.tokens--
			r.mu.Unlock()
			return nil
		}
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}
