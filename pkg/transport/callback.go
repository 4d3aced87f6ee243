package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harrisonrobin/sheetsync/pkg/model"
)

// DefaultCallbackTimeout bounds how long Callback waits for the endpoint
// to invoke the callback.
const DefaultCallbackTimeout = 10 * time.Second

// ErrCallbackTimeout is returned when no callback arrived in time.
var ErrCallbackTimeout = errors.New("callback timed out")

const maxCallbackBody = 1 << 20

var callbackBody = regexp.MustCompile(`^\s*(?:/\*\*/)?\s*([A-Za-z_$][\w$]*)\s*\(([\s\S]*)\)\s*;?\s*$`)

// registry maps callback names to the attempts waiting on them.
type registry struct {
	mu      sync.Mutex
	pending map[string]chan json.RawMessage
}

func newRegistry() *registry {
	return &registry{pending: make(map[string]chan json.RawMessage)}
}

func (r *registry) register() (string, <-chan json.RawMessage) {
	name := "cb_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	ch := make(chan json.RawMessage, 1)
	r.mu.Lock()
	r.pending[name] = ch
	r.mu.Unlock()
	return name, ch
}

// resolve hands payload to the attempt registered under name. It reports
// false for unknown or already resolved names.
func (r *registry) resolve(name string, payload json.RawMessage) bool {
	r.mu.Lock()
	ch, ok := r.pending[name]
	if ok {
		delete(r.pending, name)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	ch <- payload
	return true
}

func (r *registry) remove(name string) {
	r.mu.Lock()
	delete(r.pending, name)
	r.mu.Unlock()
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Callback requests the endpoint with the row and a uniquely named
// callback as query parameters. The endpoint answers with
// "<callback>(<payload>)"; a matching answer is the only verified
// delivery in the cascade.
type Callback struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration

	once sync.Once
	reg  *registry
}

func (c *Callback) Name() string { return "callback" }

// Pending is the number of attempts still waiting for their callback.
func (c *Callback) Pending() int {
	return c.registry().len()
}

func (c *Callback) registry() *registry {
	c.once.Do(func() { c.reg = newRegistry() })
	return c.reg
}

func (c *Callback) AttemptDeliver(ctx context.Context, rec model.TimerRecord) (Outcome, error) {
	if c.URL == "" {
		return Outcome{}, ErrUnavailable
	}
	row, err := json.Marshal(RowPayload(rec))
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to encode row: %w", err)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultCallbackTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reg := c.registry()
	name, resolved := reg.register()
	defer reg.remove(name)

	endpoint, err := url.Parse(c.URL)
	if err != nil {
		return Outcome{}, fmt.Errorf("invalid callback url: %w", err)
	}
	q := endpoint.Query()
	q.Set("callback", name)
	q.Set("data", string(row))
	endpoint.RawQuery = q.Encode()

	done := make(chan error, 1)
	go func() {
		done <- c.fetch(ctx, endpoint.String(), reg)
	}()

	select {
	case payload := <-resolved:
		return Outcome{Verified: true, Payload: payload}, nil
	case err := <-done:
		if err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return Outcome{}, fmt.Errorf("%w after %s", ErrCallbackTimeout, timeout)
			}
			return Outcome{}, err
		}
		select {
		case payload := <-resolved:
			return Outcome{Verified: true, Payload: payload}, nil
		default:
			return Outcome{}, fmt.Errorf("callback %s was not invoked", name)
		}
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return Outcome{}, fmt.Errorf("%w after %s", ErrCallbackTimeout, timeout)
		}
		return Outcome{}, ctx.Err()
	}
}

// fetch loads the callback body and dispatches it through the registry.
func (c *Callback) fetch(ctx context.Context, target string, reg *registry) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := httpClient(c.Client).Do(req)
	if err != nil {
		return fmt.Errorf("callback request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("callback request failed: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCallbackBody))
	if err != nil {
		return fmt.Errorf("failed to read callback body: %w", err)
	}

	m := callbackBody.FindSubmatch(body)
	if m == nil {
		return fmt.Errorf("%w: body is not a callback invocation", model.ErrMalformedResponse)
	}
	payload := json.RawMessage(strings.TrimSpace(string(m[2])))
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	if !json.Valid(payload) {
		return fmt.Errorf("%w: callback payload is not json", model.ErrMalformedResponse)
	}
	if !reg.resolve(string(m[1]), payload) {
		return fmt.Errorf("%w: unknown callback %q", model.ErrMalformedResponse, m[1])
	}
	return nil
}
