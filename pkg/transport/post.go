package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/harrisonrobin/sheetsync/pkg/model"
)

// OpaquePost sends the record as a JSON body and never looks at the
// response. Only transport-level failures count as failures.
type OpaquePost struct {
	URL    string
	Client *http.Client
}

func (p *OpaquePost) Name() string { return "opaque-post" }

func (p *OpaquePost) AttemptDeliver(ctx context.Context, rec model.TimerRecord) (Outcome, error) {
	if p.URL == "" {
		return Outcome{}, ErrUnavailable
	}
	body, err := json.Marshal(rowBody{Data: RowPayload(rec)})
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to encode row: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(body))
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient(p.Client).Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("post failed: %w", err)
	}
	// status and body are deliberately ignored
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return Outcome{Verified: false}, nil
}

// FormPost submits the row as a single urlencoded "data" field, the
// shape a plain HTML form post takes. The response is abandoned after
// Grace.
type FormPost struct {
	URL    string
	Client *http.Client
	Grace  time.Duration
}

const defaultGrace = time.Second

func (p *FormPost) Name() string { return "form-post" }

func (p *FormPost) AttemptDeliver(ctx context.Context, rec model.TimerRecord) (Outcome, error) {
	if p.URL == "" {
		return Outcome{}, ErrUnavailable
	}
	row, err := json.Marshal(RowPayload(rec))
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to encode row: %w", err)
	}
	form := url.Values{"data": {string(row)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to build form: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient(p.Client).Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("form submit failed: %w", err)
	}

	grace := p.Grace
	if grace <= 0 {
		grace = defaultGrace
	}
	drained := make(chan struct{})
	go func() {
		io.Copy(io.Discard, resp.Body)
		close(drained)
	}()
	timer := time.NewTimer(grace)
	select {
	case <-drained:
	case <-timer.C:
	}
	timer.Stop()
	resp.Body.Close()
	return Outcome{Verified: false}, nil
}

func httpClient(c *http.Client) *http.Client {
	if c == nil {
		return http.DefaultClient
	}
	return c
}
