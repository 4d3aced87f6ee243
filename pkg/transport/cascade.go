// Package transport delivers timer records to the Apps Script web app
// through an ordered list of fallback strategies.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/harrisonrobin/sheetsync/pkg/model"
)

// ErrUnavailable means a strategy cannot run in this environment (for
// example it has no endpoint configured). The cascade moves on.
var ErrUnavailable = errors.New("strategy unavailable")

// Outcome is what a strategy observed after handing off a record.
// Payload is only set for verified outcomes.
type Outcome struct {
	Verified bool
	Payload  json.RawMessage
}

// Strategy is one way of getting a record to the backend. A nil error
// means the record was handed off, whether or not receipt was confirmed.
type Strategy interface {
	Name() string
	AttemptDeliver(ctx context.Context, rec model.TimerRecord) (Outcome, error)
}

// Attempt records one strategy's failure.
type Attempt struct {
	Strategy string
	Err      error
}

// Delivery is the cascade's result. When Delivered is false the caller is
// expected to fall back to the local cache.
type Delivery struct {
	Delivered bool
	Verified  bool
	Strategy  string
	Payload   json.RawMessage
	Attempts  []Attempt
	Err       error
}

// Exhausted reports whether every strategy failed.
func (d Delivery) Exhausted() bool {
	return !d.Delivered
}

// Cascade tries its strategies in order and stops at the first one that
// hands the record off.
type Cascade struct {
	strategies []Strategy
	logger     *slog.Logger
}

// NewCascade builds a cascade over strategies, in the order given.
func NewCascade(logger *slog.Logger, strategies ...Strategy) *Cascade {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cascade{strategies: strategies, logger: logger}
}

// Strategies returns the strategy names in attempt order.
func (c *Cascade) Strategies() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}

// Deliver never fails; an exhausted cascade is reported through the
// returned Delivery with Err wrapping model.ErrRemoteWriteExhausted.
func (c *Cascade) Deliver(ctx context.Context, rec model.TimerRecord) Delivery {
	var d Delivery
	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			d.Attempts = append(d.Attempts, Attempt{Strategy: s.Name(), Err: err})
			continue
		}

		out, err := s.AttemptDeliver(ctx, rec)
		if err != nil {
			if errors.Is(err, ErrUnavailable) {
				c.logger.Debug("strategy unavailable", "strategy", s.Name())
			} else {
				c.logger.Warn("delivery attempt failed", "strategy", s.Name(), "user", rec.User, "error", err)
			}
			d.Attempts = append(d.Attempts, Attempt{Strategy: s.Name(), Err: err})
			continue
		}

		c.logger.Info("record delivered", "strategy", s.Name(), "user", rec.User, "verified", out.Verified)
		d.Delivered = true
		d.Verified = out.Verified
		d.Strategy = s.Name()
		d.Payload = out.Payload
		return d
	}

	errs := []error{model.ErrRemoteWriteExhausted}
	for _, a := range d.Attempts {
		errs = append(errs, fmt.Errorf("%s: %w", a.Strategy, a.Err))
	}
	d.Err = errors.Join(errs...)
	return d
}

// RowPayload is the row the web app appends: timestamp, user, seconds,
// an empty formatted-time column the sheet fills in, and last update.
func RowPayload(rec model.TimerRecord) []any {
	return []any{rec.Timestamp, rec.User, rec.TotalSeconds, "", rec.LastUpdated}
}

type rowBody struct {
	Data []any `json:"data"`
}
