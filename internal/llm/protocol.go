package llm

import (
	"context"
	"errors"
	"time"

	"chatcart/internal/logger"
)

// Outcome labels a fallback invocation for logs and metrics.
type Outcome string

const (
	OutcomeOK        Outcome = "ok"
	OutcomeMalformed Outcome = "malformed"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeError     Outcome = "error"
	OutcomeDisabled  Outcome = "disabled"
)

// Observer receives one call per fallback invocation.
type Observer interface {
	ObserveGeneration(provider string, outcome Outcome, took time.Duration)
}

// Fallback is the generative fallback protocol: prompt construction,
// deadline-bounded invocation and tolerant parsing. It never retries.
type Fallback struct {
	gen      Generator
	timeout  time.Duration
	opts     Options
	observer Observer
}

// NewFallback wraps gen. A nil gen makes every Ask return ErrNoGenerator.
func NewFallback(gen Generator, timeout time.Duration, opts Options, observer Observer) *Fallback {
	return &Fallback{gen: gen, timeout: timeout, opts: opts, observer: observer}
}

// Available reports whether a generation endpoint is configured.
func (f *Fallback) Available() bool {
	return f != nil && f.gen != nil
}

// Ask builds the prompt, calls the endpoint under the deadline and parses
// the reply. Errors are ErrNoGenerator, ErrUpstreamTimeout or *UpstreamError;
// malformed replies are not errors.
func (f *Fallback) Ask(ctx context.Context, in PromptInput) (Reply, Outcome, error) {
	if !f.Available() {
		return Reply{}, OutcomeDisabled, ErrNoGenerator
	}

	callCtx := ctx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := f.gen.Generate(callCtx, BuildPrompt(in), f.opts)
	took := time.Since(start)

	if err != nil {
		outcome := OutcomeError
		if errors.Is(err, ErrUpstreamTimeout) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			outcome = OutcomeTimeout
			if !errors.Is(err, ErrUpstreamTimeout) {
				err = errors.Join(ErrUpstreamTimeout, err)
			}
		}
		f.observe(outcome, took)
		logger.Warn().
			Err(err).
			Str("provider", f.gen.Name()).
			Str("outcome", string(outcome)).
			Dur("took", took).
			Msg("Generation fallback failed")
		return Reply{}, outcome, err
	}

	reply := ParseReply(text)
	outcome := OutcomeOK
	if reply.Malformed {
		outcome = OutcomeMalformed
	}
	f.observe(outcome, took)
	logger.Debug().
		Str("provider", f.gen.Name()).
		Str("outcome", string(outcome)).
		Str("action", string(reply.Action)).
		Int("product_ids", len(reply.ProductIDs)).
		Dur("took", took).
		Msg("Generation fallback replied")
	return reply, outcome, nil
}

func (f *Fallback) observe(outcome Outcome, took time.Duration) {
	if f.observer != nil {
		f.observer.ObserveGeneration(f.gen.Name(), outcome, took)
	}
}
