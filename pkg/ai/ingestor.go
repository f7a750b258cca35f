package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sanuei/YoutubePlanner-sub000/pkg/logger"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/semaphore"
)

const (
	OutcomeDone     = "done"
	OutcomeError    = "error"
	OutcomeTimeout  = "timeout"
	OutcomeCanceled = "canceled"
)

// Observer receives stream statistics. internal/metrics implements it.
type Observer interface {
	Fragment(provider string)
	Malformed(provider string)
	Finished(provider, outcome string, d time.Duration)
}

type nopObserver struct{}

func (nopObserver) Fragment(string)                        {}
func (nopObserver) Malformed(string)                       {}
func (nopObserver) Finished(string, string, time.Duration) {}

// Ingestor opens streaming completions and turns provider frames into
// plain text increments.
type Ingestor struct {
	client   *http.Client
	resolve  Resolver
	reqLock  *semaphore.Weighted
	observer Observer

	breakerMu sync.Mutex
	breakers  map[string]*gobreaker.CircuitBreaker
}

// IngestorParams configures an Ingestor.
//
// MaxConcurrentRequests bounds the number of open provider streams across
// all sessions (default 4). HTTPClient defaults to a client without its own
// timeout; every stream is bounded by ProviderConfig.Timeout instead.
type IngestorParams struct {
	Resolver              Resolver
	HTTPClient            *http.Client
	MaxConcurrentRequests int64
	Observer              Observer
}

func NewIngestor(params IngestorParams) *Ingestor {
	client := params.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	limit := params.MaxConcurrentRequests
	if limit <= 0 {
		limit = 4
	}
	observer := params.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	return &Ingestor{
		client:   client,
		resolve:  params.Resolver,
		reqLock:  semaphore.NewWeighted(limit),
		observer: observer,
		breakers: map[string]*gobreaker.CircuitBreaker{},
	}
}

// Stream opens a completion for prompt. Configuration problems, timeouts
// while connecting and non-2xx responses are returned directly. After that
// the channel carries content events followed by exactly one done or
// error event, unless ctx is canceled, in which case it is closed without
// a terminal event.
func (in *Ingestor) Stream(ctx context.Context, cfg ProviderConfig, prompt string) (<-chan StreamEvent, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if in.resolve == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Kind)
	}
	adapter, err := in.resolve(cfg.Kind)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	name := adapter.Name()
	tctx, cancel := context.WithTimeoutCause(ctx, cfg.Timeout, ErrTimeout)

	if err := in.reqLock.Acquire(tctx, 1); err != nil {
		cancel()
		err = classify(ctx, tctx, err)
		in.observer.Finished(name, outcomeOf(err), time.Since(start))
		return nil, err
	}

	resp, err := in.open(tctx, adapter, cfg, prompt)
	if err != nil {
		in.reqLock.Release(1)
		cancel()
		err = classify(ctx, tctx, err)
		logger.Error("[Stream] failed to open completion", "provider", name, "err", err)
		in.observer.Finished(name, outcomeOf(err), time.Since(start))
		return nil, err
	}

	events := make(chan StreamEvent, 16)
	go func() {
		defer close(events)
		defer in.reqLock.Release(1)
		defer cancel()
		defer resp.Body.Close()

		fragments := 0
		readErr := ReadFrames(resp.Body, adapter.Framing(), func(f Frame) error {
			delta, err := adapter.Decode(f)
			if err != nil {
				if errors.Is(err, ErrMalformedFrame) {
					logger.Warn("[Stream] skipping malformed frame", "provider", name, "err", err)
					in.observer.Malformed(name)
					return nil
				}
				return err
			}
			if delta.Text != "" {
				select {
				case events <- StreamEvent{Type: EventContent, Content: delta.Text}:
					fragments++
					in.observer.Fragment(name)
				case <-tctx.Done():
					return tctx.Err()
				}
			}
			if delta.Done {
				return errStopFrames
			}
			return nil
		})

		// A body that ends early because the deadline hit must not count as done.
		if readErr == nil && tctx.Err() != nil {
			readErr = tctx.Err()
		}

		terminal := StreamEvent{Type: EventDone}
		if readErr != nil {
			readErr = classify(ctx, tctx, readErr)
			terminal = StreamEvent{Type: EventError, Err: readErr}
		}
		outcome := outcomeOf(readErr)
		in.observer.Finished(name, outcome, time.Since(start))
		logger.Info("[Stream] completion finished", "provider", name, "outcome", outcome, "fragments", fragments, "duration", time.Since(start))

		if errors.Is(readErr, ErrCanceled) {
			return
		}
		select {
		case events <- terminal:
		case <-ctx.Done():
		}
	}()

	return events, nil
}

func (in *Ingestor) open(ctx context.Context, adapter Adapter, cfg ProviderConfig, prompt string) (*http.Response, error) {
	req, err := adapter.NewRequest(ctx, cfg, prompt)
	if err != nil {
		return nil, err
	}

	res, err := in.breaker(adapter.Name(), req.URL.Host).Execute(func() (any, error) {
		resp, err := in.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			defer resp.Body.Close()
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
			return nil, NewProviderError(resp.StatusCode, body)
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &ProviderError{
				Status:  http.StatusServiceUnavailable,
				Message: fmt.Sprintf("%s is temporarily unavailable: %v", adapter.Name(), err),
			}
		}
		return nil, err
	}
	return res.(*http.Response), nil
}

// breaker returns the circuit breaker for one provider host. Only server
// side failures count against it.
func (in *Ingestor) breaker(provider, host string) *gobreaker.CircuitBreaker {
	key := provider + "|" + host
	in.breakerMu.Lock()
	defer in.breakerMu.Unlock()
	if cb, ok := in.breakers[key]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        key,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("[Stream] circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var pe *ProviderError
			if errors.As(err, &pe) {
				return pe.Status < 500 && pe.Status != http.StatusTooManyRequests
			}
			return false
		},
	})
	in.breakers[key] = cb
	return cb
}

// classify maps low level failures onto the package errors.
func classify(parent, tctx context.Context, err error) error {
	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrCanceled):
		return err
	case errors.Is(context.Cause(tctx), ErrTimeout), errors.Is(parent.Err(), context.DeadlineExceeded):
		return ErrTimeout
	case parent.Err() != nil:
		return ErrCanceled
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Message: err.Error()}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeDone
	case errors.Is(err, ErrTimeout):
		return OutcomeTimeout
	case errors.Is(err, ErrCanceled):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}

// Run streams prompt into buf as generation gen and returns the terminal
// error. notify, when set, sees every content event that was accepted by
// the buffer.
func (in *Ingestor) Run(ctx context.Context, cfg ProviderConfig, prompt string, buf *Buffer, gen uint64, notify func(StreamEvent)) error {
	events, err := in.Stream(ctx, cfg, prompt)
	if err != nil {
		buf.Finish(gen, err)
		return err
	}

	var final error
	terminated := false
	for ev := range events {
		switch ev.Type {
		case EventContent:
			if buf.Append(gen, ev.Content) && notify != nil {
				notify(ev)
			}
		case EventError:
			final, terminated = ev.Err, true
		case EventDone:
			terminated = true
		}
	}
	if !terminated {
		final = ErrCanceled
	}
	buf.Finish(gen, final)
	return final
}
