package resolve

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/renovate-resolver/resolver/engine/preset"
	"github.com/renovate-resolver/resolver/engine/schema"
	"github.com/renovate-resolver/resolver/pkg/logger"
)

// ValidatorProvider hands out the process-wide compiled validator.
type ValidatorProvider interface {
	Get(ctx context.Context) (*schema.Validator, error)
}

// Observer receives per-request measurements. Implementations must be safe for concurrent use.
type Observer interface {
	ObserveValidation(ctx context.Context, valid bool, violations int, duration time.Duration)
	ObserveOutcome(ctx context.Context, state State, duration time.Duration)
}

// Outcome is the terminal result of one request.
type Outcome struct {
	State  State
	Status int
	Body   any
	Err    error
	// Dropped is set when the client went away before the result could be delivered.
	Dropped bool
	// Trail lists every state the request entered, ending with State.
	Trail []State
}

type Orchestrator struct {
	validators ValidatorProvider
	resolver   preset.Resolver
	observer   Observer
}

type Option func(*Orchestrator)

func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		o.observer = obs
	}
}

func NewOrchestrator(validators ValidatorProvider, resolver preset.Resolver, opts ...Option) *Orchestrator {
	o := &Orchestrator{validators: validators, resolver: resolver}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Handle runs one /resolve request through decode, validation and resolution.
// An empty body is treated as the empty object.
func (o *Orchestrator) Handle(ctx context.Context, body []byte) (out Outcome) {
	start := time.Now()
	log := logger.FromContext(ctx)
	trail := make([]State, 0, 4)
	enter := func(s State) {
		trail = append(trail, s)
		log.Debug("Resolve request state", "state", s.String())
	}
	enter(StateReceived)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Unhandled error while resolving Renovate config", "panic", r, "state", trail[len(trail)-1].String())
			out = failure(StateUnhandled, http.StatusInternalServerError, MsgInternalError, fmt.Errorf("panic: %v", r))
		}
		enter(out.State)
		out.Trail = trail
		if o.observer != nil {
			o.observer.ObserveOutcome(ctx, out.State, time.Since(start))
		}
	}()

	doc, err := Decode(body)
	if err != nil {
		log.Warn("Rejected malformed request body", "error", err)
		return failure(StateRequestError, http.StatusBadRequest, err.Error(), err)
	}
	log.Info("Received /resolve request", "bytes", len(body))
	log.Debug("Request body", "body", doc)

	enter(StateValidating)
	validator, err := o.validators.Get(ctx)
	if err != nil {
		log.Error("Renovate schema validator unavailable", "error", err)
		return failure(StateUnhandled, http.StatusInternalServerError, MsgSchemaNotReady, err)
	}
	validateStart := time.Now()
	result := validator.Validate(doc)
	if o.observer != nil {
		o.observer.ObserveValidation(ctx, result.Valid, len(result.Violations), time.Since(validateStart))
	}
	if !result.Valid {
		log.Info("Renovate config failed validation", "violations", len(result.Violations))
		return Outcome{
			State:  StateValidationFailed,
			Status: http.StatusBadRequest,
			Body:   ErrorBody{Error: MsgInvalidConfig, Details: result.Violations},
			Err:    &ValidationError{Violations: result.Violations},
		}
	}
	config, ok := doc.(map[string]any)
	if !ok {
		return failure(StateRequestError, http.StatusBadRequest, MsgNotAnObject, ErrMalformedRequest)
	}

	enter(StateResolving)
	resolved, err := o.resolver.Resolve(ctx, config)
	if err != nil {
		log.Error("Error resolving Renovate config", "error", err)
		msg := err.Error()
		if msg == "" {
			msg = MsgInternalError
		}
		return failure(StateResolutionFailed, http.StatusInternalServerError, msg, err)
	}
	out = Outcome{State: StateCompleted, Status: http.StatusOK, Body: resolved}
	if ctx.Err() != nil {
		log.Warn("Client went away, dropping resolved config", "error", ctx.Err())
		out.Dropped = true
	}
	return out
}

func failure(state State, status int, msg string, err error) Outcome {
	return Outcome{State: state, Status: status, Body: ErrorBody{Error: msg}, Err: err}
}

// Decode parses a request body, keeping numbers as json.Number so they are echoed unchanged.
// Blank input and a JSON null decode to an empty object. Errors wrap ErrMalformedRequest.
func Decode(body []byte) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after JSON value", ErrMalformedRequest)
	}
	if doc == nil {
		return map[string]any{}, nil
	}
	return doc, nil
}
