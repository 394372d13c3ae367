package form

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State of a form instance.
type State int

const (
	Idle State = iota
	Validating
	Invalid
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case Invalid:
		return "invalid"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

var (
	// ErrInFlight is returned when the instance is already submitting.
	ErrInFlight = errors.New("form: submission already in progress")
	// ErrDiscarded is returned when the caller went away before the submission finished.
	// Its outcome must not be acted upon.
	ErrDiscarded = errors.New("form: submission result discarded")
)

// ValidationError carries the per-field errors of a rejected submission.
type ValidationError struct {
	Errors Errors
}

func (e *ValidationError) Error() string { return "form: validation failed" }

// SubmitFunc performs the submission, typically one network call.
type SubmitFunc func(ctx context.Context) error

// Submitter runs submissions and allows at most one in flight per form instance.
type Submitter struct {
	logger *zap.Logger

	mu     sync.Mutex
	active map[string]State
}

// NewSubmitter returns an idle Submitter.
func NewSubmitter(logger *zap.Logger) *Submitter {
	return &Submitter{logger: logger, active: make(map[string]State)}
}

// State reports the state of instance. Instances not currently validating or submitting
// are Idle.
func (s *Submitter) State(instance string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.active[instance]; ok {
		return st
	}
	return Idle
}

// Submit validates values against f and runs fn when every field passes.
//
// A *ValidationError is returned when validation fails, ErrInFlight when instance is
// already submitting. fn is detached from ctx's cancellation and always runs to completion;
// if ctx is done by then, ErrDiscarded is returned instead of fn's result. An empty
// instance is never deduplicated.
func (s *Submitter) Submit(ctx context.Context, instance string, f Form, values Values, fn SubmitFunc) error {
	if instance == "" {
		instance = uuid.NewString()
	}

	s.mu.Lock()
	if st, busy := s.active[instance]; busy {
		s.mu.Unlock()
		s.logger.Debug("submission ignored", zap.String("form", f.Name), zap.String("instance", instance),
			zap.Stringer("state", st))
		return ErrInFlight
	}
	s.active[instance] = Validating
	s.mu.Unlock()

	if errs := f.Validate(values); !errs.Valid() {
		s.finish(f, instance, Invalid)
		return &ValidationError{Errors: errs}
	}

	s.mu.Lock()
	s.active[instance] = Submitting
	s.mu.Unlock()

	err := fn(context.WithoutCancel(ctx))

	if ctx.Err() != nil {
		s.finish(f, instance, Idle)
		s.logger.Info("submission outcome discarded", zap.String("form", f.Name),
			zap.String("instance", instance), zap.NamedError("outcome", err))
		return ErrDiscarded
	}
	if err != nil {
		s.finish(f, instance, Failed)
		return err
	}
	s.finish(f, instance, Succeeded)
	return nil
}

func (s *Submitter) finish(f Form, instance string, terminal State) {
	s.mu.Lock()
	delete(s.active, instance)
	s.mu.Unlock()
	s.logger.Debug("submission finished", zap.String("form", f.Name), zap.String("instance", instance),
		zap.Stringer("state", terminal))
}
