package form_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"woorkroom-web/form"
)

func TestSubmitter_InvalidNeverCallsFn(t *testing.T) {
	s := form.NewSubmitter(zap.NewNop())
	var calls int32

	err := s.Submit(context.Background(), "f1", form.Registration, form.Values{form.FieldName: "short"},
		func(context.Context) error {
			atomic.AddInt32(&calls, 1)
			return nil
		})

	var verr *form.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors, form.FieldName)
	assert.Zero(t, atomic.LoadInt32(&calls))
	assert.Equal(t, form.Idle, s.State("f1"))
}

func TestSubmitter_ValidCallsFnOnce(t *testing.T) {
	s := form.NewSubmitter(zap.NewNop())
	var calls int32

	err := s.Submit(context.Background(), "f1", form.Registration, validRegistration(),
		func(context.Context) error {
			atomic.AddInt32(&calls, 1)
			return nil
		})

	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	assert.Equal(t, form.Idle, s.State("f1"))
}

func TestSubmitter_PropagatesFailure(t *testing.T) {
	s := form.NewSubmitter(zap.NewNop())
	boom := errors.New("Username taken")

	err := s.Submit(context.Background(), "f1", form.Registration, validRegistration(),
		func(context.Context) error { return boom })

	assert.ErrorIs(t, err, boom)
	// Failed is terminal: the next attempt goes through.
	require.NoError(t, s.Submit(context.Background(), "f1", form.Registration, validRegistration(),
		func(context.Context) error { return nil }))
}

func TestSubmitter_SecondSubmitWhileInFlight(t *testing.T) {
	s := form.NewSubmitter(zap.NewNop())
	var calls int32
	entered := make(chan struct{})
	release := make(chan struct{})

	done := make(chan error, 1)
	go func() {
		done <- s.Submit(context.Background(), "f1", form.Registration, validRegistration(),
			func(context.Context) error {
				atomic.AddInt32(&calls, 1)
				close(entered)
				<-release
				return nil
			})
	}()

	<-entered
	assert.Equal(t, form.Submitting, s.State("f1"))

	err := s.Submit(context.Background(), "f1", form.Registration, validRegistration(),
		func(context.Context) error {
			atomic.AddInt32(&calls, 1)
			return nil
		})
	assert.ErrorIs(t, err, form.ErrInFlight)

	// Other instances are independent.
	require.NoError(t, s.Submit(context.Background(), "f2", form.Registration, validRegistration(),
		func(context.Context) error { return nil }))

	close(release)
	require.NoError(t, <-done)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestSubmitter_EmptyInstanceIsNotDeduplicated(t *testing.T) {
	s := form.NewSubmitter(zap.NewNop())
	var calls int32
	fn := func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}

	require.NoError(t, s.Submit(context.Background(), "", form.Login, form.Values{
		form.FieldUsername: "adalovelace", form.FieldPassword: "secret1",
	}, fn))
	require.NoError(t, s.Submit(context.Background(), "", form.Login, form.Values{
		form.FieldUsername: "adalovelace", form.FieldPassword: "secret1",
	}, fn))
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestSubmitter_DiscardsAfterCallerLeaves(t *testing.T) {
	s := form.NewSubmitter(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	entered := make(chan struct{})
	release := make(chan struct{})
	var fnCtxErr error

	done := make(chan error, 1)
	go func() {
		done <- s.Submit(ctx, "f1", form.Registration, validRegistration(),
			func(fnCtx context.Context) error {
				close(entered)
				<-release
				fnCtxErr = fnCtx.Err()
				return nil
			})
	}()

	<-entered
	cancel()
	close(release)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, form.ErrDiscarded)
	case <-time.After(time.Second):
		t.Fatal("submit did not return")
	}
	assert.NoError(t, fnCtxErr, "the call itself is never cancelled")
	assert.Equal(t, form.Idle, s.State("f1"))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "submitting", form.Submitting.String())
	assert.Equal(t, "unknown", form.State(42).String())
}
