package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRetrying(p MailProvider) (*RetryingProvider, *noSleep) {
	ns := &noSleep{}
	r := NewRetryingProvider(p, DefaultRetryPolicy(), nil)
	r.sleep = ns.sleep
	return r, ns
}

func TestRetryRecoversFromTransientErrors(t *testing.T) {
	p := newFakeProvider()
	p.add(plainMessage("1", "a@b.c", "s", "b"))
	p.listErrs = []error{transientErr("list"), transientErr("list")}

	r, ns := newTestRetrying(p)
	page, err := r.ListMessages(context.Background(), "q", "", 10)
	require.NoError(t, err)
	assert.Len(t, page.Messages, 1)
	assert.Len(t, p.listCalls, 3)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, ns.delays)
}

func TestRetryGivesUpAfterThreeRetries(t *testing.T) {
	p := newFakeProvider()
	p.listErrs = []error{transientErr("list"), transientErr("list"), transientErr("list"), transientErr("list"), nil}

	r, ns := newTestRetrying(p)
	_, err := r.ListMessages(context.Background(), "q", "", 10)
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Len(t, p.listCalls, 4)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, ns.delays)
}

func TestRetrySkipsFatalErrors(t *testing.T) {
	p := newFakeProvider()
	p.listErrs = []error{fatalErr("list")}

	r, ns := newTestRetrying(p)
	_, err := r.ListMessages(context.Background(), "q", "", 10)
	require.Error(t, err)
	assert.False(t, IsTransient(err))
	assert.Len(t, p.listCalls, 1)
	assert.Empty(t, ns.delays)
}

func TestRetryGetMessage(t *testing.T) {
	p := newFakeProvider()
	p.add(plainMessage("1", "a@b.c", "s", "b"))
	p.getErrs["1"] = transientErr("get")

	r, _ := newTestRetrying(p)
	_, err := r.GetMessage(context.Background(), "1")
	assert.True(t, IsTransient(err))
	assert.Len(t, p.getCalls, 4)

	_, err = r.GetMessage(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRetryHonoursCancellation(t *testing.T) {
	p := newFakeProvider()
	p.listErrs = []error{transientErr("list"), transientErr("list")}

	r := NewRetryingProvider(p, RetryPolicy{MaxRetries: 3, BaseDelay: time.Hour}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.ListMessages(ctx, "q", "", 10)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, p.listCalls, 1)
}

func TestRetryPolicyDelay(t *testing.T) {
	p := RetryPolicy{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: 5 * time.Second}
	assert.Equal(t, time.Second, p.Delay(0))
	assert.Equal(t, 4*time.Second, p.Delay(2))
	assert.Equal(t, 5*time.Second, p.Delay(3))
}
