package connectivity

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/plantcare/internal/testutil"
)

type fakePinger struct {
	mu  sync.Mutex
	err error
}

func (f *fakePinger) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakePinger) set(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func TestMonitor_StartsUnknown(t *testing.T) {
	m := NewMonitor(&fakePinger{}, testutil.DiscardLogger())
	assert.Equal(t, ModeUnknown, m.Mode())
	assert.False(t, m.IsOnline())
}

func TestMonitor_CheckTransitions(t *testing.T) {
	p := &fakePinger{}
	m := NewMonitor(p, testutil.DiscardLogger())

	var reconnects atomic.Int32
	m.OnReconnect(func(context.Context) { reconnects.Add(1) })

	ctx := context.Background()
	assert.Equal(t, ModeOnline, m.Check(ctx))
	assert.Equal(t, ModeOnline, m.Check(ctx))
	assert.EqualValues(t, 1, reconnects.Load(), "hook fires on transitions only")

	p.set(errors.New("refused"))
	assert.Equal(t, ModeOffline, m.Check(ctx))

	p.set(nil)
	m.Check(ctx)
	assert.EqualValues(t, 2, reconnects.Load())

	m.MarkOffline()
	assert.False(t, m.IsOnline())
}

func TestMonitor_CancelledCheckKeepsMode(t *testing.T) {
	p := &fakePinger{}
	m := NewMonitor(p, testutil.DiscardLogger())
	m.Check(context.Background())

	p.set(context.Canceled)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, ModeOnline, m.Check(ctx))
}

func TestMonitor_Run(t *testing.T) {
	m := NewMonitor(&fakePinger{}, testutil.DiscardLogger())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		m.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, m.IsOnline, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
