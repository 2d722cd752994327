package voice

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/code-100-precent/lingecho-vadasr/pkg/voice/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession(id string, created time.Time, conn message.Conn) *Session {
	return &Session{ID: id, CreatedAt: created, writer: message.NewWriter(conn, nil)}
}

func TestRegistry_AddRemove(t *testing.T) {
	r := NewRegistry()
	base := time.Unix(100, 0)
	s1 := testSession("a", base.Add(time.Second), newFakeConn())
	s2 := testSession("b", base, newFakeConn())
	defer s1.writer.Close()
	defer s2.writer.Close()

	r.Add(s1)
	r.Add(s2)
	assert.Equal(t, 2, r.Len())

	got, ok := r.Get("a")
	require.True(t, ok)
	assert.Same(t, s1, got)

	snap := r.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "b", snap[0].ID)

	assert.True(t, r.Remove("a"))
	assert.False(t, r.Remove("a"))
	_, ok = r.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_BroadcastSkipsClosed(t *testing.T) {
	r := NewRegistry()
	live, dead := newFakeConn(), newFakeConn()
	s1 := testSession("live", time.Now(), live)
	s2 := testSession("dead", time.Now(), dead)
	defer s1.writer.Close()
	require.NoError(t, s2.writer.Close())

	r.Add(s1)
	r.Add(s2)

	assert.Equal(t, 1, r.BroadcastChat("hello"))
	require.Eventually(t, func() bool {
		_, ok := live.find("chat")
		return ok
	}, time.Second, 10*time.Millisecond)
	assert.Empty(t, dead.messages())
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := testSession(string(rune('a'+i)), time.Now(), newFakeConn())
			defer s.writer.Close()
			r.Add(s)
			r.BroadcastChat("x")
			r.Snapshot()
			r.Remove(s.ID)
		}(i)
	}
	wg.Wait()
	assert.Zero(t, r.Len())
}

func TestPool_LimitsConcurrency(t *testing.T) {
	var peak atomic.Int64
	p := NewPool(2, func(n int64) {
		for {
			cur := peak.Load()
			if n <= cur || peak.CompareAndSwap(cur, n) {
				return
			}
		}
	})
	assert.Equal(t, 2, p.Size())

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Do(context.Background(), func(ctx context.Context) error {
				time.Sleep(20 * time.Millisecond)
				return nil
			})
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int64(2))
	assert.Zero(t, p.InFlight())
}

func TestPool_CanceledContext(t *testing.T) {
	p := NewPool(1, nil)
	hold := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = p.Do(context.Background(), func(ctx context.Context) error {
			close(started)
			<-hold
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := p.Do(ctx, func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
	close(hold)
}
