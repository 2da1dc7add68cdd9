package rwlock

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMultipleReadersConcurrent(t *testing.T) {
	l := New()
	var active int32
	var maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g := l.LockShared()
			defer g.Release()
			n := atomic.AddInt32(&active, 1)
			if n > atomic.LoadInt32(&maxActive) {
				atomic.StoreInt32(&maxActive, n)
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()
	require.Greater(t, maxActive, int32(1))
}

func TestExclusiveExcludesReaders(t *testing.T) {
	l := New()
	g := l.LockExclusive()

	done := make(chan struct{})
	go func() {
		rg := l.LockShared()
		rg.Release()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("reader acquired shared lock while writer held exclusive lock")
	case <-time.After(20 * time.Millisecond):
	}

	g.Release()
	<-done
}

func TestWriterPreference(t *testing.T) {
	l := New()
	rg := l.LockShared()

	writerAcquired := make(chan struct{})
	go func() {
		wg := l.LockExclusive()
		close(writerAcquired)
		wg.Release()
	}()

	// Give the writer time to register as waiting.
	time.Sleep(10 * time.Millisecond)

	lateReaderBlocked := make(chan struct{})
	go func() {
		rg2 := l.LockShared()
		rg2.Release()
		close(lateReaderBlocked)
	}()

	select {
	case <-lateReaderBlocked:
		t.Fatal("a new reader jumped ahead of a waiting writer")
	case <-time.After(20 * time.Millisecond):
	}

	rg.Release()
	<-writerAcquired
	<-lateReaderBlocked
}

func TestUnlockWithoutLockPanics(t *testing.T) {
	l := New()
	require.Panics(t, func() {
		l.unlockShared()
	})
	require.Panics(t, func() {
		l.unlockExclusive()
	})
}
