// Package rwlock provides a writer-preferring many-reader/single-writer
// lock with scoped, RAII-style guards.
//
// Go's sync.RWMutex intentionally leaves reader/writer fairness
// unspecified, but this system's build/search contract requires writer
// preference (readers must not be able to starve a pending index rebuild).
// The implementation below is therefore hand-rolled on top of
// sync.Mutex + sync.Cond, grounded directly on a condition-variable-based
// manual read/write lock rather than the standard library's RWMutex.
package rwlock

import "sync"

// RWLock is a writer-preferring reader/writer lock.
type RWLock struct {
	mu sync.Mutex

	readerCond sync.Cond
	writerCond sync.Cond

	readers        int
	writerActive   bool
	writersWaiting int
}

// New creates a ready-to-use RWLock.
func New() *RWLock {
	l := &RWLock{}
	l.readerCond.L = &l.mu
	l.writerCond.L = &l.mu
	return l
}

// ReadGuard releases a shared acquisition when it goes out of scope.
type ReadGuard struct {
	l *RWLock
}

// Release releases the shared lock. Calling it more than once is a
// programming error; it panics when no shared acquisition remains to
// release, the same way unlocking an already-unlocked mutex does.
func (g ReadGuard) Release() {
	g.l.unlockShared()
}

// WriteGuard releases an exclusive acquisition when it goes out of scope.
type WriteGuard struct {
	l *RWLock
}

// Release releases the exclusive lock.
func (g WriteGuard) Release() {
	g.l.unlockExclusive()
}

// LockShared blocks until no writer holds the lock and no writer is
// waiting, then returns a guard. Callers must call Release exactly once,
// typically via `defer guard.Release()`.
func (l *RWLock) LockShared() ReadGuard {
	l.mu.Lock()
	for l.writerActive || l.writersWaiting > 0 {
		l.readerCond.Wait()
	}
	l.readers++
	l.mu.Unlock()
	return ReadGuard{l: l}
}

func (l *RWLock) unlockShared() {
	l.mu.Lock()
	l.readers--
	if l.readers < 0 {
		l.mu.Unlock()
		panic("rwlock: unlockShared called without a matching LockShared")
	}
	if l.readers == 0 {
		l.writerCond.Signal()
	}
	l.mu.Unlock()
}

// LockExclusive waits until no readers and no writer are active, then
// enters alone and returns a guard. Callers must call Release exactly
// once.
func (l *RWLock) LockExclusive() WriteGuard {
	l.mu.Lock()
	l.writersWaiting++
	for l.readers > 0 || l.writerActive {
		l.writerCond.Wait()
	}
	l.writersWaiting--
	l.writerActive = true
	l.mu.Unlock()
	return WriteGuard{l: l}
}

func (l *RWLock) unlockExclusive() {
	l.mu.Lock()
	if !l.writerActive {
		l.mu.Unlock()
		panic("rwlock: unlockExclusive called without a matching LockExclusive")
	}
	l.writerActive = false
	if l.writersWaiting > 0 {
		l.writerCond.Signal()
	} else {
		l.readerCond.Broadcast()
	}
	l.mu.Unlock()
}
