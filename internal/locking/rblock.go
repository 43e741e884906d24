package locking

import "github.com/puzpuzpuz/xsync/v3"

// readerBiased backs thread_safe=true with xsync's RBMutex (the BRAVO
// algorithm), the same lock codeGROOVE-dev's sfcache uses to guard its
// shard state (see s3fifo.go). Unlike s3fifo.go's writer-only use of the
// mutex, this module actually exercises the reader path: the read-only
// engine methods (Info, Contains, IsEmpty, IsFull, ForEach) call RLock
// instead of Lock, so cache_info()/cache_contains_* snapshot traffic
// between mutations doesn't queue behind a plain mutex's single-owner
// line the way it would under sync.Mutex.
type readerBiased struct {
	mu *xsync.RBMutex
}

func newReaderBiased() Locker {
	return readerBiased{mu: xsync.NewRBMutex()}
}

func (r readerBiased) Lock()   { r.mu.Lock() }
func (r readerBiased) Unlock() { r.mu.Unlock() }

func (r readerBiased) RLock() RToken {
	return r.mu.RLock()
}

func (r readerBiased) RUnlock(t RToken) {
	r.mu.RUnlock(t.(*xsync.RToken))
}
