package invoicesvc

import (
	"sync/atomic"
	"time"
)

// Stats are process-local counters shown by the admin console
type Stats struct {
	started   time.Time
	succeeded atomic.Int64
	failed    atomic.Int64
	archived  atomic.Int64
	lastSeq   atomic.Int64
}

type StatsSnapshot struct {
	Uptime    time.Duration
	Succeeded int64
	Failed    int64
	Archived  int64
	LastSeq   int64 // 0 = none issued by this process
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Uptime:    time.Since(s.started).Round(time.Second),
		Succeeded: s.succeeded.Load(),
		Failed:    s.failed.Load(),
		Archived:  s.archived.Load(),
		LastSeq:   s.lastSeq.Load(),
	}
}

// raiseLastSeq keeps the highest number seen, whatever order requests finish in
func (s *Stats) raiseLastSeq(seq int64) {
	for {
		cur := s.lastSeq.Load()
		if seq <= cur || s.lastSeq.CompareAndSwap(cur, seq) {
			return
		}
	}
}
