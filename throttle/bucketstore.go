package throttle

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/zeptools/gw-invoice/svc"
)

// BucketStore keeps one bucket per caller key and runs as a service
// that drops buckets idle for longer than cleanupOlderThan.
type BucketStore struct {
	Ctx              context.Context    // Service Context
	cancel           context.CancelFunc // Service Context CancelFunc
	state            int                // internal service state
	done             chan error         // Shutdown Error Channel
	conf             *BucketConf
	cleanupCycle     time.Duration
	cleanupOlderThan time.Duration
	buckets          sync.Map // key -> *Bucket
}

// Ensure BucketStore implements svc.Service
var _ svc.Service = (*BucketStore)(nil)

func NewBucketStore(parentCtx context.Context, conf *BucketConf, cleanupCycle time.Duration, cleanupOlderThan time.Duration) *BucketStore {
	svcCtx, svcCancel := context.WithCancel(parentCtx)
	return &BucketStore{
		Ctx:              svcCtx,
		cancel:           svcCancel,
		state:            svc.StateREADY,
		done:             make(chan error, 1),
		conf:             conf,
		cleanupCycle:     cleanupCycle,
		cleanupOlderThan: cleanupOlderThan,
	}
}

func (s *BucketStore) Name() string {
	return "ThrottleBucketStore"
}

// Start starts the cleanup loop
func (s *BucketStore) Start() error {
	if s.state == svc.StateRUNNING {
		return fmt.Errorf("already started")
	}
	if s.state != svc.StateREADY {
		return fmt.Errorf("cannot start. not ready")
	}
	s.state = svc.StateRUNNING
	log.Printf("[INFO][Throttle] cleanup service started cycle=%v exp=%v", s.cleanupCycle, s.cleanupOlderThan)
	go s.run()
	return nil
}

func (s *BucketStore) Stop() {
	if s.state != svc.StateRUNNING {
		log.Println("[ERROR][Throttle] cannot stop. not running")
		return
	}
	s.cancel()
	s.state = svc.StateSTOPPED
	log.Println("[INFO][Throttle] service stopped")
}

func (s *BucketStore) Done() <-chan error {
	return s.done
}

func (s *BucketStore) run() {
	ticker := time.NewTicker(s.cleanupCycle)
	defer ticker.Stop()
	for {
		select {
		case <-s.Ctx.Done():
			log.Println("[INFO][Throttle] stopping cleaning service")
			s.done <- nil
			return
		case now := <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.Printf("[PANIC] recovered in throttle bucketstore cleaning service: %v", r)
					}
				}()
				if n := s.Cleanup(now); n > 0 {
					log.Printf("[INFO][Throttle] %d idle buckets removed", n)
				}
			}()
		}
	}
}

// Allow takes one token from key's bucket. A new key starts with a full bucket.
func (s *BucketStore) Allow(key string, now time.Time) bool {
	if v, ok := s.buckets.Load(key); ok {
		return v.(*Bucket).Allow(now)
	}
	fresh := &Bucket{tokens: s.conf.Burst, lastCheck: now, conf: s.conf}
	v, _ := s.buckets.LoadOrStore(key, fresh)
	return v.(*Bucket).Allow(now)
}

// Cleanup removes buckets untouched since before now-cleanupOlderThan
func (s *BucketStore) Cleanup(now time.Time) int {
	removed := 0
	s.buckets.Range(func(key, value any) bool {
		if now.Sub(value.(*Bucket).idleSince()) > s.cleanupOlderThan {
			s.buckets.Delete(key)
			removed++
		}
		return true // continue iteration
	})
	return removed
}
