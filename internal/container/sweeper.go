package container

import (
	"time"

	"github.com/serroba/shortlink/internal/store"
)

const (
	rateLimitSweepInterval = 5 * time.Minute

	// longest window of the default policy and the endpoint limits
	rateLimitMaxWindow = time.Hour
)

// sweepingRateLimitStore periodically drops idle keys from the in-memory
// rate limit store so it does not grow with every client ever seen.
type sweepingRateLimitStore struct {
	*store.RateLimitMemoryStore

	stop chan struct{}
	done chan struct{}
}

func newSweepingRateLimitStore(interval, maxWindow time.Duration) *sweepingRateLimitStore {
	s := &sweepingRateLimitStore{
		RateLimitMemoryStore: store.NewRateLimitMemoryStore(),
		stop:                 make(chan struct{}),
		done:                 make(chan struct{}),
	}

	go s.run(interval, maxWindow)

	return s
}

func (s *sweepingRateLimitStore) run(interval, maxWindow time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(maxWindow)
		case <-s.stop:
			return
		}
	}
}

// Shutdown stops the sweeper.
func (s *sweepingRateLimitStore) Shutdown() error {
	close(s.stop)
	<-s.done

	return nil
}
