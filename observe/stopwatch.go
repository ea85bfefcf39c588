package observe

import (
	"sync"
	"time"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/stageflow/types"
)

/**
 * Stopwatch measures an arbitrary block inside a stage body:
 *
 *	sw := observe.Open(s.Observer(), "parse-request-execution-time")
 *	defer sw.Close()
 *
 * Close reports the duration to the observer, or logs a warning when none is registered.
 */
type Stopwatch struct {
	mu sync.Mutex

	identifier string
	observer   types.Observer
	clock      types.Clock

	start    time.Time
	duration time.Duration
	closed   bool
}

func Open(observer types.Observer, identifier string) *Stopwatch {
	return OpenWithClock(observer, identifier, types.SystemClock())
}

func OpenWithClock(observer types.Observer, identifier string, clock types.Clock) *Stopwatch {
	sw := &Stopwatch{identifier: identifier, observer: observer, clock: clock}
	sw.start = clock.Now()
	log.Tracef("started stopwatch %s", identifier)
	return sw
}

func (s *Stopwatch) Identifier() string {
	return s.identifier
}

// Duration is zero until Close.
func (s *Stopwatch) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

func (s *Stopwatch) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.Trace(types.NewConstructionError(types.ObservationError,
			"stopwatch %s closed twice", s.identifier))
	}
	s.closed = true
	s.duration = s.clock.Since(s.start)
	duration := s.duration
	s.mu.Unlock()

	if s.observer == nil {
		log.Warnf("stopwatch %s completed but there are no observers to report to", s.identifier)
		log.Tracef("stopwatch %s stopped after %v", s.identifier, duration)
		return nil
	}

	log.Tracef("stopwatch %s stopped after %v, notifying observer", s.identifier, duration)
	s.observer.ReceiveDuration(s.identifier, duration)
	return nil
}
