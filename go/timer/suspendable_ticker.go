/*
Copyright 2026 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package timer drives the rounds of the planner's background daemons.
package timer

import (
	"sync"
	"sync/atomic"
	"time"
)

// SuspendableTicker delivers ticks on C like a time.Ticker. Ticks that fall
// while it is suspended are dropped.
type SuspendableTicker struct {
	ticker *time.Ticker
	C      chan time.Time

	suspended atomic.Bool
	done      chan struct{}
	stopOnce  sync.Once
}

// NewSuspendableTicker starts a ticker with period d, suspended or not.
func NewSuspendableTicker(d time.Duration, initiallySuspended bool) *SuspendableTicker {
	s := &SuspendableTicker{
		ticker: time.NewTicker(d),
		C:      make(chan time.Time),
		done:   make(chan struct{}),
	}
	s.suspended.Store(initiallySuspended)
	go s.loop()
	return s
}

// Suspend drops ticks until Resume.
func (s *SuspendableTicker) Suspend() {
	s.suspended.Store(true)
}

func (s *SuspendableTicker) Resume() {
	s.suspended.Store(false)
}

// IsSuspended reports whether ticks are currently dropped.
func (s *SuspendableTicker) IsSuspended() bool {
	return s.suspended.Load()
}

// Stop completely stops the ticker and its goroutine. It is safe to call
// more than once.
func (s *SuspendableTicker) Stop() {
	s.stopOnce.Do(func() {
		s.ticker.Stop()
		close(s.done)
	})
}

// TickNow generates a tick at this point in time. It blocks until the tick
// is consumed or the ticker is stopped.
func (s *SuspendableTicker) TickNow() {
	if s.suspended.Load() {
		return
	}
	select {
	case s.C <- time.Now():
	case <-s.done:
	}
}

func (s *SuspendableTicker) loop() {
	for {
		select {
		case <-s.done:
			return
		case t := <-s.ticker.C:
			if s.suspended.Load() {
				continue
			}
			select {
			case s.C <- t:
			case <-s.done:
				return
			}
		}
	}
}
