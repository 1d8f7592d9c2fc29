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

package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSuspendableTickerTicks(t *testing.T) {
	ticker := NewSuspendableTicker(10*time.Millisecond, false)
	defer ticker.Stop()

	select {
	case <-ticker.C:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "no tick received")
	}
}

func TestSuspendableTickerSuspended(t *testing.T) {
	ticker := NewSuspendableTicker(5*time.Millisecond, true)
	defer ticker.Stop()
	assert.True(t, ticker.IsSuspended())

	select {
	case <-ticker.C:
		require.FailNow(t, "tick received while suspended")
	case <-time.After(50 * time.Millisecond):
	}

	ticker.Resume()
	select {
	case <-ticker.C:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "no tick received after resume")
	}
}

func TestSuspendableTickerTickNow(t *testing.T) {
	ticker := NewSuspendableTicker(time.Hour, false)
	defer ticker.Stop()

	go ticker.TickNow()
	select {
	case <-ticker.C:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "TickNow did not deliver")
	}
}

func TestSuspendableTickerStopUnblocksTickNow(t *testing.T) {
	ticker := NewSuspendableTicker(time.Hour, false)
	done := make(chan struct{})
	go func() {
		ticker.TickNow()
		close(done)
	}()
	ticker.Stop()
	ticker.Stop()
	<-done
}
