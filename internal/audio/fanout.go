package audio

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Tap consumes a chunk read-only. Taps must not retain or mutate the slice.
type Tap func(chunk DataPacket)

// FanOut distributes capture chunks from a single input channel to multiple
// taps. All taps see every chunk in arrival order: a single goroutine reads
// the input and invokes the taps synchronously, which keeps RMS evaluation
// and buffer accumulation consistent with capture order.
//
// The input channel is owned by the caller; closing it shuts the fan-out
// down after the remaining chunks have been drained.
type FanOut struct {
	taps    []Tap
	started atomic.Bool
	wg      sync.WaitGroup
}

// NewFanOut creates an empty fan-out.
func NewFanOut() *FanOut {
	return &FanOut{}
}

// Attach adds a tap. Must be called before Run().
// Not safe for concurrent use with Run().
func (f *FanOut) Attach(tap Tap) {
	f.taps = append(f.taps, tap)
}

// Run starts the distribution goroutine reading from input.
// Returns error if already started or no taps exist.
func (f *FanOut) Run(input <-chan DataPacket) error {
	if f.started.Load() {
		return fmt.Errorf("fan out already started")
	}

	if len(f.taps) == 0 {
		return fmt.Errorf("no taps attached")
	}

	f.started.Store(true)

	f.wg.Go(func() {
		for chunk := range input {
			for _, tap := range f.taps {
				tap(chunk)
			}
		}
	})

	return nil
}

// Wait blocks until the input channel has been closed and fully drained.
func (f *FanOut) Wait() {
	f.wg.Wait()
}
