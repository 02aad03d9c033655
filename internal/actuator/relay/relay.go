// Package relay drives GPIO relay outputs and reads GPIO condition inputs,
// the Go rendition of relay.h/relay.cpp's gpiochip line-handle wrapper.
// Only momentary output pins and plain input reads are implemented,
// matching the original's stated scope ("currently only momentary push
// buttons are implemented for output pins").
package relay

import (
	"sync"
	"time"

	"github.com/stianeikeland/go-rpio/v4"

	"github.com/brightwell-systems/lumen-gateway/internal/reactor"
	"github.com/brightwell-systems/lumen-gateway/internal/schema"
)

// PulseDuration is how long Toggle drives a pin high before releasing it,
// for a momentary relay connected to a push-button input on the fixture
// side.
const PulseDuration = 250 * time.Millisecond

// Bank owns a set of GPIO pins addressed by pin number, opened once via
// rpio.Open for the life of the process.
type Bank struct {
	mu   sync.Mutex
	pins map[int]rpio.Pin
}

// Open initializes the GPIO memory mapping. Must be called once before any
// pin is used.
func Open() (*Bank, error) {
	if err := rpio.Open(); err != nil {
		return nil, err
	}
	return &Bank{pins: map[int]rpio.Pin{}}, nil
}

// Close releases the GPIO memory mapping.
func (b *Bank) Close() error {
	return rpio.Close()
}

func (b *Bank) pin(n int) rpio.Pin {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pins[n]
	if !ok {
		p = rpio.Pin(n)
		b.pins[n] = p
	}
	return p
}

// Set drives an output pin high or low.
func (b *Bank) Set(n int, high bool) {
	p := b.pin(n)
	p.Output()
	if high {
		p.High()
	} else {
		p.Low()
	}
}

// Get reads an input pin, pulled up by default (matching the original's
// GPIOHANDLE_REQUEST_BIAS_PULL_UP default).
func (b *Bank) Get(n int) bool {
	p := b.pin(n)
	p.Input()
	p.PullUp()
	return p.Read() == rpio.High
}

// Toggle pulses an output pin high for PulseDuration then drops it low
// again, using r's timer rather than blocking the caller — this is the
// momentary-push-button relay semantics the original implements.
func (b *Bank) Toggle(r *reactor.Reactor, n int) {
	b.Set(n, true)
	r.AddTimeout(PulseDuration, func() {
		b.Set(n, false)
	})
}

// SinkFor returns an OutputSink wired as a pulse-only relay: any nonzero
// level pulses the pin, a zero level is ignored (the pulse is
// self-terminating). r is needed to schedule the pulse's release.
func (b *Bank) SinkFor(r *reactor.Reactor, pin int) schema.OutputSink {
	return func(level int, _ bool) {
		if level <= 0 {
			return
		}
		b.Toggle(r, pin)
	}
}
