// Package dmx drives DMX-512 light fixtures over a serial port. It frames
// whole-universe channel updates and applies the original's dimmer curve
// and low-trim shaping (main.cpp:setDMX) before a level reaches the wire.
// Break/MAB timing accuracy is out of scope (§1 Non-goals) — this sends
// plain framed channel data at a fixed refresh cadence, which every DMX
// receiver in practice tolerates.
package dmx

import (
	"math"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/brightwell-systems/lumen-gateway/internal/reactor"
	"github.com/brightwell-systems/lumen-gateway/internal/schema"
)

// Channels is the number of addressable slots in a DMX-512 universe.
const Channels = 512

// RefreshInterval is the keep-alive cadence: fixtures expect to keep
// hearing from the controller even when nothing has changed.
const RefreshInterval = 1 * time.Second

// Fixture describes one DMX-controlled output, grounded on the site
// description's "DMX" object: a set of channel indices, a per-channel
// dimmer curve exponent (default 1.0, i.e. linear), and a single low-trim
// percentage applied before the curve.
type Fixture struct {
	Channels []int
	Curve    []float64
	Trim     float64
}

// Bank owns one DMX-512 universe's worth of channel state and the serial
// port it's framed out over.
type Bank struct {
	port serial.Port

	mu     sync.Mutex
	values [Channels + 1]byte // 1-indexed; values[0] unused

	refreshTimer *reactor.TimeoutHandle
}

// Open opens the serial device at path (250 kbaud, 8N2, as DMX-512
// requires) and returns a Bank ready to accept Set calls.
func Open(path string) (*Bank, error) {
	mode := &serial.Mode{
		BaudRate: 250000,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.TwoStopBits,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}
	return &Bank{port: port}, nil
}

// Close releases the serial port.
func (b *Bank) Close() error {
	if b.port == nil {
		return nil
	}
	return b.port.Close()
}

// Set writes one channel (1..512) directly, clamped to [0,255].
func (b *Bank) Set(channel int, value int) {
	if channel <= 0 || channel > Channels {
		return
	}
	if value < 0 {
		value = 0
	} else if value > 255 {
		value = 255
	}
	b.mu.Lock()
	b.values[channel] = byte(value)
	b.mu.Unlock()
}

// StartRefresh arms a periodic frame send on r so fixtures keep receiving
// data even between level changes.
func (b *Bank) StartRefresh(r *reactor.Reactor) {
	b.armRefresh(r)
}

func (b *Bank) armRefresh(r *reactor.Reactor) {
	b.refreshTimer = r.AddTimeout(RefreshInterval, func() {
		_ = b.sendFrame()
		b.armRefresh(r)
	})
}

// sendFrame writes one DMX-512 frame: a null start code followed by 512
// channel bytes.
func (b *Bank) sendFrame() error {
	b.mu.Lock()
	frame := make([]byte, Channels+1)
	copy(frame, b.values[:])
	b.mu.Unlock()
	_, err := b.port.Write(frame)
	return err
}

// SinkFor returns an OutputSink that shapes an incoming 0..10000 level
// through f's curve and trim before writing it to every channel the
// fixture spans, exactly matching main.cpp:setDMX's formula:
//
//	v = ((level*(100-trim)/100+trim*100)/10000) ^ exponent * 255
//
// trim is a percentage, so trim*100 is the floor in 0..10000 level units.
func (b *Bank) SinkFor(f Fixture) schema.OutputSink {
	return func(level int, _ bool) {
		for i, ch := range f.Channels {
			exp := 1.0
			if i < len(f.Curve) {
				exp = f.Curve[i]
			}
			b.Set(ch, shapeLevel(level, f.Trim, exp))
		}
		_ = b.sendFrame()
	}
}

// shapeLevel applies the trim-then-curve transform to a 0..10000 level,
// producing a 0..255 DMX channel value.
func shapeLevel(level int, trim, exp float64) int {
	scaled := (float64(level)*(100-trim)/100 + trim*100) / 10000
	if scaled < 0 {
		scaled = 0
	}
	return int(math.Pow(scaled, exp) * 255)
}
