package schema

import (
	"sync"
)

// Store owns one generation of the parsed schema plus the daemon-local
// NamedOutput table. It is owned by the Controller; the Gateway Link holds
// no references into it (§3 Lifecycle).
//
// Store itself is not safe for concurrent use by design — like the rest of
// the core, it is only ever touched from the single reactor goroutine. The
// mutex below guards only the narrow slice of state that ambient
// goroutines (the UI server, the MQTT publisher) read without going
// through the reactor, via Snapshot().
type Store struct {
	mu sync.RWMutex

	Devices map[int]Device
	Outputs map[int]Output

	NamedOutputs []NamedOutput
	namedByName  map[string]int // name -> index into NamedOutputs
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		Devices:     map[int]Device{},
		Outputs:     map[int]Output{},
		namedByName: map[string]int{},
	}
}

// Generation is the equality-significant subset of a parsed schema: the
// Device and Output maps extracted from the gateway's configuration
// document. NamedOutputs are excluded — they are daemon state, not part of
// what gets compared between cache and live fetch.
type Generation struct {
	Devices map[int]Device
	Outputs map[int]Output
}

// Equal implements the Schema Store equality predicate used to decide
// whether a freshly fetched schema invalidates a cached one (§4.3, §8).
func (g Generation) Equal(o Generation) bool {
	if len(g.Devices) != len(o.Devices) || len(g.Outputs) != len(o.Outputs) {
		return false
	}
	for id, d := range g.Devices {
		od, ok := o.Devices[id]
		if !ok || !d.Equal(od) {
			return false
		}
	}
	for id, out := range g.Outputs {
		oout, ok := o.Outputs[id]
		if !ok || !out.Equal(oout) {
			return false
		}
	}
	return true
}

// Generation extracts the equality-significant subset of the current Store
// state, for comparison against a candidate replacement.
func (s *Store) Generation() Generation {
	return Generation{Devices: s.Devices, Outputs: s.Outputs}
}

// Replace installs a freshly parsed Device/Output generation, preserving
// NamedOutputs (those are daemon state and outlive any one gateway schema
// generation). Callers are expected to have already compared the
// generation for equality with Generation() when deciding whether a
// schema-invalid event is warranted; Replace itself does not compare.
func (s *Store) Replace(g Generation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Devices = g.Devices
	s.Outputs = g.Outputs
}

// Device returns the device with the given id and whether it was found.
func (s *Store) Device(id int) (Device, bool) {
	d, ok := s.Devices[id]
	return d, ok
}

// Component returns a component by (deviceID, id) and whether it was found.
func (s *Store) Component(deviceID, id int) (Component, bool) {
	d, ok := s.Devices[deviceID]
	if !ok {
		return Component{}, false
	}
	c, ok := d.Components[id]
	return c, ok
}

// SetComponent replaces a component on a device in place.
func (s *Store) SetComponent(deviceID int, c Component) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.Devices[deviceID]
	if !ok {
		return
	}
	d.Components[c.ID] = c
	s.Devices[deviceID] = d
}

// SetDevice stores d under its id, replacing the whole Device record,
// including its ephemeral dim-emulation state. The dim field is
// unexported, so other packages change it through Dim() on a copy and
// then store that copy here.
func (s *Store) SetDevice(d Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Devices[d.ID] = d
}

// Output returns an output by id and whether it was found.
func (s *Store) Output(id int) (Output, bool) {
	out, ok := s.Outputs[id]
	return out, ok
}

// SetOutputLevel updates the cached level of a gateway-native output. Per
// §3, this field mirrors the gateway's authoritative value except while a
// raise/lower emulation is in progress for that id.
func (s *Store) SetOutputLevel(id int, level Level) {
	out, ok := s.Outputs[id]
	if !ok {
		return
	}
	out.Level = level
	s.mu.Lock()
	s.Outputs[id] = out
	s.mu.Unlock()
}

// AddNamedOutput allocates a new virtual output, or returns the id of an
// existing one with the same name. The returned id is always negative and
// stable for the process lifetime (§3 Lifecycle).
func (s *Store) AddNamedOutput(name string, sink OutputSink) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx, ok := s.namedByName[name]; ok {
		return -idx - 1
	}
	idx := len(s.NamedOutputs)
	s.NamedOutputs = append(s.NamedOutputs, NamedOutput{Name: name, Sink: sink})
	s.namedByName[name] = idx
	return -idx - 1
}

// NamedOutput returns the virtual output at the given negative id.
func (s *Store) NamedOutput(id int) (*NamedOutput, bool) {
	idx := -id - 1
	if idx < 0 || idx >= len(s.NamedOutputs) {
		return nil, false
	}
	return &s.NamedOutputs[idx], true
}

// SetNamedOutputLevel sets the live level of a virtual output and invokes
// its sink. fade marks the update as part of a smooth ramp rather than a
// discrete set (see controller's raise/lower emulation).
func (s *Store) SetNamedOutputLevel(id int, level Level, fade bool) {
	s.mu.Lock()
	no, ok := s.NamedOutput(id)
	if !ok {
		s.mu.Unlock()
		return
	}
	no.Level = level
	sink := no.Sink
	s.mu.Unlock()
	if sink != nil {
		sink(int(level), fade)
	}
}

// RLock/RUnlock let an ambient goroutine (the UI server rendering a
// snapshot document) safely read Devices/Outputs while the reactor
// goroutine may be concurrently mutating them through SetDevice/Replace/
// SetOutputLevel. Every such caller must not retain references into the
// maps past RUnlock.
func (s *Store) RLock()   { s.mu.RLock() }
func (s *Store) RUnlock() { s.mu.RUnlock() }

// Snapshot returns a read-only, concurrency-safe copy of the output levels,
// for ambient consumers (UI server, MQTT publisher) that poll from their
// own goroutine rather than through the reactor.
func (s *Store) Snapshot() map[int]Level {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]Level, len(s.Outputs))
	for id, o := range s.Outputs {
		out[id] = o.Level
	}
	return out
}

// Dim returns the ephemeral dim-emulation state for a device, for use by
// the controller package (which lives alongside schema as the only other
// core package permitted to mutate it).
func (d *Device) Dim() *dimEmulation { return &d.dim }
